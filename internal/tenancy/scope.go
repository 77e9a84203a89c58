package tenancy

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Sentinel errors for scope resolution. Both indicate programmer error rather than a
// request problem.
var (
	ErrUnregisteredEntity = errors.New("entity kind has no registered tenant key")
	ErrNoAuthorization    = errors.New("scope requires a valid authorization context")
	ErrInvalidBinding     = errors.New("invalid tenant binding")
)

// EntityKind names an organization-owned entity type.
type EntityKind string

const (
	KindMembership EntityKind = "memberships"
	KindProject    EntityKind = "projects"
	KindTraining   EntityKind = "trainings"
	KindModule     EntityKind = "modules"
	KindEnrollment EntityKind = "enrollments"
	KindProgress   EntityKind = "progress"
)

// Join is one hop from an entity towards the table holding its tenant key.
type Join struct {
	Table string // table joined in
	On    string // join condition, e.g. "trainings.training_id = modules.training_id"
}

// Binding describes where an entity's tenant key lives.
//
// For entities that carry org_id themselves Via is empty and TenantColumn is a column of
// Table. For entities owned through a parent, Via lists the joins in order and TenantColumn
// is qualified with the last joined table.
type Binding struct {
	Table        string
	TenantColumn string
	Via          []Join
}

func (b Binding) validate() error {
	if b.Table == "" {
		return fmt.Errorf("%w: table is required", ErrInvalidBinding)
	}
	if b.TenantColumn == "" {
		return fmt.Errorf("%w: tenant column is required for %s", ErrInvalidBinding, b.Table)
	}
	for _, j := range b.Via {
		if j.Table == "" || j.On == "" {
			return fmt.Errorf("%w: incomplete join for %s", ErrInvalidBinding, b.Table)
		}
	}
	return nil
}

// Filter is the registry of tenant-owned entity kinds. It is populated at startup and
// read concurrently afterwards.
type Filter struct {
	mu       sync.RWMutex
	bindings map[EntityKind]Binding
}

// NewFilter returns an empty registry.
func NewFilter() *Filter {
	return &Filter{bindings: make(map[EntityKind]Binding)}
}

// DefaultFilter returns a registry holding every tenant-owned entity of the API.
func DefaultFilter() *Filter {
	f := NewFilter()
	f.MustRegister(KindMembership, Binding{Table: "memberships", TenantColumn: "memberships.org_id"})
	f.MustRegister(KindProject, Binding{Table: "projects", TenantColumn: "projects.org_id"})
	f.MustRegister(KindTraining, Binding{Table: "trainings", TenantColumn: "trainings.org_id"})
	f.MustRegister(KindModule, Binding{
		Table:        "modules",
		TenantColumn: "trainings.org_id",
		Via: []Join{
			{Table: "trainings", On: "trainings.training_id = modules.training_id"},
		},
	})
	f.MustRegister(KindEnrollment, Binding{
		Table:        "enrollments",
		TenantColumn: "trainings.org_id",
		Via: []Join{
			{Table: "trainings", On: "trainings.training_id = enrollments.training_id"},
		},
	})
	f.MustRegister(KindProgress, Binding{
		Table:        "progress",
		TenantColumn: "trainings.org_id",
		Via: []Join{
			{Table: "modules", On: "modules.module_id = progress.module_id"},
			{Table: "trainings", On: "trainings.training_id = modules.training_id"},
		},
	})
	return f
}

// Register adds or replaces the binding for kind.
func (f *Filter) Register(kind EntityKind, b Binding) error {
	if kind == "" {
		return fmt.Errorf("%w: entity kind is required", ErrInvalidBinding)
	}
	if err := b.validate(); err != nil {
		return err
	}

	b.Via = slices.Clone(b.Via)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.bindings[kind] = b
	return nil
}

// MustRegister is Register for static registrations; it panics on an invalid binding.
func (f *Filter) MustRegister(kind EntityKind, b Binding) {
	if err := f.Register(kind, b); err != nil {
		panic(err)
	}
}

// Validate checks that every kind has a binding. Call it at startup with the kinds the
// stores are going to scope.
func (f *Filter) Validate(kinds ...EntityKind) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var missing []string
	for _, k := range kinds {
		if _, ok := f.bindings[k]; !ok {
			missing = append(missing, string(k))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrUnregisteredEntity, strings.Join(missing, ", "))
	}
	return nil
}

// Predicate returns the tenant condition for kind, bound to the organization of ac.
// The organization always comes from the authorization context; there is no way to
// ask for another one.
func (f *Filter) Predicate(ac *AuthorizationContext, kind EntityKind) (Predicate, error) {
	if !ac.valid() {
		return Predicate{}, ErrNoAuthorization
	}

	f.mu.RLock()
	b, ok := f.bindings[kind]
	f.mu.RUnlock()
	if !ok {
		return Predicate{}, fmt.Errorf("%w: %s", ErrUnregisteredEntity, kind)
	}

	return Predicate{kind: kind, orgID: ac.orgID, binding: b}, nil
}

// Predicate is the mandatory tenant filter for one entity kind. The zero value matches
// nothing.
type Predicate struct {
	kind    EntityKind
	orgID   int64
	binding Binding
}

// Kind returns the entity kind the predicate was built for.
func (p Predicate) Kind() EntityKind { return p.kind }

// OrgID returns the organization every row must belong to.
func (p Predicate) OrgID() int64 { return p.orgID }

// Matches reports whether a row owned by orgID passes the predicate.
func (p Predicate) Matches(orgID int64) bool {
	return p.orgID > 0 && orgID == p.orgID
}

// SQL renders the predicate for a query whose FROM clause names the entity table.
// joins is empty for direct bindings; where compares the tenant column to placeholder
// $argPos, whose value is arg.
func (p Predicate) SQL(argPos int) (joins string, where string, arg any) {
	var b strings.Builder
	for _, j := range p.binding.Via {
		b.WriteString(" JOIN ")
		b.WriteString(j.Table)
		b.WriteString(" ON ")
		b.WriteString(j.On)
	}
	return b.String(), fmt.Sprintf("%s = $%d", p.binding.TenantColumn, argPos), p.orgID
}
