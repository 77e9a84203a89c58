package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/cybaware/internal/store"
)

// TenantResolver derives the organization a request targets from its host name, falling
// back to an explicit org id header. It does not look at credentials.
type TenantResolver struct {
	baseDomain string
	orgs       store.OrganizationStore
}

// NewTenantResolver returns a resolver for hosts under cfg.BaseDomain.
func NewTenantResolver(cfg TenantConfig, orgs store.OrganizationStore) (*TenantResolver, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if orgs == nil {
		return nil, errors.New("organization store is required")
	}

	return &TenantResolver{baseDomain: cfg.BaseDomain, orgs: orgs}, nil
}

// Resolve returns the organization id for a request.
//
// A host of the form "<...>.<slug>.<base domain>" resolves through the slug of the label
// directly left of the base domain; deeper labels are ignored. When the host does not name
// a known organization, orgHeader is used if it is a positive decimal integer. That id is
// not checked for existence here; the membership lookup fails closed on unknown orgs.
//
// ok is false when neither source yields an organization. err is only set when the
// organization store fails.
func (r *TenantResolver) Resolve(ctx context.Context, host, orgHeader string) (orgID int64, ok bool, err error) {
	if slug := r.slugFromHost(host); slug != "" {
		org, err := r.orgs.GetBySlug(ctx, slug)
		switch {
		case err == nil:
			return org.OrgID, true, nil
		case errors.Is(err, store.ErrOrganizationNotFound):
			zerolog.Ctx(ctx).Debug().Str("slug", slug).Msg("no organization for host slug")
		default:
			return 0, false, fmt.Errorf("failed to resolve organization slug: %w", err)
		}
	}

	if id, ok := parseOrgHeader(orgHeader); ok {
		return id, true, nil
	}

	return 0, false, nil
}

// slugFromHost returns the candidate organization slug in host, or "".
func (r *TenantResolver) slugFromHost(host string) string {
	if r.baseDomain == "" {
		return ""
	}

	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(host, ".")

	rest, found := strings.CutSuffix(host, "."+r.baseDomain)
	if !found || rest == "" {
		return ""
	}

	if i := strings.LastIndexByte(rest, '.'); i >= 0 {
		rest = rest[i+1:]
	}
	return rest
}

// parseOrgHeader accepts ASCII digits only, so "+7", " 7" and "7.0" are all rejected.
func parseOrgHeader(v string) (int64, bool) {
	if v == "" {
		return 0, false
	}
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return 0, false
		}
	}

	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
