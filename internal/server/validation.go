package server

import (
	"errors"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	httpmiddleware "github.com/wolfeidau/cybaware/internal/http"
	"github.com/wolfeidau/cybaware/internal/rbac"
)

const bcryptMaxPasswordBytes = 72

// slugPattern accepts a single DNS label so the slug can be used as a subdomain.
var slugPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// newValidator returns the request validator with the API's custom rules:
//
//	slug    a lowercase DNS label
//	role    one of the rbac roles
//	bcrypt  at most 72 bytes, the longest input bcrypt hashes (max counts runes)
//
// Field names in errors are the JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	// registration only fails on an empty tag or nil func
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		_, err := rbac.ParseRole(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("bcrypt", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= bcryptMaxPasswordBytes
	})

	return v
}

// decodeValid decodes a JSON body into req and validates it, writing a 400 on failure.
func (s *Server) decodeValid(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := httpmiddleware.DecodeJSON(r, req); err != nil {
		badRequest(w, r, "invalid request body")
		return false
	}
	return s.valid(w, r, req)
}

// valid validates req, writing a 400 naming the failed fields.
func (s *Server) valid(w http.ResponseWriter, r *http.Request, req any) bool {
	err := s.validate.Struct(req)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to validate request")
		httpmiddleware.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return false
	}

	badRequest(w, r, validationMessage(verrs))
	return false
}

// validationMessage renders errors as "invalid field: rule", e.g. "invalid password: max".
func validationMessage(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Field()+": "+fe.Tag())
	}
	return "invalid " + strings.Join(parts, ", ")
}
