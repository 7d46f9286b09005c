package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"rentdesk-backend/internal/domain"
	"rentdesk-backend/internal/security"
)

type contextKey int

const claimsKey contextKey = iota

func withClaims(ctx context.Context, claims *security.StaffClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the staff claims the auth middleware attached.
func ClaimsFromContext(ctx context.Context) (*security.StaffClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(*security.StaffClaims)
	return claims, ok && claims != nil
}

func teamIDFromRequest(r *http.Request) (int32, error) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		return 0, domain.ErrUnauthorized
	}
	return claims.TeamID, nil
}

func pathID(r *http.Request, name string) (int32, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id <= 0 {
		return 0, domain.Validationf("invalid %s: %q", name, raw)
	}
	return int32(id), nil
}

func queryInt(r *http.Request, name string, fallback int32) int32 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return fallback
	}
	return int32(n)
}
