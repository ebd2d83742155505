package api

import (
	"context"
	"net/http"
	"time"

	"github.com/shaj13/go-guardian/auth"
	"github.com/shaj13/go-guardian/auth/strategies/bearer"
	"github.com/shaj13/go-guardian/store"
	"go.uber.org/zap"

	"github.com/ojamarket/realtime-api/models"
)

// AdminAccessHeader marks a request that should be verified on the admin
// token path
const AdminAccessHeader = "x-iadmin-access"

var authenticator auth.Authenticator
var authCache store.Cache

// MiddlewareAuth wires the token authenticator into go-guardian
type MiddlewareAuth struct {
	Auth *Authenticator
}

// Middleware authenticates the bearer token and attaches the resolved
// principal to the request context
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		user, err := authenticator.Authenticate(r)
		if err != nil {
			zap.S().Errorw("unauthorized",
				"url", r.URL)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "unauthorized"}`))
			return
		}
		principal := principalFromInfo(user)
		zap.S().Debugf("principal %s authenticated", principal.ID)
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

// SetupGoGuardian sets up the go-guardian middleware. Results are cached for
// a short window only, so revocation via logout still bites quickly.
func (m MiddlewareAuth) SetupGoGuardian() {
	authenticator = auth.New()
	authCache = store.NewFIFO(context.Background(), 2*time.Minute)
	tokenStrategy := bearer.New(m.verifyToken, authCache)
	authenticator.EnableStrategy(bearer.CachedStrategyKey, tokenStrategy)
}

// verifyToken is the bearer AuthenticateFunc behind the cached strategy
func (m MiddlewareAuth) verifyToken(ctx context.Context, r *http.Request, token string) (auth.Info, error) {
	principal, err := m.Auth.Authenticate(ctx, token, IsAdminRequest(r))
	if err != nil {
		return nil, err
	}
	ext := map[string][]string{
		"role":        {principal.Role},
		"displayName": {principal.DisplayName},
		"token":       {principal.Token},
	}
	if principal.AdminScope != "" {
		ext["adminScope"] = []string{principal.AdminScope}
	}
	return auth.NewDefaultUser(principal.DisplayName, principal.ID, nil, ext), nil
}

// IsAdminRequest reports whether the request asked for admin verification
func IsAdminRequest(r *http.Request) bool {
	if v := r.Header.Get(AdminAccessHeader); v == "true" || v == "1" {
		return true
	}
	if v := r.URL.Query().Get(AdminAccessHeader); v == "true" || v == "1" {
		return true
	}
	return false
}

func principalFromInfo(info auth.Info) *models.Principal {
	p := &models.Principal{
		ID:          info.ID(),
		DisplayName: info.UserName(),
	}
	ext := info.Extensions()
	if v, ok := ext["role"]; ok && len(v) > 0 {
		p.Role = v[0]
	}
	if v, ok := ext["adminScope"]; ok && len(v) > 0 {
		p.AdminScope = v[0]
	}
	if v, ok := ext["token"]; ok && len(v) > 0 {
		p.Token = v[0]
	}
	return p
}
