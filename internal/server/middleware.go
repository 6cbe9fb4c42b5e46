package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/deepin-community/fprintd/internal/auth"
	"github.com/deepin-community/fprintd/internal/fprint"
)

type ctxKey string

const (
	ctxUsername ctxKey = "username"
	ctxAdmin    ctxKey = "admin"
)

func (a *App) withAuthContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, admin := a.readAuth(r)
		ctx := r.Context()
		if username != "" {
			ctx = context.WithValue(ctx, ctxUsername, username)
			ctx = context.WithValue(ctx, ctxAdmin, admin)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// readAuth accepts "Authorization: Bearer <token>". A bad token is treated
// as no token.
func (a *App) readAuth(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	if authz == "" {
		return "", false
	}
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	cl, err := auth.ParseHS256(a.secret, strings.TrimSpace(parts[1]))
	if err != nil {
		return "", false
	}
	return cl.Username, cl.Admin
}

func usernameFrom(r *http.Request) string {
	if v := r.Context().Value(ctxUsername); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func isAdminFrom(r *http.Request) bool {
	if v := r.Context().Value(ctxAdmin); v != nil {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

// caller is the user on whose behalf a request runs.
type caller struct {
	Name  string
	Admin bool
}

// callerFrom returns the token identity, or the account owning the default
// uid for requests without one.
func (a *App) callerFrom(r *http.Request) (caller, error) {
	if name := usernameFrom(r); name != "" {
		return caller{Name: name, Admin: isAdminFrom(r)}, nil
	}
	if a.accounts == nil {
		return caller{}, fmt.Errorf("%w: anonymous caller", fprint.ErrPermissionDenied)
	}
	name, err := a.accounts.UserByUID(a.defaultUID)
	if err != nil {
		return caller{}, fmt.Errorf("%w: cannot resolve uid %d: %v", fprint.ErrPermissionDenied, a.defaultUID, err)
	}
	admin := a.defaultUID == 0
	if !admin && a.auth != nil {
		admin, _ = a.auth.IsAdmin(name)
	}
	return caller{Name: name, Admin: admin}, nil
}

// resolveUser picks the user an operation applies to. An empty name or the
// caller's own name means the caller; any other user requires admin rights.
func (c caller) resolveUser(requested string) (string, error) {
	if requested == "" || requested == c.Name {
		return c.Name, nil
	}
	if !c.Admin {
		return "", fmt.Errorf("%w: Not Authorized: net.reactivated.fprint.device.setusername", fprint.ErrPermissionDenied)
	}
	return requested, nil
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
