package rbac

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gatehouse-id/gatehouse/internal/shared"
)

func serveGuarded(t *testing.T, guard func(http.Handler) http.Handler, principal *shared.Principal) *httptest.ResponseRecorder {
	t.Helper()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	if principal != nil {
		req = req.WithContext(shared.ContextWithPrincipal(req.Context(), principal))
	}
	rec := httptest.NewRecorder()
	guard(next).ServeHTTP(rec, req)
	return rec
}

func TestRequireAnyRejectsAnonymous(t *testing.T) {
	mw := Middleware{Registry: seededRegistry(), Logger: slog.New(slog.DiscardHandler)}

	rec := serveGuarded(t, mw.RequireAny("users.view"), nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "application/json")
}

func TestRequireAnyGrantsOnOnePermission(t *testing.T) {
	mw := Middleware{Registry: seededRegistry(), Logger: slog.New(slog.DiscardHandler)}
	viewer := &shared.Principal{ID: 1, RoleName: "Viewer"}

	rec := serveGuarded(t, mw.RequireAny("users.manage", "users.view"), viewer)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serveGuarded(t, mw.RequireAny("users.manage"), viewer)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAnyUnknownRoleIsForbidden(t *testing.T) {
	mw := Middleware{Registry: seededRegistry(), Logger: slog.New(slog.DiscardHandler)}
	ghost := &shared.Principal{ID: 2, RoleName: "Ghost"}

	rec := serveGuarded(t, mw.RequireAny("users.view"), ghost)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAllNeedsEveryPermission(t *testing.T) {
	mw := Middleware{Registry: seededRegistry(), Logger: slog.New(slog.DiscardHandler)}
	admin := &shared.Principal{ID: 3, RoleName: "Admin"}
	viewer := &shared.Principal{ID: 4, RoleName: "Viewer"}

	rec := serveGuarded(t, mw.RequireAll("users.view", "users.manage"), admin)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serveGuarded(t, mw.RequireAll("users.view", "users.manage"), viewer)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGuardsCompareKeysExactlyLikeAuthorize(t *testing.T) {
	registry := seededRegistry()
	mw := Middleware{Registry: registry, Logger: slog.New(slog.DiscardHandler)}
	viewer := &shared.Principal{ID: 5, RoleName: "Viewer"}

	// A miscased key denies in the guard and in the evaluator alike.
	rec := serveGuarded(t, mw.RequireAny("Users.View"), viewer)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.False(t, registry.Authorize(viewer, "Users.View"))

	rec = serveGuarded(t, mw.RequireAny("users.view"), viewer)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, registry.Authorize(viewer, "users.view"))
}

func TestGuardsWithNoPermissionsPassThrough(t *testing.T) {
	mw := Middleware{Registry: seededRegistry(), Logger: slog.New(slog.DiscardHandler)}

	rec := serveGuarded(t, mw.RequireAny(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serveGuarded(t, mw.RequireAll("  "), nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
