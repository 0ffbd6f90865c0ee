package rbac

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse-id/gatehouse/internal/shared"
)

func newRBACServer(t *testing.T, role string) (*httptest.Server, *Service) {
	t.Helper()
	svc, _ := newTestService(t)
	require.NoError(t, svc.LoadSeed(t.Context(), Seed{
		Scopes: map[string]string{
			shared.PermUsersView:         "Read users",
			shared.PermUsersManage:       "Write users",
			shared.PermRolesView:         "Read roles",
			shared.PermRolesManage:       "Write roles",
			shared.PermPermissionsView:   "Read catalog",
			shared.PermPermissionsManage: "Write catalog",
		},
		Roles: map[string]RoleSeed{
			shared.SuperAdminRole: {Permissions: shared.CoreScopes()},
			"Viewer":              {Permissions: []string{shared.PermRolesView, shared.PermPermissionsView}},
		},
	}))

	handler := NewHandler(slog.New(slog.DiscardHandler), svc, Middleware{Registry: svc.Registry(), Logger: slog.New(slog.DiscardHandler)})
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if role != "" {
				principal := &shared.Principal{ID: 1, RoleName: role}
				req = req.WithContext(shared.ContextWithPrincipal(req.Context(), principal))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/roles", handler.MountRoleRoutes)
	r.Route("/permissions", handler.MountPermissionRoutes)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, svc
}

func request(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestPermissionEndpoints(t *testing.T) {
	srv, _ := newRBACServer(t, shared.SuperAdminRole)

	resp := request(t, http.MethodGet, srv.URL+"/permissions", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var perms []permissionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&perms))
	require.Len(t, perms, 6)

	resp = request(t, http.MethodPost, srv.URL+"/permissions", `{"name":"reports.view","description":"Read reports"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = request(t, http.MethodPost, srv.URL+"/permissions", `{"description":"nameless"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPermissionEndpointsEnforceScopes(t *testing.T) {
	srv, _ := newRBACServer(t, "Viewer")

	resp := request(t, http.MethodGet, srv.URL+"/permissions", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = request(t, http.MethodPost, srv.URL+"/permissions", `{"name":"reports.view"}`)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	anon, _ := newRBACServer(t, "")
	resp = request(t, http.MethodGet, anon.URL+"/permissions", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRoleEndpoints(t *testing.T) {
	srv, svc := newRBACServer(t, shared.SuperAdminRole)

	resp := request(t, http.MethodPost, srv.URL+"/roles",
		`{"name":"Support","description":"Handles tickets","permissions":["users.view"]}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created roleResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.Equal(t, []string{"users.view"}, created.Permissions)

	resp = request(t, http.MethodGet, srv.URL+"/roles/"+strconv.FormatInt(created.ID, 10), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = request(t, http.MethodPost, srv.URL+"/roles", `{"name":"Broken","permissions":["nope.nothing"]}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	perm, err := svc.repo.GetPermissionByName(t.Context(), shared.PermUsersManage)
	require.NoError(t, err)
	permPath := srv.URL + "/roles/" + strconv.FormatInt(created.ID, 10) + "/permissions/" + strconv.FormatInt(perm.ID, 10)

	resp = request(t, http.MethodPost, permPath, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	granted, err := svc.Registry().HasPermission("Support", shared.PermUsersManage)
	require.NoError(t, err)
	require.True(t, granted)

	resp = request(t, http.MethodDelete, permPath, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = request(t, http.MethodDelete, srv.URL+"/roles/"+strconv.FormatInt(created.ID, 10), "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = request(t, http.MethodDelete, srv.URL+"/roles/"+strconv.FormatInt(created.ID, 10), "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteRoleInUseEndpoint(t *testing.T) {
	srv, svc := newRBACServer(t, shared.SuperAdminRole)

	viewer, err := svc.GetRoleByName(t.Context(), "Viewer")
	require.NoError(t, err)
	mock := svc.repo.(*mockRepository)
	mock.roleHolders[viewer.ID] = 1

	resp := request(t, http.MethodDelete, srv.URL+"/roles/"+strconv.FormatInt(viewer.ID, 10), "")
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}
