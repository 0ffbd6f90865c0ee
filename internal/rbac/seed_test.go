package rbac

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSeedValid(t *testing.T) {
	data := []byte(`{
		"scopes": {
			"users.view": "Read users",
			"users.manage": "Write users"
		},
		"roles": {
			"Admin": {"description": "Administers users", "permissions": ["users.view", "users.manage"]},
			"Viewer": {"description": "", "permissions": ["users.view"]}
		}
	}`)

	seed, err := ParseSeed(data)
	require.NoError(t, err)
	require.Len(t, seed.Scopes, 2)
	require.Equal(t, "Read users", seed.Scopes["users.view"])
	require.Len(t, seed.Roles, 2)
	require.Equal(t, []string{"users.view"}, seed.Roles["Viewer"].Permissions)
}

func TestParseSeedCanonicalizesKeys(t *testing.T) {
	data := []byte(`{
		"scopes": {" Users.View ": "Read users"},
		"roles": {"Viewer": {"permissions": ["USERS.view"]}}
	}`)

	seed, err := ParseSeed(data)
	require.NoError(t, err)
	require.Equal(t, "Read users", seed.Scopes["users.view"])
	require.Equal(t, []string{"users.view"}, seed.Roles["Viewer"].Permissions)
}

func TestParseSeedRejectsUnknownFields(t *testing.T) {
	data := []byte(`{"scopes": {"a": "b"}, "roles": {}, "extra": true}`)

	_, err := ParseSeed(data)
	var formatErr *SeedFormatError
	require.ErrorAs(t, err, &formatErr)
	require.Equal(t, "decode", formatErr.Reason)
}

func TestParseSeedRejectsMissingScopes(t *testing.T) {
	_, err := ParseSeed([]byte(`{"roles": {}}`))
	var formatErr *SeedFormatError
	require.ErrorAs(t, err, &formatErr)
}

func TestParseSeedRejectsEmptyScopeKey(t *testing.T) {
	_, err := ParseSeed([]byte(`{"scopes": {" ": "blank"}, "roles": {}}`))
	var formatErr *SeedFormatError
	require.ErrorAs(t, err, &formatErr)
}

func TestParseSeedRejectsEmptyPermissionKeyInRole(t *testing.T) {
	data := []byte(`{"scopes": {"a": "b"}, "roles": {"Admin": {"permissions": ["a", ""]}}}`)

	_, err := ParseSeed(data)
	var formatErr *SeedFormatError
	require.ErrorAs(t, err, &formatErr)
}

func TestParseSeedRejectsMalformedJSON(t *testing.T) {
	_, err := ParseSeed([]byte(`{"scopes": `))
	var formatErr *SeedFormatError
	require.True(t, errors.As(err, &formatErr))
}

func TestParseSeedAllowsMissingRoles(t *testing.T) {
	seed, err := ParseSeed([]byte(`{"scopes": {"a": "b"}}`))
	require.NoError(t, err)
	require.Empty(t, seed.Roles)
}
