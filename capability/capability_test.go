package capability

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetHas(t *testing.T) {
	set := NewSet("hosts.read", "hosts.write", "")

	assert.True(t, set.Has("hosts.read"))
	assert.True(t, set.Has("hosts.write"))
	assert.False(t, set.Has("hosts.delete"))
	assert.False(t, set.Has(""))
	assert.Equal(t, 2, set.Len())
}

func TestSetNamesSorted(t *testing.T) {
	set := NewSet("c", "a", "b", "a")
	assert.Equal(t, []string{"a", "b", "c"}, set.Names())
}

func TestRegistryResolve(t *testing.T) {
	r := NewRegistry()
	r.Register("viewer", NewSet("hosts.read"))

	set, err := r.Resolve("viewer")
	require.NoError(t, err)
	assert.True(t, set.Has("hosts.read"))

	_, err = r.Resolve("ghost")
	assert.True(t, errors.Is(err, ErrUnknownRole))
}

func TestRegistryRegisterReplaces(t *testing.T) {
	r := NewRegistry()
	r.Register("viewer", NewSet("hosts.read"))
	r.Register("viewer", NewSet("packages.read"))

	set, err := r.Resolve("viewer")
	require.NoError(t, err)
	assert.False(t, set.Has("hosts.read"))
	assert.True(t, set.Has("packages.read"))
}

func TestDefaultRegistryRoles(t *testing.T) {
	r := DefaultRegistry()

	admin, err := r.Resolve("admin")
	require.NoError(t, err)
	assert.True(t, admin.Has("accounts.manage"))
	assert.True(t, admin.Has("jobs.trigger"))

	operator, err := r.Resolve("operator")
	require.NoError(t, err)
	assert.True(t, operator.Has("sessions.revoke"))
	assert.False(t, operator.Has("accounts.manage"))

	viewer, err := r.Resolve("viewer")
	require.NoError(t, err)
	assert.True(t, viewer.Has("hosts.read"))
	assert.False(t, viewer.Has("hosts.write"))
}
