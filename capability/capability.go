// Package capability models the enumerated capability sets attached to
// account roles. Sets are resolved by role name through a Registry and
// re-read on demand, so a role change takes effect on the next refresh.
package capability

import (
	"errors"
	"sort"
	"sync"
)

// Set is an immutable collection of named capabilities.
type Set struct {
	names map[string]struct{}
}

// NewSet builds a Set from capability names. Duplicates collapse.
func NewSet(names ...string) Set {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		m[n] = struct{}{}
	}
	return Set{names: m}
}

// Has reports whether the set contains the named capability.
func (s Set) Has(name string) bool {
	_, ok := s.names[name]
	return ok
}

// Names returns the capability names in sorted order.
func (s Set) Names() []string {
	out := make([]string, 0, len(s.names))
	for n := range s.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of capabilities in the set.
func (s Set) Len() int {
	return len(s.names)
}

// ErrUnknownRole is returned when a role has no registered capability set.
var ErrUnknownRole = errors.New("unknown role")

// Registry maps role names to capability sets. Safe for concurrent use;
// registration normally happens once at startup.
type Registry struct {
	mu    sync.RWMutex
	roles map[string]Set
}

func NewRegistry() *Registry {
	return &Registry{roles: make(map[string]Set)}
}

// Register binds a role name to its capability set, replacing any
// previous binding.
func (r *Registry) Register(role string, set Set) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roles[role] = set
}

// Resolve returns the capability set for a role.
func (r *Registry) Resolve(role string) (Set, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.roles[role]
	if !ok {
		return Set{}, ErrUnknownRole
	}
	return set, nil
}

// DefaultRegistry returns the registry used by the monitoring dashboard:
// admins manage everything, operators act on hosts and sessions, viewers
// read only.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("admin", NewSet(
		"hosts.read", "hosts.write", "hosts.delete",
		"packages.read", "packages.write",
		"sessions.read", "sessions.revoke",
		"accounts.manage", "jobs.trigger",
	))
	r.Register("operator", NewSet(
		"hosts.read", "hosts.write",
		"packages.read",
		"sessions.read", "sessions.revoke",
	))
	r.Register("viewer", NewSet(
		"hosts.read", "packages.read", "sessions.read",
	))
	return r
}
