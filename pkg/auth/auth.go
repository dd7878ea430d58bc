package auth

import (
	"fmt"
	"sort"
	"strings"

	"github.com/stashdb/stashdb/pkg/domain"
)

// PrincipalHeader carries the authenticated principals of a request, as a
// comma-separated list. Authentication itself (verifying the header) is the
// job of the deployment's front proxy; this package only decides what an
// already-authenticated principal set may do.
const PrincipalHeader = "X-Stash-Principal"

// PrincipalSet is a normalized (sorted, deduplicated) set of authenticated
// principals. The empty set represents an unauthenticated caller.
type PrincipalSet []string

// ParsePrincipals builds a PrincipalSet from a comma-separated header value.
func ParsePrincipals(header string) PrincipalSet {
	seen := make(map[string]bool)
	var set PrincipalSet
	for _, part := range strings.Split(header, ",") {
		name := strings.TrimSpace(part)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		set = append(set, name)
	}
	sort.Strings(set)
	return set
}

// Equal reports whether two principal sets contain the same principals.
func (s PrincipalSet) Equal(other PrincipalSet) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

func (s PrincipalSet) String() string {
	if len(s) == 0 {
		return "(anonymous)"
	}
	return strings.Join(s, ",")
}

// Actions checked by the command surface.
const (
	ActionListIndexes = "listIndexes"
	ActionModify      = "modify"
)

// Authorizer decides whether a principal set may perform an action on a
// namespace. Checks run before any lock is acquired.
type Authorizer interface {
	CanListIndexes(principals PrincipalSet, ns string) error
	CanModify(principals PrincipalSet, ns string) error
}

// AllowAll authorizes every request. It is the default for deployments that
// delegate access control to the network layer.
type AllowAll struct{}

func (AllowAll) CanListIndexes(PrincipalSet, string) error { return nil }
func (AllowAll) CanModify(PrincipalSet, string) error      { return nil }

// StaticAuthorizer authorizes from a fixed grant table. Grants are keyed by
// principal and namespace; the namespace "*" grants an action everywhere.
type StaticAuthorizer struct {
	grants map[string]map[string]map[string]bool // principal -> ns -> action
}

// NewStaticAuthorizer creates an authorizer with no grants. Every check
// fails until Grant is called.
func NewStaticAuthorizer() *StaticAuthorizer {
	return &StaticAuthorizer{grants: make(map[string]map[string]map[string]bool)}
}

// Grant allows principal to perform the given actions on ns.
func (a *StaticAuthorizer) Grant(principal, ns string, actions ...string) {
	byNS := a.grants[principal]
	if byNS == nil {
		byNS = make(map[string]map[string]bool)
		a.grants[principal] = byNS
	}
	byAction := byNS[ns]
	if byAction == nil {
		byAction = make(map[string]bool)
		byNS[ns] = byAction
	}
	for _, action := range actions {
		byAction[action] = true
	}
}

func (a *StaticAuthorizer) allowed(principals PrincipalSet, ns, action string) bool {
	for _, principal := range principals {
		byNS := a.grants[principal]
		if byNS == nil {
			continue
		}
		if byNS[ns][action] || byNS["*"][action] {
			return true
		}
	}
	return false
}

// CanListIndexes implements Authorizer.
func (a *StaticAuthorizer) CanListIndexes(principals PrincipalSet, ns string) error {
	if a.allowed(principals, ns, ActionListIndexes) {
		return nil
	}
	return fmt.Errorf("principals %s may not list indexes on %s: %w",
		principals, ns, domain.ErrNotAuthorized)
}

// CanModify implements Authorizer.
func (a *StaticAuthorizer) CanModify(principals PrincipalSet, ns string) error {
	if a.allowed(principals, ns, ActionModify) {
		return nil
	}
	return fmt.Errorf("principals %s may not modify %s: %w",
		principals, ns, domain.ErrNotAuthorized)
}
