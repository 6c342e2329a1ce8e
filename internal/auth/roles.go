package auth

import "strings"

// RoleBindings maps identities to roles. Exact email bindings win over domain
// bindings, which win over the defaults.
type RoleBindings struct {
	Emails   map[string][]string
	Domains  map[string][]string
	Defaults []string
}

// RoleBinder resolves roles for signed-in users.
type RoleBinder struct {
	emails   map[string][]string
	domains  map[string][]string
	defaults []string
}

// NewRoleBinder normalizes keys to lower case.
func NewRoleBinder(b RoleBindings) *RoleBinder {
	rb := &RoleBinder{
		emails:   make(map[string][]string, len(b.Emails)),
		domains:  make(map[string][]string, len(b.Domains)),
		defaults: b.Defaults,
	}
	for k, v := range b.Emails {
		rb.emails[strings.ToLower(strings.TrimSpace(k))] = v
	}
	for k, v := range b.Domains {
		rb.domains[strings.ToLower(strings.TrimPrefix(strings.TrimSpace(k), "@"))] = v
	}
	return rb
}

// Roles returns a copy of the roles bound to email.
func (rb *RoleBinder) Roles(email string) []string {
	email = strings.ToLower(strings.TrimSpace(email))
	if roles, ok := rb.emails[email]; ok {
		return clone(roles)
	}
	if _, domain, ok := strings.Cut(email, "@"); ok {
		if roles, ok := rb.domains[domain]; ok {
			return clone(roles)
		}
	}
	return clone(rb.defaults)
}

func clone(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
