// Package access resolves which columns a caller may reference, from a casbin
// RBAC policy keyed on entity and column names.
package access

import (
	_ "embed"
	"fmt"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	fileadapter "github.com/casbin/casbin/v3/persist/file-adapter"

	"github.com/kailas-cloud/viewdex/internal/domain/registry"
	"github.com/kailas-cloud/viewdex/internal/validate"
)

// ActionRead is the only action the search core enforces.
const ActionRead = "read"

//go:embed model.conf
var modelText string

// Subject is the caller as access control sees it: an identity and its roles.
type Subject struct {
	ID    string
	Roles []string
}

// Policy evaluates the column policy. It is read-only after construction.
type Policy struct {
	enforcer     *casbin.Enforcer
	defaultRoles []string
}

// Load reads the policy CSV at path. defaultRoles apply to every subject.
func Load(path string, defaultRoles ...string) (*Policy, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("parse access model: %w", err)
	}
	e, err := casbin.NewEnforcer(m, fileadapter.NewAdapter(path))
	if err != nil {
		return nil, fmt.Errorf("load access policy %s: %w", path, err)
	}
	return &Policy{enforcer: e, defaultRoles: defaultRoles}, nil
}

// FromRules builds a policy in memory. Each rule is {sub, ent, col, act, eft};
// each grouping is {member, role}.
func FromRules(rules, groupings [][]string, defaultRoles ...string) (*Policy, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("parse access model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}
	if len(rules) > 0 {
		if _, err := e.AddPolicies(rules); err != nil {
			return nil, fmt.Errorf("add rules: %w", err)
		}
	}
	if len(groupings) > 0 {
		if _, err := e.AddGroupingPolicies(groupings); err != nil {
			return nil, fmt.Errorf("add groupings: %w", err)
		}
	}
	return &Policy{enforcer: e, defaultRoles: defaultRoles}, nil
}

// AllowedColumns returns the columns of e that s may reference.
func (p *Policy) AllowedColumns(s Subject, e registry.Entity) (validate.Allowed, error) {
	subs := p.subjects(s)
	var names []string
	for _, c := range e.Columns() {
		ok, err := p.any(subs, e.Name(), c.Name())
		if err != nil {
			return validate.Allowed{}, err
		}
		if ok {
			names = append(names, c.Name())
		}
	}
	return validate.AllowColumns(names...), nil
}

// Visible returns the entities of reg where s may see at least one column.
func (p *Policy) Visible(s Subject, reg *registry.Registry) ([]registry.Entity, error) {
	var out []registry.Entity
	for _, e := range reg.Entities() {
		allowed, err := p.AllowedColumns(s, e)
		if err != nil {
			return nil, err
		}
		if len(allowed.Names()) > 0 {
			out = append(out, e)
		}
	}
	return out, nil
}

func (p *Policy) any(subs []string, entity, col string) (bool, error) {
	for _, sub := range subs {
		ok, err := p.enforcer.Enforce(sub, entity, col, ActionRead)
		if err != nil {
			return false, fmt.Errorf("enforce %s/%s: %w", entity, col, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// subjects lists the identity first, then its roles, then the defaults, without repeats.
func (p *Policy) subjects(s Subject) []string {
	seen := make(map[string]struct{}, 1+len(s.Roles)+len(p.defaultRoles))
	out := make([]string, 0, 1+len(s.Roles)+len(p.defaultRoles))
	add := func(v string) {
		if v == "" {
			return
		}
		if _, dup := seen[v]; dup {
			return
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	add(s.ID)
	for _, r := range s.Roles {
		add(r)
	}
	for _, r := range p.defaultRoles {
		add(r)
	}
	return out
}
