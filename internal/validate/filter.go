package validate

import (
	"fmt"

	"github.com/kailas-cloud/viewdex/internal/domain"
	"github.com/kailas-cloud/viewdex/internal/domain/registry"
	"github.com/kailas-cloud/viewdex/internal/domain/registry/column"
	"github.com/kailas-cloud/viewdex/internal/domain/search/filter"
)

// Filter checks every comparison of the tree against the entity and the allow-list.
func Filter(e registry.Entity, n filter.Node, allowed Allowed) error {
	switch t := n.(type) {
	case filter.Group:
		for _, ch := range t.Children {
			if err := Filter(e, ch, allowed); err != nil {
				return err
			}
		}
		return nil
	case filter.Not:
		return Filter(e, t.Child, allowed)
	case filter.Comparison:
		return comparison(e, t, allowed)
	case nil:
		return domain.NewMalformed("$", "filter is missing")
	}
	return domain.NewMalformed("$", fmt.Sprintf("unsupported node %T", n))
}

func comparison(e registry.Entity, c filter.Comparison, allowed Allowed) error {
	if !allowed.Has(c.Column) {
		return domain.NewColumnViolation(domain.ErrColumnNotAllowed, e.Name(), c.Column, "")
	}
	col, ok := e.Column(c.Column)
	if !ok {
		return domain.NewColumnViolation(domain.ErrColumnNotFound, e.Name(), c.Column, "")
	}
	if !col.Filterable() {
		return domain.NewColumnViolation(domain.ErrColumnNotAllowed, e.Name(), c.Column, "column is not filterable")
	}
	if err := operatorFits(col, c.Operator); err != nil {
		return domain.NewOperatorMismatch(e.Name(), c.Column, string(c.Operator), err.Error())
	}
	return valuesFit(e, col, c)
}

func operatorFits(col column.Column, op filter.Operator) error {
	switch {
	case op.Pattern() && col.Type() != column.String:
		return fmt.Errorf("%s applies to string columns only, column is %s", op, col.Type())
	case op.Ordering() && !col.Type().Orderable():
		return fmt.Errorf("%s needs an orderable column, column is %s", op, col.Type())
	}
	return nil
}

// valuesFit checks every value, including each list element, against the column type.
func valuesFit(e registry.Entity, col column.Column, c filter.Comparison) error {
	want := c.Operator.Arity()
	switch {
	case want == filter.ArityNone && !c.Value.IsNone():
		return domain.NewMalformed("", fmt.Sprintf("%s takes no value", c.Operator))
	case want == filter.ArityScalar && (c.Value.IsList() || c.Value.IsNone()):
		return domain.NewMalformed("", fmt.Sprintf("%s requires a scalar", c.Operator))
	case want == filter.ArityList && !c.Value.IsList():
		return domain.NewMalformed("", fmt.Sprintf("%s requires an array", c.Operator))
	case want == filter.ArityPair && (!c.Value.IsList() || c.Value.Len() != 2):
		return domain.NewMalformed("", fmt.Sprintf("%s requires exactly 2 values", c.Operator))
	}

	for i, v := range c.Value.Items() {
		if _, err := col.Type().Coerce(v); err != nil {
			reason := err.Error()
			if c.Value.IsList() {
				reason = fmt.Sprintf("value[%d]: %s", i, reason)
			}
			return domain.NewOperatorMismatch(e.Name(), c.Column, string(c.Operator), reason)
		}
	}
	return nil
}
