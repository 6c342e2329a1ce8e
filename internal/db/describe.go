package db

import (
	sq "github.com/Masterminds/squirrel"
)

// DescribeQuery builds the information_schema lookup for a view's columns.
func DescribeQuery(view string, ph sq.PlaceholderFormat) (string, []any, error) {
	schema, name := SplitView(view)
	where := sq.Eq{"table_name": name}
	if schema != "" {
		where["table_schema"] = schema
	}
	return sq.Select("column_name", "data_type", "ordinal_position").
		From("information_schema.columns").
		Where(where).
		OrderBy("ordinal_position").
		PlaceholderFormat(ph).
		ToSql()
}
