// Package typegen renders TypeScript declarations for the entities of a registry.
package typegen

import (
	"embed"
	"fmt"
	"io"
	"regexp"
	"strings"
	"text/template"

	"github.com/kailas-cloud/viewdex/internal/domain/registry"
	"github.com/kailas-cloud/viewdex/internal/domain/registry/column"
	"github.com/kailas-cloud/viewdex/internal/domain/search/filter"
)

//go:embed types.ts.tmpl
var templates embed.FS

var tmpl = template.Must(template.New("types.ts.tmpl").Funcs(template.FuncMap{
	"union": union,
}).ParseFS(templates, "types.ts.tmpl"))

type columnData struct {
	Name   string
	TSType string
}

type entityData struct {
	Name        string
	Type        string
	View        string
	Description string
	Columns     []columnData
	Filterable  []string
	Sortable    []string
}

type fileData struct {
	Operators []filter.Operator
	Entities  []entityData
}

// Generate writes TypeScript declarations for entities to w.
// Only selectable columns become interface fields.
func Generate(w io.Writer, entities []registry.Entity) error {
	data := fileData{Operators: filter.Operators()}
	seen := make(map[string]string, len(entities))
	for _, e := range entities {
		ed := entityData{
			Name:        e.Name(),
			Type:        pascal(e.Name()),
			View:        e.View(),
			Description: strings.ReplaceAll(e.Description(), "*/", "* /"),
		}
		if prev, dup := seen[ed.Type]; dup {
			return fmt.Errorf("entities %q and %q both map to type %s", prev, e.Name(), ed.Type)
		}
		seen[ed.Type] = e.Name()

		for _, c := range e.Columns() {
			if c.Selectable() {
				ed.Columns = append(ed.Columns, columnData{Name: c.Name(), TSType: tsType(c.Type())})
			}
			if c.Filterable() {
				ed.Filterable = append(ed.Filterable, c.Name())
			}
			if c.Sortable() {
				ed.Sortable = append(ed.Sortable, c.Name())
			}
		}
		data.Entities = append(data.Entities, ed)
	}
	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("render typescript: %w", err)
	}
	return nil
}

// tsType maps a semantic column type to the TypeScript type of its JSON value.
// Dates and timestamps arrive as strings.
func tsType(t column.Type) string {
	switch t {
	case column.Integer, column.Decimal:
		return "number"
	case column.Boolean:
		return "boolean"
	default:
		return "string"
	}
}

func union(names []string) string {
	if len(names) == 0 {
		return "never"
	}
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = `"` + n + `"`
	}
	return strings.Join(quoted, " | ")
}

var wordSep = regexp.MustCompile(`[^0-9A-Za-z]+`)

// pascal turns an entity name into a TypeScript type name. Inner capitals are kept.
func pascal(name string) string {
	var b strings.Builder
	for _, part := range wordSep.Split(name, -1) {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	out := b.String()
	if out == "" {
		return "Entity"
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = "E" + out
	}
	return out
}
