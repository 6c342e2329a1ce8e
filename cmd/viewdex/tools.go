package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/kailas-cloud/viewdex/internal/access"
	"github.com/kailas-cloud/viewdex/internal/config"
	"github.com/kailas-cloud/viewdex/internal/typegen"
)

type compiledStatement struct {
	SQL             string `json:"sql"`
	Params          []any  `json:"params"`
	CountSQL        string `json:"countSql,omitempty"`
	CountParams     []any  `json:"countParams,omitempty"`
	PageSizeApplied int    `json:"pageSizeApplied"`
	MaxPageSize     int    `json:"maxPageSize"`
	MappedView      string `json:"mappedView"`
}

type entityListing struct {
	Entity      string          `json:"entity"`
	View        string          `json:"view"`
	Description string          `json:"description,omitempty"`
	MaxPageSize int             `json:"maxPageSize"`
	DefaultSort string          `json:"defaultSort"`
	Columns     []columnListing `json:"columns"`
}

type columnListing struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Filterable bool   `json:"filterable"`
	Sortable   bool   `json:"sortable"`
	Selectable bool   `json:"selectable"`
}

// compile prints the SQL a search request compiles to.
func compile(
	ctx context.Context, cfg config.Config, logger *zap.Logger,
	subject access.Subject, path string, out io.Writer, in io.Reader,
) error {
	body, err := readInput(path, in)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.search.Compile(ctx, subject, body)
	if err != nil {
		return err
	}
	return printJSON(out, compiledStatement{
		SQL:             p.SQL,
		Params:          p.Params,
		CountSQL:        p.CountSQL,
		CountParams:     p.CountParams,
		PageSizeApplied: p.PageSizeApplied,
		MaxPageSize:     p.MaxPageSize,
		MappedView:      p.MappedView,
	})
}

// listEntities prints the entities and columns visible to subject.
func listEntities(ctx context.Context, cfg config.Config, logger *zap.Logger, subject access.Subject, out io.Writer) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	entities, err := a.search.Entities(subject)
	if err != nil {
		return err
	}
	listing := make([]entityListing, 0, len(entities))
	for _, e := range entities {
		_, cols, err := a.search.AllowedColumns(subject, e.Name())
		if err != nil {
			return err
		}
		item := entityListing{
			Entity:      e.Name(),
			View:        e.View(),
			Description: e.Description(),
			MaxPageSize: a.search.MaxPageSize(e),
			DefaultSort: e.DefaultSort().Name(),
			Columns:     make([]columnListing, 0, len(cols)),
		}
		for _, c := range cols {
			item.Columns = append(item.Columns, columnListing{
				Name:       c.Name(),
				Type:       string(c.Type()),
				Filterable: c.Filterable(),
				Sortable:   c.Sortable(),
				Selectable: c.Selectable(),
			})
		}
		listing = append(listing, item)
	}
	return printJSON(out, listing)
}

// writeTypes writes TypeScript declarations for every registered entity.
func writeTypes(ctx context.Context, cfg config.Config, logger *zap.Logger, path string, stdout io.Writer) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if path == "" {
		return typegen.Generate(stdout, a.reg.Entities())
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := typegen.Generate(f, a.reg.Entities()); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output file: %w", err)
	}
	logger.Info("TypeScript types written", zap.String("path", path), zap.Int("entities", a.reg.Len()))
	return nil
}

func readInput(path string, in io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(in)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read request: %w", err)
	}
	return data, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
