// Package catalog builds the Registry from the views file, discovering
// undeclared columns through information_schema.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/viewdex/internal/db"
	"github.com/kailas-cloud/viewdex/internal/domain/registry"
	"github.com/kailas-cloud/viewdex/internal/domain/registry/column"
)

// discoveryConcurrency bounds parallel information_schema lookups.
const discoveryConcurrency = 4

// ErrDiscoveryDisabled is returned when an entity omits columns and no describer is wired.
var ErrDiscoveryDisabled = errors.New("column discovery is disabled")

// Loader turns a views file into a Registry.
type Loader struct {
	describer db.Describer
	logger    *zap.Logger
}

// New creates a Loader. A nil describer disables discovery.
func New(describer db.Describer, logger *zap.Logger) *Loader {
	return &Loader{describer: describer, logger: logger}
}

// ReadFile parses a views file from disk.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read views %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses views file contents.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse views: %w", err)
	}
	if len(f.Entities) == 0 {
		return nil, fmt.Errorf("views file declares no entities")
	}
	return &f, nil
}

// Load reads path and builds the Registry.
func (l *Loader) Load(ctx context.Context, path string) (*registry.Registry, error) {
	f, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return l.Build(ctx, f)
}

// Build constructs every entity, discovering columns where needed, and
// validates the result as a whole.
func (l *Loader) Build(ctx context.Context, f *File) (*registry.Registry, error) {
	names := make([]string, 0, len(f.Entities))
	for name := range f.Entities {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		mu       sync.Mutex
		entities = make([]registry.Entity, 0, len(names))
		problems []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(discoveryConcurrency)
	for _, name := range names {
		dto := f.Entities[name]
		g.Go(func() error {
			e, err := l.entity(gctx, name, dto)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				problems = append(problems, fmt.Errorf("entity %q: %w", name, err))
				return nil
			}
			entities = append(entities, e)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build catalog: %w", err)
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("invalid views: %w", errors.Join(problems...))
	}

	reg, err := registry.New(entities...)
	if err != nil {
		return nil, err
	}
	l.logger.Info("Catalog loaded", zap.Int("entities", reg.Len()))
	return reg, nil
}

func (l *Loader) entity(ctx context.Context, name string, dto EntityDTO) (registry.Entity, error) {
	var (
		cols []column.Column
		err  error
	)
	if len(dto.Columns) > 0 {
		cols, err = declared(dto.Columns)
	} else {
		cols, err = l.discover(ctx, name, dto)
	}
	if err != nil {
		return registry.Entity{}, err
	}

	return registry.NewEntity(name, dto.View, cols,
		registry.WithMaxPageSize(dto.MaxPageSize),
		registry.WithDefaultSort(dto.DefaultSort),
		registry.WithDescription(dto.Description),
	)
}

func declared(dtos []ColumnDTO) ([]column.Column, error) {
	cols := make([]column.Column, 0, len(dtos))
	for i, d := range dtos {
		t, err := column.ParseType(d.Type)
		if err != nil {
			return nil, fmt.Errorf("columns[%d] %q: %w", i, d.Name, err)
		}
		c, err := column.New(d.Name, t, column.Flags{
			Filterable: flag(d.Filterable),
			Sortable:   flag(d.Sortable),
			Selectable: flag(d.Selectable),
		})
		if err != nil {
			return nil, fmt.Errorf("columns[%d]: %w", i, err)
		}
		cols = append(cols, c)
	}
	return cols, nil
}

func (l *Loader) discover(ctx context.Context, name string, dto EntityDTO) ([]column.Column, error) {
	if l.describer == nil {
		return nil, ErrDiscoveryDisabled
	}
	infos, err := l.describer.DescribeView(ctx, dto.View)
	if err != nil {
		return nil, err
	}

	exclude := make(map[string]struct{}, len(dto.Exclude))
	for _, x := range dto.Exclude {
		exclude[column.Key(x)] = struct{}{}
	}

	cols := make([]column.Column, 0, len(infos))
	for _, info := range infos {
		if _, skip := exclude[column.Key(info.Name)]; skip {
			continue
		}
		t, ok := column.FromSQLType(info.DataType)
		if !ok {
			l.logger.Warn("Skipping column with unsupported type",
				zap.String("entity", name),
				zap.String("column", info.Name),
				zap.String("data_type", info.DataType),
			)
			continue
		}
		c, err := column.New(info.Name, t, column.AllFlags)
		if err != nil {
			l.logger.Warn("Skipping column with unsupported name",
				zap.String("entity", name),
				zap.String("column", info.Name),
				zap.Error(err),
			)
			continue
		}
		cols = append(cols, c)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("view %s has no usable columns", strings.TrimSpace(dto.View))
	}
	return cols, nil
}
