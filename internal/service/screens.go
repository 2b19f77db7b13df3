package service

import (
	"context"
	"fmt"
	"strings"

	"cleantech-console/internal/backend"
	"cleantech-console/internal/domain"
	"cleantech-console/internal/export"
	"cleantech-console/internal/listing"

	"go.uber.org/zap"
)

// Scope selects which rows an export covers.
type Scope string

const (
	ScopePage      Scope = "page"
	ScopeSelection Scope = "selection"
	ScopeAll       Scope = "all"
)

func ParseScope(s string) (Scope, error) {
	switch sc := Scope(strings.ToLower(strings.TrimSpace(s))); sc {
	case ScopePage, ScopeSelection, ScopeAll:
		return sc, nil
	case "":
		return ScopePage, nil
	default:
		return "", fmt.Errorf("unknown export scope %q", s)
	}
}

// Screen is a live list screen bound to its backend resource.
type Screen interface {
	listing.Lister
	Title() string
	Delete(ctx context.Context, id int) error
	BulkDelete(ctx context.Context, ids []int) error
	Restore(ctx context.Context, id int) error
	ForceDelete(ctx context.Context, id int) error
	Export(ctx context.Context, scope Scope) (export.Table, error)
}

// Definition describes a screen independently of any session.
type Definition interface {
	Name() string
	Title() string
	Path() string
	Open(c *backend.Client, pageSize int, logger *zap.Logger) Screen
}

type definition[T domain.Entity] struct {
	name    string
	title   string
	path    string
	columns []export.Column[T]
}

// Define binds the list screen name to the backend resource at path. The
// columns drive every export of the screen.
func Define[T domain.Entity](name, title, path string, columns ...export.Column[T]) Definition {
	return &definition[T]{name: name, title: title, path: path, columns: columns}
}

func (d *definition[T]) Name() string  { return d.name }
func (d *definition[T]) Title() string { return d.title }
func (d *definition[T]) Path() string  { return d.path }

func (d *definition[T]) Open(c *backend.Client, pageSize int, logger *zap.Logger) Screen {
	res := backend.NewResource[T](c, d.path)
	return &boundScreen[T]{
		Screen: listing.NewScreen[T](d.name, res.Fetch, pageSize, logger),
		res:    res,
		def:    d,
	}
}

type boundScreen[T domain.Entity] struct {
	*listing.Screen[T]
	res *backend.Resource[T]
	def *definition[T]
}

func (b *boundScreen[T]) Title() string { return b.def.title }

func (b *boundScreen[T]) Delete(ctx context.Context, id int) error { return b.res.Delete(ctx, id) }

func (b *boundScreen[T]) BulkDelete(ctx context.Context, ids []int) error {
	return b.res.BulkDelete(ctx, ids)
}

func (b *boundScreen[T]) Restore(ctx context.Context, id int) error { return b.res.Restore(ctx, id) }

func (b *boundScreen[T]) ForceDelete(ctx context.Context, id int) error {
	return b.res.ForceDelete(ctx, id)
}

func (b *boundScreen[T]) Export(ctx context.Context, scope Scope) (export.Table, error) {
	var items []T
	switch scope {
	case ScopeSelection:
		onPage := map[int]T{}
		for _, it := range b.Items() {
			onPage[it.EntityID()] = it
		}
		for _, id := range b.SelectedIDs() {
			if it, ok := onPage[id]; ok {
				items = append(items, it)
				continue
			}
			it, err := b.res.Get(ctx, id)
			if err != nil {
				return export.Table{}, fmt.Errorf("export %s #%d: %w", b.def.name, id, err)
			}
			items = append(items, it)
		}
	case ScopeAll:
		all, err := b.res.All(ctx, b.Query(), b.Trash())
		if err != nil {
			return export.Table{}, fmt.Errorf("export %s: %w", b.def.name, err)
		}
		items = all
	default:
		items = b.Items()
	}
	return export.BuildTable(b.def.title, b.def.columns, items), nil
}
