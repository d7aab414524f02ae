package template

import (
	"context"
	"fmt"

	"github.com/maauso/mediaedit-api/internal/edit"
)

// Resolver exposes the template catalog (built-ins followed by stored
// templates) and merges template defaults into edit specifications.
type Resolver struct {
	store Store
}

// NewResolver creates a Resolver over store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Defaults returns the built-in templates.
func (r *Resolver) Defaults() []Template {
	return Defaults()
}

// List returns the built-in templates followed by the stored ones.
func (r *Resolver) List(ctx context.Context) ([]Template, error) {
	stored, err := r.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return append(Defaults(), stored...), nil
}

// Create stores a new user template. Templates with the same name
// get the same id and coexist; lookups return the first match.
func (r *Resolver) Create(ctx context.Context, name string, config Config) (Template, error) {
	if name == "" {
		return Template{}, fmt.Errorf("%w: name is required", ErrInvalidTemplate)
	}
	t := Template{
		ID:     CustomID(name),
		Name:   name,
		Config: config.clone(),
	}
	if err := r.store.Add(ctx, t); err != nil {
		return Template{}, fmt.Errorf("save template: %w", err)
	}
	return t, nil
}

// Find returns the first template with the given id.
func (r *Resolver) Find(ctx context.Context, id string) (Template, bool, error) {
	all, err := r.List(ctx)
	if err != nil {
		return Template{}, false, err
	}
	for _, t := range all {
		if t.ID == id {
			return t, true, nil
		}
	}
	return Template{}, false, nil
}

// Resolve merges the defaults of template id for kind underneath edits.
// Keys present in edits always win. An empty or unknown id returns edits
// unchanged.
func (r *Resolver) Resolve(ctx context.Context, edits edit.Spec, id string, kind edit.Kind) (edit.Spec, error) {
	if id == "" {
		return edits, nil
	}
	t, ok, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return edits, nil
	}
	return edit.Merge(t.Config.For(kind), edits), nil
}
