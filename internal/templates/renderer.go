package templates

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"notify-gateway/internal/db"
	"notify-gateway/internal/models"
)

var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrTemplateInactive = errors.New("template inactive")
)

// Store loads templates by id. *db.DB satisfies it.
type Store interface {
	GetTemplate(ctx context.Context, id string) (*models.Template, error)
}

// Rendered is a template with its placeholders substituted.
type Rendered struct {
	Subject string
	Body    string
}

type Renderer struct {
	store Store
}

func NewRenderer(store Store) *Renderer {
	return &Renderer{store: store}
}

// Render loads template id and substitutes {{key}} placeholders from data.
func (r *Renderer) Render(ctx context.Context, id string, data map[string]any) (*Rendered, error) {
	tmpl, err := r.store.GetTemplate(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
		}
		return nil, fmt.Errorf("failed to load template %s: %w", id, err)
	}
	if !tmpl.IsActive {
		return nil, fmt.Errorf("%w: %s", ErrTemplateInactive, id)
	}
	return &Rendered{
		Subject: Substitute(tmpl.Subject, data),
		Body:    Substitute(tmpl.Body, data),
	}, nil
}

// Substitute replaces each {{key}} in text with the formatted value of data[key].
// Placeholders without a matching key are left as is.
func Substitute(text string, data map[string]any) string {
	if len(data) == 0 || !strings.Contains(text, "{{") {
		return text
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, "{{"+k+"}}", fmt.Sprintf("%v", data[k]))
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
