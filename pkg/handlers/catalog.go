package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/paneltree/pkg/domain"
	"github.com/aretw0/paneltree/pkg/registry"
	"github.com/aretw0/paneltree/pkg/types"
)

// Catalog is a set of handlers declared as data.
//
//	handlers:
//	  - id: run.Table
//	    input_type: "[{loss: number}]"
//	    display_name: Table
//	    config:
//	      pageSize: 20
//	    config_schema:
//	      pageSize: number
type Catalog struct {
	Handlers []CatalogEntry `yaml:"handlers" validate:"dive"`
}

// CatalogEntry declares one handler.
type CatalogEntry struct {
	ID          string            `yaml:"id" validate:"required"`
	InputType   string            `yaml:"input_type" validate:"required"`
	DisplayName string            `yaml:"display_name"`
	Specificity *int              `yaml:"specificity" validate:"omitempty,min=0"`
	Absorbing   bool              `yaml:"absorbing"`
	Config      map[string]any    `yaml:"config"`
	Schema      map[string]string `yaml:"config_schema"`
}

// LoadCatalog reads and validates a YAML catalog.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := validator.New().Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}

	seen := make(map[string]bool, len(c.Handlers))
	for _, h := range c.Handlers {
		if seen[h.ID] {
			return nil, fmt.Errorf("invalid catalog: %w: %s", domain.ErrDuplicateHandler, h.ID)
		}
		seen[h.ID] = true
	}
	return &c, nil
}

// LoadCatalogFile reads a catalog from disk.
func LoadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()
	return LoadCatalog(f)
}

// Descriptors builds the handlers of the catalog. Input types are parsed and
// static configs are checked against their schema.
func (c *Catalog) Descriptors(o domain.Oracle) ([]registry.Descriptor, error) {
	out := make([]registry.Descriptor, 0, len(c.Handlers))
	for _, h := range c.Handlers {
		d, err := h.descriptor(o)
		if err != nil {
			return nil, fmt.Errorf("handler %q: %w", h.ID, err)
		}
		out = append(out, d)
	}
	return out, nil
}

func (h CatalogEntry) descriptor(o domain.Oracle) (registry.Descriptor, error) {
	pattern, err := types.ParseType(h.InputType)
	if err != nil {
		return nil, err
	}
	if h.Schema != nil {
		schema, err := types.ParseTypeMap(h.Schema)
		if err != nil {
			return nil, fmt.Errorf("config_schema: %w", err)
		}
		if err := types.Validate(schema, h.Config); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	opts := []registry.Option{registry.WithDisplayName(h.DisplayName)}
	if h.Specificity != nil {
		opts = append(opts, registry.WithSpecificity(*h.Specificity))
	}
	if h.Absorbing {
		opts = append(opts, registry.WithAbsorbing())
	}
	if h.Config != nil {
		static := h.Config
		opts = append(opts, registry.WithInitializer(func(context.Context, domain.Expression, domain.Frame) (any, error) {
			cfg := make(map[string]any, len(static))
			for k, v := range static {
				cfg[k] = v
			}
			return cfg, nil
		}))
	}
	return ForType(h.ID, pattern, o, opts...), nil
}

// Register adds the catalog handlers to r.
func (c *Catalog) Register(r *registry.Registry, o domain.Oracle) error {
	ds, err := c.Descriptors(o)
	if err != nil {
		return err
	}
	for _, d := range ds {
		if err := r.Register(d); err != nil {
			return err
		}
	}
	return nil
}
