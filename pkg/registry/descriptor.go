package registry

import (
	"context"
	"strings"

	"github.com/aretw0/paneltree/pkg/domain"
)

// Descriptor is a handler that can render values of some structural types.
type Descriptor interface {
	ID() string
	// Matches reports whether the handler accepts values of type t.
	Matches(t domain.Type) bool
	// Specificity orders the stack: higher comes first.
	Specificity() int
	// Initialize builds the initial config for input. A nil config with a
	// nil error means the handler has no initializer.
	Initialize(ctx context.Context, input domain.Expression, frame domain.Frame) (any, error)
}

// Absorber is implemented by handlers that keep their binding across
// incompatible input changes.
type Absorber interface {
	Absorbing() bool
}

// Named is implemented by handlers with a custom menu label.
type Named interface {
	DisplayName() string
}

// IsAbsorbing reports whether d absorbs input type changes.
func IsAbsorbing(d Descriptor) bool {
	a, ok := d.(Absorber)
	return ok && a.Absorbing()
}

// DisplayName returns the menu label of d: its custom name, or the last
// dot-separated segment of its id.
func DisplayName(d Descriptor) string {
	if n, ok := d.(Named); ok && n.DisplayName() != "" {
		return n.DisplayName()
	}
	id := d.ID()
	if i := strings.LastIndex(id, "."); i >= 0 {
		return id[i+1:]
	}
	return id
}

// Matcher is a structural type predicate.
type Matcher func(t domain.Type) bool

// InitFunc builds the initial config of a handler.
type InitFunc func(ctx context.Context, input domain.Expression, frame domain.Frame) (any, error)

// Handler is the default Descriptor implementation.
type Handler struct {
	id          string
	name        string
	matcher     Matcher
	specificity int
	init        InitFunc
	absorbing   bool
}

// Option configures a Handler.
type Option func(*Handler)

// WithSpecificity sets the stack ordering weight.
func WithSpecificity(s int) Option {
	return func(h *Handler) { h.specificity = s }
}

// WithInitializer sets the config initializer.
func WithInitializer(fn InitFunc) Option {
	return func(h *Handler) { h.init = fn }
}

// WithAbsorbing marks the handler as absorbing.
func WithAbsorbing() Option {
	return func(h *Handler) { h.absorbing = true }
}

// WithDisplayName overrides the menu label.
func WithDisplayName(name string) Option {
	return func(h *Handler) { h.name = name }
}

// New creates a handler. A nil matcher matches every non-void type.
func New(id string, matcher Matcher, opts ...Option) *Handler {
	h := &Handler{id: id, matcher: matcher}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) ID() string          { return h.id }
func (h *Handler) Specificity() int    { return h.specificity }
func (h *Handler) Absorbing() bool     { return h.absorbing }
func (h *Handler) DisplayName() string { return h.name }

func (h *Handler) Matches(t domain.Type) bool {
	if t == nil || t.IsVoid() {
		return false
	}
	if h.matcher == nil {
		return true
	}
	return h.matcher(t)
}

func (h *Handler) Initialize(ctx context.Context, input domain.Expression, frame domain.Frame) (any, error) {
	if h.init == nil {
		return nil, nil
	}
	return h.init(ctx, input, frame)
}
