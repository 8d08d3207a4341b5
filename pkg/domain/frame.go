package domain

// InputVar is the implicit binding every node adds for its descendants.
const InputVar = "input"

// Binding is a single named variable.
type Binding struct {
	Name string
	Expr Expression
}

// Frame is an ordered mapping of variable names to expressions.
// Frames are values: every modifier returns a new Frame and never touches
// the receiver, so a child can never mutate a frame it received.
// The zero value is an empty frame.
type Frame struct {
	names []string
	exprs map[string]Expression
}

// NewFrame builds a frame from bindings. Later duplicates replace earlier ones.
func NewFrame(bindings ...Binding) Frame {
	f := Frame{}
	for _, b := range bindings {
		f = f.With(b.Name, b.Expr)
	}
	return f
}

// Len returns the number of bindings.
func (f Frame) Len() int { return len(f.names) }

// Get returns the expression bound to name.
func (f Frame) Get(name string) (Expression, bool) {
	e, ok := f.exprs[name]
	return e, ok
}

// Has reports whether name is bound.
func (f Frame) Has(name string) bool {
	_, ok := f.exprs[name]
	return ok
}

// Names returns the bound names in binding order.
func (f Frame) Names() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// Bindings returns the bindings in order.
func (f Frame) Bindings() []Binding {
	out := make([]Binding, 0, len(f.names))
	for _, n := range f.names {
		out = append(out, Binding{Name: n, Expr: f.exprs[n]})
	}
	return out
}

func (f Frame) clone(extra int) Frame {
	c := Frame{
		names: make([]string, len(f.names), len(f.names)+extra),
		exprs: make(map[string]Expression, len(f.names)+extra),
	}
	copy(c.names, f.names)
	for k, v := range f.exprs {
		c.exprs[k] = v
	}
	return c
}

// With binds name to expr. An existing binding keeps its position.
func (f Frame) With(name string, expr Expression) Frame {
	c := f.clone(1)
	if _, ok := c.exprs[name]; !ok {
		c.names = append(c.names, name)
	}
	c.exprs[name] = expr
	return c
}

// Without removes name. Removing an unbound name returns an equal frame.
func (f Frame) Without(name string) Frame {
	c := f.clone(0)
	if _, ok := c.exprs[name]; !ok {
		return c
	}
	delete(c.exprs, name)
	for i, n := range c.names {
		if n == name {
			c.names = append(c.names[:i], c.names[i+1:]...)
			break
		}
	}
	return c
}

// Rename moves the binding of oldName to newName, keeping its position.
// If oldName is unbound the frame is returned unchanged.
func (f Frame) Rename(oldName, newName string) Frame {
	if !f.Has(oldName) || oldName == newName {
		return f.clone(0)
	}
	c := Frame{
		names: make([]string, 0, len(f.names)),
		exprs: make(map[string]Expression, len(f.names)),
	}
	for _, n := range f.names {
		if n == newName {
			continue
		}
		key := n
		if n == oldName {
			key = newName
		}
		c.names = append(c.names, key)
		c.exprs[key] = f.exprs[n]
	}
	return c
}

// Extend returns f overlaid with the bindings of other.
func (f Frame) Extend(other Frame) Frame {
	c := f.clone(other.Len())
	for _, n := range other.names {
		if _, ok := c.exprs[n]; !ok {
			c.names = append(c.names, n)
		}
		c.exprs[n] = other.exprs[n]
	}
	return c
}

// Equal compares names, order and serialized expressions.
func (f Frame) Equal(other Frame) bool {
	if len(f.names) != len(other.names) {
		return false
	}
	for i, n := range f.names {
		if other.names[i] != n {
			return false
		}
		if exprString(f.exprs[n]) != exprString(other.exprs[n]) {
			return false
		}
	}
	return true
}

func exprString(e Expression) string {
	if e == nil {
		return ""
	}
	return e.String()
}
