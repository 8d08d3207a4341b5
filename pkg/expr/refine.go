package expr

import (
	"context"
	"fmt"

	"github.com/aretw0/paneltree/pkg/domain"
	"github.com/aretw0/paneltree/pkg/types"
)

// Refiner types expressions against a frame using an Oracle.
// Variables take the type of the expression they are bound to; calls are
// typed by their operation. Unknown operations keep their current type.
type Refiner struct {
	oracle domain.Oracle
}

// NewRefiner creates a refiner. A nil oracle uses types.Oracle.
func NewRefiner(o domain.Oracle) *Refiner {
	if o == nil {
		o = types.Oracle{}
	}
	return &Refiner{oracle: o}
}

// Refine implements domain.Refiner.
func (r *Refiner) Refine(ctx context.Context, e domain.Expression, frame domain.Frame) (domain.Expression, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if domain.IsVoid(e) {
		return e, nil
	}
	return r.refine(e, frame)
}

func (r *Refiner) refine(e domain.Expression, frame domain.Frame) (domain.Expression, error) {
	switch n := e.(type) {
	case *Const:
		return n, nil
	case *Var:
		bound, ok := frame.Get(n.name)
		if !ok || bound == nil {
			if types.KindOf(n.typ) == types.KindAny {
				return nil, fmt.Errorf("%w: %s", domain.ErrUnboundVariable, n.name)
			}
			return n, nil
		}
		return &Var{typ: bound.Type(), name: n.name}, nil
	case *Call:
		args := make([]domain.Expression, len(n.args))
		for i, a := range n.args {
			ra, err := r.refine(a, frame)
			if err != nil {
				return nil, err
			}
			args[i] = ra
		}
		out := n.withArgs(args)
		def, ok := lookupOp(n.op)
		if !ok || def.infer == nil {
			return out, nil
		}
		t, err := def.infer(r.oracle, args)
		if err != nil {
			return nil, err
		}
		return out.withType(t), nil
	default:
		return e, nil
	}
}
