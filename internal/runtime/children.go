package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/paneltree/pkg/domain"
)

// ConfigureChild expands the child of parent at key to a full node and
// moves it off the fallback handlers onto the best other handler of its
// stack. frame is the frame visible at parent. A child whose stack holds
// only fallbacks keeps its handler.
func (e *Engine) ConfigureChild(ctx context.Context, parent domain.ConfigNode, key string, frame domain.Frame, fallbacks ...string) (domain.ConfigNode, error) {
	parent = domain.Normalize(parent)
	if _, ok := parent.Children()[key]; !ok {
		return parent, fmt.Errorf("%w: %s", domain.ErrPathNotFound, key)
	}

	children := domain.EnsureFull(parent.Children(), key)
	child := domain.Normalize(children[key])
	res := e.ResolveStack(ctx, child.Input.Type(), child.HandlerID, nil)
	if id := res.FirstNonFallback(fallbacks...); id != "" && id != child.HandlerID {
		next, err := e.SwitchHandler(ctx, child, id, domain.ChildFrame(frame, parent))
		if err != nil {
			return parent, err
		}
		child = next
	}
	return parent.WithChild(key, child), nil
}

// RemoveChild drops the child of parent at key.
func (e *Engine) RemoveChild(ctx context.Context, parent domain.ConfigNode, key string) (domain.ConfigNode, error) {
	parent = domain.Normalize(parent)
	if _, ok := parent.Children()[key]; !ok {
		return parent, fmt.Errorf("%w: %s", domain.ErrPathNotFound, key)
	}
	e.logger.Debug("child removed", "handler_id", parent.HandlerID, "key", key)
	return parent.WithoutChild(key), nil
}
