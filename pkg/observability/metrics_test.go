package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/paneltree/pkg/domain"
)

func TestMetrics_Hooks(t *testing.T) {
	m := NewMetrics("test")
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnStackResolved(ctx, &domain.ResolveEvent{ChosenID: "String", Stack: []string{"String", "Expression"}})
	hooks.OnStackResolved(ctx, &domain.ResolveEvent{ChosenID: "String", Stack: []string{"String"}})
	hooks.OnStackResolved(ctx, &domain.ResolveEvent{})
	hooks.OnTransition(ctx, &domain.TransitionEvent{Kind: domain.TransitionInput, Rule: domain.RuleAssignable, Duration: time.Millisecond})
	hooks.OnInitializerFailure(ctx, &domain.InitializerEvent{HandlerID: "Broken", Err: errors.New("boom")})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.stacksResolved.WithLabelValues("String")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.unrenderable))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("input", "assignable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.initializerFailures.WithLabelValues("Broken")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.transitionDuration))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics("paneltree")
	m.Hooks().OnStackResolved(context.Background(), &domain.ResolveEvent{ChosenID: "Object", Stack: []string{"Object"}})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `paneltree_stacks_resolved_total{handler="Object"} 1`)
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	hooks := domain.ChainHooks(LogHooks(logger))

	hooks.OnTransition(context.Background(), &domain.TransitionEvent{Kind: domain.TransitionHandler, FromHandler: "String", ToHandler: "Expression"})
	hooks.OnInitializerFailure(context.Background(), &domain.InitializerEvent{HandlerID: "Broken", Err: errors.New("boom")})

	out := buf.String()
	assert.Contains(t, out, "msg=transition")
	assert.Contains(t, out, "to=Expression")
	assert.True(t, strings.Contains(out, "level=WARN") && strings.Contains(out, "err=boom"))
}
