package cli

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/paneltree/internal/logging"
)

func TestServe_ShutsDownWhenParentIsDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	shutdownCalled := false

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := Serve(ctx, logging.NewNop(), time.Second,
		func() error {
			<-stopped
			return http.ErrServerClosed
		},
		func(context.Context) error {
			shutdownCalled = true
			close(stopped)
			return nil
		})
	require.NoError(t, err)
	assert.True(t, shutdownCalled)
}

func TestServe_ReturnsServeError(t *testing.T) {
	boom := errors.New("address in use")
	err := Serve(context.Background(), logging.NewNop(), time.Second,
		func() error { return boom },
		func(context.Context) error { t.Fatal("shutdown must not run"); return nil })
	assert.ErrorIs(t, err, boom)
}

func TestServe_ShutdownTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	release := make(chan struct{})
	defer close(release)
	err := Serve(ctx, logging.NewNop(), 10*time.Millisecond,
		func() error {
			<-release
			return http.ErrServerClosed
		},
		func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
