package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownRunsHooksInReverseOrder(t *testing.T) {
	m := New(context.Background(), time.Second, nil)
	var order []string
	for _, name := range []string{"postgres", "registry", "http_server"} {
		name := name
		m.Register(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	require.NoError(t, m.Shutdown(context.Background()))
	assert.Equal(t, []string{"http_server", "registry", "postgres"}, order)
	assert.Error(t, m.Context().Err())
}

func TestShutdownJoinsHookErrors(t *testing.T) {
	m := New(context.Background(), time.Second, nil)
	boom := errors.New("boom")
	ran := false
	m.Register("first", func(context.Context) error {
		ran = true
		return nil
	})
	m.Register("second", func(context.Context) error { return boom })

	err := m.Shutdown(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.True(t, ran)
}

func TestWorkerFailureStopsApplication(t *testing.T) {
	m := New(context.Background(), time.Second, nil)
	boom := errors.New("listener closed")
	m.Go("http_server", func(context.Context) error { return boom })

	select {
	case <-m.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("context was not cancelled")
	}
	assert.ErrorIs(t, m.Err(), boom)
}

func TestShutdownWaitsForWorkers(t *testing.T) {
	m := New(context.Background(), time.Second, nil)
	finished := make(chan struct{})
	m.Go("relay", func(ctx context.Context) error {
		<-ctx.Done()
		close(finished)
		return ctx.Err()
	})

	require.NoError(t, m.Shutdown(context.Background()))
	select {
	case <-finished:
	default:
		t.Fatal("worker still running after shutdown")
	}
	assert.NoError(t, m.Err())
}
