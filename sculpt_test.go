package sculpt_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/aretw0/sculpt"
	"github.com/aretw0/sculpt/pkg/domain"
	"github.com/aretw0/sculpt/pkg/draft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_ProduceEmitsHooks(t *testing.T) {
	var events []*domain.ProduceEvent
	engine := sculpt.New(sculpt.WithLifecycleHooks(domain.LifecycleHooks{
		OnProduce: func(_ context.Context, e *domain.ProduceEvent) {
			events = append(events, e)
		},
	}))
	base := domain.MustFromNative(map[string]any{"count": 1})

	out, err := engine.Produce(context.Background(), base, func(d *draft.Draft) error {
		return d.Set("count", 2)
	})
	require.NoError(t, err)
	assert.Equal(t, `{"count":2}`, out.(*domain.Record).String())

	_, err = engine.Produce(context.Background(), out, func(d *draft.Draft) error { return nil })
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, domain.EventProduce, events[0].Type)
	assert.True(t, events[0].Changed)
	assert.Equal(t, 1, events[0].Drafts)
	assert.False(t, events[1].Changed)
	assert.NoError(t, events[1].Err)
}

func TestEngine_ProduceReportsErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	var seen error
	engine := sculpt.New(
		sculpt.WithLogger(logger),
		sculpt.WithName("test"),
		sculpt.WithLifecycleHooks(domain.LifecycleHooks{
			OnProduce: func(_ context.Context, e *domain.ProduceEvent) { seen = e.Err },
		}),
	)
	boom := errors.New("boom")

	_, err := engine.Produce(context.Background(), domain.NewRecord(), func(d *draft.Draft) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, seen, boom)
	assert.Contains(t, buf.String(), "produce failed")
	assert.Contains(t, buf.String(), "engine=test")
}

func TestEngine_ProduceHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := sculpt.New().Produce(ctx, domain.NewRecord(), func(d *draft.Draft) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestProduceNative(t *testing.T) {
	out, err := sculpt.ProduceNative(map[string]any{"todos": []string{"a"}}, func(d *draft.Draft) error {
		todos, err := d.Child("todos")
		if err != nil {
			return err
		}
		return todos.Append("b")
	})

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"todos": []any{"a", "b"}}, domain.ToNative(out))

	_, err = sculpt.ProduceNative(map[string]any{"fn": func() {}}, func(d *draft.Draft) error { return nil })
	assert.ErrorIs(t, err, domain.ErrUnsupportedValue)
}

func TestVersion(t *testing.T) {
	assert.NotEmpty(t, sculpt.Version)
	assert.NotContains(t, sculpt.Version, "\n")
}
