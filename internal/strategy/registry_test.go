package strategy

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	reg := NewRegistry(slog.Default())

	kb := NewMockBank("kb")
	shinhan := NewMockBank("shinhan")

	reg.Register("kb", kb)
	reg.Register("shinhan", shinhan)

	t.Run("resolve registered", func(t *testing.T) {
		got, err := reg.Resolve("kb")
		require.NoError(t, err)
		assert.Same(t, kb, got)
	})

	t.Run("resolve unknown", func(t *testing.T) {
		_, err := reg.Resolve("woori")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Contains(t, err.Error(), "woori")
	})

	t.Run("has", func(t *testing.T) {
		assert.True(t, reg.Has("kb"))
		assert.False(t, reg.Has("woori"))
	})

	t.Run("targets in registration order", func(t *testing.T) {
		assert.Equal(t, []string{"kb", "shinhan"}, reg.Targets())
	})

	t.Run("re-register replaces without reordering", func(t *testing.T) {
		replacement := NewMockBank("kb")
		reg.Register("kb", replacement)

		got, err := reg.Resolve("kb")
		require.NoError(t, err)
		assert.Same(t, replacement, got)
		assert.Equal(t, []string{"kb", "shinhan"}, reg.Targets())
	})
}

func TestMockStrategy(t *testing.T) {
	ctx := context.Background()

	t.Run("full flow", func(t *testing.T) {
		m := NewMockBank("kb")
		m.StepDelay = 0
		exec := m.NewExecution()

		require.NoError(t, exec.Authenticate(ctx, map[string]string{"username": "u", "password": "p"}))

		balance, err := exec.FetchSummary(ctx)
		require.NoError(t, err)
		assert.Greater(t, balance, 0.0)

		// The canned transactions trail now, so a 30-day window sees all.
		end := time.Now().UTC()
		history, err := exec.FetchHistory(ctx, end.AddDate(0, 0, -30), end)
		require.NoError(t, err)
		assert.Len(t, history, 3)
	})

	t.Run("fetch before authenticate fails", func(t *testing.T) {
		m := NewMockBank("kb")
		m.StepDelay = 0

		_, err := m.NewExecution().FetchSummary(ctx)
		assert.Error(t, err)
	})

	t.Run("credential check", func(t *testing.T) {
		m := NewMockBank("kb")
		m.StepDelay = 0
		m.RequireUser = "alice"

		err := m.NewExecution().Authenticate(ctx, map[string]string{"username": "bob"})
		assert.Error(t, err)

		err = m.NewExecution().Authenticate(ctx, map[string]string{"username": "alice"})
		assert.NoError(t, err)
	})

	t.Run("history respects window", func(t *testing.T) {
		m := NewMockBank("kb")
		m.StepDelay = 0
		exec := m.NewExecution()
		require.NoError(t, exec.Authenticate(ctx, nil))

		now := time.Now().UTC()
		history, err := exec.FetchHistory(ctx, now.AddDate(0, 0, -12), now.AddDate(0, 0, -8))
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, "RENT", history[0].Description)
	})

	t.Run("executions do not share login state", func(t *testing.T) {
		m := NewMockBank("kb")
		m.StepDelay = 0

		first := m.NewExecution()
		require.NoError(t, first.Authenticate(ctx, nil))

		// A second execution against the same registered strategy must
		// still log in for itself.
		second := m.NewExecution()
		_, err := second.FetchSummary(ctx)
		assert.Error(t, err)

		balance, err := first.FetchSummary(ctx)
		require.NoError(t, err)
		assert.Greater(t, balance, 0.0)
	})

	t.Run("canceled context aborts", func(t *testing.T) {
		m := NewMockBank("kb")

		canceled, cancel := context.WithCancel(ctx)
		cancel()

		err := m.NewExecution().Authenticate(canceled, nil)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
