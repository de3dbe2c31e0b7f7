package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"tagged", NewError(KindGateRejected, "summarize", "too long", nil), KindGateRejected},
		{"wrapped tagged", fmt.Errorf("outer: %w", NewError(KindTransientGenerator, "planner", "timeout", nil)), KindTransientGenerator},
		{"context canceled", context.Canceled, KindCancelled},
		{"deadline exceeded", context.DeadlineExceeded, KindTransientGenerator},
		{"untagged", errors.New("mystery"), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestErrorMessageAndUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewError(KindTransientGenerator, "synthesizer", "generator call failed", cause)

	assert.Contains(t, err.Error(), "synthesizer")
	assert.Contains(t, err.Error(), "connection reset")
	assert.Contains(t, err.Error(), string(KindTransientGenerator))
	assert.True(t, errors.Is(err, cause))
}

func TestErrorInfo(t *testing.T) {
	err := NewError(KindNoWorkerResults, "dispatcher", "every worker failed", nil)
	info := err.Info()
	require.NotNil(t, info)
	assert.Equal(t, KindNoWorkerResults, info.Kind)
	assert.Contains(t, info.Message, "dispatcher")
}

func TestClassifiers(t *testing.T) {
	assert.True(t, IsTransient(NewError(KindTransientGenerator, "c", "d", nil)))
	assert.False(t, IsTransient(NewError(KindFatalGenerator, "c", "d", nil)))
	assert.True(t, IsFatal(NewError(KindFatalGenerator, "c", "d", nil)))
	assert.True(t, IsConfiguration(NewError(KindConfiguration, "c", "d", nil)))
	assert.False(t, IsConfiguration(errors.New("plain")))
}
