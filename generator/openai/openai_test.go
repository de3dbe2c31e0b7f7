package openai

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/taskweave/core"
	"github.com/hupe1980/taskweave/logging"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want core.Kind
	}{
		{"rate limited", &openai.Error{StatusCode: 429}, core.KindTransientGenerator},
		{"server error", &openai.Error{StatusCode: 500}, core.KindTransientGenerator},
		{"bad request", &openai.Error{StatusCode: 400}, core.KindFatalGenerator},
		{"deadline exceeded", context.DeadlineExceeded, core.KindTransientGenerator},
		{"unknown", errors.New("weird"), core.KindFatalGenerator},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, core.KindOf(classify("worker", tt.err)))
		})
	}
}

func TestGenerateLogsCallOutcome(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.LogLevelDebug,
		Format: "json",
		Output: &buf,
	})

	g := NewFromClient(&openai.Client{}, func(o *Options) {
		o.Logger = logger
	})

	g.logCall(80*time.Millisecond, true, nil)
	assert.Contains(t, buf.String(), "openai")
	assert.Contains(t, buf.String(), "Generator call completed")

	buf.Reset()
	g.logCall(time.Second, false, errors.New("boom"))
	assert.Contains(t, buf.String(), "Generator call failed")
}

func TestInfo(t *testing.T) {
	g := NewFromClient(&openai.Client{})
	assert.Equal(t, "openai", g.Info().Backend)
}
