package logger

import (
	"context"
	"sync"
	"testing"

	"github.com/brfledger/utilitybilling/internal/config"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingPoster struct {
	mu      sync.Mutex
	tags    []string
	records []map[string]interface{}
	closed  bool
}

func (p *recordingPoster) Post(tag string, message interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tags = append(p.tags, tag)
	p.records = append(p.records, message.(map[string]interface{}))
	return nil
}

func (p *recordingPoster) Close() error {
	p.closed = true
	return nil
}

func TestNewLogger_WithoutFluentd(t *testing.T) {
	l, err := NewLogger(config.GetDefaultConfig())
	require.NoError(t, err)
	assert.Nil(t, l.forwarder)
	assert.NoError(t, l.Close())
}

func TestForwardingLogger_PostsStructuredRecords(t *testing.T) {
	base, logs := observer.New(zapcore.InfoLevel)
	client := &recordingPoster{}
	l := newForwardingLogger(base, client, "billing.test", zapcore.InfoLevel, string(types.ModeLocal))

	ctx := types.SetRequestID(context.Background(), "req_1")
	l.WithContext(ctx).Infow("billing run finished", "period_id", "bp_q2", "invoices", 2)
	l.Debugw("dropped below level")

	require.Len(t, client.records, 1)
	assert.Equal(t, "billing.test", client.tags[0])
	record := client.records[0]
	assert.Equal(t, "info", record["level"])
	assert.Equal(t, "billing run finished", record["message"])
	assert.Equal(t, "req_1", record["request_id"])
	assert.Equal(t, "bp_q2", record["period_id"])
	assert.EqualValues(t, 2, record["invoices"])
	assert.Equal(t, string(types.ModeLocal), record["mode"])
	assert.NotEmpty(t, record["timestamp"])

	// the stdout core still receives the entry
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "billing run finished", logs.All()[0].Message)

	require.NoError(t, l.Close())
	assert.True(t, client.closed)
}

func TestWithContext_WithoutIDsReturnsSameLogger(t *testing.T) {
	l := NewNopLogger()
	assert.Same(t, l, l.WithContext(context.Background()))
}
