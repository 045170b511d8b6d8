package events_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/appctx"
	"github.com/Ramsey-B/clover/pkg/correlation"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/models"
)

var _ correlation.Notifier = (*events.Emitter)(nil)

type published struct {
	key     string
	value   []byte
	headers map[string]string
}

type fakePublisher struct {
	sent []published
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, key string, value []byte, headers map[string]string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{key: key, value: value, headers: headers})
	return nil
}

func noopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestPublishEnvelope(t *testing.T) {
	pub := &fakePublisher{}
	emitter := events.NewEmitter(pub, noopLogger())
	ctx := appctx.SetRequestID(context.Background(), "req-1")
	ts := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

	err := emitter.Publish(ctx, models.Event{
		Type:             models.EventCorrelationAttached,
		ElementGUID:      "guid-1",
		ElementType:      "Asset",
		AssetManagerGUID: "am-1",
		Identifier:       "tbl-42",
		Timestamp:        ts,
	})

	require.NoError(t, err)
	require.Len(t, pub.sent, 1)
	msg := pub.sent[0]
	assert.Equal(t, "guid-1", msg.key)
	assert.Equal(t, map[string]string{
		"event_type":     "correlation.attached",
		"schema_version": events.SchemaVersion,
		"element_type":   "Asset",
	}, msg.headers)

	var env events.Envelope
	require.NoError(t, json.Unmarshal(msg.value, &env))
	assert.Equal(t, models.EventCorrelationAttached, env.Type)
	assert.Equal(t, "tbl-42", env.Identifier)
	assert.Equal(t, "req-1", env.RequestID)
	assert.Equal(t, events.SchemaVersion, env.SchemaVersion)
	assert.NotEmpty(t, env.EventID)
	assert.True(t, ts.Equal(env.Timestamp))
}

func TestPublishKeyFallsBackToAssetManager(t *testing.T) {
	pub := &fakePublisher{}
	emitter := events.NewEmitter(pub, noopLogger())

	require.NoError(t, emitter.Publish(context.Background(), models.Event{Type: models.EventAssetManagerCreated, AssetManagerGUID: "am-1"}))

	assert.Equal(t, "am-1", pub.sent[0].key)
	assert.NotContains(t, pub.sent[0].headers, "element_type")
}

func TestPublishError(t *testing.T) {
	emitter := events.NewEmitter(&fakePublisher{err: fmt.Errorf("broker unavailable")}, noopLogger())

	err := emitter.Publish(context.Background(), models.Event{Type: models.EventElementDeleted, ElementGUID: "guid-1"})

	assert.EqualError(t, err, "broker unavailable")
}
