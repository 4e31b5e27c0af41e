package tracing

import (
	"context"
	"testing"

	"example.com/alumni/services/events/config"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTracer_DisabledWithoutLicense(t *testing.T) {
	tracer, err := NewTracer(config.TracingConfig{AppName: "events"})
	require.NoError(t, err)
	assert.Nil(t, tracer.Application())

	ctx, txn := tracer.StartTransaction(context.Background(), "job")
	assert.Nil(t, txn)
	assert.Nil(t, newrelic.FromContext(ctx))

	// every call is a no-op on a disabled tracer
	tracer.AddAttribute(txn, "rows", 3)
	tracer.EndTransaction(txn, errors.New("boom"))
	tracer.Close()
}

func TestNewTracer_RejectsMalformedLicense(t *testing.T) {
	_, err := NewTracer(config.TracingConfig{AppName: "events", LicenseKey: "short"})
	assert.Error(t, err)
}
