package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *Session, *bytes.Buffer) {
	t.Helper()

	var out bytes.Buffer
	session := NewSession()
	d := newTestServer(t).NewDispatcher(session, NewMessageWriter(&out))
	return d, session, &out
}

func mustDecode(t *testing.T, line string) *Request {
	t.Helper()
	req, err := DecodeRequest([]byte(line))
	require.NoError(t, err)
	return req
}

func TestDispatcherStateTransitions(t *testing.T) {
	d, session, out := newTestDispatcher(t)
	ctx := context.Background()

	d.Handle(ctx, mustDecode(t, initializeLine))
	assert.Equal(t, StateUninitialized, session.State(), "initialize must not change the state")
	assert.NotEmpty(t, out.String())

	out.Reset()
	d.Handle(ctx, mustDecode(t, initializedLine))
	assert.Equal(t, StateInitialized, session.State())
	assert.Empty(t, out.String())

	d.Handle(ctx, mustDecode(t, initializedLine))
	assert.Equal(t, StateInitialized, session.State())
	assert.Empty(t, out.String())
}

func TestDispatcherInitializeAllowedAfterInitialized(t *testing.T) {
	d, _, out := newTestDispatcher(t)
	ctx := context.Background()

	d.Handle(ctx, mustDecode(t, initializedLine))
	d.Handle(ctx, mustDecode(t, initializeLine))

	envs := parseEnvelopes(t, out.String())
	require.Len(t, envs, 1)
	assert.Nil(t, envs[0].Error)
}

func TestDispatcherToolsCallWait(t *testing.T) {
	d, _, out := newTestDispatcher(t)
	ctx := context.Background()

	d.Handle(ctx, mustDecode(t, initializedLine))
	for _, id := range []string{"1", "2", "3"} {
		d.Handle(ctx, mustDecode(t, `{"method":"tools/call","id":`+id+`,"params":{"name":"getSecretPassphrase","arguments":{}}}`))
	}
	d.Wait()

	envs := parseEnvelopes(t, out.String())
	require.Len(t, envs, 3)
	for _, env := range envs {
		require.Nil(t, env.Error)
		var result CallToolResult
		require.NoError(t, json.Unmarshal(env.Result, &result))
		assert.Equal(t, "Texas Chili", result.Content[0].Text)
	}
}

func TestDispatcherHandleFrameDropsBadInput(t *testing.T) {
	d, session, out := newTestDispatcher(t)
	ctx := context.Background()

	d.HandleFrame(ctx, []byte(`{"jsonrpc":"2.0"`))
	d.HandleFrame(ctx, []byte(`{"id":1}`))
	d.HandleFrame(ctx, []byte(`"initialize"`))

	assert.Empty(t, out.String())
	assert.Equal(t, StateUninitialized, session.State())
}

func TestDispatcherCallsSeeUncancelledContext(t *testing.T) {
	seen := make(chan error, 1)
	registry := NewToolRegistry()
	require.NoError(t, registry.Register("ctx", "", nil,
		func(ctx context.Context, arguments json.RawMessage) (string, error) {
			seen <- ctx.Err()
			return "", nil
		}))
	s, err := NewBaseServer(registry)
	require.NoError(t, err)

	var out bytes.Buffer
	d := s.NewDispatcher(NewSession(), NewMessageWriter(&out))

	ctx, cancel := context.WithCancel(context.Background())
	d.Handle(ctx, mustDecode(t, initializedLine))
	d.Handle(ctx, mustDecode(t, `{"method":"tools/call","id":1,"params":{"name":"ctx"}}`))
	cancel()
	d.Wait()

	assert.NoError(t, <-seen)
	require.Len(t, parseEnvelopes(t, out.String()), 1)
}

func TestDispatcherRecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	ctx, root := tp.Tracer("test").Start(context.Background(), "session")

	d, _, out := newTestDispatcher(t)
	d.Handle(ctx, mustDecode(t, initializedLine))
	d.Handle(ctx, mustDecode(t, `{"method":"tools/call","id":1,"params":{"name":"fail"}}`))
	d.Wait()
	root.End()

	envs := parseEnvelopes(t, out.String())
	require.Len(t, envs, 1)
	require.NotNil(t, envs[0].Error)

	spans := map[string][]sdktrace.ReadOnlySpan{}
	for _, span := range recorder.Ended() {
		spans[span.Name()] = append(spans[span.Name()], span)
	}

	require.Len(t, spans["Dispatcher.Handle"], 2)
	for _, span := range spans["Dispatcher.Handle"] {
		assert.Equal(t, root.SpanContext().SpanID(), span.Parent().SpanID())
	}

	require.Len(t, spans["Dispatcher.handleToolsCall"], 1)
	call := spans["Dispatcher.handleToolsCall"][0]
	assert.Equal(t, codes.Error, call.Status().Code)
	assert.Equal(t, "the vault is sealed", call.Status().Description)
	assert.Equal(t, root.SpanContext().TraceID(), call.SpanContext().TraceID())

	var handleIDs []string
	for _, span := range spans["Dispatcher.Handle"] {
		handleIDs = append(handleIDs, span.SpanContext().SpanID().String())
	}
	assert.Contains(t, handleIDs, call.Parent().SpanID().String())
}
