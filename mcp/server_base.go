package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shaharia-lab/mcpstdio/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const (
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"
	MethodToolsList   = "tools/list"
	MethodToolsCall   = "tools/call"

	notificationPrefix = "notifications/"

	defaultMaxConcurrentCalls = 8
	defaultMaxLineBytes       = 4 << 20
	defaultDrainTimeout       = 5 * time.Second
)

// ServerConfig holds all configuration for BaseServer
type ServerConfig struct {
	logger             observability.Logger
	protocolVersion    string
	serverName         string
	serverVersion      string
	maxConcurrentCalls int
	maxLineBytes       int
	drainTimeout       time.Duration
}

// ServerConfigOption is a function that modifies ServerConfig
type ServerConfigOption func(*ServerConfig)

// UseLogger sets a custom logger
func UseLogger(logger observability.Logger) ServerConfigOption {
	return func(c *ServerConfig) {
		c.logger = logger
	}
}

// UseServerInfo sets server name and version
func UseServerInfo(name, version string) ServerConfigOption {
	return func(c *ServerConfig) {
		c.serverName = name
		c.serverVersion = version
	}
}

// UseProtocolVersion overrides the protocol version the server speaks.
func UseProtocolVersion(version string) ServerConfigOption {
	return func(c *ServerConfig) {
		c.protocolVersion = version
	}
}

// UseMaxConcurrentCalls bounds how many tool handlers may run at once.
func UseMaxConcurrentCalls(n int) ServerConfigOption {
	return func(c *ServerConfig) {
		c.maxConcurrentCalls = n
	}
}

// UseMaxLineBytes bounds the size of a single inbound frame.
func UseMaxLineBytes(n int) ServerConfigOption {
	return func(c *ServerConfig) {
		c.maxLineBytes = n
	}
}

// UseDrainTimeout bounds how long a cancelled session waits for running tool
// calls. Responses of calls still running after it are dropped.
func UseDrainTimeout(d time.Duration) ServerConfigOption {
	return func(c *ServerConfig) {
		c.drainTimeout = d
	}
}

func defaultConfig() *ServerConfig {
	return &ServerConfig{
		logger:             observability.NewNullLogger(),
		protocolVersion:    ProtocolVersion,
		serverName:         defaultServerName,
		serverVersion:      serverVersion,
		maxConcurrentCalls: defaultMaxConcurrentCalls,
		maxLineBytes:       defaultMaxLineBytes,
		drainTimeout:       defaultDrainTimeout,
	}
}

type methodKind int

const (
	kindRequest methodKind = iota
	kindNotification
)

// methodHandler produces the result of a request, or performs the side
// effect of a notification.
type methodHandler func(d *Dispatcher, ctx context.Context, req *Request) (interface{}, error)

type method struct {
	kind methodKind
	// gated methods are rejected until the session is initialized.
	gated bool
	// async methods run off the read loop.
	async  bool
	handle methodHandler
}

func newMethodTable() map[string]method {
	return map[string]method{
		MethodInitialize: {
			kind:   kindRequest,
			handle: (*Dispatcher).handleInitialize,
		},
		MethodInitialized: {
			kind:   kindNotification,
			handle: (*Dispatcher).handleInitialized,
		},
		MethodToolsList: {
			kind:   kindRequest,
			gated:  true,
			handle: (*Dispatcher).handleToolsList,
		},
		MethodToolsCall: {
			kind:   kindRequest,
			gated:  true,
			async:  true,
			handle: (*Dispatcher).handleToolsCall,
		},
	}
}

// BaseServer holds what every session shares: server identity, the tool
// registry and the method table.
type BaseServer struct {
	protocolVersion    string
	ServerInfo         ServerInfo
	logger             observability.Logger
	registry           *ToolRegistry
	methods            map[string]method
	maxConcurrentCalls int
	maxLineBytes       int
	drainTimeout       time.Duration
}

// NewBaseServer creates a BaseServer serving the tools in registry. The
// registry is closed against further registration.
func NewBaseServer(registry *ToolRegistry, opts ...ServerConfigOption) (*BaseServer, error) {
	if registry == nil {
		return nil, fmt.Errorf("tool registry cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.logger == nil {
		cfg.logger = observability.NewNullLogger()
	}
	if cfg.protocolVersion == "" {
		return nil, fmt.Errorf("protocol version cannot be empty")
	}
	if cfg.maxConcurrentCalls <= 0 {
		return nil, fmt.Errorf("invalid max concurrent calls %d: must be positive", cfg.maxConcurrentCalls)
	}
	if cfg.maxLineBytes < 0 {
		return nil, fmt.Errorf("invalid max line bytes %d: must not be negative", cfg.maxLineBytes)
	}
	if cfg.drainTimeout < 0 {
		return nil, fmt.Errorf("invalid drain timeout %s: must not be negative", cfg.drainTimeout)
	}

	registry.Close()

	return &BaseServer{
		protocolVersion: cfg.protocolVersion,
		ServerInfo: ServerInfo{
			Name:    cfg.serverName,
			Version: cfg.serverVersion,
		},
		logger:             cfg.logger,
		registry:           registry,
		methods:            newMethodTable(),
		maxConcurrentCalls: cfg.maxConcurrentCalls,
		maxLineBytes:       cfg.maxLineBytes,
		drainTimeout:       cfg.drainTimeout,
	}, nil
}

// Dispatcher routes the messages of one session and writes their envelopes.
type Dispatcher struct {
	server  *BaseServer
	session *Session
	writer  *MessageWriter
	logger  observability.Logger

	calls errgroup.Group
	slots *semaphore.Weighted
}

// NewDispatcher binds a session and its output to the server.
func (s *BaseServer) NewDispatcher(session *Session, writer *MessageWriter) *Dispatcher {
	return &Dispatcher{
		server:  s,
		session: session,
		writer:  writer,
		logger:  s.logger.WithFields(map[string]interface{}{"session": session.ID}),
		slots:   semaphore.NewWeighted(int64(s.maxConcurrentCalls)),
	}
}

// HandleFrame decodes one inbound frame and dispatches it. Frames that do
// not decode are logged and dropped without a reply.
func (d *Dispatcher) HandleFrame(ctx context.Context, line []byte) {
	d.logger.Debug("Received input: " + string(line))

	req, err := DecodeRequest(line)
	if err != nil {
		d.logger.WithErr(err).Error("Failed to parse message: " + err.Error())
		return
	}

	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		d.logger.Warn(fmt.Sprintf("Unexpected jsonrpc version %q, handling as %s", req.JSONRPC, jsonRPCVersion))
	}

	d.logger.Info("Processing request")
	d.logger.Structured(observability.LevelDebug, json.RawMessage(line))

	d.Handle(ctx, req)
}

// Handle routes req by method. It writes at most one envelope, and none for
// notifications. tools/call handlers may finish after Handle returns; Wait
// blocks until they have.
func (d *Dispatcher) Handle(ctx context.Context, req *Request) {
	ctx, span := observability.StartSpan(ctx, "Dispatcher.Handle",
		trace.WithAttributes(attribute.String("method", req.Method)))
	defer span.End()

	logger := d.logger.WithFields(map[string]interface{}{
		"method": req.Method,
		"id":     string(req.ID),
	})

	m, ok := d.server.methods[req.Method]
	if !ok {
		d.handleUnknown(logger, req)
		return
	}

	if m.kind == kindNotification {
		if _, err := m.handle(d, ctx, req); err != nil {
			logger.WithErr(err).Error("Notification handling failed")
		}
		return
	}

	if m.gated && d.session.State() != StateInitialized {
		logger.Error(fmt.Sprintf("Received %s request before initialization", req.Method))
		d.reply(req, nil, NewError("Server not initialized"))
		return
	}

	if m.async {
		d.dispatchAsync(ctx, req, m)
		return
	}

	result, err := m.handle(d, ctx, req)
	d.reply(req, result, err)
}

// Wait blocks until every in-flight tool call has written its envelope.
func (d *Dispatcher) Wait() {
	_ = d.calls.Wait()
}

func (d *Dispatcher) dispatchAsync(ctx context.Context, req *Request, m method) {
	// There is no cancellation in the protocol: a started call runs to completion.
	ctx = context.WithoutCancel(ctx)

	d.calls.Go(func() error {
		if err := d.slots.Acquire(ctx, 1); err != nil {
			d.reply(req, nil, err)
			return nil
		}
		defer d.slots.Release(1)

		result, err := m.handle(d, ctx, req)
		d.reply(req, result, err)
		return nil
	})
}

func (d *Dispatcher) handleUnknown(logger observability.Logger, req *Request) {
	if !req.HasID || strings.HasPrefix(req.Method, notificationPrefix) {
		logger.Warn("Ignoring unhandled notification")
		return
	}

	logger.Warn("Method not found")
	d.reply(req, nil, NewError("Method '%s' not found", req.Method))
}

func (d *Dispatcher) reply(req *Request, result interface{}, err error) {
	if d.writer.Closed() {
		return
	}

	var resp *Response
	if err != nil {
		rpcErr := asError(err)
		resp = NewErrorResponse(req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		d.logger.Info("Sending error response")
	} else {
		resp = NewResultResponse(req.ID, result)
		d.logger.Info("Sending response")
	}
	d.logger.Structured(observability.LevelDebug, resp)

	if werr := d.writer.Write(resp); werr != nil && !errors.Is(werr, ErrWriterClosed) {
		d.logger.WithErr(werr).Error("Failed to write response")
	}
}

func (d *Dispatcher) handleInitialize(ctx context.Context, req *Request) (interface{}, error) {
	_, span := observability.StartSpan(ctx, "Dispatcher.handleInitialize")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	var params InitializeParams
	if len(req.Params) > 0 {
		if err = json.Unmarshal(req.Params, &params); err != nil {
			d.logger.WithErr(err).Error("Failed to parse initialize params")
			return nil, NewError("Invalid params")
		}
	}

	if params.ProtocolVersion != d.server.protocolVersion {
		d.logger.WithFields(map[string]interface{}{
			"client": params.ProtocolVersion,
			"server": d.server.protocolVersion,
		}).Warn(fmt.Sprintf("Protocol version mismatch - client: %s, server: %s",
			params.ProtocolVersion, d.server.protocolVersion))
	}

	tools := make(map[string]Tool)
	for _, t := range d.server.registry.List() {
		tools[t.Name] = t.Tool()
	}
	span.SetAttributes(attribute.Int("num_tools", len(tools)))

	d.logger.Info("Sending initialize response")
	return InitializeResult{
		ServerInfo:      d.server.ServerInfo,
		ProtocolVersion: d.server.protocolVersion,
		Capabilities:    Capabilities{Tools: tools},
	}, nil
}

func (d *Dispatcher) handleInitialized(ctx context.Context, req *Request) (interface{}, error) {
	if d.session.MarkInitialized() {
		d.logger.Info("Client sent initialized notification")
	} else {
		d.logger.Debug("Duplicate initialized notification")
	}
	return nil, nil
}

func (d *Dispatcher) handleToolsList(ctx context.Context, req *Request) (interface{}, error) {
	_, span := observability.StartSpan(ctx, "Dispatcher.handleToolsList")
	defer span.End()

	descriptors := d.server.registry.List()
	result := ListToolsResult{Tools: make([]Tool, 0, len(descriptors))}
	for _, t := range descriptors {
		result.Tools = append(result.Tools, t.Tool())
	}
	span.SetAttributes(attribute.Int("num_tools", len(result.Tools)))

	d.logger.Info("Sending tools list")
	return result, nil
}

func (d *Dispatcher) handleToolsCall(ctx context.Context, req *Request) (interface{}, error) {
	ctx, span := observability.StartSpan(ctx, "Dispatcher.handleToolsCall")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	var params CallToolParams
	if len(req.Params) > 0 {
		if err = json.Unmarshal(req.Params, &params); err != nil {
			d.logger.WithErr(err).Error("Failed to parse call tool params")
			return nil, NewError("Invalid params")
		}
	}
	span.SetAttributes(attribute.String("tool", params.Name))

	logger := d.logger.WithFields(map[string]interface{}{
		"tool": params.Name,
	})

	tool, ok := d.server.registry.Get(params.Name)
	if !ok {
		err = NewError("Tool '%s' not found", params.Name)
		logger.Error(err.Error())
		return nil, err
	}

	logger.Info("Executing tool: " + params.Name)
	text, err := invokeTool(ctx, tool, params.Arguments)
	if err != nil {
		logger.WithErr(err).Error("Tool execution failed: " + err.Error())
		return nil, NewError("%s", err.Error())
	}

	return CallToolResult{
		Content: []ToolResultContent{{
			Type: "text",
			Text: text,
		}},
	}, nil
}

// invokeTool runs the handler once, turning a panic into an error.
func invokeTool(ctx context.Context, tool ToolDescriptor, arguments json.RawMessage) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool '%s' panicked: %v", tool.Name, r)
		}
	}()
	return tool.Handler(ctx, arguments)
}
