package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/filesystem-mcp/internal/id"
	"github.com/GriffinCanCode/filesystem-mcp/internal/infrastructure/audit"
	"github.com/GriffinCanCode/filesystem-mcp/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/filesystem-mcp/internal/sandbox"
	"github.com/GriffinCanCode/filesystem-mcp/internal/service"
	"github.com/GriffinCanCode/filesystem-mcp/internal/types"
)

// Server answers MCP JSON-RPC messages using the tools in a registry.
// It holds no per-connection state and is safe for concurrent use.
type Server struct {
	registry *service.Registry
	logger   *zap.Logger
	metrics  *monitoring.Metrics
	audit    *audit.Logger
	timeout  time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics records tool and message metrics.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithAudit writes an audit entry per tool call.
func WithAudit(a *audit.Logger) Option {
	return func(s *Server) { s.audit = a }
}

// WithCallTimeout bounds each tool call. Zero means no limit.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

// NewServer creates a server over registry.
func NewServer(registry *service.Registry, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		registry: registry,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tools returns the tools/list payload.
func (s *Server) Tools() []ToolDescriptor {
	return Descriptors(s.registry)
}

// Handle processes one encoded JSON-RPC message and returns the encoded
// response, or nil when the message is a notification.
func (s *Server) Handle(ctx context.Context, sess *Session, data []byte) []byte {
	var req Request
	if err := codec.Unmarshal(data, &req); err != nil {
		if !codec.Valid(data) {
			s.logger.Warn("Malformed JSON-RPC message",
				zap.String("session_id", sess.ID),
				zap.Error(err),
			)
			s.recordRPC("", "parse_error")
			return s.encode(errorResponse(nullID, CodeParseError, "Parse error"))
		}
		s.recordRPC("", "invalid_request")
		return s.encode(errorResponse(nullID, CodeInvalidRequest, "Invalid request"))
	}

	if req.Method == "" {
		s.recordRPC("", "invalid_request")
		if req.IsNotification() {
			return nil
		}
		return s.encode(errorResponse(req.ID, CodeInvalidRequest, "Invalid request: method is required"))
	}

	result, rpcErr := s.dispatch(ctx, sess, &req)

	if req.IsNotification() {
		s.recordRPC(req.Method, "notification")
		return nil
	}
	if rpcErr != nil {
		s.recordRPC(req.Method, "error")
		return s.encode(&Response{JSONRPC: JSONRPCVersion, ID: req.ID, Error: rpcErr})
	}

	s.recordRPC(req.Method, "ok")
	return s.encode(&Response{JSONRPC: JSONRPCVersion, ID: req.ID, Result: result})
}

func (s *Server) dispatch(ctx context.Context, sess *Session, req *Request) (interface{}, *RPCError) {
	switch req.Method {
	case MethodInitialize:
		s.logger.Info("Client initializing",
			zap.String("session_id", sess.ID),
			zap.String("transport", string(sess.Transport)),
		)
		return &InitializeResult{
			ProtocolVersion: ProtocolVersion,
			Capabilities:    map[string]interface{}{"tools": map[string]interface{}{}},
			ServerInfo:      ServerInfo{Name: ServerName, Version: ServerVersion},
		}, nil

	case MethodInitialized, MethodNotificationInitialized:
		sess.initialized.Store(true)
		return struct{}{}, nil

	case MethodPing:
		return struct{}{}, nil

	case MethodToolsList:
		return &ToolsListResult{Tools: s.Tools()}, nil

	case MethodToolsCall:
		return s.callTool(ctx, sess, req)

	default:
		return nil, &RPCError{Code: CodeMethodNotFound, Message: "Method not found: " + req.Method}
	}
}

// ErrUnknownTool is returned by CallTool for names no provider serves.
var ErrUnknownTool = errors.New("unknown tool")

func (s *Server) callTool(ctx context.Context, sess *Session, req *Request) (interface{}, *RPCError) {
	var params CallParams
	if len(req.Params) == 0 {
		return nil, &RPCError{Code: CodeInvalidParams, Message: "Invalid params: missing tool call parameters"}
	}
	if err := codec.Unmarshal(req.Params, &params); err != nil {
		return nil, &RPCError{Code: CodeInvalidParams, Message: "Invalid params: " + err.Error()}
	}
	if params.Name == "" {
		return nil, &RPCError{Code: CodeInvalidParams, Message: "Invalid params: tool name is required"}
	}

	result, err := s.CallTool(ctx, sess, params.Name, params.Arguments)
	if errors.Is(err, ErrUnknownTool) {
		return nil, &RPCError{Code: CodeMethodNotFound, Message: "Unknown tool: " + params.Name}
	}
	if err != nil {
		return nil, &RPCError{Code: CodeInternalError, Message: "Internal error"}
	}

	callResult, err := renderResult(result)
	if err != nil {
		s.logger.Error("Failed to encode tool result", zap.String("tool", params.Name), zap.Error(err))
		return nil, &RPCError{Code: CodeInternalError, Message: "Internal error"}
	}
	return callResult, nil
}

// CallTool runs a tool by short or qualified name, recording metrics and an
// audit entry. Tool failures come back as a failed Result with a nil error;
// a non-nil error means the tool could not be run at all.
func (s *Server) CallTool(ctx context.Context, sess *Session, name string, args map[string]interface{}) (*types.Result, error) {
	tool, ok := s.registry.Tool(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	if args == nil {
		args = map[string]interface{}{}
	}

	appCtx := &types.Context{
		SessionID: sess.ID,
		RequestID: id.NewRequestID().String(),
		Transport: sess.Transport,
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	timer := monitoring.NewTimer(s.metrics, tool.Name, string(sess.Transport))
	result, err := s.registry.Execute(ctx, tool.ID, args, appCtx)
	if result == nil {
		timer.Stop(string(sandbox.KindInternal))
		s.logger.Error("Tool execution failed",
			zap.String("tool", tool.Name),
			zap.String("request_id", appCtx.RequestID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("tool %s failed: %w", tool.Name, err)
	}

	outcome := audit.OutcomeOK
	kind := ""
	if !result.Success {
		kind = result.Kind
		if kind == "" {
			kind = string(sandbox.KindInternal)
		}
		outcome = kind
	}
	elapsed := timer.Stop(kind)

	s.audit.Record(audit.Entry{
		SessionID: sess.ID,
		RequestID: appCtx.RequestID,
		Transport: string(sess.Transport),
		Tool:      tool.Name,
		Arguments: args,
		Outcome:   outcome,
		Duration:  elapsed,
	})

	s.logger.Debug("Tool call",
		zap.String("tool", tool.Name),
		zap.String("request_id", appCtx.RequestID),
		zap.String("outcome", outcome),
		zap.Duration("duration", elapsed),
	)

	return result, nil
}

// renderResult turns a provider result into MCP text content.
func renderResult(result *types.Result) (*CallResult, error) {
	if result.Success {
		text, err := codec.MarshalIndent(result.Data, "", "  ")
		if err != nil {
			return nil, err
		}
		return &CallResult{Content: []Content{{Type: "text", Text: string(text)}}}, nil
	}

	msg := "unknown error"
	if result.Error != nil {
		msg = *result.Error
	}
	text, err := codec.MarshalIndent(map[string]string{"error": msg, "kind": result.Kind}, "", "  ")
	if err != nil {
		return nil, err
	}
	return &CallResult{Content: []Content{{Type: "text", Text: string(text)}}, IsError: true}, nil
}

// Descriptors builds the tools/list entries for every tool in registry.
func Descriptors(registry *service.Registry) []ToolDescriptor {
	tools := registry.Tools()
	out := make([]ToolDescriptor, 0, len(tools))
	for _, tool := range tools {
		schema := InputSchema{
			Type:       "object",
			Properties: make(map[string]Property, len(tool.Parameters)),
			Required:   []string{},
		}
		for _, p := range tool.Parameters {
			schema.Properties[p.Name] = Property{
				Type:        p.Type,
				Description: p.Description,
				Default:     p.Default,
			}
			if p.Required {
				schema.Required = append(schema.Required, p.Name)
			}
		}
		out = append(out, ToolDescriptor{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: schema,
		})
	}
	return out
}

func (s *Server) encode(resp *Response) []byte {
	data, err := codec.Marshal(resp)
	if err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
		data, _ = codec.Marshal(errorResponse(resp.ID, CodeInternalError, "Internal error"))
	}
	return data
}

func (s *Server) recordRPC(method, outcome string) {
	if s.metrics == nil {
		return
	}
	switch method {
	case MethodInitialize, MethodInitialized, MethodNotificationInitialized,
		MethodPing, MethodToolsList, MethodToolsCall:
	case "":
		method = "none"
	default:
		if strings.HasPrefix(method, "notifications/") {
			method = "notifications/other"
		} else {
			method = "unknown"
		}
	}
	s.metrics.RecordRPC(method, outcome)
}

func errorResponse(id json.RawMessage, code int, message string) *Response {
	return &Response{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error:   &RPCError{Code: code, Message: message},
	}
}
