package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/filesystem-mcp/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/filesystem-mcp/internal/mcp"
	"github.com/GriffinCanCode/filesystem-mcp/internal/sandbox"
	"github.com/GriffinCanCode/filesystem-mcp/internal/service"
	"github.com/GriffinCanCode/filesystem-mcp/internal/types"
)

// maxBodySize bounds request bodies on the tool and RPC routes.
const maxBodySize = mcp.MaxMessageSize

// Handlers contains all HTTP handlers
type Handlers struct {
	registry *service.Registry
	server   *mcp.Server
	metrics  *monitoring.Metrics
	logger   *zap.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(registry *service.Registry, server *mcp.Server, metrics *monitoring.Metrics, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		registry: registry,
		server:   server,
		metrics:  metrics,
		logger:   logger,
	}
}

// Root identifies the service
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": mcp.ServerName,
		"version": mcp.ServerVersion,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	body := gin.H{
		"status":           "healthy",
		"service_registry": h.registry.Stats(),
	}
	if h.metrics != nil {
		body["metrics"] = h.metrics.Snapshot()
	}
	c.JSON(http.StatusOK, body)
}

// ListTools returns the tool descriptors
func (h *Handlers) ListTools(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tools": h.server.Tools()})
}

// ExecuteTool runs one tool with a flat JSON object of arguments
func (h *Handlers) ExecuteTool(c *gin.Context) {
	name := c.Param("name")

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodySize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}
	if len(body) > maxBodySize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
		return
	}

	args := map[string]interface{}{}
	if len(body) > 0 {
		if err := sonic.ConfigStd.Unmarshal(body, &args); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "arguments must be a JSON object"})
			return
		}
	}

	sess := mcp.NewSession(types.TransportHTTP)
	result, err := h.server.CallTool(c.Request.Context(), sess, name, args)
	if errors.Is(err, mcp.ErrUnknownTool) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown tool: " + name})
		return
	}
	if err != nil {
		h.logger.Error("Tool call failed", zap.String("tool", name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	status := http.StatusOK
	if !result.Success {
		status = StatusForKind(sandbox.Kind(result.Kind))
	}
	c.JSON(status, result)
}

// RPC handles one JSON-RPC message per request body
func (h *Handlers) RPC(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodySize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}
	if len(body) > maxBodySize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
		return
	}

	resp := h.server.Handle(c.Request.Context(), mcp.NewSession(types.TransportHTTP), body)
	if resp == nil {
		c.Status(http.StatusAccepted)
		return
	}
	c.Data(http.StatusOK, "application/json", resp)
}

// StatusForKind maps a tool error kind to an HTTP status
func StatusForKind(kind sandbox.Kind) int {
	switch kind {
	case sandbox.KindInvalidArgument, sandbox.KindNotADirectory, sandbox.KindNotAFile:
		return http.StatusBadRequest
	case sandbox.KindOutsideSandbox, sandbox.KindExcludedPath:
		return http.StatusForbidden
	case sandbox.KindNotFound:
		return http.StatusNotFound
	case sandbox.KindUnsupportedType:
		return http.StatusUnsupportedMediaType
	case sandbox.KindFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case sandbox.KindDecodeError:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
