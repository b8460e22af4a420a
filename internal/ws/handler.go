package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/filesystem-mcp/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/filesystem-mcp/internal/mcp"
	"github.com/GriffinCanCode/filesystem-mcp/internal/types"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler manages WebSocket connections
type Handler struct {
	server  *mcp.Server
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(server *mcp.Server, metrics *monitoring.Metrics, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		server:  server,
		metrics: metrics,
		logger:  logger,
	}
}

// HandleConnection upgrades the request and serves one MCP session until
// the client disconnects. Each text frame carries one JSON-RPC message.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	conn.SetReadLimit(mcp.MaxMessageSize)

	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}

	sess := h.server.OpenSession(types.TransportWebSocket)
	defer h.server.CloseSession(sess)

	h.logger.Info("WebSocket session opened",
		zap.String("session_id", sess.ID),
		zap.String("remote", c.Request.RemoteAddr),
	)

	ctx := c.Request.Context()
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("WebSocket read error", zap.String("session_id", sess.ID), zap.Error(err))
			}
			break
		}
		h.record("in")

		if msgType != websocket.TextMessage {
			h.logger.Debug("Ignoring non-text frame", zap.String("session_id", sess.ID))
			continue
		}

		resp := h.server.Handle(ctx, sess, data)
		if resp == nil {
			continue
		}
		if err := h.send(conn, resp); err != nil {
			h.logger.Warn("WebSocket write error", zap.String("session_id", sess.ID), zap.Error(err))
			break
		}
	}

	h.logger.Info("WebSocket session closed", zap.String("session_id", sess.ID))
}

func (h *Handler) send(conn *websocket.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	h.record("out")
	return nil
}

func (h *Handler) record(direction string) {
	if h.metrics != nil {
		h.metrics.RecordWSMessage(direction)
	}
}
