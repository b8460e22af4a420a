package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/filesystem-mcp/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/filesystem-mcp/internal/mcp"
	"github.com/GriffinCanCode/filesystem-mcp/internal/providers"
	"github.com/GriffinCanCode/filesystem-mcp/internal/providers/filesystem"
	"github.com/GriffinCanCode/filesystem-mcp/internal/sandbox"
	"github.com/GriffinCanCode/filesystem-mcp/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "intro.md"), []byte("# Intro\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "tool.exe"), []byte{0x4d, 0x5a}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte("SECRET=1"), 0o644))

	guard, err := sandbox.NewGuard(root, sandbox.DefaultPolicy())
	require.NoError(t, err)
	t.Cleanup(func() { guard.Close() })

	registry := service.NewRegistry()
	require.NoError(t, registry.Register(providers.NewFilesystem(filesystem.New(guard))))

	metrics := monitoring.NewMetrics(nil)
	server := mcp.NewServer(registry, zap.NewNop(), mcp.WithMetrics(metrics))
	h := NewHandlers(registry, server, metrics, zap.NewNop())

	router := gin.New()
	router.GET("/", h.Root)
	router.GET("/health", h.Health)
	router.GET("/tools", h.ListTools)
	router.POST("/tools/:name", h.ExecuteTool)
	router.POST("/mcp", h.RPC)
	return router
}

func do(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRootAndHealth(t *testing.T) {
	router := setupRouter(t)

	w := do(router, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "online", body["status"])
	assert.Equal(t, mcp.ServerName, body["service"])

	w = do(router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	stats, ok := body["service_registry"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 1, stats["total_services"])
	assert.EqualValues(t, 4, stats["total_tools"])
	assert.Contains(t, body, "metrics")
}

func TestListTools(t *testing.T) {
	router := setupRouter(t)

	w := do(router, http.MethodGet, "/tools", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Tools []mcp.ToolDescriptor `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	names := make([]string, 0, len(body.Tools))
	for _, tool := range body.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"list_directory", "read_file", "search_files", "get_file_info"}, names)
}

func TestExecuteTool(t *testing.T) {
	router := setupRouter(t)

	w := do(router, http.MethodPost, "/tools/read_file", `{"path":"docs/intro.md"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "# Intro\n", data["content"])

	// An empty body lists the root.
	w = do(router, http.MethodPost, "/tools/list_directory", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decode(t, w)
	assert.Equal(t, true, body["success"])
}

func TestExecuteToolErrors(t *testing.T) {
	router := setupRouter(t)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		kind   string
	}{
		{"unknown tool", "/tools/write_file", `{}`, http.StatusNotFound, ""},
		{"bad body", "/tools/read_file", `[1,2]`, http.StatusBadRequest, ""},
		{"missing argument", "/tools/read_file", `{}`, http.StatusBadRequest, "InvalidArgument"},
		{"outside sandbox", "/tools/read_file", `{"path":"../etc/passwd"}`, http.StatusForbidden, "OutsideSandbox"},
		{"excluded", "/tools/read_file", `{"path":".env"}`, http.StatusForbidden, "ExcludedPath"},
		{"not found", "/tools/read_file", `{"path":"docs/missing.md"}`, http.StatusNotFound, "NotFound"},
		{"unsupported type", "/tools/read_file", `{"path":"tool.exe"}`, http.StatusUnsupportedMediaType, "UnsupportedType"},
		{"not a directory", "/tools/list_directory", `{"path":"docs/intro.md"}`, http.StatusBadRequest, "NotADirectory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(router, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.kind != "" {
				body := decode(t, w)
				assert.Equal(t, false, body["success"])
				assert.Equal(t, tt.kind, body["kind"])
			}
		})
	}
}

func TestRPC(t *testing.T) {
	router := setupRouter(t)

	w := do(router, http.MethodPost, "/mcp", `{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 1, body["id"])
	assert.Equal(t, map[string]interface{}{}, body["result"])

	w = do(router, http.MethodPost, "/mcp", `{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Empty(t, w.Body.String())

	w = do(router, http.MethodPost, "/mcp", `{not json`)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	rpcErr, ok := body["error"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, -32700, rpcErr["code"])
}

func TestStatusForKind(t *testing.T) {
	assert.Equal(t, http.StatusRequestEntityTooLarge, StatusForKind(sandbox.KindFileTooLarge))
	assert.Equal(t, http.StatusUnprocessableEntity, StatusForKind(sandbox.KindDecodeError))
	assert.Equal(t, http.StatusBadRequest, StatusForKind(sandbox.KindNotAFile))
	assert.Equal(t, http.StatusInternalServerError, StatusForKind(sandbox.KindInternal))
	assert.Equal(t, http.StatusInternalServerError, StatusForKind(""))
}
