package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/GriffinCanCode/filesystem-mcp/internal/types"
)

// Registry manages service providers and tool execution
type Registry struct {
	services sync.Map
	mu       sync.RWMutex
	order    []string

	calls sync.Map // tool ID -> *callStats
}

type callStats struct {
	total    atomic.Int64
	failures atomic.Int64
}

// Provider interface for service implementations
type Provider interface {
	Definition() types.Service
	Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error)
}

// NewRegistry creates a new service registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a service provider
func (r *Registry) Register(provider Provider) error {
	def := provider.Definition()
	if def.ID == "" {
		return fmt.Errorf("service ID cannot be empty")
	}
	if strings.Contains(def.ID, ".") {
		return fmt.Errorf("service ID cannot contain '.': %s", def.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, loaded := r.services.LoadOrStore(def.ID, provider); loaded {
		return fmt.Errorf("service already registered: %s", def.ID)
	}
	r.order = append(r.order, def.ID)
	return nil
}

// Get retrieves a service by ID
func (r *Registry) Get(serviceID string) (Provider, bool) {
	val, ok := r.services.Load(serviceID)
	if !ok {
		return nil, false
	}
	return val.(Provider), true
}

// List returns registered services in registration order
func (r *Registry) List(category *types.Category) []types.Service {
	r.mu.RLock()
	ids := append([]string(nil), r.order...)
	r.mu.RUnlock()

	services := make([]types.Service, 0, len(ids))
	for _, id := range ids {
		provider, ok := r.Get(id)
		if !ok {
			continue
		}
		def := provider.Definition()
		if category == nil || def.Category == *category {
			services = append(services, def)
		}
	}
	return services
}

// Tools returns every tool of every service in registration order
func (r *Registry) Tools() []types.Tool {
	var tools []types.Tool
	for _, def := range r.List(nil) {
		tools = append(tools, def.Tools...)
	}
	return tools
}

// Tool looks up a tool by its qualified ID or, failing that, its short name
func (r *Registry) Tool(name string) (types.Tool, bool) {
	for _, tool := range r.Tools() {
		if tool.ID == name || tool.Name == name {
			return tool, true
		}
	}
	return types.Tool{}, false
}

// Execute runs a service tool
func (r *Registry) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	parts := strings.SplitN(toolID, ".", 2)
	if len(parts) < 2 {
		return &types.Result{
			Success: false,
			Error:   stringPtr("invalid tool ID format"),
		}, fmt.Errorf("invalid tool ID format: %s", toolID)
	}

	serviceID := parts[0]
	provider, ok := r.Get(serviceID)
	if !ok {
		return &types.Result{
			Success: false,
			Error:   stringPtr(fmt.Sprintf("service not found: %s", serviceID)),
		}, fmt.Errorf("service not found: %s", serviceID)
	}

	result, err := provider.Execute(ctx, toolID, params, appCtx)
	r.record(toolID, err == nil && result != nil && result.Success)
	return result, err
}

func (r *Registry) record(toolID string, ok bool) {
	val, _ := r.calls.LoadOrStore(toolID, &callStats{})
	stats := val.(*callStats)
	stats.total.Add(1)
	if !ok {
		stats.failures.Add(1)
	}
}

// Stats returns registry statistics
func (r *Registry) Stats() map[string]interface{} {
	var total, totalTools int
	categories := make(map[string]int)

	for _, def := range r.List(nil) {
		total++
		totalTools += len(def.Tools)
		categories[string(def.Category)]++
	}

	calls := make(map[string]map[string]int64)
	r.calls.Range(func(key, value interface{}) bool {
		stats := value.(*callStats)
		calls[key.(string)] = map[string]int64{
			"total":    stats.total.Load(),
			"failures": stats.failures.Load(),
		}
		return true
	})

	return map[string]interface{}{
		"total_services": total,
		"total_tools":    totalTools,
		"categories":     categories,
		"calls":          calls,
	}
}

func stringPtr(s string) *string {
	return &s
}
