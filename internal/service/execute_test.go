package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/filesystem-mcp/internal/types"
)

// MockServiceProvider is a testify mock of Provider.
type MockServiceProvider struct {
	mock.Mock
}

func (m *MockServiceProvider) Definition() types.Service {
	args := m.Called()
	return args.Get(0).(types.Service)
}

func (m *MockServiceProvider) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	args := m.Called(ctx, toolID, params, appCtx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Result), args.Error(1)
}

func mockDefinition() types.Service {
	return types.Service{
		ID:       "files",
		Name:     "Files",
		Category: types.CategoryFilesystem,
		Tools: []types.Tool{
			{ID: "files.read", Name: "read"},
			{ID: "files.stat", Name: "stat"},
		},
	}
}

func TestExecuteRoutesToProvider(t *testing.T) {
	provider := new(MockServiceProvider)
	provider.On("Definition").Return(mockDefinition())

	params := map[string]interface{}{"path": "a.txt"}
	appCtx := &types.Context{SessionID: "sess_1", Transport: types.TransportStdio}
	provider.On("Execute", mock.Anything, "files.read", params, appCtx).
		Return(&types.Result{Success: true, Data: "ok"}, nil).Once()

	r := NewRegistry()
	require.NoError(t, r.Register(provider))

	result, err := r.Execute(context.Background(), "files.read", params, appCtx)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "ok", result.Data)

	provider.AssertExpectations(t)
}

func TestExecuteCountsFailures(t *testing.T) {
	provider := new(MockServiceProvider)
	provider.On("Definition").Return(mockDefinition())

	msg := "denied"
	provider.On("Execute", mock.Anything, "files.stat", mock.Anything, mock.Anything).
		Return(&types.Result{Success: false, Error: &msg, Kind: "ExcludedPath"}, errors.New(msg)).Twice()
	provider.On("Execute", mock.Anything, "files.read", mock.Anything, mock.Anything).
		Return(nil, errors.New("boom")).Once()

	r := NewRegistry()
	require.NoError(t, r.Register(provider))

	for i := 0; i < 2; i++ {
		result, err := r.Execute(context.Background(), "files.stat", nil, &types.Context{})
		assert.Error(t, err)
		require.NotNil(t, result)
		assert.Equal(t, "ExcludedPath", result.Kind)
	}
	result, err := r.Execute(context.Background(), "files.read", nil, &types.Context{})
	assert.Nil(t, result)
	assert.EqualError(t, err, "boom")

	provider.AssertExpectations(t)
	provider.AssertNumberOfCalls(t, "Execute", 3)

	calls, ok := r.Stats()["calls"].(map[string]map[string]int64)
	require.True(t, ok)
	assert.Equal(t, int64(2), calls["files.stat"]["failures"])
	assert.Equal(t, int64(1), calls["files.read"]["total"])
}

func TestExecuteUnknownService(t *testing.T) {
	provider := new(MockServiceProvider)
	provider.On("Definition").Return(mockDefinition())

	r := NewRegistry()
	require.NoError(t, r.Register(provider))

	result, err := r.Execute(context.Background(), "other.read", nil, &types.Context{})
	assert.Error(t, err)
	require.NotNil(t, result)
	assert.False(t, result.Success)

	provider.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
