package modhost

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(msg string, args ...any) { m.Called(msg, args) }
func (m *MockLogger) Info(msg string, args ...any)  { m.Called(msg, args) }
func (m *MockLogger) Warn(msg string, args ...any)  { m.Called(msg, args) }
func (m *MockLogger) Error(msg string, args ...any) { m.Called(msg, args) }

func TestSlogSatisfiesLogger(t *testing.T) {
	var buf bytes.Buffer
	var logger Logger = slog.New(slog.NewTextHandler(&buf, nil))

	logger.Info("Module started", "module", "demo:core")
	assert.Contains(t, buf.String(), "module=demo:core")
	assert.NotPanics(t, func() { NopLogger().Error("discarded") })
}

func TestTransitionsLogModuleAttribution(t *testing.T) {
	logger := new(MockLogger)
	logger.On("Info", "Module loaded", []any{"module", "demo:core", "group", "demo", "version", "1.0"}).Once()
	logger.On("Info", "Module started", []any{"module", "demo:core", "group", "demo", "version", "1.0"}).Once()
	logger.On("Info", mock.Anything, mock.Anything).Maybe()
	logger.On("Debug", mock.Anything, mock.Anything).Maybe()

	h := newTestHost(t, WithLogger(logger))
	w := h.load(t, demoManifest("core"))
	require.NoError(t, w.Start(context.Background()))

	logger.AssertExpectations(t)
}
