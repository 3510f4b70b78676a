package engine

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-hal/common"
	"github.com/Carmen-Shannon/oxy-hal/config"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/backend/null_backend"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/resource"
	"github.com/Carmen-Shannon/oxy-hal/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubWindow struct {
	running   bool
	iconified bool
	polls     int
	closed    bool
	onIconify func(bool)
}

func (w *stubWindow) SetResizeCallback(func(int, int)) {}
func (w *stubWindow) SetIconifyCallback(cb func(bool)) { w.onIconify = cb }
func (w *stubWindow) Iconified() bool { return w.iconified }
func (w *stubWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor { return nil }
func (w *stubWindow) IsRunning() bool { return w.running }
func (w *stubWindow) Width() int { return 800 }
func (w *stubWindow) Height() int { return 600 }

func (w *stubWindow) Poll() bool {
	w.polls++
	return w.running
}

func (w *stubWindow) Close() error {
	w.running = false
	w.closed = true
	return nil
}

func (w *stubWindow) minimize(v bool) {
	w.iconified = v
	if w.onIconify != nil {
		w.onIconify(v)
	}
}

func stubRuntime(terminates *int) *window.Runtime {
	return window.NewRuntime(window.WithHooks(
		func() error { return nil },
		func() { *terminates++ },
		func(func(bool)) {},
	))
}

func TestHeadlessEngine(t *testing.T) {
	cfg := config.Default()
	cfg.Profiler.Interval = "0s"

	ticks := 0
	e, err := NewEngine(cfg, WithTickCallback(func(float32) { ticks++ }))
	require.NoError(t, err)
	assert.Nil(t, e.Window())
	assert.Equal(t, "null", e.Renderer().Device().Name())
	assert.Equal(t, common.LanguageGLSL, e.Renderer().ShaderLanguage())

	running, err := e.Tick()
	require.NoError(t, err)
	assert.True(t, running)
	assert.Equal(t, 1, ticks)

	e.Quit()
	running, err = e.Tick()
	require.NoError(t, err)
	assert.False(t, running)
	assert.Equal(t, 1, ticks)

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
}

func TestEngineRejectsUnsupportedLanguage(t *testing.T) {
	cfg := config.Default()
	cfg.Renderer.ShaderLanguage = string(common.LanguageWGSL)

	_, err := NewEngine(cfg, WithDevice(null_backend.NewDevice(null_backend.WithLanguages(common.LanguageGLSL))))
	assert.ErrorIs(t, err, backend.ErrUnsupported)

	cfg.Log.Level = "chatty"
	_, err = NewEngine(cfg)
	assert.Error(t, err)
}

func TestEngineRestoresAfterMinimize(t *testing.T) {
	terminates := 0
	win := &stubWindow{running: true}
	d := null_backend.NewDevice()

	e, err := NewEngine(config.Default(), WithDevice(d), WithWindow(win), WithRuntime(stubRuntime(&terminates)), WithProfiling(false))
	require.NoError(t, err)

	b := e.Renderer().NewBuffer("scratch")
	require.NoError(t, b.SetElementSize(4))
	require.NoError(t, b.Allocate(16, common.UsageDynamic, false))

	win.minimize(true)
	assert.Equal(t, resource.StateBackedUp, b.State())

	running, err := e.Tick()
	require.NoError(t, err)
	assert.True(t, running)
	assert.Equal(t, resource.StateBackedUp, b.State(), "still minimized")

	win.minimize(false)
	_, err = e.Tick()
	require.NoError(t, err)
	assert.Equal(t, resource.StateLive, b.State())
	assert.Equal(t, 2, win.polls)

	win.running = false
	running, err = e.Tick()
	require.NoError(t, err)
	assert.False(t, running)

	require.NoError(t, e.Close())
	assert.Equal(t, 1, terminates)
	assert.Equal(t, 0, d.LiveBuffers())
}
