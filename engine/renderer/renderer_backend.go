package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-hal/config"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/backend/null_backend"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/backend/wgpu_backend"
	"github.com/Carmen-Shannon/oxy-hal/log"
)

var logger = log.New("renderer")

// RendererBackendType identifies the native backend a Renderer runs on.
type RendererBackendType string

const (
	// BackendTypeNull selects the host-memory software backend.
	BackendTypeNull RendererBackendType = "null"

	// BackendTypeWGPU selects the WebGPU-based backend.
	BackendTypeWGPU RendererBackendType = "wgpu"
)

// OpenDevice opens the backend device the configuration selects.
//
// Parameters:
//   - cfg: the engine configuration; only the renderer and null sections are read
//
// Returns:
//   - backend.Device: the opened device
//   - error: an error if the backend is unknown or the device request fails
func OpenDevice(cfg config.Config) (backend.Device, error) {
	switch RendererBackendType(cfg.Renderer.Backend) {
	case BackendTypeNull:
		var options []null_backend.DeviceBuilderOption
		if cfg.Null.HalfFloat != nil {
			options = append(options, null_backend.WithHalfFloat(*cfg.Null.HalfFloat))
		}
		if cfg.Null.PackedColor != nil {
			options = append(options, null_backend.WithPackedColor(*cfg.Null.PackedColor))
		}
		return null_backend.NewDevice(options...), nil
	case BackendTypeWGPU:
		return wgpu_backend.NewDevice(wgpu_backend.WithForceFallbackAdapter(cfg.Renderer.ForceFallbackAdapter))
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Renderer.Backend)
	}
}
