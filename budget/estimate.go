package budget

import (
	"time"

	"github.com/gopxl/beep"

	"github.com/lixenwraith/perfgov/parameter"
)

// Estimates are approximate; eviction only relies on their relative order

// TextureSize estimates a pixel buffer, optionally with a full mip chain
func TextureSize(width, height, bytesPerPixel int, mipmapped bool) int64 {
	if width <= 0 || height <= 0 || bytesPerPixel <= 0 {
		return 0
	}
	size := float64(width) * float64(height) * float64(bytesPerPixel)
	if mipmapped {
		size *= parameter.MipChainFactor
	}
	return int64(size)
}

// MeshSize estimates vertex and index buffers
func MeshSize(vertices, indices int) int64 {
	if vertices < 0 {
		vertices = 0
	}
	if indices < 0 {
		indices = 0
	}
	return int64(vertices)*parameter.BytesPerVertex + int64(indices)*parameter.BytesPerIndex
}

// AudioSize estimates a decoded PCM buffer of duration d in format f
func AudioSize(f beep.Format, d time.Duration) int64 {
	if d <= 0 || f.SampleRate <= 0 || f.NumChannels <= 0 || f.Precision <= 0 {
		return 0
	}
	return int64(f.SampleRate.N(d)) * int64(f.NumChannels) * int64(f.Precision)
}
