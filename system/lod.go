package system

import (
	"sync/atomic"
	"time"

	"github.com/lixenwraith/perfgov/lod"
	"github.com/lixenwraith/perfgov/parameter"
)

// LODSystem re-bands tracked objects against the current camera
// The camera may be swapped from outside the tick thread
type LODSystem struct {
	calc   *lod.Calculator
	camera atomic.Pointer[lod.CameraProvider]
}

// NewLODSystem creates the LOD system; a nil camera sits at the origin and sees everything
func NewLODSystem(calc *lod.Calculator, cam lod.CameraProvider) *LODSystem {
	s := &LODSystem{calc: calc}
	s.SetCamera(cam)
	return s
}

// SetCamera replaces the viewpoint used on the next pass
func (s *LODSystem) SetCamera(cam lod.CameraProvider) {
	if cam == nil {
		cam = lod.StaticCamera{}
	}
	s.camera.Store(&cam)
}

func (s *LODSystem) Name() string { return "lod" }

func (s *LODSystem) Priority() int { return parameter.PriorityLOD }

func (s *LODSystem) Update(time.Duration) {
	s.calc.Update(*s.camera.Load())
}
