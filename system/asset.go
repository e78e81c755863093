package system

import (
	"time"

	"github.com/lixenwraith/perfgov/asset"
	"github.com/lixenwraith/perfgov/engine"
	"github.com/lixenwraith/perfgov/parameter"
)

// AssetSystem settles async loads so that budget registration precedes classification
type AssetSystem struct {
	loader *asset.Loader
}

func NewAssetSystem(l *asset.Loader) engine.System {
	return &AssetSystem{loader: l}
}

func (s *AssetSystem) Name() string { return "asset" }

func (s *AssetSystem) Priority() int { return parameter.PriorityAsset }

func (s *AssetSystem) Update(time.Duration) {
	s.loader.Update()
}
