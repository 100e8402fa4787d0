package epu

import "fmt"

// RegionWeights partitions a direction between sky, walls and floor.
// Bounds opcodes always produce weights that sum to 1.
type RegionWeights struct {
	Sky, Wall, Floor float32
}

// Fixed region triples.
var (
	AllSky   = RegionWeights{Sky: 1}
	AllWall  = RegionWeights{Wall: 1}
	AllFloor = RegionWeights{Floor: 1}
)

// Sum returns Sky + Wall + Floor.
func (r RegionWeights) Sum() float32 { return r.Sky + r.Wall + r.Floor }

// Masked returns the sum of the weights selected by mask.
func (r RegionWeights) Masked(mask Region) float32 {
	var w float32
	if mask&RegionSky != 0 {
		w += r.Sky
	}
	if mask&RegionWalls != 0 {
		w += r.Wall
	}
	if mask&RegionFloor != 0 {
		w += r.Floor
	}
	return w
}

// Lerp interpolates two triples. The result sums to 1 when both inputs do.
func (r RegionWeights) Lerp(o RegionWeights, t float32) RegionWeights {
	return RegionWeights{
		Sky:   mix(r.Sky, o.Sky, t),
		Wall:  mix(r.Wall, o.Wall, t),
		Floor: mix(r.Floor, o.Floor, t),
	}
}

func (r RegionWeights) String() string {
	return fmt.Sprintf("{sky:%.3f wall:%.3f floor:%.3f}", r.Sky, r.Wall, r.Floor)
}

// minBand keeps smoothstep edges non-degenerate.
const minBand = 1e-4

// RegionsFromSignedDistance maps a signed distance (negative inside, sky;
// positive outside, floor) to a region triple. The wall occupies the band
// [-band, band] around the boundary. Wall is the remainder so the triple
// sums to exactly 1.
func RegionsFromSignedDistance(d, band float32) RegionWeights {
	band = max(band, minBand)
	sky := 1 - smoothstep(-band, 0, d)
	floor := smoothstep(0, band, d)
	return RegionWeights{Sky: sky, Floor: floor, Wall: 1 - sky - floor}
}

// RegionsFromFrame maps an opening's signed distance to sky inside the
// opening, wall across a frame of the given thickness and floor beyond it.
func RegionsFromFrame(d, thickness, soft float32) RegionWeights {
	soft = max(soft, minBand)
	thickness = max(thickness, 0)
	sky := 1 - smoothstep(-soft, soft, d)
	floor := smoothstep(thickness-soft, thickness+soft, d)
	floor = min(floor, 1-sky)
	return RegionWeights{Sky: sky, Floor: floor, Wall: 1 - sky - floor}
}

// BoundsCompose selects how a bounds layer combines with the regions left
// by earlier bounds layers. The region mask field of bounds opcodes is read
// differently under each policy.
type BoundsCompose uint8

const (
	// ComposeReplace makes every bounds layer replace the regions and the
	// bounds direction. The region mask of bounds layers is ignored.
	ComposeReplace BoundsCompose = iota

	// ComposeMask reads the region mask of bounds layers as a compose
	// selector: ALL replaces, NONE leaves the state untouched and draws
	// nothing, any other mask blends toward the new regions by the previous
	// weight of the masked regions.
	ComposeMask
)

func (c BoundsCompose) String() string {
	switch c {
	case ComposeReplace:
		return "replace"
	case ComposeMask:
		return "mask"
	}
	return fmt.Sprintf("BoundsCompose(%d)", uint8(c))
}

// ParseBoundsCompose parses "replace" or "mask".
func ParseBoundsCompose(s string) (BoundsCompose, error) {
	switch s {
	case "replace", "":
		return ComposeReplace, nil
	case "mask":
		return ComposeMask, nil
	}
	return ComposeReplace, fmt.Errorf("%w: unknown bounds compose %q", ErrInvalidSettings, s)
}

// boundsState is the state threaded from layer to layer.
type boundsState struct {
	dir     Vec3
	regions RegionWeights
}

// initialBounds is the compositor's starting state: +Y up and everything sky.
func initialBounds() boundsState {
	return boundsState{dir: AxisY, regions: AllSky}
}

// composeBounds folds a bounds layer's output into the threaded state.
// It returns the new state and the factor applied to the layer's own sample.
func composeBounds(policy BoundsCompose, mask Region, prev, next boundsState) (boundsState, float32) {
	if policy != ComposeMask {
		return next, 1
	}
	switch mask & RegionAll {
	case RegionAll:
		return next, 1
	case RegionNone:
		return prev, 0
	}
	w := saturate(prev.regions.Masked(mask))
	return boundsState{
		dir:     next.dir,
		regions: prev.regions.Lerp(next.regions, w),
	}, w
}
