package epu

import "sort"

// Named environments used by the baking tool, the inspector and tests.
var presets = map[string]func() Environment{
	"black":    func() Environment { return Environment{} },
	"studio":   studioPreset,
	"daylight": daylightPreset,
	"night":    nightPreset,
	"sunset":   sunsetPreset,
	"storm":    stormPreset,
	"cavern":   cavernPreset,
	"rift":     riftPreset,
}

// PresetNames returns the names accepted by Preset, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preset returns the named environment.
func Preset(name string) (Environment, bool) {
	fn, ok := presets[name]
	if !ok {
		return Environment{}, false
	}
	return fn(), true
}

func studioPreset() Environment {
	ramp := DefaultRampParams()
	ramp.SkyColor = RGB(230, 230, 235)
	ramp.WallColor = RGB(120, 120, 125)
	ramp.FloorColor = RGB(40, 40, 42)
	ramp.CeilQ, ramp.FloorQ = 10, 6

	key := DefaultLobeParams()
	key.Dir = V3(0.5, 0.7, 0.5)
	key.ColorA = RGB(255, 244, 230)
	key.Intensity = 150
	key.Exponent = 48

	return NewBuilder().Ramp(ramp).Lobe(key).Build()
}

func daylightPreset() Environment {
	sun := V3(0.3, 0.6, -0.7)

	ramp := DefaultRampParams()
	ramp.SkyColor = RGB(90, 150, 230)
	ramp.WallColor = RGB(190, 200, 210)
	ramp.FloorColor = RGB(90, 80, 60)
	ramp.CeilQ, ramp.FloorQ = 9, 7

	hills := DefaultSilhouetteParams()
	hills.SilhouetteColor = RGB(60, 80, 55)
	hills.Strength = 12

	air := DefaultAtmosphereParams()
	air.Sun = sun
	air.ColorA = RGB(110, 160, 240)
	air.ColorB = RGB(255, 230, 200)
	air.Intensity = 160

	body := DefaultCelestialParams()
	body.Dir = sun
	body.ColorA = RGB(255, 250, 235)
	body.ColorB = RGB(255, 220, 160)
	body.Intensity = 200

	clouds := DefaultFlowParams()
	clouds.ColorA = RGB(255, 255, 255)
	clouds.Intensity = 110

	ground := DefaultPlaneParams()
	ground.ColorA = RGB(110, 100, 80)
	ground.ColorB = RGB(90, 85, 70)
	ground.Variant = PlaneSand
	ground.Intensity = 180

	return NewBuilder().
		Ramp(ramp).Silhouette(hills).
		Atmosphere(air).Celestial(body).Flow(clouds).Plane(ground).
		Build()
}

func nightPreset() Environment {
	ramp := DefaultRampParams()
	ramp.SkyColor = RGB(4, 6, 20)
	ramp.WallColor = RGB(10, 12, 24)
	ramp.FloorColor = RGB(3, 3, 6)

	stars := DefaultScatterParams()
	stars.ColorA = RGB(255, 255, 240)
	stars.ColorB = RGB(180, 200, 255)
	stars.Twinkle = 6

	moon := DefaultCelestialParams()
	moon.Dir = V3(-0.4, 0.5, -0.75)
	moon.Variant = CelestialMoon
	moon.ColorA = RGB(220, 225, 235)
	moon.Phase = 96
	moon.Radius = 12
	moon.Intensity = 140

	aurora := DefaultVeilParams()
	aurora.ColorA = RGB(40, 255, 140)
	aurora.ColorB = RGB(120, 60, 255)
	aurora.Speed = 3
	aurora.Intensity = 120

	return NewBuilder().Ramp(ramp).Scatter(stars).Celestial(moon).Veil(aurora).Build()
}

func sunsetPreset() Environment {
	sun := V3(0.9, 0.05, -0.4)

	ramp := DefaultRampParams()
	ramp.SkyColor = RGB(70, 60, 130)
	ramp.WallColor = RGB(250, 130, 60)
	ramp.FloorColor = RGB(40, 25, 30)
	ramp.CeilQ, ramp.FloorQ = 9, 7

	air := DefaultAtmosphereParams()
	air.Sun = sun
	air.Variant = AtmosphereMie
	air.ColorA = RGB(240, 120, 70)
	air.ColorB = RGB(255, 200, 120)

	body := DefaultCelestialParams()
	body.Dir = sun
	body.ColorA = RGB(255, 180, 90)
	body.Radius = 24

	glow := DefaultBandParams()
	glow.ColorA = RGB(255, 120, 50)
	glow.Intensity = 120

	return NewBuilder().Ramp(ramp).Atmosphere(air).Celestial(body).Band(glow).Build()
}

func stormPreset() Environment {
	ramp := DefaultRampParams()
	ramp.SkyColor = RGB(50, 55, 65)
	ramp.WallColor = RGB(80, 85, 90)
	ramp.FloorColor = RGB(25, 25, 30)

	cover := DefaultPatchesParams()
	cover.SkyColor = RGB(70, 75, 85)
	cover.WallColor = RGB(45, 48, 55)
	cover.Coverage = 160

	rain := DefaultFlowParams()
	rain.Pattern = FlowStreaks
	rain.Axis = AxisY.Neg()
	rain.Region = RegionAll
	rain.Blend = BlendAdd
	rain.ColorA = RGB(170, 180, 200)
	rain.Intensity = 70
	rain.Speed = 96

	bolt := DefaultTraceParams()
	bolt.Variant = TraceLightning
	bolt.Anchor = V3(0.2, 0.8, -0.5)
	bolt.Region = RegionSky
	bolt.ColorA = RGB(220, 230, 255)
	bolt.Rate = 5
	bolt.Domain = 3

	return NewBuilder().Ramp(ramp).Patches(cover).Flow(rain).Trace(bolt).Build()
}

func cavernPreset() Environment {
	ramp := DefaultRampParams()
	ramp.SkyColor = RGB(30, 28, 26)
	ramp.WallColor = RGB(60, 50, 40)
	ramp.FloorColor = RGB(35, 30, 25)

	mouth := DefaultApertureParams()
	mouth.Variant = ApertureArch
	mouth.SkyColor = RGB(180, 200, 220)
	mouth.FrameColor = RGB(70, 60, 50)

	cells := DefaultCellParams()
	cells.GapColor = RGB(50, 45, 40)
	cells.WallColor = RGB(90, 75, 55)
	cells.Variant = CellInverted

	veins := DefaultTraceParams()
	veins.Variant = TraceVeins
	veins.Region = RegionWalls | RegionFloor
	veins.ColorA = RGB(255, 140, 40)
	veins.Intensity = 160

	crystals := DefaultScatterParams()
	crystals.Region = RegionWalls
	crystals.ColorA = RGB(120, 200, 255)
	crystals.Density = 96
	crystals.Twinkle = 3

	return NewBuilder().Ramp(ramp).Aperture(mouth).Cell(cells).
		Trace(veins).Scatter(crystals).Build()
}

func riftPreset() Environment {
	ramp := DefaultRampParams()
	ramp.SkyColor = RGB(20, 10, 35)
	ramp.WallColor = RGB(40, 20, 60)
	ramp.FloorColor = RGB(10, 5, 15)

	split := DefaultSplitParams()
	split.Variant = SplitBands
	split.Count = 96
	split.SkyColor = RGB(60, 30, 90)
	split.WallColor = RGB(140, 60, 200)

	portal := DefaultPortalParams()
	portal.ColorA = RGB(160, 80, 255)
	portal.ColorB = RGB(20, 240, 255)
	portal.Speed = 4

	grid := DefaultGridParams()
	grid.Region = RegionFloor
	grid.ColorA = RGB(200, 60, 255)
	grid.Scroll = 2
	grid.Domain = 1

	sigil := DefaultDecalParams()
	sigil.Shape = DecalRing
	sigil.Center = AxisY.Neg()
	sigil.ColorA = RGB(255, 80, 200)
	sigil.Pulse = 3
	sigil.Glow = 64

	return NewBuilder().Ramp(ramp).Split(split).Portal(portal).
		Grid(grid).Decal(sigil).Build()
}
