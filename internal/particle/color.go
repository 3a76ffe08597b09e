package particle

import "gonum.org/v1/gonum/spatial/r3"

// Colors are linear RGB in [0,1], stored in an r3.Vec as {R, G, B}.
var (
	colorHotRed   = r3.Vec{X: 1.0, Y: 0.15, Z: 0.1}
	colorHotWhite = r3.Vec{X: 1.0, Y: 0.95, Z: 0.9}
	colorCyan     = r3.Vec{X: 0.2, Y: 0.9, Z: 1.0}
	colorGold     = r3.Vec{X: 1.0, Y: 0.8, Z: 0.2}
	colorViolet   = r3.Vec{X: 0.75, Y: 0.3, Z: 1.0}

	// Resting hues of the innermost and outermost layer.
	colorInnerRest = r3.Vec{X: 0.6, Y: 0.8, Z: 1.0}
	colorOuterRest = r3.Vec{X: 0.45, Y: 0.2, Z: 0.7}
)

func lerpColor(a, b r3.Vec, t float64) r3.Vec {
	return r3.Add(a, r3.Scale(clamp01(t), r3.Sub(b, a)))
}

// restColor is the resting hue of a layer: lighter and bluer inside,
// darker and more violet outside.
func restColor(layer, layers int) r3.Vec {
	if layers <= 1 {
		return colorInnerRest
	}
	return lerpColor(colorInnerRest, colorOuterRest, float64(layer)/float64(layers-1))
}

// heatColor goes from red at the rim to white at the center.
func heatColor(proximity float64) r3.Vec {
	return lerpColor(colorHotRed, colorHotWhite, proximity)
}
