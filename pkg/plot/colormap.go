package plot

import (
	"image/color"
	"math"
)

// Colormap linearly interpolates between evenly spaced color stops.
type Colormap []color.NRGBA

// Viridis approximates matplotlib's default sequential map.
var Viridis = Colormap{
	{68, 1, 84, 255},
	{59, 82, 139, 255},
	{33, 145, 140, 255},
	{94, 201, 98, 255},
	{253, 231, 37, 255},
}

// Diverging runs blue through white to red.
var Diverging = Colormap{
	{33, 102, 172, 255},
	{247, 247, 247, 255},
	{178, 24, 43, 255},
}

// At returns the color at t in [0, 1]. Values outside are clamped.
func (m Colormap) At(t float64) color.NRGBA {
	if len(m) == 0 {
		return color.NRGBA{A: 255}
	}
	if len(m) == 1 || t <= 0 {
		return m[0]
	}
	if t >= 1 {
		return m[len(m)-1]
	}
	pos := t * float64(len(m)-1)
	i := int(math.Floor(pos))
	f := pos - float64(i)
	a, b := m[i], m[i+1]
	mix := func(x, y uint8) uint8 { return uint8(math.Round(float64(x) + f*(float64(y)-float64(x)))) }
	return color.NRGBA{mix(a.R, b.R), mix(a.G, b.G), mix(a.B, b.B), 255}
}
