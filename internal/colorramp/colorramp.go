// Package colorramp holds the read-only named color-ramp registry used by
// renderPng, initialized once at startup per the concurrency model's
// "shared resources" contract.
package colorramp

import "image/color"

// Ramp is an ordered list of colors interpolated to the requested number of
// breaks at render time.
type Ramp []color.RGBA

// DefaultRamp is used whenever a requested color ramp name is unknown.
const DefaultRamp = "blue-to-red"

// Registry maps ramp name to its color stops. It is never mutated after
// package initialization.
var Registry = map[string]Ramp{
	"blue-to-red": {
		{R: 0, G: 0, B: 255, A: 255},
		{R: 128, G: 0, B: 128, A: 255},
		{R: 255, G: 0, B: 0, A: 255},
	},
	"viridis-like": {
		{R: 68, G: 1, B: 84, A: 255},
		{R: 59, G: 82, B: 139, A: 255},
		{R: 33, G: 145, B: 140, A: 255},
		{R: 94, G: 201, B: 98, A: 255},
		{R: 253, G: 231, B: 37, A: 255},
	},
	"greyscale": {
		{R: 0, G: 0, B: 0, A: 255},
		{R: 255, G: 255, B: 255, A: 255},
	},
}

// Lookup resolves name, falling back to DefaultRamp for an unknown name.
func Lookup(name string) Ramp {
	if r, ok := Registry[name]; ok {
		return r
	}
	return Registry[DefaultRamp]
}

// Interpolate stretches r to exactly n colors by linear interpolation
// across its stops. n must be >= 1.
func Interpolate(r Ramp, n int) []color.RGBA {
	if n <= 0 {
		n = 1
	}
	if len(r) == 0 {
		r = Registry[DefaultRamp]
	}
	if n == 1 {
		return []color.RGBA{r[len(r)/2]}
	}
	out := make([]color.RGBA, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n-1)
		pos := t * float64(len(r)-1)
		lo := int(pos)
		hi := lo + 1
		if hi >= len(r) {
			hi = len(r) - 1
		}
		frac := pos - float64(lo)
		out[i] = lerp(r[lo], r[hi], frac)
	}
	return out
}

func lerp(a, b color.RGBA, t float64) color.RGBA {
	return color.RGBA{
		R: lerp8(a.R, b.R, t),
		G: lerp8(a.G, b.G, t),
		B: lerp8(a.B, b.B, t),
		A: lerp8(a.A, b.A, t),
	}
}

func lerp8(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t)
}

// Names lists the registered ramp names, in no particular order.
func Names() []string {
	names := make([]string, 0, len(Registry))
	for n := range Registry {
		names = append(names, n)
	}
	return names
}
