package systems

import (
	"github.com/aquilax/go-perlin"
)

// Perlin generator defaults: smoothing, frequency and octave count.
const (
	noiseAlpha   = 2.0
	noiseBeta    = 2.0
	noiseOctaves = int32(3)
)

// PerlinNoise generates coherent noise values.
type PerlinNoise struct {
	p *perlin.Perlin
}

// NewPerlinNoise creates a new Perlin noise generator.
func NewPerlinNoise(seed int64) *PerlinNoise {
	return &PerlinNoise{p: perlin.NewPerlin(noiseAlpha, noiseBeta, noiseOctaves, seed)}
}

// Noise2D returns a noise value for 2D coordinates, roughly in [-1, 1].
func (n *PerlinNoise) Noise2D(x, y float64) float64 {
	return n.p.Noise2D(x, y)
}

// Noise01 returns Noise2D remapped to [0, 1].
func (n *PerlinNoise) Noise01(x, y float64) float64 {
	v := (n.p.Noise2D(x, y) + 1) / 2
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
