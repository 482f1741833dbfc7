package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateHaversineDistance(t *testing.T) {
	t.Run("same point is zero", func(t *testing.T) {
		assert.Equal(t, 0.0, CalculateHaversineDistance(-6.2, 106.8, -6.2, 106.8))
	})

	t.Run("symmetric", func(t *testing.T) {
		pairs := [][4]float64{
			{-6.2088, 106.8456, -6.9175, 107.6191},
			{51.5074, -0.1278, 48.8566, 2.3522},
			{0, 0, 0, 10},
		}
		for _, p := range pairs {
			ab := CalculateHaversineDistance(p[0], p[1], p[2], p[3])
			ba := CalculateHaversineDistance(p[2], p[3], p[0], p[1])
			assert.InDelta(t, ab, ba, 1e-6)
		}
	})

	t.Run("one degree of longitude at the equator", func(t *testing.T) {
		d := CalculateHaversineDistance(0, 0, 0, 1)
		assert.InDelta(t, 111194.93, d, 0.5)
	})

	t.Run("london to paris", func(t *testing.T) {
		d := CalculateHaversineDistance(51.5074, -0.1278, 48.8566, 2.3522)
		assert.InDelta(t, 343556, d, 500)
	})
}

func TestRoundTo(t *testing.T) {
	assert.Equal(t, 12.35, RoundTo(12.3456, 2))
	assert.Equal(t, 100.0, RoundTo(99.9999, 2))
}
