package moon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aziz13-coder/newcodexhorary/internal/config"
	"github.com/aziz13-coder/newcodexhorary/internal/domain"
)

func makePos(planet domain.Planet, lon, speed float64) domain.PlanetPosition {
	return domain.PlanetPosition{
		Planet:     planet,
		Longitude:  lon,
		Sign:       domain.SignOf(lon),
		Speed:      speed,
		Retrograde: speed < 0,
	}
}

func chartWith(positions ...domain.PlanetPosition) *domain.Chart {
	planets := make(map[domain.Planet]domain.PlanetPosition, len(positions))
	for _, pos := range positions {
		planets[pos.Planet] = pos
	}
	return &domain.Chart{Planets: planets}
}

func TestVoidOfCourse_LateMoonNoAspectBeforeExit(t *testing.T) {
	// Moon at 29 Cancer exits in ~0.08 days; the Saturn conjunction needs
	// ~0.46 days, so nothing completes in sign.
	chart := chartWith(
		makePos(domain.Moon, 119.0, 13.2),
		makePos(domain.Saturn, 125.0, 0.05),
	)

	result := VoidOfCourse(chart, config.DefaultEngine())
	assert.True(t, result.Void)
	assert.Contains(t, result.Reason, "Cancer")
	assert.InDelta(t, 1.0, result.DegreesLeftInSign, 1e-9)
	assert.Nil(t, result.Next)
}

func TestVoidOfCourse_TrineBeforeExitNamesBodyAndAspect(t *testing.T) {
	// Moon at 15 Cancer applying to a trine of Mars at 16 Pisces, one degree
	// from exact. Perfection in ~0.08 days, well inside both signs.
	chart := chartWith(
		makePos(domain.Moon, 105.0, 13.2),
		makePos(domain.Mars, 346.0, 0.5),
	)

	result := VoidOfCourse(chart, config.DefaultEngine())
	assert.False(t, result.Void)
	assert.Contains(t, result.Reason, "trine")
	assert.Contains(t, result.Reason, "Mars")

	require.NotNil(t, result.Next)
	assert.Equal(t, domain.Mars, result.Next.Planet)
	assert.Equal(t, domain.Trine, result.Next.Aspect)
	assert.InDelta(t, 1.0/12.7, result.Next.Days, 1e-6)
	assert.InDelta(t, 1.0, result.Next.Orb, 1e-9)
}

func TestVoidOfCourse_StationaryMoonNeverVoid(t *testing.T) {
	chart := chartWith(
		makePos(domain.Moon, 119.0, 0.005),
		makePos(domain.Saturn, 125.0, 0.05),
	)

	result := VoidOfCourse(chart, config.DefaultEngine())
	assert.False(t, result.Void)
	assert.Contains(t, result.Reason, "stationary")
}

func TestNextAspect_PicksSoonestApplying(t *testing.T) {
	chart := chartWith(
		makePos(domain.Moon, 105.0, 13.2),
		makePos(domain.Mars, 346.0, 0.5),
	)

	next := NextAspect(chart, config.DefaultEngine())
	require.NotNil(t, next)
	assert.Equal(t, domain.Mars, next.Planet)
	assert.Equal(t, domain.Trine, next.Aspect)
	assert.True(t, next.Applying)
	assert.InDelta(t, 1.0/12.7, next.ETADays, 1e-6)
}

func TestNextAspect_NilWhenNothingPerfectsInSign(t *testing.T) {
	chart := chartWith(
		makePos(domain.Moon, 119.0, 13.2),
		makePos(domain.Saturn, 125.0, 0.05),
	)

	assert.Nil(t, NextAspect(chart, config.DefaultEngine()))
}

func TestLastAspect_FindsRecentSeparation(t *testing.T) {
	// Moon five degrees past the Venus conjunction and pulling away.
	chart := chartWith(
		makePos(domain.Moon, 105.0, 13.2),
		makePos(domain.Venus, 100.0, 1.2),
	)

	last := LastAspect(chart, config.DefaultEngine())
	require.NotNil(t, last)
	assert.Equal(t, domain.Venus, last.Planet)
	assert.Equal(t, domain.Conjunction, last.Aspect)
	assert.False(t, last.Applying)
	assert.InDelta(t, 5.0/12.0, last.ETADays, 1e-6)
	assert.Contains(t, last.Description, "ago")
}
