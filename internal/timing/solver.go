// Package timing is the single timing primitive of the engine: a closed-form
// solver for angular motion under the locally-linear model. Every other
// component (void-of-course, perfection, prohibition scans) calls into this
// package, so it is pure, deterministic and side-effect free.
package timing

import (
	"fmt"
	"math"

	"github.com/aziz13-coder/newcodexhorary/internal/config"
	"github.com/aziz13-coder/newcodexhorary/internal/domain"
	"github.com/aziz13-coder/newcodexhorary/internal/ephemeris"
)

// minRelativeSpeed below which two bodies are treated as motionless relative
// to each other (degenerate geometry, no solution).
const minRelativeSpeed = 1e-6

// FutureAspectTime solves when pos1 and pos2 next perfect the given aspect,
// advancing both longitudes linearly by their signed daily speeds:
//
//	lon1 + v1*t = lon2 + v2*t + target (mod 360)
//
// Aspects other than conjunction and opposition have two geometric targets
// (the pair can stand at +60 or -60 for a sextile); both are solved and the
// smallest positive t wins, which also makes the function symmetric in its
// arguments. It returns 0 and false when the relative speed is ~0, the
// algebraic solution is non-positive (the aspect lies behind, separating),
// or the solution exceeds maxDays.
func FutureAspectTime(pos1, pos2 domain.PlanetPosition, aspect domain.Aspect, maxDays float64) (float64, bool) {
	relativeSpeed := pos1.Speed - pos2.Speed
	if math.Abs(relativeSpeed) < minRelativeSpeed {
		return 0, false
	}

	best := math.Inf(1)
	for _, target := range aspectTargets(aspect) {
		delta := math.Mod(pos2.Longitude+target-pos1.Longitude, 360.0)
		if delta >= 180.0 {
			delta -= 360.0
		} else if delta < -180.0 {
			delta += 360.0
		}
		t := delta / relativeSpeed
		if t > 0 && t <= maxDays && t < best {
			best = t
		}
	}
	if math.IsInf(best, 1) {
		return 0, false
	}
	return best, true
}

// aspectTargets returns the angular offsets at which the aspect is exact.
func aspectTargets(a domain.Aspect) []float64 {
	d := a.Degrees()
	if d == 0 || d == 180 {
		return []float64{d}
	}
	return []float64{d, 360 - d}
}

// DaysToSignExit projects how long the body stays inside its current
// 30-degree sign, direction-aware: prograde bodies exit forward, retrograde
// bodies exit backward. ok is false for a stationary body.
func DaysToSignExit(longitude, speed float64) (float64, bool) {
	if speed == 0 {
		return 0, false
	}
	degreesInSign := math.Mod(longitude, 30.0)
	if degreesInSign < 0 {
		degreesInSign += 30.0
	}
	var remaining float64
	if speed > 0 {
		remaining = 30.0 - degreesInSign
	} else {
		remaining = degreesInSign
	}
	return remaining / math.Abs(speed), true
}

// SignedOrb returns the signed difference from the exact aspect in the range
// [-180, 180), measured against the nearer of the aspect's two geometric
// targets. The orb widens when it and the relative speed share a sign.
func SignedOrb(pos1, pos2 domain.PlanetPosition, aspect domain.Aspect) float64 {
	best := math.Inf(1)
	var signed float64
	for _, target := range aspectTargets(aspect) {
		diff := math.Mod(pos1.Longitude-pos2.Longitude-target+180.0, 360.0)
		if diff < 0 {
			diff += 360.0
		}
		diff -= 180.0
		if math.Abs(diff) < best {
			best = math.Abs(diff)
			signed = diff
		}
	}
	return signed
}

// OrbMotion returns the signed rate of change of the orb between two bodies
// for an aspect. Positive means widening (separating), negative narrowing
// (applying).
func OrbMotion(pos1, pos2 domain.PlanetPosition, aspect domain.Aspect) float64 {
	return SignedOrb(pos1, pos2, aspect) * (pos1.Speed - pos2.Speed)
}

// IsApplying reports whether the two bodies are applying to the aspect and
// will perfect it before either exits its current sign.
func IsApplying(pos1, pos2 domain.PlanetPosition, aspect domain.Aspect) bool {
	diff := SignedOrb(pos1, pos2, aspect)
	if !WillPerfectBeforeSignExit(pos1, pos2, math.Abs(diff)) {
		return false
	}
	return diff*(pos1.Speed-pos2.Speed) < 0
}

// WillPerfectBeforeSignExit estimates whether an aspect currentOrb degrees
// from exact perfects before either body leaves its sign.
func WillPerfectBeforeSignExit(pos1, pos2 domain.PlanetPosition, currentOrb float64) bool {
	relativeSpeed := math.Abs(pos1.Speed - pos2.Speed)
	if relativeSpeed == 0 {
		return false
	}
	daysToPerfect := currentOrb / relativeSpeed

	if exit1, ok := DaysToSignExit(pos1.Longitude, pos1.Speed); ok && daysToPerfect > exit1 {
		return false
	}
	if exit2, ok := DaysToSignExit(pos2.Longitude, pos2.Speed); ok && daysToPerfect > exit2 {
		return false
	}
	return true
}

// Separation returns the angular separation between two longitudes in [0, 180].
func Separation(lon1, lon2 float64) float64 {
	sep := math.Abs(lon1 - lon2)
	sep = math.Mod(sep, 360.0)
	if sep > 180.0 {
		sep = 360.0 - sep
	}
	return sep
}

// OrbToAspect returns the current distance in degrees from exact aspect.
func OrbToAspect(pos1, pos2 domain.PlanetPosition, aspect domain.Aspect) float64 {
	orb := math.Abs(Separation(pos1.Longitude, pos2.Longitude) - aspect.Degrees())
	if orb > 180.0 {
		orb = 360.0 - orb
	}
	return orb
}

// FutureLongitude advances a body linearly by its speed for the given days.
func FutureLongitude(pos domain.PlanetPosition, days float64) float64 {
	lon := math.Mod(pos.Longitude+pos.Speed*days, 360.0)
	if lon < 0 {
		lon += 360.0
	}
	return lon
}

// MoietyOrb returns the traditional combined moiety orb for a planet pair,
// scaled by aspect class: conjunction/opposition keep the full sum, trine and
// square are slightly reduced, sextile is the most restrictive.
func MoietyOrb(orbs config.Orbs, p1, p2 domain.Planet, aspect domain.Aspect) float64 {
	combined := orbs.Moieties.Of(string(p1)) + orbs.Moieties.Of(string(p2))
	switch aspect {
	case domain.Conjunction, domain.Opposition:
		return combined
	case domain.Trine, domain.Square:
		return combined * 0.85
	case domain.Sextile:
		return combined * 0.7
	}
	return combined * 0.8
}

// AspectOrb returns the configured orb for an aspect type with luminary
// bonuses, the fallback when the moiety system is disabled.
func AspectOrb(orbs config.Orbs, aspect domain.Aspect, p1, p2 domain.Planet) float64 {
	var base float64
	switch aspect {
	case domain.Conjunction:
		base = orbs.Conjunction
	case domain.Sextile:
		base = orbs.Sextile
	case domain.Square:
		base = orbs.Square
	case domain.Trine:
		base = orbs.Trine
	case domain.Opposition:
		base = orbs.Opposition
	}
	if p1 == domain.Sun || p2 == domain.Sun {
		base += orbs.SunOrbBonus
	}
	if p1 == domain.Moon || p2 == domain.Moon {
		base += orbs.MoonOrbBonus
	}
	return base
}

// DaysToNextStation asks the ephemeris provider for the body's next motion
// reversal after the chart epoch. ok is false when no station occurs within
// the horizon.
func DaysToNextStation(provider ephemeris.Provider, planet domain.Planet, jd, horizonDays float64) (float64, bool, error) {
	if provider == nil {
		return 0, false, nil
	}
	stationJD, found, err := provider.NextStation(planet, jd, horizonDays)
	if err != nil {
		return 0, false, fmt.Errorf("station lookup for %s: %w", planet, err)
	}
	if !found {
		return 0, false, nil
	}
	return stationJD - jd, true, nil
}

// FormatDays renders a perfection ETA as a rough human timeframe.
func FormatDays(days float64) string {
	switch {
	case days < 0.5:
		return "Within hours"
	case days < 1:
		return "Within a day"
	case days < 7:
		return fmt.Sprintf("Within %d days", int(days))
	case days < 30:
		return fmt.Sprintf("Within %d weeks", int(days/7))
	case days < 365:
		return fmt.Sprintf("Within %d months", int(days/30))
	}
	return "More than a year"
}
