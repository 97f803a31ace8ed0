package moon

import (
	"math"

	"github.com/aziz13-coder/newcodexhorary/internal/config"
	"github.com/aziz13-coder/newcodexhorary/internal/domain"
	"github.com/aziz13-coder/newcodexhorary/internal/timing"
)

// NextAspect returns the Moon's soonest applying aspect to any other chart
// body. Cross-sign perfection is disallowed: the aspect must perfect before
// the Moon changes signs. Returns nil when no applying aspect qualifies.
func NextAspect(chart *domain.Chart, cfg config.Engine) *domain.LunarAspect {
	moonPos, ok := chart.Position(domain.Moon)
	if !ok {
		return nil
	}
	moonExit, moonExitOK := timing.DaysToSignExit(moonPos.Longitude, moonPos.Speed)

	var best *domain.LunarAspect
	for planet, pos := range chart.Planets {
		if planet == domain.Moon {
			continue
		}
		separation := timing.Separation(moonPos.Longitude, pos.Longitude)

		for _, aspect := range domain.PtolemaicAspects {
			orbDiff := math.Abs(separation - aspect.Degrees())
			maxOrb := timing.AspectOrb(cfg.Orbs, aspect, domain.Moon, planet)
			if orbDiff > maxOrb {
				continue
			}
			if timing.OrbMotion(moonPos, pos, aspect) >= 0 {
				continue // separating or static
			}
			relativeSpeed := math.Abs(moonPos.Speed - pos.Speed)
			if relativeSpeed == 0 {
				continue
			}
			eta := orbDiff / relativeSpeed
			if moonExitOK && eta > moonExit {
				continue
			}

			candidate := &domain.LunarAspect{
				Planet:      planet,
				Aspect:      aspect,
				Orb:         orbDiff,
				ETADays:     eta,
				Description: timing.FormatDays(eta),
				Applying:    true,
			}
			if best == nil || candidate.ETADays < best.ETADays ||
				(candidate.ETADays == best.ETADays && candidate.Planet < best.Planet) {
				best = candidate
			}
		}
	}
	return best
}

// separatingOrbFactor widens the search orb when looking backwards for the
// most recent separation.
const separatingOrbFactor = 1.5

// LastAspect returns the Moon's most recent separating aspect, or nil.
func LastAspect(chart *domain.Chart, cfg config.Engine) *domain.LunarAspect {
	moonPos, ok := chart.Position(domain.Moon)
	if !ok {
		return nil
	}

	var best *domain.LunarAspect
	for planet, pos := range chart.Planets {
		if planet == domain.Moon {
			continue
		}
		separation := timing.Separation(moonPos.Longitude, pos.Longitude)

		for _, aspect := range domain.PtolemaicAspects {
			orbDiff := math.Abs(separation - aspect.Degrees())
			maxOrb := timing.AspectOrb(cfg.Orbs, aspect, domain.Moon, planet)
			if orbDiff > maxOrb*separatingOrbFactor {
				continue
			}
			if timing.OrbMotion(moonPos, pos, aspect) <= 0 {
				continue // applying or static
			}
			relativeSpeed := math.Abs(moonPos.Speed - pos.Speed)
			if relativeSpeed == 0 {
				continue
			}
			since := orbDiff / relativeSpeed

			candidate := &domain.LunarAspect{
				Planet:      planet,
				Aspect:      aspect,
				Orb:         orbDiff,
				ETADays:     since,
				Description: timing.FormatDays(since) + " ago",
				Applying:    false,
			}
			if best == nil || candidate.ETADays < best.ETADays ||
				(candidate.ETADays == best.ETADays && candidate.Planet < best.Planet) {
				best = candidate
			}
		}
	}
	return best
}
