package server

import (
	"fmt"
	"math"
	"time"

	"github.com/aziz13-coder/newcodexhorary/internal/config"
	"github.com/aziz13-coder/newcodexhorary/internal/domain"
	"github.com/aziz13-coder/newcodexhorary/internal/moon"
	"github.com/aziz13-coder/newcodexhorary/internal/timing"
)

// prepareChart normalizes a submitted chart and fills the derived fields the
// engine expects: signs, the in-orb aspect table, and the Moon's next and
// last aspects. Submitted positions carry only longitude, latitude, speed
// and house; everything else is computed here.
func prepareChart(chart *domain.Chart, cfg config.Engine) error {
	if len(chart.Planets) == 0 {
		return fmt.Errorf("chart has no planet positions")
	}
	if chart.AskedAt.IsZero() {
		chart.AskedAt = time.Now().UTC()
	}

	for planet, pos := range chart.Planets {
		if pos.Planet == "" {
			pos.Planet = planet
		}
		if pos.Planet != planet {
			return fmt.Errorf("position keyed %s names planet %s", planet, pos.Planet)
		}
		pos.Sign = domain.SignOf(pos.Longitude)
		pos.Retrograde = pos.Speed < 0
		chart.Planets[planet] = pos
	}

	chart.Aspects = computeAspects(chart, cfg)
	chart.MoonNextAsp = moon.NextAspect(chart, cfg)
	chart.MoonLastAsp = moon.LastAspect(chart, cfg)
	return nil
}

// computeAspects builds the in-orb aspect table over the classical bodies in
// conventional order, so repeated submissions derive an identical chart.
func computeAspects(chart *domain.Chart, cfg config.Engine) []domain.AspectInfo {
	var aspects []domain.AspectInfo
	for i, p1 := range domain.ClassicalPlanets {
		pos1, ok := chart.Position(p1)
		if !ok {
			continue
		}
		for _, p2 := range domain.ClassicalPlanets[i+1:] {
			pos2, ok := chart.Position(p2)
			if !ok {
				continue
			}
			separation := timing.Separation(pos1.Longitude, pos2.Longitude)
			for _, aspect := range domain.PtolemaicAspects {
				orbDiff := math.Abs(separation - aspect.Degrees())
				if orbDiff > timing.AspectOrb(cfg.Orbs, aspect, p1, p2) {
					continue
				}
				info := domain.AspectInfo{
					Planet1:        p1,
					Planet2:        p2,
					Aspect:         aspect,
					Orb:            orbDiff,
					Applying:       timing.IsApplying(pos1, pos2, aspect),
					DegreesToExact: orbDiff,
				}
				if info.Applying {
					if days, ok := timing.FutureAspectTime(pos1, pos2, aspect, cfg.Timing.MaxFutureDays); ok {
						info.PerfectionDays = days
					}
				}
				aspects = append(aspects, info)
			}
		}
	}
	return aspects
}
