// Package moon implements the lunar testimony primitives: the void-of-course
// oracle and the Moon's next/last aspect calculations.
package moon

import (
	"fmt"
	"math"

	"github.com/aziz13-coder/newcodexhorary/internal/config"
	"github.com/aziz13-coder/newcodexhorary/internal/domain"
	"github.com/aziz13-coder/newcodexhorary/internal/timing"
)

// Application is one qualifying future aspect found by the oracle.
type Application struct {
	Planet domain.Planet
	Aspect domain.Aspect
	Orb    float64
	Days   float64
}

// VoidResult is the oracle's verdict with its justification.
type VoidResult struct {
	Void              bool
	Reason            string
	DegreesLeftInSign float64
	Next              *Application
}

// aspectPartners lists the classical bodies a fast body can perfect against.
// The fast body itself is skipped during the scan.
var aspectPartners = []domain.Planet{
	domain.Sun, domain.Mercury, domain.Venus, domain.Mars, domain.Jupiter, domain.Saturn,
}

// VoidOfCourse determines whether the Moon will complete any Ptolemaic
// aspect with any classical body before leaving its current sign.
//
// A solution is accepted only when it is positive and inside the horizon,
// completes before both bodies exit their signs, and the projected future
// positions of both bodies remain inside their present signs (a defense
// against solver artifacts near sign boundaries). A stationary Moon is
// non-void by definition.
func VoidOfCourse(chart *domain.Chart, cfg config.Engine) VoidResult {
	return voidOfCourse(chart, domain.Moon, cfg)
}

func voidOfCourse(chart *domain.Chart, fast domain.Planet, cfg config.Engine) VoidResult {
	fastPos, ok := chart.Position(fast)
	if !ok {
		return VoidResult{Void: false, Reason: fmt.Sprintf("%s not present in chart", fast)}
	}

	degreesInSign := math.Mod(fastPos.Longitude, 30.0)
	degreesLeft := 30.0 - degreesInSign

	if math.Abs(fastPos.Speed) < cfg.Timing.StationarySpeedThreshold {
		return VoidResult{
			Void:              false,
			Reason:            fmt.Sprintf("%s stationary - cannot be void of course", fast),
			DegreesLeftInSign: degreesLeft,
		}
	}

	fastExit, fastExitOK := timing.DaysToSignExit(fastPos.Longitude, fastPos.Speed)

	var soonest *Application
	for _, partner := range aspectPartners {
		if partner == fast {
			continue
		}
		partnerPos, ok := chart.Position(partner)
		if !ok {
			continue
		}
		partnerExit, partnerExitOK := timing.DaysToSignExit(partnerPos.Longitude, partnerPos.Speed)

		for _, aspect := range domain.PtolemaicAspects {
			days, ok := timing.FutureAspectTime(fastPos, partnerPos, aspect, cfg.Timing.MaxFutureDays)
			if !ok {
				continue
			}
			if fastExitOK && days >= fastExit {
				continue
			}
			if partnerExitOK && days >= partnerExit {
				continue
			}

			// Both bodies must still be inside their present signs at the
			// solved time; linear projection can otherwise report an exact
			// hit just across a boundary.
			if domain.SignOf(timing.FutureLongitude(fastPos, days)) != fastPos.Sign {
				continue
			}
			if domain.SignOf(timing.FutureLongitude(partnerPos, days)) != partnerPos.Sign {
				continue
			}

			app := Application{
				Planet: partner,
				Aspect: aspect,
				Orb:    timing.OrbToAspect(fastPos, partnerPos, aspect),
				Days:   days,
			}
			if soonest == nil || app.Days < soonest.Days {
				copied := app
				soonest = &copied
			}
		}
	}

	if soonest == nil {
		return VoidResult{
			Void:              true,
			Reason:            fmt.Sprintf("%s makes no applying aspects to classical bodies before leaving %s", fast, fastPos.Sign),
			DegreesLeftInSign: degreesLeft,
		}
	}
	return VoidResult{
		Void:              false,
		Reason:            fmt.Sprintf("%s will %s %s in %.1f days", fast, lower(soonest.Aspect.String()), soonest.Planet, soonest.Days),
		DegreesLeftInSign: degreesLeft,
		Next:              soonest,
	}
}

func lower(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}
