package perfection

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aziz13-coder/newcodexhorary/internal/config"
	"github.com/aziz13-coder/newcodexhorary/internal/domain"
	"github.com/aziz13-coder/newcodexhorary/internal/ephemeris"
	"github.com/aziz13-coder/newcodexhorary/internal/reception"
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

func newResolver(eph ephemeris.Provider) *Resolver {
	return NewResolver(config.DefaultEngine(), eph, zerolog.Nop())
}

func TestResolve_DirectWithMutualExaltation(t *testing.T) {
	// Sun in Libra opposing Saturn in Aries: each sits in the other's
	// exaltation, which outweighs the hard aspect.
	chart := chartWith(
		makePos(domain.Sun, 190.0, 0.9853),
		makePos(domain.Saturn, 10.5, 0.05),
	)
	chart.Aspects = []domain.AspectInfo{{
		Planet1: domain.Sun, Planet2: domain.Saturn,
		Aspect: domain.Opposition, Orb: 0.5, Applying: true, DegreesToExact: 0.5,
	}}

	res := newResolver(nil).Resolve(chart, domain.Contract{Querent: domain.Sun, Quesited: domain.Saturn})
	assert.Equal(t, Direct, res.Kind)
	assert.True(t, res.Perfects)
	assert.True(t, res.Favorable)
	// 80 base for mutual exaltation plus the 15-point exaltation boost.
	assert.Equal(t, config.DefaultEngine().Confidence.Perfection.DirectWithMutualExaltation+exaltationBoost, res.Confidence)
	assert.Equal(t, reception.MutualExaltation, res.Reception.Kind)
	assert.InDelta(t, 0.535, res.Days, 0.01)
}

func TestResolve_HardAspectWithoutReceptionPenalized(t *testing.T) {
	chart := chartWith(
		makePos(domain.Venus, 100.0, 1.2),
		makePos(domain.Mars, 12.0, 0.5),
	)
	chart.Aspects = []domain.AspectInfo{{
		Planet1: domain.Venus, Planet2: domain.Mars,
		Aspect: domain.Square, Orb: 2.0, Applying: true, DegreesToExact: 2.0,
	}}

	res := newResolver(nil).Resolve(chart, domain.Contract{Querent: domain.Venus, Quesited: domain.Mars})
	assert.Equal(t, DirectPenalized, res.Kind)
	assert.True(t, res.Perfects)
	assert.False(t, res.Favorable)
	assert.Equal(t, config.DefaultEngine().Confidence.Perfection.DirectBasic-hardAspectPenalty, res.Confidence)
}

func TestResolve_CombustConjunctionWithSunDenied(t *testing.T) {
	chart := chartWith(
		makePos(domain.Venus, 186.0, 1.23),
		makePos(domain.Sun, 190.0, 0.9853),
	)
	chart.Aspects = []domain.AspectInfo{{
		Planet1: domain.Venus, Planet2: domain.Sun,
		Aspect: domain.Conjunction, Orb: 4.0, Applying: true, DegreesToExact: 4.0,
	}}
	chart.SolarAnalyses = map[domain.Planet]domain.SolarAnalysis{
		domain.Venus: {Planet: domain.Venus, DistanceFromSun: 4.0, Condition: domain.SolarCombustion},
	}

	res := newResolver(nil).Resolve(chart, domain.Contract{Querent: domain.Venus, Quesited: domain.Sun})
	assert.Equal(t, CombustionDenial, res.Kind)
	assert.False(t, res.Perfects)
	assert.True(t, res.Denied())
	assert.Contains(t, res.Reason, "Venus")
}

func TestResolve_StationBeforePerfectionIsRefranation(t *testing.T) {
	// Mercury applies to Jupiter with perfection ~5.5 days out, but the
	// ephemeris shows its speed crossing zero at day 2.
	chart := chartWith(
		makePos(domain.Mercury, 100.0, 1.2),
		makePos(domain.Jupiter, 106.0, 0.1),
	)
	chart.JulianDay = 2460000.0
	chart.Aspects = []domain.AspectInfo{{
		Planet1: domain.Mercury, Planet2: domain.Jupiter,
		Aspect: domain.Conjunction, Orb: 6.0, Applying: true, DegreesToExact: 6.0,
	}}
	eph := ephemeris.NewStatic(map[domain.Planet][]ephemeris.SpeedSample{
		domain.Mercury: {
			{JD: 2460000.0, Speed: 0.5},
			{JD: 2460004.0, Speed: -0.5},
		},
	})

	res := newResolver(eph).Resolve(chart, domain.Contract{Querent: domain.Mercury, Quesited: domain.Jupiter})
	assert.Equal(t, Refranation, res.Kind)
	assert.False(t, res.Perfects)
	assert.Equal(t, config.DefaultEngine().Confidence.Denial.Refranation, res.Confidence)
	assert.InDelta(t, 2.0, res.Days, 0.1)
	assert.Contains(t, res.Reason, "Mercury")
}

func TestResolve_ProhibitionPrecedesFuturePerfection(t *testing.T) {
	// The significators perfect a sextile in ~52.3 days, but Saturn reaches
	// Jupiter by conjunction in ~5.6 days first. The scan must report the
	// prohibition naming both the prohibitor and the struck significator,
	// never the alignment.
	chart := chartWith(
		makePos(domain.Jupiter, 10.0, 0.15),
		makePos(domain.Mars, 315.23, 0.05),
		makePos(domain.Saturn, 10.672, 0.03),
	)

	res := newResolver(nil).Resolve(chart, domain.Contract{Querent: domain.Jupiter, Quesited: domain.Mars})
	assert.Equal(t, Prohibition, res.Kind)
	assert.False(t, res.Perfects)
	assert.True(t, res.Denied())
	assert.Equal(t, domain.Saturn, res.Prohibitor)
	assert.Equal(t, domain.Jupiter, res.Blocked)
	assert.InDelta(t, 5.6, res.Days, 0.05)
	assert.Contains(t, res.Reason, "Saturn")
	assert.Contains(t, res.Reason, "Jupiter")
}

func TestResolve_DistantAlignmentDoesNotPerfect(t *testing.T) {
	// The significators meet by sextile in ~52.3 days, past the 30-day
	// question window: informational alignment, never a perfection.
	chart := chartWith(
		makePos(domain.Jupiter, 10.0, 0.15),
		makePos(domain.Mars, 315.23, 0.05),
	)

	res := newResolver(nil).Resolve(chart, domain.Contract{Querent: domain.Jupiter, Quesited: domain.Mars})
	assert.Equal(t, AstronomicalAlignment, res.Kind)
	assert.False(t, res.Perfects)
	assert.False(t, res.Denied())
	assert.InDelta(t, 52.3, res.Days, 0.1)
	assert.Contains(t, res.Reason, "beyond the question window")
}

func TestResolve_OutOfSignContactDoesNotProhibit(t *testing.T) {
	// Mercury at the end of Aries could reach Jupiter by sextile in ~34 days,
	// but it leaves its sign after ~2 days: the out-of-sign contact is void
	// and must not prohibit the pair.
	chart := chartWith(
		makePos(domain.Jupiter, 10.0, 0.15),
		makePos(domain.Mars, 315.23, 0.05),
		makePos(domain.Mercury, 27.0, 1.4),
	)

	res := newResolver(nil).Resolve(chart, domain.Contract{Querent: domain.Jupiter, Quesited: domain.Mars})
	assert.NotEqual(t, Prohibition, res.Kind)
	assert.Equal(t, AstronomicalAlignment, res.Kind)
}

func TestScanInterveners_TranslationReportsFinalContact(t *testing.T) {
	// Mercury, faster than both by signed speed, conjoins Saturn in ~3.7 days
	// and Jupiter in ~6.1: the translation completes at the later contact.
	chart := chartWith(
		makePos(domain.Saturn, 200.0, 0.05),
		makePos(domain.Jupiter, 203.0, 0.08),
		makePos(domain.Mercury, 195.0, 1.4),
	)

	res, ok := newResolver(nil).ScanInterveners(chart, domain.Saturn, domain.Jupiter, 20.0)
	require.True(t, ok)
	assert.Equal(t, Translation, res.Kind)
	assert.True(t, res.Perfects)
	assert.Equal(t, domain.Mercury, res.Translator)
	assert.InDelta(t, 6.06, res.Days, 0.01)
}

func TestResolve_FutureAspectToHouseRuler(t *testing.T) {
	// Venus occupies the quesited house without a current aspect to its
	// ruler, but conjoins Mars in five days with nothing intervening.
	chart := chartWith(
		makePos(domain.Sun, 100.0, 1.0),
		makePos(domain.Mars, 250.0, 0.2),
		makePos(domain.Venus, 245.0, 1.2),
	)
	venus := chart.Planets[domain.Venus]
	venus.House = 7
	chart.Planets[domain.Venus] = venus
	chart.HouseRulers = map[int]domain.Planet{7: domain.Mars}

	res := newResolver(nil).Resolve(chart, domain.Contract{
		Querent: domain.Sun, Quesited: domain.Mars, QuesitedHouse: 7,
	})
	assert.Equal(t, HousePlacement, res.Kind)
	assert.True(t, res.Perfects)
	assert.True(t, res.Favorable)
	assert.InDelta(t, 5.0, res.Days, 0.01)
	// 75 base plus the 5-point bonus for perfecting inside a week.
	assert.Equal(t, config.DefaultEngine().Confidence.Perfection.DirectBasic+promptTimingBonus, res.Confidence)
	assert.Contains(t, res.Reason, "Venus")
}

func TestResolve_TranslationOfLight(t *testing.T) {
	// Venus, faster than both significators, separates from a conjunction
	// with Saturn and applies to a sextile of Jupiter.
	chart := chartWith(
		makePos(domain.Saturn, 200.0, 0.05),
		makePos(domain.Jupiter, 266.0, 0.1),
		makePos(domain.Venus, 203.0, 1.2),
	)
	chart.Aspects = []domain.AspectInfo{
		{
			Planet1: domain.Venus, Planet2: domain.Saturn,
			Aspect: domain.Conjunction, Orb: 3.0, Applying: false, DegreesToExact: 3.0,
		},
		{
			Planet1: domain.Venus, Planet2: domain.Jupiter,
			Aspect: domain.Sextile, Orb: 3.0, Applying: true, DegreesToExact: 3.0,
		},
	}

	res := newResolver(nil).Resolve(chart, domain.Contract{Querent: domain.Saturn, Quesited: domain.Jupiter})
	require.Equal(t, Translation, res.Kind)
	assert.True(t, res.Perfects)
	assert.True(t, res.Favorable)
	assert.Equal(t, domain.Venus, res.Translator)
	assert.Equal(t, config.DefaultEngine().Confidence.Perfection.TranslationOfLight, res.Confidence)
	assert.InDelta(t, 3.0/1.1, res.Days, 1e-6)
	assert.Contains(t, res.Reason, "translating")
}

func TestResolve_CollectionOfLight(t *testing.T) {
	// Both significators apply to slow Mercury in Libra, which Venus rules
	// and Saturn is exalted in: both receive the collector.
	chart := chartWith(
		makePos(domain.Venus, 186.0, 1.2),
		makePos(domain.Saturn, 184.0, 0.25),
		makePos(domain.Mercury, 190.0, 0.02),
	)
	chart.Aspects = []domain.AspectInfo{
		{
			Planet1: domain.Venus, Planet2: domain.Mercury,
			Aspect: domain.Conjunction, Orb: 4.0, Applying: true, DegreesToExact: 4.0,
		},
		{
			Planet1: domain.Saturn, Planet2: domain.Mercury,
			Aspect: domain.Conjunction, Orb: 6.0, Applying: true, DegreesToExact: 6.0,
		},
	}

	res := newResolver(nil).Resolve(chart, domain.Contract{Querent: domain.Venus, Quesited: domain.Saturn})
	require.Equal(t, Collection, res.Kind)
	assert.True(t, res.Perfects)
	assert.Equal(t, domain.Mercury, res.Collector)
	assert.Equal(t, config.DefaultEngine().Confidence.Perfection.CollectionOfLight, res.Confidence)
	assert.Contains(t, res.Reason, "collecting")
}

func TestResolve_HousePlacementChannel(t *testing.T) {
	chart := chartWith(
		makePos(domain.Sun, 190.0, 1.0),
		makePos(domain.Mars, 250.0, 0.5),
		makePos(domain.Venus, 10.0, 1.2),
	)
	venus := chart.Planets[domain.Venus]
	venus.House = 7
	chart.Planets[domain.Venus] = venus
	chart.HouseRulers = map[int]domain.Planet{7: domain.Mars}
	chart.Aspects = []domain.AspectInfo{{
		Planet1: domain.Venus, Planet2: domain.Mars,
		Aspect: domain.Trine, Orb: 2.0, Applying: true, DegreesToExact: 2.0, PerfectionDays: 2.0,
	}}

	res := newResolver(nil).Resolve(chart, domain.Contract{
		Querent: domain.Sun, Quesited: domain.Mars, QuesitedHouse: 7,
	})
	assert.Equal(t, HousePlacement, res.Kind)
	assert.True(t, res.Perfects)
	assert.True(t, res.Favorable)
	assert.Contains(t, res.Reason, "Venus")
}

func TestResolve_ReceptionAloneNeverPerfects(t *testing.T) {
	// Jupiter in Aries is received by Mars, but with equal speeds nothing
	// ever perfects: the reception is noted at zero confidence.
	chart := chartWith(
		makePos(domain.Jupiter, 20.0, 0.1),
		makePos(domain.Mars, 70.0, 0.1),
	)

	res := newResolver(nil).Resolve(chart, domain.Contract{Querent: domain.Jupiter, Quesited: domain.Mars})
	assert.Equal(t, ReceptionNoted, res.Kind)
	assert.False(t, res.Perfects)
	assert.Zero(t, res.Confidence)
	assert.Contains(t, res.Reason, "reception")
}

func TestResolve_NoPerfectionIsTerminal(t *testing.T) {
	chart := chartWith(
		makePos(domain.Mercury, 250.0, 0.3),
		makePos(domain.Saturn, 130.0, 0.3),
	)

	res := newResolver(nil).Resolve(chart, domain.Contract{Querent: domain.Mercury, Quesited: domain.Saturn})
	assert.Equal(t, NoPerfection, res.Kind)
	assert.False(t, res.Perfects)
	assert.False(t, res.Denied())
}

func TestCheckFrustration_MaleficSeverityAndBlame(t *testing.T) {
	// Saturn's recorded conjunction to Venus completes in ~0.87 days, well
	// before the main perfection at 3.64 days.
	chart := chartWith(
		makePos(domain.Venus, 100.0, 1.2),
		makePos(domain.Jupiter, 104.0, 0.1),
		makePos(domain.Saturn, 101.0, 0.05),
	)
	chart.Aspects = []domain.AspectInfo{{
		Planet1: domain.Venus, Planet2: domain.Saturn,
		Aspect: domain.Conjunction, Orb: 1.0, Applying: true, DegreesToExact: 1.0,
	}}

	res := newResolver(nil).CheckFrustration(chart, domain.Venus, domain.Jupiter, 3.64)
	require.NotNil(t, res)
	assert.Equal(t, Frustration, res.Kind)
	assert.Equal(t, domain.Saturn, res.Frustrator)
	assert.Equal(t, domain.Venus, res.Blocked)
	assert.Equal(t, config.DefaultEngine().Confidence.Denial.Frustration+saturnFrustrationBonus, res.Confidence)
	assert.InDelta(t, 0.87, res.Days, 0.01)
}

func TestCheckFrustration_NothingIntervenes(t *testing.T) {
	chart := chartWith(
		makePos(domain.Venus, 100.0, 1.2),
		makePos(domain.Jupiter, 104.0, 0.1),
	)
	chart.Aspects = []domain.AspectInfo{{
		Planet1: domain.Venus, Planet2: domain.Jupiter,
		Aspect: domain.Conjunction, Orb: 4.0, Applying: true, DegreesToExact: 4.0,
	}}

	assert.Nil(t, newResolver(nil).CheckFrustration(chart, domain.Venus, domain.Jupiter, 3.64))
}

func TestCheckFrustration_RequiresRecordedAspect(t *testing.T) {
	// Saturn sits close enough that an aspect could be solved for, but no
	// applying aspect to a significator is recorded in the chart: a body out
	// of orb cannot frustrate.
	chart := chartWith(
		makePos(domain.Venus, 100.0, 1.2),
		makePos(domain.Jupiter, 104.0, 0.1),
		makePos(domain.Saturn, 101.0, 0.05),
	)
	chart.Aspects = []domain.AspectInfo{{
		Planet1: domain.Venus, Planet2: domain.Jupiter,
		Aspect: domain.Conjunction, Orb: 4.0, Applying: true, DegreesToExact: 4.0,
	}}

	assert.Nil(t, newResolver(nil).CheckFrustration(chart, domain.Venus, domain.Jupiter, 3.64))
}
