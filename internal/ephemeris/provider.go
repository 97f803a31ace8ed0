// Package ephemeris defines the contract with the external ephemeris
// collaborator. The judgment core only ever consumes pre-resolved positions;
// the one dynamic quantity it asks for is planetary speed near the chart
// epoch, used to detect upcoming stations (motion reversals).
package ephemeris

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gopkg.in/yaml.v3"

	"github.com/aziz13-coder/newcodexhorary/internal/domain"
)

// ErrUnknownBody is returned when a provider has no data for a planet.
var ErrUnknownBody = errors.New("ephemeris: unknown body")

// Provider supplies retrograde-aware speeds around an epoch.
type Provider interface {
	// SpeedAt returns the signed daily speed of the planet at the given
	// Julian day.
	SpeedAt(planet domain.Planet, jd float64) (float64, error)

	// NextStation returns the Julian day of the planet's next speed
	// zero-crossing strictly after jd, searching up to maxDays ahead.
	// ok is false when no station occurs inside the horizon.
	NextStation(planet domain.Planet, jd float64, maxDays float64) (stationJD float64, ok bool, err error)
}

// SpeedSample is one (epoch, speed) observation.
type SpeedSample struct {
	JD    float64
	Speed float64
}

// Static is a fixture provider backed by pre-resolved speed samples.
// Between samples it interpolates linearly, which matches the locally-linear
// motion model used by the solver.
type Static struct {
	samples map[domain.Planet][]SpeedSample
}

// NewStatic builds a Static provider. Samples are sorted by epoch per planet.
func NewStatic(samples map[domain.Planet][]SpeedSample) *Static {
	byPlanet := make(map[domain.Planet][]SpeedSample, len(samples))
	for planet, s := range samples {
		sorted := make([]SpeedSample, len(s))
		copy(sorted, s)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].JD < sorted[j].JD })
		byPlanet[planet] = sorted
	}
	return &Static{samples: byPlanet}
}

// NewConstant builds a Static provider with a single fixed speed per planet,
// taken from chart positions. Constant speed never stations.
func NewConstant(positions map[domain.Planet]domain.PlanetPosition) *Static {
	samples := make(map[domain.Planet][]SpeedSample, len(positions))
	for planet, pos := range positions {
		samples[planet] = []SpeedSample{{JD: 0, Speed: pos.Speed}}
	}
	return &Static{samples: samples}
}

// fileSample mirrors one YAML speed-sample row.
type fileSample struct {
	JD    float64 `yaml:"jd"`
	Speed float64 `yaml:"speed"`
}

// LoadFile reads a YAML speed-sample fixture keyed by planet name and builds
// a Static provider from it. Each planet maps to a list of jd/speed rows.
func LoadFile(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ephemeris file: %w", err)
	}
	var raw map[string][]fileSample
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse ephemeris file: %w", err)
	}
	samples := make(map[domain.Planet][]SpeedSample, len(raw))
	for name, rows := range raw {
		if len(rows) == 0 {
			return nil, fmt.Errorf("ephemeris file: planet %s has no samples", name)
		}
		series := make([]SpeedSample, 0, len(rows))
		for _, row := range rows {
			series = append(series, SpeedSample{JD: row.JD, Speed: row.Speed})
		}
		samples[domain.Planet(name)] = series
	}
	return NewStatic(samples), nil
}

// SpeedAt interpolates the planet's speed at jd.
func (s *Static) SpeedAt(planet domain.Planet, jd float64) (float64, error) {
	series, ok := s.samples[planet]
	if !ok || len(series) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrUnknownBody, planet)
	}
	if len(series) == 1 || jd <= series[0].JD {
		return series[0].Speed, nil
	}
	last := series[len(series)-1]
	if jd >= last.JD {
		return last.Speed, nil
	}
	i := sort.Search(len(series), func(i int) bool { return series[i].JD >= jd })
	lo, hi := series[i-1], series[i]
	frac := (jd - lo.JD) / (hi.JD - lo.JD)
	return lo.Speed + frac*(hi.Speed-lo.Speed), nil
}

// stationSamplesPerDay controls the sampling resolution of the station scan.
const stationSamplesPerDay = 4

// NextStation scans interpolated speed over a uniform grid for the first
// sign change after jd and refines the crossing linearly.
func (s *Static) NextStation(planet domain.Planet, jd float64, maxDays float64) (float64, bool, error) {
	if maxDays <= 0 {
		return 0, false, nil
	}
	n := int(maxDays*stationSamplesPerDay) + 1
	if n < 2 {
		n = 2
	}
	grid := floats.Span(make([]float64, n), jd, jd+maxDays)

	prevT := grid[0]
	prevSpeed, err := s.SpeedAt(planet, prevT)
	if err != nil {
		return 0, false, err
	}
	for _, t := range grid[1:] {
		speed, err := s.SpeedAt(planet, t)
		if err != nil {
			return 0, false, err
		}
		if prevSpeed != 0 && speed != 0 && (prevSpeed > 0) != (speed > 0) {
			// Linear zero crossing between the two grid points.
			crossing := prevT + (t-prevT)*prevSpeed/(prevSpeed-speed)
			return crossing, true, nil
		}
		if speed == 0 && prevSpeed != 0 {
			return t, true, nil
		}
		prevT, prevSpeed = t, speed
	}
	return 0, false, nil
}
