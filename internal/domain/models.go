// Package domain holds the pure chart model shared by every engine component.
// Nothing in this package performs I/O or mutates shared state; a Chart is
// computed once upstream and treated as immutable for the judgment lifetime.
package domain

import "time"

// Planet identifies one of the seven traditional bodies.
type Planet string

const (
	Sun     Planet = "Sun"
	Moon    Planet = "Moon"
	Mercury Planet = "Mercury"
	Venus   Planet = "Venus"
	Mars    Planet = "Mars"
	Jupiter Planet = "Jupiter"
	Saturn  Planet = "Saturn"
)

// ClassicalPlanets lists the seven traditional bodies in conventional order.
var ClassicalPlanets = []Planet{Sun, Moon, Mercury, Venus, Mars, Jupiter, Saturn}

// IsBenefic reports whether the planet is traditionally benefic.
func (p Planet) IsBenefic() bool {
	return p == Jupiter || p == Venus
}

// IsMalefic reports whether the planet is traditionally malefic.
func (p Planet) IsMalefic() bool {
	return p == Mars || p == Saturn
}

// Aspect is one of the five Ptolemaic aspects.
type Aspect int

const (
	Conjunction Aspect = iota
	Sextile
	Square
	Trine
	Opposition
)

// PtolemaicAspects lists all supported aspect types in canonical order.
var PtolemaicAspects = []Aspect{Conjunction, Sextile, Square, Trine, Opposition}

// Degrees returns the exact angular separation of the aspect.
func (a Aspect) Degrees() float64 {
	switch a {
	case Conjunction:
		return 0
	case Sextile:
		return 60
	case Square:
		return 90
	case Trine:
		return 120
	case Opposition:
		return 180
	}
	return 0
}

func (a Aspect) String() string {
	switch a {
	case Conjunction:
		return "Conjunction"
	case Sextile:
		return "Sextile"
	case Square:
		return "Square"
	case Trine:
		return "Trine"
	case Opposition:
		return "Opposition"
	}
	return "Unknown"
}

// IsHard reports whether the aspect is a square or opposition.
func (a Aspect) IsHard() bool {
	return a == Square || a == Opposition
}

// Sign is a 30-degree zodiacal segment.
type Sign int

const (
	Aries Sign = iota
	Taurus
	Gemini
	Cancer
	Leo
	Virgo
	Libra
	Scorpio
	Sagittarius
	Capricorn
	Aquarius
	Pisces
)

var signNames = [...]string{
	"Aries", "Taurus", "Gemini", "Cancer", "Leo", "Virgo",
	"Libra", "Scorpio", "Sagittarius", "Capricorn", "Aquarius", "Pisces",
}

var signRulers = [...]Planet{
	Mars, Venus, Mercury, Moon, Sun, Mercury,
	Venus, Mars, Jupiter, Saturn, Saturn, Jupiter,
}

// exaltations maps each sign to the planet exalted in it (where one exists).
var exaltations = map[Sign]Planet{
	Aries:     Sun,
	Taurus:    Moon,
	Cancer:    Jupiter,
	Virgo:     Mercury,
	Libra:     Saturn,
	Capricorn: Mars,
	Pisces:    Venus,
}

func (s Sign) String() string {
	if s < Aries || s > Pisces {
		return "Unknown"
	}
	return signNames[s]
}

// StartDegree returns the ecliptic longitude where the sign begins.
func (s Sign) StartDegree() float64 {
	return float64(s) * 30
}

// Ruler returns the sign's domicile ruler.
func (s Sign) Ruler() Planet {
	if s < Aries || s > Pisces {
		return ""
	}
	return signRulers[s]
}

// Exalted returns the planet exalted in the sign, if any.
func (s Sign) Exalted() (Planet, bool) {
	p, ok := exaltations[s]
	return p, ok
}

// SignOf returns the sign containing the given ecliptic longitude.
func SignOf(longitude float64) Sign {
	lon := normalizeLongitude(longitude)
	return Sign(int(lon / 30))
}

func normalizeLongitude(lon float64) float64 {
	lon -= 360 * float64(int(lon/360))
	if lon < 0 {
		lon += 360
	}
	return lon
}

// SolarCondition describes a planet's relationship to the Sun.
type SolarCondition string

const (
	SolarFree       SolarCondition = "Free of Sun"
	SolarCazimi     SolarCondition = "Cazimi"
	SolarCombustion SolarCondition = "Combustion"
	SolarUnderBeams SolarCondition = "Under the Beams"
)

// SolarAnalysis carries the pre-resolved solar state for one planet.
type SolarAnalysis struct {
	Planet          Planet         `json:"planet"`
	DistanceFromSun float64        `json:"distance_from_sun"`
	Condition       SolarCondition `json:"condition"`
	ExactCazimi     bool           `json:"exact_cazimi"`
}

// PlanetPosition is a snapshot of one body at the chart epoch.
// Speed is signed degrees per day; negative means retrograde.
type PlanetPosition struct {
	Planet       Planet  `json:"planet"`
	Longitude    float64 `json:"longitude"`
	Latitude     float64 `json:"latitude"`
	House        int     `json:"house"`
	Sign         Sign    `json:"sign"`
	DignityScore int     `json:"dignity_score"`
	Retrograde   bool    `json:"retrograde"`
	Speed        float64 `json:"speed"`
}

// AspectInfo records an in-orb aspect between two bodies at the chart epoch.
type AspectInfo struct {
	Planet1        Planet  `json:"planet1"`
	Planet2        Planet  `json:"planet2"`
	Aspect         Aspect  `json:"aspect"`
	Orb            float64 `json:"orb"`
	Applying       bool    `json:"applying"`
	DegreesToExact float64 `json:"degrees_to_exact"`
	PerfectionDays float64 `json:"perfection_days,omitempty"`
}

// Involves reports whether the aspect joins the two given planets, in either order.
func (a AspectInfo) Involves(p1, p2 Planet) bool {
	return (a.Planet1 == p1 && a.Planet2 == p2) || (a.Planet1 == p2 && a.Planet2 == p1)
}

// Other returns the partner of p in the aspect pair.
func (a AspectInfo) Other(p Planet) Planet {
	if a.Planet1 == p {
		return a.Planet2
	}
	return a.Planet1
}

// LunarAspect describes the Moon's next or last aspect.
type LunarAspect struct {
	Planet      Planet  `json:"planet"`
	Aspect      Aspect  `json:"aspect"`
	Orb         float64 `json:"orb"`
	ETADays     float64 `json:"eta_days"`
	Description string  `json:"description"`
	Applying    bool    `json:"applying"`
}

// Chart is an immutable snapshot of body positions, houses and derived
// aspects for a single question epoch. House cusps and rulers come from the
// external house-system provider; solar analyses from the ephemeris side.
type Chart struct {
	AskedAt       time.Time                 `json:"asked_at"`
	JulianDay     float64                   `json:"julian_day"`
	LocationName  string                    `json:"location_name"`
	Latitude      float64                   `json:"latitude"`
	Longitude     float64                   `json:"longitude"`
	Planets       map[Planet]PlanetPosition `json:"planets"`
	Aspects       []AspectInfo              `json:"aspects"`
	Houses        []float64                 `json:"houses"`
	HouseRulers   map[int]Planet            `json:"house_rulers"`
	Ascendant     float64                   `json:"ascendant"`
	Midheaven     float64                   `json:"midheaven"`
	SolarAnalyses map[Planet]SolarAnalysis  `json:"solar_analyses,omitempty"`
	MoonNextAsp   *LunarAspect              `json:"moon_next_aspect,omitempty"`
	MoonLastAsp   *LunarAspect              `json:"moon_last_aspect,omitempty"`
}

// Position returns the position of p and whether it is present in the chart.
func (c *Chart) Position(p Planet) (PlanetPosition, bool) {
	pos, ok := c.Planets[p]
	return pos, ok
}

// SolarConditionOf returns the solar condition for p, defaulting to free.
func (c *Chart) SolarConditionOf(p Planet) SolarCondition {
	if a, ok := c.SolarAnalyses[p]; ok {
		return a.Condition
	}
	return SolarFree
}

// Contract assigns chart bodies to question roles. It is produced by the
// external significator resolver and consumed read-only by the engine.
type Contract struct {
	Querent       Planet            `json:"querent"`
	Quesited      Planet            `json:"quesited"`
	QuesitedHouse int               `json:"quesited_house,omitempty"`
	Roles         map[string]Planet `json:"roles,omitempty"`
	SharedRuler   bool              `json:"shared_ruler,omitempty"`
	WindowDays    int               `json:"window_days,omitempty"`
	Description   string            `json:"description,omitempty"`
}

// Valid reports whether both principal significators are resolved.
func (c Contract) Valid() bool {
	return c.Querent != "" && c.Quesited != ""
}

// Verdict is the terminal outcome of a judgment.
type Verdict string

const (
	VerdictYes          Verdict = "YES"
	VerdictNo           Verdict = "NO"
	VerdictInconclusive Verdict = "INCONCLUSIVE"
	VerdictCannotJudge  Verdict = "CANNOT JUDGE"
)

// ReasoningEntry is one structured step in the judgment trail.
type ReasoningEntry struct {
	Stage  string  `json:"stage"`
	Rule   string  `json:"rule"`
	Weight float64 `json:"weight"`
}

// JudgmentResult is the final output of the confidence pipeline.
type JudgmentResult struct {
	Verdict            Verdict            `json:"verdict"`
	Confidence         int                `json:"confidence"`
	Reasoning          []ReasoningEntry   `json:"reasoning"`
	Timing             string             `json:"timing,omitempty"`
	TraditionalFactors map[string]any     `json:"traditional_factors,omitempty"`
	SolarFactors       map[string]any     `json:"solar_factors,omitempty"`
}
