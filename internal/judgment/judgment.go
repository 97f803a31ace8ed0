// Package judgment runs the confidence pipeline: a fixed sequence of stages
// that starts from a configured base confidence, folds in radicality, lunar,
// solar, perfection and dignity testimony, and emits a verdict with a
// reasoning trail that fully explains the final number.
package judgment

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/aziz13-coder/newcodexhorary/internal/config"
	"github.com/aziz13-coder/newcodexhorary/internal/domain"
	"github.com/aziz13-coder/newcodexhorary/internal/ephemeris"
	"github.com/aziz13-coder/newcodexhorary/internal/moon"
	"github.com/aziz13-coder/newcodexhorary/internal/perfection"
	"github.com/aziz13-coder/newcodexhorary/internal/reception"
	"github.com/aziz13-coder/newcodexhorary/internal/rules"
	"github.com/aziz13-coder/newcodexhorary/internal/testimony"
	"github.com/aziz13-coder/newcodexhorary/internal/timing"
)

const (
	saturnSeventhPenalty   = 10
	separatingPenalty      = 30
	noPerfectionCap        = 75
	noPerfectionSupportCap = 60
	inconclusiveFloor      = 20
	lowConfidenceThreshold = 30
	cautionThreshold       = 50
	severeImpedimentOrb    = 2.0
	severeImpedimentDenial = 90
	solarPenaltyCap        = 50
	sharedRulerBonus       = 20
	exactCazimiBonus       = 5
)

// Engine is the judgment entry point. Safe for concurrent use: every call
// works on its own pipeline state over an immutable chart.
type Engine struct {
	cfg      config.Engine
	pack     *rules.Pack
	rules    *rules.Engine
	registry *testimony.Registry
	resolver *perfection.Resolver
	log      zerolog.Logger
}

// New wires the judgment engine from a rule pack. The ephemeris provider may
// be nil; refranation detection is then skipped.
func New(cfg config.Engine, pack *rules.Pack, eph ephemeris.Provider, log zerolog.Logger) (*Engine, error) {
	registry, err := testimony.NewRegistry(pack.Tokens)
	if err != nil {
		return nil, fmt.Errorf("build token registry: %w", err)
	}
	return &Engine{
		cfg:      cfg,
		pack:     pack,
		rules:    rules.NewEngine(pack, cfg),
		registry: registry,
		resolver: perfection.NewResolver(cfg, eph, log),
		log:      log.With().Str("component", "judgment").Logger(),
	}, nil
}

// Resolver exposes the perfection resolver as a composable sub-service.
func (e *Engine) Resolver() *perfection.Resolver { return e.resolver }

// Aggregate exposes the testimony aggregator bound to this engine's registry.
func (e *Engine) Aggregate(tokens []testimony.Token, roleWeights map[string]float64) (testimony.Aggregation, error) {
	return testimony.Aggregate(e.registry, tokens, roleWeights)
}

// state carries the running pipeline accumulator.
type state struct {
	chart    *domain.Chart
	contract domain.Contract

	confidence float64
	verdict    domain.Verdict
	reasoning  []domain.ReasoningEntry
	tokens     []testimony.Token
	perf       perfection.Result
	voidRes    moon.VoidResult
	factors    map[string]any
	solar      map[string]any
	timing     string
	sharedOK   bool
	done       bool
}

func (s *state) note(stage, rule string, weight float64) {
	s.reasoning = append(s.reasoning, domain.ReasoningEntry{Stage: stage, Rule: rule, Weight: weight})
}

func (s *state) token(t testimony.Token) {
	s.tokens = append(s.tokens, t)
}

// Judge runs the full pipeline and returns exactly one result. Input errors
// are terminal results, never panics: an unresolvable contract yields
// CANNOT JUDGE at zero confidence.
func (e *Engine) Judge(chart *domain.Chart, contract domain.Contract) domain.JudgmentResult {
	s := &state{
		chart:      chart,
		contract:   contract,
		confidence: float64(e.cfg.Confidence.Base),
		verdict:    domain.VerdictInconclusive,
		factors:    make(map[string]any),
		solar:      make(map[string]any),
	}

	stages := []func(*state){
		e.stageSignificators,
		e.stageRadicality,
		e.stageVoidMoon,
		e.stageSharedRuler,
		e.stageSolar,
		e.stagePerfection,
		e.stageMoonNextAspect,
		e.stageAspectDirection,
		e.stageRetrograde,
		e.stageDignities,
		e.stageHouseRulers,
		e.stageTimingDecay,
		e.stageThresholds,
	}
	for _, stage := range stages {
		stage(s)
		if s.done {
			break
		}
	}

	if agg, err := testimony.Aggregate(e.registry, s.tokens, nil); err != nil {
		e.log.Error().Err(err).Msg("testimony aggregation failed")
	} else {
		s.factors["testimony_score"] = agg.Score
		s.factors["testimony"] = agg.Rationale()
	}

	confidence := int(math.Round(s.confidence))
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}
	return domain.JudgmentResult{
		Verdict:            s.verdict,
		Confidence:         confidence,
		Reasoning:          s.reasoning,
		Timing:             s.timing,
		TraditionalFactors: s.factors,
		SolarFactors:       s.solar,
	}
}

func (e *Engine) stageSignificators(s *state) {
	if s.contract.Valid() {
		if _, ok := s.chart.Position(s.contract.Querent); ok {
			if _, ok := s.chart.Position(s.contract.Quesited); ok {
				return
			}
		}
	}
	s.verdict = domain.VerdictCannotJudge
	s.confidence = 0
	s.note("significators", "significators cannot be identified for this question", 0)
	s.done = true
}

func (e *Engine) stageRadicality(s *state) {
	r := e.cfg.Radicality
	ascDeg := math.Mod(s.chart.Ascendant, 30.0)
	if ascDeg < 0 {
		ascDeg += 30.0
	}

	var warning string
	switch {
	case ascDeg < r.EarlyDegrees:
		warning = fmt.Sprintf("Ascendant at %.1f degrees, question not yet mature", ascDeg)
	case ascDeg > r.LateDegrees:
		warning = fmt.Sprintf("Ascendant at %.1f degrees, matter already resolved", ascDeg)
	}
	if warning != "" {
		if r.Gating {
			s.verdict = domain.VerdictNo
			s.note("radicality", warning+" (gated)", -s.confidence)
			s.done = true
			return
		}
		s.confidence -= float64(r.AscWarningPenalty)
		s.note("radicality", warning, -float64(r.AscWarningPenalty))
		s.token("radicality_warning")
	}

	if r.SaturnSeventhWarn {
		if pos, ok := s.chart.Position(domain.Saturn); ok && pos.House == 7 {
			s.confidence -= saturnSeventhPenalty
			s.note("radicality", "Saturn in the seventh house, judgment may be corrupted", -saturnSeventhPenalty)
		}
	}
}

func (e *Engine) stageVoidMoon(s *state) {
	s.voidRes = moon.VoidOfCourse(s.chart, e.cfg)
	s.factors["moon_void"] = s.voidRes.Void
	s.factors["moon_void_reason"] = s.voidRes.Reason
	if !s.voidRes.Void {
		return
	}
	if e.rules.Applies("H2") {
		s.verdict = domain.VerdictNo
		s.note("moon", "void-of-course Moon denies the matter: "+s.voidRes.Reason, -s.confidence)
		s.token("moon_void")
		s.done = true
		return
	}
	penalty := float64(e.cfg.Moon.VoidPenalty)
	s.confidence -= penalty
	s.note("moon", "void-of-course Moon cautions the matter: "+s.voidRes.Reason, -penalty)
	s.token("moon_void")
}

// stageSharedRuler handles the case where one planet rules both parties.
// Unity of purpose argues yes, unless the shared ruler is itself unable to
// act: severely debilitated, combust, or retrograde while weak.
func (e *Engine) stageSharedRuler(s *state) {
	if !s.contract.SharedRuler {
		return
	}
	pos, ok := s.chart.Position(s.contract.Quesited)
	if ok {
		switch {
		case pos.DignityScore <= -10:
			s.note("special", fmt.Sprintf("shared ruler %s too debilitated (%d) to carry the matter", pos.Planet, pos.DignityScore), 0)
			return
		case s.chart.SolarConditionOf(pos.Planet) == domain.SolarCombustion:
			s.note("special", fmt.Sprintf("shared ruler %s combust, unity of purpose burned away", pos.Planet), 0)
			return
		case pos.Retrograde && pos.DignityScore < 0:
			s.note("special", fmt.Sprintf("shared ruler %s retrograde and weak, intent falters", pos.Planet), 0)
			return
		}
	}
	s.sharedOK = true
	s.confidence += sharedRulerBonus
	s.note("special", "querent and quesited share a ruler, unity of purpose", sharedRulerBonus)
}

// combustionPenalty grades the burn by distance from the Sun.
func combustionPenalty(distance float64) float64 {
	switch {
	case distance < 1.0:
		return 40
	case distance < 2.0:
		return 25
	case distance < 5.0:
		return 15
	}
	return 10
}

func (e *Engine) stageSolar(s *state) {
	var totalPenalty float64
	severe := 0

	for _, role := range []struct {
		name   string
		planet domain.Planet
	}{
		{"querent", s.contract.Querent},
		{"quesited", s.contract.Quesited},
	} {
		analysis, ok := s.chart.SolarAnalyses[role.planet]
		if !ok {
			continue
		}
		s.solar[role.name] = analysis

		switch analysis.Condition {
		case domain.SolarCazimi:
			bonus := float64(e.cfg.Confidence.Solar.CazimiBonus)
			if analysis.ExactCazimi {
				bonus += exactCazimiBonus
			}
			s.confidence += bonus
			s.note("solar", fmt.Sprintf("%s cazimi, in the heart of the Sun", role.planet), bonus)
			s.token("solar_cazimi")
		case domain.SolarCombustion:
			penalty := combustionPenalty(analysis.DistanceFromSun)
			totalPenalty += penalty
			s.note("solar", fmt.Sprintf("%s combust at %.1f degrees from the Sun", role.planet, analysis.DistanceFromSun), -penalty)
			s.token("solar_combustion")
			if analysis.DistanceFromSun < severeImpedimentOrb {
				severe++
			}
		case domain.SolarUnderBeams:
			penalty := float64(e.cfg.Confidence.Solar.UnderBeamsPenalty)
			totalPenalty += penalty
			s.note("solar", fmt.Sprintf("%s under the sunbeams", role.planet), -penalty)
			s.token("solar_under_beams")
		}
	}

	if totalPenalty > solarPenaltyCap {
		totalPenalty = solarPenaltyCap
	}
	s.confidence -= totalPenalty

	if severe >= 2 && e.cfg.Solar.SevereImpedimentDenialEnabled {
		s.verdict = domain.VerdictNo
		s.confidence = severeImpedimentDenial
		s.note("solar", "both significators severely impedited by the Sun: denial", 0)
		s.done = true
	}
}

func (e *Engine) stagePerfection(s *state) {
	s.perf = e.resolver.Resolve(s.chart, s.contract)
	s.factors["perfection_kind"] = string(s.perf.Kind)
	s.factors["perfection_reason"] = s.perf.Reason

	if s.perf.Perfects && s.perf.Days > 0 {
		if fr := e.resolver.CheckFrustration(s.chart, s.contract.Querent, s.contract.Quesited, s.perf.Days); fr != nil {
			s.perf = *fr
			s.factors["perfection_kind"] = string(fr.Kind)
			s.factors["perfection_reason"] = fr.Reason
		}
	}

	switch {
	case s.perf.Denied():
		s.verdict = domain.VerdictNo
		s.confidence = float64(s.perf.Confidence)
		s.note("perfection", denialLabel(s.perf.Kind)+": "+s.perf.Reason, -float64(s.perf.Confidence))
		s.token(denialToken(s.perf.Kind))
		s.done = true

	case s.perf.Perfects:
		if s.perf.Favorable {
			s.verdict = domain.VerdictYes
		} else {
			s.verdict = domain.VerdictNo
		}
		s.confidence = float64(s.perf.Confidence)
		s.note("perfection", perfectionLabel(s.perf.Kind)+": "+s.perf.Reason, float64(s.perf.Confidence))
		s.token(perfectionToken(s.perf.Kind))
		if s.perf.Days > 0 {
			s.timing = timing.FormatDays(s.perf.Days)
		}
		if s.perf.Reception.Kind != reception.None {
			s.token(receptionToken(s.perf.Reception.Kind))
		}

	default:
		e.judgeWithoutPerfection(s)
	}
}

// judgeWithoutPerfection reports the supportive-but-insufficient signals
// before settling on NO, so the audit trail shows what was weighed.
func (e *Engine) judgeWithoutPerfection(s *state) {
	// A sound shared ruler completes the matter of itself; no aspect between
	// the parties is needed when the same planet stands for both.
	if s.sharedOK {
		s.verdict = domain.VerdictYes
		s.note("perfection", "the same planet rules both parties: the matter completes of itself", 0)
		return
	}

	s.verdict = domain.VerdictNo
	support := false

	if s.perf.Kind == perfection.AstronomicalAlignment {
		s.note("perfection", "Distant alignment: "+s.perf.Reason, 0)
	}

	rec := s.perf.Reception
	if s.perf.Kind != perfection.ReceptionNoted {
		rec = reception.Between(s.chart, s.contract.Querent, s.contract.Quesited)
	}
	if rec.Kind != reception.None {
		bonus := receptionBonus(e.cfg.Confidence.Reception, rec.Kind)
		s.note("perfection", fmt.Sprintf("no perfection; %s noted but insufficient alone", rec.Display), bonus)
		s.token(receptionToken(rec.Kind))
	}

	if next := s.chart.MoonNextAsp; next != nil && next.Applying {
		if next.Planet.IsBenefic() && !next.Aspect.IsHard() {
			support = true
			s.note("moon", fmt.Sprintf("Moon applies to %s by %s, mild support", next.Planet, lower(next.Aspect.String())), 0)
			s.token("moon_applying_benefic")
		}
	}
	if benefic := beneficAspectToQuesited(s.chart, s.contract.Quesited); benefic != "" {
		support = true
		s.note("perfection", fmt.Sprintf("%s offers a benefic aspect to the quesited, insufficient alone", benefic), 0)
	}

	ceiling := float64(noPerfectionCap)
	if support {
		ceiling = noPerfectionSupportCap
	}
	if s.confidence > ceiling {
		s.confidence = ceiling
	}
	s.note("perfection", "no perfection between significators: the matter does not complete", 0)
}

func (e *Engine) stageMoonNextAspect(s *state) {
	next := s.chart.MoonNextAsp
	if next == nil || !next.Applying || s.verdict != domain.VerdictYes {
		return
	}
	caps := e.cfg.Confidence.LunarCaps
	moonCap := float64(caps.Neutral)
	favorable := next.Planet.IsBenefic() && !next.Aspect.IsHard()
	if favorable {
		moonCap = float64(caps.Favorable)
		s.token("moon_applying_benefic")
	} else if next.Planet.IsMalefic() && next.Aspect.IsHard() {
		s.token("moon_applying_malefic")
	} else {
		return // mixed testimony carries no cap
	}
	if s.confidence > moonCap {
		s.note("moon", fmt.Sprintf("Moon's next aspect is a %s to %s: confidence held to %.0f",
			lower(next.Aspect.String()), next.Planet, moonCap), moonCap-s.confidence)
		s.confidence = moonCap
	}
}

func (e *Engine) stageAspectDirection(s *state) {
	if s.verdict != domain.VerdictYes || s.perf.Aspect == nil || s.perf.Aspect.Applying {
		return
	}
	s.confidence -= separatingPenalty
	s.note("aspects", "main aspect is separating rather than applying", -separatingPenalty)
	s.token("aspect_separating")
}

func (e *Engine) stageRetrograde(s *state) {
	if s.verdict != domain.VerdictYes {
		return
	}
	pos, ok := s.chart.Position(s.contract.Quesited)
	if !ok || !pos.Retrograde {
		return
	}
	penalty := float64(e.cfg.Retrograde.QuesitedPenalty)
	s.confidence -= penalty
	s.note("dignities", fmt.Sprintf("quesited ruler %s retrograde", pos.Planet), -penalty)
	s.token("retrograde_quesited")
}

func (e *Engine) stageDignities(s *state) {
	if s.verdict != domain.VerdictYes {
		return
	}
	if pos, ok := s.chart.Position(s.contract.Quesited); ok {
		switch {
		case pos.DignityScore <= -10:
			s.confidence -= 35
			s.note("dignities", fmt.Sprintf("quesited ruler %s severely debilitated (%d)", pos.Planet, pos.DignityScore), -35)
			s.token("dignity_quesited_weak")
		case pos.DignityScore < -5:
			s.confidence -= 20
			s.note("dignities", fmt.Sprintf("quesited ruler %s debilitated (%d)", pos.Planet, pos.DignityScore), -20)
			s.token("dignity_quesited_weak")
		case pos.DignityScore >= 10:
			s.confidence += 15
			s.note("dignities", fmt.Sprintf("quesited ruler %s strongly dignified (%d)", pos.Planet, pos.DignityScore), 15)
			s.token("dignity_quesited_strong")
		}
	}
	if pos, ok := s.chart.Position(s.contract.Querent); ok {
		switch {
		case pos.DignityScore <= -10:
			s.confidence -= 15
			s.note("dignities", fmt.Sprintf("querent ruler %s severely debilitated (%d)", pos.Planet, pos.DignityScore), -15)
			s.token("dignity_querent_weak")
		case pos.DignityScore >= 10:
			s.confidence += 10
			s.note("dignities", fmt.Sprintf("querent ruler %s strongly dignified (%d)", pos.Planet, pos.DignityScore), 10)
			s.token("dignity_querent_strong")
		}
	}
}

var cadentHouses = map[int]bool{3: true, 6: true, 9: true, 12: true}

func (e *Engine) stageHouseRulers(s *state) {
	if s.verdict != domain.VerdictYes {
		return
	}
	d := e.cfg.Debilitation
	for _, hp := range []struct {
		house   int
		penalty int
	}{{2, d.L2}, {11, d.L11}} {
		house, penalty := hp.house, hp.penalty
		ruler, ok := s.chart.HouseRulers[house]
		if !ok {
			continue
		}
		pos, ok := s.chart.Position(ruler)
		if !ok || pos.DignityScore >= d.DignityThreshold {
			continue
		}
		s.confidence -= float64(penalty)
		s.note("dignities", fmt.Sprintf("house %d ruler %s debilitated", house, ruler), -float64(penalty))
	}
	for _, sig := range []domain.Planet{s.contract.Querent, s.contract.Quesited} {
		if pos, ok := s.chart.Position(sig); ok && cadentHouses[pos.House] {
			s.confidence -= float64(d.CadentSignificator)
			s.note("dignities", fmt.Sprintf("significator %s cadent in house %d", sig, pos.House), -float64(d.CadentSignificator))
		}
	}
}

func (e *Engine) stageTimingDecay(s *state) {
	if s.verdict != domain.VerdictYes || s.perf.Days <= 0 {
		return
	}
	decay := e.cfg.Timing.Decay
	factor := 1.0
	switch {
	case s.perf.Days > decay.LongThresholdDays:
		factor = decay.LongFactor
	case s.perf.Days > decay.MediumThresholdDays:
		factor = decay.MediumFactor
	}
	if factor < 1.0 {
		before := s.confidence
		s.confidence *= factor
		s.note("timing", fmt.Sprintf("perfection %.0f days out, confidence decayed", s.perf.Days), s.confidence-before)
		s.token("timing_distant")
	}
}

func (e *Engine) stageThresholds(s *state) {
	if s.verdict != domain.VerdictYes {
		return
	}
	switch {
	case s.confidence < lowConfidenceThreshold:
		s.verdict = domain.VerdictInconclusive
		if s.confidence < inconclusiveFloor {
			s.confidence = inconclusiveFloor
		}
		s.note("thresholds", "affirmative testimony too weak, reclassified inconclusive", 0)
	case s.confidence < cautionThreshold:
		s.note("thresholds", "affirmative with caution: confidence is moderate", 0)
	}
}

func denialLabel(k perfection.Kind) string {
	switch k {
	case perfection.Refranation:
		return "Refranation"
	case perfection.Prohibition:
		return "Prohibition"
	case perfection.Frustration:
		return "Frustration"
	case perfection.CombustionDenial:
		return "Combustion denial"
	}
	return "Denial"
}

func denialToken(k perfection.Kind) testimony.Token {
	switch k {
	case perfection.Refranation:
		return "denial_refranation"
	case perfection.Prohibition:
		return "denial_prohibition"
	case perfection.Frustration:
		return "denial_frustration"
	case perfection.CombustionDenial:
		return "denial_combustion"
	}
	return "denial_prohibition"
}

func perfectionLabel(k perfection.Kind) string {
	switch k {
	case perfection.Direct, perfection.DirectPenalized:
		return "Direct perfection"
	case perfection.DirectTimed:
		return "Future perfection"
	case perfection.Translation:
		return "Translation of light"
	case perfection.Collection:
		return "Collection of light"
	case perfection.HousePlacement:
		return "House placement perfection"
	}
	return "Perfection"
}

func perfectionToken(k perfection.Kind) testimony.Token {
	switch k {
	case perfection.Translation:
		return "perfection_translation"
	case perfection.Collection:
		return "perfection_collection"
	case perfection.HousePlacement:
		return "perfection_house_placement"
	case perfection.DirectTimed:
		return "perfection_timed"
	}
	return "perfection_direct"
}

func receptionToken(k reception.Kind) testimony.Token {
	switch k {
	case reception.MutualRulership:
		return "reception_mutual_rulership"
	case reception.MutualExaltation:
		return "reception_mutual_exaltation"
	}
	return "reception_one_way"
}

func receptionBonus(cfg config.ReceptionConfidence, k reception.Kind) float64 {
	switch k {
	case reception.MutualRulership:
		return float64(cfg.MutualRulershipBonus)
	case reception.MutualExaltation:
		return float64(cfg.MutualExaltationBonus)
	}
	return float64(cfg.OneWayBonus)
}

// beneficAspectToQuesited reports a benefic softly aspecting the quesited,
// a supportive signal that never substitutes for perfection.
func beneficAspectToQuesited(chart *domain.Chart, quesited domain.Planet) domain.Planet {
	for _, a := range chart.Aspects {
		if !a.Applying || a.Aspect.IsHard() {
			continue
		}
		if a.Planet1 == quesited && a.Planet2.IsBenefic() {
			return a.Planet2
		}
		if a.Planet2 == quesited && a.Planet1.IsBenefic() {
			return a.Planet1
		}
	}
	return ""
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
