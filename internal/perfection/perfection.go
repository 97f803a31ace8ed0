// Package perfection implements the resolver that decides whether and how two
// significators complete their aspect: directly, through a third body carrying
// or gathering light, through house placement, or not at all. Branches are
// tried in fixed precedence and exactly one tagged Result is produced per
// significator pair.
package perfection

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/aziz13-coder/newcodexhorary/internal/config"
	"github.com/aziz13-coder/newcodexhorary/internal/domain"
	"github.com/aziz13-coder/newcodexhorary/internal/ephemeris"
	"github.com/aziz13-coder/newcodexhorary/internal/reception"
	"github.com/aziz13-coder/newcodexhorary/internal/timing"
)

// Kind tags the perfection variant.
type Kind string

const (
	Direct                Kind = "direct"
	DirectPenalized       Kind = "direct_penalized"
	Translation           Kind = "translation"
	Collection            Kind = "collection"
	HousePlacement        Kind = "house_placement"
	DirectTimed           Kind = "direct_timed"
	AstronomicalAlignment Kind = "astronomical_alignment"
	Refranation           Kind = "refranation"
	Prohibition           Kind = "prohibition"
	Frustration           Kind = "frustration"
	CombustionDenial      Kind = "combustion_denial"
	ReceptionNoted        Kind = "reception_noted"
	NoPerfection          Kind = "none"
)

// Result is the single tagged outcome of a resolution pass.
type Result struct {
	Kind       Kind
	Perfects   bool
	Favorable  bool
	Confidence int
	Reason     string

	Aspect     *domain.AspectInfo  // aspect carrying the perfection, when one exists
	Days       float64             // days until the decisive event
	Reception  reception.Reception // reception between the significator pair
	Translator domain.Planet
	Collector  domain.Planet
	Prohibitor domain.Planet
	Blocked    domain.Planet // significator the prohibitor reaches first
	Frustrator domain.Planet
}

// Denied reports whether the result is an active denial rather than a plain
// absence of perfection.
func (r Result) Denied() bool {
	switch r.Kind {
	case Refranation, Prohibition, Frustration, CombustionDenial:
		return true
	}
	return false
}

const (
	hardAspectPenalty          = 25
	weakenedHardPenalty        = 15
	housePlacementPenalty      = 10
	exaltationBoost            = 15
	occupantDignityBonus       = 10
	promptTimingBonus          = 5
	slowTimingBonus            = 2
	combustTranslatorPenalty   = 10
	combustionDenialConfidence = 85
	saturnFrustrationBonus     = 10
	marsFrustrationBonus       = 5
	frustrationReceptionRelief = 15
)

// Resolver evaluates the perfection state machine for one chart at a time.
// It holds no per-judgment state and is safe for concurrent use.
type Resolver struct {
	cfg config.Engine
	eph ephemeris.Provider
	log zerolog.Logger
}

// NewResolver builds a resolver. The ephemeris provider may be nil, in which
// case station lookups (refranation) are skipped.
func NewResolver(cfg config.Engine, eph ephemeris.Provider, log zerolog.Logger) *Resolver {
	return &Resolver{
		cfg: cfg,
		eph: eph,
		log: log.With().Str("component", "perfection").Logger(),
	}
}

// Resolve runs the precedence chain for the contract's significator pair:
// direct aspect, house placement, future-timed perfection (with the
// intervening-body scan), translation of light, collection of light,
// reception without perfection, none.
func (r *Resolver) Resolve(chart *domain.Chart, contract domain.Contract) Result {
	querent, quesited := contract.Querent, contract.Quesited
	window := float64(contract.WindowDays)
	if window <= 0 {
		window = r.cfg.Timing.MaxHoraryDays
	}

	qPos, ok1 := chart.Position(querent)
	dPos, ok2 := chart.Position(quesited)
	if !ok1 || !ok2 || querent == quesited {
		return Result{Kind: NoPerfection, Reason: "significator pair not resolvable in chart"}
	}

	if res, ok := r.directAspect(chart, qPos, dPos); ok {
		return res
	}
	if res, ok := r.housePlacement(chart, contract, window); ok {
		return res
	}
	if res, ok := r.timedPerfection(chart, qPos, dPos, window); ok {
		return res
	}
	if res, ok := r.translation(chart, qPos, dPos); ok {
		return res
	}
	if res, ok := r.collection(chart, qPos, dPos); ok {
		return res
	}

	if rec := reception.Between(chart, querent, quesited); rec.Kind != reception.None {
		return Result{
			Kind:      ReceptionNoted,
			Reception: rec,
			Reason:    fmt.Sprintf("reception noted without perfection: %s", rec.Display),
		}
	}
	return Result{
		Kind:   NoPerfection,
		Reason: fmt.Sprintf("no perfection found between %s and %s", querent, quesited),
	}
}

// directAspect handles an existing applying aspect between the significators.
func (r *Resolver) directAspect(chart *domain.Chart, qPos, dPos domain.PlanetPosition) (Result, bool) {
	aspect, ok := findAspect(chart, qPos.Planet, dPos.Planet)
	if !ok || !aspect.Applying {
		return Result{}, false
	}

	// A conjunction with the luminary while the partner burns is the partner
	// being consumed, not the matter perfecting.
	if aspect.Aspect == domain.Conjunction {
		if partner, combust := combustPartner(chart, qPos.Planet, dPos.Planet); combust {
			return Result{
				Kind:       CombustionDenial,
				Confidence: combustionDenialConfidence,
				Aspect:     &aspect,
				Reason:     fmt.Sprintf("%s is combust while conjoining the Sun: denial, not union", partner),
			}, true
		}
	}

	days, solvable := timing.FutureAspectTime(qPos, dPos, aspect.Aspect, r.cfg.Timing.MaxFutureDays)
	if !solvable {
		days = aspect.PerfectionDays
	}
	if r.cfg.Perfection.RequireInSign && days > 0 &&
		!timing.WillPerfectBeforeSignExit(qPos, dPos, aspect.DegreesToExact) {
		return Result{}, false
	}

	if who, station, found := r.stationBefore(chart, qPos.Planet, dPos.Planet, days); found {
		return Result{
			Kind:       Refranation,
			Confidence: r.cfg.Confidence.Denial.Refranation,
			Aspect:     &aspect,
			Days:       station,
			Reason:     fmt.Sprintf("%s stations before perfecting: refranation", who),
		}, true
	}

	rec := reception.Between(chart, qPos.Planet, dPos.Planet)
	res := Result{
		Perfects:  true,
		Aspect:    &aspect,
		Days:      days,
		Reception: rec,
	}

	base := r.cfg.Confidence.Perfection
	switch {
	case rec.Kind == reception.MutualRulership:
		res.Kind = Direct
		res.Favorable = true
		res.Confidence = base.DirectWithMutualRulership
		res.Reason = fmt.Sprintf("direct %s with mutual rulership reception", lower(aspect.Aspect.String()))
	case rec.Kind == reception.MutualExaltation:
		res.Kind = Direct
		res.Favorable = true
		confidence := base.DirectWithMutualExaltation + exaltationBoost
		if confidence > 100 {
			confidence = 100
		}
		res.Confidence = confidence
		res.Reason = fmt.Sprintf("direct %s with mutual exaltation reception", lower(aspect.Aspect.String()))
	case aspect.Aspect.IsHard() && rec.SoftensHardAspects():
		res.Kind = Direct
		res.Favorable = true
		res.Confidence = base.DirectBasic - weakenedHardPenalty
		res.Reason = fmt.Sprintf("direct %s softened by %s", lower(aspect.Aspect.String()), rec.Display)
	case aspect.Aspect.IsHard():
		res.Kind = DirectPenalized
		res.Favorable = false
		res.Confidence = base.DirectBasic - hardAspectPenalty
		res.Reason = fmt.Sprintf("direct %s without reception: perfects with difficulty", lower(aspect.Aspect.String()))
	default:
		res.Kind = Direct
		res.Favorable = true
		res.Confidence = base.DirectBasic
		res.Reason = fmt.Sprintf("direct applying %s between significators", lower(aspect.Aspect.String()))
	}
	return res, true
}

// housePlacement checks the placement channel: a body sitting in the quesited
// house perfects the matter through location rather than aspect between the
// principal pair, either by a current applying aspect to the house ruler or by
// reaching the ruler inside the question window.
func (r *Resolver) housePlacement(chart *domain.Chart, contract domain.Contract, window float64) (Result, bool) {
	house := contract.QuesitedHouse
	if house == 0 {
		return Result{}, false
	}
	ruler, ok := chart.HouseRulers[house]
	if !ok {
		return Result{}, false
	}

	for _, occupant := range domain.ClassicalPlanets {
		if occupant == ruler {
			continue
		}
		pos, ok := chart.Position(occupant)
		if !ok || pos.House != house {
			continue
		}
		if aspect, ok := findAspect(chart, occupant, ruler); ok && aspect.Applying {
			return Result{
				Kind:       HousePlacement,
				Perfects:   true,
				Favorable:  !aspect.Aspect.IsHard(),
				Confidence: r.cfg.Confidence.Perfection.DirectBasic - housePlacementPenalty,
				Aspect:     &aspect,
				Days:       aspect.PerfectionDays,
				Reason: fmt.Sprintf("%s occupies house %d and applies to its ruler %s",
					occupant, house, ruler),
			}, true
		}
		if res, ok := r.futureAspectToRuler(chart, pos, ruler, house, window); ok {
			return res, true
		}
	}
	return Result{}, false
}

// futureAspectToRuler solves the occupant's next exact aspect to the house
// ruler inside the window and runs the intervening-body scan on it. A
// translation or collection found by the scan perfects in its own right; a
// prohibited contact yields nothing for this occupant.
func (r *Resolver) futureAspectToRuler(chart *domain.Chart, occPos domain.PlanetPosition, ruler domain.Planet, house int, window float64) (Result, bool) {
	rulerPos, ok := chart.Position(ruler)
	if !ok {
		return Result{}, false
	}
	for _, aspect := range domain.PtolemaicAspects {
		days, ok := timing.FutureAspectTime(occPos, rulerPos, aspect, window)
		if !ok || days <= 0 {
			continue
		}
		if res, hit := r.ScanInterveners(chart, occPos.Planet, ruler, days); hit {
			if res.Kind == Translation || res.Kind == Collection {
				return res, true
			}
			return Result{}, false
		}

		confidence := r.cfg.Confidence.Perfection.DirectBasic
		if occPos.DignityScore > 3 {
			confidence += occupantDignityBonus
		}
		favorable := !aspect.IsHard()
		if !favorable {
			confidence -= housePlacementPenalty
		}
		switch {
		case days <= 7:
			confidence += promptTimingBonus
		case days <= 30:
			confidence += slowTimingBonus
		}

		info := domain.AspectInfo{
			Planet1:        occPos.Planet,
			Planet2:        ruler,
			Aspect:         aspect,
			Orb:            timing.OrbToAspect(occPos, rulerPos, aspect),
			Applying:       true,
			PerfectionDays: days,
		}
		return Result{
			Kind:       HousePlacement,
			Perfects:   true,
			Favorable:  favorable,
			Confidence: confidence,
			Aspect:     &info,
			Days:       days,
			Reason: fmt.Sprintf("%s occupies house %d and reaches its ruler %s by %s in %.1f days",
				occPos.Planet, house, ruler, lower(aspect.String()), days),
		}, true
	}
	return Result{}, false
}

// timedPerfection solves for a future aspect between the pair when no aspect
// currently exists, then scans for third bodies intervening before it. Only
// applying candidates inside the pair's combined moiety orb qualify; a
// candidate beyond the question window is reported as a bare astronomical
// alignment that never perfects.
func (r *Resolver) timedPerfection(chart *domain.Chart, qPos, dPos domain.PlanetPosition, window float64) (Result, bool) {
	type candidate struct {
		aspect domain.Aspect
		days   float64
	}
	var best *candidate

	for _, aspect := range domain.PtolemaicAspects {
		if sep, ok := findTypedAspect(chart, qPos.Planet, dPos.Planet, aspect); ok && !sep.Applying {
			continue // already separating from this aspect, the meeting is past
		}
		maxOrb := timing.MoietyOrb(r.cfg.Orbs, qPos.Planet, dPos.Planet, aspect)
		if math.Abs(timing.SignedOrb(qPos, dPos, aspect)) > maxOrb {
			continue
		}
		if timing.OrbMotion(qPos, dPos, aspect) >= 0 {
			continue // separating or static
		}
		days, ok := timing.FutureAspectTime(qPos, dPos, aspect, r.cfg.Timing.MaxFutureDays)
		if !ok {
			continue
		}
		if r.cfg.Perfection.RequireInSign && !r.cfg.Perfection.AllowOutOfSign {
			if exit, ok := timing.DaysToSignExit(qPos.Longitude, qPos.Speed); ok && days > exit {
				continue
			}
			if exit, ok := timing.DaysToSignExit(dPos.Longitude, dPos.Speed); ok && days > exit {
				continue
			}
		}
		if best == nil || days < best.days {
			best = &candidate{aspect: aspect, days: days}
		}
	}
	if best == nil {
		return Result{}, false
	}

	// Third bodies reaching the pair before the perfection time supersede it.
	if res, ok := r.ScanInterveners(chart, qPos.Planet, dPos.Planet, best.days); ok {
		return res, true
	}

	info := domain.AspectInfo{
		Planet1:        qPos.Planet,
		Planet2:        dPos.Planet,
		Aspect:         best.aspect,
		Orb:            timing.OrbToAspect(qPos, dPos, best.aspect),
		Applying:       true,
		PerfectionDays: best.days,
	}
	rec := reception.Between(chart, qPos.Planet, dPos.Planet)

	if best.days > window {
		return Result{
			Kind:      AstronomicalAlignment,
			Aspect:    &info,
			Days:      best.days,
			Reception: rec,
			Reason: fmt.Sprintf("significators align by %s in %.1f days, beyond the question window",
				lower(best.aspect.String()), best.days),
		}, true
	}

	return Result{
		Kind:       DirectTimed,
		Perfects:   true,
		Favorable:  !best.aspect.IsHard(),
		Confidence: r.cfg.Confidence.Perfection.DirectBasic,
		Aspect:     &info,
		Days:       best.days,
		Reception:  rec,
		Reason: fmt.Sprintf("significators perfect a %s in %.1f days",
			lower(best.aspect.String()), best.days),
	}, true
}

// ScanInterveners walks every classical body outside the pair, in
// conventional order, looking for an aspect contact that completes before the
// pending perfection at mainDays. The first qualifying contact settles the
// scan. A body reaching both significators carries or gathers the light
// (translation when faster than both, collection when slower, by signed
// speed); any other contact prohibits the significator it strikes first.
func (r *Resolver) ScanInterveners(chart *domain.Chart, p1, p2 domain.Planet, mainDays float64) (Result, bool) {
	pos1, ok1 := chart.Position(p1)
	pos2, ok2 := chart.Position(p2)
	if !ok1 || !ok2 {
		return Result{}, false
	}

	for _, body := range domain.ClassicalPlanets {
		if body == p1 || body == p2 {
			continue
		}
		bodyPos, ok := chart.Position(body)
		if !ok {
			continue
		}
		for _, aspect := range domain.PtolemaicAspects {
			t1, hit1 := r.validContact(bodyPos, pos1, aspect, mainDays)
			t2, hit2 := r.validContact(bodyPos, pos2, aspect, mainDays)
			if !hit1 && !hit2 {
				continue
			}

			if hit1 && hit2 {
				rec := reception.Between(chart, p1, p2)
				event := math.Max(t1, t2)
				if bodyPos.Speed > math.Max(pos1.Speed, pos2.Speed) {
					return Result{
						Kind:       Translation,
						Perfects:   true,
						Favorable:  true,
						Confidence: r.cfg.Confidence.Perfection.TranslationOfLight,
						Translator: body,
						Days:       event,
						Reception:  rec,
						Reason: fmt.Sprintf("%s reaches both significators before their perfection, translating the light",
							body),
					}, true
				}
				if bodyPos.Speed < math.Min(pos1.Speed, pos2.Speed) {
					return Result{
						Kind:       Collection,
						Perfects:   true,
						Favorable:  true,
						Confidence: r.cfg.Confidence.Perfection.CollectionOfLight,
						Collector:  body,
						Days:       event,
						Reception:  rec,
						Reason: fmt.Sprintf("%s gathers aspects from both significators before their perfection, collecting the light",
							body),
					}, true
				}
			}

			blocked, at := p1, t1
			if !hit1 || (hit2 && t2 < t1) {
				blocked, at = p2, t2
			}
			return Result{
				Kind:       Prohibition,
				Confidence: r.cfg.Confidence.Denial.Frustration,
				Prohibitor: body,
				Blocked:    blocked,
				Days:       at,
				Reason: fmt.Sprintf("%s reaches %s in %.1f days, before the significators can perfect",
					body, blocked, at),
			}, true
		}
	}
	return Result{}, false
}

// validContact solves the body's next exact aspect of one type to the
// significator. The contact counts only when it lands strictly inside the
// window and, when out-of-sign contacts are excluded, before either party
// leaves its sign.
func (r *Resolver) validContact(bodyPos, sigPos domain.PlanetPosition, aspect domain.Aspect, window float64) (float64, bool) {
	t, ok := timing.FutureAspectTime(bodyPos, sigPos, aspect, window)
	if !ok || t <= 0 || t >= window {
		return 0, false
	}
	if r.cfg.Perfection.RequireInSign && !r.cfg.Perfection.AllowOutOfSign {
		if exit, ok := timing.DaysToSignExit(bodyPos.Longitude, bodyPos.Speed); ok && t >= exit {
			return 0, false
		}
		if exit, ok := timing.DaysToSignExit(sigPos.Longitude, sigPos.Speed); ok && t >= exit {
			return 0, false
		}
	}
	return t, true
}

// translation looks for a third body carrying light between the pair at the
// chart epoch: faster than both, in orb with both, separating from one and
// applying to the other with nothing intervening.
func (r *Resolver) translation(chart *domain.Chart, qPos, dPos domain.PlanetPosition) (Result, bool) {
	for _, body := range domain.ClassicalPlanets {
		if body == qPos.Planet || body == dPos.Planet {
			continue
		}
		trPos, ok := chart.Position(body)
		if !ok {
			continue
		}
		if r.cfg.Translation.RequireSpeedAdvantage {
			if math.Abs(trPos.Speed) <= math.Abs(qPos.Speed) ||
				math.Abs(trPos.Speed) <= math.Abs(dPos.Speed) {
				continue
			}
		}

		toQ, okQ := findAspect(chart, body, qPos.Planet)
		toD, okD := findAspect(chart, body, dPos.Planet)
		if !okQ || !okD {
			continue
		}

		var from, to domain.AspectInfo
		var receiver domain.Planet
		switch {
		case !toQ.Applying && toD.Applying:
			from, to, receiver = toQ, toD, dPos.Planet
		case !toD.Applying && toQ.Applying:
			from, to, receiver = toD, toQ, qPos.Planet
		default:
			continue
		}
		if r.cfg.Translation.RequireProperSequence &&
			!r.nothingIntervenes(chart, trPos, receiver) {
			continue
		}

		confidence := r.cfg.Confidence.Perfection.TranslationOfLight
		reason := fmt.Sprintf("%s separates from %s and applies to %s, translating the light",
			body, from.Other(body), to.Other(body))
		if chart.SolarConditionOf(body) == domain.SolarCombustion {
			confidence -= combustTranslatorPenalty
			reason += " (translator combust)"
		}

		recPos, _ := chart.Position(receiver)
		days := 0.0
		if t, ok := timing.FutureAspectTime(trPos, recPos, to.Aspect, r.cfg.Timing.MaxFutureDays); ok {
			days = t
		}
		return Result{
			Kind:       Translation,
			Perfects:   true,
			Favorable:  true,
			Confidence: confidence,
			Translator: body,
			Aspect:     &to,
			Days:       days,
			Reception:  reception.Between(chart, qPos.Planet, dPos.Planet),
			Reason:     reason,
		}, true
	}
	return Result{}, false
}

// nothingIntervenes verifies the translator's applying aspect to the receiver
// is its very next aspect: no other body's aspect perfects sooner.
func (r *Resolver) nothingIntervenes(chart *domain.Chart, trPos domain.PlanetPosition, receiver domain.Planet) bool {
	recPos, ok := chart.Position(receiver)
	if !ok {
		return false
	}
	target, ok := earliestAspectTime(trPos, recPos, r.cfg.Timing.MaxFutureDays)
	if !ok {
		return false
	}
	for _, other := range domain.ClassicalPlanets {
		if other == trPos.Planet || other == receiver {
			continue
		}
		otherPos, ok := chart.Position(other)
		if !ok {
			continue
		}
		if t, ok := earliestAspectTime(trPos, otherPos, target); ok && t < target {
			return false
		}
	}
	return true
}

// collection looks for a slower third body gathering applying aspects from
// both significators. Stricter than translation: both significators must
// receive the collector in an essential dignity, and both collecting aspects
// must complete before either significator leaves its sign.
func (r *Resolver) collection(chart *domain.Chart, qPos, dPos domain.PlanetPosition) (Result, bool) {
	for _, body := range domain.ClassicalPlanets {
		if body == qPos.Planet || body == dPos.Planet {
			continue
		}
		colPos, ok := chart.Position(body)
		if !ok {
			continue
		}
		if math.Abs(colPos.Speed) >= math.Abs(qPos.Speed) ||
			math.Abs(colPos.Speed) >= math.Abs(dPos.Speed) {
			continue
		}

		fromQ, okQ := findAspect(chart, body, qPos.Planet)
		fromD, okD := findAspect(chart, body, dPos.Planet)
		if !okQ || !okD || !fromQ.Applying || !fromD.Applying {
			continue
		}
		if !reception.Receives(chart, qPos.Planet, body) ||
			!reception.Receives(chart, dPos.Planet, body) {
			continue
		}

		tQ, okTQ := timing.FutureAspectTime(qPos, colPos, fromQ.Aspect, r.cfg.Timing.MaxFutureDays)
		tD, okTD := timing.FutureAspectTime(dPos, colPos, fromD.Aspect, r.cfg.Timing.MaxFutureDays)
		if !okTQ || !okTD {
			continue
		}
		if exit, ok := timing.DaysToSignExit(qPos.Longitude, qPos.Speed); ok && tQ > exit {
			continue
		}
		if exit, ok := timing.DaysToSignExit(dPos.Longitude, dPos.Speed); ok && tD > exit {
			continue
		}

		return Result{
			Kind:       Collection,
			Perfects:   true,
			Favorable:  true,
			Confidence: r.cfg.Confidence.Perfection.CollectionOfLight,
			Collector:  body,
			Days:       math.Max(tQ, tD),
			Reception:  reception.Between(chart, qPos.Planet, dPos.Planet),
			Reason: fmt.Sprintf("both significators apply to %s, which both receive: collection of light",
				body),
		}, true
	}
	return Result{}, false
}

// CheckFrustration runs the independent frustration test against a pending
// perfection at mainDays: a third body whose recorded applying aspect to
// either significator completes strictly earlier denies the result. Only
// in-orb chart aspects qualify as frustrators. Malefic frustrators are judged
// more severely; reception between frustrator and the struck significator
// softens it. Returns nil when nothing frustrates.
func (r *Resolver) CheckFrustration(chart *domain.Chart, p1, p2 domain.Planet, mainDays float64) *Result {
	if mainDays <= 0 {
		return nil
	}

	for _, aspect := range chart.Aspects {
		if !aspect.Applying {
			continue
		}
		var struck, frustrator domain.Planet
		switch {
		case (aspect.Planet1 == p1 || aspect.Planet1 == p2) && aspect.Planet2 != p1 && aspect.Planet2 != p2:
			struck, frustrator = aspect.Planet1, aspect.Planet2
		case (aspect.Planet2 == p1 || aspect.Planet2 == p2) && aspect.Planet1 != p1 && aspect.Planet1 != p2:
			struck, frustrator = aspect.Planet2, aspect.Planet1
		default:
			continue
		}
		struckPos, ok1 := chart.Position(struck)
		frPos, ok2 := chart.Position(frustrator)
		if !ok1 || !ok2 {
			continue
		}
		t, ok := timing.FutureAspectTime(struckPos, frPos, aspect.Aspect, r.cfg.Timing.MaxFutureDays)
		if !ok || t >= mainDays {
			continue
		}

		confidence := r.cfg.Confidence.Denial.Frustration
		switch frustrator {
		case domain.Saturn:
			confidence += saturnFrustrationBonus
		case domain.Mars:
			confidence += marsFrustrationBonus
		}
		if reception.Between(chart, frustrator, struck).Kind != reception.None {
			confidence -= frustrationReceptionRelief
		}
		return &Result{
			Kind:       Frustration,
			Confidence: confidence,
			Frustrator: frustrator,
			Blocked:    struck,
			Days:       t,
			Reason: fmt.Sprintf("%s completes its %s to %s in %.1f days, frustrating the perfection",
				frustrator, lower(aspect.Aspect.String()), struck, t),
		}
	}
	return nil
}

// stationBefore asks the ephemeris whether either body reverses motion before
// the perfection at days. Returns the refraining body and station offset.
func (r *Resolver) stationBefore(chart *domain.Chart, p1, p2 domain.Planet, days float64) (domain.Planet, float64, bool) {
	if r.eph == nil || days <= 0 {
		return "", 0, false
	}
	for _, body := range []domain.Planet{p1, p2} {
		station, found, err := timing.DaysToNextStation(r.eph, body, chart.JulianDay, days)
		if err != nil {
			r.log.Warn().Err(err).Str("planet", string(body)).Msg("station lookup failed")
			continue
		}
		if found && station < days {
			return body, station, true
		}
	}
	return "", 0, false
}

// earliestAspectTime returns the soonest perfection time of any Ptolemaic
// aspect between the two positions, bounded by horizon.
func earliestAspectTime(a, b domain.PlanetPosition, horizon float64) (float64, bool) {
	best := math.Inf(1)
	for _, aspect := range domain.PtolemaicAspects {
		if t, ok := timing.FutureAspectTime(a, b, aspect, horizon); ok && t < best {
			best = t
		}
	}
	if math.IsInf(best, 1) {
		return 0, false
	}
	return best, true
}

// findAspect returns the chart aspect joining the two bodies, if recorded.
func findAspect(chart *domain.Chart, p1, p2 domain.Planet) (domain.AspectInfo, bool) {
	for _, a := range chart.Aspects {
		if a.Involves(p1, p2) {
			return a, true
		}
	}
	return domain.AspectInfo{}, false
}

// findTypedAspect returns the chart aspect of a specific type joining the pair.
func findTypedAspect(chart *domain.Chart, p1, p2 domain.Planet, aspect domain.Aspect) (domain.AspectInfo, bool) {
	for _, a := range chart.Aspects {
		if a.Involves(p1, p2) && a.Aspect == aspect {
			return a, true
		}
	}
	return domain.AspectInfo{}, false
}

// combustPartner reports whether either body of a Sun conjunction is combust.
func combustPartner(chart *domain.Chart, p1, p2 domain.Planet) (domain.Planet, bool) {
	var partner domain.Planet
	switch {
	case p1 == domain.Sun:
		partner = p2
	case p2 == domain.Sun:
		partner = p1
	default:
		return "", false
	}
	if chart.SolarConditionOf(partner) == domain.SolarCombustion {
		return partner, true
	}
	return "", false
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
