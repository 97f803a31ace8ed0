// Package reception detects dignity-based reception between chart bodies.
// A planet "receives" another when the received planet sits in a sign the
// receiver rules or is exalted in; mutual reception traditionally softens
// hard aspects between significators.
package reception

import (
	"fmt"

	"github.com/aziz13-coder/newcodexhorary/internal/domain"
)

// Kind classifies the reception relationship between two bodies.
type Kind string

const (
	None             Kind = "none"
	MutualRulership  Kind = "mutual_rulership"
	MutualExaltation Kind = "mutual_exaltation"
	Mixed            Kind = "mixed_reception"
	OneWay           Kind = "one_way"
)

// Dignity names the essential dignity through which reception operates.
type Dignity string

const (
	ByRulership  Dignity = "rulership"
	ByExaltation Dignity = "exaltation"
)

// Reception is the full reception analysis for an unordered planet pair.
type Reception struct {
	Kind       Kind
	P1Receives []Dignity // dignities by which planet1 receives planet2
	P2Receives []Dignity // dignities by which planet2 receives planet1
	Display    string
}

// IsMutual reports whether reception flows in both directions.
func (r Reception) IsMutual() bool {
	return r.Kind == MutualRulership || r.Kind == MutualExaltation || r.Kind == Mixed
}

// SoftensHardAspects reports whether the reception is strong enough to
// overcome a square or opposition.
func (r Reception) SoftensHardAspects() bool {
	return r.IsMutual()
}

// dignitiesReceiving returns the dignities by which receiver welcomes the
// received planet, based on the received planet's sign.
func dignitiesReceiving(receiver domain.Planet, receivedSign domain.Sign) []Dignity {
	var out []Dignity
	if receivedSign.Ruler() == receiver {
		out = append(out, ByRulership)
	}
	if exalted, ok := receivedSign.Exalted(); ok && exalted == receiver {
		out = append(out, ByExaltation)
	}
	return out
}

// Between computes the reception relationship between two bodies in a chart.
func Between(chart *domain.Chart, p1, p2 domain.Planet) Reception {
	pos1, ok1 := chart.Position(p1)
	pos2, ok2 := chart.Position(p2)
	if !ok1 || !ok2 || p1 == p2 {
		return Reception{Kind: None, Display: "none"}
	}

	r := Reception{
		P1Receives: dignitiesReceiving(p1, pos2.Sign),
		P2Receives: dignitiesReceiving(p2, pos1.Sign),
	}

	switch {
	case contains(r.P1Receives, ByRulership) && contains(r.P2Receives, ByRulership):
		r.Kind = MutualRulership
		r.Display = fmt.Sprintf("mutual rulership between %s and %s", p1, p2)
	case contains(r.P1Receives, ByExaltation) && contains(r.P2Receives, ByExaltation):
		r.Kind = MutualExaltation
		r.Display = fmt.Sprintf("mutual exaltation between %s and %s", p1, p2)
	case len(r.P1Receives) > 0 && len(r.P2Receives) > 0:
		r.Kind = Mixed
		r.Display = fmt.Sprintf("mixed reception between %s and %s", p1, p2)
	case len(r.P1Receives) > 0:
		r.Kind = OneWay
		r.Display = fmt.Sprintf("%s receives %s by %s", p1, p2, r.P1Receives[0])
	case len(r.P2Receives) > 0:
		r.Kind = OneWay
		r.Display = fmt.Sprintf("%s receives %s by %s", p2, p1, r.P2Receives[0])
	default:
		r.Kind = None
		r.Display = "none"
	}
	return r
}

// Receives reports whether receiver welcomes received in at least one
// essential dignity. This is the strict test collection of light uses.
func Receives(chart *domain.Chart, receiver, received domain.Planet) bool {
	pos, ok := chart.Position(received)
	if !ok {
		return false
	}
	return len(dignitiesReceiving(receiver, pos.Sign)) > 0
}

func contains(list []Dignity, d Dignity) bool {
	for _, item := range list {
		if item == d {
			return true
		}
	}
	return false
}
