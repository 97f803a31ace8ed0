// Package testimony folds symbolic chart observations into a signed,
// auditable score. Tokens are sorted by canonical key before aggregation so
// the ledger is deterministic under input reordering, duplicates contribute
// once, and families contribute at most one scoring entry each.
package testimony

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aziz13-coder/newcodexhorary/internal/rules"
)

// Token names one symbolic observation from the closed catalog.
type Token string

// Polarity is the direction a token pushes the verdict.
type Polarity int

const (
	Neutral Polarity = iota
	Positive
	Negative
)

func (p Polarity) String() string {
	switch p {
	case Positive:
		return "positive"
	case Negative:
		return "negative"
	}
	return "neutral"
}

func parsePolarity(s string) (Polarity, error) {
	switch s {
	case "positive":
		return Positive, nil
	case "negative":
		return Negative, nil
	case "neutral", "":
		return Neutral, nil
	}
	return Neutral, fmt.Errorf("unknown polarity %q", s)
}

// Meta is the registry record for one token.
type Meta struct {
	Polarity Polarity
	Weight   float64
	Family   string
	Kind     string
}

// Registry is the immutable token-metadata table built from a rule pack.
type Registry struct {
	meta map[Token]Meta
}

// NewRegistry builds a registry from the pack's token declarations.
func NewRegistry(specs []rules.TokenSpec) (*Registry, error) {
	meta := make(map[Token]Meta, len(specs))
	for _, spec := range specs {
		if spec.Token == "" {
			return nil, fmt.Errorf("token spec with empty name")
		}
		polarity, err := parsePolarity(spec.Polarity)
		if err != nil {
			return nil, fmt.Errorf("token %s: %w", spec.Token, err)
		}
		if _, dup := meta[Token(spec.Token)]; dup {
			return nil, fmt.Errorf("duplicate token %s", spec.Token)
		}
		meta[Token(spec.Token)] = Meta{
			Polarity: polarity,
			Weight:   spec.Weight,
			Family:   spec.Family,
			Kind:     spec.Kind,
		}
	}
	return &Registry{meta: meta}, nil
}

// Lookup returns the metadata for a token. A negative stored weight is a
// corrupted table and raises rather than aggregating: polarity alone
// carries sign.
func (r *Registry) Lookup(token Token) (Meta, bool, error) {
	m, ok := r.meta[token]
	if !ok {
		return Meta{}, false, nil
	}
	if m.Weight < 0 {
		return Meta{}, false, fmt.Errorf("token %s has negative weight %v", token, m.Weight)
	}
	return m, true, nil
}

// Entry is one accepted or suppressed ledger line.
type Entry struct {
	Token       Token    `json:"token"`
	Polarity    Polarity `json:"polarity"`
	Weight      float64  `json:"weight"`
	DeltaYes    float64  `json:"delta_yes"`
	DeltaNo     float64  `json:"delta_no"`
	Family      string   `json:"family,omitempty"`
	Kind        string   `json:"kind,omitempty"`
	ContextOnly bool     `json:"context_only,omitempty"`
}

// Aggregation is the ordered ledger with its signed total.
type Aggregation struct {
	Score   float64 `json:"score"`
	Entries []Entry `json:"entries"`
}

// Aggregate folds tokens into a score. Tokens are sorted by name and
// deduplicated; neutral and unknown tokens are skipped; the first member of
// each family (in sort order) scores and later members are retained as
// context only. Role multipliers scale the weight of every token carrying
// the role name as an underscore-delimited component; multiple matching
// roles compose multiplicatively.
func Aggregate(reg *Registry, tokens []Token, roleWeights map[string]float64) (Aggregation, error) {
	sorted := make([]Token, len(tokens))
	copy(sorted, tokens)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var agg Aggregation
	seen := make(map[Token]bool, len(sorted))
	familyUsed := make(map[string]bool)

	for _, token := range sorted {
		if seen[token] {
			continue
		}
		seen[token] = true

		meta, ok, err := reg.Lookup(token)
		if err != nil {
			return Aggregation{}, err
		}
		if !ok || meta.Polarity == Neutral {
			continue
		}

		weight := meta.Weight * roleMultiplier(token, roleWeights)

		entry := Entry{
			Token:    token,
			Polarity: meta.Polarity,
			Weight:   weight,
			Family:   meta.Family,
			Kind:     meta.Kind,
		}
		if meta.Family != "" && familyUsed[meta.Family] {
			entry.ContextOnly = true
			agg.Entries = append(agg.Entries, entry)
			continue
		}
		if meta.Family != "" {
			familyUsed[meta.Family] = true
		}

		switch meta.Polarity {
		case Positive:
			entry.DeltaYes = weight
			agg.Score += weight
		case Negative:
			entry.DeltaNo = weight
			agg.Score -= weight
		}
		agg.Entries = append(agg.Entries, entry)
	}
	return agg, nil
}

// roleMultiplier composes the multipliers of every role appearing as a
// component of the token name. "moon_void" matches role "moon"; "moonshine"
// does not.
func roleMultiplier(token Token, roleWeights map[string]float64) float64 {
	if len(roleWeights) == 0 {
		return 1.0
	}
	multiplier := 1.0
	components := strings.Split(string(token), "_")
	for role, factor := range roleWeights {
		for _, part := range components {
			if part == role {
				multiplier *= factor
				break
			}
		}
	}
	return multiplier
}

// Rationale renders the ledger as display lines, scoring entries signed and
// suppressed entries marked as context.
func (a Aggregation) Rationale() []string {
	lines := make([]string, 0, len(a.Entries))
	for _, e := range a.Entries {
		switch {
		case e.ContextOnly:
			lines = append(lines, fmt.Sprintf("%s (context only, family %s already counted)", e.Token, e.Family))
		case e.Polarity == Positive:
			lines = append(lines, fmt.Sprintf("+%.1f %s", e.Weight, e.Token))
		default:
			lines = append(lines, fmt.Sprintf("-%.1f %s", e.Weight, e.Token))
		}
	}
	return lines
}
