// Package rules loads declarative rule packs and selects the winning rule
// per tier. A pack is parsed once at startup and treated as read-only for
// the process lifetime; concurrent judgments share it without locking.
package rules

import (
	"embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aziz13-coder/newcodexhorary/internal/config"
)

//go:embed packs/*.yaml
var embeddedPacks embed.FS

// Tier orders rule evaluation. Earlier tiers settle before later ones run.
type Tier string

const (
	TierValidityGates Tier = "validity_gates"
	TierHardStoppers  Tier = "hard_stoppers"
	TierPerfection    Tier = "perfection"
	TierSpecialTopics Tier = "special_topics"
	TierMoon          Tier = "moon"
	TierModifiers     Tier = "modifiers"
	TierThresholds    Tier = "thresholds"
)

// TierOrder is the fixed evaluation order.
var TierOrder = []Tier{
	TierValidityGates,
	TierHardStoppers,
	TierPerfection,
	TierSpecialTopics,
	TierMoon,
	TierModifiers,
	TierThresholds,
}

var validTiers = func() map[Tier]bool {
	m := make(map[Tier]bool, len(TierOrder))
	for _, t := range TierOrder {
		m[t] = true
	}
	return m
}()

// Rule is one declarative rule record. A rule carries either a static
// numeric weight or the name of a weight function resolved at runtime.
type Rule struct {
	ID          string   `yaml:"id"`
	Tier        Tier     `yaml:"tier"`
	Description string   `yaml:"description"`
	Weight      *float64 `yaml:"weight,omitempty"`
	WeightFunc  string   `yaml:"weight_func,omitempty"`
}

// TokenSpec declares the metadata of one testimony token.
type TokenSpec struct {
	Token    string  `yaml:"token"`
	Polarity string  `yaml:"polarity"`
	Weight   float64 `yaml:"weight"`
	Family   string  `yaml:"family,omitempty"`
	Kind     string  `yaml:"kind,omitempty"`
}

// Pack is a parsed rule pack.
type Pack struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description,omitempty"`
	Rules       []Rule      `yaml:"rules"`
	Tokens      []TokenSpec `yaml:"tokens"`

	byID map[string]Rule
}

// Default parses the embedded lilly_general_v1 pack.
func Default() (*Pack, error) {
	return Named("lilly_general_v1")
}

// Named parses an embedded pack by name.
func Named(name string) (*Pack, error) {
	data, err := embeddedPacks.ReadFile("packs/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("rule pack %q not embedded: %w", name, err)
	}
	return parse(data)
}

// LoadFile parses a rule pack from disk, for operator-supplied packs.
func LoadFile(path string) (*Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule pack: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Pack, error) {
	var pack Pack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("parse rule pack: %w", err)
	}
	pack.byID = make(map[string]Rule, len(pack.Rules))
	for _, rule := range pack.Rules {
		if rule.ID == "" {
			return nil, fmt.Errorf("rule pack %q: rule with empty id", pack.Name)
		}
		if !validTiers[rule.Tier] {
			return nil, fmt.Errorf("rule %s: unknown tier %q", rule.ID, rule.Tier)
		}
		if _, dup := pack.byID[rule.ID]; dup {
			return nil, fmt.Errorf("rule pack %q: duplicate rule id %s", pack.Name, rule.ID)
		}
		if rule.Weight == nil && rule.WeightFunc == "" {
			return nil, fmt.Errorf("rule %s: neither weight nor weight_func declared", rule.ID)
		}
		pack.byID[rule.ID] = rule
	}
	return &pack, nil
}

// Rule returns the rule with the given id.
func (p *Pack) Rule(id string) (Rule, bool) {
	r, ok := p.byID[id]
	return r, ok
}

// RuleWeight returns the static weight of a rule. Unknown ids and rules
// declaring a weight function instead of a number are errors: weights feed
// the confidence arithmetic and must never be silently defaulted.
func (p *Pack) RuleWeight(id string) (float64, error) {
	rule, ok := p.byID[id]
	if !ok {
		return 0, fmt.Errorf("unknown rule id %q", id)
	}
	if rule.Weight == nil {
		return 0, fmt.Errorf("rule %s has no numeric weight (weight_func %q)", id, rule.WeightFunc)
	}
	return *rule.Weight, nil
}

// Engine selects winning rules over a pack under the engine configuration.
type Engine struct {
	pack   *Pack
	cfg    config.Engine
	byTier map[Tier][]Rule
}

// NewEngine indexes the pack by tier, preserving declaration order.
func NewEngine(pack *Pack, cfg config.Engine) *Engine {
	byTier := make(map[Tier][]Rule)
	for _, rule := range pack.Rules {
		byTier[rule.Tier] = append(byTier[rule.Tier], rule)
	}
	return &Engine{pack: pack, cfg: cfg, byTier: byTier}
}

// Pack returns the engine's pack.
func (e *Engine) Pack() *Pack { return e.pack }

// Applies reports whether a rule participates under the current
// configuration. The void-Moon stopper and the radicality gates only fire
// when the respective gating toggles are on; as cautions they are handled
// by the moon and validity tiers instead.
func (e *Engine) Applies(id string) bool {
	switch id {
	case "H2":
		return e.cfg.Moon.VoidGating
	case "R1", "R2":
		return true
	case "R3":
		return e.cfg.Radicality.SaturnSeventhWarn
	}
	_, ok := e.pack.byID[id]
	return ok
}

// SelectWinners walks the tiers in order and returns, per tier, the first
// fired and applicable rule in pack declaration order. Later fired rules of
// the same tier lose: first hit wins.
func (e *Engine) SelectWinners(fired map[string]bool) []Rule {
	var winners []Rule
	for _, tier := range TierOrder {
		for _, rule := range e.byTier[tier] {
			if fired[rule.ID] && e.Applies(rule.ID) {
				winners = append(winners, rule)
				break
			}
		}
	}
	return winners
}
