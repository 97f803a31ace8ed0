// Package config provides configuration management functionality.
//
// All numeric knobs consumed by the judgment engine live here as explicit
// values. The engine never reads ambient state: a Config is built once at
// startup and passed down by parameter, which keeps the core trivially
// testable with fixtures.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Moieties holds half-orb values per planet, summed pairwise to produce a
// combined maximum orb for an aspect.
type Moieties struct {
	Sun     float64
	Moon    float64
	Mercury float64
	Venus   float64
	Mars    float64
	Jupiter float64
	Saturn  float64
}

// Of returns the moiety for the named planet, defaulting to 8.0 when unknown.
func (m Moieties) Of(planet string) float64 {
	switch planet {
	case "Sun":
		return m.Sun
	case "Moon":
		return m.Moon
	case "Mercury":
		return m.Mercury
	case "Venus":
		return m.Venus
	case "Mars":
		return m.Mars
	case "Jupiter":
		return m.Jupiter
	case "Saturn":
		return m.Saturn
	}
	return 8.0
}

// Orbs holds aspect orb configuration.
type Orbs struct {
	Conjunction  float64
	Sextile      float64
	Square       float64
	Trine        float64
	Opposition   float64
	SunOrbBonus  float64
	MoonOrbBonus float64
	Moieties     Moieties
}

// TimingDecay scales confidence down for perfections far in the future.
type TimingDecay struct {
	MediumThresholdDays float64
	MediumFactor        float64
	LongThresholdDays   float64
	LongFactor          float64
}

// Timing bounds every solver horizon.
type Timing struct {
	MaxFutureDays            float64
	MaxHoraryDays            float64
	MaxWindowDays            float64
	StationarySpeedThreshold float64
	Decay                    TimingDecay
}

// PerfectionConfidence holds base confidence per perfection mode.
type PerfectionConfidence struct {
	DirectBasic                int
	DirectWithMutualRulership  int
	DirectWithMutualExaltation int
	TranslationOfLight         int
	CollectionOfLight          int
}

// DenialConfidence holds confidence per denial mode.
type DenialConfidence struct {
	Refranation int
	Frustration int
}

// SolarConfidence adjusts for cazimi / combustion / under-beams states.
type SolarConfidence struct {
	CazimiBonus       int
	UnderBeamsPenalty int
}

// ReceptionConfidence holds supportive-signal bonuses reported on denial.
type ReceptionConfidence struct {
	MutualRulershipBonus  int
	MutualExaltationBonus int
	OneWayBonus           int
}

// LunarCaps bounds confidence contributions from Moon testimony.
type LunarCaps struct {
	Favorable int
	Neutral   int
}

// Confidence gathers every confidence knob of the pipeline.
type Confidence struct {
	Base       int
	Perfection PerfectionConfidence
	Denial     DenialConfidence
	Solar      SolarConfidence
	Reception  ReceptionConfidence
	LunarCaps  LunarCaps
}

// Radicality controls the chart validity gate.
type Radicality struct {
	Gating            bool
	AscWarningPenalty int
	EarlyDegrees      float64
	LateDegrees       float64
	SaturnSeventhWarn bool
}

// MoonRules controls void-of-course handling.
type MoonRules struct {
	VoidGating  bool
	VoidPenalty int
}

// PerfectionRules toggles sign-boundary strictness.
type PerfectionRules struct {
	RequireInSign  bool
	AllowOutOfSign bool
}

// TranslationRules tightens translation-of-light validation.
type TranslationRules struct {
	RequireSpeedAdvantage bool
	RequireProperSequence bool
}

// SolarRules controls solar impediment policy.
type SolarRules struct {
	SevereImpedimentDenialEnabled bool
}

// DebilitationPenalties penalizes weak house rulers and cadent significators.
type DebilitationPenalties struct {
	DignityThreshold   int
	L2                 int
	L11                int
	CadentSignificator int
}

// Retrograde penalties.
type Retrograde struct {
	QuesitedPenalty int
}

// Engine is the full knob set the judgment core consumes.
type Engine struct {
	Orbs         Orbs
	Timing       Timing
	Confidence   Confidence
	Radicality   Radicality
	Moon         MoonRules
	Perfection   PerfectionRules
	Translation  TranslationRules
	Solar        SolarRules
	Debilitation DebilitationPenalties
	Retrograde   Retrograde
	RulePack     string
}

// Config holds application configuration.
type Config struct {
	DataDir         string
	Port            int
	LogLevel        string
	DevMode         bool
	RetentionDays   int
	CleanupSchedule string // cron spec for the judgment history cleanup
	EphemerisFile   string // speed-sample fixture enabling station detection
	Engine          Engine
}

// DefaultEngine returns the documented default knob set. Values follow the
// traditional Lilly-derived rule pack the engine ships with.
func DefaultEngine() Engine {
	return Engine{
		Orbs: Orbs{
			Conjunction:  8.0,
			Sextile:      6.0,
			Square:       7.0,
			Trine:        8.0,
			Opposition:   8.0,
			SunOrbBonus:  2.0,
			MoonOrbBonus: 2.0,
			Moieties: Moieties{
				Sun:     15.0,
				Moon:    12.0,
				Mercury: 7.0,
				Venus:   7.0,
				Mars:    7.5,
				Jupiter: 9.0,
				Saturn:  9.0,
			},
		},
		Timing: Timing{
			MaxFutureDays:            90,
			MaxHoraryDays:            30,
			MaxWindowDays:            365,
			StationarySpeedThreshold: 0.01,
			Decay: TimingDecay{
				MediumThresholdDays: 30,
				MediumFactor:        0.9,
				LongThresholdDays:   60,
				LongFactor:          0.75,
			},
		},
		Confidence: Confidence{
			Base: 50,
			Perfection: PerfectionConfidence{
				DirectBasic:                75,
				DirectWithMutualRulership:  95,
				DirectWithMutualExaltation: 80,
				TranslationOfLight:         70,
				CollectionOfLight:          65,
			},
			Denial: DenialConfidence{
				Refranation: 75,
				Frustration: 70,
			},
			Solar: SolarConfidence{
				CazimiBonus:       15,
				UnderBeamsPenalty: 8,
			},
			Reception: ReceptionConfidence{
				MutualRulershipBonus:  8,
				MutualExaltationBonus: 5,
				OneWayBonus:           3,
			},
			LunarCaps: LunarCaps{
				Favorable: 80,
				Neutral:   60,
			},
		},
		Radicality: Radicality{
			Gating:            false,
			AscWarningPenalty: 15,
			EarlyDegrees:      3.0,
			LateDegrees:       27.0,
			SaturnSeventhWarn: true,
		},
		Moon: MoonRules{
			VoidGating:  false,
			VoidPenalty: 10,
		},
		Perfection: PerfectionRules{
			RequireInSign:  true,
			AllowOutOfSign: false,
		},
		Translation: TranslationRules{
			RequireSpeedAdvantage: true,
			RequireProperSequence: true,
		},
		Solar: SolarRules{
			SevereImpedimentDenialEnabled: true,
		},
		Debilitation: DebilitationPenalties{
			DignityThreshold:   -5,
			L2:                 5,
			L11:                5,
			CadentSignificator: 5,
		},
		Retrograde: Retrograde{
			QuesitedPenalty: 12,
		},
		RulePack: "lilly_general_v1",
	}
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("HORARY_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	engine := DefaultEngine()
	engine.Moon.VoidGating = getEnvAsBool("HORARY_VOID_GATING", engine.Moon.VoidGating)
	engine.Radicality.Gating = getEnvAsBool("HORARY_RADICALITY_GATING", engine.Radicality.Gating)
	engine.RulePack = getEnv("HORARY_RULE_PACK", engine.RulePack)

	cfg := &Config{
		DataDir:         absDataDir,
		Port:            getEnvAsInt("HORARY_PORT", 8002),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DevMode:         getEnvAsBool("DEV_MODE", false),
		RetentionDays:   getEnvAsInt("HORARY_RETENTION_DAYS", 90),
		CleanupSchedule: getEnv("HORARY_CLEANUP_SCHEDULE", "0 3 * * *"),
		EphemerisFile:   getEnv("HORARY_EPHEMERIS_FILE", ""),
		Engine:          engine,
	}

	return cfg, nil
}

// getEnv retrieves an environment variable with a fallback default.
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvAsInt retrieves an environment variable as an integer.
func getEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// getEnvAsBool retrieves an environment variable as a boolean.
func getEnvAsBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
