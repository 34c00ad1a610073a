package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FlagKeys maps command-line flag names to configuration keys. Flags that
// are set on the command line win over every other source.
var FlagKeys = map[string]string{
	"preset":       "run.preset",
	"seed":         "run.seed",
	"player":       "run.player_name",
	"couples":      "run.couples",
	"years":        "simulation.max_years",
	"db":           "storage.path",
	"report":       "report.path",
	"format":       "report.format",
	"quiet":        "report.quiet",
	"metrics-file": "metrics.path",
	"port":         "api.port",
	"rate-limit":   "api.rate_limit",
	"trust-proxy":  "api.trust_proxy",
	"log-level":    "logging.level",
	"log-format":   "logging.format",
}

// Config holds all configuration for the lineage binary.
type Config struct {
	Simulation Simulation    `mapstructure:"simulation"`
	Run        RunConfig     `mapstructure:"run"`
	Storage    StorageConfig `mapstructure:"storage"`
	Report     ReportConfig  `mapstructure:"report"`
	Metrics    MetricsConfig `mapstructure:"metrics"`
	API        APIConfig     `mapstructure:"api"`
	Logging    LoggingConfig `mapstructure:"logging"`
}

// RunConfig selects the starting conditions of a new run.
type RunConfig struct {
	Preset     string `mapstructure:"preset"`
	Seed       int64  `mapstructure:"seed"` // 0 picks a time-based seed
	PlayerName string `mapstructure:"player_name"`
	Couples    int    `mapstructure:"couples"`

	// RandomOrgKey, when set, draws unseeded runs' seeds from random.org.
	RandomOrgKey string `mapstructure:"random_org_key"`
}

// StorageConfig holds snapshot database settings. An empty path disables
// saving.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// ReportConfig holds report output settings.
type ReportConfig struct {
	Path   string `mapstructure:"path"`
	Format string `mapstructure:"format"` // text or yaml
	Quiet  bool   `mapstructure:"quiet"`
}

// MetricsConfig holds the prometheus textfile export path. Empty disables it.
type MetricsConfig struct {
	Path string `mapstructure:"path"`
}

// APIConfig holds settings for the read-only HTTP viewer.
type APIConfig struct {
	Port      int `mapstructure:"port"`
	RateLimit int `mapstructure:"rate_limit"` // requests per client per minute, 0 disables
	// TrustProxy keys rate limiting on X-Forwarded-For. Only for a server
	// behind a proxy that sets the header.
	TrustProxy bool `mapstructure:"trust_proxy"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from defaults, an optional YAML file,
// LINEAGE_* environment variables and flags, in increasing priority. When
// path is empty, lineage.yaml is looked up in ~/.lineage and the working
// directory and a missing file is not an error. flags may be nil; only the
// names in FlagKeys are bound.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("run.preset", "default")
	v.SetDefault("run.seed", 0)
	v.SetDefault("run.player_name", "")
	v.SetDefault("run.couples", 0)
	v.SetDefault("run.random_org_key", "")

	v.SetDefault("storage.path", "lineage.db")

	v.SetDefault("report.path", "simulation_report.txt")
	v.SetDefault("report.format", "text")
	v.SetDefault("report.quiet", false)

	v.SetDefault("metrics.path", "")

	v.SetDefault("api.port", 8080)
	v.SetDefault("api.rate_limit", 120)
	v.SetDefault("api.trust_proxy", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("lineage")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(homeDir(), ".lineage"))
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("LINEAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// Simulation defaults come from the chosen preset; explicit file and env
	// values still win over them.
	preset, err := LookupPreset(v.GetString("run.preset"))
	if err != nil {
		return nil, err
	}
	setSimulationDefaults(v, preset.Config())

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the simulation parameters and the ambient settings.
func (c *Config) Validate() error {
	if err := c.Simulation.Validate(); err != nil {
		return err
	}
	if c.Run.Couples < c.Simulation.MinStartingCouples || c.Run.Couples > c.Simulation.MaxStartingCouples {
		return newError("run.couples", "must be between %d and %d, got %d",
			c.Simulation.MinStartingCouples, c.Simulation.MaxStartingCouples, c.Run.Couples)
	}
	switch c.Report.Format {
	case "text", "yaml":
	default:
		return newError("report.format", "must be text or yaml, got %q", c.Report.Format)
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		return newError("api.port", "must be between 0 and 65535, got %d", c.API.Port)
	}
	if c.API.RateLimit < 0 {
		return newError("api.rate_limit", "must not be negative, got %d", c.API.RateLimit)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return newError("logging.format", "must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

func setSimulationDefaults(v *viper.Viper, s Simulation) {
	v.SetDefault("simulation.max_years", s.MaxYears)
	v.SetDefault("simulation.min_marriage_age", s.MinMarriageAge)
	v.SetDefault("simulation.max_marriage_age", s.MaxMarriageAge)
	v.SetDefault("simulation.mortality_onset_age", s.MortalityOnsetAge)
	v.SetDefault("simulation.mortality_certainty_age", s.MortalityCertaintyAge)
	v.SetDefault("simulation.mortality_risk_per_year", s.MortalityRiskPerYear)
	v.SetDefault("simulation.max_children_per_family", s.MaxChildrenPerFamily)
	v.SetDefault("simulation.player_lineage_child_limit", s.PlayerLineageChildLimit)
	v.SetDefault("simulation.marriage_probability", s.MarriageProbability)
	v.SetDefault("simulation.base_birth_probability", s.BaseBirthProbability)
	v.SetDefault("simulation.male_child_probability", s.MaleChildProbability)
	v.SetDefault("simulation.initial_population_min_age", s.InitialPopulationMinAge)
	v.SetDefault("simulation.initial_population_max_age", s.InitialPopulationMaxAge)
	v.SetDefault("simulation.outsider_gate", s.OutsiderGate)
	v.SetDefault("simulation.outsider_marriage_threshold", s.OutsiderMarriageThreshold)
	v.SetDefault("simulation.outsider_marriage_min_age", s.OutsiderMarriageMinAge)
	v.SetDefault("simulation.min_starting_couples", s.MinStartingCouples)
	v.SetDefault("simulation.max_starting_couples", s.MaxStartingCouples)
	v.SetDefault("simulation.initial_player_age", s.InitialPlayerAge)
	v.SetDefault("simulation.player_occupation", s.PlayerOccupation)
	v.SetDefault("simulation.village_name", s.VillageName)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
