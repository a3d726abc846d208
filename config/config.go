// Package config provides configuration loading and access for the simulation
// and the population trainer.
package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Network output layout: turn plus a trail color.
const NumOutputs = 4

// Inputs besides the ray fan: x, y, heading, target heading, carry flag.
const selfInputs = 5

// Trail smell inputs: one per color channel.
const smellInputs = 3

// Config holds all simulation and training parameters.
type Config struct {
	Arena      ArenaConfig      `yaml:"arena"`
	Ants       AntsConfig       `yaml:"ants"`
	Sensors    SensorsConfig    `yaml:"sensors"`
	Food       FoodConfig       `yaml:"food"`
	Hill       HillConfig       `yaml:"hill"`
	Trails     TrailsConfig     `yaml:"trails"`
	Network    NetworkConfig    `yaml:"network"`
	Mutation   MutationConfig   `yaml:"mutation"`
	Fitness    FitnessConfig    `yaml:"fitness"`
	Trainer    TrainerConfig    `yaml:"trainer"`
	Simulation SimulationConfig `yaml:"simulation"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Storage    StorageConfig    `yaml:"storage"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ArenaConfig holds the square arena dimensions.
type ArenaConfig struct {
	HalfWidth float64 `yaml:"half_width"`
	TickRate  float64 `yaml:"tick_rate"`
}

// AntsConfig holds agent kinematics parameters.
type AntsConfig struct {
	Count          int     `yaml:"count"`
	Speed          float64 `yaml:"speed"`
	TurnFraction   float64 `yaml:"turn_fraction"`
	TurnScale      float64 `yaml:"turn_scale"`
	BoundaryMargin float64 `yaml:"boundary_margin"`
}

// SensorsConfig holds the ray fan and trail smell parameters.
type SensorsConfig struct {
	RayCount    int     `yaml:"ray_count"`
	FieldOfView float64 `yaml:"field_of_view"`
	SightRadius float64 `yaml:"sight_radius"`
	SmellRadius float64 `yaml:"smell_radius"`
}

// FoodCluster describes one patch of the initial food supply.
type FoodCluster struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Radius float64 `yaml:"radius"`
	Count  int     `yaml:"count"`
}

// FoodConfig holds food placement and pickup parameters.
type FoodConfig struct {
	Radius         float64       `yaml:"radius"`
	PickupDistance float64       `yaml:"pickup_distance"`
	GridSize       int           `yaml:"grid_size"`
	Clusters       []FoodCluster `yaml:"clusters"`
}

// HillConfig holds the drop-off area around the origin.
type HillConfig struct {
	Radius float64 `yaml:"radius"`
}

// TrailsConfig holds pheromone deposit parameters.
type TrailsConfig struct {
	SpawnInterval int     `yaml:"spawn_interval"` // ticks between generations
	Growth        float64 `yaml:"growth"`         // size multiplier per tick
	Threshold     float64 `yaml:"threshold"`      // density below which a generation is removed
	Strength      float64 `yaml:"strength"`
	InitialSize   float64 `yaml:"initial_size"`
	GridSize      int     `yaml:"grid_size"`
}

// NetworkConfig holds initial topology settings.
type NetworkConfig struct {
	Initial     string   `yaml:"initial"`     // dense | empty
	Activations []string `yaml:"activations"` // hidden node activations for split-edge
}

// MutationConfig holds mutation parameters.
type MutationConfig struct {
	Rate             float64 `yaml:"rate"`
	Range            float64 `yaml:"range"`
	MaxStructural    int     `yaml:"max_structural"`
	SplitProbability float64 `yaml:"split_probability"`
}

// FitnessConfig holds scoring weights.
type FitnessConfig struct {
	ProximityWeight float64 `yaml:"proximity_weight"`
	PickupWeight    float64 `yaml:"pickup_weight"`
	DropoffWeight   float64 `yaml:"dropoff_weight"`
}

// TrainerConfig holds population training parameters.
type TrainerConfig struct {
	Strategy      string  `yaml:"strategy"` // genetic | es
	Population    int     `yaml:"population"`
	Generations   int     `yaml:"generations"` // 0 = until stopped
	Ticks         int     `yaml:"ticks"`
	EliteFraction float64 `yaml:"elite_fraction"`
	Workers       int     `yaml:"workers"`
	LearningRate  float64 `yaml:"learning_rate"`
	Sigma         float64 `yaml:"sigma"`
}

// SimulationConfig holds per-engine parallelism settings.
type SimulationConfig struct {
	Workers           int `yaml:"workers"`
	ParallelThreshold int `yaml:"parallel_threshold"`
}

// TelemetryConfig holds timing and output parameters.
type TelemetryConfig struct {
	TimingWindow    int `yaml:"timing_window"`     // smoothing window for phase timings
	HallOfFameSize  int `yaml:"hall_of_fame_size"` // best networks kept per run
	BookmarkHistory int `yaml:"bookmark_history"`  // generations considered for bookmarks
}

// StorageConfig selects the checkpoint backend.
type StorageConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	NumInputs     int     // 5 self-state + rays + 3 smell channels
	NumOutputs    int     // turn + r, g, b
	HalfWidth32   float32 // Arena.HalfWidth as float32
	RayAngleStep  float32 // angle between neighbouring rays
	HillRadiusSq  float32
	PickupDistSq  float32
	TicksPerSpawn int // Trails.SpawnInterval, at least 1
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns a fresh copy of the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Refresh(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Refresh re-validates the configuration and recomputes derived values
// after fields were changed in code.
func (c *Config) Refresh() error {
	if err := c.Validate(); err != nil {
		return err
	}
	c.computeDerived()
	return nil
}

// Validate rejects parameter combinations the simulation cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Arena.HalfWidth <= 0:
		return fmt.Errorf("arena.half_width must be > 0")
	case c.Arena.TickRate <= 0:
		return fmt.Errorf("arena.tick_rate must be > 0")
	case c.Ants.Count <= 0:
		return fmt.Errorf("ants.count must be > 0")
	case c.Sensors.RayCount <= 0 || c.Sensors.RayCount%2 == 0:
		return fmt.Errorf("sensors.ray_count must be a positive odd number, got %d", c.Sensors.RayCount)
	case c.Food.GridSize <= 0 || c.Trails.GridSize <= 0:
		return fmt.Errorf("grid sizes must be > 0")
	case c.Trails.Growth <= 1:
		return fmt.Errorf("trails.growth must be > 1")
	case c.Trails.InitialSize <= 0 || c.Trails.Threshold <= 0:
		// A zero size or threshold keeps a generation's density above the
		// threshold forever.
		return fmt.Errorf("trails.initial_size and trails.threshold must be > 0")
	case c.Mutation.MaxStructural < 0:
		return fmt.Errorf("mutation.max_structural must be >= 0, got %d", c.Mutation.MaxStructural)
	case c.Mutation.Rate < 0 || c.Mutation.Rate > 1:
		return fmt.Errorf("mutation.rate must be in [0, 1]")
	case c.Mutation.SplitProbability < 0 || c.Mutation.SplitProbability > 1:
		return fmt.Errorf("mutation.split_probability must be in [0, 1]")
	case c.Trainer.Population <= 0:
		return fmt.Errorf("trainer.population must be > 0")
	case c.Trainer.Ticks <= 0:
		return fmt.Errorf("trainer.ticks must be > 0")
	case c.Trainer.EliteFraction < 0 || c.Trainer.EliteFraction > 1:
		return fmt.Errorf("trainer.elite_fraction must be in [0, 1], got %g", c.Trainer.EliteFraction)
	case c.Trainer.Generations < 0:
		return fmt.Errorf("trainer.generations must be >= 0")
	case c.Trainer.Strategy != "genetic" && c.Trainer.Strategy != "es":
		return fmt.Errorf("unknown trainer.strategy %q", c.Trainer.Strategy)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.NumInputs = selfInputs + c.Sensors.RayCount + smellInputs
	c.Derived.NumOutputs = NumOutputs
	c.Derived.HalfWidth32 = float32(c.Arena.HalfWidth)

	if c.Sensors.RayCount > 1 {
		c.Derived.RayAngleStep = float32(c.Sensors.FieldOfView / float64(c.Sensors.RayCount-1))
	}

	c.Derived.HillRadiusSq = float32(c.Hill.Radius * c.Hill.Radius)
	c.Derived.PickupDistSq = float32(c.Food.PickupDistance * c.Food.PickupDistance)
	c.Derived.TicksPerSpawn = int(math.Max(1, float64(c.Trails.SpawnInterval)))

	if len(c.Network.Activations) == 0 {
		c.Network.Activations = []string{"linear", "sigmoid", "relu"}
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
