package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/urfave/cli"
)

const (
	// DefaultConfigName is loaded from the working directory when --config
	// is not given.
	DefaultConfigName = "scanbench.toml"
	// DefaultImageList is read when no image list argument is given.
	DefaultImageList = "images.txt"
	// DefaultOutputDir holds the summary file and reports.
	DefaultOutputDir = "local_scan_results"
	// DefaultTrials is the number of passes over the image list.
	DefaultTrials = 3

	// FetcherEngine pulls through the docker engine API.
	FetcherEngine = "engine"
	// FetcherCLI pulls by running the docker CLI.
	FetcherCLI = "cli"
)

// Flags are the global flags of the program.
var Flags = []cli.Flag{
	cli.IntFlag{
		Name:   "trials, t",
		Usage:  "number of passes over the image list (> 0)",
		Value:  DefaultTrials,
		EnvVar: "SCANBENCH_TRIALS",
	},
	cli.StringFlag{
		Name:   "output-dir, o",
		Usage:  "directory for the summary file and reports",
		Value:  DefaultOutputDir,
		EnvVar: "SCANBENCH_OUTPUT_DIR",
	},
	cli.StringFlag{
		Name:      "config",
		Usage:     "path to a TOML config file (default ./" + DefaultConfigName + " if present)",
		EnvVar:    "SCANBENCH_CONFIG",
		TakesFile: true,
	},
	cli.StringFlag{
		Name:   "fetcher",
		Usage:  "how images are pulled: " + FetcherEngine + " (docker API) or " + FetcherCLI + " (docker CLI)",
		Value:  FetcherEngine,
		EnvVar: "SCANBENCH_FETCHER",
	},
	cli.StringFlag{
		Name:   "docker-bin",
		Usage:  "docker compatible binary used by the cli fetcher",
		Value:  "docker",
		EnvVar: "SCANBENCH_DOCKER_BIN",
	},
	cli.StringFlag{
		Name:   "docker-host",
		Usage:  "docker daemon address for the engine fetcher (default $DOCKER_HOST)",
		EnvVar: "SCANBENCH_DOCKER_HOST",
	},
	cli.StringFlag{
		Name:      "docker-config",
		Usage:     "docker CLI config directory holding registry credentials for the engine fetcher (default $DOCKER_CONFIG or ~/.docker)",
		EnvVar:    "SCANBENCH_DOCKER_CONFIG",
		TakesFile: true,
	},
	cli.StringFlag{
		Name:   "trivy",
		Usage:  "path to the trivy binary",
		Value:  "trivy",
		EnvVar: "SCANBENCH_TRIVY",
	},
	cli.StringFlag{
		Name:   "timeout",
		Usage:  "timeout for each pull, inspect and scan, 0 for none",
		Value:  "0",
		EnvVar: "SCANBENCH_TIMEOUT",
	},
	cli.BoolFlag{
		Name:   "quiet-summary",
		Usage:  "do not print the latency table at the end of the run",
		EnvVar: "SCANBENCH_QUIET_SUMMARY",
	},
	cli.BoolFlag{
		Name:   "debug, d",
		Usage:  "enable debug logging",
		EnvVar: "SCANBENCH_DEBUG",
	},
}

// Config is the resolved configuration of a run.
type Config struct {
	Trials       int      `toml:"trials"`
	OutputDir    string   `toml:"output_dir"`
	ImageList    string   `toml:"image_list"`
	Fetcher      string   `toml:"fetcher"`
	DockerBin    string   `toml:"docker_bin"`
	DockerHost   string   `toml:"docker_host"`
	DockerConfig string   `toml:"docker_config"`
	Trivy        string   `toml:"trivy"`
	TrivyArgs    []string `toml:"trivy_args"`
	Timeout      string   `toml:"timeout"`
	QuietSummary bool     `toml:"quiet_summary"`
	Debug        bool     `toml:"debug"`

	// TimeoutDuration is Timeout parsed.
	TimeoutDuration time.Duration `toml:"-"`
	// LoadPath is the config file the values came from, if any.
	LoadPath string `toml:"-"`

	// meta records which keys the config file set, zero values included.
	meta toml.MetaData
}

// LoadConfigFile parses a TOML config file, rejecting unknown keys.
func LoadConfigFile(path string) (Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("loading config file %s failed: %w", path, err)
	}

	if unknown := md.Undecoded(); len(unknown) > 0 {
		keys := make([]string, 0, len(unknown))
		for _, key := range unknown {
			keys = append(keys, key.String())
		}
		return Config{}, fmt.Errorf("unknown keys in config file %s: %s", path, strings.Join(keys, ", "))
	}

	cfg.LoadPath = path
	cfg.meta = md
	return cfg, nil
}

// fromFile reports whether the config file set key.
func (cfg *Config) fromFile(key string) bool {
	return cfg.LoadPath != "" && cfg.meta.IsDefined(key)
}

// GetConfig resolves the configuration for c. Flags and environment
// variables win over the config file, which wins over the flag defaults.
func GetConfig(c *cli.Context) (Config, error) {
	var (
		cfg Config
		err error
	)

	if path := c.GlobalString("config"); path != "" {
		if cfg, err = LoadConfigFile(path); err != nil {
			return Config{}, err
		}
	} else if _, statErr := os.Stat(DefaultConfigName); statErr == nil {
		if cfg, err = LoadConfigFile(DefaultConfigName); err != nil {
			return Config{}, err
		}
	} else if !errors.Is(statErr, fs.ErrNotExist) {
		return Config{}, statErr
	}

	if c.GlobalIsSet("trials") || !cfg.fromFile("trials") {
		cfg.Trials = c.GlobalInt("trials")
	}
	stringFlags := []struct {
		name string
		key  string
		dst  *string
	}{
		{"output-dir", "output_dir", &cfg.OutputDir},
		{"fetcher", "fetcher", &cfg.Fetcher},
		{"docker-bin", "docker_bin", &cfg.DockerBin},
		{"docker-host", "docker_host", &cfg.DockerHost},
		{"docker-config", "docker_config", &cfg.DockerConfig},
		{"trivy", "trivy", &cfg.Trivy},
		{"timeout", "timeout", &cfg.Timeout},
	}
	for _, f := range stringFlags {
		if c.GlobalIsSet(f.name) || !cfg.fromFile(f.key) {
			*f.dst = c.GlobalString(f.name)
		}
	}
	if c.GlobalIsSet("quiet-summary") {
		cfg.QuietSummary = c.GlobalBool("quiet-summary")
	}
	if c.GlobalIsSet("debug") {
		cfg.Debug = c.GlobalBool("debug")
	}

	if c.NArg() > 0 {
		cfg.ImageList = c.Args().First()
	}
	if cfg.ImageList == "" {
		cfg.ImageList = DefaultImageList
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.Trials < 1 {
		return fmt.Errorf("trials must be a positive integer, got %d", cfg.Trials)
	}
	if cfg.OutputDir == "" {
		return errors.New("output directory cannot be empty")
	}

	switch cfg.Fetcher {
	case FetcherEngine, FetcherCLI:
	default:
		return fmt.Errorf("unknown fetcher %q, use %s or %s", cfg.Fetcher, FetcherEngine, FetcherCLI)
	}

	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return fmt.Errorf("parsing %s as duration failed: %v", cfg.Timeout, err)
	}
	if timeout < 0 {
		return fmt.Errorf("timeout cannot be negative, got %s", cfg.Timeout)
	}
	cfg.TimeoutDuration = timeout

	return nil
}
