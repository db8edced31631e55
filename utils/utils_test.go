package utils

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/urfave/cli"
)

// resolve runs a throwaway app with the global flags and returns the config
// its action resolved.
func resolve(t *testing.T, args ...string) (Config, error) {
	t.Helper()

	var (
		cfg    Config
		cfgErr error
	)
	app := cli.NewApp()
	app.Name = "scanbench"
	app.Writer = io.Discard
	app.ErrWriter = io.Discard
	app.Flags = Flags
	app.Action = func(c *cli.Context) error {
		cfg, cfgErr = GetConfig(c)
		return nil
	}

	if err := app.Run(append([]string{"scanbench"}, args...)); err != nil {
		return Config{}, err
	}
	return cfg, cfgErr
}

// chdir moves into a fresh directory so no scanbench.toml is picked up by accident.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

var (
	ignoreMeta     = cmpopts.IgnoreUnexported(Config{})
	ignoreLoadPath = cmp.Options{ignoreMeta, cmpopts.IgnoreFields(Config{}, "LoadPath")}
)

func TestGetConfigDefaults(t *testing.T) {
	chdir(t)

	cfg, err := resolve(t)
	if err != nil {
		t.Fatal(err)
	}

	want := Config{
		Trials:    DefaultTrials,
		OutputDir: DefaultOutputDir,
		ImageList: DefaultImageList,
		Fetcher:   FetcherEngine,
		DockerBin: "docker",
		Trivy:     "trivy",
		Timeout:   "0",
	}
	if diff := cmp.Diff(want, cfg, ignoreLoadPath); diff != "" {
		t.Errorf("config differs: (-want +got)\n%s", diff)
	}
}

func TestGetConfigFlags(t *testing.T) {
	chdir(t)

	cfg, err := resolve(t, "-t", "5", "-o", "out", "--fetcher", "cli", "--timeout", "90s", "-d", "--quiet-summary", "list.txt")
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Trials != 5 || cfg.OutputDir != "out" || cfg.Fetcher != FetcherCLI || cfg.ImageList != "list.txt" {
		t.Fatalf("flags not applied: %+v", cfg)
	}
	if cfg.TimeoutDuration != 90*time.Second {
		t.Fatalf("expected a 90s timeout, got %s", cfg.TimeoutDuration)
	}
	if !cfg.Debug || !cfg.QuietSummary {
		t.Fatalf("expected debug and quiet-summary, got %+v", cfg)
	}
}

func TestGetConfigEnv(t *testing.T) {
	chdir(t)
	t.Setenv("SCANBENCH_TRIALS", "7")
	t.Setenv("SCANBENCH_OUTPUT_DIR", "from-env")

	cfg, err := resolve(t)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Trials != 7 || cfg.OutputDir != "from-env" {
		t.Fatalf("environment not applied: %+v", cfg)
	}
}

func TestGetConfigFilePrecedence(t *testing.T) {
	dir := chdir(t)
	writeFile(t, filepath.Join(dir, DefaultConfigName), `
trials = 2
output_dir = "from-file"
image_list = "file-images.txt"
trivy_args = ["--skip-db-update"]
timeout = "1m"
`)

	cfg, err := resolve(t)
	if err != nil {
		t.Fatal(err)
	}
	want := Config{
		Trials:          2,
		OutputDir:       "from-file",
		ImageList:       "file-images.txt",
		Fetcher:         FetcherEngine,
		DockerBin:       "docker",
		Trivy:           "trivy",
		TrivyArgs:       []string{"--skip-db-update"},
		Timeout:         "1m",
		TimeoutDuration: time.Minute,
		LoadPath:        DefaultConfigName,
	}
	if diff := cmp.Diff(want, cfg, ignoreMeta); diff != "" {
		t.Errorf("config differs: (-want +got)\n%s", diff)
	}

	// Flags win over the file.
	cfg, err = resolve(t, "--trials", "9", "other.txt")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Trials != 9 || cfg.ImageList != "other.txt" || cfg.OutputDir != "from-file" {
		t.Fatalf("flag precedence broken: %+v", cfg)
	}
}

func TestGetConfigExplicitFile(t *testing.T) {
	dir := chdir(t)
	path := filepath.Join(dir, "custom.toml")
	writeFile(t, path, `fetcher = "cli"`)

	cfg, err := resolve(t, "--config", path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Fetcher != FetcherCLI || cfg.LoadPath != path {
		t.Fatalf("config file not applied: %+v", cfg)
	}

	zero := filepath.Join(dir, "zero.toml")
	writeFile(t, zero, "trials = 0\n")
	if _, err := resolve(t, "--config", zero); err == nil || !strings.Contains(err.Error(), "got 0") {
		t.Fatalf("expected trials = 0 in the config file to be rejected, got %v", err)
	}
	// An explicit flag still overrides the file.
	cfg, err = resolve(t, "--config", zero, "--trials", "2")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Trials != 2 {
		t.Fatalf("expected the trials flag to win, got %d", cfg.Trials)
	}

	if _, err := resolve(t, "--config", filepath.Join(dir, "missing.toml")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestGetConfigInvalid(t *testing.T) {
	testcases := []struct {
		name   string
		file   string
		args   []string
		expect string
	}{
		{name: "zero trials", args: []string{"--trials", "0"}, expect: "trials must be a positive integer"},
		{name: "negative trials", args: []string{"--trials", "-2"}, expect: "trials must be a positive integer"},
		{name: "non numeric trials", args: []string{"--trials", "abc"}, expect: "invalid value"},
		{name: "unknown fetcher", args: []string{"--fetcher", "podman"}, expect: "unknown fetcher"},
		{name: "bad timeout", args: []string{"--timeout", "soon"}, expect: "as duration failed"},
		{name: "negative timeout", args: []string{"--timeout", "-1s"}, expect: "cannot be negative"},
		{name: "empty output dir", args: []string{"--output-dir", ""}, expect: "output directory cannot be empty"},
		{name: "unknown key", file: "trails = 3\n", expect: "unknown keys in config file"},
		{name: "bad toml", file: "trials = \n", expect: "loading config file"},
		{name: "negative trials in file", file: "trials = -1\n", expect: "trials must be a positive integer"},
		{name: "zero trials in file", file: "trials = 0\n", expect: "trials must be a positive integer, got 0"},
		{name: "empty output dir in file", file: "output_dir = \"\"\n", expect: "output directory cannot be empty"},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			dir := chdir(t)
			if tc.file != "" {
				writeFile(t, filepath.Join(dir, DefaultConfigName), tc.file)
			}

			_, err := resolve(t, tc.args...)
			if err == nil || !strings.Contains(err.Error(), tc.expect) {
				t.Fatalf("expected error containing %q, got %v", tc.expect, err)
			}
		})
	}
}
