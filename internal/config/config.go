package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains output, log, and catalog locations.
type Paths struct {
	OutputDir   string `toml:"output_dir"`
	LogDir      string `toml:"log_dir"`
	CatalogPath string `toml:"catalog_path"`
}

// Tools names the external binaries and the decoding backend.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
	// Decoder selects the video backend: "ffmpeg" or "opencv" (gocv builds only).
	Decoder string `toml:"decoder"`
}

// Sampling controls which decoded frames reach motion estimation.
type Sampling struct {
	SampleEvery int     `toml:"sample_every"`
	SharpThr    float64 `toml:"sharp_thr"`
}

// Motion configures feature detection, matching, and the RANSAC fit.
type Motion struct {
	Feature          string  `toml:"feature"`
	MaxFeatures      int     `toml:"max_features"`
	RatioTest        float64 `toml:"ratio_test"`
	MinMatches       int     `toml:"min_matches"`
	MinInliers       int     `toml:"min_inliers"`
	RansacThreshold  float64 `toml:"ransac_threshold"`
	RansacMaxIters   int     `toml:"ransac_max_iters"`
	RansacConfidence float64 `toml:"ransac_confidence"`
	// Workers bounds concurrent pair estimation. Zero means GOMAXPROCS.
	Workers int `toml:"workers"`
}

// Classifier holds the pan decision thresholds.
type Classifier struct {
	TauInliers  float64 `toml:"tau_inliers"`
	TauV        float64 `toml:"tau_v"`
	TauUMin     float64 `toml:"tau_u_min"`
	TauUMax     float64 `toml:"tau_u_max"`
	TauScale    float64 `toml:"tau_scale"`
	TauParallax float64 `toml:"tau_parallax"`
}

// Grouping configures the run-length group builder.
type Grouping struct {
	MinGroupLen int `toml:"min_group_len"`
}

// Export configures frame selection and JPEG persistence.
type Export struct {
	// OverlapTarget is reported against the estimated overlap of exported
	// frames; selection itself uses the fixed Step.
	OverlapTarget    float64 `toml:"export_overlap_target"`
	Step             int     `toml:"export_step"`
	ExportAllInGroup bool    `toml:"export_all_in_group"`
	JPEGQuality      int     `toml:"jpeg_quality"`
}

// Stitch configures optional panorama stitching and its quality gate.
type Stitch struct {
	Enabled               bool    `toml:"enabled"`
	Warper                string  `toml:"warper"`
	WarperScale           float64 `toml:"warper_scale"`
	MinPanoAspectRatio    float64 `toml:"min_pano_aspect_ratio"`
	MaxBlackBorderPercent float64 `toml:"max_black_border_percent"`
}

// Catalog controls the sqlite run history.
type Catalog struct {
	Enabled bool `toml:"enabled"`
}

// Logging contains log output settings.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for panscan.
//
// Configuration sections by subsystem:
//   - Paths: output prefix root, log directory, run catalog
//   - Tools: ffmpeg/ffprobe binaries and decoder backend
//   - Sampling: frame stride and sharpness threshold
//   - Motion: feature family, matching, and RANSAC parameters
//   - Classifier: pan thresholds
//   - Grouping: minimum group length
//   - Export: frame selection and JPEG quality
//   - Stitch: panorama stitching and quality gate
//   - Catalog: run history persistence
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Tools      Tools      `toml:"tools"`
	Sampling   Sampling   `toml:"sampling"`
	Motion     Motion     `toml:"motion"`
	Classifier Classifier `toml:"classifier"`
	Grouping   Grouping   `toml:"grouping"`
	Export     Export     `toml:"export"`
	Stitch     Stitch     `toml:"stitch"`
	Catalog    Catalog    `toml:"catalog"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A missing file is not an error; defaults apply.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("panscan.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output and log directories. The catalog
// directory is created only when the catalog is enabled.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Catalog.Enabled && strings.TrimSpace(c.Paths.CatalogPath) != "" {
		if err := os.MkdirAll(filepath.Dir(c.Paths.CatalogPath), 0o755); err != nil {
			return fmt.Errorf("create catalog directory: %w", err)
		}
	}
	return nil
}

// Workers resolves the effective motion worker count.
func (c *Config) Workers(available int) int {
	if c.Motion.Workers > 0 {
		return c.Motion.Workers
	}
	if available < 1 {
		return 1
	}
	return available
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the configuration back to TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
