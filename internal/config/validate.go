package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validateSampling(); err != nil {
		return err
	}
	if err := c.validateMotion(); err != nil {
		return err
	}
	if err := c.validateClassifier(); err != nil {
		return err
	}
	if err := c.validateGrouping(); err != nil {
		return err
	}
	if err := c.validateExport(); err != nil {
		return err
	}
	if err := c.validateStitch(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateTools() error {
	switch c.Tools.Decoder {
	case DecoderFFmpeg, DecoderOpenCV:
		return nil
	default:
		return fmt.Errorf("tools.decoder: unsupported value %q", c.Tools.Decoder)
	}
}

func (c *Config) validateSampling() error {
	if c.Sampling.SampleEvery < 1 {
		return errors.New("sampling.sample_every must be >= 1")
	}
	if c.Sampling.SharpThr < 0 {
		return errors.New("sampling.sharp_thr must be >= 0")
	}
	return nil
}

func (c *Config) validateMotion() error {
	switch c.Motion.Feature {
	case FeatureORB, FeatureSIFT:
	default:
		return fmt.Errorf("motion.feature: unsupported value %q", c.Motion.Feature)
	}
	if err := ensurePositiveMap(map[string]int{
		"motion.max_features":     c.Motion.MaxFeatures,
		"motion.min_matches":      c.Motion.MinMatches,
		"motion.ransac_max_iters": c.Motion.RansacMaxIters,
	}); err != nil {
		return err
	}
	if c.Motion.MinInliers < 4 {
		return errors.New("motion.min_inliers must be >= 4")
	}
	if c.Motion.RatioTest <= 0 || c.Motion.RatioTest >= 1 {
		return errors.New("motion.ratio_test must be between 0 and 1")
	}
	if c.Motion.RansacThreshold <= 0 {
		return errors.New("motion.ransac_threshold must be positive")
	}
	if c.Motion.RansacConfidence <= 0 || c.Motion.RansacConfidence >= 1 {
		return errors.New("motion.ransac_confidence must be between 0 and 1")
	}
	if c.Motion.Workers < 0 {
		return errors.New("motion.workers must be >= 0")
	}
	return nil
}

func (c *Config) validateClassifier() error {
	cl := c.Classifier
	if cl.TauInliers < 0 || cl.TauInliers > 1 {
		return errors.New("classifier.tau_inliers must be between 0 and 1")
	}
	// tau_v, tau_scale, and tau_parallax divide into the confidence score.
	if err := ensurePositiveFloats(map[string]float64{
		"classifier.tau_v":        cl.TauV,
		"classifier.tau_scale":    cl.TauScale,
		"classifier.tau_parallax": cl.TauParallax,
	}); err != nil {
		return err
	}
	if cl.TauUMin < 0 {
		return errors.New("classifier.tau_u_min must be >= 0")
	}
	if cl.TauUMax < cl.TauUMin {
		return errors.New("classifier.tau_u_max must be >= classifier.tau_u_min")
	}
	return nil
}

func (c *Config) validateGrouping() error {
	// Every candidate group spans at least two positions, so 1 acts like 2.
	if c.Grouping.MinGroupLen < 1 {
		return errors.New("grouping.min_group_len must be >= 1")
	}
	return nil
}

func (c *Config) validateExport() error {
	if c.Export.Step < 1 {
		return errors.New("export.export_step must be >= 1")
	}
	if c.Export.JPEGQuality < 1 || c.Export.JPEGQuality > 100 {
		return errors.New("export.jpeg_quality must be between 1 and 100")
	}
	if c.Export.OverlapTarget < 0 || c.Export.OverlapTarget >= 1 {
		return errors.New("export.export_overlap_target must be in [0, 1)")
	}
	return nil
}

func (c *Config) validateStitch() error {
	switch c.Stitch.Warper {
	case WarperPlane, WarperCylindrical, WarperSpherical:
	default:
		return fmt.Errorf("stitch.warper: unsupported value %q", c.Stitch.Warper)
	}
	if c.Stitch.WarperScale <= 0 {
		return errors.New("stitch.warper_scale must be positive")
	}
	if c.Stitch.MinPanoAspectRatio <= 0 {
		return errors.New("stitch.min_pano_aspect_ratio must be positive")
	}
	if c.Stitch.MaxBlackBorderPercent < 0 || c.Stitch.MaxBlackBorderPercent > 100 {
		return errors.New("stitch.max_black_border_percent must be between 0 and 100")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

func ensurePositiveFloats(values map[string]float64) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
