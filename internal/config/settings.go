package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// setting binds one flat setting name to the field it overrides.
type setting struct {
	apply func(c *Config, raw string) error
}

func intSetting(field func(c *Config) *int) setting {
	return setting{apply: func(c *Config, raw string) error {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return err
		}
		*field(c) = v
		return nil
	}}
}

func floatSetting(field func(c *Config) *float64) setting {
	return setting{apply: func(c *Config, raw string) error {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		*field(c) = v
		return nil
	}}
}

func boolSetting(field func(c *Config) *bool) setting {
	return setting{apply: func(c *Config, raw string) error {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		*field(c) = v
		return nil
	}}
}

func stringSetting(field func(c *Config) *string) setting {
	return setting{apply: func(c *Config, raw string) error {
		*field(c) = raw
		return nil
	}}
}

// settings maps the flat names used by callers of the detector onto config fields.
var settings = map[string]setting{
	"sample_every":             intSetting(func(c *Config) *int { return &c.Sampling.SampleEvery }),
	"sharp_thr":                floatSetting(func(c *Config) *float64 { return &c.Sampling.SharpThr }),
	"feature":                  stringSetting(func(c *Config) *string { return &c.Motion.Feature }),
	"max_features":             intSetting(func(c *Config) *int { return &c.Motion.MaxFeatures }),
	"workers":                  intSetting(func(c *Config) *int { return &c.Motion.Workers }),
	"tau_inliers":              floatSetting(func(c *Config) *float64 { return &c.Classifier.TauInliers }),
	"tau_v":                    floatSetting(func(c *Config) *float64 { return &c.Classifier.TauV }),
	"tau_u_min":                floatSetting(func(c *Config) *float64 { return &c.Classifier.TauUMin }),
	"tau_u_max":                floatSetting(func(c *Config) *float64 { return &c.Classifier.TauUMax }),
	"tau_scale":                floatSetting(func(c *Config) *float64 { return &c.Classifier.TauScale }),
	"tau_parallax":             floatSetting(func(c *Config) *float64 { return &c.Classifier.TauParallax }),
	"min_group_len":            intSetting(func(c *Config) *int { return &c.Grouping.MinGroupLen }),
	"export_overlap_target":    floatSetting(func(c *Config) *float64 { return &c.Export.OverlapTarget }),
	"export_step":              intSetting(func(c *Config) *int { return &c.Export.Step }),
	"export_all_in_group":      boolSetting(func(c *Config) *bool { return &c.Export.ExportAllInGroup }),
	"jpeg_quality":             intSetting(func(c *Config) *int { return &c.Export.JPEGQuality }),
	"stitch":                   boolSetting(func(c *Config) *bool { return &c.Stitch.Enabled }),
	"stitch_warper":            stringSetting(func(c *Config) *string { return &c.Stitch.Warper }),
	"stitch_warper_scale":      floatSetting(func(c *Config) *float64 { return &c.Stitch.WarperScale }),
	"min_pano_aspect_ratio":    floatSetting(func(c *Config) *float64 { return &c.Stitch.MinPanoAspectRatio }),
	"max_black_border_percent": floatSetting(func(c *Config) *float64 { return &c.Stitch.MaxBlackBorderPercent }),
}

// SettingNames lists the flat setting names accepted by ApplySettings.
func SettingNames() []string {
	names := make([]string, 0, len(settings))
	for name := range settings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplySettings returns a copy of c with the named settings merged over it.
// The copy is normalised and validated; c itself is left untouched.
func (c *Config) ApplySettings(values map[string]string) (*Config, error) {
	merged := *c
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		s, ok := settings[key]
		if !ok {
			return nil, fmt.Errorf("unknown setting %q", name)
		}
		if err := s.apply(&merged, strings.TrimSpace(values[name])); err != nil {
			return nil, fmt.Errorf("setting %s: %w", key, err)
		}
	}
	if err := merged.normalize(); err != nil {
		return nil, err
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// ParseSettings splits name=value pairs as given on the command line.
func ParseSettings(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("setting %q: expected name=value", pair)
		}
		out[strings.TrimSpace(name)] = value
	}
	return out, nil
}
