package storage

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"panscan/internal/config"
	"panscan/internal/services"
	"panscan/internal/textutil"
)

// FrameKey is the relative destination of an exported frame.
func FrameKey(groupID, frameIndex int) string {
	return path.Join("groups", fmt.Sprintf("group%03d", groupID), fmt.Sprintf("frame_%07d.jpg", frameIndex))
}

// PanoKey is the relative destination of a group's panorama.
func PanoKey(groupID int) string {
	return path.Join("panos", fmt.Sprintf("group%03d.jpg", groupID))
}

// ResolvePrefix picks the output prefix for a video. An explicit override
// wins; otherwise the prefix is <output_dir>/<video stem>. gs:// overrides
// are kept as URIs; other schemes are rejected.
func ResolvePrefix(cfg *config.Config, override, videoPath string) (string, error) {
	prefix := strings.TrimSpace(override)
	if prefix == "" {
		prefix = filepath.Join(cfg.Paths.OutputDir, textutil.VideoStem(videoPath))
	}
	if scheme, ok := uriScheme(prefix); ok {
		if scheme != "gs" {
			return "", services.Wrap(services.ErrUnsupported, "storage", "resolve prefix",
				fmt.Sprintf("%s:// destinations are not supported; use a local directory or gs://", scheme), nil)
		}
		bucket, object, err := ParseGCSURI("gs://" + prefix[len("gs://"):])
		if err != nil {
			return "", services.Wrap(services.ErrValidation, "storage", "resolve prefix", "parse gs:// prefix", err)
		}
		if object == "" {
			return "gs://" + bucket, nil
		}
		return "gs://" + bucket + "/" + object, nil
	}
	expanded, err := config.ExpandPath(prefix)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "storage", "resolve prefix", "expand output path", err)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "storage", "resolve prefix", "absolute output path", err)
	}
	return abs, nil
}

// uriScheme reports a URI scheme such as "gs" or "s3". Windows drive letters
// are not schemes.
func uriScheme(value string) (string, bool) {
	scheme, _, ok := strings.Cut(value, "://")
	if !ok || len(scheme) < 2 {
		return "", false
	}
	for _, r := range scheme {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.') {
			return "", false
		}
	}
	return strings.ToLower(scheme), true
}
