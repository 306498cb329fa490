package config

const (
	defaultConfigPath  = "~/.config/panscan/config.toml"
	defaultOutputDir   = "~/panscan/output"
	defaultLogDir      = "~/.local/share/panscan/logs"
	defaultCatalogPath = "~/.local/share/panscan/catalog.db"

	defaultFFmpeg  = "ffmpeg"
	defaultFFprobe = "ffprobe"

	defaultSampleEvery = 3
	defaultSharpThr    = 20.0

	defaultFeature          = FeatureORB
	defaultMaxFeatures      = 4000
	defaultRatioTest        = 0.75
	defaultMinMatches       = 30
	defaultMinInliers       = 20
	defaultRansacThreshold  = 3.0
	defaultRansacMaxIters   = 2000
	defaultRansacConfidence = 0.995

	defaultTauInliers  = 0.30
	defaultTauV        = 1.5
	defaultTauUMin     = 15.0
	defaultTauUMax     = 400.0
	defaultTauScale    = 0.02
	defaultTauParallax = 1.5

	defaultMinGroupLen = 3

	defaultOverlapTarget = 0.4
	defaultExportStep    = 2
	defaultJPEGQuality   = 92

	defaultWarper                = WarperCylindrical
	defaultWarperScale           = 1.0
	defaultMinPanoAspectRatio    = 1.2
	defaultMaxBlackBorderPercent = 15.0

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Feature families understood by the motion estimator.
const (
	FeatureORB  = "ORB"
	FeatureSIFT = "SIFT"
)

// Warp models understood by the stitcher.
const (
	WarperPlane       = "plane"
	WarperCylindrical = "cylindrical"
	WarperSpherical   = "spherical"
)

// Decoder backends.
const (
	DecoderFFmpeg = "ffmpeg"
	DecoderOpenCV = "opencv"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:   defaultOutputDir,
			LogDir:      defaultLogDir,
			CatalogPath: defaultCatalogPath,
		},
		Tools: Tools{
			FFmpeg:  defaultFFmpeg,
			FFprobe: defaultFFprobe,
			Decoder: DecoderFFmpeg,
		},
		Sampling: Sampling{
			SampleEvery: defaultSampleEvery,
			SharpThr:    defaultSharpThr,
		},
		Motion: Motion{
			Feature:          defaultFeature,
			MaxFeatures:      defaultMaxFeatures,
			RatioTest:        defaultRatioTest,
			MinMatches:       defaultMinMatches,
			MinInliers:       defaultMinInliers,
			RansacThreshold:  defaultRansacThreshold,
			RansacMaxIters:   defaultRansacMaxIters,
			RansacConfidence: defaultRansacConfidence,
		},
		Classifier: Classifier{
			TauInliers:  defaultTauInliers,
			TauV:        defaultTauV,
			TauUMin:     defaultTauUMin,
			TauUMax:     defaultTauUMax,
			TauScale:    defaultTauScale,
			TauParallax: defaultTauParallax,
		},
		Grouping: Grouping{
			MinGroupLen: defaultMinGroupLen,
		},
		Export: Export{
			OverlapTarget: defaultOverlapTarget,
			Step:          defaultExportStep,
			JPEGQuality:   defaultJPEGQuality,
		},
		Stitch: Stitch{
			Warper:                defaultWarper,
			WarperScale:           defaultWarperScale,
			MinPanoAspectRatio:    defaultMinPanoAspectRatio,
			MaxBlackBorderPercent: defaultMaxBlackBorderPercent,
		},
		Catalog: Catalog{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
