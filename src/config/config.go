package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// ConfigPathEnvVar points at a .env file used when none sits next to the executable.
	ConfigPathEnvVar = "SCREEN_CAPTURE_OCR"

	DefaultOutputPath     = "screenshot.png"
	DefaultCaptureBackend = "screenshot"
	DefaultOCRLanguage    = "zh"
	DefaultOCRDeadlineSec = 20
	DefaultHotkey         = "Ctrl+Alt+Q"
)

// LoadOptions carries command-line overrides; non-empty fields win over
// the environment and .env.
type LoadOptions struct {
	PipelineOverride     string
	OutputPathOverride   string
	OutputFormatOverride string
	ResourceDirOverride  string
	CPUVendorOverride    string
}

type Config struct {
	EnableFileLogging bool
	Pipeline          string

	OutputPath   string
	OutputFormat string
	OutputUnique bool

	CaptureBackend     string
	CaptureIntervalMs  int
	CaptureMaxAttempts int
	CaptureDeadlineSec int

	OCRResourceDir string
	OCRLanguage    string
	OCRDeadlineSec int
	CPUVendor      string

	Hotkey      string
	HostAppName string
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Load configuration from sources in priority order:
	// 1) .env in the application (executable) directory
	// 2) If not found, use SCREEN_CAPTURE_OCR env var as a path to a config file
	// godotenv.Load never overrides variables already set in the process.
	if envPath := resolveEnvPath(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	outputFormat := override(opts.OutputFormatOverride, os.Getenv("OUTPUT_FORMAT"))
	outputPath := override(opts.OutputPathOverride, strings.TrimSpace(os.Getenv("OUTPUT_PATH")))
	if outputPath == "" {
		outputPath = defaultOutputPath(outputFormat)
	}

	cfg := &Config{
		EnableFileLogging: getEnvBool("ENABLE_FILE_LOGGING"),
		Pipeline:          override(opts.PipelineOverride, getEnvWithDefault("PIPELINE", "auto")),

		OutputPath:   outputPath,
		OutputFormat: outputFormat,
		OutputUnique: getEnvBool("OUTPUT_UNIQUE"),

		CaptureBackend:     getEnvWithDefault("CAPTURE_BACKEND", DefaultCaptureBackend),
		CaptureIntervalMs:  getEnvInt("CAPTURE_INTERVAL_MS", 0),
		CaptureMaxAttempts: getEnvInt("CAPTURE_MAX_ATTEMPTS", 0),
		CaptureDeadlineSec: getEnvInt("CAPTURE_DEADLINE_SEC", 0),

		OCRResourceDir: override(opts.ResourceDirOverride, os.Getenv("OCR_RESOURCE_DIR")),
		OCRLanguage:    getEnvWithDefault("OCR_LANGUAGE", DefaultOCRLanguage),
		OCRDeadlineSec: getEnvInt("OCR_DEADLINE_SEC", DefaultOCRDeadlineSec),
		CPUVendor:      override(opts.CPUVendorOverride, os.Getenv("CPU_VENDOR")),

		Hotkey:      getEnvWithDefault("HOTKEY", DefaultHotkey),
		HostAppName: os.Getenv("HOST_APP_NAME"),
	}

	return cfg, nil
}

func resolveEnvPath() string {
	if execPath, err := os.Executable(); err == nil {
		exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}

	if alt := os.Getenv(ConfigPathEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

// defaultOutputPath is DefaultOutputPath with the extension of format, so
// the file name never disagrees with its contents.
func defaultOutputPath(format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		return DefaultOutputPath
	}
	return strings.TrimSuffix(DefaultOutputPath, filepath.Ext(DefaultOutputPath)) + "." + format
}

func override(flagValue, fallback string) string {
	if v := strings.TrimSpace(flagValue); v != "" {
		return v
	}
	return fallback
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string) bool {
	return strings.ToLower(strings.TrimSpace(os.Getenv(key))) == "true"
}

// getEnvInt returns a positive integer from key, or defaultValue when the
// variable is unset, malformed or not positive.
func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}
