package config

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gazo/parser"

	"github.com/joho/godotenv"
)

const (
	settingsFileName = "settings.json"
	envPrefix        = "GAZO_"

	DefaultEngine            = "google"
	DefaultImageCount        = 10
	DefaultJPEGQuality       = 90
	DefaultWorkers           = 4
	DefaultRequestsPerSecond = 2.0
	DefaultTimeoutSeconds    = 15
	DefaultBrowserScrolls    = 2
	DefaultMongoDatabase     = "gazo"
	MaxTargetSize            = 8192
	MaxSharpen               = 10.0
)

// S3Settings configures the optional bucket export
type S3Settings struct {
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	Bucket    string `json:"bucket"`
	UseSSL    bool   `json:"use_ssl"`
	Prefix    string `json:"prefix"`
}

// Configured reports whether enough is set to attempt an upload
func (s S3Settings) Configured() bool {
	return strings.TrimSpace(s.Endpoint) != "" && strings.TrimSpace(s.Bucket) != ""
}

// Settings is the persisted application configuration (~/.config/gazo/settings.json)
type Settings struct {
	// Search
	Engine     string `json:"engine"`
	ImageCount int    `json:"image_count"`
	SafeSearch bool   `json:"safe_search"`

	// Processing
	AspectPreset string                `json:"aspect_preset"`
	CustomWidth  int                   `json:"custom_width"`
	CustomHeight int                   `json:"custom_height"`
	Enhance      bool                  `json:"enhance"`
	Filters      parser.EnhanceOptions `json:"filters"`
	JPEGQuality  int                   `json:"jpeg_quality"`

	// Fetching
	Workers           int     `json:"workers"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	RespectRobots     bool    `json:"respect_robots"`
	TimeoutSeconds    int     `json:"timeout_seconds"`
	UserAgent         string  `json:"user_agent"`
	BrowserFallback   bool    `json:"browser_fallback"`
	BrowserScrolls    int     `json:"browser_scrolls"`

	// Export
	OutputDir string     `json:"output_dir"`
	S3        S3Settings `json:"s3"`

	// Engine credentials
	SearxngEndpoint string `json:"searxng_endpoint"`
	SearxngAPIKey   string `json:"searxng_api_key"`
	BraveAPIKey     string `json:"brave_api_key"`
	SerpAPIKey      string `json:"serpapi_key"`

	// Integrations
	MongoURI      string `json:"mongo_uri"`
	MongoDatabase string `json:"mongo_database"`
	MetricsAddr   string `json:"metrics_addr"`
}

// DefaultSettings returns the settings used on first run
func DefaultSettings() Settings {
	return Settings{
		Engine:            DefaultEngine,
		ImageCount:        DefaultImageCount,
		AspectPreset:      parser.DefaultAspectLabel,
		CustomWidth:       1920,
		CustomHeight:      1080,
		Enhance:           true,
		Filters:           parser.DefaultEnhance,
		JPEGQuality:       DefaultJPEGQuality,
		Workers:           DefaultWorkers,
		RequestsPerSecond: DefaultRequestsPerSecond,
		TimeoutSeconds:    DefaultTimeoutSeconds,
		BrowserFallback:   true,
		BrowserScrolls:    DefaultBrowserScrolls,
		OutputDir:         "~/Pictures/gazo",
		MongoDatabase:     DefaultMongoDatabase,
	}
}

// Normalize fills empty values with defaults and clamps the rest into range
func (s *Settings) Normalize() {
	d := DefaultSettings()

	s.Engine = strings.TrimSpace(strings.ToLower(s.Engine))
	if s.Engine == "" {
		s.Engine = d.Engine
	}
	s.ImageCount = clamp(s.ImageCount, 1, 50, d.ImageCount)
	if _, ok := parser.FindAspectPreset(s.AspectPreset); !ok && s.AspectPreset != parser.CustomAspectLabel {
		s.AspectPreset = d.AspectPreset
	}
	s.CustomWidth = clamp(s.CustomWidth, 1, MaxTargetSize, d.CustomWidth)
	s.CustomHeight = clamp(s.CustomHeight, 1, MaxTargetSize, d.CustomHeight)
	s.JPEGQuality = clamp(s.JPEGQuality, 1, 100, d.JPEGQuality)
	s.Filters.Sharpen = math.Max(0, math.Min(s.Filters.Sharpen, MaxSharpen))
	s.Filters.Contrast = math.Max(-100, math.Min(s.Filters.Contrast, 100))
	s.Filters.Saturation = math.Max(-100, math.Min(s.Filters.Saturation, 100))
	s.Workers = clamp(s.Workers, 1, 16, d.Workers)
	if s.RequestsPerSecond < 0 {
		s.RequestsPerSecond = 0
	}
	s.TimeoutSeconds = clamp(s.TimeoutSeconds, 1, 120, d.TimeoutSeconds)
	if s.BrowserScrolls < 0 {
		s.BrowserScrolls = 0
	}
	s.UserAgent = strings.TrimSpace(s.UserAgent)
	s.OutputDir = strings.TrimSpace(s.OutputDir)
	if s.OutputDir == "" {
		s.OutputDir = d.OutputDir
	}
	s.SearxngEndpoint = strings.TrimRight(strings.TrimSpace(s.SearxngEndpoint), "/")
	if s.MongoDatabase == "" {
		s.MongoDatabase = d.MongoDatabase
	}
}

// TargetSize resolves the aspect preset (or custom size) to pixels
func (s Settings) TargetSize() (int, int) {
	return parser.ResolveTargetSize(s.AspectPreset, s.CustomWidth, s.CustomHeight)
}

// ProcessOptions builds the image pipeline options from the settings
func (s Settings) ProcessOptions() parser.ProcessOptions {
	w, h := s.TargetSize()
	return parser.ProcessOptions{
		TargetWidth:  w,
		TargetHeight: h,
		Enhance:      s.Enhance,
		Filters:      s.Filters,
		JPEGQuality:  s.JPEGQuality,
	}
}

// LoadSettings reads the settings file, creating it with defaults on first run.
// Values from a .env file in the working directory and GAZO_* environment
// variables override what is stored on disk.
func LoadSettings() (Settings, error) {
	settingsFile, err := verifyConfigFiles()
	if err != nil {
		return DefaultSettings(), err
	}

	s, err := readSettings(settingsFile)
	if err != nil {
		return DefaultSettings(), err
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[Config] error loading .env: %v", err)
	}
	ApplyEnv(&s)
	s.Normalize()
	return s, nil
}

func readSettings(path string) (Settings, error) {
	file, err := os.Open(path)
	if err != nil {
		return Settings{}, fmt.Errorf("error loading settings file: %w", err)
	}
	defer file.Close()

	byteValues, err := io.ReadAll(file)
	if err != nil {
		return Settings{}, fmt.Errorf("error reading settings file: %w", err)
	}

	// start from defaults so fields added in newer versions get sane values
	s := DefaultSettings()
	if err := json.Unmarshal(byteValues, &s); err != nil {
		return Settings{}, fmt.Errorf("error unmarshalling settings: %w", err)
	}
	return s, nil
}

// SaveSettings writes s to ~/.config/gazo/settings.json
func SaveSettings(s Settings) error {
	configDir, err := verifyConfigDirectory()
	if err != nil {
		return fmt.Errorf("error verifying config directory: %w", err)
	}

	s.Normalize()
	jsonData, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	// may hold API keys
	return os.WriteFile(filepath.Join(configDir, settingsFileName), jsonData, 0600)
}

// ApplyEnv overrides fields from GAZO_* environment variables
func ApplyEnv(s *Settings) {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				log.Printf("[Config] ignoring %s%s=%q: %v", envPrefix, key, v, err)
				return
			}
			*dst = n
		}
	}
	setBool := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				log.Printf("[Config] ignoring %s%s=%q: %v", envPrefix, key, v, err)
				return
			}
			*dst = b
		}
	}

	setString("ENGINE", &s.Engine)
	setInt("IMAGE_COUNT", &s.ImageCount)
	setBool("SAFE_SEARCH", &s.SafeSearch)
	setInt("WORKERS", &s.Workers)
	setInt("JPEG_QUALITY", &s.JPEGQuality)
	setInt("TIMEOUT_SECONDS", &s.TimeoutSeconds)
	setBool("RESPECT_ROBOTS", &s.RespectRobots)
	setBool("BROWSER_FALLBACK", &s.BrowserFallback)
	setString("USER_AGENT", &s.UserAgent)
	setString("OUTPUT_DIR", &s.OutputDir)
	setString("SEARXNG_ENDPOINT", &s.SearxngEndpoint)
	setString("SEARXNG_API_KEY", &s.SearxngAPIKey)
	setString("BRAVE_API_KEY", &s.BraveAPIKey)
	setString("SERPAPI_KEY", &s.SerpAPIKey)
	setString("MONGO_URI", &s.MongoURI)
	setString("MONGO_DATABASE", &s.MongoDatabase)
	setString("METRICS_ADDR", &s.MetricsAddr)
	setString("S3_ENDPOINT", &s.S3.Endpoint)
	setString("S3_ACCESS_KEY", &s.S3.AccessKey)
	setString("S3_SECRET_KEY", &s.S3.SecretKey)
	setString("S3_BUCKET", &s.S3.Bucket)
	setBool("S3_USE_SSL", &s.S3.UseSSL)
	setString("S3_PREFIX", &s.S3.Prefix)

	if v, ok := os.LookupEnv(envPrefix + "REQUESTS_PER_SECOND"); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			log.Printf("[Config] ignoring %sREQUESTS_PER_SECOND=%q: %v", envPrefix, v, err)
		} else {
			s.RequestsPerSecond = f
		}
	}
}

// ConfigDirectory returns ~/.config/gazo, creating it when missing
func ConfigDirectory() (string, error) {
	return verifyConfigDirectory()
}

// check config directory exists or create it
func verifyConfigDirectory() (string, error) {
	configDirectory, err := parser.ConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot verify local configuration directory: %w", err)
	}

	_, err = os.Stat(configDirectory)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(configDirectory, 0755); err != nil {
			return "", fmt.Errorf("error creating directory %s: %w", configDirectory, err)
		}
		log.Printf("[Config] Directory %s created successfully.", configDirectory)
	} else if err != nil {
		return "", fmt.Errorf("error checking directory %s: %w", configDirectory, err)
	}

	return configDirectory, nil
}

// check the settings file exists or create it
func verifyConfigFiles() (string, error) {
	configDir, err := verifyConfigDirectory()
	if err != nil {
		return "", err
	}

	settingsFile := filepath.Join(configDir, settingsFileName)

	_, err = os.Stat(settingsFile)
	if os.IsNotExist(err) {
		log.Printf("[Config] Settings file not found, creating defaults at '%s'", settingsFile)
		if saveErr := SaveSettings(DefaultSettings()); saveErr != nil {
			return "", fmt.Errorf("error creating settings file: %w", saveErr)
		}
	} else if err != nil {
		return "", fmt.Errorf("error checking file existence: %w", err)
	}

	return settingsFile, nil
}

func clamp(v, lo, hi, def int) int {
	if v == 0 {
		return def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
