package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/andresuchdata/replenish/internal/pipeline/replenishment"
)

type Config struct {
	Server  ServerConfig
	App     AppConfig
	Engine  EngineConfig
	Cache   CacheConfig
	Storage StorageConfig
	Drive   DriveConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type AppConfig struct {
	UploadDir          string
	OutputDir          string
	IntermediateDir    string
	PersistDebugLayers bool
	LogLevel           string
	Workers            int
}

// EngineConfig is the flat, environment friendly form of
// replenishment.Config. Lists are comma separated; empty strings and zero
// numbers keep the engine defaults.
type EngineConfig struct {
	HubLocation       string
	Period            string
	ReferenceDate     string
	Weights           string
	Metric            string
	Policy            string
	LeadTimeFraction  float64
	OutlierThreshold  float64
	MinStockFactor    float64
	StockColumnPrefix string
	SplitByChannel    bool
	Locations         string
	MappingFile       string
}

type CacheConfig struct {
	Enabled          bool
	RedisURL         string
	RedisHost        string
	RedisPort        string
	RedisPassword    string
	RedisDB          int
	ReportTTLSeconds int
}

// StorageConfig points at an S3-compatible bucket.
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	Prefix    string
}

type DriveConfig struct {
	CredentialsJSON string
	FolderID        string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		setDefaults(viper.GetViper())

		// Read from environment variables
		viper.AutomaticEnv()

		instance = fromViper(viper.GetViper())

		ensureDir(instance.App.UploadDir)
		ensureDir(instance.App.OutputDir)
	})

	return instance
}

func setDefaults(v *viper.Viper) {
	defaults := replenishment.DefaultConfig()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("SERVER_READ_TIMEOUT", 30)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 120)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})

	v.SetDefault("APP_UPLOAD_DIR", "./data/uploads")
	v.SetDefault("APP_OUTPUT_DIR", "./data/output")
	v.SetDefault("APP_INTERMEDIATE_DIR", "./data/intermediate")
	v.SetDefault("APP_PERSIST_DEBUG_LAYERS", false)
	v.SetDefault("APP_LOG_LEVEL", "info")
	v.SetDefault("APP_WORKERS", 4)

	v.SetDefault("ENGINE_HUB_LOCATION", defaults.HubLocation)
	v.SetDefault("ENGINE_PERIOD", string(defaults.Period))
	v.SetDefault("ENGINE_REFERENCE_DATE", "")
	v.SetDefault("ENGINE_WEIGHTS", joinFloats(defaults.Weights))
	v.SetDefault("ENGINE_METRIC", string(defaults.Metric))
	v.SetDefault("ENGINE_POLICY", string(defaults.Policy))
	v.SetDefault("ENGINE_LEAD_TIME_FRACTION", defaults.Dispersion.LeadTimeFraction)
	v.SetDefault("ENGINE_OUTLIER_THRESHOLD", defaults.Dispersion.OutlierThreshold)
	v.SetDefault("ENGINE_MIN_STOCK_FACTOR", defaults.MinStockFactor)
	v.SetDefault("ENGINE_STOCK_COLUMN_PREFIX", defaults.StockColumnPrefix)
	v.SetDefault("ENGINE_SPLIT_BY_CHANNEL", false)
	v.SetDefault("ENGINE_LOCATIONS", "")
	v.SetDefault("ENGINE_MAPPING_FILE", "")

	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_REPORT_TTL_SECONDS", 600)

	v.SetDefault("STORAGE_ENDPOINT", "")
	v.SetDefault("STORAGE_ACCESS_KEY", "")
	v.SetDefault("STORAGE_SECRET_KEY", "")
	v.SetDefault("STORAGE_BUCKET", "")
	v.SetDefault("STORAGE_REGION", "us-east-1")
	v.SetDefault("STORAGE_USE_SSL", true)
	v.SetDefault("STORAGE_PREFIX", "replenishment")

	v.SetDefault("GOOGLE_DRIVE_CREDENTIALS_JSON", "")
	v.SetDefault("GOOGLE_DRIVE_FOLDER_ID", "")
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		App: AppConfig{
			UploadDir:          v.GetString("APP_UPLOAD_DIR"),
			OutputDir:          v.GetString("APP_OUTPUT_DIR"),
			IntermediateDir:    v.GetString("APP_INTERMEDIATE_DIR"),
			PersistDebugLayers: v.GetBool("APP_PERSIST_DEBUG_LAYERS"),
			LogLevel:           v.GetString("APP_LOG_LEVEL"),
			Workers:            v.GetInt("APP_WORKERS"),
		},
		Engine: EngineConfig{
			HubLocation:       v.GetString("ENGINE_HUB_LOCATION"),
			Period:            v.GetString("ENGINE_PERIOD"),
			ReferenceDate:     v.GetString("ENGINE_REFERENCE_DATE"),
			Weights:           v.GetString("ENGINE_WEIGHTS"),
			Metric:            v.GetString("ENGINE_METRIC"),
			Policy:            v.GetString("ENGINE_POLICY"),
			LeadTimeFraction:  v.GetFloat64("ENGINE_LEAD_TIME_FRACTION"),
			OutlierThreshold:  v.GetFloat64("ENGINE_OUTLIER_THRESHOLD"),
			MinStockFactor:    v.GetFloat64("ENGINE_MIN_STOCK_FACTOR"),
			StockColumnPrefix: v.GetString("ENGINE_STOCK_COLUMN_PREFIX"),
			SplitByChannel:    v.GetBool("ENGINE_SPLIT_BY_CHANNEL"),
			Locations:         v.GetString("ENGINE_LOCATIONS"),
			MappingFile:       v.GetString("ENGINE_MAPPING_FILE"),
		},
		Cache: CacheConfig{
			Enabled:          v.GetBool("CACHE_ENABLED"),
			RedisURL:         v.GetString("REDIS_URL"),
			RedisHost:        v.GetString("REDIS_HOST"),
			RedisPort:        v.GetString("REDIS_PORT"),
			RedisPassword:    v.GetString("REDIS_PASSWORD"),
			RedisDB:          v.GetInt("REDIS_DB"),
			ReportTTLSeconds: v.GetInt("CACHE_REPORT_TTL_SECONDS"),
		},
		Storage: StorageConfig{
			Endpoint:  v.GetString("STORAGE_ENDPOINT"),
			AccessKey: v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: v.GetString("STORAGE_SECRET_KEY"),
			Bucket:    v.GetString("STORAGE_BUCKET"),
			Region:    v.GetString("STORAGE_REGION"),
			UseSSL:    v.GetBool("STORAGE_USE_SSL"),
			Prefix:    v.GetString("STORAGE_PREFIX"),
		},
		Drive: DriveConfig{
			CredentialsJSON: v.GetString("GOOGLE_DRIVE_CREDENTIALS_JSON"),
			FolderID:        v.GetString("GOOGLE_DRIVE_FOLDER_ID"),
		},
	}
}

// Replenishment builds the engine configuration, loading the mapping file
// when one is set.
func (e EngineConfig) Replenishment() (replenishment.Config, error) {
	cfg := replenishment.DefaultConfig()

	if e.HubLocation != "" {
		cfg.HubLocation = strings.TrimSpace(e.HubLocation)
	}
	if e.Period != "" {
		cfg.Period = replenishment.PeriodPolicy(strings.ToLower(strings.TrimSpace(e.Period)))
	}
	if e.ReferenceDate != "" {
		ref, err := time.Parse("2006-01-02", strings.TrimSpace(e.ReferenceDate))
		if err != nil {
			return replenishment.Config{}, fmt.Errorf("invalid reference date %q: %w", e.ReferenceDate, err)
		}
		cfg.ReferenceDate = ref
	}
	if e.Weights != "" {
		weights, err := parseFloats(e.Weights)
		if err != nil {
			return replenishment.Config{}, fmt.Errorf("invalid weights: %w", err)
		}
		cfg.Weights = weights
	}
	if e.Metric != "" {
		cfg.Metric = replenishment.Metric(strings.ToLower(strings.TrimSpace(e.Metric)))
	}
	if e.Policy != "" {
		cfg.Policy = replenishment.Policy(strings.ToLower(strings.TrimSpace(e.Policy)))
	}
	if e.LeadTimeFraction != 0 {
		cfg.Dispersion.LeadTimeFraction = e.LeadTimeFraction
	}
	if e.OutlierThreshold != 0 {
		cfg.Dispersion.OutlierThreshold = e.OutlierThreshold
	}
	if e.MinStockFactor != 0 {
		cfg.MinStockFactor = e.MinStockFactor
	}
	if e.StockColumnPrefix != "" {
		cfg.StockColumnPrefix = e.StockColumnPrefix
	}
	cfg.SplitByChannel = e.SplitByChannel
	cfg.Locations = splitList(e.Locations)

	if e.MappingFile != "" {
		mapping, err := LoadMapping(e.MappingFile)
		if err != nil {
			return replenishment.Config{}, err
		}
		cfg.Mapping = mapping
	}

	if err := cfg.Validate(); err != nil {
		return replenishment.Config{}, err
	}
	return cfg, nil
}

// LoadMapping reads a YAML (or any viper supported format) mapping file.
// Sections present in the file replace the built-in ones; absent sections keep
// the defaults.
func LoadMapping(path string) (replenishment.Mapping, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return replenishment.Mapping{}, fmt.Errorf("read mapping file %s: %w", path, err)
	}

	m := replenishment.DefaultMapping()
	sections := []struct {
		key    string
		target interface{}
	}{
		{"departments", &m.Departments},
		{"shared", &m.Shared},
		{"cities", &m.Cities},
		{"channels", &m.Channels},
		{"default_channel", &m.DefaultChannel},
	}
	for _, s := range sections {
		if !v.IsSet(s.key) {
			continue
		}
		if err := clearAndDecode(v, s.key, s.target); err != nil {
			return replenishment.Mapping{}, fmt.Errorf("decode mapping section %s: %w", s.key, err)
		}
	}

	log.Debug().Str("path", path).Int("departments", len(m.Departments)).Int("channels", len(m.Channels)).Msg("mapping loaded")
	return m, nil
}

// clearAndDecode resets target before decoding so file sections replace the
// defaults instead of merging into them.
func clearAndDecode(v *viper.Viper, key string, target interface{}) error {
	switch t := target.(type) {
	case *map[string]string:
		*t = nil
	case *map[string][]replenishment.MembershipSet:
		*t = nil
	case *[]replenishment.MembershipSet:
		*t = nil
	case *string:
		*t = ""
	}
	return v.UnmarshalKey(key, target)
}

func parseFloats(s string) ([]float64, error) {
	parts := splitList(s)
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func joinFloats(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func ensureDir(dir string) {
	if dir == "" {
		return
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatal().Err(err).Str("dir", dir).Msg("failed to create directory")
		}
	}
}
