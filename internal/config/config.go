package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"tankyou/pkg/contracts/domain"
)

// Config represents the complete application configuration
type Config struct {
	Pipeline  PipelineConfig  `yaml:"pipeline" envconfig:"PIPELINE"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Source    SourceConfig    `yaml:"source" envconfig:"SOURCE"`
	Storage   StorageConfig   `yaml:"storage" envconfig:"STORAGE"`
	Export    ExportConfig    `yaml:"export" envconfig:"EXPORT"`
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// PipelineConfig holds the whitelists and CSV layout used by the processors.
// It is passed by value into every stage and never mutated after Load.
type PipelineConfig struct {
	Brands       []string       `yaml:"brands" envconfig:"BRANDS" validate:"min=1,unique,dive,required"`
	Fuels        []string       `yaml:"fuels" envconfig:"FUELS" validate:"min=1,unique,dive,required"`
	StationTypes map[string]int `yaml:"station_types" envconfig:"STATION_TYPES" validate:"dive,keys,required,endkeys,min=1"`
	Delimiter    string         `yaml:"delimiter" envconfig:"DELIMITER" validate:"len=1"`
	SkipLines    int            `yaml:"skip_lines" envconfig:"SKIP_LINES" validate:"min=0"`
}

// PathsConfig contains file system layout configuration
type PathsConfig struct {
	BaseDir        string `yaml:"base_dir" envconfig:"BASE_DIR"`
	StationsFile   string `yaml:"stations_file" envconfig:"STATIONS_FILE" validate:"required"`
	PricesFile     string `yaml:"prices_file" envconfig:"PRICES_FILE" validate:"required"`
	StationsOutput string `yaml:"stations_output" envconfig:"STATIONS_OUTPUT" validate:"required"`
	PricesOutput   string `yaml:"prices_output" envconfig:"PRICES_OUTPUT" validate:"required"`
	WorkbookOutput string `yaml:"workbook_output" envconfig:"WORKBOOK_OUTPUT" validate:"required"`
}

// SourceConfig describes where the raw snapshots are downloaded from
type SourceConfig struct {
	StationsURL       string        `yaml:"stations_url" envconfig:"STATIONS_URL" validate:"required,url"`
	PricesURL         string        `yaml:"prices_url" envconfig:"PRICES_URL" validate:"required,url"`
	Timeout           time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gt=0"`
	Retries           int           `yaml:"retries" envconfig:"RETRIES" validate:"min=0,max=10"`
	RequestsPerSecond float64       `yaml:"requests_per_second" envconfig:"REQUESTS_PER_SECOND" validate:"gt=0"`
	// Download fetches fresh snapshots before every pipeline run
	Download bool `yaml:"download" envconfig:"DOWNLOAD"`
}

// StorageConfig configures the optional database sink. An empty driver
// disables it.
type StorageConfig struct {
	Driver           string `yaml:"driver" envconfig:"DRIVER" validate:"omitempty,oneof=sqlite postgres"`
	DSN              string `yaml:"dsn" envconfig:"DSN" validate:"required_with=Driver"`
	StationBatchSize int    `yaml:"station_batch_size" envconfig:"STATION_BATCH_SIZE" validate:"min=1"`
	PriceBatchSize   int    `yaml:"price_batch_size" envconfig:"PRICE_BATCH_SIZE" validate:"min=1"`
}

// ExportConfig toggles the optional output formats
type ExportConfig struct {
	Workbook bool `yaml:"workbook" envconfig:"WORKBOOK"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST"`
	Port            int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" validate:"gt=0"`

	// RateLimitRPS of zero disables rate limiting
	RateLimitRPS   float64 `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS" validate:"gte=0"`
	RateLimitBurst int     `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST" validate:"gte=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// TelemetryConfig contains tracing and metrics configuration
type TelemetryConfig struct {
	ServiceName   string `yaml:"service_name" envconfig:"SERVICE_NAME" validate:"required"`
	Environment   string `yaml:"environment" envconfig:"ENVIRONMENT"`
	TraceExporter string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=none stdout"`
	// MetricsFile, when set, receives the run metrics in the node-exporter
	// textfile format after every pipeline run.
	MetricsFile string `yaml:"metrics_file" envconfig:"METRICS_FILE"`
}

var validate = validator.New()

// Load reads .env, the optional YAML file and the environment, in that
// order of increasing precedence, on top of Default().
func Load() (*Config, error) {
	return LoadFile(getConfigFilePath())
}

// LoadFile is Load with an explicit YAML file. An empty path skips the file.
func LoadFile(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg. Keys missing from the file
// keep their current value.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	// yaml.v2 merges into an existing map, so a file that lists station
	// types must replace the defaults instead of extending them.
	types := cfg.Pipeline.StationTypes
	cfg.Pipeline.StationTypes = nil

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return err
	}

	if cfg.Pipeline.StationTypes == nil {
		cfg.Pipeline.StationTypes = types
	}
	return nil
}

// Validate checks the struct tags and returns one error listing every
// offending field.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %q", fe.Namespace(), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// getConfigFilePath returns the YAML file to load, or "" when none exists
func getConfigFilePath() string {
	if path := os.Getenv(EnvPrefix + "_CONFIG"); path != "" {
		return path
	}

	locations := []string{
		"tankyou.yaml",
		"configs/tankyou.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			Brands:       DefaultBrands(),
			Fuels:        DefaultFuels(),
			StationTypes: DefaultStationTypes(),
			Delimiter:    DefaultDelimiter,
			SkipLines:    DefaultSkipLines,
		},
		Paths: PathsConfig{
			StationsFile:   DefaultStationsFile,
			PricesFile:     DefaultPricesFile,
			StationsOutput: DefaultStationsOutput,
			PricesOutput:   DefaultPricesOutput,
			WorkbookOutput: DefaultWorkbookOutput,
		},
		Source: SourceConfig{
			StationsURL:       DefaultStationsURL,
			PricesURL:         DefaultPricesURL,
			Timeout:           DefaultHTTPTimeout,
			Retries:           DefaultDownloadRetries,
			RequestsPerSecond: DefaultRequestsPerSecond,
		},
		Storage: StorageConfig{
			StationBatchSize: DefaultStationBatchSize,
			PriceBatchSize:   DefaultPriceBatchSize,
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimitRPS:    20,
			RateLimitBurst:  40,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "console",
		},
		Telemetry: TelemetryConfig{
			ServiceName:   "tankyou-fetcher",
			Environment:   "development",
			TraceExporter: "none",
		},
	}
}

// Comma returns the field delimiter as a rune
func (p PipelineConfig) Comma() rune {
	for _, r := range p.Delimiter {
		return r
	}
	return ';'
}

// BrandCode returns the 1-based position of brand in the whitelist.
// The first match wins when a brand is listed twice.
func (p PipelineConfig) BrandCode(brand string) (int, bool) {
	return rank(p.Brands, brand)
}

// FuelCode returns the 1-based position of fuel in the whitelist
func (p PipelineConfig) FuelCode(fuel string) (int, bool) {
	return rank(p.Fuels, fuel)
}

// StationTypeCode maps a "Tipo Impianto" value to its code, nil when the
// value is unknown.
func (p PipelineConfig) StationTypeCode(stationType string) *int {
	code, ok := p.StationTypes[stationType]
	if !ok {
		return nil
	}
	return &code
}

// Lookups builds the code tables implied by the whitelists
func (p PipelineConfig) Lookups() domain.Lookups {
	lookups := domain.Lookups{
		Flags:        make([]domain.Lookup, 0, len(p.Brands)),
		FuelTypes:    make([]domain.Lookup, 0, len(p.Fuels)),
		StationTypes: make([]domain.Lookup, 0, len(p.StationTypes)),
	}
	for i, b := range p.Brands {
		lookups.Flags = append(lookups.Flags, domain.Lookup{ID: i + 1, Name: b})
	}
	for i, f := range p.Fuels {
		lookups.FuelTypes = append(lookups.FuelTypes, domain.Lookup{ID: i + 1, Name: f})
	}
	for name, id := range p.StationTypes {
		lookups.StationTypes = append(lookups.StationTypes, domain.Lookup{ID: id, Name: name})
	}
	sort.Slice(lookups.StationTypes, func(i, j int) bool {
		return lookups.StationTypes[i].ID < lookups.StationTypes[j].ID
	})
	return lookups
}

func rank(list []string, value string) (int, bool) {
	for i, v := range list {
		if v == value {
			return i + 1, true
		}
	}
	return 0, false
}
