package config

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/kcz17/pagetime/stats"
)

type Config struct {
	Test     Test     `mapstructure:"test" validate:"required"`
	Browser  Browser  `mapstructure:"browser" validate:"required"`
	Output   Output   `mapstructure:"output" validate:"required"`
	Logging  Logging  `mapstructure:"logging" validate:"required"`
	Baseline Baseline `mapstructure:"baseline" validate:"required"`
	Serving  Serving  `mapstructure:"serving" validate:"required"`
}

type Test struct {
	Iterations *int `mapstructure:"iterations" validate:"required,min=1"`
	// Timeout is the number of seconds a page may take to load.
	Timeout          *int  `mapstructure:"timeout" validate:"required,min=1"`
	MeasureUserMarks *bool `mapstructure:"measureUserMarks" validate:"required"`
}

type Browser struct {
	Name        *string `mapstructure:"name" validate:"required,oneof=chrome firefox ie"`
	Driver      *string `mapstructure:"driver" validate:"required,oneof=cdp simulated"`
	DevToolsURL *string `mapstructure:"devtoolsURL" validate:"required,url"`
	UserAgent   *string `mapstructure:"userAgent"`
	// WindowSize is <width>x<height>, e.g. 1280x800. Empty keeps the
	// browser's window size.
	WindowSize *string    `mapstructure:"windowSize" validate:"omitempty,windowsize"`
	Simulation Simulation `mapstructure:"simulation" validate:"required"`
}

// Simulation configures the simulated browser driver.
type Simulation struct {
	Seed      *uint64  `mapstructure:"seed" validate:"required"`
	Resources *int     `mapstructure:"resources" validate:"required,min=0"`
	UserMarks []string `mapstructure:"userMarks"`
}

type Output struct {
	Format *string `mapstructure:"format" validate:"required,oneof=xml json"`
	Pretty *bool   `mapstructure:"pretty" validate:"required"`
	// Raw adds every run to the report.
	Raw *bool `mapstructure:"raw" validate:"required"`
	// File is the report path. Empty writes to stdout.
	File *string `mapstructure:"file"`
	// Plot is the path of a .png or .svg box plot of the metrics.
	Plot *string `mapstructure:"plot"`
}

type Logging struct {
	Driver   *string   `mapstructure:"driver" validate:"required,oneof=noop stdout influxdb"`
	Verbose  *bool     `mapstructure:"verbose" validate:"required"`
	InfluxDB *InfluxDB `mapstructure:"influxdb" validate:"required_if=Driver influxdb"`
}

type InfluxDB struct {
	Host   *string `mapstructure:"host" validate:"required"`
	Token  *string `mapstructure:"token" validate:"required"`
	Org    *string `mapstructure:"org" validate:"required"`
	Bucket *string `mapstructure:"bucket" validate:"required"`
}

type Baseline struct {
	// File is a JSON report written with raw runs. Empty skips the check.
	File *string `mapstructure:"file"`
	// Confidence is the confidence level, in percent, of the
	// Kolmogorov-Smirnov test.
	Confidence *float64 `mapstructure:"confidence" validate:"required,confidencelevel"`
}

type Serving struct {
	Addr      *string       `mapstructure:"addr" validate:"required"`
	Redis     Redis         `mapstructure:"redis" validate:"required"`
	Queue     *string       `mapstructure:"queue" validate:"required"`
	ResultTTL time.Duration `mapstructure:"resultTTL" validate:"required"`

	// MaxIterations bounds the iterations a submitted test may ask for.
	MaxIterations *int `mapstructure:"maxIterations" validate:"required,min=1"`
}

type Redis struct {
	Addr     *string `mapstructure:"addr" validate:"required"`
	Password *string `mapstructure:"password"`
	DB       *int    `mapstructure:"db" validate:"required,min=0"`
}

// ValidationError lists every invalid configuration field.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration:\n\t" + strings.Join(e.Fields, "\n\t")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("Test.Iterations", 3)
	v.SetDefault("Test.Timeout", 60)
	v.SetDefault("Test.MeasureUserMarks", false)

	v.SetDefault("Browser.Name", "chrome")
	v.SetDefault("Browser.Driver", "cdp")
	v.SetDefault("Browser.DevToolsURL", "http://localhost:9222")
	v.SetDefault("Browser.UserAgent", "")
	v.SetDefault("Browser.WindowSize", "")
	v.SetDefault("Browser.Simulation.Seed", 1)
	v.SetDefault("Browser.Simulation.Resources", 10)
	v.SetDefault("Browser.Simulation.UserMarks", []string{})

	v.SetDefault("Output.Format", "xml")
	v.SetDefault("Output.Pretty", true)
	v.SetDefault("Output.Raw", false)
	v.SetDefault("Output.File", "")
	v.SetDefault("Output.Plot", "")

	v.SetDefault("Logging.Driver", "stdout")
	v.SetDefault("Logging.Verbose", false)

	v.SetDefault("Baseline.File", "")
	v.SetDefault("Baseline.Confidence", 95)

	v.SetDefault("Serving.Addr", ":8080")
	v.SetDefault("Serving.Redis.Addr", "localhost:6379")
	v.SetDefault("Serving.Redis.Password", "")
	v.SetDefault("Serving.Redis.DB", 0)
	v.SetDefault("Serving.Queue", "pagetime-tests")
	v.SetDefault("Serving.ResultTTL", "24h")
	v.SetDefault("Serving.MaxIterations", 100)
}

// Load reads the configuration from v's flags, PAGETIME_ environment
// variables, and an optional pagetime.yaml in . or /etc/pagetime. A file
// named by the "config" key must exist.
func Load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.SetEnvPrefix("PAGETIME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigType("yaml")
	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("pagetime")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/pagetime")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("Load() reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("Load() decoding configuration: %w", err)
	}
	if err := Validate(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

func Validate(config *Config) error {
	validate := validator.New()
	if err := validate.RegisterValidation("windowsize", func(fl validator.FieldLevel) bool {
		_, _, err := ParseWindowSize(fl.Field().String())
		return err == nil
	}); err != nil {
		return fmt.Errorf("Validate() registering windowsize: %w", err)
	}
	if err := validate.RegisterValidation("confidencelevel", func(fl validator.FieldLevel) bool {
		_, err := stats.ConfidenceLevelFromPercent(fl.Field().Float())
		return err == nil
	}); err != nil {
		return fmt.Errorf("Validate() registering confidencelevel: %w", err)
	}

	err := validate.Struct(config)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("Validate() unable to validate config: %w", err)
	}
	fields := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		fields = append(fields, e.Error())
	}
	return &ValidationError{Fields: fields}
}

var windowSizePattern = regexp.MustCompile(`^(\d+)x(\d+)$`)

// ParseWindowSize parses <width>x<height>.
func ParseWindowSize(s string) (width, height int, err error) {
	matches := windowSizePattern.FindStringSubmatch(s)
	if matches == nil {
		return 0, 0, fmt.Errorf("invalid window size %q; expected <width>x<height>", s)
	}
	width, err = strconv.Atoi(matches[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid window width in %q: %w", s, err)
	}
	height, err = strconv.Atoi(matches[2])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid window height in %q: %w", s, err)
	}
	if width == 0 || height == 0 {
		return 0, 0, fmt.Errorf("invalid window size %q; expected a non-empty window", s)
	}
	return width, height, nil
}

// TimeoutDuration returns the page load timeout.
func (t Test) TimeoutDuration() time.Duration {
	return time.Duration(*t.Timeout) * time.Second
}
