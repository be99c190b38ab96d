package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/rawwerks/monty/internal/errors"
	"github.com/rawwerks/monty/internal/sensors"
)

const (
	DefaultSampleInterval   = 500 * time.Millisecond
	DefaultRegisterInterval = 100 * time.Millisecond
	DefaultRetention        = 60 * time.Second
	DefaultFPS              = 50
	DefaultMSRPath          = "/dev/cpu/0/msr"
	DefaultMSROffset        = 0x611
	DefaultSensorBackend    = "hwmon"
	DefaultSensorChip       = "coretemp"
	DefaultLogLevel         = "warn"
)

// Config carries runtime options for monty.
type Config struct {
	SampleInterval   time.Duration `mapstructure:"sample_interval" validate:"gt=0"`
	RegisterInterval time.Duration `mapstructure:"register_interval" validate:"gt=0"`
	Retention        time.Duration `mapstructure:"retention" validate:"gt=0"`
	FPS              int           `mapstructure:"fps" validate:"min=1,max=240"`
	MSRPath          string        `mapstructure:"msr_path" validate:"required"`
	MSROffset        int64         `mapstructure:"msr_offset" validate:"min=0"`
	SensorBackend    string        `mapstructure:"sensor_backend" validate:"oneof=hwmon host"`
	SensorChip       string        `mapstructure:"sensor_chip" validate:"required"`
	SensorFeature    string        `mapstructure:"sensor_feature" validate:"required"`
	JSON             bool          `mapstructure:"json"`
	LogLevel         string        `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFile          string        `mapstructure:"log_file"`
	Debug            bool          `mapstructure:"debug"`
	Verbose          bool          `mapstructure:"verbose"`
}

// TickInterval is the presentation refresh period derived from FPS.
func (c *Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.FPS)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("sample_interval", DefaultSampleInterval)
	v.SetDefault("register_interval", DefaultRegisterInterval)
	v.SetDefault("retention", DefaultRetention)
	v.SetDefault("fps", DefaultFPS)
	v.SetDefault("msr_path", DefaultMSRPath)
	v.SetDefault("msr_offset", DefaultMSROffset)
	v.SetDefault("sensor_backend", DefaultSensorBackend)
	v.SetDefault("sensor_chip", DefaultSensorChip)
	v.SetDefault("sensor_feature", "")
	v.SetDefault("json", false)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("log_file", "")
	v.SetDefault("debug", false)
	v.SetDefault("verbose", false)
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("monty", pflag.ContinueOnError)
	fs.Duration("sample-interval", DefaultSampleInterval, "minimum time between dashboard samples")
	fs.Duration("register-interval", DefaultRegisterInterval, "energy register polling period")
	fs.Duration("retention", DefaultRetention, "length of the chart window")
	fs.Int("fps", DefaultFPS, "dashboard refresh rate")
	fs.String("msr-path", DefaultMSRPath, "model specific register device")
	fs.Int64("msr-offset", DefaultMSROffset, "byte offset of the package energy counter")
	fs.String("sensor-backend", DefaultSensorBackend, "temperature source: hwmon|host")
	fs.String("sensor-chip", DefaultSensorChip, "substring matched against sensor chip names")
	fs.String("sensor-feature", "", "substring matched against sensor feature names or labels (default temp1 for hwmon, package for host)")
	fs.Bool("json", false, "stream samples as NDJSON instead of drawing the dashboard")
	fs.String("log-level", DefaultLogLevel, "log level: debug|info|warn|error")
	fs.String("log-file", "", "write logs to this file")
	fs.Bool("debug", false, "enable debug logging")
	fs.Bool("verbose", false, "enable verbose logging")
	return fs
}

// Load parses flags, environment overrides and an optional TOML file.
// Precedence: flags > MONTY_* env > config file > defaults. An unset
// sensor_feature follows the chosen backend.
func Load(args []string) (*Config, error) {
	errFactory := errors.New()
	v := viper.New()
	setDefaults(v)

	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidArgument, err)
	}
	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if err := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); err != nil && bindErr == nil {
			bindErr = err
		}
	})
	if bindErr != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, bindErr)
	}

	v.SetEnvPrefix("MONTY")
	v.AutomaticEnv()

	v.SetConfigType("toml")
	if path := os.Getenv("MONTY_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("monty")
		v.AddConfigPath("/etc")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.config/monty")
		}
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}
	if cfg.SensorFeature == "" {
		cfg.SensorFeature = sensors.DefaultFeature(cfg.SensorBackend)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks value ranges after all sources are merged.
func (c *Config) Validate() error {
	errFactory := errors.New()
	if err := validate.Struct(c); err != nil {
		return errFactory.Wrap(errors.ErrInvalidConfig, err)
	}
	if c.SampleInterval < c.TickInterval() {
		return errFactory.WithData(errors.ErrInvalidInterval,
			fmt.Sprintf("sample_interval %s is shorter than one frame (%s)", c.SampleInterval, c.TickInterval()))
	}
	return nil
}
