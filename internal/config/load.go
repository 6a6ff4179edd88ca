package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/ixado/ixado/internal/constants"
	ixerrors "github.com/ixado/ixado/internal/errors"
)

// newViperInstance creates a viper instance with defaults, the IXADO_ env
// prefix, and a key replacer so IXADO_CI_POLL_INTERVAL maps to
// ci.poll_interval.
func newViperInstance() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("IXADO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration for the project rooted at projectRoot. A missing
// config file is not an error; defaults and environment variables apply.
func Load(projectRoot string) (*Config, error) {
	v := newViperInstance()

	path := filepath.Join(projectRoot, constants.ProjectDirName, constants.ConfigFileName)
	if fileExists(path) {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) {
			return nil, ixerrors.Wrapf(err, "read config %s", path)
		}
	}

	cfg, err := unmarshalAndValidate(v)
	if err != nil {
		return nil, err
	}

	if cfg.Project.Name == "" {
		abs, absErr := filepath.Abs(projectRoot)
		if absErr == nil {
			cfg.Project.Name = filepath.Base(abs)
		}
	}
	return cfg, nil
}

// unmarshalAndValidate decodes the viper state into a Config and validates it.
func unmarshalAndValidate(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, ixerrors.Wrap(err, "unmarshal config")
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// viperDecoderOption wires the string→time.Duration decode hook.
func viperDecoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	)
}

func isConfigNotFoundError(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return stderrors.As(err, &notFound)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
