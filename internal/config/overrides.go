package config

import (
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override (PCA_DATABASE_PATH, ...).
const EnvPrefix = "PCA"

// overrideKeys are the main config keys that can be set from the
// environment or bound flags.
var overrideKeys = []string{
	"input_dir",
	"output_dir",
	"input_archive_dir",
	"output_archive_dir",
	"sources_dir",
	"database_path",
	"log_level",
	"log_format",
	"output_name_format",
	"max_concurrency",
	"generator.provider",
	"generator.model",
	"generator.api_key",
	"generator.delay",
}

// NewViper returns a viper instance reading PCA_* environment variables,
// with "." and "-" in keys mapped to "_".
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for _, key := range overrideKeys {
		_ = v.BindEnv(key)
	}

	return v
}

// ApplyOverrides copies every key set in v onto cfg. Unset keys leave the
// file value (or default) untouched.
func ApplyOverrides(cfg *MainConfig, v *viper.Viper) {
	str := func(key string, dst *string) {
		if v.IsSet(key) {
			if s := v.GetString(key); s != "" {
				*dst = s
			}
		}
	}

	str("input_dir", &cfg.InputDir)
	str("output_dir", &cfg.OutputDir)
	str("input_archive_dir", &cfg.InputArchiveDir)
	str("output_archive_dir", &cfg.OutputArchiveDir)
	str("sources_dir", &cfg.SourcesDir)
	str("database_path", &cfg.DatabasePath)
	str("log_level", &cfg.LogLevel)
	str("log_format", &cfg.LogFormat)
	str("output_name_format", &cfg.OutputNameFormat)
	str("generator.provider", &cfg.Generator.Provider)
	str("generator.model", &cfg.Generator.Model)
	str("generator.api_key", &cfg.Generator.APIKey)

	if v.IsSet("max_concurrency") {
		if n := v.GetInt("max_concurrency"); n > 0 {
			cfg.MaxConcurrency = n
		}
	}
	if v.IsSet("generator.delay") {
		delay := v.GetDuration("generator.delay")
		cfg.Generator.Delay = &delay
	}
}
