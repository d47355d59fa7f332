package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	configName      = "renewal"
	configType      = "yaml"
	envPrefix       = "RENEWAL"
	envKeySeparator = "_"
)

// SearchPaths are the directories searched for renewal.yaml when no
// explicit path is given.
var SearchPaths = []string{".", "./config", "/etc/renewal"}

// Load reads configuration from file, env vars, and defaults.
// If path is non-empty, it is used as the explicit config file path and
// must exist. Otherwise a missing config file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	applyDefaults(v)

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		for _, p := range SearchPaths {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	v := viper.New()
	applyDefaults(v)
	var cfg Config
	// defaults always decode
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("workspace.root", DefaultRoot)
	v.SetDefault("workspace.variants", []string{})
	v.SetDefault("workspace.object_dir", DefaultObjectDir)
	v.SetDefault("workspace.object_suffix", DefaultObjectSuffix)

	v.SetDefault("toolchain.backend", DefaultBackend)
	v.SetDefault("toolchain.readelf.bin", DefaultReadelf)
	v.SetDefault("toolchain.readelf.section_flags", DefaultSectionFlags)
	v.SetDefault("toolchain.readelf.dump_flags", DefaultDumpFlags)
	v.SetDefault("toolchain.objdump.bin", DefaultObjdump)
	v.SetDefault("toolchain.objdump.listing_flags", DefaultListingFlags)
	v.SetDefault("toolchain.objdump.disassembly_flags", DefaultDisassemblyFlags)

	v.SetDefault("analysis.matcher", DefaultMatcher)
	v.SetDefault("analysis.workers", DefaultWorkers)

	v.SetDefault("equivalence.volatile_pattern", DefaultVolatilePattern)
	v.SetDefault("equivalence.code_prefix", DefaultCodePrefix)

	v.SetDefault("output.directory", DefaultOutputDirectory)
	v.SetDefault("output.format", DefaultOutputFormat)
	v.SetDefault("output.metrics_file", "")

	v.SetDefault("logging.level", DefaultLogLevel)
}
