package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all configuration for aerorepo
type Config struct {
	DataDir       string        `mapstructure:"data_dir"`
	BaseURL       string        `mapstructure:"base_url"`
	RepositoryURL string        `mapstructure:"repository_url"`
	MetaDir       string        `mapstructure:"meta_dir"`
	GlobalPrefix  string        `mapstructure:"global_prefix"`
	HTTP          HTTPConfig    `mapstructure:"http"`
	Check         CheckConfig   `mapstructure:"check"`
	OpenAIP       OpenAIPConfig `mapstructure:"openaip"`
}

// HTTPConfig holds outbound request settings
type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// CheckConfig holds URL checker settings
type CheckConfig struct {
	// MaxJitter bounds the random pause taken before a scheduled CI run.
	MaxJitter time.Duration `mapstructure:"max_jitter"`
}

// OpenAIPConfig describes the OpenAIP object-storage bucket
type OpenAIPConfig struct {
	BucketURL       string `mapstructure:"bucket_url"`
	AirspacePattern string `mapstructure:"airspace_pattern"`
	WaypointPattern string `mapstructure:"waypoint_pattern"`
	MinSize         int64  `mapstructure:"min_size"`
	AirspaceBBox    bool   `mapstructure:"airspace_bbox"`
}

var defaultConfig = Config{
	DataDir:       "data",
	BaseURL:       "http://download.xcsoar.org/",
	RepositoryURL: "http://download.xcsoar.org/repository",
	MetaDir:       "0_META",
	GlobalPrefix:  "GLB-",
	HTTP: HTTPConfig{
		Timeout: parseDurationDefault("30s"),
	},
	Check: CheckConfig{
		MaxJitter: parseDurationDefault("240s"),
	},
	OpenAIP: OpenAIPConfig{
		BucketURL:       "https://storage.googleapis.com/29f98e10-a489-4c82-ae5e-489dbcd4912f/",
		AirspacePattern: "**/*asp_v2.txt",
		WaypointPattern: "**/*.cup",
		MinSize:         384,
		AirspaceBBox:    false,
	},
}

// Default returns a copy of the built-in defaults.
func Default() Config {
	return defaultConfig
}

// newViper returns a viper instance with defaults, config file search paths
// and environment binding applied.
func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("data_dir", defaultConfig.DataDir)
	v.SetDefault("base_url", defaultConfig.BaseURL)
	v.SetDefault("repository_url", defaultConfig.RepositoryURL)
	v.SetDefault("meta_dir", defaultConfig.MetaDir)
	v.SetDefault("global_prefix", defaultConfig.GlobalPrefix)
	v.SetDefault("http.timeout", defaultConfig.HTTP.Timeout)
	v.SetDefault("check.max_jitter", defaultConfig.Check.MaxJitter)
	v.SetDefault("openaip.bucket_url", defaultConfig.OpenAIP.BucketURL)
	v.SetDefault("openaip.airspace_pattern", defaultConfig.OpenAIP.AirspacePattern)
	v.SetDefault("openaip.waypoint_pattern", defaultConfig.OpenAIP.WaypointPattern)
	v.SetDefault("openaip.min_size", defaultConfig.OpenAIP.MinSize)
	v.SetDefault("openaip.airspace_bbox", defaultConfig.OpenAIP.AirspaceBBox)

	v.SetConfigName("aerorepo")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME")

	v.SetEnvPrefix("AEROREPO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// FileFlag names the flag holding an explicit config file path.
const FileFlag = "config"

// Load reads configuration from defaults, an optional aerorepo.yaml, the
// environment, and finally any flags in bindings (config key -> flag name)
// that were explicitly set on fs. A non-empty --config flag on fs replaces
// the search paths and must exist.
func Load(fs *pflag.FlagSet, bindings map[string]string) (*Config, error) {
	v := newViper()

	if path := configFile(fs); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	} else if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := bindFlags(v, fs, bindings); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if !strings.HasSuffix(config.BaseURL, "/") {
		config.BaseURL += "/"
	}
	if !strings.HasSuffix(config.OpenAIP.BucketURL, "/") {
		config.OpenAIP.BucketURL += "/"
	}
	return &config, nil
}

func configFile(fs *pflag.FlagSet) string {
	if fs == nil {
		return ""
	}
	f := fs.Lookup(FileFlag)
	if f == nil {
		return ""
	}
	return f.Value.String()
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet, bindings map[string]string) error {
	if fs == nil {
		return nil
	}
	for key, name := range bindings {
		flag := fs.Lookup(name)
		if flag == nil {
			continue
		}
		// Unchanged flags must not shadow config file or environment values.
		if !flag.Changed {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}

// parseDurationDefault is a helper to create default duration values from string literal
func parseDurationDefault(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
