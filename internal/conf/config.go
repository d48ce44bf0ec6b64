// Package conf loads application settings from defaults, a YAML config file,
// .env files and PENALTYKICK_* environment variables.
package conf

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment variable overrides, e.g.
// PENALTYKICK_SERVER_ADDR.
const EnvPrefix = "PENALTYKICK"

// Settings holds the full application configuration.
type Settings struct {
	Debug   bool   `mapstructure:"debug"`
	DataDir string `mapstructure:"datadir"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`

	Server struct {
		Addr      string `mapstructure:"addr"`
		StaticDir string `mapstructure:"staticdir"`
		UploadDir string `mapstructure:"uploaddir"`
		MaxUpload int64  `mapstructure:"maxupload"`
	} `mapstructure:"server"`

	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`

	Frames struct {
		Dir string  `mapstructure:"dir"`
		FPS float64 `mapstructure:"fps"`
	} `mapstructure:"frames"`

	Detector struct {
		ModelComplexity int     `mapstructure:"modelcomplexity"`
		MinConfidence   float64 `mapstructure:"minconfidence"`
		MinVisibility   float64 `mapstructure:"minvisibility"`
	} `mapstructure:"detector"`

	Features struct {
		Schema string `mapstructure:"schema"`
	} `mapstructure:"features"`

	Dataset struct {
		Output string `mapstructure:"output"`
		Mode   string `mapstructure:"mode"`
	} `mapstructure:"dataset"`

	Model struct {
		Path     string `mapstructure:"path"`
		Artifact string `mapstructure:"artifact"`
		Threads  int    `mapstructure:"threads"`
	} `mapstructure:"model"`

	Cache struct {
		TTL time.Duration `mapstructure:"ttl"`
	} `mapstructure:"cache"`
}

// DefaultDataDir returns ~/.penaltykick, or .penaltykick when the home
// directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".penaltykick"
	}
	return filepath.Join(home, ".penaltykick")
}

// SetDefaults registers default values rooted at dataDir.
func SetDefaults(v *viper.Viper, dataDir string) {
	v.SetDefault("debug", false)
	v.SetDefault("datadir", dataDir)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.staticdir", "")
	v.SetDefault("server.uploaddir", filepath.Join(dataDir, "uploads"))
	v.SetDefault("server.maxupload", 512<<20)

	v.SetDefault("database.path", filepath.Join(dataDir, "penaltykick.db"))

	v.SetDefault("frames.dir", filepath.Join(dataDir, "frames"))
	v.SetDefault("frames.fps", 30.0)

	v.SetDefault("detector.modelcomplexity", 1)
	v.SetDefault("detector.minconfidence", 0.5)
	v.SetDefault("detector.minvisibility", 0.0)

	v.SetDefault("features.schema", "seq-v1")

	v.SetDefault("dataset.output", filepath.Join(dataDir, "kicks.msgpack"))
	v.SetDefault("dataset.mode", "sequence")

	v.SetDefault("model.path", filepath.Join(dataDir, "models", "kick_direction.tflite"))
	v.SetDefault("model.artifact", filepath.Join(dataDir, "models", "kick_direction.yaml"))
	v.SetDefault("model.threads", 1)

	v.SetDefault("cache.ttl", 10*time.Minute)
}

// LoadEnv loads variables from .env files into the process environment.
// Missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads settings into v. configFile may be empty, in which case
// config.yaml is searched in the working directory and the data directory.
// A missing config file is not an error.
func Load(v *viper.Viper, configFile string) (*Settings, error) {
	dataDir := DefaultDataDir()
	if d := os.Getenv(EnvPrefix + "_DATADIR"); d != "" {
		dataDir = d
	}
	SetDefaults(v, dataDir)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(dataDir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	if settings.Debug {
		settings.Log.Level = "debug"
	}
	return settings, nil
}
