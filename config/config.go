// Package config loads devchain settings from the environment and an optional .env file.
package config

import (
	"path/filepath"
	"reflect"
	"strings"

	"github.com/Siasom1/devchain/explorer"
	"github.com/Siasom1/devchain/log"
	"github.com/Siasom1/devchain/node"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	// Node holds the chain and JSON-RPC settings.
	Node node.Config `mapstructure:"node"`
	// Explorer holds the explorer API settings.
	Explorer explorer.Config `mapstructure:"explorer"`
	// Log holds configuration for the logger.
	Log log.Config `mapstructure:"log"`
}

// LoadConfig loads configuration from environment variables and the .env
// file in dir, if there is one. Variables are named SECTION_KEY, for
// example NODE_PORT or LOG_LEVEL.
func LoadConfig(dir string) (*Config, error) {
	// A missing .env is fine.
	_ = godotenv.Overload(filepath.Join(dir, ".env"))

	v := viper.New()
	bindValues(v, Config{}, "")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// bindValues registers every mapstructure key with its default tag so
// AutomaticEnv can find it.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		v.SetDefault(key, field.Tag.Get("default"))
	}
}
