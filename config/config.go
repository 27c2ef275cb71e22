package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Client  ClientConfig  `mapstructure:"client"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type ClientConfig struct {
	// SocketURL is the base websocket endpoint, e.g. ws://localhost:4000/socket.
	SocketURL string `mapstructure:"socket_url"`
	// APIURL is the base HTTP endpoint used for room creation.
	APIURL      string        `mapstructure:"api_url"`
	JoinTimeout time.Duration `mapstructure:"join_timeout"`
	PushTimeout time.Duration `mapstructure:"push_timeout"`
	// DataDir holds the per-room session identity file.
	DataDir string `mapstructure:"data_dir"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

func Load(path string) (config *Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("client.socket_url", "ws://localhost:4000/socket")
	viper.SetDefault("client.api_url", "http://localhost:4000")
	viper.SetDefault("client.join_timeout", 10*time.Second)
	viper.SetDefault("client.push_timeout", 5*time.Second)
	viper.SetDefault("client.data_dir", ".betduel")
	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.address", ":9102")

	viper.AutomaticEnv()

	if err = viper.ReadInConfig(); err != nil {
		// Missing file falls back to defaults; anything else is fatal.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	err = viper.Unmarshal(&config)
	return
}
