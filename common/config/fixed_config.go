// Package config loads minefieldd's single configuration file via
// viper, re-parsing it on every change.
package config

import (
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Conf is populated by InitConfig and read by every other package.
var Conf *Config

// Config is minefieldd's full runtime configuration.
type Config struct {
	AppName    string    `mapstructure:"appName"`
	Log        LogConf   `mapstructure:"log"`
	WsPort     int       `mapstructure:"wsPort"`
	MetricPort int       `mapstructure:"metricPort"`
	Store      StoreConf `mapstructure:"store"`
	Room       RoomConf  `mapstructure:"room"`
}

// LogConf controls the charmbracelet/log sink.
type LogConf struct {
	Level string `mapstructure:"level"`
}

// StoreConf selects and configures the persistence backend (§A.4).
type StoreConf struct {
	Backend string    `mapstructure:"backend"` // "bolt" or "mongo"
	Bolt    BoltConf  `mapstructure:"bolt"`
	Mongo   MongoConf `mapstructure:"mongo"`
}

type BoltConf struct {
	Path string `mapstructure:"path"`
}

type MongoConf struct {
	Url         string `mapstructure:"url"`
	Db          string `mapstructure:"db"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	MinPoolSize int    `mapstructure:"minPoolSize"`
	MaxPoolSize int    `mapstructure:"maxPoolSize"`
}

// RoomConf carries the server-wide timers described in §4.4.
type RoomConf struct {
	SaveInterval     time.Duration `mapstructure:"saveInterval"`
	ZombieTimeout    time.Duration `mapstructure:"zombieTimeout"`
	InactiveEviction time.Duration `mapstructure:"inactiveEviction"`
}

// InitConfig reads configFile and keeps Conf live-reloaded on change.
func InitConfig(configFile string) {
	Conf = new(Config)
	v := viper.New()
	v.SetConfigFile(configFile)
	v.SetDefault("room.saveInterval", 30*time.Second)
	v.SetDefault("room.zombieTimeout", time.Hour)
	v.SetDefault("room.inactiveEviction", 10*time.Minute)
	v.WatchConfig()
	v.OnConfigChange(func(in fsnotify.Event) {
		if err := v.Unmarshal(Conf); err != nil {
			panic(fmt.Errorf("reloading config: %w", err))
		}
	})

	if err := v.ReadInConfig(); err != nil {
		panic(fmt.Errorf("reading config: %w", err))
	}
	if err := v.Unmarshal(Conf); err != nil {
		panic(fmt.Errorf("parsing config: %w", err))
	}
}
