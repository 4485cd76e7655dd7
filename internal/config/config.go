// Package config loads server configuration from the environment.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

const (
	portKey           = "port"
	dbPathKey         = "db_path"
	defaultRoomKey    = "default_room"
	strictProtocolKey = "strict_protocol"
)

// Config holds the server configuration.
type Config struct {
	// Port is the HTTP listen port.
	Port string
	// DBPath is the sqlite file for the room activity log. Empty disables
	// activity recording.
	DBPath string
	// DefaultRoom is joined when a client omits the room id.
	DefaultRoom string
	// StrictProtocol rejects out-of-state client events with an explicit
	// error message instead of silently dropping them.
	StrictProtocol bool
}

// Load reads configuration from CANVAS_* environment variables, falling back
// to the defaults of the reference deployment.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("canvas")
	v.AutomaticEnv()

	v.SetDefault(portKey, "3000")
	v.SetDefault(dbPathKey, "data/activity.db")
	v.SetDefault(defaultRoomKey, "default")
	v.SetDefault(strictProtocolKey, false)

	cfg := &Config{
		Port:           v.GetString(portKey),
		DBPath:         v.GetString(dbPathKey),
		DefaultRoom:    v.GetString(defaultRoomKey),
		StrictProtocol: v.GetBool(strictProtocolKey),
	}
	if cfg.Port == "" {
		return nil, fmt.Errorf("port must not be empty")
	}
	if cfg.DefaultRoom == "" {
		return nil, fmt.Errorf("default room must not be empty")
	}
	return cfg, nil
}
