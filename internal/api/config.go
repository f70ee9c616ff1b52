package api

// Config holds configuration for the HTTP server.
type Config struct {
	// Addr is the listen address.
	Addr string `mapstructure:"addr" default:":8080"`
	// StaticDir serves a bundled operator UI when set.
	StaticDir string `mapstructure:"static_dir" default:""`
	// AlertLimit bounds the recent alerts shown on the status surface.
	AlertLimit int `mapstructure:"alert_limit" default:"20"`
}
