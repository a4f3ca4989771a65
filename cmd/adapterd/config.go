package main

import (
	"fetlife-adapter/internal/components/telemetry"
	"fetlife-adapter/internal/scrapers/fetlife"
	"fetlife-adapter/lib/configutil"
)

type Config struct {
	fetlife.TransportConfig

	ListenPort  int    `json:"listen_port"`
	AccessToken string `json:"access_token"`
	Database    string `json:"database"`
	// SealKey is a base64 32 byte key, sessions are stored unsealed without one.
	SealKey         string           `json:"seal_key"`
	DefaultAccount  string           `json:"default_account"`
	DefaultUsername string           `json:"default_username"`
	DefaultPassword string           `json:"default_password"`
	Telemetry       telemetry.Config `json:"telemetry"`
}

var defaultConfig = Config{
	TransportConfig: fetlife.TransportConfig{
		Kind:           fetlife.TransportHTTP,
		BaseUrl:        fetlife.DefaultBaseUrl,
		TimeoutSeconds: 30,
	},
	ListenPort:     8000,
	Database:       "sessions.db",
	DefaultAccount: "default",
}

// LoadConfig reads config.json5 (and its .local override) if present, then applies
// the environment.
func LoadConfig(path string) (Config, error) {
	cfg, err := configutil.ReadOptional(path, defaultConfig)
	if err != nil {
		return cfg, err
	}
	configutil.EnvString(&cfg.DefaultUsername, "FETLIFE_USERNAME")
	configutil.EnvString(&cfg.DefaultPassword, "FETLIFE_PASSWORD")
	configutil.EnvString(&cfg.AccessToken, "ADAPTER_AUTH_TOKEN")
	configutil.EnvString(&cfg.SealKey, "ADAPTER_SEAL_KEY")
	if err := configutil.EnvInt(&cfg.ListenPort, "PORT"); err != nil {
		return cfg, err
	}
	return cfg, nil
}
