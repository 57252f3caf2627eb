package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const defaultServer = "http://localhost:8080"

// cliConfig содержимое ~/.grantctl.yaml.
type cliConfig struct {
	Server       string `yaml:"server"`
	Email        string `yaml:"email,omitempty"`
	AccessToken  string `yaml:"access_token,omitempty"`
	RefreshToken string `yaml:"refresh_token,omitempty"`
	// AutosaveDelay пауза перед автосохранением в grantctl edit, например "2s".
	AutosaveDelay string `yaml:"autosave_delay,omitempty"`
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".grantctl.yaml"
	}
	return filepath.Join(home, ".grantctl.yaml")
}

// loadConfig читает конфиг; отсутствующий файл не ошибка.
func loadConfig(path string) (*cliConfig, error) {
	cfg := &cliConfig{Server: defaultServer}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Server == "" {
		cfg.Server = defaultServer
	}
	return cfg, nil
}

// saveConfig пишет конфиг с правами 0600: в нём лежат токены.
func saveConfig(path string, cfg *cliConfig) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
