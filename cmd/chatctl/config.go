// Package main
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// config holds connection settings, merged from an optional YAML
// file, the environment (.env supported) and command-line flags, in
// ascending precedence.
type config struct {
	Server  string `yaml:"server"`
	UserID  int    `yaml:"userId"`
	Token   string `yaml:"token"`
	HubPath string `yaml:"hubPath"`
}

func loadConfig(path string) (*config, error) {
	_ = godotenv.Load()

	cfg := &config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if v := os.Getenv("CHATLINK_SERVER"); v != "" {
		cfg.Server = v
	}
	if v := os.Getenv("CHATLINK_TOKEN"); v != "" {
		cfg.Token = v
	}
	if v := os.Getenv("CHATLINK_USER_ID"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("CHATLINK_USER_ID: %w", err)
		}
		cfg.UserID = id
	}
	if v := os.Getenv("CHATLINK_HUB_PATH"); v != "" {
		cfg.HubPath = v
	}
	return cfg, nil
}

func (c *config) validate() error {
	if c.Server == "" {
		return fmt.Errorf("server is required")
	}
	if c.UserID <= 0 {
		return fmt.Errorf("user id is required")
	}
	return nil
}
