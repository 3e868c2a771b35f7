package main

import (
	"fmt"

	"github.com/dalemusser/chapterhub/internal/app/bootstrap"
	"github.com/kelseyhightower/envconfig"
)

// cliConfig holds the flag defaults read from CHAPTERHUB_* variables, the
// same names the server uses. Flags override them.
type cliConfig struct {
	MongoURI      string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDatabase string `envconfig:"MONGO_DATABASE" default:"chapter_hub"`
	SessionKey    string `envconfig:"SESSION_KEY"`
	SessionName   string `envconfig:"SESSION_NAME" default:"chapterhub-session"`
}

func loadConfig() (cliConfig, error) {
	var cfg cliConfig
	if err := envconfig.Process(bootstrap.EnvPrefix, &cfg); err != nil {
		return cliConfig{}, fmt.Errorf("error processing environment: %w", err)
	}
	return cfg, nil
}
