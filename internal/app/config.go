package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/dashboot/internal/config"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	BaseURL   string
	Resource  string
	Timeout   time.Duration
	OnFailure config.FailurePolicy
	// MaxBodyBytes caps the configuration document size. 0 is unlimited.
	MaxBodyBytes int64

	Unit        string
	UnitArgs    hcl.Body
	EvalContext *hcl.EvalContext

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.Unit == "" {
		return nil, errors.New("Unit is a required configuration field and cannot be empty")
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("Timeout must not be negative, got %s", cfg.Timeout)
	}
	if cfg.MaxBodyBytes < 0 {
		return nil, fmt.Errorf("MaxBodyBytes must not be negative, got %d", cfg.MaxBodyBytes)
	}
	if cfg.OnFailure == "" {
		cfg.OnFailure = config.FailureSwallow
	}
	if _, err := config.ParseFailurePolicy(string(cfg.OnFailure)); err != nil {
		return nil, err
	}

	return &cfg, nil
}
