package test

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config tunes the integration scenario timings. The defaults keep the run
// fast; raise them on slow CI machines via the environment.
type Config struct {
	SentDelay      time.Duration `envconfig:"SCENARIO_SENT_DELAY" default:"10ms"`
	DeliveredDelay time.Duration `envconfig:"SCENARIO_DELIVERED_DELAY" default:"30ms"`
	DriftInterval  time.Duration `envconfig:"SCENARIO_DRIFT_INTERVAL" default:"20ms"`
	WaitTimeout    time.Duration `envconfig:"SCENARIO_WAIT_TIMEOUT" default:"5s"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
