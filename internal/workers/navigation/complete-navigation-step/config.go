// internal/workers/navigation/complete-navigation-step/config.go
package completenavigationstep

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
