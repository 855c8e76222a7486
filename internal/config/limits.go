package config

import "time"

// Limits bounds the pipeline's resource usage. The scene worker bound is
// the single point of concurrency control and should track the backend's
// rate limit, not throughput targets.
type Limits struct {
	SceneWorkers int             `yaml:"scene_workers" validate:"required,min=1,max=16"`
	MaxRetries   int             `yaml:"max_retries" validate:"min=0,max=10"`
	CallTimeout  time.Duration   `yaml:"call_timeout" validate:"required,min=10s,max=30m"`
	RunTimeout   time.Duration   `yaml:"run_timeout" validate:"required,min=1m,max=24h"`
	EventBuffer  int             `yaml:"event_buffer" validate:"required,min=2,max=10000"`
	RateLimit    RateLimitConfig `yaml:"rate_limit" validate:"required"`
}

// RateLimitConfig bounds outbound generation calls.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" validate:"required,min=1,max=1000"`
	BurstSize         int `yaml:"burst_size" validate:"required,min=1,max=100"`
}

// DefaultLimits returns conservative production defaults.
func DefaultLimits() Limits {
	return Limits{
		SceneWorkers: 4,
		MaxRetries:   2,
		CallTimeout:  2 * time.Minute,
		RunTimeout:   30 * time.Minute,
		EventBuffer:  256,
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 30,
			BurstSize:         10,
		},
	}
}
