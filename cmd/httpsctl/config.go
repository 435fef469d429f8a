package main

import (
	"fmt"

	"github.com/kbukum/httpsmgr/config"
	"github.com/kbukum/httpsmgr/https"
	"github.com/kbukum/httpsmgr/observability"
	"github.com/kbukum/httpsmgr/resilience"
)

// AppConfig is httpsctl's configuration file layout.
type AppConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	HTTPS   https.Config  `yaml:"https" mapstructure:"https"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`

	// Dispatch paces how fast targets are sent. A zero rate sends all at
	// once.
	Dispatch resilience.RateLimiterConfig `yaml:"dispatch" mapstructure:"dispatch"`

	// Targets are dispatched when no URL is given on the command line.
	Targets []string `yaml:"targets" mapstructure:"targets"`
}

// MetricsConfig enables OTLP metric export.
type MetricsConfig struct {
	Enabled                   bool `yaml:"enabled" mapstructure:"enabled"`
	observability.MeterConfig `yaml:",inline" mapstructure:",squash"`
}

// TracingConfig enables OTLP trace export.
type TracingConfig struct {
	Enabled                    bool `yaml:"enabled" mapstructure:"enabled"`
	observability.TracerConfig `yaml:",inline" mapstructure:",squash"`
}

// ApplyDefaults fills in zero values for every section.
func (c *AppConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	c.ServiceConfig.ApplyDefaults()
	c.HTTPS.ApplyDefaults()
	if c.Dispatch.Name == "" {
		c.Dispatch.Name = "dispatch"
	}
	if c.Metrics.Enabled {
		c.HTTPS.Metrics = true
		c.Metrics.MeterConfig = withMeterDefaults(c.Metrics.MeterConfig, c.ServiceConfig)
	}
	if c.Tracing.Enabled {
		c.Tracing.TracerConfig = withTracerDefaults(c.Tracing.TracerConfig, c.ServiceConfig)
	}
}

// Validate checks the service and https sections.
func (c *AppConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.HTTPS.Validate(); err != nil {
		return fmt.Errorf("https: %w", err)
	}
	if c.Dispatch.Rate < 0 || c.Dispatch.Burst < 0 {
		return fmt.Errorf("dispatch.rate and dispatch.burst must not be negative")
	}
	if c.Tracing.Enabled && (c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1) {
		return fmt.Errorf("tracing.sample_rate must be within [0, 1] (got: %v)", c.Tracing.SampleRate)
	}
	return nil
}

func withMeterDefaults(mc observability.MeterConfig, svc config.ServiceConfig) observability.MeterConfig {
	def := observability.DefaultMeterConfig(svc.Name)
	if mc.ServiceName == "" {
		mc.ServiceName = def.ServiceName
	}
	if mc.ServiceVersion == "" {
		mc.ServiceVersion = svc.Version
	}
	if mc.Environment == "" {
		mc.Environment = svc.Environment
	}
	if mc.Endpoint == "" {
		mc.Endpoint, mc.Insecure = def.Endpoint, def.Insecure
	}
	if mc.Interval == 0 {
		mc.Interval = def.Interval
	}
	return mc
}

func withTracerDefaults(tc observability.TracerConfig, svc config.ServiceConfig) observability.TracerConfig {
	def := observability.DefaultTracerConfig(svc.Name)
	if tc.ServiceName == "" {
		tc.ServiceName = def.ServiceName
	}
	if tc.ServiceVersion == "" {
		tc.ServiceVersion = svc.Version
	}
	if tc.Environment == "" {
		tc.Environment = svc.Environment
	}
	if tc.Endpoint == "" {
		tc.Endpoint, tc.Insecure = def.Endpoint, def.Insecure
	}
	if tc.SampleRate == 0 {
		tc.SampleRate = def.SampleRate
	}
	return tc
}
