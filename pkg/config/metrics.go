package config

import (
	"github.com/marmos91/zipline/pkg/archive"
	"github.com/marmos91/zipline/pkg/metrics"
	"github.com/marmos91/zipline/pkg/metrics/prometheus"
)

// MetricsResult holds what InitializeMetrics set up.
type MetricsResult struct {
	// Server exposes /metrics; nil when metrics are disabled.
	Server *metrics.Server

	// Archive instruments the archive pipeline; nil when metrics are
	// disabled, which the pipeline treats as "no metrics".
	Archive archive.Metrics
}

// InitializeMetrics creates the registry, the archive collectors and the
// metrics server when cfg.Metrics.Enabled is set.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{}
	}

	metrics.InitRegistry()
	return &MetricsResult{
		Server:  metrics.NewServer(cfg.Metrics.Port),
		Archive: prometheus.New(),
	}
}
