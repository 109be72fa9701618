// Package metrics holds Prometheus instruments shared by the editor, store,
// and HTTP server.  All collectors are registered with the global registry,
// so mounting promhttp.Handler() in main.go is enough to expose them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dogcfg_active_edit_sessions",
			Help: "Number of edit sessions currently open.",
		})

	LoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dogcfg_loads_total",
			Help: "Configuration loads by outcome (ok, transport_error, parse_error).",
		}, []string{"outcome"})

	ValidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dogcfg_validations_total",
			Help: "Validation passes by outcome (valid, invalid).",
		}, []string{"outcome"})

	SavesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dogcfg_saves_total",
			Help: "Save attempts by outcome (ok, error, refused).",
		}, []string{"outcome"})

	ConfigWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dogcfg_config_writes_total",
			Help: "PATCH requests by outcome (ok, rejected, error).",
		}, []string{"outcome"})

	ParseCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dogcfg_parse_cache_lookups_total",
			Help: "Parsed-document cache lookups by result (hit, miss).",
		}, []string{"result"})
)

func init() {
	prometheus.MustRegister(
		ActiveSessions,
		LoadsTotal,
		ValidationsTotal,
		SavesTotal,
		ConfigWritesTotal,
		ParseCacheTotal,
	)
}

// Outcome returns "valid" or "invalid" for ValidationsTotal.
func Outcome(valid bool) string {
	if valid {
		return "valid"
	}
	return "invalid"
}
