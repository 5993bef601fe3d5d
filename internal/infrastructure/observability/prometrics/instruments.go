package prometrics

import (
	"github.com/mgallardo/gamestore/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultInstruments registers the instruments the application layer
// looks up by MetricKey and returns them for the observability provider.
func DefaultInstruments(reg *Registry) (map[observability.MetricKey]observability.Counter, map[observability.MetricKey]observability.Histogram) {
	counters := map[observability.MetricKey]observability.Counter{
		observability.MUsecaseRequests: reg.Counter(
			string(observability.MUsecaseRequests),
			"Total number of use case invocations.",
			"use_case", "outcome",
		),
		observability.MHTTPRequests: reg.Counter(
			string(observability.MHTTPRequests),
			"Total number of HTTP requests.",
			"method", "route", "status",
		),
		observability.MExternalRequests: reg.Counter(
			string(observability.MExternalRequests),
			"Total number of calls to external collaborators.",
			"peer", "endpoint", "outcome",
		),
		observability.MSettlements: reg.Counter(
			string(observability.MSettlements),
			"Settlement attempts by terminal outcome.",
			"outcome",
		),
		observability.MNotifications: reg.Counter(
			string(observability.MNotifications),
			"User notifications emitted by workers.",
			"kind",
		),
	}
	histograms := map[observability.MetricKey]observability.Histogram{
		observability.MUsecaseDuration: reg.Histogram(
			string(observability.MUsecaseDuration),
			"Duration of use case execution in seconds.",
			prometheus.DefBuckets,
			"use_case",
		),
		observability.MHTTPRequestDuration: reg.Histogram(
			string(observability.MHTTPRequestDuration),
			"Duration of HTTP request handling in seconds.",
			prometheus.DefBuckets,
			"method", "route", "status",
		),
		observability.MExternalRequestDuration: reg.Histogram(
			string(observability.MExternalRequestDuration),
			"Duration of external collaborator calls in seconds.",
			prometheus.DefBuckets,
			"peer", "endpoint",
		),
	}
	return counters, histograms
}
