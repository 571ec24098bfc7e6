package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	visitsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "user_counter",
		Subsystem: "tracking",
		Name:      "visits_recorded_total",
		Help:      "Number of visits recorded, labeled by whether it was the client's first of the day.",
	}, []string{"first_of_day"})

	lastVisitGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "user_counter",
		Subsystem: "tracking",
		Name:      "last_visit_timestamp_seconds",
		Help:      "Unix timestamp of the most recent visit persisted to Postgres.",
	})

	identitiesIssuedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "user_counter",
		Subsystem: "identity",
		Name:      "tokens_issued_total",
		Help:      "Number of fresh client tokens issued to requests without a valid cookie.",
	})

	storageErrorsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "user_counter",
		Subsystem: "persistence",
		Name:      "storage_errors_total",
		Help:      "Number of requests degraded because the storage layer was unavailable.",
	})

	purgedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "user_counter",
		Subsystem: "retention",
		Name:      "records_purged_total",
		Help:      "Number of activity records deleted by retention purges.",
	})
)

func init() {
	prometheus.MustRegister(visitsCounter, lastVisitGauge, identitiesIssuedCounter, storageErrorsCounter, purgedCounter)
}

// RecordVisit updates visit counters and the persistence watermark.
func RecordVisit(firstOfDay bool, ts time.Time) {
	label := "false"
	if firstOfDay {
		label = "true"
	}
	visitsCounter.WithLabelValues(label).Inc()
	if !ts.IsZero() {
		lastVisitGauge.Set(float64(ts.Unix()))
	}
}

// RecordIdentityIssued counts a freshly generated client token.
func RecordIdentityIssued() {
	identitiesIssuedCounter.Inc()
}

// RecordStorageError counts a request degraded by storage failure.
func RecordStorageError() {
	storageErrorsCounter.Inc()
}

// RecordPurge adds the number of records removed by a retention purge.
func RecordPurge(deleted int64) {
	if deleted > 0 {
		purgedCounter.Add(float64(deleted))
	}
}
