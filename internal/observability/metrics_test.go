package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gatherMetric(t *testing.T, name string) *dto.MetricFamily {
	t.Helper()

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	for _, family := range families {
		if family.GetName() == name {
			return family
		}
	}
	return nil
}

func TestRecordVisitLabelsFirstOfDay(t *testing.T) {
	RecordVisit(true, time.Unix(1700000000, 0))
	RecordVisit(false, time.Unix(1700000100, 0))

	family := gatherMetric(t, "user_counter_tracking_visits_recorded_total")
	if family == nil {
		t.Fatal("visits counter not registered")
	}

	seen := map[string]bool{}
	for _, metric := range family.GetMetric() {
		for _, label := range metric.GetLabel() {
			if label.GetName() == "first_of_day" {
				seen[label.GetValue()] = true
			}
		}
	}
	if !seen["true"] || !seen["false"] {
		t.Fatalf("expected both label values, got %v", seen)
	}

	gauge := gatherMetric(t, "user_counter_tracking_last_visit_timestamp_seconds")
	if gauge == nil {
		t.Fatal("last visit gauge not registered")
	}
	if got := gauge.GetMetric()[0].GetGauge().GetValue(); got != 1700000100 {
		t.Fatalf("expected watermark 1700000100 got %f", got)
	}
}

func TestRecordPurgeIgnoresNonPositive(t *testing.T) {
	before := purgeTotal(t)
	RecordPurge(0)
	RecordPurge(-5)
	if purgeTotal(t) != before {
		t.Fatal("non-positive purge counts must not move the counter")
	}

	RecordPurge(3)
	if purgeTotal(t) != before+3 {
		t.Fatal("purge counter must advance by the deleted count")
	}
}

func purgeTotal(t *testing.T) float64 {
	t.Helper()
	family := gatherMetric(t, "user_counter_retention_records_purged_total")
	if family == nil {
		t.Fatal("purge counter not registered")
	}
	return family.GetMetric()[0].GetCounter().GetValue()
}
