package core

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	rec.Observe(ctx, "upload_file", true, 25*time.Millisecond)
	rec.Observe(ctx, "upload_file", false, 5*time.Millisecond)
	rec.Observe(ctx, "", true, time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	byName := map[string]bool{}
	for _, fam := range families {
		byName[fam.GetName()] = true
	}
	if !byName["pollcore_service_operation_duration_seconds"] {
		t.Errorf("duration histogram not registered: %v", byName)
	}
	if !byName["pollcore_service_operation_results_total"] {
		t.Errorf("result counter not registered: %v", byName)
	}

	// Double registration on the same registry must fail.
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Errorf("expected duplicate registration error")
	}
}
