package perf

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	jobmetrics "github.com/bizhub-io/bizhub/internal/jobs"
	"github.com/bizhub-io/bizhub/internal/roles"
	"github.com/bizhub-io/bizhub/internal/testing/memstore"
	"github.com/bizhub-io/bizhub/jobs"
)

func TestRolesSeedJobThroughput(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	roleSvc := roles.NewService(memstore.New().Roles(), nil, nil)
	job := jobs.NewRolesSeedJob(roles.NewSeeder(roleSvc, nil), nil, metrics)

	task, err := jobs.NewRolesSeedTask("perf")
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	for i := 0; i < 50; i++ {
		if err := job.Handle(context.Background(), task); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	if got := metricValue(t, families, "bizhub_jobs_total", map[string]string{"job": jobs.TaskRolesSeed, "status": "success"}); got != 50 {
		t.Fatalf("expected 50 successful runs, got %v", got)
	}
	if got := metricValue(t, families, "bizhub_roles_seeded_total", map[string]string{"outcome": "created"}); got != 3 {
		t.Fatalf("expected 3 roles created once, got %v", got)
	}
	if got := metricValue(t, families, "bizhub_roles_seeded_total", map[string]string{"outcome": "skipped"}); got != 147 {
		t.Fatalf("expected later runs to skip, got %v", got)
	}
	if mean := histogramMean(t, families, "bizhub_job_duration_seconds", map[string]string{"job": jobs.TaskRolesSeed}); mean > 0.05 {
		t.Fatalf("seed run mean duration above budget: %f", mean)
	}
}

func metricValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) && fam.GetType() == dto.MetricType_COUNTER {
				return metric.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func histogramMean(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				hist := metric.GetHistogram()
				if hist == nil || hist.GetSampleCount() == 0 {
					t.Fatalf("histogram %s missing samples", name)
				}
				return hist.GetSampleSum() / float64(hist.GetSampleCount())
			}
		}
	}
	t.Fatalf("histogram %s with labels %v not found", name, labels)
	return 0
}

func hasLabels(metric *dto.Metric, labels map[string]string) bool {
	matched := 0
	for _, lp := range metric.GetLabel() {
		if val, ok := labels[lp.GetName()]; ok {
			if lp.GetValue() != val {
				return false
			}
			matched++
		}
	}
	return matched == len(labels)
}
