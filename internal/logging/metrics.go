package logging

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "pyproj/logging"

	metricRecordsEnqueued = "pyproj.logging.records.enqueued"
	metricRecordsDropped  = "pyproj.logging.records.dropped"
	metricSinkErrors      = "pyproj.logging.sink.errors"
	metricFileRotations   = "pyproj.logging.file.rotations"
)

// pipelineMetrics holds the pipeline counters. A nil receiver records
// nothing.
type pipelineMetrics struct {
	enqueued   metric.Int64Counter
	dropped    metric.Int64Counter
	sinkErrors metric.Int64Counter
	rotations  metric.Int64Counter
}

func newPipelineMetrics(provider metric.MeterProvider) (*pipelineMetrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(meterName)

	m := &pipelineMetrics{}
	var err error
	if m.enqueued, err = meter.Int64Counter(metricRecordsEnqueued,
		metric.WithDescription("Records accepted onto the dispatch queue"), metric.WithUnit("{record}")); err != nil {
		return nil, fmt.Errorf("create %s counter: %w", metricRecordsEnqueued, err)
	}
	if m.dropped, err = meter.Int64Counter(metricRecordsDropped,
		metric.WithDescription("Records dropped because the dispatch queue was full or closed"), metric.WithUnit("{record}")); err != nil {
		return nil, fmt.Errorf("create %s counter: %w", metricRecordsDropped, err)
	}
	if m.sinkErrors, err = meter.Int64Counter(metricSinkErrors,
		metric.WithDescription("Sink render or write failures"), metric.WithUnit("{error}")); err != nil {
		return nil, fmt.Errorf("create %s counter: %w", metricSinkErrors, err)
	}
	if m.rotations, err = meter.Int64Counter(metricFileRotations,
		metric.WithDescription("Log file rotations"), metric.WithUnit("{rotation}")); err != nil {
		return nil, fmt.Errorf("create %s counter: %w", metricFileRotations, err)
	}
	return m, nil
}

func (m *pipelineMetrics) recordEnqueued() {
	if m == nil {
		return
	}
	m.enqueued.Add(context.Background(), 1)
}

func (m *pipelineMetrics) recordDropped() {
	if m == nil {
		return
	}
	m.dropped.Add(context.Background(), 1)
}

func (m *pipelineMetrics) recordSinkError(sink string) {
	if m == nil {
		return
	}
	m.sinkErrors.Add(context.Background(), 1, metric.WithAttributes(attribute.String("sink", sink)))
}

func (m *pipelineMetrics) recordRotation(sink string) {
	if m == nil {
		return
	}
	m.rotations.Add(context.Background(), 1, metric.WithAttributes(attribute.String("sink", sink)))
}
