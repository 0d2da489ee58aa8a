package log

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Recorder publishes VM activity as otel/metric instruments: gate
// applications (by mnemonic), measurement outcomes (by value), and
// interpreter runs (by terminal state). When no MeterProvider is wired
// by the caller, it falls back to noop.MeterProvider, so a library
// consumer who never sets up telemetry pays only the cost of a handful
// of no-op instrument calls, per spec.md §4.M's graceful-degradation
// requirement.
type Recorder struct {
	gateCounter        metric.Int64Counter
	measurementCounter metric.Int64Counter
	runCounter          metric.Int64Counter
}

// NewRecorder builds a Recorder against provider. Pass nil to get a
// fully no-op recorder.
func NewRecorder(provider metric.MeterProvider) (*Recorder, error) {
	if provider == nil {
		provider = noop.NewMeterProvider()
	}
	meter := provider.Meter("github.com/Yogirajpp/qvm")

	gateCounter, err := meter.Int64Counter("qvm.gates.applied",
		metric.WithDescription("Number of gate applications, by mnemonic"))
	if err != nil {
		return nil, err
	}
	measurementCounter, err := meter.Int64Counter("qvm.measurements.recorded",
		metric.WithDescription("Number of measurement outcomes, by value"))
	if err != nil {
		return nil, err
	}
	runCounter, err := meter.Int64Counter("qvm.interpreter.runs",
		metric.WithDescription("Number of ExecuteQBC runs, by terminal state"))
	if err != nil {
		return nil, err
	}

	return &Recorder{
		gateCounter:         gateCounter,
		measurementCounter:  measurementCounter,
		runCounter:           runCounter,
	}, nil
}

func (r *Recorder) RecordGate(ctx context.Context, mnemonic string) {
	r.gateCounter.Add(ctx, 1, metric.WithAttributes(gateAttr(mnemonic)...))
}

func (r *Recorder) RecordMeasurement(ctx context.Context, value int) {
	r.measurementCounter.Add(ctx, 1, metric.WithAttributes(valueAttr(value)...))
}

func (r *Recorder) RecordRun(ctx context.Context, success bool) {
	r.runCounter.Add(ctx, 1, metric.WithAttributes(successAttr(success)...))
}

func gateAttr(mnemonic string) []attribute.KeyValue {
	return []attribute.KeyValue{attribute.String("gate", mnemonic)}
}

func valueAttr(value int) []attribute.KeyValue {
	return []attribute.KeyValue{attribute.Int("value", value)}
}

func successAttr(success bool) []attribute.KeyValue {
	return []attribute.KeyValue{attribute.Bool("success", success)}
}
