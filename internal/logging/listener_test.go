package logging

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"pyproj/internal/testsupport"
)

type panicRenderer struct{}

func (panicRenderer) Render(*Record) ([]byte, error) {
	panic("renderer exploded")
}

// blockingWriter parks the first write until release is closed.
type blockingWriter struct {
	entered chan struct{}
	release chan struct{}
	buf     testsupport.SyncBuffer
}

func (w *blockingWriter) Write(p []byte) (int, error) {
	select {
	case w.entered <- struct{}{}:
	default:
	}
	<-w.release
	return w.buf.Write(p)
}

func plainSink(name string, threshold Level, w io.Writer) *Sink {
	return NewSink(name, threshold, nil, NewColorRenderer(false, false), NopCloser(w))
}

func counterValue(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect metrics: %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("metric %s is %T", name, m.Data)
			}
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestListenerIsolatesFailingSinks(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()
	metrics, err := newPipelineMetrics(provider)
	if err != nil {
		t.Fatalf("newPipelineMetrics: %v", err)
	}

	var good, diag testsupport.SyncBuffer
	q := NewQueue(8)
	l := NewListener(q, []*Sink{
		plainSink("broken", LevelDebug, testsupport.FailingWriter{Err: errors.New("disk full")}),
		NewSink("panicky", LevelDebug, nil, panicRenderer{}, NopCloser(&good)),
		plainSink("good", LevelDebug, &good),
	})
	l.diag = newLastResort(&diag)
	l.metrics = metrics

	q.Enqueue(NewRecord("app", LevelInfo, "first", nil, nil, nil))
	q.Enqueue(NewRecord("app", LevelInfo, "second", nil, nil, nil))
	if err := l.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := l.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	lines := good.Lines()
	if len(lines) != 2 || !strings.HasSuffix(lines[0], "first") || !strings.HasSuffix(lines[1], "second") {
		t.Fatalf("healthy sink missed records: %q", lines)
	}
	report := diag.String()
	if !strings.Contains(report, "sink broken: write: disk full") {
		t.Fatalf("expected write failure report, got %q", report)
	}
	if !strings.Contains(report, "sink panicky: panic: renderer exploded") {
		t.Fatalf("expected panic report, got %q", report)
	}
	if got := counterValue(t, reader, metricSinkErrors); got != 4 {
		t.Fatalf("expected 4 sink errors, got %d", got)
	}
}

func TestListenerAppliesThresholdPerSink(t *testing.T) {
	var verbose, quiet testsupport.SyncBuffer
	q := NewQueue(8)
	l := NewListener(q, []*Sink{
		plainSink("verbose", LevelDebug, &verbose),
		plainSink("quiet", LevelWarning, &quiet),
	})
	if err := l.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	q.Enqueue(NewRecord("app", LevelDebug, "debug", nil, nil, nil))
	q.Enqueue(NewRecord("app", LevelError, "error", nil, nil, nil))
	if err := l.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if got := len(verbose.Lines()); got != 2 {
		t.Fatalf("verbose sink expected 2 lines, got %d", got)
	}
	quietLines := quiet.Lines()
	if len(quietLines) != 1 || !strings.HasSuffix(quietLines[0], "error") {
		t.Fatalf("quiet sink expected only the error, got %q", quietLines)
	}
}

func TestListenerStopTimesOutAndDiscards(t *testing.T) {
	w := &blockingWriter{entered: make(chan struct{}, 1), release: make(chan struct{})}
	var diag testsupport.SyncBuffer
	q := NewQueue(8)
	l := NewListener(q, []*Sink{plainSink("slow", LevelDebug, w)})
	l.diag = newLastResort(&diag)

	for _, msg := range []string{"one", "two", "three"} {
		q.Enqueue(NewRecord("app", LevelInfo, msg, nil, nil, nil))
	}
	if err := l.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-w.entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Stop(ctx); !errors.Is(err, ErrShutdownTimeout) {
		t.Fatalf("expected ErrShutdownTimeout, got %v", err)
	}

	close(w.release)
	select {
	case <-l.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not exit")
	}
	if got := l.Discarded(); got != 2 {
		t.Fatalf("expected 2 discarded records, got %d", got)
	}
	if lines := w.buf.Lines(); len(lines) != 1 {
		t.Fatalf("expected only the in-flight record to be written, got %q", lines)
	}
	if !strings.Contains(diag.String(), "discarding 2 queued records") {
		t.Fatalf("expected discard report, got %q", diag.String())
	}
}

func TestListenerStartTwice(t *testing.T) {
	l := NewListener(NewQueue(1), nil)
	if err := l.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := l.Start(); !errors.Is(err, ErrListenerStarted) {
		t.Fatalf("expected ErrListenerStarted, got %v", err)
	}
	if err := l.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestListenerStopWithoutStartClosesSinks(t *testing.T) {
	path := t.TempDir() + "/app.log"
	file, err := OpenRotatingFile(path, 0, 0, nil)
	if err != nil {
		t.Fatalf("OpenRotatingFile: %v", err)
	}
	l := NewListener(NewQueue(1), []*Sink{NewSink("file", LevelDebug, nil, &JSONRenderer{}, file)})
	if err := l.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if _, err := file.Write([]byte("x")); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected sink destination to be closed, got %v", err)
	}
	if err := l.Start(); !errors.Is(err, ErrListenerStarted) {
		t.Fatalf("expected stopped listener to refuse Start, got %v", err)
	}
}
