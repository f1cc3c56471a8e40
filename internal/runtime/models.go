package runtime

import (
	"context"
	"errors"
	"math"
	"reflect"
	"sort"
	"sync"
	"time"

	errspkg "github.com/drblury/mediator/internal/runtime/errors"
	"github.com/drblury/mediator/internal/runtime/handlers"
	"github.com/drblury/mediator/internal/runtime/jsoncodec"
)

const (
	latencySampleSize    = 256
	throughputWindowSize = time.Minute
)

// HandlerStats accumulates invocation statistics for one registered handler.
type HandlerStats struct {
	mu sync.Mutex `json:"-"`

	Invocations         uint64    `json:"invocations"`
	Failures            uint64    `json:"failures"`
	TotalProcessingTime int64     `json:"total_processing_time_ns"`
	LastInvokedAt       time.Time `json:"last_invoked_at"`

	Latency     LatencyMetrics     `json:"latency"`
	Throughput  ThroughputMetrics  `json:"throughput"`
	Errors      ErrorBreakdown     `json:"errors"`
	Concurrency ConcurrencyMetrics `json:"concurrency"`

	latencyWindow    *latencyWindow    `json:"-"`
	throughputWindow *throughputWindow `json:"-"`
}

// HandlerInfo describes a registered handler for introspection.
type HandlerInfo struct {
	Name        string        `json:"name"`
	Kind        handlers.Kind `json:"kind"`
	RequestType string        `json:"request_type"`
	ResultType  string        `json:"result_type,omitempty"`
	Stats       *HandlerStats `json:"stats"`
}

type LatencyMetrics struct {
	AverageNs  int64 `json:"average_ns"`
	P50Ns      int64 `json:"p50_ns"`
	P95Ns      int64 `json:"p95_ns"`
	P99Ns      int64 `json:"p99_ns"`
	LastNs     int64 `json:"last_ns"`
	SampleSize int   `json:"sample_size"`
}

type ThroughputMetrics struct {
	CurrentRPS          float64 `json:"current_rps"`
	WindowSeconds       float64 `json:"window_seconds"`
	InvocationsInWindow uint64  `json:"invocations_in_window"`
	TotalInvocations    uint64  `json:"total_invocations"`
}

// ConcurrencyMetrics tracks how many invocations of a handler overlap.
type ConcurrencyMetrics struct {
	InFlight    uint64 `json:"in_flight"`
	MaxInFlight uint64 `json:"max_in_flight"`
}

type ErrorBreakdown struct {
	NotFound   uint64 `json:"not_found"`
	Ambiguous  uint64 `json:"ambiguous"`
	ResultType uint64 `json:"result_type"`
	Canceled   uint64 `json:"canceled"`
	Handler    uint64 `json:"handler"`
	LastError  string `json:"last_error,omitempty"`
}

type ErrorCategory string

const (
	ErrorCategoryNone       ErrorCategory = "none"
	ErrorCategoryNotFound   ErrorCategory = "not_found"
	ErrorCategoryAmbiguous  ErrorCategory = "ambiguous"
	ErrorCategoryResultType ErrorCategory = "result_type"
	ErrorCategoryCanceled   ErrorCategory = "canceled"
	ErrorCategoryHandler    ErrorCategory = "handler"
)

// ErrorClassifier buckets errors for stats, metrics and hooks.
type ErrorClassifier func(error) ErrorCategory

func newHandlerStats() *HandlerStats {
	return &HandlerStats{
		latencyWindow:    newLatencyWindow(latencySampleSize),
		throughputWindow: newThroughputWindow(throughputWindowSize),
	}
}

func newHandlerInfo(d handlers.Descriptor, stats *HandlerStats) *HandlerInfo {
	info := &HandlerInfo{
		Name:        d.Name(),
		Kind:        d.Kind(),
		RequestType: handlers.TypeName(d.RequestType()),
		Stats:       stats,
	}
	if rt := d.ResultType(); rt != nil {
		info.ResultType = typeLabel(rt)
	}
	return info
}

func typeLabel(t reflect.Type) string {
	if t.Kind() == reflect.Interface && t.NumMethod() == 0 {
		return "any"
	}
	return handlers.TypeName(t)
}

func (h *HandlerStats) onInvokeStart() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.Concurrency.InFlight++
	if h.Concurrency.InFlight > h.Concurrency.MaxInFlight {
		h.Concurrency.MaxInFlight = h.Concurrency.InFlight
	}
}

func (h *HandlerStats) onInvokeFinish(duration time.Duration, err error, classifier ErrorClassifier) {
	if classifier == nil {
		classifier = defaultErrorClassifier
	}
	category := classifier(err)
	now := time.Now()

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.Concurrency.InFlight > 0 {
		h.Concurrency.InFlight--
	}

	h.Invocations++
	if err != nil {
		h.Failures++
	}
	h.TotalProcessingTime += int64(duration)
	h.LastInvokedAt = now.UTC()

	if h.latencyWindow != nil {
		h.latencyWindow.Add(duration)
		snapshot := h.latencyWindow.Snapshot()
		snapshot.AverageNs = h.TotalProcessingTime / int64(h.Invocations)
		h.Latency = snapshot
	}

	if h.throughputWindow != nil {
		snapshot := h.throughputWindow.AddAndSnapshot(now)
		h.Throughput.CurrentRPS = snapshot.CurrentRPS
		h.Throughput.WindowSeconds = snapshot.WindowSeconds
		h.Throughput.InvocationsInWindow = uint64(snapshot.Count)
	}
	h.Throughput.TotalInvocations = h.Invocations

	h.Errors.Record(category, err)
}

// Counts returns the invocation and failure totals.
func (h *HandlerStats) Counts() (invocations, failures uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Invocations, h.Failures
}

func (h *HandlerStats) MarshalJSON() ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	type Alias HandlerStats
	return jsoncodec.Marshal((*Alias)(h))
}

func (e *ErrorBreakdown) Record(category ErrorCategory, err error) {
	switch category {
	case ErrorCategoryNone:
		if err == nil {
			return
		}
		e.Handler++
	case ErrorCategoryNotFound:
		e.NotFound++
	case ErrorCategoryAmbiguous:
		e.Ambiguous++
	case ErrorCategoryResultType:
		e.ResultType++
	case ErrorCategoryCanceled:
		e.Canceled++
	default:
		e.Handler++
	}
	if err != nil {
		e.LastError = err.Error()
	}
}

type latencyWindow struct {
	samples []int64
	next    int
	filled  int
	last    int64
}

func newLatencyWindow(size int) *latencyWindow {
	if size <= 0 {
		size = latencySampleSize
	}
	return &latencyWindow{samples: make([]int64, size)}
}

func (lw *latencyWindow) Add(d time.Duration) {
	if lw == nil || len(lw.samples) == 0 {
		return
	}
	lw.samples[lw.next] = int64(d)
	lw.last = int64(d)
	lw.next = (lw.next + 1) % len(lw.samples)
	if lw.filled < len(lw.samples) {
		lw.filled++
	}
}

func (lw *latencyWindow) Snapshot() LatencyMetrics {
	var metrics LatencyMetrics
	if lw == nil {
		return metrics
	}
	metrics.LastNs = lw.last
	if lw.filled == 0 {
		return metrics
	}
	samples := make([]int64, lw.filled)
	for i := range lw.filled {
		idx := lw.next - lw.filled + i
		if idx < 0 {
			idx += len(lw.samples)
		}
		samples[i] = lw.samples[idx]
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	metrics.SampleSize = lw.filled
	metrics.P50Ns = percentile(samples, 0.50)
	metrics.P95Ns = percentile(samples, 0.95)
	metrics.P99Ns = percentile(samples, 0.99)
	var sum int64
	for _, v := range samples {
		sum += v
	}
	metrics.AverageNs = sum / int64(len(samples))
	return metrics
}

// percentile interpolates linearly between the closest ranks of sorted samples.
func percentile(samples []int64, quantile float64) int64 {
	if len(samples) == 0 {
		return 0
	}
	if quantile <= 0 {
		return samples[0]
	}
	if quantile >= 1 {
		return samples[len(samples)-1]
	}
	pos := quantile * float64(len(samples)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return samples[lower]
	}
	frac := pos - float64(lower)
	return samples[lower] + int64(float64(samples[upper]-samples[lower])*frac)
}

type throughputWindow struct {
	horizon time.Duration
	samples []time.Time
}

type throughputSnapshot struct {
	Count         int
	WindowSeconds float64
	CurrentRPS    float64
}

func newThroughputWindow(horizon time.Duration) *throughputWindow {
	return &throughputWindow{
		horizon: horizon,
		samples: make([]time.Time, 0, 64),
	}
}

func (tw *throughputWindow) AddAndSnapshot(now time.Time) throughputSnapshot {
	if tw == nil {
		return throughputSnapshot{}
	}
	tw.samples = append(tw.samples, now)
	tw.cleanup(now)
	return tw.snapshot(now)
}

func (tw *throughputWindow) cleanup(now time.Time) {
	if len(tw.samples) == 0 {
		return
	}
	cutoff := now.Add(-tw.horizon)
	idx := 0
	for idx < len(tw.samples) && tw.samples[idx].Before(cutoff) {
		idx++
	}
	if idx > 0 {
		copy(tw.samples, tw.samples[idx:])
		tw.samples = tw.samples[:len(tw.samples)-idx]
	}
}

func (tw *throughputWindow) snapshot(now time.Time) throughputSnapshot {
	if len(tw.samples) == 0 {
		return throughputSnapshot{}
	}
	span := now.Sub(tw.samples[0])
	if span <= 0 {
		span = time.Nanosecond
	}
	count := len(tw.samples)
	return throughputSnapshot{
		Count:         count,
		WindowSeconds: span.Seconds(),
		CurrentRPS:    float64(count) / span.Seconds(),
	}
}

func defaultErrorClassifier(err error) ErrorCategory {
	switch {
	case err == nil:
		return ErrorCategoryNone
	case errors.Is(err, errspkg.ErrHandlerNotFound):
		return ErrorCategoryNotFound
	case errors.Is(err, errspkg.ErrAmbiguousHandler):
		return ErrorCategoryAmbiguous
	case errors.Is(err, errspkg.ErrResultType):
		return ErrorCategoryResultType
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorCategoryCanceled
	default:
		return ErrorCategoryHandler
	}
}
