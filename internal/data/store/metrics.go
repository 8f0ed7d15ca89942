package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts store calls by collection, operation and outcome.
type Metrics struct {
	ops      *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the store collectors on reg. Registering twice on
// the same registry reuses the existing collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "store_operations_total",
		Help: "Document store operations by collection, operation and outcome",
	}, []string{"collection", "op", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "store_operation_duration_seconds",
		Help:    "Latency of document store operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	c, err := registerCollector(reg, ops)
	if err != nil {
		return nil, err
	}
	h, err := registerCollector(reg, duration)
	if err != nil {
		return nil, err
	}
	return &Metrics{ops: c.(*prometheus.CounterVec), duration: h.(*prometheus.HistogramVec)}, nil
}

// registerCollector returns the collector already registered under the same
// descriptor, if any.
func registerCollector(reg prometheus.Registerer, c prometheus.Collector) (prometheus.Collector, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector, nil
		}
		return nil, err
	}
	return c, nil
}

func (m *Metrics) observe(coll Collection, op string, start time.Time, err error) {
	m.ops.WithLabelValues(string(coll), op, outcome(err)).Inc()
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNoMatch):
		return "no_match"
	case errors.Is(err, ErrDuplicateKey):
		return "duplicate"
	default:
		return "error"
	}
}

// Instrument wraps g so every call is recorded in m.
func Instrument(g Gateway, m *Metrics) Gateway {
	if m == nil {
		return g
	}
	return &instrumented{Gateway: g, m: m}
}

type instrumented struct {
	Gateway
	m *Metrics
}

func (i *instrumented) FindByID(ctx context.Context, coll Collection, id uuid.UUID) ([]byte, error) {
	start := time.Now()
	doc, err := i.Gateway.FindByID(ctx, coll, id)
	i.m.observe(coll, "find_by_id", start, err)
	return doc, err
}

func (i *instrumented) Find(ctx context.Context, coll Collection, f Filter) ([][]byte, error) {
	start := time.Now()
	docs, err := i.Gateway.Find(ctx, coll, f)
	i.m.observe(coll, "find", start, err)
	return docs, err
}

func (i *instrumented) Aggregate(ctx context.Context, coll Collection, p Pipeline) ([][]byte, error) {
	start := time.Now()
	docs, err := i.Gateway.Aggregate(ctx, coll, p)
	i.m.observe(coll, "aggregate", start, err)
	return docs, err
}

func (i *instrumented) Count(ctx context.Context, coll Collection, f Filter) (int64, error) {
	start := time.Now()
	n, err := i.Gateway.Count(ctx, coll, f)
	i.m.observe(coll, "count", start, err)
	return n, err
}

func (i *instrumented) Insert(ctx context.Context, coll Collection, id uuid.UUID, doc []byte) error {
	start := time.Now()
	err := i.Gateway.Insert(ctx, coll, id, doc)
	i.m.observe(coll, "insert", start, err)
	return err
}

func (i *instrumented) Replace(ctx context.Context, coll Collection, id uuid.UUID, doc []byte) error {
	start := time.Now()
	err := i.Gateway.Replace(ctx, coll, id, doc)
	i.m.observe(coll, "replace", start, err)
	return err
}

func (i *instrumented) ReplaceIf(ctx context.Context, coll Collection, id uuid.UUID, expected, doc []byte) error {
	start := time.Now()
	err := i.Gateway.ReplaceIf(ctx, coll, id, expected, doc)
	i.m.observe(coll, "replace_if", start, err)
	return err
}

func (i *instrumented) Delete(ctx context.Context, coll Collection, id uuid.UUID) error {
	start := time.Now()
	err := i.Gateway.Delete(ctx, coll, id)
	i.m.observe(coll, "delete", start, err)
	return err
}

func (i *instrumented) ReadOnly(ctx context.Context, fn func(ctx context.Context, r Reader) error) error {
	start := time.Now()
	err := i.Gateway.ReadOnly(ctx, fn)
	i.m.observe("", "read_only", start, err)
	return err
}
