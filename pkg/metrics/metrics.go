// Package metrics keeps lightweight operational telemetry for the storefront:
// short-lived gauge/counter series in an embedded tstorage database and
// lifetime counters in a bbolt bucket so totals survive restarts.
package metrics

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/btree"
	"github.com/nakabonne/tstorage"
	"github.com/spf13/cast"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

// Counter names published by the commerce layer.
const (
	OrdersCreatedTotal     = "orders_created_total"
	PaymentsCreatedTotal   = "payments_created_total"
	PaymentsCompletedTotal = "payments_completed_total"
	PaymentsCancelledTotal = "payments_cancelled_total"
	PaymentsFailedTotal    = "payments_failed_total"
	CheckoutRejectedTotal  = "checkout_rejected_total"
)

var countersBucket = []byte("counters")

// DataPoint is a single sample returned by RangeQuery.
type DataPoint struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
}

type metricStore struct {
	mu    sync.Mutex
	tsdb  tstorage.Storage
	ltdb  *bbolt.DB
	names *btree.BTreeG[string]
}

var store *metricStore

// InitMetrics opens the metric storage under workdir. Errors are returned to
// the caller; all package functions are no-ops until a successful init, so a
// failed metrics subsystem never takes the application down.
func InitMetrics(workdir string) error {
	dataDir := filepath.Join(workdir, "metrics")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	tsdb, err := tstorage.NewStorage(
		tstorage.WithDataPath(dataDir),
		tstorage.WithTimestampPrecision(tstorage.Seconds),
		tstorage.WithRetention(time.Hour*24*30),
	)
	if err != nil {
		return err
	}

	ltdb, err := bbolt.Open(filepath.Join(workdir, "counters.db"), 0o600, &bbolt.Options{Timeout: time.Second * 3})
	if err != nil {
		_ = tsdb.Close()
		return err
	}
	if err := ltdb.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(countersBucket)
		return err
	}); err != nil {
		_ = tsdb.Close()
		_ = ltdb.Close()
		return err
	}

	store = &metricStore{
		tsdb:  tsdb,
		ltdb:  ltdb,
		names: btree.NewG[string](2, func(a, b string) bool { return a < b }),
	}
	return nil
}

func registerName(name string) {
	store.mu.Lock()
	store.names.ReplaceOrInsert(name)
	store.mu.Unlock()
}

// SetGauge records an instantaneous value for name at the current time.
func SetGauge(name string, value int64) {
	if store == nil {
		return
	}
	registerName(name)
	err := store.tsdb.InsertRows([]tstorage.Row{
		{Metric: name, DataPoint: tstorage.DataPoint{Timestamp: time.Now().Unix(), Value: float64(value)}},
	})
	if err != nil {
		zap.L().Warn("metrics gauge insert failed", zap.String("name", name), zap.Error(err))
	}
}

// CounterIncr adds delta to the lifetime counter and records the running
// total as a series sample.
func CounterIncr(name string, delta int64) {
	if store == nil {
		return
	}
	registerName(name)
	var total int64
	err := store.ltdb.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(countersBucket)
		total = cast.ToInt64(string(b.Get([]byte(name)))) + delta
		return b.Put([]byte(name), []byte(strconv.FormatInt(total, 10)))
	})
	if err != nil {
		zap.L().Warn("metrics counter update failed", zap.String("name", name), zap.Error(err))
		return
	}
	_ = store.tsdb.InsertRows([]tstorage.Row{
		{Metric: name, DataPoint: tstorage.DataPoint{Timestamp: time.Now().Unix(), Value: float64(total)}},
	})
}

// GetCounter returns the lifetime counter value, zero when unknown.
func GetCounter(name string) int64 {
	if store == nil {
		return 0
	}
	var total int64
	_ = store.ltdb.View(func(tx *bbolt.Tx) error {
		total = cast.ToInt64(string(tx.Bucket(countersBucket).Get([]byte(name))))
		return nil
	})
	return total
}

// RangeQuery returns samples for name between start and end (unix seconds).
func RangeQuery(name string, start, end int64) []DataPoint {
	if store == nil {
		return nil
	}
	points, err := store.tsdb.Select(name, nil, start, end)
	if err != nil {
		return nil
	}
	out := make([]DataPoint, 0, len(points))
	for _, p := range points {
		out = append(out, DataPoint{Timestamp: p.Timestamp, Value: p.Value})
	}
	return out
}

// ListNames returns every metric name seen since startup, sorted.
func ListNames() []string {
	if store == nil {
		return nil
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	names := make([]string, 0, store.names.Len())
	store.names.Ascend(func(item string) bool {
		names = append(names, item)
		return true
	})
	return names
}

func Close() error {
	if store == nil {
		return nil
	}
	err := store.tsdb.Close()
	if cerr := store.ltdb.Close(); err == nil {
		err = cerr
	}
	store = nil
	return err
}
