package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// LikeEvents counts like toggle outcomes by action and result.
	LikeEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minifeed_like_events_total",
		Help: "Total number of like/unlike/reset operations by outcome",
	}, []string{"action", "result"})

	// NotificationsPublished counts published realtime events by type and result.
	NotificationsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minifeed_notifications_published_total",
		Help: "Total number of realtime notifications published",
	}, []string{"event_type", "result"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "minifeed_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})
)

// RecordLikeEvent increments LikeEvents for action with "ok" or "error".
func RecordLikeEvent(action string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	LikeEvents.WithLabelValues(action, result).Inc()
}

const startTimeKey = "minifeed:query_start"

// RegisterGormMetrics installs gorm callbacks that observe DatabaseQueryLatency for
// every create/query/update/delete/raw statement.
func RegisterGormMetrics(db *gorm.DB) error {
	before := func(tx *gorm.DB) {
		tx.InstanceSet(startTimeKey, time.Now())
	}
	after := func(operation string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			v, ok := tx.InstanceGet(startTimeKey)
			if !ok {
				return
			}
			start, ok := v.(time.Time)
			if !ok {
				return
			}
			table := tx.Statement.Table
			if table == "" {
				table = "unknown"
			}
			DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
		}
	}

	cb := db.Callback()
	steps := []struct {
		op       string
		register func(name string, fn func(*gorm.DB)) error
		after    func(name string, fn func(*gorm.DB)) error
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
	for _, s := range steps {
		if err := s.register("metrics:before_"+s.op, before); err != nil {
			return err
		}
		if err := s.after("metrics:after_"+s.op, after(s.op)); err != nil {
			return err
		}
	}
	return nil
}
