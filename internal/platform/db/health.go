package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// PoolStats represents database connection pool statistics.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
}

// StatPool is the part of *pgxpool.Pool the health endpoint needs.
type StatPool interface {
	Ping(ctx context.Context) error
	Stat() *pgxpool.Stat
}

func statsOf(s *pgxpool.Stat) PoolStats {
	if s == nil {
		return PoolStats{}
	}
	return PoolStats{
		TotalConns:      s.TotalConns(),
		IdleConns:       s.IdleConns(),
		AcquiredConns:   s.AcquiredConns(),
		MaxConns:        s.MaxConns(),
		AcquireCount:    s.AcquireCount(),
		AcquireDuration: s.AcquireDuration().String(),
	}
}

// HealthHandler pings the database and reports pool statistics. It answers
// 503 when the ping fails.
func HealthHandler(pool StatPool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		stats := statsOf(pool.Stat())
		if err := pool.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
				"pool":   stats,
			})
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status": "healthy",
			"pool":   stats,
		})
	}
}

// RegisterPoolMetrics exports pool connection gauges, read at scrape time.
func RegisterPoolMetrics(reg prometheus.Registerer, namespace string, pool StatPool) error {
	gauge := func(name, help string, read func(PoolStats) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      name,
			Help:      help,
		}, func() float64 { return read(statsOf(pool.Stat())) })
	}
	for _, c := range []prometheus.Collector{
		gauge("open_connections", "Current number of open database connections.",
			func(s PoolStats) float64 { return float64(s.TotalConns) }),
		gauge("acquired_connections", "Connections currently checked out of the pool.",
			func(s PoolStats) float64 { return float64(s.AcquiredConns) }),
		gauge("max_connections", "Configured pool size.",
			func(s PoolStats) float64 { return float64(s.MaxConns) }),
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
