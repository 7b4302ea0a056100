package db

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

type poolInfo struct {
	TotalConns int32 `json:"total_conns"`
	IdleConns  int32 `json:"idle_conns"`
	InUse      int32 `json:"in_use"`
	MaxConns   int32 `json:"max_conns"`
}

// HealthHandler answers the database health probe: a ping with a short
// deadline, plus the pool numbers an operator checks first when bookings
// start timing out.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), pingTimeout)
		defer cancel()

		stat := pool.Stat()
		info := poolInfo{
			TotalConns: stat.TotalConns(),
			IdleConns:  stat.IdleConns(),
			InUse:      stat.AcquiredConns(),
			MaxConns:   stat.MaxConns(),
		}

		if err := pool.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
				"pool":   info,
			})
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status": "ok",
			"pool":   info,
		})
	}
}
