package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"drivebook/backend/internal/store"
)

// ServerClock reads the database server's clock. The database is the one
// time source every replica shares, so it is the authority for booking
// decisions; device and process clocks are never consulted.
type ServerClock struct {
	db *bun.DB
}

func NewServerClock(db *bun.DB) *ServerClock {
	return &ServerClock{db: db}
}

func (c *ServerClock) Now(ctx context.Context) (time.Time, error) {
	var now time.Time
	if err := c.db.NewRaw("SELECT now()").Scan(ctx, &now); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", store.ErrClockUnavailable, err)
	}
	return now.UTC(), nil
}
