package store

import (
	"context"
	"time"
)

// Clock supplies the trusted current time. Business decisions take the
// resolved instant as a parameter and never read the process clock
// themselves, so a decision made against a stale or local clock cannot
// happen by accident.
type Clock interface {
	Now(ctx context.Context) (time.Time, error)
}
