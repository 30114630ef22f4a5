package l3agi

import (
	"time"

	"github.com/google/uuid"
)

// NewID generates a time-sortable UUIDv7 for messages and run logs.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NowUnix returns current time as Unix seconds.
func NowUnix() int64 {
	return time.Now().Unix()
}
