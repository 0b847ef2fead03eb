// Package numerator provides domain contracts for document auto-numbering.
// Implementations live in infrastructure layer.
package numerator

import (
	"context"
	"fmt"
	"time"
)

// Result is an assigned document number together with its raw sequence value.
type Result struct {
	Number   string
	Sequence int64

	// Local marks a number derived without the durable counter.
	Local bool
}

// Fallback derives a stand-in number when the durable counter is unreachable.
// The LOCAL marker makes such documents easy to find for manual renumbering
// (SetNext realigns the counter once the store is back); the nanosecond stamp
// keeps concurrent fallbacks from colliding.
func Fallback(cfg Config) Result {
	return Result{
		Number: fmt.Sprintf("%s-LOCAL-%d", cfg.DocType, time.Now().UnixNano()),
		Local:  true,
	}
}

// Generator generates sequential document numbers.
// This is the domain contract - implementations live in infrastructure layer.
//
// The sequence increment must be a single atomic increment-and-read against
// the durable counter; two concurrent callers for the same counter key must
// never observe the same sequence value.
type Generator interface {
	// Next assigns the next document number for the config and reference date.
	Next(ctx context.Context, cfg Config, period time.Time) (Result, error)

	// SetNext sets the next counter value (for migration purposes).
	SetNext(ctx context.Context, cfg Config, period time.Time, value int64) error
}
