package retry

import (
	"time"

	"github.com/wb-go/wbf/retry"
)

// Strategy builds the query strategy for the image index. With a single
// attempt every statement runs exactly once.
func Strategy(attempts int) retry.Strategy {
	if attempts <= 0 {
		attempts = 1
	}
	return retry.Strategy{
		Attempts: attempts,
		Delay:    200 * time.Millisecond,
		Backoff:  2,
	}
}
