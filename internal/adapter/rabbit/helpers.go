package rabbit

import (
	"errors"
	"time"

	"github.com/torimichi/guide-match-system/internal/domain/types"
)

// isRecoverableError reports whether the delivery should be requeued.
func isRecoverableError(err error) bool {
	return oneOf(err, types.ErrStoreUnavailable)
}

func oneOf(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

func retry(n int, sleep time.Duration, fn func() error) error {
	var err error
	for range n {
		if err = fn(); err == nil {
			return nil
		}
		time.Sleep(sleep)
	}
	return err
}
