package channel

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain enables goroutine leak detection for all tests in this package.
// This catches timers and parked waiters left behind by channel operations.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
