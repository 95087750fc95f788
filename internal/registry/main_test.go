package registry

import (
	"testing"

	"go.uber.org/goleak"
)

// Every LoadDatabase goroutine must finish once its source has resolved.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
