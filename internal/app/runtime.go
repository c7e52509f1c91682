package app

import (
	"os"
	"sync/atomic"
)

const testModeEnv = "BILLDESK_TEST_MODE"

var testMode atomic.Bool

func init() {
	RefreshTestMode()
}

// InTestMode reports whether binaries should skip connecting to Postgres,
// Redis and the backend.
func InTestMode() bool {
	return testMode.Load()
}

// RefreshTestMode re-reads BILLDESK_TEST_MODE after environment changes.
func RefreshTestMode() {
	testMode.Store(os.Getenv(testModeEnv) == "1")
}
