// Package guard flips the process into test mode on import so binaries and
// background workers started from tests do not reach for real infrastructure.
package guard

import (
	"os"
	"sync"
)

// EnvVar is the switch read by app.InTestMode.
const EnvVar = "BIZHUB_TEST_MODE"

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv(EnvVar) == "" {
			_ = os.Setenv(EnvVar, "1")
		}
	})
}
