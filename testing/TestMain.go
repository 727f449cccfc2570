package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("QUINISPORTS_TEST_MODE", "1")
		if os.Getenv("GATE_DISABLED") == "" {
			_ = os.Setenv("GATE_DISABLED", "false")
		}
		if os.Getenv("KAFKA_BROKERS") == "" {
			_ = os.Setenv("KAFKA_BROKERS", "")
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
