package telemetry

import (
	"time"
)

type NoOpMetrics struct{}

func (NoOpMetrics) MessageSent(_ int, _ bool) {
}

func (NoOpMetrics) MessageReceived(_ time.Duration) {
}

func (NoOpMetrics) ReceiveTimedOut() {
}

func (NoOpMetrics) Cleared(_ int) {
}

func (NoOpMetrics) OperationFailed(_, _ string) {
}

func (NoOpMetrics) Depth(_ int) {
}
