package aggregates

import (
	"strings"
	"time"

	"github.com/yungbote/jointbuy-backend/internal/platform/logger"
)

// Hooks captures aggregate-level operational events.
type Hooks interface {
	ObserveOperation(name, status string, dur time.Duration)
	IncConflict(name string)
	IncRetry(name string)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncConflict(string)                             {}
func (noopHooks) IncRetry(string)                                {}

type loggingHooks struct {
	log *logger.Logger
}

// NewLoggingHooks reports aggregate operations through the structured logger.
func NewLoggingHooks(log *logger.Logger) Hooks {
	if log == nil {
		return noopHooks{}
	}
	return &loggingHooks{log: log.With("component", "aggregates")}
}

func (h *loggingHooks) ObserveOperation(name, status string, dur time.Duration) {
	if h == nil || h.log == nil {
		return
	}
	name = strings.TrimSpace(name)
	status = strings.TrimSpace(status)
	if status == "success" {
		h.log.Debug("aggregate write", "op", name, "status", status, "duration_ms", dur.Milliseconds())
		return
	}
	h.log.Warn("aggregate write failed", "op", name, "status", status, "duration_ms", dur.Milliseconds())
}

func (h *loggingHooks) IncConflict(name string) {
	if h == nil || h.log == nil {
		return
	}
	h.log.Info("aggregate write lost version race", "op", strings.TrimSpace(name))
}

func (h *loggingHooks) IncRetry(name string) {
	if h == nil || h.log == nil {
		return
	}
	h.log.Info("aggregate write hit retryable failure", "op", strings.TrimSpace(name))
}
