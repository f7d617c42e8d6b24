package services

import "github.com/saeid-a/GymSessionsBack/internal/models"

// Notifier receives committed session events. Implementations must not
// block the caller.
type Notifier interface {
	Notify(event models.SessionEvent)
}

type MetricsRecorder interface {
	RecordJoin(outcome string)
	RecordDecision(decision string)
	RecordSchedulingConflict()
	RecordTxRetry()
}

type nopNotifier struct{}

func (nopNotifier) Notify(models.SessionEvent) {}

type nopMetrics struct{}

func (nopMetrics) RecordJoin(string)         {}
func (nopMetrics) RecordDecision(string)     {}
func (nopMetrics) RecordSchedulingConflict() {}
func (nopMetrics) RecordTxRetry()            {}
