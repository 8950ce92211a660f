package notifier

import "context"

// NoOpNotifier discards alerts. Used when alerting is disabled so callers
// never need a nil check.
type NoOpNotifier struct{}

// NewNoOpNotifier creates a new NoOpNotifier instance.
func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{}
}

// NotifyFeedDisabled does nothing.
func (n *NoOpNotifier) NotifyFeedDisabled(_ context.Context, _ string, _ int) {}
