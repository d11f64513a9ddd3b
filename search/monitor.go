package search

import "time"

// Monitor provides hooks to observe the provider fallback chain.
// Implement this interface to track attempts, failures and latencies.
type Monitor interface {
	ProviderSkipped(provider string)
	ProviderAttempt(provider, query string)
	ProviderSucceeded(provider string, results int, elapsed time.Duration)
	ProviderFailed(provider string, err error, elapsed time.Duration)
	Exhausted(query string)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) ProviderSkipped(_ string) {}
func (n *noopMonitor) ProviderAttempt(_, _ string) {}
func (n *noopMonitor) ProviderSucceeded(_ string, _ int, _ time.Duration) {}
func (n *noopMonitor) ProviderFailed(_ string, _ error, _ time.Duration) {}
func (n *noopMonitor) Exhausted(_ string) {}
