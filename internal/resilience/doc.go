// Package resilience groups the fault-tolerance helpers the coordinator
// wraps around outbound calls: circuit breakers for summarization and
// embedding providers and feed hosts, and retry with exponential backoff
// for transient failures.
package resilience
