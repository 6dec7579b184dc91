package interfaces

// EventPublisher fans ledger events out to live subscribers: epoch totals
// for UI display, rollover and settlement notifications for downstream
// services. Publish failures are logged by callers, never allowed to fail
// a ledger operation.
type EventPublisher interface {
	Publish(topic string, event any) error
}
