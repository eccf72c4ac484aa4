package events

// Topics emitted by the service.
const (
	// TopicSaleFinalized fires after the order collaborator accepted a sale.
	TopicSaleFinalized = "sale.finalized"
	// TopicSessionClosed fires after a cash session's closing reconciliation
	// record is committed.
	TopicSessionClosed = "session.closed"
)
