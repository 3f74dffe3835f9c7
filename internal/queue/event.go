// Package queue defines the events the ticket queue publishes to the message
// broker and the background consumer that records them.
package queue

// EventsQueueName is the durable broker queue every event is published to.
// The event kind travels in the AMQP Type property.
const EventsQueueName = "ticketq.events"

// Event kinds.
const (
    KindTicketIssued = "ticket.issued"
    KindRollover     = "queue.rollover"
)

// TicketIssuedEvent is published after a ticket has been durably recorded.
// It carries enough for displays and log sinks to react without reading the
// store.
type TicketIssuedEvent struct {
    Date        string `json:"date"`
    Number      int    `json:"number"`
    Name        string `json:"name"`
    IssuedAt    string `json:"issued_at"`
    TimestampMs int64  `json:"timestamp_ms"`
}

// RolloverEvent is published after the live day moved to a new date.
type RolloverEvent struct {
    PreviousDay string `json:"previous_day"`
    Day         string `json:"day"`
    Archived    bool   `json:"archived"`
    Issued      int    `json:"issued"`
    OccurredAt  string `json:"occurred_at"`
}
