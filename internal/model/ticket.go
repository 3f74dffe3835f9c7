package model

// DefaultTicketName is stored when a customer leaves the name empty.  Name
// statistics ignore it.
const DefaultTicketName = "Cliente"

// Ticket is a numbered claim on service.  Tickets are immutable once
// appended to the day's list.
type Ticket struct {
    Number      int    `json:"number"`
    Name        string `json:"name"`
    IssuedAt    string `json:"issuedAt"`    // display time in the business timezone
    TimestampMs int64  `json:"timestampMs"` // unix milliseconds
}
