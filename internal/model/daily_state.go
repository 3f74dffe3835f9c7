package model

// DateLayout is the calendar-day format used in keys and in DailyState.DayStarted.
const DateLayout = "2006-01-02"

// DailyState is the per-day metadata record.  It is a derived cache: the
// ticket list is the ground truth for how many tickets were issued and the
// counter is the ground truth for the next number.  Reads reconcile it
// against both, so concurrent last-write-wins updates are tolerated.
//
// Fields:
//  CurrentNumber – next number to assign (always LastNumber + 1).
//  LastNumber    – highest ticket number issued.
//  TotalIssued   – tickets issued; equals the ticket list length after a read.
//  TotalCalled   – "call next" operations executed, never above TotalIssued.
//  DayStarted    – the calendar day (DateLayout) this state belongs to.
//  LastReset     – RFC3339 time of the last manual or automatic reset.
//  LastSync      – RFC3339 time of the last write, for diagnostics.
type DailyState struct {
    CurrentNumber int    `json:"currentNumber"`
    LastNumber    int    `json:"lastNumber"`
    TotalIssued   int    `json:"totalIssued"`
    TotalCalled   int    `json:"totalCalled"`
    DayStarted    string `json:"dayStarted"`
    LastReset     string `json:"lastReset"`
    LastSync      string `json:"lastSync"`
}

// NewDailyState returns the fresh record a day starts with.
func NewDailyState(day, now string) DailyState {
    return DailyState{
        CurrentNumber: 1,
        LastNumber:    0,
        TotalIssued:   0,
        TotalCalled:   0,
        DayStarted:    day,
        LastReset:     now,
        LastSync:      now,
    }
}

// Pending returns the number of issued tickets not yet called.
func (s DailyState) Pending() int {
    if p := s.TotalIssued - s.TotalCalled; p > 0 {
        return p
    }
    return 0
}

// StateView is a DailyState together with the day's tickets, ordered by number.
type StateView struct {
    DailyState
    Tickets []Ticket `json:"tickets"`
}
