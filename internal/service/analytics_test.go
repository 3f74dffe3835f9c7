package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ticket-queue/internal/model"
)

func ticketAt(n int, name string, at time.Time) model.Ticket {
	return model.Ticket{Number: n, Name: name, IssuedAt: at.Format("15:04:05"), TimestampMs: at.UnixMilli()}
}

func TestBuildArchiveEmptyDay(t *testing.T) {
	loc := businessLocation(t)
	view := model.StateView{DailyState: model.NewDailyState("2026-10-18", ""), Tickets: []model.Ticket{}}

	a := BuildArchive(view, loc, time.Date(2026, 10, 18, 20, 0, 0, 0, loc), model.TriggerManual)
	assert.Equal(t, "2026-10-18", a.Date)
	assert.Equal(t, model.ArchiveSummary{HourlyDistribution: map[int]int{}}, a.Summary)
	assert.Zero(t, a.DetailedAnalytics.RealAvgWaitMinutes)
	assert.Empty(t, a.DetailedAnalytics.NameFrequency)
	assert.NotNil(t, a.Tickets)
}

func TestBuildArchiveFigures(t *testing.T) {
	loc := businessLocation(t)
	day := func(h, m int) time.Time { return time.Date(2026, 10, 18, h, m, 0, 0, loc) }
	st := model.DailyState{CurrentNumber: 4, LastNumber: 3, TotalIssued: 3, TotalCalled: 2, DayStarted: "2026-10-18"}
	view := model.StateView{DailyState: st, Tickets: []model.Ticket{
		ticketAt(1, "Ana", day(9, 0)),
		ticketAt(2, " ana ", day(9, 10)),
		ticketAt(3, "Cliente", day(10, 0)),
	}}

	a := BuildArchive(view, loc, day(11, 0), model.TriggerRollover)

	s := a.Summary
	assert.Equal(t, 3, s.Issued)
	assert.Equal(t, 2, s.Called)
	assert.Equal(t, 1, s.Pending)
	assert.Equal(t, 1, s.FirstTicketNumber)
	assert.Equal(t, 3, s.LastTicketNumber)
	assert.Equal(t, map[int]int{9: 2, 10: 1}, s.HourlyDistribution)
	assert.Equal(t, model.PeakHour{Hour: 9, Count: 2, Percentage: 66.67}, s.PeakHour)
	assert.Equal(t, 30.0, s.AvgInterTicketMinutes)
	assert.Equal(t, 66.67, s.EfficiencyPercent)

	d := a.DetailedAnalytics
	// Calls assumed at 10:00 and 11:00: waits of 60 and 110 minutes.
	assert.Equal(t, 85.0, d.RealAvgWaitMinutes)
	require.Len(t, d.NameFrequency, 1)
	assert.Equal(t, model.NameCount{Name: "ana", Count: 2}, d.NameFrequency[0])
	assert.Equal(t, 1, d.UniqueNames)
	assert.Equal(t, "09:00:00", d.FirstTicketAt)
	assert.Equal(t, "10:00:00", d.LastTicketAt)
	assert.Equal(t, 60.0, d.OperatingMinutes)

	assert.Equal(t, model.TriggerRollover, a.Trigger)
	assert.Equal(t, "2026-10-18T11:00:00-03:00", a.ArchivedAt)
}

func TestPeakHourTiesPickEarliest(t *testing.T) {
	loc := businessLocation(t)
	at := func(h int) time.Time { return time.Date(2026, 10, 18, h, 0, 0, 0, loc) }
	view := model.StateView{
		DailyState: model.DailyState{TotalIssued: 2, DayStarted: "2026-10-18"},
		Tickets:    []model.Ticket{ticketAt(1, "", at(14)), ticketAt(2, "", at(8))},
	}

	s := BuildArchive(view, loc, at(15), model.TriggerManual).Summary
	assert.Equal(t, 8, s.PeakHour.Hour)
	assert.Equal(t, 50.0, s.PeakHour.Percentage)
	assert.Zero(t, s.EfficiencyPercent)
}

func TestNameFrequencyTopTen(t *testing.T) {
	var tickets []model.Ticket
	for i := 0; i < 12; i++ {
		name := string(rune('a' + i))
		for j := 0; j <= i; j++ {
			tickets = append(tickets, model.Ticket{Number: len(tickets) + 1, Name: name})
		}
	}

	freq, unique := nameFrequency(tickets)
	assert.Equal(t, 12, unique)
	require.Len(t, freq, maxNameFrequency)
	assert.Equal(t, model.NameCount{Name: "l", Count: 12}, freq[0])
	assert.Equal(t, "c", freq[9].Name)
}
