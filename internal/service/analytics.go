package service

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/ticket-queue/internal/model"
)

// maxNameFrequency caps the name frequency table of an archive.
const maxNameFrequency = 10

// BuildArchive turns the reconciled view of a day into its archive.  Hours
// are bucketed in loc; archivedAt is the moment of archiving and closes the
// interval used to estimate real waiting times.
func BuildArchive(view model.StateView, loc *time.Location, archivedAt time.Time, trigger string) model.Archive {
	tickets := make([]model.Ticket, len(view.Tickets))
	copy(tickets, view.Tickets)

	return model.Archive{
		Date:              view.DayStarted,
		FinalState:        view.DailyState,
		Summary:           buildSummary(view.DailyState, tickets, loc),
		Tickets:           tickets,
		DetailedAnalytics: buildDetailed(view.DailyState, tickets, archivedAt),
		ArchivedAt:        archivedAt.In(loc).Format(time.RFC3339),
		Trigger:           trigger,
	}
}

func buildSummary(st model.DailyState, tickets []model.Ticket, loc *time.Location) model.ArchiveSummary {
	s := model.ArchiveSummary{HourlyDistribution: map[int]int{}}
	n := len(tickets)
	if n == 0 {
		return s
	}

	s.Issued = n
	s.Called = min(st.TotalCalled, n)
	s.Pending = n - s.Called
	s.FirstTicketNumber = tickets[0].Number
	s.LastTicketNumber = tickets[n-1].Number

	for _, t := range tickets {
		s.HourlyDistribution[time.UnixMilli(t.TimestampMs).In(loc).Hour()]++
	}
	hours := make([]int, 0, len(s.HourlyDistribution))
	for h := range s.HourlyDistribution {
		hours = append(hours, h)
	}
	sort.Ints(hours)
	for _, h := range hours {
		if c := s.HourlyDistribution[h]; c > s.PeakHour.Count {
			s.PeakHour = model.PeakHour{Hour: h, Count: c}
		}
	}
	s.PeakHour.Percentage = round2(float64(s.PeakHour.Count) / float64(n) * 100)

	stamps := timestamps(tickets)
	if len(stamps) > 1 {
		var total int64
		for i := 1; i < len(stamps); i++ {
			total += stamps[i] - stamps[i-1]
		}
		s.AvgInterTicketMinutes = round2(msToMinutes(total) / float64(len(stamps)-1))
	}
	s.EfficiencyPercent = round2(float64(s.Called) / float64(n) * 100)
	return s
}

func buildDetailed(st model.DailyState, tickets []model.Ticket, archivedAt time.Time) model.DetailedAnalytics {
	d := model.DetailedAnalytics{NameFrequency: []model.NameCount{}}
	n := len(tickets)
	if n == 0 {
		return d
	}

	d.RealAvgWaitMinutes = realAvgWait(tickets, min(st.TotalCalled, n), archivedAt)
	d.NameFrequency, d.UniqueNames = nameFrequency(tickets)
	d.FirstTicketAt = tickets[0].IssuedAt
	d.LastTicketAt = tickets[n-1].IssuedAt

	stamps := timestamps(tickets)
	d.OperatingMinutes = round2(msToMinutes(stamps[len(stamps)-1] - stamps[0]))
	return d
}

// realAvgWait estimates the average wait of the called tickets.  Calls are
// not timestamped, so the first called tickets (in number order) are assumed
// to have been called at even intervals between the first issuance and the
// archive time.  Negative waits count as zero.
func realAvgWait(tickets []model.Ticket, called int, archivedAt time.Time) float64 {
	if called <= 0 {
		return 0
	}
	stamps := timestamps(tickets)
	start, end := stamps[0], archivedAt.UnixMilli()
	if last := stamps[len(stamps)-1]; end < last {
		end = last
	}
	step := float64(end-start) / float64(called)

	var total float64
	for i := 0; i < called; i++ {
		calledAt := float64(start) + step*float64(i+1)
		if wait := calledAt - float64(tickets[i].TimestampMs); wait > 0 {
			total += wait
		}
	}
	return round2(total / float64(called) / float64(time.Minute/time.Millisecond))
}

// nameFrequency counts normalised names, skipping blanks and the default
// name, and returns the top entries plus the number of distinct names.
func nameFrequency(tickets []model.Ticket) ([]model.NameCount, int) {
	skip := strings.ToLower(model.DefaultTicketName)
	counts := map[string]int{}
	for _, t := range tickets {
		name := strings.ToLower(strings.TrimSpace(t.Name))
		if name == "" || name == skip {
			continue
		}
		counts[name]++
	}
	out := make([]model.NameCount, 0, len(counts))
	for name, c := range counts {
		out = append(out, model.NameCount{Name: name, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > maxNameFrequency {
		out = out[:maxNameFrequency]
	}
	return out, len(counts)
}

func timestamps(tickets []model.Ticket) []int64 {
	out := make([]int64, len(tickets))
	for i, t := range tickets {
		out[i] = t.TimestampMs
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func msToMinutes(ms int64) float64 {
	return float64(ms) / float64(time.Minute/time.Millisecond)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
