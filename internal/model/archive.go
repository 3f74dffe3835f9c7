package model

// Archive triggers recorded on each backup.
const (
    TriggerRollover = "rollover"
    TriggerManual   = "manual"
)

// Archive is the retained snapshot of one business day.  It is written once
// per day; writing it again for the same day replaces it, which keeps
// re-archiving idempotent.  JSON names follow the format the admin
// dashboards already read.
type Archive struct {
    Date              string            `json:"fecha"`
    FinalState        DailyState        `json:"estadoFinal"`
    Summary           ArchiveSummary    `json:"resumen"`
    Tickets           []Ticket          `json:"tickets"`
    DetailedAnalytics DetailedAnalytics `json:"analisisDetallado"`
    ArchivedAt        string            `json:"timestampBackup"`
    Trigger           string            `json:"tipo"`
}

// ArchiveSummary holds the headline figures of a day.  Every field is zero
// for a day without tickets.
type ArchiveSummary struct {
    Issued                int         `json:"totalTicketsEmitidos"`
    Called                int         `json:"totalTicketsAtendidos"`
    Pending               int         `json:"ticketsPendientes"`
    FirstTicketNumber     int         `json:"primerTicket"`
    LastTicketNumber      int         `json:"ultimoTicket"`
    PeakHour              PeakHour    `json:"horaPico"`
    HourlyDistribution    map[int]int `json:"distribucionPorHora"`
    AvgInterTicketMinutes float64     `json:"tiempoPromedioEntreTickets"`
    EfficiencyPercent     float64     `json:"eficienciaDiaria"`
}

// PeakHour is the busiest hour of the day by tickets issued.
type PeakHour struct {
    Hour       int     `json:"hora"`
    Count      int     `json:"cantidad"`
    Percentage float64 `json:"porcentaje"`
}

// DetailedAnalytics carries the heavier per-day metrics.
type DetailedAnalytics struct {
    RealAvgWaitMinutes float64     `json:"tiempoEsperaRealPromedio"`
    NameFrequency      []NameCount `json:"frecuenciaNombres"`
    UniqueNames        int         `json:"nombresUnicos"`
    FirstTicketAt      string      `json:"primerTicketHora"`
    LastTicketAt       string      `json:"ultimoTicketHora"`
    OperatingMinutes   float64     `json:"minutosOperacion"`
}

// NameCount is one entry of the name frequency table.
type NameCount struct {
    Name  string `json:"nombre"`
    Count int    `json:"cantidad"`
}

// ArchiveListing is the light form of an archive returned by enumeration.
type ArchiveListing struct {
    Date       string         `json:"fecha"`
    Summary    ArchiveSummary `json:"resumen"`
    ArchivedAt string         `json:"timestampBackup"`
    Trigger    string         `json:"tipo"`
}
