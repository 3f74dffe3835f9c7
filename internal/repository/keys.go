package repository

import (
	"strings"
	"time"
)

// Retention of each key family.  Operational keys only need to outlive the
// business day; the shadow copy of the metadata survives a little longer so
// a lost primary record can still be recovered the next morning.
const (
	OperationalTTL = 48 * time.Hour
	ShadowTTL      = 72 * time.Hour
	ArchiveTTL     = 60 * 24 * time.Hour
	PrizeTTL       = 7 * 24 * time.Hour
	PointerTTL     = 30 * 24 * time.Hour
)

// Keys builds every store key under one application prefix.  All per-day
// keys end with the calendar date so that a day's data can be found, probed
// and expired independently.
type Keys struct {
	prefix string
}

// NewKeys returns a key builder for prefix.
func NewKeys(prefix string) Keys {
	return Keys{prefix: strings.TrimSuffix(prefix, ":")}
}

func (k Keys) State(date string) string       { return k.prefix + ":state:" + date }
func (k Keys) StateShadow(date string) string { return k.prefix + ":state-shadow:" + date }
func (k Keys) Tickets(date string) string     { return k.prefix + ":tickets:" + date }
func (k Keys) Counter(date string) string     { return k.prefix + ":counter:" + date }
func (k Keys) Backup(date string) string      { return k.prefix + ":backup:" + date }
func (k Keys) Prizes(date string) string      { return k.prefix + ":prizes:" + date }
func (k Keys) CurrentDay() string             { return k.prefix + ":current-day" }
func (k Keys) RolloverLock() string           { return k.prefix + ":rollover-lock" }
func (k Keys) HealthProbe() string            { return k.prefix + ":health:probe" }

// BackupPattern matches every archive key.
func (k Keys) BackupPattern() string { return k.prefix + ":backup:*" }

// BackupDate extracts the date from an archive key.  The second result is
// false for keys that do not belong to the archive family or carry a
// malformed date.
func (k Keys) BackupDate(key string) (string, bool) {
	p := k.prefix + ":backup:"
	if !strings.HasPrefix(key, p) {
		return "", false
	}
	date := strings.TrimPrefix(key, p)
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return "", false
	}
	return date, true
}
