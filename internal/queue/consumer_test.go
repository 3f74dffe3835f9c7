package queue

import (
    "encoding/json"
    "os"
    "path/filepath"
    "strings"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestHandleMessageAppendsLines(t *testing.T) {
    dir := t.TempDir()

    issued, err := json.Marshal(TicketIssuedEvent{Date: "2026-10-18", Number: 7, Name: "Ana", IssuedAt: "09:15:00"})
    require.NoError(t, err)
    require.NoError(t, handleMessage(dir, KindTicketIssued, issued))

    rolled, err := json.Marshal(RolloverEvent{PreviousDay: "2026-10-17", Day: "2026-10-18", Archived: true, Issued: 12, OccurredAt: "2026-10-18T00:00:05-03:00"})
    require.NoError(t, err)
    require.NoError(t, handleMessage(dir, KindRollover, rolled))

    data, err := os.ReadFile(filepath.Join(dir, "queue.log"))
    require.NoError(t, err)
    lines := strings.Split(strings.TrimSpace(string(data)), "\n")
    require.Len(t, lines, 2)
    assert.Contains(t, lines[0], "number=7")
    assert.Contains(t, lines[0], `name="Ana"`)
    assert.Contains(t, lines[1], "from=2026-10-17")
    assert.Contains(t, lines[1], "archived=true")
}

func TestHandleMessageRejectsBadInput(t *testing.T) {
    dir := t.TempDir()

    assert.Error(t, handleMessage(dir, KindTicketIssued, []byte("{not json")))
    assert.Error(t, handleMessage(dir, "seat.booked", []byte("{}")))

    _, err := os.Stat(filepath.Join(dir, "queue.log"))
    assert.True(t, os.IsNotExist(err))
}

func TestFormatRolloverWithoutPreviousDay(t *testing.T) {
    body, err := json.Marshal(RolloverEvent{Day: "2026-10-18", OccurredAt: "t"})
    require.NoError(t, err)

    line, err := formatEvent(KindRollover, body)
    require.NoError(t, err)
    assert.Contains(t, line, "from=-")
}
