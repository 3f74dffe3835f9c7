package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "time"

    "github.com/google/logger"
    amqp "github.com/rabbitmq/amqp091-go"
)

// StartEventConsumer connects to the broker, declares the events queue
// (durable) and consumes it until ctx is cancelled.  Each event is appended
// to queue.log under logDir as one human-friendly line.  Dial failures and
// dropped connections are retried with a doubling backoff capped at 30s;
// malformed messages are rejected without requeue so the loop never spins on
// them.
func StartEventConsumer(ctx context.Context, url, logDir string) error {
    backoff := time.Second
    for {
        if ctx.Err() != nil {
            return ctx.Err()
        }
        conn, err := amqp.Dial(url)
        if err != nil {
            logger.Warningf("event-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = consumeLoop(ctx, conn, logDir)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        logger.Warningf("event-consumer: consume loop ended: %v; reconnecting", err)
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, logDir string) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        logger.Warningf("event-consumer: set QoS failed: %v", err)
    }

    if _, err := ch.QueueDeclare(EventsQueueName, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }

    msgs, err := ch.Consume(EventsQueueName, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := handleMessage(logDir, d.Type, d.Body); err != nil {
                logger.Errorf("event-consumer: handle message failed: %v", err)
                _ = d.Nack(false, false)
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// formatEvent renders one event as a log line (without the newline).
func formatEvent(kind string, body []byte) (string, error) {
    switch kind {
    case KindTicketIssued:
        var ev TicketIssuedEvent
        if err := json.Unmarshal(body, &ev); err != nil {
            return "", fmt.Errorf("unmarshal %s: %w", kind, err)
        }
        return fmt.Sprintf("[%s %s] Ticket issued | number=%d | name=%q",
            ev.Date, ev.IssuedAt, ev.Number, ev.Name), nil
    case KindRollover:
        var ev RolloverEvent
        if err := json.Unmarshal(body, &ev); err != nil {
            return "", fmt.Errorf("unmarshal %s: %w", kind, err)
        }
        prev := ev.PreviousDay
        if prev == "" {
            prev = "-"
        }
        return fmt.Sprintf("[%s] Day rolled over | from=%s | to=%s | archived=%t | issued=%d",
            ev.OccurredAt, prev, ev.Day, ev.Archived, ev.Issued), nil
    default:
        return "", fmt.Errorf("unknown event kind %q", kind)
    }
}

func handleMessage(logDir, kind string, body []byte) error {
    line, err := formatEvent(kind, body)
    if err != nil {
        return err
    }
    if err := os.MkdirAll(logDir, 0o755); err != nil {
        return fmt.Errorf("mkdir %s: %w", logDir, err)
    }
    f, err := os.OpenFile(filepath.Join(logDir, "queue.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(line + "\n"); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
