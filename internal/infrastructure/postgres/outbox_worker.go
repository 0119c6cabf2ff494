package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/baechuer/summons/internal/audit"
	"github.com/baechuer/summons/internal/pkg/logger"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	outboxBatchSize   = 20
	outboxMaxAttempts = 12 // ~ up to hours with exponential backoff
	confirmWait       = 600 * time.Millisecond
	outboxPollEvery   = 500 * time.Millisecond
	outboxInFlightFor = 15 * time.Second
)

type outboxMessage struct {
	ID         int64
	MessageID  uuid.UUID
	TraceID    string
	RoutingKey string
	Payload    []byte
	Attempt    int
}

// computeNextRetry: exponential with +/-10% jitter, 5s floor, 30m cap.
func computeNextRetry(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	sec := math.Pow(2, float64(attempt))
	if sec < 5 {
		sec = 5
	}
	if sec > 1800 {
		sec = 1800
	}
	d := time.Duration(sec) * time.Second
	j := time.Duration(rand.Int63n(int64(d/5))) - d/10
	return d + j
}

// StartOutboxWorker publishes pending outbox rows to a topic exchange until
// ctx is cancelled. It returns immediately; connection failures are logged.
func (r *Repository) StartOutboxWorker(ctx context.Context, rabbitURL, exchange string, aud *audit.Logger) {
	go func() {
		log := logger.Logger.With().Str("component", "outbox_worker").Logger()

		conn, err := amqp.Dial(rabbitURL)
		if err != nil {
			log.Error().Err(err).Msg("failed to connect rabbitmq for outbox publishing")
			return
		}
		defer conn.Close()

		ch, err := conn.Channel()
		if err != nil {
			log.Error().Err(err).Msg("failed to open rabbitmq channel for outbox publishing")
			return
		}
		defer ch.Close()

		if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
			log.Error().Err(err).Str("exchange", exchange).Msg("exchange declare failed")
			return
		}

		// Publisher confirms + mandatory returns
		if err := ch.Confirm(false); err != nil {
			log.Error().Err(err).Msg("publisher confirm enable failed")
			return
		}
		confirmCh := ch.NotifyPublish(make(chan amqp.Confirmation, 100))
		returnCh := ch.NotifyReturn(make(chan amqp.Return, 100))

		ticker := time.NewTicker(outboxPollEvery)
		defer ticker.Stop()

		var lastErr string
		var lastAt time.Time

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("stopped")
				return
			case <-ticker.C:
				if err := r.processOutboxBatch(ctx, ch, exchange, confirmCh, returnCh, aud); err != nil {
					if err.Error() != lastErr || time.Since(lastAt) > 10*time.Second {
						log.Warn().Err(err).Msg("outbox batch failed")
						lastErr = err.Error()
						lastAt = time.Now()
					}
				} else {
					lastErr = ""
				}
			}
		}
	}()
}

// claimOutboxBatch pushes next_retry_at forward on the claimed rows so a
// second worker skips them while this one publishes outside the tx.
func (r *Repository) claimOutboxBatch(ctx context.Context) ([]outboxMessage, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		SELECT id, message_id, trace_id, routing_key, payload, attempt
		FROM outbox
		WHERE status = 'pending'
		  AND next_retry_at <= NOW()
		ORDER BY next_retry_at ASC, occurred_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, outboxBatchSize)
	if err != nil {
		return nil, err
	}

	var messages []outboxMessage
	for rows.Next() {
		var m outboxMessage
		if err := rows.Scan(&m.ID, &m.MessageID, &m.TraceID, &m.RoutingKey, &m.Payload, &m.Attempt); err != nil {
			rows.Close()
			return nil, err
		}
		messages = append(messages, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, tx.Commit(ctx)
	}

	ids := make([]int64, len(messages))
	for i, m := range messages {
		ids[i] = m.ID
	}
	if _, err := tx.Exec(ctx, `UPDATE outbox SET next_retry_at = $2 WHERE id = ANY($1)`, ids, time.Now().Add(outboxInFlightFor)); err != nil {
		return nil, err
	}
	return messages, tx.Commit(ctx)
}

func (r *Repository) processOutboxBatch(
	ctx context.Context,
	ch *amqp.Channel,
	exchange string,
	confirmCh <-chan amqp.Confirmation,
	returnCh <-chan amqp.Return,
	aud *audit.Logger,
) error {
	messages, err := r.claimOutboxBatch(ctx)
	if err != nil || len(messages) == 0 {
		return err
	}

	for _, m := range messages {
		drainNotifications(confirmCh, returnCh)

		pub := amqp.Publishing{
			ContentType:   "application/json",
			Body:          m.Payload,
			DeliveryMode:  amqp.Persistent,
			Timestamp:     time.Now().UTC(),
			MessageId:     m.MessageID.String(),
			CorrelationId: m.TraceID,
			AppId:         producerName,
		}

		if err := ch.PublishWithContext(ctx, exchange, m.RoutingKey, true, false, pub); err != nil {
			r.failOutbox(ctx, m, fmt.Sprintf("publish error: %v", err), aud)
			continue
		}
		if err := waitForConfirm(confirmCh, returnCh, confirmWait); err != nil {
			r.failOutbox(ctx, m, err.Error(), aud)
			continue
		}

		_, _ = r.pool.Exec(ctx, `UPDATE outbox SET status = 'sent', last_error = NULL WHERE id = $1`, m.ID)
		if aud != nil {
			aud.OutboxMessageSent(ctx, m.MessageID.String(), m.RoutingKey)
		}
	}
	return nil
}

func drainNotifications(confirmCh <-chan amqp.Confirmation, returnCh <-chan amqp.Return) {
	for {
		select {
		case <-returnCh:
		case <-confirmCh:
		default:
			return
		}
	}
}

var errConfirmTimeout = errors.New("confirm/return timeout")

// waitForConfirm resolves one mandatory publish. A Return usually arrives
// before its Confirm and wins.
func waitForConfirm(confirmCh <-chan amqp.Confirmation, returnCh <-chan amqp.Return, timeout time.Duration) error {
	deadline := time.After(timeout)
	var returned *amqp.Return
	for {
		select {
		case ret := <-returnCh:
			returned = &ret
		case c := <-confirmCh:
			if returned != nil {
				return fmt.Errorf("NO_ROUTE: code=%d text=%s exchange=%s rk=%s",
					returned.ReplyCode, returned.ReplyText, returned.Exchange, returned.RoutingKey)
			}
			if !c.Ack {
				return fmt.Errorf("NACK: delivery_tag=%d", c.DeliveryTag)
			}
			return nil
		case <-deadline:
			return errConfirmTimeout
		}
	}
}

func (r *Repository) failOutbox(ctx context.Context, m outboxMessage, errMsg string, aud *audit.Logger) {
	log := logger.Logger.With().Str("component", "outbox_worker").Logger()

	nextAttempt := m.Attempt + 1
	if nextAttempt >= outboxMaxAttempts {
		_, _ = r.pool.Exec(ctx, `
			UPDATE outbox
			SET status = 'dead',
			    attempt = $2,
			    last_error = $3
			WHERE id = $1
		`, m.ID, nextAttempt, errMsg)
		if aud != nil {
			aud.OutboxMessageDead(ctx, m.MessageID.String(), m.RoutingKey, nextAttempt)
		}
		return
	}

	delay := computeNextRetry(nextAttempt)
	_, _ = r.pool.Exec(ctx, `
		UPDATE outbox
		SET attempt = $2,
		    next_retry_at = NOW() + $3::interval,
		    last_error = $4
		WHERE id = $1
	`, m.ID, nextAttempt, fmt.Sprintf("%f seconds", delay.Seconds()), errMsg)

	log.Warn().
		Int64("outbox_id", m.ID).
		Str("message_id", m.MessageID.String()).
		Str("routing_key", m.RoutingKey).
		Int("attempt", nextAttempt).
		Dur("retry_in", delay).
		Msg("outbox publish failed; scheduled retry")
}
