package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Subjects для индексеров. Стрим LEDGER_EVENTS покрывает events.ledger.>.
const (
	StreamName      = "LEDGER_EVENTS"
	SubjectWildcard = "events.ledger.>"

	SubjectTournamentCreated   = "events.ledger.tournament.created"
	SubjectWagerPlaced         = "events.ledger.wager.placed"
	SubjectWageringClosed      = "events.ledger.wagering.closed"
	SubjectTournamentSettled   = "events.ledger.tournament.settled"
	SubjectTournamentCancelled = "events.ledger.tournament.cancelled"
	SubjectPayoutClaimed       = "events.ledger.payout.claimed"
)

// Publisher публикует события леджера в NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   jetstream.JetStream
}

func NewPublisher(url string) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	// Стрим создаётся здесь, чтобы индексеры могли читать с любого места.
	_, err = js.CreateOrUpdateStream(context.Background(), jetstream.StreamConfig{
		Name:     StreamName,
		Subjects: []string{SubjectWildcard},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream %s: %w", StreamName, err)
	}

	return &Publisher{conn: nc, js: js}, nil
}

func (p *Publisher) Publish(ctx context.Context, subject string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish event to %s: %w", subject, err)
	}
	return nil
}

func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
