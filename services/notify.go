package services

import (
	"context"
	"log/slog"

	"github.com/arenapool/wager-system/events"
	"github.com/arenapool/wager-system/live"
)

// EventBroadcaster - рассылка событий подписанным WebSocket-клиентам.
// Реализуется live.Hub.
type EventBroadcaster interface {
	BroadcastToRoom(roomID string, message interface{})
}

// EventPublisher - публикация событий для внешних индексеров.
// Реализуется events.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, payload interface{}) error
}

// Полезные нагрузки уведомлений: идентификаторы и суммы операции.
type TournamentCreatedEvent struct {
	TournamentID int    `json:"tournament_id"`
	Name         string `json:"name,omitempty"`
	EntrantCount int    `json:"entrant_count"`
}

type WagerPlacedEvent struct {
	UserID       int   `json:"user_id"`
	TournamentID int   `json:"tournament_id"`
	EntrantID    int   `json:"entrant_id"`
	Amount       int64 `json:"amount"`
}

type WageringClosedEvent struct {
	TournamentID int `json:"tournament_id"`
}

type TournamentSettledEvent struct {
	TournamentID   int   `json:"tournament_id"`
	WinningEntrant int   `json:"winning_entrant"`
	TotalPool      int64 `json:"total_pool"`
	Fee            int64 `json:"fee"`
}

type TournamentCancelledEvent struct {
	TournamentID int `json:"tournament_id"`
}

type PayoutClaimedEvent struct {
	TournamentID int   `json:"tournament_id"`
	UserID       int   `json:"user_id"`
	Amount       int64 `json:"amount"`
}

var eventSubjects = map[string]string{
	live.EventTournamentCreated:   events.SubjectTournamentCreated,
	live.EventWagerPlaced:         events.SubjectWagerPlaced,
	live.EventWageringClosed:      events.SubjectWageringClosed,
	live.EventTournamentSettled:   events.SubjectTournamentSettled,
	live.EventTournamentCancelled: events.SubjectTournamentCancelled,
	live.EventPayoutClaimed:       events.SubjectPayoutClaimed,
}

// notifier рассылает одно событие по обоим каналам. Оба канала
// опциональны; отказ публикации не влияет на уже зафиксированную операцию.
type notifier struct {
	hub       EventBroadcaster
	publisher EventPublisher
	logger    *slog.Logger
}

func (n *notifier) emit(ctx context.Context, tournamentID int, eventType string, payload interface{}) {
	room := live.TournamentRoom(tournamentID)
	if n.hub != nil {
		n.hub.BroadcastToRoom(room, live.Message{Type: eventType, Payload: payload, RoomID: room})
	}
	if n.publisher != nil {
		subject, ok := eventSubjects[eventType]
		if !ok {
			logWarn(ctx, n.logger, "no subject mapping for event", slog.String("event", eventType))
			return
		}
		if err := n.publisher.Publish(ctx, subject, payload); err != nil {
			logWarn(ctx, n.logger, "failed to publish ledger event",
				slog.String("subject", subject), slog.Any("error", err))
		}
	}
}
