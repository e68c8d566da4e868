package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/arenapool/wager-system/models"
	"github.com/arenapool/wager-system/storage"
)

// SettlementReport - неизменяемый итог турнира для аудита и индексеров.
type SettlementReport struct {
	TournamentID   int                  `json:"tournament_id"`
	Name           string               `json:"name,omitempty"`
	Phase          string               `json:"phase"`
	WinningEntrant int                  `json:"winning_entrant"`
	TotalPool      int64                `json:"total_pool"`
	Fee            int64                `json:"fee"`
	Distributable  int64                `json:"distributable"`
	Pools          []models.EntrantPool `json:"pools"`
	GeneratedAt    time.Time            `json:"generated_at"`
}

// SettlementArchiver сохраняет отчёты о расчётах в S3-совместимое хранилище.
type SettlementArchiver struct {
	uploader storage.FileUploader
}

func NewSettlementArchiver(uploader storage.FileUploader) *SettlementArchiver {
	return &SettlementArchiver{uploader: uploader}
}

func (a *SettlementArchiver) Archive(ctx context.Context, t *models.Tournament, pools []models.EntrantPool, fee int64) error {
	report := SettlementReport{
		TournamentID:   t.ID,
		Name:           t.Name,
		Phase:          string(t.CurrentPhase()),
		WinningEntrant: t.WinningEntrant,
		TotalPool:      t.TotalPool,
		Fee:            fee,
		Distributable:  t.TotalPool - fee,
		Pools:          pools,
		GeneratedAt:    time.Now().UTC(),
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settlement report: %w", err)
	}

	key := fmt.Sprintf("settlements/tournament_%d.json", t.ID)
	if _, err := a.uploader.Upload(ctx, key, "application/json", bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to upload settlement report %s: %w", key, err)
	}
	return nil
}
