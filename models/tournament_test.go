package models

import "testing"

func TestCurrentPhase(t *testing.T) {
	tests := []struct {
		name       string
		tournament Tournament
		want       TournamentPhase
	}{
		{"active", Tournament{Active: true}, PhaseActive},
		{"closed", Tournament{Active: false}, PhaseClosed},
		{"settled", Tournament{Settled: true, WinningEntrant: 3}, PhaseSettled},
		{"cancelled", Tournament{Settled: true, WinningEntrant: CancelledEntrant}, PhaseCancelled},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.tournament.CurrentPhase(); got != tc.want {
				t.Fatalf("expected phase %q, got %q", tc.want, got)
			}
		})
	}
}
