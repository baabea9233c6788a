package services

import "context"

// TournamentSummary is the slice of tournament history attached to login and
// profile responses.
type TournamentSummary struct {
	Name     string `json:"name"`
	Rank     int    `json:"rank"`
	PlayedAt string `json:"played_at"`
}

// TournamentSource supplies a user's tournament history. The real backing
// store lives outside this service; when it is not configured the explicit
// no-op variant is wired in instead of a dynamic stand-in that absorbs
// arbitrary calls.
type TournamentSource interface {
	ForUser(ctx context.Context, username string) ([]TournamentSummary, error)
}

// NoopTournamentSource returns no history and never fails.
type NoopTournamentSource struct{}

func (NoopTournamentSource) ForUser(ctx context.Context, username string) ([]TournamentSummary, error) {
	return nil, nil
}
