package db

import (
	"github.com/jackc/pgx/v5"

	"github.com/gyeh/claimstats/internal/model"
)

// ClaimSource implements pgx.CopyFromSource by reading ClaimRows from a
// channel. The channel gives natural backpressure between the producer
// flattening scored claims and the COPY writer.
type ClaimSource struct {
	ch      <-chan *model.ClaimRow
	current *model.ClaimRow
	err     error
}

// NewClaimSource creates a CopyFromSource backed by a channel.
func NewClaimSource(ch <-chan *model.ClaimRow) *ClaimSource {
	return &ClaimSource{ch: ch}
}

// Next advances to the next row. Returns false when the channel is closed.
func (s *ClaimSource) Next() bool {
	row, ok := <-s.ch
	if !ok {
		return false
	}
	s.current = row
	return true
}

// Values returns the current row's values in COPY column order.
func (s *ClaimSource) Values() ([]any, error) {
	return s.current.CopyValues(), nil
}

// Err returns any error encountered during iteration.
func (s *ClaimSource) Err() error {
	return s.err
}

var _ pgx.CopyFromSource = (*ClaimSource)(nil)
