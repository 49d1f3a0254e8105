// Package rating implements post-trade peer reviews and trust scoring.
//
// Each party of a completed trade may review the other exactly once.
// A review scores accuracy, honesty, and experience on a 1-5 scale;
// the rounded mean is credited to the reviewed user's trust score.
package rating

import (
	"context"
	"errors"
	"time"
)

var (
	ErrAlreadyRated     = errors.New("trade already rated by this user")
	ErrTradeNotComplete = errors.New("only completed trades can be rated")
	ErrNotParticipant   = errors.New("caller is not a participant of this trade")
)

// Rating is one party's review of the other after a completed trade.
type Rating struct {
	ID      string `json:"id"`
	TradeID string `json:"tradeId"`
	RaterID string `json:"raterId"`
	RateeID string `json:"rateeId"`

	// 1-5 scales
	Accuracy   int `json:"accuracy"`
	Honesty    int `json:"honesty"`
	Experience int `json:"experience"`

	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Points is the trust-score credit for this review: the mean of the
// three scales, rounded half up.
func (r *Rating) Points() int {
	return (r.Accuracy + r.Honesty + r.Experience + 1) / 3
}

// Store persists ratings.
type Store interface {
	Create(ctx context.Context, r *Rating) error
	// Exists reports whether the rater already reviewed this trade.
	Exists(ctx context.Context, tradeID, raterID string) (bool, error)
	// ListForUser returns reviews received by a user, newest first.
	ListForUser(ctx context.Context, rateeID string, limit int) ([]*Rating, error)
}
