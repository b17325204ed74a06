package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vanshika/shelfwise/internal/domain"
)

// ErrInvalidUserID indicates an empty or malformed reader identifier.
var ErrInvalidUserID = errors.New("invalid user id")

// MaxLimit caps how many recommendations one request may ask for.
const MaxLimit = 100

// Recommender produces explained recommendations for one reader.
type Recommender interface {
	Recommend(ctx context.Context, userID string, topN int) ([]domain.Recommendation, error)
}

// RecommendationService validates requests and fans batch requests out to a
// bounded worker pool.
type RecommendationService struct {
	recommender Recommender
	workers     int
}

func NewRecommendationService(recommender Recommender, workers int) *RecommendationService {
	if workers <= 0 {
		workers = 4
	}
	return &RecommendationService{recommender: recommender, workers: workers}
}

// Recommend returns up to limit books for userID. A non-positive limit uses
// the recommender's default; larger values are capped at MaxLimit.
func (s *RecommendationService) Recommend(ctx context.Context, userID string, limit int) ([]domain.Recommendation, error) {
	id := sanitizeString(userID)
	if id == "" {
		return nil, ErrInvalidUserID
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	recs, err := s.recommender.Recommend(ctx, id, limit)
	if err != nil {
		return nil, fmt.Errorf("recommend for %s: %w", id, err)
	}
	return recs, nil
}

// RecommendBatch runs Recommend for every distinct user. Results for users that
// succeeded are returned even when others fail; the failures come back as a
// *TaskError.
func (s *RecommendationService) RecommendBatch(ctx context.Context, userIDs []string, limit int) (map[string][]domain.Recommendation, error) {
	ids := make([]string, 0, len(userIDs))
	seen := make(map[string]struct{}, len(userIDs))
	for _, raw := range userIDs {
		id := sanitizeString(raw)
		if id == "" {
			return nil, ErrInvalidUserID
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	var mu sync.Mutex
	out := make(map[string][]domain.Recommendation, len(ids))
	err := runPool(ctx, s.workers, len(ids), func(idx int) error {
		recs, err := s.Recommend(ctx, ids[idx], limit)
		if err != nil {
			return err
		}
		mu.Lock()
		out[ids[idx]] = recs
		mu.Unlock()
		return nil
	})
	return out, err
}
