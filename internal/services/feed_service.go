package services

import (
	"context"
	"log/slog"

	"github.com/socialgraph/backend/internal/metrics"
	"github.com/socialgraph/backend/internal/models"
	"github.com/socialgraph/backend/internal/repositories"
)

// FeedService assembles a user's timeline.
type FeedService struct {
	users   repositories.UserRepository
	posts   repositories.PostRepository
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewFeedService(users repositories.UserRepository, posts repositories.PostRepository, m *metrics.Metrics, logger *slog.Logger) *FeedService {
	return &FeedService{users: users, posts: posts, metrics: m, logger: logger}
}

// GetTimeline returns one page of posts written by the user or anyone they
// follow, newest first. Malformed entries in the following list are skipped
// and reported, not treated as errors.
func (s *FeedService) GetTimeline(ctx context.Context, userID string, page Page) ([]models.Post, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	authors, dropped := repositories.FilterValidIDs(append([]string{user.ID.Hex()}, user.Following...))
	if len(dropped) > 0 {
		s.metrics.FeedDroppedIdentifiers.Add(float64(len(dropped)))
		s.logger.Warn("malformed ids in following list", "user_id", userID, "dropped", dropped)
	}

	return s.posts.GetPostsByAuthors(ctx, authors, page.Skip(), page.Take())
}
