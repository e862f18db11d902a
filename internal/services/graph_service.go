package services

import (
	"context"
	"log/slog"

	"github.com/socialgraph/backend/internal/models"
	"github.com/socialgraph/backend/internal/repositories"
)

// FollowResult is returned by follow and unfollow. Self-targeted calls are
// no-ops reported through Message rather than errors.
type FollowResult struct {
	Message   string `json:"message"`
	Following bool   `json:"following"`
}

// GraphService maintains the mirrored following/followers lists.
type GraphService struct {
	users         repositories.UserRepository
	notifications *NotificationService
	logger        *slog.Logger
}

func NewGraphService(users repositories.UserRepository, notifications *NotificationService, logger *slog.Logger) *GraphService {
	return &GraphService{users: users, notifications: notifications, logger: logger}
}

// Follow makes actorID follow targetID. Repeating it is harmless; the target
// is notified only the first time.
func (s *GraphService) Follow(ctx context.Context, actorID, targetID string) (*FollowResult, error) {
	actorID, targetID, err := canonicalPair(actorID, targetID)
	if err != nil {
		return nil, err
	}
	if actorID == targetID {
		return &FollowResult{Message: "You cannot follow yourself"}, nil
	}
	if err := s.ensureUsers(ctx, actorID, targetID); err != nil {
		return nil, err
	}

	changed, err := s.users.AddFollow(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}
	if !changed {
		return &FollowResult{Message: "Already following this user", Following: true}, nil
	}

	data := map[string]interface{}{models.DataFromUser: actorID}
	if _, err := s.notifications.Notify(ctx, targetID, models.NotificationFollow, data); err != nil {
		// The follow is already committed.
		s.logger.Error("follow notification failed", "actor_id", actorID, "target_id", targetID, "error", err)
	}
	s.logger.Info("user followed", "actor_id", actorID, "target_id", targetID)
	return &FollowResult{Message: "Successfully followed user", Following: true}, nil
}

// Unfollow removes the relationship from both lists.
func (s *GraphService) Unfollow(ctx context.Context, actorID, targetID string) (*FollowResult, error) {
	actorID, targetID, err := canonicalPair(actorID, targetID)
	if err != nil {
		return nil, err
	}
	if actorID == targetID {
		return &FollowResult{Message: "You cannot unfollow yourself"}, nil
	}
	if err := s.ensureUsers(ctx, actorID, targetID); err != nil {
		return nil, err
	}

	changed, err := s.users.RemoveFollow(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}
	if !changed {
		return &FollowResult{Message: "Not following this user"}, nil
	}
	s.logger.Info("user unfollowed", "actor_id", actorID, "target_id", targetID)
	return &FollowResult{Message: "Successfully unfollowed user"}, nil
}

// canonicalPair parses both ids and returns their lowercase hex form, so the
// lists only ever hold one spelling of an id.
func canonicalPair(actorID, targetID string) (string, string, error) {
	actor, err := repositories.ParseID(actorID)
	if err != nil {
		return "", "", err
	}
	target, err := repositories.ParseID(targetID)
	if err != nil {
		return "", "", err
	}
	return actor.Hex(), target.Hex(), nil
}

func (s *GraphService) ensureUsers(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		if _, err := s.users.GetUserByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Repair dedupes every user's follow lists and returns how many users changed.
func (s *GraphService) Repair(ctx context.Context) (int, error) {
	n, err := s.users.DedupeFollowLists(ctx)
	if err != nil {
		return n, err
	}
	s.logger.Info("follow lists repaired", "users_updated", n)
	return n, nil
}
