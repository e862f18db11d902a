package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/socialgraph/backend/internal/metrics"
	"github.com/socialgraph/backend/internal/models"
	"github.com/socialgraph/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationPageSize is how many notifications a recipient sees.
const NotificationPageSize = 50

// NotificationService writes and reads notifications. The actor's username
// and profile picture are copied into the payload when the notification is
// created and are never joined live afterwards.
type NotificationService struct {
	notifications repositories.NotificationRepository
	users         repositories.UserRepository
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

func NewNotificationService(
	notifications repositories.NotificationRepository,
	users repositories.UserRepository,
	m *metrics.Metrics,
	logger *slog.Logger,
) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		users:         users,
		metrics:       m,
		logger:        logger,
	}
}

// Notify stores one notification for recipientID.
func (s *NotificationService) Notify(ctx context.Context, recipientID string, typ models.NotificationType, data map[string]interface{}) (*models.Notification, error) {
	recipient, err := repositories.ParseID(recipientID)
	if err != nil {
		return nil, err
	}
	payload, err := s.Snapshot(ctx, data)
	if err != nil {
		return nil, err
	}

	n := &models.Notification{
		UserID: recipient,
		Type:   typ,
		Data:   payload,
	}
	if err := s.notifications.CreateNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("create %s notification: %w", typ, err)
	}
	s.metrics.NotificationsCreated.WithLabelValues(string(typ)).Inc()
	return n, nil
}

// NotifyMany stores one notification per recipient sharing the same payload.
// The payload must already be a snapshot (see Snapshot).
func (s *NotificationService) NotifyMany(ctx context.Context, recipients []primitive.ObjectID, typ models.NotificationType, payload map[string]interface{}) error {
	batch := make([]models.Notification, len(recipients))
	for i, r := range recipients {
		batch[i] = models.Notification{
			UserID: r,
			Type:   typ,
			Data:   copyPayload(payload),
		}
	}
	if err := s.notifications.CreateNotifications(ctx, batch); err != nil {
		return fmt.Errorf("create %d %s notifications: %w", len(batch), typ, err)
	}
	s.metrics.NotificationsCreated.WithLabelValues(string(typ)).Add(float64(len(batch)))
	return nil
}

// Snapshot copies data and, when it names an originating actor under
// fromUser, embeds the actor's current username and profile picture.
// An actor that no longer exists leaves the payload as given.
func (s *NotificationService) Snapshot(ctx context.Context, data map[string]interface{}) (map[string]interface{}, error) {
	payload := copyPayload(data)
	actorID, ok := payload[models.DataFromUser].(string)
	if !ok || actorID == "" {
		return payload, nil
	}

	actor, err := s.users.GetUserByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) || errors.Is(err, repositories.ErrInvalidID) {
			s.logger.Warn("notification actor not found", "actor_id", actorID)
			return payload, nil
		}
		return nil, fmt.Errorf("resolve notification actor: %w", err)
	}

	payload[models.DataFromUser] = actor.ID.Hex()
	payload[models.DataFromUsername] = actor.Username
	if actor.ProfilePicture != "" {
		payload[models.DataFromProfilePicture] = actor.ProfilePicture
	} else {
		payload[models.DataFromProfilePicture] = nil
	}
	return payload, nil
}

// GetNotifications returns the recipient's latest notifications, newest first.
func (s *NotificationService) GetNotifications(ctx context.Context, recipientID string) ([]models.Notification, error) {
	recipient, err := repositories.ParseID(recipientID)
	if err != nil {
		return nil, err
	}
	return s.notifications.GetByRecipient(ctx, recipient, NotificationPageSize)
}

func (s *NotificationService) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	recipient, err := repositories.ParseID(recipientID)
	if err != nil {
		return 0, err
	}
	return s.notifications.GetUnreadCount(ctx, recipient)
}

// MarkAllRead flags every unread notification of the recipient as read.
// Having nothing to mark is not an error.
func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID string) error {
	recipient, err := repositories.ParseID(recipientID)
	if err != nil {
		return err
	}
	n, err := s.notifications.MarkAllAsRead(ctx, recipient)
	if err != nil {
		return err
	}
	s.logger.Debug("notifications marked read", "user_id", recipientID, "count", n)
	return nil
}

func copyPayload(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data)+2)
	for k, v := range data {
		out[k] = v
	}
	return out
}
