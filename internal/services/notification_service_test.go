package services

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/socialgraph/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNotifySnapshotsActor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	actor, recipient := env.createUser(t, "alice"), env.createUser(t, "bob")
	_, err := env.userSvc.UpdateProfilePicture(ctx, actor.ID.Hex(), "https://cdn/a.png")
	require.NoError(t, err)

	n, err := env.notify.Notify(ctx, recipient.ID.Hex(), models.NotificationLike, map[string]interface{}{
		models.DataFromUser: actor.ID.Hex(),
		models.DataPostID:   "p1",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", n.Data[models.DataFromUsername])
	assert.Equal(t, "https://cdn/a.png", n.Data[models.DataFromProfilePicture])
	assert.Equal(t, "p1", n.Data[models.DataPostID])

	// Renaming later does not rewrite stored notifications.
	_, err = env.userSvc.UpdateProfile(ctx, actor.ID.Hex(), models.UpdateProfileRequest{Username: "alicia"})
	require.NoError(t, err)
	list, err := env.notify.GetNotifications(ctx, recipient.ID.Hex())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "alice", list[0].Data[models.DataFromUsername])

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.NotificationsCreated.WithLabelValues("like")))
}

func TestNotifyUnknownActorKeepsPayload(t *testing.T) {
	env := newTestEnv(t)
	recipient := env.createUser(t, "bob")
	ghost := primitive.NewObjectID().Hex()

	n, err := env.notify.Notify(context.Background(), recipient.ID.Hex(), models.NotificationFollow, map[string]interface{}{
		models.DataFromUser: ghost,
	})
	require.NoError(t, err)
	assert.Equal(t, ghost, n.Data[models.DataFromUser])
	assert.NotContains(t, n.Data, models.DataFromUsername)
}

func TestSnapshotWithoutPicture(t *testing.T) {
	env := newTestEnv(t)
	actor := env.createUser(t, "alice")

	payload, err := env.notify.Snapshot(context.Background(), map[string]interface{}{models.DataFromUser: actor.ID.Hex()})
	require.NoError(t, err)
	assert.Contains(t, payload, models.DataFromProfilePicture)
	assert.Nil(t, payload[models.DataFromProfilePicture])
}

func TestNotificationsNewestFirstAndCapped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	recipient := env.createUser(t, "bob")

	for i := 0; i < NotificationPageSize+5; i++ {
		_, err := env.notify.Notify(ctx, recipient.ID.Hex(), models.NotificationNewPost, map[string]interface{}{"seq": i})
		require.NoError(t, err)
	}

	list, err := env.notify.GetNotifications(ctx, recipient.ID.Hex())
	require.NoError(t, err)
	require.Len(t, list, NotificationPageSize)
	assert.Equal(t, NotificationPageSize+4, list[0].Data["seq"])
	assert.True(t, list[0].CreatedAt.After(list[1].CreatedAt))
}

func TestMarkAllRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	recipient, other := env.createUser(t, "bob"), env.createUser(t, "carol")

	for _, u := range []*models.User{recipient, recipient, other} {
		_, err := env.notify.Notify(ctx, u.ID.Hex(), models.NotificationComment, nil)
		require.NoError(t, err)
	}

	unread, err := env.notify.UnreadCount(ctx, recipient.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	require.NoError(t, env.notify.MarkAllRead(ctx, recipient.ID.Hex()))
	require.NoError(t, env.notify.MarkAllRead(ctx, recipient.ID.Hex()))

	list, err := env.notify.GetNotifications(ctx, recipient.ID.Hex())
	require.NoError(t, err)
	for _, n := range list {
		assert.True(t, n.Read)
	}
	unread, err = env.notify.UnreadCount(ctx, other.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)
}

func TestNotifyMany(t *testing.T) {
	env := newTestEnv(t)
	a, b := env.createUser(t, "a"), env.createUser(t, "b")

	payload := map[string]interface{}{models.DataPostID: "p1"}
	require.NoError(t, env.notify.NotifyMany(context.Background(), []primitive.ObjectID{a.ID, b.ID}, models.NotificationNewPost, payload))

	assert.Len(t, notificationsOf(env, a, models.NotificationNewPost), 1)
	assert.Len(t, notificationsOf(env, b, models.NotificationNewPost), 1)
	assert.Equal(t, 2.0, testutil.ToFloat64(env.metrics.NotificationsCreated.WithLabelValues("new_post")))
}
