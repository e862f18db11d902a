package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/socialgraph/backend/internal/metrics"
	"github.com/socialgraph/backend/internal/models"
	"github.com/socialgraph/backend/internal/repositories/repotest"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	clock         *repotest.Clock
	users         *repotest.Users
	posts         *repotest.Posts
	comments      *repotest.Comments
	notifications *repotest.Notifications
	fanout        *repotest.Fanout
	metrics       *metrics.Metrics

	userSvc *UserService
	graph   *GraphService
	notify  *NotificationService
	postSvc *PostService
	feed    *FeedService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := repotest.NewClock()
	env := &testEnv{
		clock:         clock,
		users:         repotest.NewUsers(clock),
		posts:         repotest.NewPosts(clock),
		comments:      repotest.NewComments(clock),
		notifications: repotest.NewNotifications(clock),
		fanout:        &repotest.Fanout{},
		metrics:       metrics.New(prometheus.NewRegistry()),
	}
	env.userSvc = NewUserService(env.users, logger)
	env.notify = NewNotificationService(env.notifications, env.users, env.metrics, logger)
	env.graph = NewGraphService(env.users, env.notify, logger)
	env.postSvc = NewPostService(env.posts, env.comments, env.users, env.notify, env.fanout, logger)
	env.feed = NewFeedService(env.users, env.posts, env.metrics, logger)
	return env
}

func (e *testEnv) createUser(t *testing.T, username string) *models.User {
	t.Helper()
	u, err := e.userSvc.Create(context.Background(), username, username+"@example.com", "hash")
	require.NoError(t, err)
	return u
}

func (e *testEnv) reload(t *testing.T, u *models.User) *models.User {
	t.Helper()
	got, err := e.users.GetUserByID(context.Background(), u.ID.Hex())
	require.NoError(t, err)
	return got
}

func (e *testEnv) createPost(t *testing.T, author *models.User, title string) *models.Post {
	t.Helper()
	p, err := e.postSvc.CreatePost(context.Background(), author.ID.Hex(), title, "body", nil)
	require.NoError(t, err)
	return p
}

func count(ids []string, id string) int {
	n := 0
	for _, v := range ids {
		if v == id {
			n++
		}
	}
	return n
}

func notificationsOf(e *testEnv, recipient *models.User, typ models.NotificationType) []models.Notification {
	var out []models.Notification
	for _, n := range e.notifications.All() {
		if n.UserID == recipient.ID && n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}
