package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/socialgraph/backend/internal/models"
	"github.com/socialgraph/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TrendingWindow is how far back trending posts are taken from.
const TrendingWindow = 7 * 24 * time.Hour

// maxToggleAttempts bounds the retries when a concurrent toggle flips the
// like between the add and remove attempts.
const maxToggleAttempts = 3

// FanoutEnqueuer schedules delivery of new_post notifications.
type FanoutEnqueuer interface {
	Enqueue(ctx context.Context, postID, authorID string) (*models.FanoutJob, error)
}

// PostService owns posts, likes and comments.
type PostService struct {
	posts         repositories.PostRepository
	comments      repositories.CommentRepository
	users         repositories.UserRepository
	notifications *NotificationService
	fanout        FanoutEnqueuer
	logger        *slog.Logger
	now           func() time.Time
}

func NewPostService(
	posts repositories.PostRepository,
	comments repositories.CommentRepository,
	users repositories.UserRepository,
	notifications *NotificationService,
	fanout FanoutEnqueuer,
	logger *slog.Logger,
) *PostService {
	return &PostService{
		posts:         posts,
		comments:      comments,
		users:         users,
		notifications: notifications,
		fanout:        fanout,
		logger:        logger,
		now:           time.Now,
	}
}

// CreatePost stores the post and schedules the new_post fan-out to the
// author's followers. A failure to schedule is logged and does not fail the post.
func (s *PostService) CreatePost(ctx context.Context, authorID, title, description string, media []models.Media) (*models.Post, error) {
	if len(media) > models.MaxPostMedia {
		return nil, fmt.Errorf("%w: at most %d media files per post", ErrInvalidInput, models.MaxPostMedia)
	}
	author, err := repositories.ParseID(authorID)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:       title,
		Description: description,
		Author:      author,
		Media:       media,
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		return nil, err
	}

	if _, err := s.fanout.Enqueue(ctx, post.ID.Hex(), authorID); err != nil {
		s.logger.Error("enqueue new_post fan-out failed", "post_id", post.ID.Hex(), "author_id", authorID, "error", err)
	}
	return post, nil
}

func (s *PostService) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	id, err := repositories.ParseID(postID)
	if err != nil {
		return nil, err
	}
	return s.posts.GetPostByID(ctx, id)
}

// ToggleLike likes the post for userID, or removes the like if present.
// Each direction is a single conditional update on the post document.
func (s *PostService) ToggleLike(ctx context.Context, postID, userID string) (*models.LikeResult, error) {
	pid, err := repositories.ParseID(postID)
	if err != nil {
		return nil, err
	}
	uid, err := repositories.ParseID(userID)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxToggleAttempts; attempt++ {
		post, err := s.posts.AddLike(ctx, pid, uid)
		if err != nil {
			return nil, err
		}
		if post != nil {
			if post.Author != uid {
				s.notifyAuthor(ctx, post, models.NotificationLike, map[string]interface{}{
					models.DataPostID:   postID,
					models.DataFromUser: userID,
				})
			}
			return &models.LikeResult{Liked: true, LikesCount: len(post.Likes)}, nil
		}

		post, err = s.posts.RemoveLike(ctx, pid, uid)
		if err != nil {
			return nil, err
		}
		if post != nil {
			return &models.LikeResult{Liked: false, LikesCount: len(post.Likes)}, nil
		}

		// Neither update matched: the post is gone, or another toggle raced us.
		if _, err := s.posts.GetPostByID(ctx, pid); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("toggle like on %s: too much contention", postID)
}

// AddComment stores the comment whether or not the post exists. The post's
// author is notified only when the post exists and the commenter is someone else.
func (s *PostService) AddComment(ctx context.Context, postID, userID, text string) (*models.Comment, error) {
	pid, err := repositories.ParseID(postID)
	if err != nil {
		return nil, err
	}
	uid, err := repositories.ParseID(userID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{PostID: pid, Author: uid, Text: text}
	if err := s.comments.CreateComment(ctx, comment); err != nil {
		return nil, err
	}

	post, err := s.posts.GetPostByID(ctx, pid)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return comment, nil
	case err != nil:
		s.logger.Error("load post for comment notification", "post_id", postID, "error", err)
		return comment, nil
	}
	if post.Author != uid {
		s.notifyAuthor(ctx, post, models.NotificationComment, map[string]interface{}{
			models.DataPostID:    postID,
			models.DataFromUser:  userID,
			models.DataCommentID: comment.ID.Hex(),
		})
	}
	return comment, nil
}

func (s *PostService) notifyAuthor(ctx context.Context, post *models.Post, typ models.NotificationType, data map[string]interface{}) {
	if _, err := s.notifications.Notify(ctx, post.Author.Hex(), typ, data); err != nil {
		s.logger.Error("post notification failed", "type", string(typ), "post_id", post.ID.Hex(), "error", err)
	}
}

// GetComments returns the comments of a post oldest first, each with its
// author reduced to the display-safe projection.
func (s *PostService) GetComments(ctx context.Context, postID string) ([]models.CommentView, error) {
	pid, err := repositories.ParseID(postID)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.GetCommentsByPostID(ctx, pid)
	if err != nil {
		return nil, err
	}

	authorIDs := make([]primitive.ObjectID, 0, len(comments))
	seen := make(map[primitive.ObjectID]bool)
	for _, c := range comments {
		if !seen[c.Author] {
			seen[c.Author] = true
			authorIDs = append(authorIDs, c.Author)
		}
	}
	authors, err := s.users.GetUsersByIDs(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]models.UserCompact, len(authors))
	for i := range authors {
		byID[authors[i].ID] = authors[i].ToCompact()
	}

	views := make([]models.CommentView, len(comments))
	for i, c := range comments {
		author, ok := byID[c.Author]
		if !ok {
			author = models.UserCompact{ID: c.Author}
		}
		views[i] = models.CommentView{
			ID:        c.ID,
			PostID:    c.PostID,
			Author:    author,
			Text:      c.Text,
			CreatedAt: c.CreatedAt,
		}
	}
	return views, nil
}

func (s *PostService) GetAllPosts(ctx context.Context, page Page) ([]models.Post, error) {
	return s.posts.GetAllPosts(ctx, page.Skip(), page.Take())
}

func (s *PostService) GetPostsByUser(ctx context.Context, userID string) ([]models.Post, error) {
	uid, err := repositories.ParseID(userID)
	if err != nil {
		return nil, err
	}
	return s.posts.GetPostsByAuthor(ctx, uid)
}

// GetTrendingPosts returns posts from the last TrendingWindow ranked by like
// count, newer first on ties.
func (s *PostService) GetTrendingPosts(ctx context.Context) ([]models.Post, error) {
	posts, err := s.posts.GetPostsSince(ctx, s.now().Add(-TrendingWindow))
	if err != nil {
		return nil, err
	}
	RankTrending(posts)
	return posts, nil
}

// RankTrending sorts posts in place by like count descending, then createdAt descending.
func RankTrending(posts []models.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		li, lj := len(posts[i].Likes), len(posts[j].Likes)
		if li != lj {
			return li > lj
		}
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
}
