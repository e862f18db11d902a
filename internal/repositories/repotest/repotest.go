// Package repotest provides in-memory repositories for tests. They follow
// the same contracts as the MongoDB implementations, including sentinel
// errors and newest-first ordering.
package repotest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/socialgraph/backend/internal/models"
	"github.com/socialgraph/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Clock hands out strictly increasing timestamps so ordering is deterministic.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *Clock) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type Users struct {
	mu    sync.Mutex
	clock *Clock
	byID  map[primitive.ObjectID]*models.User
	order []primitive.ObjectID
}

func NewUsers(clock *Clock) *Users {
	return &Users{clock: clock, byID: map[primitive.ObjectID]*models.User{}}
}

func cloneUser(u *models.User, withPassword bool) *models.User {
	c := *u
	c.Following = append([]string{}, u.Following...)
	c.Followers = append([]string{}, u.Followers...)
	if !withPassword {
		c.Password = ""
	}
	return &c
}

func (r *Users) CreateUser(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Username == user.Username || (user.Email != "" && u.Email == user.Email) {
			return fmt.Errorf("user: %w", repositories.ErrDuplicateKey)
		}
	}
	user.ID = primitive.NewObjectID()
	user.CreatedAt = r.clock.Next()
	if user.Following == nil {
		user.Following = []string{}
	}
	if user.Followers == nil {
		user.Followers = []string{}
	}
	r.byID[user.ID] = cloneUser(user, true)
	r.order = append(r.order, user.ID)
	return nil
}

// Put stores u as is, bypassing uniqueness checks. Used to seed
// inconsistent data.
func (r *Users) Put(u *models.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[u.ID]; !ok {
		r.order = append(r.order, u.ID)
	}
	r.byID[u.ID] = cloneUser(u, true)
}

func (r *Users) get(id string) (*models.User, error) {
	objID, err := repositories.ParseID(id)
	if err != nil {
		return nil, err
	}
	u, ok := r.byID[objID]
	if !ok {
		return nil, fmt.Errorf("user: %w", repositories.ErrNotFound)
	}
	return u, nil
}

func (r *Users) GetUserByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, err := r.get(id)
	if err != nil {
		return nil, err
	}
	return cloneUser(u, false), nil
}

func (r *Users) findBy(match func(*models.User) bool, withPassword bool) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.order {
		if u := r.byID[id]; match(u) {
			return cloneUser(u, withPassword), nil
		}
	}
	return nil, fmt.Errorf("user: %w", repositories.ErrNotFound)
}

func (r *Users) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	return r.findBy(func(u *models.User) bool { return u.Email == email }, true)
}

func (r *Users) GetUserByFirebaseUID(_ context.Context, uid string) (*models.User, error) {
	return r.findBy(func(u *models.User) bool { return uid != "" && u.FirebaseUID == uid }, false)
}

func (r *Users) list(keep func(*models.User) bool, limit int64) []models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.User{}
	for _, id := range r.order {
		if u := r.byID[id]; keep(u) {
			out = append(out, *cloneUser(u, false))
			if limit > 0 && int64(len(out)) == limit {
				break
			}
		}
	}
	return out
}

func (r *Users) GetUsers(context.Context) ([]models.User, error) {
	return r.list(func(*models.User) bool { return true }, 0), nil
}

func (r *Users) GetUsersByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	set := idSet(ids)
	return r.list(func(u *models.User) bool { return set[u.ID] }, 0), nil
}

func (r *Users) GetUsersExcluding(_ context.Context, exclude []primitive.ObjectID, limit int64) ([]models.User, error) {
	set := idSet(exclude)
	return r.list(func(u *models.User) bool { return !set[u.ID] }, limit), nil
}

func (r *Users) update(id string, apply func(*models.User) error) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, err := r.get(id)
	if err != nil {
		return nil, err
	}
	if err := apply(u); err != nil {
		return nil, err
	}
	return cloneUser(u, false), nil
}

func (r *Users) UpdateProfilePicture(_ context.Context, id, url string) (*models.User, error) {
	return r.update(id, func(u *models.User) error {
		u.ProfilePicture = url
		return nil
	})
}

func (r *Users) UpdateUsername(_ context.Context, id, username string) (*models.User, error) {
	return r.update(id, func(u *models.User) error {
		for _, other := range r.byID {
			if other.ID != u.ID && other.Username == username {
				return fmt.Errorf("user: %w", repositories.ErrDuplicateKey)
			}
		}
		u.Username = username
		return nil
	})
}

func (r *Users) LinkFirebaseUID(_ context.Context, id, uid string) error {
	_, err := r.update(id, func(u *models.User) error {
		u.FirebaseUID = uid
		return nil
	})
	return err
}

func (r *Users) AddFollow(_ context.Context, actorID, targetID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	actor, err := r.get(actorID)
	if err != nil {
		return false, err
	}
	target, err := r.get(targetID)
	if err != nil {
		return false, err
	}
	changed := !contains(actor.Following, targetID)
	if changed {
		actor.Following = append(actor.Following, targetID)
	}
	if !contains(target.Followers, actorID) {
		target.Followers = append(target.Followers, actorID)
	}
	return changed, nil
}

func (r *Users) RemoveFollow(_ context.Context, actorID, targetID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	actor, err := r.get(actorID)
	if err != nil {
		return false, err
	}
	target, err := r.get(targetID)
	if err != nil {
		return false, err
	}
	changed := contains(actor.Following, targetID)
	actor.Following = without(actor.Following, targetID)
	target.Followers = without(target.Followers, actorID)
	return changed, nil
}

func (r *Users) DedupeFollowLists(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	changed := 0
	for _, u := range r.byID {
		following := repositories.DedupeIDs(u.Following)
		followers := repositories.DedupeIDs(u.Followers)
		if len(following) != len(u.Following) || len(followers) != len(u.Followers) {
			u.Following, u.Followers = following, followers
			changed++
		}
	}
	return changed, nil
}

type Posts struct {
	mu    sync.Mutex
	clock *Clock
	byID  map[primitive.ObjectID]*models.Post
}

func NewPosts(clock *Clock) *Posts {
	return &Posts{clock: clock, byID: map[primitive.ObjectID]*models.Post{}}
}

func clonePost(p *models.Post) models.Post {
	c := *p
	c.Likes = append([]primitive.ObjectID{}, p.Likes...)
	c.Media = append([]models.Media{}, p.Media...)
	return c
}

func (r *Posts) CreatePost(_ context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	post.ID = primitive.NewObjectID()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = r.clock.Next()
	}
	if post.Likes == nil {
		post.Likes = []primitive.ObjectID{}
	}
	if post.Media == nil {
		post.Media = []models.Media{}
	}
	c := clonePost(post)
	r.byID[post.ID] = &c
	return nil
}

func (r *Posts) GetPostByID(_ context.Context, id primitive.ObjectID) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("post: %w", repositories.ErrNotFound)
	}
	c := clonePost(p)
	return &c, nil
}

func (r *Posts) list(keep func(*models.Post) bool, skip, limit int64) []models.Post {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Post{}
	for _, p := range r.byID {
		if keep(p) {
			out = append(out, clonePost(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.Hex() > out[j].ID.Hex()
	})
	if skip >= int64(len(out)) {
		return []models.Post{}
	}
	out = out[skip:]
	if limit > 0 && limit < int64(len(out)) {
		out = out[:limit]
	}
	return out
}

func (r *Posts) GetPostsByAuthor(_ context.Context, authorID primitive.ObjectID) ([]models.Post, error) {
	return r.list(func(p *models.Post) bool { return p.Author == authorID }, 0, 0), nil
}

func (r *Posts) GetPostsByAuthors(_ context.Context, authorIDs []primitive.ObjectID, skip, limit int64) ([]models.Post, error) {
	set := idSet(authorIDs)
	return r.list(func(p *models.Post) bool { return set[p.Author] }, skip, limit), nil
}

func (r *Posts) GetAllPosts(_ context.Context, skip, limit int64) ([]models.Post, error) {
	return r.list(func(*models.Post) bool { return true }, skip, limit), nil
}

func (r *Posts) GetPostsSince(_ context.Context, since time.Time) ([]models.Post, error) {
	return r.list(func(p *models.Post) bool { return !p.CreatedAt.Before(since) }, 0, 0), nil
}

func (r *Posts) AddLike(_ context.Context, postID, userID primitive.ObjectID) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[postID]
	if !ok || containsID(p.Likes, userID) {
		return nil, nil
	}
	p.Likes = append(p.Likes, userID)
	c := clonePost(p)
	return &c, nil
}

func (r *Posts) RemoveLike(_ context.Context, postID, userID primitive.ObjectID) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[postID]
	if !ok || !containsID(p.Likes, userID) {
		return nil, nil
	}
	kept := p.Likes[:0]
	for _, id := range p.Likes {
		if id != userID {
			kept = append(kept, id)
		}
	}
	p.Likes = kept
	c := clonePost(p)
	return &c, nil
}

type Comments struct {
	mu       sync.Mutex
	clock    *Clock
	comments []models.Comment
}

func NewComments(clock *Clock) *Comments {
	return &Comments{clock: clock}
}

func (r *Comments) CreateComment(_ context.Context, comment *models.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	comment.ID = primitive.NewObjectID()
	comment.CreatedAt = r.clock.Next()
	r.comments = append(r.comments, *comment)
	return nil
}

func (r *Comments) GetCommentsByPostID(_ context.Context, postID primitive.ObjectID) ([]models.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Comment{}
	for _, c := range r.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	return out, nil
}

type Notifications struct {
	mu    sync.Mutex
	clock *Clock
	items []models.Notification
	// Err, when set, is returned by every write.
	Err error
}

func NewNotifications(clock *Clock) *Notifications {
	return &Notifications{clock: clock}
}

func (r *Notifications) CreateNotification(_ context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	n.ID = primitive.NewObjectID()
	n.CreatedAt = r.clock.Next()
	r.items = append(r.items, *n)
	return nil
}

func (r *Notifications) CreateNotifications(ctx context.Context, ns []models.Notification) error {
	for i := range ns {
		if err := r.CreateNotification(ctx, &ns[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *Notifications) GetByRecipient(_ context.Context, recipientID primitive.ObjectID, limit int64) ([]models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Notification{}
	for i := len(r.items) - 1; i >= 0; i-- {
		if r.items[i].UserID == recipientID {
			out = append(out, r.items[i])
			if limit > 0 && int64(len(out)) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *Notifications) GetUnreadCount(_ context.Context, recipientID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, item := range r.items {
		if item.UserID == recipientID && !item.Read {
			n++
		}
	}
	return n, nil
}

func (r *Notifications) MarkAllAsRead(_ context.Context, recipientID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for i := range r.items {
		if r.items[i].UserID == recipientID && !r.items[i].Read {
			r.items[i].Read = true
			n++
		}
	}
	return n, nil
}

// All returns every stored notification, oldest first.
func (r *Notifications) All() []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Notification(nil), r.items...)
}

// Fanout records enqueued jobs.
type Fanout struct {
	mu   sync.Mutex
	Jobs []models.FanoutJob
	Err  error
}

func (f *Fanout) Enqueue(_ context.Context, postID, authorID string) (*models.FanoutJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	job := models.FanoutJob{ID: fmt.Sprintf("job-%d", len(f.Jobs)+1), PostID: postID, AuthorID: authorID, Status: models.FanoutPending}
	f.Jobs = append(f.Jobs, job)
	return &job, nil
}

func idSet(ids []primitive.ObjectID) map[primitive.ObjectID]bool {
	set := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

var (
	_ repositories.UserRepository         = (*Users)(nil)
	_ repositories.PostRepository         = (*Posts)(nil)
	_ repositories.CommentRepository      = (*Comments)(nil)
	_ repositories.NotificationRepository = (*Notifications)(nil)
)
