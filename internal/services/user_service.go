package services

import (
	"context"
	"log/slog"

	"github.com/socialgraph/backend/internal/models"
	"github.com/socialgraph/backend/internal/repositories"
)

// SuggestedUsersLimit caps the suggestion list.
const SuggestedUsersLimit = 10

// UserService is the user directory.
type UserService struct {
	users  repositories.UserRepository
	logger *slog.Logger
}

func NewUserService(users repositories.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

// Create stores a new user. passwordHash must already be hashed.
// It fails with repositories.ErrDuplicateKey when the username or email is taken.
func (s *UserService) Create(ctx context.Context, username, email, passwordHash string) (*models.User, error) {
	user := &models.User{
		Username: username,
		Email:    email,
		Password: passwordHash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user created", "user_id", user.ID.Hex())
	return user, nil
}

// CreateFederated stores a user that signs in through Firebase and has no local password.
func (s *UserService) CreateFederated(ctx context.Context, username, email, firebaseUID string) (*models.User, error) {
	user := &models.User{
		Username:    username,
		Email:       email,
		FirebaseUID: firebaseUID,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.users.GetUserByID(ctx, id)
}

// GetByEmail returns the user with its password hash, for authentication only.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.users.GetUserByEmail(ctx, email)
}

func (s *UserService) GetByFirebaseUID(ctx context.Context, uid string) (*models.User, error) {
	return s.users.GetUserByFirebaseUID(ctx, uid)
}

func (s *UserService) LinkFirebaseUID(ctx context.Context, id, uid string) error {
	return s.users.LinkFirebaseUID(ctx, id, uid)
}

func (s *UserService) GetAll(ctx context.Context) ([]models.User, error) {
	return s.users.GetUsers(ctx)
}

// GetByIDs looks up a set of users. Malformed identifiers are ignored.
func (s *UserService) GetByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	valid, _ := repositories.FilterValidIDs(ids)
	if len(valid) == 0 {
		return []models.User{}, nil
	}
	return s.users.GetUsersByIDs(ctx, valid)
}

func (s *UserService) UpdateProfilePicture(ctx context.Context, id, url string) (*models.User, error) {
	return s.users.UpdateProfilePicture(ctx, id, url)
}

// UpdateProfile applies editable profile fields. Only the username is editable.
func (s *UserService) UpdateProfile(ctx context.Context, id string, req models.UpdateProfileRequest) (*models.User, error) {
	return s.users.UpdateUsername(ctx, id, req.Username)
}

// GetSuggested returns users that id does not follow yet, excluding id itself.
func (s *UserService) GetSuggested(ctx context.Context, id string) ([]models.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	exclude, _ := repositories.FilterValidIDs(user.Following)
	exclude = append(exclude, user.ID)
	return s.users.GetUsersExcluding(ctx, exclude, SuggestedUsersLimit)
}
