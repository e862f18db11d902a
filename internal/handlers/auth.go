package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/socialgraph/backend/internal/middleware"
	"github.com/socialgraph/backend/internal/models"
	"github.com/socialgraph/backend/internal/repositories"
	"github.com/socialgraph/backend/internal/services"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	users     *services.UserService
	jwtSecret string
	tokenTTL  time.Duration
	logger    *slog.Logger
}

func NewAuthHandler(users *services.UserService, jwtSecret string, tokenTTL time.Duration, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:     users,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		logger:    logger,
	}
}

// RegisterAuthRoutes registers authentication-related routes. firebaseAuth
// is nil when Firebase login is not configured.
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group, firebaseAuth echo.MiddlewareFunc) {
	g.POST("/auth/signup", h.Signup)
	g.POST("/auth/login", h.Login)
	if firebaseAuth != nil {
		g.POST("/auth/firebase", h.FirebaseLogin, firebaseAuth)
	}
}

// Signup handles local user registration with email and password
func (h *AuthHandler) Signup(c echo.Context) error {
	var req models.SignupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to hash password").SetInternal(err)
	}

	user, err := h.users.Create(c.Request().Context(), req.Username, strings.ToLower(req.Email), string(hashedPassword))
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return echo.NewHTTPError(http.StatusConflict, "Username or email already registered")
		}
		return httpError(err)
	}
	return h.respondWithToken(c, http.StatusCreated, user)
}

// Login handles local user authentication with email and password
func (h *AuthHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.users.GetByEmail(c.Request().Context(), strings.ToLower(req.Email))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
		}
		return httpError(err)
	}
	if user.Password == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	}
	return h.respondWithToken(c, http.StatusOK, user)
}

// FirebaseLogin exchanges a verified Firebase ID token for a local access
// token, creating or linking the local account on first use.
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	token, ok := c.Get(middleware.FirebaseTokenContextKey).(*auth.Token)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Missing Firebase token")
	}
	user, err := h.federatedUser(c.Request().Context(), token)
	if err != nil {
		return httpError(err)
	}
	return h.respondWithToken(c, http.StatusOK, user)
}

func (h *AuthHandler) federatedUser(ctx context.Context, token *auth.Token) (*models.User, error) {
	user, err := h.users.GetByFirebaseUID(ctx, token.UID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	email, _ := token.Claims["email"].(string)
	email = strings.ToLower(email)
	if email != "" {
		user, err = h.users.GetByEmail(ctx, email)
		switch {
		case err == nil:
			if err := h.users.LinkFirebaseUID(ctx, user.ID.Hex(), token.UID); err != nil {
				return nil, err
			}
			h.logger.Info("linked firebase account", "user_id", user.ID.Hex())
			return user, nil
		case !errors.Is(err, repositories.ErrNotFound):
			return nil, err
		}
	}

	name, _ := token.Claims["name"].(string)
	base := usernameFrom(name, email)
	for attempt := 0; ; attempt++ {
		username := base
		if attempt > 0 {
			username = base + "_" + uuid.NewString()[:6]
		}
		user, err = h.users.CreateFederated(ctx, username, email, token.UID)
		if !errors.Is(err, repositories.ErrDuplicateKey) || attempt == 3 {
			return user, err
		}
	}
}

var usernameChars = regexp.MustCompile(`[^a-zA-Z0-9_.]+`)

// usernameFrom derives a username candidate from a display name or email.
func usernameFrom(name, email string) string {
	candidate := name
	if candidate == "" {
		candidate, _, _ = strings.Cut(email, "@")
	}
	candidate = usernameChars.ReplaceAllString(strings.ToLower(candidate), "")
	if len(candidate) > 20 {
		candidate = candidate[:20]
	}
	if len(candidate) < 3 {
		candidate = "user" + candidate
	}
	return candidate
}

func (h *AuthHandler) respondWithToken(c echo.Context, status int, user *models.User) error {
	token, err := middleware.NewToken(h.jwtSecret, h.tokenTTL, user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token").SetInternal(err)
	}
	return c.JSON(status, models.TokenResponse{AccessToken: token})
}
