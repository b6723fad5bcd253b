package service

import (
	"context"
	"strings"

	"socialgraph/internal/database"
	"socialgraph/internal/identity"
	"socialgraph/internal/models"
	"socialgraph/internal/repository"

	"github.com/google/uuid"
)

// DefaultSuggestionLimit is how many users are suggested when no limit is given.
const DefaultSuggestionLimit = 3

const maxUsernameAttempts = 5

type UserService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// SyncUser mirrors an external identity into a local profile. Calling it again
// for a subject that already has a profile returns that profile unchanged.
func (s *UserService) SyncUser(ctx context.Context, ext identity.External) (*models.User, error) {
	if ext.Subject == "" {
		return nil, models.NewValidationError("Identity subject is required")
	}
	existing, err := s.users.GetByExternalID(ctx, ext.Subject)
	if err == nil {
		return existing, nil
	}
	if !repository.IsNotFound(err) {
		return nil, storeError("Failed to sync user", err)
	}

	email := strings.ToLower(strings.TrimSpace(ext.Email))
	if email == "" {
		return nil, models.NewValidationError("Identity has no email address")
	}

	base := usernameFor(ext.Username, email)
	for attempt := 0; attempt < maxUsernameAttempts; attempt++ {
		username := base
		if attempt > 0 {
			username = base + "_" + uuid.NewString()[:6]
		}
		user := &models.User{
			ExternalID: ext.Subject,
			Email:      email,
			Username:   username,
			Name:       strings.TrimSpace(ext.Name),
			Image:      ext.ImageURL,
		}
		err := s.users.Create(ctx, user)
		if err == nil {
			return user, nil
		}
		if !database.IsUniqueViolation(err) {
			return nil, storeError("Failed to sync user", err)
		}

		// Either a concurrent sync created this subject, or the username,
		// or the email, is taken.
		if u, getErr := s.users.GetByExternalID(ctx, ext.Subject); getErr == nil {
			return u, nil
		}
		if _, getErr := s.users.GetByUsername(ctx, username); getErr != nil {
			// Username is free, so the email collided with another subject.
			return nil, models.NewValidationError("Email is already linked to another account")
		}
	}
	return nil, models.NewStoreError("Failed to sync user", errUsernameExhausted)
}

// GetByExternalID returns the profile of an external subject with its
// follower, following and post counts.
func (s *UserService) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	user, err := s.users.GetByExternalID(ctx, externalID)
	if repository.IsNotFound(err) {
		return nil, models.NewNotFoundError("User", externalID)
	}
	if err != nil {
		return nil, storeError("Failed to fetch user", err)
	}
	return s.withCounts(ctx, user)
}

func (s *UserService) GetProfileByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if repository.IsNotFound(err) {
		return nil, models.NewNotFoundError("User", username)
	}
	if err != nil {
		return nil, storeError("Failed to fetch profile", err)
	}
	return s.withCounts(ctx, user)
}

// Suggestions lists users the actor might follow: never the actor and never
// someone already followed. Anonymous actors get no suggestions.
func (s *UserService) Suggestions(ctx context.Context, actor identity.Actor, limit int) ([]models.User, error) {
	userID, ok := actor.ID()
	if !ok {
		return []models.User{}, nil
	}
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}
	users, err := s.users.Suggestions(ctx, userID, limit)
	if err != nil {
		return nil, storeError("Failed to fetch suggestions", err)
	}
	for i := range users {
		if err := s.users.PopulateCounts(ctx, &users[i]); err != nil {
			return nil, storeError("Failed to fetch suggestions", err)
		}
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

func (s *UserService) withCounts(ctx context.Context, user *models.User) (*models.User, error) {
	if err := s.users.PopulateCounts(ctx, user); err != nil {
		return nil, storeError("Failed to fetch user", err)
	}
	return user, nil
}

func usernameFor(preferred, email string) string {
	if u := strings.TrimSpace(preferred); u != "" {
		return strings.ToLower(u)
	}
	local, _, _ := strings.Cut(email, "@")
	return local
}
