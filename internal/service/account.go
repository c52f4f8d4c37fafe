package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"arcstore-api/internal/model"
	"arcstore-api/internal/repository"
)

// searchLimit caps user search results.
const searchLimit = 20

// ErrInvalidCredentials is returned when a name/password pair does not match.
var ErrInvalidCredentials = errors.New("invalid user name or password")

// AccountService serves the read side of the account page.
type AccountService struct {
	game repository.GameRepository
	now  func() time.Time
}

// NewAccountService creates a new account service.
func NewAccountService(game repository.GameRepository) *AccountService {
	return &AccountService{game: game, now: time.Now}
}

// Authenticate checks the user's game credentials.
func (s *AccountService) Authenticate(ctx context.Context, name, password string) (*model.User, error) {
	user, err := s.game.VerifyPassword(ctx, name, password)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	return user, nil
}

// Profile returns the user with the presents still waiting in the mailbox
// and the course banners they own.
func (s *AccountService) Profile(ctx context.Context, userID int64) (*model.Profile, error) {
	user, err := s.game.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	presents, err := s.game.ListPendingPresents(ctx, userID, model.Millis(s.now()))
	if err != nil {
		return nil, err
	}

	banners, err := s.game.ListBanners(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &model.Profile{User: *user, PendingPresents: presents, Banners: banners}, nil
}

// SearchUsers finds gift recipients by name fragment.
func (s *AccountService) SearchUsers(ctx context.Context, query string) ([]model.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []model.User{}, nil
	}
	return s.game.SearchUsers(ctx, query, searchLimit)
}
