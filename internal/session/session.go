// Package session keeps a user record for every chat which talks to the bot.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/lavrd/wattle-files-tg/internal/metrics"
	"github.com/lavrd/wattle-files-tg/internal/repo"
	"github.com/lavrd/wattle-files-tg/internal/types"
)

type Service struct {
	repo            repo.Repository
	metrics         *metrics.Metrics
	defaultSemester string
}

func New(repository repo.Repository, m *metrics.Metrics, defaultSemester string) *Service {
	return &Service{
		repo:            repository,
		metrics:         m,
		defaultSemester: defaultSemester,
	}
}

// Ensure returns a snapshot of the user behind the chat, creating the user on first contact.
// Existing users get the counter incremented and, when selection is not nil, the current selection updated.
// The second return value reports whether the user has just been created.
func (s *Service) Ensure(ctx context.Context, chat types.Chat, selection *int64) (types.User, bool, error) {
	logger := log.With().Int64("chat_id", chat.ID).Logger()

	_, err := s.repo.FindUser(ctx, chat.ID)
	switch {
	case errors.Is(err, types.ErrNotFound):
		user := types.User{
			ID:            chat.ID,
			FirstName:     chat.FirstName,
			LastName:      chat.LastName,
			Username:      chat.Username,
			Title:         chat.Title,
			Notifications: true,
			Semester:      s.defaultSemester,
		}
		if selection != nil {
			user.CurrentSelection = sql.NullInt64{Int64: *selection, Valid: true}
		}
		user, err = s.repo.CreateUser(ctx, user)
		if err == nil {
			logger.Debug().Msg("new user")
			s.metrics.UsersCreatedTotal.Inc()
			return user, true, nil
		}
		// Concurrent update from the same chat has created the user already.
		if !errors.Is(err, types.ErrDuplicateUser) {
			return types.User{}, false, fmt.Errorf("failed to create user: %w", err)
		}
		logger.Debug().Msg("user has been created concurrently")
	case err != nil:
		return types.User{}, false, fmt.Errorf("failed to find user: %w", err)
	}

	user, err := s.repo.UpdateUser(ctx, chat.ID, types.UserMutation{
		IncrementCounter: true,
		CurrentSelection: selection,
	})
	if err != nil {
		return types.User{}, false, fmt.Errorf("failed to update user: %w", err)
	}
	return user, false, nil
}

// SetSemester stores the semester of the user and reports whether it differs from the snapshot.
func (s *Service) SetSemester(ctx context.Context, user types.User, semester string) (types.User, bool, error) {
	updated, err := s.repo.UpdateUser(ctx, user.ID, types.UserMutation{Semester: &semester})
	if err != nil {
		return user, false, fmt.Errorf("failed to update semester: %w", err)
	}
	return updated, user.Semester != semester, nil
}

// SetNotifications stores the notifications flag of the user and reports whether it differs from the snapshot.
func (s *Service) SetNotifications(ctx context.Context, user types.User, enabled bool) (types.User, bool, error) {
	updated, err := s.repo.UpdateUser(ctx, user.ID, types.UserMutation{Notifications: &enabled})
	if err != nil {
		return user, false, fmt.Errorf("failed to update notifications: %w", err)
	}
	return updated, user.Notifications != enabled, nil
}
