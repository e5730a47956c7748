package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"delegate-portal/internal/models"
	"delegate-portal/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrInvalidIdentity = errors.New("identity needs a user id and an email")

// Identity is a user as vouched for by the auth service.
type Identity struct {
	UserID   uuid.UUID
	Email    string
	FullName string
}

func (i Identity) normalized() Identity {
	i.Email = strings.TrimSpace(i.Email)
	i.FullName = strings.TrimSpace(i.FullName)
	return i
}

type UserService interface {
	// Sync keeps the local users row in step with the auth service so that
	// top-ups, transfers and delegate fee payments can find the user.
	Sync(ctx context.Context, id Identity) error
}

type userService struct {
	repo *repository.Repository
	log  *zap.Logger

	mu   sync.Mutex
	seen map[uuid.UUID]Identity
}

func NewUserService(repo *repository.Repository, log *zap.Logger) UserService {
	return &userService{repo: repo, log: log, seen: map[uuid.UUID]Identity{}}
}

func (s *userService) Sync(ctx context.Context, id Identity) error {
	id = id.normalized()
	if id.UserID == uuid.Nil || id.Email == "" {
		return ErrInvalidIdentity
	}

	s.mu.Lock()
	prev, ok := s.seen[id.UserID]
	s.mu.Unlock()
	if ok && prev == id {
		return nil
	}

	if err := s.repo.Users.Upsert(ctx, &models.User{
		ID:       id.UserID,
		Email:    id.Email,
		FullName: id.FullName,
	}); err != nil {
		return fmt.Errorf("sync user: %w", err)
	}

	s.mu.Lock()
	s.seen[id.UserID] = id
	s.mu.Unlock()

	if !ok {
		s.log.Debug("user synced", zap.String("user_id", id.UserID.String()))
	}
	return nil
}
