package usecase

import (
	"context"
	"errors"
	"fmt"

	"cinema-core/internal/apperr"
	"cinema-core/internal/data/entity"
	"cinema-core/internal/data/lock"
	"cinema-core/internal/data/repository"
	"cinema-core/internal/data/store"
	"cinema-core/internal/versiontoken"
	"cinema-core/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// activationAttempts bounds the read-modify-replace retries of
// Activate and Deactivate under concurrent writes.
const activationAttempts = 3

// UserService operates on the user union. Methods that take a role only
// see users of that variant.
type UserService interface {
	Create(ctx context.Context, role entity.UserRole, login, passwordHash string) (entity.User, error)
	FindByID(ctx context.Context, role entity.UserRole, id uuid.UUID) (entity.User, error)
	FindAnyByID(ctx context.Context, id uuid.UUID) (entity.User, error)
	FindByIDWithToken(ctx context.Context, role entity.UserRole, id uuid.UUID, caller string) (entity.User, string, error)
	FindByLogin(ctx context.Context, role entity.UserRole, login string) (entity.User, error)
	FindAll(ctx context.Context, role entity.UserRole) ([]entity.User, error)
	FindAllMatching(ctx context.Context, role entity.UserRole, loginFragment string) ([]entity.User, error)
	Update(ctx context.Context, user entity.User, token, caller string) (entity.User, error)
	Delete(ctx context.Context, id uuid.UUID, role entity.UserRole) error
	Activate(ctx context.Context, id uuid.UUID) (entity.User, error)
	Deactivate(ctx context.Context, id uuid.UUID) (entity.User, error)
	Tickets(ctx context.Context, id uuid.UUID) ([]*entity.TicketDetails, error)
}

type userService struct {
	repo   *repository.Repository
	tokens versiontoken.Protocol
	locker lock.Locker
	log    *zap.Logger
}

func NewUserService(
	repo *repository.Repository,
	tokens versiontoken.Protocol,
	locker lock.Locker,
	log *zap.Logger,
) UserService {
	return &userService{
		repo:   repo,
		tokens: tokens,
		locker: locker,
		log:    log.With(zap.String("service", "user")),
	}
}

// Create stores a new active user. passwordHash must already be hashed.
// The login is checked against every variant; the store's unique key
// catches a concurrent duplicate the check missed.
func (s *userService) Create(ctx context.Context, role entity.UserRole, login, passwordHash string) (entity.User, error) {
	user, err := entity.NewUser(role, entity.Account{
		Base:     entity.Base{ID: utils.GenerateUUID()},
		Login:    login,
		Password: passwordHash,
		Active:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w: %v", apperr.ErrValidation, err)
	}

	existing, err := s.repo.User.FindByLogin(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	if existing != nil {
		s.log.Warn("Login already taken",
			zap.String("login", login),
			zap.String("requested_role", string(role)),
			zap.String("existing_role", string(existing.Role())),
		)
		return nil, fmt.Errorf("create user %q: %w", login, apperr.ErrDuplicateLogin)
	}

	if err := s.repo.User.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info("User created",
		zap.String("user_id", user.Key().String()),
		zap.String("role", string(role)),
	)
	return user, nil
}

// FindByID treats a user of another variant as absent from this view.
func (s *userService) FindByID(ctx context.Context, role entity.UserRole, id uuid.UUID) (entity.User, error) {
	user, err := s.FindAnyByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role() != role {
		return nil, notFound(string(role), id)
	}
	return user, nil
}

func (s *userService) FindAnyByID(ctx context.Context, id uuid.UUID) (entity.User, error) {
	user, err := s.repo.User.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, notFound("user", id)
	}
	return user, nil
}

func (s *userService) FindByIDWithToken(ctx context.Context, role entity.UserRole, id uuid.UUID, caller string) (entity.User, string, error) {
	user, err := s.FindByID(ctx, role, id)
	if err != nil {
		return nil, "", err
	}
	token, err := s.tokens.Issue(user, caller)
	if err != nil {
		return nil, "", fmt.Errorf("issue user token: %w", err)
	}
	return user, token, nil
}

func (s *userService) FindByLogin(ctx context.Context, role entity.UserRole, login string) (entity.User, error) {
	user, err := s.repo.User.FindByLogin(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("get user by login: %w", err)
	}
	if user == nil || user.Role() != role {
		return nil, fmt.Errorf("%s %q: %w", role, login, apperr.ErrNotFound)
	}
	return user, nil
}

func (s *userService) FindAll(ctx context.Context, role entity.UserRole) ([]entity.User, error) {
	users, err := s.repo.User.FindAll(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	return users, nil
}

func (s *userService) FindAllMatching(ctx context.Context, role entity.UserRole, loginFragment string) ([]entity.User, error) {
	users, err := s.repo.User.FindAllMatching(ctx, role, loginFragment)
	if err != nil {
		return nil, fmt.Errorf("get users by login: %w", err)
	}
	return users, nil
}

// Update rewrites login and password. The variant and the active flag are
// kept from the stored user; an empty password keeps the stored one.
func (s *userService) Update(ctx context.Context, user entity.User, token, caller string) (entity.User, error) {
	id := user.Key()
	current, err := s.FindAnyByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	if current.Role() != user.Role() {
		s.log.Warn("User variant mismatch on update",
			zap.String("user_id", id.String()),
			zap.String("stored_role", string(current.Role())),
			zap.String("requested_role", string(user.Role())),
		)
		return nil, fmt.Errorf("update user %s: stored as %s: %w", id, current.Role(), apperr.ErrVariantMismatch)
	}

	if err := verifyVersion(s.log, s.tokens, token, current, caller); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	updated := entity.CloneUser(user)
	data := updated.Data()
	data.Active = current.Data().Active
	if data.Password == "" {
		data.Password = current.Data().Password
	}

	if data.Login != current.Data().Login {
		existing, err := s.repo.User.FindByLogin(ctx, data.Login)
		if err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		if existing != nil {
			return nil, fmt.Errorf("update user %q: %w", data.Login, apperr.ErrDuplicateLogin)
		}
	}

	if err := s.repo.User.UpdateIf(ctx, current, updated); err != nil {
		return nil, fmt.Errorf("update user: %w", conditionalWriteError(current, err))
	}

	s.log.Info("User updated", zap.String("user_id", id.String()))
	return updated, nil
}

// Delete removes the user only through the view of its stored variant and
// only while no ticket references it.
func (s *userService) Delete(ctx context.Context, id uuid.UUID, role entity.UserRole) error {
	err := withLocks(ctx, s.locker, []string{lock.UserKey(id)}, func(ctx context.Context) error {
		user, err := s.repo.User.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if user == nil {
			return notFound(string(role), id)
		}
		if user.Role() != role {
			s.log.Warn("User variant mismatch on delete",
				zap.String("user_id", id.String()),
				zap.String("stored_role", string(user.Role())),
				zap.String("requested_role", string(role)),
			)
			return fmt.Errorf("user %s stored as %s: %w", id, user.Role(), apperr.ErrVariantMismatch)
		}

		referenced, err := s.repo.Resolver.UserReferenced(ctx, id)
		if err != nil {
			return err
		}
		if referenced {
			return fmt.Errorf("user %s: %w", id, apperr.ErrResourceInUse)
		}

		return deleteError(string(role), id, s.repo.User.Delete(ctx, id))
	})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	s.log.Info("User deleted", zap.String("user_id", id.String()), zap.String("role", string(role)))
	return nil
}

func (s *userService) Activate(ctx context.Context, id uuid.UUID) (entity.User, error) {
	return s.setActive(ctx, id, true)
}

func (s *userService) Deactivate(ctx context.Context, id uuid.UUID) (entity.User, error) {
	return s.setActive(ctx, id, false)
}

// setActive is idempotent: a user already in the target state is returned
// without a write.
func (s *userService) setActive(ctx context.Context, id uuid.UUID, active bool) (entity.User, error) {
	for attempt := 1; ; attempt++ {
		current, err := s.repo.User.FindByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("set user status: %w", err)
		}
		if current == nil {
			return nil, fmt.Errorf("user %s: %w", id, apperr.ErrActivationTargetNotFound)
		}
		if current.Data().Active == active {
			return current, nil
		}

		updated := entity.CloneUser(current)
		updated.Data().Active = active

		err = s.repo.User.UpdateIf(ctx, current, updated)
		if err == nil {
			s.log.Info("User status changed",
				zap.String("user_id", id.String()),
				zap.Bool("active", active),
			)
			return updated, nil
		}
		if !errors.Is(err, store.ErrNoMatch) || attempt == activationAttempts {
			return nil, fmt.Errorf("set user status: %w", conditionalWriteError(current, err))
		}
		s.log.Debug("User changed during status update, retrying",
			zap.String("user_id", id.String()),
			zap.Int("attempt", attempt),
		)
	}
}

func (s *userService) Tickets(ctx context.Context, id uuid.UUID) ([]*entity.TicketDetails, error) {
	var details []*entity.TicketDetails
	err := s.repo.ReadOnly(ctx, func(ctx context.Context, view *repository.Repository) error {
		user, err := view.User.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if user == nil {
			return notFound("user", id)
		}
		details, err = view.Resolver.TicketsForUser(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get user tickets: %w", err)
	}
	return details, nil
}
