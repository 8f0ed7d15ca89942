package repository

import (
	"context"
	"errors"
	"fmt"

	"cinema-core/internal/apperr"
	"cinema-core/internal/data/entity"
	"cinema-core/internal/data/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserRepository reads and writes the single user collection. Reads return
// whichever variant is stored; scoping to a variant is done by the caller
// or through the role arguments.
type UserRepository interface {
	Create(ctx context.Context, user entity.User) error
	FindByID(ctx context.Context, id uuid.UUID) (entity.User, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]entity.User, error)
	FindByLogin(ctx context.Context, login string) (entity.User, error)
	FindAll(ctx context.Context, role entity.UserRole) ([]entity.User, error)
	FindAllMatching(ctx context.Context, role entity.UserRole, loginFragment string) ([]entity.User, error)
	Update(ctx context.Context, user entity.User) error
	UpdateIf(ctx context.Context, expected, user entity.User) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type userRepository struct {
	g   store.Gateway
	rd  store.Reader
	log *zap.Logger
}

func NewUserRepository(g store.Gateway, log *zap.Logger) UserRepository {
	return newUserRepository(g, g, log)
}

func newUserRepository(g store.Gateway, rd store.Reader, log *zap.Logger) *userRepository {
	return &userRepository{
		g:   g,
		rd:  rd,
		log: log.With(zap.String("repository", "user")),
	}
}

// Create inserts the user with its discriminator. A login already used by
// any variant fails with apperr.ErrDuplicateLogin.
func (r *userRepository) Create(ctx context.Context, user entity.User) error {
	if err := validateEntity(user.Data()); err != nil {
		return err
	}
	doc, err := entity.EncodeUser(user)
	if err != nil {
		return apperr.Fault("create user", err)
	}

	if err := r.g.Insert(ctx, store.Users, user.Key(), doc); err != nil {
		return r.writeError("create user", user, err)
	}
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (entity.User, error) {
	doc, err := r.rd.FindByID(ctx, store.Users, id)
	if err != nil {
		r.log.Error("Failed to find user by ID",
			zap.Error(err),
			zap.String("user_id", id.String()),
		)
		return nil, storeError("find user", err)
	}
	if doc == nil {
		return nil, nil
	}
	return decodeUser(doc)
}

func (r *userRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]entity.User, error) {
	users, err := r.find(ctx, "find users by ID", store.In(entity.FieldID, idStrings(ids)...))
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]entity.User, len(users))
	for _, u := range users {
		out[u.Key()] = u
	}
	return out, nil
}

func (r *userRepository) FindByLogin(ctx context.Context, login string) (entity.User, error) {
	users, err := r.find(ctx, "find user by login", store.Eq(entity.FieldUserLogin, login))
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}
	return users[0], nil
}

func (r *userRepository) FindAll(ctx context.Context, role entity.UserRole) ([]entity.User, error) {
	return r.find(ctx, "find users", store.Eq(entity.FieldUserRole, string(role)))
}

func (r *userRepository) FindAllMatching(ctx context.Context, role entity.UserRole, loginFragment string) ([]entity.User, error) {
	return r.find(ctx, "find users by login", store.And(
		store.Eq(entity.FieldUserRole, string(role)),
		store.Contains(entity.FieldUserLogin, loginFragment),
	))
}

func (r *userRepository) Update(ctx context.Context, user entity.User) error {
	if err := validateEntity(user.Data()); err != nil {
		return err
	}
	doc, err := entity.EncodeUser(user)
	if err != nil {
		return apperr.Fault("update user", err)
	}

	if err := r.g.Replace(ctx, store.Users, user.Key(), doc); err != nil {
		return r.writeError("update user", user, err)
	}
	return nil
}

func (r *userRepository) UpdateIf(ctx context.Context, expected, user entity.User) error {
	if err := validateEntity(user.Data()); err != nil {
		return err
	}
	want, err := entity.EncodeUser(expected)
	if err != nil {
		return apperr.Fault("update user", err)
	}
	doc, err := entity.EncodeUser(user)
	if err != nil {
		return apperr.Fault("update user", err)
	}

	if err := r.g.ReplaceIf(ctx, store.Users, user.Key(), want, doc); err != nil {
		return r.writeError("update user", user, err)
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.g.Delete(ctx, store.Users, id); err != nil {
		r.log.Warn("Failed to delete user", zap.Error(err), zap.String("user_id", id.String()))
		return storeError("delete user", err)
	}
	return nil
}

func (r *userRepository) writeError(op string, user entity.User, err error) error {
	if key, ok := store.DuplicateKey(err); ok && key == entity.FieldUserLogin {
		r.log.Warn("Login already taken",
			zap.String("login", user.Data().Login),
			zap.String("user_id", user.Key().String()),
		)
		return errors.Join(apperr.ErrDuplicateLogin, fmt.Errorf("%s: %w", op, err))
	}
	if errors.Is(err, store.ErrNoMatch) {
		return storeError(op, err)
	}
	r.log.Error("Failed to write user",
		zap.Error(err),
		zap.String("op", op),
		zap.String("user_id", user.Key().String()),
	)
	return storeError(op, err)
}

func (r *userRepository) find(ctx context.Context, op string, f store.Filter) ([]entity.User, error) {
	docs, err := r.rd.Find(ctx, store.Users, f)
	if err != nil {
		r.log.Error("Failed to find users", zap.Error(err), zap.Stringer("filter", f))
		return nil, storeError(op, err)
	}

	users := make([]entity.User, 0, len(docs))
	for _, doc := range docs {
		u, err := decodeUser(doc)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	r.log.Debug("Users found", zap.String("op", op), zap.Int("count", len(users)))
	return users, nil
}

func decodeUser(doc []byte) (entity.User, error) {
	u, err := entity.DecodeUser(doc)
	if err != nil {
		return nil, apperr.Fault("decode user", err)
	}
	return u, nil
}
