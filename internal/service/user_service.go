package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/regulars-api/internal/dto"
	"github.com/noah-isme/regulars-api/internal/models"
	"github.com/noah-isme/regulars-api/pkg/database"
	appErrors "github.com/noah-isme/regulars-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, exec sqlx.ExtContext, user *models.User) error
	Update(ctx context.Context, exec sqlx.ExtContext, user *models.User) error
}

// UserService handles instructor and admin account management.
type UserService struct {
	repo      userRepository
	audit     auditAppender
	tx        txProvider
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, audit auditAppender, tx txProvider, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, audit: audit, tx: tx, validator: newValidator(validate), logger: logger}
}

// List returns users matching the query.
func (s *UserService) List(ctx context.Context, query dto.UserQuery) ([]models.User, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, validationError(err, "invalid user query")
	}
	filter := models.UserFilter{Search: strings.TrimSpace(query.Search)}
	if query.Role != "" {
		role := models.UserRole(query.Role)
		filter.Role = &role
	}
	users, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "user not found", "failed to load user")
	}
	return user, nil
}

// Create adds a new account. The role defaults to instructor.
func (s *UserService) Create(ctx context.Context, req dto.CreateUserRequest, actor models.Actor) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid create user payload")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.ensureEmailFree(ctx, email, ""); err != nil {
		return nil, err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	role := models.RoleInstructor
	if req.Role != "" {
		role = models.UserRole(req.Role)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     strings.TrimSpace(req.FullName),
		Role:         role,
		Active:       true,
		PasswordHash: string(passwordHash),
	}
	err = runInTx(ctx, s.tx, nil, func(tx *sqlx.Tx) error {
		if err := s.repo.Create(ctx, tx, user); err != nil {
			if database.IsUniqueViolation(err) {
				return appErrors.Clone(appErrors.ErrConflict, "email already exists")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
		}
		return s.audit.Append(ctx, tx, actor, models.AuditActionCreateInstructor, models.EntityUser, user.ID, userSnapshot(*user))
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("user created", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// Update modifies the account. A new password is re-hashed and never audited.
func (s *UserService) Update(ctx context.Context, id string, req dto.UpdateUserRequest, actor models.Actor) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid update payload")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "user not found", "failed to load user")
	}
	before := userSnapshot(*user)

	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email != user.Email {
			if err := s.ensureEmailFree(ctx, email, user.ID); err != nil {
				return nil, err
			}
			user.Email = email
		}
	}
	if req.FullName != nil {
		user.FullName = strings.TrimSpace(*req.FullName)
	}
	passwordChanged := false
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
		}
		user.PasswordHash = string(hash)
		passwordChanged = true
	}

	err = runInTx(ctx, s.tx, nil, func(tx *sqlx.Tx) error {
		if err := s.repo.Update(ctx, tx, user); err != nil {
			if database.IsUniqueViolation(err) {
				return appErrors.Clone(appErrors.ErrConflict, "email already exists")
			}
			return notFoundOr(err, "user not found", "failed to update user")
		}
		return s.audit.Append(ctx, tx, actor, models.AuditActionUpdateInstructor, models.EntityUser, user.ID, map[string]interface{}{
			"before":           before,
			"after":            userSnapshot(*user),
			"password_changed": passwordChanged,
		})
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Deactivate disables an account. Admins cannot deactivate themselves.
func (s *UserService) Deactivate(ctx context.Context, id string, actor models.Actor) (*models.User, error) {
	if id == actor.ID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot deactivate your own account")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "user not found", "failed to load user")
	}
	if !user.Active {
		return user, nil
	}
	user.Active = false
	err = runInTx(ctx, s.tx, nil, func(tx *sqlx.Tx) error {
		if err := s.repo.Update(ctx, tx, user); err != nil {
			return notFoundOr(err, "user not found", "failed to deactivate user")
		}
		return s.audit.Append(ctx, tx, actor, models.AuditActionDeactivateInstructor, models.EntityUser, user.ID, map[string]interface{}{
			"email": user.Email,
		})
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) ensureEmailFree(ctx context.Context, email, excludeID string) error {
	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
	}
	if existing.ID == excludeID {
		return nil
	}
	return appErrors.Clone(appErrors.ErrConflict, "email already exists")
}

func userSnapshot(u models.User) map[string]interface{} {
	return map[string]interface{}{
		"email":     u.Email,
		"full_name": u.FullName,
		"role":      u.Role,
		"active":    u.Active,
	}
}
