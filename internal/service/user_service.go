package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/formagestpro/formagest-api/internal/models"
	appErrors "github.com/formagestpro/formagest-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	ExistsByUsername(ctx context.Context, username, excludeID string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	Deactivate(ctx context.Context, id string) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
	ListAuditLogs(ctx context.Context, entidad, entidadID string, limit int) ([]models.AuditLog, error)
}

// CreateUserRequest holds payload for account creation.
type CreateUserRequest struct {
	Username       string `json:"username" validate:"required,min=4"`
	Password       string `json:"password" validate:"required,min=8"`
	NombreCompleto string `json:"nombre_completo" validate:"required"`
	Email          string `json:"email" validate:"omitempty,email"`
	Rol            string `json:"rol" validate:"required"`
}

// UpdateUserRequest holds payload for account updates. Passwords change
// through a dedicated operation.
type UpdateUserRequest struct {
	NombreCompleto string `json:"nombre_completo" validate:"required"`
	Email          string `json:"email" validate:"omitempty,email"`
	Rol            string `json:"rol" validate:"required"`
	Activo         bool   `json:"activo"`
}

// ResetPasswordRequest holds payload for an administrative password reset.
type ResetPasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// UserService manages operator accounts. All operations here are restricted
// to administrators at the routing layer.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs the user service.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

// List returns accounts and pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := models.NewPagination(page, size, total)
	return users, &pagination, nil
}

// Get returns an account by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	user.PasswordHash = ""
	return user, nil
}

// Create registers an operator account with a bcrypt-hashed password.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest, createdBy *string) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}
	if !models.ValidUserRole(req.Rol) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rol is not a valid role")
	}
	username := strings.ToLower(strings.TrimSpace(req.Username))
	exists, err := s.repo.ExistsByUsername(ctx, username, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate username")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "username already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	user := &models.User{
		Username:       username,
		PasswordHash:   string(hash),
		NombreCompleto: req.NombreCompleto,
		Email:          req.Email,
		Rol:            models.UserRole(req.Rol),
		Activo:         true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if appErrors.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "username already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	s.audit(ctx, createdBy, models.AuditActionCreate, user.ID, "user account created")
	user.PasswordHash = ""
	return user, nil
}

// Update modifies an account's profile, role and active flag.
func (s *UserService) Update(ctx context.Context, id string, req UpdateUserRequest, updatedBy *string) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}
	if !models.ValidUserRole(req.Rol) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rol is not a valid role")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	user.NombreCompleto = req.NombreCompleto
	user.Email = req.Email
	user.Rol = models.UserRole(req.Rol)
	user.Activo = req.Activo
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}
	if !user.Activo {
		if err := s.repo.RevokeUserRefreshTokens(ctx, id); err != nil {
			s.logger.Warn("failed to revoke sessions of deactivated user", zap.String("user_id", id), zap.Error(err))
		}
	}

	s.audit(ctx, updatedBy, models.AuditActionUpdate, user.ID, "user account updated")
	user.PasswordHash = ""
	return user, nil
}

// ResetPassword sets a new password for an account and revokes its live
// sessions.
func (s *UserService) ResetPassword(ctx context.Context, id string, req ResetPasswordRequest, resetBy *string) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid password payload")
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	if err := s.repo.UpdatePassword(ctx, id, string(hash), time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset password")
	}
	if err := s.repo.RevokeUserRefreshTokens(ctx, id); err != nil {
		s.logger.Warn("failed to revoke sessions after password reset", zap.String("user_id", id), zap.Error(err))
	}

	s.audit(ctx, resetBy, models.AuditActionPasswordChange, id, "password reset by administrator")
	return nil
}

// Deactivate disables an account and revokes its sessions.
func (s *UserService) Deactivate(ctx context.Context, id string, deactivatedBy *string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if deactivatedBy != nil && *deactivatedBy == id {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "cannot deactivate own account")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate user")
	}
	if err := s.repo.RevokeUserRefreshTokens(ctx, id); err != nil {
		s.logger.Warn("failed to revoke sessions of deactivated user", zap.String("user_id", id), zap.Error(err))
	}

	s.audit(ctx, deactivatedBy, models.AuditActionDeactivate, id, "user account deactivated")
	return nil
}

// AuditTrail returns the most recent audit entries for an entity.
func (s *UserService) AuditTrail(ctx context.Context, entidad, entidadID string, limit int) ([]models.AuditLog, error) {
	logs, err := s.repo.ListAuditLogs(ctx, entidad, entidadID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit logs")
	}
	return logs, nil
}

func (s *UserService) audit(ctx context.Context, actor *string, action, entityID, detail string) {
	entry := &models.AuditLog{
		UserID:    actor,
		Accion:    action,
		Entidad:   "usuarios",
		EntidadID: entityID,
		Detalle:   detail,
	}
	if err := s.repo.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to write audit log", zap.String("entidad_id", entityID), zap.Error(err))
	}
}
