package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"warehouse-system/internal/database/models"
	"warehouse-system/internal/ledger"
	audithandler "warehouse-system/internal/services/audit/handler"
	sysutils "warehouse-system/internal/utils"
)

const (
	DefaultAdminUsername     = "admin"
	DefaultWarehouseName     = "Kho chính"
	DefaultWarehouseLocation = "Tầng 1 - Nhà xưởng"
	minPasswordLength        = 6
)

var ErrInvalidCredentials = errors.New("invalid username or password")

type CreateUserRequest struct {
	Username string      `json:"username"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
	FullName string      `json:"fullName"`
	Active   *bool       `json:"active"`
}

type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      models.User `json:"user"`
}

type SeedResult struct {
	AdminCreated     bool `json:"adminCreated"`
	WarehouseCreated bool `json:"warehouseCreated"`
}

type UserHandler struct {
	db     *gorm.DB
	audit  *audithandler.AuditHandler
	tokens *sysutils.TokenManager
}

func NewUserHandler(db *gorm.DB, audit *audithandler.AuditHandler, tokens *sysutils.TokenManager) *UserHandler {
	return &UserHandler{
		db:     db,
		audit:  audit,
		tokens: tokens,
	}
}

func hashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", ledger.Invalid("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	pwHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("error hashing password: %w", err)
	}
	return string(pwHash), nil
}

// Authenticate checks the credentials and issues a token. Unknown users,
// inactive users and wrong passwords all yield ErrInvalidCredentials.
func (s *UserHandler) Authenticate(ctx context.Context, username, password string) (*LoginResult, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.Active {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, exp, err := s.tokens.GenerateToken(user.ID, user.Username, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	now := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user).Update("last_login", now).Error; err != nil {
			return err
		}
		return s.audit.Record(tx, models.ActionLogin, "Signed in: "+user.Username, user.Username)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}
	user.LastLogin = &now

	return &LoginResult{
		Token:     token,
		ExpiresAt: exp,
		User:      user,
	}, nil
}

func (s *UserHandler) CreateUser(ctx context.Context, req CreateUserRequest, actor string) (*models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		return nil, ledger.Invalid("username", "is required")
	}
	if strings.TrimSpace(req.FullName) == "" {
		return nil, ledger.Invalid("fullName", "is required")
	}
	if !req.Role.Valid() {
		return nil, ledger.Invalid("role", "must be one of ADMIN, KEEPER, STAFF, DIRECTOR")
	}
	pwHash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Username: req.Username,
		Password: pwHash,
		Role:     req.Role,
		FullName: strings.TrimSpace(req.FullName),
		Active:   true,
	}
	if req.Active != nil {
		user.Active = *req.Active
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.User{}).Where("username = ?", user.Username).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ledger.Conflict("username %q is already taken", user.Username)
		}
		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		return s.audit.Record(tx, models.ActionCreate, "Created user: "+user.Username, actor)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserHandler) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *UserHandler) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.NotFound("user", id)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

// DeleteUser removes a user. The last active admin cannot be removed.
func (s *UserHandler) DeleteUser(ctx context.Context, id int64, actor string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ledger.NotFound("user", id)
			}
			return fmt.Errorf("failed to load user: %w", err)
		}

		if user.Role == models.RoleAdmin && user.Active {
			var admins int64
			err := tx.Model(&models.User{}).
				Where("role = ? AND active = ? AND id <> ?", models.RoleAdmin, true, user.ID).
				Count(&admins).Error
			if err != nil {
				return err
			}
			if admins == 0 {
				return ledger.Conflict("cannot delete the last active administrator")
			}
		}

		if err := tx.Delete(&user).Error; err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return s.audit.Record(tx, models.ActionDelete, "Deleted user: "+user.Username, actor)
	})
}

// SeedDefaults creates the admin account and the main warehouse if they do
// not exist yet. Running it again changes nothing.
func (s *UserHandler) SeedDefaults(ctx context.Context, adminPassword string) (*SeedResult, error) {
	result := &SeedResult{}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var admins int64
		if err := tx.Model(&models.User{}).Where("username = ?", DefaultAdminUsername).Count(&admins).Error; err != nil {
			return err
		}
		if admins == 0 {
			pwHash, err := hashPassword(adminPassword)
			if err != nil {
				return err
			}
			admin := models.User{
				Username: DefaultAdminUsername,
				Password: pwHash,
				Role:     models.RoleAdmin,
				FullName: "Quản trị viên",
				Active:   true,
			}
			if err := tx.Create(&admin).Error; err != nil {
				return fmt.Errorf("failed to create admin user: %w", err)
			}
			result.AdminCreated = true
		}

		var warehouses int64
		if err := tx.Model(&models.Warehouse{}).Where("name = ?", DefaultWarehouseName).Count(&warehouses).Error; err != nil {
			return err
		}
		if warehouses == 0 {
			wh := models.Warehouse{Name: DefaultWarehouseName, Location: DefaultWarehouseLocation}
			if err := tx.Create(&wh).Error; err != nil {
				return fmt.Errorf("failed to create default warehouse: %w", err)
			}
			result.WarehouseCreated = true
		}

		if !result.AdminCreated && !result.WarehouseCreated {
			return nil
		}
		return s.audit.Record(tx, models.ActionCreate, "Initialized default data", audithandler.SystemActor)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
