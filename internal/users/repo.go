package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/carline-backend/pkg/db/models"
	"github.com/angelmondragon/carline-backend/pkg/enums"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository that issues its queries on tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts a new user and returns the persisted model.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreateProfile inserts the role profile row for user and returns its reference.
// Roles without a profile (ADMIN) return nil.
func (r *Repository) CreateProfile(ctx context.Context, user *models.User) (*ProfileRef, error) {
	conn := r.db.WithContext(ctx)
	switch user.Role {
	case enums.UserRoleTeacher:
		profile := models.Teacher{UserID: user.ID}
		if err := conn.Omit("User").Create(&profile).Error; err != nil {
			return nil, err
		}
		return &ProfileRef{Type: user.Role, ID: profile.ID}, nil
	case enums.UserRoleParent:
		profile := models.Parent{UserID: user.ID, Status: enums.ParentStatusNotArrived}
		if err := conn.Omit("User", "Students").Create(&profile).Error; err != nil {
			return nil, err
		}
		return &ProfileRef{Type: user.Role, ID: profile.ID}, nil
	case enums.UserRoleDismisser:
		profile := models.Dismisser{UserID: user.ID}
		if err := conn.Omit("User").Create(&profile).Error; err != nil {
			return nil, err
		}
		return &ProfileRef{Type: user.Role, ID: profile.ID}, nil
	}
	return nil, nil
}

// FindProfile resolves the profile reference for user, nil when the role has none.
func (r *Repository) FindProfile(ctx context.Context, user *models.User) (*ProfileRef, error) {
	var table string
	switch user.Role {
	case enums.UserRoleTeacher:
		table = "teachers"
	case enums.UserRoleParent:
		table = "parents"
	case enums.UserRoleDismisser:
		table = "dismissers"
	default:
		return nil, nil
	}
	var row struct{ ID uuid.UUID }
	if err := r.db.WithContext(ctx).Table(table).Select("id").Where("user_id = ?", user.ID).Take(&row).Error; err != nil {
		return nil, err
	}
	return &ProfileRef{Type: user.Role, ID: row.ID}, nil
}

// FindByEmail retrieves the user matching the provided email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateLastLogin refreshes the user's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// UpdatePasswordHash stores a re-hashed credential.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("password_hash", hash).Error
}
