package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/shiningsmiles/tuition-ledger/pkg/pg"
)

var (
	ErrStudentNotFound = errors.New("student not found")
	ErrUserNotFound    = errors.New("user not found")
)

// StudentEntity mirrors the student directory owned by the enrollment
// service; this side only ever reads it.
type StudentEntity struct {
	ID            int64  `db:"id"             gorm:"primaryKey;autoIncrement;column:id"`
	TenantID      int64  `db:"tenant_id"      gorm:"column:tenant_id;not null;index"`
	StudentNumber string `db:"student_number" gorm:"column:student_number;not null"`
	FirstName     string `db:"first_name"     gorm:"column:first_name"`
	LastName      string `db:"last_name"      gorm:"column:last_name"`
}

func (StudentEntity) TableName() string {
	return "student"
}

// AppUserEntity mirrors the auth service's user table; used to resolve an
// explicit cashier id to a display name.
type AppUserEntity struct {
	ID          int64  `db:"id"           gorm:"primaryKey;autoIncrement;column:id"`
	TenantID    int64  `db:"tenant_id"    gorm:"column:tenant_id;not null;index"`
	Username    string `db:"username"     gorm:"column:username;not null"`
	DisplayName string `db:"display_name" gorm:"column:display_name"`
	Role        string `db:"role"         gorm:"column:role;not null"`
}

func (AppUserEntity) TableName() string {
	return "app_user"
}

type DirectoryRepository struct {
	*pg.DB
}

func NewDirectoryRepository(db *pg.DB) *DirectoryRepository {
	return &DirectoryRepository{
		db,
	}
}

func (r *DirectoryRepository) StudentExists(ctx context.Context, tenantID, studentID int64) (bool, error) {
	var count int64
	err := r.Read(ctx).WithContext(ctx).
		Model(&StudentEntity{}).
		Where("tenant_id = ? AND id = ?", tenantID, studentID).
		Count(&count).
		Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *DirectoryRepository) GetStudent(ctx context.Context, tenantID, studentID int64) (*StudentEntity, error) {
	var entity StudentEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, studentID).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	return &entity, nil
}

// UserDisplayName resolves a user id to its display name, falling back to
// the username when no display name is set.
func (r *DirectoryRepository) UserDisplayName(ctx context.Context, tenantID, userID int64) (string, error) {
	var entity AppUserEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, userID).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}
	if entity.DisplayName != "" {
		return entity.DisplayName, nil
	}
	return entity.Username, nil
}
