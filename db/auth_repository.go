package db

import (
	"fmt"

	apiError "github.com/chisomudeze/marketa/errors"
	"github.com/chisomudeze/marketa/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// AuthRepository is the narrow user lookup contract the messaging core
// consumes. User CRUD beyond signup lives in the account service.
type AuthRepository interface {
	CreateUser(user *models.User) (*models.User, error)
	FindUserByID(id uint) (*models.User, error)
	FindUserByEmail(email string) (*models.User, error)
	IsEmailExist(email string) error
}

type authRepo struct {
	DB *gorm.DB
}

func NewAuthRepo(db *GormDB) AuthRepository {
	return &authRepo{db.DB}
}

func (a *authRepo) CreateUser(user *models.User) (*models.User, error) {
	err := a.DB.Create(user).Error
	if err != nil {
		return nil, errors.Wrap(err, "could not create user")
	}
	return user, nil
}

func (a *authRepo) FindUserByID(id uint) (*models.User, error) {
	var user models.User
	err := a.DB.Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (a *authRepo) FindUserByEmail(email string) (*models.User, error) {
	var user models.User
	err := a.DB.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (a *authRepo) IsEmailExist(email string) error {
	var count int64
	err := a.DB.Model(&models.User{}).Where("email = ?", email).Count(&count).Error
	if err != nil {
		return fmt.Errorf("unable to check email existence: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("email already in use: %w", apiError.ErrBadRequest)
	}
	return nil
}
