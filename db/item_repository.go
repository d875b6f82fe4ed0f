package db

import (
	"github.com/chisomudeze/marketa/models"
	"gorm.io/gorm"
)

// ItemRepository is the narrow listing lookup contract. Listing CRUD is owned
// by the listings service.
type ItemRepository interface {
	FindItemByID(id uint) (*models.Item, error)
}

type itemRepo struct {
	DB *gorm.DB
}

func NewItemRepo(db *GormDB) ItemRepository {
	return &itemRepo{db.DB}
}

func (r *itemRepo) FindItemByID(id uint) (*models.Item, error) {
	var item models.Item
	err := r.DB.Where("id = ?", id).First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}
