package models

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// User represents a marketplace account. Profile management lives in the
// account service; the messaging core only needs identity and display fields.
type User struct {
	Model
	Fullname       string `json:"fullname" binding:"required,min=2"`
	Email          string `json:"email" gorm:"unique;not null" binding:"required,email"`
	Password       string `json:"password,omitempty" gorm:"-" binding:"required,min=4"`
	HashedPassword string `json:"-"`
}

// UserSummary is the denormalized user shape embedded in message responses.
type UserSummary struct {
	ID       uint   `json:"id"`
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:       u.ID,
		Fullname: u.Fullname,
		Email:    u.Email,
	}
}

func (u *User) VerifyPassword(password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte(password)); err != nil {
		return errors.New("invalid password")
	}
	return nil
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	UserID      uint   `json:"user_id"`
	Fullname    string `json:"fullname"`
	Email       string `json:"email"`
	AccessToken string `json:"access_token"`
}
