package models

import (
	"time"

	"github.com/google/uuid"
)

// User представляет учётную запись клиента или фрилансера.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// IsClient возвращает true, если пользователь зарегистрирован как клиент.
func (u *User) IsClient() bool {
	return u.Role == RoleClient
}

// IsFreelancer возвращает true, если пользователь зарегистрирован как фрилансер.
func (u *User) IsFreelancer() bool {
	return u.Role == RoleFreelancer
}
