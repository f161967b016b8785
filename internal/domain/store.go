package domain

import (
	"strings"
	"time"
)

// Store: магазин, которым владеет ровно один пользователь с ролью store.
type Store struct {
	ID          string
	OwnerID     string
	Name        string
	Description string
	Address     string
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// StoreInput: изменяемые поля магазина. Modify заменяет их целиком.
type StoreInput struct {
	Name        string
	Description string
	Address     string
}

// Validate проверяет обязательные поля.
func (in StoreInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrStoreNameRequired
	}
	return nil
}

// Apply переносит поля ввода в магазин.
func (s *Store) Apply(in StoreInput) {
	s.Name = strings.TrimSpace(in.Name)
	s.Description = in.Description
	s.Address = in.Address
}

// CanManage сообщает, может ли пользователь менять или удалять магазин:
// владелец с ролью store либо администратор.
func (s *Store) CanManage(user User) bool {
	switch user.Role {
	case RoleAdmin:
		return true
	case RoleStore:
		return s.OwnerID == user.ID
	default:
		return false
	}
}

// Product: товар магазина. Для этого сервиса только на чтение.
type Product struct {
	ID         string
	StoreID    string
	Name       string
	PriceMinor int64
	CreatedAt  time.Time
}
