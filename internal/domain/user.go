package domain

import "time"

// Role: закрытое перечисление ролей пользователя. Сравнивается по значению.
type Role string

const (
	// RoleConsumer: покупатель: работает со своими корзинами.
	RoleConsumer Role = "consumer"
	// RoleStore: владелец магазина.
	RoleStore Role = "store"
	// RoleAdmin: администратор площадки, может править любой магазин.
	RoleAdmin Role = "admin"
)

// Valid проверяет, что роль относится к поддерживаемым значениям.
func (r Role) Valid() bool {
	switch r {
	case RoleConsumer, RoleStore, RoleAdmin:
		return true
	default:
		return false
	}
}

// ParseRole разбирает роль из строки (например, из claims токена).
func ParseRole(value string) (Role, error) {
	role := Role(value)
	if !role.Valid() {
		return "", ErrRoleInvalid
	}
	return role, nil
}

// User: учётная запись платформы. Роль после создания не меняется.
type User struct {
	ID        string
	Name      string
	Role      Role
	CreatedAt time.Time
}

// Principal: аутентифицированный вызывающий, полученный из токена.
type Principal struct {
	UserID string
	Role   Role
}
