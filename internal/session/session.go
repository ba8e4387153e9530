package session

import (
	"strings"
)

// Role задаёт уровень доступа пользователя к каталогу.
type Role string

const (
	RoleNone  Role = ""
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Roles перечисляет роли, доступные в форме регистрации.
var Roles = []Role{RoleUser, RoleAdmin}

// ParseRole преобразует сохранённое или полученное от сервера значение в Role.
// Неизвестные значения считаются отсутствующей ролью.
func ParseRole(value string) Role {
	switch Role(strings.ToUpper(strings.TrimSpace(value))) {
	case RoleUser:
		return RoleUser
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleNone
	}
}

// IsAdmin сообщает, открывает ли роль действия администратора.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// Session хранит токен и роль аутентифицированного пользователя.
type Session struct {
	Token string
	Role  Role
}

// Authenticated возвращает true, если в сессии есть токен.
func (s Session) Authenticated() bool {
	return strings.TrimSpace(s.Token) != ""
}

// Credentials: черновик формы входа и регистрации.
type Credentials struct {
	Username string
	Password string
	Role     Role
}

// EmptyCredentials возвращает чистую форму с ролью по умолчанию.
func EmptyCredentials() Credentials {
	return Credentials{Role: RoleUser}
}
