package models

type Role string // Роль пользователя

const (
	Guest  Role = "guest"
	Client Role = "client"
	Buyer  Role = "buyer" // Синоним client из старого фронтенда
	Master Role = "master"
	Admin  Role = "admin"
)

// Actor - аутентифицированный пользователь, от имени которого выполняется действие.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// IsClient сообщает, может ли пользователь размещать заявки.
func (a Actor) IsClient() bool {
	return a.Role == Client || a.Role == Buyer
}

func (a Actor) IsMaster() bool { return a.Role == Master }

func (a Actor) IsAdmin() bool { return a.Role == Admin }

// ParseRole проверяет строковое значение роли.
func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case Guest, Client, Buyer, Master, Admin:
		return r, true
	}
	return "", false
}
