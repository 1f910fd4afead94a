package model

import "time"

type UserRole string

const (
	Estudiante UserRole = "estudiante"
	Tutor      UserRole = "tutor"
)

// swagger:model User
type User struct {
	BaseModel
	Matricula string    `gorm:"size:20;unique;not null" json:"matricula"`
	Nombre    string    `gorm:"size:100;not null" json:"nombre"`
	Email     string    `gorm:"size:100;unique;not null" json:"email"`
	Password  string    `gorm:"size:100;not null" json:"-"`
	Role      UserRole  `gorm:"type:enum('estudiante','tutor');default:'estudiante'" json:"rol"`
	LastLogin time.Time `gorm:"default:CURRENT_TIMESTAMP(3)" json:"lastLogin"`
}

func (User) TableName() string {
	return "usuarios"
}

// Identity is the resolved view of a verified credential. It is what the
// socket layer binds to a connection after AUTH.
type Identity struct {
	ID        uint     `json:"id"`
	Matricula string   `json:"matricula"`
	Nombre    string   `json:"nombre"`
	Email     string   `json:"email"`
	Role      UserRole `json:"rol"`
}

func (i *Identity) IsTutor() bool {
	return i.Role == Tutor
}
