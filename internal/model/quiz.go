package model

import "time"

type QuestionType string

const (
	PreguntaOpcionMultiple QuestionType = "opcion_multiple"
	PreguntaTextoLibre     QuestionType = "texto_libre"
)

// swagger:model Pregunta
type Pregunta struct {
	BaseModel
	ContenidoID uint         `gorm:"index;not null" json:"contenido_id"`
	Texto       string       `gorm:"type:text;not null" json:"texto"`
	Tipo        QuestionType `gorm:"type:enum('opcion_multiple','texto_libre');default:'opcion_multiple'" json:"tipo"`
	Puntos      int          `gorm:"default:1" json:"puntos"`
	Opciones    []Opcion     `gorm:"foreignKey:PreguntaID" json:"opciones,omitempty"`
}

func (Pregunta) TableName() string {
	return "preguntas"
}

// swagger:model Opcion
type Opcion struct {
	BaseModel
	PreguntaID uint   `gorm:"index;not null" json:"pregunta_id"`
	Texto      string `gorm:"size:500;not null" json:"texto"`
	EsCorrecta bool   `gorm:"default:false" json:"es_correcta,omitempty"`
}

func (Opcion) TableName() string {
	return "opciones"
}

// Respuesta rows are immutable once written; an attempt is the set of rows
// sharing (usuario, contenido, numero_intento).
// swagger:model Respuesta
type Respuesta struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UsuarioID     uint      `gorm:"index:idx_usuario_pregunta" json:"usuario_id"`
	PreguntaID    uint      `gorm:"index:idx_usuario_pregunta" json:"pregunta_id"`
	OpcionID      *uint     `json:"opcion_id,omitempty"`
	TextoLibre    string    `gorm:"type:text" json:"texto_libre,omitempty"`
	EsCorrecta    bool      `gorm:"default:false" json:"es_correcta"`
	NumeroIntento int       `gorm:"not null;default:1" json:"numero_intento"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (Respuesta) TableName() string {
	return "respuestas"
}

// Calificacion is the graded outcome of one attempt.
type Calificacion struct {
	Porcentaje      int  `json:"porcentaje"`
	PuntajeObtenido int  `json:"puntaje_obtenido"`
	PuntajeTotal    int  `json:"puntaje_total"`
	NumeroIntento   int  `json:"numero_intento"`
	Aprobado        bool `json:"aprobado"`
}
