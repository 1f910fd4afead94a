package model

type ContentType string

const (
	ContenidoPDF   ContentType = "pdf"
	ContenidoVideo ContentType = "video"
	ContenidoTexto ContentType = "texto"
	ContenidoQuiz  ContentType = "quiz"
)

func (t ContentType) Valid() bool {
	switch t {
	case ContenidoPDF, ContenidoVideo, ContenidoTexto, ContenidoQuiz:
		return true
	}
	return false
}

// swagger:model Curso
type Curso struct {
	BaseModel
	Titulo      string      `gorm:"size:200;not null" json:"titulo"`
	Descripcion string      `gorm:"type:text" json:"descripcion"`
	TutorID     uint        `gorm:"index" json:"tutor_id"`
	Publicado   bool        `gorm:"default:false" json:"publicado"`
	Contenidos  []Contenido `gorm:"foreignKey:CursoID" json:"contenidos,omitempty"`
}

func (Curso) TableName() string {
	return "cursos"
}

// swagger:model Contenido
type Contenido struct {
	BaseModel
	CursoID    uint        `gorm:"index;not null" json:"curso_id"`
	Titulo     string      `gorm:"size:200;not null" json:"titulo"`
	Tipo       ContentType `gorm:"type:enum('pdf','video','texto','quiz');default:'texto'" json:"tipo"`
	Cuerpo     string      `gorm:"type:longtext" json:"cuerpo,omitempty"`
	ArchivoURL string      `gorm:"size:255" json:"archivo_url,omitempty"`
	Orden      int         `gorm:"default:0" json:"orden"`
	Preguntas  []Pregunta  `gorm:"foreignKey:ContenidoID" json:"preguntas,omitempty"`
}

func (Contenido) TableName() string {
	return "contenidos"
}
