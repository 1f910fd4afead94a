package model

// Progreso is one advancement record per (usuario, curso, contenido).
// Writes go through the merge rule in service.MergeProgress; rows are only
// upserted, never deleted except by cascading content removal.
// swagger:model Progreso
type Progreso struct {
	BaseModel
	UsuarioID    uint `gorm:"index:idx_usuario_contenido,unique;not null" json:"usuario_id"`
	CursoID      uint `gorm:"index:idx_usuario_contenido,unique;not null" json:"curso_id"`
	ContenidoID  uint `gorm:"index:idx_usuario_contenido,unique;not null" json:"contenido_id"`
	Avance       int  `gorm:"default:0" json:"avance"`
	Completado   bool `gorm:"default:false" json:"completado"`
	Sincronizado bool `gorm:"default:true" json:"sincronizado"`
}

func (Progreso) TableName() string {
	return "progresos"
}

// CursoProgreso is the derived course-level view. It is never stored:
// contents without a record count as zero.
type CursoProgreso struct {
	CursoID         uint `json:"curso_id"`
	TotalContenidos int  `json:"total_contenidos"`
	Completados     int  `json:"completados"`
	Porcentaje      int  `json:"porcentaje"`
}
