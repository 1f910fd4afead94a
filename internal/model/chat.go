package model

// Mensaje is one chat message in a room. Append-only: the read flag is the
// only field ever mutated after insert.
// swagger:model Mensaje
type Mensaje struct {
	UUIDBase
	Sala      string `gorm:"size:64;index:idx_sala_created;not null" json:"sala"`
	UsuarioID uint   `gorm:"index" json:"usuario_id"`
	Usuario   User   `gorm:"foreignKey:UsuarioID" json:"usuario"`
	Texto     string `gorm:"type:text;not null" json:"texto"`
	Leido     bool   `gorm:"default:false" json:"leido"`
}

func (Mensaje) TableName() string {
	return "mensajes"
}
