package model

import "time"

// RefreshToken backs the logout/refresh flow. Revocation is mirrored into
// Redis so VerifyRefreshToken can reject without a table scan.
type RefreshToken struct {
	BaseModel
	Token     string    `gorm:"size:128;unique;not null" json:"-"`
	UsuarioID uint      `gorm:"index;not null" json:"usuario_id"`
	ExpiraEn  time.Time `gorm:"not null" json:"expira_en"`
	Revocado  bool      `gorm:"default:false" json:"revocado"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}
