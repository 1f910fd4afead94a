package repository

import (
	"time"

	"kiosco_escolar_backend/internal/model"

	"gorm.io/gorm"
)

type RefreshTokenRepository struct {
	DB *gorm.DB
}

func NewRefreshTokenRepository(db *gorm.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{DB: db}
}

func (r *RefreshTokenRepository) Create(token *model.RefreshToken) error {
	return r.DB.Create(token).Error
}

func (r *RefreshTokenRepository) FindByToken(token string) (*model.RefreshToken, error) {
	var rt model.RefreshToken
	err := r.DB.Where("token = ?", token).First(&rt).Error
	return &rt, err
}

func (r *RefreshTokenRepository) Revoke(token string) error {
	return r.DB.Model(&model.RefreshToken{}).
		Where("token = ?", token).
		Update("revocado", true).Error
}

func (r *RefreshTokenRepository) RevokeAllForUser(usuarioID uint) error {
	return r.DB.Model(&model.RefreshToken{}).
		Where("usuario_id = ?", usuarioID).
		Update("revocado", true).Error
}

func (r *RefreshTokenRepository) DeleteExpired() error {
	return r.DB.Unscoped().
		Where("expira_en < ?", time.Now()).
		Delete(&model.RefreshToken{}).Error
}
