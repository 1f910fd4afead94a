package repository

import (
	"kiosco_escolar_backend/internal/model"

	"gorm.io/gorm"
)

type ChatRepository struct {
	DB *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{DB: db}
}

func (r *ChatRepository) Create(msg *model.Mensaje) error {
	if err := r.DB.Create(msg).Error; err != nil {
		return err
	}
	// Reload with the author so broadcasts carry nombre/rol.
	return r.DB.Preload("Usuario").First(msg, "id = ?", msg.ID).Error
}

// History returns the latest limit messages of a room in chronological order.
// The query runs newest-first to use the (sala, created_at) index, then the
// slice is reversed for delivery.
func (r *ChatRepository) History(sala string, limit int) ([]model.Mensaje, error) {
	var mensajes []model.Mensaje
	err := r.DB.Preload("Usuario").
		Where("sala = ?", sala).
		Order("created_at DESC").
		Limit(limit).
		Find(&mensajes).Error
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(mensajes)-1; i < j; i, j = i+1, j-1 {
		mensajes[i], mensajes[j] = mensajes[j], mensajes[i]
	}
	return mensajes, nil
}

// MarkRead flips the read flag on every message in the room not authored by
// the reader. The read flag is the only mutation mensajes ever sees.
func (r *ChatRepository) MarkRead(sala string, lectorID uint) error {
	return r.DB.Model(&model.Mensaje{}).
		Where("sala = ? AND usuario_id <> ? AND leido = ?", sala, lectorID, false).
		Update("leido", true).Error
}

func (r *ChatRepository) UnreadCount(sala string, lectorID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Mensaje{}).
		Where("sala = ? AND usuario_id <> ? AND leido = ?", sala, lectorID, false).
		Count(&count).Error
	return count, err
}
