package service

import (
	"kiosco_escolar_backend/internal/model"
	"kiosco_escolar_backend/internal/repository"
	"kiosco_escolar_backend/internal/util"
)

type ChatService struct {
	ChatRepo *repository.ChatRepository
	Registry *RoomRegistry
}

func NewChatService(chatRepo *repository.ChatRepository, registry *RoomRegistry) *ChatService {
	return &ChatService{
		ChatRepo: chatRepo,
		Registry: registry,
	}
}

// SendMessage sanitizes and appends one message to a room's log.
func (s *ChatService) SendMessage(author *model.Identity, sala, texto string) (*model.Mensaje, error) {
	if sala == "" {
		return nil, util.ErrValidation
	}
	texto = util.SanitizeMensaje(texto)
	if texto == "" {
		return nil, util.ErrValidation
	}

	msg := &model.Mensaje{
		Sala:      sala,
		UsuarioID: author.ID,
		Texto:     texto,
	}
	if err := s.ChatRepo.Create(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// BroadcastMessage pushes an already-stored message to the room's live
// sessions. Used by the REST send path so socket clients see REST traffic.
func (s *ChatService) BroadcastMessage(sala string, mensaje *model.Mensaje) int {
	if s.Registry == nil {
		return 0
	}
	frame := marshalFrame(chatMessageFrame{Type: MsgChatMessage, Mensaje: mensaje})
	return s.Registry.Broadcast(sala, frame)
}

// History returns the room's latest messages in chronological order.
func (s *ChatService) History(sala string, limit int) ([]model.Mensaje, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.ChatRepo.History(sala, limit)
}

func (s *ChatService) MarkRead(sala string, lectorID uint) error {
	return s.ChatRepo.MarkRead(sala, lectorID)
}

func (s *ChatService) UnreadCount(sala string, lectorID uint) (int64, error) {
	return s.ChatRepo.UnreadCount(sala, lectorID)
}
