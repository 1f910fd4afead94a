package service

import (
	"kiosco_escolar_backend/internal/repository"
)

// OnlineChecker reports live connection state; the hub implements it.
type OnlineChecker interface {
	IsUserOnline(userID uint) bool
}

// EstudianteView is one roster row for the tutor panel.
type EstudianteView struct {
	ID           uint   `json:"id"`
	Matricula    string `json:"matricula"`
	Nombre       string `json:"nombre"`
	Email        string `json:"email"`
	EnLinea      bool   `json:"en_linea"`
	Sala         string `json:"sala"`
	NoLeidos     int64  `json:"no_leidos"`
	UltimoAcceso string `json:"ultimo_acceso,omitempty"`
}

type UserService struct {
	UserRepo *repository.UserRepository
	ChatRepo *repository.ChatRepository
	Online   OnlineChecker
}

func NewUserService(userRepo *repository.UserRepository, chatRepo *repository.ChatRepository, online OnlineChecker) *UserService {
	return &UserService{
		UserRepo: userRepo,
		ChatRepo: chatRepo,
		Online:   online,
	}
}

// Roster lists every student with presence, room name and the tutor's unread
// count per room. Presence degrades to offline when the hub is absent.
func (s *UserService) Roster(tutorID uint) ([]EstudianteView, error) {
	students, err := s.UserRepo.ListStudents()
	if err != nil {
		return nil, err
	}

	views := make([]EstudianteView, 0, len(students))
	for _, st := range students {
		view := EstudianteView{
			ID:        st.ID,
			Matricula: st.Matricula,
			Nombre:    st.Nombre,
			Email:     st.Email,
			Sala:      StudentRoom(st.ID),
		}
		if s.Online != nil {
			view.EnLinea = s.Online.IsUserOnline(st.ID)
		}
		if s.ChatRepo != nil {
			if n, cerr := s.ChatRepo.UnreadCount(view.Sala, tutorID); cerr == nil {
				view.NoLeidos = n
			}
		}
		if !st.LastLogin.IsZero() {
			view.UltimoAcceso = st.LastLogin.Format("2006-01-02 15:04:05")
		}
		views = append(views, view)
	}
	return views, nil
}
