package service

import (
	"encoding/json"

	"kiosco_escolar_backend/internal/model"
)

// Client → server message types.
const (
	MsgAuth           = "AUTH"
	MsgSyncProgress   = "SYNC_PROGRESS"
	MsgSaveProgress   = "SAVE_PROGRESS"
	MsgChatMessage    = "CHAT_MESSAGE"
	MsgGetChatHistory = "GET_CHAT_HISTORY"
	MsgGetProgress    = "GET_PROGRESS"
	MsgPing           = "PING"
)

// Server → client message types.
const (
	MsgConnected           = "CONNECTED"
	MsgAuthSuccess         = "AUTH_SUCCESS"
	MsgAuthError           = "AUTH_ERROR"
	MsgChatHistory         = "CHAT_HISTORY"
	MsgSyncProgressSuccess = "SYNC_PROGRESS_SUCCESS"
	MsgSyncProgressError   = "SYNC_PROGRESS_ERROR"
	MsgSaveProgressSuccess = "SAVE_PROGRESS_SUCCESS"
	MsgSaveProgressError   = "SAVE_PROGRESS_ERROR"
	MsgChatError           = "CHAT_ERROR"
	MsgTutorOnline         = "TUTOR_ONLINE"
	MsgTutorOffline        = "TUTOR_OFFLINE"
	MsgProgressData        = "PROGRESS_DATA"
	MsgPong                = "PONG"
	MsgError               = "ERROR"
)

// envelope carries only the discriminator; handlers re-decode the raw frame
// into their own payload struct (fields sit at the top level, next to type).
type envelope struct {
	Type string `json:"type"`
}

type authPayload struct {
	Token string `json:"token"`
}

type saveProgressPayload struct {
	CursoID     uint    `json:"curso_id"`
	ContenidoID uint    `json:"contenido_id"`
	Avance      float64 `json:"avance"`
	Completado  bool    `json:"completado"`
}

type syncProgressPayload struct {
	Progresos []ProgressWrite `json:"progresos"`
}

type chatMessagePayload struct {
	Texto        string `json:"texto"`
	Sala         string `json:"room,omitempty"`
	EstudianteID uint   `json:"estudiante_id,omitempty"`
}

type chatHistoryPayload struct {
	EstudianteID uint `json:"estudiante_id,omitempty"`
}

type getProgressPayload struct {
	CursoID uint `json:"curso_id,omitempty"`
}

type connectedFrame struct {
	Type string `json:"type"`
}

type authSuccessFrame struct {
	Type string          `json:"type"`
	User *model.Identity `json:"user"`
}

type errorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type chatHistoryFrame struct {
	Type     string          `json:"type"`
	Sala     string          `json:"sala"`
	Mensajes []model.Mensaje `json:"messages"`
}

type chatMessageFrame struct {
	Type    string         `json:"type"`
	Mensaje *model.Mensaje `json:"mensaje"`
}

type saveProgressSuccessFrame struct {
	Type     string          `json:"type"`
	Progreso *model.Progreso `json:"progreso"`
}

type syncProgressSuccessFrame struct {
	Type          string `json:"type"`
	Sincronizados int    `json:"sincronizados"`
}

type progressDataFrame struct {
	Type      string           `json:"type"`
	Progresos []model.Progreso `json:"progresos"`
}

type tutorPresenceFrame struct {
	Type        string `json:"type"`
	TutorID     uint   `json:"tutor_id"`
	TutorNombre string `json:"tutor_nombre"`
}

type pongFrame struct {
	Type string `json:"type"`
}

// marshalFrame serializes an outgoing frame. Frames are built from typed
// structs above; a marshal failure here is a programming error and yields an
// empty payload that transports drop.
func marshalFrame(v interface{}) []byte {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return payload
}
