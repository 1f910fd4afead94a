package service

import (
	"encoding/json"
	"fmt"
	"math"
	"sync"

	"kiosco_escolar_backend/internal/model"
	"kiosco_escolar_backend/pkg/logger"
	"kiosco_escolar_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// SessionState tracks where a connection sits in its lifecycle. Transitions
// only move forward: UNAUTHENTICATED → AUTHENTICATED → CLOSED, or straight
// to CLOSED on a failed handshake.
type SessionState int32

const (
	StateUnauthenticated SessionState = iota
	StateAuthenticated
	StateClosed
)

// Transport is the write side of one connection as the session sees it.
// Send must never block; it reports false when the connection is gone or its
// outbound buffer is full.
type Transport interface {
	Send(payload []byte) bool
	Close()
	IsOpen() bool
}

// TokenVerifier resolves the AUTH credential to an identity.
type TokenVerifier interface {
	VerifyToken(credential string) (*model.Identity, error)
}

// ChatStore persists and reads room messages.
type ChatStore interface {
	SendMessage(author *model.Identity, sala, texto string) (*model.Mensaje, error)
	History(sala string, limit int) ([]model.Mensaje, error)
}

// ProgressStore applies and reads advancement records.
type ProgressStore interface {
	Save(usuarioID, cursoID, contenidoID uint, avance int, completado bool) (*model.Progreso, error)
	Sync(usuarioID uint, writes []ProgressWrite) (int, error)
	ListByUser(usuarioID uint) []model.Progreso
	ListByCourse(usuarioID, cursoID uint) []model.Progreso
}

// StudentDirectory lists the ids a tutor connection fans out to.
type StudentDirectory interface {
	ListStudentIDs() ([]uint, error)
}

// PresenceNotifier learns that a connection finished its handshake.
type PresenceNotifier interface {
	MarkOnline(userID uint)
}

// SocketDeps bundles everything a session needs. One value is built at
// startup and shared by all sessions.
type SocketDeps struct {
	Verifier     TokenVerifier
	Registry     *RoomRegistry
	Chat         ChatStore
	Progress     ProgressStore
	Students     StudentDirectory
	Presence     PresenceNotifier
	HistoryLimit int
}

// SocketSession is the per-connection protocol handler. It owns no goroutine:
// the transport's read loop calls HandleFrame for each inbound frame and
// OnDisconnect exactly once when the connection dies. It implements
// Subscriber so the registry can deliver broadcasts to it.
type SocketSession struct {
	transport Transport
	deps      SocketDeps

	mu       sync.Mutex
	state    SessionState
	identity *model.Identity
	rooms    []string
}

// handlers is the post-auth dispatch table. Adding a message type is one
// entry here plus its handler; the switch never grows.
var handlers = map[string]func(*SocketSession, []byte){
	MsgSaveProgress:   (*SocketSession).handleSaveProgress,
	MsgSyncProgress:   (*SocketSession).handleSyncProgress,
	MsgChatMessage:    (*SocketSession).handleChatMessage,
	MsgGetChatHistory: (*SocketSession).handleGetChatHistory,
	MsgGetProgress:    (*SocketSession).handleGetProgress,
	MsgPing:           (*SocketSession).handlePing,
}

// NewSocketSession wires a session to its transport and greets the client.
// The greeting tells the client the server is ready for AUTH.
func NewSocketSession(transport Transport, deps SocketDeps) *SocketSession {
	if deps.HistoryLimit <= 0 {
		deps.HistoryLimit = 50
	}
	s := &SocketSession{
		transport: transport,
		deps:      deps,
		state:     StateUnauthenticated,
	}
	s.send(MsgConnected, connectedFrame{Type: MsgConnected})
	return s
}

// Send implements Subscriber; broadcasts reach the session through here.
func (s *SocketSession) Send(payload []byte) bool {
	return s.transport.Send(payload)
}

// IsOpen implements Subscriber.
func (s *SocketSession) IsOpen() bool {
	return s.transport.IsOpen()
}

// Identity returns the authenticated identity, nil before the handshake.
func (s *SocketSession) Identity() *model.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

func (s *SocketSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// HandleFrame processes one inbound frame. Unauthenticated connections may
// only AUTH; anything else is answered with an error but the connection
// stays open so the client can still complete the handshake.
func (s *SocketSession) HandleFrame(raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Type == "" {
		s.sendError(MsgError, "mensaje malformado")
		return
	}

	if env.Type == MsgAuth {
		monitoring.SocketMessageCounter.WithLabelValues(MsgAuth, "in").Inc()
		s.handleAuth(raw)
		return
	}

	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	if state != StateAuthenticated {
		s.sendError(MsgError, "No autenticado")
		return
	}

	handler, ok := handlers[env.Type]
	if !ok {
		// Client-supplied types only become a metric label once recognized,
		// so a hostile client cannot mint unbounded label values.
		monitoring.SocketMessageCounter.WithLabelValues("unknown", "in").Inc()
		s.sendError(MsgError, fmt.Sprintf("tipo de mensaje desconocido: %s", env.Type))
		return
	}
	monitoring.SocketMessageCounter.WithLabelValues(env.Type, "in").Inc()
	handler(s, raw)
}

// handleAuth runs the in-socket handshake. Failure is terminal: the client
// gets AUTH_ERROR and the connection is closed, forcing a fresh dial with a
// valid token. Success binds the identity and joins rooms by role.
func (s *SocketSession) handleAuth(raw []byte) {
	var payload authPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		s.failAuth("mensaje malformado")
		return
	}

	identity, err := s.deps.Verifier.VerifyToken(payload.Token)
	if err != nil {
		s.failAuth("token inválido o expirado")
		return
	}

	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	if s.state == StateAuthenticated {
		// Idempotent re-auth: confirm without re-joining rooms.
		current := s.identity
		s.mu.Unlock()
		s.send(MsgAuthSuccess, authSuccessFrame{Type: MsgAuthSuccess, User: current})
		return
	}
	s.state = StateAuthenticated
	s.identity = identity
	s.mu.Unlock()

	var sala string
	if identity.IsTutor() {
		studentIDs, derr := s.deps.Students.ListStudentIDs()
		if derr != nil {
			logger.Log.Warn("student roster unavailable, tutor joins tutor-room only",
				zap.Uint("tutorId", identity.ID), zap.Error(derr))
			studentIDs = nil
		}
		rooms := s.deps.Registry.FanOutTutor(s, studentIDs)
		s.mu.Lock()
		s.rooms = rooms
		s.mu.Unlock()

		online := marshalFrame(tutorPresenceFrame{
			Type:        MsgTutorOnline,
			TutorID:     identity.ID,
			TutorNombre: identity.Nombre,
		})
		for _, room := range rooms {
			if IsStudentRoom(room) {
				s.deps.Registry.BroadcastExcept(room, online, s)
			}
		}
		sala = TutorRoom
	} else {
		sala = StudentRoom(identity.ID)
		s.deps.Registry.Join(sala, s)
		s.mu.Lock()
		s.rooms = []string{sala}
		s.mu.Unlock()
	}

	if s.deps.Presence != nil {
		s.deps.Presence.MarkOnline(identity.ID)
	}

	s.send(MsgAuthSuccess, authSuccessFrame{Type: MsgAuthSuccess, User: identity})

	mensajes, herr := s.deps.Chat.History(sala, s.deps.HistoryLimit)
	if herr != nil {
		logger.Log.Warn("chat history unavailable on auth",
			zap.String("sala", sala), zap.Error(herr))
		mensajes = []model.Mensaje{}
	}
	s.send(MsgChatHistory, chatHistoryFrame{Type: MsgChatHistory, Sala: sala, Mensajes: mensajes})

	logger.Log.Info("socket authenticated",
		zap.Uint("userId", identity.ID),
		zap.String("matricula", identity.Matricula),
		zap.String("role", string(identity.Role)))
}

func (s *SocketSession) failAuth(motivo string) {
	s.send(MsgAuthError, errorFrame{Type: MsgAuthError, Error: motivo})
	s.mu.Lock()
	s.state = StateClosed
	s.mu.Unlock()
	s.transport.Close()
}

func (s *SocketSession) handleSaveProgress(raw []byte) {
	var payload saveProgressPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		s.sendError(MsgSaveProgressError, "mensaje malformado")
		return
	}

	identity := s.Identity()
	avance := int(math.Round(payload.Avance))
	progreso, err := s.deps.Progress.Save(identity.ID, payload.CursoID, payload.ContenidoID, avance, payload.Completado)
	if err != nil {
		s.sendError(MsgSaveProgressError, err.Error())
		return
	}

	s.send(MsgSaveProgressSuccess, saveProgressSuccessFrame{Type: MsgSaveProgressSuccess, Progreso: progreso})

	// Tutors watching this student's room see the write land in real time.
	if !identity.IsTutor() {
		frame := marshalFrame(progressDataFrame{Type: MsgProgressData, Progresos: []model.Progreso{*progreso}})
		s.deps.Registry.BroadcastExcept(StudentRoom(identity.ID), frame, s)
	}
}

func (s *SocketSession) handleSyncProgress(raw []byte) {
	var payload syncProgressPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		s.sendError(MsgSyncProgressError, "mensaje malformado")
		return
	}

	identity := s.Identity()
	sincronizados, err := s.deps.Progress.Sync(identity.ID, payload.Progresos)
	if err != nil {
		s.sendError(MsgSyncProgressError, err.Error())
		return
	}
	s.send(MsgSyncProgressSuccess, syncProgressSuccessFrame{Type: MsgSyncProgressSuccess, Sincronizados: sincronizados})

	if !identity.IsTutor() && sincronizados > 0 {
		progresos := s.deps.Progress.ListByUser(identity.ID)
		frame := marshalFrame(progressDataFrame{Type: MsgProgressData, Progresos: progresos})
		s.deps.Registry.BroadcastExcept(StudentRoom(identity.ID), frame, s)
	}
}

// handleChatMessage routes by role: a student always talks in their own room;
// a tutor must address a student (by id or room name) or the shared room.
func (s *SocketSession) handleChatMessage(raw []byte) {
	var payload chatMessagePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		s.sendError(MsgChatError, "mensaje malformado")
		return
	}

	identity := s.Identity()
	var sala string
	if identity.IsTutor() {
		switch {
		case payload.EstudianteID != 0:
			sala = StudentRoom(payload.EstudianteID)
		case payload.Sala == TutorRoom || IsStudentRoom(payload.Sala):
			sala = payload.Sala
		default:
			s.sendError(MsgChatError, "destinatario requerido: estudiante_id o room")
			return
		}
	} else {
		sala = StudentRoom(identity.ID)
	}

	mensaje, err := s.deps.Chat.SendMessage(identity, sala, payload.Texto)
	if err != nil {
		s.sendError(MsgChatError, err.Error())
		return
	}

	// The sender is a member of the room, so the broadcast doubles as the ack.
	frame := marshalFrame(chatMessageFrame{Type: MsgChatMessage, Mensaje: mensaje})
	s.deps.Registry.Broadcast(sala, frame)
	monitoring.SocketMessageCounter.WithLabelValues(MsgChatMessage, "out").Inc()
}

func (s *SocketSession) handleGetChatHistory(raw []byte) {
	var payload chatHistoryPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		s.sendError(MsgChatError, "mensaje malformado")
		return
	}

	identity := s.Identity()
	sala := StudentRoom(identity.ID)
	if identity.IsTutor() {
		if payload.EstudianteID != 0 {
			sala = StudentRoom(payload.EstudianteID)
		} else {
			sala = TutorRoom
		}
	}

	mensajes, err := s.deps.Chat.History(sala, s.deps.HistoryLimit)
	if err != nil {
		s.sendError(MsgChatError, err.Error())
		return
	}
	s.send(MsgChatHistory, chatHistoryFrame{Type: MsgChatHistory, Sala: sala, Mensajes: mensajes})
}

func (s *SocketSession) handleGetProgress(raw []byte) {
	var payload getProgressPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		s.sendError(MsgError, "mensaje malformado")
		return
	}

	identity := s.Identity()
	var progresos []model.Progreso
	if payload.CursoID != 0 {
		progresos = s.deps.Progress.ListByCourse(identity.ID, payload.CursoID)
	} else {
		progresos = s.deps.Progress.ListByUser(identity.ID)
	}
	s.send(MsgProgressData, progressDataFrame{Type: MsgProgressData, Progresos: progresos})
}

func (s *SocketSession) handlePing(_ []byte) {
	s.send(MsgPong, pongFrame{Type: MsgPong})
}

// OnDisconnect tears the session down: leave every joined room and, for a
// tutor, tell each student room the tutor went away. Safe to call once from
// the transport's read loop; later frames are impossible by then.
func (s *SocketSession) OnDisconnect() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateClosed
	identity := s.identity
	rooms := s.rooms
	s.rooms = nil
	s.mu.Unlock()

	for _, room := range rooms {
		s.deps.Registry.Leave(room, s)
	}

	if identity != nil && identity.IsTutor() {
		offline := marshalFrame(tutorPresenceFrame{
			Type:        MsgTutorOffline,
			TutorID:     identity.ID,
			TutorNombre: identity.Nombre,
		})
		for _, room := range rooms {
			if IsStudentRoom(room) {
				s.deps.Registry.Broadcast(room, offline)
			}
		}
	}

	if identity != nil {
		logger.Log.Info("socket disconnected",
			zap.Uint("userId", identity.ID),
			zap.String("role", string(identity.Role)))
	}
}

func (s *SocketSession) send(msgType string, frame interface{}) {
	payload := marshalFrame(frame)
	if payload == nil {
		return
	}
	if s.transport.Send(payload) {
		monitoring.SocketMessageCounter.WithLabelValues(msgType, "out").Inc()
	}
}

func (s *SocketSession) sendError(msgType, motivo string) {
	s.send(msgType, errorFrame{Type: msgType, Error: motivo})
}
