package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"testing"

	"kiosco_escolar_backend/internal/model"
	"kiosco_escolar_backend/internal/util"
	"kiosco_escolar_backend/pkg/logger"
	"kiosco_escolar_backend/pkg/monitoring"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

// fakeTransport captures everything the session sends.
type fakeTransport struct {
	frames [][]byte
	closed bool
}

func (t *fakeTransport) Send(payload []byte) bool {
	if t.closed {
		return false
	}
	t.frames = append(t.frames, payload)
	return true
}

func (t *fakeTransport) Close()       { t.closed = true }
func (t *fakeTransport) IsOpen() bool { return !t.closed }

func (t *fakeTransport) typeAt(i int) string {
	if i >= len(t.frames) {
		return ""
	}
	var env envelope
	json.Unmarshal(t.frames[i], &env)
	return env.Type
}

func (t *fakeTransport) lastType() string {
	return t.typeAt(len(t.frames) - 1)
}

func (t *fakeTransport) decodeLast(v interface{}) error {
	if len(t.frames) == 0 {
		return errors.New("no frames")
	}
	return json.Unmarshal(t.frames[len(t.frames)-1], v)
}

type fakeVerifier struct {
	identities map[string]*model.Identity
}

func (f *fakeVerifier) VerifyToken(credential string) (*model.Identity, error) {
	if identity, ok := f.identities[credential]; ok {
		return identity, nil
	}
	return nil, util.ErrUnauthenticated
}

type fakeChat struct {
	mensajes map[string][]model.Mensaje
}

func (f *fakeChat) SendMessage(author *model.Identity, sala, texto string) (*model.Mensaje, error) {
	texto = util.SanitizeMensaje(texto)
	if texto == "" {
		return nil, util.ErrValidation
	}
	msg := model.Mensaje{Sala: sala, UsuarioID: author.ID, Texto: texto}
	if f.mensajes == nil {
		f.mensajes = make(map[string][]model.Mensaje)
	}
	f.mensajes[sala] = append(f.mensajes[sala], msg)
	return &msg, nil
}

func (f *fakeChat) History(sala string, limit int) ([]model.Mensaje, error) {
	return f.mensajes[sala], nil
}

type fakeProgress struct {
	records map[string]*model.Progreso
}

func progressKey(usuarioID, cursoID, contenidoID uint) string {
	return fmt.Sprintf("%d/%d/%d", usuarioID, cursoID, contenidoID)
}

func (f *fakeProgress) Save(usuarioID, cursoID, contenidoID uint, avance int, completado bool) (*model.Progreso, error) {
	if usuarioID == 0 || cursoID == 0 || contenidoID == 0 || avance < 0 || avance > 100 {
		return nil, util.ErrValidation
	}
	if f.records == nil {
		f.records = make(map[string]*model.Progreso)
	}
	key := progressKey(usuarioID, cursoID, contenidoID)
	mergedAvance, mergedCompletado := MergeProgress(f.records[key], avance, completado)
	p := &model.Progreso{
		UsuarioID:   usuarioID,
		CursoID:     cursoID,
		ContenidoID: contenidoID,
		Avance:      mergedAvance,
		Completado:  mergedCompletado,
	}
	f.records[key] = p
	return p, nil
}

func (f *fakeProgress) Sync(usuarioID uint, writes []ProgressWrite) (int, error) {
	applied := 0
	for _, w := range writes {
		if _, err := f.Save(usuarioID, w.CursoID, w.ContenidoID, int(w.Avance), w.Completado); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}

func (f *fakeProgress) ListByUser(usuarioID uint) []model.Progreso {
	var out []model.Progreso
	for _, p := range f.records {
		if p.UsuarioID == usuarioID {
			out = append(out, *p)
		}
	}
	return out
}

func (f *fakeProgress) ListByCourse(usuarioID, cursoID uint) []model.Progreso {
	var out []model.Progreso
	for _, p := range f.records {
		if p.UsuarioID == usuarioID && p.CursoID == cursoID {
			out = append(out, *p)
		}
	}
	return out
}

type fakeStudents struct {
	ids []uint
}

func (f *fakeStudents) ListStudentIDs() ([]uint, error) { return f.ids, nil }

func testDeps() (SocketDeps, *RoomRegistry) {
	registry := NewRoomRegistry()
	deps := SocketDeps{
		Verifier: &fakeVerifier{identities: map[string]*model.Identity{
			"token-est": {ID: 1, Matricula: "A0001", Nombre: "Ana", Role: model.Estudiante},
			"token-tut": {ID: 9, Matricula: "T0001", Nombre: "Teo", Role: model.Tutor},
		}},
		Registry:     registry,
		Chat:         &fakeChat{},
		Progress:     &fakeProgress{},
		Students:     &fakeStudents{ids: []uint{1, 2}},
		HistoryLimit: 50,
	}
	return deps, registry
}

func frame(t *testing.T, v interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func authedStudent(t *testing.T, deps SocketDeps) (*SocketSession, *fakeTransport) {
	t.Helper()
	transport := &fakeTransport{}
	session := NewSocketSession(transport, deps)
	session.HandleFrame(frame(t, map[string]string{"type": MsgAuth, "token": "token-est"}))
	require.Equal(t, StateAuthenticated, session.State())
	return session, transport
}

func TestSessionGreetsOnConnect(t *testing.T) {
	deps, _ := testDeps()
	transport := &fakeTransport{}
	NewSocketSession(transport, deps)

	require.Len(t, transport.frames, 1)
	assert.Equal(t, MsgConnected, transport.typeAt(0))
}

func TestSessionRejectsMessagesBeforeAuth(t *testing.T) {
	deps, _ := testDeps()
	transport := &fakeTransport{}
	session := NewSocketSession(transport, deps)

	session.HandleFrame(frame(t, map[string]string{"type": MsgPing}))

	var errFrame errorFrame
	require.NoError(t, transport.decodeLast(&errFrame))
	assert.Equal(t, MsgError, errFrame.Type)
	assert.Equal(t, "No autenticado", errFrame.Error)
	// The connection stays open so the client can still authenticate.
	assert.True(t, transport.IsOpen())
	assert.Equal(t, StateUnauthenticated, session.State())
}

func TestSessionRejectsMalformedFrame(t *testing.T) {
	deps, _ := testDeps()
	transport := &fakeTransport{}
	session := NewSocketSession(transport, deps)

	session.HandleFrame([]byte("{not json"))
	assert.Equal(t, MsgError, transport.lastType())
	assert.True(t, transport.IsOpen())
}

func TestAuthFailureClosesConnection(t *testing.T) {
	deps, _ := testDeps()
	transport := &fakeTransport{}
	session := NewSocketSession(transport, deps)

	session.HandleFrame(frame(t, map[string]string{"type": MsgAuth, "token": "wrong"}))

	assert.Equal(t, MsgAuthError, transport.lastType())
	assert.False(t, transport.IsOpen())
	assert.Equal(t, StateClosed, session.State())
}

func TestStudentAuthJoinsOwnRoom(t *testing.T) {
	deps, registry := testDeps()
	_, transport := authedStudent(t, deps)

	assert.Equal(t, 1, registry.Members(StudentRoom(1)))

	// CONNECTED, AUTH_SUCCESS, CHAT_HISTORY in that order.
	require.GreaterOrEqual(t, len(transport.frames), 3)
	assert.Equal(t, MsgAuthSuccess, transport.typeAt(1))

	var success authSuccessFrame
	require.NoError(t, json.Unmarshal(transport.frames[1], &success))
	assert.Equal(t, uint(1), success.User.ID)

	var history chatHistoryFrame
	require.NoError(t, json.Unmarshal(transport.frames[2], &history))
	assert.Equal(t, MsgChatHistory, history.Type)
	assert.Equal(t, StudentRoom(1), history.Sala)
}

func TestTutorAuthFansOutAndAnnounces(t *testing.T) {
	deps, registry := testDeps()

	// One student already online to observe the announcement.
	_, estTransport := authedStudent(t, deps)

	tutTransport := &fakeTransport{}
	tutSession := NewSocketSession(tutTransport, deps)
	tutSession.HandleFrame(frame(t, map[string]string{"type": MsgAuth, "token": "token-tut"}))

	require.Equal(t, StateAuthenticated, tutSession.State())
	assert.Equal(t, 1, registry.Members(TutorRoom))
	assert.Equal(t, 2, registry.Members(StudentRoom(1))) // student + tutor
	assert.Equal(t, 1, registry.Members(StudentRoom(2))) // tutor only

	var online tutorPresenceFrame
	require.NoError(t, estTransport.decodeLast(&online))
	assert.Equal(t, MsgTutorOnline, online.Type)
	assert.Equal(t, uint(9), online.TutorID)
	assert.Equal(t, "Teo", online.TutorNombre)
}

func TestPingPong(t *testing.T) {
	deps, _ := testDeps()
	session, transport := authedStudent(t, deps)

	session.HandleFrame(frame(t, map[string]string{"type": MsgPing}))
	assert.Equal(t, MsgPong, transport.lastType())
}

func TestUnknownTypeIsNamedInError(t *testing.T) {
	deps, _ := testDeps()
	session, transport := authedStudent(t, deps)

	session.HandleFrame(frame(t, map[string]string{"type": "NOPE"}))

	var errFrame errorFrame
	require.NoError(t, transport.decodeLast(&errFrame))
	assert.Equal(t, MsgError, errFrame.Type)
	assert.Contains(t, errFrame.Error, "NOPE")
}

func TestUnknownTypeCountedUnderFixedLabel(t *testing.T) {
	deps, _ := testDeps()
	session, _ := authedStudent(t, deps)

	before := testutil.ToFloat64(monitoring.SocketMessageCounter.WithLabelValues("unknown", "in"))
	series := testutil.CollectAndCount(monitoring.SocketMessageCounter)

	session.HandleFrame(frame(t, map[string]string{"type": "TIPO_INVENTADO_1"}))
	session.HandleFrame(frame(t, map[string]string{"type": "TIPO_INVENTADO_2"}))

	after := testutil.ToFloat64(monitoring.SocketMessageCounter.WithLabelValues("unknown", "in"))
	assert.Equal(t, before+2, after)
	// Client-supplied type strings never mint new label values.
	assert.Equal(t, series, testutil.CollectAndCount(monitoring.SocketMessageCounter))
}

func TestSaveProgressRepliesAndBroadcasts(t *testing.T) {
	deps, registry := testDeps()
	session, transport := authedStudent(t, deps)

	// A tutor is watching the student's room.
	watcher := &fakeSubscriber{}
	registry.Join(StudentRoom(1), watcher)

	session.HandleFrame(frame(t, map[string]interface{}{
		"type": MsgSaveProgress, "curso_id": 1, "contenido_id": 2, "avance": 45.0,
	}))

	var reply saveProgressSuccessFrame
	require.NoError(t, transport.decodeLast(&reply))
	assert.Equal(t, MsgSaveProgressSuccess, reply.Type)
	assert.Equal(t, 45, reply.Progreso.Avance)

	require.Len(t, watcher.received, 1)
	var data progressDataFrame
	require.NoError(t, json.Unmarshal(watcher.received[0], &data))
	assert.Equal(t, MsgProgressData, data.Type)
	require.Len(t, data.Progresos, 1)
	assert.Equal(t, 45, data.Progresos[0].Avance)
}

func TestSaveProgressRejectsOutOfRange(t *testing.T) {
	deps, _ := testDeps()
	session, transport := authedStudent(t, deps)

	session.HandleFrame(frame(t, map[string]interface{}{
		"type": MsgSaveProgress, "curso_id": 1, "contenido_id": 2, "avance": 150.0,
	}))
	assert.Equal(t, MsgSaveProgressError, transport.lastType())
}

func TestSyncProgressReportsAppliedCount(t *testing.T) {
	deps, _ := testDeps()
	session, transport := authedStudent(t, deps)

	session.HandleFrame(frame(t, map[string]interface{}{
		"type": MsgSyncProgress,
		"progresos": []map[string]interface{}{
			{"curso_id": 1, "contenido_id": 1, "avance": 30.0},
			{"curso_id": 1, "contenido_id": 2, "avance": 95.0},
		},
	}))

	var reply syncProgressSuccessFrame
	require.NoError(t, transport.decodeLast(&reply))
	assert.Equal(t, MsgSyncProgressSuccess, reply.Type)
	assert.Equal(t, 2, reply.Sincronizados)
}

func TestStudentChatStaysInOwnRoom(t *testing.T) {
	deps, registry := testDeps()
	session, transport := authedStudent(t, deps)

	watcher := &fakeSubscriber{}
	registry.Join(StudentRoom(1), watcher)

	session.HandleFrame(frame(t, map[string]interface{}{
		"type": MsgChatMessage, "texto": "hola tutor", "room": "estudiante-2",
	}))

	// The requested foreign room is ignored; the message lands in room 1 and
	// the sender gets it back as the ack.
	require.Len(t, watcher.received, 1)
	var msg chatMessageFrame
	require.NoError(t, json.Unmarshal(watcher.received[0], &msg))
	assert.Equal(t, StudentRoom(1), msg.Mensaje.Sala)
	assert.Equal(t, "hola tutor", msg.Mensaje.Texto)
	assert.Equal(t, MsgChatMessage, transport.lastType())
}

func TestTutorChatRoutesByStudentID(t *testing.T) {
	deps, _ := testDeps()
	_, estTransport := authedStudent(t, deps)

	tutTransport := &fakeTransport{}
	tutSession := NewSocketSession(tutTransport, deps)
	tutSession.HandleFrame(frame(t, map[string]string{"type": MsgAuth, "token": "token-tut"}))

	tutSession.HandleFrame(frame(t, map[string]interface{}{
		"type": MsgChatMessage, "texto": "¿cómo vas?", "estudiante_id": 1,
	}))

	var msg chatMessageFrame
	require.NoError(t, estTransport.decodeLast(&msg))
	assert.Equal(t, MsgChatMessage, msg.Type)
	assert.Equal(t, StudentRoom(1), msg.Mensaje.Sala)
}

func TestTutorChatWithoutTargetFails(t *testing.T) {
	deps, _ := testDeps()
	transport := &fakeTransport{}
	session := NewSocketSession(transport, deps)
	session.HandleFrame(frame(t, map[string]string{"type": MsgAuth, "token": "token-tut"}))

	session.HandleFrame(frame(t, map[string]interface{}{
		"type": MsgChatMessage, "texto": "hola",
	}))
	assert.Equal(t, MsgChatError, transport.lastType())
}

func TestEmptyChatMessageFails(t *testing.T) {
	deps, _ := testDeps()
	session, transport := authedStudent(t, deps)

	session.HandleFrame(frame(t, map[string]interface{}{
		"type": MsgChatMessage, "texto": "   ",
	}))
	assert.Equal(t, MsgChatError, transport.lastType())
}

func TestGetProgressReturnsData(t *testing.T) {
	deps, _ := testDeps()
	session, transport := authedStudent(t, deps)

	session.HandleFrame(frame(t, map[string]interface{}{
		"type": MsgSaveProgress, "curso_id": 3, "contenido_id": 1, "avance": 20.0,
	}))
	session.HandleFrame(frame(t, map[string]interface{}{
		"type": MsgGetProgress, "curso_id": 3,
	}))

	var data progressDataFrame
	require.NoError(t, transport.decodeLast(&data))
	assert.Equal(t, MsgProgressData, data.Type)
	require.Len(t, data.Progresos, 1)
	assert.Equal(t, uint(3), data.Progresos[0].CursoID)
}

func TestDisconnectLeavesRoomsAndAnnouncesTutorOffline(t *testing.T) {
	deps, registry := testDeps()
	_, estTransport := authedStudent(t, deps)

	tutTransport := &fakeTransport{}
	tutSession := NewSocketSession(tutTransport, deps)
	tutSession.HandleFrame(frame(t, map[string]string{"type": MsgAuth, "token": "token-tut"}))
	require.Equal(t, 2, registry.Members(StudentRoom(1)))

	tutSession.OnDisconnect()

	assert.Equal(t, 0, registry.Members(TutorRoom))
	assert.Equal(t, 1, registry.Members(StudentRoom(1)))

	var offline tutorPresenceFrame
	require.NoError(t, estTransport.decodeLast(&offline))
	assert.Equal(t, MsgTutorOffline, offline.Type)
	assert.Equal(t, uint(9), offline.TutorID)

	// A second disconnect is a no-op.
	tutSession.OnDisconnect()
}

func TestStudentDisconnectLeavesRoom(t *testing.T) {
	deps, registry := testDeps()
	session, _ := authedStudent(t, deps)

	session.OnDisconnect()
	assert.Equal(t, 0, registry.Members(StudentRoom(1)))
	assert.Equal(t, StateClosed, session.State())
}
