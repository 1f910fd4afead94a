package controller

import (
	"strconv"

	"kiosco_escolar_backend/internal/service"
	"kiosco_escolar_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ChatController struct {
	ChatService *service.ChatService
	Hub         *service.SocketHub
}

func NewChatController(chatService *service.ChatService, hub *service.SocketHub) *ChatController {
	return &ChatController{
		ChatService: chatService,
		Hub:         hub,
	}
}

// salaFor resolves which room the caller may touch: students are pinned to
// their own room, tutors pick any student room (or the shared one).
func (c *ChatController) salaFor(ctx *gin.Context) (string, bool) {
	identity := identityFromClaims(ctx)
	if identity == nil {
		util.Unauthorized(ctx)
		return "", false
	}
	if !identity.IsTutor() {
		return service.StudentRoom(identity.ID), true
	}

	if raw := ctx.Query("estudiante_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || id == 0 {
			util.BadRequest(ctx, "estudiante_id inválido")
			return "", false
		}
		return service.StudentRoom(uint(id)), true
	}
	if sala := ctx.Query("sala"); sala == service.TutorRoom || service.IsStudentRoom(sala) {
		return sala, true
	}
	return service.TutorRoom, true
}

// History godoc
// @Summary Historial de mensajes
// @Description Estudiantes leen su propia sala; tutores eligen sala por estudiante_id o sala
// @Tags chat
// @Produce  json
// @Security ApiKeyAuth
// @Param   estudiante_id query int false "Sala del estudiante (solo tutores)"
// @Param   sala query string false "Nombre de sala (solo tutores)"
// @Param   limit query int false "Máximo de mensajes (default 50)"
// @Success 200 {object} util.Response{data=[]model.Mensaje} "Mensajes en orden cronológico"
// @Router /api/mensajes [get]
func (c *ChatController) History(ctx *gin.Context) {
	sala, ok := c.salaFor(ctx)
	if !ok {
		return
	}

	limit := 50
	if raw := ctx.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	mensajes, err := c.ChatService.History(sala, limit)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"sala": sala, "mensajes": mensajes})
}

// swagger:model MensajeRequest
type MensajeRequest struct {
	Texto        string `json:"texto" binding:"required"`
	EstudianteID uint   `json:"estudiante_id"`
	Sala         string `json:"sala"`
}

// Send godoc
// @Summary Enviar mensaje por REST
// @Description Alternativa al socket para clientes sin conexión persistente; el mensaje también se difunde a las sesiones vivas de la sala
// @Tags chat
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body MensajeRequest true "Mensaje"
// @Success 201 {object} util.Response{data=model.Mensaje} "Mensaje almacenado"
// @Failure 400 {object} util.Response "Texto vacío o destinatario inválido"
// @Router /api/mensajes [post]
func (c *ChatController) Send(ctx *gin.Context) {
	identity := identityFromClaims(ctx)
	if identity == nil {
		util.Unauthorized(ctx)
		return
	}

	var req MensajeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	var sala string
	if identity.IsTutor() {
		switch {
		case req.EstudianteID != 0:
			sala = service.StudentRoom(req.EstudianteID)
		case req.Sala == service.TutorRoom || service.IsStudentRoom(req.Sala):
			sala = req.Sala
		default:
			util.BadRequest(ctx, "destinatario requerido: estudiante_id o sala")
			return
		}
	} else {
		sala = service.StudentRoom(identity.ID)
	}

	mensaje, err := c.ChatService.SendMessage(identity, sala, req.Texto)
	if err != nil {
		util.FromError(ctx, err)
		return
	}

	c.ChatService.BroadcastMessage(sala, mensaje)
	util.Created(ctx, mensaje)
}

// MarkRead godoc
// @Summary Marcar sala como leída
// @Tags chat
// @Produce  json
// @Security ApiKeyAuth
// @Param   estudiante_id query int false "Sala del estudiante (solo tutores)"
// @Param   sala query string false "Nombre de sala (solo tutores)"
// @Success 200 {object} util.Response "Sala marcada"
// @Router /api/mensajes/leidos [post]
func (c *ChatController) MarkRead(ctx *gin.Context) {
	identity := identityFromClaims(ctx)
	if identity == nil {
		util.Unauthorized(ctx)
		return
	}
	sala, ok := c.salaFor(ctx)
	if !ok {
		return
	}

	if err := c.ChatService.MarkRead(sala, identity.ID); err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"sala": sala})
}

// HandleWS godoc
// @Summary Conexión WebSocket
// @Description Actualiza la conexión a WebSocket; la autenticación ocurre dentro del socket con un mensaje AUTH
// @Tags chat
// @Router /ws [get]
func (c *ChatController) HandleWS(ctx *gin.Context) {
	c.Hub.ServeWs(ctx.Writer, ctx.Request)
}
