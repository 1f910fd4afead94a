package controller

import (
	"kiosco_escolar_backend/internal/model"
	"kiosco_escolar_backend/internal/service"
	"kiosco_escolar_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	QuizService *service.QuizService
}

func NewQuizController(quizService *service.QuizService) *QuizController {
	return &QuizController{QuizService: quizService}
}

// Questions godoc
// @Summary Preguntas de un quiz
// @Description Estudiantes reciben las opciones sin la marca de respuesta correcta
// @Tags quiz
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "ID del contenido tipo quiz"
// @Success 200 {object} util.Response{data=[]model.Pregunta} "Preguntas"
// @Router /api/contenidos/{id}/preguntas [get]
func (c *QuizController) Questions(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	identity := identityFromClaims(ctx)
	preguntas, err := c.QuizService.Questions(id, identity.IsTutor())
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, preguntas)
}

// swagger:model OpcionRequest
type OpcionRequest struct {
	Texto      string `json:"texto" binding:"required"`
	EsCorrecta bool   `json:"es_correcta"`
}

// swagger:model PreguntaRequest
type PreguntaRequest struct {
	Texto    string          `json:"texto" binding:"required"`
	Tipo     string          `json:"tipo" binding:"required,oneof=opcion_multiple texto_libre"`
	Puntos   int             `json:"puntos"`
	Opciones []OpcionRequest `json:"opciones"`
}

// CreateQuestion godoc
// @Summary Agregar pregunta a un quiz
// @Description Opción múltiple requiere al menos dos opciones con exactamente una correcta
// @Tags quiz
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "ID del contenido tipo quiz"
// @Param   body body PreguntaRequest true "Pregunta con sus opciones"
// @Success 201 {object} util.Response{data=model.Pregunta} "Pregunta creada"
// @Failure 403 {object} util.Response "Solo tutores"
// @Failure 404 {object} util.Response "Contenido no encontrado"
// @Router /api/tutor/contenidos/{id}/preguntas [post]
func (c *QuizController) CreateQuestion(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req PreguntaRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	pregunta := &model.Pregunta{
		Texto:  req.Texto,
		Tipo:   model.QuestionType(req.Tipo),
		Puntos: req.Puntos,
	}
	for _, o := range req.Opciones {
		pregunta.Opciones = append(pregunta.Opciones, model.Opcion{
			Texto:      o.Texto,
			EsCorrecta: o.EsCorrecta,
		})
	}
	if err := c.QuizService.AddPregunta(id, pregunta); err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Created(ctx, pregunta)
}

// swagger:model RespuestasRequest
type RespuestasRequest struct {
	Respuestas []service.AnswerSubmission `json:"respuestas" binding:"required"`
}

// Submit godoc
// @Summary Enviar un intento de quiz
// @Description Califica y almacena un intento completo. Máximo 3 intentos por quiz; al aprobar el contenido se marca completado
// @Tags quiz
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "ID del contenido tipo quiz"
// @Param   body body RespuestasRequest true "Respuestas del intento"
// @Success 200 {object} util.Response{data=object} "Calificación del intento"
// @Failure 400 {object} util.Response "Datos inválidos o límite de intentos alcanzado"
// @Router /api/contenidos/{id}/respuestas [post]
func (c *QuizController) Submit(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	var req RespuestasRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	respuestas, calificacion, err := c.QuizService.SubmitAnswers(claims.UserID, id, req.Respuestas)
	if err != nil {
		util.FromError(ctx, err)
		return
	}

	restantes, _ := c.QuizService.AttemptsRemaining(claims.UserID, id)
	util.Success(ctx, gin.H{
		"calificacion": calificacion,
		"respuestas":   respuestas,
		"restantes":    restantes,
	})
}

// Attempts godoc
// @Summary Estado de intentos de un quiz
// @Description Mejor calificación hasta ahora e intentos restantes
// @Tags quiz
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "ID del contenido tipo quiz"
// @Success 200 {object} util.Response{data=object} "Estado de intentos"
// @Router /api/contenidos/{id}/intentos [get]
func (c *QuizController) Attempts(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	restantes, err := c.QuizService.AttemptsRemaining(claims.UserID, id)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	siguiente, err := c.QuizService.NextAttemptNumber(claims.UserID, id)
	if err != nil {
		util.FromError(ctx, err)
		return
	}

	var mejor interface{}
	if best, berr := c.QuizService.BestAttempt(claims.UserID, id); berr == nil {
		mejor = best
	}

	util.Success(ctx, gin.H{
		"restantes":        restantes,
		"maxIntentos":      service.MaxIntentos,
		"siguienteIntento": siguiente,
		"mejorIntento":     mejor,
	})
}
