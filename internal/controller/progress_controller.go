package controller

import (
	"math"
	"strconv"

	"kiosco_escolar_backend/internal/service"
	"kiosco_escolar_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
}

func NewProgressController(progressService *service.ProgressService) *ProgressController {
	return &ProgressController{ProgressService: progressService}
}

// Get godoc
// @Summary Avance del usuario autenticado
// @Description Sin curso_id devuelve todos los registros; con curso_id filtra por curso
// @Tags progreso
// @Produce  json
// @Security ApiKeyAuth
// @Param   curso_id query int false "Filtrar por curso"
// @Success 200 {object} util.Response{data=[]model.Progreso} "Registros de avance"
// @Router /api/progreso [get]
func (c *ProgressController) Get(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	if raw := ctx.Query("curso_id"); raw != "" {
		cursoID, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			util.BadRequest(ctx, "curso_id inválido")
			return
		}
		util.Success(ctx, c.ProgressService.ListByCourse(claims.UserID, uint(cursoID)))
		return
	}
	util.Success(ctx, c.ProgressService.ListByUser(claims.UserID))
}

// swagger:model ProgresoRequest
type ProgresoRequest struct {
	CursoID     uint    `json:"curso_id" binding:"required"`
	ContenidoID uint    `json:"contenido_id" binding:"required"`
	Avance      float64 `json:"avance"`
	Completado  bool    `json:"completado"`
}

// Save godoc
// @Summary Guardar avance
// @Description Aplica la regla de fusión monótona: el porcentaje nunca retrocede y completado es permanente
// @Tags progreso
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body ProgresoRequest true "Avance"
// @Success 200 {object} util.Response{data=model.Progreso} "Registro almacenado"
// @Failure 400 {object} util.Response "Datos inválidos"
// @Router /api/progreso [post]
func (c *ProgressController) Save(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req ProgresoRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	progreso, err := c.ProgressService.Save(claims.UserID, req.CursoID, req.ContenidoID, int(math.Round(req.Avance)), req.Completado)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, progreso)
}

// swagger:model SyncRequest
type SyncRequest struct {
	Progresos []service.ProgressWrite `json:"progresos" binding:"required"`
}

// Sync godoc
// @Summary Sincronizar avances acumulados sin conexión
// @Description Reaplica un lote de escrituras; la fusión es conmutativa así que el orden no importa
// @Tags progreso
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body SyncRequest true "Lote de avances"
// @Success 200 {object} util.Response{data=object} "Cantidad sincronizada"
// @Router /api/progreso/sync [post]
func (c *ProgressController) Sync(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req SyncRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sincronizados, err := c.ProgressService.Sync(claims.UserID, req.Progresos)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"sincronizados": sincronizados})
}

// CourseSummary godoc
// @Summary Resumen de avance de un curso
// @Description Porcentaje derivado del curso completo; nunca se almacena
// @Tags progreso
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "ID del curso"
// @Success 200 {object} util.Response{data=model.CursoProgreso} "Resumen"
// @Router /api/cursos/{id}/progreso [get]
func (c *ProgressController) CourseSummary(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	resumen, err := c.ProgressService.CourseProgress(claims.UserID, id)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, resumen)
}
