package controller

import (
	"strconv"

	"kiosco_escolar_backend/internal/model"
	"kiosco_escolar_backend/internal/service"
	"kiosco_escolar_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	CourseService *service.CourseService
}

func NewCourseController(courseService *service.CourseService) *CourseController {
	return &CourseController{CourseService: courseService}
}

func identityFromClaims(ctx *gin.Context) *model.Identity {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		return nil
	}
	return &model.Identity{
		ID:        claims.UserID,
		Matricula: claims.Matricula,
		Role:      claims.Role,
	}
}

func paramID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil || id == 0 {
		util.BadRequest(ctx, "id inválido")
		return 0, false
	}
	return uint(id), true
}

// List godoc
// @Summary Catálogo de cursos
// @Description Estudiantes ven cursos publicados; tutores ven todos. Cada curso incluye el avance derivado del solicitante
// @Tags cursos
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]service.CursoView} "Cursos"
// @Router /api/cursos [get]
func (c *CourseController) List(ctx *gin.Context) {
	identity := identityFromClaims(ctx)
	if identity == nil {
		util.Unauthorized(ctx)
		return
	}

	cursos, err := c.CourseService.List(identity)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, cursos)
}

// Detail godoc
// @Summary Detalle de un curso
// @Description Curso con sus contenidos ordenados y el avance del solicitante
// @Tags cursos
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "ID del curso"
// @Success 200 {object} util.Response{data=service.CursoView} "Curso"
// @Failure 404 {object} util.Response "Curso no encontrado"
// @Router /api/cursos/{id} [get]
func (c *CourseController) Detail(ctx *gin.Context) {
	identity := identityFromClaims(ctx)
	if identity == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	curso, err := c.CourseService.Detail(identity, id)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, curso)
}

// swagger:model CursoRequest
type CursoRequest struct {
	Titulo      string `json:"titulo" binding:"required"`
	Descripcion string `json:"descripcion"`
	Publicado   bool   `json:"publicado"`
}

// Create godoc
// @Summary Crear curso
// @Tags cursos
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body CursoRequest true "Curso"
// @Success 201 {object} util.Response{data=model.Curso} "Curso creado"
// @Failure 403 {object} util.Response "Solo tutores"
// @Router /api/tutor/cursos [post]
func (c *CourseController) Create(ctx *gin.Context) {
	identity := identityFromClaims(ctx)
	var req CursoRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	curso := &model.Curso{
		Titulo:      req.Titulo,
		Descripcion: req.Descripcion,
		TutorID:     identity.ID,
		Publicado:   req.Publicado,
	}
	if err := c.CourseService.Create(curso); err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Created(ctx, curso)
}

// Update godoc
// @Summary Actualizar curso
// @Tags cursos
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "ID del curso"
// @Param   body body CursoRequest true "Campos a actualizar"
// @Success 200 {object} util.Response{data=model.Curso} "Curso actualizado"
// @Failure 404 {object} util.Response "Curso no encontrado"
// @Router /api/tutor/cursos/{id} [put]
func (c *CourseController) Update(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req CursoRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	curso, err := c.CourseService.Update(id, &model.Curso{
		Titulo:      req.Titulo,
		Descripcion: req.Descripcion,
		Publicado:   req.Publicado,
	})
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, curso)
}

// Delete godoc
// @Summary Eliminar curso
// @Tags cursos
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "ID del curso"
// @Success 200 {object} util.Response "Curso eliminado"
// @Failure 404 {object} util.Response "Curso no encontrado"
// @Router /api/tutor/cursos/{id} [delete]
func (c *CourseController) Delete(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	if err := c.CourseService.Delete(id); err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"message": "curso eliminado"})
}

// swagger:model ContenidoRequest
type ContenidoRequest struct {
	Titulo     string `json:"titulo" binding:"required"`
	Tipo       string `json:"tipo" binding:"required,oneof=pdf video texto quiz"`
	Cuerpo     string `json:"cuerpo"`
	ArchivoURL string `json:"archivo_url"`
	Orden      int    `json:"orden"`
}

// AddContenido godoc
// @Summary Agregar contenido a un curso
// @Tags cursos
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "ID del curso"
// @Param   body body ContenidoRequest true "Contenido"
// @Success 201 {object} util.Response{data=model.Contenido} "Contenido creado"
// @Failure 404 {object} util.Response "Curso no encontrado"
// @Router /api/tutor/cursos/{id}/contenidos [post]
func (c *CourseController) AddContenido(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req ContenidoRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	contenido := &model.Contenido{
		Titulo:     req.Titulo,
		Tipo:       model.ContentType(req.Tipo),
		Cuerpo:     req.Cuerpo,
		ArchivoURL: req.ArchivoURL,
		Orden:      req.Orden,
	}
	if err := c.CourseService.AddContenido(id, contenido); err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Created(ctx, contenido)
}

// UpdateContenido godoc
// @Summary Actualizar contenido
// @Tags cursos
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "ID del contenido"
// @Param   body body ContenidoRequest true "Campos a actualizar"
// @Success 200 {object} util.Response{data=model.Contenido} "Contenido actualizado"
// @Failure 404 {object} util.Response "Contenido no encontrado"
// @Router /api/tutor/contenidos/{id} [put]
func (c *CourseController) UpdateContenido(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req ContenidoRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	contenido, err := c.CourseService.UpdateContenido(id, &model.Contenido{
		Titulo:     req.Titulo,
		Tipo:       model.ContentType(req.Tipo),
		Cuerpo:     req.Cuerpo,
		ArchivoURL: req.ArchivoURL,
		Orden:      req.Orden,
	})
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, contenido)
}

// DeleteContenido godoc
// @Summary Eliminar contenido
// @Tags cursos
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "ID del contenido"
// @Success 200 {object} util.Response "Contenido eliminado"
// @Failure 404 {object} util.Response "Contenido no encontrado"
// @Router /api/tutor/contenidos/{id} [delete]
func (c *CourseController) DeleteContenido(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	if err := c.CourseService.DeleteContenido(id); err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"message": "contenido eliminado"})
}
