package controller

import (
	"kiosco_escolar_backend/internal/service"
	"kiosco_escolar_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type UserController struct {
	UserService *service.UserService
}

func NewUserController(userService *service.UserService) *UserController {
	return &UserController{UserService: userService}
}

// Students godoc
// @Summary Lista de estudiantes
// @Description Roster para el panel del tutor: presencia, sala y mensajes sin leer por estudiante
// @Tags usuarios
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]service.EstudianteView} "Estudiantes"
// @Failure 403 {object} util.Response "Solo tutores"
// @Router /api/tutor/estudiantes [get]
func (c *UserController) Students(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	estudiantes, err := c.UserService.Roster(claims.UserID)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, estudiantes)
}
