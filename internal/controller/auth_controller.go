package controller

import (
	"kiosco_escolar_backend/internal/service"
	"kiosco_escolar_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	AuthService *service.AuthService
}

func NewAuthController(authService *service.AuthService) *AuthController {
	return &AuthController{AuthService: authService}
}

// swagger:model LoginRequest
type LoginRequest struct {
	Matricula string `json:"matricula" binding:"required"`
	Password  string `json:"password" binding:"required"`
}

// swagger:model RefreshRequest
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// Login godoc
// @Summary Iniciar sesión
// @Description Valida matrícula y contraseña y entrega los tokens de acceso
// @Tags auth
// @Accept  json
// @Produce  json
// @Param   body body LoginRequest true "Credenciales"
// @Success 200 {object} util.Response{data=service.LoginResult} "Sesión iniciada"
// @Failure 400 {object} util.Response "Cuerpo inválido"
// @Failure 401 {object} util.Response "Credenciales inválidas"
// @Router /api/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.AuthService.Login(req.Matricula, req.Password)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// Refresh godoc
// @Summary Renovar token de acceso
// @Description Intercambia un refresh token vigente por un nuevo par de tokens
// @Tags auth
// @Accept  json
// @Produce  json
// @Param   body body RefreshRequest true "Refresh token"
// @Success 200 {object} util.Response{data=service.LoginResult} "Tokens renovados"
// @Failure 401 {object} util.Response "Refresh token inválido"
// @Router /api/refresh [post]
func (c *AuthController) Refresh(ctx *gin.Context) {
	var req RefreshRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.AuthService.Refresh(req.RefreshToken)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// Logout godoc
// @Summary Cerrar sesión
// @Description Revoca el refresh token; el token de acceso expira solo
// @Tags auth
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body RefreshRequest true "Refresh token a revocar"
// @Success 200 {object} util.Response "Sesión cerrada"
// @Failure 401 {object} util.Response "Refresh token inválido"
// @Router /api/logout [post]
func (c *AuthController) Logout(ctx *gin.Context) {
	var req RefreshRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.AuthService.Logout(req.RefreshToken); err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"message": "sesión cerrada"})
}

// Profile godoc
// @Summary Perfil del usuario autenticado
// @Tags auth
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.Identity} "Perfil"
// @Failure 401 {object} util.Response "No autenticado"
// @Router /api/perfil [get]
func (c *AuthController) Profile(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	user, err := c.AuthService.UserRepo.FindByID(claims.UserID)
	if err != nil {
		util.Unauthorized(ctx)
		return
	}

	util.Success(ctx, gin.H{
		"id":         user.ID,
		"matricula":  user.Matricula,
		"nombre":     user.Nombre,
		"email":      user.Email,
		"rol":        user.Role,
		"lastLogin":  user.LastLogin,
		"createdAt":  user.CreatedAt,
	})
}
