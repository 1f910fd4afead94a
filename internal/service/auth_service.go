package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"kiosco_escolar_backend/internal/config"
	"kiosco_escolar_backend/internal/model"
	"kiosco_escolar_backend/internal/repository"
	"kiosco_escolar_backend/internal/util"

	"github.com/go-redis/redis/v8"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// LoginResult is the REST login/refresh reply body. The socket AUTH step
// consumes exactly the same Token.
type LoginResult struct {
	Token        string          `json:"token"`
	RefreshToken string          `json:"refreshToken"`
	User         *model.Identity `json:"user"`
}

type AuthService struct {
	UserRepo  *repository.UserRepository
	TokenRepo *repository.RefreshTokenRepository
	Redis     *redis.Client
	Cfg       *config.Config
	ctx       context.Context
}

func NewAuthService(userRepo *repository.UserRepository, tokenRepo *repository.RefreshTokenRepository, rdb *redis.Client, cfg *config.Config) *AuthService {
	return &AuthService{
		UserRepo:  userRepo,
		TokenRepo: tokenRepo,
		Redis:     rdb,
		Cfg:       cfg,
		ctx:       context.Background(),
	}
}

func identityOf(user *model.User) *model.Identity {
	return &model.Identity{
		ID:        user.ID,
		Matricula: user.Matricula,
		Nombre:    user.Nombre,
		Email:     user.Email,
		Role:      user.Role,
	}
}

func (s *AuthService) Login(matricula, password string) (*LoginResult, error) {
	user, err := s.UserRepo.FindByMatricula(matricula)
	if err != nil {
		return nil, util.ErrUnauthenticated
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, util.ErrUnauthenticated
	}

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return nil, err
	}
	refresh, err := s.issueRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}

	s.UserRepo.UpdateLastLogin(user.ID)

	return &LoginResult{
		Token:        token,
		RefreshToken: refresh,
		User:         identityOf(user),
	}, nil
}

// VerifyToken resolves a bearer credential to an identity. Pure read: it
// rejects missing or malformed tokens, expired ones, and subjects that no
// longer resolve to an existing user.
func (s *AuthService) VerifyToken(credential string) (*model.Identity, error) {
	if credential == "" {
		return nil, util.ErrUnauthenticated
	}

	claims, err := util.ParseJWT(credential, s.Cfg.JWT.Secret)
	if err != nil {
		return nil, util.ErrUnauthenticated
	}

	user, err := s.UserRepo.FindByID(claims.UserID)
	if err != nil {
		return nil, util.ErrUnauthenticated
	}
	return identityOf(user), nil
}

// VerifyRefreshToken additionally checks the server-side revocation table.
// The three failure kinds stay distinct because logout and refresh surface
// different messages for each.
func (s *AuthService) VerifyRefreshToken(token string) (*model.Identity, error) {
	if token == "" {
		return nil, util.ErrRefreshNotFound
	}

	// Revocation flag in Redis short-circuits the common case after logout.
	if s.Redis != nil {
		if val, err := s.Redis.Get(s.ctx, refreshRevokedKey(token)).Result(); err == nil && val == "1" {
			return nil, util.ErrRefreshRevoked
		}
	}

	rt, err := s.TokenRepo.FindByToken(token)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrRefreshNotFound
	}
	if err != nil {
		return nil, err
	}
	if rt.Revocado {
		return nil, util.ErrRefreshRevoked
	}
	if time.Now().After(rt.ExpiraEn) {
		return nil, util.ErrRefreshExpired
	}

	user, err := s.UserRepo.FindByID(rt.UsuarioID)
	if err != nil {
		return nil, util.ErrRefreshNotFound
	}
	return identityOf(user), nil
}

// Refresh trades a valid refresh token for a fresh access token. The refresh
// token itself is rotated: the old one is revoked and a new one issued.
func (s *AuthService) Refresh(refreshToken string) (*LoginResult, error) {
	identity, err := s.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.UserRepo.FindByID(identity.ID)
	if err != nil {
		return nil, util.ErrRefreshNotFound
	}

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return nil, err
	}

	if err := s.revoke(refreshToken); err != nil {
		return nil, err
	}
	nuevo, err := s.issueRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		Token:        token,
		RefreshToken: nuevo,
		User:         identity,
	}, nil
}

// Logout revokes the refresh token; the access token simply ages out.
func (s *AuthService) Logout(refreshToken string) error {
	if _, err := s.VerifyRefreshToken(refreshToken); err != nil {
		return err
	}
	return s.revoke(refreshToken)
}

func (s *AuthService) issueRefreshToken(usuarioID uint) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)

	err := s.TokenRepo.Create(&model.RefreshToken{
		Token:     token,
		UsuarioID: usuarioID,
		ExpiraEn:  time.Now().Add(s.Cfg.JWT.RefreshExpireTime),
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

func (s *AuthService) revoke(token string) error {
	if err := s.TokenRepo.Revoke(token); err != nil {
		return err
	}
	if s.Redis != nil {
		s.Redis.Set(s.ctx, refreshRevokedKey(token), "1", s.Cfg.JWT.RefreshExpireTime)
	}
	return nil
}

func refreshRevokedKey(token string) string {
	return fmt.Sprintf("kiosco:refresh:revocado:%s", token)
}
