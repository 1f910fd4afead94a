package repository

import (
	"time"

	"kiosco_escolar_backend/internal/model"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(user *model.User) error {
	return r.DB.Create(user).Error
}

func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	err := r.DB.First(&user, id).Error
	return &user, err
}

func (r *UserRepository) FindByMatricula(matricula string) (*model.User, error) {
	var user model.User
	err := r.DB.Where("matricula = ?", matricula).First(&user).Error
	return &user, err
}

func (r *UserRepository) FindByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.DB.Where("email = ?", email).First(&user).Error
	return &user, err
}

func (r *UserRepository) ListStudents() ([]model.User, error) {
	var users []model.User
	err := r.DB.Where("role = ?", model.Estudiante).Order("nombre ASC").Find(&users).Error
	return users, err
}

// ListStudentIDs feeds the tutor fan-out: one room per returned id.
func (r *UserRepository) ListStudentIDs() ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&model.User{}).Where("role = ?", model.Estudiante).Pluck("id", &ids).Error
	return ids, err
}

func (r *UserRepository) UpdateLastLogin(userID uint) error {
	return r.DB.Model(&model.User{}).
		Where("id = ?", userID).
		Update("last_login", time.Now()).
		Error
}
