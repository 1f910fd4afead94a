package repository

import (
	"kiosco_escolar_backend/internal/model"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) Create(curso *model.Curso) error {
	return r.DB.Create(curso).Error
}

func (r *CourseRepository) Update(curso *model.Curso) error {
	return r.DB.Save(curso).Error
}

func (r *CourseRepository) Delete(id uint) error {
	return r.DB.Select("Contenidos").Delete(&model.Curso{BaseModel: model.BaseModel{ID: id}}).Error
}

func (r *CourseRepository) FindByID(id uint) (*model.Curso, error) {
	var curso model.Curso
	err := r.DB.Preload("Contenidos", func(db *gorm.DB) *gorm.DB {
		return db.Order("contenidos.orden ASC")
	}).First(&curso, id).Error
	return &curso, err
}

func (r *CourseRepository) List(publishedOnly bool) ([]model.Curso, error) {
	var cursos []model.Curso
	db := r.DB.Order("created_at DESC")
	if publishedOnly {
		db = db.Where("publicado = ?", true)
	}
	err := db.Find(&cursos).Error
	return cursos, err
}

func (r *CourseRepository) CreateContenido(contenido *model.Contenido) error {
	return r.DB.Create(contenido).Error
}

func (r *CourseRepository) UpdateContenido(contenido *model.Contenido) error {
	return r.DB.Save(contenido).Error
}

func (r *CourseRepository) DeleteContenido(id uint) error {
	return r.DB.Delete(&model.Contenido{}, id).Error
}

func (r *CourseRepository) FindContenido(id uint) (*model.Contenido, error) {
	var contenido model.Contenido
	err := r.DB.First(&contenido, id).Error
	return &contenido, err
}

// CountContenidos is the denominator of the derived course percentage.
func (r *CourseRepository) CountContenidos(cursoID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Contenido{}).Where("curso_id = ?", cursoID).Count(&count).Error
	return count, err
}
