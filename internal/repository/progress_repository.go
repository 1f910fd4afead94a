package repository

import (
	"errors"

	"kiosco_escolar_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

// Find returns nil (not an error) when no record exists for the triple: the
// merge rule treats a missing record as its own case.
func (r *ProgressRepository) Find(usuarioID, cursoID, contenidoID uint) (*model.Progreso, error) {
	var p model.Progreso
	err := r.DB.Where("usuario_id = ? AND curso_id = ? AND contenido_id = ?", usuarioID, cursoID, contenidoID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Upsert persists the already-merged record: insert on first write, update
// avance/completado/sincronizado on conflict with the unique
// (usuario, curso, contenido) index.
func (r *ProgressRepository) Upsert(p *model.Progreso) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "usuario_id"},
			{Name: "curso_id"},
			{Name: "contenido_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"avance", "completado", "sincronizado", "updated_at"}),
	}).Create(p).Error
}

func (r *ProgressRepository) ListByUserCourse(usuarioID, cursoID uint) ([]model.Progreso, error) {
	var progresos []model.Progreso
	err := r.DB.Where("usuario_id = ? AND curso_id = ?", usuarioID, cursoID).Find(&progresos).Error
	return progresos, err
}

func (r *ProgressRepository) ListByUser(usuarioID uint) ([]model.Progreso, error) {
	var progresos []model.Progreso
	err := r.DB.Where("usuario_id = ?", usuarioID).Find(&progresos).Error
	return progresos, err
}
