package repository

import (
	"kiosco_escolar_backend/internal/model"

	"gorm.io/gorm"
)

type QuizRepository struct {
	DB *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: db}
}

func (r *QuizRepository) QuestionsByContenido(contenidoID uint) ([]model.Pregunta, error) {
	var preguntas []model.Pregunta
	err := r.DB.Preload("Opciones").
		Where("contenido_id = ?", contenidoID).
		Order("id ASC").
		Find(&preguntas).Error
	return preguntas, err
}

func (r *QuizRepository) CreateQuestion(pregunta *model.Pregunta) error {
	return r.DB.Create(pregunta).Error
}

// MaxAttempt returns the highest attempt number the user has stored for the
// quiz content, 0 when none.
func (r *QuizRepository) MaxAttempt(usuarioID, contenidoID uint) (int, error) {
	var max *int
	err := r.DB.Model(&model.Respuesta{}).
		Joins("JOIN preguntas ON preguntas.id = respuestas.pregunta_id").
		Where("respuestas.usuario_id = ? AND preguntas.contenido_id = ?", usuarioID, contenidoID).
		Select("MAX(respuestas.numero_intento)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

// AnswersByUser returns every stored answer of the user for the quiz content,
// all attempts included, ordered by attempt then question.
func (r *QuizRepository) AnswersByUser(usuarioID, contenidoID uint) ([]model.Respuesta, error) {
	var respuestas []model.Respuesta
	err := r.DB.
		Joins("JOIN preguntas ON preguntas.id = respuestas.pregunta_id").
		Where("respuestas.usuario_id = ? AND preguntas.contenido_id = ?", usuarioID, contenidoID).
		Order("respuestas.numero_intento ASC, respuestas.pregunta_id ASC").
		Find(&respuestas).Error
	return respuestas, err
}

// CreateAnswers stores one full submission in a single transaction; answers
// are immutable once written.
func (r *QuizRepository) CreateAnswers(respuestas []model.Respuesta) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&respuestas).Error
	})
}
