package service

import (
	"errors"
	"math"

	"kiosco_escolar_backend/internal/model"
	"kiosco_escolar_backend/internal/util"

	"gorm.io/gorm"
)

const (
	// MaxIntentos is the attempt ceiling per (user, quiz). Enforced here so
	// both the socket path and the REST path hit the same wall.
	MaxIntentos = 3

	// PorcentajeAprobacion is the passing grade in percent of total points.
	PorcentajeAprobacion = 60
)

// AnswerSubmission is one submitted answer inside a quiz submission.
type AnswerSubmission struct {
	PreguntaID uint   `json:"pregunta_id"`
	OpcionID   *uint  `json:"opcion_id,omitempty"`
	TextoLibre string `json:"texto_libre,omitempty"`
}

// QuizStore is the persistence surface the grading engine needs; the gorm
// repository satisfies it.
type QuizStore interface {
	QuestionsByContenido(contenidoID uint) ([]model.Pregunta, error)
	CreateQuestion(pregunta *model.Pregunta) error
	MaxAttempt(usuarioID, contenidoID uint) (int, error)
	AnswersByUser(usuarioID, contenidoID uint) ([]model.Respuesta, error)
	CreateAnswers(respuestas []model.Respuesta) error
}

// ContentFinder resolves content rows; the course repository satisfies it.
type ContentFinder interface {
	FindContenido(id uint) (*model.Contenido, error)
}

type QuizService struct {
	QuizRepo   QuizStore
	CourseRepo ContentFinder
	Progress   ProgressStore
}

func NewQuizService(quizRepo QuizStore, courseRepo ContentFinder, progress ProgressStore) *QuizService {
	return &QuizService{
		QuizRepo:   quizRepo,
		CourseRepo: courseRepo,
		Progress:   progress,
	}
}

// Questions returns a quiz's questions with options. Unless includeAnswers
// is set (tutor callers), the correct-option flag is stripped so the payload
// can go to students as-is.
func (s *QuizService) Questions(contenidoID uint, includeAnswers bool) ([]model.Pregunta, error) {
	preguntas, err := s.QuizRepo.QuestionsByContenido(contenidoID)
	if err != nil {
		return nil, err
	}
	if !includeAnswers {
		for i := range preguntas {
			for j := range preguntas[i].Opciones {
				preguntas[i].Opciones[j].EsCorrecta = false
			}
		}
	}
	return preguntas, nil
}

// AddPregunta attaches a new question with its options to a quiz content.
// Multiple choice needs at least two options with exactly one correct one;
// free text carries no options.
func (s *QuizService) AddPregunta(contenidoID uint, pregunta *model.Pregunta) error {
	contenido, err := s.CourseRepo.FindContenido(contenidoID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrNotFound
	}
	if err != nil {
		return err
	}
	if contenido.Tipo != model.ContenidoQuiz {
		return util.ErrValidation
	}
	if pregunta.Texto == "" {
		return util.ErrValidation
	}
	if pregunta.Puntos <= 0 {
		pregunta.Puntos = 1
	}

	switch pregunta.Tipo {
	case model.PreguntaOpcionMultiple:
		if len(pregunta.Opciones) < 2 {
			return util.ErrValidation
		}
		correctas := 0
		for _, opcion := range pregunta.Opciones {
			if opcion.Texto == "" {
				return util.ErrValidation
			}
			if opcion.EsCorrecta {
				correctas++
			}
		}
		if correctas != 1 {
			return util.ErrValidation
		}
	case model.PreguntaTextoLibre:
		if len(pregunta.Opciones) > 0 {
			return util.ErrValidation
		}
	default:
		return util.ErrValidation
	}

	pregunta.ContenidoID = contenidoID
	return s.QuizRepo.CreateQuestion(pregunta)
}

// NextAttemptNumber returns max(stored attempts)+1, capped at MaxIntentos.
// At the cap it returns MaxIntentos and the caller must refuse submissions.
func (s *QuizService) NextAttemptNumber(usuarioID, contenidoID uint) (int, error) {
	used, err := s.QuizRepo.MaxAttempt(usuarioID, contenidoID)
	if err != nil {
		return 0, err
	}
	if used >= MaxIntentos {
		return MaxIntentos, nil
	}
	return used + 1, nil
}

func (s *QuizService) AttemptsRemaining(usuarioID, contenidoID uint) (int, error) {
	used, err := s.QuizRepo.MaxAttempt(usuarioID, contenidoID)
	if err != nil {
		return 0, err
	}
	if used >= MaxIntentos {
		return 0, nil
	}
	return MaxIntentos - used, nil
}

// gradeAnswers grades one submission against the quiz's questions. Multiple
// choice is correct when the chosen option is the question's correct one;
// free text always grades false here (manual review happens elsewhere).
// Unanswered questions simply earn no points; the denominator is always the
// full question set. A question may appear at most once per submission,
// otherwise repeating a correct answer would earn its points repeatedly.
func gradeAnswers(preguntas []model.Pregunta, answers []AnswerSubmission, usuarioID uint, intento int) ([]model.Respuesta, *model.Calificacion, error) {
	byID := make(map[uint]*model.Pregunta, len(preguntas))
	total := 0
	for i := range preguntas {
		byID[preguntas[i].ID] = &preguntas[i]
		total += preguntas[i].Puntos
	}

	respuestas := make([]model.Respuesta, 0, len(answers))
	answered := make(map[uint]bool, len(answers))
	earned := 0
	for _, a := range answers {
		pregunta, ok := byID[a.PreguntaID]
		if !ok {
			return nil, nil, util.ErrValidation
		}
		if answered[a.PreguntaID] {
			return nil, nil, util.ErrValidation
		}
		answered[a.PreguntaID] = true

		correcta := false
		if pregunta.Tipo == model.PreguntaOpcionMultiple && a.OpcionID != nil {
			valid := false
			for _, opcion := range pregunta.Opciones {
				if opcion.ID == *a.OpcionID {
					valid = true
					correcta = opcion.EsCorrecta
					break
				}
			}
			if !valid {
				return nil, nil, util.ErrValidation
			}
		}
		if correcta {
			earned += pregunta.Puntos
		}

		respuestas = append(respuestas, model.Respuesta{
			UsuarioID:     usuarioID,
			PreguntaID:    a.PreguntaID,
			OpcionID:      a.OpcionID,
			TextoLibre:    a.TextoLibre,
			EsCorrecta:    correcta,
			NumeroIntento: intento,
		})
	}

	calificacion := &model.Calificacion{
		Porcentaje:      scorePercent(earned, total),
		PuntajeObtenido: earned,
		PuntajeTotal:    total,
		NumeroIntento:   intento,
	}
	calificacion.Aprobado = calificacion.Porcentaje >= PorcentajeAprobacion
	return respuestas, calificacion, nil
}

func scorePercent(earned, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(earned) / float64(total)))
}

// bestCalificacion selects the best attempt across all stored answers:
// highest points ratio, ties broken by the lowest attempt number (the grade
// first achieved). Returns nil when no attempt exists.
func bestCalificacion(preguntas []model.Pregunta, respuestas []model.Respuesta) *model.Calificacion {
	puntosPorPregunta := make(map[uint]int, len(preguntas))
	total := 0
	for _, p := range preguntas {
		puntosPorPregunta[p.ID] = p.Puntos
		total += p.Puntos
	}

	earnedByIntento := make(map[int]int)
	for _, r := range respuestas {
		if _, ok := earnedByIntento[r.NumeroIntento]; !ok {
			earnedByIntento[r.NumeroIntento] = 0
		}
		if r.EsCorrecta {
			earnedByIntento[r.NumeroIntento] += puntosPorPregunta[r.PreguntaID]
		}
	}
	if len(earnedByIntento) == 0 {
		return nil
	}

	var best *model.Calificacion
	for intento := 1; intento <= MaxIntentos; intento++ {
		earned, ok := earnedByIntento[intento]
		if !ok {
			continue
		}
		c := &model.Calificacion{
			Porcentaje:      scorePercent(earned, total),
			PuntajeObtenido: earned,
			PuntajeTotal:    total,
			NumeroIntento:   intento,
		}
		c.Aprobado = c.Porcentaje >= PorcentajeAprobacion
		if best == nil || c.Porcentaje > best.Porcentaje {
			best = c
		}
	}
	return best
}

// SubmitAnswers grades and stores one full attempt, then feeds the result
// into the progress merge: a passing grade writes 100/completado, a failing
// one writes the best percentage so far without completing. A submission
// past the attempt ceiling is rejected before anything is graded or stored.
func (s *QuizService) SubmitAnswers(usuarioID, contenidoID uint, answers []AnswerSubmission) ([]model.Respuesta, *model.Calificacion, error) {
	if len(answers) == 0 {
		return nil, nil, util.ErrValidation
	}

	contenido, err := s.CourseRepo.FindContenido(contenidoID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, util.ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	if contenido.Tipo != model.ContenidoQuiz {
		return nil, nil, util.ErrValidation
	}

	used, err := s.QuizRepo.MaxAttempt(usuarioID, contenidoID)
	if err != nil {
		return nil, nil, err
	}
	if used >= MaxIntentos {
		return nil, nil, &util.AttemptLimitError{MaxIntentos: MaxIntentos, Restantes: 0}
	}
	intento := used + 1

	preguntas, err := s.QuizRepo.QuestionsByContenido(contenidoID)
	if err != nil {
		return nil, nil, err
	}
	if len(preguntas) == 0 {
		return nil, nil, util.ErrNotFound
	}

	respuestas, calificacion, err := gradeAnswers(preguntas, answers, usuarioID, intento)
	if err != nil {
		return nil, nil, err
	}

	if err := s.QuizRepo.CreateAnswers(respuestas); err != nil {
		return nil, nil, err
	}

	if calificacion.Aprobado {
		_, err = s.Progress.Save(usuarioID, contenido.CursoID, contenidoID, 100, true)
	} else {
		best := calificacion.Porcentaje
		todas, berr := s.QuizRepo.AnswersByUser(usuarioID, contenidoID)
		if berr == nil {
			if mejor := bestCalificacion(preguntas, todas); mejor != nil && mejor.Porcentaje > best {
				best = mejor.Porcentaje
			}
		}
		_, err = s.Progress.Save(usuarioID, contenido.CursoID, contenidoID, best, false)
	}
	if err != nil {
		return nil, nil, err
	}

	return respuestas, calificacion, nil
}

// BestAttempt reports the best stored attempt for the user and quiz content.
func (s *QuizService) BestAttempt(usuarioID, contenidoID uint) (*model.Calificacion, error) {
	preguntas, err := s.QuizRepo.QuestionsByContenido(contenidoID)
	if err != nil {
		return nil, err
	}
	respuestas, err := s.QuizRepo.AnswersByUser(usuarioID, contenidoID)
	if err != nil {
		return nil, err
	}
	best := bestCalificacion(preguntas, respuestas)
	if best == nil {
		return nil, util.ErrNotFound
	}
	return best, nil
}
