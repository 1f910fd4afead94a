package service

import (
	"errors"
	"testing"

	"kiosco_escolar_backend/internal/model"
	"kiosco_escolar_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func quizFixture() []model.Pregunta {
	opt := func(id uint, correcta bool) model.Opcion {
		return model.Opcion{BaseModel: model.BaseModel{ID: id}, EsCorrecta: correcta}
	}
	return []model.Pregunta{
		{
			BaseModel: model.BaseModel{ID: 1},
			Tipo:      model.PreguntaOpcionMultiple,
			Puntos:    1,
			Opciones:  []model.Opcion{opt(11, true), opt(12, false)},
		},
		{
			BaseModel: model.BaseModel{ID: 2},
			Tipo:      model.PreguntaOpcionMultiple,
			Puntos:    1,
			Opciones:  []model.Opcion{opt(21, false), opt(22, true)},
		},
	}
}

func optionID(id uint) *uint { return &id }

func TestGradeAnswersAllCorrect(t *testing.T) {
	preguntas := quizFixture()
	answers := []AnswerSubmission{
		{PreguntaID: 1, OpcionID: optionID(11)},
		{PreguntaID: 2, OpcionID: optionID(22)},
	}

	respuestas, calificacion, err := gradeAnswers(preguntas, answers, 5, 1)
	require.NoError(t, err)
	assert.Len(t, respuestas, 2)
	assert.Equal(t, 100, calificacion.Porcentaje)
	assert.Equal(t, 2, calificacion.PuntajeObtenido)
	assert.Equal(t, 2, calificacion.PuntajeTotal)
	assert.True(t, calificacion.Aprobado)
}

func TestGradeAnswersPartial(t *testing.T) {
	preguntas := quizFixture()
	answers := []AnswerSubmission{
		{PreguntaID: 1, OpcionID: optionID(11)},
		{PreguntaID: 2, OpcionID: optionID(21)},
	}

	_, calificacion, err := gradeAnswers(preguntas, answers, 5, 1)
	require.NoError(t, err)
	assert.Equal(t, 50, calificacion.Porcentaje)
	assert.False(t, calificacion.Aprobado)
}

func TestGradeAnswersUnansweredCountAgainstTotal(t *testing.T) {
	preguntas := quizFixture()
	answers := []AnswerSubmission{
		{PreguntaID: 1, OpcionID: optionID(11)},
	}

	respuestas, calificacion, err := gradeAnswers(preguntas, answers, 5, 1)
	require.NoError(t, err)
	assert.Len(t, respuestas, 1)
	// The denominator is always the full question set.
	assert.Equal(t, 2, calificacion.PuntajeTotal)
	assert.Equal(t, 50, calificacion.Porcentaje)
}

func TestGradeAnswersRejectsUnknownQuestion(t *testing.T) {
	preguntas := quizFixture()
	answers := []AnswerSubmission{{PreguntaID: 99, OpcionID: optionID(11)}}

	_, _, err := gradeAnswers(preguntas, answers, 5, 1)
	assert.ErrorIs(t, err, util.ErrValidation)
}

func TestGradeAnswersRejectsDuplicateQuestion(t *testing.T) {
	preguntas := quizFixture()
	// Repeating the correct answer must not earn the question's points twice.
	answers := []AnswerSubmission{
		{PreguntaID: 1, OpcionID: optionID(11)},
		{PreguntaID: 1, OpcionID: optionID(11)},
	}

	_, _, err := gradeAnswers(preguntas, answers, 5, 1)
	assert.ErrorIs(t, err, util.ErrValidation)
}

func TestSubmitAnswersDuplicateQuestionStoresNothing(t *testing.T) {
	svc, store, progress := quizServiceFixture(model.ContenidoQuiz)

	_, _, err := svc.SubmitAnswers(5, 40, []AnswerSubmission{
		{PreguntaID: 1, OpcionID: optionID(11)},
		{PreguntaID: 1, OpcionID: optionID(11)},
	})
	assert.ErrorIs(t, err, util.ErrValidation)
	assert.Empty(t, store.stored)
	assert.Empty(t, progress.records)
}

func TestGradeAnswersRejectsForeignOption(t *testing.T) {
	preguntas := quizFixture()
	// Option 21 belongs to question 2, not question 1.
	answers := []AnswerSubmission{{PreguntaID: 1, OpcionID: optionID(21)}}

	_, _, err := gradeAnswers(preguntas, answers, 5, 1)
	assert.ErrorIs(t, err, util.ErrValidation)
}

func TestGradeAnswersFreeTextNeverAutoPasses(t *testing.T) {
	preguntas := []model.Pregunta{
		{BaseModel: model.BaseModel{ID: 1}, Tipo: model.PreguntaTextoLibre, Puntos: 2},
	}
	answers := []AnswerSubmission{{PreguntaID: 1, TextoLibre: "respuesta larga"}}

	respuestas, calificacion, err := gradeAnswers(preguntas, answers, 5, 1)
	require.NoError(t, err)
	assert.False(t, respuestas[0].EsCorrecta)
	assert.Equal(t, 0, calificacion.Porcentaje)
}

func TestScorePercentRounds(t *testing.T) {
	assert.Equal(t, 67, scorePercent(2, 3))
	assert.Equal(t, 33, scorePercent(1, 3))
	assert.Equal(t, 0, scorePercent(0, 0))
}

func attemptRows(intento int, correct ...bool) []model.Respuesta {
	rows := make([]model.Respuesta, 0, len(correct))
	for i, c := range correct {
		rows = append(rows, model.Respuesta{
			PreguntaID:    uint(i + 1),
			EsCorrecta:    c,
			NumeroIntento: intento,
		})
	}
	return rows
}

func TestBestCalificacionPicksHighest(t *testing.T) {
	preguntas := quizFixture()
	var respuestas []model.Respuesta
	respuestas = append(respuestas, attemptRows(1, false, false)...) // 0%
	respuestas = append(respuestas, attemptRows(2, true, true)...)   // 100%
	respuestas = append(respuestas, attemptRows(3, true, false)...)  // 50%

	best := bestCalificacion(preguntas, respuestas)
	require.NotNil(t, best)
	assert.Equal(t, 100, best.Porcentaje)
	assert.Equal(t, 2, best.NumeroIntento)
	assert.True(t, best.Aprobado)
}

func TestBestCalificacionTieFavorsEarliestAttempt(t *testing.T) {
	preguntas := quizFixture()
	var respuestas []model.Respuesta
	respuestas = append(respuestas, attemptRows(1, true, false)...) // 50%
	respuestas = append(respuestas, attemptRows(2, false, true)...) // 50%

	best := bestCalificacion(preguntas, respuestas)
	require.NotNil(t, best)
	assert.Equal(t, 50, best.Porcentaje)
	assert.Equal(t, 1, best.NumeroIntento)
}

func TestBestCalificacionOrderIndependent(t *testing.T) {
	preguntas := quizFixture()
	a := append(attemptRows(1, true, false), attemptRows(2, true, true)...)
	b := append(attemptRows(2, true, true), attemptRows(1, true, false)...)

	bestA := bestCalificacion(preguntas, a)
	bestB := bestCalificacion(preguntas, b)
	require.NotNil(t, bestA)
	require.NotNil(t, bestB)
	assert.Equal(t, bestA.Porcentaje, bestB.Porcentaje)
	assert.Equal(t, bestA.NumeroIntento, bestB.NumeroIntento)
}

func TestBestCalificacionNoAttempts(t *testing.T) {
	assert.Nil(t, bestCalificacion(quizFixture(), nil))
}

type fakeQuizStore struct {
	preguntas []model.Pregunta
	stored    []model.Respuesta
}

func (f *fakeQuizStore) QuestionsByContenido(contenidoID uint) ([]model.Pregunta, error) {
	return f.preguntas, nil
}

func (f *fakeQuizStore) CreateQuestion(pregunta *model.Pregunta) error {
	f.preguntas = append(f.preguntas, *pregunta)
	return nil
}

func (f *fakeQuizStore) MaxAttempt(usuarioID, contenidoID uint) (int, error) {
	used := 0
	for _, r := range f.stored {
		if r.NumeroIntento > used {
			used = r.NumeroIntento
		}
	}
	return used, nil
}

func (f *fakeQuizStore) AnswersByUser(usuarioID, contenidoID uint) ([]model.Respuesta, error) {
	return f.stored, nil
}

func (f *fakeQuizStore) CreateAnswers(respuestas []model.Respuesta) error {
	f.stored = append(f.stored, respuestas...)
	return nil
}

type fakeContents struct {
	contenido *model.Contenido
}

func (f *fakeContents) FindContenido(id uint) (*model.Contenido, error) {
	if f.contenido == nil || f.contenido.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return f.contenido, nil
}

func quizServiceFixture(tipo model.ContentType) (*QuizService, *fakeQuizStore, *fakeProgress) {
	store := &fakeQuizStore{preguntas: quizFixture()}
	progress := &fakeProgress{}
	contents := &fakeContents{contenido: &model.Contenido{
		BaseModel: model.BaseModel{ID: 40},
		CursoID:   4,
		Tipo:      tipo,
	}}
	return NewQuizService(store, contents, progress), store, progress
}

func TestAddPreguntaStoresQuestion(t *testing.T) {
	svc, store, _ := quizServiceFixture(model.ContenidoQuiz)

	pregunta := &model.Pregunta{
		Texto: "¿Capital de Francia?",
		Tipo:  model.PreguntaOpcionMultiple,
		Opciones: []model.Opcion{
			{Texto: "París", EsCorrecta: true},
			{Texto: "Lyon"},
		},
	}
	require.NoError(t, svc.AddPregunta(40, pregunta))
	assert.Equal(t, uint(40), pregunta.ContenidoID)
	// Unset points default to one.
	assert.Equal(t, 1, pregunta.Puntos)
	assert.Len(t, store.preguntas, 3)
}

func TestAddPreguntaValidation(t *testing.T) {
	opciones := func(correctas ...bool) []model.Opcion {
		out := make([]model.Opcion, 0, len(correctas))
		for _, c := range correctas {
			out = append(out, model.Opcion{Texto: "opción", EsCorrecta: c})
		}
		return out
	}
	cases := []struct {
		name     string
		pregunta model.Pregunta
	}{
		{"texto vacío", model.Pregunta{Tipo: model.PreguntaOpcionMultiple, Opciones: opciones(true, false)}},
		{"una sola opción", model.Pregunta{Texto: "p", Tipo: model.PreguntaOpcionMultiple, Opciones: opciones(true)}},
		{"ninguna correcta", model.Pregunta{Texto: "p", Tipo: model.PreguntaOpcionMultiple, Opciones: opciones(false, false)}},
		{"dos correctas", model.Pregunta{Texto: "p", Tipo: model.PreguntaOpcionMultiple, Opciones: opciones(true, true)}},
		{"texto libre con opciones", model.Pregunta{Texto: "p", Tipo: model.PreguntaTextoLibre, Opciones: opciones(true)}},
		{"tipo desconocido", model.Pregunta{Texto: "p", Tipo: "ensayo"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _, _ := quizServiceFixture(model.ContenidoQuiz)
			pregunta := tc.pregunta
			assert.ErrorIs(t, svc.AddPregunta(40, &pregunta), util.ErrValidation)
		})
	}
}

func TestAddPreguntaRejectsNonQuizContent(t *testing.T) {
	svc, _, _ := quizServiceFixture(model.ContenidoTexto)
	err := svc.AddPregunta(40, &model.Pregunta{Texto: "p", Tipo: model.PreguntaTextoLibre})
	assert.ErrorIs(t, err, util.ErrValidation)

	svc, _, _ = quizServiceFixture(model.ContenidoQuiz)
	err = svc.AddPregunta(99, &model.Pregunta{Texto: "p", Tipo: model.PreguntaTextoLibre})
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestNextAttemptNumberNeverExceedsCap(t *testing.T) {
	svc, store, _ := quizServiceFixture(model.ContenidoQuiz)

	n, err := svc.NextAttemptNumber(5, 40)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	store.stored = append(store.stored, attemptRows(1, false, false)...)
	store.stored = append(store.stored, attemptRows(2, false, false)...)
	n, err = svc.NextAttemptNumber(5, 40)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// At the ceiling the number stays pinned at the cap.
	store.stored = append(store.stored, attemptRows(3, false, false)...)
	n, err = svc.NextAttemptNumber(5, 40)
	require.NoError(t, err)
	assert.Equal(t, MaxIntentos, n)
}

func TestSubmitAnswersPassCompletesProgress(t *testing.T) {
	svc, store, progress := quizServiceFixture(model.ContenidoQuiz)

	respuestas, calificacion, err := svc.SubmitAnswers(5, 40, []AnswerSubmission{
		{PreguntaID: 1, OpcionID: optionID(11)},
		{PreguntaID: 2, OpcionID: optionID(22)},
	})
	require.NoError(t, err)
	assert.Len(t, respuestas, 2)
	assert.Equal(t, 100, calificacion.Porcentaje)
	assert.Equal(t, 2, calificacion.PuntajeObtenido)
	assert.Equal(t, 2, calificacion.PuntajeTotal)
	assert.Equal(t, 1, calificacion.NumeroIntento)
	assert.Len(t, store.stored, 2)

	p := progress.records[progressKey(5, 4, 40)]
	require.NotNil(t, p)
	assert.Equal(t, 100, p.Avance)
	assert.True(t, p.Completado)
}

func TestSubmitAnswersFailKeepsBestSoFar(t *testing.T) {
	svc, _, progress := quizServiceFixture(model.ContenidoQuiz)

	// Attempt 1 scores 50%, attempt 2 scores 0%.
	_, _, err := svc.SubmitAnswers(5, 40, []AnswerSubmission{
		{PreguntaID: 1, OpcionID: optionID(11)},
		{PreguntaID: 2, OpcionID: optionID(21)},
	})
	require.NoError(t, err)

	_, calificacion, err := svc.SubmitAnswers(5, 40, []AnswerSubmission{
		{PreguntaID: 1, OpcionID: optionID(12)},
		{PreguntaID: 2, OpcionID: optionID(21)},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, calificacion.Porcentaje)
	assert.Equal(t, 2, calificacion.NumeroIntento)

	p := progress.records[progressKey(5, 4, 40)]
	require.NotNil(t, p)
	assert.Equal(t, 50, p.Avance)
	assert.False(t, p.Completado)

	restantes, err := svc.AttemptsRemaining(5, 40)
	require.NoError(t, err)
	assert.Equal(t, 1, restantes)
}

func TestSubmitAnswersFourthAttemptRejected(t *testing.T) {
	svc, store, progress := quizServiceFixture(model.ContenidoQuiz)
	for intento := 1; intento <= MaxIntentos; intento++ {
		store.stored = append(store.stored, attemptRows(intento, false, false)...)
	}
	before := len(store.stored)

	_, _, err := svc.SubmitAnswers(5, 40, []AnswerSubmission{
		{PreguntaID: 1, OpcionID: optionID(11)},
	})
	require.Error(t, err)
	assert.True(t, util.IsAttemptLimit(err))

	var ale *util.AttemptLimitError
	require.True(t, errors.As(err, &ale))
	assert.Equal(t, MaxIntentos, ale.MaxIntentos)
	assert.Equal(t, 0, ale.Restantes)

	// Nothing graded, nothing stored.
	assert.Len(t, store.stored, before)
	assert.Empty(t, progress.records)
}

func TestSubmitAnswersEmptySubmissionRejected(t *testing.T) {
	svc, _, _ := quizServiceFixture(model.ContenidoQuiz)
	_, _, err := svc.SubmitAnswers(5, 40, nil)
	assert.ErrorIs(t, err, util.ErrValidation)
}

func TestSubmitAnswersNonQuizContentRejected(t *testing.T) {
	svc, _, _ := quizServiceFixture(model.ContenidoTexto)
	_, _, err := svc.SubmitAnswers(5, 40, []AnswerSubmission{
		{PreguntaID: 1, OpcionID: optionID(11)},
	})
	assert.ErrorIs(t, err, util.ErrValidation)
}

func TestSubmitAnswersUnknownContentNotFound(t *testing.T) {
	svc, _, _ := quizServiceFixture(model.ContenidoQuiz)
	_, _, err := svc.SubmitAnswers(5, 99, []AnswerSubmission{
		{PreguntaID: 1, OpcionID: optionID(11)},
	})
	assert.ErrorIs(t, err, util.ErrNotFound)
}
