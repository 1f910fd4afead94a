package service

import (
	"math/rand"
	"testing"

	"kiosco_escolar_backend/internal/model"

	"github.com/stretchr/testify/assert"
)

func applyWrites(writes []ProgressWrite) (int, bool) {
	var existing *model.Progreso
	for _, w := range writes {
		avance, completado := MergeProgress(existing, int(w.Avance), w.Completado)
		existing = &model.Progreso{Avance: avance, Completado: completado}
	}
	return existing.Avance, existing.Completado
}

func TestMergeProgressNeverRegresses(t *testing.T) {
	avance, completado := MergeProgress(&model.Progreso{Avance: 70}, 30, false)
	assert.Equal(t, 70, avance)
	assert.False(t, completado)

	avance, completado = MergeProgress(&model.Progreso{Avance: 30}, 70, false)
	assert.Equal(t, 70, avance)
	assert.False(t, completado)
}

func TestMergeProgressCompletionSticks(t *testing.T) {
	// A stale low write after completion cannot un-complete the record.
	avance, completado := MergeProgress(&model.Progreso{Avance: 100, Completado: true}, 10, false)
	assert.Equal(t, 100, avance)
	assert.True(t, completado)
}

func TestMergeProgressCompletedImpliesFull(t *testing.T) {
	// completado normalizes the stored percent to 100 even when the client
	// reported less.
	avance, completado := MergeProgress(nil, 50, true)
	assert.Equal(t, 100, avance)
	assert.True(t, completado)
}

func TestMergeProgressThresholdPromotes(t *testing.T) {
	avance, completado := MergeProgress(nil, 93, false)
	assert.Equal(t, 100, avance)
	assert.True(t, completado)

	avance, completado = MergeProgress(nil, 89, false)
	assert.Equal(t, 89, avance)
	assert.False(t, completado)
}

func TestMergeProgressClampsOutOfRange(t *testing.T) {
	avance, completado := MergeProgress(nil, -5, false)
	assert.Equal(t, 0, avance)
	assert.False(t, completado)

	avance, completado = MergeProgress(nil, 250, false)
	assert.Equal(t, 100, avance)
	assert.True(t, completado)
}

func TestMergeProgressIdempotent(t *testing.T) {
	first, done := MergeProgress(&model.Progreso{Avance: 40}, 60, false)
	second, done2 := MergeProgress(&model.Progreso{Avance: first, Completado: done}, 60, false)
	assert.Equal(t, first, second)
	assert.Equal(t, done, done2)
}

func TestMergeProgressOrderIndependent(t *testing.T) {
	writes := []ProgressWrite{
		{Avance: 20},
		{Avance: 55},
		{Avance: 40, Completado: true},
		{Avance: 10},
		{Avance: 70},
	}

	wantAvance, wantCompletado := applyWrites(writes)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		shuffled := make([]ProgressWrite, len(writes))
		copy(shuffled, writes)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		avance, completado := applyWrites(shuffled)
		assert.Equal(t, wantAvance, avance, "shuffle %d", i)
		assert.Equal(t, wantCompletado, completado, "shuffle %d", i)
	}
}

func TestCoursePercent(t *testing.T) {
	progresos := []model.Progreso{
		{Avance: 100, Completado: true},
		{Avance: 100, Completado: true},
	}
	// 2 of 4 contents done, the other two have no record at all.
	assert.Equal(t, 50, CoursePercent(progresos, 4))
}

func TestCoursePercentPartial(t *testing.T) {
	progresos := []model.Progreso{
		{Avance: 50},
		{Avance: 30},
	}
	assert.Equal(t, 27, CoursePercent(progresos, 3)) // 80/3 rounded
}

func TestCoursePercentEmptyCourse(t *testing.T) {
	assert.Equal(t, 0, CoursePercent(nil, 0))
	assert.Equal(t, 0, CoursePercent([]model.Progreso{{Avance: 80}}, 0))
}
