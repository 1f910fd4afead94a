package service

import (
	"math"

	"kiosco_escolar_backend/internal/model"
	"kiosco_escolar_backend/internal/repository"
	"kiosco_escolar_backend/internal/util"
	"kiosco_escolar_backend/pkg/logger"

	"go.uber.org/zap"
)

// completionThreshold promotes near-complete records: a record at or above
// it is stored as 100/completado. Keeps a video watched to 93% from sitting
// forever at "almost done".
const completionThreshold = 90

// ProgressWrite is one client-side advancement write, as it arrives over the
// wire (socket SYNC_PROGRESS) or from the REST body.
type ProgressWrite struct {
	CursoID     uint    `json:"curso_id"`
	ContenidoID uint    `json:"contenido_id"`
	Avance      float64 `json:"avance"`
	Completado  bool    `json:"completado"`
}

type ProgressService struct {
	ProgressRepo *repository.ProgressRepository
	CourseRepo   *repository.CourseRepository
}

func NewProgressService(progressRepo *repository.ProgressRepository, courseRepo *repository.CourseRepository) *ProgressService {
	return &ProgressService{
		ProgressRepo: progressRepo,
		CourseRepo:   courseRepo,
	}
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// MergeProgress reconciles one incoming write against the stored record.
// The rule is monotonic non-decreasing, commutative and idempotent over any
// write order, which is what makes offline replay safe: a stale low write
// can never regress visible progress.
//
//   - percent only ever grows: the result carries the max of both sides;
//   - completion sticks: once either side is completado, or either percent
//     reaches the threshold, the record is forced to 100/completado.
//
// A completado write below 100 is normalized to 100: completado implies
// percent == 100 and the merge is where that invariant is restored.
func MergeProgress(existing *model.Progreso, avance int, completado bool) (int, bool) {
	avance = clampPercent(avance)

	merged := avance
	done := completado
	if existing != nil {
		if v := clampPercent(existing.Avance); v > merged {
			merged = v
		}
		done = done || existing.Completado
	}

	if done || merged >= completionThreshold {
		return 100, true
	}
	return merged, false
}

// Save applies the merge rule and upserts the result. Returns the stored
// record as persisted.
func (s *ProgressService) Save(usuarioID, cursoID, contenidoID uint, avance int, completado bool) (*model.Progreso, error) {
	if usuarioID == 0 || cursoID == 0 || contenidoID == 0 {
		return nil, util.ErrValidation
	}
	if avance < 0 || avance > 100 {
		return nil, util.ErrValidation
	}

	existing, err := s.ProgressRepo.Find(usuarioID, cursoID, contenidoID)
	if err != nil {
		return nil, err
	}

	mergedAvance, mergedCompletado := MergeProgress(existing, avance, completado)

	p := &model.Progreso{
		UsuarioID:    usuarioID,
		CursoID:      cursoID,
		ContenidoID:  contenidoID,
		Avance:       mergedAvance,
		Completado:   mergedCompletado,
		Sincronizado: true,
	}
	if existing != nil {
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
	}

	if err := s.ProgressRepo.Upsert(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Sync replays a batch of offline writes through Save. The merge rule makes
// the outcome order-independent, so a batch can arrive in any order relative
// to live writes. Returns how many records were applied.
func (s *ProgressService) Sync(usuarioID uint, writes []ProgressWrite) (int, error) {
	applied := 0
	for _, w := range writes {
		avance := clampPercent(int(math.Round(w.Avance)))
		if _, err := s.Save(usuarioID, w.CursoID, w.ContenidoID, avance, w.Completado); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}

// ListByUser degrades to an empty slice on query failure: progress is
// advisory and must never block a student from viewing a course.
func (s *ProgressService) ListByUser(usuarioID uint) []model.Progreso {
	progresos, err := s.ProgressRepo.ListByUser(usuarioID)
	if err != nil {
		logger.Log.Warn("progress read failed, returning empty",
			zap.Uint("usuarioId", usuarioID), zap.Error(err))
		return []model.Progreso{}
	}
	return progresos
}

func (s *ProgressService) ListByCourse(usuarioID, cursoID uint) []model.Progreso {
	progresos, err := s.ProgressRepo.ListByUserCourse(usuarioID, cursoID)
	if err != nil {
		logger.Log.Warn("progress read failed, returning empty",
			zap.Uint("usuarioId", usuarioID), zap.Uint("cursoId", cursoID), zap.Error(err))
		return []model.Progreso{}
	}
	return progresos
}

// CoursePercent derives the course-level percentage. Never stored. Contents
// without a record count as zero, so finishing 2 of 4 contents yields 50.
func CoursePercent(progresos []model.Progreso, totalContenidos int) int {
	if totalContenidos <= 0 {
		return 0
	}
	sum := 0
	for _, p := range progresos {
		sum += clampPercent(p.Avance)
	}
	return int(math.Round(float64(sum) / float64(totalContenidos)))
}

// CourseProgress computes the derived course view for one user.
func (s *ProgressService) CourseProgress(usuarioID, cursoID uint) (*model.CursoProgreso, error) {
	total, err := s.CourseRepo.CountContenidos(cursoID)
	if err != nil {
		return nil, err
	}

	progresos := s.ListByCourse(usuarioID, cursoID)
	completados := 0
	for _, p := range progresos {
		if p.Completado {
			completados++
		}
	}

	return &model.CursoProgreso{
		CursoID:         cursoID,
		TotalContenidos: int(total),
		Completados:     completados,
		Porcentaje:      CoursePercent(progresos, int(total)),
	}, nil
}
