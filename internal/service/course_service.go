package service

import (
	"errors"

	"kiosco_escolar_backend/internal/model"
	"kiosco_escolar_backend/internal/repository"
	"kiosco_escolar_backend/internal/util"

	"gorm.io/gorm"
)

// CursoView is a course list entry enriched with the caller's derived
// progress. The percentage is computed on read, never stored.
type CursoView struct {
	model.Curso
	Progreso *model.CursoProgreso `json:"progreso,omitempty"`
}

type CourseService struct {
	CourseRepo *repository.CourseRepository
	Progress   *ProgressService
}

func NewCourseService(courseRepo *repository.CourseRepository, progress *ProgressService) *CourseService {
	return &CourseService{
		CourseRepo: courseRepo,
		Progress:   progress,
	}
}

// List returns the catalog visible to the identity: students only see
// published courses, tutors see everything. Each entry carries the caller's
// derived course progress.
func (s *CourseService) List(identity *model.Identity) ([]CursoView, error) {
	cursos, err := s.CourseRepo.List(!identity.IsTutor())
	if err != nil {
		return nil, err
	}

	views := make([]CursoView, 0, len(cursos))
	for _, curso := range cursos {
		view := CursoView{Curso: curso}
		if cp, perr := s.Progress.CourseProgress(identity.ID, curso.ID); perr == nil {
			view.Progreso = cp
		}
		views = append(views, view)
	}
	return views, nil
}

// Detail returns one course with its ordered contents and the caller's
// progress. Students cannot see unpublished courses.
func (s *CourseService) Detail(identity *model.Identity, cursoID uint) (*CursoView, error) {
	curso, err := s.CourseRepo.FindByID(cursoID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !curso.Publicado && !identity.IsTutor() {
		return nil, util.ErrNotFound
	}

	view := &CursoView{Curso: *curso}
	if cp, perr := s.Progress.CourseProgress(identity.ID, cursoID); perr == nil {
		view.Progreso = cp
	}
	return view, nil
}

func (s *CourseService) Create(curso *model.Curso) error {
	if curso.Titulo == "" {
		return util.ErrValidation
	}
	return s.CourseRepo.Create(curso)
}

func (s *CourseService) Update(cursoID uint, cambios *model.Curso) (*model.Curso, error) {
	curso, err := s.CourseRepo.FindByID(cursoID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if cambios.Titulo != "" {
		curso.Titulo = cambios.Titulo
	}
	if cambios.Descripcion != "" {
		curso.Descripcion = cambios.Descripcion
	}
	curso.Publicado = cambios.Publicado

	if err := s.CourseRepo.Update(curso); err != nil {
		return nil, err
	}
	return curso, nil
}

func (s *CourseService) Delete(cursoID uint) error {
	if _, err := s.CourseRepo.FindByID(cursoID); errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrNotFound
	} else if err != nil {
		return err
	}
	return s.CourseRepo.Delete(cursoID)
}

func (s *CourseService) AddContenido(cursoID uint, contenido *model.Contenido) error {
	if contenido.Titulo == "" || !contenido.Tipo.Valid() {
		return util.ErrValidation
	}
	if _, err := s.CourseRepo.FindByID(cursoID); errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrNotFound
	} else if err != nil {
		return err
	}
	contenido.CursoID = cursoID
	return s.CourseRepo.CreateContenido(contenido)
}

func (s *CourseService) UpdateContenido(contenidoID uint, cambios *model.Contenido) (*model.Contenido, error) {
	contenido, err := s.CourseRepo.FindContenido(contenidoID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if cambios.Titulo != "" {
		contenido.Titulo = cambios.Titulo
	}
	if cambios.Tipo != "" {
		if !cambios.Tipo.Valid() {
			return nil, util.ErrValidation
		}
		contenido.Tipo = cambios.Tipo
	}
	if cambios.Cuerpo != "" {
		contenido.Cuerpo = cambios.Cuerpo
	}
	if cambios.ArchivoURL != "" {
		contenido.ArchivoURL = cambios.ArchivoURL
	}
	if cambios.Orden != 0 {
		contenido.Orden = cambios.Orden
	}

	if err := s.CourseRepo.UpdateContenido(contenido); err != nil {
		return nil, err
	}
	return contenido, nil
}

func (s *CourseService) DeleteContenido(contenidoID uint) error {
	if _, err := s.CourseRepo.FindContenido(contenidoID); errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrNotFound
	} else if err != nil {
		return err
	}
	return s.CourseRepo.DeleteContenido(contenidoID)
}
