package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

type lessonRepository interface {
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.Lesson, error)
	NextPosition(ctx context.Context, courseID string) (int, error)
	Create(ctx context.Context, lesson *models.Lesson) error
	Update(ctx context.Context, lesson *models.Lesson) error
	Delete(ctx context.Context, id string) error
	ListQuestions(ctx context.Context, lessonID string) ([]models.QuizQuestion, error)
	CreateQuestion(ctx context.Context, q *models.QuizQuestion) error
}

// LessonView is a lesson with its quiz questions, when it has any.
type LessonView struct {
	models.Lesson
	Questions []models.QuizQuestion `json:"questions,omitempty"`
}

// LessonService manages course content.
type LessonService struct {
	repo        lessonRepository
	courses     courseReader
	enrollments courseEnrollmentReader
	gradebook   gradebookInvalidator
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewLessonService constructs LessonService.
func NewLessonService(repo lessonRepository, courses courseReader, enrollments courseEnrollmentReader, gradebook gradebookInvalidator, validate *validator.Validate, logger *zap.Logger) *LessonService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LessonService{repo: repo, courses: courses, enrollments: enrollments, gradebook: gradebook, validator: validate, logger: logger}
}

// List returns the lessons of a granted course in position order. Students
// only see lessons they are targeted by.
func (s *LessonService) List(ctx context.Context, grant *AccessGrant) ([]models.Lesson, error) {
	lessons, err := s.repo.ListByCourse(ctx, grant.Course.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list lessons")
	}
	if grant.Manager {
		return lessons, nil
	}
	visible := make([]models.Lesson, 0, len(lessons))
	for _, l := range lessons {
		if l.VisibleTo(grant.User.ID) {
			visible = append(visible, l)
		}
	}
	return visible, nil
}

// View attaches quiz questions to an already gated lesson.
func (s *LessonService) View(ctx context.Context, lesson *models.Lesson) (*LessonView, error) {
	view := &LessonView{Lesson: *lesson}
	if lesson.Type != models.LessonTypeQuiz {
		return view, nil
	}
	questions, err := s.repo.ListQuestions(ctx, lesson.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load questions")
	}
	view.Questions = questions
	return view, nil
}

// Create adds a lesson to courseID. Managers only.
func (s *LessonService) Create(ctx context.Context, actor *models.User, courseID string, req dto.CreateLessonRequest) (*models.Lesson, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid lesson payload")
	}
	course, err := s.managedCourse(ctx, actor, courseID)
	if err != nil {
		return nil, err
	}

	lessonType := models.LessonType(req.Type)
	targets, err := s.validateTargets(ctx, course.ID, lessonType, req.TargetStudents)
	if err != nil {
		return nil, err
	}

	lesson := &models.Lesson{
		CourseID:       course.ID,
		Title:          req.Title,
		Type:           lessonType,
		Content:        req.Content,
		MediaURL:       req.MediaURL,
		DueDate:        req.DueDate,
		TargetStudents: targets,
	}
	if req.Position != nil {
		lesson.Position = *req.Position
	} else {
		next, err := s.repo.NextPosition(ctx, course.ID)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to compute lesson position")
		}
		lesson.Position = next
	}
	if err := s.repo.Create(ctx, lesson); err != nil {
		return nil, appErrors.Internal(err, "failed to create lesson")
	}
	if lessonType.Gradable() {
		s.invalidate(ctx, course.ID)
	}
	return lesson, nil
}

// Update patches a lesson. Managers only.
func (s *LessonService) Update(ctx context.Context, actor *models.User, lessonID string, req dto.UpdateLessonRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid lesson payload")
	}
	lesson, err := s.managedLesson(ctx, actor, lessonID)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		lesson.Title = strings.TrimSpace(*req.Title)
	}
	if req.Content != nil {
		lesson.Content = *req.Content
	}
	if req.MediaURL != nil {
		lesson.MediaURL = trimmedPtr(*req.MediaURL)
	}
	if req.Position != nil {
		lesson.Position = *req.Position
	}
	if req.DueDate != nil {
		lesson.DueDate = req.DueDate
	}
	if req.TargetStudents != nil {
		targets, err := s.validateTargets(ctx, lesson.CourseID, lesson.Type, *req.TargetStudents)
		if err != nil {
			return nil, err
		}
		lesson.TargetStudents = targets
	}
	if err := s.repo.Update(ctx, lesson); err != nil {
		return nil, appErrors.Internal(err, "failed to update lesson")
	}
	if lesson.Type.Gradable() {
		s.invalidate(ctx, lesson.CourseID)
	}
	return lesson, nil
}

// Delete removes a lesson. Managers only.
func (s *LessonService) Delete(ctx context.Context, actor *models.User, lessonID string) error {
	lesson, err := s.managedLesson(ctx, actor, lessonID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, lessonID); err != nil {
		return notFoundOr(err, "lesson not found", "failed to delete lesson")
	}
	s.invalidate(ctx, lesson.CourseID)
	return nil
}

// AddQuestion appends a question to a quiz lesson. Managers only.
func (s *LessonService) AddQuestion(ctx context.Context, actor *models.User, lessonID string, req dto.CreateQuizQuestionRequest) (*models.QuizQuestion, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid question payload")
	}
	if req.CorrectIndex >= len(req.Options) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "correct_index is out of range")
	}
	lesson, err := s.managedLesson(ctx, actor, lessonID)
	if err != nil {
		return nil, err
	}
	if lesson.Type != models.LessonTypeQuiz {
		return nil, appErrors.Clone(appErrors.ErrValidation, "questions can only be added to quiz lessons")
	}

	question := &models.QuizQuestion{
		LessonID:     lesson.ID,
		Question:     strings.TrimSpace(req.Question),
		Options:      models.StringSlice(req.Options),
		CorrectIndex: req.CorrectIndex,
	}
	if req.Position != nil {
		question.Position = *req.Position
	} else {
		existing, err := s.repo.ListQuestions(ctx, lesson.ID)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to load questions")
		}
		question.Position = len(existing) + 1
	}
	if err := s.repo.CreateQuestion(ctx, question); err != nil {
		return nil, appErrors.Internal(err, "failed to create question")
	}
	return question, nil
}

// validateTargets checks a target student list: only assignments may carry
// one and every id must be enrolled in the course.
func (s *LessonService) validateTargets(ctx context.Context, courseID string, lessonType models.LessonType, ids []string) (models.StudentSet, error) {
	set := models.NewStudentSet(ids...)
	if set.Empty() {
		return set, nil
	}
	if lessonType != models.LessonTypeAssignment {
		return nil, appErrors.Clone(appErrors.ErrValidation, "target_students is only allowed on assignment lessons")
	}
	enrolled, err := s.enrollments.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load enrollments")
	}
	members := make(map[string]struct{}, len(enrolled))
	for _, e := range enrolled {
		members[e.UserID] = struct{}{}
	}
	for _, id := range set.IDs() {
		if _, ok := members[id]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("user %s is not enrolled in this course", id))
		}
	}
	return set, nil
}

func (s *LessonService) managedCourse(ctx context.Context, actor *models.User, courseID string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, notFoundOr(err, "course not found", "failed to load course")
	}
	if !CanManageCourse(actor, course) {
		return nil, appErrors.ErrUnauthorized
	}
	return course, nil
}

func (s *LessonService) managedLesson(ctx context.Context, actor *models.User, lessonID string) (*models.Lesson, error) {
	lesson, err := s.repo.FindByID(ctx, lessonID)
	if err != nil {
		return nil, notFoundOr(err, "lesson not found", "failed to load lesson")
	}
	if _, err := s.managedCourse(ctx, actor, lesson.CourseID); err != nil {
		return nil, err
	}
	return lesson, nil
}

func (s *LessonService) invalidate(ctx context.Context, courseID string) {
	if s.gradebook != nil {
		s.gradebook.Invalidate(ctx, courseID)
	}
}
