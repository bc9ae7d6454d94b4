package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/repository"
)

var fixedNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type fakeUsers struct {
	users      map[string]*models.User
	activeSets []string
}

func newFakeUsers(users ...*models.User) *fakeUsers {
	f := &fakeUsers{users: make(map[string]*models.User)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUsers) SetActive(ctx context.Context, id string, active bool) (bool, error) {
	u, ok := f.users[id]
	if !ok {
		return false, sql.ErrNoRows
	}
	u.Active = active
	f.activeSets = append(f.activeSets, id)
	return u.Active, nil
}

func (f *fakeUsers) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	out := make([]models.User, 0, len(f.users))
	for _, u := range f.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

type fakeCourses struct {
	courses map[string]*models.Course
	deleted []string
}

func newFakeCourses(courses ...*models.Course) *fakeCourses {
	f := &fakeCourses{courses: make(map[string]*models.Course)}
	for _, c := range courses {
		f.courses[c.ID] = c
	}
	return f
}

func (f *fakeCourses) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := f.courses[id]; ok {
		clone := *c
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeCourses) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseSummary, int, error) {
	out := make([]models.CourseSummary, 0, len(f.courses))
	for _, c := range f.courses {
		if filter.PublishedOnly && !c.Published {
			continue
		}
		out = append(out, models.CourseSummary{Course: *c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (f *fakeCourses) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = fmt.Sprintf("course-%d", len(f.courses)+1)
	}
	clone := *course
	f.courses[course.ID] = &clone
	return nil
}

func (f *fakeCourses) Update(ctx context.Context, course *models.Course) error {
	if _, ok := f.courses[course.ID]; !ok {
		return sql.ErrNoRows
	}
	clone := *course
	f.courses[course.ID] = &clone
	return nil
}

func (f *fakeCourses) Delete(ctx context.Context, id string) error {
	if _, ok := f.courses[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.courses, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeLessons struct {
	lessons   map[string]*models.Lesson
	questions map[string][]models.QuizQuestion
}

func newFakeLessons(lessons ...*models.Lesson) *fakeLessons {
	f := &fakeLessons{lessons: make(map[string]*models.Lesson), questions: make(map[string][]models.QuizQuestion)}
	for _, l := range lessons {
		f.lessons[l.ID] = l
	}
	return f
}

func (f *fakeLessons) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	if l, ok := f.lessons[id]; ok {
		clone := *l
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeLessons) ListByCourse(ctx context.Context, courseID string) ([]models.Lesson, error) {
	var out []models.Lesson
	for _, l := range f.lessons {
		if l.CourseID == courseID {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (f *fakeLessons) ListGradable(ctx context.Context, courseID string) ([]models.Lesson, error) {
	all, _ := f.ListByCourse(ctx, courseID)
	var out []models.Lesson
	for _, l := range all {
		if l.Type.Gradable() {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeLessons) CountByCourse(ctx context.Context, courseID string) (int, error) {
	all, _ := f.ListByCourse(ctx, courseID)
	return len(all), nil
}

func (f *fakeLessons) CountByCourses(ctx context.Context, courseIDs []string) ([]models.CourseLessonCount, error) {
	var out []models.CourseLessonCount
	for _, id := range courseIDs {
		n, _ := f.CountByCourse(ctx, id)
		if n > 0 {
			out = append(out, models.CourseLessonCount{CourseID: id, Total: n})
		}
	}
	return out, nil
}

func (f *fakeLessons) NextPosition(ctx context.Context, courseID string) (int, error) {
	all, _ := f.ListByCourse(ctx, courseID)
	if len(all) == 0 {
		return 1, nil
	}
	return all[len(all)-1].Position + 1, nil
}

func (f *fakeLessons) Create(ctx context.Context, lesson *models.Lesson) error {
	if lesson.ID == "" {
		lesson.ID = fmt.Sprintf("lesson-%d", len(f.lessons)+1)
	}
	clone := *lesson
	f.lessons[lesson.ID] = &clone
	return nil
}

func (f *fakeLessons) Update(ctx context.Context, lesson *models.Lesson) error {
	if _, ok := f.lessons[lesson.ID]; !ok {
		return sql.ErrNoRows
	}
	clone := *lesson
	f.lessons[lesson.ID] = &clone
	return nil
}

func (f *fakeLessons) Delete(ctx context.Context, id string) error {
	if _, ok := f.lessons[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.lessons, id)
	return nil
}

func (f *fakeLessons) ListQuestions(ctx context.Context, lessonID string) ([]models.QuizQuestion, error) {
	return f.questions[lessonID], nil
}

func (f *fakeLessons) CreateQuestion(ctx context.Context, q *models.QuizQuestion) error {
	if q.ID == "" {
		q.ID = fmt.Sprintf("q-%d", len(f.questions[q.LessonID])+1)
	}
	f.questions[q.LessonID] = append(f.questions[q.LessonID], *q)
	return nil
}

type fakeEnrollments struct {
	users *fakeUsers
	rows  map[string]*models.Enrollment
	seq   int
}

func newFakeEnrollments(users *fakeUsers, rows ...*models.Enrollment) *fakeEnrollments {
	f := &fakeEnrollments{users: users, rows: make(map[string]*models.Enrollment)}
	for _, e := range rows {
		f.rows[e.ID] = e
	}
	return f
}

func (f *fakeEnrollments) find(userID, courseID string) *models.Enrollment {
	for _, e := range f.rows {
		if e.UserID == userID && e.CourseID == courseID {
			return e
		}
	}
	return nil
}

func (f *fakeEnrollments) Upsert(ctx context.Context, userID, courseID string, enrolledAt, expiresAt time.Time) (*models.Enrollment, error) {
	if existing := f.find(userID, courseID); existing != nil {
		existing.Active = true
		existing.ExpiresAt = expiresAt
		clone := *existing
		return &clone, nil
	}
	f.seq++
	e := &models.Enrollment{ID: fmt.Sprintf("enr-%d", f.seq), UserID: userID, CourseID: courseID, EnrolledAt: enrolledAt, ExpiresAt: expiresAt, Active: true}
	f.rows[e.ID] = e
	clone := *e
	return &clone, nil
}

func (f *fakeEnrollments) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := f.rows[id]; ok {
		clone := *e
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeEnrollments) FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.Enrollment, error) {
	if e := f.find(userID, courseID); e != nil {
		clone := *e
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeEnrollments) mutate(id string, fn func(e *models.Enrollment)) (*models.Enrollment, error) {
	e, ok := f.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	fn(e)
	clone := *e
	return &clone, nil
}

func (f *fakeEnrollments) SetActive(ctx context.Context, id string, active bool) (*models.Enrollment, error) {
	return f.mutate(id, func(e *models.Enrollment) { e.Active = active })
}

func (f *fakeEnrollments) Toggle(ctx context.Context, id string) (*models.Enrollment, error) {
	return f.mutate(id, func(e *models.Enrollment) { e.Active = !e.Active })
}

func (f *fakeEnrollments) Extend(ctx context.Context, id string, days int) (*models.Enrollment, error) {
	return f.mutate(id, func(e *models.Enrollment) { e.ExpiresAt = e.ExpiresAt.AddDate(0, 0, days) })
}

func (f *fakeEnrollments) UpdateNotes(ctx context.Context, id string, notes *string) (*models.Enrollment, error) {
	return f.mutate(id, func(e *models.Enrollment) { e.TeacherNotes = notes })
}

func (f *fakeEnrollments) Delete(ctx context.Context, id string) error {
	if _, ok := f.rows[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeEnrollments) ListByCourse(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error) {
	var out []models.EnrollmentDetail
	for _, e := range f.rows {
		if e.CourseID != courseID {
			continue
		}
		detail := models.EnrollmentDetail{Enrollment: *e}
		if f.users != nil {
			if u, ok := f.users.users[e.UserID]; ok {
				detail.StudentName = u.FullName
				detail.StudentEmail = u.Email
			}
		}
		out = append(out, detail)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentName < out[j].StudentName })
	return out, nil
}

func (f *fakeEnrollments) ListByUser(ctx context.Context, userID string) ([]models.EnrolledCourse, error) {
	var out []models.EnrolledCourse
	for _, e := range f.rows {
		if e.UserID == userID {
			out = append(out, models.EnrolledCourse{Enrollment: *e, Title: "Course " + e.CourseID})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseID < out[j].CourseID })
	return out, nil
}

func (f *fakeEnrollments) CountExpiringBetween(ctx context.Context, from, to time.Time) (int, error) {
	count := 0
	for _, e := range f.rows {
		if e.Active && !e.ExpiresAt.Before(from) && e.ExpiresAt.Before(to) {
			count++
		}
	}
	return count, nil
}

type fakeSubmissions struct {
	lessons     *fakeLessons
	quizzes     []models.Submission
	assignments map[string]*models.AssignmentSubmission
	seq         int
}

func newFakeSubmissions(lessons *fakeLessons) *fakeSubmissions {
	return &fakeSubmissions{lessons: lessons, assignments: make(map[string]*models.AssignmentSubmission)}
}

func (f *fakeSubmissions) CreateQuizSubmission(ctx context.Context, sub *models.Submission) error {
	f.seq++
	if sub.ID == "" {
		sub.ID = fmt.Sprintf("sub-%d", f.seq)
	}
	f.quizzes = append(f.quizzes, *sub)
	return nil
}

func (f *fakeSubmissions) FindAssignment(ctx context.Context, userID, lessonID string) (*models.AssignmentSubmission, error) {
	for _, a := range f.assignments {
		if a.UserID == userID && a.LessonID == lessonID {
			clone := *a
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeSubmissions) FindAssignmentByID(ctx context.Context, id string) (*models.AssignmentSubmission, error) {
	if a, ok := f.assignments[id]; ok {
		clone := *a
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeSubmissions) UpsertAssignment(ctx context.Context, sub *models.AssignmentSubmission) (*models.AssignmentSubmission, error) {
	for _, a := range f.assignments {
		if a.UserID == sub.UserID && a.LessonID == sub.LessonID {
			a.FilePath, a.FileName, a.ContentType, a.SizeBytes = sub.FilePath, sub.FileName, sub.ContentType, sub.SizeBytes
			a.SubmittedAt = sub.SubmittedAt
			a.Grade, a.Feedback, a.GradedAt, a.GradedBy = nil, nil, nil, nil
			clone := *a
			return &clone, nil
		}
	}
	f.seq++
	clone := *sub
	if clone.ID == "" {
		clone.ID = fmt.Sprintf("asg-%d", f.seq)
	}
	f.assignments[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (f *fakeSubmissions) GradeAssignment(ctx context.Context, id string, grade int, feedback *string, gradedBy string, gradedAt time.Time) (*models.AssignmentSubmission, error) {
	a, ok := f.assignments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	a.Grade = &grade
	a.Feedback = feedback
	a.GradedBy = &gradedBy
	a.GradedAt = &gradedAt
	clone := *a
	return &clone, nil
}

func (f *fakeSubmissions) courseOf(lessonID string) string {
	if f.lessons == nil {
		return ""
	}
	if l, ok := f.lessons.lessons[lessonID]; ok {
		return l.CourseID
	}
	return ""
}

func (f *fakeSubmissions) ListActivities(ctx context.Context, userID string, courseIDs []string) ([]models.LessonActivity, error) {
	wanted := make(map[string]bool, len(courseIDs))
	for _, id := range courseIDs {
		wanted[id] = true
	}
	var out []models.LessonActivity
	add := func(uid, lessonID string) {
		courseID := f.courseOf(lessonID)
		if uid == userID && wanted[courseID] {
			out = append(out, models.LessonActivity{UserID: uid, CourseID: courseID, LessonID: lessonID})
		}
	}
	for _, q := range f.quizzes {
		add(q.UserID, q.LessonID)
	}
	for _, a := range f.assignments {
		add(a.UserID, a.LessonID)
	}
	return out, nil
}

func (f *fakeSubmissions) ListQuizAttempts(ctx context.Context, courseID string) ([]models.QuizAttempt, error) {
	var out []models.QuizAttempt
	for _, q := range f.quizzes {
		if f.courseOf(q.LessonID) == courseID {
			out = append(out, models.QuizAttempt{UserID: q.UserID, LessonID: q.LessonID, Score: q.Score})
		}
	}
	return out, nil
}

func (f *fakeSubmissions) ListAssignmentGrades(ctx context.Context, courseID string) ([]models.AssignmentGrade, error) {
	var out []models.AssignmentGrade
	for _, a := range f.assignments {
		if a.Grade != nil && f.courseOf(a.LessonID) == courseID {
			out = append(out, models.AssignmentGrade{UserID: a.UserID, LessonID: a.LessonID, Grade: *a.Grade})
		}
	}
	return out, nil
}

type fakeCommunity struct {
	discussions []models.Discussion
	feedback    []models.CourseFeedback
}

func (f *fakeCommunity) ListByCourse(ctx context.Context, courseID string, limit int) ([]models.DiscussionDetail, error) {
	var out []models.DiscussionDetail
	for _, d := range f.discussions {
		if d.CourseID == courseID {
			out = append(out, models.DiscussionDetail{Discussion: d})
		}
	}
	return out, nil
}

func (f *fakeCommunity) Create(ctx context.Context, d *models.Discussion) error {
	if d.ID == "" {
		d.ID = fmt.Sprintf("d-%d", len(f.discussions)+1)
	}
	f.discussions = append(f.discussions, *d)
	return nil
}

func (f *fakeCommunity) CreateFeedback(ctx context.Context, fb *models.CourseFeedback) error {
	for _, existing := range f.feedback {
		if existing.UserID == fb.UserID && existing.CourseID == fb.CourseID {
			return repository.ErrDuplicate
		}
	}
	f.feedback = append(f.feedback, *fb)
	return nil
}

func (f *fakeCommunity) HasFeedback(ctx context.Context, userID, courseID string) (bool, error) {
	for _, existing := range f.feedback {
		if existing.UserID == userID && existing.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCommunity) FeedbackCourses(ctx context.Context, userID string, courseIDs []string) (map[string]bool, error) {
	out := make(map[string]bool)
	for _, id := range courseIDs {
		ok, _ := f.HasFeedback(ctx, userID, id)
		if ok {
			out[id] = true
		}
	}
	return out, nil
}

type invalidationRecorder struct {
	courses []string
}

func (r *invalidationRecorder) Invalidate(ctx context.Context, courseID string) {
	r.courses = append(r.courses, courseID)
}

// fixture builds a small course with a teacher, two students and an admin.
type fixture struct {
	admin, teacher, otherTeacher, student, outsider *models.User
	course                                          *models.Course
	users                                           *fakeUsers
	courses                                         *fakeCourses
	lessons                                         *fakeLessons
	enrollments                                     *fakeEnrollments
	submissions                                     *fakeSubmissions
	community                                       *fakeCommunity
}

func newFixture() *fixture {
	f := &fixture{
		admin:        &models.User{ID: "admin", Role: models.RoleAdmin, Active: true, FullName: "Admin"},
		teacher:      &models.User{ID: "teacher", Role: models.RoleTeacher, Active: true, FullName: "Teacher"},
		otherTeacher: &models.User{ID: "teacher-2", Role: models.RoleTeacher, Active: true, FullName: "Other Teacher"},
		student:      &models.User{ID: "student", Role: models.RoleStudent, Active: true, FullName: "Ann Student", Email: "ann@example.com"},
		outsider:     &models.User{ID: "outsider", Role: models.RoleStudent, Active: true, FullName: "Out Sider", Email: "out@example.com"},
	}
	f.course = &models.Course{ID: "course-1", Title: "Go 101", TeacherID: f.teacher.ID, AccessDays: 30, Published: true}
	f.users = newFakeUsers(f.admin, f.teacher, f.otherTeacher, f.student, f.outsider)
	f.courses = newFakeCourses(f.course)
	f.lessons = newFakeLessons(
		&models.Lesson{ID: "l-video", CourseID: f.course.ID, Title: "Intro", Type: models.LessonTypeVideo, Position: 1},
		&models.Lesson{ID: "l-quiz", CourseID: f.course.ID, Title: "Quiz", Type: models.LessonTypeQuiz, Position: 2},
		&models.Lesson{ID: "l-asg", CourseID: f.course.ID, Title: "Homework", Type: models.LessonTypeAssignment, Position: 3},
	)
	f.enrollments = newFakeEnrollments(f.users, &models.Enrollment{
		ID: "enr-student", UserID: f.student.ID, CourseID: f.course.ID,
		EnrolledAt: fixedNow.AddDate(0, 0, -1), ExpiresAt: fixedNow.AddDate(0, 0, 29), Active: true,
	})
	f.submissions = newFakeSubmissions(f.lessons)
	f.community = &fakeCommunity{}
	return f
}

func (f *fixture) access() *AccessService {
	svc := NewAccessService(f.users, f.courses, f.lessons, f.enrollments, nil, nil)
	svc.now = fixedClock
	return svc
}
