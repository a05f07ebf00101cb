package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/openexam/exam-service/internal/models"
	"github.com/openexam/exam-service/internal/repositories"
)

// fakeRepository is an in-memory Repository for service tests. It mirrors the
// storage layer's preservation rules: response upserts keep grading columns,
// exam-user upserts keep score columns.
type fakeRepository struct {
	mu sync.Mutex

	users     map[string]*models.User
	exams     map[uint]*models.Exam
	questions map[uint]*models.Question
	examUsers map[string]*models.ExamUser
	responses map[string]*models.StudentResponse

	nextExamID     uint
	nextQuestionID uint
	nextResponseID uint
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		users:     make(map[string]*models.User),
		exams:     make(map[uint]*models.Exam),
		questions: make(map[uint]*models.Question),
		examUsers: make(map[string]*models.ExamUser),
		responses: make(map[string]*models.StudentResponse),
	}
}

func (f *fakeRepository) User() repositories.UserRepository         { return (*fakeUsers)(f) }
func (f *fakeRepository) Exam() repositories.ExamRepository         { return (*fakeExams)(f) }
func (f *fakeRepository) Question() repositories.QuestionRepository { return (*fakeQuestions)(f) }
func (f *fakeRepository) ExamUser() repositories.ExamUserRepository { return (*fakeExamUsers)(f) }
func (f *fakeRepository) Response() repositories.ResponseRepository { return (*fakeResponses)(f) }

func examUserKey(examID uint, userID string) string {
	return fmt.Sprintf("%d/%s", examID, userID)
}

func responseKey(questionID uint, userID string) string {
	return fmt.Sprintf("%d/%s", questionID, userID)
}

// ===== users =====

type fakeUsers fakeRepository

func (f *fakeUsers) FirstOrCreate(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.users[user.ID]; ok {
		*user = *existing
		return nil
	}
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.User
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ===== exams =====

type fakeExams fakeRepository

func (f *fakeExams) Upsert(ctx context.Context, exam *models.Exam) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.exams {
		if existing.ExternalAssignmentID == exam.ExternalAssignmentID {
			existing.Title = exam.Title
			existing.ShowPointsPossible = exam.ShowPointsPossible
			*exam = *existing
			return nil
		}
	}
	f.nextExamID++
	exam.ID = f.nextExamID
	cp := *exam
	f.exams[exam.ID] = &cp
	return nil
}

func (f *fakeExams) GetByID(ctx context.Context, id uint) (*models.Exam, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.exams[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeExams) GetByExternalID(ctx context.Context, externalID string) (*models.Exam, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.exams {
		if e.ExternalAssignmentID == externalID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeExams) UpdateTotalPoints(ctx context.Context, examID uint, totalPoints int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.exams[examID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	e.TotalPoints = totalPoints
	return nil
}

// ===== questions =====

type fakeQuestions fakeRepository

func (f *fakeQuestions) Create(ctx context.Context, question *models.Question) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextQuestionID++
	question.ID = f.nextQuestionID
	cp := *question
	f.questions[question.ID] = &cp
	return nil
}

func (f *fakeQuestions) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.questions[id]
	if !ok || q.DeletedAt.Valid {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *q
	return &cp, nil
}

func (f *fakeQuestions) Update(ctx context.Context, question *models.Question) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.questions[question.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *question
	f.questions[question.ID] = &cp
	return nil
}

func (f *fakeQuestions) Delete(ctx context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.questions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	q.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	return nil
}

func (f *fakeQuestions) ListByExam(ctx context.Context, examID uint) ([]*models.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Question
	for id := uint(1); id <= f.nextQuestionID; id++ {
		q, ok := f.questions[id]
		if ok && q.ExamID == examID && !q.DeletedAt.Valid {
			cp := *q
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeQuestions) SumPoints(ctx context.Context, examID uint) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, q := range f.questions {
		if q.ExamID == examID && !q.DeletedAt.Valid {
			total += q.PointsPossible
		}
	}
	return total, nil
}

// ===== exam users =====

type fakeExamUsers fakeRepository

func (f *fakeExamUsers) Upsert(ctx context.Context, examUser *models.ExamUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := examUserKey(examUser.ExamID, examUser.UserID)
	if existing, ok := f.examUsers[key]; ok {
		if examUser.OutcomeServiceURL != nil {
			existing.OutcomeServiceURL = examUser.OutcomeServiceURL
		}
		if examUser.ResultSourcedID != nil {
			existing.ResultSourcedID = examUser.ResultSourcedID
		}
		*examUser = *existing
		return nil
	}
	cp := *examUser
	f.examUsers[key] = &cp
	return nil
}

func (f *fakeExamUsers) Get(ctx context.Context, examID uint, userID string) (*models.ExamUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	eu, ok := f.examUsers[examUserKey(examID, userID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *eu
	return &cp, nil
}

func (f *fakeExamUsers) ListByExam(ctx context.Context, examID uint) ([]*models.ExamUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.ExamUser
	for _, eu := range f.examUsers {
		if eu.ExamID == examID {
			cp := *eu
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeExamUsers) ListTakers(ctx context.Context, examID uint) ([]*models.ExamUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.ExamUser
	for _, eu := range f.examUsers {
		if eu.ExamID == examID && eu.HasTaken {
			cp := *eu
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeExamUsers) UpdateScoredPoints(ctx context.Context, examID uint, userID string, points int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	eu, ok := f.examUsers[examUserKey(examID, userID)]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	eu.ScoredPoints = points
	return nil
}

func (f *fakeExamUsers) MarkTaken(ctx context.Context, examID uint, userID string, finishedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := examUserKey(examID, userID)
	eu, ok := f.examUsers[key]
	if !ok {
		eu = &models.ExamUser{ExamID: examID, UserID: userID}
		f.examUsers[key] = eu
	}
	eu.HasTaken = true
	eu.FinishedAt = &finishedAt
	return nil
}

// ===== responses =====

type fakeResponses fakeRepository

func (f *fakeResponses) Upsert(ctx context.Context, resp *models.StudentResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := responseKey(resp.QuestionID, resp.UserID)
	if existing, ok := f.responses[key]; ok {
		existing.IsTextResponse = resp.IsTextResponse
		existing.TextResponse = resp.TextResponse
		existing.AnswerResponse = resp.AnswerResponse
		*resp = *existing
		return nil
	}
	f.nextResponseID++
	resp.ID = f.nextResponseID
	cp := *resp
	f.responses[key] = &cp
	return nil
}

func (f *fakeResponses) Get(ctx context.Context, questionID uint, userID string) (*models.StudentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.responses[responseKey(questionID, userID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeResponses) ListByExamAndUser(ctx context.Context, examID uint, userID string) ([]*models.StudentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.StudentResponse
	for _, r := range f.responses {
		q, ok := f.questions[r.QuestionID]
		if !ok || q.ExamID != examID || q.DeletedAt.Valid {
			continue
		}
		if r.UserID == userID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeResponses) ListByQuestion(ctx context.Context, questionID uint) ([]*models.StudentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.StudentResponse
	for _, r := range f.responses {
		if r.QuestionID == questionID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeResponses) SumScoresByUser(ctx context.Context, examID uint) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sums := make(map[string]int)
	for _, r := range f.responses {
		q, ok := f.questions[r.QuestionID]
		if !ok || q.ExamID != examID || q.DeletedAt.Valid {
			continue
		}
		if r.ScoredPoints != nil {
			sums[r.UserID] += *r.ScoredPoints
		} else {
			sums[r.UserID] += 0
		}
	}
	return sums, nil
}

func (f *fakeResponses) SetGrade(ctx context.Context, questionID uint, userID string, points *int, feedback *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.responses[responseKey(questionID, userID)]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if points != nil {
		p := *points
		r.ScoredPoints = &p
	}
	if feedback != nil {
		r.InstructorFeedback = *feedback
	}
	return nil
}

func (f *fakeResponses) SetConfidence(ctx context.Context, questionID uint, userID string, rating int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.responses[responseKey(questionID, userID)]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	r.ConfidenceRating = &rating
	return nil
}

// ===== outcome client fake =====

type replaceResultCall struct {
	ServiceURL string
	SourcedID  string
	Grade      string
}

// fakeOutcomeClient records ReplaceResult calls and fails for configured
// sourced ids.
type fakeOutcomeClient struct {
	mu      sync.Mutex
	calls   []replaceResultCall
	failFor map[string]error
}

func newFakeOutcomeClient() *fakeOutcomeClient {
	return &fakeOutcomeClient{failFor: make(map[string]error)}
}

func (f *fakeOutcomeClient) ReplaceResult(ctx context.Context, serviceURL, sourcedID, grade string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[sourcedID]; ok {
		return err
	}
	f.calls = append(f.calls, replaceResultCall{ServiceURL: serviceURL, SourcedID: sourcedID, Grade: grade})
	return nil
}

func (f *fakeOutcomeClient) deliveredGrades() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	grades := make(map[string]string, len(f.calls))
	for _, call := range f.calls {
		grades[call.SourcedID] = call.Grade
	}
	return grades
}
