package models

import (
	"time"
)

// Файл с моделями, которыми клиент обменивается с REST API.
// Формы совпадают с JSON, который отдает и принимает сервер.

// Роли пользователей
const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// QuestionType — вариант вопроса.
type QuestionType string

const (
	QuestionChoice QuestionType = "choice"
	QuestionBlank  QuestionType = "blank"
	QuestionCode   QuestionType = "code"
)

// Valid проверяет, что тип вопроса известен.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionChoice, QuestionBlank, QuestionCode:
		return true
	}
	return false
}

// SubmissionStatus — статус выполнения эксперимента студентом.
type SubmissionStatus string

const (
	StatusNotStarted SubmissionStatus = "not_started"
	StatusInProgress SubmissionStatus = "in_progress"
	StatusSubmitted  SubmissionStatus = "submitted"
	StatusGraded     SubmissionStatus = "graded"
)

// Finalized возвращает true, если ответы больше нельзя менять.
func (s SubmissionStatus) Finalized() bool {
	return s == StatusSubmitted || s == StatusGraded
}

// Языки для вопросов с кодом.
const (
	LanguageCPP    = "cpp"
	LanguagePython = "python"
	LanguageJava   = "java"
)

// DefaultLanguage используется, если студент еще не выбирал язык.
const DefaultLanguage = LanguagePython

// Languages — допустимые языки в порядке показа.
var Languages = []string{LanguageCPP, LanguagePython, LanguageJava}

// TestCase — тест для вопроса с кодом.
type TestCase struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
}

// Question представляет вопрос эксперимента в том виде, в котором его отдает сервер.
type Question struct {
	QuestionID      string       `json:"question_id"`
	Type            QuestionType `json:"type"`
	Content         string       `json:"content"`
	Score           int          `json:"score"`
	Explanation     string       `json:"explanation,omitempty"`
	ImageURL        string       `json:"image_url,omitempty"`
	Options         []string     `json:"options,omitempty"`
	CorrectAnswer   string       `json:"correct_answer,omitempty"`
	TestCases       []TestCase   `json:"test_cases,omitempty"`
	StudentAnswer   string       `json:"student_answer,omitempty"`
	StudentCode     string       `json:"student_code,omitempty"`
	StudentLanguage string       `json:"student_language,omitempty"`
	Feedback        string       `json:"feedback,omitempty"`
}

// Experiment представляет эксперимент (задание).
type Experiment struct {
	ExperimentID     string           `json:"experiment_id"`
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	Deadline         time.Time        `json:"deadline"`
	Permission       int              `json:"permission"`
	Status           string           `json:"status,omitempty"`
	StudentIDs       []string         `json:"student_ids,omitempty"`
	Questions        []Question       `json:"questions,omitempty"`
	Attachments      []FileInfo       `json:"attachments,omitempty"`
	SubmissionStatus SubmissionStatus `json:"submission_status,omitempty"`
	TotalScore       ScoreText        `json:"total_score,omitempty"`
}

// AllowsLateSubmit возвращает true, если разрешена сдача после дедлайна.
func (e *Experiment) AllowsLateSubmit() bool {
	return e.Permission == 1
}

// Question возвращает вопрос по идентификатору.
func (e *Experiment) Question(questionID string) (*Question, bool) {
	for i := range e.Questions {
		if e.Questions[i].QuestionID == questionID {
			return &e.Questions[i], true
		}
	}
	return nil, false
}

// FileInfo — файл, прикрепленный к эксперименту.
type FileInfo struct {
	ID   int    `json:"id,omitempty"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// AnswerInput — ответ на вопрос в запросах save и submit.
type AnswerInput struct {
	QuestionID string       `json:"question_id"`
	Type       QuestionType `json:"type"`
	Answer     string       `json:"answer,omitempty"`
	Code       string       `json:"code,omitempty"`
	Language   string       `json:"language,omitempty"`
}

// QuestionInput — вопрос в запросах создания и обновления эксперимента.
type QuestionInput struct {
	QuestionID    string       `json:"question_id,omitempty"`
	Type          QuestionType `json:"type"`
	Content       string       `json:"content"`
	Score         int          `json:"score"`
	ImageURL      string       `json:"image_url,omitempty"`
	Explanation   string       `json:"explanation,omitempty"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correct_answer,omitempty"`
	TestCases     []TestCase   `json:"test_cases,omitempty"`
}

// ExperimentInput — тело запроса создания или обновления эксперимента.
type ExperimentInput struct {
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Deadline        time.Time       `json:"deadline"`
	Permission      int             `json:"permission"`
	StudentIDs      []string        `json:"student_ids"`
	Questions       []QuestionInput `json:"questions"`
	RemoveQuestions []string        `json:"remove_questions,omitempty"`
}

// QuestionResult — оценка одного вопроса в отправленной работе.
type QuestionResult struct {
	QuestionID string       `json:"question_id"`
	Type       QuestionType `json:"type"`
	Content    string       `json:"content,omitempty"`
	Answer     string       `json:"answer,omitempty"`
	Score      int          `json:"score"`
	Feedback   string       `json:"feedback,omitempty"`
}

// Submission — отправленная (и, возможно, оцененная) работа студента.
type Submission struct {
	SubmissionID string           `json:"submission_id"`
	ExperimentID string           `json:"experiment_id"`
	Title        string           `json:"title,omitempty"`
	StudentID    string           `json:"student_id,omitempty"`
	StudentName  string           `json:"student_name,omitempty"`
	Status       SubmissionStatus `json:"status"`
	TotalScore   int              `json:"total_score"`
	SubmittedAt  time.Time        `json:"submitted_at"`
	Results      []QuestionResult `json:"results,omitempty"`
}

// Notification — объявление преподавателя.
type Notification struct {
	NotificationID string    `json:"notification_id,omitempty"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	ExperimentID   string    `json:"experiment_id,omitempty"`
	IsImportant    bool      `json:"is_important"`
	Users          []string  `json:"users,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// StudentGroup — группа студентов.
type StudentGroup struct {
	GroupID      ID     `json:"group_id"`
	GroupName    string `json:"group_name"`
	StudentIDs   []ID   `json:"student_ids"`
	StudentCount int    `json:"student_count"`
}

// Student — студент в списке преподавателя.
type Student struct {
	UserID   ID     `json:"user_id"`
	Username string `json:"username"`
	GroupIDs []ID   `json:"group_ids,omitempty"`
}

// Profile — данные текущего пользователя.
type Profile struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	UserID   ID     `json:"user_id"`
}

// Pagination — параметры страницы в ответе списка.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// PageQuery — параметры запроса списка.
type PageQuery struct {
	Page    int
	Limit   int
	Status  string
	GroupID string
}
