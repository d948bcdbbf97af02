package client

import (
	"context"
	"io"
	"time"

	"github.com/smartfox/smartfox/internal/domain/models"
)

// TokenSource отдает текущий токен сессии. Пустая строка, если пользователь не вошел.
type TokenSource interface {
	Token() string
}

// TokenFunc позволяет использовать функцию как TokenSource.
type TokenFunc func() string

func (f TokenFunc) Token() string {
	return f()
}

// ExperimentList — страница списка экспериментов.
type ExperimentList struct {
	Experiments []models.Experiment
	Pagination  models.Pagination
}

// SubmissionList — страница истории отправок студента.
type SubmissionList struct {
	Submissions []models.Submission
	Pagination  models.Pagination
}

// NotificationList — страница объявлений.
type NotificationList struct {
	Notifications []models.Notification
	Pagination    models.Pagination
}

// StudentList — страница студентов.
type StudentList struct {
	Students   []models.Student
	Pagination models.Pagination
}

// GroupList — страница групп.
type GroupList struct {
	Groups     []models.StudentGroup
	Pagination models.Pagination
}

// GroupInput — тело запроса создания или обновления группы.
type GroupInput struct {
	GroupName  string   `json:"group_name"`
	StudentIDs []string `json:"student_ids"`
}

// Credentials — данные для входа и регистрации.
type Credentials struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// AuthAPI — вход и профиль.
type AuthAPI interface {
	// Login возвращает токен сессии.
	Login(ctx context.Context, name, password string) (string, error)

	// Register регистрирует нового пользователя.
	Register(ctx context.Context, creds Credentials) error

	// Profile возвращает данные пользователя, которому принадлежит токен.
	Profile(ctx context.Context) (*models.Profile, error)
}

// ExperimentAPI — чтение и изменение экспериментов.
type ExperimentAPI interface {
	// ListExperiments возвращает страницу экспериментов для роли.
	ListExperiments(ctx context.Context, role string, q models.PageQuery) (*ExperimentList, error)

	// GetExperiment возвращает эксперимент с вопросами; для студента с сохраненными ответами.
	GetExperiment(ctx context.Context, role, experimentID string) (*models.Experiment, error)

	// CreateExperiment создает эксперимент и возвращает его идентификатор.
	CreateExperiment(ctx context.Context, in models.ExperimentInput) (string, error)

	// UpdateExperiment обновляет эксперимент.
	UpdateExperiment(ctx context.Context, experimentID string, in models.ExperimentInput) error

	// DeleteExperiment удаляет эксперимент.
	DeleteExperiment(ctx context.Context, experimentID string) error
}

// AnswerAPI — сохранение и отправка ответов студента.
type AnswerAPI interface {
	// SaveAnswers сохраняет ответы без отправки.
	SaveAnswers(ctx context.Context, experimentID string, answers []models.AnswerInput) error

	// SubmitAnswers отправляет ответы на проверку.
	SubmitAnswers(ctx context.Context, experimentID string, answers []models.AnswerInput) error
}

// FileAPI — файлы эксперимента.
type FileAPI interface {
	ListFiles(ctx context.Context, experimentID string) ([]string, error)
	DownloadFile(ctx context.Context, experimentID, name string) ([]byte, error)
	UploadFile(ctx context.Context, experimentID, name string, r io.Reader) error
	DeleteFile(ctx context.Context, experimentID, name string) error
}

// SubmissionAPI — отправленные работы.
type SubmissionAPI interface {
	// StudentSubmission возвращает работу студента для преподавателя.
	StudentSubmission(ctx context.Context, experimentID, studentID string) (*models.Submission, error)

	// ListSubmissions возвращает историю отправок текущего студента.
	ListSubmissions(ctx context.Context, q models.PageQuery) (*SubmissionList, error)
}

// NotificationAPI — объявления.
type NotificationAPI interface {
	CreateNotification(ctx context.Context, n models.Notification) error
	TeacherNotifications(ctx context.Context, q models.PageQuery) (*NotificationList, error)
	StudentNotifications(ctx context.Context, studentID string, q models.PageQuery) (*NotificationList, error)
}

// GroupAPI — студенты и группы.
type GroupAPI interface {
	ListStudents(ctx context.Context, q models.PageQuery) (*StudentList, error)
	StudentIDs(ctx context.Context) ([]string, error)
	ListGroups(ctx context.Context, q models.PageQuery) (*GroupList, error)
	CreateGroup(ctx context.Context, in GroupInput) error
	UpdateGroup(ctx context.Context, groupID string, in GroupInput) error
	DeleteGroup(ctx context.Context, groupID string) error
}

// Client определяет интерфейс клиента REST API платформы.
type Client interface {
	AuthAPI
	ExperimentAPI
	AnswerAPI
	FileAPI
	SubmissionAPI
	NotificationAPI
	GroupAPI
}

// Значения по умолчанию
const (
	DefaultBaseURL = "http://localhost:3002/api"
	DefaultTimeout = 15 * time.Second

	timeoutDownload = 60 * time.Second
)

// Статусы конверта ответа
const (
	statusSuccess = "success"
	statusError   = "error"
)
