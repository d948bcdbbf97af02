package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/smartfox/smartfox/internal/domain/models"
)

// HTTPClient реализует Client через REST API платформы.
type HTTPClient struct {
	baseURL        string
	tokens         TokenSource
	httpClient     *http.Client
	timeout        time.Duration
	onUnauthorized func()
	log            *slog.Logger
}

// Option настраивает HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient подменяет *http.Client (например, в тестах).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) {
		c.httpClient = hc
	}
}

// WithTimeout задает таймаут одного запроса.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithUnauthorizedHandler задает функцию, которая вызывается на каждый ответ 401.
func WithUnauthorizedHandler(fn func()) Option {
	return func(c *HTTPClient) {
		c.onUnauthorized = fn
	}
}

// WithLogger задает логгер клиента.
func WithLogger(log *slog.Logger) Option {
	return func(c *HTTPClient) {
		c.log = log
	}
}

// NewHTTPClient создаёт нового HTTP клиента API по базовому адресу и источнику токена.
func NewHTTPClient(baseURL string, tokens TokenSource, opts ...Option) *HTTPClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if tokens == nil {
		tokens = TokenFunc(func() string { return "" })
	}

	c := &HTTPClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		tokens:     tokens,
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		log:        slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SetUnauthorizedHandler задает обработчик 401 после создания клиента.
// Нужен, когда обработчик сам зависит от клиента (менеджер сессии).
func (c *HTTPClient) SetUnauthorizedHandler(fn func()) {
	c.onUnauthorized = fn
}

// Login выполняет вход и возвращает токен.
// Сервер кладет токен либо в корень ответа, либо в data.
func (c *HTTPClient) Login(ctx context.Context, name, password string) (string, error) {
	params := Credentials{Name: name, Password: password}

	env, err := c.doRequest(ctx, http.MethodPost, "/auth/login", nil, params)
	if err != nil {
		return "", err
	}

	var result struct {
		Token string `json:"token"`
	}
	if len(env.Data) > 0 {
		if err = json.Unmarshal(env.Data, &result); err != nil {
			return "", fmt.Errorf("failed to decode login response: %w", err)
		}
	}
	if result.Token == "" {
		result.Token = env.Token
	}
	if result.Token == "" {
		return "", &APIError{StatusCode: http.StatusOK, Message: "login response has no token"}
	}

	return result.Token, nil
}

// Register регистрирует пользователя.
func (c *HTTPClient) Register(ctx context.Context, creds Credentials) error {
	_, err := c.doRequest(ctx, http.MethodPost, "/auth/register", nil, creds)
	return err
}

// Profile возвращает профиль текущего пользователя.
func (c *HTTPClient) Profile(ctx context.Context) (*models.Profile, error) {
	env, err := c.doRequest(ctx, http.MethodGet, "/auth/profile", nil, nil)
	if err != nil {
		return nil, err
	}

	var profile models.Profile
	if err = env.decodeData(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}

	return &profile, nil
}

// ListExperiments возвращает страницу экспериментов роли role.
func (c *HTTPClient) ListExperiments(ctx context.Context, role string, q models.PageQuery) (*ExperimentList, error) {
	env, err := c.doRequest(ctx, http.MethodGet, rolePath(role, "/experiments"), pageValues(q), nil)
	if err != nil {
		return nil, err
	}

	list := &ExperimentList{}
	if err = env.decodeData(&list.Experiments); err != nil {
		return nil, fmt.Errorf("failed to decode experiments: %w", err)
	}
	list.Pagination = env.pagination()

	return list, nil
}

// GetExperiment возвращает эксперимент experimentID.
func (c *HTTPClient) GetExperiment(ctx context.Context, role, experimentID string) (*models.Experiment, error) {
	path := rolePath(role, "/experiments/"+url.PathEscape(experimentID))

	env, err := c.doRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	var experiment models.Experiment
	if err = env.decodeData(&experiment); err != nil {
		return nil, fmt.Errorf("failed to decode experiment %s: %w", experimentID, err)
	}
	if experiment.ExperimentID == "" {
		experiment.ExperimentID = experimentID
	}

	return &experiment, nil
}

// CreateExperiment создает эксперимент и возвращает его идентификатор.
func (c *HTTPClient) CreateExperiment(ctx context.Context, in models.ExperimentInput) (string, error) {
	env, err := c.doRequest(ctx, http.MethodPost, "/teacher/experiments", nil, in)
	if err != nil {
		return "", err
	}

	var result struct {
		ExperimentID string `json:"experiment_id"`
	}
	if err = env.decodeData(&result); err != nil {
		return "", fmt.Errorf("failed to decode created experiment: %w", err)
	}
	if result.ExperimentID == "" {
		return "", &APIError{StatusCode: http.StatusOK, Message: "create response has no experiment_id"}
	}

	return result.ExperimentID, nil
}

// UpdateExperiment обновляет эксперимент experimentID.
func (c *HTTPClient) UpdateExperiment(ctx context.Context, experimentID string, in models.ExperimentInput) error {
	_, err := c.doRequest(ctx, http.MethodPut, "/teacher/experiments/"+url.PathEscape(experimentID), nil, in)
	return err
}

// DeleteExperiment удаляет эксперимент experimentID.
func (c *HTTPClient) DeleteExperiment(ctx context.Context, experimentID string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "/teacher/experiments/"+url.PathEscape(experimentID), nil, nil)
	return err
}

// SaveAnswers сохраняет ответы студента.
func (c *HTTPClient) SaveAnswers(ctx context.Context, experimentID string, answers []models.AnswerInput) error {
	path := "/student/experiments/" + url.PathEscape(experimentID) + "/save"
	_, err := c.doRequest(ctx, http.MethodPost, path, nil, answersBody(answers))
	return err
}

// SubmitAnswers отправляет ответы студента на проверку.
func (c *HTTPClient) SubmitAnswers(ctx context.Context, experimentID string, answers []models.AnswerInput) error {
	path := "/student/experiments/" + url.PathEscape(experimentID) + "/submit"
	_, err := c.doRequest(ctx, http.MethodPost, path, nil, answersBody(answers))
	return err
}

// ListFiles возвращает имена файлов эксперимента.
func (c *HTTPClient) ListFiles(ctx context.Context, experimentID string) ([]string, error) {
	env, err := c.doRequest(ctx, http.MethodGet, "/experiments/"+url.PathEscape(experimentID)+"/files", nil, nil)
	if err != nil {
		return nil, err
	}

	files := env.Files
	if files == nil {
		files = []string{}
	}

	return files, nil
}

// DownloadFile скачивает файл name эксперимента experimentID.
// Возвращает содержимое файла в случае успеха.
func (c *HTTPClient) DownloadFile(ctx context.Context, experimentID, name string) ([]byte, error) {
	path := "/experiments/" + url.PathEscape(experimentID) + "/files/" + url.PathEscape(name) + "/download"

	ctx, cancelFunc := context.WithTimeout(ctx, timeoutDownload)
	defer cancelFunc()

	request, err := c.newRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(request)
	if err != nil {
		return nil, &TransportError{Method: http.MethodGet, Path: path, Err: err}
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: http.MethodGet, Path: path, Err: fmt.Errorf("failed to read response body in DownloadFile: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp.StatusCode, data)
	}

	return data, nil
}

// UploadFile загружает файл с именем name и содержимым из r.
func (c *HTTPClient) UploadFile(ctx context.Context, experimentID, name string, r io.Reader) error {
	var buf bytes.Buffer

	writer := multipart.NewWriter(&buf)

	formFile, err := writer.CreateFormFile("file", name)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err = io.Copy(formFile, r); err != nil {
		return fmt.Errorf("failed to write data to multipart form: %w", err)
	}

	if err = writer.Close(); err != nil {
		return fmt.Errorf("failed to close multipart form: %w", err)
	}

	path := "/teacher/experiments/" + url.PathEscape(experimentID) + "/uploadFile"

	ctx, cancelFunc := context.WithTimeout(ctx, timeoutDownload)
	defer cancelFunc()

	request, err := c.newRequest(ctx, http.MethodPost, path, nil, &buf)
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", writer.FormDataContentType())

	_, err = c.do(request, path)

	return err
}

// DeleteFile удаляет файл name эксперимента experimentID.
func (c *HTTPClient) DeleteFile(ctx context.Context, experimentID, name string) error {
	path := "/teacher/experiments/" + url.PathEscape(experimentID) + "/files/" + url.PathEscape(name)
	_, err := c.doRequest(ctx, http.MethodDelete, path, nil, nil)
	return err
}

// StudentSubmission возвращает работу студента studentID по эксперименту experimentID.
func (c *HTTPClient) StudentSubmission(ctx context.Context, experimentID, studentID string) (*models.Submission, error) {
	path := "/teacher/experiments/" + url.PathEscape(experimentID) + "/" + url.PathEscape(studentID) + "/submissions"

	env, err := c.doRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	var submission models.Submission
	if err = env.decodeData(&submission); err != nil {
		return nil, fmt.Errorf("failed to decode submission: %w", err)
	}

	return &submission, nil
}

// ListSubmissions возвращает историю отправок текущего студента.
func (c *HTTPClient) ListSubmissions(ctx context.Context, q models.PageQuery) (*SubmissionList, error) {
	env, err := c.doRequest(ctx, http.MethodGet, "/student/submissions", pageValues(q), nil)
	if err != nil {
		return nil, err
	}

	list := &SubmissionList{}
	if err = env.decodeData(&list.Submissions); err != nil {
		return nil, fmt.Errorf("failed to decode submissions: %w", err)
	}
	list.Pagination = env.pagination()

	return list, nil
}

// CreateNotification публикует объявление.
func (c *HTTPClient) CreateNotification(ctx context.Context, n models.Notification) error {
	params := map[string]interface{}{
		"title":         n.Title,
		"content":       n.Content,
		"experiment_id": n.ExperimentID,
		"is_important":  n.IsImportant,
		"users":         n.Users,
	}

	_, err := c.doRequest(ctx, http.MethodPost, "/teacher/experiments/notifications", nil, params)
	return err
}

// TeacherNotifications возвращает объявления преподавателя.
func (c *HTTPClient) TeacherNotifications(ctx context.Context, q models.PageQuery) (*NotificationList, error) {
	return c.notifications(ctx, "/teacher/experiments/notifications", q)
}

// StudentNotifications возвращает объявления для студента studentID.
func (c *HTTPClient) StudentNotifications(ctx context.Context, studentID string, q models.PageQuery) (*NotificationList, error) {
	return c.notifications(ctx, "/student/experiments/notifications/"+url.PathEscape(studentID), q)
}

func (c *HTTPClient) notifications(ctx context.Context, path string, q models.PageQuery) (*NotificationList, error) {
	env, err := c.doRequest(ctx, http.MethodGet, path, pageValues(q), nil)
	if err != nil {
		return nil, err
	}

	list := &NotificationList{}
	if err = env.decodeData(&list.Notifications); err != nil {
		return nil, fmt.Errorf("failed to decode notifications: %w", err)
	}
	list.Pagination = env.pagination()

	return list, nil
}

// ListStudents возвращает страницу студентов, опционально отфильтрованную по группе.
func (c *HTTPClient) ListStudents(ctx context.Context, q models.PageQuery) (*StudentList, error) {
	env, err := c.doRequest(ctx, http.MethodGet, "/teacher/students", pageValues(q), nil)
	if err != nil {
		return nil, err
	}

	list := &StudentList{}
	if err = env.decodeData(&list.Students); err != nil {
		return nil, fmt.Errorf("failed to decode students: %w", err)
	}
	list.Pagination = env.pagination()

	return list, nil
}

// StudentIDs возвращает идентификаторы всех студентов.
func (c *HTTPClient) StudentIDs(ctx context.Context) ([]string, error) {
	env, err := c.doRequest(ctx, http.MethodGet, "/student_list", nil, nil)
	if err != nil {
		return nil, err
	}

	return models.Strings(env.StudentIDs), nil
}

// ListGroups возвращает страницу групп.
func (c *HTTPClient) ListGroups(ctx context.Context, q models.PageQuery) (*GroupList, error) {
	env, err := c.doRequest(ctx, http.MethodGet, "/teacher/groups", pageValues(q), nil)
	if err != nil {
		return nil, err
	}

	list := &GroupList{}
	if err = env.decodeData(&list.Groups); err != nil {
		return nil, fmt.Errorf("failed to decode groups: %w", err)
	}
	list.Pagination = env.pagination()

	return list, nil
}

// CreateGroup создает группу.
func (c *HTTPClient) CreateGroup(ctx context.Context, in GroupInput) error {
	_, err := c.doRequest(ctx, http.MethodPost, "/teacher/groups", nil, in)
	return err
}

// UpdateGroup обновляет группу groupID.
func (c *HTTPClient) UpdateGroup(ctx context.Context, groupID string, in GroupInput) error {
	_, err := c.doRequest(ctx, http.MethodPut, "/teacher/groups/"+url.PathEscape(groupID), nil, in)
	return err
}

// DeleteGroup удаляет группу groupID.
func (c *HTTPClient) DeleteGroup(ctx context.Context, groupID string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "/teacher/groups/"+url.PathEscape(groupID), nil, nil)
	return err
}

// envelope — общий конверт ответа сервера.
type envelope struct {
	Status     string             `json:"status"`
	Code       int                `json:"code"`
	Message    string             `json:"message"`
	Error      string             `json:"error"`
	Data       json.RawMessage    `json:"data"`
	Pagination *models.Pagination `json:"pagination"`
	Token      string             `json:"token"`
	Files      []string           `json:"files"`
	StudentIDs []models.ID        `json:"student_ids"`

	raw []byte
}

// decodeData раскодирует data, а если его нет, то весь ответ.
func (e *envelope) decodeData(v interface{}) error {
	if len(e.Data) > 0 && string(e.Data) != "null" {
		return json.Unmarshal(e.Data, v)
	}
	if len(e.raw) == 0 {
		return nil
	}
	return json.Unmarshal(e.raw, v)
}

func (e *envelope) pagination() models.Pagination {
	if e.Pagination == nil {
		return models.Pagination{}
	}
	return *e.Pagination
}

func (e *envelope) message() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// doRequest выполняет JSON-запрос к API.
// Возвращает конверт ответа в случае успеха.
func (c *HTTPClient) doRequest(
	ctx context.Context,
	method, path string,
	query url.Values,
	params interface{},
) (*envelope, error) {
	var body io.Reader
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	ctx, cancelFunc := context.WithTimeout(ctx, c.timeout)
	defer cancelFunc()

	request, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	return c.do(request, path)
}

func (c *HTTPClient) newRequest(
	ctx context.Context,
	method, path string,
	query url.Values,
	body io.Reader,
) (*http.Request, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	request, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}

	if token := c.tokens.Token(); token != "" {
		request.Header.Set("Authorization", token)
	}

	return request, nil
}

func (c *HTTPClient) do(request *http.Request, path string) (*envelope, error) {
	resp, err := c.httpClient.Do(request)
	if err != nil {
		return nil, &TransportError{Method: request.Method, Path: path, Err: err}
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: request.Method, Path: path, Err: err}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		c.log.Debug("api request failed", "method", request.Method, "path", path, "status", resp.StatusCode)
		return nil, c.statusError(resp.StatusCode, data)
	}

	env := &envelope{raw: data}
	if len(bytes.TrimSpace(data)) == 0 {
		return env, nil
	}

	if err = json.Unmarshal(data, env); err != nil {
		return nil, fmt.Errorf("failed to decode response of %s %s: %w", request.Method, path, err)
	}

	if env.Status == statusError {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: env.message()}
	}

	// Сервер входа отвечает {code, message, data}; код, отличный от 200, означает ошибку.
	if env.Code != 0 && env.Code != http.StatusOK && env.Status != statusSuccess {
		return nil, &APIError{StatusCode: env.Code, Message: env.message()}
	}

	return env, nil
}

// statusError собирает APIError из тела ответа и вызывает обработчик 401.
func (c *HTTPClient) statusError(statusCode int, data []byte) error {
	apiErr := &APIError{StatusCode: statusCode}

	var env envelope
	if err := json.Unmarshal(data, &env); err == nil {
		apiErr.Message = env.message()
	}

	if statusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
		c.onUnauthorized()
	}

	return apiErr
}

func rolePath(role, suffix string) string {
	if role == models.RoleTeacher {
		return "/teacher" + suffix
	}
	return "/student" + suffix
}

func pageValues(q models.PageQuery) url.Values {
	values := url.Values{}
	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Status != "" {
		values.Set("status", q.Status)
	}
	if q.GroupID != "" {
		values.Set("group_id", q.GroupID)
	}
	return values
}

func answersBody(answers []models.AnswerInput) map[string]interface{} {
	if answers == nil {
		answers = []models.AnswerInput{}
	}
	return map[string]interface{}{
		"answers": answers,
	}
}
