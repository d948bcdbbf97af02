package mockapi

import (
	"fmt"
	"net/http"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smartfox/smartfox/internal/domain/models"
)

// Store хранит все данные мок-сервера в памяти.
type Store struct {
	mu sync.RWMutex

	users       map[int]*user
	usersByName map[string]*user
	experiments map[string]*experiment
	attempts    map[string]map[int]*attempt // ключ - experimentID, затем studentID
	files       map[string]map[string][]byte
	groups      map[int]*group
	notices     []models.Notification

	nextUser       int
	nextExperiment int
	nextQuestion   int
	nextGroup      int

	now func() time.Time
}

// NewStore создает пустое хранилище.
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		users:          make(map[int]*user),
		usersByName:    make(map[string]*user),
		experiments:    make(map[string]*experiment),
		attempts:       make(map[string]map[int]*attempt),
		files:          make(map[string]map[string][]byte),
		groups:         make(map[int]*group),
		nextUser:       1,
		nextExperiment: 1,
		nextQuestion:   1,
		nextGroup:      1,
		now:            now,
	}
}

// Register создает пользователя.
func (s *Store) Register(name, password, role string) (*user, error) {
	name = strings.TrimSpace(name)
	if name == "" || password == "" {
		return nil, errorf(http.StatusBadRequest, "name and password are required")
	}
	if role != models.RoleTeacher && role != models.RoleStudent {
		return nil, errorf(http.StatusBadRequest, "unknown role %q", role)
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.usersByName[name]; ok {
		return nil, errorf(http.StatusConflict, "user %s already exists", name)
	}

	u := &user{ID: s.nextUser, Name: name, Role: role, Hash: hash}
	s.nextUser++
	s.users[u.ID] = u
	s.usersByName[name] = u

	return u, nil
}

// Authenticate проверяет имя и пароль.
func (s *Store) Authenticate(name, password string) (*user, error) {
	s.mu.RLock()
	u, ok := s.usersByName[name]
	s.mu.RUnlock()

	if !ok || !checkPassword(u.Hash, password) {
		return nil, errorf(http.StatusBadRequest, "invalid name or password")
	}
	return u, nil
}

// Profile возвращает профиль пользователя.
func (s *Store) Profile(userID int) (models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return models.Profile{}, errorf(http.StatusUnauthorized, "user not found")
	}
	return models.Profile{Username: u.Name, Role: u.Role, UserID: models.ID(strconv.Itoa(u.ID))}, nil
}

// ListExperiments возвращает эксперименты пользователя: свои для преподавателя,
// назначенные для студента. status фильтрует по active/expired.
func (s *Store) ListExperiments(c *Claims, status string, p Page) ([]models.Experiment, models.Pagination) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	userID := strconv.Itoa(c.UserID())

	var list []models.Experiment
	for _, e := range s.sortedExperiments() {
		if c.Role == models.RoleTeacher && e.OwnerID != c.UserID() {
			continue
		}
		if c.Role == models.RoleStudent && !slices.Contains(e.StudentIDs, userID) {
			continue
		}

		item := models.Experiment{
			ExperimentID: e.ExperimentID,
			Title:        e.Title,
			Description:  e.Description,
			Deadline:     e.Deadline,
			Permission:   e.Permission,
			Status:       listStatus(e, now),
		}
		if status != "" && item.Status != status {
			continue
		}
		if c.Role == models.RoleStudent {
			item.SubmissionStatus = s.attemptStatus(e.ExperimentID, c.UserID())
		} else {
			item.StudentIDs = slices.Clone(e.StudentIDs)
		}
		list = append(list, item)
	}

	return paginate(list, p)
}

// Experiment возвращает эксперимент. Студент получает его без правильных ответов,
// но со своими сохраненными ответами и оценкой.
func (s *Store) Experiment(c *Claims, experimentID string) (models.Experiment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := s.visible(c, experimentID)
	if err != nil {
		return models.Experiment{}, err
	}

	out := e.Experiment
	out.Status = listStatus(e, s.now())
	out.Questions = slices.Clone(e.Questions)
	out.StudentIDs = slices.Clone(e.StudentIDs)
	out.Attachments = s.attachments(experimentID)

	if c.Role == models.RoleTeacher {
		return out, nil
	}

	out.StudentIDs = nil
	a := s.attempts[experimentID][c.UserID()]
	out.SubmissionStatus = models.StatusNotStarted

	var results map[string]models.QuestionResult
	if a != nil {
		out.SubmissionStatus = a.Status
		if a.Submission != nil {
			results = make(map[string]models.QuestionResult, len(a.Submission.Results))
			for _, r := range a.Submission.Results {
				results[r.QuestionID] = r
			}
			out.TotalScore = models.ScoreText(fmt.Sprintf("%d/%d", a.Submission.TotalScore, totalScore(e)))
		}
	}

	for i := range out.Questions {
		q := &out.Questions[i]
		q.CorrectAnswer = ""
		q.TestCases = nil

		if a == nil {
			continue
		}
		if ans, ok := a.Answers[q.QuestionID]; ok {
			q.StudentAnswer = ans.Answer
			q.StudentCode = ans.Code
			q.StudentLanguage = ans.Language
		}
		if r, ok := results[q.QuestionID]; ok && a.Status.Finalized() {
			q.Feedback = r.Feedback
		}
	}

	return out, nil
}

// CreateExperiment создает эксперимент преподавателя c.
func (s *Store) CreateExperiment(c *Claims, in models.ExperimentInput) (string, error) {
	if err := validateInput(in); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := fmt.Sprintf("exp%d", s.nextExperiment)
	s.nextExperiment++

	e := &experiment{
		Experiment: models.Experiment{
			ExperimentID: id,
			Title:        in.Title,
			Description:  in.Description,
			Deadline:     in.Deadline,
			Permission:   in.Permission,
			StudentIDs:   slices.Clone(in.StudentIDs),
		},
		OwnerID:   c.UserID(),
		CreatedAt: s.now(),
	}
	for _, qi := range in.Questions {
		e.Questions = append(e.Questions, s.newQuestion(qi))
	}

	s.experiments[id] = e

	return id, nil
}

// UpdateExperiment обновляет эксперимент: вопросы с question_id меняются,
// без него добавляются, из remove_questions удаляются.
func (s *Store) UpdateExperiment(c *Claims, experimentID string, in models.ExperimentInput) error {
	if err := validateInput(in); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.owned(c, experimentID)
	if err != nil {
		return err
	}

	e.Title = in.Title
	e.Description = in.Description
	e.Deadline = in.Deadline
	e.Permission = in.Permission
	e.StudentIDs = slices.Clone(in.StudentIDs)

	questions := make([]models.Question, 0, len(in.Questions))
	for _, qi := range in.Questions {
		if slices.Contains(in.RemoveQuestions, qi.QuestionID) {
			continue
		}
		if qi.QuestionID == "" {
			questions = append(questions, s.newQuestion(qi))
			continue
		}
		if _, ok := e.Question(qi.QuestionID); !ok {
			return errorf(http.StatusBadRequest, "question %s does not belong to experiment", qi.QuestionID)
		}
		questions = append(questions, questionFromInput(qi.QuestionID, qi))
	}
	e.Questions = questions

	return nil
}

// DeleteExperiment удаляет эксперимент со всеми ответами и файлами.
func (s *Store) DeleteExperiment(c *Claims, experimentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.owned(c, experimentID); err != nil {
		return err
	}

	delete(s.experiments, experimentID)
	delete(s.attempts, experimentID)
	delete(s.files, experimentID)

	return nil
}

// SaveAnswers сохраняет ответы студента без отправки.
func (s *Store) SaveAnswers(c *Claims, experimentID string, answers []models.AnswerInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, a, err := s.openAttempt(c, experimentID, answers)
	if err != nil {
		return err
	}

	a.Status = models.StatusInProgress
	return nil
}

// SubmitAnswers отправляет ответы на проверку. Вопросы с выбором и пропуском
// проверяются сразу, вопросы с кодом ждут проверки преподавателем.
func (s *Store) SubmitAnswers(c *Claims, experimentID string, answers []models.AnswerInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.visible(c, experimentID)
	if err != nil {
		return err
	}
	if !e.AllowsLateSubmit() && s.now().After(e.Deadline) {
		return errorf(http.StatusBadRequest, "deadline has passed")
	}

	e, a, err := s.openAttempt(c, experimentID, answers)
	if err != nil {
		return err
	}

	sub := &models.Submission{
		SubmissionID: uuid.NewString(),
		ExperimentID: experimentID,
		Title:        e.Title,
		StudentID:    strconv.Itoa(c.UserID()),
		StudentName:  c.Name,
		Status:       models.StatusGraded,
		SubmittedAt:  s.now(),
	}

	for _, q := range e.Questions {
		ans := a.Answers[q.QuestionID]
		r := models.QuestionResult{QuestionID: q.QuestionID, Type: q.Type, Content: q.Content}

		switch q.Type {
		case models.QuestionCode:
			r.Answer = ans.Code
			r.Feedback = "waiting for review"
			sub.Status = models.StatusSubmitted
		default:
			r.Answer = ans.Answer
			if strings.TrimSpace(ans.Answer) == strings.TrimSpace(q.CorrectAnswer) && q.CorrectAnswer != "" {
				r.Score = q.Score
				r.Feedback = "correct"
			} else {
				r.Feedback = "incorrect"
			}
		}
		sub.TotalScore += r.Score
		sub.Results = append(sub.Results, r)
	}

	a.Status = sub.Status
	a.Submission = sub

	return nil
}

// StudentSubmission возвращает работу студента для владельца эксперимента.
func (s *Store) StudentSubmission(c *Claims, experimentID, studentID string) (models.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.owned(c, experimentID); err != nil {
		return models.Submission{}, err
	}

	id, err := strconv.Atoi(studentID)
	if err != nil {
		return models.Submission{}, errorf(http.StatusBadRequest, "invalid student id %q", studentID)
	}

	a := s.attempts[experimentID][id]
	if a == nil || a.Submission == nil {
		return models.Submission{}, errorf(http.StatusNotFound, "submission not found")
	}
	return *a.Submission, nil
}

// Submissions возвращает историю отправок студента, новые первыми.
func (s *Store) Submissions(c *Claims, p Page) ([]models.Submission, models.Pagination) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var list []models.Submission
	for _, byStudent := range s.attempts {
		if a := byStudent[c.UserID()]; a != nil && a.Submission != nil {
			list = append(list, *a.Submission)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].SubmittedAt.After(list[j].SubmittedAt)
	})

	return paginate(list, p)
}

// Files возвращает имена файлов эксперимента.
func (s *Store) Files(experimentID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.experiments[experimentID]; !ok {
		return nil, errorf(http.StatusNotFound, "experiment not found")
	}
	return s.fileNames(experimentID), nil
}

// File возвращает содержимое файла.
func (s *Store) File(experimentID, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.files[experimentID][name]
	if !ok {
		return nil, errorf(http.StatusNotFound, "file not found")
	}
	return data, nil
}

// PutFile сохраняет файл эксперимента преподавателя c.
func (s *Store) PutFile(c *Claims, experimentID, name string, data []byte) error {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return errorf(http.StatusBadRequest, "invalid file name")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.owned(c, experimentID); err != nil {
		return err
	}
	if s.files[experimentID] == nil {
		s.files[experimentID] = make(map[string][]byte)
	}
	s.files[experimentID][name] = data

	return nil
}

// DeleteFile удаляет файл.
func (s *Store) DeleteFile(c *Claims, experimentID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.owned(c, experimentID); err != nil {
		return err
	}
	if _, ok := s.files[experimentID][name]; !ok {
		return errorf(http.StatusNotFound, "file not found")
	}
	delete(s.files[experimentID], name)

	return nil
}

// CreateNotification сохраняет объявление.
func (s *Store) CreateNotification(n models.Notification) (models.Notification, error) {
	if strings.TrimSpace(n.Title) == "" || strings.TrimSpace(n.Content) == "" {
		return models.Notification{}, errorf(http.StatusBadRequest, "title and content are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n.NotificationID = uuid.NewString()
	n.CreatedAt = s.now()
	s.notices = append(s.notices, n)

	return n, nil
}

// Notifications возвращает объявления, новые первыми. Для студента studentID
// берутся объявления без адресатов и те, где он указан.
func (s *Store) Notifications(studentID string, p Page) ([]models.Notification, models.Pagination) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var list []models.Notification
	for i := len(s.notices) - 1; i >= 0; i-- {
		n := s.notices[i]
		if studentID != "" && len(n.Users) > 0 && !slices.Contains(n.Users, studentID) {
			continue
		}
		list = append(list, n)
	}

	return paginate(list, p)
}

// Students возвращает студентов, опционально только из группы groupID.
func (s *Store) Students(groupID string, p Page) ([]models.Student, models.Pagination, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filter := 0
	if groupID != "" {
		id, err := strconv.Atoi(groupID)
		if err != nil {
			return nil, models.Pagination{}, errorf(http.StatusBadRequest, "invalid group id %q", groupID)
		}
		filter = id
	}

	var list []models.Student
	for _, u := range s.sortedUsers(models.RoleStudent) {
		groupIDs := s.groupsOf(u.ID)
		if filter != 0 && !slices.Contains(groupIDs, filter) {
			continue
		}

		st := models.Student{UserID: models.ID(strconv.Itoa(u.ID)), Username: u.Name}
		for _, id := range groupIDs {
			st.GroupIDs = append(st.GroupIDs, models.ID(strconv.Itoa(id)))
		}
		list = append(list, st)
	}

	items, meta := paginate(list, p)
	return items, meta, nil
}

// StudentIDs возвращает идентификаторы всех студентов.
func (s *Store) StudentIDs() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []int
	for _, u := range s.sortedUsers(models.RoleStudent) {
		ids = append(ids, u.ID)
	}
	return ids
}

// Groups возвращает группы.
func (s *Store) Groups(p Page) ([]models.StudentGroup, models.Pagination) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int, 0, len(s.groups))
	for id := range s.groups {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	list := make([]models.StudentGroup, 0, len(ids))
	for _, id := range ids {
		list = append(list, groupView(s.groups[id]))
	}

	return paginate(list, p)
}

// SaveGroup создает группу (groupID пустой) или обновляет существующую.
func (s *Store) SaveGroup(groupID, name string, studentIDs []string) (models.StudentGroup, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.StudentGroup{}, errorf(http.StatusBadRequest, "group_name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	members := make([]int, 0, len(studentIDs))
	for _, raw := range studentIDs {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return models.StudentGroup{}, errorf(http.StatusBadRequest, "invalid student id %q", raw)
		}
		u, ok := s.users[id]
		if !ok || u.Role != models.RoleStudent {
			return models.StudentGroup{}, errorf(http.StatusBadRequest, "student %d not found", id)
		}
		if !slices.Contains(members, id) {
			members = append(members, id)
		}
	}

	var g *group
	if groupID == "" {
		g = &group{ID: s.nextGroup}
		s.nextGroup++
		s.groups[g.ID] = g
	} else {
		id, err := strconv.Atoi(groupID)
		if err != nil || s.groups[id] == nil {
			return models.StudentGroup{}, errorf(http.StatusNotFound, "group not found")
		}
		g = s.groups[id]
	}
	g.Name = name
	g.StudentIDs = members

	return groupView(g), nil
}

// DeleteGroup удаляет группу.
func (s *Store) DeleteGroup(groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := strconv.Atoi(groupID)
	if err != nil || s.groups[id] == nil {
		return errorf(http.StatusNotFound, "group not found")
	}
	delete(s.groups, id)

	return nil
}

// openAttempt проверяет, что студент может менять ответы, и применяет answers.
func (s *Store) openAttempt(c *Claims, experimentID string, answers []models.AnswerInput) (*experiment, *attempt, error) {
	e, err := s.visible(c, experimentID)
	if err != nil {
		return nil, nil, err
	}

	byStudent := s.attempts[experimentID]
	if byStudent == nil {
		byStudent = make(map[int]*attempt)
		s.attempts[experimentID] = byStudent
	}
	a := byStudent[c.UserID()]
	if a == nil {
		a = &attempt{Answers: make(map[string]models.AnswerInput), Status: models.StatusNotStarted}
		byStudent[c.UserID()] = a
	}
	if a.Status.Finalized() {
		return nil, nil, errorf(http.StatusBadRequest, "experiment is already submitted")
	}

	for _, ans := range answers {
		q, ok := e.Question(ans.QuestionID)
		if !ok {
			return nil, nil, errorf(http.StatusBadRequest, "unknown question %s", ans.QuestionID)
		}
		if ans.Type != q.Type {
			return nil, nil, errorf(http.StatusBadRequest, "question %s has type %s", ans.QuestionID, q.Type)
		}
		if q.Type == models.QuestionCode && !slices.Contains(models.Languages, ans.Language) {
			return nil, nil, errorf(http.StatusBadRequest, "unsupported language %q", ans.Language)
		}
		a.Answers[ans.QuestionID] = ans
	}

	return e, a, nil
}

// visible возвращает эксперимент, который может видеть пользователь c.
func (s *Store) visible(c *Claims, experimentID string) (*experiment, error) {
	e, ok := s.experiments[experimentID]
	if !ok {
		return nil, errorf(http.StatusNotFound, "experiment not found")
	}
	switch c.Role {
	case models.RoleTeacher:
		if e.OwnerID != c.UserID() {
			return nil, errorf(http.StatusForbidden, "experiment belongs to another teacher")
		}
	case models.RoleStudent:
		if !slices.Contains(e.StudentIDs, strconv.Itoa(c.UserID())) {
			return nil, errorf(http.StatusForbidden, "experiment is not assigned to you")
		}
	}
	return e, nil
}

func (s *Store) owned(c *Claims, experimentID string) (*experiment, error) {
	if c.Role != models.RoleTeacher {
		return nil, errorf(http.StatusForbidden, "forbidden")
	}
	return s.visible(c, experimentID)
}

func (s *Store) newQuestion(in models.QuestionInput) models.Question {
	id := "q" + strconv.Itoa(s.nextQuestion)
	s.nextQuestion++
	return questionFromInput(id, in)
}

func (s *Store) attemptStatus(experimentID string, studentID int) models.SubmissionStatus {
	if a := s.attempts[experimentID][studentID]; a != nil {
		return a.Status
	}
	return models.StatusNotStarted
}

func (s *Store) attachments(experimentID string) []models.FileInfo {
	names := s.fileNames(experimentID)
	if len(names) == 0 {
		return nil
	}
	out := make([]models.FileInfo, 0, len(names))
	for i, name := range names {
		out = append(out, models.FileInfo{ID: i + 1, Name: name})
	}
	return out
}

func (s *Store) fileNames(experimentID string) []string {
	names := make([]string, 0, len(s.files[experimentID]))
	for name := range s.files[experimentID] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Store) sortedExperiments() []*experiment {
	list := make([]*experiment, 0, len(s.experiments))
	for _, e := range s.experiments {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt) ||
			list[i].CreatedAt.Equal(list[j].CreatedAt) && list[i].ExperimentID > list[j].ExperimentID
	})
	return list
}

func (s *Store) sortedUsers(role string) []*user {
	var list []*user
	for _, u := range s.users {
		if u.Role == role {
			list = append(list, u)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

func (s *Store) groupsOf(userID int) []int {
	var ids []int
	for id, g := range s.groups {
		if slices.Contains(g.StudentIDs, userID) {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

func groupView(g *group) models.StudentGroup {
	ids := make([]models.ID, 0, len(g.StudentIDs))
	for _, id := range g.StudentIDs {
		ids = append(ids, models.ID(strconv.Itoa(id)))
	}
	return models.StudentGroup{
		GroupID:      models.ID(strconv.Itoa(g.ID)),
		GroupName:    g.Name,
		StudentIDs:   ids,
		StudentCount: len(ids),
	}
}

func questionFromInput(id string, in models.QuestionInput) models.Question {
	return models.Question{
		QuestionID:    id,
		Type:          in.Type,
		Content:       in.Content,
		Score:         in.Score,
		Explanation:   in.Explanation,
		ImageURL:      in.ImageURL,
		Options:       slices.Clone(in.Options),
		CorrectAnswer: in.CorrectAnswer,
		TestCases:     slices.Clone(in.TestCases),
	}
}

func validateInput(in models.ExperimentInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return errorf(http.StatusBadRequest, "title is required")
	}
	if in.Deadline.IsZero() {
		return errorf(http.StatusBadRequest, "deadline is required")
	}
	if len(in.Questions) == 0 {
		return errorf(http.StatusBadRequest, "at least one question is required")
	}
	for i, q := range in.Questions {
		if !q.Type.Valid() {
			return errorf(http.StatusBadRequest, "unknown type of question %d", i+1)
		}
		if strings.TrimSpace(q.Content) == "" {
			return errorf(http.StatusBadRequest, "missing content of question %d", i+1)
		}
	}
	return nil
}

func totalScore(e *experiment) int {
	total := 0
	for _, q := range e.Questions {
		total += q.Score
	}
	return total
}

func listStatus(e *experiment, now time.Time) string {
	if !e.Deadline.IsZero() && now.After(e.Deadline) {
		return "expired"
	}
	return "active"
}
