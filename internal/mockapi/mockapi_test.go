package mockapi_test

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartfox/smartfox/internal/client"
	"github.com/smartfox/smartfox/internal/domain/models"
	"github.com/smartfox/smartfox/internal/mockapi"
)

type env struct {
	url     string
	teacher *client.HTTPClient
	student *client.HTTPClient
	profile *models.Profile
}

func newEnv(t *testing.T) *env {
	t.Helper()

	store := mockapi.NewStore(nil)
	require.NoError(t, mockapi.Seed(store))

	srv := httptest.NewServer(mockapi.NewServer(store, mockapi.NewAuthService("test-secret"), nil).Handler())
	t.Cleanup(srv.Close)

	e := &env{url: srv.URL + "/api"}
	e.teacher, _ = e.login(t, mockapi.SeedTeacher, mockapi.SeedTeacherPassword)
	e.student, e.profile = e.login(t, mockapi.SeedStudent, mockapi.SeedStudentPassword)

	return e
}

func (e *env) login(t *testing.T, name, password string) (*client.HTTPClient, *models.Profile) {
	t.Helper()

	var token string
	c := client.NewHTTPClient(e.url, client.TokenFunc(func() string { return token }))

	var err error
	token, err = c.Login(context.Background(), name, password)
	require.NoError(t, err)

	profile, err := c.Profile(context.Background())
	require.NoError(t, err)
	require.Equal(t, name, profile.Username)

	return c, profile
}

func (e *env) firstExperiment(t *testing.T, c *client.HTTPClient, role string) string {
	t.Helper()

	list, err := c.ListExperiments(context.Background(), role, models.PageQuery{})
	require.NoError(t, err)
	require.NotEmpty(t, list.Experiments)

	return list.Experiments[0].ExperimentID
}

func TestLoginRejectsWrongPasswordWithoutLogout(t *testing.T) {
	e := newEnv(t)

	called := false
	c := client.NewHTTPClient(e.url, nil, client.WithUnauthorizedHandler(func() { called = true }))

	_, err := c.Login(context.Background(), mockapi.SeedStudent, "wrong")
	require.Error(t, err)
	assert.Equal(t, client.KindValidation, client.KindOf(err))
	assert.False(t, called)
}

func TestUnauthorizedCallsHandler(t *testing.T) {
	e := newEnv(t)

	calls := 0
	c := client.NewHTTPClient(e.url, client.TokenFunc(func() string { return "garbage" }),
		client.WithUnauthorizedHandler(func() { calls++ }))

	_, err := c.Profile(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, client.ErrUnauthorized))
	assert.Equal(t, 1, calls)
}

func TestStudentCannotUseTeacherRoutes(t *testing.T) {
	e := newEnv(t)

	_, err := e.student.ListGroups(context.Background(), models.PageQuery{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, client.ErrForbidden))
}

func TestStudentViewHidesCorrectAnswers(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	id := e.firstExperiment(t, e.student, models.RoleStudent)

	exp, err := e.student.GetExperiment(ctx, models.RoleStudent, id)
	require.NoError(t, err)
	require.Len(t, exp.Questions, 3)
	assert.Equal(t, models.StatusNotStarted, exp.SubmissionStatus)
	for _, q := range exp.Questions {
		assert.Empty(t, q.CorrectAnswer)
		assert.Empty(t, q.TestCases)
	}

	full, err := e.teacher.GetExperiment(ctx, models.RoleTeacher, id)
	require.NoError(t, err)
	assert.Equal(t, "4", full.Questions[0].CorrectAnswer)
}

func TestSaveThenSubmitGradesAnswers(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	id := e.firstExperiment(t, e.student, models.RoleStudent)

	exp, err := e.student.GetExperiment(ctx, models.RoleStudent, id)
	require.NoError(t, err)

	answers := []models.AnswerInput{
		{QuestionID: exp.Questions[0].QuestionID, Type: models.QuestionChoice, Answer: "4"},
		{QuestionID: exp.Questions[1].QuestionID, Type: models.QuestionBlank, Answer: " Paris "},
		{QuestionID: exp.Questions[2].QuestionID, Type: models.QuestionCode, Code: "print(3)", Language: models.LanguagePython},
	}

	require.NoError(t, e.student.SaveAnswers(ctx, id, answers[:1]))

	saved, err := e.student.GetExperiment(ctx, models.RoleStudent, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, saved.SubmissionStatus)
	assert.Equal(t, "4", saved.Questions[0].StudentAnswer)

	require.NoError(t, e.student.SubmitAnswers(ctx, id, answers))

	done, err := e.student.GetExperiment(ctx, models.RoleStudent, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, done.SubmissionStatus)
	assert.Equal(t, models.ScoreText("20/40"), done.TotalScore)
	assert.Equal(t, "print(3)", done.Questions[2].StudentCode)

	err = e.student.SaveAnswers(ctx, id, answers)
	require.Error(t, err)
	assert.Equal(t, client.KindValidation, client.KindOf(err))

	history, err := e.student.ListSubmissions(ctx, models.PageQuery{})
	require.NoError(t, err)
	require.Len(t, history.Submissions, 1)
	assert.Equal(t, 20, history.Submissions[0].TotalScore)

	sub, err := e.teacher.StudentSubmission(ctx, id, e.profile.UserID.String())
	require.NoError(t, err)
	assert.Equal(t, history.Submissions[0].SubmissionID, sub.SubmissionID)
}

func TestSubmitAfterDeadline(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	in := models.ExperimentInput{
		Title:       "Late",
		Description: "closed",
		Deadline:    time.Now().Add(-time.Hour),
		StudentIDs:  []string{e.profile.UserID.String()},
		Questions:   []models.QuestionInput{{Type: models.QuestionBlank, Content: "x", Score: 10, CorrectAnswer: "y"}},
	}

	closed, err := e.teacher.CreateExperiment(ctx, in)
	require.NoError(t, err)

	err = e.student.SubmitAnswers(ctx, closed, nil)
	require.Error(t, err)
	assert.Equal(t, "deadline has passed", client.UserMessage(err, ""))

	in.Permission = 1
	late, err := e.teacher.CreateExperiment(ctx, in)
	require.NoError(t, err)
	require.NoError(t, e.student.SubmitAnswers(ctx, late, nil))

	expired, err := e.student.ListExperiments(ctx, models.RoleStudent, models.PageQuery{Status: "expired"})
	require.NoError(t, err)
	assert.Len(t, expired.Experiments, 2)
}

func TestUpdateExperimentRemovesQuestions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	id := e.firstExperiment(t, e.teacher, models.RoleTeacher)

	exp, err := e.teacher.GetExperiment(ctx, models.RoleTeacher, id)
	require.NoError(t, err)

	in := models.ExperimentInput{
		Title:       "Renamed",
		Description: exp.Description,
		Deadline:    exp.Deadline,
		StudentIDs:  exp.StudentIDs,
		Questions: []models.QuestionInput{
			{QuestionID: exp.Questions[0].QuestionID, Type: models.QuestionChoice, Content: "edited", Score: 5, Options: []string{"a", "b"}, CorrectAnswer: "a"},
			{Type: models.QuestionBlank, Content: "new", Score: 10},
		},
		RemoveQuestions: []string{exp.Questions[1].QuestionID, exp.Questions[2].QuestionID},
	}
	require.NoError(t, e.teacher.UpdateExperiment(ctx, id, in))

	updated, err := e.teacher.GetExperiment(ctx, models.RoleTeacher, id)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	require.Len(t, updated.Questions, 2)
	assert.Equal(t, exp.Questions[0].QuestionID, updated.Questions[0].QuestionID)
	assert.Equal(t, "edited", updated.Questions[0].Content)
	assert.NotEmpty(t, updated.Questions[1].QuestionID)

	require.NoError(t, e.teacher.DeleteExperiment(ctx, id))
	_, err = e.teacher.GetExperiment(ctx, models.RoleTeacher, id)
	require.Error(t, err)
}

func TestFiles(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	id := e.firstExperiment(t, e.teacher, models.RoleTeacher)

	require.NoError(t, e.teacher.UploadFile(ctx, id, "task.txt", bytes.NewBufferString("hello")))

	names, err := e.student.ListFiles(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"task.txt"}, names)

	data, err := e.student.DownloadFile(ctx, id, "task.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, e.teacher.DeleteFile(ctx, id, "task.txt"))
	names, err = e.student.ListFiles(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestNotificationsAddressing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.teacher.CreateNotification(ctx, models.Notification{Title: "all", Content: "for everyone"}))
	require.NoError(t, e.teacher.CreateNotification(ctx, models.Notification{Title: "other", Content: "not you", Users: []string{"999"}}))
	require.NoError(t, e.teacher.CreateNotification(ctx, models.Notification{Title: "you", Content: "personal", Users: []string{e.profile.UserID.String()}}))

	mine, err := e.student.StudentNotifications(ctx, e.profile.UserID.String(), models.PageQuery{})
	require.NoError(t, err)
	require.Len(t, mine.Notifications, 2)
	assert.Equal(t, "you", mine.Notifications[0].Title)
	assert.Equal(t, "all", mine.Notifications[1].Title)

	all, err := e.teacher.TeacherNotifications(ctx, models.PageQuery{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, all.Notifications, 2)
	assert.Equal(t, 3, all.Pagination.Total)

	_, err = e.student.StudentNotifications(ctx, "999", models.PageQuery{})
	assert.True(t, errors.Is(err, client.ErrForbidden))
}

func TestGroupsAndStudents(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	ids, err := e.teacher.StudentIDs(ctx)
	require.NoError(t, err)
	require.Len(t, ids, 2)

	require.NoError(t, e.teacher.CreateGroup(ctx, client.GroupInput{GroupName: "Solo", StudentIDs: ids[:1]}))

	groups, err := e.teacher.ListGroups(ctx, models.PageQuery{})
	require.NoError(t, err)
	require.Len(t, groups.Groups, 2)
	solo := groups.Groups[1]
	assert.Equal(t, "Solo", solo.GroupName)
	assert.Equal(t, 1, solo.StudentCount)

	students, err := e.teacher.ListStudents(ctx, models.PageQuery{GroupID: solo.GroupID.String()})
	require.NoError(t, err)
	require.Len(t, students.Students, 1)
	assert.Equal(t, ids[0], students.Students[0].UserID.String())

	require.NoError(t, e.teacher.UpdateGroup(ctx, solo.GroupID.String(), client.GroupInput{GroupName: "Duo", StudentIDs: ids}))
	require.NoError(t, e.teacher.DeleteGroup(ctx, solo.GroupID.String()))

	err = e.teacher.CreateGroup(ctx, client.GroupInput{GroupName: "Bad", StudentIDs: []string{"999"}})
	assert.Equal(t, client.KindValidation, client.KindOf(err))
}
