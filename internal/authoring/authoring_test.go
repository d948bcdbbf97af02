package authoring

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/smartfox/smartfox/internal/client"
	"github.com/smartfox/smartfox/internal/domain/models"
	"github.com/smartfox/smartfox/internal/nav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReduce_AddDefaults(t *testing.T) {
	var drafts []Draft

	drafts = Reduce(drafts, Add{Type: models.QuestionChoice})
	drafts = Reduce(drafts, Add{Type: models.QuestionBlank})
	drafts = Reduce(drafts, Add{Type: models.QuestionCode})
	drafts = Reduce(drafts, Add{Type: "essay"})

	require.Len(t, drafts, 3)
	for _, d := range drafts {
		assert.NotEqual(t, uuid.Nil, d.Key)
		assert.Equal(t, DefaultScore, d.Score)
		assert.Empty(t, d.QuestionID)
	}

	assert.Equal(t, ChoiceBody{Options: []string{"", "", "", ""}}, drafts[0].Body)
	assert.Equal(t, BlankBody{}, drafts[1].Body)
	assert.Equal(t, CodeBody{TestCases: []models.TestCase{{}}}, drafts[2].Body)
	assert.Equal(t, models.QuestionCode, drafts[2].Type())
}

func TestReduce_AddThenRemoveRestoresList(t *testing.T) {
	k1, k2, k3 := uuid.New(), uuid.New(), uuid.New()

	var drafts []Draft
	drafts = Reduce(drafts, Add{Type: models.QuestionChoice, Key: k1})
	drafts = Reduce(drafts, Add{Type: models.QuestionBlank, Key: k2})
	drafts = Reduce(drafts, Update{Key: k1, Change: SetContent{Value: "2+2?"}})

	before := drafts
	after := Reduce(Reduce(drafts, Add{Type: models.QuestionCode, Key: k3}), Remove{Key: k3})

	assert.Equal(t, before, after)
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	key := uuid.New()
	drafts := Reduce(nil, Add{Type: models.QuestionChoice, Key: key})
	codeKey := uuid.New()
	drafts = Reduce(drafts, Add{Type: models.QuestionCode, Key: codeKey})

	updated := Reduce(drafts, Update{Key: key, Change: SetOption{Index: 1, Value: "4"}})
	updated = Reduce(updated, AddTestCase{Key: codeKey})

	assert.Equal(t, "", drafts[0].Body.(ChoiceBody).Options[1])
	assert.Equal(t, "4", updated[0].Body.(ChoiceBody).Options[1])
	assert.Len(t, drafts[1].Body.(CodeBody).TestCases, 1)
	assert.Len(t, updated[1].Body.(CodeBody).TestCases, 2)
}

func TestReduce_Changes(t *testing.T) {
	choice, blank, code := uuid.New(), uuid.New(), uuid.New()

	var drafts []Draft
	drafts = Reduce(drafts, Add{Type: models.QuestionChoice, Key: choice})
	drafts = Reduce(drafts, Add{Type: models.QuestionBlank, Key: blank})
	drafts = Reduce(drafts, Add{Type: models.QuestionCode, Key: code})

	tests := []struct {
		name   string
		action Action
		check  func(t *testing.T, drafts []Draft)
	}{
		{
			name:   "score is clamped from above",
			action: Update{Key: choice, Change: SetScore{Value: 500}},
			check: func(t *testing.T, drafts []Draft) {
				assert.Equal(t, MaxScore, drafts[0].Score)
			},
		},
		{
			name:   "score is clamped from below",
			action: Update{Key: choice, Change: SetScore{Value: 0}},
			check: func(t *testing.T, drafts []Draft) {
				assert.Equal(t, MinScore, drafts[0].Score)
			},
		},
		{
			name:   "correct answer of blank",
			action: Update{Key: blank, Change: SetCorrectAnswer{Value: "Москва"}},
			check: func(t *testing.T, drafts []Draft) {
				assert.Equal(t, BlankBody{CorrectAnswer: "Москва"}, drafts[1].Body)
			},
		},
		{
			name:   "option out of range is ignored",
			action: Update{Key: choice, Change: SetOption{Index: 7, Value: "x"}},
			check: func(t *testing.T, drafts []Draft) {
				assert.Equal(t, ChoiceBody{Options: []string{"", "", "", ""}}, drafts[0].Body)
			},
		},
		{
			name:   "test case on non-code question is ignored",
			action: AddTestCase{Key: blank},
			check: func(t *testing.T, drafts []Draft) {
				assert.Equal(t, BlankBody{}, drafts[1].Body)
			},
		},
		{
			name:   "set test case",
			action: Update{Key: code, Change: SetTestCase{Index: 0, Case: models.TestCase{Input: "1 2", ExpectedOutput: "3"}}},
			check: func(t *testing.T, drafts []Draft) {
				assert.Equal(t, CodeBody{TestCases: []models.TestCase{{Input: "1 2", ExpectedOutput: "3"}}}, drafts[2].Body)
			},
		},
		{
			name:   "remove test case",
			action: RemoveTestCase{Key: code, Index: 0},
			check: func(t *testing.T, drafts []Draft) {
				assert.Empty(t, drafts[2].Body.(CodeBody).TestCases)
			},
		},
		{
			name:   "unknown key changes nothing",
			action: Update{Key: uuid.New(), Change: SetContent{Value: "x"}},
			check: func(t *testing.T, after []Draft) {
				assert.Equal(t, drafts, after)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, Reduce(drafts, tt.action))
		})
	}
}

func TestFromQuestions(t *testing.T) {
	questions := []models.Question{
		{QuestionID: "q1", Type: models.QuestionChoice, Content: "2+2?", Score: 5, Options: []string{"3", "4"}, CorrectAnswer: "4"},
		{QuestionID: "q2", Type: models.QuestionCode, Content: "sum", Score: 20, TestCases: []models.TestCase{{Input: "1 2", ExpectedOutput: "3"}}},
	}

	drafts := FromQuestions(questions)
	require.Len(t, drafts, 2)

	assert.Equal(t, "q1", drafts[0].QuestionID)
	assert.Equal(t, models.QuestionInput{
		QuestionID: "q1", Type: models.QuestionChoice, Content: "2+2?", Score: 5,
		Options: []string{"3", "4"}, CorrectAnswer: "4",
	}, drafts[0].Input())
	assert.Equal(t, models.QuestionCode, drafts[1].Type())

	// Правка черновика не меняет исходный вопрос
	drafts = Reduce(drafts, Update{Key: drafts[0].Key, Change: SetOption{Index: 0, Value: "5"}})
	assert.Equal(t, "3", questions[0].Options[0])
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, Validate(nil), ErrValidation)

	key := uuid.New()
	drafts := Reduce(nil, Add{Type: models.QuestionBlank, Key: key})
	drafts = Reduce(drafts, Update{Key: key, Change: SetContent{Value: "   "}})
	assert.ErrorIs(t, Validate(drafts), ErrValidation)

	drafts = Reduce(drafts, Update{Key: key, Change: SetContent{Value: "Столица?"}})
	assert.NoError(t, Validate(drafts))
}

func TestValidate_ChoiceAnswerNotInOptions(t *testing.T) {
	key := uuid.New()
	drafts := Reduce(nil, Add{Type: models.QuestionChoice, Key: key})
	drafts = Reduce(drafts, Update{Key: key, Change: SetContent{Value: "2+2?"}})
	drafts = Reduce(drafts, Update{Key: key, Change: SetCorrectAnswer{Value: "not an option"}})

	assert.NoError(t, Validate(drafts))
}

func TestResolveStudents(t *testing.T) {
	groups := []models.StudentGroup{
		{GroupID: "1", GroupName: "ИВТ-21", StudentIDs: []models.ID{"10", "11"}},
		{GroupID: "2", GroupName: "ИВТ-22", StudentIDs: []models.ID{"20"}},
	}

	tests := []struct {
		name string
		a    Assignment
		want []string
	}{
		{name: "individual", a: Assignment{Mode: AssignIndividual, StudentIDs: []string{"5", "6"}}, want: []string{"5", "6"}},
		{name: "individual empty", a: Assignment{Mode: AssignIndividual}, want: []string{}},
		{name: "group", a: Assignment{Mode: AssignGroup, GroupID: "2"}, want: []string{"20"}},
		{name: "group ignores individual ids", a: Assignment{Mode: AssignGroup, GroupID: "1", StudentIDs: []string{"5"}}, want: []string{"10", "11"}},
		{name: "unknown group", a: Assignment{Mode: AssignGroup, GroupID: "9"}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveStudents(tt.a, groups))
		})
	}
}

type fakeAPI struct {
	createdID string
	createErr error
	updateErr error
	deleteErr error

	created  []models.ExperimentInput
	updated  []models.ExperimentInput
	deleted  []string
	groups   []models.StudentGroup
	groupsRq int
}

func (f *fakeAPI) ListExperiments(ctx context.Context, role string, q models.PageQuery) (*client.ExperimentList, error) {
	return &client.ExperimentList{}, nil
}

func (f *fakeAPI) GetExperiment(ctx context.Context, role, experimentID string) (*models.Experiment, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAPI) CreateExperiment(ctx context.Context, in models.ExperimentInput) (string, error) {
	f.created = append(f.created, in)
	return f.createdID, f.createErr
}

func (f *fakeAPI) UpdateExperiment(ctx context.Context, experimentID string, in models.ExperimentInput) error {
	f.updated = append(f.updated, in)
	return f.updateErr
}

func (f *fakeAPI) DeleteExperiment(ctx context.Context, experimentID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, experimentID)
	return nil
}

func (f *fakeAPI) ListGroups(ctx context.Context, q models.PageQuery) (*client.GroupList, error) {
	f.groupsRq++
	return &client.GroupList{Groups: f.groups}, nil
}

type fakeUploader struct {
	ids []string
	err error
}

func (u *fakeUploader) UploadAll(ctx context.Context, experimentID string) error {
	u.ids = append(u.ids, experimentID)
	return u.err
}

func testForm() Form {
	return Form{
		Title:       "Лабораторная 2",
		Description: "Циклы",
		Deadline:    time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		Assignment:  Assignment{Mode: AssignIndividual, StudentIDs: []string{"7"}},
	}
}

func TestWorkflow_CreateCodeQuestion(t *testing.T) {
	api := &fakeAPI{createdID: "exp125"}
	rec := &nav.Recorder{}
	files := &fakeUploader{}
	w := NewWorkflow(api, rec, nil)

	key := uuid.New()
	drafts := Reduce(nil, Add{Type: models.QuestionCode, Key: key})
	drafts = Reduce(drafts, Update{Key: key, Change: SetContent{Value: "Print hello"}})
	drafts = Reduce(drafts, Update{Key: key, Change: SetTestCase{Index: 0, Case: models.TestCase{Input: "", ExpectedOutput: "hello"}}})

	id, err := w.Create(context.Background(), testForm(), drafts, files)
	require.NoError(t, err)

	assert.Equal(t, "exp125", id)
	assert.Equal(t, []string{"/experiments/exp125"}, rec.Paths())
	assert.Equal(t, []string{"exp125"}, files.ids)

	require.Len(t, api.created, 1)
	body, err := json.Marshal(api.created[0].Questions)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"type":"code","content":"Print hello","score":10,
		"test_cases":[{"input":"","expected_output":"hello"}]}]`, string(body))
	assert.Equal(t, []string{"7"}, api.created[0].StudentIDs)
	assert.Equal(t, 0, api.created[0].Permission)
}

func TestWorkflow_CreateFailures(t *testing.T) {
	t.Run("validation stops before request", func(t *testing.T) {
		api := &fakeAPI{}
		w := NewWorkflow(api, nil, nil)

		_, err := w.Create(context.Background(), testForm(), nil, nil)
		assert.ErrorIs(t, err, ErrValidation)
		assert.Empty(t, api.created)
	})

	t.Run("server error keeps message and skips navigation", func(t *testing.T) {
		api := &fakeAPI{createErr: &client.APIError{StatusCode: 400, Message: "title taken"}}
		rec := &nav.Recorder{}
		files := &fakeUploader{}
		w := NewWorkflow(api, rec, nil)

		key := uuid.New()
		drafts := Reduce(nil, Add{Type: models.QuestionBlank, Key: key})
		drafts = Reduce(drafts, Update{Key: key, Change: SetContent{Value: "?"}})

		_, err := w.Create(context.Background(), testForm(), drafts, files)
		require.Error(t, err)
		assert.Equal(t, "title taken", client.UserMessage(err, "create failed"))
		assert.Empty(t, rec.Paths())
		assert.Empty(t, files.ids)
	})
}

func TestWorkflow_CreateForGroup(t *testing.T) {
	api := &fakeAPI{
		createdID: "exp200",
		groups:    []models.StudentGroup{{GroupID: "3", StudentIDs: []models.ID{"31", "32"}}},
	}
	w := NewWorkflow(api, nil, nil)

	form := testForm()
	form.AllowLate = true
	form.Assignment = Assignment{Mode: AssignGroup, GroupID: "3"}

	key := uuid.New()
	drafts := Reduce(nil, Add{Type: models.QuestionBlank, Key: key})
	drafts = Reduce(drafts, Update{Key: key, Change: SetContent{Value: "?"}})

	_, err := w.Create(context.Background(), form, drafts, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, api.groupsRq)
	assert.Equal(t, []string{"31", "32"}, api.created[0].StudentIDs)
	assert.Equal(t, 1, api.created[0].Permission)
}

func TestWorkflow_Update(t *testing.T) {
	originals := []models.Question{
		{QuestionID: "q1", Type: models.QuestionBlank, Content: "a", Score: 10},
		{QuestionID: "q2", Type: models.QuestionBlank, Content: "b", Score: 10},
	}
	api := &fakeAPI{}
	rec := &nav.Recorder{}
	files := &fakeUploader{err: errors.New("one file failed")}
	w := NewWorkflow(api, rec, nil)

	drafts := FromQuestions(originals)
	drafts = Reduce(drafts, Remove{Key: drafts[0].Key})
	newKey := uuid.New()
	drafts = Reduce(drafts, Add{Type: models.QuestionBlank, Key: newKey})
	drafts = Reduce(drafts, Update{Key: newKey, Change: SetContent{Value: "c"}})

	require.NoError(t, w.Update(context.Background(), "exp1", testForm(), drafts, originals, files))

	require.Len(t, api.updated, 1)
	in := api.updated[0]
	assert.Equal(t, []string{"q1"}, in.RemoveQuestions)
	require.Len(t, in.Questions, 2)
	assert.Equal(t, "q2", in.Questions[0].QuestionID)
	assert.Empty(t, in.Questions[1].QuestionID)

	assert.Equal(t, []string{"exp1"}, files.ids)
	assert.Equal(t, []string{nav.PathExperiments}, rec.Paths())
}

func TestWorkflow_Delete(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		api := &fakeAPI{}
		rec := &nav.Recorder{}
		w := NewWorkflow(api, rec, nil)

		require.NoError(t, w.Delete(context.Background(), "exp1"))
		assert.Equal(t, []string{"exp1"}, api.deleted)
		assert.Equal(t, []string{nav.PathExperiments}, rec.Paths())
	})

	t.Run("failure", func(t *testing.T) {
		api := &fakeAPI{deleteErr: &client.APIError{StatusCode: 403}}
		rec := &nav.Recorder{}
		w := NewWorkflow(api, rec, nil)

		err := w.Delete(context.Background(), "exp1")
		assert.ErrorIs(t, err, client.ErrForbidden)
		assert.Empty(t, rec.Paths())
	})
}

func TestLoadDocument(t *testing.T) {
	data := []byte(`{
		"title": "Лабораторная 3",
		"description": "Строки",
		"deadline": "2030-05-01T12:00:00Z",
		"allow_late": true,
		"assignment": {"mode": "individual", "student_ids": ["7", "8"]},
		"questions": [
			{"type": "choice", "content": "2+2?", "options": ["3", "4", "5"], "correct_answer": "4", "score": 5},
			{"type": "blank", "content": "Столица?", "correct_answer": "Москва"},
			{"type": "code", "content": "sum", "test_cases": [{"input": "1 2", "expected_output": "3"}]}
		],
		"attachments": ["task.pdf"]
	}`)

	doc, drafts, err := LoadDocument(data)
	require.NoError(t, err)

	assert.Equal(t, "Лабораторная 3", doc.Title)
	assert.True(t, doc.AllowLate)
	assert.Equal(t, []string{"task.pdf"}, doc.Attachments)

	require.Len(t, drafts, 3)
	assert.Equal(t, ChoiceBody{Options: []string{"3", "4", "5"}, CorrectAnswer: "4"}, drafts[0].Body)
	assert.Equal(t, 5, drafts[0].Score)
	assert.Equal(t, BlankBody{CorrectAnswer: "Москва"}, drafts[1].Body)
	assert.Equal(t, DefaultScore, drafts[1].Score)
	assert.Equal(t, CodeBody{TestCases: []models.TestCase{{Input: "1 2", ExpectedOutput: "3"}}}, drafts[2].Body)
}

func TestLoadYAMLDocument(t *testing.T) {
	data := []byte(`
title: Лабораторная 4
description: Циклы
deadline: "2030-05-01T12:00:00Z"
assignment:
  mode: individual
  student_ids: ["7"]
questions:
  - type: choice
    content: 3*3?
    options: ["6", "9"]
    correct_answer: "9"
    score: 4
attachments:
  - task.pdf
`)

	doc, drafts, err := LoadYAMLDocument(data)
	require.NoError(t, err)

	assert.Equal(t, "Лабораторная 4", doc.Title)
	assert.Equal(t, time.Date(2030, 5, 1, 12, 0, 0, 0, time.UTC), doc.Deadline.UTC())
	assert.Equal(t, []string{"task.pdf"}, doc.Attachments)

	require.Len(t, drafts, 1)
	assert.Equal(t, ChoiceBody{Options: []string{"6", "9"}, CorrectAnswer: "9"}, drafts[0].Body)
	assert.Equal(t, 4, drafts[0].Score)

	_, _, err = LoadYAMLDocument([]byte("title: [unclosed"))
	assert.Error(t, err)
}

func TestMerge(t *testing.T) {
	originals := []models.Question{
		{QuestionID: "q1", Type: models.QuestionBlank, Content: "a", Score: 10},
		{QuestionID: "q2", Type: models.QuestionBlank, Content: "b", Score: 10},
	}
	existing := FromQuestions(originals)

	_, drafts, err := LoadDocument([]byte(`{
		"title": "t", "description": "d", "deadline": "2030-01-01T00:00:00Z",
		"questions": [
			{"type": "blank", "content": "new"},
			{"question_id": "q2", "type": "choice", "content": "b2", "options": ["x", "y"], "correct_answer": "y"}
		]
	}`))
	require.NoError(t, err)
	assert.Equal(t, "q2", drafts[1].QuestionID)

	merged, err := Merge(existing, drafts)
	require.NoError(t, err)
	require.Len(t, merged, 2)

	assert.Empty(t, merged[0].QuestionID)
	assert.Equal(t, drafts[0].Key, merged[0].Key)
	assert.Equal(t, existing[1].Key, merged[1].Key)
	assert.Equal(t, "b2", merged[1].Content)
	assert.Equal(t, ChoiceBody{Options: []string{"x", "y"}, CorrectAnswer: "y"}, merged[1].Body)

	assert.Equal(t, []string{"q1"}, RemovedQuestions(originals, merged))

	t.Run("unknown question", func(t *testing.T) {
		foreign := []Draft{{Key: uuid.New(), QuestionID: "q9", Content: "x", Body: BlankBody{}}}
		_, err := Merge(existing, foreign)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("question listed twice", func(t *testing.T) {
		twice := []Draft{
			{Key: uuid.New(), QuestionID: "q1", Content: "x", Body: BlankBody{}},
			{Key: uuid.New(), QuestionID: "q1", Content: "y", Body: BlankBody{}},
		}
		_, err := Merge(existing, twice)
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestLoadDocument_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "invalid json", data: `{invalid json}`},
		{name: "missing title", data: `{"description": "d", "deadline": "2030-01-01T00:00:00Z", "questions": [{"type": "blank", "content": "x"}]}`},
		{name: "unknown type", data: `{"title": "t", "description": "d", "deadline": "2030-01-01T00:00:00Z", "questions": [{"type": "essay", "content": "x"}]}`},
		{name: "no questions", data: `{"title": "t", "description": "d", "deadline": "2030-01-01T00:00:00Z", "questions": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, drafts, err := LoadDocument([]byte(tt.data))
			assert.Error(t, err)
			assert.Nil(t, doc)
			assert.Nil(t, drafts)
		})
	}
}
