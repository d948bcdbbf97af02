package authoring

import (
	"slices"

	"github.com/google/uuid"
	"github.com/smartfox/smartfox/internal/domain/models"
)

// Значения по умолчанию для нового вопроса
const (
	DefaultScore   = 10
	MinScore       = 1
	MaxScore       = 100
	defaultOptions = 4
)

// Draft — черновик вопроса в редакторе эксперимента.
// QuestionID пустой у вопросов, которых еще нет на сервере.
type Draft struct {
	Key         uuid.UUID
	QuestionID  string
	Content     string
	Score       int
	Explanation string
	ImageURL    string
	Body        Body
}

// Type возвращает тип вопроса по его телу.
func (d Draft) Type() models.QuestionType {
	if d.Body == nil {
		return ""
	}
	return d.Body.questionType()
}

// Body — часть черновика, зависящая от типа вопроса.
type Body interface {
	questionType() models.QuestionType
	clone() Body
}

// ChoiceBody — вопрос с выбором ответа.
type ChoiceBody struct {
	Options       []string
	CorrectAnswer string
}

// BlankBody — вопрос с пропуском.
type BlankBody struct {
	CorrectAnswer string
}

// CodeBody — вопрос с кодом.
type CodeBody struct {
	TestCases []models.TestCase
}

func (ChoiceBody) questionType() models.QuestionType { return models.QuestionChoice }
func (BlankBody) questionType() models.QuestionType  { return models.QuestionBlank }
func (CodeBody) questionType() models.QuestionType   { return models.QuestionCode }

func (b ChoiceBody) clone() Body {
	b.Options = slices.Clone(b.Options)
	return b
}

func (b BlankBody) clone() Body {
	return b
}

func (b CodeBody) clone() Body {
	b.TestCases = slices.Clone(b.TestCases)
	return b
}

// NewBody возвращает тело нового вопроса типа t.
func NewBody(t models.QuestionType) Body {
	switch t {
	case models.QuestionChoice:
		return ChoiceBody{Options: make([]string, defaultOptions)}
	case models.QuestionBlank:
		return BlankBody{}
	case models.QuestionCode:
		return CodeBody{TestCases: []models.TestCase{{}}}
	}
	return nil
}

// Action — действие над списком черновиков.
type Action interface {
	isAction()
}

// Add добавляет пустой вопрос в конец списка. Если Key пустой, он генерируется.
type Add struct {
	Type models.QuestionType
	Key  uuid.UUID
}

// Remove удаляет вопрос.
type Remove struct {
	Key uuid.UUID
}

// Update применяет изменение Change к вопросу.
type Update struct {
	Key    uuid.UUID
	Change Change
}

// AddTestCase добавляет пустой тест к вопросу с кодом.
type AddTestCase struct {
	Key uuid.UUID
}

// RemoveTestCase удаляет тест с индексом Index у вопроса с кодом.
type RemoveTestCase struct {
	Key   uuid.UUID
	Index int
}

func (Add) isAction()            {}
func (Remove) isAction()         {}
func (Update) isAction()         {}
func (AddTestCase) isAction()    {}
func (RemoveTestCase) isAction() {}

// Change — изменение одного поля черновика.
type Change interface {
	apply(d *Draft)
}

type (
	SetContent       struct{ Value string }
	SetScore         struct{ Value int }
	SetExplanation   struct{ Value string }
	SetImage         struct{ URL string }
	SetOption        struct {
		Index int
		Value string
	}
	SetCorrectAnswer struct{ Value string }
	SetTestCase      struct {
		Index int
		Case  models.TestCase
	}
)

func (c SetContent) apply(d *Draft)     { d.Content = c.Value }
func (c SetScore) apply(d *Draft)       { d.Score = ClampScore(c.Value) }
func (c SetExplanation) apply(d *Draft) { d.Explanation = c.Value }
func (c SetImage) apply(d *Draft)       { d.ImageURL = c.URL }

func (c SetOption) apply(d *Draft) {
	b, ok := d.Body.(ChoiceBody)
	if !ok || c.Index < 0 || c.Index >= len(b.Options) {
		return
	}
	b.Options[c.Index] = c.Value
	d.Body = b
}

func (c SetCorrectAnswer) apply(d *Draft) {
	switch b := d.Body.(type) {
	case ChoiceBody:
		b.CorrectAnswer = c.Value
		d.Body = b
	case BlankBody:
		b.CorrectAnswer = c.Value
		d.Body = b
	}
}

func (c SetTestCase) apply(d *Draft) {
	b, ok := d.Body.(CodeBody)
	if !ok || c.Index < 0 || c.Index >= len(b.TestCases) {
		return
	}
	b.TestCases[c.Index] = c.Case
	d.Body = b
}

// ClampScore ограничивает балл диапазоном MinScore..MaxScore.
func ClampScore(score int) int {
	return min(max(score, MinScore), MaxScore)
}

// NewDraft создает пустой черновик вопроса типа t.
func NewDraft(t models.QuestionType, key uuid.UUID) Draft {
	if key == uuid.Nil {
		key = uuid.New()
	}
	return Draft{
		Key:   key,
		Score: DefaultScore,
		Body:  NewBody(t),
	}
}

// Reduce применяет действие к списку черновиков и возвращает новый список.
// Исходный список и его черновики не меняются.
func Reduce(drafts []Draft, action Action) []Draft {
	switch a := action.(type) {
	case Add:
		if !a.Type.Valid() {
			return drafts
		}
		out := make([]Draft, 0, len(drafts)+1)
		out = append(out, drafts...)
		return append(out, NewDraft(a.Type, a.Key))

	case Remove:
		out := make([]Draft, 0, len(drafts))
		for _, d := range drafts {
			if d.Key != a.Key {
				out = append(out, d)
			}
		}
		return out

	case Update:
		if a.Change == nil {
			return drafts
		}
		return modify(drafts, a.Key, a.Change.apply)

	case AddTestCase:
		return modify(drafts, a.Key, func(d *Draft) {
			b, ok := d.Body.(CodeBody)
			if !ok {
				return
			}
			b.TestCases = append(b.TestCases, models.TestCase{})
			d.Body = b
		})

	case RemoveTestCase:
		return modify(drafts, a.Key, func(d *Draft) {
			b, ok := d.Body.(CodeBody)
			if !ok || a.Index < 0 || a.Index >= len(b.TestCases) {
				return
			}
			b.TestCases = slices.Delete(b.TestCases, a.Index, a.Index+1)
			d.Body = b
		})
	}

	return drafts
}

// modify копирует список и применяет fn к копии черновика с ключом key.
func modify(drafts []Draft, key uuid.UUID, fn func(d *Draft)) []Draft {
	out := slices.Clone(drafts)
	for i := range out {
		if out[i].Key != key {
			continue
		}
		if out[i].Body != nil {
			out[i].Body = out[i].Body.clone()
		}
		fn(&out[i])
	}
	return out
}

// FromQuestions строит черновики по вопросам загруженного эксперимента.
func FromQuestions(questions []models.Question) []Draft {
	drafts := make([]Draft, 0, len(questions))
	for _, q := range questions {
		d := Draft{
			Key:         uuid.New(),
			QuestionID:  q.QuestionID,
			Content:     q.Content,
			Score:       q.Score,
			Explanation: q.Explanation,
			ImageURL:    q.ImageURL,
		}

		switch q.Type {
		case models.QuestionChoice:
			d.Body = ChoiceBody{Options: slices.Clone(q.Options), CorrectAnswer: q.CorrectAnswer}
		case models.QuestionBlank:
			d.Body = BlankBody{CorrectAnswer: q.CorrectAnswer}
		case models.QuestionCode:
			d.Body = CodeBody{TestCases: slices.Clone(q.TestCases)}
		default:
			continue
		}
		drafts = append(drafts, d)
	}
	return drafts
}

// Input сериализует черновик в вопрос запроса создания или обновления.
func (d Draft) Input() models.QuestionInput {
	in := models.QuestionInput{
		QuestionID:  d.QuestionID,
		Type:        d.Type(),
		Content:     d.Content,
		Score:       d.Score,
		ImageURL:    d.ImageURL,
		Explanation: d.Explanation,
	}

	switch b := d.Body.(type) {
	case ChoiceBody:
		in.Options = slices.Clone(b.Options)
		in.CorrectAnswer = b.CorrectAnswer
	case BlankBody:
		in.CorrectAnswer = b.CorrectAnswer
	case CodeBody:
		in.TestCases = slices.Clone(b.TestCases)
	}

	return in
}
