package authoring

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/smartfox/smartfox/internal/domain/models"
	"gopkg.in/yaml.v3"
)

// Document — эксперимент, описанный в JSON- или YAML-файле для команды create консоли.
type Document struct {
	Form
	Questions   []models.QuestionInput `json:"questions"`
	Attachments []string               `json:"attachments,omitempty"`
}

// LoadDocument парсит JSON и строит форму и черновики вопросов.
// Вопросы проходят через тот же Reduce, что и правки в редакторе.
func LoadDocument(data []byte) (*Document, []Draft, error) {
	doc := &Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, nil, err
	}

	if err := ValidateForm(doc.Form); err != nil {
		return nil, nil, fmt.Errorf("cannot load experiment, %w", err)
	}

	var drafts []Draft
	for i, q := range doc.Questions {
		if !q.Type.Valid() {
			return nil, nil, fmt.Errorf("cannot load experiment, %w: unknown type %q of question %d",
				ErrValidation, q.Type, i+1)
		}

		key := uuid.New()
		drafts = Reduce(drafts, Add{Type: q.Type, Key: key})
		if q.QuestionID != "" {
			drafts = modify(drafts, key, func(d *Draft) {
				d.QuestionID = q.QuestionID
			})
		}

		changes := []Change{
			SetContent{Value: q.Content},
			SetExplanation{Value: q.Explanation},
			SetImage{URL: q.ImageURL},
			SetCorrectAnswer{Value: q.CorrectAnswer},
		}
		if q.Score != 0 {
			changes = append(changes, SetScore{Value: q.Score})
		}
		for _, c := range changes {
			drafts = Reduce(drafts, Update{Key: key, Change: c})
		}

		switch q.Type {
		case models.QuestionChoice:
			if len(q.Options) > 0 {
				// Количество вариантов задает файл, а не значение по умолчанию
				drafts = with(drafts, key, ChoiceBody{Options: q.Options, CorrectAnswer: q.CorrectAnswer})
			}
		case models.QuestionCode:
			if len(q.TestCases) > 0 {
				drafts = with(drafts, key, CodeBody{TestCases: q.TestCases})
			}
		}
	}

	if err := Validate(drafts); err != nil {
		return nil, nil, fmt.Errorf("cannot load experiment, %w", err)
	}

	return doc, drafts, nil
}

// LoadYAMLDocument парсит YAML с теми же именами полей, что и JSON.
func LoadYAMLDocument(data []byte) (*Document, []Draft, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, nil, err
	}

	// Теги структур только json, поэтому YAML идет через промежуточный JSON
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot load experiment: %w", err)
	}

	return LoadDocument(data)
}

// Merge сопоставляет черновики из файла с черновиками сохраненного эксперимента по question_id.
// Совпавшие получают ключ сохраненного черновика, черновики без question_id считаются новыми.
// Сохраненные вопросы, которых нет в файле, в результат не попадают.
func Merge(existing, drafts []Draft) ([]Draft, error) {
	keys := make(map[string]uuid.UUID, len(existing))
	for _, d := range existing {
		if d.QuestionID != "" {
			keys[d.QuestionID] = d.Key
		}
	}

	merged := make([]Draft, 0, len(drafts))
	seen := make(map[string]struct{}, len(drafts))
	for _, d := range drafts {
		if d.QuestionID != "" {
			key, ok := keys[d.QuestionID]
			if !ok {
				return nil, fmt.Errorf("%w: question %s does not belong to experiment", ErrValidation, d.QuestionID)
			}
			if _, dup := seen[d.QuestionID]; dup {
				return nil, fmt.Errorf("%w: question %s is listed twice", ErrValidation, d.QuestionID)
			}
			seen[d.QuestionID] = struct{}{}
			d.Key = key
		}
		if d.Body != nil {
			d.Body = d.Body.clone()
		}
		merged = append(merged, d)
	}

	return merged, nil
}

func with(drafts []Draft, key uuid.UUID, body Body) []Draft {
	return modify(drafts, key, func(d *Draft) {
		d.Body = body.clone()
	})
}
