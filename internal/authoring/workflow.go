package authoring

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/smartfox/smartfox/internal/client"
	"github.com/smartfox/smartfox/internal/domain/models"
	"github.com/smartfox/smartfox/internal/nav"
)

// AssignMode — способ выбора студентов эксперимента.
type AssignMode string

const (
	AssignIndividual AssignMode = "individual"
	AssignGroup      AssignMode = "group"
)

// Assignment — кому назначен эксперимент.
type Assignment struct {
	Mode       AssignMode `json:"mode"`
	StudentIDs []string   `json:"student_ids,omitempty"`
	GroupID    string     `json:"group_id,omitempty"`
}

// Form — основные поля эксперимента.
type Form struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Deadline    time.Time  `json:"deadline"`
	AllowLate   bool       `json:"allow_late"`
	Assignment  Assignment `json:"assignment"`
}

// Permission возвращает значение поля permission для запроса.
func (f Form) Permission() int {
	if f.AllowLate {
		return 1
	}
	return 0
}

// Uploader загружает вложения созданного эксперимента.
type Uploader interface {
	UploadAll(ctx context.Context, experimentID string) error
}

// API — методы REST API, которые нужны редактору эксперимента.
type API interface {
	client.ExperimentAPI
	ListGroups(ctx context.Context, q models.PageQuery) (*client.GroupList, error)
}

// groupsPageLimit — сколько групп запрашивается при назначении эксперимента группе
const groupsPageLimit = 1000

// Workflow выполняет создание, обновление и удаление экспериментов преподавателем.
type Workflow struct {
	api API
	nav nav.Navigator
	log *slog.Logger
}

// NewWorkflow создает Workflow.
func NewWorkflow(api API, navigator nav.Navigator, log *slog.Logger) *Workflow {
	if navigator == nil {
		navigator = nav.Discard
	}
	if log == nil {
		log = slog.Default()
	}
	return &Workflow{api: api, nav: navigator, log: log}
}

// ResolveStudents возвращает идентификаторы студентов, которым назначается эксперимент.
// В режиме группы берутся студенты выбранной группы, для неизвестной группы список пуст.
func ResolveStudents(a Assignment, groups []models.StudentGroup) []string {
	if a.Mode != AssignGroup {
		if a.StudentIDs == nil {
			return []string{}
		}
		return slices.Clone(a.StudentIDs)
	}

	for _, g := range groups {
		if g.GroupID.String() == a.GroupID {
			return models.Strings(g.StudentIDs)
		}
	}
	return []string{}
}

// Create создает эксперимент, загружает вложения и переходит на страницу эксперимента.
// files может быть nil.
func (w *Workflow) Create(ctx context.Context, form Form, drafts []Draft, files Uploader) (string, error) {
	in, err := w.input(ctx, form, drafts)
	if err != nil {
		return "", err
	}
	for i := range in.Questions {
		in.Questions[i].QuestionID = ""
	}

	experimentID, err := w.api.CreateExperiment(ctx, in)
	if err != nil {
		return "", fmt.Errorf("failed to create experiment: %w", err)
	}

	log := w.log.With(slog.String("experiment_id", experimentID))
	log.Info("experiment created", slog.Int("questions", len(in.Questions)))

	if files != nil {
		// Ошибки отдельных файлов видны в статусах вложений, эксперимент уже создан
		if err = files.UploadAll(ctx, experimentID); err != nil {
			log.Warn("some attachments were not uploaded", slog.Any("error", err))
		}
	}

	w.nav.Navigate(nav.ExperimentPath(experimentID))

	return experimentID, nil
}

// Update обновляет эксперимент. originals содержит вопросы эксперимента до редактирования:
// те из них, что пропали из drafts, передаются в remove_questions.
func (w *Workflow) Update(
	ctx context.Context,
	experimentID string,
	form Form,
	drafts []Draft,
	originals []models.Question,
	files Uploader,
) error {
	in, err := w.input(ctx, form, drafts)
	if err != nil {
		return err
	}
	in.RemoveQuestions = RemovedQuestions(originals, drafts)

	if err = w.api.UpdateExperiment(ctx, experimentID, in); err != nil {
		return fmt.Errorf("failed to update experiment: %w", err)
	}

	log := w.log.With(slog.String("experiment_id", experimentID))
	log.Info("experiment updated",
		slog.Int("questions", len(in.Questions)),
		slog.Int("removed", len(in.RemoveQuestions)),
	)

	if files != nil {
		if err = files.UploadAll(ctx, experimentID); err != nil {
			log.Warn("some attachments were not uploaded", slog.Any("error", err))
		}
	}

	w.nav.Navigate(nav.PathExperiments)

	return nil
}

// Delete удаляет эксперимент и переходит к списку.
func (w *Workflow) Delete(ctx context.Context, experimentID string) error {
	if err := w.api.DeleteExperiment(ctx, experimentID); err != nil {
		return fmt.Errorf("failed to delete experiment: %w", err)
	}

	w.log.Info("experiment deleted", slog.String("experiment_id", experimentID))
	w.nav.Navigate(nav.PathExperiments)

	return nil
}

// RemovedQuestions возвращает идентификаторы исходных вопросов, которых нет среди черновиков.
func RemovedQuestions(originals []models.Question, drafts []Draft) []string {
	kept := make(map[string]struct{}, len(drafts))
	for _, d := range drafts {
		if d.QuestionID != "" {
			kept[d.QuestionID] = struct{}{}
		}
	}

	var removed []string
	for _, q := range originals {
		if _, ok := kept[q.QuestionID]; !ok {
			removed = append(removed, q.QuestionID)
		}
	}
	return removed
}

func (w *Workflow) input(ctx context.Context, form Form, drafts []Draft) (models.ExperimentInput, error) {
	if err := ValidateForm(form); err != nil {
		return models.ExperimentInput{}, err
	}
	if err := Validate(drafts); err != nil {
		return models.ExperimentInput{}, err
	}

	var groups []models.StudentGroup
	if form.Assignment.Mode == AssignGroup {
		list, err := w.api.ListGroups(ctx, models.PageQuery{Page: 1, Limit: groupsPageLimit})
		if err != nil {
			return models.ExperimentInput{}, fmt.Errorf("failed to load groups: %w", err)
		}
		groups = list.Groups
	}

	questions := make([]models.QuestionInput, 0, len(drafts))
	for _, d := range drafts {
		questions = append(questions, d.Input())
	}

	return models.ExperimentInput{
		Title:       form.Title,
		Description: form.Description,
		Deadline:    form.Deadline,
		Permission:  form.Permission(),
		StudentIDs:  ResolveStudents(form.Assignment, groups),
		Questions:   questions,
	}, nil
}
