package attempt

import (
	"context"
	"errors"
	"time"

	"github.com/smartfox/smartfox/internal/client"
	"github.com/smartfox/smartfox/internal/domain/models"
)

// Ошибки сессии
var (
	ErrUnknownQuestion     = errors.New("unknown question")
	ErrNotCodeQuestion     = errors.New("language can be set only for code questions")
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrFinalized           = errors.New("experiment is already submitted")
	ErrDeadlinePassed      = errors.New("deadline has passed and late submission is not allowed")
	ErrClosed              = errors.New("session is closed")
)

// State — состояние отправки работы.
type State string

const (
	StateEditing    State = "editing"
	StateSaving     State = "saving"
	StateSubmitting State = "submitting"
	StateSubmitted  State = "submitted"
	StateFailed     State = "failed"
)

// AutosaveState — состояние планировщика автосохранения.
type AutosaveState string

const (
	AutosaveIdle      AutosaveState = "idle"
	AutosaveScheduled AutosaveState = "scheduled"
	AutosaveSaving    AutosaveState = "saving"
)

// Status — сводка состояния сессии для отображения.
type Status struct {
	State     State
	Autosave  AutosaveState
	Dirty     bool
	LastSaved time.Time
	Err       error
}

// API — методы REST API, которые нужны сессии студента.
type API interface {
	client.AnswerAPI
	GetExperiment(ctx context.Context, role, experimentID string) (*models.Experiment, error)
}

// DefaultAutosaveInterval — период автосохранения.
const DefaultAutosaveInterval = time.Second
