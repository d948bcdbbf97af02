package attempt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/smartfox/smartfox/internal/client"
	"github.com/smartfox/smartfox/internal/domain/models"
	"github.com/smartfox/smartfox/internal/nav"
)

// Session — открытый студентом эксперимент: ответы, автосохранение и отправка.
type Session struct {
	exp   models.Experiment
	store *Store
	api   client.AnswerAPI
	nav   nav.Navigator
	log   *slog.Logger
	now   func() time.Time

	interval time.Duration

	// saveMu не дает двум запросам save/submit идти одновременно
	saveMu sync.Mutex

	mu       sync.Mutex
	state    State
	autosave AutosaveState
	lastErr  error
	mounted  bool
	started  bool

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// Option настраивает Session.
type Option func(*Session)

// WithInterval задает период автосохранения.
func WithInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithNavigator задает навигатор для переходов после сохранения и отправки.
func WithNavigator(n nav.Navigator) Option {
	return func(s *Session) {
		if n != nil {
			s.nav = n
		}
	}
}

// WithLogger задает логгер сессии.
func WithLogger(log *slog.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSession создает сессию по загруженному эксперименту.
func NewSession(exp *models.Experiment, api client.AnswerAPI, opts ...Option) *Session {
	s := &Session{
		exp:      *exp,
		store:    NewStore(exp.Questions),
		api:      api,
		nav:      nav.Discard,
		log:      slog.Default(),
		now:      time.Now,
		interval: DefaultAutosaveInterval,
		state:    StateEditing,
		autosave: AutosaveIdle,
		mounted:  true,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.log = s.log.With(slog.String("experiment_id", exp.ExperimentID))
	if exp.SubmissionStatus.Finalized() {
		s.state = StateSubmitted
	}

	return s
}

// Load получает эксперимент студента с сохраненными ответами и открывает по нему сессию.
func Load(ctx context.Context, api API, experimentID string, opts ...Option) (*Session, error) {
	exp, err := api.GetExperiment(ctx, models.RoleStudent, experimentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load experiment %s: %w", experimentID, err)
	}

	return NewSession(exp, api, opts...), nil
}

// Experiment возвращает эксперимент сессии.
func (s *Session) Experiment() models.Experiment {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.exp
}

// Store возвращает хранилище ответов.
func (s *Session) Store() *Store {
	return s.store
}

// Active возвращает true, пока сессию можно редактировать.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.activeLocked()
}

// SetAnswer меняет ответ на вопрос.
func (s *Session) SetAnswer(questionID, value string) error {
	if err := s.editable(); err != nil {
		return err
	}
	return s.store.SetAnswer(questionID, value)
}

// SetLanguage меняет язык ответа на вопрос с кодом.
func (s *Session) SetLanguage(questionID, lang string) error {
	if err := s.editable(); err != nil {
		return err
	}
	return s.store.SetLanguage(questionID, lang)
}

// Status возвращает сводку состояния сессии.
func (s *Session) Status() Status {
	s.mu.Lock()
	st := Status{
		State:    s.state,
		Autosave: s.autosave,
		Err:      s.lastErr,
	}
	s.mu.Unlock()

	st.Dirty = s.store.Dirty()
	st.LastSaved = s.store.LastSaved()

	return st
}

// Close размонтирует сессию: останавливает автосохранение, а ответы
// на запросы, которые еще в пути, больше не меняют ее состояние.
func (s *Session) Close() {
	s.mu.Lock()
	s.mounted = false
	s.mu.Unlock()

	s.stopAutosave()
}

func (s *Session) editable() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.mounted {
		return ErrClosed
	}
	if s.state == StateSubmitted {
		return ErrFinalized
	}
	if s.state == StateFailed {
		s.state = StateEditing
		s.lastErr = nil
	}
	return nil
}

func (s *Session) activeLocked() bool {
	return s.mounted && s.state != StateSubmitted
}

func (s *Session) isMounted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mounted
}
