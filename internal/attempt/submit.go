package attempt

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/smartfox/smartfox/internal/domain/models"
	"github.com/smartfox/smartfox/internal/nav"
)

// CanSubmit проверяет, можно ли отправить работу в момент now:
// дедлайн не прошел или разрешена отправка после дедлайна.
func (s *Session) CanSubmit(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.activeLocked() {
		return false
	}
	return canSubmit(&s.exp, now)
}

func canSubmit(exp *models.Experiment, now time.Time) bool {
	if exp.AllowsLateSubmit() || exp.Deadline.IsZero() {
		return true
	}
	return !now.After(exp.Deadline)
}

// Save сохраняет ответы по запросу пользователя и переходит к списку экспериментов.
// В отличие от автосохранения, ошибка возвращается вызывающему.
func (s *Session) Save(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if err := s.editable(); err != nil {
		return err
	}

	snap := s.store.Snapshot()
	if err := s.api.SaveAnswers(ctx, s.exp.ExperimentID, snap.Answers); err != nil {
		return fmt.Errorf("failed to save answers: %w", err)
	}
	if !s.isMounted() {
		return nil
	}

	s.store.MarkSaved(snap, s.now())
	s.nav.Navigate(nav.PathExperiments)

	return nil
}

// Submit отправляет работу: сначала принудительно сохраняет ответы и дожидается ответа,
// затем отправляет тот же набор ответов на проверку.
func (s *Session) Submit(ctx context.Context) error {
	if !s.CanSubmit(s.now()) {
		if !s.Active() {
			return s.editable()
		}
		return ErrDeadlinePassed
	}

	// Ждем, пока закончится автосохранение, если оно идет
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if err := s.editable(); err != nil {
		return err
	}

	s.setState(StateSaving, nil)
	snap := s.store.Snapshot()

	if err := s.api.SaveAnswers(ctx, s.exp.ExperimentID, snap.Answers); err != nil {
		err = fmt.Errorf("failed to save answers: %w", err)
		s.setState(StateFailed, err)
		return err
	}
	if !s.isMounted() {
		return nil
	}
	s.store.MarkSaved(snap, s.now())

	s.setState(StateSubmitting, nil)
	if err := s.api.SubmitAnswers(ctx, s.exp.ExperimentID, snap.Answers); err != nil {
		err = fmt.Errorf("failed to submit answers: %w", err)
		s.setState(StateFailed, err)
		return err
	}

	s.mu.Lock()
	mounted := s.mounted
	if mounted {
		s.state = StateSubmitted
		s.lastErr = nil
		s.exp.SubmissionStatus = models.StatusSubmitted
	}
	s.mu.Unlock()

	s.stopAutosave()
	if !mounted {
		return nil
	}

	s.log.Info("experiment submitted", slog.Int("answers", len(snap.Answers)))
	s.nav.Navigate(nav.ResultPath(s.exp.ExperimentID))

	return nil
}

func (s *Session) setState(state State, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.mounted {
		return
	}
	s.state = state
	s.lastErr = err
}
