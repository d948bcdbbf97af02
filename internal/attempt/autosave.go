package attempt

import (
	"context"
	"log/slog"
	"time"
)

// Start запускает автосохранение. Для уже отправленной работы или закрытой сессии ничего не делает.
// Повторный вызов тоже ничего не делает.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || !s.activeLocked() {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.autosave = AutosaveScheduled
	s.mu.Unlock()

	go s.run(ctx)
}

// Done закрывается, когда цикл автосохранения завершился.
// Если Start не вызывался, канал не закроется.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.setAutosave(AutosaveIdle)
			return
		case <-s.stop:
			s.setAutosave(AutosaveIdle)
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick — одно срабатывание таймера автосохранения.
// Возвращает true, если был отправлен запрос save.
func (s *Session) tick(ctx context.Context) bool {
	// Пока идет другой save или submit, тик пропускается
	if !s.saveMu.TryLock() {
		return false
	}
	defer s.saveMu.Unlock()

	if !s.Active() || !s.store.Dirty() {
		return false
	}

	s.setAutosave(AutosaveSaving)
	defer s.setAutosave(AutosaveScheduled)

	snap := s.store.Snapshot()
	err := s.api.SaveAnswers(ctx, s.exp.ExperimentID, snap.Answers)
	if !s.isMounted() {
		return true
	}
	if err != nil {
		// Ошибка автосохранения не показывается пользователю, повтор на следующем тике
		s.log.Warn("autosave failed", slog.Any("error", err))
		return true
	}

	clean := s.store.MarkSaved(snap, s.now())
	s.log.Debug("autosaved", slog.Int("answers", len(snap.Answers)), slog.Bool("clean", clean))

	return true
}

func (s *Session) setAutosave(state AutosaveState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if state != AutosaveIdle && !s.activeLocked() {
		state = AutosaveIdle
	}
	s.autosave = state
}

func (s *Session) stopAutosave() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}
