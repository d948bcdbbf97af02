package attempt

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/smartfox/smartfox/internal/domain/models"
)

// Answer — локальный ответ на вопрос. Для вопросов с кодом Value хранит код.
type Answer struct {
	Value    string
	Language string
}

// Snapshot — ответы, сериализованные для одного запроса save или submit.
type Snapshot struct {
	Revision uint64
	Answers  []models.AnswerInput
}

// Store хранит ответы студента и отслеживает несохраненные изменения.
type Store struct {
	mu        sync.Mutex
	questions []models.Question
	answers   map[string]Answer
	revision  uint64
	saved     uint64
	lastSaved time.Time
}

// NewStore создает хранилище ответов и заполняет его ответами, сохраненными на сервере.
func NewStore(questions []models.Question) *Store {
	s := &Store{
		questions: slices.Clone(questions),
		answers:   make(map[string]Answer, len(questions)),
	}

	for _, q := range questions {
		switch q.Type {
		case models.QuestionCode:
			if q.StudentCode == "" && q.StudentLanguage == "" {
				continue
			}
			lang := q.StudentLanguage
			if lang == "" {
				lang = models.DefaultLanguage
			}
			s.answers[q.QuestionID] = Answer{Value: q.StudentCode, Language: lang}
		default:
			if q.StudentAnswer == "" {
				continue
			}
			s.answers[q.QuestionID] = Answer{Value: q.StudentAnswer}
		}
	}

	return s
}

// SetAnswer заменяет ответ на вопрос и помечает хранилище измененным.
func (s *Store) SetAnswer(questionID, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.question(questionID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}

	a := s.answers[questionID]
	a.Value = value
	if q.Type == models.QuestionCode && a.Language == "" {
		a.Language = models.DefaultLanguage
	}
	s.answers[questionID] = a
	s.revision++

	return nil
}

// SetLanguage меняет язык ответа на вопрос с кодом.
func (s *Store) SetLanguage(questionID, lang string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.question(questionID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}
	if q.Type != models.QuestionCode {
		return ErrNotCodeQuestion
	}
	if !slices.Contains(models.Languages, lang) {
		return fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}

	a := s.answers[questionID]
	a.Language = lang
	s.answers[questionID] = a
	s.revision++

	return nil
}

// Answer возвращает ответ на вопрос. Для вопроса с кодом без ответа язык по умолчанию python.
func (s *Store) Answer(questionID string) (Answer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.answers[questionID]
	if !ok {
		if q, known := s.question(questionID); known && q.Type == models.QuestionCode {
			return Answer{Language: models.DefaultLanguage}, false
		}
	}
	return a, ok
}

// Dirty возвращает true, если есть изменения, не подтвержденные сервером.
func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.revision != s.saved
}

// LastSaved возвращает время последнего успешного сохранения.
func (s *Store) LastSaved() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastSaved
}

// Snapshot сериализует текущие ответы в порядке вопросов.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	answers := make([]models.AnswerInput, 0, len(s.answers))
	for _, q := range s.questions {
		a, ok := s.answers[q.QuestionID]
		if !ok {
			continue
		}

		in := models.AnswerInput{QuestionID: q.QuestionID, Type: q.Type}
		if q.Type == models.QuestionCode {
			in.Code = a.Value
			in.Language = a.Language
			if in.Language == "" {
				in.Language = models.DefaultLanguage
			}
		} else {
			in.Answer = a.Value
		}
		answers = append(answers, in)
	}

	return Snapshot{Revision: s.revision, Answers: answers}
}

// MarkSaved отмечает успешное сохранение снимка snap.
// Флаг изменений снимается, только если после снимка ответы не менялись.
func (s *Store) MarkSaved(snap Snapshot, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.Revision > s.saved {
		s.saved = snap.Revision
	}
	s.lastSaved = at

	return s.saved == s.revision
}

func (s *Store) question(questionID string) (models.Question, bool) {
	for _, q := range s.questions {
		if q.QuestionID == questionID {
			return q, true
		}
	}
	return models.Question{}, false
}
