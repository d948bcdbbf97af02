package authoring

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation возвращается, если эксперимент нельзя отправить на сервер.
var ErrValidation = errors.New("validation error")

// Validate проверяет список вопросов перед созданием или обновлением эксперимента.
// Принадлежность правильного ответа к вариантам не проверяется.
func Validate(drafts []Draft) error {
	if len(drafts) == 0 {
		return fmt.Errorf("%w: need at least one question", ErrValidation)
	}

	for i, d := range drafts {
		if strings.TrimSpace(d.Content) == "" {
			return fmt.Errorf("%w: missing content of question %d", ErrValidation, i+1)
		}
		if d.Body == nil {
			return fmt.Errorf("%w: unknown type of question %d", ErrValidation, i+1)
		}
	}

	return nil
}

// ValidateForm проверяет обязательные поля эксперимента.
func ValidateForm(form Form) error {
	if strings.TrimSpace(form.Title) == "" {
		return fmt.Errorf("%w: missing title", ErrValidation)
	}
	if strings.TrimSpace(form.Description) == "" {
		return fmt.Errorf("%w: missing description", ErrValidation)
	}
	if form.Deadline.IsZero() {
		return fmt.Errorf("%w: missing deadline", ErrValidation)
	}

	switch form.Assignment.Mode {
	case AssignIndividual, AssignGroup, "":
	default:
		return fmt.Errorf("%w: unknown assignment mode %q", ErrValidation, form.Assignment.Mode)
	}

	return nil
}
