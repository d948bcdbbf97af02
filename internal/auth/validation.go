package auth

import (
	"fmt"
	"strings"

	"github.com/smartfox/smartfox/internal/domain/models"
)

// ParseRole валидирует роль, введенную пользователем, и отдает ее в нормализованном виде
func ParseRole(message string) (string, error) {
	message = strings.TrimSpace(message)
	if len(strings.Fields(message)) != 1 {
		return "", fmt.Errorf("%w, role must be a single word", ErrValidation)
	}

	role := strings.ToLower(message)
	switch role {
	case models.RoleTeacher, models.RoleStudent:
		return role, nil
	}

	return "", fmt.Errorf("%w, unknown role %q", ErrValidation, message)
}

// ParseCredentials проверяет имя и пароль перед отправкой на сервер
func ParseCredentials(name, password string) (string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(strings.Fields(name)) != 1 {
		return "", "", fmt.Errorf("%w, name must be a single non-empty word", ErrValidation)
	}
	if password == "" {
		return "", "", fmt.Errorf("%w, password is empty", ErrValidation)
	}

	return name, password, nil
}
