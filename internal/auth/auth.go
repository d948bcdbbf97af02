package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/smartfox/smartfox/internal/client"
	"github.com/smartfox/smartfox/internal/nav"
	"github.com/smartfox/smartfox/internal/storage"
)

// Manager хранит сессию пользователя в локальном хранилище и отдает токен клиенту API.
// Реализует client.TokenSource, а HandleUnauthorized подключается как обработчик 401.
type Manager struct {
	mu      sync.RWMutex
	session Session

	st  storage.Storage
	nav nav.Navigator
	log *slog.Logger
}

// NewManager создает менеджер сессии поверх хранилища st.
func NewManager(st storage.Storage, navigator nav.Navigator, log *slog.Logger) *Manager {
	if navigator == nil {
		navigator = nav.Discard
	}
	if log == nil {
		log = slog.Default()
	}

	return &Manager{
		st:  st,
		nav: navigator,
		log: log,
	}
}

// Restore загружает сессию из хранилища (например, после перезапуска клиента).
func (m *Manager) Restore(ctx context.Context) (Session, error) {
	var (
		s      Session
		fields = map[string]*string{
			storage.KeyToken:    &s.Token,
			storage.KeyUsername: &s.Username,
			storage.KeyRole:     &s.Role,
			storage.KeyUserID:   &s.UserID,
		}
	)

	for key, dst := range fields {
		value, err := m.st.Get(ctx, key)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return Session{}, fmt.Errorf("failed to restore session: %w", err)
		}
		*dst = value
	}

	m.mu.Lock()
	m.session = s
	m.mu.Unlock()

	return s, nil
}

// Login входит в систему, сохраняет токен и профиль пользователя.
func (m *Manager) Login(ctx context.Context, api client.AuthAPI, name, password string) (Session, error) {
	name, password, err := ParseCredentials(name, password)
	if err != nil {
		return Session{}, err
	}

	token, err := api.Login(ctx, name, password)
	if err != nil {
		return Session{}, err
	}

	// Профиль запрашивается уже с новым токеном
	m.mu.Lock()
	m.session = Session{Token: token}
	m.mu.Unlock()

	if err = m.st.Set(ctx, storage.KeyToken, token); err != nil {
		return Session{}, fmt.Errorf("failed to store token: %w", err)
	}

	profile, err := api.Profile(ctx)
	if err != nil {
		m.purge(ctx)
		return Session{}, fmt.Errorf("failed to load profile: %w", err)
	}

	s := Session{
		Token:    token,
		Username: profile.Username,
		Role:     profile.Role,
		UserID:   profile.UserID.String(),
	}
	if s.Username == "" {
		s.Username = name
	}

	values := map[string]string{
		storage.KeyUsername: s.Username,
		storage.KeyRole:     s.Role,
		storage.KeyUserID:   s.UserID,
	}
	for key, value := range values {
		if err = m.st.Set(ctx, key, value); err != nil {
			return Session{}, fmt.Errorf("failed to store session: %w", err)
		}
	}

	m.mu.Lock()
	m.session = s
	m.mu.Unlock()

	m.log.Info("logged in", slog.String("username", s.Username), slog.String("role", s.Role))

	return s, nil
}

// Register регистрирует пользователя. Сессия не меняется.
func (m *Manager) Register(ctx context.Context, api client.AuthAPI, name, password, role string) error {
	name, password, err := ParseCredentials(name, password)
	if err != nil {
		return err
	}
	role, err = ParseRole(role)
	if err != nil {
		return err
	}

	return api.Register(ctx, client.Credentials{Name: name, Password: password, Role: role})
}

// Logout удаляет сессию из хранилища и переводит пользователя на страницу входа.
func (m *Manager) Logout(ctx context.Context) {
	m.purge(ctx)

	m.mu.RLock()
	navigator := m.nav
	m.mu.RUnlock()

	navigator.Navigate(nav.PathLogin)
}

// SetNavigator задает навигатор после создания менеджера.
// Нужен, когда навигатор сам зависит от клиента, которому менеджер отдает токен.
func (m *Manager) SetNavigator(navigator nav.Navigator) {
	if navigator == nil {
		navigator = nav.Discard
	}

	m.mu.Lock()
	m.nav = navigator
	m.mu.Unlock()
}

// HandleUnauthorized вызывается клиентом API на любой ответ 401.
func (m *Manager) HandleUnauthorized() {
	ctx, cancel := context.WithTimeout(context.Background(), timeoutStorage)
	defer cancel()

	m.log.Warn("session rejected by server, logging out")
	m.Logout(ctx)
}

// Token возвращает токен текущей сессии.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.session.Token
}

// Current возвращает копию текущей сессии.
func (m *Manager) Current() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.session
}

// Require проверяет, что пользователь вошел и имеет одну из ролей roles.
// Пустой roles означает любую роль.
func (m *Manager) Require(roles ...string) error {
	s := m.Current()
	if !s.LoggedIn() {
		return ErrNotLoggedIn
	}
	if len(roles) == 0 {
		return nil
	}
	for _, role := range roles {
		if s.Role == role {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrWrongRole, s.Role)
}

func (m *Manager) purge(ctx context.Context) {
	m.mu.Lock()
	m.session = Session{}
	m.mu.Unlock()

	for _, key := range storage.SessionKeys {
		if err := m.st.Remove(ctx, key); err != nil {
			m.log.Error("failed to remove session key", slog.String("key", key), slog.Any("error", err))
		}
	}
}
