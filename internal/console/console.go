package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/smartfox/smartfox/internal/attempt"
	"github.com/smartfox/smartfox/internal/auth"
	"github.com/smartfox/smartfox/internal/client"
	"github.com/smartfox/smartfox/internal/domain/models"
	"github.com/smartfox/smartfox/internal/events/fetcher"
	"github.com/smartfox/smartfox/internal/events/sender"
	"github.com/smartfox/smartfox/internal/nav"
)

// Options — настройки консоли.
// Отрицательный NotificationInterval отключает опрос объявлений.
type Options struct {
	AutosaveInterval     time.Duration
	NotificationInterval time.Duration
	Logger               *slog.Logger
}

// defaultNotificationInterval — период опроса объявлений студента
const defaultNotificationInterval = 30 * time.Second

// Console реализует текстовый интерфейс клиента: читает команды построчно,
// проверяет права роли и вызывает нужные компоненты.
type Console struct {
	api    client.Client
	auth   *auth.Manager
	sender sender.Sender
	opts   Options
	log    *slog.Logger
	now    func() time.Time

	outMu sync.Mutex
	out   io.Writer

	mu         sync.Mutex
	location   string
	handled    string
	session    *attempt.Session
	stopNotify context.CancelFunc

	commands map[string]command
}

// command — одна команда консоли. roles пустой, если вход не нужен.
type command struct {
	roles []string
	auth  bool
	usage string
	run   func(ctx context.Context, args []string) error
}

// New создает консоль. Консоль становится навигатором менеджера сессии.
func New(api client.Client, mgr *auth.Manager, out io.Writer, opts Options) *Console {
	if opts.AutosaveInterval <= 0 {
		opts.AutosaveInterval = attempt.DefaultAutosaveInterval
	}
	if opts.NotificationInterval == 0 {
		opts.NotificationInterval = defaultNotificationInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	c := &Console{
		api:    api,
		auth:   mgr,
		sender: sender.NewSender(api),
		opts:   opts,
		log:    opts.Logger,
		now:    time.Now,
		out:    out,
	}
	c.commands = c.routes()
	mgr.SetNavigator(c)

	return c
}

// Navigate переключает текущий вид. Переход на страницу входа закрывает открытый эксперимент сразу,
// остальные переходы обрабатываются после команды.
func (c *Console) Navigate(path string) {
	c.mu.Lock()
	c.location = path
	session := c.session
	if path == nav.PathLogin {
		c.session = nil
	}
	c.mu.Unlock()

	if path == nav.PathLogin {
		if session != nil {
			session.Close()
		}
		c.stopPolling()
		c.println(msgLoggedOut)
	}
}

// Location возвращает текущий путь.
func (c *Console) Location() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.location
}

// Run читает команды из in, пока не встретит quit, конец ввода или отмену ctx.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	defer c.Close()

	c.println(msgWelcome)
	if s := c.auth.Current(); s.LoggedIn() {
		c.printf("Вы вошли как %s (%s)\n", s.Username, s.Role)
		c.startPolling(ctx)
	}

	lines := make(chan string)
	errCh := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		errCh <- scanner.Err()
		close(lines)
	}()

	for {
		c.prompt()

		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return <-errCh
			}
			if quit := c.HandleLine(ctx, line); quit {
				return nil
			}
		}
	}
}

// HandleLine выполняет одну команду. Возвращает true для quit.
func (c *Console) HandleLine(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	name, args := strings.ToLower(fields[0]), fields[1:]
	if name == "quit" || name == "exit" {
		return true
	}

	cmd, ok := c.commands[name]
	if !ok {
		c.println(msgUnknownCommand)
		return false
	}

	if cmd.auth {
		if err := c.auth.Require(cmd.roles...); err != nil {
			c.reportAccess(err)
			return false
		}
	}

	if err := cmd.run(ctx, args); err != nil {
		c.report(cmd, err)
	}
	c.follow(ctx)

	return false
}

// Close закрывает открытый эксперимент и останавливает опрос объявлений.
func (c *Console) Close() {
	c.closeSession()
	c.stopPolling()
}

// follow реагирует на переход, сделанный во время команды.
func (c *Console) follow(ctx context.Context) {
	c.mu.Lock()
	location := c.location
	if location == c.handled {
		c.mu.Unlock()
		return
	}
	c.handled = location
	session := c.session
	c.mu.Unlock()

	if session != nil && location == nav.ExperimentPath(session.Experiment().ExperimentID) {
		return
	}
	c.closeSession()

	if id, ok := resultID(location); ok {
		if err := c.showResults(ctx, id); err != nil {
			c.printError(err)
		}
	}
}

func (c *Console) report(cmd command, err error) {
	switch {
	case errors.Is(err, errUsage):
		c.printf(msgUsage+"\n", cmd.usage)
	case errors.Is(err, attempt.ErrDeadlinePassed):
		c.println(msgDeadlinePassed)
	case errors.Is(err, attempt.ErrFinalized):
		c.println(msgFinalized)
	case errors.Is(err, client.ErrUnauthorized):
		// обработчик 401 уже вывел сообщение
	default:
		c.printError(err)
	}
}

func (c *Console) reportAccess(err error) {
	if errors.Is(err, auth.ErrNotLoggedIn) {
		c.println(msgLoginFirst)
		return
	}
	c.println(msgWrongRole)
}

func (c *Console) printError(err error) {
	c.log.Debug("command failed", slog.Any("error", err))
	c.printf("Ошибка: %s\n", errorText(err))
}

// errorText возвращает сообщение сервера. Ошибка запроса без сообщения заменяется
// общим текстом, локальные ошибки выводятся как есть.
func errorText(err error) string {
	var transportErr *client.TransportError
	var apiErr *client.APIError
	if errors.As(err, &transportErr) || errors.As(err, &apiErr) {
		return client.UserMessage(err, msgRequestFailed)
	}
	return err.Error()
}

func (c *Console) prompt() {
	s := c.auth.Current()

	c.outMu.Lock()
	defer c.outMu.Unlock()

	if s.LoggedIn() {
		_, _ = fmt.Fprintf(c.out, "%s@smartfox> ", s.Username)
		return
	}
	_, _ = fmt.Fprint(c.out, "smartfox> ")
}

func (c *Console) printf(format string, args ...interface{}) {
	c.outMu.Lock()
	defer c.outMu.Unlock()

	_, _ = fmt.Fprintf(c.out, format, args...)
}

func (c *Console) println(msg string) {
	c.printf("%s\n", msg)
}

func (c *Console) current() *attempt.Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.session
}

func (c *Console) closeSession() {
	c.mu.Lock()
	session := c.session
	c.session = nil
	c.mu.Unlock()

	if session != nil {
		session.Close()
	}
}

// startPolling запускает опрос новых объявлений студента.
func (c *Console) startPolling(ctx context.Context) {
	c.stopPolling()

	s := c.auth.Current()
	if s.Role != models.RoleStudent || c.opts.NotificationInterval < 0 {
		return
	}

	ctx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	c.stopNotify = cancel
	c.mu.Unlock()

	f := fetcher.NewNotificationFetcher(c.api, s.Role, s.UserID)
	go fetcher.Poll(ctx, f, c.opts.NotificationInterval, c.log, func(list []models.Notification) {
		for _, n := range list {
			c.printNotification(n)
		}
	})
}

func (c *Console) stopPolling() {
	c.mu.Lock()
	cancel := c.stopNotify
	c.stopNotify = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func resultID(path string) (string, bool) {
	rest, ok := strings.CutPrefix(path, nav.PathExperiments+"/")
	if !ok {
		return "", false
	}
	escaped, ok := strings.CutSuffix(rest, "/result")
	if !ok || escaped == "" {
		return "", false
	}
	id, err := url.PathUnescape(escaped)
	if err != nil {
		return "", false
	}
	return id, true
}

// errUsage — команда вызвана с неверными аргументами.
var errUsage = errors.New("invalid arguments")
