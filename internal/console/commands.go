package console

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/smartfox/smartfox/internal/client"
	"github.com/smartfox/smartfox/internal/domain/models"
	"github.com/smartfox/smartfox/internal/nav"
)

func (c *Console) routes() map[string]command {
	student := []string{models.RoleStudent}
	teacher := []string{models.RoleTeacher}

	return map[string]command{
		"help":          {run: c.help},
		"login":         {usage: "login <name> <password>", run: c.login},
		"register":      {usage: "register <name> <password> <teacher|student>", run: c.register},
		"logout":        {auth: true, run: c.logout},
		"whoami":        {auth: true, run: c.whoami},
		"list":          {auth: true, usage: "list [active|expired] [page]", run: c.list},
		"files":         {auth: true, usage: "files <experiment_id>", run: c.files},
		"notifications": {auth: true, run: c.notifications},

		"open":     {auth: true, roles: student, usage: "open <experiment_id>", run: c.open},
		"show":     {auth: true, roles: student, run: c.show},
		"answer":   {auth: true, roles: student, usage: "answer <n> <text>", run: c.answer},
		"code":     {auth: true, roles: student, usage: "code <n> <file>", run: c.code},
		"lang":     {auth: true, roles: student, usage: "lang <n> <cpp|python|java>", run: c.lang},
		"save":     {auth: true, roles: student, run: c.save},
		"submit":   {auth: true, roles: student, run: c.submit},
		"status":   {auth: true, roles: student, run: c.status},
		"close":    {auth: true, roles: student, run: c.closeCommand},
		"download": {auth: true, roles: student, usage: "download <name> [dir]", run: c.download},
		"results":  {auth: true, roles: student, usage: "results <experiment_id>", run: c.results},
		"history":  {auth: true, roles: student, usage: "history [page]", run: c.history},

		"create":       {auth: true, roles: teacher, usage: "create <file.json|yaml>", run: c.create},
		"edit":         {auth: true, roles: teacher, usage: "edit <experiment_id> <file.json|yaml>", run: c.edit},
		"delete":       {auth: true, roles: teacher, usage: "delete <experiment_id>", run: c.delete},
		"rm-file":      {auth: true, roles: teacher, usage: "rm-file <experiment_id> <name>", run: c.rmFile},
		"review":       {auth: true, roles: teacher, usage: "review <experiment_id> <student_id>", run: c.review},
		"export":       {auth: true, roles: teacher, usage: "export <experiment_id> [file.csv]", run: c.export},
		"notify":       {auth: true, roles: teacher, usage: "notify <title> | <content> [| id,id]", run: c.notify},
		"students":     {auth: true, roles: teacher, usage: "students [group_id]", run: c.students},
		"groups":       {auth: true, roles: teacher, run: c.groups},
		"new-group":    {auth: true, roles: teacher, usage: "new-group <name> <student_id>...", run: c.newGroup},
		"edit-group":   {auth: true, roles: teacher, usage: "edit-group <group_id> <name> [student_id]...", run: c.editGroup},
		"delete-group": {auth: true, roles: teacher, usage: "delete-group <group_id>", run: c.deleteGroup},
	}
}

func (c *Console) help(_ context.Context, _ []string) error {
	switch c.auth.Current().Role {
	case models.RoleTeacher:
		c.println(msgTeacherHelp)
	case models.RoleStudent:
		c.println(msgStudentHelp)
	}
	c.println(msgCommonHelp)
	return nil
}

func (c *Console) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}

	c.closeSession()

	s, err := c.auth.Login(ctx, c.api, args[0], args[1])
	if err != nil {
		return err
	}

	c.printf("Добро пожаловать, %s! Роль: %s\n", s.Username, s.Role)
	c.Navigate(nav.PathExperiments)
	c.startPolling(ctx)

	return nil
}

func (c *Console) register(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return errUsage
	}

	if err := c.auth.Register(ctx, c.api, args[0], args[1], args[2]); err != nil {
		return err
	}

	c.println("Регистрация прошла успешно, теперь войдите: login <name> <password>")
	return nil
}

func (c *Console) logout(ctx context.Context, _ []string) error {
	c.auth.Logout(ctx)
	return nil
}

func (c *Console) whoami(_ context.Context, _ []string) error {
	s := c.auth.Current()
	c.printf("%s (%s), id %s\n", s.Username, s.Role, s.UserID)
	return nil
}

func (c *Console) list(ctx context.Context, args []string) error {
	q := models.PageQuery{}
	for _, arg := range args {
		switch arg {
		case "active", "expired":
			q.Status = arg
		default:
			page, err := strconv.Atoi(arg)
			if err != nil || page < 1 {
				return errUsage
			}
			q.Page = page
		}
	}

	role := c.auth.Current().Role
	list, err := c.api.ListExperiments(ctx, role, q)
	if err != nil {
		return err
	}

	if len(list.Experiments) == 0 {
		c.println("Экспериментов нет.")
		return nil
	}

	c.table(func(w *tabwriter.Writer) {
		if role == models.RoleTeacher {
			_, _ = fmt.Fprintln(w, "ID\tНазвание\tДедлайн\tСтатус\tСтудентов")
			for _, e := range list.Experiments {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
					e.ExperimentID, e.Title, formatTime(e.Deadline), e.Status, len(e.StudentIDs))
			}
			return
		}

		_, _ = fmt.Fprintln(w, "ID\tНазвание\tДедлайн\tСтатус\tРабота")
		for _, e := range list.Experiments {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				e.ExperimentID, e.Title, formatTime(e.Deadline), e.Status, e.SubmissionStatus)
		}
	})
	c.printPagination(list.Pagination)

	return nil
}

func (c *Console) files(ctx context.Context, args []string) error {
	var experimentID string
	switch {
	case len(args) == 1:
		experimentID = args[0]
	case len(args) == 0 && c.current() != nil:
		experimentID = c.current().Experiment().ExperimentID
	default:
		return errUsage
	}

	names, err := c.api.ListFiles(ctx, experimentID)
	if err != nil {
		return err
	}

	if len(names) == 0 {
		c.println("Файлов нет.")
		return nil
	}
	for _, name := range names {
		c.printf("  %s\n", name)
	}
	return nil
}

func (c *Console) notifications(ctx context.Context, _ []string) error {
	s := c.auth.Current()

	var (
		list *client.NotificationList
		err  error
	)
	if s.Role == models.RoleTeacher {
		list, err = c.api.TeacherNotifications(ctx, models.PageQuery{})
	} else {
		list, err = c.api.StudentNotifications(ctx, s.UserID, models.PageQuery{})
	}
	if err != nil {
		return err
	}

	if len(list.Notifications) == 0 {
		c.println("Объявлений нет.")
		return nil
	}
	for _, n := range list.Notifications {
		c.printNotification(n)
	}
	return nil
}

func (c *Console) printNotification(n models.Notification) {
	mark := ""
	if n.IsImportant {
		mark = "[!] "
	}
	c.printf("%s%s %s: %s\n", mark, formatTime(n.CreatedAt), n.Title, n.Content)
}

func (c *Console) printPagination(p models.Pagination) {
	if p.Limit == 0 || p.Total <= p.Limit {
		return
	}
	pages := (p.Total + p.Limit - 1) / p.Limit
	c.printf("Страница %d из %d (всего %d)\n", p.Page, pages, p.Total)
}

func (c *Console) table(fill func(w *tabwriter.Writer)) {
	c.outMu.Lock()
	defer c.outMu.Unlock()

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fill(w)
	_ = w.Flush()
}

// questionIndex разбирает номер вопроса (с единицы).
func questionIndex(arg string, exp models.Experiment) (models.Question, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(exp.Questions) {
		return models.Question{}, fmt.Errorf("question number must be from 1 to %d", len(exp.Questions))
	}
	return exp.Questions[n-1], nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
