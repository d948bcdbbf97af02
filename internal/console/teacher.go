package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/smartfox/smartfox/internal/attachments"
	"github.com/smartfox/smartfox/internal/authoring"
	"github.com/smartfox/smartfox/internal/client"
	"github.com/smartfox/smartfox/internal/domain/models"
	"github.com/smartfox/smartfox/internal/events/sender"
	"github.com/smartfox/smartfox/internal/results"
)

// create создает эксперимент из JSON- или YAML-файла. Пути вложений считаются от каталога файла.
func (c *Console) create(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}

	doc, drafts, err := loadDocument(args[0])
	if err != nil {
		return err
	}

	files, release, err := c.newAttachments(args[0], doc, "", nil)
	if err != nil {
		return err
	}
	defer release()

	experimentID, err := authoring.NewWorkflow(c.api, c, c.log).Create(ctx, doc.Form, drafts, files)
	if err != nil {
		return err
	}

	c.printf("Эксперимент создан: %s (%d вопросов)\n", experimentID, len(drafts))
	c.printUploadErrors(files)

	return nil
}

// edit применяет файл к существующему эксперименту. Вопросы с question_id обновляются,
// вопросы без него добавляются, остальные удаляются. Вложения из файла догружаются
// к уже лежащим на сервере.
func (c *Console) edit(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	experimentID := args[0]

	exp, err := c.api.GetExperiment(ctx, models.RoleTeacher, experimentID)
	if err != nil {
		return err
	}

	doc, fromFile, err := loadDocument(args[1])
	if err != nil {
		return err
	}

	drafts, err := authoring.Merge(authoring.FromQuestions(exp.Questions), fromFile)
	if err != nil {
		return err
	}

	names, err := c.api.ListFiles(ctx, experimentID)
	if err != nil {
		return err
	}

	files, release, err := c.newAttachments(args[1], doc, experimentID, names)
	if err != nil {
		return err
	}
	defer release()

	removed := authoring.RemovedQuestions(exp.Questions, drafts)
	err = authoring.NewWorkflow(c.api, c, c.log).Update(ctx, experimentID, doc.Form, drafts, exp.Questions, files)
	if err != nil {
		return err
	}

	c.printf("Эксперимент %s обновлен (%d вопросов, удалено %d)\n", experimentID, len(drafts), len(removed))
	c.printUploadErrors(files)

	return nil
}

// rmFile удаляет файл эксперимента на сервере.
func (c *Console) rmFile(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	experimentID, name := args[0], args[1]

	names, err := c.api.ListFiles(ctx, experimentID)
	if err != nil {
		return err
	}

	files := attachments.NewManager(c.api, nil, c.log)
	defer func() {
		_ = files.Close()
	}()
	files.LoadRemote(experimentID, names)

	for _, f := range files.Files() {
		if f.Name != name {
			continue
		}
		if err = files.RemoveFile(ctx, f.ID); err != nil {
			return err
		}
		c.printf("Файл %s удален.\n", name)
		return nil
	}

	return fmt.Errorf("file %s: %w", name, attachments.ErrNotFound)
}

func loadDocument(path string) (*authoring.Document, []authoring.Draft, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read experiment file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return authoring.LoadYAMLDocument(data)
	}
	return authoring.LoadDocument(data)
}

// newAttachments собирает менеджер вложений документа path. remote — файлы, которые уже
// лежат на сервере эксперимента experimentID. release закрывает менеджер и удаляет превью.
func (c *Console) newAttachments(
	path string,
	doc *authoring.Document,
	experimentID string,
	remote []string,
) (*attachments.Manager, func(), error) {
	previews, err := attachments.NewTempPreviewer()
	if err != nil {
		return nil, nil, err
	}

	files := attachments.NewManager(c.api, previews, c.log)
	release := func() {
		_ = files.Close()
		_ = previews.Close()
	}
	if experimentID != "" {
		files.LoadRemote(experimentID, remote)
	}

	base := filepath.Dir(path)
	paths := make([]string, 0, len(doc.Attachments))
	for _, p := range doc.Attachments {
		if !filepath.IsAbs(p) {
			p = filepath.Join(base, p)
		}
		paths = append(paths, p)
	}
	if _, err = files.AddFiles(paths...); err != nil {
		release()
		return nil, nil, err
	}

	return files, release, nil
}

func (c *Console) printUploadErrors(files *attachments.Manager) {
	for _, f := range files.Files() {
		if f.Status == attachments.StatusError {
			c.printf("  не загружен %s: %s\n", f.Name, errorText(f.Err))
		}
	}
}

func (c *Console) delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}

	if err := authoring.NewWorkflow(c.api, c, c.log).Delete(ctx, args[0]); err != nil {
		return err
	}

	c.printf("Эксперимент %s удален.\n", args[0])
	return nil
}

func (c *Console) review(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}

	sub, err := c.api.StudentSubmission(ctx, args[0], args[1])
	if err != nil {
		return err
	}

	c.printf("%s, %s: %s, балл %d, отправлено %s\n",
		sub.StudentName, sub.Title, sub.Status, sub.TotalScore, formatTime(sub.SubmittedAt))
	for i, r := range sub.Results {
		c.printf("%d. [%s] %s\n   Ответ: %s\n   Балл: %d %s\n",
			i+1, r.Type, r.Content, strings.TrimSpace(r.Answer), r.Score, r.Feedback)
	}

	return nil
}

func (c *Console) export(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errUsage
	}

	exp, err := c.api.GetExperiment(ctx, models.RoleTeacher, args[0])
	if err != nil {
		return err
	}

	res, err := results.Collect(ctx, c.api, exp)
	if err != nil {
		return err
	}

	data, err := results.ExportCSV(res)
	if err != nil {
		return err
	}

	if len(args) == 1 {
		c.printf("%s", data)
		return nil
	}

	if err = os.WriteFile(args[1], data, 0o644); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	c.printf("Результаты %d студентов сохранены в %s\n", len(res.Leaderboard)+len(res.Missing), args[1])

	return nil
}

// notify: notify [!]<title> | <content> [| id,id]. Восклицательный знак помечает объявление важным.
func (c *Console) notify(ctx context.Context, args []string) error {
	parts := strings.Split(joinArgs(args), "|")
	if len(parts) < 2 || len(parts) > 3 {
		return errUsage
	}

	opts := &sender.Options{}
	title := strings.TrimSpace(parts[0])
	if rest, ok := strings.CutPrefix(title, "!"); ok {
		opts.Important = true
		title = strings.TrimSpace(rest)
	}

	var users []string
	if len(parts) == 3 {
		for _, id := range strings.Split(parts[2], ",") {
			if id = strings.TrimSpace(id); id != "" {
				users = append(users, id)
			}
		}
	}

	n, err := c.sender.Message(ctx, title, parts[1], users, opts)
	if errors.Is(err, sender.ErrEmptyMessage) {
		return errUsage
	}
	if err != nil {
		return err
	}

	c.log.Debug("notification sent", slog.String("title", n.Title), slog.Int("users", len(n.Users)))
	c.println("Объявление отправлено.")

	return nil
}

func (c *Console) students(ctx context.Context, args []string) error {
	if len(args) > 1 {
		return errUsage
	}

	q := models.PageQuery{Limit: 100}
	if len(args) == 1 {
		q.GroupID = args[0]
	}

	list, err := c.api.ListStudents(ctx, q)
	if err != nil {
		return err
	}

	if len(list.Students) == 0 {
		c.println("Студентов нет.")
		return nil
	}

	c.table(func(w *tabwriter.Writer) {
		_, _ = fmt.Fprintln(w, "ID\tИмя\tГруппы")
		for _, s := range list.Students {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", s.UserID, s.Username, strings.Join(models.Strings(s.GroupIDs), ","))
		}
	})
	c.printPagination(list.Pagination)

	return nil
}

func (c *Console) groups(ctx context.Context, _ []string) error {
	list, err := c.api.ListGroups(ctx, models.PageQuery{Limit: 100})
	if err != nil {
		return err
	}

	if len(list.Groups) == 0 {
		c.println("Групп нет.")
		return nil
	}

	c.table(func(w *tabwriter.Writer) {
		_, _ = fmt.Fprintln(w, "ID\tНазвание\tСтудентов\tСостав")
		for _, g := range list.Groups {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
				g.GroupID, g.GroupName, g.StudentCount, strings.Join(models.Strings(g.StudentIDs), ","))
		}
	})

	return nil
}

func (c *Console) newGroup(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errUsage
	}

	in := client.GroupInput{GroupName: args[0], StudentIDs: args[1:]}
	if err := c.api.CreateGroup(ctx, in); err != nil {
		return err
	}

	c.printf("Группа %s создана (%d студентов).\n", in.GroupName, len(in.StudentIDs))
	return nil
}

func (c *Console) editGroup(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errUsage
	}

	in := client.GroupInput{GroupName: args[1], StudentIDs: args[2:]}
	if in.StudentIDs == nil {
		in.StudentIDs = []string{}
	}
	if err := c.api.UpdateGroup(ctx, args[0], in); err != nil {
		return err
	}

	c.printf("Группа %s обновлена (%d студентов).\n", in.GroupName, len(in.StudentIDs))
	return nil
}

func (c *Console) deleteGroup(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}

	if err := c.api.DeleteGroup(ctx, args[0]); err != nil {
		return err
	}

	c.printf("Группа %s удалена.\n", args[0])
	return nil
}
