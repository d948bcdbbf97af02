package console

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/smartfox/smartfox/internal/attempt"
	"github.com/smartfox/smartfox/internal/domain/models"
	"github.com/smartfox/smartfox/internal/nav"
)

// AnswerLetters — буквы для вариантов ответа (A-F для до 6 вариантов).
var AnswerLetters = []string{"A", "B", "C", "D", "E", "F"}

// LetterToIndex преобразует букву в индекс (A=0, B=1, ...).
func LetterToIndex(letter string) (int, bool) {
	for i, l := range AnswerLetters {
		if strings.EqualFold(l, letter) {
			return i, true
		}
	}

	return -1, false
}

// IndexToLetter преобразует индекс в букву (0=A, 1=B, ...).
func IndexToLetter(idx int) string {
	if idx >= 0 && idx < len(AnswerLetters) {
		return AnswerLetters[idx]
	}

	return ""
}

func (c *Console) open(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}

	c.closeSession()

	session, err := attempt.Load(ctx, c.api, args[0],
		attempt.WithInterval(c.opts.AutosaveInterval),
		attempt.WithNavigator(c),
		attempt.WithLogger(c.log),
	)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.session = session
	c.mu.Unlock()

	exp := session.Experiment()
	c.Navigate(nav.ExperimentPath(exp.ExperimentID))
	session.Start(ctx)

	c.printf("%s\n%s\nДедлайн: %s\n", exp.Title, exp.Description, formatTime(exp.Deadline))
	if len(exp.Attachments) > 0 {
		c.printf("Файлов: %d (files, download <name>)\n", len(exp.Attachments))
	}
	if !session.Active() {
		c.printf("%s Результат: results %s\n", msgFinalized, exp.ExperimentID)
	} else if !session.CanSubmit(c.now()) {
		c.println(msgDeadlinePassed)
	}

	return c.show(ctx, nil)
}

func (c *Console) show(_ context.Context, _ []string) error {
	session := c.current()
	if session == nil {
		c.println(msgNoSession)
		return nil
	}

	exp := session.Experiment()
	for i, q := range exp.Questions {
		ans, _ := session.Store().Answer(q.QuestionID)

		c.printf("\n%d. [%s, %d] %s\n", i+1, q.Type, q.Score, q.Content)
		if q.ImageURL != "" {
			c.printf("   Изображение: %s\n", q.ImageURL)
		}

		switch q.Type {
		case models.QuestionChoice:
			for j, opt := range q.Options {
				mark := " "
				if ans.Value != "" && ans.Value == opt {
					mark = "*"
				}
				c.printf("  %s %s) %s\n", mark, IndexToLetter(j), opt)
			}
		case models.QuestionBlank:
			c.printf("   Ответ: %s\n", ans.Value)
		case models.QuestionCode:
			c.printf("   Язык: %s\n", ans.Language)
			if ans.Value != "" {
				c.printf("   Код:\n%s\n", indent(ans.Value))
			}
		}
	}

	return nil
}

func (c *Console) answer(_ context.Context, args []string) error {
	if len(args) < 2 {
		return errUsage
	}

	session := c.current()
	if session == nil {
		c.println(msgNoSession)
		return nil
	}

	q, err := questionIndex(args[0], session.Experiment())
	if err != nil {
		return err
	}

	value := joinArgs(args[1:])
	if q.Type == models.QuestionChoice {
		if idx, ok := LetterToIndex(value); ok && idx < len(q.Options) {
			value = q.Options[idx]
		}
	}

	return session.SetAnswer(q.QuestionID, value)
}

func (c *Console) code(_ context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}

	session := c.current()
	if session == nil {
		c.println(msgNoSession)
		return nil
	}

	q, err := questionIndex(args[0], session.Experiment())
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("failed to read code: %w", err)
	}

	return session.SetAnswer(q.QuestionID, string(data))
}

func (c *Console) lang(_ context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}

	session := c.current()
	if session == nil {
		c.println(msgNoSession)
		return nil
	}

	q, err := questionIndex(args[0], session.Experiment())
	if err != nil {
		return err
	}

	return session.SetLanguage(q.QuestionID, strings.ToLower(args[1]))
}

func (c *Console) save(ctx context.Context, _ []string) error {
	session := c.current()
	if session == nil {
		c.println(msgNoSession)
		return nil
	}

	if err := session.Save(ctx); err != nil {
		return err
	}

	c.println(msgSaved)
	return nil
}

func (c *Console) submit(ctx context.Context, _ []string) error {
	session := c.current()
	if session == nil {
		c.println(msgNoSession)
		return nil
	}

	if err := session.Submit(ctx); err != nil {
		return err
	}

	c.println(msgSubmitted)
	return nil
}

func (c *Console) status(_ context.Context, _ []string) error {
	session := c.current()
	if session == nil {
		c.println(msgNoSession)
		return nil
	}

	st := session.Status()
	c.printf("Состояние: %s, автосохранение: %s\n", st.State, st.Autosave)
	if st.Dirty {
		c.println("Есть несохраненные изменения.")
	}
	if !st.LastSaved.IsZero() {
		c.printf("Последнее сохранение: %s\n", st.LastSaved.Format("15:04:05"))
	}
	if st.Err != nil {
		c.printf("Последняя ошибка: %s\n", st.Err)
	}

	return nil
}

func (c *Console) closeCommand(_ context.Context, _ []string) error {
	c.Navigate(nav.PathExperiments)
	return nil
}

func (c *Console) download(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errUsage
	}

	session := c.current()
	if session == nil {
		c.println(msgNoSession)
		return nil
	}

	dir := "."
	if len(args) == 2 {
		dir = args[1]
	}

	data, err := c.api.DownloadFile(ctx, session.Experiment().ExperimentID, args[0])
	if err != nil {
		return err
	}

	path := filepath.Join(dir, filepath.Base(args[0]))
	if err = os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	c.printf("Сохранено в %s (%d байт)\n", path, len(data))
	return nil
}

func (c *Console) results(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	return c.showResults(ctx, args[0])
}

func (c *Console) showResults(ctx context.Context, experimentID string) error {
	exp, err := c.api.GetExperiment(ctx, models.RoleStudent, experimentID)
	if err != nil {
		return err
	}

	c.printf("%s: %s\n", exp.Title, exp.SubmissionStatus)
	if exp.TotalScore != "" {
		c.printf("Итоговый балл: %s\n", exp.TotalScore)
	}

	for i, q := range exp.Questions {
		answer := q.StudentAnswer
		if q.Type == models.QuestionCode {
			answer = q.StudentCode
		}

		c.printf("%d. %s\n   Ответ: %s\n", i+1, q.Content, strings.TrimSpace(answer))
		if q.Feedback != "" {
			c.printf("   Отзыв: %s\n", q.Feedback)
		}
		if q.Explanation != "" {
			c.printf("   Пояснение: %s\n", q.Explanation)
		}
	}

	return nil
}

func (c *Console) history(ctx context.Context, args []string) error {
	q := models.PageQuery{}
	if len(args) == 1 {
		page, err := strconv.Atoi(args[0])
		if err != nil || page < 1 {
			return errUsage
		}
		q.Page = page
	}

	list, err := c.api.ListSubmissions(ctx, q)
	if err != nil {
		return err
	}

	if len(list.Submissions) == 0 {
		c.println("Отправленных работ нет.")
		return nil
	}

	c.table(func(w *tabwriter.Writer) {
		_, _ = fmt.Fprintln(w, "Эксперимент\tНазвание\tСтатус\tБалл\tОтправлено")
		for _, s := range list.Submissions {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				s.ExperimentID, s.Title, s.Status, s.TotalScore, formatTime(s.SubmittedAt))
		}
	})
	c.printPagination(list.Pagination)

	return nil
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "     " + l
	}
	return strings.Join(lines, "\n")
}
