package results

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/smartfox/smartfox/internal/client"
	"github.com/smartfox/smartfox/internal/domain/models"
)

// Entry — запись в таблице результатов эксперимента.
type Entry struct {
	Submission   models.Submission
	Score        int
	CorrectCount int
	Rank         int
}

// Results содержит результаты эксперимента.
type Results struct {
	ExperimentID string
	Title        string
	MaxScore     int
	Leaderboard  []Entry
	Missing      []string // студенты без отправленной работы
}

// Build собирает таблицу результатов по отправленным работам.
// Работы с большим баллом выше, при равенстве выше отправленная раньше.
func Build(exp *models.Experiment, subs []models.Submission) *Results {
	res := &Results{
		ExperimentID: exp.ExperimentID,
		Title:        exp.Title,
		Leaderboard:  make([]Entry, 0, len(subs)),
	}
	for _, q := range exp.Questions {
		res.MaxScore += q.Score
	}

	for _, sub := range subs {
		correct := 0
		for _, r := range sub.Results {
			if r.Score > 0 {
				correct++
			}
		}

		res.Leaderboard = append(res.Leaderboard, Entry{
			Submission:   sub,
			Score:        sub.TotalScore,
			CorrectCount: correct,
		})
	}

	sort.SliceStable(res.Leaderboard, func(i, j int) bool {
		a, b := res.Leaderboard[i], res.Leaderboard[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Submission.SubmittedAt.Before(b.Submission.SubmittedAt)
	})

	for i := range res.Leaderboard {
		res.Leaderboard[i].Rank = i + 1
	}

	return res
}

// Collect запрашивает работы всех назначенных студентов и собирает результаты.
// Студенты, у которых работы нет (404), попадают в Missing.
func Collect(ctx context.Context, api client.SubmissionAPI, exp *models.Experiment) (*Results, error) {
	subs := make([]models.Submission, 0, len(exp.StudentIDs))
	var missing []string

	for _, studentID := range exp.StudentIDs {
		sub, err := api.StudentSubmission(ctx, exp.ExperimentID, studentID)
		if err != nil {
			var apiErr *client.APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
				missing = append(missing, studentID)
				continue
			}
			return nil, fmt.Errorf("failed to get submission of student %s: %w", studentID, err)
		}
		subs = append(subs, *sub)
	}

	res := Build(exp, subs)
	res.Missing = missing

	return res, nil
}

// ExportCSV экспортирует результаты в формате CSV.
func ExportCSV(res *Results) ([]byte, error) {
	var buf bytes.Buffer

	w := csv.NewWriter(&buf)
	_ = w.Write(
		[]string{
			"Rank",
			"StudentID",
			"StudentName",
			"Status",
			"Score",
			"MaxScore",
			"CorrectCount",
			"SubmittedAt",
		},
	)

	for _, e := range res.Leaderboard {
		_ = w.Write([]string{
			strconv.Itoa(e.Rank),
			e.Submission.StudentID,
			e.Submission.StudentName,
			string(e.Submission.Status),
			strconv.Itoa(e.Score),
			strconv.Itoa(res.MaxScore),
			strconv.Itoa(e.CorrectCount),
			e.Submission.SubmittedAt.Format("2006-01-02 15:04:05"),
		})
	}

	for _, studentID := range res.Missing {
		_ = w.Write([]string{"", studentID, "", string(models.StatusNotStarted), "0", strconv.Itoa(res.MaxScore), "0", ""})
	}

	w.Flush()

	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush buffer: %w", err)
	}

	return buf.Bytes(), nil
}
