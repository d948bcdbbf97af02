package mockapi

import (
	"fmt"
	"strconv"
	"time"

	"github.com/smartfox/smartfox/internal/domain/models"
)

// Учетные записи демо-данных
const (
	SeedTeacher         = "teacher"
	SeedTeacherPassword = "teacher123"
	SeedStudent         = "student"
	SeedStudentPassword = "student123"
)

// Seed наполняет хранилище демо-данными: преподаватель, два студента,
// группа и один эксперимент с вопросами всех типов.
func Seed(s *Store) error {
	teacher, err := s.Register(SeedTeacher, SeedTeacherPassword, models.RoleTeacher)
	if err != nil {
		return fmt.Errorf("failed to seed teacher: %w", err)
	}

	var studentIDs []string
	for _, name := range []string{SeedStudent, "student2"} {
		u, err := s.Register(name, SeedStudentPassword, models.RoleStudent)
		if err != nil {
			return fmt.Errorf("failed to seed student %s: %w", name, err)
		}
		studentIDs = append(studentIDs, strconv.Itoa(u.ID))
	}

	if _, err = s.SaveGroup("", "Group 1", studentIDs); err != nil {
		return fmt.Errorf("failed to seed group: %w", err)
	}

	owner := &Claims{Sub: strconv.Itoa(teacher.ID), Name: teacher.Name, Role: teacher.Role}
	_, err = s.CreateExperiment(owner, models.ExperimentInput{
		Title:       "Intro",
		Description: "Warm-up experiment",
		Deadline:    s.now().Add(7 * 24 * time.Hour),
		StudentIDs:  studentIDs,
		Questions: []models.QuestionInput{
			{
				Type:          models.QuestionChoice,
				Content:       "2 + 2 = ?",
				Score:         10,
				Options:       []string{"3", "4", "5", "22"},
				CorrectAnswer: "4",
			},
			{
				Type:          models.QuestionBlank,
				Content:       "The capital of France is ___",
				Score:         10,
				CorrectAnswer: "Paris",
			},
			{
				Type:    models.QuestionCode,
				Content: "Print the sum of two integers",
				Score:   20,
				TestCases: []models.TestCase{
					{Input: "1 2", ExpectedOutput: "3"},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to seed experiment: %w", err)
	}

	return nil
}
