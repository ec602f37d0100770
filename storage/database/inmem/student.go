package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/trezcool/academia/core/school"
	"github.com/trezcool/academia/core/student"
)

type studentRepository struct {
	db *DB
}

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) CreateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	err := repo.db.update(ctx, func(t *tables) error {
		if _, ok := t.schools[std.SchoolID]; !ok {
			return school.NotFound(std.SchoolID)
		}
		if _, ok := t.students[std.PAN]; ok {
			return student.PANExists(std.PAN)
		}
		t.students[std.PAN] = std
		return nil
	})
	return std, err
}

func (repo *studentRepository) GetStudent(ctx context.Context, pan string) (student.Student, error) {
	var std student.Student
	err := repo.db.view(ctx, func(t *tables) error {
		var ok bool
		if std, ok = t.students[pan]; !ok {
			return student.NotFound(pan)
		}
		return nil
	})
	return std, err
}

func (repo *studentRepository) QueryStudents(ctx context.Context, schoolID string, filter student.QueryFilter) ([]student.Student, error) {
	var students []student.Student
	err := repo.db.view(ctx, func(t *tables) error {
		for _, std := range t.students {
			if std.SchoolID != schoolID {
				continue
			}
			if filter.Status != "" && std.Status != filter.Status {
				continue
			}
			if filter.Search != "" &&
				!strings.Contains(strings.ToLower(std.PAN), filter.Search) &&
				!strings.Contains(strings.ToLower(std.Name), filter.Search) {
				continue
			}
			students = append(students, std)
		}
		return nil
	})
	sort.Slice(students, func(i, j int) bool { return students[i].PAN < students[j].PAN })
	return students, err
}

func (repo *studentRepository) UpdateStudentStatus(ctx context.Context, pan string, status student.Status, updatedAt time.Time) error {
	return repo.db.update(ctx, func(t *tables) error {
		std, ok := t.students[pan]
		if !ok {
			return student.NotFound(pan)
		}
		std.Status = status
		std.UpdatedAt = updatedAt
		t.students[pan] = std
		return nil
	})
}
