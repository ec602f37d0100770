package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/academia/core/class"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/student"
)

type enrollmentRepository struct {
	db *DB
}

func NewEnrollmentRepository(db *DB) enrollment.Repository {
	return &enrollmentRepository{db: db}
}

func (repo *enrollmentRepository) CreateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	err := repo.db.update(ctx, func(t *tables) error {
		if _, ok := t.students[enr.StudentPAN]; !ok {
			return student.NotFound(enr.StudentPAN)
		}
		if c, ok := t.classes[enr.ClassID]; !ok || c.SchoolID != enr.SchoolID {
			return class.NotFound(enr.SchoolID, enr.ClassID)
		}
		for _, e := range t.enrollments {
			if e.StudentPAN == enr.StudentPAN && e.SchoolID == enr.SchoolID && e.SessionID == enr.SessionID {
				return enrollment.Duplicate(enr.SchoolID, enr.SessionID, enr.StudentPAN)
			}
		}
		enr.ID = uuid.NewString()
		t.enrollments[enr.ID] = enr
		return nil
	})
	return enr, err
}

func (repo *enrollmentRepository) GetEnrollment(ctx context.Context, schoolID, id string) (enrollment.Enrollment, error) {
	var enr enrollment.Enrollment
	err := repo.db.view(ctx, func(t *tables) error {
		e, ok := t.enrollments[id]
		if !ok || e.SchoolID != schoolID {
			return enrollment.IDNotFound(schoolID, id)
		}
		enr = e
		return nil
	})
	return enr, err
}

func (repo *enrollmentRepository) FindEnrollment(ctx context.Context, schoolID, sessionID, pan string) (enrollment.Enrollment, error) {
	var enr enrollment.Enrollment
	err := repo.db.view(ctx, func(t *tables) error {
		for _, e := range t.enrollments {
			if e.SchoolID == schoolID && e.SessionID == sessionID && e.StudentPAN == pan {
				enr = e
				return nil
			}
		}
		return enrollment.NotFound(schoolID, sessionID, pan)
	})
	return enr, err
}

func (repo *enrollmentRepository) QueryEnrollments(ctx context.Context, schoolID string, filter enrollment.QueryFilter) ([]enrollment.Enrollment, error) {
	var enrs []enrollment.Enrollment
	err := repo.db.view(ctx, func(t *tables) error {
		for _, e := range t.enrollments {
			if e.SchoolID != schoolID ||
				(filter.SessionID != "" && e.SessionID != filter.SessionID) ||
				(filter.ClassID != "" && e.ClassID != filter.ClassID) ||
				(filter.StudentPAN != "" && e.StudentPAN != filter.StudentPAN) {
				continue
			}
			enrs = append(enrs, e)
		}
		return nil
	})
	sort.Slice(enrs, func(i, j int) bool {
		if enrs[i].StudentPAN != enrs[j].StudentPAN {
			return enrs[i].StudentPAN < enrs[j].StudentPAN
		}
		return enrs[i].CreatedAt.Before(enrs[j].CreatedAt)
	})
	return enrs, err
}

func (repo *enrollmentRepository) DeleteEnrollment(ctx context.Context, schoolID, id string) error {
	return repo.db.update(ctx, func(t *tables) error {
		enr, ok := t.enrollments[id]
		if !ok || enr.SchoolID != schoolID {
			return enrollment.IDNotFound(schoolID, id)
		}
		for _, p := range t.promotions {
			if p.SchoolID == schoolID && p.StudentPAN == enr.StudentPAN && p.FromSessionID == enr.SessionID {
				return enrollment.InUse(schoolID, id)
			}
		}
		delete(t.enrollments, id)
		return nil
	})
}
