package sqlxrepos

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core/promotion"
)

const promotionColumns = `id, student_pan, school_id, from_class_id, from_session_id, to_class_id, to_session_id,
	assigned_by, status, remarks, is_graduated, is_detained, processed_at, created_at, updated_at`

type promotionRow struct {
	ID            string      `db:"id"`
	StudentPAN    string      `db:"student_pan"`
	SchoolID      string      `db:"school_id"`
	FromClassID   string      `db:"from_class_id"`
	FromSessionID string      `db:"from_session_id"`
	ToClassID     null.String `db:"to_class_id"`
	ToSessionID   null.String `db:"to_session_id"`
	AssignedBy    string      `db:"assigned_by"`
	Status        string      `db:"status"`
	Remarks       string      `db:"remarks"`
	IsGraduated   bool        `db:"is_graduated"`
	IsDetained    bool        `db:"is_detained"`
	ProcessedAt   null.Time   `db:"processed_at"`
	CreatedAt     time.Time   `db:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at"`
}

func newPromotionRow(p promotion.Promotion) promotionRow {
	return promotionRow{
		ID:            p.ID,
		StudentPAN:    p.StudentPAN,
		SchoolID:      p.SchoolID,
		FromClassID:   p.FromClassID,
		FromSessionID: p.FromSessionID,
		ToClassID:     null.NewString(p.ToClassID, p.ToClassID != ""),
		ToSessionID:   null.NewString(p.ToSessionID, p.ToSessionID != ""),
		AssignedBy:    p.AssignedBy,
		Status:        string(p.Status),
		Remarks:       p.Remarks,
		IsGraduated:   p.IsGraduated,
		IsDetained:    p.IsDetained,
		ProcessedAt:   null.TimeFromPtr(p.ProcessedAt),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func (r promotionRow) toPromotion() promotion.Promotion {
	p := promotion.Promotion{
		ID:            r.ID,
		StudentPAN:    r.StudentPAN,
		SchoolID:      r.SchoolID,
		FromClassID:   r.FromClassID,
		FromSessionID: r.FromSessionID,
		ToClassID:     r.ToClassID.String,
		ToSessionID:   r.ToSessionID.String,
		AssignedBy:    r.AssignedBy,
		Status:        promotion.Status(r.Status),
		Remarks:       r.Remarks,
		IsGraduated:   r.IsGraduated,
		IsDetained:    r.IsDetained,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
	if r.ProcessedAt.Valid {
		t := r.ProcessedAt.Time.UTC()
		p.ProcessedAt = &t
	}
	return p
}

type promotionRepository struct {
	db *DB
}

func NewPromotionRepository(db *DB) promotion.Repository {
	return &promotionRepository{db: db}
}

func (repo *promotionRepository) CreatePromotion(ctx context.Context, p promotion.Promotion) (promotion.Promotion, error) {
	p.ID = uuid.NewString()
	const q = `INSERT INTO promotion (` + promotionColumns + `) VALUES (
		:id, :student_pan, :school_id, :from_class_id, :from_session_id, :to_class_id, :to_session_id,
		:assigned_by, :status, :remarks, :is_graduated, :is_detained, :processed_at, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.db.exec(ctx), q, newPromotionRow(p)); err != nil {
		return promotion.Promotion{}, violation(err, "inserting promotion", map[string]error{
			"promotion_student_session_school_key": promotion.Exists(p.SchoolID, p.FromSessionID, p.StudentPAN),
		})
	}
	return p, nil
}

func (repo *promotionRepository) GetPromotion(ctx context.Context, schoolID, id string) (promotion.Promotion, error) {
	var row promotionRow
	const q = `SELECT ` + promotionColumns + ` FROM promotion WHERE school_id = $1 AND id = $2`
	if err := sqlx.GetContext(ctx, repo.db.exec(ctx), &row, q, schoolID, id); err != nil {
		return promotion.Promotion{}, notFound(err, promotion.NotFound(schoolID, id), "selecting promotion")
	}
	return row.toPromotion(), nil
}

func (repo *promotionRepository) FindPromotion(ctx context.Context, schoolID, fromSessionID, pan string) (promotion.Promotion, error) {
	var row promotionRow
	const q = `SELECT ` + promotionColumns + ` FROM promotion WHERE school_id = $1 AND from_session_id = $2 AND student_pan = $3`
	if err := sqlx.GetContext(ctx, repo.db.exec(ctx), &row, q, schoolID, fromSessionID, pan); err != nil {
		return promotion.Promotion{}, notFound(err, promotion.DecisionNotFound(schoolID, fromSessionID, pan), "selecting promotion")
	}
	return row.toPromotion(), nil
}

func (repo *promotionRepository) QueryPromotions(ctx context.Context, schoolID string, filter promotion.QueryFilter) ([]promotion.Promotion, error) {
	where := []string{"school_id = $1"}
	args := []interface{}{schoolID}
	for col, val := range map[string]string{
		"from_session_id": filter.FromSessionID,
		"student_pan":     filter.StudentPAN,
		"status":          string(filter.Status),
	} {
		if val != "" {
			args = append(args, val)
			where = append(where, col+" = $"+strconv.Itoa(len(args)))
		}
	}
	q := `SELECT ` + promotionColumns + ` FROM promotion WHERE ` + strings.Join(where, " AND ") + ` ORDER BY student_pan, created_at`

	var rows []promotionRow
	if err := sqlx.SelectContext(ctx, repo.db.exec(ctx), &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting promotions")
	}
	ps := make([]promotion.Promotion, 0, len(rows))
	for _, row := range rows {
		ps = append(ps, row.toPromotion())
	}
	return ps, nil
}

func (repo *promotionRepository) UpdatePromotion(ctx context.Context, p promotion.Promotion) error {
	const q = `UPDATE promotion SET
		to_class_id = :to_class_id, to_session_id = :to_session_id, assigned_by = :assigned_by, status = :status,
		remarks = :remarks, is_graduated = :is_graduated, is_detained = :is_detained,
		processed_at = :processed_at, updated_at = :updated_at
		WHERE school_id = :school_id AND id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.db.exec(ctx), q, newPromotionRow(p))
	if err != nil {
		return errors.Wrap(err, "updating promotion")
	}
	return checkAffected(res, promotion.NotFound(p.SchoolID, p.ID), "updating promotion")
}

func (repo *promotionRepository) DeletePromotion(ctx context.Context, schoolID, id string) error {
	const q = `DELETE FROM promotion WHERE school_id = $1 AND id = $2`
	res, err := repo.db.exec(ctx).ExecContext(ctx, q, schoolID, id)
	if err != nil {
		return notFound(err, promotion.NotFound(schoolID, id), "deleting promotion")
	}
	return checkAffected(res, promotion.NotFound(schoolID, id), "deleting promotion")
}
