package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/academia/core/promotion"
)

type promotionRepository struct {
	db *DB
}

func NewPromotionRepository(db *DB) promotion.Repository {
	return &promotionRepository{db: db}
}

func (repo *promotionRepository) CreatePromotion(ctx context.Context, p promotion.Promotion) (promotion.Promotion, error) {
	err := repo.db.update(ctx, func(t *tables) error {
		for _, o := range t.promotions {
			if o.SchoolID == p.SchoolID && o.FromSessionID == p.FromSessionID && o.StudentPAN == p.StudentPAN {
				return promotion.Exists(p.SchoolID, p.FromSessionID, p.StudentPAN)
			}
		}
		p.ID = uuid.NewString()
		t.promotions[p.ID] = p
		return nil
	})
	return p, err
}

func (repo *promotionRepository) GetPromotion(ctx context.Context, schoolID, id string) (promotion.Promotion, error) {
	var p promotion.Promotion
	err := repo.db.view(ctx, func(t *tables) error {
		o, ok := t.promotions[id]
		if !ok || o.SchoolID != schoolID {
			return promotion.NotFound(schoolID, id)
		}
		p = o
		return nil
	})
	return p, err
}

func (repo *promotionRepository) FindPromotion(ctx context.Context, schoolID, fromSessionID, pan string) (promotion.Promotion, error) {
	var p promotion.Promotion
	err := repo.db.view(ctx, func(t *tables) error {
		for _, o := range t.promotions {
			if o.SchoolID == schoolID && o.FromSessionID == fromSessionID && o.StudentPAN == pan {
				p = o
				return nil
			}
		}
		return promotion.DecisionNotFound(schoolID, fromSessionID, pan)
	})
	return p, err
}

func (repo *promotionRepository) QueryPromotions(ctx context.Context, schoolID string, filter promotion.QueryFilter) ([]promotion.Promotion, error) {
	var ps []promotion.Promotion
	err := repo.db.view(ctx, func(t *tables) error {
		for _, o := range t.promotions {
			if o.SchoolID != schoolID ||
				(filter.FromSessionID != "" && o.FromSessionID != filter.FromSessionID) ||
				(filter.StudentPAN != "" && o.StudentPAN != filter.StudentPAN) ||
				(filter.Status != "" && o.Status != filter.Status) {
				continue
			}
			ps = append(ps, o)
		}
		return nil
	})
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].StudentPAN != ps[j].StudentPAN {
			return ps[i].StudentPAN < ps[j].StudentPAN
		}
		return ps[i].CreatedAt.Before(ps[j].CreatedAt)
	})
	return ps, err
}

func (repo *promotionRepository) UpdatePromotion(ctx context.Context, p promotion.Promotion) error {
	return repo.db.update(ctx, func(t *tables) error {
		o, ok := t.promotions[p.ID]
		if !ok || o.SchoolID != p.SchoolID {
			return promotion.NotFound(p.SchoolID, p.ID)
		}
		o.ToClassID = p.ToClassID
		o.ToSessionID = p.ToSessionID
		o.AssignedBy = p.AssignedBy
		o.Status = p.Status
		o.Remarks = p.Remarks
		o.IsGraduated = p.IsGraduated
		o.IsDetained = p.IsDetained
		o.ProcessedAt = p.ProcessedAt
		o.UpdatedAt = p.UpdatedAt
		t.promotions[p.ID] = o
		return nil
	})
}

func (repo *promotionRepository) DeletePromotion(ctx context.Context, schoolID, id string) error {
	return repo.db.update(ctx, func(t *tables) error {
		if o, ok := t.promotions[id]; !ok || o.SchoolID != schoolID {
			return promotion.NotFound(schoolID, id)
		}
		delete(t.promotions, id)
		return nil
	})
}
