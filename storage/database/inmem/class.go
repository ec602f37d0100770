package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/academia/core/class"
	"github.com/trezcool/academia/core/session"
)

type classRepository struct {
	db *DB
}

func NewClassRepository(db *DB) class.Repository {
	return &classRepository{db: db}
}

func (repo *classRepository) CreateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	err := repo.db.update(ctx, func(t *tables) error {
		if sess, ok := t.sessions[cls.SessionID]; !ok || sess.SchoolID != cls.SchoolID {
			return session.NotFound(cls.SchoolID, cls.SessionID)
		}
		for _, c := range t.classes {
			if c.SchoolID == cls.SchoolID && c.SessionID == cls.SessionID && strings.EqualFold(c.Name, cls.Name) {
				return class.NameExists(cls.SchoolID, cls.SessionID, cls.Name)
			}
		}
		cls.ID = uuid.NewString()
		t.classes[cls.ID] = cls
		return nil
	})
	return cls, err
}

func (repo *classRepository) GetClass(ctx context.Context, schoolID, id string) (class.Class, error) {
	var cls class.Class
	err := repo.db.view(ctx, func(t *tables) error {
		c, ok := t.classes[id]
		if !ok || c.SchoolID != schoolID {
			return class.NotFound(schoolID, id)
		}
		cls = c
		return nil
	})
	return cls, err
}

func (repo *classRepository) GetClassByName(ctx context.Context, schoolID, sessionID, name string) (class.Class, error) {
	var cls class.Class
	err := repo.db.view(ctx, func(t *tables) error {
		for _, c := range t.classes {
			if c.SchoolID == schoolID && c.SessionID == sessionID && strings.EqualFold(c.Name, name) {
				cls = c
				return nil
			}
		}
		return class.NotFound(schoolID, name)
	})
	return cls, err
}

func (repo *classRepository) QueryClasses(ctx context.Context, schoolID, sessionID string) ([]class.Class, error) {
	var classes []class.Class
	err := repo.db.view(ctx, func(t *tables) error {
		for _, c := range t.classes {
			if c.SchoolID == schoolID && c.SessionID == sessionID {
				classes = append(classes, c)
			}
		}
		return nil
	})
	sort.Slice(classes, func(i, j int) bool { return classes[i].Name < classes[j].Name })
	return classes, err
}

func (repo *classRepository) DeleteClass(ctx context.Context, schoolID, id string) error {
	return repo.db.update(ctx, func(t *tables) error {
		if c, ok := t.classes[id]; !ok || c.SchoolID != schoolID {
			return class.NotFound(schoolID, id)
		}
		for _, e := range t.enrollments {
			if e.ClassID == id {
				return class.InUse(schoolID, id)
			}
		}
		for _, p := range t.promotions {
			if p.FromClassID == id || p.ToClassID == id {
				return class.InUse(schoolID, id)
			}
		}
		delete(t.classes, id)
		return nil
	})
}
