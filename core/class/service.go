package class

import (
	"context"
	"sort"
	"strings"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/session"
)

var (
	// errors
	ErrNotFound   = errors.New("class not found")
	ErrNameExists = errors.New("a class with this name already exists in the session")
	ErrInUse      = errors.New("class is still referenced by enrollments or promotions")
)

// minSuggestionRatio is the similarity under which a class name is not suggested.
const minSuggestionRatio = 0.6

type (
	Repository interface {
		CreateClass(ctx context.Context, cls Class) (Class, error)
		GetClass(ctx context.Context, schoolID, id string) (Class, error)
		// GetClassByName matches name case-insensitively.
		GetClassByName(ctx context.Context, schoolID, sessionID, name string) (Class, error)
		// QueryClasses returns the session's classes ordered by name.
		QueryClasses(ctx context.Context, schoolID, sessionID string) ([]Class, error)
		// DeleteClass fails with ErrInUse while enrollments or promotions reference the class.
		DeleteClass(ctx context.Context, schoolID, id string) error
	}

	// Service is the class registry of a school's sessions.
	Service struct {
		tx       core.Transactor
		sessions session.Repository
		repo     Repository
		clock    core.Clock
		logger   core.Logger
	}
)

func NewService(tx core.Transactor, sessions session.Repository, repo Repository, clock core.Clock, logger core.Logger) *Service {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(tx, "tx"),
		vala.IsNotNil(sessions, "sessions"),
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(clock, "clock"),
		vala.IsNotNil(logger, "logger"),
	).Check(); err != nil {
		panic(err)
	}
	return &Service{tx: tx, sessions: sessions, repo: repo, clock: clock, logger: logger}
}

func NotFound(schoolID, id string) error {
	return core.NewError(core.KindNotFound, ErrNotFound, core.ID("school_id", schoolID), core.ID("class_id", id))
}

func NameExists(schoolID, sessionID, name string) error {
	return core.NewError(core.KindDuplicateName, ErrNameExists,
		core.ID("school_id", schoolID), core.ID("session_id", sessionID), core.ID("class_name", name))
}

func InUse(schoolID, id string) error {
	return core.NewError(core.KindInvalidReference, ErrInUse, core.ID("school_id", schoolID), core.ID("class_id", id))
}

// Create parses nc.Label into its canonical name and stores the class in the session.
func (svc *Service) Create(ctx context.Context, nc NewClass) (Class, error) {
	if err := nc.Validate(); err != nil {
		return Class{}, err
	}
	lbl, err := Parse(nc.Label)
	if err != nil {
		return Class{}, err
	}
	if lbl.Fallback {
		svc.logger.Warn("class label did not match any pattern", map[string]interface{}{
			"school_id":  nc.SchoolID,
			"session_id": nc.SessionID,
			"label":      nc.Label,
		})
	}

	var cls Class
	err = svc.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := svc.sessions.GetSession(ctx, nc.SchoolID, nc.SessionID); err != nil {
			return err
		}
		_, err := svc.repo.GetClassByName(ctx, nc.SchoolID, nc.SessionID, lbl.FullName())
		switch {
		case err == nil:
			return NameExists(nc.SchoolID, nc.SessionID, lbl.FullName())
		case !errors.Is(err, ErrNotFound):
			return errors.Wrap(err, "looking up class name")
		}

		cls, err = svc.repo.CreateClass(ctx, Class{
			SchoolID:  nc.SchoolID,
			SessionID: nc.SessionID,
			Name:      lbl.FullName(),
			Grade:     lbl.Class,
			Section:   lbl.Section,
			CreatedAt: svc.clock.Now(),
		})
		return err
	})
	if err != nil {
		return Class{}, err
	}
	return cls, nil
}

func (svc *Service) Get(ctx context.Context, schoolID, id string) (Class, error) {
	return svc.repo.GetClass(ctx, core.CleanString(schoolID), core.CleanString(id))
}

// GetByLabel looks a class up by any spelling of its label.
// When nothing matches, the NotFound error lists the closest class names.
func (svc *Service) GetByLabel(ctx context.Context, schoolID, sessionID, label string) (Class, error) {
	schoolID, sessionID = core.CleanString(schoolID), core.CleanString(sessionID)
	lbl, err := Parse(label)
	if err != nil {
		return Class{}, err
	}

	cls, err := svc.repo.GetClassByName(ctx, schoolID, sessionID, lbl.FullName())
	if err == nil || !errors.Is(err, ErrNotFound) {
		return cls, err
	}

	ids := []core.Identifier{
		core.ID("school_id", schoolID),
		core.ID("session_id", sessionID),
		core.ID("class_name", lbl.FullName()),
	}
	if names, sErr := svc.Suggest(ctx, schoolID, sessionID, label, 3); sErr == nil && len(names) > 0 {
		ids = append(ids, core.ID("did_you_mean", strings.Join(names, ", ")))
	}
	return Class{}, core.NewError(core.KindNotFound, ErrNotFound, ids...)
}

// Suggest returns up to n class names of the session that look like label, best match first.
func (svc *Service) Suggest(ctx context.Context, schoolID, sessionID, label string, n int) ([]string, error) {
	lbl, err := Parse(label)
	if err != nil {
		return nil, err
	}
	classes, err := svc.repo.QueryClasses(ctx, core.CleanString(schoolID), core.CleanString(sessionID))
	if err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	return closestNames(lbl.FullName(), classes, n), nil
}

type match struct {
	name  string
	ratio float64
}

func closestNames(name string, classes []Class, n int) []string {
	target := strings.Split(name, "")
	matches := make([]match, 0, len(classes))
	for _, cls := range classes {
		ratio := difflib.NewMatcher(target, strings.Split(strings.ToUpper(cls.Name), "")).Ratio()
		if ratio >= minSuggestionRatio {
			matches = append(matches, match{name: cls.Name, ratio: ratio})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].ratio != matches[j].ratio {
			return matches[i].ratio > matches[j].ratio
		}
		return matches[i].name < matches[j].name
	})

	if n > 0 && len(matches) > n {
		matches = matches[:n]
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m.name)
	}
	return names
}

func (svc *Service) Query(ctx context.Context, schoolID, sessionID string) ([]Class, error) {
	return svc.repo.QueryClasses(ctx, core.CleanString(schoolID), core.CleanString(sessionID))
}

func (svc *Service) Delete(ctx context.Context, schoolID, id string) error {
	schoolID, id = core.CleanString(schoolID), core.CleanString(id)
	return svc.tx.InTx(ctx, func(ctx context.Context) error {
		return svc.repo.DeleteClass(ctx, schoolID, id)
	})
}
