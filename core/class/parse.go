package class

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

// DefaultSection is used for labels that do not name a section.
const DefaultSection = "A"

var (
	ErrBlankLabel = errors.New("class label cannot be blank")

	// "L.K.G.-A", "11-1A", "10 B"
	generalRegex = regexp.MustCompile(`^([A-Za-z0-9.]+)\s*[-\s]\s*([A-Za-z0-9]+)$`)
	// "10A"
	digitsLettersRegex = regexp.MustCompile(`^(\d+)([A-Za-z]+)$`)
	// "LKG", "U.K.G."
	lettersOnlyRegex = regexp.MustCompile(`^[A-Za-z.]+$`)
)

// Label is a class label split into its canonical parts.
type Label struct {
	Class   string
	Section string
	// Fallback is set when no pattern matched and the whole input was taken as the class.
	Fallback bool
}

// FullName returns the canonical class name, eg. "10-A".
func (l Label) FullName() string {
	return l.Class + "-" + l.Section
}

// Parse splits a free-text class label into a canonical (class, section) pair.
// Both parts are upper-cased. Only a blank label is an error.
func Parse(input string) (Label, error) {
	s := core.CleanString(input)
	if s == "" {
		return Label{}, core.NewError(core.KindInvalidInput, ErrBlankLabel, core.ID("label", input))
	}

	if m := generalRegex.FindStringSubmatch(s); m != nil {
		return newLabel(m[1], m[2], false), nil
	}
	if m := digitsLettersRegex.FindStringSubmatch(s); m != nil {
		return newLabel(m[1], m[2], false), nil
	}
	if lettersOnlyRegex.MatchString(s) {
		return newLabel(s, DefaultSection, false), nil
	}
	return newLabel(s, DefaultSection, true), nil
}

func newLabel(class, section string, fallback bool) Label {
	return Label{
		Class:    strings.ToUpper(class),
		Section:  strings.ToUpper(section),
		Fallback: fallback,
	}
}
