// Package assets models the fixed set of extraction categories a batch can
// request from the job service.
package assets

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Category identifies one extractable asset type.
type Category string

const (
	RoadsideSigns Category = "roadside_signs"
	OverheadSigns Category = "overhead_signs"
	Mileposts     Category = "mileposts"
	Guardrails    Category = "guardrails"
	LightPoles    Category = "light_poles"
)

// ErrInvalidCategory reports a category outside the fixed set.
var ErrInvalidCategory = errors.New("invalid asset category")

var allCategories = []Category{
	RoadsideSigns,
	OverheadSigns,
	Mileposts,
	Guardrails,
	LightPoles,
}

// All returns the ordered list of known categories.
func All() []Category {
	cp := make([]Category, len(allCategories))
	copy(cp, allCategories)
	return cp
}

// ParseCategory converts a string into a known Category.
func ParseCategory(value string) (Category, error) {
	normalized := Category(strings.ToLower(strings.TrimSpace(value)))
	for _, c := range allCategories {
		if c == normalized {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, value)
}

// Label returns a display label such as "Roadside Signs".
func (c Category) Label() string {
	return cases.Title(language.Und).String(strings.ReplaceAll(string(c), "_", " "))
}

// Selection tracks which categories are requested. Every category is always
// present; the zero value is not usable, construct with NewSelection.
type Selection struct {
	requested map[Category]bool
}

// NewSelection returns a selection with every category requested.
func NewSelection() *Selection {
	s := &Selection{requested: make(map[Category]bool, len(allCategories))}
	for _, c := range allCategories {
		s.requested[c] = true
	}
	return s
}

// SelectionOf returns a selection requesting exactly the named categories.
func SelectionOf(names ...string) (*Selection, error) {
	s := NewSelection()
	for _, c := range allCategories {
		s.requested[c] = false
	}
	for _, name := range names {
		c, err := ParseCategory(name)
		if err != nil {
			return nil, err
		}
		s.requested[c] = true
	}
	return s, nil
}

// ParseList parses a comma separated list of category names into a selection.
// "all" selects every category.
func ParseList(value string) (*Selection, error) {
	trimmed := strings.TrimSpace(value)
	if strings.EqualFold(trimmed, "all") {
		return NewSelection(), nil
	}
	var names []string
	for _, part := range strings.Split(trimmed, ",") {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return SelectionOf(names...)
}

// Toggle flips the requested flag for category.
func (s *Selection) Toggle(category Category) error {
	if _, ok := s.requested[category]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, string(category))
	}
	s.requested[category] = !s.requested[category]
	return nil
}

// Set assigns the requested flag for category.
func (s *Selection) Set(category Category, requested bool) error {
	if _, ok := s.requested[category]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, string(category))
	}
	s.requested[category] = requested
	return nil
}

// IsSelected reports whether category is requested.
func (s *Selection) IsSelected(category Category) bool {
	return s.requested[category]
}

// Selected returns the requested category identifiers in canonical order.
func (s *Selection) Selected() []string {
	out := make([]string, 0, len(allCategories))
	for _, c := range allCategories {
		if s.requested[c] {
			out = append(out, string(c))
		}
	}
	return out
}

// Clone returns an independent copy of the selection.
func (s *Selection) Clone() *Selection {
	cp := &Selection{requested: make(map[Category]bool, len(s.requested))}
	for k, v := range s.requested {
		cp.requested[k] = v
	}
	return cp
}
