package domain

import (
	"errors"
	"regexp"
)

var (
	ErrInvalidName   = errors.New("invalid template name")
	ErrInvalidFilter = errors.New("invalid filter")
	ErrNotFound      = errors.New("not found")
)

// Template names double as block type tags, so they follow the same
// character set EditorJS tools are registered with (e.g. "paragraph",
// "Math", "image-gallery").
var namePattern = regexp.MustCompile(`^[a-zA-Z0-9._:-]+$`)

func ValidateName(name string) error {
	if name == "" || len(name) > 140 || !namePattern.MatchString(name) {
		return ErrInvalidName
	}
	return nil
}

type TemplateFilter struct {
	Prefix string `schema:"prefix"`
	After  string `schema:"after"`
	Limit  int    `schema:"limit"`
}

func (f TemplateFilter) Validate() error {
	if f.Prefix != "" && !namePattern.MatchString(f.Prefix) {
		return ErrInvalidFilter
	}
	if f.After != "" {
		if err := ValidateName(f.After); err != nil {
			return ErrInvalidFilter
		}
	}
	if f.Limit < 0 {
		return ErrInvalidFilter
	}
	return nil
}
