package models

import (
	"errors"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// MaxHeaderLength bounds ContentItem.Header.
const MaxHeaderLength = 100

var dateKeyRe = regexp.MustCompile(`^\d{8}$`)

// IsDateKey reports whether s is an 8-digit YYYYMMDD calendar key.
func IsDateKey(s string) bool {
	if !dateKeyRe.MatchString(s) {
		return false
	}
	_, err := time.Parse("20060102", s)
	return err == nil
}

func validDate(value any) error {
	s, _ := value.(string)
	if s == UnassignedDate || IsDateKey(s) {
		return nil
	}
	return errors.New("must be a YYYYMMDD date or \"" + UnassignedDate + "\"")
}

// Validate checks the note's date key and every content item.
func (n Note) Validate() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.Date, validation.Required, validation.By(validDate)),
		validation.Field(&n.Items),
	)
}

// Validate checks the item's id and header length.
func (c ContentItem) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ID, validation.Required),
		validation.Field(&c.Header, validation.RuneLength(0, MaxHeaderLength)),
	)
}
