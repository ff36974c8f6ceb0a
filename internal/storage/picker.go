package storage

import (
	"context"
	"strings"

	"github.com/starford/daybook/internal/apperr"
)

// Mode says what the picker is choosing a file for.
type Mode int

const (
	ModeOpen Mode = iota
	ModeCreate
)

func (m Mode) String() string {
	if m == ModeCreate {
		return "create"
	}
	return "open"
}

// Picker is the interactive file chooser. It returns a name relative to the
// gateway root, or apperr.ErrUserCancelled.
type Picker interface {
	Pick(ctx context.Context, mode Mode) (string, error)
}

// PickerFunc adapts a function to Picker.
type PickerFunc func(ctx context.Context, mode Mode) (string, error)

// Pick calls f.
func (f PickerFunc) Pick(ctx context.Context, mode Mode) (string, error) {
	return f(ctx, mode)
}

// StaticPicker always answers with Name; an empty Name means cancel.
type StaticPicker struct {
	Name string
}

// Pick returns the configured name.
func (p StaticPicker) Pick(ctx context.Context, _ Mode) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(p.Name) == "" {
		return "", apperr.ErrUserCancelled
	}
	return p.Name, nil
}

type choiceKey struct{}

// WithChoice attaches the user's file choice to ctx for ContextPicker.
func WithChoice(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, choiceKey{}, name)
}

// ContextPicker reads the choice made by the caller (for example an HTTP
// request body) from the context. No choice means the user cancelled.
type ContextPicker struct{}

// Pick returns the name stored by WithChoice.
func (ContextPicker) Pick(ctx context.Context, _ Mode) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name, _ := ctx.Value(choiceKey{}).(string)
	if strings.TrimSpace(name) == "" {
		return "", apperr.ErrUserCancelled
	}
	return name, nil
}
