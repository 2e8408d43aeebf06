package thsr

import (
	"context"
	"strconv"
	"strings"
)

// Prompter is how the flow asks a human for values it was not given.
type Prompter interface {
	Prompt(hint string) (string, error)
	Print(text string)
}

// CaptchaSolver turns the security code image into the code typed into the search form.
type CaptchaSolver interface {
	Solve(ctx context.Context, image []byte) (string, error)
}

// CaptchaSolverFunc adapts a function into a CaptchaSolver.
type CaptchaSolverFunc func(ctx context.Context, image []byte) (string, error)

func (f CaptchaSolverFunc) Solve(ctx context.Context, image []byte) (string, error) {
	return f(ctx, image)
}

// Selection is everything the caller already knows about the booking. A nil field is asked
// for interactively, with a stated default.
type Selection struct {
	PersonalId    *string
	Date          *string
	TimeSlot      *int
	From          *int
	To            *int
	AdultCount    *int
	StudentCount  *int
	SeatPrefer    *int
	ClassType     *int
	UseMembership *bool
	Train         *int
}

// Field describes how to ask for one value.
type Field[T any] struct {
	Hint    string
	Default T
	// Parse converts a non-empty answer. A parse error falls back to Default.
	Parse func(string) (T, error)
}

// Resolve returns override when it is set and otherwise asks prompt. An empty or unparsable
// answer, or a nil prompt, yields the field's default. Only a failure to read an answer at all
// is returned as an error.
func Resolve[T any](prompt Prompter, override *T, field Field[T]) (T, error) {
	if override != nil {
		return *override, nil
	}
	if prompt == nil {
		return field.Default, nil
	}

	answer, err := prompt.Prompt(field.Hint)
	if err != nil {
		return field.Default, err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return field.Default, nil
	}
	value, err := field.Parse(answer)
	if err != nil {
		return field.Default, nil
	}
	return value, nil
}

func parseString(s string) (string, error) {
	return s, nil
}

func parseInt(s string) (int, error) {
	return strconv.Atoi(s)
}

func parseYesNo(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
