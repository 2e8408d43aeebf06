// Package console is the human side of the booking flow: reading answers to prompts and
// showing text. The flow itself only sees the Prompter interface.
package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Prompter asks a human for a line of input and shows them text.
type Prompter interface {
	// Prompt shows hint and blocks until a line is read. The returned line has its trailing
	// newline removed. A closed input returns io.EOF.
	Prompt(hint string) (string, error)
	Print(text string)
}

// Terminal is a Prompter reading lines from an input stream.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
}

func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out}
}

func (t *Terminal) Prompt(hint string) (string, error) {
	fmt.Fprintln(t.out, hint)
	line, err := t.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (t *Terminal) Print(text string) {
	fmt.Fprintln(t.out, text)
}

// IsInteractive reports whether f is attached to a terminal.
func IsInteractive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Scripted is a Prompter that answers prompts from a fixed list, for tests and for driving
// the flow from another program.
type Scripted struct {
	mu      sync.Mutex
	answers []string
	hints   []string
	printed []string
}

func NewScripted(answers ...string) *Scripted {
	return &Scripted{answers: answers}
}

func (s *Scripted) Prompt(hint string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hints = append(s.hints, hint)
	if len(s.answers) == 0 {
		return "", io.EOF
	}
	answer := s.answers[0]
	s.answers = s.answers[1:]
	return answer, nil
}

func (s *Scripted) Print(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.printed = append(s.printed, text)
}

// Hints returns every prompt shown so far.
func (s *Scripted) Hints() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.hints...)
}

// Printed returns every text shown so far.
func (s *Scripted) Printed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.printed...)
}

// Remaining is the number of answers not yet consumed.
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers)
}
