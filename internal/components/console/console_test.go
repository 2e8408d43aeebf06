package console

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"thsr-booker/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

func TestTerminalPrompt(t *testing.T) {
	var out bytes.Buffer
	term := NewTerminal(strings.NewReader("first\r\n\nlast"), &out)

	line, err := term.Prompt("one?")
	require.NoError(t, err)
	require.Equal(t, "first", line)

	line, err = term.Prompt("two?")
	require.NoError(t, err)
	require.Equal(t, "", line)

	line, err = term.Prompt("three?")
	require.NoError(t, err)
	require.Equal(t, "last", line)

	_, err = term.Prompt("four?")
	require.ErrorIs(t, err, io.EOF)

	require.Equal(t, "one?\ntwo?\nthree?\nfour?\n", out.String())
}

func TestScripted(t *testing.T) {
	s := NewScripted("a", "")

	answer, err := s.Prompt("first")
	require.NoError(t, err)
	require.Equal(t, "a", answer)

	answer, err = s.Prompt("second")
	require.NoError(t, err)
	require.Equal(t, "", answer)

	_, err = s.Prompt("third")
	require.ErrorIs(t, err, io.EOF)

	s.Print("hello")
	require.Equal(t, []string{"first", "second", "third"}, s.Hints())
	require.Equal(t, []string{"hello"}, s.Printed())
	require.Equal(t, 0, s.Remaining())
}

func TestViewerSolverWritesImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "captcha.jpg")
	prompt := NewScripted(" AB12 ")
	solver := NewViewerSolver(path, false, prompt, &telemetry.Recorder{})

	code, err := solver.Solve(context.Background(), []byte{0xff, 0xd8, 0xff})
	require.NoError(t, err)
	require.Equal(t, "AB12", code)

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []byte{0xff, 0xd8, 0xff}, written)
	require.Equal(t, []string{"Please open the image manually: " + path}, prompt.Printed())
}

func TestViewerCommand(t *testing.T) {
	cmd, err := viewerCommand("linux", "/tmp/captcha.jpg")
	require.NoError(t, err)
	require.Equal(t, []string{"xdg-open", "/tmp/captcha.jpg"}, cmd.Args)
	require.Nil(t, cmd.Cancel)

	cmd, err = viewerCommand("darwin", "/tmp/captcha.jpg")
	require.NoError(t, err)
	require.Equal(t, []string{"open", "/tmp/captcha.jpg"}, cmd.Args)

	cmd, err = viewerCommand("windows", `C:\captcha.jpg`)
	require.NoError(t, err)
	require.Equal(t, []string{"cmd", "/C", "start", "", `C:\captcha.jpg`}, cmd.Args)

	_, err = viewerCommand("plan9", "/tmp/captcha.jpg")
	require.Error(t, err)
}
