package console

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"thsr-booker/internal/components/assert"
	"thsr-booker/internal/components/telemetry"
)

const (
	report_captcha_solve = "captcha.solve"
)

// ViewerSolver writes the security code image to a fixed file, optionally opens it with the
// platform's image viewer and asks the human to type the code.
type ViewerSolver struct {
	path   string
	open   bool
	prompt Prompter
	tel    telemetry.API
}

func NewViewerSolver(path string, open bool, prompt Prompter, tel telemetry.API) ViewerSolver {
	assert.NotEmptyStr(path)
	assert.NotNil(prompt)
	assert.NotNil(tel)
	return ViewerSolver{path: path, open: open, prompt: prompt, tel: tel}
}

func (v ViewerSolver) Solve(_ context.Context, image []byte) (string, error) {
	err := os.WriteFile(v.path, image, 0600)
	if err != nil {
		v.tel.ReportBroken(report_captcha_solve, fmt.Errorf("write image: %w", err), v.path)
		return "", fmt.Errorf("write security code image: %w", err)
	}

	opened := false
	if v.open {
		err = openViewer(v.path)
		if err != nil {
			v.tel.ReportWarning(report_captcha_solve, fmt.Errorf("open viewer: %w", err))
		} else {
			opened = true
		}
	}
	if !opened {
		v.prompt.Print(fmt.Sprintf("Please open the image manually: %s", v.path))
	}

	code, err := v.prompt.Prompt("Input security code:")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(code), nil
}

// viewerCommand builds the command opening path in the platform's image viewer. The viewer
// outlives the booking, so the command is not bound to a context.
func viewerCommand(goos, path string) (*exec.Cmd, error) {
	switch goos {
	case "windows":
		return exec.Command("cmd", "/C", "start", "", path), nil
	case "darwin":
		return exec.Command("open", path), nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return exec.Command("xdg-open", path), nil
	}
	return nil, fmt.Errorf("no image viewer known for %s", goos)
}

func openViewer(path string) error {
	cmd, err := viewerCommand(runtime.GOOS, path)
	if err != nil {
		return err
	}
	err = cmd.Start()
	if err != nil {
		return err
	}
	// reap the viewer whenever it exits
	go cmd.Wait()
	return nil
}
