package ui

import (
	"os"
	"os/exec"
	"strings"

	"github.com/jroimartin/gocui"
	"github.com/pkg/errors"
	"github.com/projectdiscovery/gologger"
)

// singleLineEditor leaves Enter to the view's keybinding.
type singleLineEditor struct{}

func (singleLineEditor) Edit(v *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) {
	switch {
	case key == gocui.KeyBackspace || key == gocui.KeyBackspace2:
		v.EditDelete(true)
	case key == gocui.KeyDelete:
		v.EditDelete(false)
	case key == gocui.KeyArrowLeft:
		v.MoveCursor(-1, 0, false)
	case key == gocui.KeyArrowRight:
		v.MoveCursor(1, 0, false)
	case key == gocui.KeyHome || key == gocui.KeyCtrlA:
		_ = v.SetCursor(0, 0)
	case key == gocui.KeyEnd || key == gocui.KeyCtrlE:
		_ = v.SetCursor(len(viewText(v)), 0)
	case key == gocui.KeySpace:
		v.EditWrite(' ')
	case ch != 0 && mod == 0:
		v.EditWrite(ch)
	}
}

// editBodyInEditor writes the body text to a temp file and leaves the main
// loop so Run can hand the terminal to the editor.
func (a *App) editBodyInEditor(*gocui.Gui, *gocui.View) error {
	if a.scr != screenBuilder || a.prompt != nil {
		return nil
	}
	if !a.store.BodyEnabled() {
		a.status = "this endpoint takes no request body"
		return nil
	}
	f, err := os.CreateTemp("", "apiscope-body-*.json")
	if err != nil {
		a.status = err.Error()
		return nil
	}
	defer f.Close()
	text := a.store.BodyText()
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	if _, err := f.WriteString(text); err != nil {
		a.status = err.Error()
		return nil
	}
	a.suspendEditorFile = f.Name()
	return gocui.ErrQuit
}

// runExternalEditor opens file in the editor and feeds the result back as
// the body text.
func (a *App) runExternalEditor(file string) error {
	defer os.Remove(file)

	args := editorCommand(a.editor, os.Getenv("EDITOR"))
	cmd := exec.Command(args[0], append(args[1:], file)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "editor %s failed", args[0])
	}

	b, err := os.ReadFile(file)
	if err != nil {
		return errors.Wrap(err, "could not read edited body")
	}
	if err := a.store.SetBodyText(strings.TrimSpace(string(b))); err != nil {
		return err
	}
	if !a.store.BodyInSync() {
		gologger.Debug().Msg("edited body is not valid JSON")
		return errors.New("edited body is not valid JSON, the form keeps the last valid body")
	}
	return nil
}

// editorCommand splits the first non-empty editor setting into words.
func editorCommand(candidates ...string) []string {
	for _, c := range candidates {
		if fields := strings.Fields(c); len(fields) > 0 {
			return fields
		}
	}
	return []string{"vi"}
}
