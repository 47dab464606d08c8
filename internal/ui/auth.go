package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/jroimartin/gocui"
	"github.com/projectdiscovery/gologger"
)

const (
	authToken = iota
	authUsername
	authPassword
	authFieldCount
)

var authLabels = [authFieldCount]string{"Token", "Username", "Password"}

// authForm is the state of the credential dialog.
type authForm struct {
	values  [authFieldCount]string
	active  int
	err     string
	pending bool
}

// login reports whether the dialog logs in with a username rather than
// applying the token.
func (f *authForm) login() bool { return strings.TrimSpace(f.values[authUsername]) != "" }

func (a *App) openAuth(*gocui.Gui, *gocui.View) error {
	if a.auth != nil || a.prompt != nil {
		return nil
	}
	a.auth = &authForm{}
	a.auth.values[authToken] = a.store.Credential()
	return nil
}

func (a *App) closeAuth() {
	a.auth = nil
	if _, err := a.g.View("auth"); err == nil {
		_ = a.g.DeleteView("auth")
	}
}

func (a *App) layoutAuth(maxX, maxY int) error {
	width := maxX - 10
	if width > 80 {
		width = 80
	}
	if width < 34 {
		width = 34
	}
	height := 8
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2
	if v, err := a.g.SetView("auth", x0, y0, x0+width, y0+height); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Authentication"
	}
	a.renderAuth()
	if _, err := a.g.SetViewOnTop("auth"); err != nil {
		return err
	}
	_, err := a.g.SetCurrentView("auth")
	return err
}

func (a *App) renderAuth() {
	v, err := a.g.View("auth")
	if err != nil || a.auth == nil {
		return
	}
	v.Clear()
	for i, label := range authLabels {
		val := a.auth.values[i]
		if i == authPassword {
			val = mask(val)
		}
		fmt.Fprintf(v, "%s%-9s %s\n", fieldMarker(i == a.auth.active), label+":", val)
	}
	fmt.Fprintln(v)
	switch {
	case a.auth.pending:
		fmt.Fprintln(v, dim("logging in..."))
	case a.auth.err != "":
		fmt.Fprintln(v, colorRed+a.auth.err+colorReset)
	case a.login == nil:
		fmt.Fprintln(v, dim("set auth.token_url to log in with a password"))
	}
}

func fieldMarker(active bool) string {
	if active {
		return colorGreen + "> " + colorReset
	}
	return "  "
}

func mask(s string) string { return strings.Repeat("*", len([]rune(s))) }

func (a *App) authTypeRune(r rune) func(*gocui.Gui, *gocui.View) error {
	return func(*gocui.Gui, *gocui.View) error {
		if a.auth == nil || a.auth.pending {
			return nil
		}
		a.auth.values[a.auth.active] += string(r)
		a.auth.err = ""
		return nil
	}
}

func (a *App) authBackspace(*gocui.Gui, *gocui.View) error {
	if a.auth == nil || a.auth.pending {
		return nil
	}
	rs := []rune(a.auth.values[a.auth.active])
	if len(rs) > 0 {
		a.auth.values[a.auth.active] = string(rs[:len(rs)-1])
	}
	return nil
}

func (a *App) authNextField(*gocui.Gui, *gocui.View) error {
	if a.auth != nil {
		a.auth.active = (a.auth.active + 1) % authFieldCount
	}
	return nil
}

func (a *App) authPrevField(*gocui.Gui, *gocui.View) error {
	if a.auth != nil {
		a.auth.active = (a.auth.active + authFieldCount - 1) % authFieldCount
	}
	return nil
}

// clearAuth drops the stored credential.
func (a *App) clearAuth(*gocui.Gui, *gocui.View) error {
	if a.auth == nil || a.auth.pending {
		return nil
	}
	a.store.SetCredential("")
	a.auth = &authForm{}
	return nil
}

func (a *App) submitAuth(*gocui.Gui, *gocui.View) error {
	f := a.auth
	if f == nil || f.pending {
		return nil
	}
	if !f.login() {
		a.store.SetCredential(f.values[authToken])
		a.closeAuth()
		return nil
	}
	if a.login == nil {
		f.err = "no token_url configured"
		return nil
	}
	f.pending = true
	username, password := strings.TrimSpace(f.values[authUsername]), f.values[authPassword]
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		token, err := a.login(ctx, username, password)
		a.post(func() {
			if a.auth != f {
				return
			}
			f.pending = false
			if err != nil {
				gologger.Warning().Msgf("login failed: %s", err)
				f.err = err.Error()
				return
			}
			a.store.SetCredential(token)
			a.closeAuth()
			a.status = "logged in as " + username
		})
	}()
	return nil
}
