package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jroimartin/gocui"
	"github.com/projectdiscovery/gologger"

	"apiscope/internal/catalog"
	"apiscope/internal/compose"
	"apiscope/internal/model"
	"apiscope/internal/orchestrator"
	"apiscope/internal/store"
)

const requestTimeout = 30 * time.Second

type screen int

const (
	screenEndpoints screen = iota
	screenBuilder
	screenResponse
	screenDetail
)

// LoginFunc exchanges a username and password for an authorization value.
type LoginFunc func(ctx context.Context, username, password string) (string, error)

type Options struct {
	Catalog      *catalog.Catalog
	BaseURL      string
	Store        *store.Store
	Orchestrator *orchestrator.Orchestrator
	Style        compose.Style
	// Login is nil when no token endpoint is configured.
	Login LoginFunc
	// Editor is the command used for the raw body; $EDITOR and vi are the
	// fallbacks.
	Editor string
}

type App struct {
	g *gocui.Gui

	cat     *catalog.Catalog
	baseURL string
	store   *store.Store
	orch    *orchestrator.Orchestrator
	style   compose.Style
	login   LoginFunc
	editor  string

	scr  screen
	prev screen

	filter   string
	lines    []listLine
	selected int

	builder *builder
	prompt  *prompt
	auth    *authForm
	detail  model.Endpoint

	status            string
	suspendEditorFile string

	// mu guards g for background senders and the queue of their results.
	mu    sync.Mutex
	queue []func()
}

func NewApp(opts Options) *App {
	a := &App{
		cat:     opts.Catalog,
		baseURL: opts.BaseURL,
		store:   opts.Store,
		orch:    opts.Orchestrator,
		style:   opts.Style,
		login:   opts.Login,
		editor:  opts.Editor,
		builder: newBuilder(opts.Store),
	}
	if a.style == "" {
		a.style = compose.StyleCurl
	}
	a.recomputeFilter()
	return a
}

// Run drives the UI until the user quits. The loop is re-entered after the
// external editor returns.
func (a *App) Run() error {
	for {
		g, err := gocui.NewGui(gocui.OutputNormal)
		if err != nil {
			return err
		}
		a.mu.Lock()
		a.g = g
		a.mu.Unlock()
		g.BgColor = gocui.ColorBlack
		g.FgColor = gocui.ColorWhite
		g.Cursor = true
		g.InputEsc = true
		g.SetManagerFunc(a.layout)

		if err := a.bindKeys(); err != nil {
			g.Close()
			return err
		}

		err = g.MainLoop()
		g.Close()

		if a.suspendEditorFile != "" {
			file := a.suspendEditorFile
			a.suspendEditorFile = ""
			if err := a.runExternalEditor(file); err != nil {
				a.status = err.Error()
			}
			continue
		}
		if err != nil && err != gocui.ErrQuit {
			return err
		}
		return nil
	}
}

func (a *App) layout(g *gocui.Gui) error {
	a.drain()
	maxX, maxY := g.Size()

	if v, err := g.SetView("header", 0, 0, maxX-1, 2); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Frame = false
	}
	a.renderHeader()

	if v, err := g.SetView("footer", 0, maxY-2, maxX-1, maxY); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Frame = false
	}
	a.renderFooter()

	var err error
	switch a.scr {
	case screenEndpoints:
		err = a.layoutEndpoints(maxX, maxY)
	case screenBuilder:
		err = a.layoutBuilder(maxX, maxY)
	case screenResponse:
		err = a.layoutText("response", "Response", maxX, maxY)
	case screenDetail:
		err = a.layoutText("detail", "Documentation", maxX, maxY)
	}
	if err != nil {
		return err
	}
	if a.auth != nil {
		return a.layoutAuth(maxX, maxY)
	}
	if a.prompt != nil {
		return a.layoutPrompt(maxX, maxY)
	}
	return nil
}

func (a *App) layoutEndpoints(maxX, maxY int) error {
	a.clearMainViews("filter", "endpoints")

	if v, err := a.g.SetView("filter", 0, 2, maxX-1, 4); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Filter"
	}
	if v, err := a.g.SetView("endpoints", 0, 4, maxX-1, maxY-3); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Endpoints"
		v.Highlight = true
		v.SelFgColor = gocui.ColorBlack
		v.SelBgColor = gocui.ColorGreen
	}
	if v, err := a.g.View("filter"); err == nil {
		v.Clear()
		fmt.Fprint(v, a.filter)
	}
	a.renderEndpoints()
	return a.focus("endpoints")
}

func (a *App) layoutBuilder(maxX, maxY int) error {
	a.clearMainViews("selected", "params", "json", "command")

	mid := maxX / 2
	split := (4 + maxY - 3) / 2
	views := []struct {
		name, title    string
		x0, y0, x1, y1 int
	}{
		{"selected", "Request", 0, 2, maxX - 1, 4},
		{"params", "Parameters", 0, 4, mid, maxY - 3},
		{"json", "Body", mid + 1, 4, maxX - 1, split},
		{"command", "Command", mid + 1, split + 1, maxX - 1, maxY - 3},
	}
	for _, d := range views {
		v, err := a.g.SetView(d.name, d.x0, d.y0, d.x1, d.y1)
		if err != nil {
			if err != gocui.ErrUnknownView {
				return err
			}
			v.Title = d.title
			if d.name == "params" {
				v.Highlight = true
				v.SelFgColor = gocui.ColorBlack
				v.SelBgColor = gocui.ColorGreen
			}
		}
	}
	a.renderBuilder()
	return a.focus("params")
}

func (a *App) layoutText(name, title string, maxX, maxY int) error {
	a.clearMainViews(name)
	if v, err := a.g.SetView(name, 0, 2, maxX-1, maxY-3); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = title
		a.renderText(v)
	}
	return a.focus(name)
}

func (a *App) layoutPrompt(maxX, maxY int) error {
	width := 60
	if width > maxX-4 {
		width = maxX - 4
	}
	x0 := (maxX - width) / 2
	y0 := (maxY - 3) / 2
	if v, err := a.g.SetView("edit", x0, y0, x0+width, y0+2); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = fmt.Sprintf(" %s (enter=ok, esc=cancel) ", a.prompt.title)
		v.Editable = true
		v.Editor = singleLineEditor{}
		fmt.Fprint(v, a.prompt.text)
		_ = v.SetCursor(len(a.prompt.text), 0)
	}
	if _, err := a.g.SetViewOnTop("edit"); err != nil {
		return err
	}
	_, err := a.g.SetCurrentView("edit")
	return err
}

func (a *App) focus(name string) error {
	if a.auth != nil || a.prompt != nil {
		return nil
	}
	_, err := a.g.SetCurrentView(name)
	return err
}

// clearMainViews drops every screen view not named in keep.
func (a *App) clearMainViews(keep ...string) {
	if a.g == nil {
		return
	}
	keepSet := map[string]bool{}
	for _, k := range keep {
		keepSet[k] = true
	}
	for _, n := range []string{"filter", "endpoints", "selected", "params", "json", "command", "response", "detail"} {
		if keepSet[n] {
			continue
		}
		if _, err := a.g.View(n); err == nil {
			_ = a.g.DeleteView(n)
		}
	}
}

type binding struct {
	view    string
	key     interface{}
	handler func(*gocui.Gui, *gocui.View) error
}

// bindKeys registers every key. No global binding may use a printable rune,
// since gocui runs matching bindings before an editable view sees the key.
func (a *App) bindKeys() error {
	bs := []binding{
		{"", gocui.KeyCtrlC, a.quit},
		{"", gocui.KeyEsc, a.back},
		{"", gocui.KeyCtrlT, a.openAuth},
		{"", gocui.KeyCtrlR, a.send},
		{"", gocui.KeyCtrlO, a.openDetail},

		{"endpoints", gocui.KeyArrowDown, a.moveSel(1)},
		{"endpoints", gocui.KeyArrowUp, a.moveSel(-1)},
		{"endpoints", gocui.KeyPgdn, a.moveSel(10)},
		{"endpoints", gocui.KeyPgup, a.moveSel(-10)},
		{"endpoints", gocui.KeyEnter, a.openBuilder},
		{"endpoints", gocui.KeyBackspace, a.filterBackspace},
		{"endpoints", gocui.KeyBackspace2, a.filterBackspace},
		{"endpoints", gocui.KeySpace, a.appendFilterRune(' ')},

		{"params", gocui.KeyArrowDown, a.moveRow(1)},
		{"params", gocui.KeyArrowUp, a.moveRow(-1)},
		{"params", gocui.KeyPgdn, a.moveRow(10)},
		{"params", gocui.KeyPgup, a.moveRow(-10)},
		{"params", gocui.KeyEnter, a.activate},
		{"params", 'a', a.addRow},
		{"params", 'x', a.removeRow},
		{"params", 'r', a.renameRow},
		{"params", 'c', a.toggleStyle},
		{"params", '?', a.openDetail},
		{"params", 'q', a.quit},
		{"params", gocui.KeyCtrlE, a.editBodyInEditor},

		{"edit", gocui.KeyEnter, a.confirmPrompt},

		{"response", gocui.KeyArrowDown, a.scroll(1)},
		{"response", gocui.KeyArrowUp, a.scroll(-1)},
		{"response", gocui.KeyPgdn, a.scroll(10)},
		{"response", gocui.KeyPgup, a.scroll(-10)},
		{"response", 'r', a.send},
		{"response", 'q', a.quit},
		{"response", gocui.KeyEnter, a.toEndpoints},

		{"detail", gocui.KeyArrowDown, a.scroll(1)},
		{"detail", gocui.KeyArrowUp, a.scroll(-1)},
		{"detail", gocui.KeyPgdn, a.scroll(10)},
		{"detail", gocui.KeyPgup, a.scroll(-10)},
		{"detail", 'q', a.quit},

		{"auth", gocui.KeyTab, a.authNextField},
		{"auth", gocui.KeyArrowDown, a.authNextField},
		{"auth", gocui.KeyArrowUp, a.authPrevField},
		{"auth", gocui.KeyEnter, a.submitAuth},
		{"auth", gocui.KeyCtrlD, a.clearAuth},
		{"auth", gocui.KeyBackspace, a.authBackspace},
		{"auth", gocui.KeyBackspace2, a.authBackspace},
		{"auth", gocui.KeySpace, a.authTypeRune(' ')},
	}
	for r := rune(32); r <= rune(126); r++ {
		bs = append(bs,
			binding{"endpoints", r, a.appendFilterRune(r)},
			binding{"auth", r, a.authTypeRune(r)},
		)
	}
	for _, b := range bs {
		if err := a.g.SetKeybinding(b.view, b.key, gocui.ModNone, b.handler); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) quit(*gocui.Gui, *gocui.View) error { return gocui.ErrQuit }

func (a *App) back(*gocui.Gui, *gocui.View) error {
	switch {
	case a.auth != nil:
		a.closeAuth()
		return nil
	case a.prompt != nil:
		if a.prompt.cancel != nil {
			a.prompt.cancel()
		}
		a.closePrompt()
		return nil
	}
	switch a.scr {
	case screenDetail:
		a.scr = a.prev
	case screenResponse:
		a.scr = screenBuilder
	case screenBuilder:
		a.scr = screenEndpoints
	}
	a.status = ""
	return nil
}

func (a *App) toEndpoints(*gocui.Gui, *gocui.View) error {
	a.scr = screenEndpoints
	return nil
}

func (a *App) recomputeFilter() {
	a.lines = listLines(a.cat.Endpoints, a.filter)
	a.selected = firstEndpoint(a.lines)
}

func (a *App) appendFilterRune(r rune) func(*gocui.Gui, *gocui.View) error {
	return func(*gocui.Gui, *gocui.View) error {
		a.filter += string(r)
		a.recomputeFilter()
		return nil
	}
}

func (a *App) filterBackspace(*gocui.Gui, *gocui.View) error {
	if a.filter == "" {
		return nil
	}
	rs := []rune(a.filter)
	a.filter = string(rs[:len(rs)-1])
	a.recomputeFilter()
	return nil
}

func (a *App) moveSel(delta int) func(*gocui.Gui, *gocui.View) error {
	return func(*gocui.Gui, *gocui.View) error {
		a.selected = nextEndpoint(a.lines, a.selected, delta)
		return nil
	}
}

func (a *App) selectedEndpoint() (*model.Endpoint, bool) {
	if a.selected < 0 || a.selected >= len(a.lines) || a.lines[a.selected].ep == nil {
		return nil, false
	}
	return a.lines[a.selected].ep, true
}

func (a *App) openBuilder(*gocui.Gui, *gocui.View) error {
	ep, ok := a.selectedEndpoint()
	if !ok {
		return nil
	}
	if cur, ok := a.store.Endpoint(); !ok || cur.Key() != ep.Key() {
		sel := *ep
		a.store.Select(&sel)
		gologger.Debug().Msgf("selected %s", sel.Key())
	}
	a.scr = screenBuilder
	a.status = ""
	return nil
}

func (a *App) openDetail(*gocui.Gui, *gocui.View) error {
	if a.auth != nil || a.prompt != nil || a.scr == screenDetail {
		return nil
	}
	var ep model.Endpoint
	switch a.scr {
	case screenEndpoints:
		sel, ok := a.selectedEndpoint()
		if !ok {
			return nil
		}
		ep = *sel
	default:
		cur, ok := a.store.Endpoint()
		if !ok {
			return nil
		}
		ep = cur
	}
	a.detail = ep
	a.prev = a.scr
	a.scr = screenDetail
	a.clearMainViews()
	return nil
}

func (a *App) moveRow(delta int) func(*gocui.Gui, *gocui.View) error {
	return func(*gocui.Gui, *gocui.View) error {
		a.builder.move(delta)
		return nil
	}
}

func (a *App) activate(*gocui.Gui, *gocui.View) error {
	p, err := a.builder.activate()
	a.report(err)
	if p != nil {
		a.prompt = p
	}
	return nil
}

func (a *App) addRow(*gocui.Gui, *gocui.View) error {
	a.report(a.builder.add())
	return nil
}

func (a *App) removeRow(*gocui.Gui, *gocui.View) error {
	a.report(a.builder.remove())
	return nil
}

func (a *App) renameRow(*gocui.Gui, *gocui.View) error {
	p, err := a.builder.rename()
	a.report(err)
	if p != nil {
		a.prompt = p
	}
	return nil
}

func (a *App) toggleStyle(*gocui.Gui, *gocui.View) error {
	if a.style == compose.StyleCurl {
		a.style = compose.StyleHTTPie
	} else {
		a.style = compose.StyleCurl
	}
	return nil
}

func (a *App) report(err error) {
	if err == nil {
		a.status = ""
		return
	}
	a.status = err.Error()
}

func (a *App) confirmPrompt(_ *gocui.Gui, v *gocui.View) error {
	if a.prompt == nil {
		return nil
	}
	p := a.prompt
	a.closePrompt()
	a.report(p.apply(viewText(v)))
	return nil
}

func (a *App) closePrompt() {
	a.prompt = nil
	if _, err := a.g.View("edit"); err == nil {
		_ = a.g.DeleteView("edit")
	}
}

// send submits the current request in the background; the outcome is
// applied on the UI goroutine.
func (a *App) send(*gocui.Gui, *gocui.View) error {
	if a.auth != nil || a.prompt != nil {
		return nil
	}
	if a.scr != screenBuilder && a.scr != screenResponse {
		return nil
	}
	st := a.store.Snapshot()
	a.status = "sending..."
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		_, err := a.orch.Submit(ctx, st)
		a.post(func() { a.finishSend(err) })
	}()
	return nil
}

// post queues fn for the UI goroutine. The queue is also drained on every
// layout, so a result that arrives while the Gui is being rebuilt around
// the external editor is applied once the new one is up.
func (a *App) post(fn func()) {
	a.mu.Lock()
	a.queue = append(a.queue, fn)
	g := a.g
	a.mu.Unlock()
	if g != nil {
		g.Update(func(*gocui.Gui) error {
			a.drain()
			return nil
		})
	}
}

func (a *App) drain() {
	a.mu.Lock()
	fns := a.queue
	a.queue = nil
	a.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (a *App) finishSend(err error) {
	var verr *orchestrator.ValidationError
	switch {
	case err == nil:
		a.status = ""
		a.scr = screenResponse
		a.clearMainViews()
	case errors.As(err, &verr):
		a.status = "missing required: " + strings.Join(verr.Names(), ", ")
	case errors.Is(err, orchestrator.ErrBusy):
		a.status = "a request is already in flight"
	default:
		a.status = err.Error()
	}
}

func (a *App) scroll(delta int) func(*gocui.Gui, *gocui.View) error {
	return func(_ *gocui.Gui, v *gocui.View) error {
		if v == nil {
			return nil
		}
		ox, oy := v.Origin()
		oy += delta
		if oy < 0 {
			oy = 0
		}
		return v.SetOrigin(ox, oy)
	}
}

func (a *App) renderHeader() {
	v, err := a.g.View("header")
	if err != nil {
		return
	}
	v.Clear()
	title := a.cat.Title
	if title == "" {
		title = "API catalog"
	}
	fmt.Fprintf(v, "%sapiscope%s  %s  %s", colorGreen, colorReset, title, dim(a.baseURL))
	if a.store.Credential() != "" {
		fmt.Fprintf(v, "  %s", colorMagenta+"[auth]"+colorReset)
	}
}

func (a *App) renderFooter() {
	v, err := a.g.View("footer")
	if err != nil {
		return
	}
	v.Clear()
	msg := a.status
	if a.orch.Loading() {
		msg = "loading..."
	}
	if msg != "" {
		fmt.Fprint(v, colorRed+msg+colorReset)
		return
	}
	switch {
	case a.auth != nil:
		msg = "tab: next field   enter: apply   ctrl+d: clear   esc: close"
	case a.prompt != nil:
		msg = "enter: apply   esc: cancel"
	case a.scr == screenEndpoints:
		msg = "type: filter   enter: open   ctrl+o: docs   ctrl+t: auth   ctrl+c: quit"
	case a.scr == screenBuilder:
		msg = "enter: edit   a: add   x: remove   r: rename   c: curl/httpie   ctrl+e: edit json   ctrl+r: send   ?: docs   esc: back"
	case a.scr == screenResponse:
		msg = "up/down: scroll   r: resend   enter: endpoints   esc: back   q: quit"
	case a.scr == screenDetail:
		msg = "up/down: scroll   esc: back   q: quit"
	}
	fmt.Fprint(v, msg)
}

func (a *App) renderEndpoints() {
	v, err := a.g.View("endpoints")
	if err != nil {
		return
	}
	v.Clear()
	if len(a.lines) == 0 {
		fmt.Fprintln(v, dim("no endpoints match"))
		return
	}
	for _, l := range a.lines {
		fmt.Fprintln(v, lineText(l))
	}
	showLine(v, a.selected)
}

func (a *App) renderBuilder() {
	ep, ok := a.store.Endpoint()
	if !ok {
		return
	}
	rawURL := compose.URL(a.baseURL, ep.Path, a.store.PathParams(), a.store.QueryParams())

	if v, err := a.g.View("selected"); err == nil {
		v.Clear()
		fmt.Fprintf(v, "%s %s", colorizeMethod(ep.Method), rawURL)
		if ep.Summary != "" {
			fmt.Fprintf(v, "  %s", dim(ep.Summary))
		}
	}
	if v, err := a.g.View("params"); err == nil {
		v.Clear()
		for _, r := range a.builder.rows {
			fmt.Fprintln(v, rowText(r, a.store))
		}
		showLine(v, a.builder.cursor)
	}
	if v, err := a.g.View("json"); err == nil {
		v.Clear()
		switch {
		case !a.store.BodyEnabled():
			fmt.Fprint(v, dim("no request body"))
		case !a.store.BodyInSync():
			fmt.Fprintln(v, colorRed+"not valid JSON, the form keeps the last valid body"+colorReset)
			fmt.Fprint(v, a.store.BodyText())
		default:
			fmt.Fprint(v, a.store.BodyText())
		}
	}
	if v, err := a.g.View("command"); err == nil {
		v.Clear()
		var body any
		if a.store.BodyEnabled() {
			body = a.store.Body()
		}
		fmt.Fprint(v, compose.Command(a.style, ep.Method, rawURL, a.store.Headers(), body))
	}
}

func (a *App) renderText(v *gocui.View) {
	v.Clear()
	switch a.scr {
	case screenResponse:
		res, ok := a.orch.Last()
		if !ok {
			fmt.Fprint(v, dim("no response yet"))
			return
		}
		fmt.Fprint(v, resultText(res))
	case screenDetail:
		fmt.Fprint(v, detailText(a.detail))
	}
}

// showLine moves the highlighted line to line, scrolling v as needed.
func showLine(v *gocui.View, line int) {
	_, h := v.Size()
	ox, oy := v.Origin()
	if line < oy {
		oy = line
	}
	if h > 0 && line >= oy+h {
		oy = line - h + 1
	}
	_ = v.SetOrigin(ox, oy)
	_ = v.SetCursor(0, line-oy)
}

func viewText(v *gocui.View) string {
	return strings.TrimRight(v.Buffer(), "\n")
}
