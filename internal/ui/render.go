package ui

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"apiscope/internal/form"
	"apiscope/internal/model"
	"apiscope/internal/schema"
	"apiscope/internal/store"
	"apiscope/internal/value"
)

const (
	colorReset   = value.ColorReset
	colorRed     = value.ColorRed
	colorGreen   = value.ColorGreen
	colorYellow  = value.ColorYellow
	colorBlue    = value.ColorBlue
	colorMagenta = value.ColorMagenta
	colorCyan    = value.ColorCyan
	colorWhite   = value.ColorWhite
)

func dim(s string) string { return colorBlue + s + colorReset }

// rowText renders one parameter pane line.
func rowText(r row, st *store.Store) string {
	switch r.kind {
	case rowSection:
		return colorYellow + r.name + colorReset
	case rowNote:
		return dim(r.name)
	case rowPathParam, rowQueryParam:
		pairs := st.PathParams()
		if r.kind == rowQueryParam {
			pairs = st.QueryParams()
		}
		return "  " + paramLabel(r.param) + " = " + valueOrHint(pairs.Value(r.name), schema.TypeLabel(r.param.Schema))
	case rowHeader:
		name := r.name
		if name == "" {
			name = "(unnamed)"
		}
		return "  " + name + ": " + st.Headers().Value(r.name)
	case rowAddHeader:
		return "  " + colorGreen + "+ add header" + colorReset
	case rowArrayItem:
		sa := r.widget.(*form.StringArrayEditor)
		return indent(sa.Depth+2) + "- " + valueOrHint(sa.Items[r.index], "string")
	case rowAddItem:
		return indent(form.FieldOf(r.widget).Depth+2) + colorGreen + "+ add item" + colorReset
	case rowWidget:
		return widgetText(r.widget)
	}
	return ""
}

func widgetText(w form.Widget) string {
	f := form.FieldOf(w)
	label := indent(f.Depth+1) + f.Label()
	switch t := w.(type) {
	case *form.ObjectGroup:
		marker := "▾ "
		if !t.Expanded {
			marker = "▸ "
		}
		return indent(f.Depth+1) + marker + f.Label()
	case *form.StringArrayEditor:
		return label + dim(fmt.Sprintf("  [%d items]", len(t.Items)))
	case *form.ObjectArrayEditor:
		return label + dim(fmt.Sprintf("  [%d rows]", len(t.Rows)))
	case *form.RawArrayText:
		if !t.Valid {
			return label + " = " + colorRed + t.Text + colorReset + dim("  (not a json array)")
		}
		return label + " = " + t.Text
	case *form.EnumSelect:
		return label + " = " + valueOrHint(t.Selected, "choose") + dim("  ("+strings.Join(t.Options, "|")+")")
	case *form.BooleanSelect:
		return label + " = " + colorMagenta + strconv.FormatBool(t.Value) + colorReset
	case *form.ScalarInput:
		if t.Numeric && t.Text == "NaN" {
			return label + " = " + colorRed + "NaN" + colorReset + dim("  (not a number)")
		}
		return label + " = " + valueOrHint(t.Text, schema.TypeLabel(f.Schema))
	}
	return label
}

func paramLabel(p *model.Param) string {
	if p.Required {
		return p.Name + " *"
	}
	return p.Name
}

func valueOrHint(v, hint string) string {
	if v == "" {
		return dim("<" + hint + ">")
	}
	return v
}

func indent(depth int) string { return strings.Repeat("  ", depth) }

func padRight(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat(" ", n-len(s))
}

func colorizeMethod(method string) string {
	var color string
	switch strings.ToUpper(method) {
	case "GET":
		color = colorBlue
	case "POST":
		color = colorGreen
	case "PUT":
		color = colorYellow
	case "DELETE":
		color = colorRed
	case "PATCH":
		color = colorCyan
	default:
		color = colorWhite
	}
	return color + padRight(strings.ToUpper(method), 6) + colorReset
}

func colorizeStatus(code int, text string) string {
	color := colorWhite
	switch {
	case code >= 200 && code < 300:
		color = colorGreen
	case code >= 400 && code < 500:
		color = colorYellow
	case code >= 500:
		color = colorRed
	}
	return color + strings.TrimSpace(fmt.Sprintf("%d %s", code, text)) + colorReset
}

var pathParamPattern = regexp.MustCompile(`\{([^}]+)\}`)

func highlightPathParams(path string) string {
	return pathParamPattern.ReplaceAllString(path, colorCyan+"{$1}"+colorReset)
}

// resultText renders a response for the response pane.
func resultText(r model.RequestResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", colorizeStatus(r.Status, r.StatusText), dim(r.Time.String()))
	names := make([]string, 0, len(r.Headers))
	for k := range r.Headers {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Fprintf(&b, "%s%s%s: %s\n", colorCyan, k, colorReset, r.Headers[k])
	}
	b.WriteString("\n")
	switch d := r.Data.(type) {
	case nil:
		b.WriteString(dim("(empty body)"))
	case string:
		b.WriteString(d)
	default:
		b.WriteString(value.Colorize(d))
	}
	b.WriteString("\n")
	return b.String()
}

// detailText is the documentation view of an endpoint.
func detailText(ep model.Endpoint) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", colorizeMethod(ep.Method), highlightPathParams(ep.Path))
	if ep.Summary != "" {
		fmt.Fprintf(&b, "%s\n", ep.Summary)
	}
	if ep.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", ep.Description)
	}
	params := func(title string, ps []model.Param) {
		if len(ps) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n%s%s%s\n", colorYellow, title, colorReset)
		for i := range ps {
			fmt.Fprintf(&b, "  %-20s %s\n", paramLabel(&ps[i]), schema.TypeLabel(ps[i].Schema))
		}
	}
	params("Path parameters", ep.PathParams)
	params("Query parameters", ep.QueryParams)

	if rb := ep.RequestBody; rb.Schema != nil {
		req := "optional"
		if rb.Required {
			req = "required"
		}
		fmt.Fprintf(&b, "\n%sRequest body%s (%s)", colorYellow, colorReset, req)
		if rb.Description != "" {
			fmt.Fprintf(&b, " %s", rb.Description)
		}
		fmt.Fprintf(&b, "\n%s\n", value.Colorize(schema.Document(rb.Schema)))
	}
	for _, r := range ep.Responses {
		fmt.Fprintf(&b, "\n%sResponse %s%s", colorYellow, r.Status, colorReset)
		if r.ContentType != "" {
			fmt.Fprintf(&b, " %s", dim(r.ContentType))
		}
		b.WriteString("\n")
		if r.Schema != nil {
			fmt.Fprintf(&b, "%s\n", value.Colorize(schema.Document(r.Schema)))
		}
		if r.HasExample {
			fmt.Fprintf(&b, "example:\n%s\n", value.Colorize(r.Example))
		}
	}
	return b.String()
}
