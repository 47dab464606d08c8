// Package compose derives the request URL and its command-line equivalent
// from parameter state.
package compose

import (
	"fmt"
	"net/url"
	"strings"

	"apiscope/internal/model"
	"apiscope/internal/value"
)

type Style string

const (
	StyleCurl   Style = "curl"
	StyleHTTPie Style = "httpie"
)

func ParseStyle(s string) (Style, error) {
	switch Style(strings.ToLower(strings.TrimSpace(s))) {
	case StyleCurl, "":
		return StyleCurl, nil
	case StyleHTTPie, "http":
		return StyleHTTPie, nil
	default:
		return "", fmt.Errorf("unknown command style %q (want curl or httpie)", s)
	}
}

var componentReplacer = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EncodeComponent percent-encodes s the way encodeURIComponent does.
func EncodeComponent(s string) string {
	return componentReplacer.Replace(url.QueryEscape(s))
}

// Path substitutes every {name} placeholder that has a non-empty value.
// Placeholders without a value stay as written.
func Path(path string, pathParams model.Pairs) string {
	for _, p := range pathParams {
		if p.Value == "" {
			continue
		}
		path = strings.ReplaceAll(path, "{"+p.Name+"}", EncodeComponent(p.Value))
	}
	return path
}

// Query encodes the non-empty entries, without the leading '?'.
func Query(queryParams model.Pairs) string {
	parts := make([]string, 0, len(queryParams))
	for _, q := range queryParams {
		if q.Value == "" {
			continue
		}
		parts = append(parts, EncodeComponent(q.Name)+"="+EncodeComponent(q.Value))
	}
	return strings.Join(parts, "&")
}

// URL is baseURL + substituted path + query string ('?' only when the query
// is non-empty).
func URL(baseURL, path string, pathParams, queryParams model.Pairs) string {
	u := baseURL + Path(path, pathParams)
	if q := Query(queryParams); q != "" {
		u += "?" + q
	}
	return u
}

// Command renders a shell invocation: method and URL first, one line per
// header in order, then the body for methods that carry one. body may be
// nil.
func Command(style Style, method, rawURL string, headers model.Pairs, body any) string {
	method = strings.ToUpper(method)
	withBody := body != nil && model.AllowsBody(method)

	var lines []string
	switch style {
	case StyleHTTPie:
		lines = append(lines, "http "+method+" "+shellQuote(rawURL))
		for _, h := range headers {
			lines = append(lines, shellQuote(h.Name+":"+h.Value))
		}
		if withBody {
			lines = append(lines, "--raw "+shellQuote(value.Indent(body)))
		}
	default:
		lines = append(lines, "curl --request "+method)
		lines = append(lines, "--url "+shellQuote(rawURL))
		for _, h := range headers {
			lines = append(lines, "--header "+shellQuote(h.Name+": "+h.Value))
		}
		if withBody {
			lines = append(lines, "--data "+shellQuote(value.Indent(body)))
		}
	}
	return strings.Join(lines, " \\\n  ")
}

// shellQuote wraps s in single quotes when it holds anything a POSIX shell
// would interpret.
func shellQuote(s string) string {
	if s != "" && strings.IndexFunc(s, needsQuote) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func needsQuote(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	}
	return !strings.ContainsRune("-_./:=%,@+", r)
}
