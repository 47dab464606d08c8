package ui

import (
	"strings"

	"apiscope/internal/catalog"
	"apiscope/internal/model"
)

// listLine is a group heading when ep is nil.
type listLine struct {
	group string
	ep    *model.Endpoint
}

// listLines lays out the endpoint list: grouped by resource when the filter
// is empty, a flat ranked list otherwise.
func listLines(eps []model.Endpoint, filter string) []listLine {
	var lines []listLine
	if strings.TrimSpace(filter) == "" {
		for _, g := range catalog.GroupByResource(eps) {
			lines = append(lines, listLine{group: g.Name})
			for i := range g.Endpoints {
				lines = append(lines, listLine{ep: &g.Endpoints[i]})
			}
		}
		return lines
	}
	hits := catalog.Filter(eps, filter)
	for i := range hits {
		lines = append(lines, listLine{ep: &hits[i]})
	}
	return lines
}

// nextEndpoint returns the index of the endpoint line delta steps away from
// cur, staying put at either end.
func nextEndpoint(lines []listLine, cur, delta int) int {
	step := 1
	if delta < 0 {
		step, delta = -1, -delta
	}
	for n := 0; n < delta; n++ {
		j := cur + step
		for j >= 0 && j < len(lines) && lines[j].ep == nil {
			j += step
		}
		if j < 0 || j >= len(lines) {
			break
		}
		cur = j
	}
	return cur
}

func firstEndpoint(lines []listLine) int {
	for i, l := range lines {
		if l.ep != nil {
			return i
		}
	}
	return 0
}

func lineText(l listLine) string {
	if l.ep == nil {
		return colorYellow + l.group + colorReset
	}
	s := "  " + colorizeMethod(l.ep.Method) + " " + highlightPathParams(l.ep.Path)
	if l.ep.Summary != "" {
		s += "  " + dim(l.ep.Summary)
	}
	return s
}
