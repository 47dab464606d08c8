package catalog

import (
	"sort"
	"strings"

	"apiscope/internal/model"
)

// Group is the endpoints sharing a first path segment, e.g. "/pet".
type Group struct {
	Name      string
	Endpoints []model.Endpoint
}

// GroupByResource groups endpoints by first path segment. Groups appear in
// order of first occurrence and keep catalog order inside.
func GroupByResource(eps []model.Endpoint) []Group {
	var groups []Group
	index := map[string]int{}
	for _, ep := range eps {
		name := resource(ep.Path)
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, Group{Name: name})
		}
		groups[i].Endpoints = append(groups[i].Endpoints, ep)
	}
	return groups
}

func resource(path string) string {
	seg, _, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	return "/" + seg
}

// Filter keeps endpoints whose "METHOD path summary" contains query as a
// case-insensitive subsequence, best matches first. An empty query keeps
// everything in catalog order.
func Filter(eps []model.Endpoint, query string) []model.Endpoint {
	query = strings.TrimSpace(query)
	if query == "" {
		return append([]model.Endpoint(nil), eps...)
	}
	type scored struct {
		ep    model.Endpoint
		score int
	}
	var hits []scored
	for _, ep := range eps {
		if s, ok := fuzzyScore(query, ep.Key()+" "+ep.Summary); ok {
			hits = append(hits, scored{ep, s})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score < hits[j].score })
	out := make([]model.Endpoint, len(hits))
	for i, h := range hits {
		out[i] = h.ep
	}
	return out
}

// fuzzyScore sums the positions of matched characters; lower is better.
func fuzzyScore(needle, haystack string) (int, bool) {
	needle = strings.ToLower(needle)
	haystack = strings.ToLower(haystack)

	score, j := 0, 0
	for i := 0; i < len(haystack) && j < len(needle); i++ {
		if haystack[i] == needle[j] {
			score += i
			j++
		}
	}
	return score, j == len(needle)
}
