package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"apiscope/internal/form"
	"apiscope/internal/store"
	"apiscope/internal/value"
)

// requestFlags fill in the request of the selected endpoint the way the
// explorer's form would.
type requestFlags struct {
	path   []string
	query  []string
	header []string
	set    []string
	body   string
	token  string
}

func (f *requestFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringArrayVar(&f.path, "path", nil, "path parameter name=value (repeatable)")
	fs.StringArrayVar(&f.query, "query", nil, "query parameter name=value (repeatable)")
	fs.StringArrayVarP(&f.header, "header", "H", nil, "header name=value, or name= to drop it (repeatable)")
	fs.StringArrayVar(&f.set, "set", nil, "body field path=value, e.g. category.name=dogs or tags[0].name=x (repeatable)")
	fs.StringVar(&f.body, "body", "", "raw JSON body, or @file")
	fs.StringVar(&f.token, "token", "", "authorization token; a bare token is sent as Bearer")
}

// apply runs after the endpoint is selected. The raw body goes first so
// that --set edits land on top of it.
func (f *requestFlags) apply(st *store.Store) error {
	for _, kv := range f.path {
		name, v, err := splitPair(kv)
		if err != nil {
			return err
		}
		if err := st.SetPathParam(name, v); err != nil {
			return err
		}
	}
	for _, kv := range f.query {
		name, v, err := splitPair(kv)
		if err != nil {
			return err
		}
		if err := st.SetQueryParam(name, v); err != nil {
			return err
		}
	}
	if f.token != "" {
		st.SetCredential(f.token)
	}
	for _, kv := range f.header {
		name, v, err := splitPair(kv)
		if err != nil {
			return err
		}
		if v == "" {
			st.DeleteHeader(name)
			continue
		}
		st.SetHeader(name, v)
	}
	if f.body != "" {
		text, err := readBody(f.body)
		if err != nil {
			return err
		}
		if err := st.SetBodyText(text); err != nil {
			return err
		}
		if !st.BodyInSync() {
			return errors.New("--body is not valid JSON")
		}
	}
	if len(f.set) == 0 {
		return nil
	}
	fm := form.New(st, st.BodySchema())
	for _, kv := range f.set {
		at, v, err := splitPair(kv)
		if err != nil {
			return err
		}
		p, err := value.ParsePath(at)
		if err != nil {
			return errors.Wrapf(err, "--set %s", kv)
		}
		if err := fm.Assign(p, v); err != nil {
			return errors.Wrapf(err, "--set %s", kv)
		}
	}
	return nil
}

func splitPair(kv string) (string, string, error) {
	name, v, ok := strings.Cut(kv, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", "", fmt.Errorf("%q: want name=value", kv)
	}
	return name, v, nil
}

func readBody(arg string) (string, error) {
	file, ok := strings.CutPrefix(arg, "@")
	if !ok {
		return arg, nil
	}
	b, err := os.ReadFile(file)
	if err != nil {
		return "", errors.Wrap(err, "could not read body file")
	}
	return strings.TrimSpace(string(b)), nil
}
