// Package catalog loads endpoint definitions from a native catalog file or
// an OpenAPI 3 document.
package catalog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/projectdiscovery/gologger"
	"gopkg.in/yaml.v3"

	"apiscope/internal/model"
)

const fetchTimeout = 10 * time.Second

type Catalog struct {
	Title string
	// BaseURL is the catalog's own server URL, empty when it declares none.
	BaseURL   string
	Endpoints []model.Endpoint
}

// Find resolves an endpoint by id or by "METHOD /path".
func (c *Catalog) Find(ref string) (model.Endpoint, bool) {
	ref = strings.TrimSpace(ref)
	for _, ep := range c.Endpoints {
		if ep.ID == ref {
			return ep, true
		}
	}
	method, path, ok := strings.Cut(ref, " ")
	if !ok {
		return model.Endpoint{}, false
	}
	method, path = strings.ToUpper(method), strings.TrimSpace(path)
	for _, ep := range c.Endpoints {
		if strings.ToUpper(ep.Method) == method && ep.Path == path {
			return ep, true
		}
	}
	return model.Endpoint{}, false
}

// Load reads a catalog from a file path or an http(s) URL.
func Load(ctx context.Context, src string) (*Catalog, error) {
	if src == "" {
		return nil, errors.New("no catalog configured")
	}
	var (
		data     []byte
		location *url.URL
		err      error
	)
	if u, perr := url.Parse(src); perr == nil && (u.Scheme == "http" || u.Scheme == "https") {
		location = u
		data, err = fetch(ctx, src)
	} else {
		data, err = os.ReadFile(src)
		location = &url.URL{Path: src}
	}
	if err != nil {
		return nil, err
	}

	c, err := parse(ctx, data, location)
	if err != nil {
		return nil, errors.Wrapf(err, "could not load catalog %s", src)
	}
	gologger.Debug().Msgf("loaded %d endpoints from %s", len(c.Endpoints), src)
	return c, nil
}

// Parse decodes catalog bytes, detecting the OpenAPI format by its
// top-level "openapi" key.
func Parse(data []byte) (*Catalog, error) {
	return parse(context.Background(), data, nil)
}

func parse(ctx context.Context, data []byte, location *url.URL) (*Catalog, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, errors.Wrap(err, "invalid catalog document")
	}
	doc := &root
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		doc = doc.Content[0]
	}
	if doc.Kind == yaml.MappingNode {
		if mapValue(doc, "swagger") != nil {
			return nil, errors.New("swagger 2.0 documents are not supported; convert to OpenAPI 3")
		}
		if mapValue(doc, "openapi") != nil {
			return fromOpenAPI(ctx, data, location)
		}
	}
	return decodeNative(doc)
}

func fetch(ctx context.Context, src string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, errors.Wrap(err, "could not build catalog request")
	}
	client := &http.Client{Timeout: fetchTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "GET %s", src)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("GET %s: %s", src, resp.Status)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return nil, errors.Wrapf(err, "GET %s", src)
	}
	return buf.Bytes(), nil
}

// ResolveBaseURL makes a relative server URL absolute against the location
// the catalog came from.
func ResolveBaseURL(server string, location *url.URL) string {
	server = strings.TrimSpace(server)
	if server == "" {
		return ""
	}
	u, err := url.Parse(server)
	if err != nil || u.IsAbs() || location == nil || !location.IsAbs() {
		return strings.TrimRight(server, "/")
	}
	return strings.TrimRight(location.ResolveReference(u).String(), "/")
}
