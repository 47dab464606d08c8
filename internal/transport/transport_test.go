package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"apiscope/internal/model"
	"apiscope/internal/value"
)

func TestHTTPExecute(t *testing.T) {
	var gotMethod, gotURI, gotBody, gotAuth, gotEmpty string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotURI = r.URL.RequestURI()
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotAuth = r.Header.Get("Authorization")
		gotEmpty = r.Header.Get("X-Empty")
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Rate-Limit", "10")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"z":1,"a":"two"}`)
	}))
	defer srv.Close()

	body, _ := value.Parse(`{"name":"doggie"}`)
	ep := model.Endpoint{Method: "post", Path: "/pet/{petId}"}
	params := model.RequestParams{
		PathParams:  model.Pairs{{Name: "petId", Value: "7"}},
		QueryParams: model.Pairs{{Name: "q", Value: "a b"}, {Name: "skip", Value: ""}},
		BodyParams:  body,
		Headers: model.Pairs{
			{Name: "authorization", Value: "Bearer t"},
			{Name: "", Value: "ignored"},
			{Name: "x-empty", Value: ""},
		},
	}

	res, err := NewHTTP(srv.URL, time.Second).Execute(context.Background(), ep, params)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if gotMethod != "POST" || gotURI != "/pet/7?q=a%20b" {
		t.Fatalf("request = %s %s", gotMethod, gotURI)
	}
	if gotBody != `{"name":"doggie"}` {
		t.Fatalf("body = %q", gotBody)
	}
	if gotAuth != "Bearer t" || gotEmpty != "" {
		t.Fatalf("headers auth=%q empty=%q", gotAuth, gotEmpty)
	}
	if res.Status != 201 || res.StatusText != "Created" {
		t.Fatalf("status = %d %s", res.Status, res.StatusText)
	}
	if res.Headers["x-rate-limit"] != "10" {
		t.Fatalf("headers = %v", res.Headers)
	}
	if got := value.Compact(res.Data); got != `{"z":1,"a":"two"}` {
		t.Fatalf("data = %s", got)
	}
}

func TestHTTPExecuteOmitsBodyForGet(t *testing.T) {
	var gotLen int64 = -2
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLen = r.ContentLength
		_, _ = io.WriteString(w, "plain text")
	}))
	defer srv.Close()

	res, err := NewHTTP(srv.URL, 0).Execute(context.Background(),
		model.Endpoint{Method: "GET", Path: "/x"},
		model.RequestParams{BodyParams: value.NewObject()})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if gotLen != 0 {
		t.Fatalf("GET carried a body of %d bytes", gotLen)
	}
	if res.Data != "plain text" {
		t.Fatalf("data = %#v", res.Data)
	}
}

func TestHTTPExecuteNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTP(url, time.Second).Execute(context.Background(), model.Endpoint{Method: "GET", Path: "/"}, model.RequestParams{})
	if err == nil {
		t.Fatal("expected error from closed server")
	}
}

func TestDecodeBodySniffsJSON(t *testing.T) {
	if v, ok := decodeBody("", []byte(`[1,2]`)).([]any); !ok || len(v) != 2 {
		t.Fatalf("untyped json not decoded: %#v", v)
	}
	if v := decodeBody("text/plain", []byte(`[1,2]`)); v != "[1,2]" {
		t.Fatalf("text/plain decoded: %#v", v)
	}
	if v := decodeBody("application/json", []byte("  ")); v != nil {
		t.Fatalf("empty body = %#v", v)
	}
	if v := decodeBody("application/json", []byte("{bad")); v != "{bad" {
		t.Fatalf("invalid json = %#v", v)
	}
}

func TestSimulatedUsesFirstExample(t *testing.T) {
	example, _ := value.Parse(`{"id":10,"name":"doggie"}`)
	ep := model.Endpoint{
		Method: "GET",
		Path:   "/pet/{petId}",
		Responses: []model.Response{
			{Status: "default"},
			{Status: "202", Example: example, HasExample: true},
			{Status: "400", Example: "bad", HasExample: true},
		},
	}
	res, err := NewSimulated(0).Execute(context.Background(), ep, model.RequestParams{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Status != 202 || value.Compact(res.Data) != `{"id":10,"name":"doggie"}` {
		t.Fatalf("got %d %s", res.Status, value.Compact(res.Data))
	}

	res.Data.(*value.Object).Set("id", 11.0)
	if value.Compact(example) != `{"id":10,"name":"doggie"}` {
		t.Fatal("result data aliases catalog example")
	}
}

func TestSimulatedFallback(t *testing.T) {
	res, err := NewSimulated(0).Execute(context.Background(), model.Endpoint{Method: "DELETE", Path: "/x"}, model.RequestParams{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Status != 200 || value.Compact(res.Data) != "{}" {
		t.Fatalf("got %d %s", res.Status, value.Compact(res.Data))
	}
}

func TestSimulatedHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSimulated(time.Hour).Execute(ctx, model.Endpoint{Method: "GET"}, model.RequestParams{})
	if err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestNewMode(t *testing.T) {
	if tr, err := New(Options{Mode: "SIMULATE"}); err != nil {
		t.Fatal(err)
	} else if _, ok := tr.(*Simulated); !ok {
		t.Fatalf("got %T", tr)
	}
	if tr, err := New(Options{BaseURL: "http://h"}); err != nil {
		t.Fatal(err)
	} else if h, ok := tr.(*HTTP); !ok || h.Client.Timeout != defaultTimeout {
		t.Fatalf("got %T", tr)
	}
	if _, err := New(Options{Mode: "carrier-pigeon"}); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestPasswordLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/token" {
			http.NotFound(w, r)
			return
		}
		_ = r.ParseForm()
		if r.PostForm.Get("grant_type") != "password" || r.PostForm.Get("username") != "u" || r.PostForm.Get("password") != "p" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"abc","token_type":"bearer"}`)
	}))
	defer srv.Close()

	cred, err := PasswordLogin(context.Background(), nil, srv.URL+"/api", "/token", "u", "p", "")
	if err != nil {
		t.Fatalf("PasswordLogin: %v", err)
	}
	if cred != "Bearer abc" {
		t.Fatalf("credential = %q", cred)
	}
	if _, err := PasswordLogin(context.Background(), nil, srv.URL+"/api", "/token", "u", "wrong", ""); err == nil {
		t.Fatal("expected error for rejected credentials")
	}
}

func TestPasswordLoginTruncatedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Length", "100")
		_, _ = io.WriteString(w, `{"access_token":"abc"}`)
	}))
	defer srv.Close()

	_, err := PasswordLogin(context.Background(), nil, srv.URL, "/token", "u", "p", "")
	if err == nil || !strings.Contains(err.Error(), "could not read token response") {
		t.Fatalf("err = %v", err)
	}
}
