package orchestrator

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"apiscope/internal/model"
	"apiscope/internal/store"
	"apiscope/internal/value"
)

type fakeTransport struct {
	mu     sync.Mutex
	calls  int
	got    model.RequestParams
	result model.RequestResult
	err    error
	block  chan struct{}
}

func (f *fakeTransport) Execute(ctx context.Context, ep model.Endpoint, params model.RequestParams) (model.RequestResult, error) {
	f.mu.Lock()
	f.calls++
	f.got = params
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	return f.result, f.err
}

func (f *fakeTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func deleteUser() *model.Endpoint {
	return &model.Endpoint{
		ID:         "delete-user",
		Method:     "DELETE",
		Path:       "/user/{username}",
		PathParams: []model.Param{{Name: "username", Required: true, Schema: &model.Schema{Type: model.TypeString}}},
	}
}

func addPet() *model.Endpoint {
	return &model.Endpoint{
		ID:     "add-pet",
		Method: "POST",
		Path:   "/pet",
		QueryParams: []model.Param{
			{Name: "dryRun", Required: true},
			{Name: "trace"},
		},
		RequestBody: model.RequestBody{Required: true, Schema: &model.Schema{
			Type:     model.TypeObject,
			Required: []string{"id", "name", "available", "category"},
			Properties: []model.Property{
				{Name: "id", Schema: &model.Schema{Type: model.TypeInteger}},
				{Name: "name", Schema: &model.Schema{Type: model.TypeString}},
				{Name: "available", Schema: &model.Schema{Type: model.TypeBoolean}},
				{Name: "category", Schema: &model.Schema{
					Type:       model.TypeObject,
					Required:   []string{"name"},
					Properties: []model.Property{{Name: "name", Schema: &model.Schema{Type: model.TypeString}}},
				}},
			},
		}},
	}
}

func selected(ep *model.Endpoint) *store.Store {
	s := store.New(model.Pairs{{Name: "accept", Value: "application/json"}})
	s.Select(ep)
	return s
}

func TestMissingPathParamNeverReachesTransport(t *testing.T) {
	ft := &fakeTransport{}
	o := New(ft)
	s := selected(deleteUser())

	_, err := o.Submit(context.Background(), s.Snapshot())
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if !reflect.DeepEqual(verr.Names(), []string{"username"}) {
		t.Fatalf("names = %v", verr.Names())
	}
	if ft.count() != 0 {
		t.Fatalf("transport called %d times", ft.count())
	}
	if len(o.History()) != 0 {
		t.Fatal("validation failure recorded in history")
	}
}

func TestBlankPathParamIsMissing(t *testing.T) {
	s := selected(deleteUser())
	_ = s.SetPathParam("username", "   ")
	if err := Validate(*deleteUser(), s.Snapshot()); err == nil {
		t.Fatal("whitespace-only value passed validation")
	}
}

func TestZeroAndFalseCountAsPresent(t *testing.T) {
	s := selected(addPet())
	_ = s.SetQueryParam("dryRun", "true")
	_ = s.SetBodyValue(value.Path{value.Key("name")}, "doggie")
	_ = s.SetBodyValue(value.Path{value.Key("category"), value.Key("name")}, "dogs")

	if v := value.Get(s.Body(), value.Path{value.Key("id")}); v != 0.0 {
		t.Fatalf("id = %#v", v)
	}
	if err := Validate(*addPet(), s.Snapshot()); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestCollectsEveryViolation(t *testing.T) {
	s := selected(addPet())
	_ = s.SetBodyValue(value.Path{value.Key("id")}, nil)

	err := Validate(*addPet(), s.Snapshot())
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v", err)
	}
	want := []string{"dryRun", "id", "name", "category.name"}
	if !reflect.DeepEqual(verr.Names(), want) {
		t.Fatalf("names = %v, want %v", verr.Names(), want)
	}
	if verr.Violations[0].Location != "query" || verr.Violations[1].Location != "body" {
		t.Fatalf("locations = %+v", verr.Violations)
	}
}

func TestMissingParentReportedOnce(t *testing.T) {
	s := selected(addPet())
	_ = s.SetQueryParam("dryRun", "1")
	_ = s.SetBodyText(`{"id":1,"name":"x","available":false}`)

	err := Validate(*addPet(), s.Snapshot())
	var verr *ValidationError
	if !errors.As(err, &verr) || !reflect.DeepEqual(verr.Names(), []string{"category"}) {
		t.Fatalf("err = %v", err)
	}
}

func TestOptionalBodyNotChecked(t *testing.T) {
	ep := addPet()
	ep.RequestBody.Required = false
	s := selected(ep)
	_ = s.SetQueryParam("dryRun", "1")
	_ = s.SetBodyText(`{}`)
	if err := Validate(*ep, s.Snapshot()); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestSubmitRecordsHistory(t *testing.T) {
	data, _ := value.Parse(`{"ok":true}`)
	ft := &fakeTransport{result: model.RequestResult{Status: 200, StatusText: "OK", Data: data, Time: time.Millisecond}}
	o := New(ft)
	s := selected(deleteUser())
	_ = s.SetPathParam("username", "theUser")

	res, err := o.Submit(context.Background(), s.Snapshot())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Status != 200 || res.Data != data {
		t.Fatalf("result altered: %+v", res)
	}
	if ft.got.PathParams.Value("username") != "theUser" || ft.got.BodyParams != nil {
		t.Fatalf("params = %+v", ft.got)
	}
	if ft.got.Headers.Value("accept") != "application/json" {
		t.Fatalf("headers = %v", ft.got.Headers)
	}

	_ = s.SetPathParam("username", "other")
	data.(*value.Object).Set("ok", false)

	h := o.History()
	if len(h) != 1 || h[0].ID == "" {
		t.Fatalf("history = %+v", h)
	}
	if h[0].Params.PathParams.Value("username") != "theUser" {
		t.Fatal("history entry follows later edits")
	}
	if value.Compact(h[0].Result.Data) != `{"ok":true}` {
		t.Fatal("history entry aliases result data")
	}
	if last, ok := o.Last(); !ok || last.Status != 200 {
		t.Fatalf("last = %+v", last)
	}
}

func TestSubmitSendsBodyForPost(t *testing.T) {
	ft := &fakeTransport{result: model.RequestResult{Status: 200}}
	o := New(ft)
	s := selected(addPet())
	_ = s.SetQueryParam("dryRun", "1")
	_ = s.SetBodyText(`{"id":0,"name":"a","available":true,"category":{"name":"c"}}`)

	if _, err := o.Submit(context.Background(), s.Snapshot()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got := value.Compact(ft.got.BodyParams); got != `{"id":0,"name":"a","available":true,"category":{"name":"c"}}` {
		t.Fatalf("body = %s", got)
	}
}

func TestTransportFailureKeepsLastResult(t *testing.T) {
	ft := &fakeTransport{result: model.RequestResult{Status: 204}}
	o := New(ft)
	s := selected(deleteUser())
	_ = s.SetPathParam("username", "u")
	if _, err := o.Submit(context.Background(), s.Snapshot()); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("connection refused")
	ft.err = boom
	_, err := o.Submit(context.Background(), s.Snapshot())
	var rerr *RequestError
	if !errors.As(err, &rerr) || !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if last, _ := o.Last(); last.Status != 204 {
		t.Fatalf("last = %+v", last)
	}
	if len(o.History()) != 1 {
		t.Fatalf("history len = %d", len(o.History()))
	}
	if o.Loading() {
		t.Fatal("still loading after failure")
	}
}

func TestSubmitWhileLoadingIsRefused(t *testing.T) {
	ft := &fakeTransport{block: make(chan struct{}), result: model.RequestResult{Status: 200}}
	o := New(ft)
	s := selected(deleteUser())
	_ = s.SetPathParam("username", "u")

	done := make(chan error, 1)
	go func() {
		_, err := o.Submit(context.Background(), s.Snapshot())
		done <- err
	}()
	for ft.count() == 0 {
		time.Sleep(time.Millisecond)
	}
	if !o.Loading() {
		t.Fatal("not loading during transport call")
	}
	if _, err := o.Submit(context.Background(), s.Snapshot()); !errors.Is(err, ErrBusy) {
		t.Fatalf("err = %v, want ErrBusy", err)
	}
	close(ft.block)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if ft.count() != 1 {
		t.Fatalf("transport called %d times", ft.count())
	}
}

func TestSubmitWithoutEndpoint(t *testing.T) {
	o := New(&fakeTransport{})
	if _, err := o.Submit(context.Background(), store.New(nil).Snapshot()); !errors.Is(err, store.ErrNoEndpoint) {
		t.Fatalf("err = %v", err)
	}
}
