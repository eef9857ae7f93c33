package testing

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Request is a call recorded by [FakeSpotify].
type Request struct {
	Method   string
	Path     string
	RawQuery string
	Token    string
	Body     []byte
}

// DecodeBody unmarshals the recorded request body into v.
func (r Request) DecodeBody(t *testing.T, v any) {
	t.Helper()
	if err := json.Unmarshal(r.Body, v); err != nil {
		t.Fatalf("failed to decode %s %s body %q: %v", r.Method, r.Path, r.Body, err)
	}
}

// FakeSpotify is an httptest server standing in for the Web API and accounts service.
//
// Routes match on method and path only. Unrouted calls answer 404 with a Web API error body.
type FakeSpotify struct {
	*httptest.Server

	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	requests []Request
}

// NewFakeSpotify starts a fake server that is closed when the test ends.
func NewFakeSpotify(t *testing.T) *FakeSpotify {
	t.Helper()
	f := &FakeSpotify{routes: make(map[string]http.HandlerFunc)}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

func routeKey(method, path string) string { return method + " " + path }

func (f *FakeSpotify) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(strings.NewReader(string(body)))

	f.mu.Lock()
	f.requests = append(f.requests, Request{
		Method:   r.Method,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
		Token:    strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "),
		Body:     body,
	})
	h, ok := f.routes[routeKey(r.Method, r.URL.Path)]
	f.mu.Unlock()

	if !ok {
		WriteJSON(w, http.StatusNotFound, APIError(http.StatusNotFound, "no route "+r.Method+" "+r.URL.Path))
		return
	}
	h(w, r)
}

// Handle registers h for method and path.
func (f *FakeSpotify) Handle(method, path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[routeKey(method, path)] = h
}

// JSON registers a fixed JSON response.
func (f *FakeSpotify) JSON(method, path string, status int, body any) {
	f.Handle(method, path, func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, status, body)
	})
}

// Sequence registers handlers used in call order. The last one repeats.
func (f *FakeSpotify) Sequence(method, path string, hs ...http.HandlerFunc) {
	var mu sync.Mutex
	n := 0
	f.Handle(method, path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		i := min(n, len(hs)-1)
		n++
		mu.Unlock()
		hs[i](w, r)
	})
}

// Paged serves pages as a cursor-paginated {items, next} collection.
func (f *FakeSpotify) Paged(path string, pages ...[]any) {
	f.PagedUnder(path, "", pages...)
}

// PagedUnder serves pages nested under key, as in {artists: {items, next}}.
func (f *FakeSpotify) PagedUnder(path, key string, pages ...[]any) {
	f.Handle(http.MethodGet, path, func(w http.ResponseWriter, r *http.Request) {
		i, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if i < 0 || i >= len(pages) {
			WriteJSON(w, http.StatusBadRequest, APIError(http.StatusBadRequest, "bad page"))
			return
		}

		items := pages[i]
		if items == nil {
			items = []any{}
		}
		page := map[string]any{"items": items, "next": nil}
		if i < len(pages)-1 {
			q := r.URL.Query()
			q.Set("page", strconv.Itoa(i+1))
			page["next"] = fmt.Sprintf("%s%s?%s", f.URL, path, q.Encode())
		}

		if key != "" {
			WriteJSON(w, http.StatusOK, map[string]any{key: page})
			return
		}
		WriteJSON(w, http.StatusOK, page)
	})
}

// Requests returns recorded calls matching method and path, in order.
func (f *FakeSpotify) Requests(method, path string) []Request {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Request
	for _, r := range f.requests {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// Count returns how many calls matched method and path.
func (f *FakeSpotify) Count(method, path string) int {
	return len(f.Requests(method, path))
}

// Total returns how many calls were made.
func (f *FakeSpotify) Total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// APIError builds a Web API error body.
func APIError(status int, message string) map[string]any {
	return map[string]any{"error": map[string]any{"status": status, "message": message}}
}

// WriteJSON writes body with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// Items builds a page of n items.
func Items(n int, item func(i int) any) []any {
	out := make([]any, n)
	for i := range n {
		out[i] = item(i)
	}
	return out
}
