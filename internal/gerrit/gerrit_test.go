package gerrit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcin-skalski/gerrit-top/internal/logging"
)

const magic = ")]}'\n"

// fakeGerrit serves canned bodies keyed by request path.
func fakeGerrit(t *testing.T, bodies map[string]string) (*httptest.Server, func() []*http.Request) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []*http.Request
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Clone(context.Background()))
		mu.Unlock()
		body, ok := bodies[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=UTF-8")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, func() []*http.Request {
		mu.Lock()
		defer mu.Unlock()
		return append([]*http.Request(nil), seen...)
	}
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(baseURL, "gerrit-top-test", logging.Discard())
	require.NoError(t, err)
	return c
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantHost string
		wantBase string
		wantErr  bool
	}{
		{name: "trailing slash", url: "https://review.example.org/", wantHost: "review.example.org", wantBase: "https://review.example.org"},
		{name: "with port and path", url: "http://gerrit.local:8080/r/", wantHost: "gerrit.local", wantBase: "http://gerrit.local:8080/r"},
		{name: "no scheme", url: "review.example.org", wantErr: true},
		{name: "garbage", url: "://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(tt.url, "ua", logging.Discard())
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, c.Hostname())
			assert.Equal(t, tt.wantBase, c.baseURL)
		})
	}
}

func TestStripMagicPrefix(t *testing.T) {
	payload, err := StripMagicPrefix([]byte(`)]}'` + "\n" + `{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(payload))

	var withPrefix, plain map[string]int
	require.NoError(t, json.Unmarshal(payload, &withPrefix))
	require.NoError(t, json.Unmarshal([]byte(`{"a":1}`), &plain))
	assert.Equal(t, plain, withPrefix)

	_, err = StripMagicPrefix([]byte(`{"a":1}`))
	assert.ErrorIs(t, err, ErrNoMagicPrefix)
}

func TestVersion(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{name: "string", body: magic + `"2.8"`, want: "2.8"},
		{name: "number keeps literal", body: magic + "2.10\n", want: "2.10"},
		{name: "empty string", body: magic + `""`, wantErr: true},
		{name: "object", body: magic + `{"v":"2.8"}`, wantErr: true},
		{name: "no prefix", body: `"2.8"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := fakeGerrit(t, map[string]string{"/config/server/version": tt.body})
			got, err := newTestClient(t, srv.URL+"/").Version(context.Background())
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProjectCount(t *testing.T) {
	srv, _ := fakeGerrit(t, map[string]string{
		"/projects/": magic + `{"All-Projects":{"id":"All-Projects"},"core":{"id":"core"},"web":{"id":"web"}}`,
	})

	n, err := newTestClient(t, srv.URL).ProjectCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestProjectCount_RejectsNonObject(t *testing.T) {
	for _, body := range []string{magic + `[]`, magic + `null`, magic + `{`} {
		srv, _ := fakeGerrit(t, map[string]string{"/projects/": body})
		_, err := newTestClient(t, srv.URL).ProjectCount(context.Background())
		assert.Error(t, err, "body %q", body)
	}
}

func TestOpenChanges(t *testing.T) {
	srv, seen := fakeGerrit(t, map[string]string{
		"/changes/": magic + `[
			{"_number":102,"change_id":"I0b2f","subject":"Fix the build","owner":{"name":"Ada Lovelace"},"insertions":12,"deletions":3},
			{"_number":101,"change_id":"I9a1c","subject":"Add docs","owner":{"username":"grace"}},
			{"_number":100,"change_id":"I7777","subject":"Half counts","owner":{"_account_id":1000096},"insertions":5}
		]`,
	})

	changes, err := newTestClient(t, srv.URL+"/").OpenChanges(context.Background(), 24)
	require.NoError(t, err)
	require.Len(t, changes, 3)

	assert.Equal(t, 102, changes[0].Number)
	assert.Equal(t, "I0b2f", changes[0].ChangeID)
	assert.Equal(t, "Fix the build", changes[0].Subject)
	assert.Equal(t, "Ada Lovelace", changes[0].Owner)
	require.NotNil(t, changes[0].Insertions)
	require.NotNil(t, changes[0].Deletions)
	assert.Equal(t, 12, *changes[0].Insertions)
	assert.Equal(t, 3, *changes[0].Deletions)

	assert.Equal(t, 101, changes[1].Number)
	assert.Equal(t, "grace", changes[1].Owner)
	assert.Nil(t, changes[1].Insertions, "counts must not leak between changes")
	assert.Nil(t, changes[1].Deletions)

	assert.Equal(t, "1000096", changes[2].Owner)
	assert.Nil(t, changes[2].Insertions, "partial counts are treated as unknown")

	requests := seen()
	require.Len(t, requests, 1)
	req := requests[0]
	assert.Equal(t, "status:open", req.URL.Query().Get("q"))
	assert.Equal(t, "24", req.URL.Query().Get("n"))
	assert.Equal(t, "gerrit-top-test", req.Header.Get("User-Agent"))
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestOpenChanges_TruncatesToLimit(t *testing.T) {
	srv, _ := fakeGerrit(t, map[string]string{
		"/changes/": magic + `[
			{"_number":3,"change_id":"Ic"},
			{"_number":2,"change_id":"Ib"},
			{"_number":1,"change_id":"Ia"}
		]`,
	})

	changes, err := newTestClient(t, srv.URL).OpenChanges(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, 3, changes[0].Number)
	assert.Equal(t, 2, changes[1].Number)
}

func TestOpenChanges_RejectsNonArray(t *testing.T) {
	for _, body := range []string{magic + `null`, magic + `{}`, magic + `{`} {
		srv, _ := fakeGerrit(t, map[string]string{"/changes/": body})
		changes, err := newTestClient(t, srv.URL).OpenChanges(context.Background(), 10)
		assert.Error(t, err, "body %q", body)
		assert.Nil(t, changes, "body %q", body)
	}
}

func TestOpenChanges_EmptyArrayIsNoChanges(t *testing.T) {
	srv, _ := fakeGerrit(t, map[string]string{"/changes/": magic + `[]`})

	changes, err := newTestClient(t, srv.URL).OpenChanges(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestOpenChanges_MissingRequiredField(t *testing.T) {
	srv, _ := fakeGerrit(t, map[string]string{
		"/changes/": magic + `[{"_number":1,"change_id":"Ia"},{"change_id":"Ib"}]`,
	})

	_, err := newTestClient(t, srv.URL).OpenChanges(context.Background(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry 1")
}

func TestGet_HTTPError(t *testing.T) {
	srv, _ := fakeGerrit(t, map[string]string{})

	_, err := newTestClient(t, srv.URL).Version(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestGet_TransportError(t *testing.T) {
	srv, _ := fakeGerrit(t, map[string]string{})
	c := newTestClient(t, srv.URL)
	srv.Close()

	_, err := c.ProjectCount(context.Background())
	assert.Error(t, err)
}
