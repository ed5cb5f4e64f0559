package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttd2089/ring-queue/internal/messages"
	"github.com/ttd2089/ring-queue/internal/metrics"
	"github.com/ttd2089/ring-queue/internal/observer"
	"github.com/ttd2089/ring-queue/internal/ringbuf"
)

func newTestMux(t *testing.T) (http.Handler, *recentStore) {
	t.Helper()
	stats := metrics.NewCount(time.Minute)
	recent, err := newRecentStore(2, func(key string) ringbuf.Observer {
		return observer.NewCounting(stats, key)
	})
	require.NoError(t, err)
	logger, _ := test.NewNullLogger()
	return newMux(stats, recent, logger), recent
}

func serve(h http.Handler, method, target string, header http.Header) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		r.Header[k] = v
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestServer(t *testing.T) {
	key := url.PathEscape("c1:foo")

	t.Run("GET /recent/{key}", func(t *testing.T) {
		h, recent := newTestMux(t)
		for i := 0; i < 3; i++ {
			require.NoError(t, recent.Add(messages.Message{CustomerID: "c1", Type: "foo", Body: string(rune('a' + i))}))
		}

		t.Run("serves snapshot as json", func(t *testing.T) {
			w := serve(h, http.MethodGet, "/recent/"+key, nil)
			require.Equal(t, http.StatusOK, w.Code)
			actual := []messages.Message{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &actual))
			assert.Equal(t, []string{"b", "c"}, bodies(actual))
		})

		t.Run("serves text when requested", func(t *testing.T) {
			w := serve(h, http.MethodGet, "/recent/"+key, http.Header{"Accept": {"text/html, text/plain;q=0.9"}})
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "[c1:foo \"b\" c1:foo \"c\"]\n", w.Body.String())
		})

		t.Run("returns not found for unknown key", func(t *testing.T) {
			w := serve(h, http.MethodGet, "/recent/nope", nil)
			assert.Equal(t, http.StatusNotFound, w.Code)
		})
	})

	t.Run("GET /recent", func(t *testing.T) {
		h, recent := newTestMux(t)
		require.NoError(t, recent.Add(messages.Message{CustomerID: "c1", Type: "foo", Body: "x"}))
		require.NoError(t, recent.Add(messages.Message{CustomerID: "c2", Type: "bar", Body: "y"}))

		w := serve(h, http.MethodGet, "/recent", nil)
		require.Equal(t, http.StatusOK, w.Code)
		actual := map[string][]messages.Message{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &actual))
		assert.Equal(t, []string{"x"}, bodies(actual["c1:foo"]))
		assert.Equal(t, []string{"y"}, bodies(actual["c2:bar"]))
	})

	t.Run("POST /recent/{key}/resize", func(t *testing.T) {
		h, recent := newTestMux(t)
		for i := 0; i < 2; i++ {
			require.NoError(t, recent.Add(messages.Message{CustomerID: "c1", Type: "foo"}))
		}

		testCases := []struct {
			name         string
			capacity     string
			expectedCode int
		}{
			{name: "grows", capacity: "4", expectedCode: http.StatusNoContent},
			{name: "rejects below size", capacity: "1", expectedCode: http.StatusBadRequest},
			{name: "rejects non-integer", capacity: "many", expectedCode: http.StatusBadRequest},
		}
		for _, tt := range testCases {
			t.Run(tt.name, func(t *testing.T) {
				w := serve(h, http.MethodPost, "/recent/"+key+"/resize?capacity="+tt.capacity, nil)
				assert.Equal(t, tt.expectedCode, w.Code)
			})
		}

		snapshot, err := recent.Snapshot("c1:foo")
		require.NoError(t, err)
		assert.Len(t, snapshot, 2)
	})

	t.Run("DELETE /recent/{key}", func(t *testing.T) {
		h, recent := newTestMux(t)
		require.NoError(t, recent.Add(messages.Message{CustomerID: "c1", Type: "foo"}))

		w := serve(h, http.MethodDelete, "/recent/"+key, nil)
		assert.Equal(t, http.StatusNoContent, w.Code)

		snapshot, err := recent.Snapshot("c1:foo")
		require.NoError(t, err)
		assert.Empty(t, snapshot)

		w = serve(h, http.MethodDelete, "/recent/nope", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("GET /stats", func(t *testing.T) {
		h, recent := newTestMux(t)
		require.NoError(t, recent.Add(messages.Message{CustomerID: "c1", Type: "foo"}))

		w := serve(h, http.MethodGet, "/stats", nil)
		require.Equal(t, http.StatusOK, w.Code)
		actual := map[string]map[string]int{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &actual))

		total := 0
		for _, count := range actual["c1:foo:Enqueued"] {
			total += count
		}
		assert.Equal(t, 1, total)
	})
}
