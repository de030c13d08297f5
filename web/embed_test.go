package web

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"index.html": {Data: []byte("<html>StudyMate</html>")},
		"app.js":     {Data: []byte("console.log('hi')")},
	}
}

func TestSPAHandler(t *testing.T) {
	h := newSPAHandler(testFS())

	cases := []struct {
		name        string
		path        string
		status      int
		contains    string
		cacheHeader string
	}{
		{"root", "/", http.StatusOK, "StudyMate", "no-cache"},
		{"asset", "/app.js", http.StatusOK, "console.log", ""},
		{"client route falls back", "/planner", http.StatusOK, "StudyMate", "no-cache"},
		{"unknown api path", "/api/nope", http.StatusNotFound, `"not found"`, ""},
		{"unknown socket path", "/ws/nope", http.StatusNotFound, `"not found"`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
			assert.Equal(t, tc.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.contains)
			assert.Equal(t, tc.cacheHeader, rec.Header().Get("Cache-Control"))
		})
	}
}

func TestEmbeddedPage(t *testing.T) {
	rec := httptest.NewRecorder()
	SPAHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "StudyMate")
}
