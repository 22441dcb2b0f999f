package api_test

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livemeasure/livemeasure/internal/api"
	"github.com/livemeasure/livemeasure/internal/platform"
	"github.com/livemeasure/livemeasure/internal/recompute"
	"github.com/livemeasure/livemeasure/internal/store"
	"github.com/livemeasure/livemeasure/pkg/component"
	"github.com/livemeasure/livemeasure/pkg/engine"
	"github.com/livemeasure/livemeasure/pkg/issues"
	"github.com/livemeasure/livemeasure/pkg/measure"
	"github.com/livemeasure/livemeasure/pkg/rating"
)

const apiKey = "secret"

func newServer(t *testing.T) http.Handler {
	t.Helper()
	dir := t.TempDir()
	db, err := platform.Open(platform.DriverSQLite, filepath.Join(dir, "measures.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, platform.AutoMigrate(db, platform.DriverSQLite))

	st := store.New(db, platform.DriverSQLite)
	storage := recompute.NewLocalStorage(filepath.Join(dir, "blobs"))
	eng := engine.New(nil)
	svc := recompute.NewService(st, storage, eng)

	mux := http.NewServeMux()
	api.NewHandler(st, storage, svc, eng, api.NewMeasureCache(4), nil).RegisterRoutes(mux)
	return api.CORS(api.APIKeyAuth(apiKey)(mux))
}

func sampleInput(projectID string) []byte {
	in := recompute.Input{
		ProjectID: projectID,
		Name:      "Sample " + projectID,
		Tree: &component.Component{
			ID: "prj", Qualifier: component.QualifierProject,
			Children: []*component.Component{
				{ID: "a.go", Qualifier: component.QualifierFile},
				{ID: "b.go", Qualifier: component.QualifierFile},
			},
		},
		Issues: []issues.Issue{
			{Key: "1", ComponentID: "a.go", Type: issues.TypeCodeSmell, Severity: rating.SeverityMajor, Status: issues.StatusOpen, Effort: 100},
			{Key: "2", ComponentID: "b.go", Type: issues.TypeBug, Severity: rating.SeverityCritical, Status: issues.StatusOpen, Effort: 10},
		},
		DevelopmentCosts: map[string]recompute.DevelopmentCost{"prj": {Overall: "2200"}},
	}
	data, err := json.Marshal(in)
	if err != nil {
		panic(err)
	}
	return data
}

func do(t *testing.T, h http.Handler, method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

var authed = map[string]string{"X-API-Key": apiKey}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestUploadRecomputeAndRead(t *testing.T) {
	h := newServer(t)

	rec := do(t, h, http.MethodPost, "/api/v1/projects/p1/inputs", sampleInput("p1"), authed)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var uploaded struct {
		Components int `json:"components"`
		Issues     int `json:"issues"`
	}
	decode(t, rec, &uploaded)
	assert.Equal(t, 3, uploaded.Components)
	assert.Equal(t, 2, uploaded.Issues)

	rec = do(t, h, http.MethodPost, "/api/v1/projects/p1/recompute", nil, authed)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out recompute.Outcome
	decode(t, rec, &out)
	assert.NotEmpty(t, out.RunID)
	assert.Equal(t, 3, out.Components)

	rec = do(t, h, http.MethodGet, "/api/v1/projects/p1/measures?component=prj&metrics=bugs,sqale_index,reliability_rating", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var one struct {
		Component string      `json:"component"`
		Measures  measure.Set `json:"measures"`
	}
	decode(t, rec, &one)
	assert.Equal(t, "prj", one.Component)
	assert.ElementsMatch(t, []string{"bugs", "reliability_rating", "sqale_index"}, one.Measures.Keys())
	debt, _ := one.Measures["sqale_index"].Float()
	assert.Equal(t, 100.0, debt)
	letter, _ := one.Measures["reliability_rating"].Text()
	assert.Equal(t, "D", letter)

	rec = do(t, h, http.MethodGet, "/api/v1/projects/p1/measures", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all struct {
		Components measure.Snapshot `json:"components"`
	}
	decode(t, rec, &all)
	assert.Len(t, all.Components, 3)

	rec = do(t, h, http.MethodGet, "/api/v1/projects/p1/runs", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var runs struct {
		Runs []store.Run `json:"runs"`
	}
	decode(t, rec, &runs)
	require.Len(t, runs.Runs, 1)
	assert.Equal(t, out.RunID, runs.Runs[0].ID)

	rec = do(t, h, http.MethodGet, "/api/v1/projects/p1/runs/"+out.RunID+"/report", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"sqale_index"`)

	rec = do(t, h, http.MethodGet, "/api/v1/projects/p1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var project struct {
		Name      string     `json:"name"`
		LatestRun *store.Run `json:"latest_run"`
	}
	decode(t, rec, &project)
	assert.Equal(t, "Sample p1", project.Name)
	require.NotNil(t, project.LatestRun)
	assert.Equal(t, out.RunID, project.LatestRun.ID)
}

func TestMeasuresReflectLatestRecompute(t *testing.T) {
	h := newServer(t)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/api/v1/projects/p1/inputs", sampleInput("p1"), authed).Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/v1/projects/p1/recompute", nil, authed).Code)

	bugs := func() float64 {
		rec := do(t, h, http.MethodGet, "/api/v1/projects/p1/measures?component=prj&metrics=bugs", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Measures measure.Set `json:"measures"`
		}
		decode(t, rec, &body)
		v, _ := body.Measures["bugs"].Float()
		return v
	}
	assert.Equal(t, 1.0, bugs())

	var in recompute.Input
	require.NoError(t, json.Unmarshal(sampleInput("p1"), &in))
	in.Issues = append(in.Issues, issues.Issue{Key: "3", ComponentID: "a.go", Type: issues.TypeBug, Severity: rating.SeverityMinor, Status: issues.StatusOpen})
	data, err := json.Marshal(in)
	require.NoError(t, err)

	// The first read cached the measures; the next pass must invalidate them.
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/api/v1/projects/p1/inputs", data, authed).Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/v1/projects/p1/recompute", nil, authed).Code)
	assert.Equal(t, 2.0, bugs())
}

func TestWritesRequireAPIKey(t *testing.T) {
	h := newServer(t)

	rec := do(t, h, http.MethodPost, "/api/v1/projects/p1/inputs", sampleInput("p1"), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/projects/p1/inputs", sampleInput("p1"), map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/projects", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodOptions, "/api/v1/projects/p1/inputs", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestUploadErrors(t *testing.T) {
	h := newServer(t)

	tests := []struct {
		name string
		path string
		body []byte
	}{
		{"malformed json", "/api/v1/projects/p1/inputs", []byte(`{`)},
		{"missing tree", "/api/v1/projects/p1/inputs", []byte(`{"project_id":"p1"}`)},
		{"project mismatch", "/api/v1/projects/p1/inputs", sampleInput("p2")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, tc.path, tc.body, authed)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestUploadGzip(t *testing.T) {
	h := newServer(t)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write(sampleInput("p1"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	rec := do(t, h, http.MethodPost, "/api/v1/projects/p1/inputs", buf.Bytes(), map[string]string{
		"X-API-Key":        apiKey,
		"Content-Encoding": "gzip",
	})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/v1/projects/p1/inputs", []byte("plain"), map[string]string{
		"X-API-Key":        apiKey,
		"Content-Encoding": "gzip",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotFound(t *testing.T) {
	h := newServer(t)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/api/v1/projects/nope/recompute", nil, authed).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/v1/projects/nope", nil, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/v1/projects/nope/measures", nil, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/v1/projects/nope/runs/r1/report", nil, nil).Code)

	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/api/v1/projects/p1/inputs", sampleInput("p1"), authed).Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/v1/projects/p1/recompute", nil, authed).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/v1/projects/p1/measures?component=missing.go", nil, nil).Code)
}

func TestBadQueries(t *testing.T) {
	h := newServer(t)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/api/v1/projects/p1/inputs", sampleInput("p1"), authed).Code)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/v1/projects/p1/measures?metrics=no_such_metric", nil, nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/v1/projects/p1/runs?limit=-1", nil, nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/v1/formulas?new_code=maybe", nil, nil).Code)
}

func TestRecomputeAll(t *testing.T) {
	h := newServer(t)
	for _, id := range []string{"p1", "p2"} {
		require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/api/v1/projects/"+id+"/inputs", sampleInput(id), authed).Code)
	}

	rec := do(t, h, http.MethodPost, "/api/v1/recompute", nil, authed)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Recomputed int `json:"recomputed"`
		Errors     int `json:"errors"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, 2, resp.Recomputed)
	assert.Equal(t, 0, resp.Errors)

	rec = do(t, h, http.MethodPost, "/api/v1/recompute", []byte(`{"project_ids":["p1","missing"]}`), authed)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &resp)
	assert.Equal(t, 1, resp.Recomputed)
	assert.Equal(t, 1, resp.Errors)
}

func TestFormulas(t *testing.T) {
	h := newServer(t)

	rec := do(t, h, http.MethodGet, "/api/v1/formulas?new_code=false", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Formulas []struct {
			Metric struct {
				Key     string `json:"key"`
				NewCode bool   `json:"new_code"`
			} `json:"metric"`
			DependsOn []string `json:"depends_on"`
		} `json:"formulas"`
	}
	decode(t, rec, &resp)
	require.NotEmpty(t, resp.Formulas)

	pos := map[string]int{}
	for i, f := range resp.Formulas {
		assert.False(t, f.Metric.NewCode, f.Metric.Key)
		pos[f.Metric.Key] = i
	}
	for _, f := range resp.Formulas {
		for _, dep := range f.DependsOn {
			assert.Less(t, pos[dep], pos[f.Metric.Key], "%s before %s", dep, f.Metric.Key)
		}
	}

	rec = do(t, h, http.MethodGet, "/api/v1/formulas", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var both struct {
		Formulas []json.RawMessage `json:"formulas"`
	}
	decode(t, rec, &both)
	assert.Greater(t, len(both.Formulas), len(resp.Formulas))
}
