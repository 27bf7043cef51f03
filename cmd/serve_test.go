package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/floodrisk/internal/config"
	"github.com/sells-group/floodrisk/internal/model"
	"github.com/sells-group/floodrisk/internal/store"
)

var testEngine = config.EngineConfig{
	Method:              "eigen",
	ConsistencyLimit:    0.1,
	WeightTolerance:     1e-6,
	ReciprocalTolerance: 0.05,
}

func serve(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoint(t *testing.T) {
	rr := serve(t, newRouter(nil, testEngine), http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestWeightsEndpoint(t *testing.T) {
	rr := serve(t, newRouter(nil, testEngine), http.MethodPost, "/v1/weights", weightsRequest{
		Matrix: [][]float64{{1, 1, 1}, {1, 1, 1}, {1, 1, 1}},
		Names:  []string{"elevation", "slope", "rainfall"},
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Names      []string  `json:"names"`
		Weights    []float64 `json:"weights"`
		CR         float64   `json:"cr"`
		Consistent bool      `json:"consistent"`
		Limit      float64   `json:"limit"`
		Method     string    `json:"method"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, []string{"elevation", "slope", "rainfall"}, body.Names)
	require.Len(t, body.Weights, 3)
	for _, w := range body.Weights {
		assert.InDelta(t, 1.0/3, w, 1e-9)
	}
	assert.InDelta(t, 0, body.CR, 1e-9)
	assert.True(t, body.Consistent)
	assert.Equal(t, 0.1, body.Limit)
	assert.Equal(t, "eigen", body.Method)
}

func TestWeightsEndpoint_Errors(t *testing.T) {
	h := newRouter(nil, testEngine)

	rr := serve(t, h, http.MethodPost, "/v1/weights", weightsRequest{Matrix: [][]float64{{1, -2}, {0.5, 1}}})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = serve(t, h, http.MethodPost, "/v1/weights", weightsRequest{Matrix: [][]float64{{1, 2}, {0.5, 1}}, Method: "geometric"})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/weights", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWeightsEndpoint_StrictReciprocal(t *testing.T) {
	eng := testEngine
	eng.StrictReciprocal = true
	rr := serve(t, newRouter(nil, eng), http.MethodPost, "/v1/weights", weightsRequest{Matrix: [][]float64{{1, 3}, {3, 1}}})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestRunsEndpoints_StoreDisabled(t *testing.T) {
	h := newRouter(nil, testEngine)
	assert.Equal(t, http.StatusServiceUnavailable, serve(t, h, http.MethodGet, "/v1/runs", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(t, h, http.MethodGet, "/v1/runs/x", nil).Code)
}

func TestListRunsEndpoint(t *testing.T) {
	st := &mockStore{}
	st.On("ListRuns", mock.Anything, store.RunFilter{Status: model.RunStatusComplete, Name: "pune", Limit: 5, Offset: 10}).
		Return([]model.Run{{ID: "run-1", Name: "pune", Status: model.RunStatusComplete}}, nil)

	rr := serve(t, newRouter(st, testEngine), http.MethodGet, "/v1/runs?status=complete&name=pune&limit=5&offset=10", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var runs []model.Run
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	st.AssertExpectations(t)
}

func TestListRunsEndpoint_Empty(t *testing.T) {
	st := &mockStore{}
	st.On("ListRuns", mock.Anything, store.RunFilter{}).Return(nil, nil)

	rr := serve(t, newRouter(st, testEngine), http.MethodGet, "/v1/runs", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())
}

func TestListRunsEndpoint_BadLimit(t *testing.T) {
	st := &mockStore{}
	rr := serve(t, newRouter(st, testEngine), http.MethodGet, "/v1/runs?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	st.AssertNotCalled(t, "ListRuns", mock.Anything, mock.Anything)
}

func TestListRunsEndpoint_StoreError(t *testing.T) {
	st := &mockStore{}
	st.On("ListRuns", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	rr := serve(t, newRouter(st, testEngine), http.MethodGet, "/v1/runs", nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestGetRunEndpoint(t *testing.T) {
	st := &mockStore{}
	st.On("GetRun", mock.Anything, "run-1").Return(&model.Run{ID: "run-1", Status: model.RunStatusRejected}, nil)
	st.On("GetRun", mock.Anything, "missing").Return(nil, store.ErrNotFound)
	st.On("GetRun", mock.Anything, "broken").Return(nil, errors.New("db down"))
	h := newRouter(st, testEngine)

	rr := serve(t, h, http.MethodGet, "/v1/runs/run-1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var run model.Run
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &run))
	assert.Equal(t, model.RunStatusRejected, run.Status)

	assert.Equal(t, http.StatusNotFound, serve(t, h, http.MethodGet, "/v1/runs/missing", nil).Code)
	assert.Equal(t, http.StatusInternalServerError, serve(t, h, http.MethodGet, "/v1/runs/broken", nil).Code)
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/v1/weights", nil)
	req.Header.Set("Origin", "https://maps.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()

	newRouter(nil, testEngine).ServeHTTP(rr, req)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}
