package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typhfeng/stk-sub000/internal/featurestore"
)

func newTestEngine(store *featurestore.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	registerRoutes(r, store)
	return r
}

func do(t *testing.T, r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestSwaggerDocJSONServesRegisteredSpec(t *testing.T) {
	r := newTestEngine(featurestore.New([3]int{1, 1, 1}))
	rec := do(t, r, http.MethodGet, "/swagger/doc.json")
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "Feature Store Gateway API")
	assert.Contains(t, rec.Body.String(), "/levels/{level}/size")
}

func TestHealthReturnsOK(t *testing.T) {
	r := newTestEngine(featurestore.New([3]int{1, 1, 1}))
	rec := do(t, r, http.MethodGet, "/health")
	assert.Equal(t, 200, rec.Code)
}

func TestUnknownLevelReturns400(t *testing.T) {
	r := newTestEngine(featurestore.New([3]int{1, 1, 1}))
	rec := do(t, r, http.MethodGet, "/levels/day/size")
	assert.Equal(t, 400, rec.Code)
}

func TestSizeReflectsPushedRows(t *testing.T) {
	store := featurestore.New([3]int{2, 1, 1})
	_, err := store.PushRow(featurestore.Tick, []float64{1, 2}, -1, 20260102)
	require.NoError(t, err)

	r := newTestEngine(store)
	rec := do(t, r, http.MethodGet, "/levels/tick/size")
	assert.Equal(t, 200, rec.Code)

	var body map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body["size"])
}

func TestReadyEndpointMatchesIsTimeslotReady(t *testing.T) {
	store := featurestore.New([3]int{1, 1, 1})
	r := newTestEngine(store)

	rec := do(t, r, http.MethodGet, "/levels/tick/ready?date=20260102&t=0")
	var before map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &before))
	assert.False(t, before["ready"])

	_, err := store.PushRow(featurestore.Tick, []float64{1}, -1, 20260102)
	require.NoError(t, err)

	rec = do(t, r, http.MethodGet, "/levels/tick/ready?date=20260102&t=0")
	var after map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &after))
	assert.True(t, after["ready"])
}

func TestReadyEndpointRejectsMalformedQuery(t *testing.T) {
	r := newTestEngine(featurestore.New([3]int{1, 1, 1}))
	rec := do(t, r, http.MethodGet, "/levels/tick/ready?date=abc&t=0")
	assert.Equal(t, 400, rec.Code)
}

func TestColumnEndpointReturnsValues(t *testing.T) {
	store := featurestore.New([3]int{2, 1, 1})
	_, err := store.PushRow(featurestore.Tick, []float64{1.5, 2.5}, -1, 20260102)
	require.NoError(t, err)

	r := newTestEngine(store)
	rec := do(t, r, http.MethodGet, "/levels/tick/columns/1")
	require.Equal(t, 200, rec.Code)

	var body map[string][]float64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []float64{2.5}, body["values"])
}

func TestColumnEndpointOutOfRangeReturns404(t *testing.T) {
	store := featurestore.New([3]int{1, 1, 1})
	r := newTestEngine(store)
	rec := do(t, r, http.MethodGet, "/levels/tick/columns/9")
	assert.Equal(t, 404, rec.Code)
}

func TestParentIndexEndpoint(t *testing.T) {
	store := featurestore.New([3]int{1, 1, 1})
	_, err := store.PushRow(featurestore.Minute, []float64{1}, 7, 20260102)
	require.NoError(t, err)

	r := newTestEngine(store)
	rec := do(t, r, http.MethodGet, "/levels/minute/parent-index")
	require.Equal(t, 200, rec.Code)

	var body map[string][]int32
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []int32{7}, body["parent_index"])
}

func TestDateCompleteEndpoint(t *testing.T) {
	store := featurestore.New([3]int{1, 1, 1})
	r := newTestEngine(store)

	rec := do(t, r, http.MethodGet, "/dates/20260102/complete")
	var before map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &before))
	assert.False(t, before["complete"])

	store.MarkDateComplete(20260102)
	rec = do(t, r, http.MethodGet, "/dates/20260102/complete")
	var after map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &after))
	assert.True(t, after["complete"])
}
