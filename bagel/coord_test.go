package bagel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestProgressStructRoundTrip(t *testing.T) {
	p := Progress{PartitionId: 2, Algorithm: ALL_PAIRS_SHORTEST_PATH, Epoch: 7, Active: 12, Done: true}
	s, err := p.toStruct()
	require.NoError(t, err)
	assert.Equal(t, p, progressFromStruct(s))

	snapshot, err := progressSnapshot(map[int]Progress{2: p, 0: {Algorithm: SHORTEST_PATH, Frontier: 4}})
	require.NoError(t, err)
	decoded, err := progressFromSnapshot(snapshot)
	require.NoError(t, err)
	assert.Equal(t, p, decoded[2])
	assert.Equal(t, 4, decoded[0].Frontier)
}

func TestCoordHTTPProgress(t *testing.T) {
	c := NewCoord()
	require.NoError(t, c.Report(context.Background(), Progress{PartitionId: 1, Algorithm: SHORTEST_PATH, Epoch: 3, Frontier: 2}))
	router := c.Router()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/progress", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Partitions map[string]map[string]interface{} `json:"partitions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 3.0, body.Partitions["1"]["epoch"])
	assert.Equal(t, SHORTEST_PATH, body.Partitions["1"]["algorithm"])

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/progress/1", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/progress/5", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/progress/abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestClientReportsThroughCoord(t *testing.T) {
	c := NewCoord()
	require.NoError(t, c.Start("127.0.0.1:0"))
	defer c.Close()

	client := NewClient()
	require.NoError(t, client.Start("test-client", c.Addr()))
	defer client.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, client.Report(ctx, Progress{PartitionId: 0, Algorithm: SHORTEST_PATH, Epoch: 5, Done: true}))
	require.NoError(t, client.Report(ctx, Progress{PartitionId: 1, Algorithm: SHORTEST_PATH, Epoch: 5, Done: true}))

	var seen map[int]Progress
	err := client.WaitDone(ctx, 2, 10*time.Millisecond, func(p map[int]Progress) { seen = p })
	require.NoError(t, err)
	assert.Len(t, seen, 2)
	assert.Equal(t, uint64(5), c.Snapshot()[1].Epoch)
}
