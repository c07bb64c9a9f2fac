package gateway

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/typhfeng/stk-sub000/internal/featurestore"
)

func TestServerStartAndStopServesHealth(t *testing.T) {
	store := featurestore.New([3]int{1, 1, 1})
	s := NewServer("127.0.0.1:18099", store, zap.NewNop(), true)
	s.Start()

	var resp *http.Response
	var err error
	require.Eventually(t, func() bool {
		resp, err = http.Get("http://127.0.0.1:18099/health")
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
