package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cohortiq-inc/cohortiq-engine/pkg/apperrors"
)

// fakeWorker wires a Client to an in-process worker loop over pipes. handle
// returns the response for one request, or nil to swallow it.
func fakeWorker(t *testing.T, handle func(req requestEnvelope) *responseEnvelope) *Client {
	t.Helper()

	stdinR, stdinW := io.Pipe()
	stdoutR, stdoutW := io.Pipe()

	var encMu sync.Mutex
	go func() {
		dec := json.NewDecoder(stdinR)
		enc := json.NewEncoder(stdoutW)
		for {
			var req requestEnvelope
			if err := dec.Decode(&req); err != nil {
				return
			}
			// Each request is answered independently, so handlers may
			// delay and responses may interleave out of order.
			go func(req requestEnvelope) {
				if resp := handle(req); resp != nil {
					encMu.Lock()
					defer encMu.Unlock()
					_ = enc.Encode(resp)
				}
			}(req)
		}
	}()

	c := &Client{
		timeout: 200 * time.Millisecond,
		logger:  zap.NewNop(),
		pending: make(map[string]chan responseEnvelope),
	}
	c.spawn = func() (io.WriteCloser, io.ReadCloser, func() error, error) {
		stop := func() error {
			_ = stdinW.Close()
			return stdoutW.Close()
		}
		return stdinW, stdoutR, stop, nil
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClient_Cluster(t *testing.T) {
	c := fakeWorker(t, func(req requestEnvelope) *responseEnvelope {
		assert.Equal(t, requestTypeCluster, req.Type)
		assert.Equal(t, 4, req.NumClusters)
		ids := make([]int, len(req.CustomerIDs))
		for i := range ids {
			ids[i] = i % req.NumClusters
		}
		return &responseEnvelope{
			ID:          req.ID,
			CustomerIDs: req.CustomerIDs,
			ClusterIDs:  ids,
			GPUUsed:     req.UseGPU,
		}
	})

	result, err := c.Cluster(context.Background(), ClusterRequest{
		CustomerIDs: []string{"a", "b", "c"},
		Features:    [][]float64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}},
		NumClusters: 4,
		ScalingMode: ScalingModeZScore,
		UseGPU:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, result.CustomerIDs)
	assert.Equal(t, []int{0, 1, 2}, result.ClusterIDs)
	assert.True(t, result.GPUUsed)
}

func TestClient_WorkerReportsError(t *testing.T) {
	c := fakeWorker(t, func(req requestEnvelope) *responseEnvelope {
		return &responseEnvelope{ID: req.ID, Error: "singular feature matrix"}
	})

	_, err := c.Cluster(context.Background(), ClusterRequest{CustomerIDs: []string{"a"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrWorkerError))
	assert.Contains(t, err.Error(), "singular feature matrix")
}

func TestClient_Timeout(t *testing.T) {
	c := fakeWorker(t, func(req requestEnvelope) *responseEnvelope {
		return nil // never answer
	})
	c.timeout = 50 * time.Millisecond

	_, err := c.Cluster(context.Background(), ClusterRequest{CustomerIDs: []string{"a"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrWorkerTimeout))
}

func TestClient_MismatchedAssignments(t *testing.T) {
	c := fakeWorker(t, func(req requestEnvelope) *responseEnvelope {
		return &responseEnvelope{
			ID:          req.ID,
			CustomerIDs: req.CustomerIDs,
			ClusterIDs:  []int{0},
		}
	})

	_, err := c.Cluster(context.Background(), ClusterRequest{CustomerIDs: []string{"a", "b"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrWorkerError))
}

func TestClient_OutOfOrderResponses(t *testing.T) {
	// The larger job answers last, so the first caller's response arrives
	// after the second caller's. Correlation ids must keep them straight.
	c := fakeWorker(t, func(req requestEnvelope) *responseEnvelope {
		if len(req.CustomerIDs) > 1 {
			time.Sleep(60 * time.Millisecond)
		}
		return &responseEnvelope{
			ID:          req.ID,
			CustomerIDs: req.CustomerIDs,
			ClusterIDs:  make([]int, len(req.CustomerIDs)),
		}
	})
	c.timeout = time.Second

	var wg sync.WaitGroup
	results := make([]ClusterResult, 2)
	errs := make([]error, 2)
	inputs := [][]string{{"a1", "a2"}, {"b1"}}

	wg.Add(2)
	for i := range inputs {
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Cluster(context.Background(), ClusterRequest{
				CustomerIDs: inputs[i],
			})
		}(i)
		time.Sleep(10 * time.Millisecond)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, []string{"a1", "a2"}, results[0].CustomerIDs)
	assert.Equal(t, []string{"b1"}, results[1].CustomerIDs)
}

func TestClient_WorkerExitFailsPending(t *testing.T) {
	stdinR, stdinW := io.Pipe()
	stdoutR, stdoutW := io.Pipe()

	// Worker dies after reading the first request.
	go func() {
		dec := json.NewDecoder(stdinR)
		var req requestEnvelope
		_ = dec.Decode(&req)
		_ = stdoutW.Close()
	}()

	c := &Client{
		timeout: time.Second,
		logger:  zap.NewNop(),
		pending: make(map[string]chan responseEnvelope),
	}
	c.spawn = func() (io.WriteCloser, io.ReadCloser, func() error, error) {
		return stdinW, stdoutR, func() error { return nil }, nil
	}

	_, err := c.Cluster(context.Background(), ClusterRequest{CustomerIDs: []string{"a"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrWorkerError))
	assert.Contains(t, err.Error(), "exited")
}

func TestClient_SpawnRetriesThenFails(t *testing.T) {
	attempts := 0
	c := &Client{
		timeout: time.Second,
		logger:  zap.NewNop(),
		pending: make(map[string]chan responseEnvelope),
	}
	c.spawn = func() (io.WriteCloser, io.ReadCloser, func() error, error) {
		attempts++
		return nil, nil, nil, errors.New("connection refused")
	}

	_, err := c.Cluster(context.Background(), ClusterRequest{CustomerIDs: []string{"a"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrWorkerError))
	assert.Equal(t, 4, attempts)
}
