package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cohortiq-inc/cohortiq-engine/pkg/apperrors"
	"github.com/cohortiq-inc/cohortiq-engine/pkg/retry"
)

// DefaultTimeout bounds how long one clustering job may run.
const DefaultTimeout = 120 * time.Second

// Worker responses can carry tens of thousands of customer ids on one line.
const maxResponseLine = 16 * 1024 * 1024

// spawnFunc starts a worker process and hands back its stdin, stdout, and a
// stop function. Split out so tests can substitute in-memory pipes.
type spawnFunc func() (io.WriteCloser, io.ReadCloser, func() error, error)

// Client talks to a single long-lived worker process. The process is started
// lazily on the first job and restarted on the next job after it dies.
// Requests are correlated by id, so the client is safe for concurrent use.
type Client struct {
	timeout time.Duration
	logger  *zap.Logger
	spawn   spawnFunc

	mu      sync.Mutex
	stdin   io.WriteCloser
	stop    func() error
	pending map[string]chan responseEnvelope
}

// NewClient builds a client that spawns command with args.
func NewClient(command string, args []string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		timeout: timeout,
		logger:  logger.Named("worker"),
		pending: make(map[string]chan responseEnvelope),
	}
	c.spawn = c.processSpawner(command, args)
	return c
}

func (c *Client) processSpawner(command string, args []string) spawnFunc {
	return func() (io.WriteCloser, io.ReadCloser, func() error, error) {
		cmd := exec.Command(command, args...)

		stdin, err := cmd.StdinPipe()
		if err != nil {
			return nil, nil, nil, err
		}
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return nil, nil, nil, err
		}
		stderr, err := cmd.StderrPipe()
		if err != nil {
			return nil, nil, nil, err
		}

		if err := cmd.Start(); err != nil {
			return nil, nil, nil, err
		}
		c.logger.Info("worker process started",
			zap.String("command", command),
			zap.Int("pid", cmd.Process.Pid))

		// Worker diagnostics go to stderr one line at a time.
		go func() {
			scanner := bufio.NewScanner(stderr)
			for scanner.Scan() {
				c.logger.Debug("worker stderr", zap.String("line", scanner.Text()))
			}
		}()

		stop := func() error {
			_ = stdin.Close()
			if cmd.Process != nil {
				_ = cmd.Process.Kill()
			}
			return cmd.Wait()
		}
		return stdin, stdout, stop, nil
	}
}

// Cluster runs one job and blocks until the worker answers, the timeout
// elapses, or ctx is cancelled.
func (c *Client) Cluster(ctx context.Context, req ClusterRequest) (ClusterResult, error) {
	id := uuid.NewString()
	ch := make(chan responseEnvelope, 1)

	env := requestEnvelope{
		ID:          id,
		Type:        requestTypeCluster,
		CustomerIDs: req.CustomerIDs,
		Features:    req.Features,
		NumClusters: req.NumClusters,
		ScalingMode: req.ScalingMode,
		UseGPU:      req.UseGPU,
	}

	c.mu.Lock()
	if err := c.ensureStartedLocked(ctx); err != nil {
		c.mu.Unlock()
		return ClusterResult{}, fmt.Errorf("%w: start failed: %v", apperrors.ErrWorkerError, err)
	}
	c.pending[id] = ch
	err := json.NewEncoder(c.stdin).Encode(env)
	c.mu.Unlock()

	if err != nil {
		c.removePending(id)
		return ClusterResult{}, fmt.Errorf("%w: write failed: %v", apperrors.ErrWorkerError, err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		if resp.Error != "" {
			return ClusterResult{}, fmt.Errorf("%w: %s", apperrors.ErrWorkerError, resp.Error)
		}
		if len(resp.CustomerIDs) != len(resp.ClusterIDs) {
			return ClusterResult{}, fmt.Errorf("%w: mismatched assignment lengths %d vs %d",
				apperrors.ErrWorkerError, len(resp.CustomerIDs), len(resp.ClusterIDs))
		}
		return ClusterResult{
			CustomerIDs: resp.CustomerIDs,
			ClusterIDs:  resp.ClusterIDs,
			GPUUsed:     resp.GPUUsed,
		}, nil

	case <-timer.C:
		c.removePending(id)
		c.logger.Error("worker job timed out",
			zap.String("request_id", id),
			zap.Duration("timeout", c.timeout))
		return ClusterResult{}, fmt.Errorf("%w after %s", apperrors.ErrWorkerTimeout, c.timeout)

	case <-ctx.Done():
		c.removePending(id)
		return ClusterResult{}, ctx.Err()
	}
}

// Close tears down the worker process if one is running.
func (c *Client) Close() error {
	c.mu.Lock()
	stop := c.stop
	c.stdin = nil
	c.stop = nil
	c.mu.Unlock()

	if stop == nil {
		return nil
	}
	return stop()
}

func (c *Client) ensureStartedLocked(ctx context.Context) error {
	if c.stdin != nil {
		return nil
	}

	cfg := retry.DefaultConfig()
	return retry.Do(ctx, cfg, func() error {
		stdin, stdout, stop, err := c.spawn()
		if err != nil {
			c.logger.Warn("worker spawn failed", zap.Error(err))
			return err
		}
		c.stdin = stdin
		c.stop = stop
		go c.readLoop(stdout)
		return nil
	})
}

// readLoop dispatches responses to their waiting request by correlation id.
// When the stream ends the worker is gone: every pending request gets an
// error response and the client resets so the next job respawns.
func (c *Client) readLoop(stdout io.ReadCloser) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxResponseLine)

	for scanner.Scan() {
		line := scanner.Bytes()
		var resp responseEnvelope
		if err := json.Unmarshal(line, &resp); err != nil {
			c.logger.Warn("dropping unparseable worker response", zap.Error(err))
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.mu.Unlock()

		if !ok {
			c.logger.Warn("worker response without a waiting request",
				zap.String("request_id", resp.ID))
			continue
		}
		ch <- resp
	}

	c.mu.Lock()
	orphaned := c.pending
	c.pending = make(map[string]chan responseEnvelope)
	c.stdin = nil
	stop := c.stop
	c.stop = nil
	c.mu.Unlock()

	for id, ch := range orphaned {
		ch <- responseEnvelope{ID: id, Error: "worker exited unexpectedly"}
	}
	if stop != nil {
		_ = stop()
	}
	if len(orphaned) > 0 {
		c.logger.Error("worker exited with jobs in flight", zap.Int("orphaned", len(orphaned)))
	}
}

func (c *Client) removePending(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}
