package api

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const probeInterval = time.Second

// StartProbe begins the periodic reachability check against the configured
// backend URL. The probe runs until StopProbe is called or ctx is canceled;
// individual probe results only flip the reachable flag.
func (c *Client) StartProbe(ctx context.Context) {
	c.probeMu.Lock()
	if c.probeStop != nil {
		c.probeMu.Unlock()
		return
	}
	probeCtx, cancel := context.WithCancel(ctx)
	c.probeStop = cancel
	c.probeMu.Unlock()

	go func() {
		ticker := time.NewTicker(probeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-probeCtx.Done():
				return
			case <-ticker.C:
				c.probeOnce(probeCtx)
			}
		}
	}()
}

// StopProbe halts the reachability probe.
func (c *Client) StopProbe() {
	c.probeMu.Lock()
	defer c.probeMu.Unlock()
	if c.probeStop != nil {
		c.probeStop()
		c.probeStop = nil
	}
}

// IsReachable reports the result of the most recent probe.
func (c *Client) IsReachable() bool {
	c.probeMu.Lock()
	defer c.probeMu.Unlock()
	return c.reachable
}

func (c *Client) setReachable(v bool) {
	c.probeMu.Lock()
	c.reachable = v
	c.probeMu.Unlock()
}

func (c *Client) probeOnce(ctx context.Context) {
	base, err := c.baseURL()
	if err != nil {
		c.setReachable(false)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base, nil)
	if err != nil {
		c.setReachable(false)
		return
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.logger.Debug("reachability_probe_failed", zap.Error(err))
		c.setReachable(false)
		return
	}
	_ = resp.Body.Close()
	c.setReachable(resp.StatusCode >= 200 && resp.StatusCode < 300)
}
