package hw

import (
	"context"
	"strconv"
	"strings"
	"time"

	qcerrors "github.com/umdcms/qcmanager/internal/errors"
	"github.com/umdcms/qcmanager/internal/logging"
)

// Endpoints holds the addresses of the three board services.
type Endpoints struct {
	DAQ  string
	Pull string
	I2C  string
}

// Controller bundles the socket clients for one board.
type Controller struct {
	DAQ  *SocketClient
	Pull *SocketClient
	I2C  *SocketClient

	logger *logging.Logger
}

// NewController creates a controller for the given endpoints.
func NewController(endpoints Endpoints) *Controller {
	return &Controller{
		DAQ:    NewSocketClient("daq", endpoints.DAQ),
		Pull:   NewSocketClient("pull", endpoints.Pull),
		I2C:    NewSocketClient("i2c", endpoints.I2C),
		logger: logging.Global().With("component", "hw"),
	}
}

// Connect establishes all three service connections.
func (c *Controller) Connect(ctx context.Context) error {
	for _, client := range c.clients() {
		c.logger.Debug("connecting socket", "socket", client.Name(), "addr", client.Addr())
		if err := client.Connect(ctx); err != nil {
			// Tear down whatever came up before the failure
			c.Close()
			return err
		}
	}
	return nil
}

// Close closes all service connections.
func (c *Controller) Close() error {
	var firstErr error
	for _, client := range c.clients() {
		if err := client.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *Controller) clients() []*SocketClient {
	return []*SocketClient{c.DAQ, c.Pull, c.I2C}
}

// AcquireRequest configures one data acquisition.
type AcquireRequest struct {
	// Events is the number of events to acquire.
	Events int
	// OutputDir is the directory the pull service writes raw data to.
	OutputDir string
	// RunType tags the acquisition in the pull service output.
	RunType string
	// PollInterval is how often DAQ completion is polled.
	PollInterval time.Duration
	// Timeout bounds the whole acquisition.
	Timeout time.Duration
}

// Acquire runs one acquisition: push event count and output settings,
// configure and start both the pull and DAQ services, poll the DAQ until
// the run completes, then stop both.
func (c *Controller) Acquire(ctx context.Context, req AcquireRequest) error {
	if req.Events <= 0 {
		return qcerrors.New(qcerrors.ErrHardware, "acquisition needs a positive event count")
	}
	if req.PollInterval <= 0 {
		req.PollInterval = 10 * time.Millisecond
	}
	if req.Timeout <= 0 {
		req.Timeout = 5 * time.Minute
	}
	if req.RunType == "" {
		req.RunType = "data_acquire"
	}

	// The DAQ service expects the event count as a string
	c.DAQ.SetConfig("daq.NEvents", strconv.Itoa(req.Events))
	c.Pull.SetConfig("global.outputDirectory", req.OutputDir)
	c.Pull.SetConfig("global.run_type", req.RunType)

	if err := c.Pull.Configure(ctx); err != nil {
		return err
	}
	if err := c.DAQ.Configure(ctx); err != nil {
		return err
	}

	if err := c.Pull.Start(ctx); err != nil {
		return err
	}
	if err := c.DAQ.Start(ctx); err != nil {
		c.stopQuietly(ctx, c.Pull)
		return err
	}

	c.logger.Info("acquisition started", "events", req.Events, "run_type", req.RunType)

	start := time.Now()
	ticker := time.NewTicker(req.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.stopQuietly(ctx, c.DAQ)
			c.stopQuietly(ctx, c.Pull)
			return ctx.Err()
		case <-ticker.C:
			done, err := c.DAQ.IsComplete(ctx)
			if err != nil {
				c.stopQuietly(ctx, c.DAQ)
				c.stopQuietly(ctx, c.Pull)
				return err
			}
			if done {
				if err := c.DAQ.Stop(ctx); err != nil {
					return err
				}
				if err := c.Pull.Stop(ctx); err != nil {
					return err
				}
				c.logger.Info("acquisition complete", "elapsed", time.Since(start).Round(time.Millisecond))
				return nil
			}
			if elapsed := time.Since(start); elapsed > req.Timeout {
				c.stopQuietly(ctx, c.DAQ)
				c.stopQuietly(ctx, c.Pull)
				return qcerrors.AcquisitionTimeout(elapsed, req.Timeout)
			}
		}
	}
}

// stopQuietly issues a stop and logs rather than propagates failures.
// Used on error paths where the original failure matters more.
func (c *Controller) stopQuietly(ctx context.Context, client *SocketClient) {
	if err := client.Stop(ctx); err != nil {
		c.logger.Warn("stop failed during cleanup", "socket", client.Name(), "error", err)
	}
}

// FullConfig assembles the complete hardware configuration snapshot:
// every readout chip block from slow control nested under "sc", plus the
// DAQ and client blocks.
func (c *Controller) FullConfig() map[string]interface{} {
	full := make(map[string]interface{})

	for key, val := range c.I2C.Config() {
		if strings.HasPrefix(key, "roc_s") {
			full[key] = map[string]interface{}{"sc": val}
		}
	}
	if daq, ok := c.DAQ.Config()["daq"]; ok {
		full["daq"] = daq
	}
	if client, ok := c.Pull.Config()["client"]; ok {
		full["client"] = client
	}
	return full
}
