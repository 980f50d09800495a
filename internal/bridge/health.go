package bridge

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/azndibs/govee-ble-core/internal/infrastructure/mqtt"
)

// HealthPublisher is the interface for publishing health messages.
// Typically implemented by an MQTT client.
type HealthPublisher interface {
	// Publish sends a message to a topic with the specified QoS and
	// retention.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// IsConnected returns true if the publisher is connected.
	IsConnected() bool
}

// SlotStats exposes connection slot pool occupancy. Implemented by
// *scheduler.SlotPool.
type SlotStats interface {
	Counts() (active, stale, queued int)
	Capacity() int
}

// SchedulerStats exposes run scheduler occupancy. Implemented by
// *scheduler.Scheduler.
type SchedulerStats interface {
	Counts() (running, queued int)
}

// LightStats exposes per-status light totals. Implemented by *Bridge.
type LightStats interface {
	StatusCounts() (total, connected, unavailable int)
}

// HealthReporterConfig holds configuration for the health reporter.
type HealthReporterConfig struct {
	// ControllerID identifies this controller in health messages.
	ControllerID string

	// Version is the controller software version.
	Version string

	// Interval is how often to publish health status. Default 30s.
	Interval time.Duration

	// Publisher is the MQTT client for publishing messages. Required.
	Publisher HealthPublisher

	// Lights provides light status totals. Optional.
	Lights LightStats

	// Slots provides slot pool occupancy. Optional.
	Slots SlotStats

	// Scheduler provides run scheduler occupancy. Optional.
	Scheduler SchedulerStats
}

// HealthReporter publishes periodic controller health to
// govee/system/health.
type HealthReporter struct {
	controllerID string
	version      string
	startTime    time.Time
	interval     time.Duration
	publisher    HealthPublisher
	lights       LightStats
	slots        SlotStats
	scheduler    SchedulerStats

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// NewHealthReporter creates a health reporter. Call Start to begin
// periodic reporting.
func NewHealthReporter(cfg HealthReporterConfig) *HealthReporter {
	interval := cfg.Interval
	if interval == 0 {
		interval = 30 * time.Second
	}
	return &HealthReporter{
		controllerID: cfg.ControllerID,
		version:      cfg.Version,
		startTime:    time.Now(),
		interval:     interval,
		publisher:    cfg.Publisher,
		lights:       cfg.Lights,
		slots:        cfg.Slots,
		scheduler:    cfg.Scheduler,
		done:         make(chan struct{}),
	}
}

// Start begins periodic health reporting until ctx is cancelled or Stop
// is called.
func (h *HealthReporter) Start(ctx context.Context) {
	h.wg.Add(1)
	go h.reportLoop(ctx)
}

// Stop gracefully stops reporting and publishes a final "stopping"
// status. Safe to call multiple times.
func (h *HealthReporter) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.wg.Wait()
		//nolint:errcheck // Best-effort during shutdown, nothing we can do if it fails
		h.publishStatus(HealthStopping, "")
	})
}

// SetLogger sets the logger for this reporter.
func (h *HealthReporter) SetLogger(logger Logger) {
	h.loggerMu.Lock()
	h.logger = logger
	h.loggerMu.Unlock()
}

// PublishStarting publishes a "starting" status. Called during
// controller initialisation.
func (h *HealthReporter) PublishStarting() error {
	return h.publishStatus(HealthStarting, "controller starting")
}

// PublishNow publishes the current health status immediately.
func (h *HealthReporter) PublishNow() error {
	status, reason := h.determineStatus()
	return h.publishStatus(status, reason)
}

func (h *HealthReporter) reportLoop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	if err := h.PublishNow(); err != nil {
		h.logError("failed to publish initial health", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-ticker.C:
			if err := h.PublishNow(); err != nil {
				h.logError("failed to publish health", err)
			}
		}
	}
}

// determineStatus evaluates the current controller status.
func (h *HealthReporter) determineStatus() (HealthStatus, string) {
	if h.publisher == nil || !h.publisher.IsConnected() {
		return HealthDegraded, "MQTT disconnected"
	}
	if h.lights != nil {
		total, _, unavailable := h.lights.StatusCounts()
		if total > 0 && unavailable == total {
			return HealthDegraded, "all lights unavailable"
		}
	}
	return HealthHealthy, ""
}

// publishStatus publishes a health status message (QoS 1, retained).
func (h *HealthReporter) publishStatus(status HealthStatus, reason string) error {
	if h.publisher == nil {
		return nil
	}

	msg := NewHealthMessage(h.controllerID, h.version, status, h.startTime)
	msg.Reason = reason

	if h.lights != nil {
		total, connected, unavailable := h.lights.StatusCounts()
		msg.Lights = LightCounts{Total: total, Connected: connected, Unavailable: unavailable}
	}
	if h.slots != nil {
		active, stale, queued := h.slots.Counts()
		msg.Slots = &SlotCounts{
			Active:   active,
			Stale:    stale,
			Queued:   queued,
			Capacity: h.slots.Capacity(),
		}
	}
	if h.scheduler != nil {
		running, queued := h.scheduler.Counts()
		msg.Scheduler = &SchedulerCounts{Running: running, Queued: queued}
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return h.publisher.Publish(mqtt.Topics{}.SystemHealth(), payload, 1, true)
}

func (h *HealthReporter) logError(msg string, err error) {
	h.loggerMu.RLock()
	logger := h.logger
	h.loggerMu.RUnlock()
	if logger != nil {
		logger.Error(msg, "error", err)
	}
}
