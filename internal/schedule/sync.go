package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/farmcab/farmcab-core/internal/device"
	"github.com/farmcab/farmcab-core/internal/rtdb"
)

// Logger defines the logging interface used by the SyncService.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// DeviceDirectory is the slice of the device registry the sync path needs.
// *device.Registry satisfies this interface.
type DeviceDirectory interface {
	GetDevice(ctx context.Context, id string) (*device.Device, error)
	SetScheduler(ctx context.Context, id string, schedulerID string) error
	SetControlMethod(ctx context.Context, id string, method device.ControlMethod) error
}

// Result reports which stores accepted a synced window. A half-applied
// sync is visible to the operator so they know which side to retry.
type Result struct {
	Structured bool `json:"structured"`
	Realtime   bool `json:"realtime"`
}

// Applied reports whether both stores accepted the window.
func (r Result) Applied() bool {
	return r.Structured && r.Realtime
}

// SyncService pushes schedule windows to both stores and keeps the device's
// control method consistent with having a schedule.
//
// The two writes are independent: a realtime store outage must not block
// recording intent in the structured store, and vice versa. Sync reports
// full success only when both landed.
type SyncService struct {
	schedules Repository
	devices   DeviceDirectory
	store     rtdb.Store
	location  *time.Location
	logger    Logger
}

// NewSyncService creates a schedule sync service.
// location is the cabinet's timezone, used to resolve window instants.
func NewSyncService(schedules Repository, devices DeviceDirectory, store rtdb.Store, location *time.Location) *SyncService {
	if location == nil {
		location = time.UTC
	}
	return &SyncService{
		schedules: schedules,
		devices:   devices,
		store:     store,
		location:  location,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the service.
func (s *SyncService) SetLogger(logger Logger) {
	s.logger = logger
}

// Sync pushes a new activation window for the device to both stores.
//
// Steps:
//  1. Validate the window (HH:MM times, YYYY-MM-DD date, end after start).
//     Invalid input aborts before any write.
//  2. Write the schedule record to the structured store and bind the
//     scheduler node ID to the device if it has none yet.
//  3. Patch the existing scheduler node in the realtime store with the
//     window's start and end resolved to firmware-format instants. The
//     node must already exist; the firmware provisions scheduler nodes and
//     the sync path never creates them (ErrSchedulerNodeMissing otherwise).
//  4. If both writes landed, switch the device to Auto so the new window
//     takes effect. A failure here is logged but does not change the result:
//     the schedule itself synced.
//  5. Report per store whether the window landed.
//
// Returns:
//   - Result: which of the two stores accepted the window
//   - error: the write failures, joined; nil when fully successful
func (s *SyncService) Sync(ctx context.Context, deviceID string, w Window) (Result, error) {
	if err := w.Validate(); err != nil {
		return Result{}, err
	}

	dev, err := s.devices.GetDevice(ctx, deviceID)
	if err != nil {
		return Result{}, fmt.Errorf("resolving device: %w", err)
	}

	schedulerID := dev.SchedulerNodeID()

	structuredErr := s.writeStructured(ctx, dev, schedulerID, w)
	realtimeErr := s.writeRealtime(ctx, dev.ContainerID, schedulerID, w)

	res := Result{
		Structured: structuredErr == nil,
		Realtime:   realtimeErr == nil,
	}

	if res.Applied() {
		if err := s.devices.SetControlMethod(ctx, dev.ID, device.ControlAuto); err != nil {
			// The window is synced either way; the operator can still
			// flip the method by hand.
			s.logger.Warn("schedule synced but switching device to Auto failed",
				"device_id", dev.ID,
				"error", err,
			)
		}
	}

	if structuredErr != nil {
		s.logger.Error("structured schedule write failed", "device_id", dev.ID, "error", structuredErr)
	}
	if realtimeErr != nil {
		s.logger.Error("realtime schedule write failed", "device_id", dev.ID, "error", realtimeErr)
	}

	return res, errors.Join(structuredErr, realtimeErr)
}

// writeStructured records the window in the structured store and binds the
// scheduler node ID to the device on first sync.
func (s *SyncService) writeStructured(ctx context.Context, dev *device.Device, schedulerID string, w Window) error {
	record := &Schedule{
		ID:        schedulerID,
		DeviceID:  dev.ID,
		StartTime: w.StartTime,
		EndTime:   w.EndTime,
		Date:      w.Date,
	}
	if err := s.schedules.Upsert(ctx, record); err != nil {
		return err
	}

	if dev.SchedulerID == nil || *dev.SchedulerID == "" {
		if err := s.devices.SetScheduler(ctx, dev.ID, schedulerID); err != nil {
			return fmt.Errorf("binding scheduler to device: %w", err)
		}
	}
	return nil
}

// writeRealtime patches the scheduler node with the window resolved to
// absolute instants in the firmware timestamp format. The node must
// already exist: a patch would otherwise create a node the firmware is
// not watching, silently orphaning the schedule.
func (s *SyncService) writeRealtime(ctx context.Context, containerID, schedulerID string, w Window) error {
	start, end, err := w.Bounds(s.location)
	if err != nil {
		return err
	}

	path := rtdb.NodePath(containerID, schedulerID)

	exists, err := s.store.Exists(ctx, path)
	if err != nil {
		return fmt.Errorf("checking scheduler node: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrSchedulerNodeMissing, path)
	}

	return s.store.Patch(ctx, path, rtdb.Value{
		"startTime": FormatFirmwareTime(start),
		"endTime":   FormatFirmwareTime(end),
	})
}
