package control

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/farmcab/farmcab-core/internal/device"
	"github.com/farmcab/farmcab-core/internal/rtdb"
)

// Logger defines the logging interface used by the Service.
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

// DeviceGateway is the slice of the device registry the control path needs.
// *device.Registry satisfies this interface.
type DeviceGateway interface {
	GetDevice(ctx context.Context, id string) (*device.Device, error)
	SetDeviceStatus(ctx context.Context, id string, status device.Status, at time.Time) error
	SetControlMethod(ctx context.Context, id string, method device.ControlMethod) error
}

// Service executes operator control actions against both stores.
//
// Ordering is fixed: the realtime store (what the hardware does) is written
// before the structured store (what we record about it). A failed realtime
// write therefore never leaves a phantom record of a state change that
// never reached the cabinet.
//
// A per-device busy flag rejects overlapping operations on the same device
// instead of queueing them; the flag is process-local and released when the
// operation returns.
type Service struct {
	devices DeviceGateway
	store   rtdb.Store
	logger  Logger

	busy   map[string]struct{}
	busyMu sync.Mutex

	// now is stubbed in tests for deterministic activation timestamps.
	now func() time.Time
}

// NewService creates a control service.
func NewService(devices DeviceGateway, store rtdb.Store) *Service {
	return &Service{
		devices: devices,
		store:   store,
		logger:  noopLogger{},
		busy:    make(map[string]struct{}),
		now:     time.Now,
	}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// acquire marks a device busy. Returns ErrDeviceBusy if it already is.
func (s *Service) acquire(deviceID string) error {
	s.busyMu.Lock()
	defer s.busyMu.Unlock()

	if _, held := s.busy[deviceID]; held {
		return fmt.Errorf("%w: %s", ErrDeviceBusy, deviceID)
	}
	s.busy[deviceID] = struct{}{}
	return nil
}

// release clears a device's busy flag.
func (s *Service) release(deviceID string) {
	s.busyMu.Lock()
	delete(s.busy, deviceID)
	s.busyMu.Unlock()
}

// Toggle reads the device's live status once, inverts it, patches the
// realtime store, and mirrors the result into the structured store.
//
// The structured mirror is only attempted after the realtime patch
// succeeds: if the cabinet never saw the change, nothing is recorded.
// When the controller node is missing (fresh device), the live status
// defaults to inactive and the patch creates the node.
//
// Returns the new status.
func (s *Service) Toggle(ctx context.Context, deviceID string) (device.Status, error) {
	if err := s.acquire(deviceID); err != nil {
		return "", err
	}
	defer s.release(deviceID)

	dev, err := s.devices.GetDevice(ctx, deviceID)
	if err != nil {
		return "", fmt.Errorf("resolving device: %w", err)
	}

	current, err := s.readLiveStatus(ctx, dev)
	if err != nil {
		return "", err
	}

	next := current.Invert()
	path := rtdb.ControllerPath(dev.ContainerID, dev.ID)

	if err := s.store.Patch(ctx, path, rtdb.Value{"status": string(next)}); err != nil {
		// Realtime write failed: no structured write, the stores still agree
		return "", fmt.Errorf("patching live status: %w", err)
	}

	if err := s.devices.SetDeviceStatus(ctx, dev.ID, next, s.now()); err != nil {
		// The cabinet applied the change; only the mirror is behind.
		// Surface the error so the operator knows the record is stale.
		s.logger.Error("live status applied but structured mirror failed",
			"device_id", dev.ID,
			"status", next,
			"error", err,
		)
		return next, fmt.Errorf("mirroring status: %w", err)
	}

	s.logger.Info("device toggled", "device_id", dev.ID, "status", next)
	return next, nil
}

// SetManualOverride forces a device to the requested on/off state,
// switching it to Manual first so the firmware's scheduler lets go.
//
// The whole operation is atomic from the operator's view: if any step
// fails, every step already taken is rolled back so (method, status)
// return to their prior values.
func (s *Service) SetManualOverride(ctx context.Context, deviceID string, on bool) error {
	if err := s.acquire(deviceID); err != nil {
		return err
	}
	defer s.release(deviceID)

	dev, err := s.devices.GetDevice(ctx, deviceID)
	if err != nil {
		return fmt.Errorf("resolving device: %w", err)
	}

	prevMethod := dev.ControlMethod
	prevStatus, err := s.readLiveStatus(ctx, dev)
	if err != nil {
		return err
	}

	methodChanged := false
	if prevMethod != device.ControlManual {
		if err := s.devices.SetControlMethod(ctx, dev.ID, device.ControlManual); err != nil {
			return fmt.Errorf("switching to manual: %w", err)
		}
		methodChanged = true
	}

	next := device.StatusFromBool(on)
	path := rtdb.ControllerPath(dev.ContainerID, dev.ID)

	if err := s.store.Patch(ctx, path, rtdb.Value{"status": string(next)}); err != nil {
		s.rollbackMethod(ctx, dev.ID, prevMethod, methodChanged)
		return fmt.Errorf("patching live status: %w", err)
	}

	if err := s.devices.SetDeviceStatus(ctx, dev.ID, next, s.now()); err != nil {
		// Undo the live write too; a half-applied override is worse
		// than no override.
		if rbErr := s.store.Patch(ctx, path, rtdb.Value{"status": string(prevStatus)}); rbErr != nil {
			s.logger.Error("override rollback failed, stores may disagree",
				"device_id", dev.ID,
				"error", rbErr,
			)
		}
		s.rollbackMethod(ctx, dev.ID, prevMethod, methodChanged)
		return fmt.Errorf("mirroring status: %w", err)
	}

	s.logger.Info("manual override applied", "device_id", dev.ID, "on", on)
	return nil
}

// SetControlMethod changes how the device is driven. The change touches the
// structured store only; the firmware reads the method from there. Setting
// the method a device already has performs no writes.
func (s *Service) SetControlMethod(ctx context.Context, deviceID string, method device.ControlMethod) error {
	if !method.IsValid() {
		return fmt.Errorf("%w: %q", device.ErrInvalidControlMethod, method)
	}

	if err := s.acquire(deviceID); err != nil {
		return err
	}
	defer s.release(deviceID)

	dev, err := s.devices.GetDevice(ctx, deviceID)
	if err != nil {
		return fmt.Errorf("resolving device: %w", err)
	}

	if dev.ControlMethod == method {
		return nil
	}

	if err := s.devices.SetControlMethod(ctx, dev.ID, method); err != nil {
		return fmt.Errorf("setting control method: %w", err)
	}

	s.logger.Info("control method changed", "device_id", dev.ID, "method", method)
	return nil
}

// readLiveStatus reads the device's current status from the realtime store.
// An absent controller node, or a node without a usable status field,
// counts as inactive: the cabinet is not driving anything it has no
// record of.
func (s *Service) readLiveStatus(ctx context.Context, dev *device.Device) (device.Status, error) {
	path := rtdb.ControllerPath(dev.ContainerID, dev.ID)

	node, err := s.store.ReadOnce(ctx, path)
	if err != nil {
		if errors.Is(err, rtdb.ErrNotFound) {
			return device.StatusInactive, nil
		}
		return "", fmt.Errorf("reading live status: %w", err)
	}

	status, ok := node["status"].(string)
	if !ok || !device.Status(status).IsValid() {
		return device.StatusInactive, nil
	}
	return device.Status(status), nil
}

// rollbackMethod restores the control method after a failed override step.
func (s *Service) rollbackMethod(ctx context.Context, deviceID string, prev device.ControlMethod, changed bool) {
	if !changed {
		return
	}
	if err := s.devices.SetControlMethod(ctx, deviceID, prev); err != nil {
		s.logger.Error("control method rollback failed",
			"device_id", deviceID,
			"method", prev,
			"error", err,
		)
	}
}
