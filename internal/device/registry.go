package device

import (
	"context"
	"sort"
	"sync"

	"devicelab/internal/errors"
	"devicelab/internal/logger"
)

// Registry holds the live view of the fleet. Device records are immutable
// snapshots: RefreshStatus replaces a record wholesale, so readers never
// observe a half-updated device.
type Registry struct {
	adapters map[Platform]Adapter

	mu      sync.RWMutex
	devices map[string]Device
}

func NewRegistry(adapters ...Adapter) *Registry {
	byPlatform := make(map[Platform]Adapter, len(adapters))
	for _, adapter := range adapters {
		byPlatform[adapter.Platform()] = adapter
	}

	return &Registry{
		adapters: byPlatform,
		devices:  make(map[string]Device),
	}
}

// Discover queries every adapter and merges the results. A failing
// adapter loses its platform for this run but never fails discovery
// wholesale.
func (r *Registry) Discover(ctx context.Context) {
	for platform, adapter := range r.adapters {
		devices, err := adapter.Discover(ctx)
		if err != nil {
			logger.Warn().
				Str("platform", platform.String()).
				Err(err).
				Msg("Platform discovery failed, skipping its devices")
			continue
		}

		r.mu.Lock()
		for _, dev := range devices {
			r.devices[dev.ID] = dev
			logger.Info().
				Str("device_id", dev.ID).
				Str("model", dev.Model).
				Str("platform", dev.Platform.String()).
				Str("os_version", dev.OSVersion).
				Msg("Discovered device")
		}
		r.mu.Unlock()
	}
}

// RefreshStatus queries the adapter and atomically replaces the device
// record on success. On failure the prior snapshot is retained unchanged;
// staleness is preferred over loss.
func (r *Registry) RefreshStatus(ctx context.Context, id string) (Device, error) {
	errFactory := errors.New()

	r.mu.RLock()
	current, ok := r.devices[id]
	r.mu.RUnlock()
	if !ok {
		return Device{}, errFactory.WithData(ErrUnknownDevice, id)
	}

	adapter, ok := r.adapters[current.Platform]
	if !ok {
		return current, errFactory.WithData(ErrUnknownPlatform, current.Platform)
	}

	status, err := adapter.GetStatus(ctx, id)
	if err != nil {
		return current, errFactory.Wrap(ErrStatusRefreshFailed, err)
	}

	updated := current
	updated.BatteryLevel = status.BatteryLevel
	updated.Temperature = status.Temperature

	r.mu.Lock()
	r.devices[id] = updated
	r.mu.Unlock()

	return updated, nil
}

// Get returns the current snapshot for one device.
func (r *Registry) Get(id string) (Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dev, ok := r.devices[id]
	return dev, ok
}

// Devices returns snapshot copies of every known device, ordered by ID.
func (r *Registry) Devices() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := make([]Device, 0, len(r.devices))
	for _, dev := range r.devices {
		devices = append(devices, dev)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })

	return devices
}

// Count returns the number of known devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.devices)
}

// AdapterFor returns the adapter serving one platform.
func (r *Registry) AdapterFor(platform Platform) (Adapter, bool) {
	adapter, ok := r.adapters[platform]
	return adapter, ok
}
