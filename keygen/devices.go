package keygen

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// DeviceKind distinguishes accelerator handles from plain CPU workers.
type DeviceKind uint8

const (
	CPU DeviceKind = iota
	GPU
)

func (k DeviceKind) String() string {
	switch k {
	case CPU:
		return "cpu"
	case GPU:
		return "gpu"
	default:
		return fmt.Sprintf("kind(%d)", k)
	}
}

// DeviceHandle is an exclusively-held compute device lease. A synthesis runs
// on exactly one handle and no two circuits share a handle concurrently.
type DeviceHandle struct {
	Kind    DeviceKind
	Ordinal int
}

func (d DeviceHandle) String() string {
	return fmt.Sprintf("%s:%d", d.Kind, d.Ordinal)
}

// ParseDevices parses a device selection such as "gpu:0,gpu:1" or "cpu:4".
// "cpu:N" expands to N CPU worker handles; a bare "cpu" or "gpu:N" names a
// single handle. Device availability is read once at startup and immutable
// for the run.
func ParseDevices(spec string) ([]DeviceHandle, error) {
	var handles []DeviceHandle
	cpuOrdinal := 0
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kind, arg, hasArg := strings.Cut(part, ":")
		switch kind {
		case "cpu":
			n := 1
			if hasArg {
				v, err := strconv.Atoi(arg)
				if err != nil || v < 1 {
					return nil, fmt.Errorf("invalid cpu worker count %q", part)
				}
				n = v
			}
			for i := 0; i < n; i++ {
				handles = append(handles, DeviceHandle{Kind: CPU, Ordinal: cpuOrdinal})
				cpuOrdinal++
			}
		case "gpu":
			if !hasArg {
				return nil, fmt.Errorf("gpu device needs an ordinal, e.g. gpu:0")
			}
			v, err := strconv.Atoi(arg)
			if err != nil || v < 0 {
				return nil, fmt.Errorf("invalid gpu ordinal %q", part)
			}
			handles = append(handles, DeviceHandle{Kind: GPU, Ordinal: v})
		default:
			return nil, fmt.Errorf("unknown device %q", part)
		}
	}
	if len(handles) == 0 {
		return nil, fmt.Errorf("no devices selected")
	}
	return handles, nil
}

// DevicePool hands out exclusive device leases. It is the only mutable
// structure shared between pipeline workers.
type DevicePool struct {
	handles chan DeviceHandle
	size    int
}

func NewDevicePool(handles []DeviceHandle) *DevicePool {
	ch := make(chan DeviceHandle, len(handles))
	for _, h := range handles {
		ch <- h
	}
	return &DevicePool{handles: ch, size: len(handles)}
}

// Acquire blocks until a device is free or ctx is done.
func (p *DevicePool) Acquire(ctx context.Context) (DeviceHandle, error) {
	select {
	case h := <-p.handles:
		return h, nil
	case <-ctx.Done():
		return DeviceHandle{}, ctx.Err()
	}
}

// Release returns a handle to the pool. It must be called exactly once per
// successful Acquire, on every exit path.
func (p *DevicePool) Release(h DeviceHandle) {
	select {
	case p.handles <- h:
	default:
		panic("device released twice: " + h.String())
	}
}

// Size is the number of handles in the pool, and thus the upper bound on
// concurrent syntheses.
func (p *DevicePool) Size() int { return p.size }
