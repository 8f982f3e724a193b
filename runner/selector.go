package runner

import (
	"fmt"

	"github.com/notargets/clmatvec/device"
	"go.uber.org/zap"
)

// Selection is the outcome of device selection. The caller owns Context.
type Selection struct {
	Platform device.Platform
	Device   device.Device
	Context  device.Context
}

// SelectDevice takes the first platform of drv, enumerates its devices of
// the requested class and binds the first one that accepts a context.
// With device.FallbackAny an empty enumeration is retried with
// device.ClassAll; with device.FallbackNone it is NoDeviceFound.
func SelectDevice(drv device.Driver, class device.DeviceClass, policy device.FallbackPolicy,
	logger *zap.Logger) (*Selection, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	platforms, err := drv.Platforms()
	if err != nil {
		return nil, device.Wrap(device.NoPlatformFound, "enumerate platforms", err)
	}
	if len(platforms) == 0 {
		return nil, device.Errorf(device.NoPlatformFound, "enumerate platforms", "driver %s reports no platforms", drv.Name())
	}
	platform := platforms[0]

	devices, err := platform.Devices(class)
	if err != nil {
		return nil, device.Wrap(device.NoDeviceFound, "enumerate devices", err)
	}
	if len(devices) == 0 && policy == device.FallbackAny && class != device.ClassAll {
		logger.Warn("no device of requested class, falling back to any class",
			zap.String("platform", platform.Name()),
			zap.Stringer("class", class))
		devices, err = platform.Devices(device.ClassAll)
		if err != nil {
			return nil, device.Wrap(device.NoDeviceFound, "enumerate devices", err)
		}
	}
	if len(devices) == 0 {
		return nil, device.Errorf(device.NoDeviceFound, "enumerate devices",
			"platform %q has no %s device", platform.Name(), class)
	}

	var lastErr error
	for _, dev := range devices {
		ctx, err := dev.CreateContext()
		if err == nil && ctx == nil {
			err = fmt.Errorf("device layer returned no context")
		}
		if err != nil {
			logger.Debug("context creation rejected",
				zap.String("device", dev.Name()),
				zap.Error(err))
			lastErr = err
			continue
		}
		logger.Info("device selected",
			zap.String("platform", platform.Name()),
			zap.String("device", dev.Name()),
			zap.Stringer("class", dev.Class()))
		return &Selection{Platform: platform, Device: dev, Context: ctx}, nil
	}
	return nil, device.Wrap(device.ContextCreationFailed, "create context", lastErr)
}

// DeviceInfo describes one enumerable device
type DeviceInfo struct {
	Platform string `yaml:"platform"`
	Device   string `yaml:"device"`
	Class    string `yaml:"class"`
}

// ListDevices enumerates every device on every platform of drv
func ListDevices(drv device.Driver) ([]DeviceInfo, error) {
	platforms, err := drv.Platforms()
	if err != nil {
		return nil, device.Wrap(device.NoPlatformFound, "enumerate platforms", err)
	}
	var out []DeviceInfo
	for _, p := range platforms {
		devices, err := p.Devices(device.ClassAll)
		if err != nil {
			return nil, device.Wrap(device.NoDeviceFound, "enumerate devices on "+p.Name(), err)
		}
		for _, d := range devices {
			out = append(out, DeviceInfo{Platform: p.Name(), Device: d.Name(), Class: d.Class().String()})
		}
	}
	return out, nil
}
