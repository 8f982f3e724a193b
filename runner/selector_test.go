package runner

import (
	"errors"
	"testing"

	"github.com/notargets/clmatvec/device"
	"github.com/notargets/clmatvec/device/emulator"
	"github.com/notargets/clmatvec/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var mixedPlatforms = []emulator.PlatformSpec{
	{
		Name: "First",
		Devices: []emulator.DeviceSpec{
			{Name: "cpu0", Class: device.ClassCPU},
			{Name: "gpu0", Class: device.ClassGPU},
			{Name: "gpu1", Class: device.ClassGPU},
		},
	},
	{
		Name: "Second",
		Devices: []emulator.DeviceSpec{
			{Name: "acc0", Class: device.ClassAccelerator},
		},
	},
}

func TestSelectDevice(t *testing.T) {
	drv := utils.CreateTestDriver(emulator.WithPlatforms(mixedPlatforms...))

	sel, err := SelectDevice(drv, device.ClassGPU, device.FallbackNone, nil)
	require.NoError(t, err)
	defer sel.Context.Release()

	assert.Equal(t, "First", sel.Platform.Name())
	assert.Equal(t, "gpu0", sel.Device.Name())
	assert.Equal(t, device.ClassGPU, sel.Device.Class())
}

func TestSelectDevice_OnlyFirstPlatform(t *testing.T) {
	drv := utils.CreateTestDriver(emulator.WithPlatforms(mixedPlatforms...))

	_, err := SelectDevice(drv, device.ClassAccelerator, device.FallbackNone, nil)
	assert.True(t, errors.Is(err, device.ErrNoDeviceFound))
	assert.Zero(t, drv.Ledger().TotalAcquired())
}

func TestSelectDevice_NextDeviceOnContextFailure(t *testing.T) {
	drv := utils.CreateTestDriver(
		emulator.WithPlatforms(mixedPlatforms...),
		emulator.WithFault(emulator.FaultContext, 1),
	)

	sel, err := SelectDevice(drv, device.ClassGPU, device.FallbackNone, nil)
	require.NoError(t, err)
	defer sel.Context.Release()
	assert.Equal(t, "gpu1", sel.Device.Name())
	assert.Equal(t, 2, drv.Calls(emulator.FaultContext))
}

func TestSelectDevice_AllContextsRejected(t *testing.T) {
	drv := utils.CreateTestDriver(
		emulator.WithPlatforms(mixedPlatforms...),
		emulator.WithFault(emulator.FaultContext, emulator.Always),
	)

	_, err := SelectDevice(drv, device.ClassGPU, device.FallbackNone, nil)
	require.Error(t, err)
	assert.Equal(t, device.ContextCreationFailed, device.KindOf(err))
	assert.Contains(t, err.Error(), "injected context fault (call 2)")
}

func TestSelectDevice_FallbackLogsWarning(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	drv := utils.CreateTestDriver(emulator.WithPlatforms(emulator.PlatformSpec{
		Name:    "CPU only",
		Devices: []emulator.DeviceSpec{{Name: "host", Class: device.ClassCPU}},
	}))

	sel, err := SelectDevice(drv, device.ClassGPU, device.FallbackAny, zap.New(core))
	require.NoError(t, err)
	defer sel.Context.Release()

	assert.Equal(t, "host", sel.Device.Name())
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "no device of requested class, falling back to any class", entry.Message)
	assert.Equal(t, "gpu", entry.ContextMap()["class"])
}

func TestSelectDevice_NoPlatform(t *testing.T) {
	_, err := SelectDevice(utils.CreateTestDriver(emulator.WithPlatforms()), device.ClassGPU, device.FallbackAny, nil)
	assert.True(t, errors.Is(err, device.ErrNoPlatformFound))

	_, err = SelectDevice(utils.CreateTestDriver(emulator.WithFault(emulator.FaultDevices, 1)),
		device.ClassGPU, device.FallbackNone, nil)
	assert.True(t, errors.Is(err, device.ErrNoDeviceFound))
}

func TestListDevices(t *testing.T) {
	drv := utils.CreateTestDriver(emulator.WithPlatforms(mixedPlatforms...))

	infos, err := ListDevices(drv)
	require.NoError(t, err)
	assert.Equal(t, []DeviceInfo{
		{Platform: "First", Device: "cpu0", Class: "cpu"},
		{Platform: "First", Device: "gpu0", Class: "gpu"},
		{Platform: "First", Device: "gpu1", Class: "gpu"},
		{Platform: "Second", Device: "acc0", Class: "accelerator"},
	}, infos)
	assert.Zero(t, drv.Ledger().TotalAcquired(), "listing creates no contexts")
}
