package camera

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSelectDeviceFromListPrimaryDefault(t *testing.T) {
	devices := []Device{
		{ID: "/dev/video0", Name: "Integrated Camera", Available: true, Default: true},
		{ID: "/dev/video2", Name: "Logitech BRIO", Available: true},
	}

	selection, err := selectDeviceFromList(devices, "default", "default")
	require.NoError(t, err)
	require.Equal(t, "/dev/video0", selection.Device.ID)
	require.Empty(t, selection.Warning)
}

func TestSelectDeviceFromListMatchesByName(t *testing.T) {
	devices := []Device{
		{ID: "/dev/video0", Name: "Integrated Camera", Available: true, Default: true},
		{ID: "/dev/video2", Name: "Logitech BRIO", Available: true},
	}

	selection, err := selectDeviceFromList(devices, "brio", "default")
	require.NoError(t, err)
	require.Equal(t, "/dev/video2", selection.Device.ID)

	selection, err = selectDeviceFromList(devices, "video2", "default")
	require.NoError(t, err)
	require.Equal(t, "/dev/video2", selection.Device.ID)
}

func TestSelectDeviceFromListUnavailablePrimaryUsesFallback(t *testing.T) {
	devices := []Device{
		{ID: "/dev/video0", Name: "Integrated Camera", Available: true, Default: true},
		{ID: "/dev/video2", Name: "Logitech BRIO", Available: false},
	}

	selection, err := selectDeviceFromList(devices, "brio", "integrated")
	require.NoError(t, err)
	require.Equal(t, "/dev/video0", selection.Device.ID)
	require.Contains(t, selection.Warning, "unavailable")
	require.True(t, selection.Fallback)
}

func TestSelectDeviceFromListFailsWhenFallbackUnavailable(t *testing.T) {
	devices := []Device{
		{ID: "/dev/video0", Name: "Integrated Camera", Available: false, Default: true},
	}

	_, err := selectDeviceFromList(devices, "default", "default")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not available")
}

func TestSelectDeviceFromListUnknownInput(t *testing.T) {
	devices := []Device{{ID: "/dev/video0", Name: "Integrated Camera", Available: true, Default: true}}

	_, err := selectDeviceFromList(devices, "missing", "default")
	require.Error(t, err)
	require.Contains(t, err.Error(), "did not match")
}

func TestSelectDeviceFromListEmpty(t *testing.T) {
	_, err := selectDeviceFromList(nil, "default", "default")
	require.True(t, errors.Is(err, ErrNoDevice))
}

func TestListDevicesReadsSysfs(t *testing.T) {
	sys := t.TempDir()
	dev := t.TempDir()
	withRoots(t, sys, dev)

	writeNode(t, sys, "video2", "Logitech BRIO", "0")
	writeNode(t, sys, "video3", "Logitech BRIO", "1")
	writeNode(t, sys, "video0", "Integrated Camera", "0")
	require.NoError(t, os.WriteFile(filepath.Join(dev, "video0"), nil, 0o600))

	devices, err := ListDevices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 2)

	require.Equal(t, filepath.Join(dev, "video0"), devices[0].ID)
	require.Equal(t, "Integrated Camera", devices[0].Name)
	require.True(t, devices[0].Default)
	require.True(t, devices[0].Available)

	require.Equal(t, filepath.Join(dev, "video2"), devices[1].ID)
	require.False(t, devices[1].Default)
	require.False(t, devices[1].Available)
}

func TestListDevicesMissingSysfsReturnsEmpty(t *testing.T) {
	withRoots(t, filepath.Join(t.TempDir(), "missing"), t.TempDir())

	devices, err := ListDevices(context.Background())
	require.NoError(t, err)
	require.Empty(t, devices)

	_, err = SelectDevice(context.Background(), "default", "default")
	require.True(t, errors.Is(err, ErrNoDevice))
}

func withRoots(t *testing.T, sys, dev string) {
	t.Helper()
	origSys, origDev := sysfsRoot, devRoot
	sysfsRoot, devRoot = sys, dev
	t.Cleanup(func() { sysfsRoot, devRoot = origSys, origDev })
}

func writeNode(t *testing.T, root, node, name, index string) {
	t.Helper()
	dir := filepath.Join(root, node)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "name"), []byte(name+"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index"), []byte(index+"\n"), 0o644))
}
