// Package camera handles video device discovery, selection, and frame capture.
package camera

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ErrNoDevice reports that no video capture nodes were discovered.
var ErrNoDevice = errors.New("no video capture devices found")

var (
	sysfsRoot = "/sys/class/video4linux"
	devRoot   = "/dev"
)

// Device describes one V4L2 capture node surfaced to signcast.
type Device struct {
	ID        string
	Name      string
	Available bool
	Default   bool
}

// Selection is the resolved capture device plus optional fallback warning context.
type Selection struct {
	Device   Device
	Warning  string
	Fallback bool
}

// ListDevices returns V4L2 capture nodes ordered by node number.
// The lowest-numbered node is reported as the default.
func ListDevices(_ context.Context) ([]Device, error) {
	entries, err := os.ReadDir(sysfsRoot)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list video devices: %w", err)
	}

	type node struct {
		number int
		device Device
	}
	nodes := make([]node, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "video") {
			continue
		}
		number, err := strconv.Atoi(strings.TrimPrefix(name, "video"))
		if err != nil {
			continue
		}
		// Metadata nodes share the card with a non-zero index.
		if idx := readSysfs(filepath.Join(sysfsRoot, name, "index")); idx != "" && idx != "0" {
			continue
		}

		devPath := filepath.Join(devRoot, name)
		_, statErr := os.Stat(devPath)
		nodes = append(nodes, node{
			number: number,
			device: Device{
				ID:        devPath,
				Name:      readSysfs(filepath.Join(sysfsRoot, name, "name")),
				Available: statErr == nil,
			},
		})
	}

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].number < nodes[j].number })
	devices := make([]Device, 0, len(nodes))
	for _, n := range nodes {
		devices = append(devices, n.device)
	}
	if len(devices) > 0 {
		devices[0].Default = true
	}
	return devices, nil
}

// SelectDevice resolves camera.input/camera.fallback preferences against live devices.
func SelectDevice(ctx context.Context, input string, fallback string) (Selection, error) {
	devices, err := ListDevices(ctx)
	if err != nil {
		return Selection{}, err
	}
	return selectDeviceFromList(devices, input, fallback)
}

// selectDeviceFromList applies selection policy to a pre-fetched device list.
func selectDeviceFromList(devices []Device, input string, fallback string) (Selection, error) {
	if len(devices) == 0 {
		return Selection{}, ErrNoDevice
	}

	var (
		defaultDevice *Device
		byInput       *Device
		byFallback    *Device
	)

	input = strings.TrimSpace(strings.ToLower(input))
	fallback = strings.TrimSpace(strings.ToLower(fallback))

	for i := range devices {
		dev := &devices[i]
		if dev.Default {
			defaultDevice = dev
		}
		if byInput == nil && input != "" && input != "default" && deviceMatches(*dev, input) {
			byInput = dev
		}
		if byFallback == nil && fallback != "" && fallback != "default" && deviceMatches(*dev, fallback) {
			byFallback = dev
		}
	}

	chooseDefault := func() (*Device, error) {
		if defaultDevice == nil {
			return nil, errors.New("default camera is unavailable")
		}
		return defaultDevice, nil
	}

	selectPrimary := func() (*Device, error) {
		if input == "" || input == "default" {
			return chooseDefault()
		}
		if byInput != nil {
			return byInput, nil
		}
		return nil, fmt.Errorf("camera.input %q did not match any device", input)
	}

	primary, err := selectPrimary()
	if err != nil {
		return Selection{}, err
	}
	if primary.Available {
		return Selection{Device: *primary}, nil
	}

	var fallbackDevice *Device
	if fallback != "" && fallback != "default" {
		if byFallback == nil {
			return Selection{}, fmt.Errorf("camera %q is unavailable and fallback %q not found", primary.ID, fallback)
		}
		fallbackDevice = byFallback
	} else {
		d, derr := chooseDefault()
		if derr != nil {
			return Selection{}, fmt.Errorf("camera %q is unavailable and no usable fallback: %w", primary.ID, derr)
		}
		fallbackDevice = d
	}

	if !fallbackDevice.Available {
		return Selection{}, fmt.Errorf("camera fallback device %q is not available", fallbackDevice.ID)
	}

	return Selection{
		Device:   *fallbackDevice,
		Warning:  fmt.Sprintf("camera.input %q is unavailable; falling back to %q", primary.ID, fallbackDevice.ID),
		Fallback: primary.ID != fallbackDevice.ID,
	}, nil
}

// deviceMatches reports whether a search term matches a device path or name.
func deviceMatches(device Device, term string) bool {
	if term == "" {
		return false
	}
	id := strings.ToLower(device.ID)
	name := strings.ToLower(device.Name)
	return id == term || strings.Contains(name, term) || strings.HasSuffix(id, "/"+term)
}

func readSysfs(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
