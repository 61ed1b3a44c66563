// Package ble is the transport layer: it finds batteries in a scan, connects
// to them and moves raw bytes in both directions. All protocol knowledge
// stays in internal/ut1300.
package ble

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/vboginskey/bmv/internal/ut1300"
)

var characteristicUUID = bluetooth.New16BitUUID(ut1300.CharacteristicUUID)

// Battery is one discovered battery, identified by advertisement.
type Battery struct {
	Address bluetooth.Address
	Name    string
	RSSI    int16
	SeenAt  time.Time
}

// NewAdapter returns the adapter for the given HCI id ("hci0" etc), enabled
// and ready to scan.
func NewAdapter(id string) (*bluetooth.Adapter, error) {
	adapter := bluetooth.NewAdapter(id)
	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("ble enable (%s): %w", id, err)
	}
	return adapter, nil
}

// Discover scans until count batteries have been seen or ctx expires, and
// returns what it found. A battery qualifies when its advertised local name
// contains one of the known UT1300 names or it advertises one of the UT1300
// service UUIDs. Duplicate advertisements are collapsed by address.
func Discover(ctx context.Context, adapter *bluetooth.Adapter, count int) ([]Battery, error) {
	var serviceUUIDs []bluetooth.UUID
	for _, id := range ut1300.ServiceUUIDs {
		serviceUUIDs = append(serviceUUIDs, bluetooth.New16BitUUID(id))
	}

	found := make(map[string]Battery)

	go func() {
		<-ctx.Done()
		_ = adapter.StopScan()
	}()

	slog.Info("ble: scanning for batteries", "want", count)
	err := adapter.Scan(func(a *bluetooth.Adapter, r bluetooth.ScanResult) {
		name := r.LocalName()
		if !matchesBattery(name, r, serviceUUIDs) {
			return
		}

		addr := r.Address.String()
		if _, ok := found[addr]; ok {
			return
		}
		found[addr] = Battery{
			Address: r.Address,
			Name:    name,
			RSSI:    r.RSSI,
			SeenAt:  time.Now(),
		}
		slog.Info("ble: battery discovered", "addr", addr, "name", name, "rssi", r.RSSI)

		if len(found) >= count {
			_ = a.StopScan()
		}
	})
	if err != nil && ctx.Err() == nil {
		return nil, fmt.Errorf("ble scan: %w", err)
	}

	batteries := make([]Battery, 0, len(found))
	for _, b := range found {
		batteries = append(batteries, b)
	}
	if len(batteries) == 0 {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("ble discovery: no batteries found: %w", ctx.Err())
		}
		return nil, fmt.Errorf("ble discovery: no batteries found")
	}
	return batteries, nil
}

func matchesBattery(name string, r bluetooth.ScanResult, serviceUUIDs []bluetooth.UUID) bool {
	for _, known := range ut1300.LocalNames {
		if name != "" && strings.Contains(name, known) {
			return true
		}
	}
	for _, uuid := range serviceUUIDs {
		if r.HasServiceUUID(uuid) {
			return true
		}
	}
	return false
}

// Device is a connected battery with its notification/command
// characteristic resolved.
type Device struct {
	name string
	dev  bluetooth.Device
	char bluetooth.DeviceCharacteristic
}

// Connect establishes the GATT connection and resolves the 0xFFE1
// characteristic used for notifications and command writes.
func Connect(adapter *bluetooth.Adapter, b Battery) (*Device, error) {
	dev, err := adapter.Connect(b.Address, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, fmt.Errorf("ble connect %s: %w", b.Address, err)
	}

	services, err := dev.DiscoverServices(nil)
	if err != nil {
		_ = dev.Disconnect()
		return nil, fmt.Errorf("ble discover services %s: %w", b.Address, err)
	}

	for _, svc := range services {
		chars, err := svc.DiscoverCharacteristics([]bluetooth.UUID{characteristicUUID})
		if err != nil || len(chars) == 0 {
			continue
		}
		return &Device{name: b.Name, dev: dev, char: chars[0]}, nil
	}

	_ = dev.Disconnect()
	return nil, fmt.Errorf("ble %s: characteristic %s not found", b.Address, characteristicUUID.String())
}

// Name returns the advertised name the device was discovered under.
func (d *Device) Name() string { return d.name }

// Subscribe registers handler for characteristic notifications. The handler
// is invoked from the bluetooth stack's goroutine, one notification at a
// time in arrival order; the buffer is only valid for the duration of the
// call.
func (d *Device) Subscribe(handler func(data []byte)) error {
	if err := d.char.EnableNotifications(handler); err != nil {
		return fmt.Errorf("ble enable notifications: %w", err)
	}
	return nil
}

// Request writes one command frame to the characteristic.
func (d *Device) Request(cmd []byte) error {
	if _, err := d.char.WriteWithoutResponse(cmd); err != nil {
		return fmt.Errorf("ble write command % X: %w", cmd, err)
	}
	return nil
}

// Disconnect tears the connection down. Any partial frame buffered by the
// session is simply abandoned.
func (d *Device) Disconnect() error {
	return d.dev.Disconnect()
}
