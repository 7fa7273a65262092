// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"fmt"
	"sort"
	"strings"

	"go.bug.st/serial/enumerator"
)

// PortInfo describes a serial port found on the host.
type PortInfo struct {
	Name         string
	IsUSB        bool
	VID          string
	PID          string
	SerialNumber string
	Product      string
	Bluetooth    bool
}

// ListPorts returns the host's serial ports sorted by name.
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}
	return portInfos(details), nil
}

func portInfos(details []*enumerator.PortDetails) []PortInfo {
	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		if d == nil {
			continue
		}
		ports = append(ports, PortInfo{
			Name:         d.Name,
			IsUSB:        d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
			Product:      d.Product,
			Bluetooth:    isBluetooth(d.Name, d.Product),
		})
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i].Name < ports[j].Name })
	return ports
}

// isBluetooth reports whether a port looks like a Bluetooth serial bridge:
// the product string names Bluetooth, or the device node is an RFCOMM or
// macOS Bluetooth port.
func isBluetooth(name, product string) bool {
	p := strings.ToLower(product)
	n := strings.ToLower(name)
	return strings.Contains(p, "bluetooth") ||
		strings.Contains(n, "rfcomm") ||
		strings.Contains(n, "bluetooth")
}

// String renders the port as one listing line.
func (p PortInfo) String() string {
	var s strings.Builder
	s.WriteString(p.Name)
	if p.IsUSB {
		fmt.Fprintf(&s, "  USB %s:%s", p.VID, p.PID)
		if p.SerialNumber != "" {
			fmt.Fprintf(&s, " sn=%s", p.SerialNumber)
		}
	}
	if p.Product != "" {
		fmt.Fprintf(&s, "  %q", p.Product)
	}
	if p.Bluetooth {
		s.WriteString("  [bluetooth]")
	}
	return s.String()
}
