// Package serial lists serial ports and streams device output.
package serial

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

const readTimeout = 100 * time.Millisecond

// ErrNoPort is returned by SelectUSB when no USB serial port is attached.
var ErrNoPort = errors.New("no USB serial port found")

// PortInfo describes one serial port.
type PortInfo struct {
	Name         string `json:"name" yaml:"name"`
	USB          bool   `json:"usb" yaml:"usb"`
	VID          string `json:"vid,omitempty" yaml:"vid,omitempty"`
	PID          string `json:"pid,omitempty" yaml:"pid,omitempty"`
	SerialNumber string `json:"serial_number,omitempty" yaml:"serial_number,omitempty"`
	Product      string `json:"product,omitempty" yaml:"product,omitempty"`
}

func (p PortInfo) String() string {
	if !p.USB {
		return p.Name
	}
	s := fmt.Sprintf("%s [%s:%s]", p.Name, p.VID, p.PID)
	if p.Product != "" {
		s += " " + p.Product
	}
	return s
}

// ListPorts returns the serial ports with USB details, sorted by name.
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list ports: %w", err)
	}

	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		ports = append(ports, PortInfo{
			Name:         d.Name,
			USB:          d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
			Product:      d.Product,
		})
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i].Name < ports[j].Name })
	return ports, nil
}

// SelectUSB returns the only USB port in ports. It fails when there is none
// or when the choice is ambiguous.
func SelectUSB(ports []PortInfo) (string, error) {
	var usb []string
	for _, p := range ports {
		if p.USB {
			usb = append(usb, p.Name)
		}
	}
	switch len(usb) {
	case 0:
		return "", ErrNoPort
	case 1:
		return usb[0], nil
	default:
		return "", fmt.Errorf("multiple USB serial ports found (%s), choose one with --port", strings.Join(usb, ", "))
	}
}

// DetectPort picks the single attached USB serial port.
func DetectPort() (string, error) {
	ports, err := ListPorts()
	if err != nil {
		return "", err
	}
	return SelectUSB(ports)
}

type conn interface {
	io.ReadWriteCloser
	SetDTR(dtr bool) error
	SetRTS(rts bool) error
	ResetInputBuffer() error
}

// Port is an open serial port.
type Port struct {
	conn     conn
	portName string
	baudRate int
}

// Open opens a serial port with the specified baud rate, 8N1.
func Open(portName string, baudRate int) (*Port, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open port %s: %w", portName, err)
	}

	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	return &Port{
		conn:     port,
		portName: portName,
		baudRate: baudRate,
	}, nil
}

// Close closes the serial port.
func (p *Port) Close() error {
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// HardReset restarts the chip by pulsing EN through RTS.
func (p *Port) HardReset() error {
	if err := p.conn.SetDTR(false); err != nil {
		return err
	}
	if err := p.conn.SetRTS(true); err != nil {
		return err
	}
	time.Sleep(100 * time.Millisecond)
	if err := p.conn.SetRTS(false); err != nil {
		return err
	}
	return p.conn.ResetInputBuffer()
}

// Monitor copies device output to w until ctx is cancelled or the port closes.
func (p *Port) Monitor(ctx context.Context, w io.Writer) error {
	buf := make([]byte, 1024)
	for {
		if ctx.Err() != nil {
			return nil
		}
		n, err := p.conn.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", p.portName, err)
		}
	}
}

// PortName returns the port name.
func (p *Port) PortName() string {
	return p.portName
}

// BaudRate returns the current baud rate.
func (p *Port) BaudRate() int {
	return p.baudRate
}
