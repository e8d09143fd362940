package peltier

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/itohio/peltiator/pkg/controller"
	"github.com/itohio/peltiator/pkg/l298n"
	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the baud rate of the controller firmware.
	DefaultBaudRate = 115200
	// DefaultReadTimeout bounds each read; a silent line for this long ends
	// a response. The firmware only answers between drive periods, so it must
	// exceed one period (controller.DefaultPeriod).
	DefaultReadTimeout = 250 * time.Millisecond
)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// conn is the part of serial.Port the client uses. Read returns 0, nil on
// timeout.
type conn interface {
	io.ReadWriteCloser
	ResetInputBuffer() error
	ResetOutputBuffer() error
}

type opener func(name string, baudRate int, timeout time.Duration) (conn, error)

// Serial is a connection to the controller firmware.
type Serial struct {
	port     string
	baudRate int
	timeout  time.Duration
	open     opener

	mu      sync.Mutex
	conn    conn
	pending []byte
}

// New creates a Serial client for port. Zero baudRate or timeout select the
// defaults.
func New(port string, baudRate int, timeout time.Duration) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if timeout == 0 {
		timeout = DefaultReadTimeout
	}
	return &Serial{
		port:     port,
		baudRate: baudRate,
		timeout:  timeout,
		open:     openSerial,
	}
}

func openSerial(name string, baudRate int, timeout time.Duration) (conn, error) {
	p, err := serial.Open(name, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, err
	}
	if err := p.SetReadTimeout(timeout); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{Name: name, Description: name})
	}
	return result, nil
}

// Connect opens the serial port.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn != nil {
		return ErrAlreadyConnected
	}

	c, err := d.open(d.port, d.baudRate, d.timeout)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}
	d.conn = c
	d.pending = nil
	return nil
}

// Close closes the serial port.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return nil
	}
	if err := d.conn.Close(); err != nil {
		log.Printf("Error closing serial port: %v", err)
	}
	d.conn = nil
	return nil
}

// IsConnected returns whether the port is open.
func (d *Serial) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conn != nil
}

// Initialize levels the plates.
func (d *Serial) Initialize() error {
	return d.send(InitCommand)
}

// Shutdown leaves the plates at a common target.
func (d *Serial) Shutdown() error {
	return d.send(InitCommand)
}

// Identify returns the *IDN? response.
func (d *Serial) Identify() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.write("*IDN?"); err != nil {
		return "", err
	}
	line, err := d.readLine()
	if err != nil {
		return "", err
	}
	if line == "" {
		return "", fmt.Errorf("identify: %w after %v", ErrTimeout, d.timeout)
	}
	if err := deviceError(line); err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// SendCommand flushes the port, sends cmd and collects response lines until
// the port stays silent for one read timeout.
func (d *Serial) SendCommand(cmd string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.flush(); err != nil {
		return "", err
	}
	if err := d.write(cmd); err != nil {
		return "", err
	}

	var buf strings.Builder
	for {
		line, err := d.readLine()
		if err != nil {
			return buf.String(), err
		}
		if line == "" {
			return buf.String(), nil
		}
		buf.WriteString(line)
	}
}

// SetPIDMode switches the PID loop of ch.
func (d *Serial) SetPIDMode(ch l298n.Channel, on bool) error {
	return d.send(pidCommand(ch, on))
}

// SetTarget sets the target temperature of ch.
func (d *Serial) SetTarget(ch l298n.Channel, celsius float64) error {
	return d.send(targetCommand(ch, celsius))
}

// SetGradient spreads the targets by grad around their mean.
func (d *Serial) SetGradient(grad float64) error {
	return d.send(gradCommand(grad))
}

// Status requests a status document and reads it up to the document end
// marker.
func (d *Serial) Status() (Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.flush(); err != nil {
		return Status{}, err
	}
	if err := d.write("STATUS?"); err != nil {
		return Status{}, err
	}

	var doc strings.Builder
	for {
		line, err := d.readLine()
		if err != nil {
			return Status{}, err
		}
		if line == "" {
			return Status{}, fmt.Errorf("status: %w after %v", ErrTimeout, d.timeout)
		}
		if err := deviceError(line); err != nil {
			return Status{}, err
		}
		doc.WriteString(line)
		if strings.HasPrefix(line, controller.DocEnd) {
			break
		}
	}

	s, err := ParseStatus(doc.String())
	if err != nil {
		return Status{}, err
	}
	return newStatus(s), nil
}

func (d *Serial) send(cmd string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.write(cmd)
}

func (d *Serial) write(cmd string) error {
	if d.conn == nil {
		return ErrNotConnected
	}
	if _, err := d.conn.Write([]byte(cmd + "\n")); err != nil {
		return fmt.Errorf("failed to send %q: %w", cmd, err)
	}
	return nil
}

func (d *Serial) flush() error {
	if d.conn == nil {
		return ErrNotConnected
	}
	d.pending = nil
	if err := d.conn.ResetInputBuffer(); err != nil {
		return fmt.Errorf("failed to flush input: %w", err)
	}
	if err := d.conn.ResetOutputBuffer(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}
	return nil
}

// readLine returns the next line including its newline. On a read timeout
// it returns whatever was pending, which is empty if the port was silent.
func (d *Serial) readLine() (string, error) {
	if d.conn == nil {
		return "", ErrNotConnected
	}

	buf := make([]byte, 128)
	for {
		if i := bytes.IndexByte(d.pending, '\n'); i >= 0 {
			line := string(d.pending[:i+1])
			d.pending = d.pending[i+1:]
			return line, nil
		}
		n, err := d.conn.Read(buf)
		d.pending = append(d.pending, buf[:n]...)
		if err != nil {
			return "", fmt.Errorf("failed to read from serial port: %w", err)
		}
		if n == 0 {
			line := string(d.pending)
			d.pending = nil
			return line, nil
		}
	}
}
