// Package gpib talks to GPIB instruments through a Prologix GPIB-Ethernet
// controller. The controller accepts "++" commands and forwards every other
// line to the instrument selected with "++addr".
package gpib

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultPort is the TCP port of the Prologix GPIB-Ethernet controller.
	DefaultPort = 1234
	// DefaultTimeout bounds every write and read on the controller socket.
	DefaultTimeout = time.Second
)

// EOS modes select the terminator appended to instrument commands.
const (
	EOSCRLF = 0
	EOSCR   = 1
	EOSLF   = 2
	EOSNone = 3
)

var (
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("gpib: controller closed")
	// ErrBadAddress is returned for primary addresses outside 0..30.
	ErrBadAddress = errors.New("gpib: bad address")
)

// Controller is a connection to a Prologix controller. It is safe for
// concurrent use; each Write and Query selects its instrument first.
type Controller struct {
	mu      sync.Mutex
	conn    net.Conn
	r       *bufio.Reader
	timeout time.Duration
}

// Dial connects to a controller at address ("host" or "host:port"). Read
// after write is switched off so that responses are only fetched by Query.
func Dial(address string, timeout time.Duration) (*Controller, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if _, _, err := net.SplitHostPort(address); err != nil {
		address = net.JoinHostPort(address, fmt.Sprint(DefaultPort))
	}
	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return nil, fmt.Errorf("gpib: dial %s: %w", address, err)
	}
	c := NewController(conn, timeout)
	if err := c.send("++auto 0"); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// NewController wraps an established connection.
func NewController(conn net.Conn, timeout time.Duration) *Controller {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Controller{conn: conn, r: bufio.NewReader(conn), timeout: timeout}
}

// Write sends cmd to the instrument at addr.
func (c *Controller) Write(addr, eos int, cmd string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.selectInstrument(addr, eos); err != nil {
		return err
	}
	return c.send(cmd)
}

// Query sends cmd to the instrument at addr and reads one response line.
func (c *Controller) Query(addr, eos int, cmd string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.selectInstrument(addr, eos); err != nil {
		return "", err
	}
	if err := c.send(cmd); err != nil {
		return "", err
	}
	return c.read()
}

// Read fetches one response line from the instrument at addr.
func (c *Controller) Read(addr, eos int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.selectInstrument(addr, eos); err != nil {
		return "", err
	}
	return c.read()
}

// Close closes the connection.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Controller) selectInstrument(addr, eos int) error {
	if addr < 0 || addr > 30 {
		return fmt.Errorf("%w %d", ErrBadAddress, addr)
	}
	if err := c.send(fmt.Sprintf("++addr %d", addr)); err != nil {
		return err
	}
	return c.send(fmt.Sprintf("++eos %d", eos))
}

func (c *Controller) send(line string) error {
	if c.conn == nil {
		return ErrClosed
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return fmt.Errorf("gpib: %w", err)
	}
	if _, err := c.conn.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("gpib: write %q: %w", line, err)
	}
	return nil
}

func (c *Controller) read() (string, error) {
	if err := c.send("++read"); err != nil {
		return "", err
	}
	if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return "", fmt.Errorf("gpib: %w", err)
	}
	line, err := c.r.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("gpib: read: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Instrument is one device on the bus.
type Instrument struct {
	ctrl    *Controller
	Address int
	EOS     int
}

// NewInstrument binds a primary address on ctrl.
func NewInstrument(ctrl *Controller, address, eos int) *Instrument {
	return &Instrument{ctrl: ctrl, Address: address, EOS: eos}
}

func (i *Instrument) Send(cmd string) error {
	return i.ctrl.Write(i.Address, i.EOS, cmd)
}

func (i *Instrument) Read() (string, error) {
	return i.ctrl.Read(i.Address, i.EOS)
}

func (i *Instrument) Exchange(cmd string) (string, error) {
	return i.ctrl.Query(i.Address, i.EOS, cmd)
}
