package controller

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/itohio/peltiator/pkg/funcgen"
	"github.com/itohio/peltiator/pkg/l298n"
	"gopkg.in/yaml.v3"
)

// Status documents are framed the way YAML streams are.
const (
	DocStart = "---"
	DocEnd   = "..."
)

var (
	// ErrUnknownCommand is returned by Exec for unrecognised keywords.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrBadArgument is returned by Exec for malformed arguments.
	ErrBadArgument = errors.New("bad argument")
	// ErrPIDActive is returned when a manual output is set in PID mode.
	ErrPIDActive = errors.New("pid active")
)

func errPIDActive(ch l298n.Channel) error {
	return fmt.Errorf("%w on channel %s", ErrPIDActive, ch)
}

// Exec runs one command line and returns its response. Setters respond with
// an empty string.
//
//	*IDN?                      identification
//	STATUS?                    YAML status document
//	TEMP_A t | TEMP_B t        set target (°C)
//	GRAD g                     set targets to mean ± g/2
//	PID_A on|off | PID_B ...   switch PID mode
//	OUT_A d | OUT_B d          manual duty in [-1, 1]
//	FUNC_A OFF                 stop target modulation
//	FUNC_A SIN f a [phase]     sine modulation (Hz, °C, rad)
func (c *Controller) Exec(line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	cmd, args := strings.ToUpper(fields[0]), fields[1:]

	switch cmd {
	case "*IDN?":
		return c.opts.Identity, nil
	case "STATUS?":
		return c.StatusDocument()
	case "GRAD":
		g, err := floatArg(cmd, args)
		if err != nil {
			return "", err
		}
		c.SetGradient(g)
		return "", nil
	}

	keyword, ch, ok := splitChannel(cmd)
	if !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownCommand, fields[0])
	}

	switch keyword {
	case "TEMP":
		t, err := floatArg(cmd, args)
		if err != nil {
			return "", err
		}
		c.SetTarget(ch, t)
	case "PID":
		if len(args) != 1 {
			return "", fmt.Errorf("%w: %s expects on|off", ErrBadArgument, cmd)
		}
		on, err := parseSwitch(args[0])
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrBadArgument, cmd, err)
		}
		c.SetPID(ch, on)
	case "OUT":
		d, err := floatArg(cmd, args)
		if err != nil {
			return "", err
		}
		if err := c.SetOutput(ch, d); err != nil {
			return "", err
		}
	case "FUNC":
		w, err := parseWaveform(cmd, args)
		if err != nil {
			return "", err
		}
		c.SetModulation(ch, w)
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownCommand, fields[0])
	}
	return "", nil
}

// Respond is Exec formatted for the wire: errors become a single
// "ERR <message>" line.
func (c *Controller) Respond(line string) string {
	resp, err := c.Exec(line)
	if err != nil {
		return "ERR " + err.Error()
	}
	return resp
}

// StatusDocument renders Status as a framed YAML document ending in DocEnd.
func (c *Controller) StatusDocument() (string, error) {
	return EncodeStatus(c.Status())
}

// EncodeStatus renders s between DocStart and DocEnd lines.
func EncodeStatus(s Status) (string, error) {
	body, err := yaml.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode status: %w", err)
	}
	var b strings.Builder
	b.WriteString(DocStart)
	b.WriteByte('\n')
	b.Write(body)
	b.WriteString(DocEnd)
	return b.String(), nil
}

// splitChannel splits "TEMP_A" into ("TEMP", ChannelA).
func splitChannel(cmd string) (string, l298n.Channel, bool) {
	i := strings.LastIndexByte(cmd, '_')
	if i < 0 || i != len(cmd)-2 {
		return "", 0, false
	}
	switch cmd[i+1] {
	case 'A':
		return cmd[:i], l298n.ChannelA, true
	case 'B':
		return cmd[:i], l298n.ChannelB, true
	}
	return "", 0, false
}

func floatArg(cmd string, args []string) (float64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%w: %s expects one number", ErrBadArgument, cmd)
	}
	v, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %q is not a number", ErrBadArgument, cmd, args[0])
	}
	return v, nil
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	}
	return false, fmt.Errorf("%q is not on|off", s)
}

func parseWaveform(cmd string, args []string) (funcgen.Waveform, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: %s expects OFF or SIN f a [phase]", ErrBadArgument, cmd)
	}
	switch strings.ToUpper(args[0]) {
	case "OFF":
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: %s OFF takes no arguments", ErrBadArgument, cmd)
		}
		return funcgen.OffWave{}, nil
	case "SIN":
		if len(args) != 3 && len(args) != 4 {
			return nil, fmt.Errorf("%w: %s SIN expects f a [phase]", ErrBadArgument, cmd)
		}
		nums := make([]float64, 3)
		for i, a := range args[1:] {
			v, err := strconv.ParseFloat(a, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %q is not a number", ErrBadArgument, cmd, a)
			}
			nums[i] = v
		}
		return funcgen.SineWave{Params: funcgen.Params{Freq: nums[0], Amp: nums[1], Phase: nums[2]}}, nil
	}
	return nil, fmt.Errorf("%w: %s: unsupported waveform %q", ErrBadArgument, cmd, args[0])
}
