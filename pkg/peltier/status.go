package peltier

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/itohio/peltiator/pkg/controller"
	"github.com/itohio/peltiator/pkg/l298n"
	"gopkg.in/yaml.v3"
)

// Status is a controller status document stamped with its receive time.
// Voltage is the sample voltage read alongside it, NaN without a voltmeter.
type Status struct {
	controller.Status `yaml:",inline"`

	Timestamp time.Time `yaml:"-"`
	Voltage   float64   `yaml:"-"`
}

func newStatus(s controller.Status) Status {
	return Status{Status: s, Timestamp: time.Now(), Voltage: math.NaN()}
}

// ParseStatus decodes a framed status document.
func ParseStatus(doc string) (controller.Status, error) {
	var s controller.Status
	if err := yaml.Unmarshal([]byte(doc), &s); err != nil {
		return s, fmt.Errorf("failed to parse status: %w", err)
	}
	return s, nil
}

// InitCommand levels both plates to their mean target.
const InitCommand = "GRAD 0.0"

func gradCommand(grad float64) string {
	return "GRAD " + strconv.FormatFloat(grad, 'f', -1, 64)
}

func targetCommand(ch l298n.Channel, celsius float64) string {
	return fmt.Sprintf("TEMP_%s %s", ch, strconv.FormatFloat(celsius, 'f', -1, 64))
}

func pidCommand(ch l298n.Channel, on bool) string {
	mode := "off"
	if on {
		mode = "on"
	}
	return fmt.Sprintf("PID_%s %s", ch, mode)
}

// deviceError converts an "ERR ..." response line into an error.
func deviceError(resp string) error {
	resp = strings.TrimSpace(resp)
	if msg, ok := strings.CutPrefix(resp, "ERR "); ok {
		return fmt.Errorf("%w: %s", ErrDevice, msg)
	}
	return nil
}
