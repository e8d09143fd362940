package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/peltiator/pkg/config"
	"github.com/itohio/peltiator/pkg/gpib"
	"github.com/itohio/peltiator/pkg/peltier"
	"github.com/itohio/peltiator/pkg/record"
	"github.com/itohio/peltiator/pkg/scope"
)

func main() {
	var (
		portFlag     = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag   = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag     = flag.Bool("mock", false, "Use simulated controller instead of serial port")
		chipFlag     = flag.String("gpiochip", "", "Drive the simulated controller's bridge through this Linux GPIO chip (implies -mock)")
		dmmFlag      = flag.String("dmm", "", "Prologix GPIB-Ethernet address of the sample voltmeter (host[:port])")
		headlessFlag = flag.Bool("headless", false, "Run a gradient schedule without the GUI")
		scheduleFlag = flag.String("schedule", "0", "Comma separated gradients for -headless (°C)")
		durationFlag = flag.Duration("duration", time.Minute, "Time spent at each gradient in -headless mode")
		periodFlag   = flag.Duration("period", 0, "Status polling period (0 = config record.poll_interval)")
		outputFlag   = flag.String("o", "", "CSV output file for -headless (default stdout)")
		sampleFlag   = flag.String("sample", "", "Sample name written to the CSV metadata")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *periodFlag > 0 {
		cfg.Record.PollInterval = *periodFlag
	}
	if *chipFlag != "" {
		cfg.Bridge.Backend = config.BackendGPIOChip
		cfg.Bridge.Chip = *chipFlag
		*mockFlag = true
	}
	if *dmmFlag != "" {
		cfg.DMM.Address = *dmmFlag
	}

	if *headlessFlag {
		gradients, err := parseSchedule(*scheduleFlag)
		if err != nil {
			log.Fatalf("Invalid schedule: %v", err)
		}
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		run := headlessRun{
			cfg:        cfg,
			device:     newDevice(cfg, *mockFlag),
			gradients:  gradients,
			duration:   *durationFlag,
			output:     *outputFlag,
			sampleName: *sampleFlag,
		}
		if err := run.Run(ctx); err != nil {
			log.Fatalf("Schedule failed: %v", err)
		}
		return
	}

	application := app.NewWithID("com.itohio.peltiator")

	window := application.NewWindow("Peltiator")
	window.Resize(fyne.NewSize(1200, 800))
	window.CenterOnScreen()

	state := &appState{
		cfg:      cfg,
		cfgPath:  *configFlag,
		window:   window,
		useMock:  *mockFlag,
		recorder: record.New(time.Duration(cfg.Record.WindowSeconds * float64(time.Second))),
		start:    time.Now(),
	}
	state.scopeWidget = scope.New(time.Duration(cfg.Record.WindowSeconds * float64(time.Second)))

	const updateInterval = 100 * time.Millisecond
	state.recorder.OnUpdate(func(records []peltier.Status) {
		if !state.throttle(updateInterval) {
			return
		}
		fyne.Do(func() {
			state.scopeWidget.UpdateData(records)
			if n := len(records); n > 0 {
				state.showStatus(records[n-1])
			}
		})
	})

	toolbar := createToolbar(state)
	controls := createControls(state)
	state.statusLabel = widget.NewLabel("Disconnected")

	window.SetContent(container.NewBorder(
		container.NewVBox(toolbar, controls),
		state.statusLabel,
		nil,
		nil,
		state.scopeWidget,
	))
	window.SetOnClosed(func() {
		state.disconnect()
	})
	window.ShowAndRun()
}

// newDevice creates the simulated or the serial controller client. With a
// DMM address the sample voltage is read with every status.
func newDevice(cfg *config.Config, mock bool) peltier.Device {
	var dev peltier.Device
	if mock {
		dev = peltier.NewMock(cfg)
	} else {
		dev = peltier.New(cfg.Serial.Port, cfg.Serial.BaudRate, cfg.Serial.ReadTimeout)
	}
	if cfg.DMM.Address == "" {
		return dev
	}
	dmm := gpib.NewDMM(cfg.DMM.Address, cfg.DMM.GPIBAddress, cfg.DMM.EOS, cfg.DMM.Timeout)
	return peltier.WithVoltmeter(dev, dmm)
}

// appState holds the application state.
type appState struct {
	cfg         *config.Config
	cfgPath     string
	device      peltier.Device
	recorder    *record.Recorder
	scopeWidget *scope.ScopeWidget
	window      fyne.Window
	useMock     bool
	start       time.Time

	connectBtn  *widget.Button
	pidBtns     [2]*widget.Button
	pidState    [2]bool
	targetA     *widget.Entry
	targetB     *widget.Entry
	gradient    *widget.Entry
	applyBtn    *widget.Button
	statusLabel *widget.Label

	// Status polling
	cancelPoll context.CancelFunc
	pollDone   chan struct{}

	// Throttling for scope updates
	lastUpdateTime time.Time
	updateMu       sync.Mutex
}

func (s *appState) throttle(interval time.Duration) bool {
	s.updateMu.Lock()
	defer s.updateMu.Unlock()
	now := time.Now()
	if now.Sub(s.lastUpdateTime) < interval {
		return false
	}
	s.lastUpdateTime = now
	return true
}

func (s *appState) connected() bool {
	return s.device != nil && s.device.IsConnected()
}
