package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/peltiator/pkg/config"
	"github.com/itohio/peltiator/pkg/l298n"
	"github.com/itohio/peltiator/pkg/peltier"
	"github.com/itohio/peltiator/pkg/record"
)

// createToolbar creates the toolbar with Connect, Settings, Export and the
// PID toggles.
func createToolbar(state *appState) fyne.CanvasObject {
	state.connectBtn = widget.NewButtonWithIcon("", theme.LoginIcon(), func() {
		handleConnect(state)
	})
	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})
	exportBtn := widget.NewButtonWithIcon("", theme.DocumentSaveIcon(), func() {
		showExportDialog(state)
	})
	clearBtn := widget.NewButtonWithIcon("", theme.DeleteIcon(), func() {
		state.recorder.Clear()
	})

	for i, ch := range []l298n.Channel{l298n.ChannelA, l298n.ChannelB} {
		btn := widget.NewButton("PID "+ch.String(), func() {
			handlePIDToggle(state, ch)
		})
		btn.Disable()
		state.pidBtns[i] = btn
	}

	return container.NewBorder(
		nil,
		nil,
		container.NewHBox(state.connectBtn, settingsBtn, exportBtn, clearBtn),
		container.NewHBox(state.pidBtns[0], state.pidBtns[1]),
		nil,
	)
}

// createControls creates the setpoint row.
func createControls(state *appState) fyne.CanvasObject {
	state.targetA = widget.NewEntry()
	state.targetA.SetPlaceHolder("°C")
	state.targetB = widget.NewEntry()
	state.targetB.SetPlaceHolder("°C")
	state.gradient = widget.NewEntry()
	state.gradient.SetPlaceHolder("°C")

	state.applyBtn = widget.NewButtonWithIcon("Apply", theme.ConfirmIcon(), func() {
		if err := applySetpoints(state); err != nil {
			dialog.ShowError(err, state.window)
		}
	})
	state.applyBtn.Disable()

	return container.NewGridWithColumns(7,
		widget.NewLabel("Target A"), state.targetA,
		widget.NewLabel("Target B"), state.targetB,
		widget.NewLabel("Gradient"), state.gradient,
		state.applyBtn,
	)
}

// handleConnect handles the connect/disconnect button click.
func handleConnect(state *appState) {
	if state.connected() {
		state.disconnect()
		return
	}

	device := newDevice(state.cfg, state.useMock)
	if err := device.Connect(); err != nil {
		dialog.ShowError(fmt.Errorf("failed to connect to %s: %w", state.deviceName(), err), state.window)
		return
	}
	if err := device.Initialize(); err != nil {
		log.Printf("Initialize failed: %v", err)
	}
	idn, err := device.Identify()
	if err != nil {
		log.Printf("Identify failed: %v", err)
	}
	log.Printf("Connected to %s: %s", state.deviceName(), idn)
	state.device = device
	state.pidState = [2]bool{}

	state.connectBtn.SetIcon(theme.LogoutIcon())
	state.applyBtn.Enable()
	for _, btn := range state.pidBtns {
		btn.Enable()
	}
	updatePIDButtons(state)

	ctx, cancel := context.WithCancel(context.Background())
	state.cancelPoll = cancel
	state.pollDone = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		err := state.recorder.Poll(ctx, device, state.cfg.Record.PollInterval)
		if errors.Is(err, peltier.ErrNotConnected) {
			log.Printf("Polling stopped: %v", err)
		}
	}(state.pollDone)
}

// disconnect stops polling, levels the plates and closes the device.
func (s *appState) disconnect() {
	if s.device == nil {
		return
	}
	if s.cancelPoll != nil {
		s.cancelPoll()
		<-s.pollDone
		s.cancelPoll = nil
	}
	if s.device.IsConnected() {
		if err := s.device.Shutdown(); err != nil {
			log.Printf("Shutdown failed: %v", err)
		}
	}
	if err := s.device.Close(); err != nil {
		log.Printf("Close failed: %v", err)
	}
	s.device = nil
	log.Printf("Disconnected from %s", s.deviceName())

	if s.connectBtn == nil {
		return
	}
	s.connectBtn.SetIcon(theme.LoginIcon())
	s.applyBtn.Disable()
	for _, btn := range s.pidBtns {
		btn.Disable()
	}
	s.pidState = [2]bool{}
	updatePIDButtons(s)
	s.statusLabel.SetText("Disconnected")
}

func (s *appState) deviceName() string {
	if s.useMock {
		if s.cfg.Bridge.Backend == config.BackendGPIOChip {
			return "simulated controller on " + s.cfg.Bridge.Chip
		}
		return "simulated controller"
	}
	return s.cfg.Serial.Port
}

// handlePIDToggle switches the PID loop of ch.
func handlePIDToggle(state *appState, ch l298n.Channel) {
	if !state.connected() {
		return
	}
	on := !state.pidState[ch]
	if err := state.device.SetPIDMode(ch, on); err != nil {
		dialog.ShowError(fmt.Errorf("failed to switch PID %s: %w", ch, err), state.window)
		return
	}
	state.pidState[ch] = on
	updatePIDButtons(state)
}

func updatePIDButtons(state *appState) {
	for i, btn := range state.pidBtns {
		if state.pidState[i] {
			btn.Importance = widget.HighImportance
		} else {
			btn.Importance = widget.MediumImportance
		}
		btn.Refresh()
	}
}

// applySetpoints sends the targets and then the gradient; empty entries are
// skipped.
func applySetpoints(state *appState) error {
	if !state.connected() {
		return peltier.ErrNotConnected
	}
	for _, f := range []struct {
		entry *widget.Entry
		send  func(v float64) error
	}{
		{state.targetA, func(v float64) error { return state.device.SetTarget(l298n.ChannelA, v) }},
		{state.targetB, func(v float64) error { return state.device.SetTarget(l298n.ChannelB, v) }},
		{state.gradient, state.device.SetGradient},
	} {
		text := strings.TrimSpace(f.entry.Text)
		if text == "" {
			continue
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return fmt.Errorf("%q is not a number", text)
		}
		if err := f.send(v); err != nil {
			return err
		}
	}
	return nil
}

// showStatus mirrors the latest record into the status bar and PID buttons.
func (s *appState) showStatus(st peltier.Status) {
	if s.statusLabel == nil {
		return
	}
	s.statusLabel.SetText(formatStatus(st))
	if pid := [2]bool{st.PIDA, st.PIDB}; pid != s.pidState {
		s.pidState = pid
		updatePIDButtons(s)
	}
}

func formatStatus(st peltier.Status) string {
	s := fmt.Sprintf("A %.2f°C → %.2f°C (%+.2f)   B %.2f°C → %.2f°C (%+.2f)   C %.2f°C",
		st.MeasuredA, st.TargetA, st.OutputA,
		st.MeasuredB, st.TargetB, st.OutputB,
		st.MeasuredC)
	if !math.IsNaN(st.Voltage) {
		s += fmt.Sprintf("   V %.6g", st.Voltage)
	}
	return s
}

// showExportDialog saves the recorded history as CSV.
func showExportDialog(state *appState) {
	d := dialog.NewFileSave(func(w fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, state.window)
			return
		}
		if w == nil {
			return
		}
		defer w.Close()

		meta := record.DefaultMeta("", state.start)
		if err := record.WriteCSV(w, meta, state.recorder.Records()); err != nil {
			dialog.ShowError(fmt.Errorf("failed to export: %w", err), state.window)
		}
	}, state.window)
	d.SetFileName("peltiator.csv")
	d.SetFilter(storage.NewExtensionFileFilter([]string{".csv"}))
	d.Show()
}
