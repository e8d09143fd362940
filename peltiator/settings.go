package main

import (
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/peltiator/pkg/config"
	"github.com/itohio/peltiator/pkg/peltier"
)

// showSettingsDialog displays a settings dialog with tabs for all configuration options.
func showSettingsDialog(state *appState) {
	tabs := container.NewAppTabs(
		createSerialTab(state),
		createControlTab(state),
		createRecordTab(state),
		createMockTab(state),
		createDMMTab(state),
	)

	content := container.NewBorder(nil, nil, nil, nil, tabs)
	content.Resize(fyne.NewSize(600, 500))

	d := dialog.NewCustom("Settings", "Close", content, state.window)
	d.Resize(fyne.NewSize(600, 500))
	d.Show()
}

func (s *appState) saveConfig() {
	if err := s.cfg.Save(s.cfgPath); err != nil {
		dialog.ShowError(fmt.Errorf("failed to save config: %w", err), s.window)
	}
}

// createSerialTab creates the Serial configuration tab.
func createSerialTab(state *appState) *container.TabItem {
	var options []string
	if ports, err := peltier.Ports(); err == nil {
		for _, p := range ports {
			options = append(options, p.Name)
		}
	}
	current := state.cfg.Serial.Port
	found := false
	for _, o := range options {
		found = found || o == current
	}
	if !found && current != "" {
		options = append(options, current)
	}

	portSelect := widget.NewSelect(options, nil)
	if current != "" {
		portSelect.SetSelected(current)
	}
	baudEntry := widget.NewEntry()
	baudEntry.SetText(strconv.Itoa(state.cfg.Serial.BaudRate))
	timeoutEntry := widget.NewEntry()
	timeoutEntry.SetText(state.cfg.Serial.ReadTimeout.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Serial Port", Widget: portSelect},
			{Text: "Baud Rate", Widget: baudEntry},
			{Text: "Read Timeout", Widget: timeoutEntry},
		},
		OnSubmit: func() {
			changed := false
			if portSelect.Selected != "" && portSelect.Selected != state.cfg.Serial.Port {
				state.cfg.Serial.Port = portSelect.Selected
				changed = true
			}
			if b, err := strconv.Atoi(baudEntry.Text); err == nil && b != state.cfg.Serial.BaudRate {
				state.cfg.Serial.BaudRate = b
				changed = true
			}
			if d, err := time.ParseDuration(timeoutEntry.Text); err == nil {
				state.cfg.Serial.ReadTimeout = d
			}
			state.saveConfig()

			// Reconnect with the new port settings.
			if changed && state.connected() && !state.useMock {
				state.disconnect()
				handleConnect(state)
			}
		},
	}

	return container.NewTabItem("Serial", form)
}

// createControlTab creates the drive and PID configuration tab. The gains
// take effect in the simulated controller on its next connect.
func createControlTab(state *appState) *container.TabItem {
	periodEntry := widget.NewEntry()
	periodEntry.SetText(state.cfg.Bridge.Period.String())
	kpEntry := widget.NewEntry()
	kpEntry.SetText(fmt.Sprintf("%g", state.cfg.PID.Kp))
	kiEntry := widget.NewEntry()
	kiEntry.SetText(fmt.Sprintf("%g", state.cfg.PID.Ki))
	kdEntry := widget.NewEntry()
	kdEntry.SetText(fmt.Sprintf("%g", state.cfg.PID.Kd))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Drive Period", Widget: periodEntry},
			{Text: "Kp (duty/°C)", Widget: kpEntry},
			{Text: "Ki (duty/°C·s)", Widget: kiEntry},
			{Text: "Kd (duty·s/°C)", Widget: kdEntry},
		},
		OnSubmit: func() {
			if d, err := time.ParseDuration(periodEntry.Text); err == nil && d > 0 {
				state.cfg.Bridge.Period = d
			}
			if v, err := strconv.ParseFloat(kpEntry.Text, 64); err == nil {
				state.cfg.PID.Kp = v
			}
			if v, err := strconv.ParseFloat(kiEntry.Text, 64); err == nil {
				state.cfg.PID.Ki = v
			}
			if v, err := strconv.ParseFloat(kdEntry.Text, 64); err == nil {
				state.cfg.PID.Kd = v
			}
			state.saveConfig()
		},
	}

	return container.NewTabItem("Control", form)
}

// createRecordTab creates the recording configuration tab.
func createRecordTab(state *appState) *container.TabItem {
	windowEntry := widget.NewEntry()
	windowEntry.SetText(fmt.Sprintf("%.0f", state.cfg.Record.WindowSeconds))
	pollEntry := widget.NewEntry()
	pollEntry.SetText(state.cfg.Record.PollInterval.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Window (seconds)", Widget: windowEntry},
			{Text: "Poll Interval", Widget: pollEntry},
		},
		OnSubmit: func() {
			if ws, err := strconv.ParseFloat(windowEntry.Text, 64); err == nil && ws >= 0 {
				state.cfg.Record.WindowSeconds = ws
			}
			if d, err := time.ParseDuration(pollEntry.Text); err == nil && d > 0 {
				state.cfg.Record.PollInterval = d
			}
			state.saveConfig()
		},
	}

	return container.NewTabItem("Record", form)
}

// createMockTab creates the simulated plant configuration tab.
func createMockTab(state *appState) *container.TabItem {
	m := &state.cfg.Mock
	entries := []struct {
		label string
		value *float64
	}{
		{"Ambient (°C)", &m.Ambient},
		{"Heat Rate (°C/s)", &m.HeatRate},
		{"Loss Rate (1/s)", &m.LossRate},
		{"Coupling (1/s)", &m.Coupling},
		{"Noise Level (°C)", &m.NoiseLevel},
	}

	form := &widget.Form{}
	fields := make([]*widget.Entry, len(entries))
	for i, e := range entries {
		fields[i] = widget.NewEntry()
		fields[i].SetText(fmt.Sprintf("%g", *e.value))
		form.Append(e.label, fields[i])
	}
	periodEntry := widget.NewEntry()
	periodEntry.SetText(m.Period.String())
	form.Append("Drive Period", periodEntry)

	b := &state.cfg.Bridge
	backendSelect := widget.NewSelect([]string{config.BackendSim, config.BackendGPIOChip, config.BackendPeriph}, nil)
	backendSelect.SetSelected(b.Backend)
	chipEntry := widget.NewEntry()
	chipEntry.SetText(b.Chip)
	form.Append("Bridge Pins", backendSelect)
	form.Append("GPIO Chip", chipEntry)

	form.OnSubmit = func() {
		for i, e := range entries {
			if v, err := strconv.ParseFloat(fields[i].Text, 64); err == nil {
				*e.value = v
			}
		}
		if d, err := time.ParseDuration(periodEntry.Text); err == nil {
			m.Period = d
		}
		if backendSelect.Selected != "" {
			b.Backend = backendSelect.Selected
		}
		if chipEntry.Text != "" {
			b.Chip = chipEntry.Text
		}
		state.saveConfig()
	}

	return container.NewTabItem("Mock", form)
}

// createDMMTab creates the sample voltmeter tab. Changes apply on the next
// connect.
func createDMMTab(state *appState) *container.TabItem {
	d := &state.cfg.DMM
	addrEntry := widget.NewEntry()
	addrEntry.SetPlaceHolder("host[:port], empty disables")
	addrEntry.SetText(d.Address)
	gpibEntry := widget.NewEntry()
	gpibEntry.SetText(strconv.Itoa(d.GPIBAddress))
	eosEntry := widget.NewEntry()
	eosEntry.SetText(strconv.Itoa(d.EOS))
	timeoutEntry := widget.NewEntry()
	timeoutEntry.SetText(d.Timeout.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Prologix Address", Widget: addrEntry},
			{Text: "GPIB Address", Widget: gpibEntry},
			{Text: "EOS Mode", Widget: eosEntry},
			{Text: "Timeout", Widget: timeoutEntry},
		},
		OnSubmit: func() {
			d.Address = addrEntry.Text
			if v, err := strconv.Atoi(gpibEntry.Text); err == nil {
				d.GPIBAddress = v
			}
			if v, err := strconv.Atoi(eosEntry.Text); err == nil {
				d.EOS = v
			}
			if t, err := time.ParseDuration(timeoutEntry.Text); err == nil && t > 0 {
				d.Timeout = t
			}
			state.saveConfig()
		},
	}

	return container.NewTabItem("DMM", form)
}
