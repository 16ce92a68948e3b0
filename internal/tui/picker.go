// SPDX-License-Identifier: MIT
// Package tui provides an interactive picker for choosing the microphone
// input device and capture sample rate.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"stemscope/internal/graph"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#5A56E0")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5A56E0")).
			Bold(true)
)

// Selection is the confirmed device choice.
type Selection struct {
	DeviceID   int
	SampleRate float64
}

type screen int

const (
	deviceScreen screen = iota
	rateScreen
)

// pickerModel lists input-capable devices and lets the user confirm one
// plus a capture sample rate.
type pickerModel struct {
	devices  []graph.Device
	selected int
	viewport viewport.Model
	ready    bool
	err      error
	screen   screen

	rates     []float64
	rateIndex int

	confirmed bool
	choice    Selection
}

type devicesMsg struct {
	devices []graph.Device
}

type errMsg struct {
	err error
}

func (m pickerModel) Init() tea.Cmd {
	return fetchInputDevices
}

// fetchInputDevices lists devices and keeps only those with input channels.
func fetchInputDevices() tea.Msg {
	all, err := graph.Devices()
	if err != nil {
		return errMsg{err}
	}
	var inputs []graph.Device
	for _, d := range all {
		if d.MaxInputChannels > 0 {
			inputs = append(inputs, d)
		}
	}
	return devicesMsg{inputs}
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.ready = true
			if len(m.devices) > 0 {
				m.viewport.SetContent(m.renderDevices())
			}
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}

	case devicesMsg:
		m.devices = msg.devices
		if m.ready {
			m.viewport.SetContent(m.renderDevices())
		}

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		if key.Matches(msg, key.NewBinding(key.WithKeys("q", "ctrl+c"))) {
			return m, tea.Quit
		}

		switch m.screen {
		case deviceScreen:
			switch {
			case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
				if m.selected > 0 {
					m.selected--
					m.viewport.SetContent(m.renderDevices())
				}
			case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
				if m.selected < len(m.devices)-1 {
					m.selected++
					m.viewport.SetContent(m.renderDevices())
				}
			case key.Matches(msg, key.NewBinding(key.WithKeys("enter"))):
				if len(m.devices) > 0 {
					m.screen = rateScreen
					m.rates = []float64{44100, 48000, 88200, 96000}
					m.rateIndex = 0
					for i, rate := range m.rates {
						if rate == m.devices[m.selected].DefaultSampleRate {
							m.rateIndex = i
							break
						}
					}
					m.viewport.SetContent(m.renderRates())
				}
			}

		case rateScreen:
			switch {
			case key.Matches(msg, key.NewBinding(key.WithKeys("esc"))):
				m.screen = deviceScreen
				m.viewport.SetContent(m.renderDevices())
			case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
				if m.rateIndex > 0 {
					m.rateIndex--
					m.viewport.SetContent(m.renderRates())
				}
			case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
				if m.rateIndex < len(m.rates)-1 {
					m.rateIndex++
					m.viewport.SetContent(m.renderRates())
				}
			case key.Matches(msg, key.NewBinding(key.WithKeys("enter"))):
				m.confirmed = true
				m.choice = Selection{
					DeviceID:   m.devices[m.selected].ID,
					SampleRate: m.rates[m.rateIndex],
				}
				return m, tea.Quit
			}
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m pickerModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to exit.", m.err)
	}

	var title, help string
	if m.screen == deviceScreen {
		title = titleStyle.Render("Microphone Input Device")
		help = infoStyle.Render("↑/↓: Navigate • Enter: Select • q: Quit")
	} else {
		title = titleStyle.Render("Capture Sample Rate")
		help = infoStyle.Render("↑/↓: Change • Enter: Confirm • Esc: Back • q: Quit")
	}
	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

func (m pickerModel) renderDevices() string {
	if len(m.devices) == 0 {
		return "No input devices found."
	}

	var sb strings.Builder
	for i, device := range m.devices {
		info := fmt.Sprintf("[%d] %s\n", device.ID, device.Name)
		info += fmt.Sprintf("    Input channels: %d\n", device.MaxInputChannels)
		info += fmt.Sprintf("    Default sample rate: %.0f Hz\n", device.DefaultSampleRate)
		if i == m.selected {
			info = highlightStyle.Render(info)
		}
		sb.WriteString(info)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m pickerModel) renderRates() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Device: %s\n\nSample rate:\n", m.devices[m.selected].Name))
	for i, rate := range m.rates {
		marker := " "
		if i == m.rateIndex {
			marker = "▶"
		}
		line := fmt.Sprintf("  %s %.0f Hz\n", marker, rate)
		if i == m.rateIndex {
			line = highlightStyle.Render(line)
		}
		sb.WriteString(line)
	}
	return sb.String()
}

// PickInputDevice runs the picker and returns the confirmed selection.
// ok is false when the user quit without confirming.
func PickInputDevice() (sel Selection, ok bool, err error) {
	p := tea.NewProgram(pickerModel{}, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return Selection{}, false, err
	}
	m, isModel := final.(pickerModel)
	if !isModel || !m.confirmed {
		return Selection{}, false, nil
	}
	return m.choice, true, nil
}
