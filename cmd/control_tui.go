// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/Thermoquad/systolink/pkg/accel"
	"github.com/Thermoquad/systolink/pkg/session"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const (
	maxLogEntries = 100
	visibleLog    = 8
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

type actionKind int

const (
	actionPing actionKind = iota
	actionStatus
	actionStart
	actionWait
	actionResults
	actionRun
)

// action is one entry of the action list
type action struct {
	kind  actionKind
	title string
	desc  string
}

// Implement list.Item interface
func (a action) Title() string       { return a.title }
func (a action) Description() string { return a.desc }
func (a action) FilterValue() string { return a.title }

var controlActions = []list.Item{
	action{actionPing, "Ping", "Send PING, expect PONG"},
	action{actionStatus, "Status", "Poll STATUS once"},
	action{actionStart, "Start", "Send START"},
	action{actionWait, "Wait", "Poll until DONE"},
	action{actionResults, "Results", "Fetch the result record"},
	action{actionRun, "Run", "START, wait, RESULTS"},
}

type logEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// controlModel is the Bubble Tea model for the control TUI
type controlModel struct {
	ctx      context.Context
	session  *session.Session
	maxWait  time.Duration
	interval time.Duration

	actions list.Model
	spinner spinner.Model

	// Device state
	status     accel.DeviceStatus
	lastPoll   time.Time
	lastRecord *accel.ResultRecord

	// At most one command touches the session at a time. An action chosen
	// while a background poll is in flight is queued until the poll returns.
	running  *action
	queued   *action
	polling  bool
	started  time.Time
	autoPoll bool

	// owner holds a token while a command uses the session; the program
	// takes it on exit before disconnecting.
	owner chan struct{}

	stats *accel.Statistics
	log   []logEntry

	width    int
	height   int
	quitting bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type controlTickMsg time.Time

type pollResultMsg struct {
	status accel.DeviceStatus
	err    error
}

type actionResultMsg struct {
	action  action
	status  accel.DeviceStatus
	outcome accel.StartOutcome
	record  *accel.ResultRecord
	pong    bool
	latency time.Duration
	err     error
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialControlModel(ctx context.Context, s *session.Session, maxWait, pollInterval time.Duration) controlModel {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	actions := list.New(controlActions, delegate, 30, 14)
	actions.Title = "Actions"
	actions.SetShowStatusBar(false)
	actions.SetShowHelp(false)
	actions.SetFilteringEnabled(false)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))

	return controlModel{
		ctx:      ctx,
		session:  s,
		maxWait:  maxWait,
		interval: pollInterval,
		actions:  actions,
		spinner:  sp,
		status:   accel.StatusUnknown,
		autoPoll: true,
		polling:  true,
		owner:    make(chan struct{}, 1),
		stats:    accel.NewStatistics(),
		log:      make([]logEntry, 0),
		width:    80,
		height:   24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m controlModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.pollCmd())
}

func (m controlModel) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return controlTickMsg(t)
	})
}

func (m controlModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionRelease && msg.Button == tea.MouseButtonLeft {
			m.actions, _ = m.actions.Update(msg)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.actions.SetHeight(max(msg.Height-16, 6))
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case controlTickMsg:
		if m.autoPoll && m.running == nil && !m.polling {
			m.polling = true
			return m, m.pollCmd()
		}
		return m, m.tickCmd()

	case pollResultMsg:
		m.polling = false
		m.lastPoll = time.Now()
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("Poll failed: %v", msg.err), true)
			if isFatal(msg.err) {
				m.autoPoll = false
			}
		} else if msg.status != m.status {
			m.addLogEntry(fmt.Sprintf("Status %s -> %s", m.status, msg.status), false)
			m.status = msg.status
		}
		if m.queued != nil {
			next := *m.queued
			m.queued = nil
			return m, tea.Batch(m.tickCmd(), m.startAction(next))
		}
		return m, m.tickCmd()

	case actionResultMsg:
		m.running = nil
		m.applyResult(msg)
		return m, nil
	}

	return m, nil
}

func (m *controlModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "a":
		m.autoPoll = !m.autoPoll
		m.addLogEntry(fmt.Sprintf("Background polling %s", onOff(m.autoPoll)), false)
		return m, nil

	case "r":
		m.stats.Reset()
		m.addLogEntry("Statistics reset", false)
		return m, nil

	case "enter":
		return m.handleEnter()

	case "up", "k", "down", "j":
		m.actions, _ = m.actions.Update(msg)
	}

	return m, nil
}

func (m *controlModel) handleEnter() (tea.Model, tea.Cmd) {
	if m.running != nil {
		m.addLogEntry(fmt.Sprintf("%s still running", m.running.title), true)
		return m, nil
	}
	selected, ok := m.actions.SelectedItem().(action)
	if !ok {
		return m, nil
	}

	if m.polling {
		m.queued = &selected
		m.addLogEntry(fmt.Sprintf("%s queued behind status poll", selected.title), false)
		return m, nil
	}
	return m, m.startAction(selected)
}

func (m *controlModel) startAction(a action) tea.Cmd {
	m.running = &a
	m.started = time.Now()
	m.addLogEntry(fmt.Sprintf("%s...", a.title), false)
	return m.actionCmd(a)
}

//////////////////////////////////////////////////////////////
// Commands
//////////////////////////////////////////////////////////////

func (m controlModel) pollCmd() tea.Cmd {
	s, owner := m.session, m.owner
	return func() tea.Msg {
		owner <- struct{}{}
		defer func() { <-owner }()

		status, err := s.PollStatus()
		return pollResultMsg{status: status, err: err}
	}
}

// actionCmd runs one exchange off the UI goroutine.
func (m controlModel) actionCmd(a action) tea.Cmd {
	s, ctx, maxWait, owner := m.session, m.ctx, m.maxWait, m.owner
	return func() tea.Msg {
		owner <- struct{}{}
		defer func() { <-owner }()

		res := actionResultMsg{action: a}
		start := time.Now()

		switch a.kind {
		case actionPing:
			res.pong = s.Ping()
		case actionStatus:
			res.status, res.err = s.PollStatus()
		case actionStart:
			res.outcome, res.err = s.StartProcessing()
		case actionWait:
			res.err = s.WaitForCompletion(ctx, maxWait)
			if res.err == nil {
				res.status = accel.StatusDone
			}
		case actionResults:
			rec, err := s.FetchResults()
			if err == nil {
				res.record = &rec
			}
			res.err = err
		case actionRun:
			rec, err := s.Process(ctx, maxWait)
			if err == nil {
				res.record = &rec
				res.status = accel.StatusDone
			}
			res.err = err
		}

		res.latency = time.Since(start)
		return res
	}
}

//////////////////////////////////////////////////////////////
// Result Processing
//////////////////////////////////////////////////////////////

func (m *controlModel) applyResult(msg actionResultMsg) {
	elapsed := msg.latency.Round(time.Millisecond)

	if msg.action.kind == actionRun {
		m.stats.Update(msg.record, msg.latency, session.Classify(msg.err))
	}

	if msg.err != nil {
		m.addLogEntry(fmt.Sprintf("%s failed after %v: %v", msg.action.title, elapsed, msg.err), true)
		if isFatal(msg.err) {
			m.autoPoll = false
		}
		return
	}

	switch msg.action.kind {
	case actionPing:
		if msg.pong {
			m.addLogEntry(fmt.Sprintf("PONG in %v", elapsed), false)
		} else {
			m.addLogEntry("No PONG", true)
		}
	case actionStatus:
		m.status = msg.status
		m.lastPoll = time.Now()
		m.addLogEntry(fmt.Sprintf("Status %s", accel.FormatStatus(msg.status)), false)
	case actionStart:
		if st := msg.outcome.Status(); st != accel.StatusUnknown {
			m.status = st
		}
		m.addLogEntry(fmt.Sprintf("Start: %s", msg.outcome), !msg.outcome.Accepted())
	case actionWait:
		m.status = msg.status
		m.addLogEntry(fmt.Sprintf("DONE after %v", elapsed), false)
	case actionResults, actionRun:
		if msg.status != accel.StatusUnknown {
			m.status = msg.status
		}
		m.lastRecord = msg.record
		m.addLogEntry(fmt.Sprintf("%s MAC / %s cycles in %v",
			accel.FormatCount(uint64(msg.record.MACOperations)),
			accel.FormatCount(uint64(msg.record.ProcessingCycles)),
			elapsed), false)
	}
}

func (m *controlModel) addLogEntry(message string, isError bool) {
	m.log = append(m.log, logEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})
	if len(m.log) > maxLogEntries {
		m.log = m.log[len(m.log)-maxLogEntries:]
	}
	if isError {
		m.session.Logger().Warn("Control event", zap.String("event", message))
	}
}

func isFatal(err error) bool {
	return session.Classify(err) == accel.FailureTransport
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

//////////////////////////////////////////////////////////////
// View
//////////////////////////////////////////////////////////////

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

func statusStyle(s accel.DeviceStatus) lipgloss.Style {
	switch s {
	case accel.StatusDone, accel.StatusIdle:
		return valueStyle
	case accel.StatusBusy:
		return warningStyle
	case accel.StatusError:
		return errorStyle
	default:
		return headerStyle
	}
}

func (m controlModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

	s.WriteString(titleStyle.Render("SYSTOLINK CONTROL"))
	s.WriteString(" ")
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | enter: run  a: auto-poll  r: reset  q: quit", m.session.Endpoint())))
	s.WriteString("\n\n")

	leftWidth := 32
	rightWidth := max(m.width-leftWidth-7, 30)

	left := boxStyle.Width(leftWidth).Render(m.actions.View())
	right := boxStyle.Width(rightWidth).Render(m.renderDevicePanel())
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right))
	s.WriteString("\n")

	s.WriteString(m.renderStatisticsBar())
	s.WriteString("\n")
	s.WriteString(m.renderEventLog())

	return s.String()
}

func (m controlModel) renderDevicePanel() string {
	var s strings.Builder

	s.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Status:"),
		statusStyle(m.status).Render(accel.FormatStatus(m.status))))

	polled := "never"
	if !m.lastPoll.IsZero() {
		polled = fmt.Sprintf("%.1fs ago", time.Since(m.lastPoll).Seconds())
	}
	s.WriteString(fmt.Sprintf("%s %s (auto %s)\n", labelStyle.Render("Polled:"), headerStyle.Render(polled), onOff(m.autoPoll)))
	s.WriteString(fmt.Sprintf("%s %s\n\n", labelStyle.Render("Session:"), headerStyle.Render(m.session.ID())))

	if m.running != nil {
		s.WriteString(fmt.Sprintf("%s %s %s\n\n", m.spinner.View(), m.running.title,
			headerStyle.Render(time.Since(m.started).Round(100*time.Millisecond).String())))
	}

	if m.lastRecord != nil {
		s.WriteString(labelStyle.Render("LAST RECORD"))
		s.WriteString("\n")
		s.WriteString(valueStyle.Render(accel.FormatRecord(*m.lastRecord)))
	} else {
		s.WriteString(headerStyle.Render("No record fetched yet"))
	}

	return s.String()
}

func (m controlModel) renderStatisticsBar() string {
	errPart := valueStyle.Render("0")
	if failed := m.stats.FailedRuns(); failed > 0 {
		errPart = errorStyle.Render(fmt.Sprintf("%d", failed))
	}

	content := fmt.Sprintf("%s %s  %s %s  %s %s",
		labelStyle.Render("Runs:"), valueStyle.Render(fmt.Sprintf("%d", m.stats.TotalRuns)),
		labelStyle.Render("OK:"), valueStyle.Render(fmt.Sprintf("%.1f%%", m.stats.SuccessRate())),
		labelStyle.Render("Failed:"), errPart,
	)
	if t := m.stats.ThroughputSummary(); t.N > 0 {
		content += fmt.Sprintf("  %s %s  %s %s",
			labelStyle.Render("Throughput:"), valueStyle.Render(fmt.Sprintf("%.3f MAC/cycle", t.Mean)),
			labelStyle.Render("CV:"), valueStyle.Render(fmt.Sprintf("%.2f%%", t.CV())))
	}
	if l := m.stats.LatencySummary(); l.N > 0 {
		content += fmt.Sprintf("  %s %s",
			labelStyle.Render("Latency:"), valueStyle.Render(fmt.Sprintf("%.0f ms", l.Mean*1000)))
	}

	return boxStyle.Width(m.width - 4).Render(content)
}

func (m controlModel) renderEventLog() string {
	var s strings.Builder
	s.WriteString(labelStyle.Render("EVENTS"))
	s.WriteString("\n")

	if len(m.log) == 0 {
		s.WriteString(headerStyle.Render("  (no events yet)"))
		return boxStyle.Width(m.width - 4).Render(s.String())
	}

	startIdx := max(len(m.log)-visibleLog, 0)
	for _, entry := range m.log[startIdx:] {
		icon, style := "i", warningStyle
		if entry.isError {
			icon, style = "x", errorStyle
		}
		s.WriteString(fmt.Sprintf("%s %s %s\n",
			headerStyle.Render(entry.timestamp.Format("15:04:05.000")),
			style.Render(icon),
			entry.message))
	}

	return boxStyle.Width(m.width - 4).Render(s.String())
}
