// Package app implements the bubbletea TUI: nearby customers on the left,
// the selected customer's recordings on the right, and the recorder daemon
// driving the status bar.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/skydreamer0/VOICEAPP/internal/customer"
	"github.com/skydreamer0/VOICEAPP/internal/daemon"
	"github.com/skydreamer0/VOICEAPP/internal/location"
	"github.com/skydreamer0/VOICEAPP/internal/output"
	"github.com/skydreamer0/VOICEAPP/internal/recording"
	"github.com/skydreamer0/VOICEAPP/internal/session"
	"github.com/skydreamer0/VOICEAPP/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
)

// PanelFocus tracks which panel has keyboard focus.
type PanelFocus int

const (
	FocusCustomers PanelFocus = iota
	FocusRecordings
)

const loadTimeout = 5 * time.Second

// CustomerSource lists the stored customers.
type CustomerSource interface {
	List(ctx context.Context) ([]customer.Customer, error)
}

// RecordingSource lists the recordings of one customer.
type RecordingSource interface {
	ForCustomer(ctx context.Context, customerID string) ([]recording.Recording, error)
}

// Options wire the model to the daemon and the stores.
type Options struct {
	SocketPath string
	Customers  CustomerSource
	Recordings RecordingSource
	Location   location.Provider
}

// Model is the root bubbletea model for the voiceapp TUI.
type Model struct {
	opts Options

	// Connection state
	client    *daemon.Client // command connection
	evClient  *daemon.Client // event subscription connection
	connected bool
	connError string

	// Session state as reported by the daemon
	state        session.State
	customerID   string
	customerName string
	duration     time.Duration

	// Customers
	customers        []customer.Customer
	located          bool
	selectedCustomer int

	// Recordings of the selected customer
	recordings        []recording.Recording
	recordingsFor     string
	selectedRecording int

	// UI state
	focusedPanel PanelFocus
	width        int
	height       int

	// Errors
	errorMessage   string
	errorTransient bool

	statusText string

	// Reconnect
	reconnecting     bool
	reconnectAttempt int
}

// NewModel creates a Model with default state.
func NewModel(opts Options) Model {
	if opts.SocketPath == "" {
		opts.SocketPath = daemon.SocketPath()
	}
	return Model{
		opts:         opts,
		statusText:   "Connecting to voiceapp daemon...",
		focusedPanel: FocusCustomers,
	}
}

// Init connects to the daemon and loads the customer list.
func (m Model) Init() tea.Cmd {
	return tea.Batch(connectCmd(m.opts.SocketPath), loadCustomersCmd(m.opts))
}

// connectCmd opens two connections: one for commands, one for events.
func connectCmd(sockPath string) tea.Cmd {
	return func() tea.Msg {
		client, err := daemon.Connect(sockPath)
		if err != nil {
			return DaemonConnectErrorMsg{Err: err}
		}
		evClient, err := daemon.Connect(sockPath)
		if err != nil {
			client.Close()
			return DaemonConnectErrorMsg{Err: err}
		}
		return DaemonConnectedMsg{Client: client, EvClient: evClient}
	}
}

// subscribeCmd subscribes on the event client and reads the first event.
func subscribeCmd(evClient *daemon.Client) tea.Cmd {
	return func() tea.Msg {
		if err := evClient.Subscribe(); err != nil {
			return DaemonEventErrorMsg{Err: err}
		}
		return readEventCmd(evClient)()
	}
}

func readEventCmd(evClient *daemon.Client) tea.Cmd {
	return func() tea.Msg {
		ev, err := evClient.ReadEvent()
		if err != nil {
			return DaemonEventErrorMsg{Err: err}
		}
		return DaemonEventMsg{Event: ev}
	}
}

func statusCmd(client *daemon.Client) tea.Cmd {
	return func() tea.Msg {
		resp, err := client.SendCommand(daemon.Command{Cmd: daemon.CmdStatus})
		if err != nil {
			return DaemonEventErrorMsg{Err: err}
		}
		return StatusResponseMsg{Response: resp}
	}
}

// sessionCmd sends a session command. customerID is only used by start.
func sessionCmd(client *daemon.Client, name, customerID string) tea.Cmd {
	return func() tea.Msg {
		resp, err := client.SendCommand(daemon.Command{Cmd: name, CustomerID: customerID})
		if err != nil {
			return DaemonEventErrorMsg{Err: err}
		}
		return CommandResponseMsg{Cmd: name, Response: resp}
	}
}

// clearTransientErrorCmd fires after a delay to clear transient errors.
func clearTransientErrorCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return ClearTransientErrorMsg{}
	})
}

// reconnectCmd schedules a reconnection attempt with exponential backoff.
func reconnectCmd(attempt int) tea.Cmd {
	delay := time.Duration(1<<min(attempt, 4)) * time.Second // 1s, 2s, 4s, 8s, 16s cap
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return ReconnectTickMsg{}
	})
}

// loadCustomersCmd lists customers, nearest first when the position is
// known.
func loadCustomersCmd(opts Options) tea.Cmd {
	if opts.Customers == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		list, err := opts.Customers.List(ctx)
		if err != nil {
			return CustomersLoadedMsg{Err: err}
		}
		if opts.Location == nil {
			return CustomersLoadedMsg{Customers: list}
		}
		pos, err := opts.Location.Current(ctx)
		if err != nil {
			return CustomersLoadedMsg{Customers: list}
		}
		return CustomersLoadedMsg{Customers: customer.ByDistance(list, pos), Position: &pos}
	}
}

func loadRecordingsCmd(src RecordingSource, customerID string) tea.Cmd {
	if src == nil || customerID == "" {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		recs, err := src.ForCustomer(ctx, customerID)
		return RecordingsLoadedMsg{CustomerID: customerID, Recordings: recs, Err: err}
	}
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case DaemonConnectedMsg:
		m.client = msg.Client
		m.evClient = msg.EvClient
		m.connected = true
		m.connError = ""
		m.reconnecting = false
		m.reconnectAttempt = 0
		m.statusText = "Connected"
		return m, tea.Batch(
			subscribeCmd(m.evClient),
			statusCmd(m.client),
		)

	case DaemonConnectErrorMsg:
		m.connected = false
		m.connError = msg.Err.Error()
		m.reconnecting = true
		m.statusText = "Daemon not running. Reconnecting..."
		return m, reconnectCmd(m.reconnectAttempt)

	case StatusResponseMsg:
		m.applyResponse(msg.Response)
		return m, nil

	case CommandResponseMsg:
		r := msg.Response
		if !r.OK {
			return m, m.setError(r.Error, true)
		}
		m.applyResponse(r)
		if msg.Cmd == daemon.CmdStop {
			m.statusText = "Saved " + r.RecordingID
			return m, m.reloadRecordingsFor(r.CustomerID)
		}
		return m, nil

	case DaemonEventMsg:
		cmd := m.handleEvent(msg.Event)
		return m, tea.Batch(cmd, readEventCmd(m.evClient))

	case DaemonEventErrorMsg:
		m.connected = false
		m.connError = msg.Err.Error()
		m.statusText = "Disconnected. Reconnecting..."
		m.reconnecting = true
		m.closeClients()
		return m, reconnectCmd(m.reconnectAttempt)

	case ReconnectTickMsg:
		m.reconnectAttempt++
		return m, connectCmd(m.opts.SocketPath)

	case CustomersLoadedMsg:
		if msg.Err != nil {
			return m, m.setError(msg.Err.Error(), true)
		}
		selectedID := m.selectedCustomerID()
		m.customers = msg.Customers
		m.located = msg.Position != nil
		m.selectedCustomer = 0
		for i, c := range m.customers {
			if c.ID == selectedID {
				m.selectedCustomer = i
				break
			}
		}
		return m, m.reloadRecordings()

	case RecordingsLoadedMsg:
		if msg.CustomerID != m.selectedCustomerID() {
			return m, nil
		}
		if msg.Err != nil {
			return m, m.setError(msg.Err.Error(), true)
		}
		m.recordings = msg.Recordings
		m.recordingsFor = msg.CustomerID
		if m.selectedRecording >= len(m.recordings) {
			m.selectedRecording = max(0, len(m.recordings)-1)
		}
		return m, nil

	case ClearTransientErrorMsg:
		if m.errorTransient {
			m.errorMessage = ""
			m.errorTransient = false
		}
		return m, nil
	}

	return m, nil
}

// applyResponse copies the session fields of a daemon response.
func (m *Model) applyResponse(r daemon.Response) {
	if r.State != "" {
		m.state = session.ParseState(r.State)
	}
	m.customerID = r.CustomerID
	m.customerName = r.CustomerName
	if r.DurationMs != nil {
		m.duration = time.Duration(*r.DurationMs) * time.Millisecond
	}
	m.statusText = m.state.String()
}

// handleEvent processes a daemon event and returns any resulting command.
func (m *Model) handleEvent(ev daemon.Event) tea.Cmd {
	switch ev.Event {
	case daemon.EventStatus:
		m.state = session.ParseState(ev.State)
		m.customerID = ev.CustomerID
		m.customerName = ev.CustomerName
		if ev.DurationMs != nil {
			m.duration = time.Duration(*ev.DurationMs) * time.Millisecond
		}
		m.statusText = m.state.String()

	case daemon.EventTick:
		if ev.DurationMs != nil {
			m.duration = time.Duration(*ev.DurationMs) * time.Millisecond
		}

	case daemon.EventSaved:
		m.statusText = "Saved " + ev.RecordingID
		return m.reloadRecordingsFor(ev.CustomerID)

	case daemon.EventError:
		return m.setError(ev.Message, ev.Transient != nil && *ev.Transient)
	}

	return nil
}

func (m *Model) setError(msg string, transient bool) tea.Cmd {
	m.errorMessage = msg
	m.errorTransient = transient
	if transient {
		return clearTransientErrorCmd()
	}
	return nil
}

func (m *Model) closeClients() {
	if m.client != nil {
		m.client.Close()
		m.client = nil
	}
	if m.evClient != nil {
		m.evClient.Close()
		m.evClient = nil
	}
}

func (m Model) selectedCustomerID() string {
	if m.selectedCustomer < len(m.customers) {
		return m.customers[m.selectedCustomer].ID
	}
	return ""
}

func (m *Model) reloadRecordings() tea.Cmd {
	id := m.selectedCustomerID()
	if id != m.recordingsFor {
		m.recordings = nil
		m.selectedRecording = 0
		m.recordingsFor = ""
	}
	return loadRecordingsCmd(m.opts.Recordings, id)
}

// reloadRecordingsFor refreshes the recordings panel when it shows
// customerID. An empty customerID always refreshes.
func (m *Model) reloadRecordingsFor(customerID string) tea.Cmd {
	if customerID != "" && customerID != m.selectedCustomerID() {
		return nil
	}
	return m.reloadRecordings()
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyQuit, KeyQuitUpper, KeyCtrlC:
		m.closeClients()
		return m, tea.Quit

	case KeyRecord:
		return m, m.start()

	case KeySpace:
		if m.state.Active() {
			return m, m.send(daemon.CmdStop)
		}
		return m, m.start()

	case KeyPause:
		switch m.state {
		case session.StateRecording:
			return m, m.send(daemon.CmdPause)
		case session.StatePaused:
			return m, m.send(daemon.CmdResume)
		}
		return m, nil

	case KeyStop:
		if m.state.Active() {
			return m, m.send(daemon.CmdStop)
		}
		return m, nil

	case KeyReload:
		return m, loadCustomersCmd(m.opts)

	case KeyTab:
		if m.focusedPanel == FocusCustomers {
			m.focusedPanel = FocusRecordings
		} else {
			m.focusedPanel = FocusCustomers
		}
		return m, nil

	case KeyJ, KeyDown:
		return m, m.move(1)

	case KeyK, KeyUp:
		return m, m.move(-1)
	}

	return m, nil
}

func (m *Model) start() tea.Cmd {
	if !m.connected || m.state.Active() {
		return nil
	}
	id := m.selectedCustomerID()
	if id == "" {
		return m.setError("select a customer first", true)
	}
	return sessionCmd(m.client, daemon.CmdStart, id)
}

func (m *Model) send(name string) tea.Cmd {
	if !m.connected {
		return nil
	}
	return sessionCmd(m.client, name, "")
}

// move shifts the selection in the focused panel by delta.
func (m *Model) move(delta int) tea.Cmd {
	if m.focusedPanel == FocusRecordings {
		next := m.selectedRecording + delta
		if next >= 0 && next < len(m.recordings) {
			m.selectedRecording = next
		}
		return nil
	}
	next := m.selectedCustomer + delta
	if next < 0 || next >= len(m.customers) {
		return nil
	}
	m.selectedCustomer = next
	return m.reloadRecordings()
}

func (m Model) contentHeight() int {
	if m.height == 0 {
		return 20
	}
	// header + status + 2 dividers + error + footer + padding
	reserved := 8
	return max(5, m.height-reserved)
}

func (m Model) customerPanelWidth() int {
	if m.width == 0 {
		return 36
	}
	return max(24, m.width*40/100)
}

func (m Model) recordingPanelWidth() int {
	if m.width == 0 {
		return 60
	}
	return max(30, m.width-m.customerPanelWidth()-3)
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	sections := []string{
		m.renderHeader(),
		m.renderStatusBar(),
		ui.DividerStyle.Render(strings.Repeat("─", m.width)),
		m.renderMainContent(),
		ui.DividerStyle.Render(strings.Repeat("─", m.width)),
	}
	if m.errorMessage != "" {
		sections = append(sections, m.renderErrorBar())
	}
	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	title := ui.TitleStyle.Render("VOICEAPP")
	if m.statusText != "" {
		title += ui.DimStyle.Render("  " + m.statusText)
	}
	return title
}

func (m Model) renderStatusBar() string {
	var dot string
	switch m.state {
	case session.StateRecording:
		dot = ui.RecordingDotStyle.Render("● REC")
	case session.StatePaused:
		dot = ui.PausedStyle.Render("❚❚ PAUSED")
	default:
		dot = ui.IdleDotStyle.Render("○ IDLE")
	}
	if !m.state.Active() {
		return dot
	}
	return dot + "  " + ui.ClockStyle.Render(output.FormatDuration(m.duration)) + "  " + m.customerName
}

func (m Model) renderMainContent() string {
	leftW := m.customerPanelWidth()
	rightW := m.recordingPanelWidth()
	h := m.contentHeight()

	left := strings.Split(m.renderCustomerPanel(leftW, h), "\n")
	right := strings.Split(m.renderRecordingPanel(rightW, h), "\n")
	divider := ui.DividerStyle.Render("│")

	rows := make([]string, 0, h)
	for i := 0; i < h; i++ {
		l := strings.Repeat(" ", leftW)
		if i < len(left) {
			l = left[i]
		}
		r := ""
		if i < len(right) {
			r = right[i]
		}
		rows = append(rows, l+divider+r)
	}
	return strings.Join(rows, "\n")
}

func panelTitle(title string, active bool) string {
	if active {
		return ui.PanelTitleActiveStyle.Render(title)
	}
	return ui.PanelTitleStyle.Render(title)
}

func (m Model) renderCustomerPanel(width, height int) string {
	title := fmt.Sprintf("CUSTOMERS (%d)", len(m.customers))
	if m.located {
		title = fmt.Sprintf("NEARBY (%d)", len(m.customers))
	}
	lines := []string{padRight(panelTitle(title, m.focusedPanel == FocusCustomers), width)}

	if len(m.customers) == 0 {
		lines = append(lines, ui.DimStyle.Render("  No customers yet..."))
		lines = append(lines, ui.DimStyle.Render("  Add one with: voiceapp customer add"))
	}
	for i, c := range m.customers {
		var dist string
		if c.Distance != nil {
			dist = " " + ui.DistanceStyle.Render(output.FormatDistance(*c.Distance))
		}
		recMark := "  "
		if m.state.Active() && c.ID == m.customerID {
			recMark = ui.RecordingDotStyle.Render("● ")
		}
		var line string
		if i == m.selectedCustomer && m.focusedPanel == FocusCustomers {
			line = ui.SelectedStyle.Render("> ") + recMark + ui.SelectedStyle.Render(c.Name) + dist
		} else if i == m.selectedCustomer {
			line = "> " + recMark + c.Name + dist
		} else {
			line = "  " + recMark + c.Name + dist
		}
		lines = append(lines, truncateToWidth(line, width))
	}

	lines = scrollWindow(lines, m.selectedCustomer+1, height)
	for i, l := range lines {
		lines[i] = padRight(l, width)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderRecordingPanel(width, height int) string {
	title := "RECORDINGS"
	if id := m.selectedCustomerID(); id != "" {
		title = fmt.Sprintf("RECORDINGS (%d) %s", len(m.recordings), m.customers[m.selectedCustomer].Name)
	}
	lines := []string{panelTitle(truncateToWidth(title, width), m.focusedPanel == FocusRecordings)}

	switch {
	case !m.connected && m.reconnecting:
		lines = append(lines, "", ui.ErrorTextStyle.Render("  Daemon disconnected. Reconnecting..."))
		lines = append(lines, ui.DimStyle.Render("  Start with: voiceapp daemon"))
	case !m.connected && m.connError == "":
		lines = append(lines, ui.DimStyle.Render("  Connecting to voiceapp daemon..."))
	}

	if len(m.recordings) == 0 {
		lines = append(lines, "", ui.DimStyle.Render("  Press r to record for this customer"))
	}
	for i, r := range m.recordings {
		ts := ui.TimestampStyle.Render(r.CreatedAt.Local().Format("2006-01-02 15:04"))
		line := ts + "  " + output.FormatDuration(r.Length())
		if r.ClinicName != "" {
			line += "  " + r.ClinicName
		}
		if i == m.selectedRecording && m.focusedPanel == FocusRecordings {
			line = ui.SelectedStyle.Render("> ") + line
		} else {
			line = "  " + line
		}
		lines = append(lines, truncateToWidth(line, width))
		if i == m.selectedRecording && m.focusedPanel == FocusRecordings && r.Transcription != "" {
			for _, wl := range wrapText(r.Transcription, max(10, width-6)) {
				lines = append(lines, ui.DimStyle.Render("    "+wl))
			}
		}
	}

	return strings.Join(scrollWindow(lines, m.selectedRecording+1, height), "\n")
}

func (m Model) renderErrorBar() string {
	return ui.ErrorStyle.Render("Error: ") + ui.ErrorTextStyle.Render(m.errorMessage)
}

func (m Model) renderFooter() string {
	key := func(k, desc string) string {
		return ui.FooterKeyStyle.Render(k) + ui.FooterDescStyle.Render(" "+desc)
	}

	var parts []string
	if m.connected {
		switch m.state {
		case session.StateRecording:
			parts = append(parts, key("p", "Pause"), key("s", "Stop"))
		case session.StatePaused:
			parts = append(parts, key("p", "Resume"), key("s", "Stop"))
		default:
			parts = append(parts, key("r", "Record"))
		}
	}
	parts = append(parts, key("Tab", "Focus"), key("j/k", "Nav"), key("u", "Reload"), key("q", "Quit"))

	return strings.Join(parts, "  ")
}

// Helpers

// scrollWindow keeps the header line and shows height-1 body lines so that
// line index focus stays visible.
func scrollWindow(lines []string, focus, height int) []string {
	if len(lines) <= height {
		for len(lines) < height {
			lines = append(lines, "")
		}
		return lines
	}
	start := 1
	if focus >= height {
		start = focus - height + 2
	}
	end := min(len(lines), start+height-1)
	return append([]string{lines[0]}, lines[start:end]...)
}

func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

func truncateToWidth(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible <= width {
		return s
	}
	runes := []rune(s)
	if len(runes) > width-1 {
		return string(runes[:width-1]) + "…"
	}
	return s
}

func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		var current string
		for _, word := range strings.Fields(paragraph) {
			if current == "" {
				current = word
			} else if len(current)+1+len(word) <= width {
				current += " " + word
			} else {
				lines = append(lines, current)
				current = word
			}
		}
		lines = append(lines, current)
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}
