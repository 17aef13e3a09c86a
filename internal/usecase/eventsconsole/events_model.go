package eventsconsole

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"prmirror/internal/bootstrap/logging"
	"prmirror/internal/domain/webhook"
	"prmirror/internal/errs"
	"prmirror/internal/ports"
)

const maxAuditLines = 8
const maxPayloadPreview = 600

// EventsService is the slice of the ingestion service the console drives.
type EventsService interface {
	ListEvents(ctx context.Context, filter ports.EventFilter) ([]ports.EventRecord, error)
	GetEvent(ctx context.Context, eventID uint64) (ports.EventRecord, error)
	Stats(ctx context.Context) (ports.EventStats, error)
	Replay(ctx context.Context, eventID uint64) (webhook.EventStatus, error)
}

type Options struct {
	StatusFilter    string
	Kind            string
	Limit           int
	RefreshInterval time.Duration
}

type eventsModel struct {
	ctx             context.Context
	service         EventsService
	statusFilter    webhook.EventStatus
	kind            string
	limit           int
	refreshInterval time.Duration

	events        []ports.EventRecord
	stats         ports.EventStats
	selectedIndex int
	detail        ports.EventRecord
	hasDetail     bool
	status        string
	auditLogs     []string
}

type eventsLoadedMsg struct {
	items []ports.EventRecord
	stats ports.EventStats
	err   error
}

type eventDetailLoadedMsg struct {
	eventID uint64
	detail  ports.EventRecord
	err     error
}

type tickMsg struct{}

type replayDoneMsg struct {
	eventID    uint64
	deliveryID string
	result     webhook.EventStatus
	err        error
}

func NewEventsModel(ctx context.Context, service EventsService, options Options) tea.Model {
	interval := options.RefreshInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	limit := options.Limit
	if limit <= 0 {
		limit = 20
	}
	filter, ok := webhook.ParseEventStatus(options.StatusFilter)
	if !ok {
		filter = ""
	}

	return &eventsModel{
		ctx:             ctx,
		service:         service,
		statusFilter:    filter,
		kind:            strings.TrimSpace(options.Kind),
		limit:           limit,
		refreshInterval: interval,
		status:          "loading",
	}
}

func (m *eventsModel) Init() tea.Cmd {
	return tea.Batch(m.loadEventsCmd(), m.tickCmd())
}

func (m *eventsModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := message.(type) {
	case tickMsg:
		return m, tea.Batch(m.loadEventsCmd(), m.tickCmd())
	case eventsLoadedMsg:
		if msg.err != nil {
			m.status = "refresh failed: " + errs.Message(msg.err)
			return m, nil
		}
		m.events = msg.items
		m.stats = msg.stats
		if len(m.events) == 0 {
			m.selectedIndex = 0
			m.hasDetail = false
			m.status = "no events"
			return m, nil
		}
		if m.selectedIndex < 0 {
			m.selectedIndex = 0
		}
		if m.selectedIndex >= len(m.events) {
			m.selectedIndex = len(m.events) - 1
		}
		m.status = fmt.Sprintf("refreshed, %d events", len(m.events))
		return m, m.loadSelectedDetailCmd()
	case eventDetailLoadedMsg:
		if !m.isCurrentSelected(msg.eventID) {
			return m, nil
		}
		if msg.err != nil {
			m.hasDetail = false
			m.status = "detail failed: " + errs.Message(msg.err)
			return m, nil
		}
		m.detail = msg.detail
		m.hasDetail = true
		return m, nil
	case replayDoneMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("replay #%d failed: %s", msg.eventID, errs.Message(msg.err))
		} else {
			m.status = fmt.Sprintf("replay #%d done: %s", msg.eventID, msg.result)
		}
		m.appendAuditLog(msg)
		return m, m.loadEventsCmd()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "g":
			m.status = "refreshing"
			return m, m.loadEventsCmd()
		case "f":
			m.statusFilter = nextStatusFilter(m.statusFilter)
			m.selectedIndex = 0
			m.hasDetail = false
			m.status = "filter " + filterLabel(m.statusFilter)
			return m, m.loadEventsCmd()
		case "up", "k":
			if m.selectedIndex > 0 {
				m.selectedIndex--
				return m, m.loadSelectedDetailCmd()
			}
			return m, nil
		case "down", "j":
			if m.selectedIndex < len(m.events)-1 {
				m.selectedIndex++
				return m, m.loadSelectedDetailCmd()
			}
			return m, nil
		case "r":
			return m, m.replayCmd()
		}
	}
	return m, nil
}

func (m *eventsModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true)
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("62"))
	failedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("203"))

	var builder strings.Builder
	builder.WriteString(titleStyle.Render("prmirror events"))
	builder.WriteString("\n")
	builder.WriteString(dimStyle.Render(fmt.Sprintf(
		"status=%s kind=%s limit=%d refresh=%s",
		filterLabel(m.statusFilter),
		firstNonEmpty(m.kind, "all"),
		m.limit,
		m.refreshInterval,
	)))
	builder.WriteString("\n")
	builder.WriteString(dimStyle.Render(statsLine(m.stats)))
	builder.WriteString("\n\n")

	builder.WriteString(sectionStyle.Render("Ledger"))
	builder.WriteString("\n")
	if len(m.events) == 0 {
		builder.WriteString(dimStyle.Render("- no events"))
		builder.WriteString("\n\n")
	} else {
		for index, event := range m.events {
			line := fmt.Sprintf(
				"#%d [%s] %s/%s retries=%d delivery=%s",
				event.ID,
				event.Status,
				event.GitHubEvent,
				firstNonEmpty(event.ActionOrEmpty(), "-"),
				event.RetryCount,
				event.DeliveryID,
			)
			switch {
			case index == m.selectedIndex:
				builder.WriteString(selectedStyle.Render("> " + line))
			case event.Status == webhook.StatusFailed:
				builder.WriteString(failedStyle.Render("  " + line))
			default:
				builder.WriteString("  " + line)
			}
			builder.WriteString("\n")
		}
		builder.WriteString("\n")
	}

	builder.WriteString(sectionStyle.Render("Detail"))
	builder.WriteString("\n")
	if !m.hasDetail {
		builder.WriteString(dimStyle.Render("- no detail"))
		builder.WriteString("\n\n")
	} else {
		builder.WriteString(detailView(m.detail))
		builder.WriteString("\n")
	}

	builder.WriteString(sectionStyle.Render("Status"))
	builder.WriteString("\n")
	builder.WriteString("- " + firstNonEmpty(m.status, "ready"))
	builder.WriteString("\n\n")

	builder.WriteString(sectionStyle.Render("Audit Log"))
	builder.WriteString("\n")
	if len(m.auditLogs) == 0 {
		builder.WriteString(dimStyle.Render("- no actions"))
		builder.WriteString("\n\n")
	} else {
		for _, line := range m.auditLogs {
			builder.WriteString("- " + line)
			builder.WriteString("\n")
		}
		builder.WriteString("\n")
	}

	builder.WriteString(dimStyle.Render("Keys: up/k down/j move  g refresh  f filter  r replay  q quit"))
	return builder.String()
}

func (m *eventsModel) tickCmd() tea.Cmd {
	return tea.Tick(m.refreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m *eventsModel) loadEventsCmd() tea.Cmd {
	filter := ports.EventFilter{Status: m.statusFilter, Kind: m.kind, Limit: m.limit}
	return func() tea.Msg {
		items, err := m.service.ListEvents(m.ctx, filter)
		if err != nil {
			return eventsLoadedMsg{err: err}
		}
		stats, err := m.service.Stats(m.ctx)
		if err != nil {
			return eventsLoadedMsg{err: err}
		}
		return eventsLoadedMsg{items: items, stats: stats}
	}
}

func (m *eventsModel) loadSelectedDetailCmd() tea.Cmd {
	selected, ok := m.selectedEvent()
	if !ok {
		return nil
	}
	return func() tea.Msg {
		detail, err := m.service.GetEvent(m.ctx, selected.ID)
		return eventDetailLoadedMsg{eventID: selected.ID, detail: detail, err: err}
	}
}

func (m *eventsModel) replayCmd() tea.Cmd {
	selected, ok := m.selectedEvent()
	if !ok {
		m.status = "no event selected"
		return nil
	}
	m.status = fmt.Sprintf("replaying #%d", selected.ID)
	return func() tea.Msg {
		result, err := m.service.Replay(m.ctx, selected.ID)
		return replayDoneMsg{eventID: selected.ID, deliveryID: selected.DeliveryID, result: result, err: err}
	}
}

func (m *eventsModel) selectedEvent() (ports.EventRecord, bool) {
	if m.selectedIndex < 0 || m.selectedIndex >= len(m.events) {
		return ports.EventRecord{}, false
	}
	return m.events[m.selectedIndex], true
}

func (m *eventsModel) isCurrentSelected(eventID uint64) bool {
	selected, ok := m.selectedEvent()
	return ok && selected.ID == eventID
}

func (m *eventsModel) appendAuditLog(msg replayDoneMsg) {
	outcome := string(msg.result)
	if msg.err != nil {
		outcome = "error: " + errs.Message(msg.err)
	}

	timestamp := time.Now().UTC().Format(time.RFC3339)
	line := fmt.Sprintf("%s action=replay event=%d delivery=%s result=%s", timestamp, msg.eventID, msg.deliveryID, outcome)
	m.auditLogs = append([]string{line}, m.auditLogs...)
	if len(m.auditLogs) > maxAuditLines {
		m.auditLogs = m.auditLogs[:maxAuditLines]
	}

	logging.Info(m.ctx, "events console action",
		slog.String("action", "replay"),
		slog.Uint64("event_id", msg.eventID),
		slog.String("delivery_id", msg.deliveryID),
		slog.String("result", outcome),
	)
}

// nextStatusFilter cycles all -> pending -> processed -> failed -> ignored -> all.
func nextStatusFilter(current webhook.EventStatus) webhook.EventStatus {
	statuses := webhook.EventStatuses()
	if current == "" {
		return statuses[0]
	}
	for index, status := range statuses {
		if status == current && index+1 < len(statuses) {
			return statuses[index+1]
		}
	}
	return ""
}

func filterLabel(status webhook.EventStatus) string {
	if status == "" {
		return "all"
	}
	return string(status)
}

func statsLine(stats ports.EventStats) string {
	parts := make([]string, 0, len(webhook.EventStatuses())+2)
	parts = append(parts, fmt.Sprintf("total=%d", stats.Total))
	for _, status := range webhook.EventStatuses() {
		parts = append(parts, fmt.Sprintf("%s=%d", status, stats.Counts[status]))
	}
	if stats.LastProcessedAt != nil {
		parts = append(parts, "last_processed="+stats.LastProcessedAt.UTC().Format(time.RFC3339))
	}
	return strings.Join(parts, " ")
}

func detailView(event ports.EventRecord) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("ID: %d\n", event.ID))
	builder.WriteString(fmt.Sprintf("Delivery: %s\n", event.DeliveryID))
	builder.WriteString(fmt.Sprintf("Event: %s/%s\n", event.GitHubEvent, firstNonEmpty(event.ActionOrEmpty(), "-")))
	builder.WriteString(fmt.Sprintf("Status: %s retries=%d\n", event.Status, event.RetryCount))
	builder.WriteString(fmt.Sprintf("Repository: %s PullRequest: %s\n", int64Label(event.RepositoryGitHubID), int64Label(event.PullRequestGitHubID)))
	if event.ErrorMessage != nil {
		builder.WriteString(fmt.Sprintf("Error: %s\n", *event.ErrorMessage))
	}
	if event.ProcessedAt != nil {
		builder.WriteString(fmt.Sprintf("Processed: %s\n", event.ProcessedAt.UTC().Format(time.RFC3339)))
	}
	builder.WriteString(fmt.Sprintf("Received: %s\n", event.CreatedAt.UTC().Format(time.RFC3339)))
	builder.WriteString("Payload: " + truncate(string(event.Payload), maxPayloadPreview) + "\n")
	return builder.String()
}

func int64Label(value *int64) string {
	if value == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *value)
}

func truncate(value string, limit int) string {
	runes := []rune(strings.TrimSpace(value))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit]) + "..."
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		normalized := strings.TrimSpace(value)
		if normalized != "" {
			return normalized
		}
	}
	return ""
}
