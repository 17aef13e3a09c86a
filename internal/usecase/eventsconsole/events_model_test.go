package eventsconsole

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"prmirror/internal/domain/webhook"
	"prmirror/internal/ports"
)

type stubService struct {
	events    []ports.EventRecord
	filters   []ports.EventFilter
	replayed  []uint64
	replay    webhook.EventStatus
	replayErr error
}

func (s *stubService) ListEvents(_ context.Context, filter ports.EventFilter) ([]ports.EventRecord, error) {
	s.filters = append(s.filters, filter)
	out := make([]ports.EventRecord, 0, len(s.events))
	for _, event := range s.events {
		if filter.Status != "" && event.Status != filter.Status {
			continue
		}
		out = append(out, event)
	}
	return out, nil
}

func (s *stubService) GetEvent(_ context.Context, eventID uint64) (ports.EventRecord, error) {
	for _, event := range s.events {
		if event.ID == eventID {
			return event, nil
		}
	}
	return ports.EventRecord{}, ports.ErrEventNotFound
}

func (s *stubService) Stats(context.Context) (ports.EventStats, error) {
	stats := ports.EventStats{Counts: map[webhook.EventStatus]int64{}}
	for _, event := range s.events {
		stats.Counts[event.Status]++
		stats.Total++
	}
	return stats, nil
}

func (s *stubService) Replay(_ context.Context, eventID uint64) (webhook.EventStatus, error) {
	s.replayed = append(s.replayed, eventID)
	return s.replay, s.replayErr
}

func newTestModel(service *stubService) *eventsModel {
	return NewEventsModel(context.Background(), service, Options{RefreshInterval: time.Minute}).(*eventsModel)
}

// run executes cmd and feeds its message back into the model.
func run(t *testing.T, m *eventsModel, cmd tea.Cmd) tea.Cmd {
	t.Helper()
	if cmd == nil {
		t.Fatalf("cmd = nil, want a command")
	}
	_, next := m.Update(cmd())
	return next
}

func sampleEvents() []ports.EventRecord {
	failure := "Repository 100 not synced locally"
	return []ports.EventRecord{
		{ID: 3, DeliveryID: "d-3", GitHubEvent: "pull_request", Status: webhook.StatusFailed, RetryCount: 1, ErrorMessage: &failure, Payload: []byte(`{"action":"opened"}`)},
		{ID: 2, DeliveryID: "d-2", GitHubEvent: "issue_comment", Status: webhook.StatusIgnored, Payload: []byte(`{}`)},
		{ID: 1, DeliveryID: "d-1", GitHubEvent: "pull_request_review", Status: webhook.StatusProcessed, Payload: []byte(`{}`)},
	}
}

func TestLoadSelectsFirstEventAndDetail(t *testing.T) {
	service := &stubService{events: sampleEvents()}
	m := newTestModel(service)

	next := run(t, m, m.loadEventsCmd())
	if len(m.events) != 3 {
		t.Fatalf("len(events) = %d, want 3", len(m.events))
	}
	run(t, m, next)
	if !m.hasDetail || m.detail.ID != 3 {
		t.Fatalf("detail = %+v (has=%v), want event 3", m.detail, m.hasDetail)
	}

	view := m.View()
	for _, want := range []string{"#3 [failed] pull_request/-", "Error: Repository 100 not synced locally", "failed=1", "total=3"} {
		if !strings.Contains(view, want) {
			t.Fatalf("View() missing %q:\n%s", want, view)
		}
	}
}

func TestMoveSelectionIgnoresStaleDetail(t *testing.T) {
	service := &stubService{events: sampleEvents()}
	m := newTestModel(service)
	run(t, m, m.loadEventsCmd())

	stale := m.loadSelectedDetailCmd()
	_, detailCmd := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if m.selectedIndex != 1 {
		t.Fatalf("selectedIndex = %d, want 1", m.selectedIndex)
	}
	run(t, m, detailCmd)
	m.Update(stale())
	if m.detail.ID != 2 {
		t.Fatalf("detail.ID = %d, want 2", m.detail.ID)
	}
}

func TestFilterKeyCyclesStatuses(t *testing.T) {
	service := &stubService{events: sampleEvents()}
	m := newTestModel(service)

	want := []webhook.EventStatus{
		webhook.StatusPending,
		webhook.StatusProcessed,
		webhook.StatusFailed,
		webhook.StatusIgnored,
		"",
	}
	for _, status := range want {
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("f")})
		if m.statusFilter != status {
			t.Fatalf("statusFilter = %q, want %q", m.statusFilter, status)
		}
		run(t, m, cmd)
		last := service.filters[len(service.filters)-1]
		if last.Status != status || last.Limit != 20 {
			t.Fatalf("ListEvents filter = %+v, want status %q limit 20", last, status)
		}
	}
}

func TestReplayKeyReplaysSelectedAndAudits(t *testing.T) {
	service := &stubService{events: sampleEvents(), replay: webhook.StatusProcessed}
	m := newTestModel(service)
	run(t, m, m.loadEventsCmd())

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	run(t, m, cmd)
	if len(service.replayed) != 1 || service.replayed[0] != 3 {
		t.Fatalf("replayed = %v, want [3]", service.replayed)
	}
	if m.status != "replay #3 done: processed" {
		t.Fatalf("status = %q, want replay #3 done: processed", m.status)
	}
	if len(m.auditLogs) != 1 || !strings.Contains(m.auditLogs[0], "event=3 delivery=d-3 result=processed") {
		t.Fatalf("auditLogs = %v", m.auditLogs)
	}

	service.replayErr = errors.New("database is locked")
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	run(t, m, cmd)
	if !strings.Contains(m.status, "failed: database is locked") {
		t.Fatalf("status = %q, want failure", m.status)
	}
	if len(m.auditLogs) != 2 || !strings.Contains(m.auditLogs[0], "result=error: database is locked") {
		t.Fatalf("auditLogs = %v", m.auditLogs)
	}
}

func TestReplayWithoutSelection(t *testing.T) {
	m := newTestModel(&stubService{})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if cmd != nil {
		t.Fatalf("Update(r) cmd != nil with empty ledger")
	}
	if m.status != "no event selected" {
		t.Fatalf("status = %q, want no event selected", m.status)
	}
}

func TestNewEventsModelDefaults(t *testing.T) {
	m := NewEventsModel(context.Background(), &stubService{}, Options{StatusFilter: "FAILED", Limit: -1}).(*eventsModel)
	if m.statusFilter != webhook.StatusFailed {
		t.Fatalf("statusFilter = %q, want failed", m.statusFilter)
	}
	if m.limit != 20 || m.refreshInterval != 5*time.Second {
		t.Fatalf("limit/refresh = %d/%s, want 20/5s", m.limit, m.refreshInterval)
	}

	m = NewEventsModel(context.Background(), &stubService{}, Options{StatusFilter: "bogus"}).(*eventsModel)
	if m.statusFilter != "" {
		t.Fatalf("statusFilter = %q, want empty", m.statusFilter)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("  short  ", 10); got != "short" {
		t.Fatalf("truncate(short) = %q, want short", got)
	}
	if got := truncate("abcdef", 3); got != "abc..." {
		t.Fatalf("truncate(abcdef, 3) = %q, want abc...", got)
	}
}
