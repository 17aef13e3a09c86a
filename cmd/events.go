package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"prmirror/internal/bootstrap"
	"prmirror/internal/bootstrap/logging"
	"prmirror/internal/domain/webhook"
	"prmirror/internal/errs"
	"prmirror/internal/ports"
	"prmirror/internal/usecase/ingest"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect and replay recorded webhook deliveries",
}

var eventsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded deliveries, newest first",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *ingest.Service) error {
		ctx := cmd.Context()

		filter, err := eventFilterFromFlags(cmd)
		if err != nil {
			return err
		}
		items, err := svc.ListEvents(ctx, filter)
		if err != nil {
			logging.Error(ctx, "list events failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "list events")
		}
		return writeEventTable(cmd.OutOrStdout(), items)
	}),
}

var eventsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one recorded delivery with its payload",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *ingest.Service) error {
		eventID, err := parseEventID(cmd.Flags().Arg(0))
		if err != nil {
			return err
		}
		event, err := svc.GetEvent(cmd.Context(), eventID)
		if err != nil {
			return errs.Wrapf(err, "get event %d", eventID)
		}

		output, _ := cmd.Flags().GetString("output")
		switch strings.ToLower(strings.TrimSpace(output)) {
		case "", "text":
			return writeEventDetail(cmd.OutOrStdout(), event)
		case "json":
			return writeEventDocument(cmd.OutOrStdout(), event, false)
		case "yaml":
			return writeEventDocument(cmd.OutOrStdout(), event, true)
		default:
			return fmt.Errorf("unknown output format %q", output)
		}
	}),
}

var eventsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show delivery counts per status and the latest failure",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *ingest.Service) error {
		stats, err := svc.Stats(cmd.Context())
		if err != nil {
			return errs.Wrap(err, "event stats")
		}
		return writeEventStats(cmd.OutOrStdout(), stats)
	}),
}

var eventsReplayCmd = &cobra.Command{
	Use:   "replay <id>",
	Short: "Reprocess a recorded delivery",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *ingest.Service) error {
		ctx := cmd.Context()

		eventID, err := parseEventID(cmd.Flags().Arg(0))
		if err != nil {
			return err
		}
		status, err := svc.Replay(ctx, eventID)
		if err != nil {
			logging.Error(ctx, "replay event failed", slog.Uint64("event_id", eventID), slog.Any("err", errs.Loggable(err)))
			return errs.Wrapf(err, "replay event %d", eventID)
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "replayed event %d: %s\n", eventID, status); err != nil {
			return errs.Wrap(err, "write replay output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsListCmd, eventsShowCmd, eventsStatsCmd, eventsReplayCmd)

	eventsListCmd.Flags().String("status", "", "Filter by status (pending|processed|failed|ignored)")
	eventsListCmd.Flags().String("event", "", "Filter by GitHub event name")
	eventsListCmd.Flags().Int("limit", 50, "Max rows to show")
	eventsShowCmd.Flags().StringP("output", "o", "text", "Output format (text|json|yaml)")
}

func eventFilterFromFlags(cmd *cobra.Command) (ports.EventFilter, error) {
	rawStatus, _ := cmd.Flags().GetString("status")
	kind, _ := cmd.Flags().GetString("event")
	limit, _ := cmd.Flags().GetInt("limit")

	filter := ports.EventFilter{Kind: strings.TrimSpace(kind), Limit: limit}
	if strings.TrimSpace(rawStatus) != "" {
		status, ok := webhook.ParseEventStatus(rawStatus)
		if !ok {
			return ports.EventFilter{}, fmt.Errorf("unknown status %q", rawStatus)
		}
		filter.Status = status
	}
	return filter, nil
}

func parseEventID(raw string) (uint64, error) {
	eventID, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || eventID == 0 {
		return 0, fmt.Errorf("invalid event id %q", raw)
	}
	return eventID, nil
}

func writeEventTable(out io.Writer, items []ports.EventRecord) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "id\tstatus\tevent\taction\tretries\tdelivery\treceived\terror"); err != nil {
		return errs.Wrap(err, "write events header")
	}
	for _, item := range items {
		if _, err := fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			item.ID,
			item.Status,
			item.GitHubEvent,
			dashIfEmpty(item.ActionOrEmpty()),
			item.RetryCount,
			item.DeliveryID,
			item.CreatedAt.UTC().Format(time.RFC3339),
			dashIfEmpty(derefString(item.ErrorMessage)),
		); err != nil {
			return errs.Wrap(err, "write events row")
		}
	}
	if err := w.Flush(); err != nil {
		return errs.Wrap(err, "flush events output")
	}
	return nil
}

func writeEventDetail(out io.Writer, event ports.EventRecord) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"id", strconv.FormatUint(event.ID, 10)},
		{"delivery_id", event.DeliveryID},
		{"event", event.GitHubEvent},
		{"action", dashIfEmpty(event.ActionOrEmpty())},
		{"status", string(event.Status)},
		{"retry_count", strconv.Itoa(event.RetryCount)},
		{"repository_github_id", int64Or(event.RepositoryGitHubID)},
		{"pull_request_github_id", int64Or(event.PullRequestGitHubID)},
		{"error_message", dashIfEmpty(derefString(event.ErrorMessage))},
		{"processed_at", timeOr(event.ProcessedAt)},
		{"created_at", event.CreatedAt.UTC().Format(time.RFC3339)},
		{"updated_at", event.UpdatedAt.UTC().Format(time.RFC3339)},
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", row[0], row[1]); err != nil {
			return errs.Wrap(err, "write event detail")
		}
	}
	if err := w.Flush(); err != nil {
		return errs.Wrap(err, "flush event detail")
	}

	var pretty strings.Builder
	payload := string(event.Payload)
	if raw := json.RawMessage(event.Payload); json.Valid(raw) {
		var buf strings.Builder
		encoder := json.NewEncoder(&buf)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(raw); err == nil {
			payload = buf.String()
		}
	}
	pretty.WriteString("\npayload:\n")
	pretty.WriteString(strings.TrimRight(payload, "\n"))
	pretty.WriteString("\n")
	if _, err := io.WriteString(out, pretty.String()); err != nil {
		return errs.Wrap(err, "write event payload")
	}
	return nil
}

type eventDocument struct {
	ID                  uint64     `json:"id" yaml:"id"`
	DeliveryID          string     `json:"delivery_id" yaml:"delivery_id"`
	Event               string     `json:"event" yaml:"event"`
	Action              *string    `json:"action" yaml:"action"`
	Status              string     `json:"status" yaml:"status"`
	RetryCount          int        `json:"retry_count" yaml:"retry_count"`
	RepositoryGitHubID  *int64     `json:"repository_github_id" yaml:"repository_github_id"`
	PullRequestGitHubID *int64     `json:"pull_request_github_id" yaml:"pull_request_github_id"`
	ErrorMessage        *string    `json:"error_message" yaml:"error_message"`
	ProcessedAt         *time.Time `json:"processed_at" yaml:"processed_at"`
	CreatedAt           time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at" yaml:"updated_at"`
	Payload             any        `json:"payload" yaml:"payload"`
}

func writeEventDocument(out io.Writer, event ports.EventRecord, asYAML bool) error {
	doc := eventDocument{
		ID:                  event.ID,
		DeliveryID:          event.DeliveryID,
		Event:               event.GitHubEvent,
		Action:              event.Action,
		Status:              string(event.Status),
		RetryCount:          event.RetryCount,
		RepositoryGitHubID:  event.RepositoryGitHubID,
		PullRequestGitHubID: event.PullRequestGitHubID,
		ErrorMessage:        event.ErrorMessage,
		ProcessedAt:         event.ProcessedAt,
		CreatedAt:           event.CreatedAt.UTC(),
		UpdatedAt:           event.UpdatedAt.UTC(),
	}
	var payload any
	if err := json.Unmarshal(event.Payload, &payload); err == nil {
		doc.Payload = payload
	} else {
		doc.Payload = string(event.Payload)
	}

	if asYAML {
		encoder := yaml.NewEncoder(out)
		encoder.SetIndent(2)
		if err := encoder.Encode(doc); err != nil {
			return errs.Wrap(err, "encode event yaml")
		}
		return errs.Wrap(encoder.Close(), "flush event yaml")
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return errs.Wrap(err, "encode event json")
	}
	return nil
}

func writeEventStats(out io.Writer, stats ports.EventStats) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "metric\tvalue"); err != nil {
		return errs.Wrap(err, "write stats header")
	}
	if _, err := fmt.Fprintf(w, "total\t%d\n", stats.Total); err != nil {
		return errs.Wrap(err, "write stats total")
	}
	for _, status := range webhook.EventStatuses() {
		if _, err := fmt.Fprintf(w, "%s\t%d\n", status, stats.Counts[status]); err != nil {
			return errs.Wrap(err, "write stats status")
		}
	}
	if _, err := fmt.Fprintf(w, "last_processed_at\t%s\n", timeOr(stats.LastProcessedAt)); err != nil {
		return errs.Wrap(err, "write stats last processed")
	}

	if failure := stats.LastFailure; failure != nil {
		if _, err := fmt.Fprintln(w, ""); err != nil {
			return errs.Wrap(err, "write stats separator")
		}
		if _, err := fmt.Fprintln(w, "last_failure\t"); err != nil {
			return errs.Wrap(err, "write stats failure header")
		}
		if _, err := fmt.Fprintf(w, "event_id\t%d\ndelivery_id\t%s\nevent\t%s\nretry_count\t%d\nupdated_at\t%s\nerror_message\t%s\n",
			failure.EventID,
			failure.DeliveryID,
			failure.GitHubEvent,
			failure.RetryCount,
			failure.UpdatedAt.UTC().Format(time.RFC3339),
			dashIfEmpty(failure.ErrorMessage),
		); err != nil {
			return errs.Wrap(err, "write stats failure")
		}
	}

	if err := w.Flush(); err != nil {
		return errs.Wrap(err, "flush stats output")
	}
	return nil
}

func dashIfEmpty(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func int64Or(value *int64) string {
	if value == nil {
		return "-"
	}
	return strconv.FormatInt(*value, 10)
}

func timeOr(value *time.Time) string {
	if value == nil {
		return "-"
	}
	return value.UTC().Format(time.RFC3339)
}
