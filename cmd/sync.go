package cmd

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"prmirror/internal/bootstrap"
	"prmirror/internal/bootstrap/logging"
	"prmirror/internal/errs"
	"prmirror/internal/usecase/mirrorsync"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Seed the local mirror from the GitHub REST API",
}

var syncReposCmd = &cobra.Command{
	Use:   "repos",
	Short: "Mirror every repository visible to the configured token",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svc *mirrorsync.Service) error {
		ctx := cmd.Context()

		userID, _ := cmd.Flags().GetInt64("user-id")
		if !cmd.Flags().Changed("user-id") {
			userID = app.Config.Sync.UserID
		}

		result, err := svc.SyncRepositories(ctx, userID)
		if err != nil {
			logging.Error(ctx, "sync repositories failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "sync repositories")
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "synced repositories: %d\n", result.Synced); err != nil {
			return errs.Wrap(err, "write sync output")
		}
		return nil
	}),
}

var syncPRsCmd = &cobra.Command{
	Use:   "prs",
	Short: "Mirror pull requests, reviews and review comments of one repository",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *mirrorsync.Service) error {
		ctx := cmd.Context()

		repoID, _ := cmd.Flags().GetInt64("repo-id")
		state, _ := cmd.Flags().GetString("state")

		result, err := svc.SyncPullRequests(ctx, repoID, strings.TrimSpace(state))
		if err != nil {
			logging.Error(ctx, "sync pull requests failed", slog.Int64("repository_github_id", repoID), slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "sync pull requests")
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "synced %s: pull_requests=%d reviews=%d comments=%d\n",
			result.Repository, result.PullRequests, result.Reviews, result.Comments); err != nil {
			return errs.Wrap(err, "write sync output")
		}
		return nil
	}),
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show mirror row counts and last sync times",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *mirrorsync.Service) error {
		status, err := svc.Status(cmd.Context())
		if err != nil {
			return errs.Wrap(err, "sync status")
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		if _, err := fmt.Fprintf(w, "metric\tvalue\nrepositories\t%d\npull_requests\t%d\nreviews\t%d\ncomments\t%d\nrepositories_synced_at\t%s\n",
			status.Counts.Repositories,
			status.Counts.PullRequests,
			status.Counts.Reviews,
			status.Counts.Comments,
			timeOr(status.RepositoriesAt),
		); err != nil {
			return errs.Wrap(err, "write sync status")
		}

		names := make([]string, 0, len(status.PullRequestsSync))
		for name := range status.PullRequestsSync {
			names = append(names, name)
		}
		sort.Strings(names)
		if len(names) > 0 {
			if _, err := fmt.Fprintln(w, "\nrepository\tpull_requests_synced_at"); err != nil {
				return errs.Wrap(err, "write sync status header")
			}
		}
		for _, name := range names {
			if _, err := fmt.Fprintf(w, "%s\t%s\n", name, timeOr(status.PullRequestsSync[name])); err != nil {
				return errs.Wrap(err, "write sync status row")
			}
		}
		if err := w.Flush(); err != nil {
			return errs.Wrap(err, "flush sync status")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.AddCommand(syncReposCmd, syncPRsCmd, syncStatusCmd)

	syncReposCmd.Flags().Int64("user-id", 0, "Local owner user id (defaults to sync.user_id)")
	syncPRsCmd.Flags().Int64("repo-id", 0, "GitHub id of an already mirrored repository")
	syncPRsCmd.Flags().String("state", "open", "Pull request state (open|closed|all)")
	_ = syncPRsCmd.MarkFlagRequired("repo-id")
}
