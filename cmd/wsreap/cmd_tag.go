package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

var (
	tagBackfill bool
	tagSince    time.Duration
)

var tagCmd = &cobra.Command{
	Use:   "tag [workspace-id...]",
	Short: "Set creation-date tags",
	Long: `Tag workspaces with CreatedDate.

With ids, each workspace is tagged with today's date. With --backfill,
CloudTrail CreateWorkspaces events from the last --since are replayed and
every workspace still missing a creation tag gets the event's date.
With dry_run set, nothing is tagged and the ids or counts are reported.`,
	Example: `  wsreap tag ws-abc123 ws-def456            # Tag with today's date
  wsreap tag --backfill --since 2160h       # Replay the last 90 days
  wsreap tag --dry-run ws-abc123            # List without tagging
  wsreap tag --backfill --dry-run           # Count what would be tagged`,
	RunE: runTag,
}

func init() {
	rootCmd.AddCommand(tagCmd)

	tagCmd.Flags().BoolVar(&tagBackfill, "backfill", false, "Replay CloudTrail creation events")
	tagCmd.Flags().DurationVar(&tagSince, "since", 90*24*time.Hour, "How far back --backfill looks")
	tagCmd.Flags().Bool("dry-run", false, "Report what would be tagged without tagging")
}

var (
	errTagNoTarget   = errors.New("give workspace ids or --backfill")
	errTagBothTarget = errors.New("give workspace ids or --backfill, not both")
)

func checkTagArgs(backfill bool, args []string) error {
	switch {
	case backfill && len(args) > 0:
		return errTagBothTarget
	case !backfill && len(args) == 0:
		return errTagNoTarget
	}
	return nil
}

func runTag(cmd *cobra.Command, args []string) error {
	if err := checkTagArgs(tagBackfill, args); err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	out := cmd.OutOrStdout()

	if !tagBackfill {
		return tagIDs(ctx, out, a.tagHandler(), a.cfg.DryRun, args)
	}

	result, err := a.backfiller().Backfill(ctx, time.Now().Add(-tagSince))
	if result != nil {
		fmt.Fprintf(out, "events=%d tagged=%d already_tagged=%d missing=%d failed=%d dry_run=%t\n",
			result.Events, result.Tagged, result.AlreadyTagged, result.Missing, result.Failed, result.DryRun)
	}
	return err
}

// idTagger tags workspaces by id.
type idTagger interface {
	TagWorkspaces(ctx context.Context, ids ...string) ([]string, error)
}

// tagIDs tags ids, or only lists them when dryRun is set.
func tagIDs(ctx context.Context, out io.Writer, t idTagger, dryRun bool, ids []string) error {
	if dryRun {
		for _, id := range ids {
			fmt.Fprintf(out, "would tag %s\n", id)
		}
		return nil
	}

	tagged, err := t.TagWorkspaces(ctx, ids...)
	for _, id := range tagged {
		fmt.Fprintf(out, "tagged %s\n", id)
	}
	return err
}
