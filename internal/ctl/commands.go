// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package ctl

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/MKhiriev/go-sync-keeper/internal/config"
	"github.com/MKhiriev/go-sync-keeper/models"
	"github.com/spf13/cobra"
)

type options struct {
	address string
	timeout time.Duration
	hashKey string
	asJSON  bool
}

func (o *options) client() *Client {
	return NewClient(o.address, o.timeout, o.hashKey)
}

// NewRootCommand builds the syncctl command tree. cfg supplies flag
// defaults, out receives all command output.
func NewRootCommand(cfg *config.CtlConfig, out io.Writer) *cobra.Command {
	opts := &options{address: cfg.Address, timeout: cfg.Timeout, hashKey: cfg.HashKey}

	root := &cobra.Command{
		Use:   "syncctl",
		Short: "Inspect and control the sync daemon",
		Long: `syncctl talks to the control API of a running sync daemon.
It shows sync status, triggers manual cycles, resolves conflicts
and retries failed uploads.`,
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.SetErr(out)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.address, "address", opts.address, "daemon control API address")
	flags.DurationVar(&opts.timeout, "timeout", opts.timeout, "request timeout")
	flags.BoolVar(&opts.asJSON, "json", false, "print raw JSON")

	root.AddCommand(
		newStatusCommand(opts),
		newSyncCommand(opts),
		newRecordsCommand(opts),
		newConflictsCommand(opts),
		newQueueCommand(opts),
	)
	return root
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return "never"
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

func newStatusCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the sync status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, err := opts.client().Status(cmd.Context())
			if err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), status)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "phase:\t%s\n", status.Phase)
			fmt.Fprintf(tw, "connected:\t%t\n", status.Connected)
			fmt.Fprintf(tw, "pending:\t%d\n", status.PendingCount)
			fmt.Fprintf(tw, "failed:\t%d\n", status.FailedCount)
			fmt.Fprintf(tw, "conflicts:\t%d\n", status.ConflictCount)
			fmt.Fprintf(tw, "last sync:\t%s\n", formatMillis(status.LastSyncAt))
			if status.LastError != "" {
				fmt.Fprintf(tw, "last error:\t%s\n", status.LastError)
			}
			return tw.Flush()
		},
	}
}

func newSyncCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Request a manual sync cycle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := opts.client().Sync(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sync %s\n", result)
			return nil
		},
	}
}

func newRecordsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "records TYPE",
		Short: "List local records of one type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := opts.client().ListRecords(cmd.Context(), models.EntityType(args[0]))
			if err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), records)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tREMOTE ID\tVERSION\tDIRTY\tDELETED\tMODIFIED")
			for _, r := range records {
				remoteID := "-"
				if r.RemoteID != nil {
					remoteID = *r.RemoteID
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%t\t%t\t%s\n",
					r.ID, remoteID, r.Version, r.Dirty, r.Deleted, formatMillis(r.LastModified))
			}
			return tw.Flush()
		},
	}
}

func newConflictsCommand(opts *options) *cobra.Command {
	conflicts := &cobra.Command{
		Use:   "conflicts",
		Short: "List and resolve sync conflicts",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List conflicts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, err := opts.client().ListConflicts(cmd.Context())
			if err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), items)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTYPE\tENTITY\tKIND\tRESOLUTION\tDETECTED")
			for _, c := range items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					c.ID, c.EntityType, c.EntityID, c.ConflictType, c.Resolution, formatMillis(c.DetectedAt))
			}
			return tw.Flush()
		},
	}

	var merged string
	resolve := &cobra.Command{
		Use:   "resolve ID keep_local|keep_remote|merged",
		Short: "Resolve a conflict",
		Long: `Resolve records a resolution for an unresolved conflict.
The merged resolution needs the final payload passed with --merged.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload models.Payload
			if merged != "" {
				if err := json.Unmarshal([]byte(merged), &payload); err != nil {
					return fmt.Errorf("parse --merged: %w", err)
				}
			}

			c, err := opts.client().ResolveConflict(cmd.Context(), args[0], models.Resolution(args[1]), payload)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), c)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "conflict %s resolved: %s\n", c.ID, c.Resolution)
			return nil
		},
	}
	resolve.Flags().StringVar(&merged, "merged", "", "merged payload as a JSON object")

	conflicts.AddCommand(list, resolve)
	return conflicts
}

func newQueueCommand(opts *options) *cobra.Command {
	queue := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and retry failed uploads",
	}

	var limit int
	failed := &cobra.Command{
		Use:   "failed",
		Short: "List queue entries that exhausted their retries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := opts.client().ListFailed(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), entries)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTYPE\tENTITY\tOP\tATTEMPTS\tLAST ERROR")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
					e.ID, e.EntityType, e.EntityID, e.Operation, e.AttemptCount, e.LastError)
			}
			return tw.Flush()
		},
	}
	failed.Flags().IntVar(&limit, "limit", 0, "maximum number of entries, 0 for the daemon default")

	retry := &cobra.Command{
		Use:   "retry ID",
		Short: "Move a failed entry back to pending",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.client().Retry(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), e)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queue entry %s is %s\n", e.ID, e.Status)
			return nil
		},
	}

	queue.AddCommand(failed, retry)
	return queue
}
