package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/eventrelay/pkg/eventrelay/event"
	"github.com/randalmurphal/eventrelay/pkg/eventrelay/storage"
)

func newPendingCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "Inspect or purge events awaiting an observer",
	}
	cmd.AddCommand(newPendingListCommand(flags))
	cmd.AddCommand(newPendingCountCommand(flags))
	cmd.AddCommand(newPendingPurgeCommand(flags))
	return cmd
}

type pendingRow struct {
	Type      string          `json:"type"`
	Seq       int64           `json:"seq"`
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

func newPendingListCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list [type]",
		Short: "List pending events, oldest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.checkOutput(); err != nil {
				return err
			}
			registry := event.Builtin()
			types, err := resolveTypes(registry, args)
			if err != nil {
				return err
			}

			store, logger, err := flags.openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			var rows []pendingRow
			for _, t := range types {
				recs, err := store.Load(cmd.Context(), string(t))
				if err != nil {
					return fmt.Errorf("load %s: %w", t, err)
				}
				for _, rec := range recs {
					rows = append(rows, pendingRow{
						Type:      rec.Type,
						Seq:       rec.Seq,
						ID:        rec.ID,
						CreatedAt: rec.CreatedAt,
						Payload:   payloadOf(registry, rec, logger),
					})
				}
			}

			out := cmd.OutOrStdout()
			if flags.output == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TYPE\tSEQ\tID\tCREATED\tPAYLOAD")
			for _, r := range rows {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
					r.Type, r.Seq, r.ID, r.CreatedAt.Format(time.RFC3339), string(r.Payload))
			}
			return w.Flush()
		},
	}
}

// payloadOf extracts the payload of a stored record. Records that no longer
// decode are shown without one.
func payloadOf(registry *event.Registry, rec storage.Record, logger *slog.Logger) json.RawMessage {
	evt, err := registry.Decode(event.Type(rec.Type), rec.Data)
	if err != nil {
		logger.Warn("undecodable record", slog.String("id", rec.ID), slog.String("error", err.Error()))
		return nil
	}
	data, err := json.Marshal(evt.Data())
	if err != nil {
		return nil
	}
	return data
}

func newPendingCountCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Count pending events per type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := flags.checkOutput(); err != nil {
				return err
			}
			store, _, err := flags.openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			type countRow struct {
				Type  string `json:"type"`
				Count int    `json:"count"`
			}
			var rows []countRow
			total := 0
			for _, t := range event.Builtin().AllTypes() {
				recs, err := store.Load(cmd.Context(), string(t))
				if err != nil {
					return fmt.Errorf("load %s: %w", t, err)
				}
				rows = append(rows, countRow{Type: string(t), Count: len(recs)})
				total += len(recs)
			}

			out := cmd.OutOrStdout()
			if flags.output == "json" {
				return json.NewEncoder(out).Encode(rows)
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TYPE\tCOUNT")
			for _, r := range rows {
				fmt.Fprintf(w, "%s\t%d\n", r.Type, r.Count)
			}
			fmt.Fprintf(w, "total\t%d\n", total)
			return w.Flush()
		},
	}
}

func newPendingPurgeCommand(flags *globalFlags) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "purge <type>",
		Short: "Remove every pending event of a type",
		Long: `Remove every pending event of a type from the durable store.

Purged events are never replayed. Use --dry-run to see how many would go.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			types, err := resolveTypes(event.Builtin(), args)
			if err != nil {
				return err
			}
			t := types[0]

			store, logger, err := flags.openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			recs, err := store.Load(cmd.Context(), string(t))
			if err != nil {
				return fmt.Errorf("load %s: %w", t, err)
			}

			if dryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "would purge %d %s event(s)\n", len(recs), t)
				return nil
			}

			for _, rec := range recs {
				if err := store.Remove(cmd.Context(), rec.ID); err != nil {
					return fmt.Errorf("remove %s: %w", rec.ID, err)
				}
			}
			logger.Info("pending events purged", slog.String("event_type", string(t)), slog.Int("count", len(recs)))
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d %s event(s)\n", len(recs), t)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report without removing")
	return cmd
}
