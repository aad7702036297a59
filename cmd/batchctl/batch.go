package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/kursadbilgin/batch-trace/internal/bootstrap"
	"github.com/kursadbilgin/batch-trace/internal/domain"
	"github.com/kursadbilgin/batch-trace/internal/service"
	"github.com/spf13/cobra"
)

func newBatchesCmd(opts *globalOptions) *cobra.Command {
	var (
		status string
		active bool
	)

	cmd := &cobra.Command{
		Use:   "batches",
		Short: "List batches with their status and elapsed time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatches(cmd, opts, status, active)
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "", "only list batches in this status")
	cmd.Flags().BoolVar(&active, "active", false, "hide completed batches")
	return cmd
}

func runBatches(cmd *cobra.Command, opts *globalOptions, status string, active bool) error {
	filter := service.BatchFilter{ActiveOnly: active}
	if status != "" {
		parsed, err := domain.ParseBatchStatusFromString(status)
		if err != nil {
			return err
		}
		filter.Status = &parsed
	}

	app, err := openApp(cmd, opts)
	if err != nil {
		return err
	}
	defer app.Close()

	batches := app.Lifecycle.List(commandContext(cmd), filter)
	out := cmd.OutOrStdout()
	if len(batches) == 0 {
		fmt.Fprintln(out, "No batches found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPRODUCT\tTARGET\tSTATUS\tOPERATOR\tELAPSED")
	for _, b := range batches {
		elapsed, ok := app.Lifecycle.Elapsed(b)
		if !ok {
			elapsed = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			b.ID, b.ProductName, formatQty(b.TargetQuantity, b.Unit), b.Status, orDash(b.Operator), elapsed)
	}
	return w.Flush()
}

func newStartCmd(opts *globalOptions) *cobra.Command {
	var operator string

	cmd := &cobra.Command{
		Use:   "start <batch-id>",
		Short: "Start or resume a batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			name, err := resolveOperator(app, operator)
			if err != nil {
				return err
			}

			b, err := app.Lifecycle.Start(commandContext(cmd), args[0], name)
			if err := settle(cmd, app, err); err != nil {
				return err
			}
			printBatch(cmd.OutOrStdout(), app, b)
			return nil
		},
	}

	cmd.Flags().StringVarP(&operator, "operator", "o", "", "operator starting the batch (default: signed-in operator)")
	return cmd
}

func newPauseCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pause <batch-id>",
		Short: "Pause a running batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			b, err := app.Lifecycle.Pause(commandContext(cmd), args[0])
			if err := settle(cmd, app, err); err != nil {
				return err
			}
			printBatch(cmd.OutOrStdout(), app, b)
			return nil
		},
	}
}

func newCompleteCmd(opts *globalOptions) *cobra.Command {
	var (
		yield    float64
		scrap    float64
		operator string
		used     []string
	)

	cmd := &cobra.Command{
		Use:   "complete <batch-id>",
		Short: "Complete a running batch and create its lot",
		Long:  "Completes a batch in process, records yield and scrap, and derives the lot. Material consumption defaults to the planned quantities; override single materials with --used \"Sugar=290\".",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := commandContext(cmd)
			name, err := resolveOperator(app, operator)
			if err != nil {
				return err
			}

			payload := domain.CompletionPayload{
				ActualYield: domain.Float64(yield),
				Operator:    name,
			}
			if cmd.Flags().Changed("scrap") {
				payload.ScrapQuantity = domain.Float64(scrap)
			}
			if len(used) > 0 {
				b, err := app.Lifecycle.Get(ctx, args[0])
				if err != nil {
					return err
				}
				payload.MaterialsUsed, err = applyUsage(b.Materials, used)
				if err != nil {
					return err
				}
			}

			result, err := app.Lifecycle.Complete(ctx, args[0], payload)
			if err := settle(cmd, app, err); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printBatch(out, app, result.Batch)
			fmt.Fprintf(out, "Lot %s: %s of %s\n", result.Lot.Lot, formatQty(result.Lot.Yield, result.Lot.Unit), result.Lot.Product)
			return nil
		},
	}

	cmd.Flags().Float64VarP(&yield, "yield", "y", 0, "actual yield of the batch (required)")
	cmd.Flags().Float64Var(&scrap, "scrap", 0, "scrap quantity")
	cmd.Flags().StringVarP(&operator, "operator", "o", "", "operator completing the batch (default: signed-in operator)")
	cmd.Flags().StringArrayVar(&used, "used", nil, "actual consumption as name=qty, repeatable")
	_ = cmd.MarkFlagRequired("yield")
	return cmd
}

// applyUsage returns the batch materials with actual quantities set to the
// planned ones, overridden by name=qty entries.
func applyUsage(planned []domain.Material, entries []string) ([]domain.Material, error) {
	out := make([]domain.Material, len(planned))
	index := make(map[string]int, len(planned))
	for i, m := range planned {
		out[i] = m
		out[i].ActualQty = domain.Float64(m.PlannedQty)
		index[strings.ToLower(m.Name)] = i
	}

	for _, entry := range entries {
		sep := strings.LastIndex(entry, "=")
		if sep <= 0 {
			return nil, fmt.Errorf("%w: --used %q must be name=qty", domain.ErrValidation, entry)
		}
		name := strings.TrimSpace(entry[:sep])
		qty, err := strconv.ParseFloat(strings.TrimSpace(entry[sep+1:]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: --used %q has an invalid quantity", domain.ErrValidation, entry)
		}

		i, ok := index[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("%w: batch has no material %q", domain.ErrValidation, name)
		}
		out[i].ActualQty = domain.Float64(qty)
	}
	return out, nil
}

func resolveOperator(app *bootstrap.App, flag string) (string, error) {
	if strings.TrimSpace(flag) != "" {
		return domain.ParseOperator(flag)
	}
	if current, ok := app.Operators.Current(); ok {
		return current, nil
	}
	return "", fmt.Errorf("%w: no operator signed in, pass --operator or run batchctl login", domain.ErrValidation)
}

func printBatch(out io.Writer, app *bootstrap.App, b domain.Batch) {
	line := fmt.Sprintf("Batch %s (%s) is %s", b.ID, b.ProductName, b.Status)
	if b.Operator != "" {
		line += " by " + b.Operator
	}
	if elapsed, ok := app.Lifecycle.Elapsed(b); ok {
		line += ", elapsed " + elapsed
	}
	fmt.Fprintln(out, line)
}

func formatQty(v float64, unit string) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if unit == "" {
		return s
	}
	return s + " " + unit
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
