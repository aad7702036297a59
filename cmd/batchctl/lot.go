package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newLotsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lots",
		Short: "List lots produced by completed batches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			lots := app.Completion.ListLots(commandContext(cmd))
			out := cmd.OutOrStdout()
			if len(lots) == 0 {
				fmt.Fprintln(out, "No lots found.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "LOT\tPRODUCT\tYIELD\tBATCH\tOPERATOR\tCOMPLETED")
			for _, l := range lots {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					l.Lot, l.Product, formatQty(l.Yield, l.Unit), l.BatchID, orDash(l.Operator),
					l.CompletedAt.Local().Format(time.DateTime))
			}
			return w.Flush()
		},
	}
}

func newTraceCmd(opts *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "trace <lot>",
		Short: "Show the material to batch to lot graph of a lot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			graph, err := app.Trace.Graph(commandContext(cmd), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(graph)
			}

			labels := make(map[string]string, len(graph.Nodes))
			for _, n := range graph.Nodes {
				labels[n.ID] = flatten(n.Label)
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KIND\tNODE\tLABEL")
			for _, n := range graph.Nodes {
				fmt.Fprintf(w, "%s\t%s\t%s\n", n.Kind, n.ID, flatten(n.Label))
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintln(out)
			for _, e := range graph.Edges {
				fmt.Fprintf(out, "%s -> %s\n", edgeLabel(labels, e.Source), edgeLabel(labels, e.Target))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the graph as JSON")
	return cmd
}

func edgeLabel(labels map[string]string, id string) string {
	if label, ok := labels[id]; ok {
		return fmt.Sprintf("%s [%s]", id, label)
	}
	return id
}

func flatten(label string) string {
	return strings.ReplaceAll(label, "\n", ", ")
}
