package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/eventrelay/pkg/eventrelay/event"
)

type typeInfo struct {
	Type        string `json:"type"`
	Payload     string `json:"payload"`
	Description string `json:"description"`
}

func newTypesCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List registered event types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := flags.checkOutput(); err != nil {
				return err
			}

			registry := event.Builtin()
			var infos []typeInfo
			for _, t := range registry.AllTypes() {
				schema, _ := registry.Get(t)
				infos = append(infos, typeInfo{
					Type:        string(t),
					Payload:     schema.PayloadType.Name(),
					Description: schema.Description,
				})
			}

			out := cmd.OutOrStdout()
			if flags.output == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(infos)
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TYPE\tPAYLOAD\tDESCRIPTION")
			for _, info := range infos {
				fmt.Fprintf(w, "%s\t%s\t%s\n", info.Type, info.Payload, info.Description)
			}
			return w.Flush()
		},
	}
}
