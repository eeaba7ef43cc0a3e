package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/twinfer/spring-codec/pkg/layout"
)

func newLayoutsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "layouts",
		Short: "Print the active command layout table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			codec, err := a.converter.Codec()
			if err != nil {
				return a.fail(err)
			}
			return printTable(a, codec.Table())
		},
	}
}

func printTable(a *app, table *layout.Table) error {
	source := "built-in"
	if a.cfg.LayoutsPath != "" {
		source = a.cfg.LayoutsPath
	}
	fmt.Fprintf(a.stdout, "Layout table v%d (%s)\n", table.Version(), source)
	fmt.Fprintf(a.stdout, "Sentinel: %q, setup tokens: %d\n", table.Sentinel(), table.SetupTokens())
	fmt.Fprintf(a.stdout, "Units: %s\n\n", strings.Join(table.Units(), ", "))

	tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tNAME\tSLOTS\tPADDING")
	for _, cmd := range table.Commands() {
		writeCommand(tw, cmd)
	}
	if fallback := table.Fallback(); fallback != nil {
		writeCommand(tw, *fallback)
	}
	return tw.Flush()
}

func writeCommand(tw *tabwriter.Writer, cmd layout.Command) {
	slots := make([]string, len(cmd.Slots))
	for i, slot := range cmd.Slots {
		slots[i] = slot.Kind.String()
	}
	fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", cmd.Code, cmd.Name, strings.Join(slots, ", "), cmd.Padding)
}
