package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newRecentCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "recent",
		Short: "List recently converted files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := a.history.List()
			if err != nil {
				return a.fail(err)
			}
			if len(entries) == 0 {
				fmt.Fprintln(a.stdout, "No recent files")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(a.stdout, "%s  %s\n", e.At.Local().Format(time.DateTime), e.Path)
			}
			return nil
		},
	}
}
