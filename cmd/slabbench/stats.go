package main

import (
	"fmt"

	"github.com/IvanBrykalov/slabkit/config"
	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the effective tunables and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats()
		},
	}
	return cmd
}

func runStats() error {
	t, err := config.LoadTunables(configPath)
	if err != nil {
		return err
	}
	s, err := config.Format(t)
	if err != nil {
		return err
	}
	fmt.Println(s)
	return nil
}
