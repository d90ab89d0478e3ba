package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"spritemov/config"
	"spritemov/history"
)

func newHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent renders recorded in the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			if cfg.DatabaseDSN == "" {
				return errors.New("no database configured; set DatabaseDSN in the config file")
			}
			store, _, err := openStore(cfg)
			if err != nil {
				return err
			}
			return printHistory(cmd.OutOrStdout(), store, limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of renders to show (0 for all)")
	return cmd
}

func printHistory(out io.Writer, store history.Store, limit int) error {
	records, err := store.List(limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(out, "No renders recorded.")
		return nil
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		profile := "software"
		if r.Hardware {
			profile = "hardware"
		}
		rows = append(rows, []string{
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			shortID(r.JobID),
			r.State,
			fmt.Sprintf("%s@%d", r.Resolution, r.FPS),
			profile,
			strconv.Itoa(r.Frames),
			r.Elapsed().Round(time.Millisecond).String(),
			r.VideoPath,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Created", "ID", "State", "Format", "Profile", "Frames", "Elapsed", "Output"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
