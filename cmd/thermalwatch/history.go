package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"codeberg.org/mutker/thermalwatch/internal/history"
	"github.com/spf13/cobra"
)

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "Number of samples to show")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently recorded samples",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfg.HistoryDB); os.IsNotExist(err) {
		fmt.Println("No history recorded yet")
		return nil
	}

	recorder, err := history.New(historyConfig(cfg, true))
	if err != nil {
		return err
	}
	defer recorder.Close()

	samples, err := recorder.Recent(cmd.Context(), limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tCPU\tCPU TEMP\tGPU TEMP\tBATTERY\tLOAD\tSTATUS")
	for _, s := range samples {
		load := "N/A"
		if l, ok := s.Headroom.Load(); ok {
			load = fmt.Sprintf("%.0f%%", l)
		}
		fmt.Fprintf(w, "%s\t%.1f%%\t%s\t%s\t%s\t%s\t%s\n",
			s.Timestamp.Format(time.DateTime),
			s.CPUUsage,
			s.CPUTemp, s.GPUTemp, s.BatteryTemp,
			load,
			s.Status)
	}

	return w.Flush()
}
