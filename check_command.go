package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"spritemov/config"
	"spritemov/history"
	"spritemov/util"
	"spritemov/video/sink"
)

type checkStatus string

const (
	checkOK   checkStatus = "ok"
	checkWarn checkStatus = "warn"
	checkFail checkStatus = "FAIL"
)

type checkResult struct {
	Name   string
	Status checkStatus
	Detail string
}

func newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify ffmpeg, encoders, output directory and database",
		RunE: func(cmd *cobra.Command, args []string) error {
			results := runChecks(cmd.Context(), config.Get())
			return printChecks(cmd.OutOrStdout(), results)
		},
	}
}

func runChecks(ctx context.Context, cfg *config.Config) []checkResult {
	var results []checkResult

	ffmpeg, err := util.LocateFFmpeg(cfg.FFmpegPath)
	if err != nil {
		results = append(results, checkResult{"ffmpeg", checkFail, err.Error()})
	} else {
		results = append(results, checkResult{"ffmpeg", checkOK, ffmpeg})
		results = append(results, checkEncoders(ctx, ffmpeg)...)
	}

	results = append(results, checkOutputDir(cfg.OutputDir))

	if cfg.DatabaseDSN == "" {
		results = append(results, checkResult{"database", checkWarn, "not configured, history kept in memory"})
	} else {
		results = append(results, checkDatabase(ctx, cfg.DatabaseDSN))
	}
	return results
}

func checkEncoders(ctx context.Context, ffmpeg string) []checkResult {
	out, err := exec.CommandContext(ctx, ffmpeg, "-hide_banner", "-encoders").Output()
	if err != nil {
		return []checkResult{{"encoders", checkFail, fmt.Sprintf("listing encoders: %v", err)}}
	}
	list := string(out)

	software := checkResult{"prores_ks", checkOK, "software profile available"}
	if !strings.Contains(list, "prores_ks") {
		software = checkResult{"prores_ks", checkFail, "ffmpeg was built without prores_ks"}
	}
	hardware := checkResult{sink.HardwareCodec, checkOK, "hardware profile available (requires an NVIDIA GPU at render time)"}
	if !strings.Contains(list, sink.HardwareCodec) {
		hardware = checkResult{sink.HardwareCodec, checkWarn, "ffmpeg was built without NVENC, hardware profile unavailable"}
	}
	return []checkResult{software, hardware}
}

func checkOutputDir(dir string) checkResult {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return checkResult{"output dir", checkFail, err.Error()}
	}
	if err := unix.Access(dir, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return checkResult{"output dir", checkFail, fmt.Sprintf("%s is not writable: %v", dir, err)}
	}
	return checkResult{"output dir", checkOK, dir}
}

func checkDatabase(ctx context.Context, dsn string) checkResult {
	db, err := history.Open(dsn)
	if err != nil {
		return checkResult{"database", checkFail, err.Error()}
	}
	sqlDB, err := db.DB()
	if err != nil {
		return checkResult{"database", checkFail, err.Error()}
	}
	defer sqlDB.Close()
	if err := sqlDB.PingContext(ctx); err != nil {
		return checkResult{"database", checkFail, err.Error()}
	}
	return checkResult{"database", checkOK, "reachable"}
}

func printChecks(out io.Writer, results []checkResult) error {
	rows := make([][]string, 0, len(results))
	failed := 0
	for _, r := range results {
		rows = append(rows, []string{r.Name, string(r.Status), r.Detail})
		if r.Status == checkFail {
			failed++
		}
	}
	fmt.Fprintln(out, renderTable([]string{"Check", "Status", "Detail"}, rows, nil))
	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}
