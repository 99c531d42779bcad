package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/damaskio/internal/analysis"
	"github.com/san-kum/damaskio/internal/config"
	"github.com/san-kum/damaskio/internal/logger"
	"github.com/san-kum/damaskio/internal/solverlog"
	"github.com/san-kum/damaskio/internal/storage"
	"github.com/san-kum/damaskio/internal/viz"
)

func openStore(cfg *config.Config, log logger.Logger) (*storage.Store, error) {
	st := storage.New(cfg.DataDir, log)
	if err := st.Init(); err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.DataDir, err)
	}
	log.Debugf("store at %s", st.BaseDir())
	return st, nil
}

func loadStored(ctx context.Context, cfg *config.Config, log logger.Logger, id string) (*solverlog.LogRun, error) {
	st, err := openStore(cfg, log)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return st.LoadRun(ctx, id)
}

func ingestLog(cmd *cobra.Command, args []string) error {
	cfg, err := settings(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	if stderrFile != "" && len(args) > 1 {
		return fmt.Errorf("--stderr needs exactly one log, got %d", len(args))
	}

	st, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	if len(args) == 1 {
		run, errs, err := readLog(log, args[0], stderrFile)
		if err != nil {
			return err
		}
		id, err := st.Save(cmd.Context(), args[0], run, errs)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", id)
		fmt.Printf("increments: %d (%d converged)\n", run.NumIncrements, run.NumConverged())
		fmt.Printf("iterations: %d\n", run.NumIterations())
		return nil
	}

	failed := 0
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tID\tINCS\tITERS")
	for _, r := range solverlog.ParseFiles(cmd.Context(), args, ingestWorkers) {
		if r.Err != nil {
			log.Errorf("%v", r.Err)
			failed++
			continue
		}
		log.Messages("warning", r.Run.Warnings)
		id, err := st.Save(cmd.Context(), r.Path, r.Run, nil)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", r.Path, id, r.Run.NumIncrements, r.Run.NumIterations())
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d logs failed to parse", failed, len(args))
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	cfg, err := settings(cmd)
	if err != nil {
		return err
	}
	st, err := openStore(cfg, newLogger(cfg))
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSOURCE\tINGESTED\tINCS\tCONV\tITERS\tWARN\tERR")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			run.ID,
			run.Source,
			run.IngestedAt.Local().Format("2006-01-02 15:04:05"),
			run.Increments,
			run.Converged,
			run.Iterations,
			run.Warnings,
			run.Errors,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	counts, err := st.WarningCounts(cmd.Context())
	if err != nil {
		return err
	}
	if len(counts) > 0 {
		fmt.Printf("\nwarnings by code: %s\n", formatCodeCounts(counts))
	}
	return nil
}

// formatCodeCounts renders "code×count" pairs in code order.
func formatCodeCounts(counts map[int]int) string {
	codes := make([]int, 0, len(counts))
	for c := range counts {
		codes = append(codes, c)
	}
	sort.Ints(codes)
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = fmt.Sprintf("%d×%d", c, counts[c])
	}
	return strings.Join(parts, " ")
}

func showRun(cmd *cobra.Command, args []string) error {
	cfg, err := settings(cmd)
	if err != nil {
		return err
	}
	st, err := openStore(cfg, newLogger(cfg))
	if err != nil {
		return err
	}
	defer st.Close()

	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	run, err := st.LoadRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Println(viz.RunSummary(meta.Source, analysis.Summarize(run)))
	fmt.Printf("run id: %s, ingested %s\n", meta.ID, meta.IngestedAt.Local().Format("2006-01-02 15:04:05"))

	if len(meta.Errors) > 0 {
		fmt.Println("\nerrors:")
		for _, m := range meta.Errors {
			fmt.Printf("  %d: %s\n", m.Code, m.Message)
		}
	}

	if showIncs {
		rows, err := st.Increments(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "POS\tINC\tTIME\tCUTBACK\tLOADCASE\tITERS")
		for _, r := range rows {
			fmt.Fprintf(w, "%d\t%d\t%g\t%g\t%d\t%d\n", r.Position, r.Number, r.Time, r.CutBack, r.LoadCase, r.NumIters)
		}
		return w.Flush()
	}
	return nil
}

func deleteRun(cmd *cobra.Command, args []string) error {
	cfg, err := settings(cmd)
	if err != nil {
		return err
	}
	st, err := openStore(cfg, newLogger(cfg))
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("deleted %s\n", args[0])
	return nil
}
