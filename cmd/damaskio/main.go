package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/damaskio/internal/analysis"
	"github.com/san-kum/damaskio/internal/config"
	"github.com/san-kum/damaskio/internal/damask"
	"github.com/san-kum/damaskio/internal/export"
	"github.com/san-kum/damaskio/internal/geom"
	"github.com/san-kum/damaskio/internal/logger"
	"github.com/san-kum/damaskio/internal/report"
	"github.com/san-kum/damaskio/internal/rotation"
	"github.com/san-kum/damaskio/internal/solverlog"
	"github.com/san-kum/damaskio/internal/table"
	"github.com/san-kum/damaskio/internal/viz"
	"github.com/san-kum/damaskio/internal/watch"
)

var (
	dataDir    string
	configFile string
	preset     string
	logLevel   string

	stderrFile string
	outFile    string
	format     string
	precision  int

	plotHeight int
	plotWidth  int
	metrics    []string
	iterPlot   bool
	svgFile    string

	asJSON      bool
	quaternions bool
	matrices    bool

	ignoreDuplicates bool
	combineArrays    bool

	asHTML      bool
	reportTitle string

	follow     bool
	debounceMs int
	showIncs   bool

	ingestWorkers int
	theme         string

	eulerDeg []float64
	axis     []float64
	angleDeg float64
)

// settings resolves the effective configuration in layers: defaults, then the
// preset, then the keys present in the config file, then flags explicitly set.
func settings(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		if cfg = config.GetPreset(preset); cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.LoadOver(configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("data") {
		cfg.DataDir = dataDir
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("height") {
		cfg.Plot.Height = plotHeight
	}
	if flags.Changed("width") {
		cfg.Plot.Width = plotWidth
	}
	if flags.Changed("format") {
		cfg.Export.Format = format
	}
	if flags.Changed("precision") {
		cfg.Export.Precision = precision
	}
	if flags.Changed("debounce") {
		cfg.Watch.DebounceMs = debounceMs
	}
	if flags.Changed("ignore-duplicates") {
		cfg.Table.IgnoreDuplicateColumns = ignoreDuplicates
	}
	if flags.Changed("combine") {
		cfg.Table.CombineArrayColumns = combineArrays
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *logger.ConsoleLogger {
	return logger.New(os.Stderr, cfg.LogLevel)
}

// output opens -o or stdout. The returned close func is always safe to call.
func output() (io.Writer, func() error, error) {
	if outFile == "" || outFile == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(outFile)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "damaskio",
		Short:         "read DAMASK solver logs, geometries and tables",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use preset configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "trace, debug, info, warn or error")

	logCmd := &cobra.Command{
		Use:   "log [stdout_log]",
		Short: "summarize a solver log",
		Args:  cobra.ExactArgs(1),
		RunE:  summarizeLog,
	}
	logCmd.Flags().StringVar(&stderrFile, "stderr", "", "matching diagnostic stream")
	logCmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")

	errorsCmd := &cobra.Command{
		Use:   "errors [stderr_log]",
		Short: "list error blocks of a diagnostic stream",
		Args:  cobra.ExactArgs(1),
		RunE:  listErrors,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [stdout_log]",
		Short: "plot convergence errors per iteration",
		Args:  cobra.ExactArgs(1),
		RunE:  plotLog,
	}
	plotCmd.Flags().IntVar(&plotHeight, "height", config.DefaultPlotHeight, "plot height")
	plotCmd.Flags().IntVar(&plotWidth, "width", config.DefaultPlotWidth, "plot width")
	plotCmd.Flags().StringSliceVar(&metrics, "metric", nil, "metric keys to plot (default all)")
	plotCmd.Flags().BoolVar(&iterPlot, "iterations", false, "plot iterations per increment instead")
	plotCmd.Flags().StringVar(&svgFile, "svg", "", "also write an SVG chart of the first metric")

	geomCmd := &cobra.Command{
		Use:   "geom [geom_file]",
		Short: "summarize a voxel geometry",
		Args:  cobra.ExactArgs(1),
		RunE:  showGeometry,
	}
	geomCmd.Flags().BoolVar(&asJSON, "json", false, "print the geometry as JSON")
	geomCmd.Flags().BoolVar(&quaternions, "quaternions", false, "print orientations as quaternions")
	geomCmd.Flags().BoolVar(&matrices, "matrices", false, "print orientations as rotation matrices")
	geomCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file")

	tableCmd := &cobra.Command{
		Use:   "table [table_file]",
		Short: "list the columns of an ASCII table",
		Args:  cobra.ExactArgs(1),
		RunE:  showTable,
	}
	tableCmd.Flags().BoolVar(&ignoreDuplicates, "ignore-duplicates", false, "rename duplicate labels instead of failing")
	tableCmd.Flags().BoolVar(&combineArrays, "combine", true, "group <i>_<name> columns into arrays")

	exportCmd := &cobra.Command{
		Use:   "export [stdout_log]",
		Short: "export a parsed solver log",
		Args:  cobra.ExactArgs(1),
		RunE:  exportLog,
	}
	exportCmd.Flags().StringVar(&format, "format", config.DefaultFormat, "one of "+strings.Join(export.Formats, ", "))
	exportCmd.Flags().IntVar(&precision, "precision", config.DefaultPrecision, "csv digits after the decimal point")
	exportCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file")

	reportCmd := &cobra.Command{
		Use:   "report [stdout_log]",
		Short: "write a convergence report",
		Args:  cobra.ExactArgs(1),
		RunE:  writeReport,
	}
	reportCmd.Flags().StringVar(&stderrFile, "stderr", "", "matching diagnostic stream")
	reportCmd.Flags().BoolVar(&asHTML, "html", false, "render the report as HTML")
	reportCmd.Flags().StringVar(&reportTitle, "title", "", "report title")
	reportCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file")

	browseCmd := &cobra.Command{
		Use:   "browse [stdout_log|run_id]",
		Short: "browse increments interactively",
		Args:  cobra.ExactArgs(1),
		RunE:  browse,
	}
	browseCmd.Flags().BoolVar(&follow, "follow", false, "reload the log whenever it changes")
	browseCmd.Flags().IntVar(&debounceMs, "debounce", config.DefaultDebounceMs, "milliseconds to wait for writes to settle")
	browseCmd.Flags().StringVar(&theme, "theme", viz.Themes[0].Name, "colour theme: "+strings.Join(viz.ThemeNames(), ", "))

	watchCmd := &cobra.Command{
		Use:   "watch [stdout_log]",
		Short: "report progress of a running simulation",
		Args:  cobra.ExactArgs(1),
		RunE:  watchLog,
	}
	watchCmd.Flags().IntVar(&debounceMs, "debounce", config.DefaultDebounceMs, "milliseconds to wait for writes to settle")

	ingestCmd := &cobra.Command{
		Use:   "ingest [stdout_log...]",
		Short: "parse solver logs and store them",
		Args:  cobra.MinimumNArgs(1),
		RunE:  ingestLog,
	}
	ingestCmd.Flags().StringVar(&stderrFile, "stderr", "", "matching diagnostic stream (single log only)")
	ingestCmd.Flags().IntVar(&ingestWorkers, "workers", 0, "parallel parsers (default GOMAXPROCS)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "summarize a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}
	showCmd.Flags().BoolVar(&showIncs, "increments", false, "list converged increments")

	deleteCmd := &cobra.Command{
		Use:   "delete [run_id]",
		Short: "delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  deleteRun,
	}

	rotationCmd := &cobra.Command{
		Use:   "rotation",
		Short: "convert an orientation between Bunge angles, matrix and quaternion",
		Args:  cobra.NoArgs,
		RunE:  convertRotation,
	}
	rotationCmd.Flags().Float64SliceVar(&eulerDeg, "euler", nil, "Bunge angles phi1,Phi,phi2 in degrees")
	rotationCmd.Flags().Float64SliceVar(&axis, "axis", nil, "rotation axis x,y,z")
	rotationCmd.Flags().Float64Var(&angleDeg, "angle", 0, "rotation angle about --axis in degrees")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "manage configuration files",
	}
	configInitCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write the effective configuration as yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE:  initConfig,
	}
	configCmd.AddCommand(configInitCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Run: func(cmd *cobra.Command, args []string) {
			for _, p := range config.ListPresets() {
				fmt.Printf("  %s\n", p)
			}
		},
	}

	rootCmd.AddCommand(logCmd, errorsCmd, plotCmd, geomCmd, tableCmd, exportCmd, reportCmd,
		browseCmd, watchCmd, ingestCmd, listCmd, showCmd, deleteCmd, rotationCmd, configCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// readLog parses a stdout log and, when given, its diagnostic stream.
func readLog(log *logger.ConsoleLogger, path, stderrPath string) (*solverlog.LogRun, []damask.Message, error) {
	run, err := solverlog.ParseFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", path, err)
	}
	log.Debugf("parsed %s: %d increments, %d iterations", path, run.NumIncrements, run.NumIterations())
	log.Tracef("metric keys: %v", run.Errors.Keys())
	log.Messages("warning", run.Warnings)

	var errs []damask.Message
	if stderrPath != "" {
		if errs, err = solverlog.ParseStderrFile(stderrPath); err != nil {
			return nil, nil, fmt.Errorf("parse %s: %w", stderrPath, err)
		}
		log.Messages("error", errs)
	}
	return run, errs, nil
}

func summarizeLog(cmd *cobra.Command, args []string) error {
	cfg, err := settings(cmd)
	if err != nil {
		return err
	}
	run, _, err := readLog(newLogger(cfg), args[0], stderrFile)
	if err != nil {
		return err
	}

	s := analysis.Summarize(run)
	if asJSON {
		return export.WriteJSON(os.Stdout, s)
	}
	fmt.Println(viz.RunSummary(args[0], s))
	return nil
}

func listErrors(cmd *cobra.Command, args []string) error {
	msgs, err := solverlog.ParseStderrFile(args[0])
	if err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}
	if len(msgs) == 0 {
		fmt.Println("no errors")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tMESSAGE")
	for _, m := range msgs {
		fmt.Fprintf(w, "%d\t%s\n", m.Code, m.Message)
	}
	return w.Flush()
}

func plotLog(cmd *cobra.Command, args []string) error {
	cfg, err := settings(cmd)
	if err != nil {
		return err
	}
	run, _, err := readLog(newLogger(cfg), args[0], "")
	if err != nil {
		return err
	}

	opts := viz.PlotOptions{Height: cfg.Plot.Height, Width: cfg.Plot.Width, Color: !noColor()}
	var graph string
	if iterPlot {
		graph, err = viz.IterationsPlot(run, opts)
	} else {
		graph, err = viz.ConvergencePlot(run, metrics, opts)
	}
	if err != nil {
		return err
	}
	fmt.Println(graph)

	if svgFile != "" {
		key := ""
		if len(metrics) > 0 {
			key = metrics[0]
		} else if keys := run.Errors.Keys(); len(keys) > 0 {
			key = keys[0]
		}
		svg, err := export.ConvergenceSVG(run, key, cfg.Plot.Width*10, cfg.Plot.Height*20)
		if err != nil {
			return err
		}
		if err := os.WriteFile(svgFile, []byte(svg), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", svgFile)
	}
	return nil
}

func noColor() bool {
	_, set := os.LookupEnv("NO_COLOR")
	return set
}

func showGeometry(cmd *cobra.Command, args []string) error {
	v, err := geom.ParseFile(args[0])
	if err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}

	if asJSON {
		w, closeOut, err := output()
		if err != nil {
			return err
		}
		if err := export.GridJSON(w, v); err != nil {
			closeOut()
			return err
		}
		return closeOut()
	}

	fmt.Println(viz.GridSummary(args[0], v))

	if (quaternions || matrices) && v.Orientations == nil {
		return errors.New("geometry has no <texture> section")
	}
	if quaternions {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "LABEL\tQ0\tQ1\tQ2\tQ3")
		for i, q := range v.Orientations.Quaternions() {
			fmt.Fprintf(w, "%s\t%.6f\t%.6f\t%.6f\t%.6f\n", v.Orientations.Labels[i], q[0], q[1], q[2], q[3])
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	if matrices {
		for i, r := range v.Orientations.Matrices() {
			fmt.Printf("\n%s (euler %s)\n", v.Orientations.Labels[i], formatEuler(v.Orientations.EulerAngles[i]))
			for _, row := range r {
				fmt.Printf("  %10.6f %10.6f %10.6f\n", row[0], row[1], row[2])
			}
		}
	}
	return nil
}

// formatEuler prints Bunge angles in degrees, normalizing through the matrix
// so that equivalent triples print the same way.
func formatEuler(deg damask.Vec3) string {
	e := rotation.Degrees(rotation.MatrixToEuler(rotation.EulerToMatrix(rotation.Radians(deg))))
	return fmt.Sprintf("%.2f %.2f %.2f", e[0], e[1], e[2])
}

func convertRotation(cmd *cobra.Command, args []string) error {
	r, err := rotationMatrix(eulerDeg, axis, angleDeg)
	if err != nil {
		return err
	}
	e := rotation.MatrixToEuler(r)
	q := rotation.EulerToQuaternion(e)
	deg := rotation.Degrees(e)

	fmt.Printf("euler (deg)  %.4f %.4f %.4f\n", deg[0], deg[1], deg[2])
	fmt.Printf("quaternion   %.6f %.6f %.6f %.6f\n", q[0], q[1], q[2], q[3])
	fmt.Println("matrix")
	for _, row := range r {
		fmt.Printf("  %10.6f %10.6f %10.6f\n", row[0], row[1], row[2])
	}
	return nil
}

// rotationMatrix builds the rotation matrix of Bunge angles or of an
// axis-angle pair, both in degrees. Exactly one of the two must be given.
func rotationMatrix(euler, axis []float64, angle float64) (rotation.Matrix, error) {
	switch {
	case len(euler) > 0 && len(axis) > 0:
		return rotation.Matrix{}, errors.New("give either --euler or --axis, not both")
	case len(euler) > 0:
		if len(euler) != 3 {
			return rotation.Matrix{}, fmt.Errorf("--euler needs 3 angles, got %d", len(euler))
		}
		return rotation.EulerToMatrix(rotation.Radians([3]float64{euler[0], euler[1], euler[2]})), nil
	case len(axis) > 0:
		if len(axis) != 3 {
			return rotation.Matrix{}, fmt.Errorf("--axis needs 3 components, got %d", len(axis))
		}
		return rotation.AxisAngle([3]float64{axis[0], axis[1], axis[2]}, angle*math.Pi/180)
	}
	return rotation.Matrix{}, errors.New("give --euler or --axis")
}

func showTable(cmd *cobra.Command, args []string) error {
	cfg, err := settings(cmd)
	if err != nil {
		return err
	}
	opts := table.DefaultOptions()
	opts.CombineArrayColumns = cfg.Table.CombineArrayColumns
	opts.IgnoreDuplicateColumns = cfg.Table.IgnoreDuplicateColumns
	t, err := table.ReadFile(args[0], opts)
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	fmt.Printf("%d header lines, %d rows\n", len(t.Header), t.Rows)
	fmt.Printf("columns: %s\n\n", strings.Join(t.Names(), " "))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COLUMN\tSHAPE\tMIN\tMAX")
	for _, c := range t.Columns {
		lo, hi := bounds(c.Data)
		fmt.Fprintf(w, "%s\t%v\t%.4g\t%.4g\n", c.Name, c.Shape, lo, hi)
	}
	return w.Flush()
}

func bounds(xs []float64) (lo, hi float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	lo, hi = xs[0], xs[0]
	for _, x := range xs {
		lo = min(lo, x)
		hi = max(hi, x)
	}
	return lo, hi
}

func exportLog(cmd *cobra.Command, args []string) error {
	cfg, err := settings(cmd)
	if err != nil {
		return err
	}
	run, _, err := readLog(newLogger(cfg), args[0], "")
	if err != nil {
		return err
	}

	w, closeOut, err := output()
	if err != nil {
		return err
	}
	if err := export.Run(w, cfg.Export.Format, args[0], run, cfg.Export.Precision); err != nil {
		closeOut()
		return err
	}
	return closeOut()
}

func writeReport(cmd *cobra.Command, args []string) error {
	cfg, err := settings(cmd)
	if err != nil {
		return err
	}
	run, errs, err := readLog(newLogger(cfg), args[0], stderrFile)
	if err != nil {
		return err
	}

	title := reportTitle
	if title == "" {
		title = "Convergence report: " + args[0]
	}
	md := report.Markdown(report.Input{
		Title:   title,
		Source:  args[0],
		Run:     run,
		Summary: analysis.Summarize(run),
		Errors:  errs,
	})

	doc := md
	if asHTML {
		if doc, err = report.HTML(title, md); err != nil {
			return err
		}
	}

	w, closeOut, err := output()
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, doc); err != nil {
		closeOut()
		return err
	}
	return closeOut()
}

func browse(cmd *cobra.Command, args []string) error {
	cfg, err := settings(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	target := args[0]

	open := func(run *solverlog.LogRun, updates <-chan watch.Update) error {
		b := viz.NewBrowser(target, run, updates)
		if err := b.SetTheme(theme); err != nil {
			return err
		}
		return viz.RunBrowser(b)
	}

	if _, statErr := os.Stat(target); statErr != nil {
		if follow {
			return fmt.Errorf("--follow needs a log file: %w", statErr)
		}
		run, err := loadStored(cmd.Context(), cfg, log, target)
		if err != nil {
			return err
		}
		return open(run, nil)
	}

	if !follow {
		run, _, err := readLog(logger.New(io.Discard, "error"), target, "")
		if err != nil {
			return err
		}
		return open(run, nil)
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()
	// the browser owns the terminal, so the watcher stays quiet
	updates, err := watch.New(target, cfg.Debounce(), logger.Nop{}).Watch(ctx)
	if err != nil {
		return err
	}
	return open(nil, updates)
}

func watchLog(cmd *cobra.Command, args []string) error {
	cfg, err := settings(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	ctx, cancel := signalContext(cmd)
	defer cancel()

	updates, err := watch.New(args[0], cfg.Debounce(), log).Watch(ctx)
	if err != nil {
		return err
	}

	log.Infof("watching %s (ctrl+c to stop)", args[0])
	lastWarnings := 0
	for u := range updates {
		if errors.Is(u.Err, watch.ErrRemoved) {
			return u.Err
		}
		if u.Err != nil {
			log.Warnf("%s: %v", args[0], u.Err)
			continue
		}
		s := analysis.Summarize(u.Run)
		line := fmt.Sprintf("%d increments, %d converged, %d iterations", s.Increments, s.Converged, s.Iterations)
		if s.Converged > 0 {
			line += fmt.Sprintf(", t=%g", s.FinalTime)
		}
		log.Infof("%s", line)
		if len(u.Run.Warnings) > lastWarnings {
			log.Messages("warning", u.Run.Warnings[lastWarnings:])
			lastWarnings = len(u.Run.Warnings)
		}
	}
	return nil
}

func initConfig(cmd *cobra.Command, args []string) error {
	cfg, err := settings(cmd)
	if err != nil {
		return err
	}
	path := "damaskio.yaml"
	if len(args) > 0 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
