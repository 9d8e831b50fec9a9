// Package cli is the strak command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"strakmachine/config"
	"strakmachine/inputfile"
	"strakmachine/logger"
	"strakmachine/params"
	"strakmachine/pipeline"
	"strakmachine/server"
	"strakmachine/worker"
)

var (
	configPath string
	paramsPath string
	logLevel   string

	rootCmd = &cobra.Command{
		Use:           "strak",
		Short:         "Target polars and optimizer input files for an airfoil strak",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Generate polars, targets and input files, then run the optimizer for every airfoil",
		RunE:  stageRunner(pipeline.StageAll),
	}
	targetsCmd = &cobra.Command{
		Use:   "targets",
		Short: "Generate polars, targets, input files and target polars without optimizing",
		RunE:  stageRunner(pipeline.StageTargets),
	}
	polarsCmd = &cobra.Command{
		Use:   "polars",
		Short: "Generate the root airfoil polars at every Reynolds number",
		RunE:  stageRunner(pipeline.StagePolars),
	}
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve op-points and target polars to the review GUI",
		RunE:  runServe,
	}
	plotCmd = &cobra.Command{
		Use:   "plot <airfoil>",
		Short: "Draw reference, target and achieved polar of an airfoil",
		Args:  cobra.ExactArgs(1),
		RunE:  runPlot,
	}
	paramsCmd = &cobra.Command{
		Use:   "params",
		Short: "Inspect the parameter file",
	}
	paramsCheckCmd = &cobra.Command{
		Use:   "check",
		Short: "Validate the parameter file and print the strak it describes",
		RunE:  runParamsCheck,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "tool configuration file")
	rootCmd.PersistentFlags().StringVar(&paramsPath, "params", "", "parameter file, overrides the configured one")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error, overrides the configured level")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(targetsCmd)
	rootCmd.AddCommand(polarsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(plotCmd)
	rootCmd.AddCommand(paramsCmd)
	paramsCmd.AddCommand(paramsCheckCmd)
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// env is what every command works with.
type env struct {
	cfg    *config.Config
	params *params.Params
	pl     *pipeline.Pipeline
	log    io.Closer
}

func (e *env) Close() error {
	return e.log.Close()
}

func setup(withPipeline bool) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if paramsPath != "" {
		cfg.Params = paramsPath
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	e := &env{cfg: cfg}
	e.log = logger.Init(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile, Dir: cfg.BuildDir})

	if e.params, err = params.LoadFile(cfg.Params); err != nil {
		e.Close()
		return nil, err
	}
	if !withPipeline {
		return e, nil
	}

	tmpl, err := inputfile.Template(cfg.Template)
	if err != nil {
		e.Close()
		return nil, err
	}
	runner := worker.ExecRunner{Timeout: time.Duration(cfg.Timeout) * time.Second}
	e.pl, err = pipeline.New(e.params, runner, pipeline.Options{
		BuildDir:    cfg.BuildDir,
		ParamsFile:  cfg.Params,
		PolarWorker: cfg.PolarWorker,
		Optimizer:   cfg.Optimizer,
		Probe:       worker.Range{Min: cfg.AlphaMin, Max: cfg.AlphaMax, Step: cfg.AlphaStep},
		Template:    tmpl,
	})
	if err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func stageRunner(stage pipeline.Stage) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := setup(true)
		if err != nil {
			return err
		}
		defer e.Close()

		start := time.Now()
		if err := e.pl.Run(cmd.Context(), stage); err != nil {
			return err
		}
		log.WithFields(log.Fields{
			"stage":    stage.String(),
			"airfoils": e.params.NumAirfoils(),
			"duration": time.Since(start).Round(time.Second),
		}).Info("strak done")
		return nil
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	e, err := setup(true)
	if err != nil {
		return err
	}
	defer e.Close()

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	s := server.NewServer(e.cfg.Addr, upgrader, e.pl)

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error { return s.Watch(ctx, e.cfg.Params) })
	g.Go(func() error { return s.Serve(ctx) })
	return g.Wait()
}

func runPlot(cmd *cobra.Command, args []string) error {
	e, err := setup(true)
	if err != nil {
		return err
	}
	defer e.Close()

	i, err := e.pl.Index(args[0])
	if err != nil {
		return err
	}
	path, err := e.pl.Diagram(cmd.Context(), i)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func runParamsCheck(cmd *cobra.Command, args []string) error {
	e, err := setup(false)
	if err != nil {
		return err
	}
	defer e.Close()

	p := e.params
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "seed airfoil  %s\n", p.SeedFoilName)
	fmt.Fprintf(out, "quality       %s, %d pass(es)\n", p.QualityPreset(), len(p.QualityPreset().Passes()))
	fmt.Fprintf(out, "op-points     %d\n", p.NumOpPoints)
	fmt.Fprintf(out, "max Re        %.0f\n", p.MaxRe())
	for i, a := range p.Airfoils(filepath.Dir(e.cfg.Params)) {
		fmt.Fprintf(out, "%2d  %-16s %-5s Re %8.0f  T1 polar Re %9.0f\n", i, a.Name, a.Type, a.Re, p.T1Re(i))
	}
	return nil
}
