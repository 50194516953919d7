package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kndndrj/priam/adapters"
	"github.com/kndndrj/priam/core"
	"github.com/kndndrj/priam/core/format"
)

type options struct {
	cluster    adapters.Config
	configPath string
	timeout    time.Duration
	format     string
	binds      []string
	repeat     int
	maxFlight  int64
	logLevel   string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "priam [flags] <query>",
		Short: "Execute a CQL statement and print the result",
		Long: `Prepares a CQL statement, binds the given parameters and executes it
asynchronously, as many times as requested, printing every result.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.OutOrStdout(), opts, args[0])
		},
	}

	fs := flag.NewFlagSet("cluster", flag.ContinueOnError)
	opts.cluster.RegisterFlags(fs)
	cmd.Flags().AddGoFlagSet(fs)

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to a yaml cluster config, overrides cluster flags.")
	cmd.Flags().DurationVarP(&opts.timeout, "timeout", "t", time.Second, "Timeout of each execution.")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "table", "Output format (table, json, csv).")
	cmd.Flags().StringArrayVarP(&opts.binds, "bind", "b", nil, "Bind parameter as type:value, in marker order (e.g. int:42).")
	cmd.Flags().IntVarP(&opts.repeat, "repeat", "n", 1, "Number of statements to execute concurrently.")
	cmd.Flags().Int64Var(&opts.maxFlight, "max-in-flight", 0, "Limit of concurrently executing statements, 0 for no limit.")
	cmd.Flags().StringVar(&opts.logLevel, "log.level", "info", "Log level (debug, info, warn, error).")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Print status, row and column counts of every result.")

	return cmd
}

func newLogger(lvl string) log.Logger {
	var allow level.Option
	switch lvl {
	case "debug":
		allow = level.AllowDebug()
	case "warn":
		allow = level.AllowWarn()
	case "error":
		allow = level.AllowError()
	default:
		allow = level.AllowInfo()
	}

	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = level.NewFilter(logger, allow)
	return log.With(logger, "ts", log.DefaultTimestampUTC)
}

func run(out io.Writer, opts *options, query string) error {
	logger := newLogger(opts.logLevel)
	adapters.SetDriverLogger(logger)

	if opts.configPath != "" {
		if err := adapters.LoadConfig(opts.configPath, &opts.cluster); err != nil {
			return err
		}
	}
	if opts.repeat < 1 {
		return fmt.Errorf("invalid repeat count: %d", opts.repeat)
	}

	formatter, err := format.New(opts.format)
	if err != nil {
		return err
	}

	adapter, err := (&adapters.Mux{}).GetAdapter(&opts.cluster, adapters.ClusterWithLogger(logger))
	if err != nil {
		return fmt.Errorf("cluster config: %w", err)
	}

	client, err := core.NewClient(adapter,
		core.WithLogger(logger),
		core.WithMaxInFlight(opts.maxFlight),
		core.WithPrepareTimeout(opts.timeout),
	)
	if err != nil {
		return err
	}
	defer client.Close()

	prepared, err := client.CreatePrepared("cli", query)
	if err != nil {
		return err
	}
	defer prepared.Release()

	if len(opts.binds) > prepared.GetParamCount() {
		return fmt.Errorf("query takes %d parameters, got %d", prepared.GetParamCount(), len(opts.binds))
	}

	// output of concurrent callbacks must not interleave
	var mu sync.Mutex
	printResult := func(result *core.Result) error {
		if opts.verbose {
			fmt.Fprintf(out, "Status code: %s\nRow count: %d\nColumn count: %d\n",
				result.GetStatusCode(), result.GetRowCount(), result.GetColumnCount())
		}
		if result.GetStatusCode() != core.StatusOK {
			return fmt.Errorf("%s: %s", result.GetStatusCode(), result.GetStatusMessage())
		}

		header, rows, err := format.Records(result)
		if err != nil {
			return err
		}
		return formatter.Format(header, rows, out)
	}

	var g errgroup.Group
	for i := 0; i < opts.repeat; i++ {
		stmt := prepared.CreateStatement()
		for pos, arg := range opts.binds {
			if err := bindArg(stmt, arg, pos); err != nil {
				stmt.Discard()
				return err
			}
		}

		var resultErr error
		call := client.ExecuteStatement(stmt, func(result *core.Result) {
			mu.Lock()
			defer mu.Unlock()
			resultErr = printResult(result)
		}, opts.timeout)

		g.Go(func() error {
			<-call.Done()
			level.Debug(logger).Log("msg", "statement finished", "call", call.GetID(), "state", call.GetState(), "took", call.GetTimeTaken())
			return resultErr
		})
	}

	return g.Wait()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
