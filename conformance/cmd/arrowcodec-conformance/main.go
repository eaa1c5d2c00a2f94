// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Query-farm/arrowcodec/arrowcodec"
	codecotel "github.com/Query-farm/arrowcodec/arrowcodec/otel"
	"github.com/Query-farm/arrowcodec/conformance"
)

// descriptors lists the fixture types the describe command knows.
var descriptors = map[string]func(...arrowcodec.Option) (arrowcodec.Descriptor, error){
	"point":        arrowcodec.DescriptorOf[conformance.Point],
	"bounding_box": arrowcodec.DescriptorOf[conformance.BoundingBox],
	"all_types":    arrowcodec.DescriptorOf[conformance.AllTypes],
	"shape":        arrowcodec.DescriptorOf[conformance.Shape],
	"sparse_shape": arrowcodec.DescriptorOf[conformance.SparseShape],
}

func main() {
	root := &cobra.Command{
		Use:           "arrowcodec-conformance",
		Short:         "Run the arrowcodec round-trip conformance suite",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var filter string
	var withOtel, verbose, list bool
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the conformance cases",
		Long: `Run every conformance case, or those whose name contains --filter.
With --otel, spans and metrics for each encode and decode are written to stderr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
			}
			if list {
				for _, c := range conformance.Cases() {
					fmt.Fprintf(cmd.OutOrStdout(), "%-28s %s\n", c.Name, c.Description)
				}
				return nil
			}
			return runSuite(cmd.Context(), cmd.OutOrStdout(), filter, withOtel)
		},
	}
	runCmd.Flags().StringVarP(&filter, "filter", "f", "", "Only run cases whose name contains this string")
	runCmd.Flags().BoolVar(&withOtel, "otel", false, "Export spans and metrics to stderr")
	runCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	runCmd.Flags().BoolVar(&list, "list", false, "List the cases without running them")
	root.AddCommand(runCmd)

	var asJSON bool
	describeCmd := &cobra.Command{
		Use:       "describe [type]",
		Short:     "Print the derived descriptor of a fixture type",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: descriptorNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(descriptorNames(), "\n"))
				return nil
			}
			derive, ok := descriptors[args[0]]
			if !ok {
				return fmt.Errorf("unknown type %q (one of: %s)", args[0], strings.Join(descriptorNames(), ", "))
			}
			d, err := derive()
			if err != nil {
				return err
			}
			if asJSON {
				out, err := json.MarshalIndent(d, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), arrowcodec.Describe(d))
			return nil
		},
	}
	describeCmd.Flags().BoolVar(&asJSON, "json", false, "Print the descriptor as JSON")
	root.AddCommand(describeCmd)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func descriptorNames() []string {
	names := make([]string, 0, len(descriptors))
	for name := range descriptors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func runSuite(ctx context.Context, w io.Writer, filter string, withOtel bool) error {
	var hook arrowcodec.Hook
	if withOtel {
		h, shutdown, err := stdoutHook()
		if err != nil {
			return fmt.Errorf("otel setup: %w", err)
		}
		defer func() {
			if err := shutdown(ctx); err != nil {
				slog.Error("otel shutdown", "err", err)
			}
		}()
		hook = h
	}

	results := conformance.Run(nil, hook, filter)
	if len(results) == 0 {
		return fmt.Errorf("no cases match %q", filter)
	}
	failed := 0
	for _, r := range results {
		status := "PASS"
		if !r.Passed() {
			status = "FAIL"
			failed++
		}
		fmt.Fprintf(w, "%s  %-28s rows=%-3d %v\n", status, r.Name, r.Rows, r.Duration)
		if r.Err != nil {
			fmt.Fprintf(w, "      %s: %v\n", arrowcodec.ErrorKind(r.Err), r.Err)
		}
	}
	fmt.Fprintf(w, "\n%d passed, %d failed\n", len(results)-failed, failed)
	if failed > 0 {
		return fmt.Errorf("%d conformance cases failed", failed)
	}
	return nil
}

// stdoutHook wires the OTel hook to stdout exporters writing to stderr.
func stdoutHook() (arrowcodec.Hook, func(context.Context) error, error) {
	traceExp, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, nil, err
	}
	metricExp, err := stdoutmetric.New(stdoutmetric.WithWriter(os.Stderr), stdoutmetric.WithPrettyPrint())
	if err != nil {
		return nil, nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(traceExp))
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)))

	cfg := codecotel.DefaultConfig()
	cfg.TracerProvider = tp
	cfg.MeterProvider = mp
	shutdown := func(ctx context.Context) error {
		if err := tp.Shutdown(ctx); err != nil {
			return err
		}
		return mp.Shutdown(ctx)
	}
	return codecotel.NewHook(cfg), shutdown, nil
}
