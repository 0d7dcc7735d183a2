package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"screen-capture-ocr/src/config"
	"screen-capture-ocr/src/delivery"
	"screen-capture-ocr/src/logutil"
	"screen-capture-ocr/src/pipeline"
	"screen-capture-ocr/src/runtimeinit"
	"screen-capture-ocr/src/singleinstance"
)

type cliOptions struct {
	pipeline    string
	output      string
	format      string
	resourceDir string
	cpuVendor   string
	stdout      bool
	noDelegate  bool
	verbose     bool
	progress    bool
}

func (o cliOptions) loadOptions() config.LoadOptions {
	return config.LoadOptions{
		PipelineOverride:     o.pipeline,
		OutputPathOverride:   o.output,
		OutputFormatOverride: o.format,
		ResourceDirOverride:  o.resourceDir,
		CPUVendorOverride:    o.cpuVendor,
	}
}

// hasOverrides reports whether any flag changes what a single invocation
// does. A resident runs with its own configuration, so such invocations
// are never delegated.
func (o cliOptions) hasOverrides() bool {
	for _, v := range []string{o.pipeline, o.output, o.format, o.resourceDir, o.cpuVendor} {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}

func (o cliOptions) setupLogging(cfg *config.Config) {
	logutil.Setup(logutil.Options{EnableFileLogging: cfg.EnableFileLogging, Verbose: o.verbose})
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return runWithArgs(normalizeLegacyArgs(os.Args))
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"screencap"}
	}

	opts := &cliOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "screencap",
		Short:         "Capture the primary display to an image, or run the bundled OCR on macOS",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd.Context(), *opts, cmd.OutOrStdout())
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.pipeline, "pipeline", "", "Pipeline to run: auto, capture or ocr")
	flags.StringVarP(&opts.output, "output", "o", "", "Output image path (default screenshot.png)")
	flags.StringVar(&opts.format, "format", "", "Output image format: png, bmp or tiff (default from extension)")
	flags.StringVar(&opts.resourceDir, "resource-dir", "", "Directory holding resources/bin/ocr_*")
	flags.StringVar(&opts.cpuVendor, "cpu-vendor", "", "Skip CPU detection and use this vendor")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")

	cmd.Flags().BoolVar(&opts.stdout, "stdout", false, "Print recognized text instead of delivering it to the host")
	cmd.Flags().BoolVar(&opts.noDelegate, "no-delegate", false, "Do not hand the invocation to a resident instance")
	cmd.Flags().BoolVar(&opts.progress, "progress", false, "Show a progress spinner on stderr")

	cmd.AddCommand(newServeCmd(opts))
	return cmd
}

// runOnce performs one invocation, delegating to a resident when one answers.
func runOnce(ctx context.Context, opts cliOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if !opts.verbose {
		log.SetOutput(io.Discard)
	}

	delegate := !opts.noDelegate
	if delegate && opts.hasOverrides() {
		log.Printf("Invocation flags set, not delegating to a resident")
		delegate = false
	}
	if delegate {
		// .env may carry SINGLEINSTANCE_PORT_* for the scan.
		_, _ = config.LoadWithOptions(opts.loadOptions())
		client := singleinstance.NewClient(singleinstance.PortRangeFromEnv())
		delegated, payload, err := client.TryRunOnce(ctx, singleinstance.Request{OutputToStdout: opts.stdout})
		if delegated {
			if err != nil {
				return err
			}
			return printPayload(out, opts, payload)
		}
		log.Printf("No resident detected, running standalone")
	}

	bopts := runtimeinit.Options{LoadOptions: opts.loadOptions(), SetupLogging: opts.setupLogging}
	if opts.stdout {
		bopts.Sink = &delivery.WriterSink{W: out}
		bopts.Focus = delivery.Discard
	}
	rt, err := runtimeinit.Bootstrap(bopts)
	if err != nil {
		return err
	}

	var s *spinner.Spinner
	if opts.progress {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		s.Suffix = fmt.Sprintf(" Running %s...", rt.Pipeline.Name())
		s.Start()
	}
	res, err := pipeline.CaptureOrRecognize(ctx, rt.Pipeline, rt.Router)
	if s != nil {
		s.Stop()
	}
	if err != nil {
		return err
	}
	if res.Path != "" {
		fmt.Fprintf(out, "Image saved to %s\n", res.Path)
	}
	return nil
}

// printPayload prints what a resident returned: the text for --stdout, or
// the saved image path.
func printPayload(out io.Writer, opts cliOptions, payload string) error {
	if opts.stdout {
		_, err := io.WriteString(out, payload)
		return err
	}
	if payload != "" {
		fmt.Fprintf(out, "Image saved to %s\n", payload)
	}
	return nil
}

// normalizeLegacyArgs maps single-dash long flags (-stdout, -output=x) to
// their GNU forms so older scripts keep working.
func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	long := []string{"pipeline", "output", "format", "resource-dir", "cpu-vendor", "stdout", "no-delegate", "verbose", "progress"}
	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		if arg == "--" {
			break
		}
		if arg == "-run-once" || arg == "--run-once" {
			// the root command is the run-once mode
			normalized = append(normalized[:i], normalized[i+1:]...)
			i--
			continue
		}
		for _, name := range long {
			switch {
			case arg == "-"+name:
				normalized[i] = "--" + name
			case strings.HasPrefix(arg, "-"+name+"="):
				normalized[i] = "-" + arg
			}
		}
	}

	return normalized
}
