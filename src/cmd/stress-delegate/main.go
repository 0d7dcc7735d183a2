package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"screen-capture-ocr/src/eventloop"
	"screen-capture-ocr/src/singleinstance"
)

type stressOptions struct {
	n        int
	mode     string
	deadline time.Duration
}

// outcome classifies one delegated invocation.
type outcome int

const (
	outcomeOK outcome = iota
	outcomeBusy
	outcomeNoResident
	outcomeError
)

type tally struct {
	mu     sync.Mutex
	counts [4]int
}

func (t *tally) add(o outcome) {
	t.mu.Lock()
	t.counts[o]++
	t.mu.Unlock()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	return cmd.Execute()
}

func newRootCmd(opts *stressOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stress-delegate",
		Short:         "Hammer a resident instance with concurrent delegated invocations",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.mode != "std" && opts.mode != "deliver" {
				return fmt.Errorf("unknown mode %q (want std or deliver)", opts.mode)
			}
			client := singleinstance.NewClient(singleinstance.PortRangeFromEnv())
			return runWithOptions(cmd.OutOrStdout(), client, *opts)
		},
	}

	cmd.Flags().IntVar(&opts.n, "n", 50, "number of clients to launch")
	cmd.Flags().StringVar(&opts.mode, "mode", "std", "std|deliver: text back on stdout or delivered by the resident")
	cmd.Flags().DurationVar(&opts.deadline, "deadline", 5*time.Second, "per-client timeout")

	return cmd
}

func classify(delegated bool, err error) outcome {
	var remote *singleinstance.RemoteError
	switch {
	case errors.As(err, &remote) && remote.Message == eventloop.ErrBusy.Error():
		return outcomeBusy
	case err != nil:
		return outcomeError
	case !delegated:
		return outcomeNoResident
	default:
		return outcomeOK
	}
}

func runWithOptions(out io.Writer, client *singleinstance.Client, opts stressOptions) error {
	var wg sync.WaitGroup
	var t tally

	start := time.Now()
	for i := 0; i < opts.n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), opts.deadline)
			defer cancel()
			delegated, _, err := client.TryRunOnce(ctx, singleinstance.Request{OutputToStdout: opts.mode == "std"})
			t.add(classify(delegated, err))
		}()
	}
	wg.Wait()
	fmt.Fprintf(out, "launched=%d ok=%d busy=%d none=%d err=%d elapsed=%s\n",
		opts.n, t.counts[outcomeOK], t.counts[outcomeBusy], t.counts[outcomeNoResident], t.counts[outcomeError], time.Since(start))
	return nil
}
