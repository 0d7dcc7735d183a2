package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"screen-capture-ocr/src/eventloop"
	"screen-capture-ocr/src/hotkey"
	"screen-capture-ocr/src/runtimeinit"
	"screen-capture-ocr/src/singleinstance"
	"screen-capture-ocr/src/tray"
)

func newServeCmd(opts *cliOptions) *cobra.Command {
	var noTray bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Stay resident: hotkey, tray menu and delegated run-once requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(*opts, noTray)
		},
	}
	cmd.Flags().BoolVar(&noTray, "no-tray", false, "Run without the tray icon")
	return cmd
}

func serve(opts cliOptions, noTray bool) error {
	// systray and the hotkey hook want the main thread on macOS.
	runtime.LockOSThread()

	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions:  opts.loadOptions(),
		SetupLogging: opts.setupLogging,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := singleinstance.NewServer(singleinstance.PortRangeFromEnv())
	if err := srv.Start(ctx); err != nil {
		return err
	}
	defer srv.Close()

	var deadline time.Duration
	if sec := rt.Config.OCRDeadlineSec; rt.Pipeline.Name() == "ocr" && sec > 0 {
		// one extra second lets the dispatcher report its own timeout first
		deadline = time.Duration(sec+1) * time.Second
	}
	status := func(string) {}
	if !noTray {
		status = tray.SetTooltip
	}
	loop := eventloop.New(eventloop.Options{
		Pipeline: rt.Pipeline,
		Router:   rt.Router,
		Server:   srv,
		Deadline: deadline,
		Status:   status,
	})

	if rt.Config.Hotkey != "" {
		go func() {
			if err := hotkey.Listen(ctx, rt.Config.Hotkey, loop.Trigger); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("hotkey: %v", err)
			}
		}()
	}

	loopErr := make(chan error, 1)
	go func() { loopErr <- loop.Run(ctx) }()
	log.Printf("Resident listening on 127.0.0.1:%d (pipeline %s)", srv.Port(), rt.Pipeline.Name())

	if noTray {
		err = <-loopErr
	} else {
		go func() {
			<-ctx.Done()
			tray.Quit()
		}()
		tray.Run(tray.Menu{
			About:     fmt.Sprintf("Resident TCP port: %d", srv.Port()),
			OnCapture: loop.Trigger,
			OnQuit:    stop,
		})
		stop()
		err = <-loopErr
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
