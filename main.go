// SPDX-License-Identifier: MIT
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"stemscope/cmd"
	"stemscope/internal/analyzer"
	"stemscope/internal/build"
	"stemscope/internal/config"
	"stemscope/internal/graph"
	applog "stemscope/internal/log"
	"stemscope/internal/sched"
	"stemscope/internal/transport"
	"stemscope/internal/transport/udp"
	"stemscope/internal/tui"
)

// main is the entry point for the stem analysis engine. The program flow
// has three phases:
//
// 1. Startup (cold path): build info, PortAudio init, argument parsing,
// one-off commands, stem loading.
//
// 2. Concurrent (hot path): playback mixing, optional microphone capture,
// frame-driven analysis snapshots delivered to the configured transports.
//
// 3. Shutdown (cold path): cancel the scheduler first so no consumer runs
// against a torn-down graph, then release the audio graph and transports.
func main() {
	build.Initialize()

	// One thread for the audio callbacks, one for scheduling and I/O.
	runtime.GOMAXPROCS(2)

	if err := graph.Initialize(); err != nil {
		log.Fatal(err)
	}
	defer func() {
		if err := graph.Terminate(); err != nil {
			applog.Errorf("PortAudio terminate: %v", err)
		}
	}()

	opts, err := cmd.ParseArgs()
	if err != nil {
		log.Fatal(err)
	}
	cfg := opts.Config

	if level, ok := applog.ParseLevel(cfg.LogLevel); ok {
		applog.SetLevel(level)
	}
	if cfg.Debug {
		applog.SetLevel(applog.LevelDebug)
	}

	if opts.Command == "list" {
		if err := listDevices(opts.Pick); err != nil {
			log.Fatal(err)
		}
		return
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	mgr := graph.NewManager(cfg)
	defer mgr.Cleanup()

	result, err := mgr.LoadStemDir(cfg.Stems.Dir)
	if err != nil {
		log.Fatal(err)
	}
	for role, loadErr := range result.Failed {
		applog.Warnf("stem %q not loaded: %v", role, loadErr)
	}
	if len(result.Loaded) == 0 && !opts.Mic {
		log.Fatalf("no stems loaded from %s and microphone disabled, nothing to analyze", cfg.Stems.Dir)
	}

	if opts.Mic && !mgr.StartMicrophone() {
		applog.Warnf("continuing without microphone input")
	}

	transports := buildTransports(cfg)
	defer func() {
		for _, tr := range transports {
			if err := tr.Close(); err != nil {
				applog.Errorf("transport close: %v", err)
			}
		}
	}()

	scheduler := sched.New(mgr, cfg.Analysis.FrameRate)
	started := scheduler.Start(func(frame analyzer.AggregatedSnapshot) {
		for _, tr := range transports {
			if err := tr.Send(frame); err != nil {
				applog.Debugf("transport send: %v", err)
			}
		}
	})
	if !started {
		log.Fatal("failed to start the analysis scheduler")
	}
	defer scheduler.Cancel()

	if err := mgr.Play(); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("%s: analyzing %d source(s) at %d fps. Ctrl+C to stop.\n",
		build.GetInfo().Name, mgr.SourceCount(), cfg.Analysis.FrameRate)

	<-done

	// Deferred shutdown runs in reverse: scheduler, transports, graph,
	// PortAudio.
}

// buildTransports assembles the snapshot consumers enabled in cfg. The
// logging transport is always present so a bare invocation still shows
// frames arriving at debug level.
func buildTransports(cfg *config.Config) []transport.Transport {
	transports := []transport.Transport{transport.NewLoggingTransport()}

	if cfg.Transport.WebSocketEnabled {
		transports = append(transports, transport.NewWebSocketTransport(cfg.Transport.WebSocketAddr))
	}

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			applog.Errorf("UDP transport disabled: %v", err)
		} else {
			transports = append(transports, udp.NewPublisher(sender))
		}
	}

	return transports
}

// listDevices prints the device table, or runs the interactive picker
// when requested.
func listDevices(pick bool) error {
	if !pick {
		return graph.ListDevices()
	}

	sel, ok, err := tui.PickInputDevice()
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("No device selected.")
		return nil
	}
	fmt.Printf("Selected device %d at %.0f Hz.\n", sel.DeviceID, sel.SampleRate)
	fmt.Printf("Run with: %s --device %d --sample-rate %.0f --mic\n",
		build.GetInfo().Name, sel.DeviceID, sel.SampleRate)
	return nil
}
