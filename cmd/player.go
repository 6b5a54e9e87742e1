package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"groove/internal/config"
	"groove/internal/engine"
	"groove/internal/log"
	"groove/internal/output"
	"groove/internal/transport"
	"groove/internal/transport/udp"
	"groove/internal/tui"
)

const tuiLogFile = "groove.log"

// runPlayer wires the engine to its sinks and publishers and runs until the
// user quits or a termination signal arrives.
func runPlayer(parent context.Context, cfg *config.Config, opts *options) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Log lines would tear the alternate screen.
	if !opts.noTUI {
		var w io.Writer = io.Discard
		if cfg.Debug {
			f, err := os.OpenFile(tuiLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return fmt.Errorf("failed to open log file: %w", err)
			}
			defer f.Close()
			w = f
		}
		log.SetOutput(w)
		defer log.SetOutput(os.Stderr)
	}

	eng, err := engine.New(cfg, engine.Options{})
	if err != nil {
		return err
	}
	running := false
	defer func() {
		if !running {
			eng.Close()
		}
	}()

	if cfg.Output.Enabled {
		if err := output.Initialize(); err != nil {
			return err
		}
		defer output.Terminate()

		stream, err := output.OpenStream(cfg.Output)
		if err != nil {
			return err
		}
		defer stream.Close()
		if _, err := eng.Output(stream); err != nil {
			return err
		}
		if err := stream.Start(); err != nil {
			return err
		}
	}

	if opts.record != "" {
		rec, err := output.NewRecorder(opts.record, cfg.Output.SampleRate)
		if err != nil {
			return err
		}
		defer func() {
			if err := rec.Close(); err != nil {
				log.Errorf("Error stopping recording: %v", err)
				return
			}
			log.Infof("Recording saved to: %s (%d frames)", opts.record, rec.Frames())
		}()
		if _, err := eng.Output(rec); err != nil {
			return err
		}
	}

	transports, err := openTransports(cfg, opts)
	for _, t := range transports {
		defer t.Close()
		eng.AddPublisher(t)
	}
	if err != nil {
		return err
	}

	errc := make(chan error, 1)
	running = true
	go func() { errc <- eng.Run(ctx) }()

	if opts.noTUI {
		eng.Do((*engine.Engine).Play)
		return <-errc
	}

	uiErr := tui.Run(eng)
	stop()
	if err := <-errc; err != nil {
		log.Errorf("Error closing engine: %v", err)
	}
	return uiErr
}

// openTransports starts every configured renderer feed. On error the ones
// already open are returned so the caller can close them.
func openTransports(cfg *config.Config, opts *options) ([]transport.Transport, error) {
	var out []transport.Transport

	if cfg.Transport.WebSocketEnabled {
		wst, err := transport.NewWebSocketTransport(cfg.Transport.WebSocketAddr)
		if err != nil {
			return out, err
		}
		out = append(out, wst)
	}

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			return out, err
		}
		pub, err := udp.NewPublisher(cfg.Transport.UDPSendInterval, sender, nil)
		if err != nil {
			sender.Close()
			return out, err
		}
		pub.Start()
		out = append(out, pub)
	}

	if opts.noTUI && cfg.Debug {
		out = append(out, transport.NewLoggingTransport())
	}
	return out, nil
}
