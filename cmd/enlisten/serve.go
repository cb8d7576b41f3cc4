package main

import (
	"errors"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nadzzz/enlisten/internal/compile"
	"github.com/nadzzz/enlisten/internal/dispatch"
	"github.com/nadzzz/enlisten/internal/health"
	"github.com/nadzzz/enlisten/internal/message"
	"github.com/nadzzz/enlisten/internal/transport"
	grpctransport "github.com/nadzzz/enlisten/internal/transport/grpc"
	httptransport "github.com/nadzzz/enlisten/internal/transport/http"
	mqtttransport "github.com/nadzzz/enlisten/internal/transport/mqtt"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the compile daemon on the enabled transports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			slog.Info("enlisten starting", "version", version)

			// Fail fast on bad defaults; requests only override them.
			if _, err := compile.OptionsFromConfig(cfg.Compile, cfg.TTS.OpenAI.Instructions); err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			synth, err := newSynthesizer(cfg.TTS, true)
			if err != nil {
				return err
			}
			defer synth.Close()
			slog.Info("synthesis backend ready", "backend", synth.Name())

			var dispatcher *dispatch.Dispatcher
			voices := func() message.VoiceCatalog { return dispatcher.Voices() }

			var transports []transport.Transport
			if cfg.Transports.GRPC.Enabled {
				transports = append(transports, grpctransport.New(cfg.Transports.GRPC.Port))
			}
			if cfg.Transports.HTTP.Enabled {
				transports = append(transports, httptransport.New(cfg.Transports.HTTP.Port, voices))
			}
			if cfg.Transports.MQTT.Enabled {
				transports = append(transports, mqtttransport.New(cfg.Transports.MQTT))
			}
			if len(transports) == 0 {
				return errors.New("no transports enabled, enable at least one in config")
			}

			dispatcher = dispatch.New(synth, cfg.Compile, cfg.TTS.OpenAI.Instructions, transports)

			healthServer := health.New(cfg.Server.HealthPort, dispatcher)
			go func() {
				if err := healthServer.ListenAndServe(ctx); err != nil {
					slog.Error("health server failed", "error", err)
				}
			}()

			var wg sync.WaitGroup
			for _, t := range transports {
				wg.Add(1)
				go func(t transport.Transport) {
					defer wg.Done()
					slog.Info("starting transport", "name", t.Name())
					if err := t.Listen(ctx, dispatcher.Handle); err != nil {
						slog.Error("transport failed", "name", t.Name(), "error", err)
					}
				}(t)
			}

			healthServer.SetReady(true)
			slog.Info("enlisten ready",
				"transports", len(transports),
				"health_port", cfg.Server.HealthPort)

			<-ctx.Done()
			slog.Info("shutdown signal received, draining...")
			healthServer.SetReady(false)

			for _, t := range transports {
				if err := t.Close(); err != nil {
					slog.Error("transport close error", "name", t.Name(), "error", err)
				}
			}

			wg.Wait()
			slog.Info("enlisten stopped")
			return nil
		},
	}
	addCompileFlags(cmd.Flags())
	return cmd
}
