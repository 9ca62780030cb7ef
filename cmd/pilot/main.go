// Command pilot is a headless client. It flies the local flight model under
// an autopilot, reports its state to a server, fires periodically and keeps
// smoothed poses for every other pilot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"flightsim-server/logging"
)

func main() {
	url := pflag.String("url", "ws://localhost:3000/ws", "server websocket URL")
	name := pflag.String("name", "Pilot", "username")
	aircraft := pflag.String("aircraft", "raptor", "aircraft: raptor or dragon")
	count := pflag.IntP("count", "n", 1, "number of pilots to fly")
	duration := pflag.Duration("duration", 0, "stop after this long (0 = until interrupted)")
	fireEvery := pflag.Duration("fire", 2*time.Second, "fire interval (0 disables)")
	level := pflag.String("log-level", "info", "log level")
	pretty := pflag.Bool("log-pretty", true, "human readable logs")
	pflag.Parse()

	logging.Setup(*level, *pretty)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	var wg sync.WaitGroup
	failed := make(chan error, *count)
	for i := 0; i < *count; i++ {
		username := *name
		if *count > 1 {
			username = fmt.Sprintf("%s%d", *name, i+1)
		}
		p := NewPilot(Options{
			URL:          *url,
			Username:     username,
			Aircraft:     *aircraft,
			FireInterval: *fireEvery,
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Run(ctx); err != nil {
				log.Error().Err(err).Str("pilot", username).Msg("pilot stopped")
				failed <- err
			}
		}()
	}
	wg.Wait()

	if len(failed) > 0 {
		os.Exit(1)
	}
}
