// Command click-sensor watches a push button on a GPIO pin and publishes
// debounced clicks to MQTT.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/sweeney/click-sensor/internal/button"
	"github.com/sweeney/click-sensor/internal/gpio"
	"github.com/sweeney/click-sensor/internal/mqtt"
	"github.com/sweeney/click-sensor/internal/status"
	"github.com/sweeney/click-sensor/internal/web"
)

// Config holds the host settings. There are no flags; edit defaultConfig.
type Config struct {
	Chip     string
	Pin      int
	Debounce time.Duration
	Poll     time.Duration
	Mode     button.Mode
	Broker   string
	ClientID string
	HTTPAddr string // empty disables the status server
}

func defaultConfig() Config {
	return Config{
		Chip:     gpio.DefaultChip,
		Pin:      gpio.DefaultPin,
		Debounce: button.DefaultDebounce,
		Poll:     5 * time.Millisecond,
		Mode:     button.ModeLeadingEdge,
		Broker:   "tcp://192.168.1.200:1883",
		ClientID: gpio.Consumer,
		HTTPAddr: ":80",
	}
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	log := logger.Sugar()

	err = run(defaultConfig(), clock.New(), log)
	_ = logger.Sync()
	if err != nil {
		log.Fatalw("fatal", "error", err)
	}
}

func run(cfg Config, clk clock.Clock, log *zap.SugaredLogger) error {
	if undersampled(cfg.Poll, cfg.Debounce) {
		log.Warnw("poll interval is not much shorter than the debounce window; bounces may be missed",
			"poll", cfg.Poll, "debounce", cfg.Debounce)
	}

	pins, err := openPins(cfg.Chip, clk, log)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer func() {
		if err := pins.Close(); err != nil {
			log.Warnw("gpio close", "error", err)
		}
	}()

	btn := button.New(pins, cfg.Pin, button.WithDebounce(cfg.Debounce), button.WithMode(cfg.Mode))
	if err := pins.Err(cfg.Pin); err != nil {
		return fmt.Errorf("configure pin %d: %w", cfg.Pin, err)
	}

	publisher := mqtt.NewRealPublisher(cfg.Broker, cfg.ClientID, log)
	defer publisher.Close()

	// Tracker exists before STARTUP so the event carries a full snapshot.
	tracker := status.NewTracker(clk.Now, status.Config{
		Pin:        cfg.Pin,
		PollMs:     cfg.Poll.Milliseconds(),
		DebounceMs: btn.Debounce().Milliseconds(),
		Mode:       btn.Mode().String(),
		Broker:     cfg.Broker,
		HTTPAddr:   cfg.HTTPAddr,
	})
	tracker.Update(btn.Level(), btn.State())
	tracker.SetMQTTConnected(publisher.IsConnected())

	snap := tracker.Snapshot()
	startup := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startup); err != nil {
		log.Errorw("failed to publish startup event", "error", err)
	} else {
		log.Infow("published startup event")
	}

	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorw("http server error", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Infow("http status server listening", "addr", cfg.HTTPAddr)
	}

	log.Infow("started",
		"pin", cfg.Pin,
		"poll", cfg.Poll,
		"debounce", btn.Debounce(),
		"mode", btn.Mode(),
		"broker", cfg.Broker)

	ticker := clk.Ticker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(btn, publisher, publisher, tracker, clk.Now, ticker.C, sigCh, log)
}

// openPins prefers the GPIO character device and falls back to periph.io's
// host drivers on kernels or platforms without it.
func openPins(chip string, clk clock.Clock, log *zap.SugaredLogger) (gpio.Pins, error) {
	rp, err := gpio.NewRealPins(chip, clk, log)
	if err == nil {
		return rp, nil
	}
	log.Warnw("gpio character device unavailable, trying periph.io", "chip", chip, "error", err)

	p, perr := gpio.NewPeriphPins(clk, log)
	if perr != nil {
		return nil, errors.Join(err, perr)
	}
	return p, nil
}

// undersampled reports whether poll is too coarse to see bounces inside the
// debounce window. At least two samples per window are expected.
func undersampled(poll, debounce time.Duration) bool {
	return debounce > 0 && poll*2 > debounce
}

func runLoop(btn *button.Button, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal, log *zap.SugaredLogger) error {
	count := 0

	for {
		select {
		case s := <-sig:
			name := signalName(s)
			log.Infow("shutting down", "signal", name)

			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    name,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				event.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "SHUTDOWN", name)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Errorw("failed to publish shutdown event", "error", err)
			} else {
				log.Infow("published shutdown event")
			}
			return nil

		case <-tick:
			if btn.IsClicked() {
				count++
				click := button.Click{
					Timestamp: now(),
					Pin:       btn.Pin(),
					Count:     count,
				}
				log.Infow("click", "pin", click.Pin, "count", click.Count)
				if tracker != nil {
					tracker.RecordClick(click)
				}
				if err := publisher.Publish(click); err != nil {
					// Keep polling; the click is already counted.
					log.Errorw("publish error", "error", err, "count", click.Count)
				}
			}

			if tracker != nil {
				tracker.Update(btn.Level(), btn.State())
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}
		}
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}
