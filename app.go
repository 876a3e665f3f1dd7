package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/rgbnode/internal/api"
	"github.com/smazurov/rgbnode/internal/bus"
	"github.com/smazurov/rgbnode/internal/color"
	"github.com/smazurov/rgbnode/internal/config"
	"github.com/smazurov/rgbnode/internal/dispatch"
	"github.com/smazurov/rgbnode/internal/events"
	"github.com/smazurov/rgbnode/internal/logging"
	"github.com/smazurov/rgbnode/internal/metrics/collectors"
	"github.com/smazurov/rgbnode/internal/metrics/exporters"
	"github.com/smazurov/rgbnode/internal/network"
	"github.com/smazurov/rgbnode/internal/node"
	"github.com/smazurov/rgbnode/internal/pixel"
	"github.com/smazurov/rgbnode/internal/playback"
	"github.com/smazurov/rgbnode/internal/sequence"
	"github.com/smazurov/rgbnode/internal/systemd"
	"github.com/smazurov/rgbnode/internal/updater"
)

// app is one running node: the pixel, the store, the broker session and
// everything that reads or writes them.
type app struct {
	opts   *Options
	logger *slog.Logger
	busURL string
	policy playback.FailurePolicy

	events           *events.Bus
	eventCollector   *collectors.EventCollector
	sessionCollector *collectors.SessionCollector
	notifier         *systemd.Notifier

	renderer   *pixel.Synchronized
	store      *sequence.Store
	embedded   *bus.Server
	client     bus.Client
	dispatcher *dispatch.Dispatcher
	loop       *playback.Loop

	playbackWatcher *config.Watcher[config.Playback]
	loggingWatcher  *config.Watcher[logging.Config]
	server          *api.Server

	ctx          context.Context
	cancel       context.CancelFunc
	done         chan struct{}
	shutdownOnce sync.Once
}

func newApp(opts *Options) (*app, error) {
	policy, err := playback.ParseFailurePolicy(opts.PlaybackFailurePolicy)
	if err != nil {
		return nil, err
	}

	a := &app{
		opts:     opts,
		logger:   logging.GetLogger("main"),
		busURL:   opts.BusURL,
		policy:   policy,
		events:   events.New(),
		notifier: systemd.NewNotifier(logging.GetLogger("systemd")),
		store:    sequence.New(),
		done:     make(chan struct{}),
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())
	a.eventCollector = collectors.NewEventCollector(a.events)

	dev, err := pixel.New(pixel.Config{
		Driver:     opts.PixelDriver,
		Count:      opts.PixelCount,
		SysfsRoot:  opts.PixelSysfsRoot,
		SysfsName:  opts.PixelSysfsName,
		SerialPort: opts.PixelSerialPort,
		SerialBaud: opts.PixelSerialBaud,
	}, logging.GetLogger("pixel"))
	if err != nil {
		return nil, fmt.Errorf("failed to open pixel device %q: %w", opts.PixelDriver, err)
	}
	a.renderer = pixel.NewSynchronized(dev, opts.PixelCount, opts.PlaybackBrightness)

	if opts.BusEmbedded {
		a.embedded = bus.NewServer(bus.ServerOptions{
			Port:     opts.BusEmbeddedPort,
			Username: opts.BusUsername,
			Password: opts.BusPassword,
			Logger:   logging.GetLogger("bus"),
		})
		a.busURL = a.embedded.ClientURL()
	}

	a.client, err = bus.New(bus.Options{
		URL:      a.busURL,
		ClientID: node.ClientID(),
		Username: opts.BusUsername,
		Password: opts.BusPassword,
		Logger:   logging.GetLogger("bus"),
	})
	if err != nil {
		_ = a.renderer.Close()
		return nil, err
	}
	a.sessionCollector = collectors.NewSessionCollector(a.client)

	topics := opts.topics()
	a.dispatcher = dispatch.New(a.store, a.renderer, topics,
		dispatch.WithPublisher(a.client),
		dispatch.WithEvents(a.events),
		dispatch.WithLogger(logging.GetLogger("dispatch")),
	)
	a.loop = playback.New(a.store, a.renderer,
		playback.WithTimings(opts.dwell(), opts.blank()),
		playback.WithFailurePolicy(policy, opts.PlaybackMaxRetries),
		playback.WithPublisher(a.client, topics.State),
		playback.WithEvents(a.events),
		playback.WithLogger(logging.GetLogger("playback")),
	)

	a.playbackWatcher = config.NewConfigWatcher(opts.Config,
		config.PlaybackLoader(config.Playback{
			DwellMS:    opts.PlaybackDwellMS,
			BlankMS:    opts.PlaybackBlankMS,
			Brightness: opts.PlaybackBrightness,
		}),
		logging.GetLogger("config"),
	)
	a.playbackWatcher.OnReload(func(p config.Playback) {
		a.loop.SetTimings(p.Dwell(), p.Blank())
		a.renderer.SetBrightness(p.Brightness)
	})

	stderr := opts.loggingConfig().Stderr
	a.loggingWatcher = config.NewConfigWatcher(opts.Config,
		func(path string) (logging.Config, error) {
			cfg := config.LoadLoggingConfig(path)
			cfg.Stderr = stderr
			return cfg, nil
		},
		logging.GetLogger("config"),
	)
	a.loggingWatcher.OnReload(func(cfg logging.Config) {
		logging.Initialize(cfg)
		a.logger.Info("Logging levels reloaded", "level", cfg.Level)
	})

	if opts.HTTPEnabled {
		apiOpts := &api.Options{
			Store:          a.store,
			Commander:      a.dispatcher,
			Pixel:          a.renderer,
			Playback:       a.loop,
			Session:        a.client,
			Events:         a.events,
			MetricsHandler: exporters.HTTPHandler(),
		}
		if u, upErr := updater.New(updater.Options{Prerelease: opts.UpdatePrerelease}); upErr != nil {
			a.logger.Warn("Self update unavailable", "error", upErr)
		} else {
			apiOpts.Updater = u
		}
		a.server = api.NewServer(apiOpts)
	}

	return a, nil
}

// run brings the session up, runs the self test and then plays the
// sequence until the context is cancelled or a render fails fatally.
func (a *app) run() error {
	defer close(a.done)

	a.logger.Info("Starting rgbnode",
		"node", node.Name(),
		"bus", a.busURL,
		"pixel", a.opts.PixelDriver,
		"policy", a.policy.String())

	if a.embedded != nil {
		if err := a.embedded.Start(); err != nil {
			return fmt.Errorf("failed to start embedded broker: %w", err)
		}
	}

	a.eventCollector.Start()

	// Bounded and never fatal; the client keeps reconnecting on its own.
	if addr, err := network.BrokerAddress(a.busURL); err == nil {
		waitErr := network.WaitForBroker(a.ctx, addr, network.WaitOptions{
			MaxRetries: a.opts.BusWaitRetries,
			Interval:   time.Duration(a.opts.BusWaitIntervalMS) * time.Millisecond,
			Timeout:    network.DefaultWaitOptions().Timeout,
		})
		if waitErr != nil {
			a.logger.Warn("Broker not reachable, continuing offline", "addr", addr, "error", waitErr)
		}
	}

	if err := a.dispatcher.Subscribe(a.client); err != nil {
		a.logger.Error("Failed to subscribe", "error", err)
	}
	if err := a.client.Connect(); err != nil {
		a.logger.Warn("Broker connect failed, retrying in background", "error", err)
	}
	a.sessionCollector.Start(a.ctx)

	for _, w := range []interface{ Start() error }{a.playbackWatcher, a.loggingWatcher} {
		if err := w.Start(); err != nil {
			a.logger.Warn("Config hot reload disabled", "path", a.opts.Config, "error", err)
			break
		}
	}

	if a.server != nil {
		go func() {
			if err := a.server.Start(a.opts.HTTPPort); err != nil {
				a.logger.Error("Failed to start HTTP server", "error", err)
			}
		}()
	}

	if a.opts.PlaybackSelfTest {
		err := playback.SelfTest(a.ctx, a.renderer, playback.DefaultSelfTestStep, a.events)
		if err != nil && a.ctx.Err() == nil {
			if a.policy == playback.PolicyFatal {
				return err
			}
			a.logger.Error("Self test failed", "error", err)
		}
	}

	a.notifier.Ready()
	a.notifier.Status("playing on " + a.opts.PixelDriver)

	return a.loop.Run(a.ctx)
}

// stop cancels playback, waits for the loop to exit and releases every
// resource. Safe to call more than once.
func (a *app) stop() {
	a.shutdownOnce.Do(func() {
		a.notifier.Stopping()
		a.cancel()

		select {
		case <-a.done:
		case <-time.After(2 * time.Second):
			a.logger.Warn("Playback did not stop in time")
		}

		if a.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if err := a.server.Stop(ctx); err != nil {
				a.logger.Error("Error stopping HTTP server", "error", err)
			}
			cancel()
		}
		for _, w := range []interface{ Stop() error }{a.playbackWatcher, a.loggingWatcher} {
			if err := w.Stop(); err != nil {
				a.logger.Debug("Error stopping config watcher", "error", err)
			}
		}
		a.sessionCollector.Stop()
		a.eventCollector.Stop()
		a.client.Close()
		if a.embedded != nil {
			a.embedded.Stop()
		}

		if err := a.renderer.Show(color.Off); err != nil {
			a.logger.Debug("Failed to blank pixel", "error", err)
		}
		if err := a.renderer.Close(); err != nil {
			a.logger.Warn("Failed to close pixel device", "error", err)
		}
		if err := a.events.Close(); err != nil {
			a.logger.Debug("Error closing event bus", "error", err)
		}
	})
}
