package main

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/rgbnode/cmd"
	"github.com/smazurov/rgbnode/internal/bus"
	"github.com/smazurov/rgbnode/internal/config"
	"github.com/smazurov/rgbnode/internal/logging"
	"github.com/smazurov/rgbnode/internal/pixel"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Bus settings
	BusURL             string `help:"Broker URL (mqtt://, tcp://, ssl://, ws://, nats://)" default:"mqtt://127.0.0.1:1883" toml:"bus.url" env:"BUS_URL"`
	BusUsername        string `help:"Broker username" default:"" toml:"bus.username" env:"BUS_USERNAME"`
	BusPassword        string `help:"Broker password" default:"" toml:"bus.password" env:"BUS_PASSWORD"`
	BusWaitRetries     int    `help:"Broker reachability probes before starting anyway" default:"5" toml:"bus.wait_retries" env:"BUS_WAIT_RETRIES"`
	BusWaitIntervalMS  int    `name:"bus-wait-interval-ms" help:"Delay between broker probes" default:"2000" toml:"bus.wait_interval_ms" env:"BUS_WAIT_INTERVAL_MS"`
	BusEmbedded        bool   `help:"Run an embedded NATS broker and connect to it" default:"false" toml:"bus.embedded" env:"BUS_EMBEDDED"`
	BusEmbeddedPort    int    `help:"Embedded broker port" default:"4222" toml:"bus.embedded_port" env:"BUS_EMBEDDED_PORT"`
	TopicsSet          string `help:"Immediate color topic" default:"esp32/led/set" toml:"topics.set" env:"TOPICS_SET"`
	TopicsSequence     string `help:"Sequence update topic" default:"esp32/led/seq" toml:"topics.sequence" env:"TOPICS_SEQUENCE"`
	TopicsState        string `help:"Rendered color topic" default:"esp32/led" toml:"topics.state" env:"TOPICS_STATE"`
	TopicsStatus       string `help:"Acknowledgement topic" default:"esp32/status" toml:"topics.status" env:"TOPICS_STATUS"`

	// Pixel settings
	PixelDriver     string `help:"Pixel driver (noop, sysfs, serial, terminal)" default:"noop" toml:"pixel.driver" env:"PIXEL_DRIVER"`
	PixelCount      int    `help:"Pixels painted per color" default:"1" toml:"pixel.count" env:"PIXEL_COUNT"`
	PixelSysfsRoot  string `help:"LED class directory" default:"/sys/class/leds" toml:"pixel.sysfs_root" env:"PIXEL_SYSFS_ROOT"`
	PixelSysfsName  string `help:"Multicolor LED name under the LED class directory" default:"" toml:"pixel.sysfs_name" env:"PIXEL_SYSFS_NAME"`
	PixelSerialPort string `help:"Serial port of an Adalight strip" default:"" toml:"pixel.serial_port" env:"PIXEL_SERIAL_PORT"`
	PixelSerialBaud int    `help:"Serial baud rate" default:"115200" toml:"pixel.serial_baud" env:"PIXEL_SERIAL_BAUD"`

	// Playback settings
	PlaybackDwellMS       int    `name:"playback-dwell-ms" help:"Lit hold interval" default:"3000" toml:"playback.dwell_ms" env:"PLAYBACK_DWELL_MS"`
	PlaybackBlankMS       int    `name:"playback-blank-ms" help:"Off hold interval" default:"100" toml:"playback.blank_ms" env:"PLAYBACK_BLANK_MS"`
	PlaybackBrightness    int    `help:"Brightness percentage (0-100)" default:"100" toml:"playback.brightness" env:"PLAYBACK_BRIGHTNESS"`
	PlaybackFailurePolicy string `help:"Render failure policy (fatal, retry)" default:"fatal" toml:"playback.failure_policy" env:"PLAYBACK_FAILURE_POLICY"`
	PlaybackMaxRetries    int    `help:"Render retries under the retry policy" default:"3" toml:"playback.max_retries" env:"PLAYBACK_MAX_RETRIES"`
	PlaybackSelfTest      bool   `help:"Show red, green and blue before playback starts" default:"true" toml:"playback.self_test" env:"PLAYBACK_SELF_TEST"`

	// HTTP settings
	HTTPEnabled bool   `help:"Serve the HTTP API" default:"true" toml:"http.enabled" env:"HTTP_ENABLED"`
	HTTPPort    string `help:"HTTP listen address" short:"p" default:":8091" toml:"http.port" env:"HTTP_PORT"`

	// Update settings
	UpdatePrerelease bool `help:"Offer prereleases through the update API" default:"false" toml:"update.prerelease" env:"UPDATE_PRERELEASE"`

	// Logging settings
	LoggingLevel    string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat   string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingBus      string `help:"Bus logging level" default:"" toml:"logging.bus" env:"LOGGING_BUS"`
	LoggingDispatch string `help:"Dispatcher logging level" default:"" toml:"logging.dispatch" env:"LOGGING_DISPATCH"`
	LoggingPlayback string `help:"Playback logging level" default:"" toml:"logging.playback" env:"LOGGING_PLAYBACK"`
	LoggingPixel    string `help:"Pixel driver logging level" default:"" toml:"logging.pixel" env:"LOGGING_PIXEL"`
	LoggingAPI      string `help:"API logging level" default:"" toml:"logging.api" env:"LOGGING_API"`
	LoggingHTTP     string `help:"HTTP request logging level" default:"" toml:"logging.http" env:"LOGGING_HTTP"`
}

func (o *Options) topics() bus.Topics {
	return bus.Topics{
		Set:      o.TopicsSet,
		Sequence: o.TopicsSequence,
		State:    o.TopicsState,
		Status:   o.TopicsStatus,
	}
}

func (o *Options) loggingConfig() logging.Config {
	return logging.Config{
		Level:  o.LoggingLevel,
		Format: o.LoggingFormat,
		Modules: map[string]string{
			"bus":      o.LoggingBus,
			"dispatch": o.LoggingDispatch,
			"playback": o.LoggingPlayback,
			"pixel":    o.LoggingPixel,
			"api":      o.LoggingAPI,
			"http":     o.LoggingHTTP,
		},
		// The terminal preview owns stdout
		Stderr: o.PixelDriver == pixel.DriverTerminal,
	}
}

func (o *Options) dwell() time.Duration {
	return time.Duration(o.PlaybackDwellMS) * time.Millisecond
}

func (o *Options) blank() time.Duration {
	return time.Duration(o.PlaybackBlankMS) * time.Millisecond
}

func main() {
	var cli humacli.CLI

	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", loadErr)
		}

		logging.Initialize(opts.loggingConfig())
		logger := logging.GetLogger("main")

		var (
			mu      sync.Mutex
			running *app
		)

		hooks.OnStart(func() {
			a, err := newApp(opts)
			if err != nil {
				logger.Error("Failed to start", "error", err)
				os.Exit(1)
			}
			mu.Lock()
			running = a
			mu.Unlock()

			if runErr := a.run(); runErr != nil {
				logger.Error("Playback failed", "error", runErr)
				a.stop()
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			mu.Lock()
			a := running
			mu.Unlock()
			if a != nil {
				a.stop()
			}
		})
	})

	cli.Root().Use = "rgbnode"
	cli.Root().Short = "Bus-controlled RGB LED sequencer"
	cli.Root().AddCommand(
		cmd.CreateSendCmd(),
		cmd.CreateColorsCmd(),
		cmd.CreateUpdateCmd(),
		cmd.CreateVersionCmd(),
	)

	cli.Run()
}
