// Package daemon implements the daemon lifecycle manager.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"cueloop.dev/cueloop/internal/artnet"
	"cueloop.dev/cueloop/internal/command"
	"cueloop.dev/cueloop/internal/config"
	"cueloop.dev/cueloop/internal/control"
	"cueloop.dev/cueloop/internal/eventbus"
	"cueloop.dev/cueloop/internal/log"
	"cueloop.dev/cueloop/internal/metrics"
	"cueloop.dev/cueloop/internal/recorder"
	"cueloop.dev/cueloop/internal/replay"
	"cueloop.dev/cueloop/internal/router"
)

// Daemon owns the full pipeline: inbound receiver, event bus, recorder,
// passthrough router, playback scheduler and the control socket.
type Daemon struct {
	config     *config.Config
	configPath string
	socketPath string
	pidFile    string

	receiver    *artnet.Receiver
	senders     []artnet.Sender
	bus         *eventbus.Bus
	recorder    *recorder.Recorder
	scheduler   *replay.Scheduler
	passthrough *router.Passthrough
	controller  *control.Controller
	watchdog    *control.Watchdog
	handler     *command.Handler
	udsServer   *command.UDSServer
	metricsSrv  *metrics.Server

	ctx          context.Context
	cancel       context.CancelFunc
	pumpDone     chan struct{}
	shutdownChan chan struct{}
	sigChan      chan os.Signal
	stopped      bool
}

// New loads the configuration and prepares a daemon. socketPath and pidFile
// override the configured paths when non-empty.
func New(configPath, socketPath, pidFile string) (*Daemon, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if socketPath == "" {
		socketPath = cfg.Control.Socket
	}
	if pidFile == "" {
		pidFile = cfg.Control.PIDFile
	}

	d := &Daemon{
		config:       cfg,
		configPath:   configPath,
		socketPath:   socketPath,
		pidFile:      pidFile,
		shutdownChan: make(chan struct{}),
	}
	d.ctx, d.cancel = context.WithCancel(context.Background())
	return d, nil
}

// Start brings up every component. On error the partially started pipeline is
// torn down again.
func (d *Daemon) Start() error {
	log.Init(d.config.Logger)
	logger := log.GetLogger()
	logger.WithFields(map[string]interface{}{
		"config": d.configPath,
		"socket": d.socketPath,
	}).Info("starting cueloop daemon")

	if err := d.writePIDFile(); err != nil {
		return err
	}

	if err := os.MkdirAll(d.config.RecordingsDir, 0755); err != nil {
		return fmt.Errorf("failed to create recordings dir: %w", err)
	}

	for _, out := range d.config.Outputs {
		s, err := artnet.NewUDPSender(out.Name, out.Address, out.Universes)
		if err != nil {
			d.closeSenders()
			return err
		}
		logger.WithFields(map[string]interface{}{
			"output": out.Name, "address": out.Address, "universes": out.Universes,
		}).Info("output attached")
		d.senders = append(d.senders, s)
	}

	recv, err := artnet.NewReceiver(d.config.Input.Bind, d.config.Input.Interface)
	if err != nil {
		d.closeSenders()
		return err
	}
	d.receiver = recv

	d.bus = eventbus.New(d.config.Bus.Partitions, d.config.Bus.QueueSize)
	d.recorder = recorder.New(d.config.RecordingsDir, d.config.Universes)
	d.scheduler = replay.NewScheduler(d.senders)
	d.passthrough = router.New(d.senders, d.scheduler.Playing, d.config.Passthrough)

	// While playback owns the outputs, inbound traffic is neither recorded
	// nor forwarded; otherwise the loop would capture and re-emit itself.
	d.bus.Subscribe("recorder", func(ev *eventbus.Event) {
		if !d.scheduler.Playing() {
			d.recorder.HandleEvent(ev)
		}
	})
	d.bus.Subscribe("passthrough", d.passthrough.HandleEvent)

	d.pumpDone = make(chan struct{})
	go d.pump()

	d.controller = control.New(d.config.RecordingsDir, d.senders, d.recorder,
		d.scheduler, d.passthrough, d.config.Playback.FPS, d.config.Playback.FadeWindow)

	d.watchdog = control.NewWatchdog(d.controller, d.config.IdleBlackout)
	d.watchdog.Start()

	d.handler = command.NewHandler(d.controller)
	d.handler.SetStatsFunc(func() interface{} { return d.Stats() })
	d.handler.SetShutdownFunc(func() {
		logger.Info("shutdown triggered via daemon_shutdown command")
		close(d.shutdownChan)
	})

	d.udsServer = command.NewUDSServer(d.socketPath, d.handler)
	go func() {
		if err := d.udsServer.Start(d.ctx); err != nil && err != context.Canceled {
			logger.WithError(err).Error("uds server failed")
		}
	}()

	if d.config.Metrics.Enabled {
		metrics.Register(metrics.Sources{
			BusPublished:  func() int64 { return d.bus.GetStats().Published },
			BusProcessed:  func() int64 { return d.bus.GetStats().Processed },
			BusDropped:    func() int64 { return d.bus.GetStats().Dropped },
			ReceiverDrops: d.receiver.Dropped,
			RecorderDrops: d.recorder.Dropped,
			SendFailures:  d.scheduler.SendFailures,
			Forwarded:     d.passthrough.Forwarded,
			Playing:       d.scheduler.Playing,
			Recording:     d.recorder.Active,
		})
		d.metricsSrv = metrics.NewServer(d.config.Metrics.Listen, d.config.Metrics.Path)
		if err := d.metricsSrv.Start(d.ctx); err != nil {
			return err
		}
	}

	logger.Info("daemon started")
	return nil
}

// pump moves inbound packets from the receiver onto the event bus. It ends
// when the receiver closes its channel.
func (d *Daemon) pump() {
	defer close(d.pumpDone)
	for pkt := range d.receiver.Packets() {
		ev := &eventbus.Event{Key: pkt.Address.String(), Packet: pkt}
		if err := d.bus.Publish(ev); err != nil {
			log.GetLogger().WithError(err).Debug("inbound packet dropped")
		}
	}
}

// Stop shuts the pipeline down in order: no new inbound traffic, finalize the
// recorder, stop playback, black the rig out, then close the control socket.
func (d *Daemon) Stop() {
	if d.stopped {
		return
	}
	d.stopped = true

	logger := log.GetLogger()
	logger.Info("initiating graceful shutdown")

	if d.watchdog != nil {
		d.watchdog.Stop()
	}

	if d.receiver != nil {
		d.receiver.Close()
	}
	if d.pumpDone != nil {
		<-d.pumpDone
	}
	if d.bus != nil {
		d.bus.Close()
	}

	if d.recorder != nil && d.recorder.Active() {
		path, packets, err := d.recorder.Stop()
		if err != nil {
			logger.WithError(err).Error("error finalizing recording")
		} else {
			logger.WithFields(map[string]interface{}{
				"path": path, "packets": packets,
			}).Info("recording finalized on shutdown")
		}
	}

	if d.controller != nil {
		d.controller.StopPlayback()
		d.controller.Blackout()
	}

	if d.udsServer != nil {
		d.udsServer.Stop()
	}

	if d.metricsSrv != nil {
		if err := d.metricsSrv.Stop(context.Background()); err != nil {
			logger.WithError(err).Error("error stopping metrics server")
		}
	}

	d.closeSenders()
	d.cancel()

	if d.sigChan != nil {
		signal.Stop(d.sigChan)
	}

	if err := d.removePIDFile(); err != nil {
		logger.WithError(err).Error("error removing PID file")
	}

	logger.Info("daemon stopped")
}

// Run blocks until shutdown is triggered by a signal or by the
// daemon_shutdown command. SIGHUP reloads the hot-reloadable part of the
// configuration.
func (d *Daemon) Run() error {
	d.sigChan = make(chan os.Signal, 1)
	signal.Notify(d.sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)

	log.GetLogger().Info("daemon running, waiting for signals or commands")

	for {
		select {
		case sig := <-d.sigChan:
			switch sig {
			case syscall.SIGTERM, syscall.SIGINT:
				log.GetLogger().WithField("signal", sig.String()).Info("received shutdown signal")
				d.Stop()
				return nil
			case syscall.SIGHUP:
				if err := d.Reload(); err != nil {
					log.GetLogger().WithError(err).Error("failed to reload config")
				}
			}

		case <-d.shutdownChan:
			d.Stop()
			return nil

		case <-d.ctx.Done():
			d.Stop()
			return d.ctx.Err()
		}
	}
}

// Reload re-reads the configuration. Hot-reloadable: logger settings and the
// playback rate. Cold (requires restart): bind address, outputs, bus sizing.
func (d *Daemon) Reload() error {
	logger := log.GetLogger()
	logger.WithField("path", d.configPath).Info("reloading configuration")

	newCfg, err := config.Load(d.configPath)
	if err != nil {
		return fmt.Errorf("failed to load new config: %w", err)
	}

	log.Init(newCfg.Logger)

	if newCfg.Playback.FPS != d.controller.Rate() {
		if err := d.controller.SetRate(newCfg.Playback.FPS); err != nil {
			logger.WithError(err).Warn("reloaded playback rate rejected")
		}
	}

	var requiresRestart []string
	if newCfg.Input.Bind != d.config.Input.Bind {
		requiresRestart = append(requiresRestart, "input.bind")
	}
	if len(newCfg.Outputs) != len(d.config.Outputs) {
		requiresRestart = append(requiresRestart, "outputs")
	}
	if len(requiresRestart) > 0 {
		logger.WithField("fields", requiresRestart).Warn("changed settings require a restart")
	}

	d.config = newCfg
	logger.Info("configuration reloaded")
	return nil
}

// Stats reports the bus counters alongside receiver drops.
type Stats struct {
	BusPublished  int64 `json:"bus_published" yaml:"bus_published"`
	BusProcessed  int64 `json:"bus_processed" yaml:"bus_processed"`
	BusDropped    int64 `json:"bus_dropped" yaml:"bus_dropped"`
	ReceiverDrops int64 `json:"receiver_drops" yaml:"receiver_drops"`
}

// Stats snapshots pipeline counters.
func (d *Daemon) Stats() Stats {
	bus := d.bus.GetStats()
	return Stats{
		BusPublished:  bus.Published,
		BusProcessed:  bus.Processed,
		BusDropped:    bus.Dropped,
		ReceiverDrops: d.receiver.Dropped(),
	}
}

func (d *Daemon) closeSenders() {
	for _, s := range d.senders {
		s.Close()
	}
}

func (d *Daemon) writePIDFile() error {
	if d.pidFile == "" {
		return nil
	}
	data := []byte(strconv.Itoa(os.Getpid()) + "\n")
	if err := os.WriteFile(d.pidFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write PID file %s: %w", d.pidFile, err)
	}
	return nil
}

func (d *Daemon) removePIDFile() error {
	if d.pidFile == "" {
		return nil
	}
	if err := os.Remove(d.pidFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file %s: %w", d.pidFile, err)
	}
	return nil
}
