package main

import (
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/the-lightning-land/netwatchd/alert"
	"github.com/the-lightning-land/netwatchd/api"
	"github.com/the-lightning-land/netwatchd/connectivity"
	"github.com/the-lightning-land/netwatchd/network"
	"github.com/the-lightning-land/netwatchd/probe"
	// Blank import to set up profiling HTTP handlers.
	_ "net/http/pprof"
)

var (
	// Commit stores the current commit hash of this build. This should be set using -ldflags during compilation.
	Commit string
	// Version stores the version string of this build. This should be set using -ldflags during compilation.
	Version string
	// Date stores the date of this build. This should be set using -ldflags during compilation.
	Date string
)

// check alerter compliance to the watcher's interface during compile time
var (
	_ connectivity.Alerter = (*alert.DesktopAlerter)(nil)
	_ connectivity.Alerter = (*alert.BeeepAlerter)(nil)
	_ connectivity.Alerter = (*alert.LogAlerter)(nil)
	_ connectivity.Alerter = (*alert.NoopAlerter)(nil)
	_ connectivity.Prober  = (*probe.IcmpProber)(nil)
	_ api.Watcher          = (*connectivity.Watcher)(nil)
)

// netwatchdMain is the true entry point for netwatchd. This is required since defers
// created in the top-level scope of a main method aren't executed if os.Exit() is called.
func netwatchdMain() error {
	log.SetOutput(os.Stdout)
	log.SetLevel(log.InfoLevel)

	// Load CLI configuration and defaults
	cfg, err := loadConfig(os.Args[1:])
	if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
		return nil
	} else if err != nil {
		return errors.Errorf("Failed parsing arguments: %v", err)
	}

	// Set logger into debug mode if called with --debug
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
		log.Info("Setting debug mode.")
	}

	log.Debug("Loaded config.")

	// Print version of the daemon
	log.Infof("Version %s (commit %s)", Version, Commit)
	log.Infof("Built on %s", Date)

	// Stop here if only version was requested
	if cfg.ShowVersion {
		return nil
	}

	if cfg.Profiling.Listen != "" {
		go func() {
			log.Infof("Starting profiling server on %v", cfg.Profiling.Listen)
			// Redirect the root path
			http.Handle("/", http.RedirectHandler("/debug/pprof", http.StatusSeeOther))
			// All other handlers are registered on DefaultServeMux through the import of pprof
			err := http.ListenAndServe(cfg.Profiling.Listen, nil)
			if err != nil {
				log.Errorf("Could not run profiler: %v", err)
			}
		}()
	}

	// The source of OS connectivity events
	var n network.Network

	switch cfg.Net {
	case "networkmanager":
		n = network.NewNmNetwork(&network.NmConfig{
			Logger: log.New().WithField("system", "network"),
		})

		log.Info("Created NetworkManager network.")
	case "netlink":
		n = network.NewNetlinkNetwork(&network.NetlinkConfig{
			Logger: log.New().WithField("system", "network"),
		})

		log.Info("Created netlink network.")
	case "mock":
		n = network.NewMockNetwork(network.NewStatus(true, network.Ethernet))

		log.Info("Created a mock network.")
	default:
		return errors.Errorf("Unknown networking type %v", cfg.Net)
	}

	err = n.Start()
	if err != nil {
		return errors.Errorf("Could not start network: %v", err)
	}

	defer func() {
		err := n.Stop()
		if err != nil {
			log.Errorf("Could not properly shut down network: %v", err)
		} else {
			log.Info("Stopped network.")
		}
	}()

	// The alert shown while disconnected
	var alerter connectivity.Alerter

	switch cfg.Alert {
	case "desktop":
		desktop := alert.NewDesktopAlerter(&alert.DesktopConfig{
			Logger: log.New().WithField("system", "alert"),
		})

		err = desktop.Start()
		if err != nil {
			return errors.Errorf("Could not start desktop alerter: %v", err)
		}

		defer func() {
			err := desktop.Stop()
			if err != nil {
				log.Errorf("Could not properly stop desktop alerter: %v", err)
			}
		}()

		alerter = desktop

		log.Info("Created desktop alerter.")
	case "beeep":
		alerter = alert.NewBeeepAlerter(&alert.BeeepConfig{
			Logger: log.New().WithField("system", "alert"),
		})

		log.Info("Created beeep alerter.")
	case "log":
		alerter = alert.NewLogAlerter(log.New().WithField("system", "alert"))

		log.Info("Created log alerter.")
	case "none":
		alerter = alert.NewNoopAlerter()

		log.Info("Created noop alerter.")
	default:
		return errors.Errorf("Unknown alert type %v", cfg.Alert)
	}

	prober := probe.NewIcmpProber(&probe.IcmpConfig{
		Privileged: cfg.Probe.Privileged,
		Logger:     log.New().WithField("system", "probe"),
	})

	// create subsystem responsible for the http api
	server := api.New(&api.Config{
		Log: log.New().WithField("system", "api"),
	})

	log.Infof("Created API")

	connectivityLog := log.New().WithField("system", "connectivity")

	watcher := connectivity.NewWatcher(&connectivity.Config{
		Prober:      prober,
		Alerter:     alerter,
		Logger:      connectivityLog,
		Target:      cfg.Probe.Target,
		ProbeWait:   cfg.Probe.Wait,
		Multiplier:  cfg.Backoff.Multiplier,
		MaxDelay:    cfg.Backoff.Max,
		EventBudget: cfg.EventBudget,
		Alert: connectivity.AlertConfig{
			Enabled:    !cfg.Notification.Disabled,
			Cancelable: !cfg.Notification.Sticky,
			Message:    cfg.Notification.Message,
			Icon:       cfg.Notification.Icon,
		},
		Notifier: connectivity.MultiNotifier(
			server,
			connectivity.NotifierFuncs{
				Connected: func(kind network.ConnectionType) {
					connectivityLog.Infof("Online via %v", kind)
				},
				Disconnected: func() {
					connectivityLog.Warnf("Offline")
				},
			},
		),
	})

	err = watcher.Start()
	if err != nil {
		return errors.Errorf("Could not start watcher: %v", err)
	}

	defer func() {
		err := watcher.Stop()
		if err != nil {
			log.Errorf("Could not properly stop watcher: %v", err)
		} else {
			log.Info("Stopped watcher.")
		}
	}()

	server.SetWatcher(watcher)

	err = watcher.Register(n)
	if err != nil {
		return errors.Errorf("Could not register network: %v", err)
	}

	// settle the initial state
	err = watcher.CheckState()
	if err != nil {
		return errors.Errorf("Could not check connectivity: %v", err)
	}

	if cfg.Api.Listen != "" {
		l, err := net.Listen("tcp", cfg.Api.Listen)
		if err != nil {
			return errors.Errorf("Could not listen on %v: %v", cfg.Api.Listen, err)
		}

		defer l.Close()

		go func() {
			log.Infof("Serving API on %v", l.Addr())

			err := server.Serve(l)
			if err != nil {
				log.Debugf("API stopped: %v", err)
			}
		}()
	}

	// blocks until interrupted
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	sig := <-signals
	log.Info(sig)
	log.Info("Received an interrupt, stopping netwatchd...")

	// finish with no error
	return nil
}

func main() {
	// Call the "real" main in a nested manner so the defers will properly
	// be executed in the case of a graceful shutdown.
	if err := netwatchdMain(); err != nil {
		log.WithError(err).Println("Failed running netwatchd.")
		os.Exit(1)
	}
}
