package main

import (
	"io"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"github.com/the-lightning-land/netwatchd/connectivity"
	"gopkg.in/yaml.v3"
)

const (
	defaultNet       = "networkmanager"
	defaultAlert     = "desktop"
	defaultApiListen = "127.0.0.1:9040"
)

type probeConfig struct {
	Target     string        `long:"target" yaml:"target" description:"Host or address that receives the ICMP echo requests"`
	Wait       time.Duration `long:"wait" yaml:"wait" description:"How long to wait for an echo reply"`
	Privileged bool          `long:"privileged" yaml:"privileged" description:"Use raw ICMP sockets, needs CAP_NET_RAW"`
}

type backoffConfig struct {
	Multiplier time.Duration `long:"multiplier" yaml:"multiplier" description:"Retry n waits n² times this duration"`
	Max        time.Duration `long:"max" yaml:"max" description:"Upper bound of the retry delay"`
}

type notificationConfig struct {
	Disabled bool   `long:"disabled" yaml:"disabled" description:"Do not show an alert while disconnected"`
	Sticky   bool   `long:"sticky" yaml:"sticky" description:"The alert cannot be dismissed by the user"`
	Message  string `long:"message" yaml:"message" description:"Text of the disconnect alert"`
	Icon     string `long:"icon" yaml:"icon" description:"Icon name or path of the disconnect alert"`
}

type apiConfig struct {
	Listen string `long:"listen" yaml:"listen" description:"Address of the HTTP api, empty disables it"`
}

type profilingConfig struct {
	Listen string `long:"listen" yaml:"listen" description:"Address of the pprof server, empty disables it"`
}

// config has no default tags so that flags only override what was set in
// the config file.
type config struct {
	ShowVersion bool   `short:"v" long:"version" yaml:"-" description:"Display version information and exit"`
	Debug       bool   `long:"debug" yaml:"debug" description:"Start in debug mode"`
	ConfigFile  string `long:"config" yaml:"-" description:"Path to a YAML config file"`
	Net         string `long:"net" yaml:"net" description:"Source of connectivity events" choice:"networkmanager" choice:"netlink" choice:"mock"`
	Alert       string `long:"alert" yaml:"alert" description:"How the disconnect alert is shown" choice:"desktop" choice:"beeep" choice:"log" choice:"none"`
	EventBudget int    `long:"event-budget" yaml:"eventBudget" description:"Attempts allowed when a network event is confirmed"`

	Probe        probeConfig        `group:"Probe" namespace:"probe" yaml:"probe"`
	Backoff      backoffConfig      `group:"Backoff" namespace:"backoff" yaml:"backoff"`
	Notification notificationConfig `group:"Notification" namespace:"notification" yaml:"notification"`
	Api          apiConfig          `group:"Api" namespace:"api" yaml:"api"`
	Profiling    profilingConfig    `group:"Profiling" namespace:"profiling" yaml:"profiling"`
}

func defaultConfig() config {
	return config{
		Net:         defaultNet,
		Alert:       defaultAlert,
		EventBudget: connectivity.DefaultEventBudget,
		Probe: probeConfig{
			Target: connectivity.DefaultTarget,
			Wait:   connectivity.DefaultProbeWait,
		},
		Backoff: backoffConfig{
			Multiplier: connectivity.DefaultMultiplier,
			Max:        connectivity.DefaultMaxDelay,
		},
		Api: apiConfig{
			Listen: defaultApiListen,
		},
	}
}

// loadConfig applies defaults, then the config file, then the flags.
func loadConfig(args []string) (*config, error) {
	pre := config{}
	preParser := flags.NewParser(&pre, flags.IgnoreUnknown)
	if _, err := preParser.ParseArgs(args); err != nil {
		return nil, err
	}

	cfg := defaultConfig()

	if pre.ConfigFile != "" {
		if err := readConfigFile(pre.ConfigFile, &cfg); err != nil {
			return nil, err
		}
	}

	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfigFile(path string, cfg *config) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "could not open config file")
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	err = dec.Decode(cfg)
	if err != nil && err != io.EOF {
		return errors.Wrapf(err, "could not parse config file %v", path)
	}

	return nil
}

func (c *config) validate() error {
	switch c.Net {
	case "networkmanager", "netlink", "mock":
	default:
		return errors.Errorf("unknown networking type %v", c.Net)
	}

	switch c.Alert {
	case "desktop", "beeep", "log", "none":
	default:
		return errors.Errorf("unknown alert type %v", c.Alert)
	}

	if c.EventBudget < 1 {
		return errors.Errorf("event budget must be at least 1, got %v", c.EventBudget)
	}

	if c.Probe.Target == "" {
		return errors.New("probe target must not be empty")
	}

	if c.Probe.Wait <= 0 {
		return errors.Errorf("probe wait must be positive, got %v", c.Probe.Wait)
	}

	if c.Backoff.Multiplier <= 0 || c.Backoff.Max <= 0 {
		return errors.New("backoff durations must be positive")
	}

	return nil
}
