package main

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"github.com/XANi/esphome-tcs34725/config"
	"github.com/XANi/esphome-tcs34725/i2c"
	"github.com/XANi/esphome-tcs34725/project"
	"github.com/XANi/esphome-tcs34725/queue"
	"github.com/XANi/esphome-tcs34725/registry"
	"github.com/XANi/esphome-tcs34725/store"
	"github.com/XANi/esphome-tcs34725/tcs34725"
	"github.com/XANi/esphome-tcs34725/web"
	"github.com/XANi/go-yamlcfg"
	"github.com/XANi/goneric"
	"github.com/efigence/go-mon"
	"github.com/goccy/go-yaml"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"io"
	"io/fs"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
)

var version string
var log *zap.SugaredLogger
var debug = true

// /* embeds with all files, just dir/ ignores files starting with _ or .
//
//go:embed static templates
var embeddedWebContent embed.FS

func init() {
	consoleEncoderConfig := zap.NewDevelopmentEncoderConfig()
	// naive systemd detection. Drop timestamp if running under it
	if os.Getenv("JOURNAL_STREAM") != "" {
		consoleEncoderConfig.TimeKey = ""
	}
	consoleEncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	consoleEncoder := zapcore.NewConsoleEncoder(consoleEncoderConfig)
	highPriority := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapcore.ErrorLevel
	})
	lowPriority := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return (lvl < zapcore.ErrorLevel) != (lvl == zapcore.DebugLevel && !debug)
	})
	core := zapcore.NewTee(
		zapcore.NewCore(consoleEncoder, os.Stderr, lowPriority),
		zapcore.NewCore(consoleEncoder, os.Stderr, highPriority),
	)
	logger := zap.New(core)
	if debug {
		logger = logger.WithOptions(
			zap.Development(),
			zap.AddCaller(),
			zap.AddStacktrace(highPriority),
		)
	} else {
		logger = logger.WithOptions(
			zap.AddCaller(),
		)
	}
	log = logger.Sugar()
}

func newRegistry() *registry.Registry {
	reg := registry.New()
	i2c.Register(reg)
	tcs34725.Register(reg)
	return reg
}

func newCompiler() *project.Compiler {
	return goneric.Must(project.New(project.Config{
		Registry: newRegistry(),
		Logger:   log.Named("compiler"),
	}))
}

// loadConfig merges config file with flags, flags win when set explicitly
func loadConfig(c *cli.Command) config.Config {
	cfgFiles := []string{
		"$HOME/.config/esphome-tcs34725/config.yaml",
		"./cfg/config.yaml",
		"/etc/esphome-tcs34725/config.yaml",
	}
	if c.IsSet("config") {
		cfgFiles = []string{c.String("config")}
	}
	var cfg config.Config
	if err := yamlcfg.LoadConfig(cfgFiles, &cfg); err != nil {
		log.Debugf("no config file loaded (%s), using flags", err)
	}
	override := func(dst *string, flag string) {
		if c.IsSet(flag) || *dst == "" {
			*dst = c.String(flag)
		}
	}
	override(&cfg.ListenAddress, "listen-addr")
	override(&cfg.MQTTAddress, "mqtt-addr")
	override(&cfg.DatabaseDSN, "database")
	override(&cfg.DiscoveryPrefix, "discovery-prefix")
	override(&cfg.PProfAddress, "pprof-addr")
	if cfg.ExtraLabels == nil {
		cfg.ExtraLabels = map[string]string{}
	}
	if _, ok := cfg.ExtraLabels["host"]; !ok {
		cfg.ExtraLabels["host"] = goneric.Must(os.Hostname())
	}
	return cfg
}

func readInput(c *cli.Command) ([]byte, error) {
	if c.Args().Len() != 1 {
		return nil, fmt.Errorf("expected exactly one configuration file argument, - for stdin")
	}
	if c.Args().First() == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(c.Args().First())
}

func validateFile(c *cli.Command) (*project.Project, error) {
	data, err := readInput(c)
	if err != nil {
		return nil, err
	}
	return newCompiler().Validate(data)
}

func readingFromMetric(node string, m queue.Metric) *store.Reading {
	return &store.Reading{
		TS:     m.TS,
		Node:   node,
		Sensor: m.Labels["sensor"],
		Name:   m.Name,
		Unit:   m.Unit,
		Value:  m.Value,
	}
}

func waitForSignal() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	log.Infof("got %s, exiting", s)
}

func main() {
	defer log.Sync()
	// register internal stats
	mon.RegisterGcStats()
	app := &cli.Command{
		Name:        "esphome-tcs34725",
		Description: "validate and generate setup code for TCS34725 color sensor configurations",
		HideHelp:    true,
	}
	app.Version = version
	log.Infof("Starting %s version: %s", app.Name, version)
	app.Flags = []cli.Flag{
		&cli.BoolFlag{Name: "help, h", Usage: "show help"},
		&cli.BoolFlag{Name: "debug, d", Usage: "enable debug logs"},
		&cli.StringFlag{
			Name:  "config",
			Usage: "config file, overrides default search paths",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("CONFIG"),
			),
		},
		&cli.StringFlag{
			Name:  "listen-addr",
			Value: "127.0.0.1:3001",
			Usage: "Listen addr",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("LISTEN_ADDR"),
			),
		},
		&cli.StringFlag{
			Name:  "mqtt-addr",
			Value: "tcp://127.0.0.1:1883",
			Usage: "mqtt broker address",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("MQTT_ADDR"),
			),
		},
		&cli.StringFlag{
			Name:  "database",
			Value: "tcs34725.sqlite",
			Usage: "sqlite file or postgres DSN for build and reading history",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("DATABASE_DSN"),
			),
		},
		&cli.StringFlag{
			Name:  "discovery-prefix",
			Value: "homeassistant",
			Usage: "Home Assistant discovery topic prefix",
		},
		&cli.StringFlag{
			Name:  "pprof-addr",
			Value: "",
			Usage: "address to run pprof on, disabled by default",
		},
	}
	app.Before = func(ctx context.Context, c *cli.Command) (context.Context, error) {
		if c.Bool("help") {
			cli.ShowAppHelp(c)
			os.Exit(1)
		}
		debug = c.Bool("debug")
		log.Debug("debug enabled")
		return ctx, nil
	}
	app.Commands = []*cli.Command{
		{
			Name:      "validate",
			Aliases:   []string{"v"},
			Usage:     "validate configuration file and list its sensors",
			ArgsUsage: "<config.yaml>",
			Action: func(ctx context.Context, c *cli.Command) error {
				p, err := validateFile(c)
				if err != nil {
					return err
				}
				log.Infof("%s (%s): configuration valid", p.Name, p.Platform)
				for _, e := range p.Entities() {
					log.Infof("  %s: %s [%s]", e.ObjectID, e.Name, e.Unit)
				}
				return nil
			},
		},
		{
			Name:      "compile",
			Aliases:   []string{"c"},
			Usage:     "generate driver setup code",
			ArgsUsage: "<config.yaml>",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output file, - for stdout"},
				&cli.StringFlag{Name: "format", Value: "cpp", Usage: "cpp, json or yaml"},
				&cli.BoolFlag{Name: "record", Usage: "record build in database"},
			},
			Action: func(ctx context.Context, c *cli.Command) error {
				cfg := loadConfig(c)
				data, err := readInput(c)
				if err != nil {
					return err
				}
				res, cerr := newCompiler().Compile(data)
				if c.Bool("record") {
					s, err := store.New(store.Config{DSN: cfg.DatabaseDSN, Logger: log.Named("store")})
					if err != nil {
						return err
					}
					defer s.Close()
					b := store.Build{Hash: project.Hash(data), Config: string(data), Success: cerr == nil}
					if cerr != nil {
						b.Errors = cerr.Error()
					} else {
						b.Node, b.Platform, b.Program = res.Name, res.Platform, res.Program.String()
					}
					if err := s.SaveBuild(&b); err != nil {
						return err
					}
					log.Infof("recorded build #%d", b.ID)
				}
				if cerr != nil {
					return cerr
				}
				var out []byte
				switch c.String("format") {
				case "cpp":
					out = []byte(res.Program.String())
				case "json":
					out, err = json.MarshalIndent(res.Program.Directives(), "", "  ")
				case "yaml":
					out, err = yaml.Marshal(res.Program.Directives())
				default:
					return fmt.Errorf("unknown format %s", c.String("format"))
				}
				if err != nil {
					return err
				}
				output := c.String("output")
				if output == "" && cfg.OutputDir != "" {
					output = filepath.Join(cfg.OutputDir, res.Name, "main."+c.String("format"))
				}
				if output == "" || output == "-" {
					_, err = os.Stdout.Write(out)
					return err
				}
				if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
					return err
				}
				log.Infof("writing %s", output)
				return os.WriteFile(output, out, 0644)
			},
		},
		{
			Name:  "serve",
			Usage: "run validation/compilation HTTP API",
			Action: func(ctx context.Context, c *cli.Command) error {
				cfg := loadConfig(c)
				var webDir fs.FS
				webDir = embeddedWebContent
				if st, err := os.Stat("./static"); err == nil && st.IsDir() {
					if st, err := os.Stat("./templates"); err == nil && st.IsDir() {
						webDir = os.DirFS(".")
						log.Infof(`detected directories "static" and "templates", using local static files instead of ones embedded in binary`)
					}
				}
				s, err := store.New(store.Config{DSN: cfg.DatabaseDSN, Logger: log.Named("store")})
				if err != nil {
					log.Panicf("error opening database: %s", err)
				}
				reg := newRegistry()
				compiler, err := project.New(project.Config{Registry: reg, Logger: log.Named("compiler")})
				if err != nil {
					return err
				}
				w, err := web.New(web.Config{
					Logger:     log,
					ListenAddr: cfg.ListenAddress,
					Compiler:   compiler,
					Registry:   reg,
					Store:      s,
				}, webDir)
				if err != nil {
					log.Panicf("error starting web listener: %s", err)
				}
				if len(cfg.PProfAddress) > 0 {
					log.Infof("listening pprof on %s", cfg.PProfAddress)
					go func() {
						log.Errorf("failed to start debug listener: %s (ignoring)", http.ListenAndServe(cfg.PProfAddress, nil))
					}()
				}
				return w.Run()
			},
		},
		{
			Name:      "discovery",
			Usage:     "publish Home Assistant discovery for sensors of configuration",
			ArgsUsage: "<config.yaml>",
			Action: func(ctx context.Context, c *cli.Command) error {
				cfg := loadConfig(c)
				p, err := validateFile(c)
				if err != nil {
					return err
				}
				q, err := queue.New(&queue.Config{
					MQTTAddr:        cfg.MQTTAddress,
					Logger:          log.Named("mq"),
					DiscoveryPrefix: cfg.DiscoveryPrefix,
				})
				if err != nil {
					return err
				}
				defer q.Close()
				entities := p.Entities()
				log.Infof("publishing discovery of %d sensors of %s", len(entities), p.Name)
				return q.PublishDiscovery(p.Name, entities, version)
			},
		},
		{
			Name:      "monitor",
			Usage:     "record sensor states of configured device",
			ArgsUsage: "<config.yaml>",
			Action: func(ctx context.Context, c *cli.Command) error {
				cfg := loadConfig(c)
				p, err := validateFile(c)
				if err != nil {
					return err
				}
				s, err := store.New(store.Config{DSN: cfg.DatabaseDSN, Logger: log.Named("store")})
				if err != nil {
					return err
				}
				defer s.Close()
				q, err := queue.New(&queue.Config{
					MQTTAddr:        cfg.MQTTAddress,
					Logger:          log.Named("mq"),
					DiscoveryPrefix: cfg.DiscoveryPrefix,
					ExtraLabels:     cfg.ExtraLabels,
					Sink:            queue.SinkFunc(func(m queue.Metric) error { return s.SaveReading(readingFromMetric(p.Name, m)) }),
				})
				if err != nil {
					return err
				}
				defer q.Close()
				if err := q.Watch(p.Name, p.Entities()); err != nil {
					return err
				}
				waitForSignal()
				return nil
			},
		},
		{
			Name:  "builds",
			Usage: "list recorded builds",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "limit", Value: 20},
			},
			Action: func(ctx context.Context, c *cli.Command) error {
				cfg := loadConfig(c)
				s, err := store.New(store.Config{DSN: cfg.DatabaseDSN, Logger: log.Named("store")})
				if err != nil {
					return err
				}
				defer s.Close()
				builds, err := s.ListBuilds(int(c.Int("limit")))
				if err != nil {
					return err
				}
				for _, b := range builds {
					status := "ok"
					if !b.Success {
						status = "FAILED"
					}
					fmt.Printf("%5d %s %-20s %-8s %s %.12s\n", b.ID, b.CreatedAt.Format("2006-01-02 15:04:05"), b.Node, b.Platform, status, b.Hash)
				}
				return nil
			},
		},
	}
	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
