package main

import (
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/quietlychris/meadow-sub000/config"
	"github.com/quietlychris/meadow-sub000/host"
	"github.com/quietlychris/meadow-sub000/internal/mlog"
)

func main() {
	configPath := flag.String("config", "", "path to a Host JSON config file; if empty, built-in defaults are used")
	name := flag.String("name", "meadow", "Host name, used to derive a default store path")
	logLevel := flag.String("loglevel", "info", "debug, info, warn, or err")
	flag.Parse()

	mlog.SetLogLevel(*logLevel)

	cfg := config.DefaultHostConfig(*name)
	if *configPath != "" {
		raw, err := os.ReadFile(*configPath)
		if err != nil {
			mlog.Fatalf("reading config file: %v", err)
		}
		cfg, err = config.LoadHost(json.RawMessage(raw))
		if err != nil {
			mlog.Fatalf("loading config: %v", err)
		}
	}

	h, err := host.New(cfg)
	if err != nil {
		mlog.Fatalf("building host: %v", err)
	}
	if err := h.Start(); err != nil {
		mlog.Fatalf("starting host: %v", err)
	}
	mlog.Infof("meadow host %q listening on interface %q port %d", cfg.Name, cfg.Interface, cfg.Port)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	mlog.Info("shutting down")
	if err := h.Stop(); err != nil {
		mlog.Errorf("stopping host: %v", err)
	}
}
