package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	hostChecker "git.ghink.net/ghink/host-checker"
	"git.ghink.net/ghink/host-checker/internal/method"
	"github.com/spf13/pflag"
)

func main() {
	cfg, err := hostChecker.LoadConfig(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		method.DefaultLogger("FATAL", "Failed to load configuration: ", err)
		os.Exit(2)
	}

	method.ConfigureLogger(cfg.LogFile, cfg.LogLevel)

	method.DefaultLogger("INFO", "HostChecker starting with configuration:")
	method.DefaultLogger("INFO", "  Config File: ", cfg.ConfigFile)
	method.DefaultLogger("INFO", "  Hosts: ", cfg.Hosts)
	method.DefaultLogger("INFO", "  Recipients: ", cfg.Recipients)
	method.DefaultLogger("INFO", "  Mail Sender: ", cfg.MailSender.Type)
	method.DefaultLogger("DEBUG", "  Relay Address: ", cfg.MailSender.Address)
	method.DefaultLogger("DEBUG", "  Probe Count: ", cfg.Probe.Count, ", Timeout: ", cfg.Probe.Timeout, ", Native: ", cfg.Probe.Native)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		method.DefaultLogger("INFO", "Shutting down...")
		cancel()
	}()

	if err := hostChecker.Run(ctx, cfg); err != nil {
		method.DefaultLogger("FATAL", err)
		cancel()
		os.Exit(1)
	}
}
