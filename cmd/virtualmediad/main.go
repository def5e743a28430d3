// Virtual Media Daemon
// Copyright (c) 2026 Virtual Media Daemon Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of the Virtual Media Daemon.
//
// The Virtual Media Daemon is free software: you can redistribute it
// and/or modify it under the terms of the GNU General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// The Virtual Media Daemon is distributed in the hope that it will be
// useful, but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with the Virtual Media Daemon.  If not, see
// <http://www.gnu.org/licenses/>.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openbmc-project/virtual-media/internal/config"
	"github.com/openbmc-project/virtual-media/internal/dbusbus"
	"github.com/openbmc-project/virtual-media/internal/nbddevice"
	"github.com/openbmc-project/virtual-media/internal/service"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

const busName = "xyz.openbmc_project.VirtualMedia"

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "/etc/virtual-media/config.toml", "path to configuration file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	setupLogging(*debug)

	defer func() {
		if r := recover(); r != nil {
			log.Fatal().Msgf("panic: %v", r)
		}
	}()

	cfg, err := config.NewConfig(*configPath, config.Values{
		ConfigSchema: config.SchemaVersion,
		TempRoot:     "/run/virtual-media",
	})
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus, err := dbusbus.Connect(busName)
	if err != nil {
		return fmt.Errorf("failed to connect to d-bus: %w", err)
	}

	monitor, err := nbddevice.NewDefault(ctx)
	if err != nil {
		bus.Close()
		return fmt.Errorf("failed to start nbd device monitor: %w", err)
	}

	svc, err := service.New(cfg, bus, monitor)
	if err != nil {
		bus.Close()
		monitor.Stop()
		return fmt.Errorf("failed to assemble service: %w", err)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	runErr := svc.Run(ctx)
	if closeErr := svc.Close(); closeErr != nil {
		log.Warn().Err(closeErr).Msg("error during shutdown")
	}
	if runErr != nil && ctx.Err() == nil {
		return fmt.Errorf("service exited: %w", runErr)
	}
	return nil
}

// setupLogging matches the daemon's own log level to -debug and picks
// a console writer when stdout is a terminal, JSON lines otherwise, so
// output is readable interactively but still machine-parseable under
// systemd.
func setupLogging(debug bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if term.IsTerminal(int(os.Stdout.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	}
}
