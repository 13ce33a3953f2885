// Copyright (c) 2026, The coapdash Authors.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/iot-lab/coapdash/pkg/coap"
	"github.com/iot-lab/coapdash/pkg/collector"
	"github.com/iot-lab/coapdash/pkg/config"
	"github.com/iot-lab/coapdash/pkg/defaults"
	"github.com/iot-lab/coapdash/pkg/live"
	"github.com/iot-lab/coapdash/pkg/logging"
	"github.com/iot-lab/coapdash/pkg/registry"
	"github.com/iot-lab/coapdash/pkg/serializer"
	"github.com/iot-lab/coapdash/pkg/server"
	"github.com/iot-lab/coapdash/pkg/snapshotter"
)

const (
	name         = "coapdash"
	registryName = "coapdash-registry"
)

// Serve runs the dashboard until ctx is canceled or SIGINT/SIGTERM.
func Serve(ctx context.Context, cfg *config.Config, version string) error {
	logging.SetDefaultStructuredLoggerWithLevel(name, version, cfg.LogLevel)
	slog.Info("starting", "name", name, "version", version)

	lister, err := NewLister(cfg, version)
	if err != nil {
		return err
	}

	transport := coap.NewClient(
		coap.WithPort(cfg.CoAP.Port),
		coap.WithRequestTimeout(cfg.CoAP.RequestTimeout.Std()),
		coap.WithLogger(slog.Default()),
	)

	app := NewApp(cfg, version, lister, transport)
	return app.Run(ctx)
}

// NewLister returns the node registry selected by cfg: Consul when enabled,
// the HTTP registry otherwise. HTTP requests identify as coapdash/version.
func NewLister(cfg *config.Config, version string) (registry.Lister, error) {
	if cfg.Consul.Enabled() {
		l, err := registry.NewConsulLister(cfg.Consul.Address, cfg.Consul.Token, cfg.Consul.Service, cfg.Consul.Tag)
		if err != nil {
			return nil, err
		}
		slog.Info("using consul registry", "address", cfg.Consul.Address, "service", cfg.Consul.Service)
		return l, nil
	}
	slog.Info("using http registry", "uri", cfg.Dashboard.RegistryURI)
	return registry.NewHTTPLister(cfg.Dashboard.RegistryURI,
		serializer.WithUserAgent(name+"/"+version),
		serializer.WithTotalTimeout(defaults.HTTPClientTimeout)), nil
}

// App is a wired dashboard process.
type App struct {
	Fleet     *snapshotter.Fleet
	Dashboard *Dashboard
	Hub       *live.Hub
	Server    *server.Server

	pollInterval time.Duration
}

// NewApp wires the fleet, the live hub and the dashboard routes over
// transport. Extra server options are applied last.
func NewApp(cfg *config.Config, version string, lister registry.Lister, transport coap.Transport, opts ...server.Option) *App {
	logger := slog.Default()
	factory := collector.NewDefaultFactory(transport, logger)

	hub := live.NewHub(live.WithLogger(logger))
	viewTimeout := max(defaults.ViewHandlerTimeout,
		cfg.Dashboard.CycleTimeout.Std()+defaults.HandlerTimeoutMargin)

	dash := &Dashboard{
		Registry:    lister,
		Actuator:    factory.CreateActuator(),
		Live:        hub,
		ViewTimeout: viewTimeout,
		Logger:      logger,
	}

	fleet := &snapshotter.Fleet{
		Registry:     lister,
		Factory:      factory,
		Sinks:        []serializer.Serializer{hub, dash},
		NodeTimeout:  cfg.Dashboard.NodeTimeout.Std(),
		CycleTimeout: cfg.Dashboard.CycleTimeout.Std(),
		Version:      version,
		Logger:       logger,
	}
	dash.Snapshotter = fleet

	scfg := server.NewConfig()
	scfg.Address = cfg.Dashboard.Address
	scfg.Port = cfg.Dashboard.Port
	scfg.WriteTimeout = max(scfg.WriteTimeout, viewTimeout+defaults.HandlerTimeoutMargin)

	srvOpts := append([]server.Option{
		server.WithConfig(scfg),
		server.WithName(name),
		server.WithVersion(version),
		server.WithHandler(dash.Routes()),
		server.WithReadinessCheck("registry", func(ctx context.Context) error {
			_, err := lister.ListNodes(ctx)
			return err
		}),
	}, opts...)

	return &App{
		Fleet:        fleet,
		Dashboard:    dash,
		Hub:          hub,
		Server:       server.New(srvOpts...),
		pollInterval: cfg.Dashboard.PollInterval.Std(),
	}
}

// Run serves HTTP and, when a poll interval is configured, runs cycles in
// the background. It returns when ctx is done or a component fails.
func (a *App) Run(ctx context.Context) error {
	defer a.Hub.Close()

	var tasks []server.Task
	if a.pollInterval > 0 {
		tasks = append(tasks, func(ctx context.Context) error {
			a.poll(ctx)
			return nil
		})
	}

	if err := a.Server.Run(ctx, tasks...); err != nil {
		slog.Error("dashboard exited with error", "error", err)
		return fmt.Errorf("dashboard error: %w", err)
	}
	return nil
}

func (a *App) poll(ctx context.Context) {
	slog.Info("background polling enabled", "interval", a.pollInterval)
	t := time.NewTicker(a.pollInterval)
	defer t.Stop()
	for {
		if _, err := a.Fleet.RunCycle(ctx); err != nil && ctx.Err() == nil {
			slog.Warn("background cycle failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// ServeRegistry runs the registry service until ctx is canceled or
// SIGINT/SIGTERM.
func ServeRegistry(ctx context.Context, cfg *config.Config, version string) error {
	logging.SetDefaultStructuredLoggerWithLevel(registryName, version, cfg.LogLevel)
	slog.Info("starting", "name", registryName, "version", version)

	return NewRegistryApp(cfg, version).Run(ctx)
}

// RegistryApp is a wired registry process: the alive listener, the expiry
// sweep and the HTTP node list with live membership events.
type RegistryApp struct {
	Store    *registry.Store
	Hub      *live.Hub
	Listener *registry.AliveListener
	Server   *server.Server

	// PacketConn, if set, is served instead of listening on Listener.Addr.
	PacketConn net.PacketConn
}

// NewRegistryApp wires the registry components from cfg. Extra server
// options are applied last.
func NewRegistryApp(cfg *config.Config, version string, opts ...server.Option) *RegistryApp {
	logger := slog.Default()

	hub := live.NewHub(live.WithLogger(logger))
	store := registry.NewStore(cfg.Registry.MaxAge.Std())
	store.Notify = func(ev registry.Event) {
		logger.Info("membership changed", "event", string(ev.Kind), "node", string(ev.Node))
		hub.Publish(ev)
	}

	scfg := server.NewConfig()
	scfg.Address = cfg.Registry.Address
	scfg.Port = cfg.Registry.HTTPPort

	srvOpts := append([]server.Option{
		server.WithConfig(scfg),
		server.WithName(registryName),
		server.WithVersion(version),
		server.WithHandler(map[string]http.HandlerFunc{
			"/nodes": registry.Handler(store),
			"/live":  hub.ServeHTTP,
		}),
	}, opts...)

	return &RegistryApp{
		Store: store,
		Hub:   hub,
		Listener: &registry.AliveListener{
			Addr:   net.JoinHostPort(cfg.Registry.Address, strconv.Itoa(cfg.Registry.AlivePort)),
			Store:  store,
			Logger: logger,
		},
		Server: server.New(srvOpts...),
	}
}

// Run serves until ctx is done or a component fails.
func (a *RegistryApp) Run(ctx context.Context) error {
	defer a.Hub.Close()

	listen := func(ctx context.Context) error {
		if a.PacketConn != nil {
			return a.Listener.Serve(ctx, a.PacketConn)
		}
		return a.Listener.ListenAndServe(ctx)
	}
	expire := func(ctx context.Context) error {
		a.Store.RunExpiry(ctx, defaults.RegistryExpireInterval)
		return nil
	}

	if err := a.Server.Run(ctx, listen, expire); err != nil {
		slog.Error("registry exited with error", "error", err)
		return fmt.Errorf("registry error: %w", err)
	}
	return nil
}
