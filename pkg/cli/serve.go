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

package cli

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/iot-lab/coapdash/pkg/api"
	"github.com/iot-lab/coapdash/pkg/config"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the dashboard",
		Description: `Serve the dashboard. Every page view runs a poll cycle over the nodes
of the registry; --poll-interval additionally runs cycles in the background
and pushes them to websocket clients of /v1/live.

Flags override the config file and COAPDASH_* environment variables.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "address",
				Usage: "address to listen on",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "port to listen on",
			},
			&cli.StringFlag{
				Name:  "registry-uri",
				Usage: "node list endpoint of the registry",
			},
			&cli.DurationFlag{
				Name:  "poll-interval",
				Usage: "run a background cycle every interval (0 disables)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.IsSet("address") {
				cfg.Dashboard.Address = cmd.String("address")
			}
			if cmd.IsSet("port") {
				cfg.Dashboard.Port = cmd.Int("port")
			}
			if cmd.IsSet("registry-uri") {
				cfg.Dashboard.RegistryURI = cmd.String("registry-uri")
			}
			if cmd.IsSet("poll-interval") {
				cfg.Dashboard.PollInterval = config.Duration(cmd.Duration("poll-interval"))
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return api.Serve(ctx, cfg, version)
		},
	}
}

func registryCmd() *cli.Command {
	return &cli.Command{
		Name:  "registry",
		Usage: "Run the node registry",
		Description: `Track alive nodes. Every UDP datagram received on the alive port
registers its sender; nodes silent for longer than --max-age are dropped.
The node list is served at /nodes and membership changes at /live.`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "alive-port",
				Usage: "UDP port alive datagrams are received on",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "HTTP port the node list is served on",
			},
			&cli.DurationFlag{
				Name:  "max-age",
				Usage: "how long a node stays registered without an alive datagram",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.IsSet("alive-port") {
				cfg.Registry.AlivePort = cmd.Int("alive-port")
			}
			if cmd.IsSet("port") {
				cfg.Registry.HTTPPort = cmd.Int("port")
			}
			if cmd.IsSet("max-age") {
				cfg.Registry.MaxAge = config.Duration(cmd.Duration("max-age"))
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return api.ServeRegistry(ctx, cfg, version)
		},
	}
}

// commandTimeout bounds one-shot commands that talk to nodes.
func commandTimeout(cfg *config.Config) time.Duration {
	return cfg.Dashboard.CycleTimeout.Std() + cfg.CoAP.RequestTimeout.Std()
}
