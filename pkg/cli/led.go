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
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/iot-lab/coapdash/pkg/collector"
	"github.com/iot-lab/coapdash/pkg/config"
	"github.com/iot-lab/coapdash/pkg/defaults"
	"github.com/iot-lab/coapdash/pkg/node"
)

func ledCmd() *cli.Command {
	return &cli.Command{
		Name:  "led",
		Usage: "Send an actuator command to one node",
		Description: `Write --state to the node's /led resource. The node is either given by
--node, or by --index into the registry's current node list.

# Examples

  coapdash led --index 0 --state 1
  coapdash led --node 2001:db8::1 --state 0`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "node",
				Usage: "node ID (IP address)",
			},
			&cli.IntFlag{
				Name:    "index",
				Aliases: []string{"i"},
				Usage:   "index of the node in the registry's node list",
				Value:   -1,
			},
			&cli.StringFlag{
				Name:     "state",
				Aliases:  []string{"s"},
				Usage:    "value to write",
				Required: true,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(ctx, defaults.CommandHandlerTimeout)
			defer cancel()

			id, err := resolveNode(ctx, cmd, cfg)
			if err != nil {
				return err
			}

			actuator := collector.NewDefaultFactory(newTransport(cfg), slog.Default()).CreateActuator()
			if err := actuator.Send(ctx, id, cmd.String("state")); err != nil {
				return fmt.Errorf("led command failed: %w", err)
			}

			fmt.Fprintln(cmd.Root().Writer, successMsg("sent %q to %s", cmd.String("state"), id))
			return nil
		},
	}
}

func resolveNode(ctx context.Context, cmd *cli.Command, cfg *config.Config) (node.ID, error) {
	if id := cmd.String("node"); id != "" {
		return node.ID(id), nil
	}

	index := cmd.Int("index")
	if index < 0 {
		return "", fmt.Errorf("either --node or --index is required")
	}

	lister, err := newLister(cfg, version)
	if err != nil {
		return "", err
	}
	ids, err := lister.ListNodes(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list nodes: %w", err)
	}
	if index >= len(ids) {
		return "", fmt.Errorf("no node at index %d: registry lists %d nodes", index, len(ids))
	}
	return ids[index], nil
}
