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

	"github.com/iot-lab/coapdash/pkg/registry"
	"github.com/iot-lab/coapdash/pkg/serializer"
)

func nodesCmd() *cli.Command {
	return &cli.Command{
		Name:  "nodes",
		Usage: "List the nodes currently registered",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "registry-uri",
				Usage: "node list endpoint of the registry",
			},
			outputFlag(),
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			outFormat, err := parseOutputFormat(cmd)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.IsSet("registry-uri") {
				cfg.Dashboard.RegistryURI = cmd.String("registry-uri")
			}

			lister, err := newLister(cfg, version)
			if err != nil {
				return err
			}
			ids, err := lister.ListNodes(ctx)
			if err != nil {
				return fmt.Errorf("failed to list nodes: %w", err)
			}

			list := registry.NodeList{Nodes: make([]string, 0, len(ids))}
			for _, id := range ids {
				list.Nodes = append(list.Nodes, string(id))
			}

			w := serializer.NewFileWriterOrStdout(outFormat, cmd.String("output"))
			defer func() {
				if err := w.Close(); err != nil {
					slog.Warn("failed to close output", "error", err)
				}
			}()
			return w.Serialize(ctx, list)
		},
	}
}
