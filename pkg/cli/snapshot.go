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

	"github.com/iot-lab/coapdash/pkg/api"
	"github.com/iot-lab/coapdash/pkg/coap"
	"github.com/iot-lab/coapdash/pkg/collector"
	"github.com/iot-lab/coapdash/pkg/config"
	"github.com/iot-lab/coapdash/pkg/serializer"
	"github.com/iot-lab/coapdash/pkg/snapshotter"
)

// Node access used by one-shot commands; tests replace them.
var (
	newTransport = func(cfg *config.Config) coap.Transport {
		return coap.NewClient(
			coap.WithPort(cfg.CoAP.Port),
			coap.WithRequestTimeout(cfg.CoAP.RequestTimeout.Std()),
			coap.WithLogger(slog.Default()),
		)
	}
	newLister = api.NewLister
)

func snapshotCmd() *cli.Command {
	return &cli.Command{
		Name:  "snapshot",
		Usage: "Run one poll cycle and print the result",
		Description: `List the registry's nodes, discover their resources and read every
sensor once. The snapshot can be output in JSON, YAML, or table format.

A node that fails is reported with its error code and does not fail the
command; an unreachable registry does.

# Examples

  coapdash snapshot
  coapdash snapshot --format json --output snapshot.json
  coapdash snapshot --registry-uri http://registry:8000/nodes`,
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

			fleet := &snapshotter.Fleet{
				Registry:     lister,
				Factory:      collector.NewDefaultFactory(newTransport(cfg), slog.Default()),
				NodeTimeout:  cfg.Dashboard.NodeTimeout.Std(),
				CycleTimeout: cfg.Dashboard.CycleTimeout.Std(),
				Version:      version,
			}

			ctx, cancel := context.WithTimeout(ctx, commandTimeout(cfg))
			defer cancel()

			snap, err := fleet.RunCycle(ctx)
			if err != nil {
				return fmt.Errorf("poll cycle failed: %w", err)
			}

			if err := writeSnapshot(cmd.String("output"), outFormat, snap); err != nil {
				return err
			}

			slog.Debug("snapshot complete",
				"cycle", snap.ID,
				"nodes", len(snap.Records),
				"failed", snap.FailedNodes())
			return nil
		},
	}
}

func writeSnapshot(path string, format serializer.Format, snap *snapshotter.Snapshot) error {
	w := serializer.NewFileWriterOrStdout(format, path)
	defer func() {
		if err := w.Close(); err != nil {
			slog.Warn("failed to close output", "error", err)
		}
	}()
	if err := w.Serialize(context.Background(), snap); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}
