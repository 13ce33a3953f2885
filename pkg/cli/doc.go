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

// Package cli implements the coapdash command line.
//
// # Commands
//
// serve - Run the dashboard:
//
//	coapdash serve --port 8080 --registry-uri http://localhost:8000/nodes
//
// Serves the HTML view, JSON snapshots, LED commands and a websocket of
// live snapshots. See package api for the routes.
//
// registry - Run the node registry:
//
//	coapdash registry --alive-port 8888 --port 8000 --max-age 2m
//
// Nodes announce themselves by sending any UDP datagram to the alive port.
//
// snapshot - Run one poll cycle:
//
//	coapdash snapshot --format json --output snapshot.json
//
// led - Send an actuator command:
//
//	coapdash led --index 0 --state 1
//
// nodes - List registered nodes:
//
//	coapdash nodes --format yaml
//
// # Global Flags
//
//	--config, -c   Config file, YAML or JSON with comments (env: COAPDASH_CONFIG)
//	--log-level    Log level: debug, info, warn, error (env: LOG_LEVEL)
//	--help, -h     Show command help
//	--version, -v  Show version information
//
// # Output Formats
//
// snapshot and nodes accept --format table (default), json or yaml, and
// --output to write to a file instead of stdout.
//
// # Configuration
//
// Settings are resolved from built-in defaults, the config file, a .env file
// in the working directory, COAPDASH_* environment variables and finally
// command flags. See package config.
//
// # Exit Codes
//
//	0  Success
//	1  Error (invalid arguments, unreachable registry, failed command)
package cli
