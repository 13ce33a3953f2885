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

// Package config loads coapdash configuration.
//
// Values are resolved in increasing order of precedence:
//
//  1. built-in defaults (pkg/defaults)
//  2. an optional config file, YAML (.yaml, .yml) or JSON with comments
//     (.json, .jsonc)
//  3. a .env file in the working directory, if present
//  4. COAPDASH_* environment variables
//
// Command line flags are applied on top by pkg/cli.
//
// Example config.yaml:
//
//	logLevel: debug
//	dashboard:
//	  port: 8080
//	  registryURI: http://broker.local:8000/nodes
//	  nodeTimeout: 20s
//	  cycleTimeout: 30s
//	  pollInterval: 15s
//	coap:
//	  requestTimeout: 5s
//	registry:
//	  alivePort: 8888
//	  maxAge: 2m
package config
