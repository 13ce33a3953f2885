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

package collector

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/iot-lab/coapdash/pkg/node"
)

var cborDecMode cbor.DecMode

func init() {
	var err error
	cborDecMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("collector: CBOR decoder initialization failed: " + err.Error())
	}
}

// discoveryPayload is the wire shape of a node's resource listing.
type discoveryPayload struct {
	Board string      `json:"board" cbor:"board"`
	Paths []pathEntry `json:"paths" cbor:"paths"`
}

type pathEntry struct {
	Path        string `json:"path" cbor:"path"`
	Method      string `json:"method" cbor:"method"`
	DeviceClass string `json:"deviceClass,omitempty" cbor:"deviceClass,omitempty"`
}

// decodeDiscovery parses a discovery payload. CBOR is used when asCBOR is
// set, JSON otherwise.
func decodeDiscovery(body []byte, asCBOR bool) (node.Discovery, error) {
	var p discoveryPayload
	var err error
	if asCBOR {
		err = cborDecMode.Unmarshal(body, &p)
	} else {
		err = json.Unmarshal(body, &p)
	}
	if err != nil {
		return node.Discovery{}, err
	}

	d := node.Discovery{
		Board:     p.Board,
		Endpoints: make([]node.Endpoint, 0, len(p.Paths)),
	}
	for _, e := range p.Paths {
		if strings.TrimSpace(e.Path) == "" {
			continue
		}
		d.Endpoints = append(d.Endpoints, node.Endpoint{
			Path:        e.Path,
			Method:      node.ParseMethod(e.Method),
			DeviceClass: e.DeviceClass,
		})
	}
	return d, nil
}
