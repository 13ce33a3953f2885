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

package registry

import (
	"net/http"
	"time"

	"github.com/iot-lab/coapdash/pkg/serializer"
)

// Handler serves the store's current membership as a NodeList.
func Handler(s *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			serializer.RespondJSON(w, http.StatusMethodNotAllowed, map[string]string{
				"error": "method not allowed",
			})
			return
		}

		ids := s.List(time.Now())
		list := NodeList{Nodes: make([]string, 0, len(ids))}
		for _, id := range ids {
			list.Nodes = append(list.Nodes, string(id))
		}

		w.Header().Set("Cache-Control", "no-store")
		serializer.RespondJSON(w, http.StatusOK, list)
	}
}
