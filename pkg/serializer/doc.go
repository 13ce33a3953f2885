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

// Package serializer provides utilities for serializing data to various formats.
//
// The package supports three output formats:
//   - JSON: Machine-readable structured data with proper indentation
//   - YAML: Human-readable configuration format
//   - Table: Bordered terminal table for values implementing Tabular
//
// Writing a snapshot:
//
//	w := serializer.NewFileWriterOrStdout(serializer.FormatYAML, path)
//	defer w.Close()
//	if err := w.Serialize(ctx, snap); err != nil {
//		return err
//	}
//
// Reading configuration, with the format taken from the extension. JSON
// files may contain comments and trailing commas:
//
//	r, err := serializer.NewFileReader(serializer.FormatFromPath(path), path)
//	if err != nil {
//		return err
//	}
//	defer r.Close()
//	err = r.Deserialize(&cfg)
//
// Fetching a document over HTTP with bounded timeouts:
//
//	data, err := serializer.NewHttpReader().ReadWithContext(ctx, uri)
//
// For HTTP responses:
//
//	serializer.RespondJSON(w, http.StatusOK, data)
package serializer
