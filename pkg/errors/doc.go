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

// Package errors provides structured error types for coapdash.
//
// StructuredError carries a machine readable ErrorCode, a human readable
// message, the wrapped cause and optional debugging context:
//
//	return errors.WrapWithContext(errors.ErrCodeReadTimeout, "read timed out", err,
//	    map[string]any{
//	        "node": id,
//	        "path": path,
//	    },
//	)
//
// # Poll cycle taxonomy
//
// The cycle codes classify where a failure happened and therefore how far
// it propagates:
//
//   - REGISTRY_UNREACHABLE: the cycle has no node list; surfaced to the user
//   - DISCOVERY_TIMEOUT, DISCOVERY_TRANSPORT, DISCOVERY_PARSE: one node fails
//     before any read
//   - READ_TIMEOUT, READ_TRANSPORT: one node fails mid-sequence, keeping the
//     values read so far
//   - WRITE_TIMEOUT, WRITE_TRANSPORT: actuator command failures returned to
//     the caller
//
// Use CodeOf and IsCode to inspect errors that were further wrapped with
// fmt.Errorf.
package errors
