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

package snapshotter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iot-lab/coapdash/pkg/header"
	"github.com/iot-lab/coapdash/pkg/node"
	"github.com/iot-lab/coapdash/pkg/serializer"
)

// Snapshot is the result of one poll cycle. It is built once, after every
// node finished, and must not be modified afterwards.
type Snapshot struct {
	header.Header `json:",inline" yaml:",inline"`

	ID      string    `json:"id" yaml:"id"`
	Created time.Time `json:"created" yaml:"created"`

	// Records holds one record per node of the cycle, in registry order.
	Records []node.Record `json:"records" yaml:"records"`

	// Err is set when the registry could not be queried. Records is then
	// empty.
	Err *node.Failure `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the cycle failed at the registry.
func (s *Snapshot) Failed() bool {
	return s != nil && s.Err != nil
}

// NodeIDs returns the cycle's node list.
func (s *Snapshot) NodeIDs() []node.ID {
	if s == nil {
		return nil
	}
	ids := make([]node.ID, len(s.Records))
	for i, r := range s.Records {
		ids[i] = r.ID
	}
	return ids
}

// Record returns the record of id.
func (s *Snapshot) Record(id node.ID) (node.Record, bool) {
	if s == nil {
		return node.Record{}, false
	}
	for _, r := range s.Records {
		if r.ID == id {
			return r, true
		}
	}
	return node.Record{}, false
}

// FailedNodes returns how many nodes ended their sequence early.
func (s *Snapshot) FailedNodes() int {
	n := 0
	if s == nil {
		return n
	}
	for _, r := range s.Records {
		if r.Failed() {
			n++
		}
	}
	return n
}

// Table renders one row per record for the table output format.
func (s *Snapshot) Table() serializer.Table {
	t := serializer.Table{
		Caption: fmt.Sprintf("cycle %s at %s", s.ID, s.Created.UTC().Format("2006-01-02 15:04:05 MST")),
		Headers: []string{"#", "NODE", "BOARD", "READINGS", "LED", "STATUS"},
		Empty:   "No nodes registered.",
	}
	if s.Err != nil {
		t.Empty = "Registry unavailable: " + s.Err.Message
	}
	for i, rec := range s.Records {
		t.Rows = append(t.Rows, tableRow(i, rec))
	}
	return t
}

func tableRow(index int, rec node.Record) []string {
	var readings []string
	for _, name := range rec.Names() {
		if name == node.ActuatorName {
			continue
		}
		readings = append(readings, name+"="+rec.Values[name])
	}

	led := rec.LED()
	if led == "" {
		led = "-"
	}

	status := "ok"
	if rec.Failure != nil {
		status = string(rec.Failure.Code)
	}

	return []string{
		strconv.Itoa(index),
		string(rec.ID),
		rec.Board,
		strings.Join(readings, "\n"),
		led,
		status,
	}
}

// CycleState is the state of one in-flight cycle. It is created per cycle
// and never shared between cycles.
type CycleState struct {
	ID      string
	Started time.Time

	// Nodes is the registry listing as returned, repeats included.
	Nodes []node.ID

	// unique lists every distinct ID once, in first-seen order. Each gets
	// one record and one sequencer.
	unique []node.ID

	// records is fixed after creation; each record is written only by its
	// node's sequencer.
	records map[node.ID]*node.Record

	// done receives exactly one value per distinct node.
	done chan node.ID
}

// NewCycleState allocates the state for a cycle over ids. A repeated ID
// shares the record of its first occurrence.
func NewCycleState(ids []node.ID, started time.Time) *CycleState {
	st := &CycleState{
		ID:      uuid.NewString(),
		Started: started,
		Nodes:   append([]node.ID(nil), ids...),
		records: make(map[node.ID]*node.Record, len(ids)),
	}
	for _, id := range ids {
		if _, dup := st.records[id]; dup {
			continue
		}
		st.records[id] = node.NewRecord(id)
		st.unique = append(st.unique, id)
	}
	st.done = make(chan node.ID, len(st.unique))
	return st
}

// Snapshot builds the cycle's snapshot by walking the node list, so a
// repeated ID repeats its record. It must only be called after every node
// reported completion.
func (st *CycleState) Snapshot(version string) *Snapshot {
	snap := &Snapshot{
		ID:      st.ID,
		Created: st.Started,
		Records: make([]node.Record, 0, len(st.Nodes)),
	}
	snap.Init(header.KindSnapshot, version, st.Started)
	for _, id := range st.Nodes {
		snap.Records = append(snap.Records, st.records[id].Clone())
	}
	return snap
}

// failedSnapshot builds the snapshot of a cycle that never got a node list.
func failedSnapshot(version string, started time.Time, f *node.Failure) *Snapshot {
	snap := &Snapshot{
		ID:      uuid.NewString(),
		Created: started,
		Records: []node.Record{},
		Err:     f,
	}
	snap.Init(header.KindSnapshot, version, started)
	return snap
}
