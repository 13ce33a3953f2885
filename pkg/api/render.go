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

package api

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/iot-lab/coapdash/pkg/node"
	"github.com/iot-lab/coapdash/pkg/snapshotter"
)

type reading struct {
	Name  string
	Value string
}

type row struct {
	Index    int
	ID       string
	Board    string
	Readings []reading
	LED      string
	Failure  string
}

type page struct {
	Created string
	Cycle   string
	Error   string
	Rows    []row
}

func newPage(snap *snapshotter.Snapshot, err error) page {
	p := page{}
	if err != nil {
		p.Error = err.Error()
	}
	if snap == nil {
		return p
	}

	p.Cycle = snap.ID
	p.Created = snap.Created.UTC().Format("2006-01-02 15:04:05 MST")
	if snap.Err != nil && p.Error == "" {
		p.Error = snap.Err.Message
	}

	for i, rec := range snap.Records {
		p.Rows = append(p.Rows, newRow(i, rec))
	}
	return p
}

func newRow(index int, rec node.Record) row {
	r := row{
		Index: index,
		ID:    string(rec.ID),
		Board: rec.Board,
	}
	for _, name := range rec.Names() {
		if name == node.ActuatorName {
			continue
		}
		r.Readings = append(r.Readings, reading{Name: name, Value: rec.Values[name]})
	}
	r.LED = rec.LED()
	if rec.Failure != nil {
		r.Failure = string(rec.Failure.Code) + ": " + rec.Failure.Message
	}
	return r
}

var pageTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>coapdash</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 0.3em 0.8em; text-align: left; vertical-align: top; }
tr.failed td { background: #fdecea; }
.error { color: #b00020; }
.muted { color: #777; }
</style>
</head>
<body>
<h1>coapdash</h1>
{{- if .Error}}
<p class="error">{{.Error}}</p>
{{- end}}
{{- if .Cycle}}
<p class="muted">cycle {{.Cycle}} at {{.Created}}</p>
{{- end}}
{{- if .Rows}}
<table>
<thead><tr><th>#</th><th>Node</th><th>Board</th><th>Readings</th><th>LED</th><th>Status</th></tr></thead>
<tbody>
{{- range .Rows}}
<tr{{if .Failure}} class="failed"{{end}}>
<td>{{.Index}}</td>
<td>{{.ID}}</td>
<td>{{.Board}}</td>
<td>{{range .Readings}}{{.Name}}: {{.Value}}<br>{{end}}</td>
<td>{{.LED}}
<a href="/v1/nodes/{{.Index}}/led?state=1">on</a>
<a href="/v1/nodes/{{.Index}}/led?state=0">off</a></td>
<td>{{if .Failure}}<span class="error">{{.Failure}}</span>{{else}}ok{{end}}</td>
</tr>
{{- end}}
</tbody>
</table>
{{- else if not .Error}}
<p class="muted">No nodes registered.</p>
{{- end}}
</body>
</html>
`))

// renderPage executes the template before writing headers so a template
// error never produces a partial page.
func renderPage(w http.ResponseWriter, status int, p page) error {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, p); err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}
