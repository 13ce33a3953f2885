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

package serializer

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Table is the tabular rendering of a value.
type Table struct {
	// Caption is printed above the table, muted.
	Caption string
	Headers []string
	Rows    [][]string
	// Empty is printed instead of the table when there are no rows.
	Empty string
}

// Tabular is implemented by values that can be written in table format.
type Tabular interface {
	Table() Table
}

var (
	tableHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("99")).
				Bold(true).
				Padding(0, 1)
	tableCellStyle    = lipgloss.NewStyle().Padding(0, 1)
	tableBorderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	tableCaptionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

// Render returns t with rounded borders.
func (t Table) Render() string {
	var sb strings.Builder
	if t.Caption != "" {
		sb.WriteString(tableCaptionStyle.Render(t.Caption))
		sb.WriteString("\n")
	}

	if len(t.Rows) == 0 {
		empty := t.Empty
		if empty == "" {
			empty = "<empty>"
		}
		sb.WriteString(empty)
		sb.WriteString("\n")
		return sb.String()
	}

	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(tableBorderStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		}).
		Headers(t.Headers...).
		Rows(t.Rows...)

	sb.WriteString(tbl.String())
	sb.WriteString("\n")
	return sb.String()
}

func (w *Writer) serializeTable(v any) error {
	tv, ok := v.(Tabular)
	if !ok {
		return fmt.Errorf("table format is not supported for %T", v)
	}
	if _, err := io.WriteString(w.output, tv.Table().Render()); err != nil {
		return fmt.Errorf("failed to write table: %w", err)
	}
	return nil
}
