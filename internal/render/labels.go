// Package render draws a value stream map three ways: onto a terminal rune
// grid for the editor, into a PNG, and into an SVG document. All three share
// the per-type text layout in this file.
package render

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"kaizen/internal/vsm"
)

// Lines is the text shown inside an element, title first.
func Lines(e vsm.Element) []string {
	a := e.Attrs
	title := a.Name
	if title == "" {
		title = e.Type.Label()
	}

	switch e.Type {
	case vsm.TypeProcess:
		lines := []string{
			title,
			"C/T " + seconds(a.CycleTime),
			"C/O " + seconds(a.ChangeoverTime),
			"Uptime " + num(a.Availability) + "%",
			"Ops " + strconv.Itoa(a.Operators),
		}
		if a.DefectRate > 0 {
			lines = append(lines, "Defects "+num(a.DefectRate)+"%")
		}
		if a.LotSize > 0 {
			lines = append(lines, "Lot "+strconv.Itoa(a.LotSize))
		}
		return lines
	case vsm.TypeInventory:
		lines := []string{"△ " + title, num(a.Days) + " days"}
		if a.Detail != "" {
			lines = append(lines, a.Detail)
		}
		return lines
	case vsm.TypeClient, vsm.TypeSupplier, vsm.TypeShipping:
		if a.Frequency == "" {
			return []string{title}
		}
		return []string{title, a.Frequency}
	case vsm.TypeText:
		return strings.Split(a.Content, "\n")
	case vsm.TypeImprovementIdea:
		lines := []string{"✱ " + title}
		if a.Content != "" {
			lines = append(lines, strings.Split(a.Content, "\n")...)
		}
		return lines
	}
	return []string{title}
}

// ConnectionLabel is the caption drawn at a connection's midpoint, if any.
func ConnectionLabel(c vsm.Connection) string {
	label := c.Label
	if c.Flow == vsm.FlowMaterial && c.Arrow == vsm.ArrowSupermarket {
		label = strings.TrimSpace("⊐ " + label)
	}
	return label
}

// MetricsSummary is the one-line metrics footer used by every renderer.
func MetricsSummary(m vsm.Metrics) string {
	return fmt.Sprintf("Lead %s d | VA %s | PCE %s%% | Takt %s | Uptime %s%% | FPY %s%%",
		num(m.LeadTime), seconds(m.ValueAddedTime), num(m.ProcessEfficiency),
		seconds(m.TaktTime), num(m.Uptime), num(m.FirstPassYield))
}

func seconds(v float64) string {
	return num(v) + "s"
}

// num prints v with at most two decimals.
func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
