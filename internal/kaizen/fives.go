package kaizen

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

type Pillar string

const (
	PillarSort        Pillar = "sort"
	PillarSetInOrder  Pillar = "set_in_order"
	PillarShine       Pillar = "shine"
	PillarStandardize Pillar = "standardize"
	PillarSustain     Pillar = "sustain"
)

var Pillars = []Pillar{PillarSort, PillarSetInOrder, PillarShine, PillarStandardize, PillarSustain}

type ChecklistItem struct {
	Pillar    Pillar     `json:"pillar"`
	Label     string     `json:"label"`
	Done      bool       `json:"done"`
	DueDate   *time.Time `json:"dueDate,omitempty"`
	PhotoPath string     `json:"photoPath,omitempty"`
}

// Checklist is the content of a five_s module.
type Checklist struct {
	Items []ChecklistItem `json:"items"`
}

func DecodeChecklist(content []byte) (Checklist, error) {
	var c Checklist
	if len(content) == 0 || string(content) == "null" {
		return c, nil
	}
	if err := json.Unmarshal(content, &c); err != nil {
		return Checklist{}, fmt.Errorf("failed to decode 5S checklist: %w", err)
	}
	return c, nil
}

// Progress summarises a checklist.
type Progress struct {
	Total   int            `json:"total"`
	Done    int            `json:"done"`
	Percent float64        `json:"percent"`
	Overdue int            `json:"overdue"`
	Pillars map[Pillar]int `json:"pillars"` // percent done per pillar, pillars without items omitted
}

func (c Checklist) Progress(now time.Time) Progress {
	p := Progress{Pillars: map[Pillar]int{}}
	total := map[Pillar]int{}
	done := map[Pillar]int{}
	for _, it := range c.Items {
		p.Total++
		total[it.Pillar]++
		if it.Done {
			p.Done++
			done[it.Pillar]++
			continue
		}
		if it.DueDate != nil && it.DueDate.Before(now) {
			p.Overdue++
		}
	}
	if p.Total > 0 {
		p.Percent = float64(p.Done) / float64(p.Total) * 100
	}
	for pillar, n := range total {
		p.Pillars[pillar] = done[pillar] * 100 / n
	}
	return p
}
