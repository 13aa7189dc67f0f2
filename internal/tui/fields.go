package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"kaizen/internal/vsm"
)

var errNegative = errors.New("value must not be negative")

// field is one editable row of the details panel. Fields with options cycle
// through them instead of opening the text input.
type field struct {
	label   string
	get     func() string
	set     func(string) error
	options []string
}

func (f field) next() error {
	cur := f.get()
	for i, o := range f.options {
		if o == cur {
			return f.set(f.options[(i+1)%len(f.options)])
		}
	}
	return f.set(f.options[0])
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if v < 0 {
		return 0, errNegative
	}
	return v, nil
}

func parseInt(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%q is not a whole number", s)
	}
	if v < 0 {
		return 0, errNegative
	}
	return v, nil
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// fieldsFor lists the panel rows for the current selection: the selected
// element or connection, or the map settings when nothing is selected.
func fieldsFor(s *vsm.State) (string, []field) {
	id := s.Selected()
	if e, ok := s.Element(id); ok {
		return e.Type.Label(), elementFields(s, e)
	}
	if c, ok := s.Connection(id); ok {
		return "Connection", connectionFields(s, c)
	}
	return "Map settings", settingsFields(s)
}

func elementFields(s *vsm.State, e vsm.Element) []field {
	id := e.ID
	attrs := func() vsm.Attributes {
		cur, _ := s.Element(id)
		return cur.Attrs
	}
	text := func(label string, get func(vsm.Attributes) string, patch func(string) vsm.ElementPatch) field {
		return field{
			label: label,
			get:   func() string { return get(attrs()) },
			set: func(v string) error {
				s.UpdateElement(id, patch(v))
				return nil
			},
		}
	}
	number := func(label string, get func(vsm.Attributes) float64, patch func(*float64) vsm.ElementPatch) field {
		return field{
			label: label,
			get:   func() string { return ftoa(get(attrs())) },
			set: func(v string) error {
				f, err := parseFloat(v)
				if err != nil {
					return err
				}
				s.UpdateElement(id, patch(&f))
				return nil
			},
		}
	}
	count := func(label string, get func(vsm.Attributes) int, patch func(*int) vsm.ElementPatch) field {
		return field{
			label: label,
			get:   func() string { return strconv.Itoa(get(attrs())) },
			set: func(v string) error {
				n, err := parseInt(v)
				if err != nil {
					return err
				}
				s.UpdateElement(id, patch(&n))
				return nil
			},
		}
	}

	name := text("Name", func(a vsm.Attributes) string { return a.Name },
		func(v string) vsm.ElementPatch { return vsm.ElementPatch{Name: &v} })
	content := text("Content", func(a vsm.Attributes) string { return a.Content },
		func(v string) vsm.ElementPatch { return vsm.ElementPatch{Content: &v} })
	frequency := text("Frequency", func(a vsm.Attributes) string { return a.Frequency },
		func(v string) vsm.ElementPatch { return vsm.ElementPatch{Frequency: &v} })

	switch e.Type {
	case vsm.TypeProcess:
		return []field{
			name,
			number("C/T (s)", func(a vsm.Attributes) float64 { return a.CycleTime },
				func(v *float64) vsm.ElementPatch { return vsm.ElementPatch{CycleTime: v} }),
			number("C/O (s)", func(a vsm.Attributes) float64 { return a.ChangeoverTime },
				func(v *float64) vsm.ElementPatch { return vsm.ElementPatch{ChangeoverTime: v} }),
			number("Uptime %", func(a vsm.Attributes) float64 { return a.Availability },
				func(v *float64) vsm.ElementPatch { return vsm.ElementPatch{Availability: v} }),
			count("Operators", func(a vsm.Attributes) int { return a.Operators },
				func(v *int) vsm.ElementPatch { return vsm.ElementPatch{Operators: v} }),
			number("Defects %", func(a vsm.Attributes) float64 { return a.DefectRate },
				func(v *float64) vsm.ElementPatch { return vsm.ElementPatch{DefectRate: v} }),
			count("Lot size", func(a vsm.Attributes) int { return a.LotSize },
				func(v *int) vsm.ElementPatch { return vsm.ElementPatch{LotSize: v} }),
		}
	case vsm.TypeInventory:
		return []field{
			name,
			number("Days", func(a vsm.Attributes) float64 { return a.Days },
				func(v *float64) vsm.ElementPatch { return vsm.ElementPatch{Days: v} }),
			text("Detail", func(a vsm.Attributes) string { return a.Detail },
				func(v string) vsm.ElementPatch { return vsm.ElementPatch{Detail: &v} }),
		}
	case vsm.TypeClient, vsm.TypeSupplier, vsm.TypeShipping:
		return []field{name, frequency}
	case vsm.TypeText:
		return []field{content}
	case vsm.TypeImprovementIdea:
		return []field{name, content}
	}
	return []field{name}
}

func connectionFields(s *vsm.State, c vsm.Connection) []field {
	id := c.ID
	cur := func() vsm.Connection {
		c, _ := s.Connection(id)
		return c
	}
	fields := []field{
		{
			label:   "Flow",
			get:     func() string { return string(cur().Flow) },
			options: []string{string(vsm.FlowMaterial), string(vsm.FlowInformation)},
			set: func(v string) error {
				f := vsm.FlowType(v)
				s.UpdateConnection(id, vsm.ConnectionPatch{Flow: &f})
				return nil
			},
		},
	}
	arrow := field{
		label:   "Arrow",
		get:     func() string { return string(cur().Arrow) },
		options: []string{string(vsm.ArrowPush), string(vsm.ArrowPull), string(vsm.ArrowSupermarket)},
		set: func(v string) error {
			a := vsm.ArrowStyle(v)
			s.UpdateConnection(id, vsm.ConnectionPatch{Arrow: &a})
			return nil
		},
	}
	transmission := field{
		label:   "Transmission",
		get:     func() string { return string(cur().Transmission) },
		options: []string{string(vsm.TransmissionManual), string(vsm.TransmissionElectronic)},
		set: func(v string) error {
			t := vsm.Transmission(v)
			s.UpdateConnection(id, vsm.ConnectionPatch{Transmission: &t})
			return nil
		},
	}
	if c.Flow == vsm.FlowMaterial {
		fields = append(fields, arrow)
	} else {
		fields = append(fields, transmission)
	}
	return append(fields,
		field{
			label: "Label",
			get:   func() string { return cur().Label },
			set: func(v string) error {
				s.UpdateConnection(id, vsm.ConnectionPatch{Label: &v})
				return nil
			},
		},
		field{
			label: "Detail",
			get:   func() string { return cur().Detail },
			set: func(v string) error {
				s.UpdateConnection(id, vsm.ConnectionPatch{Detail: &v})
				return nil
			},
		},
	)
}

func settingsFields(s *vsm.State) []field {
	settings := func() vsm.Settings { return s.Diagram().Settings }
	text := func(label string, get func(vsm.Settings) string, set func(*vsm.Settings, string)) field {
		return field{
			label: label,
			get:   func() string { return get(settings()) },
			set: func(v string) error {
				s.UpdateSettings(func(st *vsm.Settings) { set(st, v) })
				return nil
			},
		}
	}
	number := func(label string, get func(vsm.Settings) float64, set func(*vsm.Settings, float64)) field {
		return field{
			label: label,
			get:   func() string { return ftoa(get(settings())) },
			set: func(v string) error {
				f, err := parseFloat(v)
				if err != nil {
					return err
				}
				s.UpdateSettings(func(st *vsm.Settings) { set(st, f) })
				return nil
			},
		}
	}
	unit := text("Time unit", func(st vsm.Settings) string { return st.TimeUnit },
		func(st *vsm.Settings, v string) { st.TimeUnit = v })
	unit.options = []string{"s", "min", "h"}

	return []field{
		text("Title", func(st vsm.Settings) string { return st.Title },
			func(st *vsm.Settings, v string) { st.Title = v }),
		number("Demand/month", func(st vsm.Settings) float64 { return st.CustomerDemand },
			func(st *vsm.Settings, v float64) { st.CustomerDemand = v }),
		number("Open s/day", func(st vsm.Settings) float64 { return st.OpeningTime },
			func(st *vsm.Settings, v float64) { st.OpeningTime = v }),
		unit,
		text("Company", func(st vsm.Settings) string { return st.Company },
			func(st *vsm.Settings, v string) { st.Company = v }),
		text("Product", func(st vsm.Settings) string { return st.Product },
			func(st *vsm.Settings, v string) { st.Product = v }),
		text("Author", func(st vsm.Settings) string { return st.Author },
			func(st *vsm.Settings, v string) { st.Author = v }),
		text("Version", func(st vsm.Settings) string { return st.Version },
			func(st *vsm.Settings, v string) { st.Version = v }),
	}
}
