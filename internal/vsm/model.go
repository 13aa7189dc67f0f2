// Package vsm holds the value stream map document: typed elements placed on a
// plane, anchor-to-anchor connections between them, and the global settings
// that feed the flow metrics.
package vsm

import (
	"github.com/goccy/go-json"
)

type ElementType string

const (
	TypeClient            ElementType = "client"
	TypeSupplier          ElementType = "supplier"
	TypeProcess           ElementType = "process"
	TypeInventory         ElementType = "inventory"
	TypeProductionControl ElementType = "production_control"
	TypeShipping          ElementType = "shipping"
	TypeText              ElementType = "text"
	TypeImprovementIdea   ElementType = "improvement_idea"
)

// ElementTypes lists every element type in toolbar order.
var ElementTypes = []ElementType{
	TypeSupplier,
	TypeClient,
	TypeProcess,
	TypeInventory,
	TypeProductionControl,
	TypeShipping,
	TypeText,
	TypeImprovementIdea,
}

func (t ElementType) Valid() bool {
	for _, known := range ElementTypes {
		if t == known {
			return true
		}
	}
	return false
}

func (t ElementType) Label() string {
	switch t {
	case TypeClient:
		return "Client"
	case TypeSupplier:
		return "Supplier"
	case TypeProcess:
		return "Process"
	case TypeInventory:
		return "Inventory"
	case TypeProductionControl:
		return "Production Control"
	case TypeShipping:
		return "Shipping"
	case TypeText:
		return "Text"
	case TypeImprovementIdea:
		return "Improvement"
	}
	return string(t)
}

type Anchor string

const (
	AnchorTop    Anchor = "top"
	AnchorBottom Anchor = "bottom"
	AnchorLeft   Anchor = "left"
	AnchorRight  Anchor = "right"
)

var Anchors = []Anchor{AnchorTop, AnchorRight, AnchorBottom, AnchorLeft}

type FlowType string

const (
	FlowMaterial    FlowType = "material"
	FlowInformation FlowType = "information"
)

type ArrowStyle string

const (
	ArrowPush        ArrowStyle = "push"
	ArrowPull        ArrowStyle = "pull"
	ArrowSupermarket ArrowStyle = "supermarket"
)

type Transmission string

const (
	TransmissionManual     Transmission = "manual"
	TransmissionElectronic Transmission = "electronic"
)

// Attributes is the type-dependent attribute bag of an element. Only the
// fields relevant to the element's type are meaningful.
type Attributes struct {
	Name string `json:"name,omitempty"`

	// Process
	CycleTime      float64 `json:"cycleTime,omitempty"`      // seconds
	ChangeoverTime float64 `json:"changeoverTime,omitempty"` // seconds
	Availability   float64 `json:"availability,omitempty"`   // percent
	Operators      int     `json:"operators,omitempty"`
	DefectRate     float64 `json:"defectRate,omitempty"` // percent
	LotSize        int     `json:"lotSize,omitempty"`

	// Inventory
	Days   float64 `json:"days,omitempty"`
	Detail string  `json:"detail,omitempty"`

	// Client, Supplier, Shipping
	Frequency string `json:"frequency,omitempty"`

	// Text
	Content string `json:"content,omitempty"`
}

type Element struct {
	ID     string      `json:"id"`
	Type   ElementType `json:"type"`
	X      float64     `json:"x"`
	Y      float64     `json:"y"`
	Width  float64     `json:"width"`
	Height float64     `json:"height"`
	Attrs  Attributes  `json:"data"`
}

func (e Element) Bounds() Rect {
	return Rect{X: e.X, Y: e.Y, Width: e.Width, Height: e.Height}
}

type Endpoint struct {
	ElementID string `json:"elementId"`
	Anchor    Anchor `json:"anchor"`
}

type Connection struct {
	ID           string       `json:"id"`
	From         Endpoint     `json:"from"`
	To           Endpoint     `json:"to"`
	Flow         FlowType     `json:"type"`
	Arrow        ArrowStyle   `json:"arrow,omitempty"`
	Transmission Transmission `json:"transmission,omitempty"`
	Label        string       `json:"label,omitempty"`
	Detail       string       `json:"detail,omitempty"`
}

// References reports whether either endpoint of the connection is elementID.
func (c Connection) References(elementID string) bool {
	return c.From.ElementID == elementID || c.To.ElementID == elementID
}

type Settings struct {
	CustomerDemand float64 `json:"customerDemand"` // units per month
	OpeningTime    float64 `json:"openingTime"`    // available seconds per day
	TimeUnit       string  `json:"timeUnit"`
	Title          string  `json:"title"`
	Company        string  `json:"company"`
	Product        string  `json:"product"`
	Author         string  `json:"author"`
	Version        string  `json:"version"`
}

type Diagram struct {
	Settings    Settings          `json:"settings"`
	Elements    []Element         `json:"elements"`
	Connections []Connection      `json:"connections"`
	Snapshots   []json.RawMessage `json:"snapshots,omitempty"`
	Comments    []json.RawMessage `json:"comments,omitempty"`
}

// NewEmpty returns the empty shell a new VSM module starts with.
func NewEmpty() Diagram {
	return Diagram{
		Settings: Settings{
			CustomerDemand: 0,
			OpeningTime:    27600,
			TimeUnit:       "s",
			Version:        "1",
		},
		Elements:    []Element{},
		Connections: []Connection{},
	}
}

func (d Diagram) Element(id string) (Element, bool) {
	for _, e := range d.Elements {
		if e.ID == id {
			return e, true
		}
	}
	return Element{}, false
}

func (d Diagram) Connection(id string) (Connection, bool) {
	for _, c := range d.Connections {
		if c.ID == id {
			return c, true
		}
	}
	return Connection{}, false
}

// Clone returns a deep copy safe to hand to another goroutine.
func (d Diagram) Clone() Diagram {
	out := d
	out.Elements = append(make([]Element, 0, len(d.Elements)), d.Elements...)
	out.Connections = append(make([]Connection, 0, len(d.Connections)), d.Connections...)
	if d.Snapshots != nil {
		out.Snapshots = append([]json.RawMessage(nil), d.Snapshots...)
	}
	if d.Comments != nil {
		out.Comments = append([]json.RawMessage(nil), d.Comments...)
	}
	return out
}
