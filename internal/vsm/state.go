package vsm

import "github.com/google/uuid"

const (
	duplicateOffset = 20.0
	copySuffix      = " (copy)"
)

// ElementPatch carries a partial update; nil fields are left unchanged.
type ElementPatch struct {
	X      *float64
	Y      *float64
	Width  *float64
	Height *float64

	Name           *string
	CycleTime      *float64
	ChangeoverTime *float64
	Availability   *float64
	Operators      *int
	DefectRate     *float64
	LotSize        *int
	Days           *float64
	Detail         *string
	Frequency      *string
	Content        *string
}

func (p ElementPatch) apply(e *Element) {
	setF(&e.X, p.X)
	setF(&e.Y, p.Y)
	setF(&e.Width, p.Width)
	setF(&e.Height, p.Height)
	e.Width, e.Height = ClampSize(e.Width, e.Height)

	a := &e.Attrs
	setS(&a.Name, p.Name)
	setF(&a.CycleTime, p.CycleTime)
	setF(&a.ChangeoverTime, p.ChangeoverTime)
	setF(&a.Availability, p.Availability)
	setI(&a.Operators, p.Operators)
	setF(&a.DefectRate, p.DefectRate)
	setI(&a.LotSize, p.LotSize)
	setF(&a.Days, p.Days)
	setS(&a.Detail, p.Detail)
	setS(&a.Frequency, p.Frequency)
	setS(&a.Content, p.Content)
}

type ConnectionPatch struct {
	FromAnchor   *Anchor
	ToAnchor     *Anchor
	Flow         *FlowType
	Arrow        *ArrowStyle
	Transmission *Transmission
	Label        *string
	Detail       *string
}

func (p ConnectionPatch) apply(c *Connection) {
	if p.FromAnchor != nil {
		c.From.Anchor = *p.FromAnchor
	}
	if p.ToAnchor != nil {
		c.To.Anchor = *p.ToAnchor
	}
	if p.Flow != nil && *p.Flow != c.Flow {
		c.Flow = *p.Flow
		normalizeFlow(c)
	}
	if p.Arrow != nil {
		c.Arrow = *p.Arrow
	}
	if p.Transmission != nil {
		c.Transmission = *p.Transmission
	}
	setS(&c.Label, p.Label)
	setS(&c.Detail, p.Detail)
}

// normalizeFlow keeps only the style field that belongs to the flow type.
func normalizeFlow(c *Connection) {
	switch c.Flow {
	case FlowMaterial:
		c.Transmission = ""
		if c.Arrow == "" {
			c.Arrow = ArrowPush
		}
	default:
		c.Flow = FlowInformation
		c.Arrow = ""
		if c.Transmission == "" {
			c.Transmission = TransmissionManual
		}
	}
}

// State is the canonical in-memory document plus selection. Every mutation
// notifies the change hook with a snapshot of the new document.
type State struct {
	doc      Diagram
	selected string
	onChange func(Diagram)
	newID    func() string
}

type StateOption func(*State)

// WithChangeHook registers fn to receive a snapshot after each mutation.
func WithChangeHook(fn func(Diagram)) StateOption {
	return func(s *State) { s.onChange = fn }
}

// WithIDGenerator replaces the uuid generator, mostly for tests.
func WithIDGenerator(fn func() string) StateOption {
	return func(s *State) { s.newID = fn }
}

func NewState(doc Diagram, opts ...StateOption) *State {
	if doc.Elements == nil {
		doc.Elements = []Element{}
	}
	if doc.Connections == nil {
		doc.Connections = []Connection{}
	}
	s := &State{doc: doc, newID: uuid.NewString}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Diagram returns a snapshot of the current document.
func (s *State) Diagram() Diagram {
	return s.doc.Clone()
}

func (s *State) Selected() string {
	return s.selected
}

// Select marks id as selected. An empty id clears the selection.
func (s *State) Select(id string) {
	s.selected = id
}

func (s *State) Element(id string) (Element, bool) {
	return s.doc.Element(id)
}

func (s *State) Connection(id string) (Connection, bool) {
	return s.doc.Connection(id)
}

// ElementAt returns the topmost element containing p.
func (s *State) ElementAt(p Point) (Element, bool) {
	for i := len(s.doc.Elements) - 1; i >= 0; i-- {
		if s.doc.Elements[i].Bounds().Contains(p) {
			return s.doc.Elements[i], true
		}
	}
	return Element{}, false
}

// UpdateSettings replaces the global settings.
func (s *State) UpdateSettings(fn func(*Settings)) {
	fn(&s.doc.Settings)
	s.changed()
}

// AddElement inserts a new element of type t centred on center and selects it.
func (s *State) AddElement(t ElementType, center Point) Element {
	w, h := DefaultSize(t)
	e := Element{
		ID:     s.newID(),
		Type:   t,
		X:      Snap(center.X-w/2, GridSize),
		Y:      Snap(center.Y-h/2, GridSize),
		Width:  w,
		Height: h,
		Attrs:  DefaultAttributes(t),
	}
	s.doc.Elements = append(s.doc.Elements, e)
	s.selected = e.ID
	s.changed()
	return e
}

// UpdateElement merges patch into the element. Unknown ids are ignored.
func (s *State) UpdateElement(id string, patch ElementPatch) bool {
	i := s.elementIndex(id)
	if i < 0 {
		return false
	}
	patch.apply(&s.doc.Elements[i])
	s.changed()
	return true
}

// SetBounds moves and resizes an element in one step, applying the floor.
func (s *State) SetBounds(id string, r Rect) bool {
	i := s.elementIndex(id)
	if i < 0 {
		return false
	}
	e := &s.doc.Elements[i]
	e.X, e.Y = r.X, r.Y
	e.Width, e.Height = ClampSize(r.Width, r.Height)
	s.changed()
	return true
}

// DeleteElement removes the element and every connection touching it.
func (s *State) DeleteElement(id string) bool {
	i := s.elementIndex(id)
	if i < 0 {
		return false
	}
	s.doc.Elements = append(s.doc.Elements[:i], s.doc.Elements[i+1:]...)

	kept := make([]Connection, 0, len(s.doc.Connections))
	for _, c := range s.doc.Connections {
		if c.References(id) {
			if s.selected == c.ID {
				s.selected = ""
			}
			continue
		}
		kept = append(kept, c)
	}
	s.doc.Connections = kept

	if s.selected == id {
		s.selected = ""
	}
	s.changed()
	return true
}

// DuplicateElement clones the element with a new id, offset by (+20, +20).
func (s *State) DuplicateElement(id string) (Element, bool) {
	src, ok := s.doc.Element(id)
	if !ok {
		return Element{}, false
	}
	return s.insertCopy(src), true
}

// Paste inserts a copy of e, which may no longer exist in the document.
func (s *State) Paste(e Element) Element {
	return s.insertCopy(e)
}

func (s *State) insertCopy(src Element) Element {
	dup := src
	dup.ID = s.newID()
	dup.X += duplicateOffset
	dup.Y += duplicateOffset
	dup.Attrs.Name += copySuffix
	s.doc.Elements = append(s.doc.Elements, dup)
	s.selected = dup.ID
	s.changed()
	return dup
}

// AddConnection links two anchors with an information flow. Self connections
// and connections to missing elements are rejected.
func (s *State) AddConnection(fromID string, fromAnchor Anchor, toID string, toAnchor Anchor) (Connection, bool) {
	if fromID == toID {
		return Connection{}, false
	}
	if s.elementIndex(fromID) < 0 || s.elementIndex(toID) < 0 {
		return Connection{}, false
	}
	c := Connection{
		ID:   s.newID(),
		From: Endpoint{ElementID: fromID, Anchor: fromAnchor},
		To:   Endpoint{ElementID: toID, Anchor: toAnchor},
		Flow: FlowInformation,
	}
	normalizeFlow(&c)
	s.doc.Connections = append(s.doc.Connections, c)
	s.changed()
	return c, true
}

func (s *State) UpdateConnection(id string, patch ConnectionPatch) bool {
	i := s.connectionIndex(id)
	if i < 0 {
		return false
	}
	patch.apply(&s.doc.Connections[i])
	s.changed()
	return true
}

func (s *State) DeleteConnection(id string) bool {
	i := s.connectionIndex(id)
	if i < 0 {
		return false
	}
	s.doc.Connections = append(s.doc.Connections[:i], s.doc.Connections[i+1:]...)
	if s.selected == id {
		s.selected = ""
	}
	s.changed()
	return true
}

// DeleteSelected removes whichever element or connection is selected.
func (s *State) DeleteSelected() bool {
	id := s.selected
	if id == "" {
		return false
	}
	if s.elementIndex(id) >= 0 {
		return s.DeleteElement(id)
	}
	return s.DeleteConnection(id)
}

// Replace swaps in a whole document, as on import. Element sizes are
// raised to the resize floor and connections whose endpoints do not exist
// are dropped.
func (s *State) Replace(doc Diagram) {
	doc = doc.Clone()
	for i := range doc.Elements {
		e := &doc.Elements[i]
		e.Width, e.Height = ClampSize(e.Width, e.Height)
	}
	kept := doc.Connections[:0]
	for _, c := range doc.Connections {
		if _, ok := doc.Element(c.From.ElementID); !ok {
			continue
		}
		if _, ok := doc.Element(c.To.ElementID); !ok {
			continue
		}
		kept = append(kept, c)
	}
	doc.Connections = kept
	s.doc = doc
	s.selected = ""
	s.changed()
}

func (s *State) elementIndex(id string) int {
	for i := range s.doc.Elements {
		if s.doc.Elements[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *State) connectionIndex(id string) int {
	for i := range s.doc.Connections {
		if s.doc.Connections[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *State) changed() {
	if s.onChange != nil {
		s.onChange(s.doc.Clone())
	}
}

func setF(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setI(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setS(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// ConnectionAt returns the connection whose drawn path passes within
// tolerance of p.
func (s *State) ConnectionAt(p Point, tolerance float64) (Connection, bool) {
	for i := len(s.doc.Connections) - 1; i >= 0; i-- {
		c := s.doc.Connections[i]
		path, ok := PathFor(s.doc, c)
		if !ok {
			continue
		}
		for _, q := range path.Sample(32) {
			if q.Dist(p) <= tolerance {
				return c, true
			}
		}
	}
	return Connection{}, false
}
