package vsm

// NewExample returns a small worked map: supplier to client through three
// processes with stock in between, scheduled by production control.
func NewExample() Diagram {
	d := NewEmpty()
	d.Settings.CustomerDemand = 4600
	d.Settings.Title = "Current state"
	d.Settings.Company = "Example Works"
	d.Settings.Product = "Bracket B-200"

	process := func(id, name string, x, cycle, changeover, availability, defects float64, operators int) Element {
		w, h := DefaultSize(TypeProcess)
		return Element{
			ID: id, Type: TypeProcess, X: x, Y: 300, Width: w, Height: h,
			Attrs: Attributes{
				Name:           name,
				CycleTime:      cycle,
				ChangeoverTime: changeover,
				Availability:   availability,
				DefectRate:     defects,
				Operators:      operators,
				LotSize:        1,
			},
		}
	}
	stock := func(id string, x, days float64) Element {
		w, h := DefaultSize(TypeInventory)
		return Element{
			ID: id, Type: TypeInventory, X: x, Y: 310, Width: w, Height: h,
			Attrs: Attributes{Name: "Stock", Days: days},
		}
	}

	d.Elements = []Element{
		{ID: "supplier", Type: TypeSupplier, X: 40, Y: 60, Width: 160, Height: 110,
			Attrs: Attributes{Name: "Steel Co.", Frequency: "Weekly"}},
		{ID: "control", Type: TypeProductionControl, X: 560, Y: 60, Width: 180, Height: 100,
			Attrs: Attributes{Name: "Production Control"}},
		{ID: "client", Type: TypeClient, X: 1120, Y: 60, Width: 160, Height: 110,
			Attrs: Attributes{Name: "Assembly Plant", Frequency: "Daily"}},
		stock("stock-raw", 40, 5),
		process("stamping", "Stamping", 220, 1, 3600, 85, 1, 1),
		stock("stock-wip", 400, 4.6),
		process("welding", "Welding", 580, 39, 600, 100, 2, 1),
		stock("stock-fg", 760, 2.7),
		process("assembly", "Assembly", 940, 62, 0, 100, 0.5, 2),
		{ID: "shipping", Type: TypeShipping, X: 1130, Y: 310, Width: 150, Height: 100,
			Attrs: Attributes{Name: "Shipping", Frequency: "Daily"}},
		{ID: "idea", Type: TypeImprovementIdea, X: 220, Y: 480, Width: 150, Height: 100,
			Attrs: Attributes{Name: "SMED on press"}},
	}

	material := func(id, from, to string) Connection {
		return Connection{
			ID:    id,
			From:  Endpoint{ElementID: from, Anchor: AnchorRight},
			To:    Endpoint{ElementID: to, Anchor: AnchorLeft},
			Flow:  FlowMaterial,
			Arrow: ArrowPush,
		}
	}
	info := func(id, from string, fromAnchor Anchor, to string, toAnchor Anchor, tx Transmission, label string) Connection {
		return Connection{
			ID:           id,
			From:         Endpoint{ElementID: from, Anchor: fromAnchor},
			To:           Endpoint{ElementID: to, Anchor: toAnchor},
			Flow:         FlowInformation,
			Transmission: tx,
			Label:        label,
		}
	}

	d.Connections = []Connection{
		material("m1", "stock-raw", "stamping"),
		material("m2", "stamping", "stock-wip"),
		material("m3", "stock-wip", "welding"),
		material("m4", "welding", "stock-fg"),
		material("m5", "stock-fg", "assembly"),
		material("m6", "assembly", "shipping"),
		info("i1", "client", AnchorLeft, "control", AnchorRight, TransmissionElectronic, "Daily orders"),
		info("i2", "control", AnchorLeft, "supplier", AnchorRight, TransmissionElectronic, "Weekly forecast"),
		info("i3", "control", AnchorBottom, "welding", AnchorTop, TransmissionManual, "Daily schedule"),
	}
	return d
}
