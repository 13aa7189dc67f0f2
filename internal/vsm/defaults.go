package vsm

// DefaultSize is the size a freshly added element of type t gets.
func DefaultSize(t ElementType) (float64, float64) {
	switch t {
	case TypeProcess:
		return 160, 120
	case TypeClient, TypeSupplier:
		return 160, 110
	case TypeProductionControl:
		return 180, 100
	case TypeShipping:
		return 150, 100
	case TypeText:
		return 180, 100
	case TypeImprovementIdea:
		return 150, 100
	default:
		return MinWidth, MinHeight
	}
}

func DefaultAttributes(t ElementType) Attributes {
	a := Attributes{Name: t.Label()}
	switch t {
	case TypeProcess:
		a.CycleTime = 60
		a.Availability = 100
		a.Operators = 1
		a.LotSize = 1
	case TypeInventory:
		a.Name = "Stock"
		a.Days = 1
	case TypeClient, TypeSupplier:
		a.Frequency = "1x / week"
	case TypeShipping:
		a.Frequency = "Daily"
	case TypeText:
		a.Content = "Note"
	}
	return a
}
