package vsm

const (
	secondsPerDay = 86400.0
	daysPerMonth  = 30.0
)

// Metrics are the advisory flow figures shown next to the map.
type Metrics struct {
	ValueAddedTime    float64 `json:"valueAddedTime"` // seconds
	LeadTime          float64 `json:"leadTime"`       // days
	ProcessEfficiency float64 `json:"processEfficiency"`
	TaktTime          float64 `json:"taktTime"` // seconds per unit
	Uptime            float64 `json:"uptime"`
	FirstPassYield    float64 `json:"firstPassYield"`
}

// ComputeMetrics derives the metrics from the current document. It is cheap
// and recomputed on every change.
func ComputeMetrics(d Diagram) Metrics {
	var (
		valueAdded   float64
		inventorySec float64
		availability float64
		yield        float64
		processes    int
	)
	for _, e := range d.Elements {
		switch e.Type {
		case TypeProcess:
			valueAdded += e.Attrs.CycleTime
			availability += e.Attrs.Availability
			yield += 100 - e.Attrs.DefectRate
			processes++
		case TypeInventory:
			inventorySec += e.Attrs.Days * secondsPerDay
		}
	}

	m := Metrics{
		ValueAddedTime: valueAdded,
		Uptime:         100,
		FirstPassYield: 100,
	}
	leadSeconds := valueAdded + inventorySec
	m.LeadTime = leadSeconds / secondsPerDay
	if leadSeconds > 0 {
		m.ProcessEfficiency = valueAdded / leadSeconds * 100
	}
	if processes > 0 {
		m.Uptime = availability / float64(processes)
		m.FirstPassYield = yield / float64(processes)
	}
	if dailyDemand := d.Settings.CustomerDemand / daysPerMonth; dailyDemand > 0 {
		m.TaktTime = d.Settings.OpeningTime / dailyDemand
	}
	return m
}
