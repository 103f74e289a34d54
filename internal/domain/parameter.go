package domain

// Range is an inclusive value band for a parameter.
type Range struct {
	Min float64
	Max float64
}

// Contains reports whether v falls inside the band.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Width returns the span of the band.
func (r Range) Width() float64 {
	return r.Max - r.Min
}

// ParameterCategory groups canonical parameters by subsystem.
type ParameterCategory string

const (
	CategoryWater       ParameterCategory = "water"
	CategoryVoltage     ParameterCategory = "voltage"
	CategoryTemperature ParameterCategory = "temperature"
	CategoryFan         ParameterCategory = "fan"
	CategoryHumidity    ParameterCategory = "humidity"
)

// ParameterDefinition describes one canonical LINAC parameter.
// Definitions are built once at startup and never mutated afterwards.
type ParameterDefinition struct {
	ID            string            // canonical identifier, e.g. "magnetronFlow"
	Aliases       []string          // raw spellings seen in log files
	Unit          string            // display unit, e.g. "L/min"
	Description   string            // human-readable name
	ExpectedRange Range             // normal operating band
	CriticalRange Range             // safety band, wider than expected
	Category      ParameterCategory
}
