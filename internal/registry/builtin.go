package registry

import "github.com/gobioeng/halog-ingest/internal/domain"

// BuiltinDefinitions returns the curated parameter table: the water-system,
// voltage, temperature, fan-speed and humidity parameters tracked across the
// LINAC fleet. Expected ranges are the normal operating bands; critical
// ranges are the wider safety bands used for scoring penalties.
func BuiltinDefinitions() []domain.ParameterDefinition {
	return []domain.ParameterDefinition{
		// Water system
		{
			ID: "pumpPressure",
			Aliases: []string{
				"cooling pump high statistics",
				"CoolingpumpHighStatistics",
				"pump pressure",
			},
			Unit:          "PSI",
			Description:   "Cooling Pump Pressure",
			ExpectedRange: domain.Range{Min: 10, Max: 30},
			CriticalRange: domain.Range{Min: 5, Max: 40},
			Category:      domain.CategoryWater,
		},
		{
			ID: "magnetronFlow",
			Aliases: []string{
				"magnetron flow",
				"CoolingmagnetronFlowLowStatistics",
				"mag flow",
			},
			Unit:          "L/min",
			Description:   "Magnetron Cooling Flow",
			ExpectedRange: domain.Range{Min: 8, Max: 18},
			CriticalRange: domain.Range{Min: 6, Max: 20},
			Category:      domain.CategoryWater,
		},
		{
			ID: "targetAndCirculatorFlow",
			Aliases: []string{
				"target and circulator flow",
				"CoolingtargetFlowLowStatistics",
				"flow target",
			},
			Unit:          "L/min",
			Description:   "Target and Circulator Flow",
			ExpectedRange: domain.Range{Min: 2, Max: 5},
			CriticalRange: domain.Range{Min: 1, Max: 7},
			Category:      domain.CategoryWater,
		},
		{
			ID: "cityWaterFlow",
			Aliases: []string{
				"cooling city water flow statistics",
				"CoolingcityWaterFlowLowStatistics",
				"chiller water flow",
			},
			Unit:          "L/min",
			Description:   "City/Chiller Water Flow",
			ExpectedRange: domain.Range{Min: 8, Max: 18},
			CriticalRange: domain.Range{Min: 6, Max: 20},
			Category:      domain.CategoryWater,
		},

		// Voltages
		{
			ID:            "mlcBankA24V",
			Aliases:       []string{"mlc bank a 24v"},
			Unit:          "V",
			Description:   "MLC Bank A 24V Supply",
			ExpectedRange: domain.Range{Min: 22, Max: 26},
			CriticalRange: domain.Range{Min: 20, Max: 28},
			Category:      domain.CategoryVoltage,
		},
		{
			ID:            "mlcBankB24V",
			Aliases:       []string{"mlc bank b 24v"},
			Unit:          "V",
			Description:   "MLC Bank B 24V Supply",
			ExpectedRange: domain.Range{Min: 22, Max: 26},
			CriticalRange: domain.Range{Min: 20, Max: 28},
			Category:      domain.CategoryVoltage,
		},
		{
			ID:            "col48V",
			Aliases:       []string{"col 48v"},
			Unit:          "V",
			Description:   "Collimator 48V Supply",
			ExpectedRange: domain.Range{Min: 46, Max: 50},
			CriticalRange: domain.Range{Min: 44, Max: 52},
			Category:      domain.CategoryVoltage,
		},

		// Temperatures
		{
			ID: "tempRoom",
			Aliases: []string{
				"temp room",
				"room temperature",
				"FanremoteTempStatistics",
				"remote temp",
			},
			Unit:          "°C",
			Description:   "Room Temperature",
			ExpectedRange: domain.Range{Min: 18, Max: 25},
			CriticalRange: domain.Range{Min: 15, Max: 30},
			Category:      domain.CategoryTemperature,
		},
		{
			ID:            "tempPDU",
			Aliases:       []string{"temp pdu", "pdu temperature"},
			Unit:          "°C",
			Description:   "PDU Temperature",
			ExpectedRange: domain.Range{Min: 20, Max: 40},
			CriticalRange: domain.Range{Min: 15, Max: 45},
			Category:      domain.CategoryTemperature,
		},
		{
			ID:            "tempCOLBoard",
			Aliases:       []string{"temp col board", "collimator board temperature"},
			Unit:          "°C",
			Description:   "Collimator Board Temperature",
			ExpectedRange: domain.Range{Min: 25, Max: 45},
			CriticalRange: domain.Range{Min: 20, Max: 50},
			Category:      domain.CategoryTemperature,
		},
		{
			ID:            "tempMagnetron",
			Aliases:       []string{"temp magnetron", "magnetron temperature"},
			Unit:          "°C",
			Description:   "Magnetron Temperature",
			ExpectedRange: domain.Range{Min: 30, Max: 60},
			CriticalRange: domain.Range{Min: 25, Max: 70},
			Category:      domain.CategoryTemperature,
		},

		// Fan speeds
		{
			ID:            "speedFan1",
			Aliases:       []string{"speed fan 1", "fan 1 speed"},
			Unit:          "RPM",
			Description:   "Fan 1 Speed",
			ExpectedRange: domain.Range{Min: 1000, Max: 3000},
			CriticalRange: domain.Range{Min: 500, Max: 3500},
			Category:      domain.CategoryFan,
		},
		{
			ID:            "speedFan2",
			Aliases:       []string{"speed fan 2", "fan 2 speed"},
			Unit:          "RPM",
			Description:   "Fan 2 Speed",
			ExpectedRange: domain.Range{Min: 1000, Max: 3000},
			CriticalRange: domain.Range{Min: 500, Max: 3500},
			Category:      domain.CategoryFan,
		},
		{
			ID:            "speedFan3",
			Aliases:       []string{"speed fan 3", "fan 3 speed"},
			Unit:          "RPM",
			Description:   "Fan 3 Speed",
			ExpectedRange: domain.Range{Min: 1000, Max: 3000},
			CriticalRange: domain.Range{Min: 500, Max: 3500},
			Category:      domain.CategoryFan,
		},
		{
			ID:            "speedFan4",
			Aliases:       []string{"speed fan 4", "fan 4 speed"},
			Unit:          "RPM",
			Description:   "Fan 4 Speed",
			ExpectedRange: domain.Range{Min: 1000, Max: 3000},
			CriticalRange: domain.Range{Min: 500, Max: 3500},
			Category:      domain.CategoryFan,
		},

		// Humidity
		{
			ID:            "roomHumidity",
			Aliases:       []string{"room humidity", "humidity"},
			Unit:          "%RH",
			Description:   "Room Humidity",
			ExpectedRange: domain.Range{Min: 30, Max: 70},
			CriticalRange: domain.Range{Min: 20, Max: 80},
			Category:      domain.CategoryHumidity,
		},
	}
}
