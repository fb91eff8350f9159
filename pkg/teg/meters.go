// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package teg

import (
	"encoding/json"
	"math"
	"time"
)

// AggregateClass identifies one of the four aggregate meters.
type AggregateClass string

const (
	AggregateLoad    AggregateClass = "load"
	AggregateGrid    AggregateClass = "grid"
	AggregateBattery AggregateClass = "battery"
	AggregateSolar   AggregateClass = "solar"
)

// MetersAggregates is the payload of /api/meters/aggregates.
type MetersAggregates struct {
	// Load is "Home" in the Tesla mobile app.
	//
	// Positive numbers indicate power draw from the system to the home.
	// Negative numbers should never happen.
	Load AggregateMeterDevice `json:"load"`

	// Grid is "Grid" in the Tesla mobile app.
	//
	// Positive numbers indicate power draw from the grid to the system.
	// Negative numbers indicate sending power from the system to the grid.
	Grid AggregateMeterDevice `json:"site"`

	// Battery is "Powerwall" in the Tesla mobile app. This is an aggregate
	// number if you have more than one Powerwall.
	//
	// Positive numbers indicate power draw from the batteries to the system.
	// Negative numbers indicate sending power from the system to the
	// batteries.
	Battery AggregateMeterDevice `json:"battery"`

	// Solar is "Solar" in the Tesla mobile app.
	//
	// Positive numbers indicate power production from solar to the system.
	// Negative numbers indicate sending power from the system to solar.
	Solar AggregateMeterDevice `json:"solar"`
}

// AggregateMeterDevice is the reading of a single aggregate meter.
type AggregateMeterDevice struct {
	LastCommunicationTime time.Time `json:"last_communication_time"`
	Timeout               uint64    `json:"timeout"`

	// InstantPower is total power in Watts.
	//
	// A positive value indicates power draw from the device; a negative
	// value indicates power flow to the device.
	InstantPower         float64 `json:"instant_power"`
	InstantReactivePower float64 `json:"instant_reactive_power"`
	InstantApparentPower float64 `json:"instant_apparent_power"`

	// InstantAverageVoltage is the average voltage in Volts.
	InstantAverageVoltage float64 `json:"instant_average_voltage"`

	// InstantTotalCurrent is the total current in Amps.
	InstantTotalCurrent float64 `json:"instant_total_current"`

	// Frequency is the AC voltage frequency in Hz.
	Frequency float64 `json:"frequency"`

	IACurrent float64 `json:"i_a_current"`
	IBCurrent float64 `json:"i_b_current"`
	ICCurrent float64 `json:"i_c_current"`

	EnergyExported float64 `json:"energy_exported"`
	EnergyImported float64 `json:"energy_imported"`

	LastPhaseVoltageCommunicationTime time.Time `json:"last_phase_voltage_communication_time"`
	LastPhasePowerCommunicationTime   time.Time `json:"last_phase_power_communication_time"`
	LastPhaseEnergyCommunicationTime  time.Time `json:"last_phase_energy_communication_time"`

	// NumMetersAggregated is the number of meters this aggregation covers.
	// When absent from the raw response it defaults to 1.
	NumMetersAggregated uint16 `json:"num_meters_aggregated"`
}

// UnmarshalJSON applies the default of one aggregated meter before decoding.
func (d *AggregateMeterDevice) UnmarshalJSON(data []byte) error {
	type alias AggregateMeterDevice
	aux := alias{NumMetersAggregated: 1}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*d = AggregateMeterDevice(aux)
	return nil
}

// MeterFlow pairs an aggregate meter with its classification.
type MeterFlow struct {
	Class  AggregateClass
	Device *AggregateMeterDevice
}

// Sinks returns the meters currently consuming power from the system. The
// load is always a sink; grid, battery, and solar are sinks while their
// instant power is negative.
func (m *MetersAggregates) Sinks() []MeterFlow {
	flows := []MeterFlow{{AggregateLoad, &m.Load}}
	for _, candidate := range []MeterFlow{
		{AggregateGrid, &m.Grid},
		{AggregateBattery, &m.Battery},
		{AggregateSolar, &m.Solar},
	} {
		if math.Signbit(candidate.Device.InstantPower) {
			flows = append(flows, candidate)
		}
	}
	return flows
}

// Sources returns the meters currently supplying power to the system: grid,
// battery, and solar while their instant power is positive.
func (m *MetersAggregates) Sources() []MeterFlow {
	var flows []MeterFlow
	for _, candidate := range []MeterFlow{
		{AggregateGrid, &m.Grid},
		{AggregateBattery, &m.Battery},
		{AggregateSolar, &m.Solar},
	} {
		if !math.Signbit(candidate.Device.InstantPower) {
			flows = append(flows, candidate)
		}
	}
	return flows
}
