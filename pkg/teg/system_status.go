// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package teg

import "time"

// SystemStatus is the payload of /api/system_status.
type SystemStatus struct {
	CommandSource string `json:"command_source"`

	// BatteryTargetPower is the target power in Watts.
	//
	// Negative values indicate the battery is charging.
	BatteryTargetPower         float64 `json:"battery_target_power"`
	BatteryTargetReactivePower float64 `json:"battery_target_reactive_power"`
	NominalFullPackEnergy      uint32  `json:"nominal_full_pack_energy"`
	NominalEnergyRemaining     uint32  `json:"nominal_energy_remaining"`

	MaxPowerEnergyRemaining      uint32 `json:"max_power_energy_remaining"`
	MaxPowerEnergyToBeCharged    uint32 `json:"max_power_energy_to_be_charged"`
	MaxChargePower               uint32 `json:"max_charge_power"`
	MaxDischargePower            uint32 `json:"max_discharge_power"`
	MaxApparentPower             uint32 `json:"max_apparent_power"`
	InstantaneousMaxDischargePower uint32 `json:"instantaneous_max_discharge_power"`
	InstantaneousMaxChargePower    uint32 `json:"instantaneous_max_charge_power"`

	GridServicesPower float64        `json:"grid_services_power"`
	SystemIslandState string         `json:"system_island_state"`
	AvailableBlocks   uint32         `json:"available_blocks"`
	BatteryBlocks     []BatteryBlock `json:"battery_blocks"`

	FfrPowerAvailabilityHigh uint32 `json:"ffr_power_availability_high"`
	FfrPowerAvailabilityLow  uint32 `json:"ffr_power_availability_low"`
	LoadChargeConstraint     uint32 `json:"load_charge_constraint"`
	MaxSustainedRampRate     uint32 `json:"max_sustained_ramp_rate"`

	GridFaults []string `json:"grid_faults"`
	CanReboot  string   `json:"can_reboot"`

	SmartInvDeltaP uint32 `json:"smart_inv_delta_p"`
	SmartInvDeltaQ uint32 `json:"smart_inv_delta_q"`

	LastToggleTimestamp time.Time `json:"last_toggle_timestamp"`

	SolarRealPowerLimit int32 `json:"solar_real_power_limit"`
	Score               int32 `json:"score"`

	BlocksControlled uint16 `json:"blocks_controlled"`
	Primary          bool   `json:"primary"`
	AuxiliaryLoad    uint32 `json:"auxiliary_load"`

	AllEnableLinesHigh         bool   `json:"all_enable_lines_high"`
	InverterNominalUsablePower uint32 `json:"inverter_nominal_usable_power"`
	ExpectedEnergyRemaining    uint32 `json:"expected_energy_remaining"`
}

// BatteryBlock describes a single Powerwall in the system.
type BatteryBlock struct {
	Type                string `json:"Type"`
	PackagePartNumber   string `json:"PackagePartNumber"`
	PackageSerialNumber string `json:"PackageSerialNumber"`

	DisabledReasons []string `json:"disabled_reasons"`

	PinvState     string `json:"pinv_state"`
	PinvGridState string `json:"pinv_grid_state"`

	NominalEnergyRemaining uint32 `json:"nominal_energy_remaining"`
	NominalFullPackEnergy  uint32 `json:"nominal_full_pack_energy"`

	POut int32   `json:"p_out"`
	QOut int32   `json:"q_out"`
	VOut float64 `json:"v_out"`
	FOut float64 `json:"f_out"`
	IOut float64 `json:"i_out"`

	EnergyCharged    uint32 `json:"energy_charged"`
	EnergyDischarged uint32 `json:"energy_discharged"`

	OffGrid            bool `json:"off_grid"`
	VfMode             bool `json:"vf_mode"`
	WobbleDetected     bool `json:"wobble_detected"`
	ChargePowerClamped bool `json:"charge_power_clamped"`
	BackupReady        bool `json:"backup_ready"`

	OpSeqState string `json:"OpSeqState"`
	Version    string `json:"version"`
}

// StateOfEnergy is the payload of /api/system_status/soe.
//
// Percentage is the aggregated charged state in percent of all the
// Powerwalls in the system.
type StateOfEnergy struct {
	Percentage float64 `json:"percentage"`
}
