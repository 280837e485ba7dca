package kpi

// Coefficients is the configuration-supplied coefficient set for the
// fuel and tyre heuristics. The values are planning aids calibrated
// against nothing in particular; they are documented as estimates
// wherever they surface.
type Coefficients struct {
	// FuelBurnPerLap is the tank percentage burned per lap at full
	// throttle.
	FuelBurnPerLap float64
	// FuelFallbackThrottle is the throttle factor (0..1) assumed when
	// telemetry exists but carries no usable throttle channel.
	FuelFallbackThrottle float64
	// TyreWearPerLap is the tyre life percentage worn per lap at full
	// brake usage.
	TyreWearPerLap float64
	// TyreFallbackBrake is the brake factor (0..1) assumed when
	// telemetry exists but carries no usable brake channel.
	TyreFallbackBrake float64
	// PitTyreThreshold is the tyre life percentage below which a pit
	// window is suggested.
	PitTyreThreshold float64
}

func DefaultCoefficients() Coefficients {
	return Coefficients{
		FuelBurnPerLap:       0.5,
		FuelFallbackThrottle: 0.5,
		TyreWearPerLap:       0.3,
		TyreFallbackBrake:    1.0,
		PitTyreThreshold:     50,
	}
}
