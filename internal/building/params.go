package building

import "fmt"

// Insulation is an integer enum.
type Insulation int

const (
	InsulationUnknown Insulation = iota
	InsulationPoor
	InsulationAverage
	InsulationExcellent
)

func (i Insulation) Valid() bool {
	return i == InsulationPoor || i == InsulationAverage || i == InsulationExcellent
}

func (i Insulation) String() string {
	switch i {
	case InsulationPoor:
		return "poor"
	case InsulationAverage:
		return "average"
	case InsulationExcellent:
		return "excellent"
	default:
		return "unknown"
	}
}

func ParseInsulation(s string) (Insulation, error) {
	switch s {
	case "poor":
		return InsulationPoor, nil
	case "average":
		return InsulationAverage, nil
	case "excellent":
		return InsulationExcellent, nil
	default:
		return InsulationUnknown, fmt.Errorf("invalid insulation grade: %q", s)
	}
}

// Params holds the per-grade envelope coefficients.
type Params struct {
	UValueWPerM2K      float64 // envelope heat-transfer coefficient
	ThermalMassJPerM2K float64 // lumped capacitance per m² of floor
	SHGC               float64 // solar heat gain coefficient of glazing
	ACHBase            float64 // air changes per hour at zero wind
	WindACHPerMS       float64 // extra ACH per m/s of wind
}

// ParamSet maps each insulation grade to its coefficients. Built once at
// startup and passed explicitly so the model stays free of package globals.
type ParamSet struct {
	Poor      Params
	Average   Params
	Excellent Params
}

func DefaultParamSet() ParamSet {
	return ParamSet{
		Poor: Params{
			UValueWPerM2K:      1.5,
			ThermalMassJPerM2K: 45000,
			SHGC:               0.65,
			ACHBase:            1.0,
			WindACHPerMS:       0.10,
		},
		Average: Params{
			UValueWPerM2K:      0.8,
			ThermalMassJPerM2K: 60000,
			SHGC:               0.55,
			ACHBase:            0.5,
			WindACHPerMS:       0.06,
		},
		Excellent: Params{
			UValueWPerM2K:      0.3,
			ThermalMassJPerM2K: 75000,
			SHGC:               0.45,
			ACHBase:            0.2,
			WindACHPerMS:       0.03,
		},
	}
}

// For returns the coefficients for a grade.
func (ps ParamSet) For(g Insulation) (Params, error) {
	switch g {
	case InsulationPoor:
		return ps.Poor, nil
	case InsulationAverage:
		return ps.Average, nil
	case InsulationExcellent:
		return ps.Excellent, nil
	default:
		return Params{}, ErrInvalidInsulation
	}
}
