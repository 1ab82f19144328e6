package building

const (
	SqftToM2 = 0.092903

	ceilingHeightM   = 2.5
	windowFraction   = 0.15
	envelopeSlope    = 1.7  // m² of envelope per m² of floor
	envelopeOffsetM2 = 90.0 // roof/slab baseline

	// Age degradation of the envelope, capped at +50% for a 50-year house.
	ageUValueMaxFactor = 0.5
	ageUValueSpanYears = 50.0

	minThermalMassJPerK = 0.1e6
	maxThermalMassJPerK = 10e6
	minResistanceKPerW  = 0.001
	maxResistanceKPerW  = 0.1
)

// HouseInput is the raw, user-supplied description of a house.
type HouseInput struct {
	HomeSizeSqft float64
	Insulation   Insulation
	AgeYears     int
}

func (in HouseInput) Validate() error {
	if in.HomeSizeSqft <= 0 {
		return ErrInvalidFloorArea
	}
	if !in.Insulation.Valid() {
		return ErrInvalidInsulation
	}
	if in.AgeYears < 0 {
		return ErrInvalidAge
	}
	return nil
}

// Profile holds the derived, immutable thermal description of a building.
// All coefficients are clamped to physically plausible bounds so the
// simulation stays numerically stable whatever the input.
type Profile struct {
	FloorAreaM2    float64
	VolumeM3       float64
	EnvelopeAreaM2 float64
	WindowAreaM2   float64

	UValueWPerM2K    float64 // aged envelope coefficient
	ResistanceKPerW  float64 // effective whole-envelope resistance
	ThermalMassJPerK float64

	SHGC         float64
	ACHBase      float64
	WindACHPerMS float64
}

// Valid reports whether the profile carries usable physical parameters.
func (p Profile) Valid() bool {
	return p.FloorAreaM2 > 0 &&
		p.EnvelopeAreaM2 > 0 &&
		p.ThermalMassJPerK >= minThermalMassJPerK &&
		p.UValueWPerM2K > 0
}

// NewProfile validates the house input once at the boundary and derives the
// simulation parameters from it.
func NewProfile(in HouseInput, ps ParamSet) (Profile, error) {
	if err := in.Validate(); err != nil {
		return Profile{}, err
	}
	params, err := ps.For(in.Insulation)
	if err != nil {
		return Profile{}, err
	}

	floor := in.HomeSizeSqft * SqftToM2
	ageFactor := 1.0 + ageUValueMaxFactor*clamp(float64(in.AgeYears)/ageUValueSpanYears, 0, 1)

	p := Profile{
		FloorAreaM2:    floor,
		VolumeM3:       floor * ceilingHeightM,
		EnvelopeAreaM2: envelopeSlope*floor + envelopeOffsetM2,
		WindowAreaM2:   floor * windowFraction,

		UValueWPerM2K:    params.UValueWPerM2K * ageFactor,
		ThermalMassJPerK: clamp(params.ThermalMassJPerM2K*floor, minThermalMassJPerK, maxThermalMassJPerK),

		SHGC:         params.SHGC,
		ACHBase:      params.ACHBase,
		WindACHPerMS: params.WindACHPerMS,
	}
	p.ResistanceKPerW = clamp(1.0/(p.UValueWPerM2K*p.EnvelopeAreaM2), minResistanceKPerW, maxResistanceKPerW)
	return p, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
