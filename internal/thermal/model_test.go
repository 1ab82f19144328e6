package thermal

import (
	"math"
	"testing"
	"time"

	"github.com/wattsmith/thermoplan/internal/building"
	"github.com/wattsmith/thermoplan/internal/weather"
)

func testProfile(t *testing.T) building.Profile {
	t.Helper()
	p, err := building.NewProfile(building.HouseInput{
		HomeSizeSqft: 1500,
		Insulation:   building.InsulationAverage,
		AgeYears:     10,
	}, building.DefaultParamSet())
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	return p
}

func TestStepConvergesToOutdoor(t *testing.T) {
	p := testProfile(t)
	w := weather.Sample{TempC: 5}

	st := State{IndoorTempC: 21}
	prev := st.IndoorTempC
	for i := 0; i < 200; i++ {
		st = Step(st, p, w, 0, 0, time.Hour)
		// Monotone cooling toward outdoor, never past it.
		if st.IndoorTempC > prev {
			t.Fatalf("step %d: temperature rose from %v to %v while cooling", i, prev, st.IndoorTempC)
		}
		if st.IndoorTempC < w.TempC {
			t.Fatalf("step %d: overshot outdoor temperature: %v < %v", i, st.IndoorTempC, w.TempC)
		}
		prev = st.IndoorTempC
	}
	if math.Abs(st.IndoorTempC-w.TempC) > 0.5 {
		t.Errorf("after 200h indoor = %v, want near outdoor %v", st.IndoorTempC, w.TempC)
	}
}

func TestStepHeatingRaisesTemperature(t *testing.T) {
	p := testProfile(t)
	w := weather.Sample{TempC: 0}
	st := State{IndoorTempC: 18}

	heated := Step(st, p, w, 6000, 0, time.Hour)
	drifted := Step(st, p, w, 0, 0, time.Hour)
	if heated.IndoorTempC <= drifted.IndoorTempC {
		t.Errorf("heating should beat free drift: %v <= %v", heated.IndoorTempC, drifted.IndoorTempC)
	}

	cooled := Step(st, p, weather.Sample{TempC: 30}, -6000, 0, time.Hour)
	warmed := Step(st, p, weather.Sample{TempC: 30}, 0, 0, time.Hour)
	if cooled.IndoorTempC >= warmed.IndoorTempC {
		t.Errorf("cooling should beat free drift: %v >= %v", cooled.IndoorTempC, warmed.IndoorTempC)
	}
}

func TestStepSolarGain(t *testing.T) {
	p := testProfile(t)
	st := State{IndoorTempC: 20}
	sunny := Step(st, p, weather.Sample{TempC: 20, SolarWM2: 800}, 0, 0, time.Hour)
	dark := Step(st, p, weather.Sample{TempC: 20}, 0, 0, time.Hour)
	if sunny.IndoorTempC <= dark.IndoorTempC {
		t.Errorf("solar gain should warm the house: %v <= %v", sunny.IndoorTempC, dark.IndoorTempC)
	}

	// Negative irradiance readings are sensor noise, not cooling.
	noisy := Step(st, p, weather.Sample{TempC: 20, SolarWM2: -500}, 0, 0, time.Hour)
	if noisy.IndoorTempC != dark.IndoorTempC {
		t.Errorf("negative irradiance must be ignored: %v != %v", noisy.IndoorTempC, dark.IndoorTempC)
	}
}

func TestStepWindIncreasesLoss(t *testing.T) {
	p := testProfile(t)
	st := State{IndoorTempC: 21}
	calm := Step(st, p, weather.Sample{TempC: 0}, 0, 0, time.Hour)
	windy := Step(st, p, weather.Sample{TempC: 0, WindMS: 12}, 0, 0, time.Hour)
	if windy.IndoorTempC >= calm.IndoorTempC {
		t.Errorf("wind should speed up heat loss: %v >= %v", windy.IndoorTempC, calm.IndoorTempC)
	}
}

func TestStepStability(t *testing.T) {
	p := testProfile(t)
	hostile := []weather.Sample{
		{TempC: 1e9, WindMS: 1e9, SolarWM2: 1e12},
		{TempC: -1e9, PrecipMM: 1e6},
		{TempC: math.Inf(1)},
		{TempC: math.NaN(), WindMS: math.NaN()},
	}
	st := State{IndoorTempC: 21}
	for i := 0; i < 500; i++ {
		w := hostile[i%len(hostile)]
		hvacW := 1e12
		if i%2 == 0 {
			hvacW = -1e12
		}
		st = Step(st, p, w, hvacW, 400, 5*time.Minute)
		got := st.IndoorTempC
		if math.IsNaN(got) || math.IsInf(got, 0) {
			t.Fatalf("step %d produced non-finite temperature", i)
		}
		if got < MinIndoorTempC || got > MaxIndoorTempC {
			t.Fatalf("step %d escaped the safety envelope: %v", i, got)
		}
	}
}

func TestStepPerStepRateLimit(t *testing.T) {
	p := testProfile(t)
	st := State{IndoorTempC: 20}
	next := Step(st, p, weather.Sample{TempC: 20}, 1e9, 0, 5*time.Minute)
	if d := next.IndoorTempC - st.IndoorTempC; d > 0.51 {
		t.Errorf("5-minute step moved %v°C, want <= 0.5", d)
	}
}

func TestStepDegenerateInputsFallBack(t *testing.T) {
	st := State{IndoorTempC: 21}
	// Invalid profile: must return the previous temperature untouched.
	next := Step(st, building.Profile{}, weather.Sample{TempC: -10}, 0, 0, time.Hour)
	if next.IndoorTempC != 21 {
		t.Errorf("invalid profile should leave state at 21, got %v", next.IndoorTempC)
	}
	// Non-positive timestep likewise.
	next = Step(st, building.Profile{}, weather.Sample{}, 0, 0, 0)
	if next.IndoorTempC != 21 {
		t.Errorf("zero timestep should leave state at 21, got %v", next.IndoorTempC)
	}
}

func TestOutputFraction(t *testing.T) {
	tests := []struct {
		name    string
		current float64
		target  float64
		band    float64
		want    float64
	}{
		{"far below target", 10, 22, 1, 1},
		{"one band away", 21, 22, 1, 0.5},
		{"at target floor", 22, 22, 1, 0.2},
		{"just above floor", 21.9, 22, 1, 0.2},
		{"cooling side", 24, 22, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := OutputFraction(tt.current, tt.target, tt.band)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("OutputFraction(%v, %v, %v) = %v, want %v", tt.current, tt.target, tt.band, got, tt.want)
			}
		})
	}
}
