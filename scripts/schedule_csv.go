// Generates a day-ahead HVAC schedule for a synthetic winter day and dumps
// it to CSV for plotting.
package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/wattsmith/thermoplan/internal/building"
	"github.com/wattsmith/thermoplan/internal/hvac"
	"github.com/wattsmith/thermoplan/internal/planner"
	"github.com/wattsmith/thermoplan/internal/pricing"
	"github.com/wattsmith/thermoplan/internal/weather"
)

func WriteScheduleCSV(filename string, startTempC float64) error {
	profile, err := building.NewProfile(building.HouseInput{
		HomeSizeSqft: 1500,
		Insulation:   building.InsulationAverage,
		AgeYears:     10,
	}, building.DefaultParamSet())
	if err != nil {
		return fmt.Errorf("build profile: %v", err)
	}

	sys, err := hvac.NewSystem(hvac.SystemHeatPump, 5, profile.FloorAreaM2)
	if err != nil {
		return fmt.Errorf("build system: %v", err)
	}

	start := time.Date(2026, 1, 15, 0, 0, 0, 0, time.Local)
	fc := weather.Synthetic(start, 26, 2, 5)

	pl := planner.New()
	sched, err := pl.Generate(profile, sys, fc, startTempC, planner.DefaultComfort(), pricing.DefaultTOU(), start)
	if err != nil {
		return fmt.Errorf("generate schedule: %v", err)
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"Hour", "Outdoor", "Mode", "PowerKW", "EnergyKWh", "Cost", "Predicted"}); err != nil {
		return fmt.Errorf("write CSV header: %v", err)
	}

	for _, e := range sched.Entries {
		if err := writer.Write([]string{
			e.Start.Format("15:04"),
			fmt.Sprintf("%.2f", fc.At(int(e.Start.Sub(start)/time.Hour)).TempC),
			e.ModeName,
			fmt.Sprintf("%.3f", e.PowerKW),
			fmt.Sprintf("%.4f", e.EnergyKWh),
			fmt.Sprintf("%.4f", e.Cost),
			fmt.Sprintf("%.2f", e.PredictedTempC),
		}); err != nil {
			return fmt.Errorf("write CSV record: %v", err)
		}
	}

	fmt.Printf("%d entries, %.2f kWh, $%.2f, comfort %.0f\n",
		len(sched.Entries), sched.TotalEnergyKWh, sched.TotalCost, sched.ComfortScore)
	return nil
}

func main() {
	if err := WriteScheduleCSV("thermoplan.csv", 15.0); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
