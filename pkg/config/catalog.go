package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type (
	// Sheets holds the workbook sheet names for one race.
	Sheets struct {
		LapEnd  string `yaml:"lapEnd"`
		LapTime string `yaml:"lapTime"`
		Weather string `yaml:"weather"`
		Results string `yaml:"results"`
	}
	// Columns maps the logical channels to the headers used by the
	// timing and telemetry files.
	Columns struct {
		VehicleID    string `yaml:"vehicleId"`
		Lap          string `yaml:"lap"`
		Timestamp    string `yaml:"timestamp"`
		MetaTime     string `yaml:"metaTime"`
		Speed        string `yaml:"speed"`
		Throttle     string `yaml:"throttle"`
		Brake        string `yaml:"brake"`
		TyreCompound string `yaml:"tyreCompound"`
		LongAccel    string `yaml:"longAccel"`
		Gear         string `yaml:"gear"`
		EngineRPM    string `yaml:"engineRpm"`
	}
	// Heuristics contains the coefficient set for the fuel/tyre
	// estimates. These are rough planning aids, not physics.
	Heuristics struct {
		FuelBurnPerLap       float64 `yaml:"fuelBurnPerLap"`
		FuelFallbackThrottle float64 `yaml:"fuelFallbackThrottle"`
		TyreWearPerLap       float64 `yaml:"tyreWearPerLap"`
		TyreFallbackBrake    float64 `yaml:"tyreFallbackBrake"`
		UndercutThreshold    float64 `yaml:"undercutThreshold"`
		ConsistencyWindow    int     `yaml:"consistencyWindow"`
		PaceWindow           int     `yaml:"paceWindow"`
	}
	// Race describes the source files of one race.
	Race struct {
		ID             string  `yaml:"id"`
		Name           string  `yaml:"name"`
		Workbook       string  `yaml:"workbook"`
		Sheets         Sheets  `yaml:"sheets"`
		Telemetry      string  `yaml:"telemetry"`
		AggregateStore string  `yaml:"aggregateStore"`
		UseAggregated  bool    `yaml:"useAggregated"`
		RaceStart      float64 `yaml:"raceStart"`
		FallbackMaxLap int     `yaml:"fallbackMaxLap"`
	}
	// Catalog is the root of the race catalog file.
	Catalog struct {
		Races           []Race     `yaml:"races"`
		Columns         Columns    `yaml:"columns"`
		Heuristics      Heuristics `yaml:"heuristics"`
		DefaultStartLap int        `yaml:"defaultStartLap"`
	}
)

// DefaultCatalog describes the Barber endurance dataset this project
// ships with. A catalog file replaces the race list and may override
// columns and heuristics selectively.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Races: []Race{
			{
				ID:       "race1",
				Name:     "Race 1",
				Workbook: "data/Toyota GR Hackathon Datasets.xlsx",
				Sheets: Sheets{
					LapEnd:  "R1_barber_lap_end",
					LapTime: "R1_barber_lap_time",
					Weather: "26_Weather_Race 1_Anonymized",
					Results: "05_Provisional Results by Class_Race 1_Anonymized",
				},
				Telemetry:      "data/R1_barber_telemetry_data.csv",
				AggregateStore: "data/R1_barber_telemetry_aggregated.db",
				UseAggregated:  true,
				FallbackMaxLap: 28,
			},
			{
				ID:       "race2",
				Name:     "Race 2",
				Workbook: "data/Toyota GR Hackathon Datasets.xlsx",
				Sheets: Sheets{
					LapEnd:  "R2_barber_lap_end",
					LapTime: "R2_barber_lap_time",
					Weather: "26_Weather_Race 2_Anonymized",
					Results: "05_Provisional Results by Class_Race 2_Anonymized",
				},
				Telemetry:      "data/R2_barber_telemetry_data.csv",
				AggregateStore: "data/R2_barber_telemetry_aggregated.db",
				UseAggregated:  true,
				FallbackMaxLap: 28,
			},
		},
		Columns: Columns{
			VehicleID:    "vehicle_id",
			Lap:          "lap",
			Timestamp:    "timestamp",
			MetaTime:     "meta_time",
			Speed:        "speed",
			Throttle:     "aps",
			Brake:        "pbrake_f",
			TyreCompound: "tyre_compound",
			LongAccel:    "accx_can",
			Gear:         "gear",
			EngineRPM:    "nmot",
		},
		Heuristics: Heuristics{
			FuelBurnPerLap:       0.5,
			FuelFallbackThrottle: 0.5,
			TyreWearPerLap:       0.3,
			TyreFallbackBrake:    1.0,
			UndercutThreshold:    0.3,
			ConsistencyWindow:    8,
			PaceWindow:           5,
		},
		DefaultStartLap: 5,
	}
}

// LoadCatalog reads a catalog file on top of the defaults. With an
// empty path the defaults are returned as is.
func LoadCatalog(path string) (*Catalog, error) {
	ret := DefaultCatalog()
	if path == "" {
		return ret, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	if err := yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	return ret, nil
}

// Race looks up a race entry by id.
func (c *Catalog) Race(id string) (*Race, bool) {
	for i := range c.Races {
		if c.Races[i].ID == id {
			return &c.Races[i], true
		}
	}
	return nil, false
}

// RaceIDs returns the ids in catalog order.
func (c *Catalog) RaceIDs() []string {
	ret := make([]string, 0, len(c.Races))
	for i := range c.Races {
		ret = append(ret, c.Races[i].ID)
	}
	return ret
}

// SourceFiles returns the files a cached race depends on. Used by the
// watcher to invalidate the dataset cache on change.
func (r *Race) SourceFiles() []string {
	ret := []string{r.Workbook}
	if r.UseAggregated && r.AggregateStore != "" {
		ret = append(ret, r.AggregateStore)
	} else if r.Telemetry != "" {
		ret = append(ret, r.Telemetry)
	}
	return ret
}
