// Package config loads characterization and design settings from YAML.
// Defaults describe the IHP SG13G2 low-voltage devices.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/Mauricio-xx/ihp-gmid-kit/pkg/design"
	"github.com/Mauricio-xx/ihp-gmid-kit/pkg/sweep"
)

// Range is an inclusive sweep range. Stop is included when it lands on the
// step grid.
type Range struct {
	Start float64 `yaml:"start"`
	Stop  float64 `yaml:"stop"`
	Step  float64 `yaml:"step"`
}

// SweepConfig describes one model's characterization grid. Lengths may be
// listed explicitly or given as a range; explicit values win when both are
// present.
type SweepConfig struct {
	Model       string    `yaml:"model"`
	Polarity    string    `yaml:"polarity"`
	Lengths     []float64 `yaml:"lengths,omitempty"`
	LengthRange *Range    `yaml:"length_range,omitempty"`
	Vgs         Range     `yaml:"vgs"`
	Vds         Range     `yaml:"vds"`
	Vbs         Range     `yaml:"vbs"`
}

// DesignConfig is one sizing request.
type DesignConfig struct {
	Model        string  `yaml:"model"`
	TargetGmID   float64 `yaml:"target_gmid"`
	GainMin      float64 `yaml:"gain_min"`
	BandwidthMin float64 `yaml:"bandwidth_min"`
	LoadCap      float64 `yaml:"load_cap"`
	Supply       float64 `yaml:"supply"`
	Vds          float64 `yaml:"vds"`
	Vbs          float64 `yaml:"vbs"`
	VgsLo        float64 `yaml:"vgs_lo"`
	VgsHi        float64 `yaml:"vgs_hi"`
	RefGmID      float64 `yaml:"reference_gmid,omitempty"`
}

// Config is the top-level file layout.
type Config struct {
	TablePath string        `yaml:"table_path"`
	ChartDir  string        `yaml:"chart_dir"`
	Workers   int           `yaml:"workers"`
	Sweeps    []SweepConfig `yaml:"sweeps"`
	Design    DesignConfig  `yaml:"design"`
}

// Default returns the SG13G2 low-voltage characterization grid (76 lengths
// in 130nm steps up to 9.88um, 10mV gate resolution) and a common-source
// amplifier design request.
func Default() *Config {
	lengths := make([]float64, 76)
	for i := range lengths {
		lengths[i] = 130e-9 * float64(i+1)
	}
	return &Config{
		TablePath: "tables.db",
		ChartDir:  "charts",
		Workers:   4,
		Sweeps: []SweepConfig{
			{
				Model:    "sg13_lv_nmos",
				Polarity: "nmos",
				Lengths:  lengths,
				Vgs:      Range{0, 1.5, 0.01},
				Vds:      Range{0, 1.5, 0.05},
				Vbs:      Range{0, -1.2, -0.1},
			},
			{
				Model:    "sg13_lv_pmos",
				Polarity: "pmos",
				Lengths:  lengths,
				Vgs:      Range{0, -1.5, -0.01},
				Vds:      Range{0, -1.5, -0.05},
				Vbs:      Range{0, 1.2, 0.1},
			},
		},
		Design: DesignConfig{
			Model:        "sg13_lv_nmos",
			TargetGmID:   10,
			GainMin:      10,
			BandwidthMin: 100e6,
			LoadCap:      100e-15,
			Supply:       1.2,
			Vds:          0.6,
			Vbs:          0,
			VgsLo:        0.1,
			VgsHi:        1.2,
		},
	}
}

// Load reads a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers %d must not be negative", c.Workers)
	}
	for i, s := range c.Sweeps {
		if s.Model == "" {
			return fmt.Errorf("sweep %d: missing model name", i)
		}
		if _, err := s.polarity(); err != nil {
			return fmt.Errorf("sweep %s: %w", s.Model, err)
		}
		if len(s.Lengths) == 0 && s.LengthRange == nil {
			return fmt.Errorf("sweep %s: no lengths given", s.Model)
		}
	}
	return nil
}

// Sweep finds the sweep block for a model.
func (c *Config) Sweep(model string) (*SweepConfig, error) {
	for i := range c.Sweeps {
		if c.Sweeps[i].Model == model {
			return &c.Sweeps[i], nil
		}
	}
	return nil, fmt.Errorf("no sweep configured for model %s", model)
}

func (s *SweepConfig) polarity() (sweep.Polarity, error) {
	switch s.Polarity {
	case "nmos":
		return sweep.NMOS, nil
	case "pmos":
		return sweep.PMOS, nil
	default:
		return 0, fmt.Errorf("unknown polarity %q", s.Polarity)
	}
}

// Transistor materializes the sweep axes.
func (s *SweepConfig) Transistor() (*sweep.Transistor, error) {
	pol, err := s.polarity()
	if err != nil {
		return nil, err
	}

	var length sweep.Axis
	if len(s.Lengths) > 0 {
		length, err = sweep.FromValues("length", s.Lengths)
	} else {
		length, err = sweep.FromRange("length", s.LengthRange.Start, s.LengthRange.Stop, s.LengthRange.Step)
	}
	if err != nil {
		return nil, err
	}

	vgs, err := sweep.FromRange("vgs", s.Vgs.Start, s.Vgs.Stop, s.Vgs.Step)
	if err != nil {
		return nil, err
	}
	vds, err := sweep.FromRange("vds", s.Vds.Start, s.Vds.Stop, s.Vds.Step)
	if err != nil {
		return nil, err
	}
	vbs, err := sweep.FromRange("vbs", s.Vbs.Start, s.Vbs.Stop, s.Vbs.Step)
	if err != nil {
		return nil, err
	}
	return sweep.NewTransistor(pol, length, vgs, vds, vbs)
}

// Spec converts the design block to an engine request.
func (d *DesignConfig) Spec() design.Spec {
	return design.Spec{
		TargetGmID:   d.TargetGmID,
		GainMin:      d.GainMin,
		BandwidthMin: d.BandwidthMin,
		LoadCap:      d.LoadCap,
		Supply:       d.Supply,
		Vds:          d.Vds,
		Vbs:          d.Vbs,
		VgsLo:        d.VgsLo,
		VgsHi:        d.VgsHi,
		RefGmID:      d.RefGmID,
	}
}
