package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Mauricio-xx/ihp-gmid-kit/pkg/chart"
	"github.com/Mauricio-xx/ihp-gmid-kit/pkg/config"
	"github.com/Mauricio-xx/ihp-gmid-kit/pkg/design"
	"github.com/Mauricio-xx/ihp-gmid-kit/pkg/device"
	"github.com/Mauricio-xx/ihp-gmid-kit/pkg/netlist"
	"github.com/Mauricio-xx/ihp-gmid-kit/pkg/simulator"
	"github.com/Mauricio-xx/ihp-gmid-kit/pkg/table"
	"github.com/Mauricio-xx/ihp-gmid-kit/pkg/util"
)

var (
	mode       = flag.String("mode", "design", "characterize | design | charts")
	configPath = flag.String("config", "", "YAML config file (built-in SG13G2 defaults when empty)")
	modelName  = flag.String("model", "", "override the model the mode operates on")
	targetGmID = flag.Float64("gmid", 0, "override the target gm/ID")
	workers    = flag.Int("workers", 0, "override the characterization worker count")
	outPath    = flag.String("out", "", "output path (netlist file or chart directory)")
)

func main() {
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("Error loading config: %v", err)
		}
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *modelName != "" {
		cfg.Design.Model = *modelName
	}
	if *targetGmID > 0 {
		cfg.Design.TargetGmID = *targetGmID
	}

	switch *mode {
	case "characterize":
		runCharacterize(cfg)
	case "design":
		runDesign(cfg)
	case "charts":
		runCharts(cfg)
	default:
		log.Fatalf("Unknown mode %q", *mode)
	}
}

func runCharacterize(cfg *config.Config) {
	sweeps := cfg.Sweeps
	if *modelName != "" {
		sc, err := cfg.Sweep(*modelName)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
		sweeps = []config.SweepConfig{*sc}
	}

	tables := make([]*table.Table, 0, len(sweeps))
	for i, sc := range sweeps {
		fmt.Printf("\n[%d] Characterizing %s\n", i+1, sc.Model)

		sw, err := sc.Transistor()
		if err != nil {
			log.Fatalf("Error building sweep for %s: %v", sc.Model, err)
		}
		fmt.Printf("Grid: %d lengths x %d vbs x %d vgs x %d vds = %d points\n",
			sw.Length.Len(), sw.Vbs.Len(), sw.Vgs.Len(), sw.Vds.Len(),
			sw.Length.Len()*sw.Vbs.Len()*sw.Vgs.Len()*sw.Vds.Len())

		model := device.NewMosfet(sc.Model, sc.Polarity)
		bld := &table.Builder{
			Oracle:  simulator.NewHarness(model),
			Workers: cfg.Workers,
		}

		start := time.Now()
		tbl, err := bld.Build(context.Background(), sc.Model, sw)
		if err != nil {
			log.Fatalf("Error characterizing %s: %v", sc.Model, err)
		}
		tbl.Description = fmt.Sprintf("built %s", time.Now().Format(time.DateOnly))

		fmt.Printf("Done in %s", time.Since(start).Round(time.Millisecond))
		if n := tbl.CountInvalid(); n > 0 {
			fmt.Printf(" (%d non-converged points)", n)
		}
		fmt.Println()
		tables = append(tables, tbl)
	}

	fmt.Printf("\n[%d] Saving tables to %s\n", len(sweeps)+1, cfg.TablePath)
	if err := table.Save(cfg.TablePath, tables...); err != nil {
		log.Fatalf("Error saving tables: %v", err)
	}
}

func runDesign(cfg *config.Config) {
	fmt.Printf("\n[1] Loading table %s from %s\n", cfg.Design.Model, cfg.TablePath)
	tbl, err := table.Load(cfg.TablePath, cfg.Design.Model)
	if err != nil {
		log.Fatalf("Error loading table: %v", err)
	}

	fmt.Println("\n[2] Searching for an operating point")
	spec := cfg.Design.Spec()
	res, err := design.NewEngine(tbl).Run(spec)
	if err != nil {
		log.Fatalf("Error sizing device: %v", err)
	}
	printResult(res, spec)

	out := *outPath
	if out == "" {
		out = fmt.Sprintf("%s_verify.spice", res.Model)
	}
	fmt.Printf("\n[3] Writing verification netlist: %s\n", out)
	if err := netlist.Write(out, res, spec, netlist.Options{}); err != nil {
		log.Fatalf("Error writing netlist: %v", err)
	}
}

func runCharts(cfg *config.Config) {
	fmt.Printf("\n[1] Loading table %s from %s\n", cfg.Design.Model, cfg.TablePath)
	tbl, err := table.Load(cfg.TablePath, cfg.Design.Model)
	if err != nil {
		log.Fatalf("Error loading table: %v", err)
	}

	d := cfg.Design
	p, err := tbl.ExtractPlane(d.Vbs, d.Vds, d.VgsLo, d.VgsHi)
	if err != nil {
		log.Fatalf("Error extracting plane: %v", err)
	}

	dir := *outPath
	if dir == "" {
		dir = cfg.ChartDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Fatalf("Error creating chart directory: %v", err)
	}

	fmt.Printf("\n[2] Rendering design charts into %s\n", dir)
	paths, err := chart.NewRenderer(p).RenderAll(dir)
	if err != nil {
		log.Fatalf("Error rendering charts: %v", err)
	}
	for _, path := range paths {
		fmt.Printf("  %s\n", path)
	}
}

func printResult(res *design.Result, spec design.Spec) {
	fmt.Println("\nDesign Result:")
	fmt.Println("==============")
	fmt.Printf("Model:      %s\n", res.Model)
	fmt.Printf("L:          %s\n", util.FormatMicrons(res.Op.Length))
	fmt.Printf("W:          %s\n", util.FormatMicrons(res.WidthRequired))
	fmt.Printf("VGS:        %s\n", util.FormatValueFactor(res.Op.Vgs, "V"))
	fmt.Printf("gm/ID:      %.2f S/A (target %.2f)\n", res.Op.GmID, spec.TargetGmID)
	fmt.Printf("ID:         %s\n", util.FormatValueFactor(res.IDRequired, "A"))
	fmt.Printf("gm:         %s\n", util.FormatValueFactor(res.GmRequired, "S"))
	fmt.Printf("Av:         %.2f V/V (%.1f dB)\n", res.ExpectedGain, res.ExpectedGainDB)
	fmt.Printf("fT:         %s (%.0fx the bandwidth floor)\n",
		util.FormatFrequency(res.Op.FT), res.FTMargin)
	if !res.GainMet {
		fmt.Println("WARNING: gain requirement not met")
	}
	fmt.Printf("Note:       %s\n", res.Justification)
}
