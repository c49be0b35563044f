package main

import (
	"fmt"
	"os"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/derekprior/courtq/internal/config"
	"github.com/derekprior/courtq/internal/excel"
	"github.com/derekprior/courtq/internal/schedule"
	"github.com/derekprior/courtq/internal/validator"
)

type simulateOptions struct {
	output  string
	matches int
	seed    uint64
}

func runSimulate(configPath string, opts simulateOptions, log *zap.Logger) error {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	fmt.Printf("Simulating %d matches: %d players, %d courts, %s...\n",
		opts.matches, len(cfg.Players), cfg.Session.Courts, cfg.Mode())

	result, simErr := schedule.Simulate(cfg, schedule.Options{
		Matches: opts.matches,
		Seed:    int64(opts.seed),
	}, log)
	if result == nil {
		return simErr
	}
	if simErr != nil {
		fmt.Fprintf(os.Stderr, "⚠ %s\n", simErr)
		fmt.Fprintf(os.Stderr, "\nExporting partial session...\n")
	} else {
		fmt.Printf("✓ Session finished\n")
	}

	mgr := result.Manager
	summary := mgr.Summary()
	fmt.Printf("\n%d completed, %d forfeited, %d in play, phase %s\n",
		summary.Completed, summary.Forfeited, summary.InPlay, summary.Phase)

	fmt.Println("\nPer Player Metrics:")
	fmt.Printf("  %-15s %5s %4s %8s %9s %6s %9s\n", "Player", "Games", "Wins", "Partners", "Opponents", "Courts", "Wait")
	ids := make([]string, 0, len(result.PlayerMetrics))
	for id := range result.PlayerMetrics {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		m := result.PlayerMetrics[id]
		fmt.Printf("  %-15s %5d %4d %8d %9d %6d %9s\n",
			mgr.Name(id), m.Games, m.Wins, m.Partners, m.Opponents, m.Courts, m.Wait.Round(time.Second))
	}

	if len(result.Warnings) > 0 {
		fmt.Printf("\nWarnings (%d):\n", len(result.Warnings))
		for _, w := range result.Warnings {
			fmt.Printf("  ⚠ %s\n", w)
		}
	} else {
		fmt.Println("\n✓ No warnings")
	}

	f, err := excel.Generate(mgr.Session())
	if err != nil {
		return fmt.Errorf("generating Excel: %w", err)
	}

	if err := f.SaveAs(opts.output); err != nil {
		return fmt.Errorf("saving file: %w", err)
	}

	fmt.Printf("\n✓ Session saved to %s\n", opts.output)
	if simErr != nil {
		return fmt.Errorf("session is incomplete: %w", simErr)
	}
	return nil
}

func runValidate(configPath, sessionPath string) error {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	violations, err := validator.Validate(cfg, sessionPath)
	if err != nil {
		return fmt.Errorf("validating: %w", err)
	}

	errors := 0
	warnings := 0
	for _, v := range violations {
		switch v.Type {
		case "error":
			errors++
			fmt.Printf("✗ %s row %d: %s\n", v.Sheet, v.Row, v.Message)
		case "warning":
			warnings++
			fmt.Printf("⚠ %s row %d: %s\n", v.Sheet, v.Row, v.Message)
		}
	}

	fmt.Printf("\nValidation complete: %d errors, %d warnings\n", errors, warnings)

	if errors > 0 {
		return fmt.Errorf("%d invariant violations found", errors)
	}
	return nil
}
