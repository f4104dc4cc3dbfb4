package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/edumag/edumag/internal/config"
	"github.com/edumag/edumag/internal/fieldsolver"
	"github.com/edumag/edumag/internal/mst"
	"github.com/edumag/edumag/internal/session"
	"github.com/edumag/edumag/internal/vision"
)

// resolvePort picks the coil driver port: the flag wins, then the config
// file, then the port remembered from the last run.
func resolvePort(flagPort, configPort, saved string) string {
	for _, p := range []string{flagPort, configPort, saved} {
		if p = strings.TrimSpace(p); p != "" {
			return p
		}
	}
	return ""
}

func trackerParams(cfg *config.Config) vision.TrackerParams {
	return vision.TrackerParams{
		ROISize:      cfg.GetROISize(),
		Threshold:    cfg.GetBinaryThreshold(),
		DilateKernel: cfg.GetDilateKernel(),
	}
}

// sessionOptions builds session options from the config and the flags.
// A positive dur overrides the configured chase duration.
func sessionOptions(cfg *config.Config, difficulty string, dur time.Duration, program string) (session.Options, error) {
	d, err := mst.ParseDifficulty(difficulty)
	if err != nil {
		return session.Options{}, err
	}
	if dur <= 0 {
		dur = cfg.GetSessionDuration()
	}
	var steps []session.Step
	if strings.TrimSpace(program) != "" {
		if steps, err = session.ParseSteps(program); err != nil {
			return session.Options{}, err
		}
	}
	return session.Options{
		Duration:        dur,
		TargetTolerance: cfg.GetTargetTolerancePx(),
		NodeTolerance:   cfg.GetNodeTolerancePx(),
		Difficulty:      d,
		Steps:           steps,
		Solver:          fieldsolver.NewSolver(fieldsolver.DefaultCalibration()),
	}, nil
}

// solveCommand runs the solver for "B,F,theta" and formats the outcome.
func solveCommand(arg string) (string, error) {
	parts := strings.Split(arg, ",")
	if len(parts) != 3 {
		return "", fmt.Errorf("solve: want B,F,theta, got %q", arg)
	}
	var v [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return "", fmt.Errorf("solve: bad value %q: %w", p, err)
		}
		v[i] = f
	}
	cur, outcome := fieldsolver.NewSolver(fieldsolver.DefaultCalibration()).SolveDetailed(v[0], v[1], v[2])
	return fmt.Sprintf("%s %s", outcome, cur), nil
}
