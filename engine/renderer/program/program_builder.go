package program

import (
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/resource"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/shader"
)

type builderConfig struct {
	tracker resource.Tracker
	stages  []shader.Stage
}

// ProgramBuilderOption is a functional option applied to a program during construction via NewProgram.
type ProgramBuilderOption func(*builderConfig)

// WithStages fills the slots matching the kinds of the given stages. NewProgram panics if a stage belongs to
// another language family.
//
// Parameters:
//   - stages: the stages to set
//
// Returns:
//   - ProgramBuilderOption: a function that applies the stages option to a program
func WithStages(stages ...shader.Stage) ProgramBuilderOption {
	return func(c *builderConfig) {
		c.stages = append(c.stages, stages...)
	}
}

// WithTracker registers the program with a tracker so that it takes part in device-loss sweeps.
func WithTracker(tracker resource.Tracker) ProgramBuilderOption {
	return func(c *builderConfig) {
		c.tracker = tracker
	}
}
