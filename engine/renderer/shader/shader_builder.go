package shader

import (
	"github.com/Carmen-Shannon/oxy-hal/common"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/resource"
)

type builderConfig struct {
	tracker resource.Tracker
}

// StageBuilderOption is a functional option applied to a stage during construction via NewStage.
type StageBuilderOption func(*stage, *builderConfig)

// WithEntryPoint sets the entry point name explicitly instead of deriving it from the source.
//
// Parameters:
//   - name: the entry point function name
//
// Returns:
//   - StageBuilderOption: a function that applies the entry point option to a stage
func WithEntryPoint(name string) StageBuilderOption {
	return func(s *stage, _ *builderConfig) {
		s.entryPoint = name
	}
}

// WithProfile sets the target profile the backend compiles for (e.g. "330", "vs_5_0").
//
// Parameters:
//   - profile: the target profile string
//
// Returns:
//   - StageBuilderOption: a function that applies the profile option to a stage
func WithProfile(profile string) StageBuilderOption {
	return func(s *stage, _ *builderConfig) {
		s.profile = profile
	}
}

// WithGeometry sets the primitive topologies and the output vertex limit of a geometry stage.
//
// Parameters:
//   - input: the topology of incoming primitives
//   - output: the topology of emitted primitives
//   - maxOutputVertices: the maximum number of vertices one invocation emits
//
// Returns:
//   - StageBuilderOption: a function that applies the geometry option to a stage
func WithGeometry(input, output common.Topology, maxOutputVertices int) StageBuilderOption {
	return func(s *stage, _ *builderConfig) {
		s.inputTopology = input
		s.outputTopology = output
		s.maxOutputVertices = maxOutputVertices
	}
}

// WithTracker registers the stage with a tracker so that it takes part in device-loss sweeps.
//
// Parameters:
//   - tracker: the tracker to register with
//
// Returns:
//   - StageBuilderOption: a function that applies the tracker option to a stage
func WithTracker(tracker resource.Tracker) StageBuilderOption {
	return func(_ *stage, c *builderConfig) {
		c.tracker = tracker
	}
}
