package variant

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-hal/common"
	"github.com/Carmen-Shannon/oxy-hal/config"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/resource"
)

// CacheBuilderOption is a functional option applied to a cache during construction via NewCache.
type CacheBuilderOption func(*cache)

// WithSource sets the vertex and fragment templates used while the context's shader language is language.
// Each language keeps its own pair.
//
// Parameters:
//   - language: the shader-language family the templates are written in
//   - vertexTemplate: the vertex stage template
//   - fragmentTemplate: the fragment stage template
//
// Returns:
//   - CacheBuilderOption: a function that applies the source option to a cache
func WithSource(language common.ShaderLanguage, vertexTemplate, fragmentTemplate string) CacheBuilderOption {
	return func(c *cache) {
		c.sources[language] = templates{vertex: vertexTemplate, fragment: fragmentTemplate}
	}
}

// WithProfiles sets the target profiles the synthesized stages compile for.
func WithProfiles(vertexProfile, fragmentProfile string) CacheBuilderOption {
	return func(c *cache) {
		c.vertexProfile = vertexProfile
		c.fragmentProfile = fragmentProfile
	}
}

// WithFlag declares a flag. Flags get their bits in declaration order; a cache holds at most 64 flags and
// NewCache panics beyond that or on a duplicate name.
//
// Parameters:
//   - name: the flag name, as tested by #ifdef in the templates
//   - scope: the stages whose templates test the flag
//
// Returns:
//   - CacheBuilderOption: a function that applies the flag option to a cache
func WithFlag(name string, scope Scope) CacheBuilderOption {
	return func(c *cache) {
		if _, ok := c.byName[name]; ok {
			panic(fmt.Sprintf("variant: %s declares flag %q twice", c.label, name))
		}
		if len(c.flags) == 64 {
			panic(fmt.Sprintf("variant: %s declares more than 64 flags", c.label))
		}
		fl := flag{name: name, bit: FlagSet(1) << len(c.flags), scope: scope}
		c.flags = append(c.flags, fl)
		c.byName[name] = fl
	}
}

// WithPrecisionStrip removes GLSL ES precision qualifiers from synthesized GLSL sources.
func WithPrecisionStrip() CacheBuilderOption {
	return func(c *cache) {
		c.stripPrecision = true
	}
}

// WithTracker registers every stage and program the cache builds with tracker, so they take part in
// device-loss sweeps.
func WithTracker(tracker resource.Tracker) CacheBuilderOption {
	return func(c *cache) {
		c.tracker = tracker
	}
}

// WithManifest applies the templates, profiles and flags of a variant manifest. NewCache panics if the manifest
// names an unknown flag scope.
//
// Parameters:
//   - m: the manifest, with template sources resolved
//
// Returns:
//   - CacheBuilderOption: a function that applies the manifest to a cache
func WithManifest(m *config.Manifest) CacheBuilderOption {
	return func(c *cache) {
		WithSource(common.ShaderLanguage(m.Language), m.Vertex.Source, m.Fragment.Source)(c)
		WithProfiles(m.Vertex.Profile, m.Fragment.Profile)(c)
		if m.StripPrecision {
			WithPrecisionStrip()(c)
		}
		for _, f := range m.Flags {
			scope, err := ParseScope(f.Stage)
			if err != nil {
				panic(fmt.Sprintf("variant: %s: %v", c.label, err))
			}
			WithFlag(f.Name, scope)(c)
		}
	}
}
