// Package variant caches shader program variants. A cache owns one vertex and one fragment template per shader
// language and a namespace of feature flags; asking for a flag set synthesizes the two sources with the flag blocks
// of that set resolved, links them into a program, and keeps the result, so each combination is built once.
//
// Stage sources are cached per stage on the flags that apply to that stage, so flags that only touch the fragment
// template share one compiled vertex stage. Link failures are cached like successes.
package variant

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-hal/common"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/program"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/resource"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-hal/log"
)

var logger = log.New("variant")

var (
	// ErrUnknownFlag is returned for flag names or bits the cache did not declare.
	ErrUnknownFlag = errors.New("unknown variant flag")

	// ErrNoSource is returned when the cache has no templates for the current shader language.
	ErrNoSource = errors.New("no variant templates for shader language")
)

// Context is what a cache needs from the renderer: the device to build on and the active shader language.
type Context interface {
	Device() backend.Device
	ShaderLanguage() common.ShaderLanguage
}

type templates struct {
	vertex   string
	fragment string
}

// cache is the implementation of the Cache interface.
type cache struct {
	ctx     Context
	label   string
	tracker resource.Tracker

	sources         map[common.ShaderLanguage]templates
	vertexProfile   string
	fragmentProfile string
	stripPrecision  bool

	flags  []flag
	byName map[string]flag

	language common.ShaderLanguage
	pre      shader.PreProcessor

	vertexStages   map[FlagSet]shader.Stage
	fragmentStages map[FlagSet]shader.Stage
	variants       map[FlagSet]*Variant
	synthesized    int
}

// Cache maps flag sets to program variants.
type Cache interface {
	// Flag returns the set holding only the named flag, or 0 if the name is unknown.
	Flag(name string) FlagSet

	// Flags returns the set of the named flags.
	//
	// Parameters:
	//   - names: the flag names
	//
	// Returns:
	//   - FlagSet: the set
	//   - error: ErrUnknownFlag for a name the cache did not declare
	Flags(names ...string) (FlagSet, error)

	// Names returns the names of the flags in f in declaration order.
	Names(f FlagSet) []string

	// Variant returns the variant for flags, building it on first request. Identical flag sets always return the
	// same *Variant without synthesizing or linking again. A variant whose link failed is returned without an
	// error; check Usable.
	//
	// When the context's shader language changed since the last call, every cached variant is destroyed first.
	//
	// Parameters:
	//   - flags: the flag set
	//
	// Returns:
	//   - *Variant: the cached variant
	//   - error: ErrUnknownFlag, ErrNoSource, or a template error
	Variant(flags FlagSet) (*Variant, error)

	// SynthesisCount returns the number of stage sources synthesized since the cache was created.
	SynthesisCount() int

	// Len returns the number of cached variants.
	Len() int

	// ClearCache destroys every cached variant and stage.
	ClearCache()

	// Language returns the language the cached variants were built for.
	Language() common.ShaderLanguage

	// Release clears the cache. The cache stays usable.
	Release()
}

var _ Cache = &cache{}

// NewCache creates an empty Cache.
//
// Parameters:
//   - ctx: the renderer context the cache builds on
//   - label: a debug label, used as the prefix of program and stage labels
//   - options: variadic list of CacheBuilderOption functions to configure the Cache
//
// Returns:
//   - Cache: the new cache
func NewCache(ctx Context, label string, options ...CacheBuilderOption) Cache {
	if ctx == nil {
		panic(fmt.Sprintf("variant: %s needs a renderer context", label))
	}
	c := &cache{
		ctx:     ctx,
		label:   label,
		sources: make(map[common.ShaderLanguage]templates),
		byName:  make(map[string]flag),
	}
	for _, opt := range options {
		opt(c)
	}
	c.reset(ctx.ShaderLanguage())
	return c
}

func (c *cache) Flag(name string) FlagSet {
	return c.byName[name].bit
}

func (c *cache) Flags(names ...string) (FlagSet, error) {
	var f FlagSet
	for _, name := range names {
		fl, ok := c.byName[name]
		if !ok {
			return 0, fmt.Errorf("%s: %w %q", c.label, ErrUnknownFlag, name)
		}
		f |= fl.bit
	}
	return f, nil
}

func (c *cache) Names(f FlagSet) []string {
	var names []string
	for _, fl := range c.flags {
		if f.Has(fl.bit) {
			names = append(names, fl.name)
		}
	}
	return names
}

func (c *cache) Variant(flags FlagSet) (*Variant, error) {
	if lang := c.ctx.ShaderLanguage(); lang != c.language {
		logger.Debugf("%s: shader language changed from %s to %s, dropping %d variants", c.label, c.language, lang, len(c.variants))
		c.ClearCache()
		c.reset(lang)
	}
	if unknown := flags &^ c.allFlags(); unknown != 0 {
		return nil, fmt.Errorf("%s: %w: bits %#x", c.label, ErrUnknownFlag, uint64(unknown))
	}
	if v, ok := c.variants[flags]; ok {
		return v, nil
	}
	if _, ok := c.sources[c.language]; !ok {
		return nil, fmt.Errorf("%s: %w %s", c.label, ErrNoSource, c.language)
	}

	vs, err := c.stage(common.StageVertex, flags&c.stageMask(ScopeVertex))
	if err != nil {
		return nil, err
	}
	fs, err := c.stage(common.StageFragment, flags&c.stageMask(ScopeFragment))
	if err != nil {
		return nil, err
	}

	label := c.variantLabel(flags)
	p := program.NewProgram(c.ctx.Device(), label, c.language, program.WithStages(vs, fs), program.WithTracker(c.tracker))
	if state, _ := p.EnsureLinked(); state != program.Linked {
		logger.Warningf("%s: variant unusable, caching the failure", label)
	} else {
		logger.Debugf("%s: built", label)
	}

	v := newVariant(flags, vs.Source(), fs.Source(), p)
	c.variants[flags] = v
	return v, nil
}

// stage returns the cached stage for the flags that apply to kind, synthesizing it on first use.
func (c *cache) stage(kind common.StageKind, masked FlagSet) (shader.Stage, error) {
	stages := c.vertexStages
	template := c.sources[c.language].vertex
	profile := c.vertexProfile
	if kind == common.StageFragment {
		stages = c.fragmentStages
		template = c.sources[c.language].fragment
		profile = c.fragmentProfile
	}
	if s, ok := stages[masked]; ok {
		return s, nil
	}

	src, err := c.pre.Process(template, c.Names(masked))
	if err != nil {
		return nil, fmt.Errorf("%s: %s template: %w", c.label, kind, err)
	}
	c.synthesized++

	var opts []shader.StageBuilderOption
	if profile != "" {
		opts = append(opts, shader.WithProfile(profile))
	}
	if c.tracker != nil {
		opts = append(opts, shader.WithTracker(c.tracker))
	}
	label := fmt.Sprintf("%s/%s[%s]", c.label, kind, strings.Join(c.Names(masked), ","))
	s := shader.NewStage(c.ctx.Device(), label, kind, c.language, src, opts...)
	stages[masked] = s
	return s, nil
}

func (c *cache) SynthesisCount() int {
	return c.synthesized
}

func (c *cache) Len() int {
	return len(c.variants)
}

func (c *cache) ClearCache() {
	for _, v := range c.variants {
		v.destroy()
	}
	for _, s := range c.vertexStages {
		s.Destroy()
	}
	for _, s := range c.fragmentStages {
		s.Destroy()
	}
	c.variants = make(map[FlagSet]*Variant)
	c.vertexStages = make(map[FlagSet]shader.Stage)
	c.fragmentStages = make(map[FlagSet]shader.Stage)
}

func (c *cache) Language() common.ShaderLanguage {
	return c.language
}

func (c *cache) Release() {
	c.ClearCache()
}

// reset adopts a shader language with empty caches.
func (c *cache) reset(language common.ShaderLanguage) {
	c.language = language
	var opts []shader.PreProcessorOption
	if c.stripPrecision {
		opts = append(opts, shader.WithPrecisionStrip())
	}
	c.pre = shader.NewPreProcessor(language, opts...)
	c.variants = make(map[FlagSet]*Variant)
	c.vertexStages = make(map[FlagSet]shader.Stage)
	c.fragmentStages = make(map[FlagSet]shader.Stage)
}

func (c *cache) allFlags() FlagSet {
	var all FlagSet
	for _, fl := range c.flags {
		all |= fl.bit
	}
	return all
}

// stageMask returns the flags that switch blocks in the stages of scope.
func (c *cache) stageMask(scope Scope) FlagSet {
	var mask FlagSet
	for _, fl := range c.flags {
		if fl.scope == ScopeBoth || fl.scope == scope {
			mask |= fl.bit
		}
	}
	return mask
}

func (c *cache) variantLabel(flags FlagSet) string {
	return fmt.Sprintf("%s[%s]", c.label, strings.Join(c.Names(flags), ","))
}
