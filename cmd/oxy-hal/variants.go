package main

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-hal/common"
	"github.com/Carmen-Shannon/oxy-hal/config"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/backend/null_backend"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/variant"
	"github.com/gogpu/naga"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// maxManifestFlags bounds the number of combinations the variants command expands to 4096.
const maxManifestFlags = 12

// Variant validation status values.
const (
	statusOK         = "ok"
	statusTemplate   = "template error"
	statusInvalid    = "invalid"
	statusLinkFailed = "link failed"
)

// variantReport is the validation result of one flag combination.
type variantReport struct {
	Flags        variant.FlagSet
	Names        []string
	VertexHash   string
	FragmentHash string
	Status       string
	Err          error
}

// OK reports whether the combination synthesized and validated.
func (r variantReport) OK() bool {
	return r.Status == statusOK
}

// VariantsCommand expands a variant manifest and validates every combination.
func VariantsCommand(ctx *cli.Context) error {
	setupLogging(ctx)

	path := ctx.String("manifest")
	if path == "" {
		return cli.NewExitError("variants: --manifest is required", 1)
	}
	m, err := config.LoadManifest(path)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	start := time.Now()
	reports, err := validateManifest(m, ctx.Int("workers"))
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	logger.Noticef("validated %d variants of %s in %s", len(reports), m.Name, time.Since(start))

	fmt.Print(renderVariantTable(reports))

	failed := 0
	for _, r := range reports {
		if !r.OK() {
			failed++
			logger.Warningf("%s [%s]: %v", m.Name, strings.Join(r.Names, ","), r.Err)
		}
	}
	if failed > 0 {
		return cli.NewExitError(fmt.Sprintf("variants: %d of %d combinations failed", failed, len(reports)), 1)
	}
	return nil
}

// manifestLanguage returns the shader language a manifest is written in. GLSL is assumed when none is given.
func manifestLanguage(m *config.Manifest) (common.ShaderLanguage, error) {
	switch lang := common.ShaderLanguage(strings.ToUpper(m.Language)); lang {
	case "":
		return common.LanguageGLSL, nil
	case common.LanguageGLSL, common.LanguageWGSL:
		return lang, nil
	default:
		return "", fmt.Errorf("manifest %s: unknown shader language %q", m.Name, m.Language)
	}
}

// validateManifest synthesizes both stages of every flag combination of m on a worker pool, then links the
// surviving combinations through a variant cache on the null backend.
//
// Parameters:
//   - m: the manifest, with its template sources resolved
//   - workers: the number of synthesis workers
//
// Returns:
//   - []variantReport: one report per combination, ordered by flag set
//   - error: an error if the manifest cannot be expanded at all
func validateManifest(m *config.Manifest, workers int) ([]variantReport, error) {
	lang, err := manifestLanguage(m)
	if err != nil {
		return nil, err
	}
	if len(m.Flags) > maxManifestFlags {
		return nil, fmt.Errorf("manifest %s: %d flags expand to too many combinations, at most %d flags are supported", m.Name, len(m.Flags), maxManifestFlags)
	}
	if workers < 1 {
		workers = 1
	}

	var opts []shader.PreProcessorOption
	if m.StripPrecision {
		opts = append(opts, shader.WithPrecisionStrip())
	}
	pre := shader.NewPreProcessor(lang, opts...)

	reports := make([]variantReport, 1<<len(m.Flags))
	pool := worker.NewDynamicWorkerPool(workers, 256, 1*time.Second)

	// Each task writes only its own slot of reports.
	var wg sync.WaitGroup
	for i := range reports {
		wg.Add(1)
		idx := i
		pool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				reports[idx] = synthesizeVariant(m, lang, pre, variant.FlagSet(idx))
				return nil, nil
			},
		})
	}
	wg.Wait()

	linkVariants(m, lang, reports)
	return reports, nil
}

// synthesizeVariant resolves both templates for one flag combination. WGSL output is also run through naga.
func synthesizeVariant(m *config.Manifest, lang common.ShaderLanguage, pre shader.PreProcessor, flags variant.FlagSet) variantReport {
	report := variantReport{Flags: flags, Status: statusOK}
	var vertexDefines, fragmentDefines []string
	for i, f := range m.Flags {
		if !flags.Has(variant.FlagSet(1) << i) {
			continue
		}
		report.Names = append(report.Names, f.Name)
		if f.Stage != "fragment" {
			vertexDefines = append(vertexDefines, f.Name)
		}
		if f.Stage != "vertex" {
			fragmentDefines = append(fragmentDefines, f.Name)
		}
	}

	vs, err := pre.Process(m.Vertex.Source, vertexDefines)
	if err != nil {
		report.Status, report.Err = statusTemplate, fmt.Errorf("vertex: %w", err)
		return report
	}
	fs, err := pre.Process(m.Fragment.Source, fragmentDefines)
	if err != nil {
		report.Status, report.Err = statusTemplate, fmt.Errorf("fragment: %w", err)
		return report
	}
	report.VertexHash = sourceHash(vs)
	report.FragmentHash = sourceHash(fs)

	if lang == common.LanguageWGSL {
		for _, src := range []struct{ kind, source string }{{"vertex", vs}, {"fragment", fs}} {
			if _, err := naga.Compile(src.source); err != nil {
				report.Status, report.Err = statusInvalid, fmt.Errorf("%s: %w", src.kind, err)
				return report
			}
		}
	}
	return report
}

// linkVariants links every report still marked ok through a variant cache, which synthesizes the same sources
// again and compiles them on the null backend.
func linkVariants(m *config.Manifest, lang common.ShaderLanguage, reports []variantReport) {
	m.Language = string(lang)
	r := renderer.NewRenderer(null_backend.NewDevice(null_backend.WithName("validate")), renderer.WithShaderLanguage(lang))
	defer r.Release()

	c := r.NewVariantCache(m.Name, variant.WithManifest(m))
	for i := range reports {
		report := &reports[i]
		if !report.OK() {
			continue
		}
		v, err := c.Variant(report.Flags)
		if err != nil {
			report.Status, report.Err = statusTemplate, err
			continue
		}
		if !v.Usable() {
			report.Status, report.Err = statusLinkFailed, v.Err()
		}
	}
	logger.Debugf("%s: %d sources synthesized for %d variants", m.Name, c.SynthesisCount(), c.Len())
}

// sourceHash returns a short content hash of synthesized source, for telling identical variants apart.
func sourceHash(source string) string {
	h := fnv.New32a()
	h.Write([]byte(source))
	return fmt.Sprintf("%08x", h.Sum32())
}

// renderVariantTable formats reports as a table.
func renderVariantTable(reports []variantReport) string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"#", "Flags", "Vertex", "Fragment", "Status"})
	for _, r := range reports {
		names := "-"
		if len(r.Names) > 0 {
			names = strings.Join(r.Names, ",")
		}
		table.Append([]string{
			fmt.Sprintf("%d", uint64(r.Flags)),
			names,
			r.VertexHash,
			r.FragmentHash,
			r.Status,
		})
	}
	table.Render()
	return buf.String()
}
