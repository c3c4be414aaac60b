package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/phase"
	"reelsmith/internal/registry"
)

// Per-unit cost estimates folded into workflow cost tracking.
const (
	costSearch       = 0.01
	costCrawl        = 0.005
	costScript       = 0.05
	costPerImage     = 0.08
	costPerWord      = 0.0004
	costPerStockClip = 0.002
)

// Manifest is the asset inventory assembled at the fan-in barrier.
type Manifest struct {
	Images  []string `json:"images"`
	Voice   []string `json:"voice"`
	Broll   []string `json:"broll"`
	Missing []string `json:"missing,omitempty"`
}

// Summary is the final workflow payload.
type Summary struct {
	Page       string `json:"page,omitempty"`
	AssetCount int    `json:"asset_count"`
	BeatCount  int    `json:"beat_count"`
}

type pipeline struct {
	cfg    *config.Config
	logger *slog.Logger
}

// New returns the phase bodies for every built-in phase name. Outputs are
// written under the configured data directory, one subdirectory per
// workflow.
func New(cfg *config.Config, logger *slog.Logger) phase.Set {
	p := &pipeline{cfg: cfg, logger: logging.WithComponent(logger, "pipeline")}
	return phase.Set{
		registry.PhaseSearch:       p.search,
		registry.PhaseCrawl:        p.crawl,
		registry.PhaseStoreArticle: p.storeArticle,
		registry.PhaseScript:       p.generateScript,
		registry.PhaseStoreScript:  p.storeScript,
		registry.PhasePrompts:      p.generatePrompts,
		registry.PhaseImages:       p.generateImages,
		registry.PhaseVoice:        p.generateVoice,
		registry.PhaseBroll:        p.searchBroll,
		registry.PhaseGather:       p.gatherAssets,
		registry.PhasePublish:      p.publish,
		registry.PhaseFinalize:     p.finalize,
	}
}

func (p *pipeline) search(ctx context.Context, outputs phase.Outputs) (phase.Output, error) {
	if err := ctx.Err(); err != nil {
		return phase.Output{}, err
	}
	topic := strings.TrimSpace(outputs.Request().Topic)
	if topic == "" {
		return phase.Output{}, fmt.Errorf("no topic to search for")
	}
	return phase.Output{Payload: searchSources(topic), CostUSD: costSearch}, nil
}

func (p *pipeline) crawl(ctx context.Context, outputs phase.Outputs) (phase.Output, error) {
	if err := ctx.Err(); err != nil {
		return phase.Output{}, err
	}
	topic := outputs.Request().Topic
	// The article_to_script graph runs crawl as its root, so sources are
	// optional.
	sources, _ := payloadAs[[]Source](outputs, registry.PhaseSearch)
	return phase.Output{Payload: composeArticle(topic, sources), CostUSD: costCrawl}, nil
}

func (p *pipeline) storeArticle(ctx context.Context, outputs phase.Outputs) (phase.Output, error) {
	if err := ctx.Err(); err != nil {
		return phase.Output{}, err
	}
	article, ok := payloadAs[Article](outputs, registry.PhaseCrawl)
	if !ok {
		return phase.Output{}, fmt.Errorf("no crawled article to store")
	}
	path, err := p.writeFile(outputs, "article.md",
		fmt.Sprintf("# %s\n\n%s\n", article.Title, article.Body))
	if err != nil {
		return phase.Output{}, err
	}
	return phase.Output{Payload: path}, nil
}

func (p *pipeline) generateScript(ctx context.Context, outputs phase.Outputs) (phase.Output, error) {
	if err := ctx.Err(); err != nil {
		return phase.Output{}, err
	}
	request := outputs.Request()
	article, ok := payloadAs[Article](outputs, registry.PhaseCrawl)
	if !ok {
		// quick_generate scripts straight from search results.
		sources, _ := payloadAs[[]Source](outputs, registry.PhaseSearch)
		article = composeArticle(request.Topic, sources)
	}
	script := composeScript(request.Topic, request.Style, request.Tone, article)
	return phase.Output{Payload: script, CostUSD: costScript}, nil
}

func (p *pipeline) storeScript(ctx context.Context, outputs phase.Outputs) (phase.Output, error) {
	if err := ctx.Err(); err != nil {
		return phase.Output{}, err
	}
	script, ok := payloadAs[Script](outputs, registry.PhaseScript)
	if !ok {
		return phase.Output{}, fmt.Errorf("no script to store")
	}
	data, err := json.MarshalIndent(script, "", "  ")
	if err != nil {
		return phase.Output{}, fmt.Errorf("marshal script: %w", err)
	}
	path, err := p.writeFile(outputs, "script.json", string(data))
	if err != nil {
		return phase.Output{}, err
	}
	return phase.Output{Payload: path}, nil
}

func (p *pipeline) generatePrompts(ctx context.Context, outputs phase.Outputs) (phase.Output, error) {
	if err := ctx.Err(); err != nil {
		return phase.Output{}, err
	}
	script, ok := payloadAs[Script](outputs, registry.PhaseScript)
	if !ok {
		return phase.Output{}, fmt.Errorf("no script to derive prompts from")
	}
	return phase.Output{Payload: composePrompts(script, p.cfg.Workflow.VisualBudget)}, nil
}

func (p *pipeline) generateImages(ctx context.Context, outputs phase.Outputs) (phase.Output, error) {
	if err := ctx.Err(); err != nil {
		return phase.Output{}, err
	}
	prompts, ok := payloadAs[Prompts](outputs, registry.PhasePrompts)
	if !ok {
		return phase.Output{}, fmt.Errorf("no prompts to render")
	}
	paths := make([]string, 0, len(prompts.Generated))
	for i, prompt := range prompts.Generated {
		path, err := p.writeFile(outputs, filepath.Join("images", fmt.Sprintf("image_%02d.txt", i+1)), prompt+"\n")
		if err != nil {
			return phase.Output{}, err
		}
		paths = append(paths, path)
	}
	return phase.Output{
		Payload:   paths,
		CostUSD:   costPerImage * float64(len(paths)),
		Artifacts: phase.Artifacts{ImagePaths: paths},
	}, nil
}

func (p *pipeline) generateVoice(ctx context.Context, outputs phase.Outputs) (phase.Output, error) {
	if err := ctx.Err(); err != nil {
		return phase.Output{}, err
	}
	script, ok := payloadAs[Script](outputs, registry.PhaseScript)
	if !ok {
		return phase.Output{}, fmt.Errorf("no script to narrate")
	}
	lines := make([]string, 0, len(script.Beats))
	for _, beat := range script.Beats {
		lines = append(lines, beat.Text)
	}
	path, err := p.writeFile(outputs, filepath.Join("voice", "narration.txt"), strings.Join(lines, "\n")+"\n")
	if err != nil {
		return phase.Output{}, err
	}
	paths := []string{path}
	return phase.Output{
		Payload:   paths,
		CostUSD:   costPerWord * float64(script.WordCount),
		Artifacts: phase.Artifacts{VoicePaths: paths},
	}, nil
}

func (p *pipeline) searchBroll(ctx context.Context, outputs phase.Outputs) (phase.Output, error) {
	if err := ctx.Err(); err != nil {
		return phase.Output{}, err
	}
	prompts, ok := payloadAs[Prompts](outputs, registry.PhasePrompts)
	if !ok {
		return phase.Output{}, fmt.Errorf("no stock queries to search")
	}
	paths := make([]string, 0, len(prompts.Stock))
	for i, query := range prompts.Stock {
		path, err := p.writeFile(outputs, filepath.Join("broll", fmt.Sprintf("clip_%02d.txt", i+1)), query+"\n")
		if err != nil {
			return phase.Output{}, err
		}
		paths = append(paths, path)
	}
	return phase.Output{
		Payload:   paths,
		CostUSD:   costPerStockClip * float64(len(paths)),
		Artifacts: phase.Artifacts{StockPaths: paths},
	}, nil
}

// gatherAssets is the fan-in barrier. It runs even when some producers
// failed and reports what is missing instead of failing the workflow.
func (p *pipeline) gatherAssets(ctx context.Context, outputs phase.Outputs) (phase.Output, error) {
	if err := ctx.Err(); err != nil {
		return phase.Output{}, err
	}
	var manifest Manifest
	var warnings []string
	manifest.Images = gatherFrom(outputs, registry.PhaseImages, &manifest.Missing, &warnings)
	manifest.Voice = gatherFrom(outputs, registry.PhaseVoice, &manifest.Missing, &warnings)
	manifest.Broll = gatherFrom(outputs, registry.PhaseBroll, &manifest.Missing, &warnings)

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return phase.Output{}, fmt.Errorf("marshal manifest: %w", err)
	}
	if _, err := p.writeFile(outputs, "manifest.json", string(data)+"\n"); err != nil {
		return phase.Output{}, err
	}
	return phase.Output{
		Payload:   manifest,
		Artifacts: phase.Artifacts{Warnings: warnings},
	}, nil
}

func gatherFrom(outputs phase.Outputs, name string, missing *[]string, warnings *[]string) []string {
	if message, failed := outputs.Failed(name); failed {
		*missing = append(*missing, name)
		*warnings = append(*warnings, fmt.Sprintf("%s failed: %s", name, message))
		return nil
	}
	paths, ok := payloadAs[[]string](outputs, name)
	if !ok {
		*missing = append(*missing, name)
		return nil
	}
	return paths
}

func (p *pipeline) publish(ctx context.Context, outputs phase.Outputs) (phase.Output, error) {
	if err := ctx.Err(); err != nil {
		return phase.Output{}, err
	}
	request := outputs.Request()
	manifest, ok := payloadAs[Manifest](outputs, registry.PhaseGather)
	if !ok {
		return phase.Output{}, fmt.Errorf("no asset manifest to publish")
	}
	script, _ := payloadAs[Script](outputs, registry.PhaseScript)

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", request.Topic)
	if len(request.Platforms) > 0 {
		fmt.Fprintf(&b, "Platforms: %s\n\n", strings.Join(request.Platforms, ", "))
	}
	b.WriteString("## Script\n\n")
	for _, beat := range script.Beats {
		fmt.Fprintf(&b, "- [%s] %s\n", beat.Tag, beat.Text)
	}
	b.WriteString("\n## Assets\n\n")
	for _, path := range manifest.Images {
		fmt.Fprintf(&b, "- image: %s\n", path)
	}
	for _, path := range manifest.Voice {
		fmt.Fprintf(&b, "- voice: %s\n", path)
	}
	for _, path := range manifest.Broll {
		fmt.Fprintf(&b, "- broll: %s\n", path)
	}
	for _, name := range manifest.Missing {
		fmt.Fprintf(&b, "- missing: %s\n", name)
	}

	path, err := p.writeFile(outputs, "page.md", b.String())
	if err != nil {
		return phase.Output{}, err
	}
	return phase.Output{Payload: path}, nil
}

func (p *pipeline) finalize(ctx context.Context, outputs phase.Outputs) (phase.Output, error) {
	if err := ctx.Err(); err != nil {
		return phase.Output{}, err
	}
	page, _ := payloadAs[string](outputs, registry.PhasePublish)
	manifest, _ := payloadAs[Manifest](outputs, registry.PhaseGather)
	script, _ := payloadAs[Script](outputs, registry.PhaseScript)
	summary := Summary{
		Page:       page,
		AssetCount: len(manifest.Images) + len(manifest.Voice) + len(manifest.Broll),
		BeatCount:  len(script.Beats),
	}
	p.logger.Info("workflow outputs finalized",
		logging.String(logging.FieldWorkflowID, outputs.Request().WorkflowID),
		logging.Int("asset_count", summary.AssetCount),
	)
	return phase.Output{Payload: summary}, nil
}

// writeFile writes content into the workflow's directory under the data
// dir and returns the absolute path.
func (p *pipeline) writeFile(outputs phase.Outputs, relative, content string) (string, error) {
	root := filepath.Join(p.cfg.DataDir, "workflows", outputs.Request().WorkflowID)
	path := filepath.Join(root, relative)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", relative, err)
	}
	return path, nil
}

func payloadAs[T any](outputs phase.Outputs, name string) (T, bool) {
	var zero T
	value, ok := outputs.Payload(name)
	if !ok {
		return zero, false
	}
	typed, ok := value.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}
