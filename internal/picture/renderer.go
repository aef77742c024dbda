package picture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"picture/internal/config"
	"picture/internal/derive"
	"picture/internal/logging"
	"picture/internal/markup"
	"picture/internal/srcset"
	"picture/internal/tag"
)

// FallbackKey names the source picturefill markup uses for its noscript image.
const FallbackKey = "source_default"

// Result is one rendered directive.
type Result struct {
	RenderID string         `json:"render_id"`
	Preset   string         `json:"preset"`
	Markup   string         `json:"markup"`
	Entries  []markup.Entry `json:"entries"`
	Images   []derive.Image `json:"images"`
}

// Generated counts derivatives written by this render.
func (r Result) Generated() int {
	n := 0
	for _, img := range r.Images {
		if img.Generated {
			n++
		}
	}
	return n
}

// Renderer turns directives into markup. It is safe for concurrent use.
type Renderer struct {
	cfg     *config.Config
	deriver derive.Deriver
	logger  *slog.Logger
	style   markup.Style
	workers int
}

// NewRenderer validates the markup style and binds cfg to a deriver.
func NewRenderer(cfg *config.Config, deriver derive.Deriver, logger *slog.Logger) (*Renderer, error) {
	if cfg == nil {
		return nil, errors.New("picture: config is required")
	}
	if deriver == nil {
		return nil, errors.New("picture: deriver is required")
	}
	style, err := markup.ParseStyle(cfg.Markup)
	if err != nil {
		return nil, err
	}
	return &Renderer{
		cfg:     cfg,
		deriver: deriver,
		logger:  logging.NewComponentLogger(logger, "render"),
		style:   style,
		workers: cfg.WorkerCount(),
	}, nil
}

// Style returns the markup style in use.
func (r *Renderer) Style() markup.Style { return r.style }

// Expand resolves the directive against its preset and returns the expanded
// source set in emission order. It performs no file I/O.
func (r *Renderer) Expand(d tag.Directive) (srcset.Set, *config.Preset, error) {
	name := d.Preset
	if name == "" {
		name = config.DefaultPresetName
	}
	shared := r.cfg.Preset(name)
	if shared == nil {
		return srcset.Set{}, nil, srcset.WithPreset(srcset.Configf("", "preset does not exist"), name)
	}
	preset := shared.Clone()

	for _, o := range d.Overrides {
		if !preset.HasSource(o.Key) {
			return srcset.Set{}, nil, srcset.WithPreset(srcset.Configf(o.Key, "directive overrides a source the preset does not define"), name)
		}
	}

	for i := range preset.Sources {
		src := d.Src
		if override, ok := d.Override(preset.Sources[i].Key); ok {
			src = override
		}
		preset.Sources[i].Src = src
	}

	expanded, err := srcset.Expand(preset.SourceSet(), preset.Densities())
	if err != nil {
		return srcset.Set{}, nil, srcset.WithPreset(err, name)
	}
	if r.style == markup.Picturefill && expanded.Index(FallbackKey) < 0 {
		return srcset.Set{}, nil, srcset.WithPreset(srcset.Configf(FallbackKey, "picturefill markup requires this source"), name)
	}
	return expanded, preset, nil
}

// Render derives every source of the directive and returns its markup.
func (r *Renderer) Render(ctx context.Context, d tag.Directive) (Result, error) {
	id := uuid.NewString()
	ctx = logging.WithRenderID(ctx, id)
	logger := logging.WithContext(ctx, r.logger).With(logging.String(logging.FieldPreset, d.Preset))

	set, preset, err := r.Expand(d)
	if err != nil {
		return Result{}, err
	}

	sources := set.Sources()
	jobs := make([]derive.Job, len(sources))
	for i, src := range sources {
		jobs[i] = derive.JobFor(src)
	}
	images, err := derive.DeriveAll(ctx, r.deriver, jobs, r.workers)
	if err != nil {
		return Result{}, fmt.Errorf("render %s: %w", d.Src, err)
	}

	entries := make([]markup.Entry, len(sources))
	var fallback string
	for i, src := range sources {
		entries[i] = markup.Entry{
			Key:    src.Key,
			Path:   images[i].Path,
			Media:  src.Media,
			Width:  images[i].Width,
			Height: images[i].Height,
		}
		if src.Key == FallbackKey {
			fallback = images[i].Path
		}
	}

	attrs := presetAttrs(preset).Merge(d.Attrs)
	html, err := markup.Render(r.style, attrs, entries, fallback)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		RenderID: id,
		Preset:   preset.Name,
		Markup:   html,
		Entries:  entries,
		Images:   images,
	}
	logger.InfoContext(ctx, "rendered picture",
		logging.String("src", d.Src),
		logging.Int("sources", len(entries)),
		logging.Int("generated", result.Generated()),
		logging.String("style", r.style.String()),
	)
	return result, nil
}

// RenderMarkup parses directive text and renders it.
func (r *Renderer) RenderMarkup(ctx context.Context, text string) (string, error) {
	d, err := tag.Parse(text)
	if err != nil {
		return "", err
	}
	result, err := r.Render(ctx, d)
	if err != nil {
		return "", err
	}
	return result.Markup, nil
}

// RenderDocument replaces every {% picture %} directive in doc with its
// markup. The first failing directive aborts the document.
func (r *Renderer) RenderDocument(ctx context.Context, doc string) (string, error) {
	return tag.ReplaceAll(doc, func(d tag.Directive) (string, error) {
		result, err := r.Render(ctx, d)
		if err != nil {
			return "", err
		}
		return result.Markup, nil
	})
}

func presetAttrs(p *config.Preset) markup.Attrs {
	if p == nil || len(p.Attrs) == 0 {
		return nil
	}
	out := make(markup.Attrs, 0, len(p.Attrs))
	for _, a := range p.Attrs {
		out = append(out, markup.Attr{Name: a.Name, Value: a.Value})
	}
	return out
}
