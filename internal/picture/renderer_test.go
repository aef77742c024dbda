package picture_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"picture/internal/config"
	"picture/internal/derive"
	"picture/internal/logging"
	"picture/internal/markup"
	"picture/internal/picture"
	"picture/internal/srcset"
	"picture/internal/tag"
	"picture/internal/testsupport"
)

func retinaPreset() *config.Preset {
	class := "hero"
	return &config.Preset{
		Name:  "retina",
		PPI:   []float64{1, 2},
		Attrs: []config.Attr{{Name: "class", Value: &class}, {Name: "itemprop"}},
		Sources: []srcset.Source{
			{Key: "source_medium", Width: 400, Media: "(min-width: 40em)"},
			{Key: "source_default", Width: 200},
		},
	}
}

func openService(t *testing.T, opts ...testsupport.ConfigOption) *picture.Service {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	svc, err := picture.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("picture.Open: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

func entryKeys(entries []markup.Entry) []string {
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return keys
}

func TestRenderPicturefill(t *testing.T) {
	svc := openService(t, testsupport.WithPreset(retinaPreset()))
	testsupport.WriteImage(t, testsupport.AssetPath(svc.Config, "photos/a.jpg"), 1000, 500)

	result, err := svc.Renderer.Render(context.Background(), tag.Directive{
		Preset: "retina",
		Src:    "photos/a.jpg",
		Attrs:  markup.Attrs{{Name: "alt", Value: markup.Value("Beach")}, {Name: "class", Value: markup.Value("wide")}},
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	wantKeys := []string{"source_medium-x2", "source_medium", "source_default-x2", "source_default"}
	if diff := cmp.Diff(wantKeys, entryKeys(result.Entries)); diff != "" {
		t.Fatalf("entry order mismatch (-want +got):\n%s", diff)
	}
	sizes := make([]string, len(result.Entries))
	for i, e := range result.Entries {
		sizes[i] = fmt.Sprintf("%dx%d", e.Width, e.Height)
	}
	if diff := cmp.Diff([]string{"800x400", "400x200", "400x200", "200x100"}, sizes); diff != "" {
		t.Fatalf("entry sizes mismatch (-want +got):\n%s", diff)
	}
	if result.Entries[1].Path != result.Entries[2].Path {
		t.Fatalf("identical boxes should share a derivative: %q vs %q", result.Entries[1].Path, result.Entries[2].Path)
	}
	if result.RenderID == "" || result.Preset != "retina" {
		t.Fatalf("unexpected result metadata: %+v", result)
	}

	e := result.Entries
	want := `<span class="wide" itemprop data-picture data-alt="Beach">
<span data-src="` + e[0].Path + `" data-media="(min-width: 40em) and (-webkit-min-device-pixel-ratio: 2), (min-width: 40em) and (min-resolution: 192dpi)"></span>
<span data-src="` + e[1].Path + `" data-media="(min-width: 40em)"></span>
<span data-src="` + e[2].Path + `" data-media="(-webkit-min-device-pixel-ratio: 2), (min-resolution: 192dpi)"></span>
<span data-src="` + e[3].Path + `"></span>

<noscript>
<img src="` + e[3].Path + `" alt="Beach">
</noscript>
</span>
`
	if diff := cmp.Diff(want, result.Markup); diff != "" {
		t.Fatalf("markup mismatch (-want +got):\n%s", diff)
	}

	for _, img := range result.Images {
		if _, err := os.Stat(img.File); err != nil {
			t.Fatalf("derived file missing: %v", err)
		}
	}
	if shared := svc.Config.Preset("retina"); shared.Sources[0].Src != "" {
		t.Fatalf("render mutated the shared preset: %+v", shared.Sources[0])
	}
}

func TestRenderNativePicture(t *testing.T) {
	svc := openService(t, testsupport.WithMarkup(config.MarkupPicture))
	testsupport.WriteImage(t, testsupport.AssetPath(svc.Config, "a.png"), 800, 800)

	out, err := svc.Renderer.RenderMarkup(context.Background(), `a.png alt="Square"`)
	if err != nil {
		t.Fatalf("RenderMarkup: %v", err)
	}
	if !strings.HasPrefix(out, "<picture alt=\"Square\">\n<source srcset=\"/assets/generated/a-400x400-") {
		t.Fatalf("unexpected markup start: %q", out)
	}
	if !strings.HasSuffix(out, "\n<p>Square</p>\n</picture>\n") {
		t.Fatalf("unexpected markup end: %q", out)
	}
}

func TestRenderAppliesOverrides(t *testing.T) {
	svc := openService(t)
	testsupport.WriteImage(t, testsupport.AssetPath(svc.Config, "a.jpg"), 600, 400)
	testsupport.WriteImage(t, testsupport.AssetPath(svc.Config, "crops/a-wide.jpg"), 900, 300)

	d, err := tag.Parse("a.jpg source_medium: crops/a-wide.jpg")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	result, err := svc.Renderer.Render(context.Background(), d)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(result.Entries[0].Path, "/crops/a-wide-400x133-") {
		t.Fatalf("override not applied: %q", result.Entries[0].Path)
	}
	if !strings.Contains(result.Entries[1].Path, "/a-200x133-") {
		t.Fatalf("default source should use the directive image: %q", result.Entries[1].Path)
	}
}

func TestRenderConfigurationErrorsPrecedeIO(t *testing.T) {
	noDefault := &config.Preset{Name: "nodefault", Sources: []srcset.Source{{Key: "source_wide", Width: 100}}}
	svc := openService(t, testsupport.WithPreset(noDefault))

	tests := []struct {
		name string
		d    tag.Directive
	}{
		{"unknown preset", tag.Directive{Preset: "missing", Src: "a.jpg"}},
		{"unknown override key", tag.Directive{Preset: "default", Src: "a.jpg", Overrides: []tag.Override{{Key: "source_huge", Src: "b.jpg"}}}},
		{"picturefill without fallback", tag.Directive{Preset: "nodefault", Src: "a.jpg"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Renderer.Render(context.Background(), tt.d)
			if !errors.Is(err, srcset.ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
	if _, err := os.Stat(svc.Config.GeneratedDir()); !os.IsNotExist(err) {
		t.Fatalf("no output should be written before configuration is valid: %v", err)
	}
}

func TestRenderMissingSourceAborts(t *testing.T) {
	svc := openService(t)
	_, err := svc.Renderer.RenderMarkup(context.Background(), "missing.jpg")
	if !errors.Is(err, derive.ErrSourceNotFound) {
		t.Fatalf("expected ErrSourceNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "missing.jpg") {
		t.Fatalf("error should name the path: %v", err)
	}
}

func TestRenderDocument(t *testing.T) {
	svc := openService(t, testsupport.WithManifest())
	testsupport.WriteImage(t, testsupport.AssetPath(svc.Config, "a.jpg"), 800, 400)

	doc := "Intro\n\n{% picture a.jpg alt=\"A\" %}\n\nOutro\n"
	out, err := svc.Renderer.RenderDocument(context.Background(), doc)
	if err != nil {
		t.Fatalf("RenderDocument: %v", err)
	}
	if !strings.HasPrefix(out, "Intro\n\n<span data-picture data-alt=\"A\">\n") || !strings.HasSuffix(out, "</span>\n\n\nOutro\n") {
		t.Fatalf("unexpected document: %q", out)
	}

	stats, err := svc.Manifest.Stats(context.Background())
	if err != nil {
		t.Fatalf("manifest stats: %v", err)
	}
	if stats.Entries != 2 || stats.Sources != 1 {
		t.Fatalf("unexpected manifest stats: %+v", stats)
	}
}

func TestNewRendererRejectsUnknownMarkup(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Markup = "amp"
	if _, err := picture.NewRenderer(cfg, &derive.Engine{}, nil); !errors.Is(err, srcset.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRenderFromJekyllConfig(t *testing.T) {
	t.Setenv(config.SiteDirEnv, "")
	site := t.TempDir()
	configPath := filepath.Join(site, "_config.yml")
	testsupport.WriteFile(t, configPath, []byte(`title: Trips
picture:
  markup: picture
  asset_path: assets/img
  manifest:
    enabled: false
  presets:
    default:
      ppi: [1.5, 2]
      attr:
        itemprop: image
        data-lazy:
        class: hero
      source_wide:
        media: "(min-width: 40em)"
        width: 600
      source_default:
        width: 300
`))
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	svc, err := picture.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("picture.Open: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	testsupport.WriteImage(t, filepath.Join(site, "assets", "img", "beach.jpg"), 2000, 1000)

	result, err := svc.Renderer.RenderMarkup(context.Background(), `beach.jpg class="wide" alt="Beach"`)
	if err != nil {
		t.Fatalf("RenderMarkup: %v", err)
	}

	d, err := tag.Parse(`beach.jpg`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	res, err := svc.Renderer.Render(context.Background(), d)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	wantKeys := []string{
		"source_wide-x2", "source_wide-x1.5", "source_wide",
		"source_default-x2", "source_default-x1.5", "source_default",
	}
	if diff := cmp.Diff(wantKeys, entryKeys(res.Entries)); diff != "" {
		t.Fatalf("entry order mismatch (-want +got):\n%s", diff)
	}
	sizes := make([]string, len(res.Entries))
	for i, e := range res.Entries {
		sizes[i] = fmt.Sprintf("%dx%d", e.Width, e.Height)
		if !strings.HasPrefix(e.Path, "/assets/img/generated/beach-") {
			t.Fatalf("unexpected derived path %q", e.Path)
		}
	}
	if diff := cmp.Diff([]string{"1200x600", "900x450", "600x300", "600x300", "450x225", "300x150"}, sizes); diff != "" {
		t.Fatalf("entry sizes mismatch (-want +got):\n%s", diff)
	}

	e := res.Entries
	want := `<picture itemprop="image" data-lazy class="wide" alt="Beach">
<source srcset="` + e[0].Path + `" media="(min-width: 40em) and (-webkit-min-device-pixel-ratio: 2), (min-width: 40em) and (min-resolution: 192dpi)">
<source srcset="` + e[1].Path + `" media="(min-width: 40em) and (-webkit-min-device-pixel-ratio: 1.5), (min-width: 40em) and (min-resolution: 144dpi)">
<source srcset="` + e[2].Path + `" media="(min-width: 40em)">
<source srcset="` + e[3].Path + `" media="(-webkit-min-device-pixel-ratio: 2), (min-resolution: 192dpi)">
<source srcset="` + e[4].Path + `" media="(-webkit-min-device-pixel-ratio: 1.5), (min-resolution: 144dpi)">
<source srcset="` + e[5].Path + `">

<p>Beach</p>
</picture>
`
	if diff := cmp.Diff(want, result); diff != "" {
		t.Fatalf("markup mismatch (-want +got):\n%s", diff)
	}
}
