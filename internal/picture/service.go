package picture

import (
	"errors"
	"fmt"
	"log/slog"

	"picture/internal/config"
	"picture/internal/derive"
	"picture/internal/gencache"
	"picture/internal/manifest"
)

// Service bundles the engine, manifest, and renderer built from one config.
type Service struct {
	Config   *config.Config
	Engine   *derive.Engine
	Manifest *manifest.Store // nil when the manifest is disabled
	Renderer *Renderer
	Cache    *gencache.Manager
}

// Roots maps configured paths onto engine roots.
func Roots(cfg *config.Config) derive.Roots {
	return derive.Roots{
		Site:      cfg.Paths.SiteDir,
		Assets:    cfg.Paths.AssetPath,
		Generated: cfg.Paths.GeneratedPath,
	}
}

// Open builds a Service from cfg. Close releases it.
func Open(cfg *config.Config, logger *slog.Logger) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("picture: config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	svc := &Service{Config: cfg}
	opts := []derive.Option{
		derive.WithLogger(logger),
		derive.WithLockDir(cfg.LockDir()),
		derive.WithJPEGQuality(cfg.Derive.JPEGQuality),
		derive.WithFingerprintCache(cfg.Derive.FingerprintCacheEntries),
	}
	if cfg.Manifest.Enabled {
		store, err := manifest.Open(cfg.ManifestPath())
		if err != nil {
			return nil, fmt.Errorf("open manifest: %w", err)
		}
		svc.Manifest = store
		opts = append(opts, derive.WithRecorder(store))
	}

	engine, err := derive.New(Roots(cfg), opts...)
	if err != nil {
		svc.Close()
		return nil, err
	}
	svc.Engine = engine

	renderer, err := NewRenderer(cfg, engine, logger)
	if err != nil {
		svc.Close()
		return nil, err
	}
	svc.Renderer = renderer
	svc.Cache = gencache.NewManager(cfg.GeneratedDir(), svc.Manifest, engine, logger)
	return svc, nil
}

// Close releases the engine caches and the manifest database.
func (s *Service) Close() error {
	if s == nil {
		return nil
	}
	if s.Engine != nil {
		s.Engine.Close()
	}
	if s.Manifest != nil {
		return s.Manifest.Close()
	}
	return nil
}
