package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"picture/internal/config"
	"picture/internal/picture"
	"picture/internal/srcset"
	"picture/internal/tag"
)

const placeholderImage = "image.jpg"

func newExpandCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "expand <preset> [image]",
		Short: "Show the derivation jobs a preset expands to",
		Long:  "Show the derivation jobs a preset expands to, in markup order. No images are read.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := placeholderImage
			if len(args) > 1 {
				src = args[1]
			}
			return ctx.withService(func(svc *picture.Service) error {
				set, _, err := svc.Renderer.Expand(tag.Directive{Preset: args[0], Src: src})
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, set.Sources())
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Key", "Width", "Height", "Media"},
					sourceRows(set.Sources()),
					[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the expanded sources as JSON")
	return cmd
}

func newPresetsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List configured presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			names := cfg.PresetNames()
			if jsonOutput {
				presets := make([]*config.Preset, 0, len(names))
				for _, name := range names {
					presets = append(presets, cfg.Preset(name))
				}
				return writeJSON(cmd, presets)
			}
			out := cmd.OutOrStdout()
			if len(names) == 0 {
				fmt.Fprintln(out, "No presets configured")
				return nil
			}
			rows := make([][]string, 0, len(names))
			for _, name := range names {
				p := cfg.Preset(name)
				rows = append(rows, []string{name, formatDensities(p.Densities()), strings.Join(sourceKeys(p), ", "), formatAttrs(p.Attrs)})
			}
			fmt.Fprintln(out, renderTable([]string{"Preset", "PPI", "Sources", "Attributes"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print presets as JSON")
	return cmd
}

func sourceRows(sources []srcset.Source) [][]string {
	rows := make([][]string, 0, len(sources))
	for _, s := range sources {
		media := s.Media
		if media == "" {
			media = "-"
		}
		rows = append(rows, []string{s.Key, dimension(s.Width), dimension(s.Height), media})
	}
	return rows
}

func sourceKeys(p *config.Preset) []string {
	keys := make([]string, 0, len(p.Sources))
	for _, s := range p.Sources {
		keys = append(keys, s.Key)
	}
	return keys
}

func formatDensities(densities []srcset.Density) string {
	if len(densities) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(densities))
	for _, d := range densities {
		parts = append(parts, d.String()+"x")
	}
	return strings.Join(parts, " ")
}

func formatAttrs(attrs []config.Attr) string {
	if len(attrs) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(attrs))
	for _, a := range attrs {
		if a.Value == nil {
			parts = append(parts, a.Name)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%q", a.Name, *a.Value))
	}
	return strings.Join(parts, " ")
}
