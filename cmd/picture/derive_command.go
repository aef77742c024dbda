package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"picture/internal/derive"
	"picture/internal/picture"
)

func newDeriveCommand(ctx *commandContext) *cobra.Command {
	var width, height int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "derive <image>",
		Short: "Derive one resized image",
		Long:  "Derive one resized image. The path is relative to the asset directory.\nWith only one dimension the source aspect ratio is kept; with both the image is center-cropped.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if width < 0 || height < 0 {
				return fmt.Errorf("--width and --height must not be negative")
			}
			if width == 0 && height == 0 {
				return fmt.Errorf("at least one of --width and --height is required")
			}
			return ctx.withService(func(svc *picture.Service) error {
				img, err := svc.Engine.Derive(cmd.Context(), derive.Job{Src: args[0], Width: width, Height: height})
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, img)
				}
				rows := [][]string{
					{"Path", img.Path},
					{"File", img.File},
					{"Size", fmt.Sprintf("%dx%d", img.Width, img.Height)},
					{"Digest", img.Digest},
					{"Generated", yesNo(img.Generated)},
					{"Capped", yesNo(img.Capped)},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&width, "width", 0, "Target width in pixels")
	cmd.Flags().IntVar(&height, "height", 0, "Target height in pixels")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the derived image as JSON")
	return cmd
}

func dimension(px int) string {
	if px == 0 {
		return "auto"
	}
	return strconv.Itoa(px)
}
