package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/skatefeed/internal/config"
)

// sourcesCmd creates the "sources" subcommand, which validates and lists
// the source registry.
func sourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "Validate and list the source registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			reg, err := config.LoadRegistry(cfg.RegistryPath)
			if err != nil {
				return err
			}

			fmt.Printf("News sources (%d):\n", len(reg.Sources))
			for _, src := range reg.Sources {
				render := ""
				if src.Render {
					render = " [render]"
				}
				fmt.Printf("  %-4s %-30s %s%s\n", src.Type, src.Name, src.URL, render)
			}
			fmt.Printf("\nYouTube channels (%d):\n", len(reg.Channels))
			for _, ch := range reg.Channels {
				fmt.Printf("  %-30s %s\n", ch.Name, ch.ID)
			}
			fmt.Printf("\nInstagram hashtags (%d):\n", len(reg.Hashtags))
			for _, tag := range reg.Hashtags {
				fmt.Printf("  #%s\n", tag)
			}
			if reg.Empty() {
				fmt.Println("\nThe registry is empty; runs will publish nothing.")
			}
			return nil
		},
	}
}
