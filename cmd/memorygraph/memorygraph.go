// Package memorygraphcmder
package memorygraphcmder

import (
	seedcmder "github.com/memorygraphco/memorygraph/cmd/memorygraph/seed"
	servecmder "github.com/memorygraphco/memorygraph/cmd/memorygraph/serve"
	versioncmder "github.com/memorygraphco/memorygraph/cmd/memorygraph/version"
	"github.com/spf13/cobra"
)

const memorygraphLongDesc string = `Memorygraph is a fact store and retrieval engine for NPC memory.

Run services using:
  memorygraph serve    Run the API server
  memorygraph seed     Seed demo entities and facts`

const memorygraphShortDesc string = "Memorygraph - NPC Fact Memory"

func NewMemorygraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memorygraph",
		Short: memorygraphShortDesc,
		Long:  memorygraphLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(seedcmder.NewSeedCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
