// Package seedcmder provides the seed command for loading demo data.
package seedcmder

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/memorygraphco/memorygraph/pkg/cliui"
	"github.com/memorygraphco/memorygraph/pkg/graph"
	"github.com/memorygraphco/memorygraph/pkg/storage"
	"github.com/memorygraphco/memorygraph/pkg/storage/sqlite"
)

const seedLongDesc string = `Seed demo entities and facts into a SQLite database.

Examples:
  memorygraph seed
  memorygraph seed --sqlite ./memory.db
  memorygraph seed --overwrite`

const seedShortDesc string = "Seed demo entities and facts"

type seedCommander struct {
	sqlitePath string
	overwrite  bool
}

func NewSeedCmd() *cobra.Command {
	cmder := &seedCommander{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: seedShortDesc,
		Long:  seedLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "memorygraph.db", "Path to SQLite database")
	cmd.Flags().BoolVarP(&cmder.overwrite, "overwrite", "f", false, "Overwrite database before seeding")

	return cmd
}

func (c *seedCommander) run(ctx context.Context) error {
	if c.overwrite {
		if err := os.Remove(c.sqlitePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing existing database: %w", err)
		}
	}

	var entityCount, factCount int
	if err := cliui.Step(os.Stdout, "Seeding demo data", func() error {
		var seedErr error
		entityCount, factCount, seedErr = seedDemo(ctx, c.sqlitePath)
		return seedErr
	}); err != nil {
		return err
	}

	fmt.Printf("\n  %s Seeded %s facts %s into %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(strconv.Itoa(factCount)),
		cliui.DimStyle.Render(fmt.Sprintf("(%d entities)", entityCount)),
		cliui.DimStyle.Render(c.sqlitePath),
	)
	return nil
}

func seedDemo(ctx context.Context, sqlitePath string) (int, int, error) {
	store, err := sqlite.NewDriver(sqlitePath)
	if err != nil {
		return 0, 0, fmt.Errorf("opening database: %w", err)
	}
	defer store.Close()

	entities := []graph.Entity{
		{ID: "npc_blacksmith", Kind: graph.KindNPC},
		{ID: "npc_innkeeper", Kind: graph.KindNPC},
		{ID: "player_1", Kind: graph.KindPlayer},
	}
	for _, e := range entities {
		if err := store.PutEntity(ctx, e); err != nil {
			return 0, 0, fmt.Errorf("seeding entity %s: %w", e.ID, err)
		}
	}

	high := 0.8
	seeds := []storage.FactSeed{
		{
			Who:    "npc_blacksmith",
			About:  "player_1",
			Scene:  "forge",
			Type:   "observation",
			Intent: graph.IntentGiftHelp,
			Text:   "helped repair the town gate after the storm",
			Tags:   []string{"helpful", "town"},
		},
		{
			Who:        "npc_blacksmith",
			About:      "player_1",
			Scene:      "forge",
			Type:       "observation",
			Intent:     graph.IntentThreaten,
			Text:       "drew a blade during an argument over payment",
			Tags:       []string{"violence", "payment"},
			WeightSeed: &high,
		},
		{
			Who:    "npc_blacksmith",
			About:  "player_1",
			Scene:  "market",
			Type:   "observation",
			Intent: graph.IntentAskFavor,
			Text:   "asked for a discount on horseshoes",
			Tags:   []string{"payment"},
		},
		{
			Who:    "npc_innkeeper",
			About:  "player_1",
			Scene:  "inn",
			Type:   "observation",
			Intent: graph.IntentConfess,
			Text:   "admitted to breaking a window in the cellar",
			Tags:   []string{"confession", "inn"},
		},
		{
			Who:    "npc_innkeeper",
			About:  "player_1",
			Scene:  "inn",
			Type:   "observation",
			Intent: graph.IntentGiftHelp,
			Text:   "paid for a stranger's meal without being asked",
			Tags:   []string{"helpful", "inn"},
		},
	}
	for _, seed := range seeds {
		if _, err := store.CreateFact(ctx, seed); err != nil {
			return 0, 0, fmt.Errorf("seeding fact: %w", err)
		}
	}

	return len(entities), len(seeds), nil
}
