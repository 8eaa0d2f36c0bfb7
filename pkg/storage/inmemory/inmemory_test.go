package inmemory_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/memorygraphco/memorygraph/pkg/graph"
	"github.com/memorygraphco/memorygraph/pkg/storage"
	"github.com/memorygraphco/memorygraph/pkg/storage/inmemory"
)

var _ = Describe("Driver", func() {
	var (
		ctx   context.Context
		store *inmemory.Driver
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = inmemory.NewDriver()
		Expect(store.PutEntity(ctx, graph.Entity{ID: "npc_1", Kind: graph.KindNPC})).To(Succeed())
		Expect(store.PutEntity(ctx, graph.Entity{ID: "player_1", Kind: graph.KindPlayer})).To(Succeed())
	})

	Context("PutEntity", func() {
		It("rejects an empty id", func() {
			err := store.PutEntity(ctx, graph.Entity{ID: " ", Kind: graph.KindNPC})
			var validation storage.ValidationError
			Expect(err).To(BeAssignableToTypeOf(validation))
		})

		It("rejects an unknown kind", func() {
			err := store.PutEntity(ctx, graph.Entity{ID: "x", Kind: "dragon"})
			var validation storage.ValidationError
			Expect(err).To(BeAssignableToTypeOf(validation))
		})

		It("treats re-registration with the same kind as a no-op", func() {
			Expect(store.PutEntity(ctx, graph.Entity{ID: "npc_1", Kind: graph.KindNPC})).To(Succeed())
		})

		It("conflicts on a kind change", func() {
			err := store.PutEntity(ctx, graph.Entity{ID: "npc_1", Kind: graph.KindPlayer})
			var conflict storage.ConflictError
			Expect(err).To(BeAssignableToTypeOf(conflict))
		})
	})

	Context("ListEntities", func() {
		It("returns entities sorted by id", func() {
			entities, err := store.ListEntities(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(entities).To(HaveLen(2))
			Expect(entities[0].ID).To(Equal("npc_1"))
			Expect(entities[1].ID).To(Equal("player_1"))
		})
	})

	Context("CreateFact", func() {
		It("assigns an id, the default weight, and a creation time", func() {
			fact, err := store.CreateFact(ctx, storage.FactSeed{
				Who:    "npc_1",
				About:  "player_1",
				Scene:  "inn",
				Intent: graph.IntentConfess,
				Text:   "admitted to the theft",
				Tags:   []string{"theft"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(fact.ID).NotTo(BeEmpty())
			Expect(fact.Weight).To(Equal(graph.DefaultWeight))
			Expect(fact.CreatedAt).NotTo(BeZero())
			Expect(fact.Pinned).To(BeFalse())
		})

		It("clamps a weight seed into [0, 1]", func() {
			seed := 1.7
			fact, err := store.CreateFact(ctx, storage.FactSeed{
				Who:        "npc_1",
				About:      "player_1",
				Intent:     graph.IntentNone,
				Text:       "observation",
				WeightSeed: &seed,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(fact.Weight).To(Equal(1.0))
		})

		It("rejects empty text", func() {
			_, err := store.CreateFact(ctx, storage.FactSeed{
				Who:   "npc_1",
				About: "player_1",
				Text:  "  ",
			})
			var validation storage.ValidationError
			Expect(err).To(BeAssignableToTypeOf(validation))
		})

		It("rejects an unknown intent", func() {
			_, err := store.CreateFact(ctx, storage.FactSeed{
				Who:    "npc_1",
				About:  "player_1",
				Intent: "bargain",
				Text:   "observation",
			})
			var validation storage.ValidationError
			Expect(err).To(BeAssignableToTypeOf(validation))
		})

		It("rejects unregistered participants", func() {
			_, err := store.CreateFact(ctx, storage.FactSeed{
				Who:    "ghost",
				About:  "player_1",
				Intent: graph.IntentNone,
				Text:   "observation",
			})
			var validation storage.ValidationError
			Expect(err).To(BeAssignableToTypeOf(validation))
		})
	})

	Context("QueryFacts", func() {
		BeforeEach(func() {
			for _, seed := range []storage.FactSeed{
				{Who: "npc_1", About: "player_1", Scene: "inn", Intent: graph.IntentConfess, Text: "one"},
				{Who: "npc_1", About: "player_1", Scene: "forge", Intent: graph.IntentThreaten, Text: "two"},
				{Who: "npc_1", About: "player_1", Scene: "inn", Intent: graph.IntentNone, Text: "three"},
			} {
				_, err := store.CreateFact(ctx, seed)
				Expect(err).NotTo(HaveOccurred())
			}
		})

		It("matches on who/about", func() {
			facts, err := store.QueryFacts(ctx, storage.FactFilter{Who: "npc_1", About: "player_1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(facts).To(HaveLen(3))
		})

		It("narrows by scene", func() {
			facts, err := store.QueryFacts(ctx, storage.FactFilter{Who: "npc_1", About: "player_1", Scene: "inn"})
			Expect(err).NotTo(HaveOccurred())
			Expect(facts).To(HaveLen(2))
		})

		It("narrows by intent", func() {
			facts, err := store.QueryFacts(ctx, storage.FactFilter{Who: "npc_1", About: "player_1", Intent: graph.IntentThreaten})
			Expect(err).NotTo(HaveOccurred())
			Expect(facts).To(HaveLen(1))
			Expect(facts[0].Text).To(Equal("two"))
		})

		It("returns nothing for an unknown pair", func() {
			facts, err := store.QueryFacts(ctx, storage.FactFilter{Who: "player_1", About: "npc_1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(facts).To(BeEmpty())
		})

		It("preserves insertion order", func() {
			facts, err := store.QueryFacts(ctx, storage.FactFilter{Who: "npc_1", About: "player_1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(facts[0].Text).To(Equal("one"))
			Expect(facts[1].Text).To(Equal("two"))
			Expect(facts[2].Text).To(Equal("three"))
		})
	})

	Context("SetPinned and SetWeight", func() {
		var factID string

		BeforeEach(func() {
			fact, err := store.CreateFact(ctx, storage.FactSeed{
				Who: "npc_1", About: "player_1", Intent: graph.IntentNone, Text: "observation",
			})
			Expect(err).NotTo(HaveOccurred())
			factID = fact.ID
		})

		It("pins and unpins", func() {
			Expect(store.SetPinned(ctx, factID, true)).To(Succeed())
			fact, err := store.GetFact(ctx, factID)
			Expect(err).NotTo(HaveOccurred())
			Expect(fact.Pinned).To(BeTrue())

			Expect(store.SetPinned(ctx, factID, false)).To(Succeed())
			fact, err = store.GetFact(ctx, factID)
			Expect(err).NotTo(HaveOccurred())
			Expect(fact.Pinned).To(BeFalse())
		})

		It("clamps weights outside [0, 1]", func() {
			Expect(store.SetWeight(ctx, factID, 2.5)).To(Succeed())
			fact, err := store.GetFact(ctx, factID)
			Expect(err).NotTo(HaveOccurred())
			Expect(fact.Weight).To(Equal(1.0))

			Expect(store.SetWeight(ctx, factID, -0.5)).To(Succeed())
			fact, err = store.GetFact(ctx, factID)
			Expect(err).NotTo(HaveOccurred())
			Expect(fact.Weight).To(Equal(0.0))
		})

		It("returns not found for unknown facts", func() {
			var notFound storage.NotFoundError
			Expect(store.SetPinned(ctx, "missing", true)).To(BeAssignableToTypeOf(notFound))
			Expect(store.SetWeight(ctx, "missing", 0.5)).To(BeAssignableToTypeOf(notFound))
		})
	})

	Context("UpdateWeight", func() {
		var factID string

		BeforeEach(func() {
			fact, err := store.CreateFact(ctx, storage.FactSeed{
				Who: "npc_1", About: "player_1", Intent: graph.IntentNone, Text: "observation",
			})
			Expect(err).NotTo(HaveOccurred())
			factID = fact.ID
		})

		It("returns the old and new weights", func() {
			old, updated, err := store.UpdateWeight(ctx, factID, func(w float64) float64 { return w / 2 })
			Expect(err).NotTo(HaveOccurred())
			Expect(old).To(Equal(0.5))
			Expect(updated).To(Equal(0.25))

			fact, err := store.GetFact(ctx, factID)
			Expect(err).NotTo(HaveOccurred())
			Expect(fact.Weight).To(Equal(0.25))
		})

		It("clamps the transformed weight into [0, 1]", func() {
			_, updated, err := store.UpdateWeight(ctx, factID, func(w float64) float64 { return w + 10 })
			Expect(err).NotTo(HaveOccurred())
			Expect(updated).To(Equal(1.0))
		})

		It("returns not found for an unknown fact", func() {
			_, _, err := store.UpdateWeight(ctx, "missing", func(w float64) float64 { return w })
			var notFound storage.NotFoundError
			Expect(err).To(BeAssignableToTypeOf(notFound))
		})

		It("serializes concurrent read-modify-writes", func() {
			const goroutines = 32

			start := make(chan struct{})
			var wg sync.WaitGroup
			for i := 0; i < goroutines; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					_, _, err := store.UpdateWeight(ctx, factID, func(w float64) float64 { return w + 0.01 })
					Expect(err).NotTo(HaveOccurred())
				}()
			}
			close(start)
			wg.Wait()

			fact, err := store.GetFact(ctx, factID)
			Expect(err).NotTo(HaveOccurred())
			Expect(fact.Weight).To(BeNumerically("~", 0.5+0.01*goroutines, 1e-9))
		})
	})

	Context("Export and Import", func() {
		It("round-trips all state", func() {
			fact, err := store.CreateFact(ctx, storage.FactSeed{
				Who: "npc_1", About: "player_1", Scene: "inn",
				Intent: graph.IntentConfess, Text: "admitted to the theft",
				Tags: []string{"theft"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(store.SetPinned(ctx, fact.ID, true)).To(Succeed())

			snap, err := store.Export(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.SchemaVersion).To(Equal(graph.SnapshotSchemaV1))
			Expect(snap.Entities).To(HaveLen(2))
			Expect(snap.Facts).To(HaveLen(1))

			restored := inmemory.NewDriver()
			Expect(restored.Import(ctx, snap)).To(Succeed())

			got, err := restored.GetFact(ctx, fact.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Text).To(Equal("admitted to the theft"))
			Expect(got.Pinned).To(BeTrue())
			Expect(got.Tags).To(Equal([]string{"theft"}))
			Expect(got.CreatedAt.Equal(fact.CreatedAt)).To(BeTrue())
		})

		It("replaces existing state entirely", func() {
			_, err := store.CreateFact(ctx, storage.FactSeed{
				Who: "npc_1", About: "player_1", Intent: graph.IntentNone, Text: "stale",
			})
			Expect(err).NotTo(HaveOccurred())

			other := inmemory.NewDriver()
			Expect(other.PutEntity(ctx, graph.Entity{ID: "npc_2", Kind: graph.KindNPC})).To(Succeed())
			Expect(other.PutEntity(ctx, graph.Entity{ID: "player_2", Kind: graph.KindPlayer})).To(Succeed())
			_, err = other.CreateFact(ctx, storage.FactSeed{
				Who: "npc_2", About: "player_2", Intent: graph.IntentNone, Text: "fresh",
			})
			Expect(err).NotTo(HaveOccurred())

			snap, err := other.Export(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(store.Import(ctx, snap)).To(Succeed())

			_, err = store.GetEntity(ctx, "npc_1")
			var notFound storage.NotFoundError
			Expect(err).To(BeAssignableToTypeOf(notFound))
			Expect(store.Count()).To(Equal(1))
		})

		It("rejects a snapshot referencing unknown entities", func() {
			snap := graph.Snapshot{
				SchemaVersion: graph.SnapshotSchemaV1,
				Entities:      []graph.Entity{{ID: "npc_2", Kind: graph.KindNPC}},
				Facts: []graph.Fact{{
					ID: "f1", Who: "npc_2", About: "ghost", Text: "x", Weight: 0.5, CreatedAt: time.Now(),
				}},
			}
			err := store.Import(ctx, snap)
			var validation storage.ValidationError
			Expect(err).To(BeAssignableToTypeOf(validation))
		})

		It("rejects an unsupported schema version", func() {
			err := store.Import(ctx, graph.Snapshot{SchemaVersion: 99})
			var validation storage.ValidationError
			Expect(err).To(BeAssignableToTypeOf(validation))
		})
	})
})
