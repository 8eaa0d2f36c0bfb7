package sqlite_test

import (
	"context"
	"path/filepath"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/memorygraphco/memorygraph/pkg/graph"
	"github.com/memorygraphco/memorygraph/pkg/storage"
	"github.com/memorygraphco/memorygraph/pkg/storage/sqlite"
)

var _ = Describe("Driver", func() {
	var (
		ctx   context.Context
		store *sqlite.Driver
	)

	BeforeEach(func() {
		ctx = context.Background()

		dbPath := filepath.Join(GinkgoT().TempDir(), "memorygraph.db")
		var err error
		store, err = sqlite.NewDriver(dbPath)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			Expect(store.Close()).To(Succeed())
		})

		Expect(store.PutEntity(ctx, graph.Entity{ID: "npc_1", Kind: graph.KindNPC})).To(Succeed())
		Expect(store.PutEntity(ctx, graph.Entity{ID: "player_1", Kind: graph.KindPlayer})).To(Succeed())
	})

	It("round-trips a fact with tags and metadata", func() {
		seed := 0.7
		fact, err := store.CreateFact(ctx, storage.FactSeed{
			Who:        "npc_1",
			About:      "player_1",
			Scene:      "inn",
			Type:       "observation",
			Intent:     graph.IntentConfess,
			Text:       "admitted to the theft",
			Tags:       []string{"theft", "inn"},
			WeightSeed: &seed,
		})
		Expect(err).NotTo(HaveOccurred())

		got, err := store.GetFact(ctx, fact.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Who).To(Equal("npc_1"))
		Expect(got.About).To(Equal("player_1"))
		Expect(got.Scene).To(Equal("inn"))
		Expect(got.Intent).To(Equal(graph.IntentConfess))
		Expect(got.Text).To(Equal("admitted to the theft"))
		Expect(got.Tags).To(Equal([]string{"theft", "inn"}))
		Expect(got.Weight).To(BeNumerically("~", 0.7, 1e-9))
		Expect(got.Pinned).To(BeFalse())
	})

	It("conflicts when re-registering an entity with a different kind", func() {
		err := store.PutEntity(ctx, graph.Entity{ID: "npc_1", Kind: graph.KindPlayer})
		var conflict storage.ConflictError
		Expect(err).To(BeAssignableToTypeOf(conflict))
	})

	It("filters queries by scene and intent", func() {
		for _, seed := range []storage.FactSeed{
			{Who: "npc_1", About: "player_1", Scene: "inn", Intent: graph.IntentConfess, Text: "one"},
			{Who: "npc_1", About: "player_1", Scene: "forge", Intent: graph.IntentThreaten, Text: "two"},
			{Who: "npc_1", About: "player_1", Scene: "inn", Intent: graph.IntentNone, Text: "three"},
		} {
			_, err := store.CreateFact(ctx, seed)
			Expect(err).NotTo(HaveOccurred())
		}

		facts, err := store.QueryFacts(ctx, storage.FactFilter{Who: "npc_1", About: "player_1", Scene: "inn"})
		Expect(err).NotTo(HaveOccurred())
		Expect(facts).To(HaveLen(2))

		facts, err = store.QueryFacts(ctx, storage.FactFilter{Who: "npc_1", About: "player_1", Intent: graph.IntentThreaten})
		Expect(err).NotTo(HaveOccurred())
		Expect(facts).To(HaveLen(1))
		Expect(facts[0].Text).To(Equal("two"))
	})

	It("clamps weights inside the update statement", func() {
		fact, err := store.CreateFact(ctx, storage.FactSeed{
			Who: "npc_1", About: "player_1", Intent: graph.IntentNone, Text: "observation",
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(store.SetWeight(ctx, fact.ID, 3.0)).To(Succeed())
		got, err := store.GetFact(ctx, fact.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Weight).To(Equal(1.0))

		Expect(store.SetWeight(ctx, fact.ID, -1.0)).To(Succeed())
		got, err = store.GetFact(ctx, fact.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Weight).To(Equal(0.0))
	})

	It("updates the weight through a single transaction", func() {
		fact, err := store.CreateFact(ctx, storage.FactSeed{
			Who: "npc_1", About: "player_1", Intent: graph.IntentNone, Text: "observation",
		})
		Expect(err).NotTo(HaveOccurred())

		old, updated, err := store.UpdateWeight(ctx, fact.ID, func(w float64) float64 { return w + 0.1*(1-w) })
		Expect(err).NotTo(HaveOccurred())
		Expect(old).To(BeNumerically("~", 0.5, 1e-9))
		Expect(updated).To(BeNumerically("~", 0.55, 1e-9))

		got, err := store.GetFact(ctx, fact.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Weight).To(BeNumerically("~", 0.55, 1e-9))

		_, _, err = store.UpdateWeight(ctx, "missing", func(w float64) float64 { return w })
		var notFound storage.NotFoundError
		Expect(err).To(BeAssignableToTypeOf(notFound))
	})

	It("keeps concurrent weight updates serialized", func() {
		fact, err := store.CreateFact(ctx, storage.FactSeed{
			Who: "npc_1", About: "player_1", Intent: graph.IntentNone, Text: "observation",
		})
		Expect(err).NotTo(HaveOccurred())

		const goroutines = 8
		start := make(chan struct{})
		var wg sync.WaitGroup
		errs := make([]error, goroutines)
		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				_, _, errs[i] = store.UpdateWeight(ctx, fact.ID, func(w float64) float64 { return w + 0.05 })
			}(i)
		}
		close(start)
		wg.Wait()

		for _, err := range errs {
			Expect(err).NotTo(HaveOccurred())
		}

		got, err := store.GetFact(ctx, fact.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Weight).To(BeNumerically("~", 0.5+0.05*goroutines, 1e-9))
	})

	It("returns not found for updates against unknown facts", func() {
		var notFound storage.NotFoundError
		Expect(store.SetPinned(ctx, "missing", true)).To(BeAssignableToTypeOf(notFound))
		Expect(store.SetWeight(ctx, "missing", 0.5)).To(BeAssignableToTypeOf(notFound))
	})

	It("replaces all state on import", func() {
		_, err := store.CreateFact(ctx, storage.FactSeed{
			Who: "npc_1", About: "player_1", Intent: graph.IntentNone, Text: "stale",
		})
		Expect(err).NotTo(HaveOccurred())

		otherPath := filepath.Join(GinkgoT().TempDir(), "other.db")
		other, err := sqlite.NewDriver(otherPath)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			Expect(other.Close()).To(Succeed())
		})

		Expect(other.PutEntity(ctx, graph.Entity{ID: "npc_2", Kind: graph.KindNPC})).To(Succeed())
		Expect(other.PutEntity(ctx, graph.Entity{ID: "player_2", Kind: graph.KindPlayer})).To(Succeed())
		fresh, err := other.CreateFact(ctx, storage.FactSeed{
			Who: "npc_2", About: "player_2", Intent: graph.IntentGiftHelp, Text: "fresh",
		})
		Expect(err).NotTo(HaveOccurred())

		snap, err := other.Export(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(store.Import(ctx, snap)).To(Succeed())

		_, err = store.GetEntity(ctx, "npc_1")
		var notFound storage.NotFoundError
		Expect(err).To(BeAssignableToTypeOf(notFound))

		got, err := store.GetFact(ctx, fresh.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Text).To(Equal("fresh"))
	})

	It("survives reopening the database file", func() {
		fact, err := store.CreateFact(ctx, storage.FactSeed{
			Who: "npc_1", About: "player_1", Intent: graph.IntentNone, Text: "durable",
		})
		Expect(err).NotTo(HaveOccurred())

		dbPath := filepath.Join(GinkgoT().TempDir(), "reopen.db")
		first, err := sqlite.NewDriver(dbPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(first.PutEntity(ctx, graph.Entity{ID: "npc_1", Kind: graph.KindNPC})).To(Succeed())
		Expect(first.PutEntity(ctx, graph.Entity{ID: "player_1", Kind: graph.KindPlayer})).To(Succeed())
		durable, err := first.CreateFact(ctx, storage.FactSeed{
			Who: "npc_1", About: "player_1", Intent: graph.IntentNone, Text: fact.Text,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(first.Close()).To(Succeed())

		second, err := sqlite.NewDriver(dbPath)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			Expect(second.Close()).To(Succeed())
		})

		got, err := second.GetFact(ctx, durable.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Text).To(Equal("durable"))
	})
})
