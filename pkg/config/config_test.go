package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/memorygraphco/memorygraph/pkg/config"
)

var _ = Describe("Load", func() {
	It("returns defaults for an empty path", func() {
		cfg, err := config.Load("")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.API.Listen).To(Equal(":8000"))
		Expect(cfg.Retrieval.TopK).To(Equal(5))
	})

	It("returns defaults for a missing file", func() {
		cfg, err := config.Load(filepath.Join(GinkgoT().TempDir(), "missing.toml"))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.API.Listen).To(Equal(":8000"))
	})

	It("merges file values over defaults", func() {
		path := filepath.Join(GinkgoT().TempDir(), config.ConfigFile)
		content := `
[api]
listen = ":9000"

[storage]
sqlite_path = "graph.db"
`
		Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())

		cfg, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.API.Listen).To(Equal(":9000"))
		Expect(cfg.Storage.SQLitePath).To(Equal("graph.db"))
		Expect(cfg.Retrieval.TopK).To(Equal(5))
	})
})

var _ = Describe("ParseTOML", func() {
	It("rejects an unsupported version", func() {
		_, err := config.ParseTOML([]byte("version = 99"))
		Expect(err).To(HaveOccurred())
	})

	It("rejects malformed TOML", func() {
		_, err := config.ParseTOML([]byte("[[["))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Save", func() {
	It("round-trips through disk", func() {
		path := filepath.Join(GinkgoT().TempDir(), config.ConfigFile)

		cfg := config.NewDefaultConfig()
		cfg.API.Listen = ":7777"
		cfg.Events.Brokers = []string{"localhost:9092"}
		Expect(config.Save(path, cfg)).To(Succeed())

		loaded, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.API.Listen).To(Equal(":7777"))
		Expect(loaded.Events.Brokers).To(Equal([]string{"localhost:9092"}))
	})

	It("refuses a nil config", func() {
		Expect(config.Save("x.toml", nil)).NotTo(Succeed())
	})
})

var _ = Describe("ScoringParams", func() {
	It("uses engine defaults for zero values", func() {
		cfg := &config.Config{}
		params := cfg.ScoringParams()
		Expect(params.HalfLife).To(Equal(7 * 24 * time.Hour))
		Expect(params.IntentBonus).To(Equal(0.5))
	})

	It("applies configured overrides", func() {
		cfg := config.NewDefaultConfig()
		cfg.Scoring.HalfLifeHours = 48
		cfg.Scoring.IntentBonus = 0.25

		params := cfg.ScoringParams()
		Expect(params.HalfLife).To(Equal(48 * time.Hour))
		Expect(params.IntentBonus).To(Equal(0.25))
	})
})

var _ = Describe("Viper integration", func() {
	It("resolves defaults when no file exists", func() {
		v, err := config.InitViper(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())

		cfg, err := config.FromViper(v)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.API.Listen).To(Equal(":8000"))
	})

	It("reads config.toml from the config dir", func() {
		dir := GinkgoT().TempDir()
		content := `
[retrieval]
top_k = 9
`
		Expect(os.WriteFile(filepath.Join(dir, config.ConfigFile), []byte(content), 0o600)).To(Succeed())

		v, err := config.InitViper(dir)
		Expect(err).NotTo(HaveOccurred())

		cfg, err := config.FromViper(v)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Retrieval.TopK).To(Equal(9))
	})

	It("lets environment variables override the file", func() {
		GinkgoT().Setenv("MEMORYGRAPH_API_LISTEN", ":6060")

		v, err := config.InitViper(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())

		Expect(v.GetString("api.listen")).To(Equal(":6060"))
	})
})
