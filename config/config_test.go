package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/label-gateway/config"
)

var _ = Describe("Config", func() {
	var (
		tempDir     string
		originalDir string
	)

	BeforeEach(func() {
		var err error
		originalDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		tempDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())

		Expect(os.Chdir(tempDir)).To(Succeed())
	})

	AfterEach(func() {
		Expect(os.Chdir(originalDir)).To(Succeed())
		os.RemoveAll(tempDir)
		os.Unsetenv("ENDPOINTS")
		os.Unsetenv("POINTER_STORE_DRIVER")
		os.Unsetenv("UPSTREAM_PATH")
	})

	Describe("Load", func() {
		Context("with valid config file", func() {
			BeforeEach(func() {
				configContent := `
server:
  address: ":9090"
  environment: "prod"

endpoints:
  - "http://localhost:8081"
  - "https://space.example.com"

upstream:
  path: "/predict"

warmup:
  timeout: "2s"
  interval: "30s"

pointer_store:
  driver: "sqlite"
  path: "/var/lib/gateway/pointer.db"

logging:
  level: "debug"
`
				configPath := filepath.Join(tempDir, "config.yaml")
				Expect(os.WriteFile(configPath, []byte(configContent), 0644)).To(Succeed())
			})

			It("should load configuration successfully", func() {
				cfg, err := config.Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg).NotTo(BeNil())
			})

			It("should keep endpoints in configured order", func() {
				cfg, _ := config.Load()
				Expect(cfg.Endpoints).To(Equal([]string{"http://localhost:8081", "https://space.example.com"}))
			})

			It("should parse upstream and warm-up settings", func() {
				cfg, _ := config.Load()
				Expect(cfg.Upstream.Path).To(Equal("/predict"))
				Expect(cfg.WarmUp.Timeout).To(Equal("2s"))
				Expect(cfg.WarmUp.Path).To(Equal("/"))

				d := cfg.Durations()
				Expect(d.WarmUpInterval.Seconds()).To(Equal(30.0))
				Expect(d.UpstreamTimeout).To(BeZero())
			})

			It("should keep an explicit store path", func() {
				cfg, _ := config.Load()
				Expect(cfg.PointerStore.Driver).To(Equal(config.StoreDriverSQLite))
				Expect(cfg.PointerStore.Path).To(Equal("/var/lib/gateway/pointer.db"))
			})

			It("should let the environment override file values", func() {
				os.Setenv("UPSTREAM_PATH", "/run/predict")
				cfg, err := config.Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Upstream.Path).To(Equal("/run/predict"))
			})
		})

		Context("with environment variables only", func() {
			It("should fail without endpoints", func() {
				_, err := config.Load()
				Expect(err).To(HaveOccurred())
			})

			It("should use defaults when config file missing", func() {
				os.Setenv("ENDPOINTS", "http://a.example.com, http://b.example.com")

				cfg, err := config.Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Endpoints).To(Equal([]string{"http://a.example.com", "http://b.example.com"}))
				Expect(cfg.Server.Address).To(Equal(":8080"))
				Expect(cfg.Upstream.Path).To(Equal("/label-image"))
				Expect(cfg.WarmUp.Timeout).To(Equal("5s"))
				Expect(cfg.Assets.SAM3).To(Equal(config.DefaultSAM3Asset))
				Expect(cfg.Assets.VocabText).To(Equal(config.DefaultVocabTextAsset))
				Expect(cfg.PointerStore.Driver).To(Equal(config.StoreDriverFile))
				Expect(cfg.PointerStore.Path).To(Equal(filepath.Join(os.TempDir(), "label-gateway-url-index.txt")))
			})

			It("should leave the memory store without a path", func() {
				os.Setenv("ENDPOINTS", "http://a.example.com")
				os.Setenv("POINTER_STORE_DRIVER", "memory")

				cfg, err := config.Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.PointerStore.Path).To(BeEmpty())
			})
		})
	})

	Describe("Validate", func() {
		var cfg *config.Config

		BeforeEach(func() {
			cfg = &config.Config{
				Server: config.ServerConfig{
					Address:        ":8080",
					Environment:    config.EnvDev,
					ReadTimeout:    "15s",
					WriteTimeout:   "120s",
					MaxUploadBytes: 1024,
				},
				Endpoints:    []string{"http://localhost:8081"},
				Upstream:     config.UpstreamConfig{Path: "/label-image", Timeout: "0s"},
				WarmUp:       config.WarmUpConfig{Path: "/", Timeout: "5s", Interval: "0s"},
				PointerStore: config.PointerStoreConfig{Driver: config.StoreDriverMemory},
				Assets: config.AssetsConfig{
					Root:      config.DefaultRootAsset,
					SAM3:      config.DefaultSAM3Asset,
					Vocab:     config.DefaultVocabAsset,
					VocabText: config.DefaultVocabTextAsset,
				},
				Logging: config.LoggingConfig{Level: config.LogLevelInfo},
			}
		})

		It("should accept a complete config", func() {
			Expect(cfg.Validate()).To(Succeed())
		})

		It("should reject an empty endpoint list", func() {
			cfg.Endpoints = nil
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should reject non-http endpoints", func() {
			cfg.Endpoints = []string{"ftp://localhost:21"}
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should reject an unknown store driver", func() {
			cfg.PointerStore.Driver = "redis"
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should require a path for the file store", func() {
			cfg.PointerStore.Driver = config.StoreDriverFile
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should reject a zero warm-up timeout", func() {
			cfg.WarmUp.Timeout = "0s"
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should reject an upstream path without a leading slash", func() {
			cfg.Upstream.Path = "label-image"
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should reject a bad listen address", func() {
			cfg.Server.Address = "localhost"
			Expect(cfg.Validate()).NotTo(Succeed())
		})
	})
})
