package main

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/label-gateway/config"
	"github.com/angeloszaimis/label-gateway/internal/endpoint"
	"github.com/angeloszaimis/label-gateway/internal/handler"
	"github.com/angeloszaimis/label-gateway/internal/healthcheck"
	"github.com/angeloszaimis/label-gateway/internal/labeling"
	"github.com/angeloszaimis/label-gateway/internal/metrics"
	"github.com/angeloszaimis/label-gateway/internal/router"
	"github.com/angeloszaimis/label-gateway/internal/store"
	"github.com/angeloszaimis/label-gateway/pkg/logger"
)

var _ = Describe("initializeEndpoints", func() {
	var cfg *config.Config

	BeforeEach(func() {
		cfg = &config.Config{}
	})

	It("should keep the configured order", func() {
		cfg.Endpoints = []string{"http://localhost:8081", "http://localhost:8082", "http://localhost:8083"}

		endpoints, err := initializeEndpoints(cfg, logger.Discard())
		Expect(err).NotTo(HaveOccurred())
		Expect(endpoints).To(HaveLen(3))
		Expect(endpoints[1].String()).To(Equal("http://localhost:8082"))
	})

	It("should fail on an empty list", func() {
		_, err := initializeEndpoints(cfg, logger.Discard())
		Expect(err).To(MatchError(router.ErrNoEndpoints))
	})

	It("should fail on an invalid URL", func() {
		cfg.Endpoints = []string{"http://localhost:8081", "://bad"}

		_, err := initializeEndpoints(cfg, logger.Discard())
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("createStore", func() {
	ctx := context.Background()

	It("should create a file store", func() {
		s, err := createStore(ctx, config.PointerStoreConfig{
			Driver: config.StoreDriverFile,
			Path:   filepath.Join(GinkgoT().TempDir(), "idx.txt"),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(BeAssignableToTypeOf(&store.FileStore{}))
	})

	It("should create a sqlite store", func() {
		s, err := createStore(ctx, config.PointerStoreConfig{
			Driver: config.StoreDriverSQLite,
			Path:   filepath.Join(GinkgoT().TempDir(), "idx.db"),
		})
		Expect(err).NotTo(HaveOccurred())
		defer s.Close()
		Expect(s).To(BeAssignableToTypeOf(&store.SQLiteStore{}))
	})

	It("should create a memory store", func() {
		s, err := createStore(ctx, config.PointerStoreConfig{Driver: config.StoreDriverMemory})
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(BeAssignableToTypeOf(&store.MemoryStore{}))
	})

	It("should reject unknown drivers", func() {
		_, err := createStore(ctx, config.PointerStoreConfig{Driver: "etcd"})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("setupRouter", func() {
	var (
		upstream *httptest.Server
		gateway  *httptest.Server
		client   *http.Client
		assets   config.AssetsConfig
	)

	BeforeEach(func() {
		upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"boxes":[],"phrases":[]}`)
		}))

		endpoints, err := endpoint.ParseAll([]string{upstream.URL})
		Expect(err).NotTo(HaveOccurred())

		rt, err := router.New(context.Background(), endpoints, store.NewMemoryStore(0), logger.Discard())
		Expect(err).NotTo(HaveOccurred())

		collector := metrics.NewCollector(10, logger.Discard())
		fwd := labeling.NewForwarder(logger.Discard(), rt, labeling.NewClient(5*time.Second), "/label-image", nil)
		prober := healthcheck.NewProber("/", time.Second, logger.Discard(), nil)
		gw := handler.NewGatewayHandler(logger.Discard(), fwd, prober, endpoints, 1<<20, nil)

		assets = config.AssetsConfig{
			Root:      config.DefaultRootAsset,
			SAM3:      config.DefaultSAM3Asset,
			Vocab:     config.DefaultVocabAsset,
			VocabText: config.DefaultVocabTextAsset,
		}

		gateway = httptest.NewServer(handler.WithRequestLogging(logger.Discard(), setupRouter(gw, collector, assets)))
		client = &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	})

	AfterEach(func() {
		gateway.Close()
		upstream.Close()
	})

	DescribeTable("asset redirects",
		func(path string, target func() string) {
			resp, err := client.Get(gateway.URL + path)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusFound))
			Expect(resp.Header.Get("Location")).To(Equal(target()))
		},
		Entry("root", "/", func() string { return config.DefaultRootAsset }),
		Entry("model weights", "/sam3.pt", func() string { return config.DefaultSAM3Asset }),
		Entry("legacy download", "/download", func() string { return config.DefaultSAM3Asset }),
		Entry("vocabulary", "/vocab.txt.gz", func() string { return config.DefaultVocabAsset }),
		Entry("legacy vocabulary", "/vocab", func() string { return config.DefaultVocabTextAsset }),
	)

	It("should send /vocab to the uncompressed vocabulary", func() {
		resp, err := client.Get(gateway.URL + "/vocab")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()

		Expect(resp.StatusCode).To(Equal(http.StatusFound))
		Expect(resp.Header.Get("Location")).To(HaveSuffix("bpe_simple_vocab_16e6.txt"))
	})

	It("should not redirect unknown paths", func() {
		resp, err := client.Get(gateway.URL + "/nope")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
	})

	It("should only accept POST on /label-image", func() {
		resp, err := client.Get(gateway.URL + "/label-image")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusMethodNotAllowed))
	})

	It("should forward a labeling request end to end", func() {
		var body bytes.Buffer
		writer := multipart.NewWriter(&body)
		part, err := writer.CreateFormFile("image", "cat.jpg")
		Expect(err).NotTo(HaveOccurred())
		part.Write([]byte("\xff\xd8\xff\xe0fake-jpeg"))
		writer.WriteField("text_prompt", "cat")
		Expect(writer.Close()).To(Succeed())

		resp, err := client.Post(gateway.URL+"/label-image", writer.FormDataContentType(), &body)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()

		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(resp.Header.Get("X-Request-ID")).NotTo(BeEmpty())
		payload, _ := io.ReadAll(resp.Body)
		Expect(payload).To(MatchJSON(`{"boxes":[],"phrases":[]}`))
	})

	It("should serve health, metrics and stats", func() {
		for _, path := range []string{"/health", "/metrics", "/stats"} {
			resp, err := client.Get(gateway.URL + path)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK), path)
		}
	})
})
