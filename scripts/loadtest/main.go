// Loadtest sends concurrent labeling requests through the gateway and reports
// throughput, latency percentiles and how requests spread across endpoints.
//
// Usage:
//
//	go run ./scripts/loadtest -url http://localhost:8080/label-image -image cat.jpg -requests 300
//	go run ./scripts/loadtest -concurrency 20 -requests 1000 -out summary.json
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// placeholderJPEG is used when no -image is given; the gateway only relays it.
var placeholderJPEG = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0xff, 0xd9}

type endpointStats struct {
	Count     int             `json:"count"`
	Success   int             `json:"success"`
	Failure   int             `json:"failure"`
	Latencies []time.Duration `json:"-"`
}

type summary struct {
	Target        string                    `json:"target"`
	Requests      int                       `json:"requests"`
	Concurrency   int                       `json:"concurrency"`
	Success       int64                     `json:"success"`
	Failure       int64                     `json:"failure"`
	DurationMS    int64                     `json:"duration_ms"`
	ThroughputRPS float64                   `json:"throughput_rps"`
	StatusCodes   map[int]int               `json:"status_codes"`
	Endpoints     map[string]*endpointStats `json:"endpoints"`
	P50MS         float64                   `json:"p50_ms"`
	P95MS         float64                   `json:"p95_ms"`
	P99MS         float64                   `json:"p99_ms"`
}

func main() {
	var (
		url         = flag.String("url", "http://localhost:8080/label-image", "Gateway labeling URL")
		imagePath   = flag.String("image", "", "Image file to upload (defaults to a tiny placeholder)")
		prompt      = flag.String("prompt", "cat . dog", "text_prompt form value")
		concurrency = flag.Int("concurrency", 10, "Number of concurrent workers")
		requests    = flag.Int("requests", 100, "Total number of requests to send")
		timeout     = flag.Duration("timeout", 2*time.Minute, "Per-request timeout")
		outJSON     = flag.String("out", "", "Write JSON summary to this file (optional)")
		verbose     = flag.Bool("v", false, "Verbose per-request logging")
	)
	flag.Parse()

	image := placeholderJPEG
	if *imagePath != "" {
		data, err := os.ReadFile(*imagePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read image: %v\n", err)
			os.Exit(1)
		}
		image = data
	}

	client := &http.Client{Timeout: *timeout}

	var (
		success, failure atomic.Int64
		mu               sync.Mutex
		all              []time.Duration
		wg               sync.WaitGroup
	)
	stats := map[string]*endpointStats{}
	statusCodes := map[int]int{}

	jobs := make(chan int)
	start := time.Now()

	for w := 0; w < *concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for idx := range jobs {
				body, contentType, err := buildForm(image, *prompt)
				if err != nil {
					failure.Add(1)
					continue
				}

				began := time.Now()
				resp, err := client.Post(*url, contentType, body)
				dur := time.Since(began)
				if err != nil {
					failure.Add(1)
					if *verbose {
						fmt.Printf("[%d] idx=%d error=%v\n", worker, idx, err)
					}
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()

				ok := resp.StatusCode >= 200 && resp.StatusCode <= 299
				if ok {
					success.Add(1)
				} else {
					failure.Add(1)
				}

				endpoint := resp.Header.Get("X-Backend-Server")
				if endpoint == "" {
					endpoint = "(none)"
				}

				mu.Lock()
				all = append(all, dur)
				statusCodes[resp.StatusCode]++
				es, found := stats[endpoint]
				if !found {
					es = &endpointStats{}
					stats[endpoint] = es
				}
				es.Count++
				if ok {
					es.Success++
				} else {
					es.Failure++
				}
				es.Latencies = append(es.Latencies, dur)
				mu.Unlock()

				if *verbose {
					fmt.Printf("[%d] idx=%d endpoint=%s status=%d dur=%v\n", worker, idx, endpoint, resp.StatusCode, dur)
				}
			}
		}(w)
	}

	go func() {
		for i := 0; i < *requests; i++ {
			jobs <- i
		}
		close(jobs)
	}()

	wg.Wait()
	elapsed := time.Since(start)

	report := summary{
		Target:        *url,
		Requests:      *requests,
		Concurrency:   *concurrency,
		Success:       success.Load(),
		Failure:       failure.Load(),
		DurationMS:    elapsed.Milliseconds(),
		ThroughputRPS: float64(*requests) / elapsed.Seconds(),
		StatusCodes:   statusCodes,
		Endpoints:     stats,
		P50MS:         percentileMS(all, 0.50),
		P95MS:         percentileMS(all, 0.95),
		P99MS:         percentileMS(all, 0.99),
	}

	fmt.Println("--- Label Gateway Load Test ---")
	fmt.Printf("Target: %s\n", report.Target)
	fmt.Printf("Requests: %d  Concurrency: %d\n", report.Requests, report.Concurrency)
	fmt.Printf("Success: %d  Failure: %d\n", report.Success, report.Failure)
	fmt.Printf("Duration: %v  Throughput: %.2f req/s\n", elapsed, report.ThroughputRPS)
	fmt.Printf("Latency: p50=%.1fms p95=%.1fms p99=%.1fms\n", report.P50MS, report.P95MS, report.P99MS)

	fmt.Println("\nEndpoint distribution:")
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		es := stats[name]
		fmt.Printf("  %s -> total=%d success=%d failure=%d p50=%.1fms p99=%.1fms\n",
			name, es.Count, es.Success, es.Failure,
			percentileMS(es.Latencies, 0.50), percentileMS(es.Latencies, 0.99))
	}

	if *outJSON != "" {
		f, err := os.Create(*outJSON)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create json file: %v\n", err)
			os.Exit(1)
		}
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		enc.Encode(report)
		f.Close()
		fmt.Printf("\nWrote JSON summary to %s\n", *outJSON)
	}

	if report.Failure > 0 {
		os.Exit(2)
	}
}

func buildForm(image []byte, prompt string) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("image", "loadtest.jpg")
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", err
	}
	if err := writer.WriteField("text_prompt", prompt); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return &buf, writer.FormDataContentType(), nil
}

func percentileMS(samples []time.Duration, pct float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return float64(sorted[int(float64(len(sorted)-1)*pct)].Microseconds()) / 1000
}
