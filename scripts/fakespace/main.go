// Fakespace is a stand-in labeling endpoint for running the gateway locally.
// It accepts the same multipart form as a real Grounding DINO space and
// answers with a deterministic box for every phrase in the prompt.
//
// Usage:
//
//	go run ./scripts/fakespace -port 7861
//	go run ./scripts/fakespace -port 7862 -delay 300ms -fail-every 5
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type labelResponse struct {
	RequestID string      `json:"request_id"`
	Space     string      `json:"space"`
	Boxes     [][]float64 `json:"boxes"`
	Scores    []float64   `json:"scores"`
	Phrases   []string    `json:"phrases"`
}

func main() {
	port := flag.Int("port", 7861, "port to listen on")
	delay := flag.Duration("delay", 0, "artificial latency added to every labeling request")
	failEvery := flag.Int("fail-every", 0, "answer every Nth labeling request with 503 (0 disables)")
	flag.Parse()

	name := fmt.Sprintf("fakespace-%d", *port)
	var served atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("POST /label-image", func(w http.ResponseWriter, r *http.Request) {
		n := served.Add(1)

		if err := r.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, "invalid multipart form", http.StatusBadRequest)
			return
		}

		file, header, err := r.FormFile("image")
		if err != nil {
			http.Error(w, "missing image", http.StatusBadRequest)
			return
		}
		size, _ := io.Copy(io.Discard, file)
		file.Close()

		prompt := r.FormValue("text_prompt")
		log.Printf("label: n=%d file=%s type=%s bytes=%d prompt=%q box=%s text=%s",
			n, header.Filename, header.Header.Get("Content-Type"), size, prompt,
			r.FormValue("box_threshold"), r.FormValue("text_threshold"))

		if *delay > 0 {
			time.Sleep(*delay)
		}

		if *failEvery > 0 && n%int64(*failEvery) == 0 {
			http.Error(w, "space is sleeping", http.StatusServiceUnavailable)
			return
		}

		resp := labelResponse{RequestID: uuid.NewString(), Space: name}
		for i, phrase := range strings.Split(prompt, ".") {
			phrase = strings.TrimSpace(phrase)
			if phrase == "" {
				continue
			}
			offset := float64(i) * 0.1
			resp.Boxes = append(resp.Boxes, []float64{0.1 + offset, 0.1 + offset, 0.5 + offset, 0.5 + offset})
			resp.Scores = append(resp.Scores, 0.9-offset/2)
			resp.Phrases = append(resp.Phrases, phrase)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})

	// the gateway warm-up sweep only needs an answer
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(name))
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("starting %s on %s", name, addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
