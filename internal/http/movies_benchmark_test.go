package httpserver

import (
	"fmt"
	"net/http"
	"testing"
)

func BenchmarkHandleRateMovie(b *testing.B) {
	ts := buildTestServer(b)
	ts.seedMovie(b, 1, "Benchmark Movie", "Action")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec := ts.do(b, http.MethodPost, apiPath("/movies/1/rate/"), `{"rating":4.0}`, i+1)
		if rec.Code != http.StatusCreated {
			b.Fatalf("unexpected status %d", rec.Code)
		}
	}
}

func BenchmarkHandleListMovies(b *testing.B) {
	ts := buildTestServer(b)
	for i := 1; i <= 200; i++ {
		ts.seedMovie(b, i, fmt.Sprintf("Benchmark Movie %03d", i), "Action|Drama")
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec := ts.do(b, http.MethodGet, apiPath("/movies/?genre=drama&page=3"), "", 0)
		if rec.Code != http.StatusOK {
			b.Fatalf("unexpected status %d", rec.Code)
		}
	}
}
