package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/aniladanir/retry/v2"
)

func main() {
	p, err := retry.NewPolicy(
		retry.WithName("google"),
		retry.WithBackoff(retry.Exponential),
		retry.WithBaseDelay(time.Millisecond*500),
		retry.WithMaxDelay(time.Second*30),
		retry.WithMaxRetryAttempts(10),
		retry.WithJitter(true),
		retry.WithLogger(func(msg string) { log.Println(msg) }),
	)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	status, err := retry.Execute(ctx, func(ctx context.Context) (int, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://www.google.com", nil)
		if err != nil {
			return 0, retry.NonRetryable(err)
		}

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return 0, err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode >= http.StatusInternalServerError {
			return 0, fmt.Errorf("server error: %s", resp.Status)
		}
		return resp.StatusCode, nil
	}, p)
	if err != nil {
		log.Fatalf("request has failed: %v", err)
	}

	log.Printf("request is successful: %d", status)
}
