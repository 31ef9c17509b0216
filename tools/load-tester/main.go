package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

type floorPlan struct {
	ID             uuid.UUID `json:"id"`
	LastModifiedAt time.Time `json:"last_modified_at"`
	Rooms          []struct {
		ID uuid.UUID `json:"id"`
	} `json:"rooms"`
}

type counters struct {
	success, conflict, errors atomic.Int64
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Base URL of the API server")
	token := flag.String("token", "", "Bearer access token")
	floorPlanID := flag.String("floor-plan", "", "Floor plan to target")
	mode := flag.String("mode", "read", "Workload: read, status or edit")
	concurrency := flag.Int("c", 10, "Number of concurrent workers")
	duration := flag.Duration("d", 30*time.Second, "Duration of the load test")
	rps := flag.Int("rps", 200, "Requests per second limit")
	flag.Parse()

	if _, err := uuid.Parse(*floorPlanID); err != nil {
		log.Fatalf("-floor-plan must be a UUID: %v", err)
	}

	log.Printf("Starting %s load test on %s", *mode, *baseURL)
	log.Printf("Concurrency: %d, Duration: %s, RPS: %d", *concurrency, *duration, *rps)

	var wg sync.WaitGroup
	var c counters
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(*rps), 50) // Allow bursts up to 50

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			client := &http.Client{
				Timeout: 5 * time.Second,
			}

			for {
				if err := limiter.Wait(ctx); err != nil {
					return
				}

				var status int
				var err error
				switch *mode {
				case "status":
					status, err = do(ctx, client, *token, http.MethodGet, *baseURL+"/api/v1/floorplans/"+*floorPlanID+"/status", nil, nil)
				case "edit":
					status, err = edit(ctx, client, *baseURL, *token, *floorPlanID, workerID)
				default:
					status, err = do(ctx, client, *token, http.MethodGet, *baseURL+"/api/v1/floorplans/"+*floorPlanID, nil, nil)
				}

				switch {
				case err != nil:
					if ctx.Err() != nil {
						return
					}
					c.errors.Add(1)
				case status == http.StatusOK:
					c.success.Add(1)
				case status == http.StatusConflict:
					c.conflict.Add(1)
				default:
					c.errors.Add(1)
				}
			}
		}(i)
	}

	wg.Wait()

	totalRequests := c.success.Load() + c.conflict.Load() + c.errors.Load()
	actualRPS := float64(totalRequests) / duration.Seconds()

	log.Println("Load test finished.")
	log.Printf("Total Requests: %d", totalRequests)
	log.Printf("Successful (200 OK): %d", c.success.Load())
	log.Printf("Conflicts (409): %d", c.conflict.Load())
	log.Printf("Errors: %d", c.errors.Load())
	log.Printf("Actual RPS: %.2f", actualRPS)
}

// edit reads the plan and renames its first room, sending the timestamp it just
// observed. Concurrent workers race on the same plan, so some edits go stale.
func edit(ctx context.Context, client *http.Client, baseURL, token, floorPlanID string, workerID int) (int, error) {
	var fp floorPlan
	status, err := do(ctx, client, token, http.MethodGet, baseURL+"/api/v1/floorplans/"+floorPlanID, nil, &fp)
	if err != nil || status != http.StatusOK {
		return status, err
	}
	if len(fp.Rooms) == 0 {
		return 0, fmt.Errorf("floor plan %s has no rooms to edit", floorPlanID)
	}

	payload := map[string]any{
		"floor_plan_id":           fp.ID,
		"client_last_modified_at": fp.LastModifiedAt,
		"room_updates": []map[string]any{{
			"room_id": fp.Rooms[0].ID,
			"name":    fmt.Sprintf("load-test worker %d", workerID),
		}},
	}
	return do(ctx, client, token, http.MethodPost, baseURL+"/api/v1/floorplans/update", payload, nil)
}

func do(ctx context.Context, client *http.Client, token, method, url string, body, dest any) (int, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if dest != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return resp.StatusCode, err
		}
		return resp.StatusCode, nil
	}
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
