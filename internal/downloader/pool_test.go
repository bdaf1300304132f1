package downloader

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	errs "notefetch/pkg/errors"
	"notefetch/pkg/logger"
)

func collect(pool *WorkerPool) (*[]Outcome, *sync.WaitGroup) {
	var results []Outcome
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for result := range pool.Results() {
			results = append(results, result)
		}
	}()
	return &results, &wg
}

func TestWorkerPoolBasicFunctionality(t *testing.T) {
	mockClient := &MockClient{downloadDelay: 5 * time.Millisecond}
	mockStore := NewMockStore()
	persister := NewPersister(mockClient, mockStore, logger.NewNopLogger())

	pool := NewWorkerPool(context.Background(), 3, persister, session, logger.NewNopLogger())
	pool.Start()
	results, wg := collect(pool)

	numJobs := 10
	for i := 0; i < numJobs; i++ {
		err := pool.Submit(Job{Resource: image(fmt.Sprintf("g%d", i)), NotebookName: "nb"})
		if err != nil {
			t.Errorf("Failed to submit job %d: %v", i, err)
		}
	}

	pool.Stop()
	wg.Wait()

	if len(*results) != numJobs {
		t.Errorf("Expected %d results, got %d", numJobs, len(*results))
	}
	for _, result := range *results {
		if result.Status != StatusWritten {
			t.Errorf("Expected %s to be written, got %s (%v)", result.Resource.GUID, result.Status, result.Err)
		}
	}
	if mockClient.GetDownloadCount() != numJobs {
		t.Errorf("Expected %d download calls, got %d", numJobs, mockClient.GetDownloadCount())
	}
	if mockStore.GetSavedCount() != numJobs {
		t.Errorf("Expected %d saved resources, got %d", numJobs, mockStore.GetSavedCount())
	}
}

func TestWorkerPoolSingleWorkerKeepsOrder(t *testing.T) {
	mockClient := &MockClient{}
	persister := NewPersister(mockClient, NewMockStore(), logger.NewNopLogger())

	pool := NewWorkerPool(context.Background(), 1, persister, session, nil)
	pool.Start()
	results, wg := collect(pool)

	var want []string
	for i := 0; i < 20; i++ {
		guid := fmt.Sprintf("g%02d", i)
		want = append(want, guid)
		if err := pool.Submit(Job{Resource: image(guid)}); err != nil {
			t.Fatalf("Failed to submit job: %v", err)
		}
	}

	pool.Stop()
	wg.Wait()

	if len(*results) != len(want) {
		t.Fatalf("Expected %d results, got %d", len(want), len(*results))
	}
	for i, result := range *results {
		if result.Resource.GUID != want[i] {
			t.Errorf("Result %d: expected %s, got %s", i, want[i], result.Resource.GUID)
		}
	}
}

func TestWorkerPoolWithErrors(t *testing.T) {
	mockClient := &MockClient{failGUIDs: map[string]error{
		"g1": errs.New(errs.KindRemoteNotFound, 404, "not found"),
		"g3": errs.New(errs.KindRemoteAuth, 401, "token expired"),
	}}
	persister := NewPersister(mockClient, NewMockStore(), logger.NewNopLogger())

	pool := NewWorkerPool(context.Background(), 2, persister, session, logger.NewNopLogger())
	pool.Start()
	results, wg := collect(pool)

	for i := 0; i < 5; i++ {
		if err := pool.Submit(Job{Resource: image(fmt.Sprintf("g%d", i))}); err != nil {
			t.Errorf("Failed to submit job %d: %v", i, err)
		}
	}

	pool.Stop()
	wg.Wait()

	failed, written := 0, 0
	for _, result := range *results {
		switch result.Status {
		case StatusFailed:
			failed++
			if result.Err == nil {
				t.Error("Expected error in failed outcome")
			}
		case StatusWritten:
			written++
		}
	}
	if failed != 2 || written != 3 {
		t.Errorf("Expected 2 failed and 3 written, got %d and %d", failed, written)
	}
}

func TestWorkerPoolConcurrency(t *testing.T) {
	mockClient := &MockClient{downloadDelay: 100 * time.Millisecond}
	persister := NewPersister(mockClient, NewMockStore(), logger.NewNopLogger())

	pool := NewWorkerPool(context.Background(), 5, persister, session, logger.NewNopLogger())
	pool.Start()
	results, wg := collect(pool)

	numJobs := 10
	startTime := time.Now()
	for i := 0; i < numJobs; i++ {
		if err := pool.Submit(Job{Resource: image(fmt.Sprintf("g%d", i))}); err != nil {
			t.Errorf("Failed to submit job %d: %v", i, err)
		}
	}

	pool.Stop()
	wg.Wait()
	elapsed := time.Since(startTime)

	// 10 jobs of 100ms over 5 workers is about 200ms
	expectedTime := 600 * time.Millisecond
	if elapsed > expectedTime {
		t.Errorf("Downloads took too long: %v (expected < %v)", elapsed, expectedTime)
	}
	if len(*results) != numJobs {
		t.Errorf("Expected %d results, got %d", numJobs, len(*results))
	}
}

func TestWorkerPoolWorkerBounds(t *testing.T) {
	persister := NewPersister(&MockClient{}, NewMockStore(), logger.NewNopLogger())

	if n := NewWorkerPool(context.Background(), 0, persister, session, nil).NumWorkers(); n != 1 {
		t.Errorf("Expected 0 workers to become 1, got %d", n)
	}
	if n := NewWorkerPool(context.Background(), 50, persister, session, nil).NumWorkers(); n != MaxWorkers {
		t.Errorf("Expected 50 workers to be capped at %d, got %d", MaxWorkers, n)
	}
}

func TestWorkerPoolCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	mockClient := &MockClient{downloadDelay: time.Second}
	persister := NewPersister(mockClient, NewMockStore(), logger.NewNopLogger())

	pool := NewWorkerPool(ctx, 1, persister, session, logger.NewNopLogger())
	pool.Start()
	results, wg := collect(pool)

	if err := pool.Submit(Job{Resource: image("g0")}); err != nil {
		t.Fatalf("Failed to submit job: %v", err)
	}
	cancel()

	if err := pool.Submit(Job{Resource: image("g1")}); err == nil {
		// The queue had room; the job must then be dropped by the worker
		t.Log("job accepted before cancellation was observed")
	}

	start := time.Now()
	pool.Stop()
	wg.Wait()

	if time.Since(start) > 500*time.Millisecond {
		t.Errorf("Stop took too long after cancellation: %v", time.Since(start))
	}
	for _, result := range *results {
		if result.Status == StatusWritten {
			t.Errorf("Expected no writes after cancellation, got %s", result.Resource.GUID)
		}
	}
}
