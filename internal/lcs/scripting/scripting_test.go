package scripting

import (
	"testing"
	"time"

	"github.com/lumenbus/lcs-gateway/internal/lcs/agent"
	"github.com/lumenbus/lcs-gateway/internal/lcs/manager"
)

func newTestManager() *manager.Manager {
	return manager.New(manager.Config{
		NewClient: func(id, name, host string, port int, onState func(string, agent.ConnState)) *agent.Client {
			return agent.New(id, name, "127.0.0.1", 1, agent.Config{Backoff: &agent.FixedBackoff{Delay: time.Hour}})
		},
	})
}

func TestRunExecutesSleepAndReturns(t *testing.T) {
	mgr := newTestManager()
	e := NewEngine(mgr, nil)
	defer e.Stop()

	err := e.Run("a", 1, 1, `sleep(5)`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunSurfacesDimFailureAgainstUnknownAgent(t *testing.T) {
	mgr := newTestManager()
	e := NewEngine(mgr, nil)
	defer e.Stop()

	err := e.Run("missing", 1, 1, `dim(5, 50)`)
	if err == nil {
		t.Fatal("expected error: no such agent registered")
	}
}

func TestStopCancelsRunningScript(t *testing.T) {
	mgr := newTestManager()
	e := NewEngine(mgr, nil)

	done := make(chan error, 1)
	go func() { done <- e.Run("a", 1, 1, `sleep(60000)`) }()

	time.Sleep(50 * time.Millisecond)
	e.Stop()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected cancellation error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stop to cancel the script")
	}
}

func TestScriptsRunSequentiallyNotConcurrently(t *testing.T) {
	mgr := newTestManager()
	e := NewEngine(mgr, nil)
	defer e.Stop()

	start := time.Now()
	done := make(chan struct{}, 2)
	go func() { e.Run("a", 1, 1, `sleep(100)`); done <- struct{}{} }()
	go func() { e.Run("a", 1, 1, `sleep(100)`); done <- struct{}{} }()
	<-done
	<-done
	if time.Since(start) < 190*time.Millisecond {
		t.Fatal("expected scripts to serialize through the single worker goroutine")
	}
}
