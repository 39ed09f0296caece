package manager

import (
	"testing"
	"time"

	"github.com/lumenbus/lcs-gateway/internal/lcs/agent"
)

func newTestManager() *Manager {
	return New(Config{
		NewClient: func(id, name, host string, port int, onState func(string, agent.ConnState)) *agent.Client {
			// Unreachable host: exercises the registry without real sockets.
			return agent.New(id, name, "127.0.0.1", 1, agent.Config{
				Backoff: &agent.FixedBackoff{Delay: time.Hour},
			})
		},
	})
}

func TestAddAgentDuplicateID(t *testing.T) {
	m := newTestManager()
	if err := m.AddAgent("a", "A", "localhost", 9000); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := m.AddAgent("a", "A2", "localhost", 9001); err != ErrDuplicateID {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	m.RemoveAgent("a")
}

func TestDefaultAgentPromotion_S6(t *testing.T) {
	m := newTestManager()
	if err := m.AddAgent("a", "A", "localhost", 9000); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if err := m.AddAgent("b", "B", "localhost", 9001); err != nil {
		t.Fatalf("add b: %v", err)
	}

	status := m.GetConnectionStatus()
	if status.DefaultAgentID != "a" {
		t.Fatalf("expected default 'a', got %q", status.DefaultAgentID)
	}

	if err := m.RemoveAgent("a"); err != nil {
		t.Fatalf("remove a: %v", err)
	}
	status = m.GetConnectionStatus()
	if status.DefaultAgentID != "b" {
		t.Fatalf("expected default promoted to 'b', got %q", status.DefaultAgentID)
	}

	if err := m.RemoveAgent("b"); err != nil {
		t.Fatalf("remove b: %v", err)
	}
	status = m.GetConnectionStatus()
	if status.DefaultAgentID != "" {
		t.Fatalf("expected no default agent, got %q", status.DefaultAgentID)
	}
}

func TestRemoveUnknownAgent(t *testing.T) {
	m := newTestManager()
	if err := m.RemoveAgent("missing"); err != ErrUnknownAgent {
		t.Fatalf("expected ErrUnknownAgent, got %v", err)
	}
}

func TestSetDefaultAgent(t *testing.T) {
	m := newTestManager()
	m.AddAgent("a", "A", "localhost", 9000)
	m.AddAgent("b", "B", "localhost", 9001)
	defer m.RemoveAgent("a")
	defer m.RemoveAgent("b")

	if err := m.SetDefaultAgent("b"); err != nil {
		t.Fatalf("set default: %v", err)
	}
	if got := m.GetConnectionStatus().DefaultAgentID; got != "b" {
		t.Fatalf("expected default 'b', got %q", got)
	}
	if err := m.SetDefaultAgent("missing"); err != ErrUnknownAgent {
		t.Fatalf("expected ErrUnknownAgent, got %v", err)
	}
}

func TestProxyWithoutAnyAgentFailsUnknown(t *testing.T) {
	m := newTestManager()
	if _, err := m.GetDeviceName(""); err != ErrUnknownAgent {
		t.Fatalf("expected ErrUnknownAgent with empty registry, got %v", err)
	}
}
