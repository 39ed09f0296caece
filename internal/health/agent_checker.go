package health

import (
	"context"
	"fmt"
	"time"
)

// AgentStateReader is the minimal view an Agent client exposes for health
// checking; internal/lcs/agent.Client satisfies it without either package
// importing the other.
type AgentStateReader interface {
	ID() string
	Connected() bool
}

// AgentChecker reports Degraded when its Agent isn't currently Connected. A
// disconnected agent is never Unhealthy on its own — reconnection is
// automatic and other agents may still be reachable.
type AgentChecker struct {
	agent AgentStateReader
}

func NewAgentChecker(a AgentStateReader) *AgentChecker {
	return &AgentChecker{agent: a}
}

func (c *AgentChecker) Name() string {
	return fmt.Sprintf("agent:%s", c.agent.ID())
}

func (c *AgentChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	if c.agent.Connected() {
		return CheckResult{
			Status:  StatusHealthy,
			Message: "connected",
			Latency: time.Since(start),
		}
	}
	return CheckResult{
		Status:  StatusDegraded,
		Message: "not connected",
		Latency: time.Since(start),
	}
}
