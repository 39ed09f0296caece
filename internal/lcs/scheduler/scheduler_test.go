package scheduler

import (
	"testing"
	"time"

	"github.com/lumenbus/lcs-gateway/internal/config"
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

func TestLoadAllSkipsInvalidCronExpression(t *testing.T) {
	mgr := newTestManager()
	s := New(mgr, nil)

	s.LoadAll([]config.ScheduleConfig{
		{ID: "bad", CronExpr: "not-a-cron", AgentID: "a", Action: "scene"},
		{ID: "good", CronExpr: "0 0 19 * * *", AgentID: "a", Action: "scene", Params: map[string]int{"sceneNo": 1}},
	})
	// LoadAll must not panic and must register the well-formed entry; the
	// only externally observable effect here is that Start/Stop still work.
	s.Start()
	s.Stop()
}

func TestDecodeLampListReadsSequentialKeys(t *testing.T) {
	params := map[string]int{"lampCount": 3, "lamp1": 5, "lamp2": 6, "lamp3": 7}
	lamps := decodeLampList(params)
	want := []int{5, 6, 7}
	if len(lamps) != len(want) {
		t.Fatalf("expected %d lamps, got %v", len(want), lamps)
	}
	for i, w := range want {
		if lamps[i] != w {
			t.Fatalf("index %d: want %d got %d", i, w, lamps[i])
		}
	}
}

func TestRunUnknownActionDoesNotPanic(t *testing.T) {
	mgr := newTestManager()
	mgr.AddAgent("a", "A", "localhost", 9000)
	defer mgr.RemoveAgent("a")

	s := New(mgr, nil)
	s.run(config.ScheduleConfig{ID: "x", AgentID: "a", Action: "unknown"})
}
