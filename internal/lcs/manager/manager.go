// Package manager implements C6: the insertion-ordered Agent registry,
// default-agent promotion, and proxy dispatch to each Agent's C3 client.
package manager

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lumenbus/lcs-gateway/internal/lcs/agent"
	"github.com/lumenbus/lcs-gateway/internal/lcs/command"
	"github.com/lumenbus/lcs-gateway/internal/lcs/effect"
	"github.com/lumenbus/lcs-gateway/internal/lcs/response"
	"github.com/lumenbus/lcs-gateway/internal/metrics"
)

// StateChangeEvent is emitted after every successful mutating proxy call so
// the push layer can broadcast it to subscribers.
type StateChangeEvent struct {
	AgentID   string
	Master    byte
	CU        byte
	Op        string
	Params    map[string]interface{}
	Timestamp time.Time
}

// Entry is one registered Agent's identity plus its owning client.
type Entry struct {
	ID     string
	Name   string
	Host   string
	Port   int
	Client *agent.Client
}

// ConnectionStatus is the snapshot returned by GetConnectionStatus.
type ConnectionStatus struct {
	TotalAgents     int             `json:"totalAgents"`
	ConnectedAgents int             `json:"connectedAgents"`
	DefaultAgentID  string          `json:"defaultAgentId"`
	Agents          []AgentStatus   `json:"agents"`
}

// AgentStatus is one row of ConnectionStatus.Agents.
type AgentStatus struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Host  string          `json:"host"`
	Port  int             `json:"port"`
	State agent.ConnState `json:"state"`
}

// ClientFactory builds a new Agent client; overridable in tests.
type ClientFactory func(id, name, host string, port int, onState func(string, agent.ConnState)) *agent.Client

// Manager is the injectable Agent registry — never a package-level global,
// so tests can spin up isolated instances.
type Manager struct {
	logger        *zap.Logger
	metrics       *metrics.AppMetrics
	effects       *effect.Engine
	newClient     ClientFactory
	onStateChange func(StateChangeEvent)
	onAgentsChanged func()

	mu        sync.RWMutex
	order     []string
	agents    map[string]*Entry
	defaultID string
}

// Config bundles Manager's collaborators.
type Config struct {
	Logger          *zap.Logger
	Metrics         *metrics.AppMetrics
	Effects         *effect.Engine
	NewClient       ClientFactory
	OnStateChange   func(StateChangeEvent)
	OnAgentsChanged func()
}

func New(cfg Config) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Effects == nil {
		cfg.Effects = effect.NewEngine(cfg.Logger, cfg.Metrics)
	}
	if cfg.NewClient == nil {
		cfg.NewClient = func(id, name, host string, port int, onState func(string, agent.ConnState)) *agent.Client {
			return agent.New(id, name, host, port, agent.Config{
				Logger:        cfg.Logger,
				Metrics:       cfg.Metrics,
				OnStateChange: onState,
			})
		}
	}
	return &Manager{
		logger:          cfg.Logger,
		metrics:         cfg.Metrics,
		effects:         cfg.Effects,
		newClient:       cfg.NewClient,
		onStateChange:   cfg.OnStateChange,
		onAgentsChanged: cfg.OnAgentsChanged,
		agents:          make(map[string]*Entry),
	}
}

var (
	ErrDuplicateID  = newCoded("DuplicateId", "agent id already registered")
	ErrUnknownAgent = newCoded("UnknownAgent", "unknown agent id")
)

type codedErr struct {
	code, msg string
}

func (e *codedErr) Error() string { return e.msg }
func (e *codedErr) Code() string  { return e.code }
func newCoded(code, msg string) *codedErr { return &codedErr{code: code, msg: msg} }

// AddAgent registers a new Agent and starts its connect loop. The first
// registered id becomes the default.
func (m *Manager) AddAgent(id, name, host string, port int) error {
	if name == "" {
		name = id
	}
	m.mu.Lock()
	if _, exists := m.agents[id]; exists {
		m.mu.Unlock()
		return ErrDuplicateID
	}

	client := m.newClient(id, name, host, port, func(agentID string, state agent.ConnState) {
		m.logger.Debug("agent state changed", zap.String("agent_id", agentID), zap.Stringer("state", state))
	})
	entry := &Entry{ID: id, Name: name, Host: host, Port: port, Client: client}
	m.agents[id] = entry
	m.order = append(m.order, id)
	if m.defaultID == "" {
		m.defaultID = id
	}
	m.mu.Unlock()

	client.Connect()
	m.notifyAgentsChanged()
	return nil
}

// RemoveAgent disconnects and deletes id, promoting the next-inserted
// surviving agent to default if id was the default.
func (m *Manager) RemoveAgent(id string) error {
	m.mu.Lock()
	entry, ok := m.agents[id]
	if !ok {
		m.mu.Unlock()
		return ErrUnknownAgent
	}
	delete(m.agents, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	if m.defaultID == id {
		if len(m.order) > 0 {
			m.defaultID = m.order[0]
		} else {
			m.defaultID = ""
		}
	}
	m.mu.Unlock()

	entry.Client.Disconnect()
	m.notifyAgentsChanged()
	return nil
}

// SetDefaultAgent designates id as the default target for unqualified proxy calls.
func (m *Manager) SetDefaultAgent(id string) error {
	m.mu.Lock()
	if _, ok := m.agents[id]; !ok {
		m.mu.Unlock()
		return ErrUnknownAgent
	}
	m.defaultID = id
	m.mu.Unlock()
	m.notifyAgentsChanged()
	return nil
}

// ReconnectAgent forces id's client through a disconnect/reconnect cycle.
func (m *Manager) ReconnectAgent(id string) error {
	entry, err := m.resolve(id)
	if err != nil {
		return err
	}
	entry.Client.Disconnect()
	entry.Client.Connect()
	m.notifyAgentsChanged()
	return nil
}

// GetConnectionStatus snapshots the registry for the REST/WS status surface.
func (m *Manager) GetConnectionStatus() ConnectionStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := ConnectionStatus{
		TotalAgents:    len(m.order),
		DefaultAgentID: m.defaultID,
	}
	for _, id := range m.order {
		e := m.agents[id]
		st := e.Client.State()
		if st == agent.StateConnected {
			status.ConnectedAgents++
		}
		status.Agents = append(status.Agents, AgentStatus{
			ID: e.ID, Name: e.Name, Host: e.Host, Port: e.Port, State: st,
		})
	}
	return status
}

// GetAgentClient exposes id's underlying Client, for callers outside this
// package that need to compose it into other collaborators (health checks).
func (m *Manager) GetAgentClient(id string) (*agent.Client, error) {
	e, err := m.resolve(id)
	if err != nil {
		return nil, err
	}
	return e.Client, nil
}

func (m *Manager) resolve(id string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id == "" {
		id = m.defaultID
	}
	if id == "" {
		return nil, ErrUnknownAgent
	}
	e, ok := m.agents[id]
	if !ok {
		return nil, ErrUnknownAgent
	}
	return e, nil
}

func (m *Manager) notifyAgentsChanged() {
	if m.onAgentsChanged != nil {
		m.onAgentsChanged()
	}
}

func (m *Manager) emit(agentID string, master, cu byte, op string, params map[string]interface{}) {
	if m.onStateChange == nil {
		return
	}
	m.onStateChange(StateChangeEvent{
		AgentID: agentID, Master: master, CU: cu, Op: op, Params: params, Timestamp: time.Now(),
	})
}

// --- Proxy methods: resolve target agent (by id, else default), forward to C3/C2/C4. ---

func (m *Manager) GetLampBrightness(agentID string, deviceType, master, cu byte) (*response.Typed, error) {
	e, err := m.resolve(agentID)
	if err != nil {
		return nil, err
	}
	f, err := command.GetLampBrightness(deviceType, master, cu)
	if err != nil {
		return nil, err
	}
	return e.Client.Send(f)
}

func (m *Manager) GetColorTemperature(agentID string, master, cu byte) (*response.Typed, error) {
	e, err := m.resolve(agentID)
	if err != nil {
		return nil, err
	}
	f, err := command.GetColorTemperature(master, cu)
	if err != nil {
		return nil, err
	}
	return e.Client.Send(f)
}

func (m *Manager) DimLamp(agentID string, master, cu byte, lampNo, brightness int) (*response.Typed, error) {
	e, err := m.resolve(agentID)
	if err != nil {
		return nil, err
	}
	f, err := command.DimLamp(master, cu, lampNo, brightness)
	if err != nil {
		return nil, err
	}
	typed, err := e.Client.Send(f)
	if err == nil {
		m.emit(e.ID, master, cu, "dim", map[string]interface{}{"lampNo": lampNo, "brightness": brightness})
	}
	return typed, err
}

func (m *Manager) BlockLampControl(agentID string, master, cu byte, lamps []int, brightness int) (*response.Typed, error) {
	e, err := m.resolve(agentID)
	if err != nil {
		return nil, err
	}
	f, err := command.BlockLampControl(master, cu, lamps, brightness)
	if err != nil {
		return nil, err
	}
	typed, err := e.Client.Send(f)
	if err == nil {
		m.emit(e.ID, master, cu, "block-control", map[string]interface{}{"lampList": lamps, "brightness": brightness})
	}
	return typed, err
}

func (m *Manager) BlockColorTemp(agentID string, master, cu byte, lamps []int, colorTemp int) (*response.Typed, error) {
	e, err := m.resolve(agentID)
	if err != nil {
		return nil, err
	}
	f, err := command.BlockColorTemp(master, cu, lamps, colorTemp)
	if err != nil {
		return nil, err
	}
	typed, err := e.Client.Send(f)
	if err == nil {
		m.emit(e.ID, master, cu, "color-temperature", map[string]interface{}{"lampList": lamps, "colorTemp": colorTemp})
	}
	return typed, err
}

func (m *Manager) ExecuteScene(agentID string, master, cu byte, sceneNo, fadeTime int) (*response.Typed, error) {
	e, err := m.resolve(agentID)
	if err != nil {
		return nil, err
	}
	f, err := command.ExecuteScene(master, cu, sceneNo, fadeTime)
	if err != nil {
		return nil, err
	}
	typed, err := e.Client.Send(f)
	if err == nil {
		m.emit(e.ID, master, cu, "scene", map[string]interface{}{"sceneNo": sceneNo, "fadeTime": fadeTime})
	}
	return typed, err
}

func (m *Manager) AllLamps(agentID string, master, cu byte, brightness int) (*response.Typed, error) {
	e, err := m.resolve(agentID)
	if err != nil {
		return nil, err
	}
	f, err := command.AllLamps(master, cu, brightness)
	if err != nil {
		return nil, err
	}
	typed, err := e.Client.Send(f)
	if err == nil {
		m.emit(e.ID, master, cu, "all", map[string]interface{}{"brightness": brightness})
	}
	return typed, err
}

func (m *Manager) GetDeviceName(agentID string) (*response.Typed, error) {
	e, err := m.resolve(agentID)
	if err != nil {
		return nil, err
	}
	return e.Client.Send(command.GetDeviceName())
}

// StartFade kicks off C5's fade effect in the background against agentID.
// A second fade started against the same agent cancels the first.
func (m *Manager) StartFade(agentID string, master, cu byte, lampNo, start, end int, durationSec float64, onDone func(error)) error {
	e, err := m.resolve(agentID)
	if err != nil {
		return err
	}
	m.effects.Start(e.ID, effect.KindFade, func(ctx context.Context) error {
		return effect.Fade(ctx, e.Client, master, cu, lampNo, start, end, durationSec)
	}, func(err error) {
		if err == nil {
			m.emit(e.ID, master, cu, "fade", map[string]interface{}{"lampNo": lampNo, "start": start, "end": end, "duration": durationSec})
		}
		if onDone != nil {
			onDone(err)
		}
	})
	return nil
}

// StartWave kicks off C5's wave effect in the background against agentID.
// A second wave started against the same agent cancels the first.
func (m *Manager) StartWave(agentID string, master, cu byte, lamps []int, brightness int, interval time.Duration, onDone func(error)) error {
	e, err := m.resolve(agentID)
	if err != nil {
		return err
	}
	m.effects.Start(e.ID, effect.KindWave, func(ctx context.Context) error {
		return effect.Wave(ctx, e.Client, master, cu, lamps, brightness, interval)
	}, func(err error) {
		if err == nil {
			m.emit(e.ID, master, cu, "wave", map[string]interface{}{"lampList": lamps, "brightness": brightness, "interval": interval})
		}
		if onDone != nil {
			onDone(err)
		}
	})
	return nil
}
