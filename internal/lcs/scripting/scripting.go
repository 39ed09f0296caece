// Package scripting hosts operator-authored Lua scripts that sequence
// dim/scene/sleep primitives against one Agent, via a single worker
// goroutine so scripts never run concurrently with each other.
package scripting

import (
	"context"
	"time"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/lumenbus/lcs-gateway/internal/lcs/manager"
)

type runRequest struct {
	agentID string
	master  byte
	cu      byte
	code    string
	done    chan error
}

// Engine drains one script at a time from cmdChan; a Stop cancels whichever
// script is currently executing.
type Engine struct {
	mgr    *manager.Manager
	logger *zap.Logger

	cmdChan  chan runRequest
	stopChan chan struct{}
}

func NewEngine(mgr *manager.Manager, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		mgr:      mgr,
		logger:   logger,
		cmdChan:  make(chan runRequest, 8),
		stopChan: make(chan struct{}, 1),
	}
	go e.runLoop()
	return e
}

// Run submits code for execution and blocks until it finishes or is stopped.
func (e *Engine) Run(agentID string, master, cu byte, code string) error {
	req := runRequest{agentID: agentID, master: master, cu: cu, code: code, done: make(chan error, 1)}
	e.cmdChan <- req
	return <-req.done
}

// Stop cancels whichever script is currently executing, if any.
func (e *Engine) Stop() {
	select {
	case e.stopChan <- struct{}{}:
	default:
	}
}

func (e *Engine) runLoop() {
	for req := range e.cmdChan {
		// A Stop issued while no script was running must not cancel this one.
		select {
		case <-e.stopChan:
		default:
		}
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})

		go func() {
			defer close(done)
			req.done <- e.execute(ctx, req)
		}()

		select {
		case <-done:
		case <-e.stopChan:
			cancel()
			<-done
		}
		cancel()
	}
}

func (e *Engine) execute(ctx context.Context, req runRequest) error {
	L := lua.NewState()
	defer L.Close()
	L.SetContext(ctx)

	e.registerPrimitives(L, ctx, req.agentID, req.master, req.cu)

	if err := L.DoString(req.code); err != nil {
		if ctx.Err() == context.Canceled {
			return ctx.Err()
		}
		e.logger.Warn("script failed", zap.String("agent_id", req.agentID), zap.Error(err))
		return err
	}
	return nil
}

func (e *Engine) registerPrimitives(L *lua.LState, ctx context.Context, agentID string, master, cu byte) {
	L.SetGlobal("dim", L.NewFunction(func(L *lua.LState) int {
		lampNo := L.ToInt(1)
		brightness := L.ToInt(2)
		if _, err := e.mgr.DimLamp(agentID, master, cu, lampNo, brightness); err != nil {
			L.RaiseError("dim failed: %v", err)
		}
		return 0
	}))

	L.SetGlobal("scene", L.NewFunction(func(L *lua.LState) int {
		sceneNo := L.ToInt(1)
		fadeTime := L.ToInt(2)
		if _, err := e.mgr.ExecuteScene(agentID, master, cu, sceneNo, fadeTime); err != nil {
			L.RaiseError("scene failed: %v", err)
		}
		return 0
	}))

	L.SetGlobal("sleep", L.NewFunction(func(L *lua.LState) int {
		ms := L.ToInt(1)
		select {
		case <-time.After(time.Duration(ms) * time.Millisecond):
		case <-ctx.Done():
			L.RaiseError("cancelled")
		}
		return 0
	}))
}
