// Package application 提供监控进程共用的运行时骨架：
// 生命周期状态、Gin 引擎装配、HTTP 服务启停、信号等待。
package application

import "sync/atomic"

// State 服务生命周期状态
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

// String 状态字符串表示
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Lifecycle stopped → starting → running → stopping → stopped
type Lifecycle struct {
	state atomic.Int32
}

// State 当前状态
func (l *Lifecycle) State() State {
	return State(l.state.Load())
}

// Transition from → to，状态不符返回 false
func (l *Lifecycle) Transition(from, to State) bool {
	return l.state.CompareAndSwap(int32(from), int32(to))
}

// Set 无条件设置
func (l *Lifecycle) Set(s State) {
	l.state.Store(int32(s))
}
