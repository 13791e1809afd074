package app

import (
	"github.com/dkeye/Board/internal/core"
	"github.com/dkeye/Board/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
	DropFrame
)

// Policy decides what happens to a member whose outbound queue is full.
type Policy interface {
	OnBackPressure(uid domain.UserID, conn core.SignalConnection) BackpressureAction
}

// SimplePolicy kicks slow members; their read loop then runs normal cleanup.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(uid domain.UserID, conn core.SignalConnection) BackpressureAction {
	return KickMember
}
