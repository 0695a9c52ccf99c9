package concurrency

import (
	"math/rand"

	"github.com/wudi/corelang/internal/values"
)

// CaseKind mirrors the result triple's case_type encoding for the select
// construct.
type CaseKind int

const (
	CaseSend CaseKind = iota
	CaseRecv
	CaseRecvClosed
	CaseDefault
	CaseAllClosed
)

// CaseSpec is one accumulated select case: a send (channel+value), a
// receive (channel), or a default marker.
type CaseSpec struct {
	IsSend  bool
	IsDefault bool
	Channel *Channel
	SendVal values.Value
}

// Selector accumulates cases for select_begin/add_send/add_recv/
// add_default, then exec/try_exec picks exactly one ready case, preferring
// non-default cases, using a randomized scan order so no case is
// starved when several are simultaneously ready.
type Selector struct {
	cases      []CaseSpec
	hasDefault bool
	defaultIdx int
}

func NewSelector() *Selector { return &Selector{} }

func (s *Selector) AddSend(ch *Channel, val values.Value) int {
	s.cases = append(s.cases, CaseSpec{IsSend: true, Channel: ch, SendVal: val})
	return len(s.cases) - 1
}

func (s *Selector) AddRecv(ch *Channel) int {
	s.cases = append(s.cases, CaseSpec{Channel: ch})
	return len(s.cases) - 1
}

func (s *Selector) AddDefault() int {
	s.cases = append(s.cases, CaseSpec{IsDefault: true})
	s.hasDefault = true
	s.defaultIdx = len(s.cases) - 1
	return s.defaultIdx
}

// Result is the (case_type, case_index, value_or_null) triple pushed by
// exec/try_exec.
type Result struct {
	Kind  CaseKind
	Index int
	Value values.Value
}

// scanOrder returns a randomized permutation of non-default case indices
// so repeated selects among several ready cases don't consistently favor
// the same one.
func (s *Selector) scanOrder() []int {
	order := make([]int, 0, len(s.cases))
	for i, c := range s.cases {
		if !c.IsDefault {
			order = append(order, i)
		}
	}
	rand.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	return order
}

// tryOnce attempts one non-blocking pass over all non-default cases,
// returning a ready Result if any case fires.
func (s *Selector) tryOnce() (Result, bool) {
	for _, i := range s.scanOrder() {
		c := s.cases[i]
		if c.IsSend {
			if c.Channel.TrySend(c.SendVal) {
				return Result{Kind: CaseSend, Index: i}, true
			}
			continue
		}
		if c.Channel.ReadyToReceive() {
			v, ok := c.Channel.TryReceive()
			if ok {
				return Result{Kind: CaseRecv, Index: i, Value: v}, true
			}
			// Ready-but-drained means the channel is closed and empty.
			return Result{Kind: CaseRecvClosed, Index: i}, true
		}
	}
	return Result{}, false
}

// TryExec is the non-blocking variant: returns the default case
// immediately if nothing else is ready and a default was registered,
// otherwise reports case_type=all_closed-equivalent failure via ok=false
// when there is no default and nothing is ready.
func (s *Selector) TryExec() (Result, bool) {
	if res, ok := s.tryOnce(); ok {
		return res, true
	}
	if s.hasDefault {
		return Result{Kind: CaseDefault, Index: s.defaultIdx}, true
	}
	return Result{}, false
}

// Exec blocks until some case becomes ready, preferring non-default cases;
// if none are ready and a default is present, default is chosen without
// blocking.
func (s *Selector) Exec() Result {
	if res, ok := s.tryOnce(); ok {
		return res
	}
	if s.hasDefault {
		return Result{Kind: CaseDefault, Index: s.defaultIdx}
	}
	for {
		if res, ok := s.tryOnce(); ok {
			return res
		}
		allClosed := true
		for _, c := range s.cases {
			if c.IsSend {
				if !c.Channel.Closed() {
					allClosed = false
				}
				continue
			}
			if !c.Channel.Closed() {
				allClosed = false
			}
		}
		if allClosed && len(s.cases) > 0 {
			return Result{Kind: CaseAllClosed, Index: -1}
		}
		runtimeGosched()
	}
}
