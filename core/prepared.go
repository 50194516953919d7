package core

import (
	"github.com/go-kit/log/level"
	"go.uber.org/atomic"
)

// Prepared is a compiled query that mints Statements. It is immutable and
// safe for concurrent use.
//
// A Prepared is reference counted: the application holds one reference,
// dropped with Release, and every Statement holds one until it finishes
// executing (or is discarded). The session handle is released with the
// last reference.
type Prepared struct {
	name   string
	info   *PreparedInfo
	client *Client

	refs          atomic.Int32
	ownerReleased atomic.Bool
}

func newPrepared(client *Client, name string, info *PreparedInfo) *Prepared {
	p := &Prepared{
		name:   name,
		info:   info,
		client: client,
	}
	p.refs.Store(1)
	return p
}

func (p *Prepared) GetName() string {
	return p.name
}

func (p *Prepared) GetQuery() string {
	return p.info.Query
}

// GetParams returns the bind markers in position order.
func (p *Prepared) GetParams() Header {
	return p.info.Params
}

func (p *Prepared) GetParamCount() int {
	return len(p.info.Params)
}

// CreateStatement returns a new statement with all parameters unset.
// Statements created after the last reference was released fail on
// execution with ErrPreparedReleased.
func (p *Prepared) CreateStatement() *Statement {
	return newStatement(p, p.acquire())
}

// Release drops the application reference. It is safe to call more than once.
func (p *Prepared) Release() {
	if p.ownerReleased.Swap(true) {
		return
	}
	p.release()
}

func (p *Prepared) acquire() bool {
	for {
		n := p.refs.Load()
		if n <= 0 {
			return false
		}
		if p.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

func (p *Prepared) release() {
	if p.refs.Dec() != 0 {
		return
	}

	level.Debug(p.client.logger).Log("msg", "releasing prepared statement", "prepared", p.name)
	p.client.session.Release(p.info)
}
