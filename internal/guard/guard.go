// Package guard stops errors and panics at externally invoked entry points
// and turns them into reported failures.
package guard

import (
	"github.com/llehouerou/airwaves/internal/errmsg"
	"github.com/llehouerou/airwaves/internal/report"
)

// Recover reports a panic in progress. It must be deferred directly:
//
//	defer guard.Recover(rep, errmsg.OpOpenSource)
func Recover(rep report.Reporter, op errmsg.Op) {
	if r := recover(); r != nil {
		Report(rep, op, errmsg.DescribePanic(r))
	}
}

// Run calls fn and reports its error or panic. It returns true when fn
// completed without either.
func Run(rep report.Reporter, op errmsg.Op, fn func() error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			Report(rep, op, errmsg.DescribePanic(r))
			ok = false
		}
	}()
	if err := fn(); err != nil {
		Report(rep, op, errmsg.Describe(err))
		return false
	}
	return true
}

// Report delivers message to rep. A panic raised by rep itself is dropped
// and Report returns false.
func Report(rep report.Reporter, op errmsg.Op, message string) (delivered bool) {
	defer func() {
		if recover() != nil {
			delivered = false
		}
	}()
	rep.Report(op, message)
	return true
}
