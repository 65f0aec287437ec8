//go:build !linux

package mpris

import (
	"github.com/llehouerou/airwaves/internal/catalog"
	"github.com/llehouerou/airwaves/internal/report"
	"github.com/llehouerou/airwaves/internal/session"
)

// Volume is the output level control, 0.0 to 1.0.
type Volume interface {
	SetVolume(level float64)
	Volume() float64
}

// Adapter is a no-op on non-Linux platforms.
type Adapter struct{}

// New returns a no-op adapter on non-Linux platforms.
func New(_ *session.Controller, _ *catalog.Catalog, _ Volume, _ int, _ report.Reporter) (*Adapter, error) {
	return &Adapter{}, nil
}

// Close is a no-op on non-Linux platforms.
func (a *Adapter) Close() error {
	return nil
}
