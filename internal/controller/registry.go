// Package controller builds a Device's full capability set from a
// flat configuration map, resolving the av → verification
// construction-order dependency between them.
package controller

import (
	"fmt"

	"hostcp/internal/domain"
	"hostcp/internal/infrastructure/logger"
)

// Spec describes one controller to construct: its kind, its variant
// ("implementation"), and the flat config bag the Factory needs.
type Spec struct {
	Kind           domain.ControllerKind
	Implementation string
	Config         map[string]any
}

// Factory constructs one controller variant. verificationAV is nil
// for every kind except verification, where it carries the device's
// already-built AV controller (or nil if the device has none).
type Factory func(deviceModel string, cfg map[string]any, verificationAV domain.AVController) (domain.Controller, error)

// Registry is the per-process table of known {kind, implementation}
// factories. Unknown pairs are not an error at registration time —
// BuildDevice logs and skips them.
type Registry struct {
	factories map[domain.ControllerKind]map[string]Factory
	log       *logger.Logger
}

func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		factories: make(map[domain.ControllerKind]map[string]Factory),
		log:       log,
	}
}

func (r *Registry) Register(kind domain.ControllerKind, implementation string, f Factory) {
	if r.factories[kind] == nil {
		r.factories[kind] = make(map[string]Factory)
	}
	r.factories[kind][implementation] = f
}

// BuildDevice constructs every controller named in specs onto device,
// in a fixed order: av first; remote/ai/power/desktop/web in any
// order; verification last, injected with the device's av controller.
// A construction error removes only that controller; it never aborts
// the rest of the device build.
func (r *Registry) BuildDevice(device *domain.Device, specs []Spec) {
	var verificationSpecs []Spec

	for _, s := range specs {
		if s.Kind == domain.ControllerKindAV {
			r.build(device, s, nil)
		}
	}
	for _, s := range specs {
		switch s.Kind {
		case domain.ControllerKindAV, domain.ControllerKindVerification:
			continue
		default:
			r.build(device, s, nil)
		}
	}
	for _, s := range specs {
		if s.Kind == domain.ControllerKindVerification {
			verificationSpecs = append(verificationSpecs, s)
		}
	}

	var av domain.AVController
	if c, ok := device.Controller(domain.ControllerKindAV); ok {
		av, _ = c.(domain.AVController)
	}
	for _, s := range verificationSpecs {
		r.build(device, s, av)
	}
}

func (r *Registry) build(device *domain.Device, s Spec, verificationAV domain.AVController) {
	byImpl, ok := r.factories[s.Kind]
	if !ok {
		r.log.Error("unknown controller kind", "kind", s.Kind, "implementation", s.Implementation)
		return
	}
	f, ok := byImpl[s.Implementation]
	if !ok {
		r.log.Error("unknown controller implementation", "kind", s.Kind, "implementation", s.Implementation)
		return
	}
	c, err := f(device.DeviceModel, s.Config, verificationAV)
	if err != nil {
		r.log.Error("controller construction failed", "kind", s.Kind, "implementation", s.Implementation, "error", err.Error())
		return
	}
	device.AddController(s.Kind, c)
}

// Capabilities reports the set of kinds with at least one controller.
func Capabilities(device *domain.Device) map[domain.ControllerKind]bool {
	return device.Capabilities()
}

// AvailableActionTypes aggregates every controller's self-described
// action catalogue, keyed by kind then implementation.
func AvailableActionTypes(device *domain.Device) map[domain.ControllerKind]map[string][]string {
	out := make(map[domain.ControllerKind]map[string][]string)
	for kind := range device.Capabilities() {
		for _, c := range device.Controllers(kind) {
			if out[kind] == nil {
				out[kind] = make(map[string][]string)
			}
			for category, types := range c.ActionTypes() {
				key := fmt.Sprintf("%s/%s", c.Implementation(), category)
				out[kind][key] = types
			}
		}
	}
	return out
}

// AvailableVerificationTypes mirrors AvailableActionTypes for
// verification controllers specifically.
func AvailableVerificationTypes(device *domain.Device) map[string][]string {
	out := make(map[string][]string)
	for _, c := range device.Controllers(domain.ControllerKindVerification) {
		for category, types := range c.ActionTypes() {
			out[fmt.Sprintf("%s/%s", c.Implementation(), category)] = types
		}
	}
	return out
}
