package controller

import (
	"context"
	"fmt"

	"hostcp/internal/domain"
	derrors "hostcp/internal/domain/errors"
)

// Dispatcher adapts a Host's devices to navexec.ActionRunner: it
// routes an Action to the right controller kind by Action.ActionType,
// and a Verification to the device's verification controller.
type Dispatcher struct {
	host *domain.Host
}

func NewDispatcher(host *domain.Host) *Dispatcher {
	return &Dispatcher{host: host}
}

func (d *Dispatcher) RunAction(ctx context.Context, deviceID string, a domain.Action) (domain.ActionResult, error) {
	device, ok := d.host.Device(deviceID)
	if !ok {
		return domain.ActionResult{}, derrors.NewControllerError(a.ActionType, a.Command, "device not found", nil, false)
	}

	switch a.ActionType {
	case "desktop":
		c, ok := device.Controller(domain.ControllerKindDesktop)
		if !ok {
			return domain.ActionResult{}, derrors.NewControllerError(a.ActionType, a.Command, "no desktop controller", nil, false)
		}
		return c.(domain.DesktopController).SendCommand(ctx, a.Command, a.Params)
	case "web":
		c, ok := device.Controller(domain.ControllerKindWeb)
		if !ok {
			return domain.ActionResult{}, derrors.NewControllerError(a.ActionType, a.Command, "no web controller", nil, false)
		}
		return c.(domain.WebController).SendCommand(ctx, a.Command, a.Params)
	case "virtual":
		// ENTER_SUBTREE/EXIT_SUBTREE markers: nothing to dispatch, the
		// executor's own bookkeeping is enough.
		return domain.ActionResult{Success: true}, nil
	default:
		c, ok := device.Controller(domain.ControllerKindRemote)
		if !ok {
			return domain.ActionResult{}, derrors.NewControllerError(a.ActionType, a.Command, "no remote controller", nil, false)
		}
		return c.(domain.RemoteController).SendCommand(ctx, a.Command, a.Params)
	}
}

func (d *Dispatcher) RunVerification(ctx context.Context, deviceID string, v domain.Verification) (bool, domain.VerificationDetail, error) {
	device, ok := d.host.Device(deviceID)
	if !ok {
		return false, domain.VerificationDetail{}, fmt.Errorf("device %s not found", deviceID)
	}
	c, ok := device.Controller(domain.ControllerKindVerification)
	if !ok {
		return false, domain.VerificationDetail{}, fmt.Errorf("device %s has no verification controller", deviceID)
	}
	return c.(domain.VerificationController).Verify(ctx, v)
}
