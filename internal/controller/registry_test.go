package controller

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostcp/internal/domain"
	"hostcp/internal/infrastructure/logger"
)

type fakeAV struct {
	impl string
}

func (f *fakeAV) Kind() domain.ControllerKind                    { return domain.ControllerKindAV }
func (f *fakeAV) Implementation() string                         { return f.impl }
func (f *fakeAV) ActionTypes() map[string][]string               { return map[string][]string{"av": {"screenshot"}} }
func (f *fakeAV) Screenshot(ctx context.Context) (string, error) { return "/tmp/shot.png", nil }
func (f *fakeAV) StartStream(ctx context.Context) error          { return nil }
func (f *fakeAV) StopStream(ctx context.Context) error           { return nil }

type fakeVerification struct {
	impl string
	av   domain.AVController
}

func (f *fakeVerification) Kind() domain.ControllerKind { return domain.ControllerKindVerification }
func (f *fakeVerification) Implementation() string      { return f.impl }
func (f *fakeVerification) ActionTypes() map[string][]string {
	return map[string][]string{"verification": {"image_match"}}
}
func (f *fakeVerification) Verify(ctx context.Context, v domain.Verification) (bool, domain.VerificationDetail, error) {
	return true, domain.VerificationDetail{}, nil
}

type fakeRemote struct{ impl string }

func (f *fakeRemote) Kind() domain.ControllerKind { return domain.ControllerKindRemote }
func (f *fakeRemote) Implementation() string      { return f.impl }
func (f *fakeRemote) ActionTypes() map[string][]string {
	return map[string][]string{"remote": {"press"}}
}
func (f *fakeRemote) SendCommand(ctx context.Context, command string, params map[string]any) (domain.ActionResult, error) {
	return domain.ActionResult{Success: true}, nil
}
func (f *fakeRemote) DumpUI(ctx context.Context) (domain.UIDump, bool, error) {
	return domain.UIDump{}, false, nil
}

func newTestRegistry() *Registry {
	reg := NewRegistry(logger.Nop())
	reg.Register(domain.ControllerKindAV, "hdmi_stream", func(model string, cfg map[string]any, av domain.AVController) (domain.Controller, error) {
		return &fakeAV{impl: "hdmi_stream"}, nil
	})
	reg.Register(domain.ControllerKindRemote, "adb", func(model string, cfg map[string]any, av domain.AVController) (domain.Controller, error) {
		return &fakeRemote{impl: "adb"}, nil
	})
	reg.Register(domain.ControllerKindVerification, "image", func(model string, cfg map[string]any, av domain.AVController) (domain.Controller, error) {
		return &fakeVerification{impl: "image", av: av}, nil
	})
	reg.Register(domain.ControllerKindRemote, "broken", func(model string, cfg map[string]any, av domain.AVController) (domain.Controller, error) {
		return nil, errors.New("construction always fails")
	})
	return reg
}

func TestBuildDevice_WiresAVBeforeVerification(t *testing.T) {
	reg := newTestRegistry()
	device := domain.NewDevice("d1", "Device 1", "model", "", 0)

	reg.BuildDevice(device, []Spec{
		{Kind: domain.ControllerKindVerification, Implementation: "image"},
		{Kind: domain.ControllerKindAV, Implementation: "hdmi_stream"},
		{Kind: domain.ControllerKindRemote, Implementation: "adb"},
	})

	verifC, ok := device.Controller(domain.ControllerKindVerification)
	require.True(t, ok)
	fv := verifC.(*fakeVerification)
	require.NotNil(t, fv.av)
	assert.Equal(t, "hdmi_stream", fv.av.Implementation())

	_, ok = device.Controller(domain.ControllerKindAV)
	assert.True(t, ok)
	_, ok = device.Controller(domain.ControllerKindRemote)
	assert.True(t, ok)
}

func TestBuildDevice_VerificationWithoutAVGetsNilAV(t *testing.T) {
	reg := newTestRegistry()
	device := domain.NewDevice("d1", "Device 1", "model", "", 0)

	reg.BuildDevice(device, []Spec{
		{Kind: domain.ControllerKindVerification, Implementation: "image"},
	})

	verifC, ok := device.Controller(domain.ControllerKindVerification)
	require.True(t, ok)
	fv := verifC.(*fakeVerification)
	assert.Nil(t, fv.av)
}

func TestBuildDevice_UnknownKindIsSkippedNotFatal(t *testing.T) {
	reg := newTestRegistry()
	device := domain.NewDevice("d1", "Device 1", "model", "", 0)

	reg.BuildDevice(device, []Spec{
		{Kind: domain.ControllerKindWeb, Implementation: "playwright"},
		{Kind: domain.ControllerKindAV, Implementation: "hdmi_stream"},
	})

	_, ok := device.Controller(domain.ControllerKindWeb)
	assert.False(t, ok)
	_, ok = device.Controller(domain.ControllerKindAV)
	assert.True(t, ok)
}

func TestBuildDevice_ConstructionErrorDoesNotAbortOtherControllers(t *testing.T) {
	reg := newTestRegistry()
	device := domain.NewDevice("d1", "Device 1", "model", "", 0)

	reg.BuildDevice(device, []Spec{
		{Kind: domain.ControllerKindRemote, Implementation: "broken"},
		{Kind: domain.ControllerKindAV, Implementation: "hdmi_stream"},
	})

	_, ok := device.Controller(domain.ControllerKindRemote)
	assert.False(t, ok)
	_, ok = device.Controller(domain.ControllerKindAV)
	assert.True(t, ok)
}

func TestAvailableActionTypes_AggregatesByImplementation(t *testing.T) {
	reg := newTestRegistry()
	device := domain.NewDevice("d1", "Device 1", "model", "", 0)
	reg.BuildDevice(device, []Spec{
		{Kind: domain.ControllerKindRemote, Implementation: "adb"},
	})

	types := AvailableActionTypes(device)
	assert.Contains(t, types[domain.ControllerKindRemote], "adb/remote")
}

func TestAvailableVerificationTypes(t *testing.T) {
	reg := newTestRegistry()
	device := domain.NewDevice("d1", "Device 1", "model", "", 0)
	reg.BuildDevice(device, []Spec{
		{Kind: domain.ControllerKindVerification, Implementation: "image"},
	})

	types := AvailableVerificationTypes(device)
	assert.Contains(t, types, "image/verification")
}
