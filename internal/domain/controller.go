package domain

import "context"

// Controller is the tagged-sum-type base every capability interface
// embeds. Kind() lets the registry dispatch without a type switch on
// the concrete implementation.
type Controller interface {
	Kind() ControllerKind
	// Implementation names the variant, e.g. "android_mobile", "hdmi_stream".
	Implementation() string
	// ActionTypes self-describes the catalogue this controller
	// contributes, keyed by category. The registry's AvailableActionTypes
	// aggregates it across all controllers, and AvailableVerificationTypes
	// across verification controllers.
	ActionTypes() map[string][]string
}

// RemoteController drives a device's remote-control surface (IR,
// ADB input, Appium gestures).
type RemoteController interface {
	Controller
	SendCommand(ctx context.Context, command string, params map[string]any) (ActionResult, error)
	DumpUI(ctx context.Context) (UIDump, bool, error)
}

// AVController captures audio/video/screenshots from the device.
type AVController interface {
	Controller
	Screenshot(ctx context.Context) (localPath string, err error)
	StartStream(ctx context.Context) error
	StopStream(ctx context.Context) error
}

// VerificationController checks an expected condition against a live
// device. Every variant except "adb" and "appium" holds a
// non-owning reference to the device's AV controller, injected at
// construction; av never points back.
type VerificationController interface {
	Controller
	Verify(ctx context.Context, v Verification) (bool, VerificationDetail, error)
}

// DesktopController drives a desktop/X11 surface.
type DesktopController interface {
	Controller
	SendCommand(ctx context.Context, command string, params map[string]any) (ActionResult, error)
}

// WebController drives a browser session (Playwright-equivalent).
// Chrome/Playwright sessions are process-level singletons per
// controller; Connect/Disconnect make that lifecycle explicit.
type WebController interface {
	Controller
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	SendCommand(ctx context.Context, command string, params map[string]any) (ActionResult, error)
	DumpUI(ctx context.Context) (UIDump, bool, error)
}

// PowerController toggles device power (Tapo-equivalent smart plug).
type PowerController interface {
	Controller
	SetPower(ctx context.Context, on bool) error
}

// AIController is the device-local collaborator the exploration
// engine calls for capability questions the registry itself cannot
// answer (e.g. "can this device be driven by selector or only by
// screenshot+dpad").
type AIController interface {
	Controller
	SupportsStructuredDump(ctx context.Context) bool
}

// ActionResult is what a controller returns after running a single
// Action.
type ActionResult struct {
	Success      bool
	ActualResult map[string]any
	Error        string
}

// UIDump is a structural element listing from a controller's
// DumpUI, truncated by callers to 10 entries for API echoes.
type UIDump struct {
	Elements []UIElement
	OCRText  string
	OCRConf  float64
}

type UIElement struct {
	Selector string
	Text     string
	Bounds   map[string]int
}

// VerificationDetail carries the diagnostic payload returned
// alongside a verification's pass/fail boolean.
type VerificationDetail struct {
	Message string
	Extra   map[string]any
}
