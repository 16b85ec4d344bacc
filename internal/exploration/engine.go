// Package exploration implements the per-device exploration context
// and state machine: AI-assisted screen discovery that writes a
// navigation tree's structure as it goes.
package exploration

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"hostcp/internal/aiplanner"
	"hostcp/internal/domain"
	"hostcp/internal/objectstore"
)

// Engine is a thin collaborator: it drives the device's controllers,
// uploads captured images out-of-band, asks the external planner for
// plans, and sanitises item names. It owns no
// durable state beyond the ExplorationContext handed to it by the
// caller each time.
type Engine struct {
	deviceID string
	host     *domain.Host
	objects  objectstore.Store
	planner  aiplanner.Planner
}

func NewEngine(deviceID string, host *domain.Host, objects objectstore.Store, planner aiplanner.Planner) *Engine {
	return &Engine{deviceID: deviceID, host: host, objects: objects, planner: planner}
}

func (e *Engine) device() (*domain.Device, error) {
	d, ok := e.host.Device(e.deviceID)
	if !ok {
		return nil, fmt.Errorf("device %s not found", e.deviceID)
	}
	return d, nil
}

// Phase0DetectStrategy inspects the device's controllers and picks a
// strategy, recording has_dump_ui and a truncated element list.
func (e *Engine) Phase0DetectStrategy(ctx context.Context) (domain.ExplorationStrategy, bool, []domain.UIElement, error) {
	device, err := e.device()
	if err != nil {
		return "", false, nil, err
	}

	if device.IRType != "" {
		return domain.StrategyDpadWithScreenshot, false, nil, nil
	}

	c, ok := device.Controller(domain.ControllerKindRemote)
	if !ok {
		return domain.StrategyDpadWithScreenshot, false, nil, nil
	}
	remote, ok := c.(domain.RemoteController)
	if !ok {
		return domain.StrategyClickWithText, false, nil, nil
	}

	dump, hasDump, err := remote.DumpUI(ctx)
	if err != nil || !hasDump {
		return domain.StrategyClickWithText, false, nil, nil
	}

	elements := dump.Elements
	if len(elements) > 10 {
		elements = elements[:10]
	}
	return domain.StrategyClickWithSelectors, true, elements, nil
}

// Phase1AnalyzeAndPlan captures a screenshot, uploads it, and asks the
// external planner for a structured plan, normalising item names
// before returning.
func (e *Engine) Phase1AnalyzeAndPlan(ctx context.Context, userInterfaceName, originalPrompt string) (*aiplanner.Plan, string, error) {
	device, err := e.device()
	if err != nil {
		return nil, "", err
	}

	c, ok := device.Controller(domain.ControllerKindAV)
	if !ok {
		return nil, "", fmt.Errorf("device %s has no av controller", e.deviceID)
	}
	av := c.(domain.AVController)

	localPath, err := av.Screenshot(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("screenshot capture failed: %w", err)
	}

	screenshotURL, err := e.objects.UploadNavigationScreenshot(ctx, localPath, userInterfaceName, "exploration_plan.png")
	if err != nil {
		return nil, "", fmt.Errorf("screenshot upload failed: %w", err)
	}

	plan, err := e.planner.Plan(ctx, aiplanner.Request{
		ScreenshotURL:  screenshotURL,
		OriginalPrompt: originalPrompt,
		DeviceModel:    device.DeviceModel,
	})
	if err != nil {
		return nil, "", err
	}

	normalized := make([]string, len(plan.Items))
	for i, item := range plan.Items {
		normalized[i] = NormalizeItemName(item)
	}
	plan.Items = normalized

	return plan, screenshotURL, nil
}

// Phase2CreateSingleEdgeMCP is the fully-incremental alternative to
// the two-batch Phase2a: create and test one item's node/edge in a
// single call.
func (e *Engine) Phase2CreateSingleEdgeMCP(ctx context.Context, item, startNodeID string) (domain.Node, domain.Edge) {
	name := NormalizeItemName(item)
	node := domain.Node{
		NodeID: name,
		Label:  name + "_temp",
	}
	edge := domain.Edge{
		EdgeID:       fmt.Sprintf("%s__%s", startNodeID, name),
		SourceNodeID: startNodeID,
		TargetNodeID: name,
		ActionSets: []domain.ActionSet{
			{ID: "forward", Actions: []domain.Action{{Command: "click_element", ActionType: "remote", Params: map[string]any{"text": item}}}},
			{ID: "reverse", Actions: []domain.Action{{Command: "press_key", ActionType: "remote", Params: map[string]any{"key": "BACK"}}}},
		},
		DefaultActionSetID: "forward",
	}
	return node, edge
}

// RunRemoteCommand sends one remote-controller command (click, press,
// dpad movement) and returns its result.
func (e *Engine) RunRemoteCommand(ctx context.Context, command string, params map[string]any) (domain.ActionResult, error) {
	device, err := e.device()
	if err != nil {
		return domain.ActionResult{}, err
	}
	c, ok := device.Controller(domain.ControllerKindRemote)
	if !ok {
		return domain.ActionResult{}, fmt.Errorf("device %s has no remote controller", e.deviceID)
	}
	return c.(domain.RemoteController).SendCommand(ctx, command, params)
}

// CaptureScreen takes a screenshot and, where available, a structural
// UI dump; OCR fallback applies a minimum confidence threshold.
const minOCRConfidence = 0.6

func (e *Engine) CaptureScreen(ctx context.Context, userInterfaceName, filename string) (screenshotURL string, dump domain.UIDump, err error) {
	device, err := e.device()
	if err != nil {
		return "", domain.UIDump{}, err
	}

	avC, ok := device.Controller(domain.ControllerKindAV)
	if !ok {
		return "", domain.UIDump{}, fmt.Errorf("device %s has no av controller", e.deviceID)
	}
	localPath, err := avC.(domain.AVController).Screenshot(ctx)
	if err != nil {
		return "", domain.UIDump{}, fmt.Errorf("screenshot capture failed: %w", err)
	}

	screenshotURL, err = e.objects.UploadNavigationScreenshot(ctx, localPath, userInterfaceName, filename)
	if err != nil {
		return "", domain.UIDump{}, fmt.Errorf("screenshot upload failed: %w", err)
	}

	if remoteC, ok := device.Controller(domain.ControllerKindRemote); ok {
		if remote, ok := remoteC.(domain.RemoteController); ok {
			if d, hasDump, dErr := remote.DumpUI(ctx); dErr == nil && hasDump {
				if d.OCRText != "" && d.OCRConf < minOCRConfidence {
					d.OCRText = ""
				}
				return screenshotURL, d, nil
			}
		}
	}

	return screenshotURL, domain.UIDump{}, nil
}

var (
	htmlEntityRe   = regexp.MustCompile(`&[a-zA-Z#0-9]+;`)
	nonAlnumRe     = regexp.MustCompile(`[^a-z0-9]+`)
	trimUnderscore = regexp.MustCompile(`^_+|_+$`)
	commonSuffixes = []string{" app", " screen", " menu", " tab"}
)

// NormalizeItemName turns a raw menu-item string into a clean node
// name: lower-case, strip HTML entities and common suffixes, fold
// accents, collapse non-alphanumerics to underscore.
func NormalizeItemName(s string) string {
	s = htmlEntityRe.ReplaceAllString(s, "")
	s = strings.ToLower(strings.TrimSpace(s))
	for _, suffix := range commonSuffixes {
		s = strings.TrimSuffix(s, suffix)
	}
	s = foldAccents(s)
	s = nonAlnumRe.ReplaceAllString(s, "_")
	s = trimUnderscore.ReplaceAllString(s, "")
	if s == "" {
		s = "item"
	}
	return s
}

// foldAccents decomposes runes (NFD) then drops the resulting
// combining marks, so "café" becomes "cafe" before the
// non-alphanumeric collapse runs.
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
