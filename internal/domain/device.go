package domain

import "sync"

// Host owns a fleet of devices, built once per process from
// environment configuration (see internal/infrastructure/config).
type Host struct {
	HostIP   string
	HostPort int
	HostName string
	HostURL  string

	mu      sync.RWMutex
	devices map[string]*Device
}

func NewHost(ip string, port int, name, url string) *Host {
	return &Host{HostIP: ip, HostPort: port, HostName: name, HostURL: url, devices: make(map[string]*Device)}
}

func (h *Host) AddDevice(d *Device) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.devices[d.DeviceID] = d
}

func (h *Host) Device(id string) (*Device, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	d, ok := h.devices[id]
	return d, ok
}

func (h *Host) Devices() []*Device {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Device, 0, len(h.devices))
	for _, d := range h.devices {
		out = append(out, d)
	}
	return out
}

// Device is exclusively owned by its Host. Its capability set is the
// set of ControllerKind for which Controllers[kind] is non-empty.
type Device struct {
	DeviceID         string
	DeviceName       string
	DeviceModel      string
	DeviceIP         string
	DevicePort       int
	VideoStreamPath  string
	VideoCapturePath string
	IRType           string

	mu          sync.RWMutex
	controllers map[ControllerKind][]Controller
}

func NewDevice(id, name, model, ip string, port int) *Device {
	return &Device{
		DeviceID:    id,
		DeviceName:  name,
		DeviceModel: model,
		DeviceIP:    ip,
		DevicePort:  port,
		controllers: make(map[ControllerKind][]Controller),
	}
}

// AddController registers a constructed controller under its kind.
// Called only by internal/controller's registry; a construction
// failure for one controller must never prevent others from being
// added.
func (d *Device) AddController(kind ControllerKind, c Controller) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.controllers[kind] = append(d.controllers[kind], c)
}

// Controller returns the first controller of kind, if any.
func (d *Device) Controller(kind ControllerKind) (Controller, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	list := d.controllers[kind]
	if len(list) == 0 {
		return nil, false
	}
	return list[0], true
}

// Controllers returns every controller of kind.
func (d *Device) Controllers(kind ControllerKind) []Controller {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Controller, len(d.controllers[kind]))
	copy(out, d.controllers[kind])
	return out
}

// Capabilities returns the set of kinds with at least one member.
func (d *Device) Capabilities() map[ControllerKind]bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	caps := make(map[ControllerKind]bool, len(d.controllers))
	for kind, list := range d.controllers {
		if len(list) > 0 {
			caps[kind] = true
		}
	}
	return caps
}
