package config

import (
	"hostcp/internal/controller"
	"hostcp/internal/domain"
)

// BuildHost constructs the process's Host and its Devices from cfg,
// registering each device's controllers through reg. Devices with no
// recognised capability still get added, with an empty controller set,
// so registry/status endpoints can report them as present-but-idle.
func BuildHost(cfg *Config, reg *controller.Registry) *domain.Host {
	host := domain.NewHost(cfg.Host.URL, cfg.Host.Port, cfg.Host.Name, cfg.Host.URL)

	for _, dc := range cfg.Devices {
		device := domain.NewDevice(dc.Name, dc.Name, dc.Model, dc.IP, dc.Port)
		device.VideoStreamPath = dc.VideoStreamPath
		device.VideoCapturePath = dc.VideoCapturePath
		device.IRType = dc.IRType

		reg.BuildDevice(device, deviceSpecs(dc))
		host.AddDevice(device)
	}

	return host
}

// deviceSpecs derives the controller.Spec list for one device block
// from the env vars the bring-up config supplies: IR fields imply an
// infrared remote, APPIUM fields imply a web/playwright driver, POWER
// fields imply a tapo-style outlet, and a video stream always implies
// an av controller so Screenshot()/verification has something to read.
func deviceSpecs(dc DeviceConfig) []controller.Spec {
	var specs []controller.Spec

	if dc.Video {
		specs = append(specs, controller.Spec{
			Kind: domain.ControllerKindAV, Implementation: "hdmi_stream",
			Config: map[string]any{"capture_path": dc.VideoCapturePath, "stream_path": dc.VideoStreamPath},
		})
	}

	switch {
	case dc.IRPath != "":
		specs = append(specs, controller.Spec{
			Kind: domain.ControllerKindRemote, Implementation: "infrared",
			Config: map[string]any{"ir_path": dc.IRPath},
		})
	case dc.IP != "":
		specs = append(specs, controller.Spec{
			Kind: domain.ControllerKindRemote, Implementation: "adb",
			Config: map[string]any{"ip": dc.IP, "port": dc.Port},
		})
	}

	if dc.AppiumURL != "" {
		specs = append(specs, controller.Spec{
			Kind: domain.ControllerKindWeb, Implementation: "playwright",
			Config: map[string]any{"appium_url": dc.AppiumURL},
		})
	}

	if dc.PowerType != "" {
		specs = append(specs, controller.Spec{
			Kind: domain.ControllerKindPower, Implementation: "tapo",
			Config: map[string]any{"power_ip": dc.PowerIP, "power_outlet": dc.PowerOutlet},
		})
	}

	if dc.IRPath != "" || dc.IP != "" {
		specs = append(specs, controller.Spec{Kind: domain.ControllerKindVerification, Implementation: "image"})
		specs = append(specs, controller.Spec{Kind: domain.ControllerKindVerification, Implementation: "adb"})
	}

	return specs
}
