// Package config loads the host/device fleet configuration from
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
)

const maxDevices = 4

// HostConfig is the process-wide host identity and media paths.
type HostConfig struct {
	Name             string
	Port             int
	URL              string
	VNCStreamPath    string
	VideoCapturePath string
	VNCPassword      string
	WebBrowserPath   string
}

// DeviceConfig is one DEVICE{i}_* block.
type DeviceConfig struct {
	Index            int
	Name             string
	Model            string
	Video            bool
	VideoStreamPath  string
	VideoCapturePath string
	IP               string
	Port             int
	IRPath           string
	IRType           string
	PowerType        string
	PowerIP          string
	PowerOutlet      string
	AppiumURL        string
	AppiumCapability string
}

// Config is the full environment-derived configuration: one host plus
// up to four devices, in DEVICE{i} declaration order.
type Config struct {
	Host     HostConfig
	Devices  []DeviceConfig
	LogLevel string

	DatabaseDSN        string
	OpenAIAPIKey       string
	OpenAIModel        string
	CallbackURL        string
	CallbackSignKey    string
	ObjectStoreRoot    string
	ObjectStoreBaseURL string
}

// Load reads the documented host/device environment variables. Missing
// per-device blocks are simply absent from Devices — a ConfigError is
// not raised here since a host may legitimately run zero devices
// during bring-up; callers that need at least one device check len().
func Load() *Config {
	cfg := &Config{
		Host: HostConfig{
			Name:             getEnv("HOST_NAME", "host-1"),
			Port:             getEnvInt("HOST_PORT", 8080),
			URL:              getEnv("HOST_URL", ""),
			VNCStreamPath:    getEnv("HOST_VNC_STREAM_PATH", ""),
			VideoCapturePath: getEnv("HOST_VIDEO_CAPTURE_PATH", ""),
			VNCPassword:      getEnv("HOST_VNC_PASSWORD", ""),
			WebBrowserPath:   getEnv("HOST_WEB_BROWSER_PATH", ""),
		},
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseDSN:        getEnv("DATABASE_DSN", ""),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:        getEnv("OPENAI_MODEL", ""),
		CallbackURL:        getEnv("CALLBACK_URL", ""),
		CallbackSignKey:    getEnv("CALLBACK_SIGN_KEY", ""),
		ObjectStoreRoot:    getEnv("OBJECT_STORE_ROOT", "./data/uploads"),
		ObjectStoreBaseURL: getEnv("OBJECT_STORE_BASE_URL", "http://localhost:8080/files"),
	}

	for i := 1; i <= maxDevices; i++ {
		name := getEnv(fmt.Sprintf("DEVICE%d_NAME", i), "")
		if name == "" {
			continue
		}
		cfg.Devices = append(cfg.Devices, DeviceConfig{
			Index:            i,
			Name:             name,
			Model:            getEnv(fmt.Sprintf("DEVICE%d_MODEL", i), ""),
			Video:            getEnvBool(fmt.Sprintf("DEVICE%d_VIDEO", i), false),
			VideoStreamPath:  getEnv(fmt.Sprintf("DEVICE%d_VIDEO_STREAM_PATH", i), ""),
			VideoCapturePath: getEnv(fmt.Sprintf("DEVICE%d_VIDEO_CAPTURE_PATH", i), ""),
			IP:               getEnv(fmt.Sprintf("DEVICE%d_IP", i), ""),
			Port:             getEnvInt(fmt.Sprintf("DEVICE%d_PORT", i), 0),
			IRPath:           getEnv(fmt.Sprintf("DEVICE%d_IR_PATH", i), ""),
			IRType:           getEnv(fmt.Sprintf("DEVICE%d_IR_TYPE", i), ""),
			PowerType:        getEnv(fmt.Sprintf("DEVICE%d_POWER_TYPE", i), ""),
			PowerIP:          getEnv(fmt.Sprintf("DEVICE%d_POWER_IP", i), ""),
			PowerOutlet:      getEnv(fmt.Sprintf("DEVICE%d_POWER_OUTLET", i), ""),
			AppiumURL:        getEnv(fmt.Sprintf("DEVICE%d_APPIUM_URL", i), ""),
			AppiumCapability: getEnv(fmt.Sprintf("DEVICE%d_APPIUM_CAPABILITY", i), ""),
		})
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}
