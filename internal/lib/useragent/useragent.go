// Package useragent грубо классифицирует клиента по строке User-Agent.
//
// Классификация эвристическая и используется только для метаданных платежа.
package useragent

import "strings"

// Типы устройств.
const (
	DeviceMobile  = "Mobile"
	DeviceTablet  = "Tablet"
	DeviceDesktop = "Desktop"
)

// Браузеры.
const (
	BrowserChrome  = "Chrome"
	BrowserFirefox = "Firefox"
	BrowserSafari  = "Safari"
	BrowserUnknown = "Unknown"
)

// Client - результат классификации.
type Client struct {
	DeviceType string `json:"device_type"`
	Browser    string `json:"browser"`
}

// Classify определяет тип устройства и браузер по подстрокам.
// Порядок проверок важен: мобильные строки часто содержат "Safari", а Chrome - тоже "Safari".
func Classify(ua string) Client {
	s := strings.ToLower(ua)

	device := DeviceDesktop
	switch {
	case strings.Contains(s, "mobile"):
		device = DeviceMobile
	case strings.Contains(s, "tablet"), strings.Contains(s, "ipad"):
		device = DeviceTablet
	}

	browser := BrowserUnknown
	switch {
	case strings.Contains(s, "chrome"):
		browser = BrowserChrome
	case strings.Contains(s, "firefox"):
		browser = BrowserFirefox
	case strings.Contains(s, "safari"):
		browser = BrowserSafari
	}

	return Client{DeviceType: device, Browser: browser}
}
