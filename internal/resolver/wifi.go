package resolver

import "regexp"

const defaultEncryption = "WPA"

var wifiPattern = regexp.MustCompile(`WIFI:T:([^;]+);S:([^;]+);P:([^;]+);;`)

type WiFi struct {
	Encryption string
	SSID       string
	Password   string
}

// ParseWiFi never fails: malformed content yields WPA with empty credentials
func ParseWiFi(content string) WiFi {
	m := wifiPattern.FindStringSubmatch(content)
	if m == nil {
		return WiFi{Encryption: defaultEncryption}
	}
	return WiFi{
		Encryption: m[1],
		SSID:       m[2],
		Password:   m[3],
	}
}
