// Package clientmeta derives device, browser, address and location of a scanning client.
//
// Everything here is local: user agent classification is a pure function and the
// geolocation lookup goes to an in-process database, bounded by a timeout so a slow
// lookup degrades to an empty location instead of delaying the redirect.
package clientmeta

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mssola/useragent"

	"qrtrack/entity"
)

const (
	ipv4MappedPrefix = "::ffff:"
	// MaxHeaderLength caps stored user agent and referrer, Scan validation rejects longer values
	MaxHeaderLength = 2048
)

type GeoResolver interface {
	Lookup(ip string) entity.Location
}

// Request holds the raw header values the extractor works from
type Request struct {
	UserAgent    string
	ForwardedFor string
	RealIP       string
	RemoteAddr   string
	Referrer     string
}

func FromHTTP(r *http.Request) Request {
	referrer := r.Header.Get("Referer")
	if referrer == "" {
		referrer = r.Header.Get("Referrer")
	}
	return Request{
		UserAgent:    r.Header.Get("User-Agent"),
		ForwardedFor: r.Header.Get("X-Forwarded-For"),
		RealIP:       r.Header.Get("X-Real-IP"),
		RemoteAddr:   r.RemoteAddr,
		Referrer:     referrer,
	}
}

type Extractor struct {
	geo     GeoResolver
	timeout time.Duration
}

func New(geo GeoResolver, timeout time.Duration) *Extractor {
	if timeout <= 0 {
		timeout = 50 * time.Millisecond
	}
	return &Extractor{
		geo:     geo,
		timeout: timeout,
	}
}

func (e *Extractor) Extract(ctx context.Context, req Request) *entity.ClientMeta {
	userAgent := truncate(req.UserAgent, MaxHeaderLength)
	browser, os, device := ParseUserAgent(userAgent)
	ip := ClientIP(req)
	return &entity.ClientMeta{
		Browser:   browser,
		OS:        os,
		Device:    device,
		IP:        ip,
		UserAgent: userAgent,
		Location:  e.locate(ctx, ip),
		Referrer:  truncate(req.Referrer, MaxHeaderLength),
	}
}

// truncate keeps at most n characters of s
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

func (e *Extractor) locate(ctx context.Context, ip string) entity.Location {
	if e.geo == nil || ip == "" {
		return entity.Location{}
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	result := make(chan entity.Location, 1)
	go func() {
		defer func() {
			if recover() != nil {
				result <- entity.Location{}
			}
		}()
		result <- e.geo.Lookup(ip)
	}()

	select {
	case loc := <-result:
		return loc
	case <-ctx.Done():
		return entity.Location{}
	}
}

// ClientIP picks the first forwarded address, then X-Real-IP, then the peer address;
// an unparsable pick gives an empty address
func ClientIP(req Request) string {
	ip := pickIP(req)
	if net.ParseIP(ip) == nil {
		return ""
	}
	return ip
}

// PeerIP is the address to key per-client limits on: the connection peer, or
// with trustedProxies in front the forwarded hop appended by the outermost trusted proxy.
// Entries a client prepends to X-Forwarded-For are never used.
func PeerIP(req Request, trustedProxies int) string {
	ip := peerAddress(req.RemoteAddr)
	if trustedProxies > 0 && req.ForwardedFor != "" {
		hops := strings.Split(req.ForwardedFor, ",")
		i := len(hops) - trustedProxies
		if i < 0 {
			i = 0
		}
		if hop := strings.TrimSpace(hops[i]); hop != "" {
			ip = NormalizeIP(hop)
		}
	}
	if net.ParseIP(ip) == nil {
		return ""
	}
	return ip
}

func peerAddress(remote string) string {
	if host, _, err := net.SplitHostPort(remote); err == nil {
		remote = host
	}
	return NormalizeIP(remote)
}

func pickIP(req Request) string {
	if req.ForwardedFor != "" {
		first := strings.TrimSpace(strings.Split(req.ForwardedFor, ",")[0])
		if first != "" {
			return NormalizeIP(first)
		}
	}
	if ip := strings.TrimSpace(req.RealIP); ip != "" {
		return NormalizeIP(ip)
	}
	return peerAddress(req.RemoteAddr)
}

func NormalizeIP(ip string) string {
	ip = strings.TrimPrefix(ip, "[")
	ip = strings.TrimSuffix(ip, "]")
	return strings.TrimPrefix(ip, ipv4MappedPrefix)
}

// ParseUserAgent is deterministic; device type is never empty
func ParseUserAgent(raw string) (entity.Browser, entity.OS, entity.Device) {
	ua := useragent.New(raw)

	var browser entity.Browser
	browser.Name, browser.Version = ua.Browser()

	info := ua.OSInfo()
	os := entity.OS{
		Name:    info.Name,
		Version: info.Version,
	}

	return browser, os, classifyDevice(ua, raw)
}

func classifyDevice(ua *useragent.UserAgent, raw string) entity.Device {
	device := entity.Device{Type: entity.DeviceDesktop}
	platform := ua.Platform()

	switch {
	case ua.Bot():
		device.Type = entity.DeviceBot
	case platform == "iPad" || strings.Contains(raw, "Tablet"):
		device.Type = entity.DeviceTablet
	case strings.Contains(raw, "Android") && !strings.Contains(raw, "Mobile"):
		device.Type = entity.DeviceTablet
	case ua.Mobile():
		device.Type = entity.DeviceMobile
	}
	if device.Type == entity.DeviceDesktop || device.Type == entity.DeviceBot {
		return device
	}

	switch platform {
	case "iPhone", "iPad", "iPod", "iPod touch":
		device.Vendor = "Apple"
		device.Model = platform
	default:
		device.Model = androidModel(raw)
	}
	return device
}

// androidModel reads the token after the Android version: "(Linux; Android 13; Pixel 7)"
func androidModel(raw string) string {
	start := strings.Index(raw, "Android")
	if start < 0 {
		return ""
	}
	rest := raw[start:]
	if end := strings.Index(rest, ")"); end >= 0 {
		rest = rest[:end]
	}
	parts := strings.Split(rest, ";")
	if len(parts) < 2 {
		return ""
	}
	model := strings.TrimSpace(parts[1])
	if i := strings.Index(model, " Build/"); i >= 0 {
		model = model[:i]
	}
	if model == "K" || model == "wv" {
		return ""
	}
	return model
}
