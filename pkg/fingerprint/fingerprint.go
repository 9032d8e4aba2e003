package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"sort"
	"strings"
)

// Generate creates a device fingerprint from the HTTP request.
// It combines User-Agent, Accept headers, client IP, and header order
// to create a 32-character hex string identifying the device/browser.
// The abuse scorer correlates trial signups by this value.
func Generate(r *http.Request) string {
	components := []string{
		r.UserAgent(),
		r.Header.Get("Accept-Language"),
		r.Header.Get("Accept-Encoding"),
		r.Header.Get("Accept"),
		ClientIP(r),
		headerOrder(r),
	}

	var filtered []string
	for _, comp := range components {
		if comp != "" {
			filtered = append(filtered, comp)
		}
	}

	combined := strings.Join(filtered, "|")
	hash := sha256.Sum256([]byte(combined))

	// First 16 bytes are enough for signup correlation
	return hex.EncodeToString(hash[:16])
}

// Matches compares the current request fingerprint with a stored fingerprint.
func Matches(r *http.Request, stored string) bool {
	return Generate(r) == stored
}

// ClientIP returns the client's IP address from the HTTP request.
// Priority order:
// 1. CF-Connecting-IP (Cloudflare)
// 2. X-Forwarded-For (standard proxy header, first valid IP wins)
// 3. X-Real-IP (Nginx reverse proxy)
// 4. RemoteAddr (direct connection fallback)
func ClientIP(r *http.Request) string {
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		if parsed := parseIP(ip); parsed != "" {
			return parsed
		}
	}

	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		for ip := range strings.SplitSeq(forwarded, ",") {
			if parsed := parseIP(strings.TrimSpace(ip)); parsed != "" {
				return parsed
			}
		}
	}

	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		if parsed := parseIP(ip); parsed != "" {
			return parsed
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return parseIP(r.RemoteAddr)
	}
	return parseIP(host)
}

// headerOrder fingerprints the set of stable headers the client sent.
// Different browsers and clients send different header sets, making this a
// useful distinguishing characteristic.
func headerOrder(r *http.Request) string {
	var headerNames []string
	for name := range r.Header {
		switch strings.ToLower(name) {
		case "user-agent", "accept", "accept-language", "accept-encoding",
			"connection", "upgrade-insecure-requests", "sec-fetch-dest",
			"sec-fetch-mode", "sec-fetch-site", "cache-control":
			headerNames = append(headerNames, strings.ToLower(name))
		}
	}

	sort.Strings(headerNames)
	return strings.Join(headerNames, ",")
}

// parseIP validates and normalizes an IP address string.
// Returns empty string if the IP is invalid.
func parseIP(ipStr string) string {
	ipStr = strings.TrimSpace(ipStr)
	if ipStr == "" {
		return ""
	}

	ip := net.ParseIP(ipStr)
	if ip == nil {
		return ""
	}

	return ip.String()
}
