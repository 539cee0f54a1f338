package services

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"io"
	"net/url"
	"strings"
	"unicode/utf8"
)

const (
	// imageProxyHost identifies hotlink-protected image proxy URLs.
	imageProxyHost = "img.chime.me"
	// imageTokenMarker precedes the encoded source URL in the proxy path.
	imageTokenMarker = "original_"
	// maxDecodedURL bounds inflation of a single token.
	maxDecodedURL = 16 << 10
)

// DecodeImageURL unwraps a proxy image URL of the form
//
//	https://img.chime.me/imageemb/mls-listing/{id}/{id}/{hash}/{ts}/original_{token}.jpg
//
// where token is URL-safe base64 over a raw DEFLATE stream holding the
// permanent CDN URL. Anything that is not a proxy URL, or fails to decode
// at any step, is returned unchanged.
func DecodeImageURL(raw string) string {
	if !isProxyImageURL(raw) {
		return raw
	}

	parts := strings.Split(raw, imageTokenMarker)
	if len(parts) != 2 {
		return raw
	}

	token := trimTokenSuffix(parts[1])
	if token == "" {
		return raw
	}

	decoded, ok := inflateToken(token)
	if !ok {
		return raw
	}
	return decoded
}

func isProxyImageURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return strings.Contains(u.Host, imageProxyHost)
}

// trimTokenSuffix drops any query/fragment and a trailing ".ext".
// The base64 alphabet never contains '.', so the last dot starts the extension.
func trimTokenSuffix(s string) string {
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	return s
}

func inflateToken(token string) (string, bool) {
	std := strings.NewReplacer("-", "+", "_", "/").Replace(token)
	std = strings.TrimRight(std, "=")
	if rem := len(std) % 4; rem != 0 {
		std += strings.Repeat("=", 4-rem)
	}

	compressed, err := base64.StdEncoding.DecodeString(std)
	if err != nil {
		return "", false
	}

	r := flate.NewReader(bytes.NewReader(compressed))
	defer r.Close()

	out, err := io.ReadAll(io.LimitReader(r, maxDecodedURL))
	if err != nil || len(out) == 0 || !utf8.Valid(out) {
		return "", false
	}

	decoded := strings.TrimSpace(string(out))
	u, err := url.Parse(decoded)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return "", false
	}
	return decoded, true
}
