package migrate

import (
	"net/url"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ExtractID pulls the imgur image ID out of a URL. Direct image links
// (i.imgur.com/<id>.<ext>) and page links (imgur.com/<id>) both work;
// anything not hosted on imgur returns false.
func ExtractID(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", false
	}

	host := strings.ToLower(u.Hostname())
	if host != "imgur.com" && !strings.HasSuffix(host, ".imgur.com") {
		return "", false
	}

	base := path.Base(u.Path)
	if base == "." || base == "/" {
		return "", false
	}
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	if base == "" {
		return "", false
	}
	return base, true
}

// ExtFromURL returns the lowercased file extension of a URL without
// the dot, with jpeg normalized to jpg. Empty when the URL has none.
func ExtFromURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), "."))
	if ext == "jpeg" {
		ext = "jpg"
	}
	return ext
}

// CleanValue makes a variation value safe for use in an S3 key.
func CleanValue(value string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", " ", "_")
	return r.Replace(value)
}

var extTypes = map[string]string{
	"png": "image/png",
	"jpg": "image/jpeg",
	"gif": "image/gif",
}

// ContentTypeFor resolves the content type and final extension for a
// downloaded image: the URL extension when it is a known image type,
// otherwise magic-byte sniffing of the data.
func ContentTypeFor(ext string, data []byte) (string, string) {
	if ctype, ok := extTypes[ext]; ok {
		return ctype, ext
	}

	m := mimetype.Detect(data)
	sniffed := strings.TrimPrefix(m.Extension(), ".")
	if sniffed == "jpeg" {
		sniffed = "jpg"
	}
	if sniffed == "" {
		sniffed = "png"
	}
	return m.String(), sniffed
}
