package media

import (
	"encoding/base64"
	"os"
	"strings"
)

// EncodeDataURI inlines the file at path as a base64 data URI. It returns
// false when the file cannot be read or is empty; callers skip the media.
func EncodeDataURI(path, mime string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return "", false
	}
	var b strings.Builder
	b.Grow(len("data:;base64,") + len(mime) + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString("data:")
	b.WriteString(mime)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String(), true
}

// EncodeAsset uses the asset's declared MIME type, sniffing it when unset.
func EncodeAsset(a Asset, kind Kind) (string, bool) {
	mime := a.MIME
	if mime == "" {
		mime, _ = Acceptable(a.Path, kind)
	}
	if mime == "" {
		return "", false
	}
	return EncodeDataURI(a.Path, mime)
}
