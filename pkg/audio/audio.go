// Package audio detects the MIME type of recorded answers.
package audio

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMIMEType is assumed when neither the caller nor the content says
// otherwise. Browser recorders produce webm.
const DefaultMIMEType = "audio/webm"

// MIMEType picks the MIME type for a recording. A specific declared type wins;
// a missing or generic one ("application/octet-stream") is sniffed from data.
// Container types shared with video (webm, ogg, mp4) are reported as audio.
func MIMEType(data []byte, declared string) string {
	declared = strings.TrimSpace(declared)
	if i := strings.IndexByte(declared, ';'); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if len(data) == 0 {
		return DefaultMIMEType
	}

	mt := mimetype.Detect(data)
	for m := mt; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "audio/") {
			return m.String()
		}
	}
	switch {
	case mt.Is("video/webm"):
		return "audio/webm"
	case mt.Is("video/mp4"):
		return "audio/mp4"
	case mt.Is("application/ogg"):
		return "audio/ogg"
	}
	return DefaultMIMEType
}
