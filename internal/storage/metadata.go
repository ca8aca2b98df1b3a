package storage

import "strings"

const maxMetadataValueLen = 200

// SanitizeMetadata copies metadata, dropping empty values and normalizing the
// rest for use as object-store headers: control and non-printable characters
// are stripped and values are capped at 200 characters, since metadata header
// fields reject anything else.
func SanitizeMetadata(metadata map[string]string) map[string]string {
	if len(metadata) == 0 {
		return nil
	}
	out := make(map[string]string, len(metadata))
	for k, v := range metadata {
		cleaned := sanitizeMetadataValue(v)
		if cleaned == "" {
			continue
		}
		out[k] = cleaned
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func sanitizeMetadataValue(v string) string {
	var b strings.Builder
	for _, r := range v {
		if r < 0x20 || r > 0x7e {
			continue
		}
		b.WriteRune(r)
		if b.Len() >= maxMetadataValueLen {
			break
		}
	}
	return strings.TrimSpace(b.String())
}
