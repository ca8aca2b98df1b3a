package lifecycle

// Format labels a detected artifact image format.
type Format struct {
	Ext         string
	ContentType string
}

var (
	formatJPEG = Format{Ext: "jpg", ContentType: "image/jpeg"}
	formatPNG  = Format{Ext: "png", ContentType: "image/png"}
)

// DetectFormat classifies image bytes by their leading signature. Anything
// that is not a recognized PNG or JPEG header is treated as JPEG.
func DetectFormat(data []byte) Format {
	if len(data) < 2 {
		return formatJPEG
	}
	switch {
	case data[0] == 0xFF && data[1] == 0xD8:
		return formatJPEG
	case data[0] == 0x89 && data[1] == 0x50:
		return formatPNG
	default:
		return formatJPEG
	}
}
