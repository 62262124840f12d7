package domain

// Validation Helpers

const (
	// MaxDescriptionLen caps the free-text description of a report.
	MaxDescriptionLen = 2000

	// MaxVoiceSeconds caps a voice note's duration. The capture UI stops
	// recording at this limit; the server enforces it on upload too.
	MaxVoiceSeconds = 60

	maxPhotoBytes = 10 << 20
	maxVoiceBytes = 5 << 20
)

var photoMIMEs = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

var voiceMIMEs = map[string]bool{
	"audio/webm": true,
	"audio/ogg":  true,
	"audio/mp4":  true,
}

// IsAllowedAttachmentMIME checks the MIME type against the allowlist for
// the given attachment kind.
func IsAllowedAttachmentMIME(kind AttachmentKind, mime string) bool {
	switch kind {
	case AttachmentPhoto:
		return photoMIMEs[mime]
	case AttachmentVoice:
		return voiceMIMEs[mime]
	}
	return false
}

// MaxAttachmentBytes returns the upload size cap for the given kind.
func MaxAttachmentBytes(kind AttachmentKind) int64 {
	if kind == AttachmentVoice {
		return maxVoiceBytes
	}
	return maxPhotoBytes
}

// ValidateDraft checks a report draft before it reaches the service layer.
// The coordinate is checked only when supplied explicitly; a draft without
// one must be backed by a session selection.
func ValidateDraft(d ReportDraft) error {
	if !d.Category.IsValid() {
		return ErrInvalidCategory
	}
	if len(d.Description) > MaxDescriptionLen {
		return ErrDescriptionLength
	}
	if d.Coordinate != nil {
		return d.Coordinate.Validate()
	}
	return nil
}
