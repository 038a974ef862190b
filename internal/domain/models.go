package domain

import (
	"io"
	"time"
)

// StoredImage is a file inside the upload directory.
type StoredImage struct {
	Name    string    `json:"name"`
	Path    string    `json:"-"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// UploadRequest lives for one POST. FieldPresent reports whether the
// multipart form carried a "file" field at all; TooLarge that the body hit
// the upload size limit before it could be parsed.
type UploadRequest struct {
	FieldPresent bool
	TooLarge     bool
	Filename     string
	Content      io.Reader
}

type UploadState string

const (
	StateRejected         UploadState = "rejected"
	StateConverted        UploadState = "converted"
	StateConversionFailed UploadState = "conversion_failed"
)

type RejectReason string

const (
	ReasonNone                RejectReason = ""
	ReasonMissingFile         RejectReason = "missing_file"
	ReasonEmptyFilename       RejectReason = "empty_filename"
	ReasonDisallowedExtension RejectReason = "disallowed_extension"
	ReasonTooLarge            RejectReason = "too_large"
)

var notices = map[RejectReason]string{
	ReasonMissingFile:         "No file part",
	ReasonEmptyFilename:       "No selected file",
	ReasonDisallowedExtension: "File type not allowed",
	ReasonTooLarge:            "File too large",
}

// Notice is the user-facing text shown when the form is redisplayed.
func (r RejectReason) Notice() string {
	return notices[r]
}

type UploadResult struct {
	State    UploadState
	Reason   RejectReason
	Filename string
}

func Rejected(reason RejectReason) UploadResult {
	return UploadResult{State: StateRejected, Reason: reason}
}

// Outcome is a stable label for metrics and logs.
func (r UploadResult) Outcome() string {
	if r.State == StateRejected {
		return "rejected_" + string(r.Reason)
	}
	return string(r.State)
}

// SweepReport summarises one retention pass.
type SweepReport struct {
	Scanned  int
	Removed  []string
	Retained []string
	Failed   map[string]error
}
