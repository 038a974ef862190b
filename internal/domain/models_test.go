package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUploadResultOutcome(t *testing.T) {
	assert.Equal(t, "converted", UploadResult{State: StateConverted, Filename: "a.png"}.Outcome())
	assert.Equal(t, "conversion_failed", UploadResult{State: StateConversionFailed}.Outcome())
	assert.Equal(t, "rejected_missing_file", Rejected(ReasonMissingFile).Outcome())
}

func TestRejectReasonNotice(t *testing.T) {
	assert.Equal(t, "No file part", ReasonMissingFile.Notice())
	assert.Equal(t, "No selected file", ReasonEmptyFilename.Notice())
	assert.Equal(t, "File type not allowed", ReasonDisallowedExtension.Notice())
	assert.Equal(t, "File too large", ReasonTooLarge.Notice())
	assert.Empty(t, ReasonNone.Notice())
}
