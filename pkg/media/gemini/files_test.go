// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package gemini

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"

	"github.com/jllopis/agentdeck/pkg/media"
)

var _ media.Client = (*FileClient)(nil)

func TestToFile(t *testing.T) {
	size := int64(2048)
	f := toFile(&genai.File{
		Name:      "files/abc123",
		URI:       "https://generativelanguage.googleapis.com/v1beta/files/abc123",
		MIMEType:  "video/mp4",
		SizeBytes: &size,
		State:     genai.FileStateProcessing,
	})
	assert.Equal(t, "files/abc123", f.Name)
	assert.Equal(t, media.StateProcessing, f.State)
	assert.Equal(t, int64(2048), f.SizeBytes)
	assert.Equal(t, "video/mp4", f.Media().MIMEType)

	failed := toFile(&genai.File{Name: "files/x", State: genai.FileStateFailed, Error: &genai.FileStatus{Message: "bad codec"}})
	assert.Equal(t, media.StateFailed, failed.State)
	assert.Equal(t, "bad codec", failed.Error)

	assert.Equal(t, media.StateActive, toState(genai.FileStateActive))
	assert.Equal(t, media.StateUnspecified, toState(genai.FileStateUnspecified))
	assert.Nil(t, toFile(nil))
}
