// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package media uploads files to a model provider and waits for them to be
// processed before they are referenced in a prompt.
package media

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/jllopis/agentdeck/pkg/llm"
)

// State is the processing state of a remote file.
type State string

const (
	StateUnspecified State = "STATE_UNSPECIFIED"
	StateProcessing  State = "PROCESSING"
	StateActive      State = "ACTIVE"
	StateFailed      State = "FAILED"
)

// File is a remote media file.
type File struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
	URI         string `json:"uri"`
	MIMEType    string `json:"mime_type"`
	SizeBytes   int64  `json:"size_bytes,omitempty"`
	State       State  `json:"state"`
	// Error describes why processing failed.
	Error string `json:"error,omitempty"`
}

// Media returns the attachment referencing the file in a chat message.
func (f *File) Media() llm.Media {
	return llm.Media{URI: f.URI, MIMEType: f.MIMEType}
}

// Client uploads and inspects remote files.
type Client interface {
	Upload(ctx context.Context, path, mimeType string) (*File, error)
	Get(ctx context.Context, name string) (*File, error)
	Delete(ctx context.Context, name string) error
}

var videoTypes = map[string]string{
	".mp4": "video/mp4",
	".mov": "video/quicktime",
	".avi": "video/x-msvideo",
	".mkv": "video/x-matroska",
}

// VideoExtensions lists the accepted video upload extensions.
func VideoExtensions() []string {
	return []string{"mp4", "mov", "avi", "mkv"}
}

// VideoMIMEType returns the MIME type for an accepted video file name.
func VideoMIMEType(filename string) (string, bool) {
	mime, ok := videoTypes[strings.ToLower(filepath.Ext(filename))]
	return mime, ok
}
