// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package gemini implements media.Client with the Gemini Files API.
package gemini

import (
	"context"
	"path/filepath"

	"google.golang.org/genai"

	"github.com/jllopis/agentdeck/pkg/errors"
	"github.com/jllopis/agentdeck/pkg/media"
)

// FileClient uploads files for use in Gemini prompts.
type FileClient struct {
	client *genai.Client
}

// NewFileClient wraps a genai client configured for the Gemini API backend.
func NewFileClient(client *genai.Client) *FileClient {
	return &FileClient{client: client}
}

// Upload implements media.Client.
func (c *FileClient) Upload(ctx context.Context, path, mimeType string) (*media.File, error) {
	f, err := c.client.Files.UploadFromPath(ctx, path, &genai.UploadFileConfig{
		MIMEType:    mimeType,
		DisplayName: filepath.Base(path),
	})
	if err != nil {
		return nil, errors.New(errors.CodeMediaError, "failed to upload file", err).
			WithContext("path", filepath.Base(path))
	}
	return toFile(f), nil
}

// Get implements media.Client.
func (c *FileClient) Get(ctx context.Context, name string) (*media.File, error) {
	f, err := c.client.Files.Get(ctx, name, nil)
	if err != nil {
		return nil, errors.New(errors.CodeMediaError, "failed to get file", err).
			WithContext("file", name).
			WithRecoverable(true)
	}
	return toFile(f), nil
}

// Delete implements media.Client.
func (c *FileClient) Delete(ctx context.Context, name string) error {
	if _, err := c.client.Files.Delete(ctx, name, nil); err != nil {
		return errors.New(errors.CodeMediaError, "failed to delete file", err).WithContext("file", name)
	}
	return nil
}

func toFile(f *genai.File) *media.File {
	if f == nil {
		return nil
	}
	out := &media.File{
		Name:        f.Name,
		DisplayName: f.DisplayName,
		URI:         f.URI,
		MIMEType:    f.MIMEType,
		State:       toState(f.State),
	}
	if f.SizeBytes != nil {
		out.SizeBytes = *f.SizeBytes
	}
	if f.Error != nil {
		out.Error = f.Error.Message
	}
	return out
}

func toState(s genai.FileState) media.State {
	switch s {
	case genai.FileStateProcessing:
		return media.StateProcessing
	case genai.FileStateActive:
		return media.StateActive
	case genai.FileStateFailed:
		return media.StateFailed
	default:
		return media.StateUnspecified
	}
}
