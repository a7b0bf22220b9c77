// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes conversations to shareable files.
//
// # Key Types
//
//   - Exporter: Converts a conversation to bytes in one format
//   - Options: Output directory, labels, metadata and theme
//
// # Supported Formats
//
//   - markdown: YAML frontmatter and one section per message
//   - json: The persisted conversation record plus export metadata
//   - html: Standalone page, message content rendered with goldmark
//
// # Usage
//
//	exp, err := export.New("html", &export.Options{AssistantName: "Zara"})
//	if err != nil {
//	    return err
//	}
//	path, err := export.ExportToFile(conv, exp, nil)
package export
