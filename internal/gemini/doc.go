// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gemini adapts the Gemini streaming API for the chat manager.
//
// The client normalizes a conversation history into the API's request shape,
// injects the persona instruction into the first user turn of the outgoing
// request, and returns a lazy, single-use stream of text fragments.
//
// # Text repair
//
// Upstream chunks sometimes lose whitespace at token boundaries
// ("HelloWorld"). Fragments are buffered in batches of 10 characters; each
// batch re-repairs the whole buffer and yields only the new suffix, so the
// concatenation of yielded fragments only ever grows.
//
// # Errors
//
//   - AdapterInitError: missing API key or failed client construction
//   - StreamError: transport failure mid-stream, with the partial text
//
// # Usage
//
//	client := gemini.NewClient(gemini.Config{APIKey: key, Persona: persona})
//	stream, err := client.Generate(ctx, history)
//	if err != nil {
//	    return err // *AdapterInitError
//	}
//	for frag, err := range stream.Fragments() {
//	    ...
//	}
package gemini
