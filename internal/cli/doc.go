// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the zara command line.
//
// # Commands
//
//   - zara: interactive chat with slash commands (/new, /list, /switch, ...)
//   - zara ask: one message from arguments or stdin, reply on stdout
//   - zara conversations: list, show, rename and delete stored conversations
//   - zara config: show, path, keys, get and set
//
// Every command builds an App from the config file and flags, runs, and
// closes it so pending conversation writes are flushed before exit.
//
// # Interactive mode
//
// On a terminal, input uses liner for line editing and history. Replies are
// printed as they stream; Ctrl+C cancels the reply in flight. Logs go to
// zara.log in the data directory so they do not interleave with the chat.
package cli
