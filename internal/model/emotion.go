// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// AvatarEmotion is the mood the assistant avatar displays.
type AvatarEmotion string

const (
	EmotionNeutral   AvatarEmotion = "neutral"
	EmotionHappy     AvatarEmotion = "happy"
	EmotionThinking  AvatarEmotion = "thinking"
	EmotionError     AvatarEmotion = "error"
	EmotionSurprised AvatarEmotion = "surprised"
	EmotionWink      AvatarEmotion = "wink"
	EmotionTyping    AvatarEmotion = "typing"
)

// IdleEmotions are the moods the avatar settles into after a reply.
var IdleEmotions = []AvatarEmotion{EmotionNeutral, EmotionWink, EmotionHappy}

// String returns the string representation of the emotion.
func (e AvatarEmotion) String() string {
	return string(e)
}
