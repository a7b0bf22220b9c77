// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"
)

// timerSlot is a single-owner scheduled task. Scheduling again replaces the
// previous task; a task that fires after being replaced or stopped does
// nothing.
type timerSlot struct {
	name  string
	timer *time.Timer
	seq   uint64
}

// scheduleLocked runs fn under the manager lock after d and publishes the
// result. Caller holds m.mu.
func (m *Manager) scheduleLocked(slot *timerSlot, d time.Duration, fn func()) {
	m.stopLocked(slot)
	seq := slot.seq

	slot.timer = time.AfterFunc(d, func() {
		m.mu.Lock()
		if slot.seq != seq || m.closed {
			m.mu.Unlock()
			return
		}
		slot.timer = nil
		fn()
		m.log.Debug().Str("timer", slot.name).Msg("Timer fired")
		m.publishAndUnlock()
	})
}

// stopLocked cancels the slot's pending task. Caller holds m.mu.
func (m *Manager) stopLocked(slot *timerSlot) {
	slot.seq++
	if slot.timer != nil {
		slot.timer.Stop()
		slot.timer = nil
	}
}

// sleep waits for d or until ctx is done. It reports whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
