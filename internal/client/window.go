package client

import (
	"slices"

	"github.com/mfreile/supportchat/internal/types"
)

// window is the paginated message sequence for the active room, kept in
// ascending creation-time order at all times.
type window struct {
	messages []types.Message
}

func (w *window) Messages() []types.Message {
	return w.messages
}

func (w *window) reset(msgs []types.Message) {
	w.messages = slices.Clone(msgs)
}

// prependOlder merges a backward page in front of the window, dropping any
// row whose id is already present so a pagination overlap never produces
// duplicates.
func (w *window) prependOlder(older []types.Message) {
	seen := make(map[string]struct{}, len(w.messages))
	for _, m := range w.messages {
		seen[m.Id] = struct{}{}
	}

	merged := make([]types.Message, 0, len(older)+len(w.messages))
	for _, m := range older {
		if _, ok := seen[m.Id]; ok {
			continue
		}
		merged = append(merged, m)
	}
	merged = append(merged, w.messages...)
	w.messages = merged
}

// upsert replaces the row with a matching id in place, preserving window
// order, or appends when the id is new.
func (w *window) upsert(msg types.Message) {
	for i, m := range w.messages {
		if m.Id == msg.Id {
			w.messages[i] = msg
			return
		}
	}
	w.messages = append(w.messages, msg)
}

func (w *window) remove(id string) {
	for i, m := range w.messages {
		if m.Id == id {
			w.messages = slices.Delete(w.messages, i, i+1)
			return
		}
	}
}

// oldest returns the creation time of the first message, used as the
// backward pagination cursor.
func (w *window) oldest() (types.Message, bool) {
	if len(w.messages) == 0 {
		return types.Message{}, false
	}
	return w.messages[0], true
}

func (w *window) len() int {
	return len(w.messages)
}
