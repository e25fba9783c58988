package download

import "time"

// Messages sent on a Manager's event channel.

type ItemQueuedMsg struct {
	ItemID string      `json:"id"`
	Kind   ContentKind `json:"kind"`
	Title  string      `json:"title"`
}

type ItemStartedMsg struct {
	ItemID string      `json:"id"`
	Kind   ContentKind `json:"kind"`
	Title  string      `json:"title"`
	Pages  int         `json:"pages"`
}

type ItemCompleteMsg struct {
	ItemID  string        `json:"id"`
	Kind    ContentKind   `json:"kind"`
	Title   string        `json:"title"`
	Elapsed time.Duration `json:"elapsed"`
}

type ItemErrorMsg struct {
	ItemID  string      `json:"id"`
	Kind    ContentKind `json:"kind"`
	Title   string      `json:"title"`
	Err     error       `json:"-"`
	Message string      `json:"error"`
}

type ItemRemovedMsg struct {
	ItemID string      `json:"id"`
	Kind   ContentKind `json:"kind"`
	Title  string      `json:"title"`
}

type QueuePausedMsg struct {
	Kind    ContentKind `json:"kind"`
	Pending int         `json:"pending"`
}
