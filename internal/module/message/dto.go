package message

// SendRequest is the input for POST /bookings/:id/messages.
type SendRequest struct {
	Body string `json:"body" binding:"required,max=2000"`
}

// ReadResult reports how many messages were marked read.
type ReadResult struct {
	Marked int64 `json:"marked"`
}

// UnreadCount is the number of unread messages across all bookings.
type UnreadCount struct {
	Count int64 `json:"count"`
}
