package domain

// SendMessageCommand is the intent to relay one direct message.
type SendMessageCommand struct {
	Sender   string
	Receiver string
	Content  string
}

// GetHistoryCommand queries the durable log for an unordered participant pair.
type GetHistoryCommand struct {
	IdentityA string
	IdentityB string
	Cursor    *string
}
