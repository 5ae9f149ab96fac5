package bot

// Message is an incoming chat message as delivered by the embedding
// chat transport.
type Message struct {
	ChannelID   string
	ChatID      string
	Username    string
	DisplayName string
	AvatarURL   string
	Text        string
}

// Messenger is the outbound side of the chat transport. The concrete
// client (Discord, Slack, ...) is wired in by the embedder.
type Messenger interface {
	Send(channelID, text string) error
}
