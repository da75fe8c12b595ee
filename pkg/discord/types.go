package discord

import "time"

// Channel the parts of a channel the notifier inspects before sending
type Channel struct {
	ID      string
	GuildID string
	// Text true for guild channels that accept messages (text, news, threads)
	Text bool
}

// EmbedField one name/value row of an embed
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Embed a rich notification card
type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []EmbedField
	Timestamp   time.Time
}

// Message content plus up to MaxEmbedsPerMessage embeds
type Message struct {
	Content string
	Embeds  []Embed
}

// MaxEmbedsPerMessage Discord rejects messages carrying more embeds
const MaxEmbedsPerMessage = 10
