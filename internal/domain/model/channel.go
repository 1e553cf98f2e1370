// Package model contains the document shapes shared between layers.
package model

import "fmt"

// Channel is one of the two parallel broadcast outputs.
type Channel string

// The two output channels.
const (
	ChannelPreview Channel = "preview"
	ChannelLive    Channel = "live"
)

// Channels lists both outputs in display order.
func Channels() []Channel {
	return []Channel{ChannelPreview, ChannelLive}
}

// ParseChannel validates a request token as a channel name.
func ParseChannel(s string) (Channel, error) {
	switch Channel(s) {
	case ChannelPreview, ChannelLive:
		return Channel(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownChannel, s)
	}
}

// String returns the channel name.
func (c Channel) String() string {
	return string(c)
}

// Other returns the opposite channel.
func (c Channel) Other() Channel {
	if c == ChannelPreview {
		return ChannelLive
	}
	return ChannelPreview
}

// TickerField is the match record field holding this channel's active
// rendering value.
func (c Channel) TickerField() string {
	return "ticker_" + string(c)
}

// StickerCollection is the collection holding this channel's sticker
// records, keyed by match id.
func (c Channel) StickerCollection() string {
	return "sticker_" + string(c)
}
