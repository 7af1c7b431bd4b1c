package models

// ChannelID identifies a supported chat channel.
type ChannelID string

const (
	ChannelTelegram ChannelID = "telegram"
	ChannelWhatsApp ChannelID = "whatsapp"
)

// SupportedChannels is the allow-list checked before any nonce is issued.
var SupportedChannels = map[ChannelID]bool{
	ChannelTelegram: true,
	ChannelWhatsApp: true,
}

// Valid reports whether the channel is on the allow-list.
func (c ChannelID) Valid() bool {
	return SupportedChannels[c]
}
