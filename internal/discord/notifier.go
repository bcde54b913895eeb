package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/cfduel/lockoutbot/internal/domain"
	"github.com/cfduel/lockoutbot/internal/metrics"
)

// messageSender is the subset of discordgo.Session the notifier needs;
// narrowed for testability.
type messageSender interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// ChannelNotifier delivers duel output to one Discord channel: plain
// messages for solve/status lines, embeds for structured announcements.
// Delivery failures are wrapped in domain.ErrNotifierDelivery so the duel
// session knows the channel is gone.
type ChannelNotifier struct {
	sender    messageSender
	channelID string
}

// NewChannelNotifier creates a notifier bound to a channel
func NewChannelNotifier(session *discordgo.Session, channelID string) *ChannelNotifier {
	return &ChannelNotifier{sender: session, channelID: channelID}
}

// Status sends a plain text message
func (n *ChannelNotifier) Status(_ context.Context, text string) error {
	if _, err := n.sender.ChannelMessageSend(n.channelID, text); err != nil {
		metrics.NotifierFailures.Inc()
		return fmt.Errorf("%w: %v", domain.ErrNotifierDelivery, err)
	}
	return nil
}

// Announce sends a structured announcement as an embed
func (n *ChannelNotifier) Announce(_ context.Context, a domain.Announcement) error {
	fields := make([]*discordgo.MessageEmbedField, 0, len(a.Fields))
	for _, f := range a.Fields {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  f.Name,
			Value: f.Value,
		})
	}

	embed := &discordgo.MessageEmbed{
		Title:  a.Title,
		Color:  a.Color,
		Fields: fields,
	}

	if _, err := n.sender.ChannelMessageSendEmbed(n.channelID, embed); err != nil {
		metrics.NotifierFailures.Inc()
		return fmt.Errorf("%w: %v", domain.ErrNotifierDelivery, err)
	}
	return nil
}
