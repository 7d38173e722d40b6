package panel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// ErrNotFound reports that the platform no longer knows the panel message.
var ErrNotFound = errors.New("panel message not found")

// ChannelAPI is the subset of *discordgo.Session the publisher needs.
type ChannelAPI interface {
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessagePin(channelID, messageID string, options ...discordgo.RequestOption) error
}

type Published struct {
	ChannelID string
	MessageID string
	Created   bool
	Adopted   bool
}

type reference struct {
	channelID string
	messageID string
}

// Publisher keeps exactly one pinned panel message per server up to date.
type Publisher struct {
	mu          sync.Mutex
	api         ChannelAPI
	botID       func() string
	color       int
	searchLimit int
	logger      *zap.Logger
	refs        map[string]reference
}

func NewPublisher(api ChannelAPI, botID func() string, color, searchLimit int, logger *zap.Logger) *Publisher {
	if searchLimit <= 0 || searchLimit > 100 {
		searchLimit = 50
	}
	return &Publisher{
		api:         api,
		botID:       botID,
		color:       color,
		searchLimit: searchLimit,
		logger:      logger,
		refs:        make(map[string]reference),
	}
}

// Upsert edits the cached panel in place, adopts a pinned panel left by a
// previous run, or creates and pins a new one. A stale reference is dropped
// and creation is retried exactly once.
func (p *Publisher) Upsert(ctx context.Context, serverID, channelID string, doc Document) (Published, error) {
	if channelID == "" {
		return Published{}, errors.New("panel channel not configured")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ref, cached := p.refs[serverID]
	if cached && ref.channelID != channelID {
		delete(p.refs, serverID)
		cached = false
	}

	adopted := false
	if !cached {
		found, err := p.findExisting(ctx, channelID)
		if err != nil {
			p.logger.Warn("panel search failed", zap.String("server_id", serverID), zap.Error(err))
		}
		if found != nil {
			ref = reference{channelID: channelID, messageID: found.ID}
			p.refs[serverID] = ref
			cached = true
			adopted = true
		}
	}

	if cached {
		err := p.edit(ctx, ref, doc)
		if err == nil {
			return Published{ChannelID: ref.channelID, MessageID: ref.messageID, Adopted: adopted}, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Published{}, err
		}
		p.logger.Info("panel message gone, recreating", zap.String("server_id", serverID), zap.String("message_id", ref.messageID))
		delete(p.refs, serverID)
	}

	return p.create(ctx, serverID, channelID, doc)
}

// Forget drops the cached reference for a server.
func (p *Publisher) Forget(serverID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.refs, serverID)
}

func (p *Publisher) findExisting(ctx context.Context, channelID string) (*discordgo.Message, error) {
	botID := ""
	if p.botID != nil {
		botID = p.botID()
	}
	if botID == "" {
		return nil, nil
	}
	messages, err := p.api.ChannelMessages(channelID, p.searchLimit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("list channel messages: %w", err)
	}
	for _, msg := range messages {
		if msg == nil || msg.Author == nil || !msg.Pinned {
			continue
		}
		if msg.Author.ID == botID {
			return msg, nil
		}
	}
	return nil, nil
}

func (p *Publisher) edit(ctx context.Context, ref reference, doc Document) error {
	edit := discordgo.NewMessageEdit(ref.channelID, ref.messageID)
	embeds := []*discordgo.MessageEmbed{doc.Embed(p.color)}
	components := doc.Components()
	edit.Embeds = &embeds
	edit.Components = &components
	if _, err := p.api.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx)); err != nil {
		if IsNotFound(err) {
			return fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return fmt.Errorf("edit panel: %w", err)
	}
	return nil
}

func (p *Publisher) create(ctx context.Context, serverID, channelID string, doc Document) (Published, error) {
	msg, err := p.api.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{doc.Embed(p.color)},
		Components: doc.Components(),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return Published{}, fmt.Errorf("create panel: %w", err)
	}
	if msg == nil {
		return Published{}, errors.New("create panel: empty response")
	}

	if err := p.api.ChannelMessagePin(channelID, msg.ID, discordgo.WithContext(ctx)); err != nil {
		p.logger.Warn("panel pin failed", zap.String("server_id", serverID), zap.String("message_id", msg.ID), zap.Error(err))
	}
	p.refs[serverID] = reference{channelID: channelID, messageID: msg.ID}
	return Published{ChannelID: channelID, MessageID: msg.ID, Created: true}, nil
}

// IsNotFound reports whether a Discord REST error means the message (or its
// channel) no longer exists.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownChannel:
			return true
		}
	}
	return restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}
