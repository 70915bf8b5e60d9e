// Package bot is the Discord front end: balance and trade chat commands
// plus the interactive shop backed by purchase sessions.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"arkshop/internal/catalog"
	"arkshop/internal/ledger"
	"arkshop/internal/players"
	"arkshop/internal/shop"
)

// Component custom id prefixes. The session id rides along after the
// colon so the map select can find its purchase.
const (
	customIDItemSelect = "shop:item"
	customIDMapSelect  = "shop:map:"
)

type Bot struct {
	session      *discordgo.Session
	ledger       *ledger.Ledger
	players      players.Store
	shop         *shop.Service
	catalog      *catalog.Catalog
	log          *slog.Logger
	logChannelID string
}

func New(token string, led *ledger.Ledger, ps players.Store, shopSvc *shop.Service, cat *catalog.Catalog, logChannelID string, logger *slog.Logger) (*Bot, error) {
	if logger == nil {
		logger = slog.Default()
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentMessageContent

	b := &Bot{
		session:      session,
		ledger:       led,
		players:      ps,
		shop:         shopSvc,
		catalog:      cat,
		log:          logger,
		logChannelID: logChannelID,
	}
	session.AddHandler(b.onMessage)
	session.AddHandler(b.onInteraction)
	return b, nil
}

// Run opens the gateway and blocks until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	b.log.Info("discord bot connected")
	<-ctx.Done()
	return b.session.Close()
}

func (b *Bot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	fields := strings.Fields(m.Content)
	if len(fields) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch fields[0] {
	case "/points":
		b.handlePoints(ctx, s, m)
	case "/trade":
		b.handleTrade(ctx, s, m, fields[1:])
	case "/shop":
		b.handleShop(s, m)
	}
}

func (b *Bot) handlePoints(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate) {
	eosID, err := b.players.ByDiscord(ctx, m.Author.ID)
	if err != nil {
		b.reply(s, m, "Your Discord account is not linked to a player yet.")
		return
	}
	balance, err := b.ledger.Balance(ctx, eosID)
	if err != nil {
		b.log.Error("balance lookup failed", "player", eosID, "err", err)
		b.reply(s, m, "Something went wrong, try again later.")
		return
	}
	b.reply(s, m, fmt.Sprintf("You have %d points.", balance))
}

func (b *Bot) handleTrade(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if len(args) != 2 {
		b.reply(s, m, "Usage: /trade <player name> <amount>")
		return
	}
	amount, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || amount <= 0 {
		b.reply(s, m, "The amount must be a positive number.")
		return
	}
	fromID, err := b.players.ByDiscord(ctx, m.Author.ID)
	if err != nil {
		b.reply(s, m, "Your Discord account is not linked to a player yet.")
		return
	}
	toName := args[0]
	toID, err := b.players.Resolve(ctx, players.Identity{Pseudo: toName})
	switch {
	case errors.Is(err, players.ErrUnresolvedIdentity):
		b.reply(s, m, "Player doesn't exist.")
		return
	case errors.Is(err, players.ErrAmbiguousIdentity):
		b.reply(s, m, "Found more than one player with the given name.")
		return
	case err != nil:
		b.log.Error("trade resolve failed", "name", toName, "err", err)
		b.reply(s, m, "Something went wrong, try again later.")
		return
	}

	err = b.ledger.Trade(ctx, fromID, toID, amount, m.Author.Username, toName)
	switch {
	case errors.Is(err, ledger.ErrSelfTrade):
		b.reply(s, m, "You can't give points to yourself.")
	case errors.Is(err, ledger.ErrInsufficientBalance):
		b.reply(s, m, "You don't have enough points.")
	case err != nil:
		b.log.Error("trade failed", "from", fromID, "to", toID, "err", err)
		b.reply(s, m, "Something went wrong, try again later.")
	default:
		b.reply(s, m, fmt.Sprintf("You sent %d points to %s.", amount, toName))
		b.audit(fmt.Sprintf("trade: %s -> %s, %d points", m.Author.Username, toName, amount))
	}
}

func (b *Bot) handleShop(s *discordgo.Session, m *discordgo.MessageCreate) {
	var options []discordgo.SelectMenuOption
	for _, category := range b.catalog.Categories() {
		for _, item := range b.catalog.Items(category) {
			options = append(options, discordgo.SelectMenuOption{
				Label:       item.Name,
				Value:       item.Name,
				Description: fmt.Sprintf("%s, %d points", category, item.Price),
			})
		}
	}
	if len(options) == 0 {
		b.reply(s, m, "The shop is empty.")
		return
	}
	_, err := s.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
		Content: "Pick an item:",
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.SelectMenu{
					CustomID:    customIDItemSelect,
					Placeholder: "Shop items",
					Options:     options,
				},
			}},
		},
	})
	if err != nil {
		b.log.Error("shop menu send failed", "err", err)
	}
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}
	data := i.MessageComponentData()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	switch {
	case data.CustomID == customIDItemSelect:
		b.onItemSelected(ctx, s, i, data.Values)
	case strings.HasPrefix(data.CustomID, customIDMapSelect):
		sessionID := strings.TrimPrefix(data.CustomID, customIDMapSelect)
		b.onMapSelected(ctx, s, i, sessionID, data.Values)
	}
}

func (b *Bot) onItemSelected(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, values []string) {
	if len(values) != 1 {
		return
	}
	userID := interactionUserID(i)
	eosID, err := b.players.ByDiscord(ctx, userID)
	if err != nil {
		b.respond(s, i, "Your Discord account is not linked to a player yet.")
		return
	}
	item, err := b.catalog.Find(values[0])
	if err != nil {
		b.respond(s, i, "That item is no longer in the shop.")
		return
	}
	sess, err := b.shop.BeginPurchase(ctx, eosID, item)
	if errors.Is(err, ledger.ErrInsufficientBalance) {
		b.respond(s, i, "You don't have enough points.")
		return
	}
	if err != nil {
		b.log.Error("begin purchase failed", "player", eosID, "item", item.Name, "err", err)
		b.respond(s, i, "Something went wrong, try again later.")
		return
	}

	options := make([]discordgo.SelectMenuOption, 0, len(catalog.Maps))
	for _, name := range catalog.Maps {
		options = append(options, discordgo.SelectMenuOption{Label: name, Value: name})
	}
	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: fmt.Sprintf("Buying %s for %d points. Which map are you on? You have 30 seconds.", item.Name, item.Price),
			Flags:   discordgo.MessageFlagsEphemeral,
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.SelectMenu{
						CustomID:    customIDMapSelect + sess.ID,
						Placeholder: "Maps",
						Options:     options,
					},
				}},
			},
		},
	})
	if err != nil {
		b.log.Error("map menu send failed", "err", err)
	}
}

func (b *Bot) onMapSelected(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, sessionID string, values []string) {
	if len(values) != 1 {
		return
	}
	mapName := values[0]
	userID := interactionUserID(i)
	eosID, err := b.players.ByDiscord(ctx, userID)
	if err != nil {
		b.respond(s, i, "Your Discord account is not linked to a player yet.")
		return
	}

	res, err := b.shop.ConfirmPurchase(ctx, sessionID, eosID, eosID, mapName)
	switch {
	case errors.Is(err, shop.ErrSessionExpired), errors.Is(err, shop.ErrSessionNotFound):
		b.respond(s, i, "That purchase timed out, nothing was charged. Open the shop again.")
	case errors.Is(err, shop.ErrSessionNotYours):
		b.respond(s, i, "That purchase belongs to someone else.")
	case errors.Is(err, ledger.ErrInsufficientBalance):
		b.respond(s, i, "You don't have enough points.")
	case err != nil:
		b.log.Error("purchase failed", "player", eosID, "session", sessionID, "err", err)
		b.respond(s, i, "Something went wrong, try again later.")
	case res.Status == shop.Queued:
		b.respond(s, i, fmt.Sprintf("%s is paid for but the game server is unreachable; it will be delivered automatically. Balance: %d points.", res.ItemName, res.Balance))
		b.audit(fmt.Sprintf("purchase queued: %s on %s for %d points (player %s)", res.ItemName, res.MapName, res.Price, eosID))
	default:
		b.respond(s, i, fmt.Sprintf("%s delivered on %s! Balance: %d points.", res.ItemName, res.MapName, res.Balance))
		b.audit(fmt.Sprintf("purchase: %s on %s for %d points (player %s)", res.ItemName, res.MapName, res.Price, eosID))
	}
}

func (b *Bot) reply(s *discordgo.Session, m *discordgo.MessageCreate, content string) {
	if _, err := s.ChannelMessageSendReply(m.ChannelID, content, m.Reference()); err != nil {
		b.log.Error("reply failed", "channel", m.ChannelID, "err", err)
	}
}

func (b *Bot) respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.log.Error("interaction respond failed", "err", err)
	}
}

// audit mirrors shop activity into the configured log channel.
func (b *Bot) audit(line string) {
	if b.logChannelID == "" {
		return
	}
	if _, err := b.session.ChannelMessageSend(b.logChannelID, line); err != nil {
		b.log.Warn("audit message failed", "err", err)
	}
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
