package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"tryonapi/models"
	"tryonapi/orchestrator"
	"tryonapi/services"

	"github.com/getsentry/sentry-go"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/semaphore"
)

const helpMessage = "Send me a photo of yourself first, then a photo of the garment.\n" +
	"Garment caption options: `full` or `part`, `male` or `female`, `feedback: ...`.\n" +
	"Add `/advice` to the garment caption to get styling tips instead.\n" +
	"/reset forgets your photo."

// Bot is the part of tgbotapi.BotAPI the handler talks to.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Advisor interface {
	GetRecommendations(ctx context.Context, garment models.ImageReference) models.StyleRecommendation
}

type Handler struct {
	Bot       Bot
	Generator orchestrator.Generator
	Advisor   Advisor
	FetchURL  func(ctx context.Context, url string) ([]byte, error)
	Sessions  *SessionStore
	Slots     *semaphore.Weighted
}

func EscapeMessage(message string) string {
	r := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"`", "\\`",
	)
	return r.Replace(message)
}

// RunTryOnBot polls Telegram until ctx is done.
func RunTryOnBot(ctx context.Context, token string, generator orchestrator.Generator, advisor Advisor, maxConcurrent int) error {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}
	log.Printf("Authorized on account %s", bot.Self.UserName)

	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	handler := &Handler{
		Bot:       bot,
		Generator: generator,
		Advisor:   advisor,
		FetchURL:  services.ReadFileFromUrl,
		Sessions:  NewSessionStore(time.Hour),
		Slots:     semaphore.NewWeighted(int64(maxConcurrent)),
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go handler.HandleUpdate(ctx, update)
		}
	}
}

func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	message := update.Message
	if message == nil || message.Chat == nil {
		return
	}
	chatID := message.Chat.ID

	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("[Telegram %v] panic: %v\n", chatID, r)
			sentry.CurrentHub().Recover(r)
			h.reply(chatID, "Something went wrong, please try again.")
		}
	}()

	switch message.Command() {
	case "start", "help":
		h.replyMarkdown(chatID, helpMessage)
		return
	case "reset":
		h.Sessions.Reset(chatID)
		h.reply(chatID, "Done. Send me a new photo of yourself.")
		return
	case "advice":
		h.reply(chatID, "Send a garment photo with /advice in the caption.")
		return
	}

	fileID := imageFileID(message)
	if fileID == "" {
		h.replyMarkdown(chatID, helpMessage)
		return
	}

	image, err := h.download(ctx, fileID)
	if err != nil {
		fmt.Printf("[Telegram %v] Error downloading photo: %v\n", chatID, err)
		h.reply(chatID, "I could not read that photo, please send it again as a JPEG or PNG.")
		return
	}

	options := ParseCaption(message.Caption)
	if options.Advice {
		h.sendAdvice(ctx, chatID, image)
		return
	}

	selfie, ok := h.Sessions.Selfie(chatID)
	if !ok {
		h.Sessions.SetSelfie(chatID, image)
		h.reply(chatID, "Got your photo. Now send the garment you want to try on.")
		return
	}

	h.tryOn(ctx, chatID, models.TryOnRequest{
		SubjectImage:  selfie,
		GarmentImage:  image,
		Mode:          options.Mode,
		SubjectGender: options.Gender,
		PriorFeedback: options.Feedback,
	}.WithDefaults())
}

func (h *Handler) tryOn(ctx context.Context, chatID int64, req models.TryOnRequest) {
	if h.Slots != nil {
		if !h.Slots.TryAcquire(1) {
			h.reply(chatID, "Too many try-ons are running right now, please try again in a minute.")
			return
		}
		defer h.Slots.Release(1)
	}

	h.reply(chatID, "Generating your try-on, this can take a minute...")
	outcome := h.Generator.GenerateTryOn(ctx, req)
	if !outcome.Success {
		fmt.Printf("[Telegram %v] Generation failed: %s %s\n", chatID, outcome.Kind, outcome.Message)
		h.reply(chatID, outcome.Message)
		return
	}

	photo, err := resultPhoto(chatID, outcome.Image)
	if err != nil {
		sentry.CaptureException(err)
		h.reply(chatID, "The image was generated but could not be sent, please try again.")
		return
	}
	photo.Caption = fmt.Sprintf("%s · %s", req.Mode, req.SubjectGender)
	if outcome.Degraded() {
		photo.Caption += " · face not refined"
	}
	if _, err := h.Bot.Send(photo); err != nil {
		fmt.Printf("[Telegram %v] Error sending photo: %v\n", chatID, err)
		sentry.CaptureException(err)
	}
}

func (h *Handler) sendAdvice(ctx context.Context, chatID int64, garment models.ImageReference) {
	if h.Advisor == nil {
		h.reply(chatID, "Style advice is not available right now.")
		return
	}
	h.replyMarkdown(chatID, FormatRecommendation(h.Advisor.GetRecommendations(ctx, garment)))
}

func (h *Handler) download(ctx context.Context, fileID string) (models.ImageReference, error) {
	url, err := h.Bot.GetFileDirectURL(fileID)
	if err != nil {
		return models.ImageReference{}, err
	}
	data, err := h.FetchURL(ctx, url)
	if err != nil {
		return models.ImageReference{}, err
	}
	if len(data) == 0 {
		return models.ImageReference{}, errors.New("empty file")
	}
	return models.NewInlineImage(data, services.DetectImageMIME(data)), nil
}

func (h *Handler) reply(chatID int64, text string) {
	if _, err := h.Bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		fmt.Printf("[Telegram %v] Error sending message: %v\n", chatID, err)
	}
}

func (h *Handler) replyMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "markdown"
	msg.DisableWebPagePreview = true
	if _, err := h.Bot.Send(msg); err != nil {
		fmt.Printf("[Telegram %v] Error sending message: %v\n", chatID, err)
	}
}

// imageFileID picks the largest photo size, or an image document.
func imageFileID(message *tgbotapi.Message) string {
	if len(message.Photo) > 0 {
		return message.Photo[len(message.Photo)-1].FileID
	}
	if message.Document != nil && strings.HasPrefix(message.Document.MimeType, "image/") {
		return message.Document.FileID
	}
	return ""
}

func resultPhoto(chatID int64, image models.ImageReference) (tgbotapi.PhotoConfig, error) {
	if image.IsRemote() {
		return tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(image.URL)), nil
	}
	inline, err := services.Normalize(image, services.FormInline)
	if err != nil {
		return tgbotapi.PhotoConfig{}, err
	}
	return tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{
		Name:  "tryon" + services.ImageExtension(inline.MIMEType),
		Bytes: inline.Data,
	}), nil
}

func FormatRecommendation(recommendation models.StyleRecommendation) string {
	var b strings.Builder
	b.WriteString(EscapeMessage(recommendation.Analysis))
	b.WriteString("\n")

	if len(recommendation.StylingTips) > 0 {
		b.WriteString("\n*Styling tips*\n")
		for _, tip := range recommendation.StylingTips {
			fmt.Fprintf(&b, "• %s\n", EscapeMessage(tip))
		}
	}
	if len(recommendation.ComplementaryItems) > 0 {
		b.WriteString("\n*Pairs well with*\n")
		for _, item := range recommendation.ComplementaryItems {
			fmt.Fprintf(&b, "• %s: %s", EscapeMessage(item.Category), EscapeMessage(item.Description))
			if item.PriceRange != "" {
				fmt.Fprintf(&b, " (%s)", EscapeMessage(item.PriceRange))
			}
			b.WriteString("\n")
			for _, link := range item.ShoppingLinks {
				fmt.Fprintf(&b, "  [%s](%s)\n", EscapeMessage(link.Store), link.URL)
			}
		}
	}
	return b.String()
}
