// Package dispatch orchestrates the event pipeline: it classifies each event
// of a webhook batch, routes text events to language detection and image
// events to vision analysis, and delivers the result (or a fallback apology)
// through the reply API. One event's failure never aborts its siblings.
package dispatch

import (
	"context"
	"log/slog"

	"github.com/snapguide/snapguide/internal/event"
)

// confirmationText is translated into the detected language before delivery;
// it is also the literal fallback when translation fails.
const confirmationText = "Language has been set. You can now send a photo."

// apologyText is the fixed, pre-translated message sent when image
// processing fails and a reply token is still available.
const apologyText = "Sorry, I couldn't process your photo right now. Please try again later.\n" +
	"申し訳ありません。ただいま画像を処理できませんでした。しばらくしてからもう一度お試しください。\n" +
	"죄송합니다. 지금은 사진을 처리할 수 없습니다. 잠시 후 다시 시도해 주세요."

// textApologyText is the text-event counterpart, sent when language
// detection or preference persistence fails.
const textApologyText = "Sorry, I couldn't process your message right now. Please try again later.\n" +
	"申し訳ありません。ただいまメッセージを処理できませんでした。しばらくしてからもう一度お試しください。\n" +
	"죄송합니다. 지금은 메시지를 처리할 수 없습니다. 잠시 후 다시 시도해 주세요."

// Replier delivers one plain-text message per single-use reply token.
type Replier interface {
	Reply(ctx context.Context, replyToken, text string) error
}

// ContentFetcher retrieves the complete content of an image message.
type ContentFetcher interface {
	GetContent(ctx context.Context, contentID string) ([]byte, error)
}

// Analyzer covers the three model calls the pipeline makes.
type Analyzer interface {
	AnalyzeImage(ctx context.Context, lang string, image []byte) (string, error)
	DetectLanguage(ctx context.Context, text string) (string, error)
	Translate(ctx context.Context, lang, sentence string) (string, error)
}

// PreferenceWriter persists a detected language tag for a user.
type PreferenceWriter interface {
	Set(ctx context.Context, userID, lang string) error
}

// LanguageResolver yields a non-empty tag for any user.
type LanguageResolver interface {
	Resolve(ctx context.Context, userID string) string
}

// Dispatcher routes inbound events through the pipeline.
type Dispatcher struct {
	replier  Replier
	fetcher  ContentFetcher
	analyzer Analyzer
	prefs    PreferenceWriter
	resolver LanguageResolver
	logger   *slog.Logger
}

func New(log *slog.Logger, replier Replier, fetcher ContentFetcher, analyzer Analyzer, prefs PreferenceWriter, resolver LanguageResolver) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		replier:  replier,
		fetcher:  fetcher,
		analyzer: analyzer,
		prefs:    prefs,
		resolver: resolver,
		logger:   log.With(slog.String("component", "dispatch")),
	}
}

// Dispatch processes a batch strictly in arrival order: replies go out in the
// same order events came in, and at most one outbound call is in flight per
// batch. Sequential processing also keeps a same-user text+image batch free
// of read/write races on the preference store. Per-event failures are
// contained here and never surface to the HTTP layer.
func (d *Dispatcher) Dispatch(ctx context.Context, batchID string, events []event.Event) {
	for i, ev := range events {
		log := d.logger.With(
			slog.String("batch_id", batchID),
			slog.Int("index", i),
			slog.String("kind", string(ev.Kind)),
		)
		if !ev.Routable() {
			log.Debug("skipping unroutable event")
			continue
		}
		switch ev.Kind {
		case event.KindText:
			d.handleText(ctx, log, ev)
		case event.KindImage:
			d.handleImage(ctx, log, ev)
		case event.KindOther:
			// Exhaustive over the closed variant; nothing to do.
		}
	}
}

func (d *Dispatcher) handleText(ctx context.Context, log *slog.Logger, ev event.Event) {
	lang, err := d.analyzer.DetectLanguage(ctx, ev.Text)
	if err != nil {
		log.Error("language detection failed", slog.Any("error", err))
		d.sendApology(ctx, log, ev.ReplyToken, textApologyText)
		return
	}
	if err := d.prefs.Set(ctx, ev.UserID, lang); err != nil {
		log.Error("persist preference failed",
			slog.String("lang", lang), slog.Any("error", err))
		d.sendApology(ctx, log, ev.ReplyToken, textApologyText)
		return
	}
	log.Info("language preference stored", slog.String("lang", lang))

	confirmation, err := d.analyzer.Translate(ctx, lang, confirmationText)
	if err != nil {
		log.Warn("confirmation translation failed, using english text",
			slog.String("lang", lang), slog.Any("error", err))
		confirmation = confirmationText
	}
	if err := d.replier.Reply(ctx, ev.ReplyToken, confirmation); err != nil {
		log.Error("confirmation reply failed", slog.Any("error", err))
	}
}

func (d *Dispatcher) handleImage(ctx context.Context, log *slog.Logger, ev event.Event) {
	lang := d.resolver.Resolve(ctx, ev.UserID)

	image, err := d.fetcher.GetContent(ctx, ev.ContentID)
	if err != nil {
		log.Error("content fetch failed",
			slog.String("content_id", ev.ContentID), slog.Any("error", err))
		d.sendApology(ctx, log, ev.ReplyToken, apologyText)
		return
	}

	answer, err := d.analyzer.AnalyzeImage(ctx, lang, image)
	if err != nil {
		log.Error("image analysis failed",
			slog.String("lang", lang), slog.Any("error", err))
		d.sendApology(ctx, log, ev.ReplyToken, apologyText)
		return
	}

	if err := d.replier.Reply(ctx, ev.ReplyToken, answer); err != nil {
		log.Error("analysis reply failed", slog.Any("error", err))
	}
}

// sendApology delivers the canned multilingual fallback. Delivery failures
// are logged and dropped; the reply token is single-use and never retried.
func (d *Dispatcher) sendApology(ctx context.Context, log *slog.Logger, replyToken, text string) {
	if err := d.replier.Reply(ctx, replyToken, text); err != nil {
		log.Error("fallback reply failed", slog.Any("error", err))
	}
}
