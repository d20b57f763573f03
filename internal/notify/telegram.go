// Package notify delivers formatted messages to the configured Telegram
// chat. It is outbound-only: the agent never polls for updates.
package notify

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	logx "leetbot/pkg/logx"
)

type Config struct {
	Token      string
	ChatID     int64
	RatePerSec int // outbound messages per second; default 3
}

// Sender sends text to one pre-configured chat via one bot identity.
type Sender struct {
	bot     *tele.Bot
	chat    *tele.Chat
	limiter *rate.Limiter
	log     logx.Logger
}

func New(cfg Config, log logx.Logger) (*Sender, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat id is empty")
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 3
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	b, err := tele.NewBot(tele.Settings{Token: cfg.Token})
	if err != nil {
		return nil, err
	}
	return &Sender{
		bot:  b,
		chat: &tele.Chat{ID: cfg.ChatID},
		// Token bucket: burst = rate per sec, so short spikes don't block too hard.
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
		log:     log,
	}, nil
}

// Send delivers text to the configured chat. It blocks on the rate limiter
// first, then performs one synchronous send; transport and provider errors
// come back as a plain error, never a panic.
func (s *Sender) Send(ctx context.Context, text string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	start := time.Now()
	msg, err := s.bot.Send(s.chat, text, &tele.SendOptions{
		ParseMode:             tele.ModeMarkdown,
		DisableWebPagePreview: true,
	})
	if err != nil {
		s.log.Warn("send failed", logx.Int64("chat_id", s.chat.ID), logx.Err(err))
		return err
	}
	s.log.Debug("message sent",
		logx.Int64("chat_id", s.chat.ID),
		logx.Int("message_id", msg.ID),
		logx.Duration("took", time.Since(start)))
	return nil
}

// SelfTest sends a short liveness message to the configured chat.
func (s *Sender) SelfTest(ctx context.Context) error {
	return s.Send(ctx, "🤖 leetbot is online and ready!")
}
