// Package broadcast fans admin announcements out to the whole user base
// through a small worker pool, so a broadcast never blocks the update loop.
package broadcast

import (
	"context"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/ozodbek-dev/anonchat-bot/internal/messages"
	"github.com/ozodbek-dev/anonchat-bot/pkg/logger"
)

type job struct {
	chatID int64
	text   string
}

type Config struct {
	Workers int
}

type Broadcaster struct {
	botClient *bot.Bot
	log       *logger.Logger
	workers   int
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	running   bool
	queue     chan job
}

func New(botClient *bot.Bot, log *logger.Logger, config Config) *Broadcaster {
	if config.Workers <= 0 {
		config.Workers = 3
	}

	ctx, cancel := context.WithCancel(context.Background())

	queueSize := config.Workers * 32
	if queueSize < 128 {
		queueSize = 128
	}

	return &Broadcaster{
		botClient: botClient,
		log:       log,
		workers:   config.Workers,
		ctx:       ctx,
		cancel:    cancel,
		queue:     make(chan job, queueSize),
	}
}

func (b *Broadcaster) Start() {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return
	}
	b.running = true
	b.mu.Unlock()

	b.log.Infof("broadcaster started with %d workers", b.workers)

	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go b.worker()
	}
}

func (b *Broadcaster) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	b.running = false
	b.mu.Unlock()

	b.cancel()
	b.wg.Wait()
	b.log.Info("broadcaster stopped")
}

func (b *Broadcaster) worker() {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case j := <-b.queue:
			b.deliver(j)
		}
	}
}

// Delivery is best effort: users who blocked the bot just drop out.
func (b *Broadcaster) deliver(j job) {
	_, err := b.botClient.SendMessage(b.ctx, &bot.SendMessageParams{
		ChatID:    j.chatID,
		Text:      j.text,
		ParseMode: messages.ParseModeHTML,
	})
	if err != nil {
		b.log.Debug("broadcast delivery failed: ", err)
	}
}

// Enqueue schedules one message; reports false when the broadcaster is
// shutting down.
func (b *Broadcaster) Enqueue(chatID int64, text string) bool {
	select {
	case <-b.ctx.Done():
		return false
	case b.queue <- job{chatID: chatID, text: text}:
		return true
	}
}

// SendAll enqueues the text for every id and returns how many were accepted.
func (b *Broadcaster) SendAll(ids []int64, text string) int {
	sent := 0
	for _, id := range ids {
		if b.Enqueue(id, text) {
			sent++
		}
	}
	return sent
}
