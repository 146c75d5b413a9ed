package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dex-sentinel/internal/domain"
	"dex-sentinel/internal/service"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

const commandTimeout = 45 * time.Second

// Reporter is the report surface the chat commands use.
type Reporter interface {
	OnDemandReport(ctx context.Context, chainID, tokenAddress string) (*domain.AnalyticsReport, error)
	LatestReport(ctx context.Context, chainID, tokenAddress string) (*domain.AnalyticsReport, error)
}

// Sender is the part of *tele.Bot used to push alerts.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

var newBot = tele.NewBot

// TelegramBot answers /ping, /report and /latest, and pushes alerts to one chat.
type TelegramBot struct {
	bot      *tele.Bot
	sender   Sender
	chatID   int64
	reporter Reporter
	logger   *zap.Logger
}

// NewTelegramBot returns (nil, nil) when token is empty.
func NewTelegramBot(token string, chatID int64, reporter Reporter, logger *zap.Logger) (*TelegramBot, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if token == "" {
		logger.Info("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return nil, nil
	}
	b, err := newBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("create Telegram bot: %w", err)
	}

	t := &TelegramBot{bot: b, sender: b, chatID: chatID, reporter: reporter, logger: logger}
	b.Handle("/ping", t.handlePing)
	b.Handle("/report", t.handleReport)
	b.Handle("/latest", t.handleLatest)
	return t, nil
}

// Start polls for updates until ctx is done.
func (t *TelegramBot) Start(ctx context.Context) {
	go t.bot.Start()
	t.logger.Info("Telegram bot started", zap.Int64("alert_chat_id", t.chatID))
	go func() {
		<-ctx.Done()
		t.bot.Stop()
	}()
}

func (t *TelegramBot) Name() string { return "telegram" }

// Deliver pushes event to the configured chat. Without a chat id it is a no-op.
func (t *TelegramBot) Deliver(_ context.Context, event *domain.AlertEvent) error {
	if t.chatID == 0 {
		return nil
	}
	_, err := t.sender.Send(tele.ChatID(t.chatID), FormatAlert(event))
	return err
}

func (t *TelegramBot) handlePing(c tele.Context) error {
	return c.Send("pong")
}

func (t *TelegramBot) handleReport(c tele.Context) error {
	chain, addr, ok := parseTokenArgs(c.Args())
	if !ok {
		return c.Send("Usage: /report [chain] <token_address>\nChain defaults to " + domain.DefaultChainID)
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	report, err := t.reporter.OnDemandReport(ctx, chain, addr)
	if err != nil {
		return c.Send(replyForError(chain, addr, err))
	}
	return c.Send(FormatReport(report))
}

func (t *TelegramBot) handleLatest(c tele.Context) error {
	chain, addr, ok := parseTokenArgs(c.Args())
	if !ok {
		return c.Send("Usage: /latest [chain] <token_address>")
	}
	report, err := t.reporter.LatestReport(context.Background(), chain, addr)
	if err != nil {
		return c.Send(replyForError(chain, addr, err))
	}
	return c.Send(FormatReport(report))
}

func parseTokenArgs(args []string) (chain, addr string, ok bool) {
	switch len(args) {
	case 1:
		return domain.DefaultChainID, args[0], true
	case 2:
		return strings.ToLower(args[0]), args[1], true
	default:
		return "", "", false
	}
}

func replyForError(chain, addr string, err error) string {
	if errors.Is(err, service.ErrTokenNotFound) {
		return fmt.Sprintf("No data for %s on %s", addr, chain)
	}
	return fmt.Sprintf("Error building report for %s: %v", addr, err)
}

func FormatAlert(event *domain.AlertEvent) string {
	var sb strings.Builder
	sb.WriteString("🚨 ")
	if event.Symbol != "" {
		sb.WriteString(event.Symbol)
		sb.WriteString(" ")
	}
	sb.WriteString("(")
	sb.WriteString(event.TokenKey.String())
	sb.WriteString(")\n")
	sb.WriteString(event.Message)
	return sb.String()
}

func FormatReport(r *domain.AnalyticsReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%s)\n", r.TokenName, r.TokenSymbol)
	fmt.Fprintf(&sb, "Price: $%g\n", r.Metrics.Price.Current)
	fmt.Fprintf(&sb, "Change 1h/6h/24h: %.2f%% / %.2f%% / %.2f%%\n",
		r.Metrics.Price.Change.H1, r.Metrics.Price.Change.H6, r.Metrics.Price.Change.H24)
	fmt.Fprintf(&sb, "Liquidity: $%.0f  Market cap: $%.0f\n", r.Metrics.Liquidity, r.Metrics.MarketCap)
	fmt.Fprintf(&sb, "1h txns: %d buys / %d sells (ratio %.2f)\n",
		r.Metrics.Transactions.H1.Buys, r.Metrics.Transactions.H1.Sells, r.Metrics.Transactions.H1.Ratio)
	fmt.Fprintf(&sb, "Risk: %d/70\n", r.Risk.RiskScore)
	for _, v := range r.Risk.Vulnerabilities {
		sb.WriteString("- ")
		sb.WriteString(v)
		sb.WriteString("\n")
	}
	if r.Sentiment != nil {
		fmt.Fprintf(&sb, "Sentiment: %.2f", r.Sentiment.Score)
		if len(r.Sentiment.Trends) > 0 {
			sb.WriteString(" (")
			sb.WriteString(strings.Join(r.Sentiment.Trends, ", "))
			sb.WriteString(")")
		}
		sb.WriteString("\n")
	}
	if len(r.AIInsights) > 0 {
		sb.WriteString("\n")
		sb.WriteString(strings.Join(r.AIInsights, "\n"))
	}
	return strings.TrimRight(sb.String(), "\n")
}
