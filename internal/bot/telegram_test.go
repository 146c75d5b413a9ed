package bot

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"dex-sentinel/internal/domain"
	"dex-sentinel/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

type fakeContext struct {
	tele.Context
	args []string
	sent []string
}

func (c *fakeContext) Args() []string { return c.args }

func (c *fakeContext) Send(what interface{}, opts ...interface{}) error {
	c.sent = append(c.sent, fmt.Sprint(what))
	return nil
}

type stubReporter struct {
	report     *domain.AnalyticsReport
	err        error
	chain      string
	address    string
	latestCall bool
}

func (s *stubReporter) OnDemandReport(ctx context.Context, chainID, tokenAddress string) (*domain.AnalyticsReport, error) {
	s.chain, s.address = chainID, tokenAddress
	return s.report, s.err
}

func (s *stubReporter) LatestReport(ctx context.Context, chainID, tokenAddress string) (*domain.AnalyticsReport, error) {
	s.latestCall = true
	s.chain, s.address = chainID, tokenAddress
	return s.report, s.err
}

type fakeSender struct {
	to   tele.Recipient
	what interface{}
	err  error
}

func (f *fakeSender) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	f.to, f.what = to, what
	return &tele.Message{}, f.err
}

func sampleReport() *domain.AnalyticsReport {
	return &domain.AnalyticsReport{
		TokenName:   "Sample",
		TokenSymbol: "SMP",
		Metrics: domain.ReportMetrics{
			Price:     domain.PriceMetrics{Current: 0.34, Change: domain.ChangeMetric{H1: -2.5, H6: 25, H24: 60}},
			Liquidity: 50000,
		},
		Risk:       domain.RiskAnalysis{RiskScore: 70, Vulnerabilities: []string{"Low liquidity"}},
		Sentiment:  &domain.MarketSentiment{Score: 0.4, Trends: []string{"Moderate bullish sentiment"}},
		AIInsights: []string{"insight one"},
	}
}

func TestNewTelegramBotSkipsWithoutToken(t *testing.T) {
	b, err := NewTelegramBot("", 0, nil, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestNewTelegramBotOffline(t *testing.T) {
	orig := newBot
	t.Cleanup(func() { newBot = orig })
	newBot = func(pref tele.Settings) (*tele.Bot, error) {
		pref.Offline = true
		return tele.NewBot(pref)
	}

	b, err := NewTelegramBot("123:abc", 42, &stubReporter{}, nil)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "telegram", b.Name())
}

func TestNewTelegramBotError(t *testing.T) {
	orig := newBot
	t.Cleanup(func() { newBot = orig })
	newBot = func(tele.Settings) (*tele.Bot, error) { return nil, errors.New("unauthorized") }

	_, err := NewTelegramBot("bad", 0, nil, nil)
	assert.ErrorContains(t, err, "unauthorized")
}

func TestHandleReport(t *testing.T) {
	reporter := &stubReporter{report: sampleReport()}
	b := &TelegramBot{reporter: reporter, logger: zap.NewNop()}

	c := &fakeContext{args: []string{"So111"}}
	require.NoError(t, b.handleReport(c))
	assert.Equal(t, "solana", reporter.chain)
	assert.Equal(t, "So111", reporter.address)
	require.Len(t, c.sent, 1)
	assert.Contains(t, c.sent[0], "Sample (SMP)")
	assert.Contains(t, c.sent[0], "Risk: 70/70")
	assert.Contains(t, c.sent[0], "- Low liquidity")
	assert.Contains(t, c.sent[0], "insight one")

	c = &fakeContext{args: []string{"ETHEREUM", "0xabc"}}
	require.NoError(t, b.handleReport(c))
	assert.Equal(t, "ethereum", reporter.chain)
}

func TestHandleReportUsageAndErrors(t *testing.T) {
	reporter := &stubReporter{err: fmt.Errorf("%w: boom", service.ErrTokenNotFound)}
	b := &TelegramBot{reporter: reporter, logger: zap.NewNop()}

	c := &fakeContext{}
	require.NoError(t, b.handleReport(c))
	assert.Contains(t, c.sent[0], "Usage: /report")

	c = &fakeContext{args: []string{"So111"}}
	require.NoError(t, b.handleReport(c))
	assert.Equal(t, "No data for So111 on solana", c.sent[0])

	reporter.err = errors.New("insight timeout")
	c = &fakeContext{args: []string{"So111"}}
	require.NoError(t, b.handleLatest(c))
	assert.True(t, reporter.latestCall)
	assert.Contains(t, c.sent[0], "insight timeout")
}

func TestHandlePing(t *testing.T) {
	c := &fakeContext{}
	require.NoError(t, (&TelegramBot{}).handlePing(c))
	assert.Equal(t, []string{"pong"}, c.sent)
}

func TestDeliverSendsToChat(t *testing.T) {
	sender := &fakeSender{}
	b := &TelegramBot{sender: sender, chatID: 42}

	event := &domain.AlertEvent{TokenKey: "solana-So111", Symbol: "SMP", Message: "PRICE ALERT: SMP increased by 12.00%"}
	require.NoError(t, b.Deliver(context.Background(), event))
	assert.Equal(t, tele.ChatID(42), sender.to)
	assert.Equal(t, "🚨 SMP (solana-So111)\nPRICE ALERT: SMP increased by 12.00%", sender.what)

	sender.err = errors.New("chat not found")
	assert.Error(t, b.Deliver(context.Background(), event))
}

func TestDeliverWithoutChatIsNoop(t *testing.T) {
	sender := &fakeSender{}
	b := &TelegramBot{sender: sender}
	require.NoError(t, b.Deliver(context.Background(), &domain.AlertEvent{}))
	assert.Nil(t, sender.to)
}
