package infrastructure

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"upbit-backtester/internal/model"
)

func InitNATS(url string, logger *zap.Logger) (*nats.Conn, nats.JetStreamContext, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, nil, err
	}

	js, err := nc.JetStream()
	if err != nil {
		return nil, nil, err
	}

	// Create stream if it doesn't exist
	_, err = js.AddStream(&nats.StreamConfig{
		Name:     "BACKTEST",
		Subjects: []string{"backtest.completed.*"},
	})
	if err != nil {
		// If stream exists, we might need to update it
		_, err = js.UpdateStream(&nats.StreamConfig{
			Name:     "BACKTEST",
			Subjects: []string{"backtest.completed.*"},
		})
		if err != nil {
			logger.Warn("failed to create or update stream", zap.Error(err))
		}
	}

	return nc, js, nil
}

// JetStreamPublisher publishes completed backtest reports to JetStream.
type JetStreamPublisher struct {
	js nats.JetStreamContext
}

func NewJetStreamPublisher(js nats.JetStreamContext) *JetStreamPublisher {
	return &JetStreamPublisher{js: js}
}

func (p *JetStreamPublisher) PublishReport(report *model.BacktestReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("backtest.completed.%s", report.StrategyInfo.Market)
	_, err = p.js.Publish(subject, data)
	return err
}
