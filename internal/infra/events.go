package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"payhub/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

const EventCertificateSettled = "certificate.settled"

// SettlementEvent is published once a certificate reaches a paid status.
type SettlementEvent struct {
	Type            string    `json:"type"`
	CertificateCode string    `json:"certificate_code"`
	CertificateNum  int       `json:"certificate_num"`
	Status          string    `json:"status"`
	TransactionID   string    `json:"transaction_id"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// EventPublisher sends settlement events to an SQS queue. A nil publisher
// (no SQS_QUEUE_URL) drops events.
type EventPublisher struct {
	client   *sqs.Client
	queueURL string
}

// NewEventPublisher returns nil, nil when no queue is configured.
func NewEventPublisher(ctx context.Context, cfg *config.Config) (*EventPublisher, error) {
	if cfg.SQSQueueURL == "" {
		return nil, nil
	}

	opts := []func(*awsConfig.LoadOptions) error{awsConfig.WithRegion(cfg.AWSRegion)}
	if cfg.AWSAccessKey != "" && cfg.AWSSecret != "" {
		opts = append(opts, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKey, cfg.AWSSecret, ""),
		))
	}
	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("events: load aws config: %w", err)
	}
	return &EventPublisher{client: sqs.NewFromConfig(awsCfg), queueURL: cfg.SQSQueueURL}, nil
}

func (p *EventPublisher) Publish(ctx context.Context, ev SettlementEvent) error {
	if p == nil {
		return nil
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("events: marshal: %w", err)
	}
	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"type": {DataType: aws.String("String"), StringValue: aws.String(ev.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("events: send: %w", err)
	}
	return nil
}
