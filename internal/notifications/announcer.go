package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"go.uber.org/zap"
)

// snsAPI is the slice of the SNS client the announcer uses.
type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// BatchAnnouncement is published when a bulk issuance batch finishes.
type BatchAnnouncement struct {
	BatchID    string `json:"batch_id"`
	EventLabel string `json:"event_label"`
	Total      int    `json:"total"`
	Sent       int    `json:"sent"`
	Failed     int    `json:"failed"`
}

// Announcer publishes batch-completion events to an SNS topic so operator
// tooling can react without polling the batch endpoint.
type Announcer struct {
	client   snsAPI
	topicARN string
	logger   *zap.Logger
}

// NewAnnouncer creates a new SNS announcer
func NewAnnouncer(client *sns.Client, topicARN string, logger *zap.Logger) *Announcer {
	return &Announcer{
		client:   client,
		topicARN: topicARN,
		logger:   logger,
	}
}

// AnnounceBatchCompleted publishes a batch summary to the topic
func (a *Announcer) AnnounceBatchCompleted(ctx context.Context, announcement BatchAnnouncement) error {
	payload, err := json.Marshal(announcement)
	if err != nil {
		return fmt.Errorf("failed to marshal announcement: %w", err)
	}

	_, err = a.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(a.topicARN),
		Subject:  aws.String(fmt.Sprintf("Certificate batch completed: %s", announcement.EventLabel)),
		Message:  aws.String(string(payload)),
	})
	if err != nil {
		a.logger.Error("Failed to publish batch announcement",
			zap.Error(err),
			zap.String("batch_id", announcement.BatchID))
		return fmt.Errorf("failed to publish batch announcement: %w", err)
	}

	a.logger.Info("Batch announcement published",
		zap.String("batch_id", announcement.BatchID),
		zap.Int("sent", announcement.Sent),
		zap.Int("failed", announcement.Failed))

	return nil
}
