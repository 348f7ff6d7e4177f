package kafka

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/azizikri/qr-credits/internal/config"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

func EnsureTopics(ctx context.Context, client *kgo.Client, cfg *config.Config) error {
	adm := kadm.NewClient(client)

	topics := map[string]int32{
		TopicSnapshot:     int32(cfg.TopicPartitions()),
		TopicNotification: int32(cfg.TopicPartitions()),
		fmt.Sprintf("%s%s", TopicReplyPrefix, cfg.KafkaInstanceID): 1,
	}
	for _, topic := range RequestTopics {
		topics[topic] = int32(cfg.TopicPartitions())
		topics[topic+TopicDLQSuffix] = 1
	}

	replicationFactor := cfg.ReplicationFactor()
	for topic, partitions := range topics {
		resp, err := adm.CreateTopics(ctx, partitions, replicationFactor, nil, topic)
		if err != nil {
			return fmt.Errorf("failed to create topic %s: %w", topic, err)
		}
		for _, detail := range resp {
			if detail.Err != nil && !strings.Contains(detail.Err.Error(), "already exists") {
				return fmt.Errorf("failed to create topic %s: %w", detail.Topic, detail.Err)
			}
		}
	}

	log.Println("All topics ensured")
	return nil
}
