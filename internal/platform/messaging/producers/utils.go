package producers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	topicReadAttempts = 5
	topicReadBackoff  = 2 * time.Second
)

type topicSpec struct {
	name              string
	partitions        int
	replicationFactor int
}

// topicAdmin is the subset of *kafka.Conn needed to provision topics
type topicAdmin interface {
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	CreateTopics(topics ...kafka.TopicConfig) error
}

// ensureTopic creates the topic unless its partitions can be read.
// Partition reads are retried because a fresh broker may not have loaded metadata yet.
func ensureTopic(admin topicAdmin, topic topicSpec, log *slog.Logger) error {
	return ensureTopicWithBackoff(admin, topic, log, topicReadBackoff)
}

func ensureTopicWithBackoff(admin topicAdmin, topic topicSpec, log *slog.Logger, backoff time.Duration) error {
	var (
		partitions []kafka.Partition
		err        error
	)

	for attempt := 1; attempt <= topicReadAttempts; attempt++ {
		partitions, err = admin.ReadPartitions(topic.name)
		if err == nil && len(partitions) > 0 {
			log.Info("Kafka topic exists", "topic", topic.name, "partitions", len(partitions))
			return nil
		}
		log.Warn("Could not read topic partitions", "topic", topic.name, "attempt", attempt, "error", err)
		if attempt < topicReadAttempts {
			time.Sleep(backoff)
		}
	}

	cfg := kafka.TopicConfig{
		Topic:             topic.name,
		NumPartitions:     topic.partitions,
		ReplicationFactor: topic.replicationFactor,
	}
	if cfg.NumPartitions <= 0 {
		cfg.NumPartitions = 1
	}
	if cfg.ReplicationFactor <= 0 {
		cfg.ReplicationFactor = 1
	}

	log.Info("Creating Kafka topic",
		"topic", topic.name,
		"partitions", cfg.NumPartitions,
		"replication_factor", cfg.ReplicationFactor,
	)
	if err := admin.CreateTopics(cfg); err != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", topic.name, err)
	}
	return nil
}
