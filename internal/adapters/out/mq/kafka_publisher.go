package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/malakchat/chatapp/internal/domain/entity"
	"github.com/malakchat/chatapp/internal/ports/out"
)

// TopicFriendEvents 好友域事件 Topic
const TopicFriendEvents = "chat.friend.events"

// KafkaEventPublisher Kafka事件发布器
type KafkaEventPublisher struct {
	producer sarama.SyncProducer
}

var _ out.EventPublisher = (*KafkaEventPublisher)(nil)

// NewKafkaEventPublisher 创建Kafka事件发布器
func NewKafkaEventPublisher(brokers []string) (*KafkaEventPublisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3
	config.Producer.Timeout = 10 * time.Second
	// 同一无序对的事件发到同一分区，保持顺序
	config.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return &KafkaEventPublisher{producer: producer}, nil
}

func (p *KafkaEventPublisher) PublishFriendEvent(ctx context.Context, event *out.FriendEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal friend event failed: %w", err)
	}

	u1, u2 := entity.CanonicalPair(event.SenderID, event.ReceiverID)
	msg := &sarama.ProducerMessage{
		Topic: TopicFriendEvents,
		Key:   sarama.StringEncoder(fmt.Sprintf("%d_%d", u1, u2)), // 按无序对分区
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.Type)},
			{Key: []byte("timestamp"), Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		},
	}

	_, _, err = p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("publish friend event failed: %w", err)
	}
	return nil
}

func (p *KafkaEventPublisher) Close() error {
	return p.producer.Close()
}
