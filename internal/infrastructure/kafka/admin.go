package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

type TopicSpec struct {
	Name              string
	Partitions        int
	ReplicationFactor int
	MinInSyncReplicas int
}

// EnsureTopics creates the given topics through the cluster controller. Existing topics are
// left untouched.
func EnsureTopics(ctx context.Context, brokers []string, specs []TopicSpec) error {
	if len(brokers) == 0 {
		return errors.New("no brokers configured")
	}

	dialer := &kafka.Dialer{Timeout: 10 * time.Second}

	conn, err := dialer.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("find controller: %w", err)
	}

	ctrlConn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("dial controller: %w", err)
	}
	defer ctrlConn.Close()

	configs := make([]kafka.TopicConfig, 0, len(specs))
	for _, s := range specs {
		tc := kafka.TopicConfig{
			Topic:             s.Name,
			NumPartitions:     s.Partitions,
			ReplicationFactor: s.ReplicationFactor,
		}
		if s.MinInSyncReplicas > 0 {
			tc.ConfigEntries = append(tc.ConfigEntries, kafka.ConfigEntry{
				ConfigName:  "min.insync.replicas",
				ConfigValue: strconv.Itoa(s.MinInSyncReplicas),
			})
		}
		configs = append(configs, tc)
	}

	if err := ctrlConn.CreateTopics(configs...); err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		return fmt.Errorf("create topics: %w", err)
	}

	return nil
}

// TopicSpecs returns specs for the source topics and their dead-letter companions.
func TopicSpecs(topics []string, deadLetter func(string) string, partitions, replication, minISR int) []TopicSpec {
	specs := make([]TopicSpec, 0, len(topics)*2)
	for _, t := range topics {
		for _, name := range []string{t, deadLetter(t)} {
			specs = append(specs, TopicSpec{
				Name:              name,
				Partitions:        partitions,
				ReplicationFactor: replication,
				MinInSyncReplicas: minISR,
			})
		}
	}
	return specs
}
