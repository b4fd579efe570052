package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"eventsaga/internal/infrastructure/kafka"
)

func newTopicsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topics",
		Short: "Manage topics",
	}

	ensure := &cobra.Command{
		Use:   "ensure",
		Short: "Create the source topics and their dead-letter companions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			specs := kafka.TopicSpecs(
				a.cfg.Topics.All(),
				a.cfg.Topics.DeadLetter,
				a.cfg.Kafka.Partitions,
				a.cfg.Kafka.ReplicationFactor,
				a.cfg.Kafka.MinInSyncReplicas,
			)
			if err := kafka.EnsureTopics(ctx, a.cfg.Kafka.Brokers, specs); err != nil {
				return err
			}
			for _, s := range specs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s partitions=%d replication=%d min.insync.replicas=%d\n",
					s.Name, s.Partitions, s.ReplicationFactor, s.MinInSyncReplicas)
			}
			return nil
		},
	}

	cmd.AddCommand(ensure)
	return cmd
}
