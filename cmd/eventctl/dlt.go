package main

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/spf13/cobra"

	"eventsaga/internal/domain/deadletter"
	kafkaInfra "eventsaga/internal/infrastructure/kafka"
	"eventsaga/internal/usecase"
)

func newDLTCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dlt",
		Short: "Inspect and replay dead-lettered messages",
	}
	cmd.AddCommand(newDLTListCmd(a), newDLTReplayCmd(a))
	return cmd
}

type dltFlags struct {
	topic string
	limit int
	idle  time.Duration
}

func (f *dltFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.topic, "topic", "t", "", "source topic whose dead letters to read")
	cmd.Flags().IntVarP(&f.limit, "limit", "n", 100, "maximum number of dead letters to read")
	cmd.Flags().DurationVar(&f.idle, "idle", 2*time.Second, "stop reading a partition after it is idle this long")
	_ = cmd.MarkFlagRequired("topic")
}

func (a *app) deadLetters(f *dltFlags) *usecase.ListDeadLetters {
	return usecase.NewListDeadLetters(func(ctx context.Context, topic string, limit int) ([]kafka.Message, error) {
		return kafkaInfra.ReadDeadLetters(ctx, a.cfg.Kafka.Brokers, topic, a.cfg.Kafka.Partitions, limit, f.idle)
	})
}

func newDLTListCmd(a *app) *cobra.Command {
	f := &dltFlags{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print dead letters of a topic as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			records, err := a.deadLetters(f).Execute(ctx, a.cfg.Topics.DeadLetter(f.topic), f.limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), records)
		},
	}
	f.register(cmd)
	return cmd
}

func newDLTReplayCmd(a *app) *cobra.Command {
	f := &dltFlags{}
	var partition int
	var offset int64
	var all bool

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Republish dead letters to their original topic",
		Long: `Republish dead letters to their original topic with their original messageId.
Messages the consumer already recorded in its ledger are skipped there as duplicates.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !all && (partition < 0 || offset < 0) {
				return fmt.Errorf("either --partition with --offset, or --all, is required")
			}

			ctx, cancel := a.context(cmd)
			defer cancel()

			records, err := a.deadLetters(f).Execute(ctx, a.cfg.Topics.DeadLetter(f.topic), f.limit)
			if err != nil {
				return err
			}

			replay := usecase.NewReplayDeadLetter(a.factory.Publisher(), nil)
			var replayed int
			for _, rec := range selectRecords(records, partition, offset, all) {
				receipt, err := replay.Execute(ctx, rec)
				if err != nil {
					return err
				}
				replayed++
				fmt.Fprintf(cmd.OutOrStdout(), "replayed %s/%d@%d -> partition %d offset %d\n",
					rec.OriginalTopic, rec.OriginalPartition, rec.OriginalOffset, receipt.Partition, receipt.Offset)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d dead letters replayed\n", replayed)
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().IntVar(&partition, "partition", -1, "original partition of the dead letter to replay")
	cmd.Flags().Int64Var(&offset, "offset", -1, "original offset of the dead letter to replay")
	cmd.Flags().BoolVar(&all, "all", false, "replay every dead letter read")
	return cmd
}

// selectRecords picks the record at partition/offset of the original topic, or every record.
func selectRecords(records []deadletter.Record, partition int, offset int64, all bool) []deadletter.Record {
	if all {
		return records
	}
	var out []deadletter.Record
	for _, r := range records {
		if r.OriginalPartition == partition && r.OriginalOffset == offset {
			out = append(out, r)
		}
	}
	return out
}
