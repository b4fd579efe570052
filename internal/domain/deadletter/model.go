package deadletter

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const DefaultSuffix = "-dlt"

// Header names attached to a dead-lettered message, next to the original headers.
const (
	HeaderOriginalTopic     = "dlt-original-topic"
	HeaderOriginalPartition = "dlt-original-partition"
	HeaderOriginalOffset    = "dlt-original-offset"
	HeaderExceptionMessage  = "dlt-exception-message"
	HeaderFailureKind       = "dlt-failure-kind"
	HeaderClassification    = "dlt-classification"
	HeaderAttemptCount      = "dlt-attempt-count"
	HeaderFailedAt          = "dlt-failed-at"
)

// Record is a message whose processing permanently failed, with enough context to replay it.
type Record struct {
	OriginalTopic     string            `json:"original_topic"`
	OriginalPartition int               `json:"original_partition"`
	OriginalOffset    int64             `json:"original_offset"`
	Key               string            `json:"key"`
	Headers           map[string]string `json:"headers"`
	Body              []byte            `json:"body"`
	Reason            string            `json:"reason"`
	FailureKind       string            `json:"failure_kind"`
	Classification    string            `json:"classification"`
	AttemptCount      int               `json:"attempt_count"`
	FailedAt          time.Time         `json:"failed_at"`
}

// Topic derives the dead-letter topic of source.
func Topic(source, suffix string) string {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	return source + suffix
}

// WireHeaders returns the original headers plus the dead-letter metadata.
func (r Record) WireHeaders() map[string]string {
	h := make(map[string]string, len(r.Headers)+8)
	for k, v := range r.Headers {
		if !strings.HasPrefix(k, "dlt-") {
			h[k] = v
		}
	}
	h[HeaderOriginalTopic] = r.OriginalTopic
	h[HeaderOriginalPartition] = strconv.Itoa(r.OriginalPartition)
	h[HeaderOriginalOffset] = strconv.FormatInt(r.OriginalOffset, 10)
	h[HeaderExceptionMessage] = r.Reason
	h[HeaderFailureKind] = r.FailureKind
	h[HeaderClassification] = r.Classification
	h[HeaderAttemptCount] = strconv.Itoa(r.AttemptCount)
	h[HeaderFailedAt] = r.FailedAt.UTC().Format(time.RFC3339Nano)
	return h
}

// OriginalHeaders strips the dead-letter metadata, leaving what the producer sent.
func (r Record) OriginalHeaders() map[string]string {
	h := make(map[string]string, len(r.Headers))
	for k, v := range r.Headers {
		if !strings.HasPrefix(k, "dlt-") {
			h[k] = v
		}
	}
	return h
}

// Parse rebuilds a Record from a message read off a dead-letter topic.
func Parse(key string, body []byte, headers map[string]string) (Record, error) {
	r := Record{
		OriginalTopic:  headers[HeaderOriginalTopic],
		Key:            key,
		Headers:        headers,
		Body:           body,
		Reason:         headers[HeaderExceptionMessage],
		FailureKind:    headers[HeaderFailureKind],
		Classification: headers[HeaderClassification],
	}
	if r.OriginalTopic == "" {
		return r, fmt.Errorf("missing %s header", HeaderOriginalTopic)
	}

	var err error
	if v := headers[HeaderOriginalPartition]; v != "" {
		if r.OriginalPartition, err = strconv.Atoi(v); err != nil {
			return r, fmt.Errorf("parse %s: %w", HeaderOriginalPartition, err)
		}
	}
	if v := headers[HeaderOriginalOffset]; v != "" {
		if r.OriginalOffset, err = strconv.ParseInt(v, 10, 64); err != nil {
			return r, fmt.Errorf("parse %s: %w", HeaderOriginalOffset, err)
		}
	}
	if v := headers[HeaderAttemptCount]; v != "" {
		if r.AttemptCount, err = strconv.Atoi(v); err != nil {
			return r, fmt.Errorf("parse %s: %w", HeaderAttemptCount, err)
		}
	}
	if v := headers[HeaderFailedAt]; v != "" {
		if r.FailedAt, err = time.Parse(time.RFC3339Nano, v); err != nil {
			return r, fmt.Errorf("parse %s: %w", HeaderFailedAt, err)
		}
	}
	return r, nil
}
