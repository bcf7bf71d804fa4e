/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package natsutil publishes and consumes reconciliation events as CloudEvents over NATS.
package natsutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/energyradar/pkg/logger"
	"github.com/carverauto/energyradar/pkg/models"
)

var errUnexpectedEventType = errors.New("unexpected event type")

// Publisher is the part of jetstream.JetStream used to emit events.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Subscriber is the part of *nats.Conn used to receive period changes.
type Subscriber interface {
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// EventPublisher provides methods for publishing CloudEvents to NATS JetStream.
type EventPublisher struct {
	js     Publisher
	stream string
	logger logger.Logger
	now    func() time.Time
}

// NewEventPublisher creates a new EventPublisher for the specified stream.
func NewEventPublisher(js Publisher, streamName string, log logger.Logger) *EventPublisher {
	return &EventPublisher{
		js:     js,
		stream: streamName,
		logger: log,
		now:    time.Now,
	}
}

func (p *EventPublisher) publish(ctx context.Context, subject, eventType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	ts := p.now().UTC()

	event := models.CloudEvent{
		SpecVersion:     cloudEventsSpec,
		ID:              uuid.New().String(),
		Source:          eventSource,
		Type:            eventTypePrefix + eventType,
		DataContentType: contentTypeJSON,
		Subject:         subject,
		Time:            &ts,
		Data:            data,
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	ack, err := p.js.Publish(ctx, subject, eventBytes)
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}

	p.logger.Debug().
		Str("event_id", event.ID).
		Str("subject", subject).
		Uint64("seq", ack.Sequence).
		Msg("Published event")

	return nil
}

// PublishDataReady announces a finished, current reconciliation result.
func (p *EventPublisher) PublishDataReady(ctx context.Context, result *models.ReconcileResult) error {
	if result == nil {
		return nil
	}

	return p.publish(ctx, SubjectDataReady, "reconcile.data.ready", models.DataReadyData{ReconcileResult: *result})
}

// PublishPeriodChanged asks every reconciler to run a pass for the given period.
func (p *EventPublisher) PublishPeriodChanged(ctx context.Context, scope models.Scope, period models.Period) error {
	return p.publish(ctx, SubjectPeriodChanged, "reconcile.period.changed", models.PeriodChangedData{
		Scope:     scope,
		Period:    period,
		PeriodKey: period.Key(),
		Timestamp: p.now().UTC(),
	})
}

// DecodePeriodChanged parses a period-changed CloudEvent.
func DecodePeriodChanged(raw []byte) (models.PeriodChangedData, error) {
	var (
		event models.CloudEvent
		data  models.PeriodChangedData
	)

	if err := json.Unmarshal(raw, &event); err != nil {
		return data, fmt.Errorf("failed to decode event: %w", err)
	}

	if event.Type != eventTypePrefix+"reconcile.period.changed" {
		return data, fmt.Errorf("%w: %s", errUnexpectedEventType, event.Type)
	}

	if err := json.Unmarshal(event.Data, &data); err != nil {
		return data, fmt.Errorf("failed to decode period change: %w", err)
	}

	return data, nil
}

// SubscribePeriodChanged delivers decoded period changes to handler. Malformed events are
// logged and dropped.
func SubscribePeriodChanged(sub Subscriber, log logger.Logger, handler func(models.PeriodChangedData)) (*nats.Subscription, error) {
	return sub.Subscribe(SubjectPeriodChanged, func(msg *nats.Msg) {
		data, err := DecodePeriodChanged(msg.Data)
		if err != nil {
			log.Warn().Err(err).Str("subject", msg.Subject).Msg("Dropping malformed period change")

			return
		}

		handler(data)
	})
}

// Connect opens a NATS connection with logging handlers and optional mTLS.
func Connect(cfg *Config, log logger.Logger, extraOpts ...nats.Option) (*nats.Conn, error) {
	if cfg.URL == "" {
		return nil, errMissingURL
	}

	opts := []nats.Option{
		nats.Name("energyradar-reconciler"),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	if cfg.TLS != nil {
		tlsConf, err := TLSConfig(cfg.TLS)
		if err != nil {
			return nil, fmt.Errorf("failed to build NATS TLS config: %w", err)
		}

		opts = append(opts, nats.Secure(tlsConf))
	}

	opts = append(opts, extraOpts...)

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.Info().Str("url", nc.ConnectedUrl()).Msg("Connected to NATS")

	return nc, nil
}

// CreateEventPublisher creates an EventPublisher on an existing connection, creating the
// stream or extending its subjects when needed.
func CreateEventPublisher(ctx context.Context, nc *nats.Conn, cfg *Config, log logger.Logger) (*EventPublisher, error) {
	var (
		js  jetstream.JetStream
		err error
	)

	if cfg.Domain != "" {
		js, err = jetstream.NewWithDomain(nc, cfg.Domain)
	} else {
		js, err = jetstream.New(nc)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	streamName := cfg.streamName()

	stream, err := js.Stream(ctx, streamName)

	switch {
	case err == nil:
		info, infoErr := stream.Info(ctx)
		if infoErr != nil {
			return nil, fmt.Errorf("failed to read stream %s: %w", streamName, infoErr)
		}

		subjects := append([]string(nil), info.Config.Subjects...)
		for _, subject := range []string{SubjectPeriodChanged, SubjectDataReady} {
			subjects = ensureSubjectList(subjects, subject)
		}

		if len(subjects) != len(info.Config.Subjects) {
			updated := info.Config
			updated.Subjects = subjects

			if _, err := js.UpdateStream(ctx, updated); err != nil {
				return nil, fmt.Errorf("failed to update stream %s: %w", streamName, err)
			}

			log.Info().Str("stream", streamName).Strs("subjects", subjects).Msg("Extended stream subjects")
		}
	case isStreamMissingErr(err):
		if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:     streamName,
			Subjects: []string{defaultSubjectWC},
		}); err != nil {
			return nil, fmt.Errorf("failed to create stream %s: %w", streamName, err)
		}

		log.Info().Str("stream", streamName).Msg("Created JetStream stream")
	default:
		return nil, fmt.Errorf("failed to look up stream %s: %w", streamName, err)
	}

	return NewEventPublisher(js, streamName, log), nil
}

// ensureSubjectList appends subject unless an existing pattern already covers it.
func ensureSubjectList(subjects []string, subject string) []string {
	for _, pattern := range subjects {
		if matchesSubject(pattern, subject) {
			return subjects
		}
	}

	return append(subjects, subject)
}

// matchesSubject applies NATS wildcard rules: '*' matches one token, '>' the rest.
func matchesSubject(pattern, subject string) bool {
	pt := strings.Split(pattern, ".")
	st := strings.Split(subject, ".")

	for i, tok := range pt {
		if tok == ">" {
			return len(st) > i
		}

		if i >= len(st) {
			return false
		}

		if tok != "*" && tok != st[i] {
			return false
		}
	}

	return len(pt) == len(st)
}

func isStreamMissingErr(err error) bool {
	return errors.Is(err, jetstream.ErrStreamNotFound) ||
		errors.Is(err, jetstream.ErrNoStreamResponse) ||
		errors.Is(err, nats.ErrStreamNotFound) ||
		errors.Is(err, nats.ErrNoStreamResponse) ||
		errors.Is(err, nats.ErrNoResponders)
}
