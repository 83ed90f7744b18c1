package focus

import (
	"context"
	"encoding/json"
	"strings"

	"cageclock/internal/kvstore"
	"cageclock/internal/services"
	"cageclock/internal/validate"
)

// Topics returns the saved topic list and the active topic.
func (m *Machine) Topics(ctx context.Context) ([]string, string, error) {
	values, err := m.kv.GetMany(ctx, kvstore.KeyFocusTopics, kvstore.KeyFocusTopic)
	if err != nil {
		return nil, "", err
	}
	var topics []string
	var active string
	if raw, ok := values[kvstore.KeyFocusTopics]; ok {
		if err := json.Unmarshal(raw, &topics); err != nil {
			return nil, "", services.Storage("focus decode "+kvstore.KeyFocusTopics, err)
		}
	}
	if raw, ok := values[kvstore.KeyFocusTopic]; ok {
		if err := json.Unmarshal(raw, &active); err != nil {
			return nil, "", services.Storage("focus decode "+kvstore.KeyFocusTopic, err)
		}
	}
	if topics == nil {
		topics = []string{}
	}
	return topics, active, nil
}

// SetTopic validates topic, makes it the active topic and records it in the
// saved list. The sanitized topic is returned.
func (m *Machine) SetTopic(ctx context.Context, topic string) (string, error) {
	if err := validate.Topic(topic).Err(); err != nil {
		return "", err
	}
	topic = validate.SanitizeTopic(topic)

	topics, _, err := m.Topics(ctx)
	if err != nil {
		return "", err
	}
	if indexFold(topics, topic) < 0 {
		topics = append(topics, topic)
	}
	if err := m.kv.SetMany(ctx, map[string]any{
		kvstore.KeyFocusTopic:  topic,
		kvstore.KeyFocusTopics: topics,
	}); err != nil {
		return "", err
	}
	return topic, nil
}

// AddTopic saves topic without switching to it, unless no topic is active.
func (m *Machine) AddTopic(ctx context.Context, topic string) (string, error) {
	if err := validate.Topic(topic).Err(); err != nil {
		return "", err
	}
	topic = validate.SanitizeTopic(topic)

	topics, active, err := m.Topics(ctx)
	if err != nil {
		return "", err
	}
	values := map[string]any{}
	if indexFold(topics, topic) < 0 {
		values[kvstore.KeyFocusTopics] = append(topics, topic)
	}
	if strings.TrimSpace(active) == "" {
		values[kvstore.KeyFocusTopic] = topic
	}
	if len(values) == 0 {
		return topic, nil
	}
	return topic, m.kv.SetMany(ctx, values)
}

// RemoveTopic drops topic from the saved list. Removing the active topic
// activates the first remaining one, or clears it.
func (m *Machine) RemoveTopic(ctx context.Context, topic string) error {
	topics, active, err := m.Topics(ctx)
	if err != nil {
		return err
	}
	idx := indexFold(topics, strings.TrimSpace(topic))
	if idx < 0 {
		return services.Validationf("Topic %q is not saved", strings.TrimSpace(topic))
	}
	removed := topics[idx]
	topics = append(topics[:idx], topics[idx+1:]...)

	values := map[string]any{kvstore.KeyFocusTopics: topics}
	if strings.EqualFold(active, removed) {
		if len(topics) > 0 {
			values[kvstore.KeyFocusTopic] = topics[0]
		} else {
			values[kvstore.KeyFocusTopic] = nil
		}
	}
	return m.kv.SetMany(ctx, values)
}

func indexFold(list []string, value string) int {
	for i, item := range list {
		if strings.EqualFold(item, value) {
			return i
		}
	}
	return -1
}
