package tutoring

import "fmt"

// ParseStateUpdate checks a split candidate against the syllabus and, when it
// holds, returns it as a typed update. Any failed check yields a
// malformed_state error and nothing is partially applied.
func ParseStateUpdate(candidate map[string]any, s Syllabus) (AIStateUpdate, error) {
	const op = "tutoring.ParseStateUpdate"
	if candidate == nil {
		return AIStateUpdate{}, newError(KindMalformedState, op, "state block missing or not an object", nil)
	}

	current, ok := candidate["current_topic_id"].(string)
	if !ok {
		return AIStateUpdate{}, newError(KindMalformedState, op, "current_topic_id is not a string", nil)
	}
	if _, found := s.Find(current); !found {
		return AIStateUpdate{}, newError(KindMalformedState, op, fmt.Sprintf("unknown current_topic_id %q", current), nil)
	}

	rawList, ok := candidate["topics_updated"].([]any)
	if !ok || len(rawList) == 0 {
		return AIStateUpdate{}, newError(KindMalformedState, op, "topics_updated must be a non-empty array", nil)
	}

	updates := make([]TopicUpdate, 0, len(rawList))
	for i, raw := range rawList {
		item, ok := raw.(map[string]any)
		if !ok {
			return AIStateUpdate{}, newError(KindMalformedState, op, fmt.Sprintf("topics_updated[%d] is not an object", i), nil)
		}
		topicID, _ := item["topic_id"].(string)
		entry, found := s.Find(topicID)
		if topicID == "" || !found {
			return AIStateUpdate{}, newError(KindMalformedState, op, fmt.Sprintf("topics_updated[%d] has unknown topic_id %q", i, topicID), nil)
		}
		rawStatus, _ := item["status"].(string)
		status := TopicStatus(rawStatus)
		if !status.Valid() {
			return AIStateUpdate{}, newError(KindMalformedState, op, fmt.Sprintf("topics_updated[%d] has illegal status %q", i, rawStatus), nil)
		}
		if entry.Status == StatusCompleted && status != StatusCompleted {
			return AIStateUpdate{}, newError(KindMalformedState, op, fmt.Sprintf("topics_updated[%d] reopens completed topic %q", i, topicID), nil)
		}
		updates = append(updates, TopicUpdate{TopicID: topicID, Status: status})
	}

	trigger, _ := candidate["trigger_summary_generation"].(bool)
	u := AIStateUpdate{
		TriggerSummaryGeneration: trigger,
		CurrentTopicID:           current,
		TopicsUpdated:            updates,
	}
	if err := checkProgression(s.Apply(u), current); err != nil {
		return AIStateUpdate{}, newError(KindMalformedState, op, err.Error(), nil)
	}
	return u, nil
}

// checkProgression holds the applied syllabus to one in_progress topic that
// is also the current one, or to every topic completed.
func checkProgression(applied Syllabus, current string) error {
	var active []string
	completed := 0
	for _, t := range applied.Topics {
		switch t.Status {
		case StatusInProgress:
			active = append(active, t.TopicID)
		case StatusCompleted:
			completed++
		}
	}
	switch {
	case len(active) == 1 && active[0] != current:
		return fmt.Errorf("current_topic_id %q is not the in_progress topic %q", current, active[0])
	case len(active) > 1:
		return fmt.Errorf("update leaves %d topics in_progress", len(active))
	case len(active) == 0 && completed != len(applied.Topics):
		return fmt.Errorf("update leaves no topic in_progress")
	}
	return nil
}

func IsValidStateUpdate(candidate map[string]any, s Syllabus) bool {
	_, err := ParseStateUpdate(candidate, s)
	return err == nil
}

// FallbackUpdate rewrites the current topic with the status it already has.
// Applying it leaves the syllabus unchanged, so a syllabus that was already
// inconsistent stays that way until the model sends a repairing update.
func FallbackUpdate(s Syllabus) AIStateUpdate {
	current := s.CurrentTopicID()
	if current == "" {
		return AIStateUpdate{}
	}
	entry, _ := s.Find(current)
	return AIStateUpdate{
		CurrentTopicID: current,
		TopicsUpdated:  []TopicUpdate{{TopicID: current, Status: entry.Status}},
	}
}

// newlyCompleted lists the topics u marks completed that s did not already
// have completed, in update order and without repeats.
func newlyCompleted(s Syllabus, u AIStateUpdate) []string {
	var out []string
	seen := map[string]bool{}
	for _, upd := range u.TopicsUpdated {
		if upd.Status != StatusCompleted || seen[upd.TopicID] {
			continue
		}
		if entry, ok := s.Find(upd.TopicID); ok && entry.Status != StatusCompleted {
			out = append(out, upd.TopicID)
			seen[upd.TopicID] = true
		}
	}
	return out
}
