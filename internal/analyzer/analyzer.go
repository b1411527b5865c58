// Package analyzer turns a raw meeting note into a structured summary.
package analyzer

import (
	"context"
	"strings"

	"github.com/xaenox/vibe-tracker/internal/models"
)

// PlaceholderSummary is stored when the note could not be analyzed.
const PlaceholderSummary = "Could not analyze the note."

const DefaultInstruction = `You are an empathetic assistant to a manager. Your job is to analyze notes from 1:1 meetings.
Your analysis must be structured and useful for the manager.

INPUT: the text of a note.

OUTPUT (JSON):
{
    "mood": int (the employee's mood from 1 to 10, where 1 is burnout and 10 is euphoria),
    "mood_text": "string" (a short description of the mood, e.g. "Anxious", "Inspired"),
    "summary": "string" (a 1-2 sentence summary of the meeting or note),
    "action_items": ["string", "string"] (follow-ups and todos, an empty list if there are none),
    "positive": "string" (what went well, null if nothing),
    "negative": "string" (what went badly or causes stress, null if nothing),
    "tags": ["#tag1", "#tag2"] (hashtags for search, including the person's name if mentioned)
}

Respond with valid JSON ONLY.`

// Request is a single analysis call.
type Request struct {
	Text        string
	Instruction string
}

// Analyzer never fails: on any error it returns a degraded Analysis with
// Error set so the note can still be saved.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) models.Analysis
}

// Degraded builds the placeholder result for a failed call. Hashtags typed
// by the user are kept so the note stays searchable.
func Degraded(content string, err error) models.Analysis {
	return models.Analysis{
		Summary:     PlaceholderSummary,
		ActionItems: []string{},
		Tags:        ExtractHashtags(content),
		Error:       err.Error(),
	}
}

// ExtractHashtags returns the distinct #words of content in order.
func ExtractHashtags(content string) []string {
	tags := make([]string, 0)
	seen := make(map[string]struct{})

	for _, word := range strings.Fields(content) {
		if !strings.HasPrefix(word, "#") {
			continue
		}
		tag := strings.ToLower(strings.TrimRight(word, ".,;:!?"))
		if tag == "#" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}

	return tags
}

// normalize enforces the response contract on whatever the model produced.
func normalize(a models.Analysis) models.Analysis {
	if a.Mood != nil && (*a.Mood < 1 || *a.Mood > 10) {
		a.Mood = nil
	}
	a.MoodText = strings.TrimSpace(a.MoodText)
	a.Summary = strings.TrimSpace(a.Summary)
	a.Positive = trimOptional(a.Positive)
	a.Negative = trimOptional(a.Negative)

	items := make([]string, 0, len(a.ActionItems))
	for _, item := range a.ActionItems {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	a.ActionItems = items

	tags := make([]string, 0, len(a.Tags))
	for _, tag := range a.Tags {
		tag = strings.ReplaceAll(strings.TrimSpace(tag), " ", "_")
		if tag == "" || tag == "#" {
			continue
		}
		if !strings.HasPrefix(tag, "#") {
			tag = "#" + tag
		}
		tags = append(tags, tag)
	}
	a.Tags = tags

	return a
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
