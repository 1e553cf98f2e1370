package model

import "time"

// ControlDocument is the per-(channel, cue) control flag. A missing
// document is equivalent to Control == false; documents are created
// lazily on first toggle and never deleted.
type ControlDocument struct {
	Control     bool      `json:"control"`
	Title       string    `json:"title,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
}

// ControlFromDocument decodes a stored control document. A nil map
// yields the zero value, matching the missing-document invariant.
func ControlFromDocument(doc map[string]any) ControlDocument {
	var d ControlDocument
	if doc == nil {
		return d
	}
	if v, ok := doc["control"].(bool); ok {
		d.Control = v
	}
	if v, ok := doc["title"].(string); ok {
		d.Title = v
	}
	d.LastUpdated = ParseTime(doc["lastUpdated"])
	return d
}

// HistoryEntry is one appended record of an operator action.
type HistoryEntry struct {
	Action    any       `json:"action"` // rendering value or raw action id
	Mode      Channel   `json:"mode"`
	Timestamp time.Time `json:"timestamp"`
	MatchID   string    `json:"match_id"`
}

// HistoryFromDocument decodes a stored history entry.
func HistoryFromDocument(doc map[string]any) HistoryEntry {
	var e HistoryEntry
	e.Action = doc["action"]
	if v, ok := doc["mode"].(string); ok {
		e.Mode = Channel(v)
	}
	e.Timestamp = ParseTime(doc["timestamp"])
	if v, ok := doc["matchId"].(string); ok {
		e.MatchID = v
	}
	return e
}

// Team identifies one side of a match.
type Team struct {
	ID       string `json:"id"`
	ImageURL string `json:"image_url,omitempty"`
}

// Match is one entry of the match catalog.
type Match struct {
	ID         string    `json:"id"`
	MatchTitle string    `json:"match_title"`
	Location   string    `json:"location"`
	MatchTime  time.Time `json:"match_time"`
	Team1      Team      `json:"team1"`
	Team2      Team      `json:"team2"`
	Tournament Team      `json:"tournament"`
}

// MatchFromDocument decodes a stored match catalog entry.
func MatchFromDocument(id string, doc map[string]any) Match {
	m := Match{ID: id}
	if v, ok := doc["matchTitle"].(string); ok {
		m.MatchTitle = v
	}
	if v, ok := doc["location"].(string); ok {
		m.Location = v
	}
	m.MatchTime = ParseTime(doc["matchTime"])
	m.Team1 = teamFromValue(doc["team1"])
	m.Team2 = teamFromValue(doc["team2"])
	m.Tournament = teamFromValue(doc["tournamentTitle"])
	return m
}

func teamFromValue(v any) Team {
	var t Team
	m, ok := v.(map[string]any)
	if !ok {
		return t
	}
	if s, ok := m["id"].(string); ok {
		t.ID = s
	}
	if s, ok := m["imageUrl"].(string); ok {
		t.ImageURL = s
	}
	return t
}

// Timestamp formats a time for document storage. RFC3339Nano keeps the
// stored form readable and round-trippable through JSON.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTime decodes a stored timestamp field. Unknown shapes yield the
// zero time rather than an error; callers treat that as "unset".
func ParseTime(v any) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}
