// Package sink writes the generated event stream and user-profile
// answer key to disk: one event per JSONL line or CSV row, with
// optional fields gated by the output-field flags (spec §6).
package sink

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/krukkeniels/badgesim/internal/eventgen"
	"github.com/krukkeniels/badgesim/internal/ids"
	"github.com/krukkeniels/badgesim/internal/user"
)

// Format is the output encoding for the event stream.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// Fields selects which optional event fields are serialised. Core
// fields (timestamp, user_id, room_id, building_id, location_id,
// success) are always present.
type Fields struct {
	EventType     bool
	FailureReason bool
	Metadata      bool
}

// resolved expands includeAll into the individual flags.
func (f Fields) resolved(includeAll bool) Fields {
	if includeAll {
		return Fields{EventType: true, FailureReason: true, Metadata: true}
	}
	return f
}

// eventRecord is the JSON-serialisable shape of one access event,
// built field-by-field according to Fields so omitted optional fields
// never appear in the output at all (not merely null).
type eventRecord struct {
	Timestamp     string         `json:"timestamp"`
	UserID        string         `json:"user_id"`
	RoomID        string         `json:"room_id"`
	BuildingID    string         `json:"building_id"`
	LocationID    string         `json:"location_id"`
	Success       bool           `json:"success"`
	EventType     string         `json:"event_type,omitempty"`
	FailureReason string         `json:"failure_reason,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// EventSink is the buffered, periodically-flushed JSONL/CSV event
// writer. Safe for concurrent use; flush ordering is not itself a
// correctness requirement since variance already guarantees monotonic
// per-caller timestamp order before events reach the sink.
type EventSink struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	csvW   *csv.Writer
	format Format
	fields Fields
	wroteHeader bool
	closed bool
}

// NewEventSink opens path for writing and returns a sink that encodes
// events per format/fields. includeAll forces every optional field on,
// overriding fields' individual settings.
func NewEventSink(path string, format Format, fields Fields, includeAll bool) (*EventSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("sink: opening %s: %w", path, err)
	}
	w := bufio.NewWriterSize(f, 64*1024)
	s := &EventSink{file: f, writer: w, format: format, fields: fields.resolved(includeAll)}
	if format == FormatCSV {
		s.csvW = csv.NewWriter(w)
	}
	return s, nil
}

// Write appends a single event, failing the whole run per spec §7's
// "sink write error: propagate and abort."
func (s *EventSink) Write(ev eventgen.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("sink: write after close")
	}

	rec := s.toRecord(ev)
	switch s.format {
	case FormatCSV:
		return s.writeCSV(rec)
	default:
		return s.writeJSON(rec)
	}
}

func (s *EventSink) toRecord(ev eventgen.Event) eventRecord {
	rec := eventRecord{
		Timestamp:  ev.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		UserID:     ev.UserID.String(),
		RoomID:     ev.RoomID.String(),
		BuildingID: ev.BuildingID.String(),
		LocationID: ev.LocationID.String(),
		Success:    ev.Success,
	}
	if s.fields.EventType {
		rec.EventType = string(ev.EventType)
	}
	if s.fields.FailureReason && ev.FailureReason != nil {
		rec.FailureReason = string(*ev.FailureReason)
	}
	if s.fields.Metadata && len(ev.Metadata) > 0 {
		rec.Metadata = ev.Metadata
	}
	return rec
}

func (s *EventSink) writeJSON(rec eventRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("sink: marshal event: %w", err)
	}
	if _, err := s.writer.Write(data); err != nil {
		return fmt.Errorf("sink: write event: %w", err)
	}
	return s.writer.WriteByte('\n')
}

func (s *EventSink) csvHeader() []string {
	cols := []string{"timestamp", "user_id", "room_id", "building_id", "location_id", "success"}
	if s.fields.EventType {
		cols = append(cols, "event_type")
	}
	if s.fields.FailureReason {
		cols = append(cols, "failure_reason")
	}
	if s.fields.Metadata {
		cols = append(cols, "metadata")
	}
	return cols
}

func (s *EventSink) writeCSV(rec eventRecord) error {
	if !s.wroteHeader {
		if err := s.csvW.Write(s.csvHeader()); err != nil {
			return fmt.Errorf("sink: write csv header: %w", err)
		}
		s.wroteHeader = true
	}

	row := []string{rec.Timestamp, rec.UserID, rec.RoomID, rec.BuildingID, rec.LocationID, strconv.FormatBool(rec.Success)}
	if s.fields.EventType {
		row = append(row, rec.EventType)
	}
	if s.fields.FailureReason {
		row = append(row, rec.FailureReason)
	}
	if s.fields.Metadata {
		var meta string
		if len(rec.Metadata) > 0 {
			if b, err := json.Marshal(rec.Metadata); err == nil {
				meta = string(b)
			}
		}
		row = append(row, meta)
	}
	if err := s.csvW.Write(row); err != nil {
		return fmt.Errorf("sink: write csv row: %w", err)
	}
	return nil
}

// Flush forces any buffered events to disk.
func (s *EventSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.csvW != nil {
		s.csvW.Flush()
		if err := s.csvW.Error(); err != nil {
			return fmt.Errorf("sink: flush csv: %w", err)
		}
	}
	return s.writer.Flush()
}

// Close flushes and closes the underlying file.
func (s *EventSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.csvW != nil {
		s.csvW.Flush()
	}
	if err := s.writer.Flush(); err != nil {
		return fmt.Errorf("sink: flush on close: %w", err)
	}
	return s.file.Close()
}

// ProfileSink writes the user-profile answer key: one JSONL record per
// user with ids, authorized entitlements, behaviour flags/profile, and
// derived travel pattern, for downstream ground-truth validation.
type ProfileSink struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	closed bool
}

// NewProfileSink opens path for writing user-profile JSONL records.
func NewProfileSink(path string) (*ProfileSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("sink: opening %s: %w", path, err)
	}
	return &ProfileSink{file: f, writer: bufio.NewWriterSize(f, 64*1024)}, nil
}

type profileRecord struct {
	UserID            string   `json:"user_id"`
	PrimaryLocationID string   `json:"primary_location_id"`
	PrimaryBuildingID string   `json:"primary_building_id"`
	AuthorizedRooms   []string `json:"authorized_rooms"`
	AuthorizedBuildings []string `json:"authorized_buildings"`
	AuthorizedLocations []string `json:"authorized_locations"`
	IsCurious         bool     `json:"is_curious"`
	HasClonedBadge    bool     `json:"has_cloned_badge"`
	IsNightShift      bool     `json:"is_night_shift"`
	TravelFrequency   float64  `json:"travel_frequency"`
	CuriosityLevel    float64  `json:"curiosity_level"`
	ScheduleAdherence float64  `json:"schedule_adherence"`
	SocialLevel       float64  `json:"social_level"`
	TravelsFrequently bool     `json:"travels_frequently"`
}

// Write appends one user's profile record.
func (p *ProfileSink) Write(u *user.User) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("sink: write after close")
	}

	rec := profileRecord{
		UserID:              u.ID.String(),
		PrimaryLocationID:   u.PrimaryLocationID.String(),
		PrimaryBuildingID:   u.PrimaryBuildingID.String(),
		AuthorizedRooms:     idStrings(u.Permissions.Rooms()),
		AuthorizedBuildings: idStrings(u.Permissions.Buildings()),
		AuthorizedLocations: idStrings(u.Permissions.Locations()),
		IsCurious:           u.IsCurious,
		HasClonedBadge:      u.HasClonedBadge,
		IsNightShift:        u.IsNightShift,
		TravelFrequency:     u.Behavior.TravelFrequency,
		CuriosityLevel:      u.Behavior.CuriosityLevel,
		ScheduleAdherence:   u.Behavior.ScheduleAdherence,
		SocialLevel:         u.Behavior.SocialLevel,
		TravelsFrequently:   u.Behavior.TravelsFrequently(),
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("sink: marshal profile: %w", err)
	}
	if _, err := p.writer.Write(data); err != nil {
		return fmt.Errorf("sink: write profile: %w", err)
	}
	return p.writer.WriteByte('\n')
}

func idStrings(vals []ids.ID) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = v.String()
	}
	return out
}

// Flush forces any buffered records to disk.
func (p *ProfileSink) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writer.Flush()
}

// Close flushes and closes the underlying file.
func (p *ProfileSink) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if err := p.writer.Flush(); err != nil {
		return fmt.Errorf("sink: flush on close: %w", err)
	}
	return p.file.Close()
}
