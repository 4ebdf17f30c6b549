package domain

import (
	"context"
	"time"
)

// Activity is a time-boxed entry in a user's journal with a fatigue rating.
type Activity struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	ActivityContent string    `json:"activity_content"`
	CategoryID      string    `json:"category_id"`
	FatigueLevel    int       `json:"fatigue_level"`
	FatigueNotes    *string   `json:"fatigue_notes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ActivityInput carries the user-supplied fields of a new activity.
type ActivityInput struct {
	StartTime       time.Time
	EndTime         time.Time
	ActivityContent string
	CategoryID      string
	FatigueLevel    int
	FatigueNotes    *string
}

// ActivityField names one mutable activity column. Storage adapters build
// UPDATE statements only from these values, never from request text.
type ActivityField int

const (
	FieldStartTime ActivityField = iota
	FieldEndTime
	FieldActivityContent
	FieldCategoryID
	FieldFatigueLevel
	FieldFatigueNotes
)

var activityColumns = [...]string{
	FieldStartTime:       "start_time",
	FieldEndTime:         "end_time",
	FieldActivityContent: "activity_content",
	FieldCategoryID:      "category_id",
	FieldFatigueLevel:    "fatigue_level",
	FieldFatigueNotes:    "fatigue_notes",
}

// Column returns the storage column for f.
func (f ActivityField) Column() string {
	return activityColumns[f]
}

// FieldValue pairs a whitelisted field with its new value.
type FieldValue struct {
	Field ActivityField
	Value any
}

// ActivityPatch is a partial update. Nil fields are left untouched.
type ActivityPatch struct {
	StartTime       *time.Time
	EndTime         *time.Time
	ActivityContent *string
	CategoryID      *string
	FatigueLevel    *int
	FatigueNotes    *string
}

// Fields returns the supplied fields in a stable column order.
func (p ActivityPatch) Fields() []FieldValue {
	var out []FieldValue
	if p.StartTime != nil {
		out = append(out, FieldValue{FieldStartTime, p.StartTime.UTC()})
	}
	if p.EndTime != nil {
		out = append(out, FieldValue{FieldEndTime, p.EndTime.UTC()})
	}
	if p.ActivityContent != nil {
		out = append(out, FieldValue{FieldActivityContent, *p.ActivityContent})
	}
	if p.CategoryID != nil {
		out = append(out, FieldValue{FieldCategoryID, *p.CategoryID})
	}
	if p.FatigueLevel != nil {
		out = append(out, FieldValue{FieldFatigueLevel, int64(*p.FatigueLevel)})
	}
	if p.FatigueNotes != nil {
		out = append(out, FieldValue{FieldFatigueNotes, *p.FatigueNotes})
	}
	return out
}

// IsEmpty reports whether the patch changes nothing.
func (p ActivityPatch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// Apply returns a copy of a with the patch applied.
func (p ActivityPatch) Apply(a Activity) Activity {
	if p.StartTime != nil {
		a.StartTime = p.StartTime.UTC()
	}
	if p.EndTime != nil {
		a.EndTime = p.EndTime.UTC()
	}
	if p.ActivityContent != nil {
		a.ActivityContent = *p.ActivityContent
	}
	if p.CategoryID != nil {
		a.CategoryID = *p.CategoryID
	}
	if p.FatigueLevel != nil {
		a.FatigueLevel = *p.FatigueLevel
	}
	if p.FatigueNotes != nil {
		notes := *p.FatigueNotes
		a.FatigueNotes = &notes
	}
	return a
}

// ActivityRange bounds a listing: Start filters start_time >= Start and End
// filters end_time <= End. Nil bounds are open.
type ActivityRange struct {
	Start *time.Time
	End   *time.Time
}

// ActivityRepository is the port for activity persistence. Get returns
// (nil, nil) when the activity does not exist for that user.
type ActivityRepository interface {
	InsertActivity(ctx context.Context, a Activity) error
	ListActivities(ctx context.Context, userID string, r ActivityRange) ([]Activity, error)
	GetActivity(ctx context.Context, id, userID string) (*Activity, error)
	UpdateActivity(ctx context.Context, id, userID string, patch ActivityPatch, updatedAt time.Time) error
	DeleteActivity(ctx context.Context, id, userID string) error
}
