package v1

import "time"

// Payloads exchanged along the grading and enrollment chains. Field names match
// the JSON keys stored in Event.Data.

type AttemptGradedData struct {
	AttemptID string  `json:"attemptId,omitempty"`
	ExamID    string  `json:"examId"`
	Score     float64 `json:"score"`
	MaxScore  float64 `json:"maxScore"`
}

// AttemptRef is the identifying part of an ATTEMPT_GRADED payload. Consumers
// read score and maxScore through the score package, which also accepts
// numeric strings.
type AttemptRef struct {
	AttemptID string `json:"attemptId,omitempty"`
	ExamID    string `json:"examId"`
}

type StudentEnrolledData struct {
	ClassID   string `json:"classId"`
	ClassName string `json:"className,omitempty"`
	SchoolID  string `json:"schoolId,omitempty"`
}

type InvitationAcceptedData struct {
	InvitationID string `json:"invitationId"`
	ClassID      string `json:"classId"`
}

type SchoolCreatedData struct {
	SchoolID string `json:"schoolId"`
	Name     string `json:"name"`
	OwnerID  string `json:"ownerId,omitempty"`
}

type ClassCreatedData struct {
	ClassID   string `json:"classId"`
	ClassName string `json:"className"`
	SchoolID  string `json:"schoolId"`
	TeacherID string `json:"teacherId,omitempty"`
}

type SyllabusUpdatedData struct {
	SyllabusID string   `json:"syllabusId"`
	SchoolID   string   `json:"schoolId,omitempty"`
	Changes    []string `json:"changes,omitempty"`
}

type XPGainedData struct {
	Amount   int    `json:"amount"`
	Source   string `json:"source"`
	SourceID string `json:"sourceId,omitempty"`
	NewTotal int    `json:"newTotal"`
	NewLevel int    `json:"newLevel"`
}

type LevelUpData struct {
	OldLevel int `json:"oldLevel"`
	NewLevel int `json:"newLevel"`
	TotalXP  int `json:"totalXP"`
}

type BadgeEarnedData struct {
	BadgeID       string `json:"badgeId"`
	BadgeName     string `json:"badgeName"`
	BadgeIcon     string `json:"badgeIcon"`
	BadgeRarity   string `json:"badgeRarity"`
	PointsAwarded int    `json:"pointsAwarded"`
}

type NotificationCreatedData struct {
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Type      string                 `json:"type"`
	Priority  string                 `json:"priority"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
	Read      bool                   `json:"read"`
}
