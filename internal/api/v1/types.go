package v1

// EventType is the closed set of event names exchanged between modules.
type EventType string

// Auth
const (
	UserRegistered       EventType = "USER_REGISTERED"
	UserProfileCompleted EventType = "USER_PROFILE_COMPLETED"
	UserLogin            EventType = "USER_LOGIN"
	UserLogout           EventType = "USER_LOGOUT"
)

// Academic structure
const (
	SchoolCreated       EventType = "SCHOOL_CREATED"
	SchoolValidated     EventType = "SCHOOL_VALIDATED"
	ClassCreated        EventType = "CLASS_CREATED"
	ClassUpdated        EventType = "CLASS_UPDATED"
	TeacherAddedToClass EventType = "TEACHER_ADDED_TO_CLASS"
	SyllabusCreated     EventType = "SYLLABUS_CREATED"
	SyllabusUpdated     EventType = "SYLLABUS_UPDATED"
)

// Invitations
const (
	InvitationCreated    EventType = "INVITATION_CREATED"
	InvitationAccepted   EventType = "INVITATION_ACCEPTED"
	StudentEnrolled      EventType = "STUDENT_ENROLLED"
	BatchImportCompleted EventType = "BATCH_IMPORT_COMPLETED"
)

// Assessments
const (
	ExamCreated                EventType = "EXAM_CREATED"
	ExamSubmittedForValidation EventType = "EXAM_SUBMITTED_FOR_VALIDATION"
	ExamValidated              EventType = "EXAM_VALIDATED"
	ExamPublished              EventType = "EXAM_PUBLISHED"
	ExamArchived               EventType = "EXAM_ARCHIVED"
	ExamStatusChanged          EventType = "EXAM_STATUS_CHANGED"
	LateCodeGenerated          EventType = "LATE_CODE_GENERATED"
	LateCodeUsed               EventType = "LATE_CODE_USED"
)

// Exam execution
const (
	AttemptStarted     EventType = "ATTEMPT_STARTED"
	QuestionAnswered   EventType = "QUESTION_ANSWERED"
	AttemptSubmitted   EventType = "ATTEMPT_SUBMITTED"
	AttemptGraded      EventType = "ATTEMPT_GRADED"
	AntiCheatViolation EventType = "ANTI_CHEAT_VIOLATION"
)

// Gamification
const (
	XPGained           EventType = "XP_GAINED"
	BadgeEarned        EventType = "BADGE_EARNED"
	LevelUp            EventType = "LEVEL_UP"
	StreakAchieved     EventType = "STREAK_ACHIEVED"
	ChallengeCompleted EventType = "CHALLENGE_COMPLETED"
)

// Analytics
const (
	AnalyticsReportGenerated EventType = "ANALYTICS_REPORT_GENERATED"
	PerformanceAlert         EventType = "PERFORMANCE_ALERT"
)

// Messaging
const (
	ForumCreated        EventType = "FORUM_CREATED"
	ForumPostCreated    EventType = "FORUM_POST_CREATED"
	ForumReplyCreated   EventType = "FORUM_REPLY_CREATED"
	MessageSent         EventType = "MESSAGE_SENT"
	NotificationCreated EventType = "NOTIFICATION_CREATED"
	RequestCreated      EventType = "REQUEST_CREATED"
	RequestAccepted     EventType = "REQUEST_ACCEPTED"
	RequestRejected     EventType = "REQUEST_REJECTED"
	RequestCompleted    EventType = "REQUEST_COMPLETED"
)

var knownTypes = map[EventType]struct{}{
	UserRegistered: {}, UserProfileCompleted: {}, UserLogin: {}, UserLogout: {},
	SchoolCreated: {}, SchoolValidated: {}, ClassCreated: {}, ClassUpdated: {},
	TeacherAddedToClass: {}, SyllabusCreated: {}, SyllabusUpdated: {},
	InvitationCreated: {}, InvitationAccepted: {}, StudentEnrolled: {}, BatchImportCompleted: {},
	ExamCreated: {}, ExamSubmittedForValidation: {}, ExamValidated: {}, ExamPublished: {},
	ExamArchived: {}, ExamStatusChanged: {}, LateCodeGenerated: {}, LateCodeUsed: {},
	AttemptStarted: {}, QuestionAnswered: {}, AttemptSubmitted: {}, AttemptGraded: {}, AntiCheatViolation: {},
	XPGained: {}, BadgeEarned: {}, LevelUp: {}, StreakAchieved: {}, ChallengeCompleted: {},
	AnalyticsReportGenerated: {}, PerformanceAlert: {},
	ForumCreated: {}, ForumPostCreated: {}, ForumReplyCreated: {}, MessageSent: {},
	NotificationCreated: {}, RequestCreated: {}, RequestAccepted: {}, RequestRejected: {}, RequestCompleted: {},
}

// Valid reports whether t belongs to the known event set.
func (t EventType) Valid() bool {
	_, ok := knownTypes[t]
	return ok
}

func (t EventType) String() string {
	return string(t)
}
