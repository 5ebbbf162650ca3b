package models

import "time"

// AttendanceStatus records a student's presence at one session.
type AttendanceStatus string

// Possible attendance statuses.
const (
	AttendancePresent AttendanceStatus = "PRESENT"
	AttendanceAbsent  AttendanceStatus = "ABSENT"
	AttendanceLate    AttendanceStatus = "LATE"
	AttendanceExcused AttendanceStatus = "EXCUSED"
)

// Attendance is one session record for an enrollment. Marking the same
// session date again overwrites the earlier record.
type Attendance struct {
	ID            string           `db:"id" json:"id"`
	EnrollmentID  string           `db:"enrollment_id" json:"enrollment_id"`
	SessionDate   time.Time        `db:"session_date" json:"session_date"`
	Status        AttendanceStatus `db:"status" json:"status"`
	DurationHours *float64         `db:"duration_hours" json:"duration_hours,omitempty"`
	Remarks       *string          `db:"remarks" json:"remarks,omitempty"`
	MarkedBy      *string          `db:"marked_by" json:"marked_by,omitempty"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
}

// AttendanceDetail enriches Attendance with student and activity context.
type AttendanceDetail struct {
	Attendance
	StudentID    string  `db:"student_id" json:"student_id"`
	StudentName  string  `db:"student_name" json:"student_name"`
	ActivityName string  `db:"activity_name" json:"activity_name"`
	MarkedByName *string `db:"marked_by_name" json:"marked_by_name,omitempty"`
}

// AttendanceFilter provides filters for listing attendance records.
type AttendanceFilter struct {
	EnrollmentID string
	ActivityID   string
	StudentID    string
	Date         string
	Page         int
	PageSize     int
}

// AttendanceSummary aggregates the session history of one enrollment.
type AttendanceSummary struct {
	TotalSessions        int     `db:"total_sessions" json:"total_sessions"`
	PresentCount         int     `db:"present_count" json:"present_count"`
	AbsentCount          int     `db:"absent_count" json:"absent_count"`
	LateCount            int     `db:"late_count" json:"late_count"`
	ExcusedCount         int     `db:"excused_count" json:"excused_count"`
	TotalHours           float64 `db:"total_hours" json:"total_hours"`
	AttendancePercentage float64 `db:"attendance_percentage" json:"attendance_percentage"`
}
