package attendance

import "time"

// DateKey derives the attendance partition key: take the server-observed
// instant, shift it by the employee's local UTC offset in minutes, and keep
// the calendar date. Computed exactly once per request so a punch straddling
// midnight cannot read one day's record and write another's.
func DateKey(instant time.Time, tzOffsetMinutes int) string {
	local := instant.UTC().Add(time.Duration(tzOffsetMinutes) * time.Minute)
	return local.Format("2006-01-02")
}

// LocalClock formats the instant as a local wall-clock time under the given
// offset, for human-facing punch responses.
func LocalClock(instant time.Time, tzOffsetMinutes int) string {
	local := instant.UTC().Add(time.Duration(tzOffsetMinutes) * time.Minute)
	return local.Format("15:04:05")
}
