package model

// Language carries the four per-language reminder templates. The
// two-weeks template contains a %s verb that is filled with the formatted
// visit date at dispatch time.
type Language struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	AttendedMessage string `json:"attended_message"`
	MissedMessage   string `json:"missed_message"`
	TomorrowMessage string `json:"tomorrow_message"`
	TwoWeeksMessage string `json:"twoweeks_message"`
}
