package model

// Setting names used by the statistics digest. Values are newline
// separated recipient lists, as in the clinic admin UI.
const (
	SettingStatsEmails  = "Stats Emails"
	SettingStatsMSISDNs = "Stats MSISDNs"
)

type Setting struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"`
}
