package fixtures

import (
	"fmt"
	"time"

	"github.com/txtalert/reminder-gateway/internal/model"
)

var (
	TestLanguageEnglish = model.Language{
		ID:              1,
		Name:            "English",
		AttendedMessage: "Thank you for attending your clinic visit yesterday.",
		MissedMessage:   "You missed your clinic visit yesterday. Please call the clinic.",
		TomorrowMessage: "Remember your clinic visit tomorrow.",
		TwoWeeksMessage: "You have a clinic visit on %s.",
	}

	TestLanguageSotho = model.Language{
		ID:              2,
		Name:            "Sotho",
		AttendedMessage: "Re leboha ha u ile tleliniking maobane.",
		MissedMessage:   "U fositse letsatsi la hau la tleliniki maobane.",
		TomorrowMessage: "Hopola tleliniki ea hau hosane.",
		TwoWeeksMessage: "U na le letsatsi la tleliniki ka %s.",
	}
)

func NewTestMessage(msisdn, identifier string, delivery time.Time) *model.Message {
	return &model.Message{
		MSISDN:           msisdn,
		Content:          "test reminder",
		Delivery:         delivery,
		Expiry:           delivery.Add(24 * time.Hour),
		Priority:         model.PriorityStandard,
		ReceiptRequested: true,
		Identifier:       identifier,
		Status:           model.MessageStatusPending,
		CreatedAt:        time.Now(),
	}
}

func NewTestReceipt(reference, msisdn, status string, at time.Time) model.Receipt {
	return model.Receipt{
		MsgID:     "26567958",
		Reference: reference,
		MSISDN:    msisdn,
		Status:    status,
		Timestamp: at.Format(model.TimestampFormat),
		Billed:    "NO",
	}
}

// ReceiptDocument renders the XML document the aggregator pushes.
func ReceiptDocument(receipts ...model.Receipt) string {
	doc := "<?xml version=\"1.0\"?>\n<receipts>\n"
	for _, r := range receipts {
		doc += fmt.Sprintf(`  <receipt>
    <msgid>%s</msgid>
    <reference>%s</reference>
    <msisdn>%s</msisdn>
    <status>%s</status>
    <timestamp>%s</timestamp>
    <billed>%s</billed>
  </receipt>
`, r.MsgID, r.Reference, r.MSISDN, r.Status, r.Timestamp, r.Billed)
	}
	return doc + "</receipts>"
}

func NewTestPleaseCallMeRequest(msisdn, smsID string) model.PleaseCallMeCreateRequest {
	return model.PleaseCallMeCreateRequest{
		MSISDN:  msisdn,
		SMSID:   smsID,
		Message: "Please Call Me",
	}
}

var (
	ValidMSISDNs = []string{
		"27831112222",
		"27834445555",
		"+27821234567",
		"0821234567",
	}

	InvalidMSISDNs = []string{
		"",
		"   ",
	}
)
