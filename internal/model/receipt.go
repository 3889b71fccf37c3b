package model

// Receipt is one delivery receipt element as pushed by the aggregator.
// Values are kept in their wire form; the receipt processor parses the
// timestamp and maps the status code when it reconciles against a Message.
//
// The document looks like:
//
//	<?xml version="1.0"?>
//	<!DOCTYPE receipts>
//	<receipts>
//	  <receipt>
//	    <msgid>26567958</msgid>
//	    <reference>001efc31</reference>
//	    <msisdn>+44727204592</msisdn>
//	    <status>D</status>
//	    <timestamp>20080831T15:59:24</timestamp>
//	    <billed>NO</billed>
//	  </receipt>
//	</receipts>
type Receipt struct {
	MsgID     string `xml:"msgid" json:"msgid"`
	Reference string `xml:"reference" json:"reference"`
	MSISDN    string `xml:"msisdn" json:"msisdn"`
	Status    string `xml:"status" json:"status"`
	Timestamp string `xml:"timestamp" json:"timestamp"`
	Billed    string `xml:"billed" json:"billed"`
}
