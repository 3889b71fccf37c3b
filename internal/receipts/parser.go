package receipts

import (
	"encoding/xml"
	"errors"
	"fmt"

	"github.com/txtalert/reminder-gateway/internal/model"
)

var ErrParse = errors.New("malformed receipt document")

type receiptsDoc struct {
	XMLName  xml.Name        `xml:"receipts"`
	Receipts []model.Receipt `xml:"receipt"`
}

// ParseReceipts decodes the aggregator's receipt push body. The whole
// document is rejected when it is not well formed; per-receipt problems
// are left for reconciliation.
func ParseReceipts(body []byte) ([]model.Receipt, error) {
	var doc receiptsDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return doc.Receipts, nil
}
