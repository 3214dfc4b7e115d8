package sheets

import (
	"strings"
	"time"

	"congresoreg/internal/model"
)

// Column indexes into the canonical row layout. The layout is declared once
// here and validated against the destination tab at startup, so a drifted
// deployment fails loudly instead of writing shifted rows.
type Column int

const (
	ColTimestamp Column = iota
	ColName
	ColLastName
	ColEmail
	ColPhone
	ColAcademicDegree
	ColDepartment
	ColInstitution
	ColCareer
	ColResellerCode
	ColServices
	ColTotalAmount
	ColPaymentMethod
	ColAttendeeFullName
	ColAttendeePhone
	ColPurchaseCode
	ColPrimeA
	ColPrimeB
	ColProductC
	ColOCRSender
	ColOCRReceiver
	ColOCRAmount
	ColOCRDateTime

	columnCount
)

var headers = [columnCount]string{
	"timestamp", "name", "last_name", "email", "phone", "academic_degree",
	"department", "institution", "career", "reseller_code", "services",
	"total_amount", "payment_method", "attendee_full_name", "attendee_phone",
	"purchase_code", "prime_a", "prime_b", "product_c", "ocr_sender",
	"ocr_receiver", "ocr_amount", "ocr_datetime",
}

func Header() []interface{} {
	row := make([]interface{}, columnCount)
	for i, h := range headers {
		row[i] = h
	}
	return row
}

func colLetter(c Column) string {
	return string(rune('A' + int(c)))
}

// IssuedPairsRange addresses the prime_a/prime_b columns below the header.
func IssuedPairsRange() string {
	return colLetter(ColPrimeA) + "2:" + colLetter(ColPrimeB)
}

// BuildRow assembles one spreadsheet row for a single attendee. Shared buyer,
// payment and OCR fields repeat on every row of a batch.
func BuildRow(recordedAt time.Time, sub *model.Submission, att model.Attendee, code model.IssuedCode, ocr model.OCRResult) []interface{} {
	row := make([]interface{}, columnCount)
	row[ColTimestamp] = recordedAt.Format(time.RFC3339)
	row[ColName] = sub.Name
	row[ColLastName] = sub.LastName
	row[ColEmail] = sub.ContactEmail()
	row[ColPhone] = sub.Phone
	row[ColAcademicDegree] = sub.AcademicDegree
	row[ColDepartment] = sub.Department
	row[ColInstitution] = sub.Institution
	row[ColCareer] = sub.Career
	row[ColResellerCode] = sub.ResellerCode
	row[ColServices] = strings.Join(sub.SelectedServices, ", ")
	row[ColTotalAmount] = sub.TotalAmount
	row[ColPaymentMethod] = sub.PaymentMethod
	row[ColAttendeeFullName] = att.FullName
	row[ColAttendeePhone] = att.Phone
	row[ColPurchaseCode] = code.PurchaseCode
	row[ColPrimeA] = code.PrimeA
	row[ColPrimeB] = code.PrimeB
	row[ColProductC] = code.ProductC
	row[ColOCRSender] = ocr.Sender
	row[ColOCRReceiver] = ocr.Receiver
	row[ColOCRAmount] = ocr.Amount
	row[ColOCRDateTime] = ocr.DateTime
	return row
}
