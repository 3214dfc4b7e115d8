package model

const (
	PaymentQR   = "qr"
	PaymentCash = "efectivo"
)

type Buyer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type Attendee struct {
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
}

// ProofFile is the uploaded payment proof, held in memory for the request.
type ProofFile struct {
	Data     []byte
	MimeType string
	Filename string
}

type Submission struct {
	Name             string
	LastName         string
	Email            string
	Phone            string
	AcademicDegree   string
	Department       string
	Institution      string
	Career           string
	ResellerCode     string
	SelectedServices []string
	TotalAmount      string
	PaymentMethod    string
	EventName        string
	Buyer            *Buyer
	Attendees        []Attendee
	Proof            *ProofFile
}

// IssuedCode is written once per attendee row and never mutated.
type IssuedCode struct {
	PurchaseCode string
	PrimeA       int
	PrimeB       int
	ProductC     int64
}

type OCRResult struct {
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Amount   string `json:"amount"`
	DateTime string `json:"dateTime"`
}

// ContactEmail is where the confirmation e-mail goes: the buyer object wins
// over the flat email field when both are present.
func (s *Submission) ContactEmail() string {
	if s.Buyer != nil && s.Buyer.Email != "" {
		return s.Buyer.Email
	}
	return s.Email
}

func (s *Submission) ContactName() string {
	if s.Buyer != nil && s.Buyer.Name != "" {
		return s.Buyer.Name
	}
	if s.LastName != "" {
		return s.Name + " " + s.LastName
	}
	return s.Name
}
