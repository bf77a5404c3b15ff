package store

import "time"

type User struct {
	ID           string
	DisplayName  string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile is the full candidate application form. Identity fields are seeded
// at registration; the rest is filled in progressively by the candidate.
type Profile struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	DOB      string `json:"dob"`
	Phone    string `json:"phone"`
	FormDate string `json:"formDate"`

	GuardianName string `json:"guardianName"`
	Residence    string `json:"residence"`
	Area         string `json:"area"`
	Landmark     string `json:"landmark"`
	Address      string `json:"address"`

	ExamCityPref1   string `json:"examCityPref1"`
	ExamCityPref2   string `json:"examCityPref2"`
	PriorExperience string `json:"priorExperience"`
	ExperienceYears string `json:"experienceYears"`
	ExperienceRole  string `json:"experienceRole"`

	PhotoURL      string `json:"photoUrl"`
	SignatureURL  string `json:"signatureUrl"`
	ThumbprintURL string `json:"thumbprintUrl"`

	NationalID string `json:"nationalId"`

	PenaltyAgreed    bool `json:"penaltyAgreed"`
	HealthDeclAgreed bool `json:"healthDeclAgreed"`

	Fever                string `json:"fever"`
	Cough                string `json:"cough"`
	Breathlessness       string `json:"breathlessness"`
	SoreThroat           string `json:"soreThroat"`
	OtherSymptoms        string `json:"otherSymptoms"`
	OtherSymptomsDetails string `json:"otherSymptomsDetails"`
	CloseContact         string `json:"closeContact"`

	AccountHolder string `json:"accountHolder"`
	BankName      string `json:"bankName"`
	IFSC          string `json:"ifsc"`
	Branch        string `json:"branch"`
	BankAccountNo string `json:"bankAccountNo"`
}

// Application statuses. A row starts as a draft; confirm moves it to pending,
// and only an admin decision moves it further.
const (
	StatusDraft    = "draft"
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Application is one candidate's record: the profile plus workflow state.
// After submission it is the Submission Record the admin side reviews.
type Application struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Profile     Profile    `json:"profile"`
	Status      string     `json:"status"`
	SubmittedAt *time.Time `json:"submittedAt"`
	DecidedBy   string     `json:"decidedBy"`
	DecidedAt   *time.Time `json:"decidedAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}
