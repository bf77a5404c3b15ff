package render

import (
	"bytes"
	"fmt"
	"html/template"

	"ciportal/api/internal/store"
)

// blank is printed wherever a field was left empty, so the paper form can be
// completed by hand.
const blank = "__________"

var sectionFuncs = template.FuncMap{
	"orBlank": func(s string) string {
		if s == "" {
			return blank
		}
		return s
	},
	"checked": func(b bool) string {
		if b {
			return "Yes"
		}
		return "No"
	},
	"symptom": func(s string) string {
		if s == "" {
			return "No"
		}
		return s
	},
}

type sectionData struct {
	P   store.Profile
	Cfg DocumentConfig
}

// The shared frame forces a light palette so the captured images match the
// printed page regardless of the browser's color scheme.
const sectionFrame = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  :root { color-scheme: light; }
  html, body { margin: 0; padding: 0; background: #ffffff; color: #111111; }
  body { width: 190mm; font-family: Georgia, 'Times New Roman', serif; font-size: 11pt; line-height: 1.5; }
  .section { padding: 4mm 2mm; }
  h2 { font-size: 13pt; text-align: center; text-transform: uppercase; margin: 0 0 4mm; }
  p { margin: 0 0 3mm; text-align: justify; }
  table { width: 100%%; border-collapse: collapse; margin: 2mm 0; }
  td { padding: 1mm 2mm; vertical-align: top; }
  td.label { width: 45mm; font-weight: bold; }
  ol { margin: 0 0 3mm; padding-left: 8mm; }
  li { margin-bottom: 1.5mm; text-align: justify; }
  .sig-row { display: flex; justify-content: space-between; margin-top: 8mm; }
  .sig-box { width: 55mm; text-align: center; border-top: 1px solid #111; padding-top: 1mm; font-size: 10pt; }
  .stamp-box { width: 30mm; height: 30mm; border: 1px dashed #555; display: inline-block; text-align: center; font-size: 8pt; padding-top: 10mm; box-sizing: border-box; }
  .photo-box { width: 30mm; height: 38mm; border: 1px solid #555; float: right; text-align: center; font-size: 8pt; padding-top: 16mm; box-sizing: border-box; }
  img.photo { width: 30mm; height: 38mm; float: right; object-fit: cover; }
  img.signature { height: 12mm; }
</style>
</head>
<body><div class="section">%s</div></body>
</html>`

const appointmentBody = `
<h2>Appointment cum Confidentiality Declaration</h2>
{{if .P.PhotoURL}}<img class="photo" src="{{.P.PhotoURL}}" alt="photo">{{else}}<div class="photo-box">Affix recent photograph</div>{{end}}
<p>To,<br>The Examination Controller,<br>{{.Cfg.OrgName}}</p>
<p><strong>Subject:</strong> Acceptance of appointment as Exam Invigilator for the {{.Cfg.ExamName}} to be held from {{.Cfg.ExamDates}}.</p>
<p>I, <strong>{{orBlank .P.Name}}</strong>, son/daughter of {{orBlank .P.GuardianName}}, hereby accept the appointment as an invigilator
for the above examination. I declare that I shall maintain complete confidentiality of all examination materials and processes that
come to my knowledge, and that none of my relatives or close acquaintances are appearing as candidates in this examination.</p>
<table>
  <tr><td class="label">Date of Birth</td><td>{{orBlank .P.DOB}}</td><td class="label">Mobile No.</td><td>{{orBlank .P.Phone}}</td></tr>
  <tr><td class="label">Email</td><td>{{orBlank .P.Email}}</td><td class="label">Aadhaar No.</td><td>{{orBlank .P.NationalID}}</td></tr>
  <tr><td class="label">Residence</td><td>{{orBlank .P.Residence}}</td><td class="label">Area</td><td>{{orBlank .P.Area}}</td></tr>
  <tr><td class="label">Landmark</td><td>{{orBlank .P.Landmark}}</td><td class="label">Address</td><td>{{orBlank .P.Address}}</td></tr>
  <tr><td class="label">Exam City Preference 1</td><td>{{orBlank .P.ExamCityPref1}}</td><td class="label">Exam City Preference 2</td><td>{{orBlank .P.ExamCityPref2}}</td></tr>
  <tr><td class="label">Prior Invigilation Experience</td><td>{{orBlank .P.PriorExperience}}</td><td class="label">Years / Role</td><td>{{orBlank .P.ExperienceYears}} / {{orBlank .P.ExperienceRole}}</td></tr>
</table>
<div class="sig-row">
  <div class="sig-box">Date: {{orBlank .P.FormDate}}</div>
  <div class="sig-box">{{if .P.SignatureURL}}<img class="signature" src="{{.P.SignatureURL}}" alt="signature"><br>{{end}}Signature of Applicant</div>
</div>
`

const healthBody = `
<h2>Health Self-Declaration</h2>
<p>I, <strong>{{orBlank .P.Name}}</strong>, hereby declare my current health status for duty at the {{.Cfg.ExamName}}:</p>
<table>
  <tr><td class="label">Fever</td><td>{{symptom .P.Fever}}</td><td class="label">Cough</td><td>{{symptom .P.Cough}}</td></tr>
  <tr><td class="label">Breathlessness</td><td>{{symptom .P.Breathlessness}}</td><td class="label">Sore Throat</td><td>{{symptom .P.SoreThroat}}</td></tr>
  <tr><td class="label">Other Symptoms</td><td>{{symptom .P.OtherSymptoms}}</td><td class="label">Details</td><td>{{orBlank .P.OtherSymptomsDetails}}</td></tr>
  <tr><td class="label">Close contact with a confirmed case in the last 14 days</td><td colspan="3">{{symptom .P.CloseContact}}</td></tr>
</table>
<p>I understand that suppression of any of the above information renders me liable to removal from duty.
I agree to follow all health and safety protocols notified by {{.Cfg.OrgName}} at the examination venue.</p>
<p><strong>Declaration accepted:</strong> {{checked .P.HealthDeclAgreed}}</p>
<div class="sig-row">
  <div class="sig-box">Date: {{orBlank .P.FormDate}}</div>
  <div class="sig-box">{{if .P.SignatureURL}}<img class="signature" src="{{.P.SignatureURL}}" alt="signature"><br>{{end}}Signature of Applicant</div>
</div>
`

const undertakingBody = `
<h2>Undertaking</h2>
<p>I, <strong>{{orBlank .P.Name}}</strong>, appointed as an invigilator for the {{.Cfg.ExamName}}, hereby undertake that:</p>
<ol>
  <li>I shall report at the allotted examination venue at the notified time on every day of my duty from {{.Cfg.ExamDates}}.</li>
  <li>I shall not carry any mobile phone, camera, or electronic device into the examination hall.</li>
  <li>I shall not disclose, copy, or transmit any examination content, and shall report any attempt at malpractice immediately.</li>
  <li>I shall not leave the venue during examination hours without written permission of the centre supervisor.</li>
  <li>I accept that any violation of these conditions attracts a penalty of {{.Cfg.DebitFee}} and immediate termination of my engagement.</li>
  <li>I confirm that the particulars furnished by me in this application are true, and that any false statement shall disqualify me from engagement.</li>
</ol>
<p><strong>Penalty conditions accepted:</strong> {{checked .P.PenaltyAgreed}}</p>
<div class="sig-row">
  <div class="sig-box">Date: {{orBlank .P.FormDate}}</div>
  <div class="stamp-box">Revenue Stamp /<br>Thumb Impression</div>
  <div class="sig-box">{{if .P.ThumbprintURL}}<img class="signature" src="{{.P.ThumbprintURL}}" alt="thumbprint"><br>{{end}}Signature of Applicant</div>
</div>
`

const payoutBody = `
<h2>Payout Details and Debit Note</h2>
<p>Remuneration for invigilation duty at the {{.Cfg.ExamName}} is payable at <strong>{{.Cfg.PayoutRate}}</strong> per duty day,
credited to the bank account stated below after completion of the engagement.</p>
<table>
  <tr><td class="label">Account Holder Name</td><td>{{orBlank .P.AccountHolder}}</td></tr>
  <tr><td class="label">Bank Name</td><td>{{orBlank .P.BankName}}</td></tr>
  <tr><td class="label">Account Number</td><td>{{orBlank .P.BankAccountNo}}</td></tr>
  <tr><td class="label">IFSC Code</td><td>{{orBlank .P.IFSC}}</td></tr>
  <tr><td class="label">Branch</td><td>{{orBlank .P.Branch}}</td></tr>
</table>
<p><strong>Debit Note:</strong> I authorise {{.Cfg.OrgName}} to recover an amount of {{.Cfg.DebitFee}} from my remuneration in the
event of unnotified absence from allotted duty or violation of the undertaking executed by me.</p>
<div class="sig-row">
  <div class="sig-box">Date: {{orBlank .P.FormDate}}</div>
  <div class="sig-box">{{if .P.SignatureURL}}<img class="signature" src="{{.P.SignatureURL}}" alt="signature"><br>{{end}}Signature of Applicant</div>
</div>
`

var sectionTemplates = []struct {
	id    string
	title string
	tmpl  *template.Template
}{
	{"appointment", "Appointment cum Confidentiality Declaration", mustSection("appointment", appointmentBody)},
	{"health", "Health Self-Declaration", mustSection("health", healthBody)},
	{"undertaking", "Undertaking", mustSection("undertaking", undertakingBody)},
	{"payout", "Payout Details and Debit Note", mustSection("payout", payoutBody)},
}

func mustSection(name, body string) *template.Template {
	return template.Must(template.New(name).Funcs(sectionFuncs).Parse(fmt.Sprintf(sectionFrame, body)))
}

// BuildSections renders the four document sections for the profile, in
// print order.
func BuildSections(profile store.Profile, cfg DocumentConfig) ([]Section, error) {
	data := sectionData{P: profile, Cfg: cfg}

	sections := make([]Section, 0, len(sectionTemplates))
	for _, st := range sectionTemplates {
		var buf bytes.Buffer
		if err := st.tmpl.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("render section %s: %w", st.id, err)
		}
		sections = append(sections, Section{ID: st.id, Title: st.title, HTML: buf.String()})
	}
	return sections, nil
}
