// Package models defines the core data structures for users and job applications.
package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DefaultCurrency is applied to new applications that omit a currency.
const DefaultCurrency = "EUR"

const dateLayout = "2006-01-02"

// Date is a calendar day serialised as YYYY-MM-DD.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar day.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current UTC calendar day.
func Today() Date { return NewDate(time.Now().UTC()) }

// MarshalJSON encodes the day, or null for the zero value.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

// UnmarshalJSON accepts YYYY-MM-DD, an RFC 3339 timestamp, or null.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		*d = NewDate(t)
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("%w: bad date %q", ErrValidation, s)
	}
	*d = NewDate(t)
	return nil
}

// Scan implements sql.Scanner.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
	case time.Time:
		*d = NewDate(v)
	case string:
		return d.UnmarshalJSON([]byte(v))
	case []byte:
		return d.UnmarshalJSON(v)
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
	return nil
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.Time, nil
}

// Application is one tracked job application.
type Application struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	Company        string    `json:"company"`
	Position       string    `json:"position"`
	Status         Status    `json:"status"`
	AppliedDate    Date      `json:"applied_date"`
	WorkType       string    `json:"work_type"`
	Location       string    `json:"location"`
	SalaryMin      *int64    `json:"salary_min"`
	SalaryMax      *int64    `json:"salary_max"`
	Currency       string    `json:"currency"`
	Link           string    `json:"link"`
	Description    string    `json:"description"`
	RecruiterName  string    `json:"recruiter_name"`
	RecruiterEmail string    `json:"recruiter_email"`
	Notes          string    `json:"notes"`
	CVPath         string    `json:"cv_path"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Clone returns a copy that shares no pointers with a.
func (a Application) Clone() Application {
	out := a
	if a.SalaryMin != nil {
		v := *a.SalaryMin
		out.SalaryMin = &v
	}
	if a.SalaryMax != nil {
		v := *a.SalaryMax
		out.SalaryMax = &v
	}
	return out
}

// NewApplication is the create payload. Server-managed fields are absent.
type NewApplication struct {
	Company        string `json:"company"`
	Position       string `json:"position"`
	Status         Status `json:"status"`
	AppliedDate    Date   `json:"applied_date"`
	WorkType       string `json:"work_type"`
	Location       string `json:"location"`
	SalaryMin      *int64 `json:"salary_min"`
	SalaryMax      *int64 `json:"salary_max"`
	Currency       string `json:"currency"`
	Link           string `json:"link"`
	Description    string `json:"description"`
	RecruiterName  string `json:"recruiter_name"`
	RecruiterEmail string `json:"recruiter_email"`
	Notes          string `json:"notes"`
	CVPath         string `json:"cv_path"`
}

// Normalize fills defaults and validates the payload in place.
func (n *NewApplication) Normalize() error {
	n.Company = strings.TrimSpace(n.Company)
	n.Position = strings.TrimSpace(n.Position)
	if n.Company == "" || n.Position == "" {
		return fmt.Errorf("%w: company and position are required", ErrValidation)
	}
	if n.Status == "" {
		n.Status = StatusApplied
	} else {
		s, err := ParseStatus(string(n.Status))
		if err != nil {
			return err
		}
		n.Status = s
	}
	if n.Currency == "" {
		n.Currency = DefaultCurrency
	}
	if n.AppliedDate.IsZero() {
		n.AppliedDate = Today()
	}
	return checkSalary(n.SalaryMin, n.SalaryMax)
}

// ApplicationPatch carries the fields of a partial update. A nil field is
// left untouched by the store. In JSON an explicit null for salary_min or
// salary_max clears that bound; absent keys leave it alone.
type ApplicationPatch struct {
	Company        *string `json:"company,omitempty"`
	Position       *string `json:"position,omitempty"`
	Status         *Status `json:"status,omitempty"`
	AppliedDate    *Date   `json:"applied_date,omitempty"`
	WorkType       *string `json:"work_type,omitempty"`
	Location       *string `json:"location,omitempty"`
	SalaryMin      *int64  `json:"salary_min,omitempty"`
	SalaryMax      *int64  `json:"salary_max,omitempty"`
	Currency       *string `json:"currency,omitempty"`
	Link           *string `json:"link,omitempty"`
	Description    *string `json:"description,omitempty"`
	RecruiterName  *string `json:"recruiter_name,omitempty"`
	RecruiterEmail *string `json:"recruiter_email,omitempty"`
	Notes          *string `json:"notes,omitempty"`
	CVPath         *string `json:"cv_path,omitempty"`

	ClearSalaryMin bool `json:"-"`
	ClearSalaryMax bool `json:"-"`
}

type plainPatch ApplicationPatch

// UnmarshalJSON records explicit nulls for the salary bounds.
func (p *ApplicationPatch) UnmarshalJSON(b []byte) error {
	var out plainPatch
	if err := json.Unmarshal(b, &out); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out.ClearSalaryMin = isJSONNull(raw, "salary_min")
	out.ClearSalaryMax = isJSONNull(raw, "salary_max")
	*p = ApplicationPatch(out)
	return nil
}

// MarshalJSON writes cleared salary bounds as null.
func (p ApplicationPatch) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(plainPatch(p))
	if err != nil || !p.ClearSalaryMin && !p.ClearSalaryMax {
		return b, err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	if p.ClearSalaryMin && p.SalaryMin == nil {
		raw["salary_min"] = json.RawMessage("null")
	}
	if p.ClearSalaryMax && p.SalaryMax == nil {
		raw["salary_max"] = json.RawMessage("null")
	}
	return json.Marshal(raw)
}

func isJSONNull(raw map[string]json.RawMessage, key string) bool {
	v, ok := raw[key]
	return ok && bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

// StatusPatch builds a patch that only moves the record to s.
func StatusPatch(s Status) ApplicationPatch {
	return ApplicationPatch{Status: &s}
}

// IsEmpty reports whether the patch changes nothing.
func (p ApplicationPatch) IsEmpty() bool {
	return p == ApplicationPatch{}
}

// Validate canonicalises the status and checks field constraints.
func (p *ApplicationPatch) Validate() error {
	if p.IsEmpty() {
		return fmt.Errorf("%w: no fields to update", ErrValidation)
	}
	if p.Status != nil {
		s, err := ParseStatus(string(*p.Status))
		if err != nil {
			return err
		}
		p.Status = &s
	}
	if p.Company != nil && strings.TrimSpace(*p.Company) == "" {
		return fmt.Errorf("%w: company cannot be empty", ErrValidation)
	}
	if p.Position != nil && strings.TrimSpace(*p.Position) == "" {
		return fmt.Errorf("%w: position cannot be empty", ErrValidation)
	}
	if p.ClearSalaryMin && p.SalaryMin != nil || p.ClearSalaryMax && p.SalaryMax != nil {
		return fmt.Errorf("%w: salary bound both set and cleared", ErrValidation)
	}
	return checkSalary(p.SalaryMin, p.SalaryMax)
}

// Apply copies the supplied fields onto a.
func (p ApplicationPatch) Apply(a *Application) {
	setString(&a.Company, p.Company)
	setString(&a.Position, p.Position)
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.AppliedDate != nil {
		a.AppliedDate = *p.AppliedDate
	}
	setString(&a.WorkType, p.WorkType)
	setString(&a.Location, p.Location)
	if p.SalaryMin != nil {
		v := *p.SalaryMin
		a.SalaryMin = &v
	} else if p.ClearSalaryMin {
		a.SalaryMin = nil
	}
	if p.SalaryMax != nil {
		v := *p.SalaryMax
		a.SalaryMax = &v
	} else if p.ClearSalaryMax {
		a.SalaryMax = nil
	}
	setString(&a.Currency, p.Currency)
	setString(&a.Link, p.Link)
	setString(&a.Description, p.Description)
	setString(&a.RecruiterName, p.RecruiterName)
	setString(&a.RecruiterEmail, p.RecruiterEmail)
	setString(&a.Notes, p.Notes)
	setString(&a.CVPath, p.CVPath)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func checkSalary(lo, hi *int64) error {
	if lo != nil && *lo < 0 || hi != nil && *hi < 0 {
		return fmt.Errorf("%w: salary cannot be negative", ErrValidation)
	}
	if lo != nil && hi != nil && *lo > *hi {
		return fmt.Errorf("%w: salary_min exceeds salary_max", ErrValidation)
	}
	return nil
}

// Stats summarises a user's applications per status.
type Stats struct {
	Total    int            `json:"total"`
	ByStatus map[Status]int `json:"by_status"`
}

// CoverLetterRequest describes the job a cover letter is written for.
type CoverLetterRequest struct {
	Company     string `json:"company"`
	Position    string `json:"position"`
	Description string `json:"description"`
	UserName    string `json:"userName"`
}
