package model

import "time"

// Classification bounds for screenshot scoring. Zero means not yet classified.
const (
	ClassificationUnset = 0
	ClassificationMax   = 10
)

// Link is one scrape target tracked through capture, extraction and
// classification.
type Link struct {
	ID             int64      `json:"id"`
	Domain         string     `json:"domain"`
	ContentPath    string     `json:"content_path,omitempty"`
	ScreenshotPath string     `json:"screenshot_path,omitempty"`
	Email          Field      `json:"email"`
	ContactName    Field      `json:"contact_name"`
	Pronoun        Field      `json:"pronoun"`
	Industry       Field      `json:"industry"`
	City           Field      `json:"city"`
	Area           Field      `json:"area"`
	Classification int        `json:"classification"`
	Description    string     `json:"description,omitempty"`
	Parsed         bool       `json:"parsed"`
	Invalid        bool       `json:"invalid"`
	ContactedAt    *time.Time `json:"contacted_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Fields returns the extracted fields keyed by column name.
func (l *Link) Fields() map[string]Field {
	return map[string]Field{
		FieldEmail:       l.Email,
		FieldContactName: l.ContactName,
		FieldPronoun:     l.Pronoun,
		FieldIndustry:    l.Industry,
		FieldCity:        l.City,
		FieldArea:        l.Area,
	}
}

// HasContent reports whether the scraper captured text for this link.
func (l *Link) HasContent() bool {
	return l.ContentPath != ""
}

// IsLead reports whether the link is a parsed lead with a usable email.
func (l *Link) IsLead() bool {
	return l.Parsed && !l.Invalid && l.Email.IsSet()
}

// Campaign groups outreach for one industry. Campaign industries can serve
// as the controlled vocabulary for extraction.
type Campaign struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Industry  string    `json:"industry,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// QC outcomes recorded when a lead is reviewed.
const (
	QCRejected = 0
	QCAccepted = 1
)

// EmailEvent records a reviewed lead staged for outreach.
type EmailEvent struct {
	ID           int64      `json:"id"`
	LinkID       int64      `json:"link_id"`
	CampaignID   *int64     `json:"campaign_id,omitempty"`
	QCResult     int        `json:"qc_result"`
	Content      string     `json:"email_content"`
	DeliveryTime *time.Time `json:"delivery_time,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
