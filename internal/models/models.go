package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Agreement status values as stored on a Signature.
const (
	StatusPending  = "pending"
	StatusStarted  = "started"
	StatusComplete = "complete"
)

// AgreementTypes enumerates the accepted agreement type values.
var AgreementTypes = []string{
	"nda form",
	"hourly contract",
	"fixed price contract",
	"reimbursement contract",
	"cost plus contract",
	"bilateral contract",
	"time and material contract",
	"other",
}

// DocumentKinds enumerates the supporting documents a creator may require
// from signees. "custom" carries a creator-supplied label.
var DocumentKinds = []string{"photo", "id-card", "passport", "drivers-license", "custom"}

// Agreement is a contract document owned by a creator.
type Agreement struct {
	ID                 uuid.UUID                    `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID            string                       `gorm:"type:text;not null;index" json:"ownerId"`
	Type               string                       `gorm:"type:text;not null" json:"type"`
	Name               string                       `gorm:"type:text;not null" json:"name"`
	FileURL            string                       `gorm:"type:text" json:"fileUrl"`
	FileType           string                       `gorm:"type:text" json:"fileType"`
	RequiredDocuments  datatypes.JSONSlice[string]  `gorm:"type:jsonb" json:"requiredDocuments"`
	CustomDocumentName string                       `gorm:"type:text" json:"customDocumentName,omitempty"`
	SigneeCount        int                          `gorm:"not null;default:0" json:"signeeCount"`
	ToReview           int                          `gorm:"not null;default:0" json:"toReview"`
	CreatedAt          time.Time                    `gorm:"type:timestamptz;not null;default:now();autoCreateTime" json:"createdAt"`
}

func (Agreement) TableName() string { return "agreements" }

// RequiresDocument reports whether the given kind is listed as mandatory.
func (a Agreement) RequiresDocument(kind string) bool {
	for _, k := range a.RequiredDocuments {
		if k == kind {
			return true
		}
	}
	return false
}

// SharedAgreement is a pending invitation allowing one signee to submit a
// signature against an agreement. It is deleted on signing or after 24h.
type SharedAgreement struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	AgreementID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"agreementId"`
	CreatorID    string     `gorm:"type:text;not null;index" json:"creatorId"`
	CreatorEmail string     `gorm:"type:text;not null" json:"creatorEmail"`
	SigneeName   string     `gorm:"type:text" json:"signeeName"`
	SigneeEmail  string     `gorm:"type:text;not null" json:"signeeEmail"`
	StartDate    *time.Time `gorm:"type:timestamptz" json:"startDate,omitempty"`
	EndDate      *time.Time `gorm:"type:timestamptz" json:"endDate,omitempty"`
	Amount       *float64   `json:"amount,omitempty"`
	Description  string     `gorm:"type:text" json:"description,omitempty"`
	CreatedAt    time.Time  `gorm:"type:timestamptz;not null;default:now();autoCreateTime" json:"createdAt"`
	ExpiresAt    time.Time  `gorm:"type:timestamptz;not null" json:"expiresAt"`
}

func (SharedAgreement) TableName() string { return "shared_agreements" }

// Signature is a signee's submitted packet plus its review state.
type Signature struct {
	ID                 uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	AgreementID        uuid.UUID         `gorm:"type:uuid;not null;index" json:"agreementId"`
	CreatorID          string            `gorm:"type:text;not null;index" json:"creatorId"`
	CreatorEmail       string            `gorm:"type:text" json:"creatorEmail"`
	SigneeName         string            `gorm:"type:text" json:"signeeName"`
	SigneeEmail        string            `gorm:"type:text;not null" json:"signeeEmail"`
	SignatureURL       string            `gorm:"type:text;not null" json:"signatureUrl"`
	Documents          datatypes.JSONMap `gorm:"type:jsonb" json:"documents"`
	CustomDocumentName string            `gorm:"type:text" json:"customDocumentName,omitempty"`
	StartDate          *time.Time        `gorm:"type:timestamptz;index" json:"startDate,omitempty"`
	EndDate            *time.Time        `gorm:"type:timestamptz;index" json:"endDate,omitempty"`
	Amount             *float64          `json:"amount,omitempty"`
	Description        string            `gorm:"type:text" json:"description,omitempty"`
	Approved           bool              `gorm:"not null;default:false" json:"approved"`
	Status             string            `gorm:"type:text;not null;default:pending" json:"status"`
	CreatedAt          time.Time         `gorm:"type:timestamptz;not null;default:now();autoCreateTime" json:"createdAt"`
}

func (Signature) TableName() string { return "signatures" }

// DocumentURLs returns the kind to URL map with values flattened to strings.
func (s Signature) DocumentURLs() map[string]string {
	out := make(map[string]string, len(s.Documents))
	for k, v := range s.Documents {
		if u, ok := v.(string); ok {
			out[k] = u
		}
	}
	return out
}

// Subscription mirrors the latest billing-provider event for a user. It is
// overwritten wholesale on every webhook delivery, never merged.
type Subscription struct {
	UserID         string     `gorm:"type:text;primaryKey" json:"userId"`
	Email          string     `gorm:"type:text;not null" json:"email"`
	PackageName    string     `gorm:"type:text;not null" json:"packageName"`
	Billing        string     `gorm:"type:text;not null" json:"billing"`
	Status         string     `gorm:"type:text;not null" json:"status"`
	Price          float64    `json:"price"`
	CustomerID     int64      `json:"customerId"`
	OrderID        int64      `json:"orderId"`
	SubscriptionID int64      `json:"subscriptionId"`
	RenewsAt       *time.Time `gorm:"type:timestamptz" json:"renewsAt,omitempty"`
	CardBrand      string     `gorm:"type:text" json:"cardBrand,omitempty"`
	CardLastFour   string     `gorm:"type:text" json:"cardLastFour,omitempty"`
	UpdatedAt      time.Time  `gorm:"type:timestamptz;not null;default:now();autoUpdateTime" json:"updatedAt"`
}

func (Subscription) TableName() string { return "subscriptions" }

// Profile holds a user's public-facing details. Updated by partial merge.
type Profile struct {
	UserID      string    `gorm:"type:text;primaryKey" json:"userId"`
	DisplayName string    `gorm:"type:text" json:"displayName,omitempty"`
	OrgName     string    `gorm:"type:text" json:"orgName,omitempty"`
	OrgTagline  string    `gorm:"type:text" json:"orgTagline,omitempty"`
	PictureURL  string    `gorm:"type:text" json:"pictureUrl,omitempty"`
	LogoURL     string    `gorm:"type:text" json:"logoUrl,omitempty"`
	UpdatedAt   time.Time `gorm:"type:timestamptz;not null;default:now();autoUpdateTime" json:"updatedAt"`
}

func (Profile) TableName() string { return "profiles" }
