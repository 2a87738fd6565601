package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// QRType declares how the content of a code is interpreted when scanned.
type QRType string

const (
	TypeURL       QRType = "url"
	TypeText      QRType = "text"
	TypeEmail     QRType = "email"
	TypePhone     QRType = "phone"
	TypeSMS       QRType = "sms"
	TypeWiFi      QRType = "wifi"
	TypeLocation  QRType = "location"
	TypeUPI       QRType = "upi"
	TypeVCard     QRType = "vcard"
	TypeMeCard    QRType = "mecard"
	TypeInstagram QRType = "instagram"
	TypeFacebook  QRType = "facebook"
	TypeYouTube   QRType = "youtube"
	TypeWhatsApp  QRType = "whatsapp"
	TypeImage     QRType = "image"
	TypePDF       QRType = "pdf"
	TypeVideo     QRType = "video"
	TypeAudio     QRType = "audio"
	TypeEvent     QRType = "event"
)

var allTypes = []QRType{
	TypeURL, TypeText, TypeEmail, TypePhone, TypeSMS, TypeWiFi, TypeLocation, TypeUPI,
	TypeVCard, TypeMeCard, TypeInstagram, TypeFacebook, TypeYouTube, TypeWhatsApp,
	TypeImage, TypePDF, TypeVideo, TypeAudio, TypeEvent,
}

func AllTypes() []QRType {
	result := make([]QRType, len(allTypes))
	copy(result, allTypes)
	return result
}

func IsValidType(t QRType) bool {
	for _, v := range allTypes {
		if v == t {
			return true
		}
	}
	return false
}

type QRStatus string

const (
	StatusActive   QRStatus = "active"
	StatusInactive QRStatus = "inactive"
)

// QRCode is owned by a user; ScanCount is only changed by the scan recorder.
// Template and Styling are schemaless, missing keys fall back to DefaultTemplate / DefaultStyling.
type QRCode struct {
	Id             primitive.ObjectID     `json:"_id" bson:"_id,omitempty"`
	User           primitive.ObjectID     `json:"user" bson:"user"`
	Type           QRType                 `json:"type" bson:"type" validate:"required"`
	Content        string                 `json:"content" bson:"content" validate:"required"`
	Name           string                 `json:"name" bson:"name" validate:"required"`
	ScanCount      int64                  `json:"scanCount" bson:"scanCount" validate:"min=0"`
	ExpirationDate *time.Time             `json:"expirationDate,omitempty" bson:"expirationDate,omitempty"`
	ScanLimit      *int64                 `json:"scanLimit,omitempty" bson:"scanLimit,omitempty" validate:"omitempty,min=1"`
	Status         QRStatus               `json:"status" bson:"status"`
	PreviewImage   string                 `json:"previewImage,omitempty" bson:"previewImage,omitempty"`
	Template       map[string]interface{} `json:"template,omitempty" bson:"template,omitempty"`
	Styling        map[string]interface{} `json:"styling,omitempty" bson:"styling,omitempty"`
	CreatedAt      time.Time              `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time              `json:"updatedAt" bson:"updatedAt"`
}

func (q *QRCode) HasLimit() bool {
	return q.ScanLimit != nil && *q.ScanLimit > 0
}

func (q *QRCode) OwnedBy(userId primitive.ObjectID) bool {
	return q.User == userId
}

// TemplateValue reads a template key, falling back to the default card template
func (q *QRCode) TemplateValue(key string) interface{} {
	if v, ok := q.Template[key]; ok {
		return v
	}
	return DefaultTemplate()[key]
}

// StylingValue reads a styling key, falling back to DefaultStyling
func (q *QRCode) StylingValue(key string) interface{} {
	if v, ok := q.Styling[key]; ok {
		return v
	}
	return DefaultStyling()[key]
}

func DefaultTemplate() map[string]interface{} {
	return map[string]interface{}{
		"id":                 "professional-dark",
		"name":               "Professional Dark",
		"backgroundColor":    "#1a1a2e",
		"textColor":          "#ffffff",
		"title":              "Scan Me",
		"subtitle":           "Scan to connect",
		"titleFontSize":      24,
		"subtitleFontSize":   14,
		"titleFontWeight":    "bold",
		"subtitleFontWeight": "normal",
		"fontFamily":         "Inter",
		"textAlign":          "center",
		"qrPosition":         "bottom",
		"borderRadius":       16,
		"showGradient":       false,
		"gradientDirection":  "to-bottom",
		"padding":            24,
		"showBorder":         false,
		"borderWidth":        1,
		"shadowIntensity":    "medium",
		"decorativeStyle":    "none",
	}
}

func DefaultStyling() map[string]interface{} {
	return map[string]interface{}{
		"fgColor":       "#000000",
		"bgColor":       "#ffffff",
		"size":          200,
		"level":         "M",
		"includeMargin": true,
	}
}
