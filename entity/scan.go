package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceBot     = "bot"
)

type Browser struct {
	Name    string `json:"name,omitempty" bson:"name,omitempty"`
	Version string `json:"version,omitempty" bson:"version,omitempty"`
}

type OS struct {
	Name    string `json:"name,omitempty" bson:"name,omitempty"`
	Version string `json:"version,omitempty" bson:"version,omitempty"`
}

type Device struct {
	Type   string `json:"type" bson:"type" validate:"required"`
	Vendor string `json:"vendor,omitempty" bson:"vendor,omitempty"`
	Model  string `json:"model,omitempty" bson:"model,omitempty"`
}

// Location is empty when the address could not be resolved
type Location struct {
	Country     string  `json:"country,omitempty" bson:"country,omitempty"`
	CountryCode string  `json:"countryCode,omitempty" bson:"countryCode,omitempty"`
	Region      string  `json:"region,omitempty" bson:"region,omitempty"`
	City        string  `json:"city,omitempty" bson:"city,omitempty"`
	Latitude    float64 `json:"latitude,omitempty" bson:"latitude,omitempty"`
	Longitude   float64 `json:"longitude,omitempty" bson:"longitude,omitempty"`
	Timezone    string  `json:"timezone,omitempty" bson:"timezone,omitempty"`
}

func (l Location) IsEmpty() bool {
	return l == Location{}
}

// ClientMeta is what the extractor derives from one request
type ClientMeta struct {
	Browser   Browser
	OS        OS
	Device    Device
	IP        string
	UserAgent string
	Location  Location
	Referrer  string
}

// Scan is written once and never updated; QRCode is nil for ad-hoc redirects
type Scan struct {
	Id        primitive.ObjectID  `json:"_id" bson:"_id,omitempty"`
	QRCode    *primitive.ObjectID `json:"qrCode,omitempty" bson:"qrCode,omitempty"`
	Browser   Browser             `json:"browser" bson:"browser"`
	OS        OS                  `json:"os" bson:"os"`
	Device    Device              `json:"device" bson:"device"`
	IP        string              `json:"ip" bson:"ip" validate:"omitempty,ip"`
	UserAgent string              `json:"userAgent" bson:"userAgent" validate:"max=2048"`
	Location  Location            `json:"location" bson:"location"`
	Referrer  string              `json:"referrer" bson:"referrer" validate:"max=2048"`
	Target    string              `json:"target,omitempty" bson:"target,omitempty" validate:"omitempty,url"`
	CreatedAt time.Time           `json:"createdAt" bson:"createdAt" validate:"required"`
}

func NewScan(qrCode *primitive.ObjectID, meta *ClientMeta, now time.Time) *Scan {
	return &Scan{
		QRCode:    qrCode,
		Browser:   meta.Browser,
		OS:        meta.OS,
		Device:    meta.Device,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		Location:  meta.Location,
		Referrer:  meta.Referrer,
		CreatedAt: now.UTC(),
	}
}

// ScanSummary is the code reference attached to scans in the user's feed
type ScanSummary struct {
	Id      primitive.ObjectID `json:"_id" bson:"_id"`
	Name    string             `json:"name" bson:"name"`
	Type    QRType             `json:"type" bson:"type"`
	Content string             `json:"content" bson:"content"`
}

type ScanView struct {
	Scan   `bson:",inline"`
	QRInfo *ScanSummary `json:"qrCodeInfo,omitempty" bson:"qrCodeInfo,omitempty"`
}
