package entity

import "go.mongodb.org/mongo-driver/bson/primitive"

type TopQRCode struct {
	QRCodeId primitive.ObjectID `json:"qrCodeId" bson:"qrCodeId"`
	Name     string             `json:"name" bson:"name"`
	Count    int64              `json:"count" bson:"count"`
}

type Analytics struct {
	TotalScans  int64            `json:"totalScans"`
	Browsers    map[string]int64 `json:"browsers"`
	OS          map[string]int64 `json:"os"`
	Devices     map[string]int64 `json:"devices"`
	Countries   map[string]int64 `json:"countries"`
	ScansByDate map[string]int64 `json:"scansByDate"`
	TopQRCodes  []TopQRCode      `json:"topQRCodes"`
}

// NewAnalytics returns the zeroed shape, maps and list are never null in JSON
func NewAnalytics() *Analytics {
	return &Analytics{
		Browsers:    make(map[string]int64),
		OS:          make(map[string]int64),
		Devices:     make(map[string]int64),
		Countries:   make(map[string]int64),
		ScansByDate: make(map[string]int64),
		TopQRCodes:  make([]TopQRCode, 0),
	}
}
