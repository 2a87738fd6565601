package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestAdHocRedirect_Bind(t *testing.T) {
	tests := []struct {
		target string
		ok     bool
	}{
		{"https://example.com/path?q=1", true},
		{"http://example.com", true},
		{"", false},
		{"/relative/path", false},
		{"example.com", false},
		{"not a url", false},
		{"javascript:alert(1)", false},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			err := (&AdHocRedirect{Target: tt.target}).Bind(nil)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestUser_CanAccess(t *testing.T) {
	owner := primitive.NewObjectID()
	qr := &QRCode{User: owner}

	assert.True(t, (&User{Id: owner}).CanAccess(qr))
	assert.False(t, (&User{Id: primitive.NewObjectID()}).CanAccess(qr))
	assert.True(t, (&User{Id: primitive.NewObjectID(), IsAdmin: true}).CanAccess(qr))
}

func TestNewScan(t *testing.T) {
	id := primitive.NewObjectID()
	at := time.Date(2025, 5, 1, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	scan := NewScan(&id, &ClientMeta{
		Browser: Browser{Name: "Safari"},
		Device:  Device{Type: DeviceMobile},
		IP:      "198.51.100.4",
	}, at)

	assert.Equal(t, &id, scan.QRCode)
	assert.Equal(t, "Safari", scan.Browser.Name)
	assert.Equal(t, time.UTC, scan.CreatedAt.Location())
	assert.True(t, scan.Id.IsZero())
}

func TestQRCode_HasLimit(t *testing.T) {
	zero, five := int64(0), int64(5)
	assert.False(t, (&QRCode{}).HasLimit())
	assert.False(t, (&QRCode{ScanLimit: &zero}).HasLimit())
	assert.True(t, (&QRCode{ScanLimit: &five}).HasLimit())
	assert.True(t, IsValidType(TypeWiFi))
	assert.False(t, IsValidType("barcode"))
	assert.Len(t, AllTypes(), 19)
}

func TestQRCode_TemplateValue(t *testing.T) {
	qr := &QRCode{Template: map[string]interface{}{"title": "Menu"}}
	assert.Equal(t, "Menu", qr.TemplateValue("title"))
	assert.Equal(t, "#1a1a2e", qr.TemplateValue("backgroundColor"))
	assert.Nil(t, qr.TemplateValue("unknown"))

	qr.Styling = map[string]interface{}{"fgColor": "#ff0000"}
	assert.Equal(t, "#ff0000", qr.StylingValue("fgColor"))
	assert.Equal(t, "M", qr.StylingValue("level"))
}
