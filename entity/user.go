package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User as seen by this service; credentials are managed elsewhere
type User struct {
	Id        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"`
	Email     string             `json:"email" bson:"email"`
	IsAdmin   bool               `json:"isAdmin" bson:"isAdmin"`
	Blocked   bool               `json:"blocked" bson:"blocked"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

// CanAccess owners see their own codes, admins see every code
func (u *User) CanAccess(qr *QRCode) bool {
	if u.IsAdmin {
		return true
	}
	return qr.OwnedBy(u.Id)
}
