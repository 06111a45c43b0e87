package models

import "time"

// DeviceRecord is one key of a device's durable storage. Scope is the
// device id; Value is opaque JSON owned by the store that wrote it.
type DeviceRecord struct {
	Scope     string    `gorm:"type:varchar(64);primaryKey" json:"scope"`
	Key       string    `gorm:"type:varchar(64);primaryKey" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
