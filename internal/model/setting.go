package model

// Setting is a key/value row for store-level state such as the seed marker.
type Setting struct {
	Key   string `gorm:"primaryKey"`
	Value string `gorm:"not null"`
}
