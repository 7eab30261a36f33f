package model

import "time"

// Category is a habit area with its own daily streak (study, sport, reading, etc.).
type Category struct {
	ID        uint       `gorm:"primaryKey;autoIncrement:false" json:"id" yaml:"id"`
	Name      string     `gorm:"not null" json:"name" yaml:"name"`
	Streak    int        `gorm:"not null;default:0" json:"streak" yaml:"streak"`
	LastLogin *time.Time `json:"lastLogin" yaml:"lastLogin"`
	CreatedAt time.Time  `json:"-" yaml:"-"`
	UpdatedAt time.Time  `json:"-" yaml:"-"`
}
