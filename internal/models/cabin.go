package models

import "time"

type Cabin struct {
	ID           int64     `yaml:"id" json:"id"`
	Name         string    `yaml:"name" json:"name"`
	WeekdayPrice int64     `yaml:"weekday_price" json:"weekday_price"`
	WeekendPrice int64     `yaml:"weekend_price" json:"weekend_price"`
	MaxGuests    int64     `yaml:"max_guests" json:"max_guests"`
	IsActive     bool      `yaml:"is_active" json:"is_active"`
	CreatedAt    time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt    time.Time `yaml:"updated_at" json:"updated_at"`
}
