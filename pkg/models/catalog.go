package models

import "time"

type MenuItem struct {
	ID          string    `json:"id" bson:"_id"`
	Name        string    `json:"name" bson:"name"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	Price       float64   `json:"price" bson:"price"`
	Category    string    `json:"category,omitempty" bson:"category,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty" bson:"image_url,omitempty"`
	IsAvailable bool      `json:"isAvailable" bson:"is_available"`
	CreatedAt   time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updated_at"`
}

type Table struct {
	ID         string    `json:"id" bson:"_id"`
	Number     int       `json:"number" bson:"number"`
	Capacity   int       `json:"capacity" bson:"capacity"`
	IsOccupied bool      `json:"isOccupied" bson:"is_occupied"`
	CreatedAt  time.Time `json:"createdAt" bson:"created_at"`
}
