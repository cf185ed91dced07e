package models

// Ingredient is a catalog entry referenced by recipe lines.
type Ingredient struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	Name            string `gorm:"size:200;not null;index:,unique,composite:name_unit" json:"name"`
	MeasurementUnit string `gorm:"size:200;not null;index:,unique,composite:name_unit" json:"measurement_unit"`
}

// Tag is reference data used to classify recipes.
type Tag struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Name  string `gorm:"uniqueIndex;size:200;not null" json:"name"`
	Color string `gorm:"size:7;not null" json:"color"`
	Slug  string `gorm:"uniqueIndex;size:200;not null" json:"slug"`
}
