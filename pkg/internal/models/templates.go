package models

import "gorm.io/datatypes"

type Template struct {
	BaseModel

	Title   string                      `json:"title"`
	Options datatypes.JSONSlice[string] `json:"options"`

	AccountID uint `json:"account_id" gorm:"index"`
}
