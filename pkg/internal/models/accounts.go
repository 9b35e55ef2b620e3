package models

// Account is one broadcaster. Everything the service stores is scoped to it.
type Account struct {
	BaseModel

	ExternalID string `json:"external_id" gorm:"uniqueIndex;size:64"`
	Name       string `json:"name"`
	Nick       string `json:"nick"`

	AccessToken  string `json:"-"`
	RefreshToken string `json:"-"`

	// DistributionKey addresses the overlay channel of this account.
	// Rotating it orphans every overlay still configured with the old value.
	DistributionKey string `json:"distribution_key" gorm:"uniqueIndex;size:64"`
}
