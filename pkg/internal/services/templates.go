package services

import (
	"strings"

	"git.solsynth.dev/hypernet/livepoll/pkg/internal/database"
	"git.solsynth.dev/hypernet/livepoll/pkg/internal/models"
	"github.com/samber/lo"
)

const DefaultTemplateTitle = "Template"

func ListTemplates(account models.Account) ([]models.Template, error) {
	var templates []models.Template
	err := database.C.
		Where("account_id = ?", account.ID).
		Order("created_at DESC, id DESC").
		Limit(50).
		Find(&templates).Error
	return templates, err
}

func NewTemplate(account models.Account, title string, options []string) (models.Template, error) {
	options = CleanPollOptions(options)
	if err := ValidatePollOptions(options); err != nil {
		return models.Template{}, err
	}

	template := models.Template{
		Title:     lo.Ternary(len(strings.TrimSpace(title)) > 0, strings.TrimSpace(title), DefaultTemplateTitle),
		Options:   options,
		AccountID: account.ID,
	}
	if err := database.C.Create(&template).Error; err != nil {
		return template, err
	}
	return template, nil
}

// DeleteTemplate removes the template when it belongs to the account, other ids are ignored.
func DeleteTemplate(account models.Account, id uint) error {
	return database.C.Where("id = ? AND account_id = ?", id, account.ID).Delete(&models.Template{}).Error
}
