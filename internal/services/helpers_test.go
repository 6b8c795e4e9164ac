package services

import (
	"github.com/aniZ2/soledgic-sub004/internal/models"
)

func mustAccount(id string, accountType models.AccountType) *models.Account {
	return &models.Account{
		ID:     id,
		Type:   accountType,
		Name:   string(accountType),
		Active: true,
	}
}
