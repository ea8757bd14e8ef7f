package handlers

import (
	"strings"

	"github.com/delloop-lab/accreditor-sub000/internal/models"
)

var allowedRoles = map[string]struct{}{
	models.RoleUser:       {},
	models.RoleAdmin:      {},
	models.RoleSuperAdmin: {},
}

func validateProfileUpdateRequest(req updateProfileRequest) string {
	if req.Name == nil && req.ICFLevel == nil && req.Currency == nil && req.Country == nil && req.CPDRenewalDate == nil {
		return "at least one field must be provided"
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return "name must not be empty"
	}
	if req.ICFLevel != nil && !models.IsValidICFLevel(*req.ICFLevel) {
		return "icf_level must be one of: none, ACC, PCC, MCC"
	}
	if req.Currency != nil && len(strings.TrimSpace(*req.Currency)) != 3 {
		return "currency must be a three letter code"
	}
	if req.Country != nil && len(strings.TrimSpace(*req.Country)) > 2 {
		return "country must be a two letter code"
	}
	if req.CPDRenewalDate != nil && !isISODate(strings.TrimSpace(*req.CPDRenewalDate)) {
		return "cpd_renewal_date must be a YYYY-MM-DD date"
	}
	return ""
}

func validateNotificationTypes(field string, types []string) string {
	for _, value := range types {
		if !models.IsNotificationType(value) {
			return field + " contains an unknown notification type: " + value
		}
	}
	return ""
}

func validateRole(role string) string {
	if _, ok := allowedRoles[role]; !ok {
		return "role must be one of: user, admin, super_admin"
	}
	return ""
}
