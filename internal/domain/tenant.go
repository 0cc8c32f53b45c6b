package domain

import "fmt"

// MaxTenantLength bounds tenant names so index and key names stay short.
const MaxTenantLength = 64

// ValidateTenant checks that a tenant can be used inside key and index names.
func ValidateTenant(tenant string) error {
	if tenant == "" {
		return fmt.Errorf("%w: tenant is required", ErrInvalidTenant)
	}
	if len(tenant) > MaxTenantLength {
		return fmt.Errorf("%w: tenant longer than %d characters", ErrInvalidTenant, MaxTenantLength)
	}
	for _, r := range tenant {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		if !isAlpha && !isDigit && r != '_' && r != '-' {
			return fmt.Errorf("%w: %q contains invalid characters", ErrInvalidTenant, tenant)
		}
	}
	return nil
}
