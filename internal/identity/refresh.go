package identity

import "cyberxpert/internal/domain"

// RefreshPrincipalFromToken re-synchronises a principal with the claims of a
// session token. It returns nil when the token cannot be decoded.
//
// When existing is nil, or belongs to a different subject, the principal is
// built from the claims alone. Otherwise a copy of existing is returned with
// its role taken from the token's elevated claim; status and all other fields
// are preserved.
func RefreshPrincipalFromToken(token string, existing *domain.Principal) *domain.Principal {
	claims, err := DecodeToken(token)
	if err != nil {
		return nil
	}
	return refreshFromClaims(claims, existing)
}

// Reconcile resolves raw and brings the result in line with claims, the way a
// fresh login does. raw may be nil, in which case the principal is built from
// the claims alone.
func Reconcile(claims *domain.TokenClaims, raw *domain.RawUser) *domain.Principal {
	return refreshFromClaims(claims, ResolvePrincipal(raw))
}

func refreshFromClaims(claims *domain.TokenClaims, existing *domain.Principal) *domain.Principal {
	if existing == nil || (existing.ID != "" && existing.ID != claims.SubjectID) {
		return principalFromClaims(claims)
	}
	p := existing.Clone()
	if p.ID == "" {
		p.ID = claims.SubjectID
	}
	p.Role = roleFromClaims(claims)
	if !p.Status.Valid() {
		p.Status = domain.StatusActive
	}
	return p
}

func principalFromClaims(claims *domain.TokenClaims) *domain.Principal {
	return &domain.Principal{
		ID:       claims.SubjectID,
		Username: claims.Username,
		Email:    claims.Email,
		Role:     roleFromClaims(claims),
		Status:   domain.StatusActive,
	}
}

func roleFromClaims(claims *domain.TokenClaims) domain.Role {
	if claims.Elevated {
		return domain.RoleAdmin
	}
	return domain.RoleDeveloper
}
